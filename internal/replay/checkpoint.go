// Package replay drives the two halves of the shadow pipeline: scanning
// pair logs into the journal, and replaying the journal through the engine.
package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Stages that write checkpoints. The shadow runner stores the last
// journaled block, the replay loop the count of applied journal lines.
const (
	StageShadow = "shadow"
	StageReplay = "replay"
)

// Checkpoint marks how far a pipeline stage has progressed. Stage records
// which runner wrote the file, so a block cursor is never misread as a
// line count or the other way around.
type Checkpoint struct {
	Stage     string `json:"stage,omitempty"`
	Cursor    uint64 `json:"cursor"`
	UpdatedAt string `json:"updated_at"`
}

// CheckpointStore persists the cursor as a small JSON file. A store built
// with an empty path or disabled loads nothing and saves nowhere.
type CheckpointStore struct {
	path    string
	stage   string
	enabled bool
}

// NewCheckpointStore builds a store for the given path, stamping every
// save with the owning stage.
func NewCheckpointStore(path, stage string, enabled bool) *CheckpointStore {
	return &CheckpointStore{path: path, stage: stage, enabled: enabled && path != ""}
}

// Load reads the checkpoint. The boolean reports whether one exists. A
// checkpoint written by a different stage is an error, not a miss: resuming
// from it would replay or skip the wrong work.
func (s *CheckpointStore) Load() (Checkpoint, bool, error) {
	if !s.enabled {
		return Checkpoint{}, false, nil
	}
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, fmt.Errorf("stat checkpoint: %w", err)
	}
	if info.IsDir() {
		return Checkpoint{}, false, fmt.Errorf("checkpoint path %s is a directory", s.path)
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("read checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("decode checkpoint: %w", err)
	}
	if cp.Stage != "" && s.stage != "" && cp.Stage != s.stage {
		return Checkpoint{}, false, fmt.Errorf("checkpoint %s belongs to stage %s, not %s", s.path, cp.Stage, s.stage)
	}
	return cp, true, nil
}

// Save writes the cursor through a temp file and rename, so a crash never
// leaves a half-written checkpoint behind.
func (s *CheckpointStore) Save(cursor uint64) error {
	if !s.enabled {
		return nil
	}
	data, err := json.Marshal(Checkpoint{
		Stage:     s.stage,
		Cursor:    cursor,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	return nil
}
