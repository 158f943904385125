package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"binbook/internal/storage/postgres"
)

// StateStore persists the newest timestamp whose windows are fully written,
// so a rerun can skip everything at or before it.
type StateStore interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, ts uint64) error
}

// FileStateStore keeps the resume point in a small JSON file next to the
// data. The window size is recorded with the timestamp: a resume point saved
// for one window size says nothing about the windows of another, so a
// mismatch reads as no state at all.
type FileStateStore struct {
	Path          string
	WindowSeconds uint64
}

type fileState struct {
	ResumeTS      uint64    `json:"resume_ts"`
	WindowSeconds uint64    `json:"window_seconds,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (s *FileStateStore) Load(ctx context.Context) (uint64, bool, error) {
	if s == nil || s.Path == "" {
		return 0, false, nil
	}
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read state file: %w", err)
	}
	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		return 0, false, fmt.Errorf("decode state file: %w", err)
	}
	if st.WindowSeconds != 0 && s.WindowSeconds != 0 && st.WindowSeconds != s.WindowSeconds {
		return 0, false, nil
	}
	return st.ResumeTS, true, nil
}

func (s *FileStateStore) Save(ctx context.Context, ts uint64) error {
	if s == nil || s.Path == "" {
		return nil
	}
	data, err := json.MarshalIndent(fileState{
		ResumeTS:      ts,
		WindowSeconds: s.WindowSeconds,
		UpdatedAt:     time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("prepare state dir: %w", err)
		}
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	return nil
}

// DBStateStore keeps the resume point in the replay_state table, shared by
// every host that points at the same database. Name scopes the row; the
// stats command derives it from the window size, which covers the same
// mismatch the file store guards against.
type DBStateStore struct {
	Store *postgres.Store
	Name  string
}

func (s *DBStateStore) Load(ctx context.Context) (uint64, bool, error) {
	if s == nil || s.Store == nil {
		return 0, false, nil
	}
	return s.Store.LoadState(ctx, s.Name)
}

func (s *DBStateStore) Save(ctx context.Context, ts uint64) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SaveState(ctx, s.Name, ts)
}
