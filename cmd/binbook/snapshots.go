package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"binbook/internal/model"
)

func snapshotsPath(outDir string) string {
	return filepath.Join(outDir, "snapshots.jsonl")
}

// loadSnapshotsFile scans an append-mode snapshot file and keeps the newest
// line per pair. A missing file is not an error, restore just finds nothing.
func loadSnapshotsFile(path string) (map[string]model.PoolSnapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]model.PoolSnapshot{}, nil
		}
		return nil, fmt.Errorf("open snapshots file: %w", err)
	}
	defer f.Close()

	snaps := make(map[string]model.PoolSnapshot)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var snap model.PoolSnapshot
		if err := json.Unmarshal([]byte(line), &snap); err != nil {
			return nil, fmt.Errorf("parse snapshot line: %w", err)
		}
		snaps[strings.ToLower(snap.Pair)] = snap
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan snapshots file: %w", err)
	}
	return snaps, nil
}
