package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"binbook/internal/model"
)

// JsonlJournal appends operations to a single JSONL file.
type JsonlJournal struct {
	path string
	mu   sync.Mutex
}

func NewJsonlJournal(path string) *JsonlJournal {
	return &JsonlJournal{path: path}
}

// AppendOperations appends a batch of operations as JSON lines.
func (j *JsonlJournal) AppendOperations(ops []model.Operation) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return appendJSONL(j.path, ops)
}

// JsonlErrors appends decode errors to a single JSONL file.
type JsonlErrors struct {
	path string
	mu   sync.Mutex
}

func NewJsonlErrors(path string) *JsonlErrors {
	return &JsonlErrors{path: path}
}

func (e *JsonlErrors) PutDecodeErrors(errs []model.DecodeError) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return appendJSONL(e.path, errs)
}

// JsonlRecords writes applied records under a directory, one JSONL file per
// record class.
type JsonlRecords struct {
	dir string
	mu  sync.Mutex
}

func NewJsonlRecords(dir string) *JsonlRecords {
	return &JsonlRecords{dir: dir}
}

// PutSwapRecords appends applied swap outcomes.
func (s *JsonlRecords) PutSwapRecords(recs []model.SwapRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendJSONL(filepath.Join(s.dir, "swaps.jsonl"), recs)
}

// PutLiquidityRecords appends applied deposit and withdrawal outcomes.
func (s *JsonlRecords) PutLiquidityRecords(recs []model.LiquidityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendJSONL(filepath.Join(s.dir, "liquidity.jsonl"), recs)
}

// PutSnapshots appends pool snapshots.
func (s *JsonlRecords) PutSnapshots(snaps []model.PoolSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendJSONL(filepath.Join(s.dir, "snapshots.jsonl"), snaps)
}

// PutDecodeErrors appends logs the decoder rejected.
func (s *JsonlRecords) PutDecodeErrors(errs []model.DecodeError) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendJSONL(filepath.Join(s.dir, "decode_errors.jsonl"), errs)
}

func appendJSONL[T any](path string, items []T) error {
	if len(items) == 0 {
		return nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("prepare output dir: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, item := range items {
		line, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		line = append(line, '\n')
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ScanOperations streams a journal file in order, stopping at the first fn
// error. Blank lines are skipped; a line that fails to decode reports its
// line number.
func ScanOperations(path string, fn func(model.Operation) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var op model.Operation
		if err := json.Unmarshal(raw, &op); err != nil {
			return fmt.Errorf("journal line %d: %w", line, err)
		}
		if err := fn(op); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	return nil
}
