package stats

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "stats.json")
	store := &FileStateStore{Path: path, WindowSeconds: 600}

	if _, ok, err := store.Load(context.Background()); err != nil || ok {
		t.Fatalf("load before save = ok %v, err %v", ok, err)
	}
	if err := store.Save(context.Background(), 1_700_000_000); err != nil {
		t.Fatalf("save: %v", err)
	}
	ts, ok, err := store.Load(context.Background())
	if err != nil || !ok {
		t.Fatalf("load = ok %v, err %v", ok, err)
	}
	if ts != 1_700_000_000 {
		t.Fatalf("resume ts = %d, want 1700000000", ts)
	}
}

func TestFileStateIgnoresOtherWindowSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	if err := (&FileStateStore{Path: path, WindowSeconds: 600}).Save(context.Background(), 5000); err != nil {
		t.Fatalf("save: %v", err)
	}

	hourly := &FileStateStore{Path: path, WindowSeconds: 3600}
	if _, ok, err := hourly.Load(context.Background()); err != nil || ok {
		t.Fatalf("other window load = ok %v, err %v", ok, err)
	}

	// A store with no window size reads whatever is there.
	any := &FileStateStore{Path: path}
	ts, ok, err := any.Load(context.Background())
	if err != nil || !ok || ts != 5000 {
		t.Fatalf("untagged load = %d ok %v err %v", ts, ok, err)
	}
}

func TestFileStateEmptyPathIsNoop(t *testing.T) {
	store := &FileStateStore{}
	if err := store.Save(context.Background(), 99); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok, err := store.Load(context.Background()); err != nil || ok {
		t.Fatalf("load = ok %v, err %v", ok, err)
	}
}

func TestFileStateRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	if err := os.WriteFile(path, []byte("resume_ts:"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	store := &FileStateStore{Path: path}
	if _, _, err := store.Load(context.Background()); err == nil {
		t.Fatal("expected error for malformed state")
	}
}

func TestDBStateStoreWithoutPool(t *testing.T) {
	store := &DBStateStore{Name: "stats:600"}
	if err := store.Save(context.Background(), 42); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok, err := store.Load(context.Background()); err != nil || ok {
		t.Fatalf("load = ok %v, err %v", ok, err)
	}
}
