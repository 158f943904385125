package book

import "testing"

func TestTreeAddRemoveContains(t *testing.T) {
	tree := NewTree()
	ids := []uint32{0, 1, 255, 256, 8_388_608, 8_388_609, 16_777_215}

	for _, id := range ids {
		if tree.Contains(id) {
			t.Fatalf("id %d present before add", id)
		}
		if !tree.Add(id) {
			t.Fatalf("first add of %d reported already set", id)
		}
		if tree.Add(id) {
			t.Fatalf("second add of %d reported newly set", id)
		}
		if !tree.Contains(id) {
			t.Fatalf("id %d missing after add", id)
		}
	}

	for _, id := range ids {
		if !tree.Remove(id) {
			t.Fatalf("remove of %d reported not set", id)
		}
		if tree.Remove(id) {
			t.Fatalf("second remove of %d reported set", id)
		}
		if tree.Contains(id) {
			t.Fatalf("id %d present after remove", id)
		}
	}

	if len(tree.leaves) != 0 || len(tree.mid) != 0 || !tree.top.isZero() {
		t.Fatalf("tree not empty after removing everything")
	}
}

func TestTreeFindFirstWithinLeaf(t *testing.T) {
	tree := NewTree()
	tree.Add(1000)
	tree.Add(1005)
	tree.Add(1010)

	got, ok := tree.FindFirstRight(1010)
	if !ok || got != 1005 {
		t.Fatalf("right of 1010 = %d/%v, want 1005", got, ok)
	}
	got, ok = tree.FindFirstLeft(1000)
	if !ok || got != 1005 {
		t.Fatalf("left of 1000 = %d/%v, want 1005", got, ok)
	}

	// Neighbor queries are strict.
	got, ok = tree.FindFirstRight(1005)
	if !ok || got != 1000 {
		t.Fatalf("right of 1005 = %d/%v, want 1000", got, ok)
	}
	got, ok = tree.FindFirstLeft(1005)
	if !ok || got != 1010 {
		t.Fatalf("left of 1005 = %d/%v, want 1010", got, ok)
	}
}

func TestTreeFindFirstAcrossLevels(t *testing.T) {
	tree := NewTree()
	// Far apart so lookups must climb through the middle and top levels.
	tree.Add(5)
	tree.Add(70_000)
	tree.Add(8_388_608)
	tree.Add(16_777_000)

	got, ok := tree.FindFirstRight(8_388_608)
	if !ok || got != 70_000 {
		t.Fatalf("right of active = %d/%v, want 70000", got, ok)
	}
	got, ok = tree.FindFirstRight(70_000)
	if !ok || got != 5 {
		t.Fatalf("right of 70000 = %d/%v, want 5", got, ok)
	}
	got, ok = tree.FindFirstLeft(8_388_608)
	if !ok || got != 16_777_000 {
		t.Fatalf("left of active = %d/%v, want 16777000", got, ok)
	}
	got, ok = tree.FindFirstLeft(5)
	if !ok || got != 70_000 {
		t.Fatalf("left of 5 = %d/%v, want 70000", got, ok)
	}
}

func TestTreeFindFirstExhausted(t *testing.T) {
	tree := NewTree()
	tree.Add(500_000)

	if _, ok := tree.FindFirstRight(500_000); ok {
		t.Fatalf("no bin right of the only bin")
	}
	if _, ok := tree.FindFirstLeft(500_000); ok {
		t.Fatalf("no bin left of the only bin")
	}
	if _, ok := tree.FindFirstRight(0); ok {
		t.Fatalf("nothing right of id zero")
	}
	if _, ok := tree.FindFirstLeft(maxID); ok {
		t.Fatalf("nothing left of the maximum id")
	}
}

func TestTreeRemovePrunesLevels(t *testing.T) {
	tree := NewTree()
	tree.Add(1000)
	tree.Add(300_000)

	tree.Remove(300_000)
	if got, ok := tree.FindFirstLeft(1000); ok {
		t.Fatalf("found %d left of 1000 after removal", got)
	}
	got, ok := tree.FindFirstRight(300_000)
	if !ok || got != 1000 {
		t.Fatalf("right of removed id = %d/%v, want 1000", got, ok)
	}
}
