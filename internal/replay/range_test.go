package replay

import (
	"reflect"
	"testing"
)

func TestSplitRange(t *testing.T) {
	got, err := SplitRange(100, 105, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []BlockRange{{From: 100, To: 101}, {From: 102, To: 103}, {From: 104, To: 105}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges = %v, want %v", got, want)
	}

	got, err = SplitRange(100, 106, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want = []BlockRange{{From: 100, To: 102}, {From: 103, To: 105}, {From: 106, To: 106}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("uneven tail ranges = %v, want %v", got, want)
	}
}

func TestSplitRangeSingle(t *testing.T) {
	got, err := SplitRange(42, 42, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []BlockRange{{From: 42, To: 42}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges = %v, want %v", got, want)
	}
}

func TestSplitRangeInvalid(t *testing.T) {
	if _, err := SplitRange(10, 20, 0); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
	if _, err := SplitRange(20, 10, 5); err == nil {
		t.Fatalf("expected error for inverted range")
	}
}
