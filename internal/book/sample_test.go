package book

import (
	"bytes"
	"testing"
)

func TestSamplePackLayout(t *testing.T) {
	s := Sample{
		OracleLength:         0x0102,
		CumulativeID:         0x1122334455667788,
		CumulativeVolatility: 0xAABBCCDDEEFF0011,
		CumulativeBinCrossed: 0x0123456789ABCDEF,
		Lifetime:             0x7F,
		CreatedAt:            0x1122334455,
	}

	packed := s.Pack()
	want := [SampleSize]byte{
		0x11, 0x22, 0x33, 0x44, 0x55, 0x7F,
		0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF,
		0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x00, 0x11,
		0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88,
		0x01, 0x02,
	}
	if !bytes.Equal(packed[:], want[:]) {
		t.Fatalf("packed layout mismatch:\n got %x\nwant %x", packed, want)
	}

	back := UnpackSample(packed)
	if back != s {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", back, s)
	}
}

func TestSampleLastUpdatedAt(t *testing.T) {
	s := Sample{CreatedAt: 1000, Lifetime: 100}
	if s.LastUpdatedAt() != 1100 {
		t.Fatalf("last updated = %d, want 1100", s.LastUpdatedAt())
	}
}
