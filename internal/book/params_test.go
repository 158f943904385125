package book

import (
	"bytes"
	"errors"
	"testing"
)

func validStatic() StaticFeeParameters {
	return StaticFeeParameters{
		BaseFactor:               5000,
		FilterPeriod:             30,
		DecayPeriod:              600,
		ReductionFactor:          5000,
		VariableFeeControl:       40_000,
		ProtocolShare:            1000,
		MaxVolatilityAccumulator: 350_000,
	}
}

func TestSetStaticFeeParameters(t *testing.T) {
	p, err := Parameters{}.SetStaticFeeParameters(validStatic())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.BaseFactor != 5000 || p.FilterPeriod != 30 || p.DecayPeriod != 600 {
		t.Fatalf("static fields not installed: %+v", p)
	}
	if p.VolatilityAccumulator != 0 || p.ActiveID != 0 {
		t.Fatalf("dynamic fields disturbed: %+v", p)
	}
}

func TestSetStaticFeeParametersRejectsBadCombos(t *testing.T) {
	bad := []StaticFeeParameters{
		func() StaticFeeParameters { s := validStatic(); s.FilterPeriod = 601; return s }(),
		func() StaticFeeParameters { s := validStatic(); s.DecayPeriod = 4096; s.FilterPeriod = 4096; return s }(),
		func() StaticFeeParameters { s := validStatic(); s.ReductionFactor = 10_001; return s }(),
		func() StaticFeeParameters { s := validStatic(); s.VariableFeeControl = 1 << 24; return s }(),
		func() StaticFeeParameters { s := validStatic(); s.ProtocolShare = 2501; return s }(),
		func() StaticFeeParameters { s := validStatic(); s.MaxVolatilityAccumulator = 1 << 20; return s }(),
	}
	for i, s := range bad {
		if _, err := Parameters{}.SetStaticFeeParameters(s); !errors.Is(err, ErrInvalidParameter) {
			t.Fatalf("case %d: expected invalid parameter, got %v", i, err)
		}
	}
}

func TestUpdateReferencesWithinFilterPeriod(t *testing.T) {
	p := referenceParams(t)
	p.ActiveID = realIDShift + 10

	got, err := p.UpdateReferences(1029) // dt = 29 < filter period
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.IDReference != p.IDReference || got.VolatilityReference != p.VolatilityReference {
		t.Fatalf("references moved inside the filter period: %+v", got)
	}
}

func TestUpdateReferencesDecayBoundary(t *testing.T) {
	// One second short of the decay period the accumulator decays by the
	// reduction factor; at exactly the decay period it zeroes.
	p := referenceParams(t)

	decayed, err := p.UpdateReferences(1599) // dt = 599
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decayed.VolatilityReference != 20_000 {
		t.Fatalf("volatility reference = %d, want 20000", decayed.VolatilityReference)
	}
	if decayed.IDReference != p.ActiveID {
		t.Fatalf("id reference not snapped to active id")
	}

	zeroed, err := p.UpdateReferences(1600) // dt = 600
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if zeroed.VolatilityReference != 0 {
		t.Fatalf("volatility reference = %d, want 0", zeroed.VolatilityReference)
	}
}

func TestUpdateReferencesTimeErrors(t *testing.T) {
	p := referenceParams(t)
	if _, err := p.UpdateReferences(999); !errors.Is(err, ErrNonMonotonicTime) {
		t.Fatalf("expected non-monotonic time, got %v", err)
	}
	if _, err := p.UpdateReferences(1 << 40); !errors.Is(err, ErrTimestampOverflow) {
		t.Fatalf("expected timestamp overflow, got %v", err)
	}
}

func TestUpdateVolatilityAccumulator(t *testing.T) {
	p := referenceParams(t)
	p.VolatilityReference = 1000
	p.IDReference = realIDShift

	got := p.UpdateVolatilityAccumulator(realIDShift + 5)
	if got.VolatilityAccumulator != 51_000 {
		t.Fatalf("accumulator = %d, want 51000", got.VolatilityAccumulator)
	}

	// Crossing more bins than the cap allows clamps instead of growing.
	got = p.UpdateVolatilityAccumulator(realIDShift + 40)
	if got.VolatilityAccumulator != p.MaxVolatilityAccumulator {
		t.Fatalf("accumulator = %d, want clamp at %d", got.VolatilityAccumulator, p.MaxVolatilityAccumulator)
	}
}

func TestUpdateVolatilityParametersStampsTime(t *testing.T) {
	p := referenceParams(t)
	got, err := p.UpdateVolatilityParameters(realIDShift+3, 1700)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TimeOfLastUpdate != 1700 {
		t.Fatalf("time of last update = %d, want 1700", got.TimeOfLastUpdate)
	}
	if got.VolatilityAccumulator != 30_000 {
		t.Fatalf("accumulator = %d, want 30000", got.VolatilityAccumulator)
	}
}

func TestForceDecay(t *testing.T) {
	p := referenceParams(t)
	p.ActiveID = realIDShift + 7

	got := p.ForceDecay()
	if got.VolatilityReference != 20_000 {
		t.Fatalf("volatility reference = %d, want 20000", got.VolatilityReference)
	}
	if got.IDReference != realIDShift+7 {
		t.Fatalf("id reference = %d, want %d", got.IDReference, realIDShift+7)
	}
	if got.TimeOfLastUpdate != p.TimeOfLastUpdate {
		t.Fatalf("force decay must not stamp time")
	}
}

func TestParametersPackLayout(t *testing.T) {
	p := Parameters{
		ActiveID:                 0x123456,
		VolatilityAccumulator:    0xABCDE,
		VolatilityReference:      0x12345,
		IDReference:              0x654321,
		TimeOfLastUpdate:         0x1234567890,
		OracleID:                 0xBEEF,
		ReductionFactor:          5000,
		VariableFeeControl:       0xABCDE,
		FilterPeriod:             0x123,
		DecayPeriod:              0xABC,
		ProtocolShare:            2000,
		MaxVolatilityAccumulator: 1_000_000,
		BaseFactor:               5000,
	}

	packed := p.Pack()
	want := [ParametersSize]byte{
		0x13, 0x88, 0x0F, 0x42, 0x40, 0x07, 0xD0, 0xAB, 0xC1, 0x23, 0x0A,
		0xBC, 0xDE, 0x13, 0x88, 0xBE, 0xEF, 0x12, 0x34, 0x56, 0x78, 0x90,
		0x65, 0x43, 0x21, 0x12, 0x34, 0x5A, 0xBC, 0xDE, 0x12, 0x34, 0x56,
	}
	if !bytes.Equal(packed[:], want[:]) {
		t.Fatalf("packed layout mismatch:\n got %x\nwant %x", packed, want)
	}

	back, err := UnpackParameters(packed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back != p {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", back, p)
	}
}

func TestUnpackParametersRejectsBadStatic(t *testing.T) {
	p := referenceParams(t)
	packed := p.Pack()
	// Corrupt the filter period above the decay period.
	w, err := packedWordFromBytesBE(packed[:], parametersBits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w.set(offsetFilterPeriod, 12, 4000)
	copy(packed[:], w.bytesBE(ParametersSize))

	if _, err := UnpackParameters(packed); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected invalid parameter, got %v", err)
	}
}

// referenceParams returns parameters with the static settings of validStatic,
// a hot accumulator of 40000, and a last update at t=1000.
func referenceParams(t *testing.T) Parameters {
	t.Helper()
	p, err := Parameters{}.SetStaticFeeParameters(validStatic())
	if err != nil {
		t.Fatalf("static setup: %v", err)
	}
	p.ActiveID = realIDShift
	p.IDReference = realIDShift
	p.VolatilityAccumulator = 40_000
	p.TimeOfLastUpdate = 1000
	return p
}
