package book

import (
	"errors"
	"testing"
)

func TestOracleInactive(t *testing.T) {
	o := NewOracle()
	p := Parameters{}

	_, _, changed, err := o.Update(p, realIDShift, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed {
		t.Fatalf("inactive oracle must not stage writes")
	}
	if _, err := o.GetSampleAt(p, 1000); !errors.Is(err, ErrEmptyOracle) {
		t.Fatalf("expected empty oracle, got %v", err)
	}
}

func TestOracleIncreaseLength(t *testing.T) {
	o := NewOracle()
	p := Parameters{}

	p, err := o.IncreaseLength(p, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.OracleID != 1 {
		t.Fatalf("growing an inactive oracle must activate slot one, got %d", p.OracleID)
	}
	if o.Length() != 2 {
		t.Fatalf("length = %d, want 2", o.Length())
	}
	active, ok := o.SampleAt(1)
	if !ok || active.OracleLength != 2 {
		t.Fatalf("active sample length not restamped: %+v", active)
	}

	if _, err := o.IncreaseLength(p, 2); !errors.Is(err, ErrNewLengthTooSmall) {
		t.Fatalf("expected new length too small, got %v", err)
	}
	if _, err := o.IncreaseLength(p, 1); !errors.Is(err, ErrNewLengthTooSmall) {
		t.Fatalf("expected new length too small, got %v", err)
	}
}

func TestOracleUpdateAccumulatesInPlace(t *testing.T) {
	o, p := seededOracle(t, 2)

	p2, w, changed, err := o.Update(p, realIDShift+2, 1060)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Fatalf("expected a staged write")
	}
	if p2.OracleID != 1 || w.Slot != 1 {
		t.Fatalf("sample must stay in its slot within the lifetime, slot %d", w.Slot)
	}
	// 60 seconds at the live values.
	if w.Sample.CumulativeID != uint64(realIDShift+2)*60 {
		t.Fatalf("cumulative id = %d", w.Sample.CumulativeID)
	}
	if w.Sample.CumulativeVolatility != 5000*60 {
		t.Fatalf("cumulative volatility = %d", w.Sample.CumulativeVolatility)
	}
	if w.Sample.CumulativeBinCrossed != 4*60 {
		t.Fatalf("cumulative bins crossed = %d", w.Sample.CumulativeBinCrossed)
	}
	if w.Sample.Lifetime != 60 || w.Sample.CreatedAt != 1000 {
		t.Fatalf("lifetime bookkeeping mismatch: %+v", w.Sample)
	}
}

func TestOracleUpdateRollsPastLifetime(t *testing.T) {
	o, p := seededOracle(t, 2)

	p, w, _, err := o.Update(p, realIDShift, 1100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o.Apply(w)

	p2, w2, changed, err := o.Update(p, realIDShift, 1121)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Fatalf("expected a staged write")
	}
	if p2.OracleID != 2 || w2.Slot != 2 {
		t.Fatalf("sample must roll to the next slot past its lifetime, slot %d", w2.Slot)
	}
	if w2.Sample.CreatedAt != 1121 || w2.Sample.Lifetime != 0 {
		t.Fatalf("rolled sample bookkeeping mismatch: %+v", w2.Sample)
	}
	if w2.Sample.CumulativeID != uint64(realIDShift)*121 {
		t.Fatalf("cumulatives must carry across the roll, got %d", w2.Sample.CumulativeID)
	}
	o.Apply(w2)

	// The ring wraps from the last slot back to the first.
	p3, w3, _, err := o.Update(p2, realIDShift, 1260)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p3.OracleID != 1 || w3.Slot != 1 {
		t.Fatalf("expected wrap to slot one, got %d", w3.Slot)
	}
}

func TestOracleUpdateTimeHandling(t *testing.T) {
	o, p := seededOracle(t, 2)

	p, w, _, err := o.Update(p, realIDShift, 1050)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o.Apply(w)

	if _, _, changed, err := o.Update(p, realIDShift, 1050); err != nil || changed {
		t.Fatalf("same-second update must be a no-op, changed=%v err=%v", changed, err)
	}
	if _, _, _, err := o.Update(p, realIDShift, 1049); !errors.Is(err, ErrNonMonotonicTime) {
		t.Fatalf("expected non-monotonic time, got %v", err)
	}
}

func TestOracleGetSampleAt(t *testing.T) {
	o := NewOracleFromSamples([]Sample{
		{OracleLength: 2, CumulativeID: 1000, Lifetime: 100, CreatedAt: 1000},
		{OracleLength: 2, CumulativeID: 2000, Lifetime: 79, CreatedAt: 1121},
	})
	p := Parameters{OracleID: 2}

	newest, err := o.GetSampleAt(p, 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newest.CumulativeID != 2000 || newest.At != 1200 {
		t.Fatalf("future lookup must return the newest sample: %+v", newest)
	}

	mid, err := o.GetSampleAt(p, 1150)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mid.CumulativeID != 1500 || mid.At != 1150 {
		t.Fatalf("interpolated sample mismatch: %+v", mid)
	}

	exact, err := o.GetSampleAt(p, 1100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exact.CumulativeID != 1000 {
		t.Fatalf("exact hit mismatch: %+v", exact)
	}

	if _, err := o.GetSampleAt(p, 999); !errors.Is(err, ErrLookupTimestampTooOld) {
		t.Fatalf("expected too old, got %v", err)
	}
}

func TestOracleGetSampleAtZeroHole(t *testing.T) {
	o := NewOracleFromSamples([]Sample{
		{OracleLength: 3, CumulativeID: 1000, Lifetime: 100, CreatedAt: 1000},
		{OracleLength: 3, CumulativeID: 2000, Lifetime: 0, CreatedAt: 1200},
		{},
	})
	p := Parameters{OracleID: 2}

	// 1050 falls inside the oldest sample's own lifetime; the slot before it
	// is still zeroed, so there is nothing to interpolate against.
	if _, err := o.GetSampleAt(p, 1050); !errors.Is(err, ErrLookupTimestampTooOld) {
		t.Fatalf("expected too old, got %v", err)
	}
}

// seededOracle returns an oracle with one active sample created at t=1000
// and parameters carrying a 5000 volatility accumulator with the id
// reference two bins below the anchor.
func seededOracle(t *testing.T, length uint16) (*Oracle, Parameters) {
	t.Helper()
	o := NewOracle()
	p := Parameters{
		VolatilityAccumulator: 5000,
		IDReference:           realIDShift - 2,
	}
	p, err := o.IncreaseLength(p, length)
	if err != nil {
		t.Fatalf("oracle setup: %v", err)
	}
	o.Apply(SampleWrite{Slot: 1, Sample: Sample{OracleLength: length, CreatedAt: 1000}})
	return o, p
}
