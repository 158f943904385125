package book

import "math/bits"

// Oracle is the circular sample ring of one pool. Slots are addressed
// 1-based through Parameters.OracleID; id zero means the oracle has never
// been written. Update stages its write as a SampleWrite so a pool can
// commit it together with the rest of an operation or drop it on failure.
type Oracle struct {
	samples []Sample
}

// SampleWrite is a staged oracle mutation: Sample to be stored at the
// 1-based Slot.
type SampleWrite struct {
	Slot   uint16
	Sample Sample
}

func NewOracle() *Oracle {
	return &Oracle{}
}

// NewOracleFromSamples rebuilds a ring from exported samples.
func NewOracleFromSamples(samples []Sample) *Oracle {
	o := &Oracle{samples: make([]Sample, len(samples))}
	copy(o.samples, samples)
	return o
}

func (o *Oracle) Length() uint16 {
	return uint16(len(o.samples))
}

// SampleAt returns the sample stored at a 1-based slot.
func (o *Oracle) SampleAt(slot uint16) (Sample, bool) {
	if slot == 0 || int(slot) > len(o.samples) {
		return Sample{}, false
	}
	return o.samples[slot-1], true
}

// Samples returns a copy of the ring in physical slot order.
func (o *Oracle) Samples() []Sample {
	out := make([]Sample, len(o.samples))
	copy(out, o.samples)
	return out
}

// Update extends the active sample's cumulatives to now, rolling the cursor
// to the next slot once a sample has lived past its maximum lifetime. The
// mutation is returned as a staged SampleWrite together with the parameters
// carrying the possibly advanced cursor; nothing is written until Apply.
// Updates within the same second as the previous one are no-ops.
func (o *Oracle) Update(p Parameters, activeID uint32, now uint64) (Parameters, SampleWrite, bool, error) {
	if p.OracleID == 0 || len(o.samples) == 0 {
		return p, SampleWrite{}, false, nil
	}
	current := o.samples[p.OracleID-1]
	lastUpdated := current.LastUpdatedAt()
	if now < lastUpdated {
		return p, SampleWrite{}, false, ErrNonMonotonicTime
	}
	if now == lastUpdated {
		return p, SampleWrite{}, false, nil
	}

	deltaTime := now - lastUpdated
	cumID, cumVol, cumBin := current.accumulate(deltaTime, activeID, p.VolatilityAccumulator, p.DeltaID(activeID))

	slot := p.OracleID
	createdAt := current.CreatedAt
	lifetime := now - createdAt
	if lifetime > maxSampleLifetime {
		slot = slot%o.Length() + 1
		createdAt = now
		lifetime = 0
		p.OracleID = slot
	}

	write := SampleWrite{
		Slot: slot,
		Sample: Sample{
			OracleLength:         o.Length(),
			CumulativeID:         cumID,
			CumulativeVolatility: cumVol,
			CumulativeBinCrossed: cumBin,
			Lifetime:             uint8(lifetime),
			CreatedAt:            createdAt,
		},
	}
	return p, write, true, nil
}

// Apply commits a staged write.
func (o *Oracle) Apply(w SampleWrite) {
	o.samples[w.Slot-1] = w.Sample
}

// IncreaseLength grows the ring to newLength, which must be strictly larger
// than the current length. New slots start zeroed and are filled as the
// cursor wraps into them. Growing an inactive oracle activates slot one.
func (o *Oracle) IncreaseLength(p Parameters, newLength uint16) (Parameters, error) {
	if uint16(len(o.samples)) >= newLength {
		return p, ErrNewLengthTooSmall
	}
	grown := make([]Sample, newLength)
	copy(grown, o.samples)
	o.samples = grown
	if p.OracleID == 0 {
		p.OracleID = 1
	}
	active := o.samples[p.OracleID-1]
	active.OracleLength = newLength
	o.samples[p.OracleID-1] = active
	return p, nil
}

// OracleSample is an interpolated read of the cumulatives at one timestamp.
type OracleSample struct {
	CumulativeID         uint64
	CumulativeVolatility uint64
	CumulativeBinCrossed uint64
	At                   uint64
}

// GetSampleAt returns the cumulatives at lookUp. Timestamps at or past the
// newest sample return the newest values; older ones interpolate linearly
// between the two samples bracketing the timestamp. Fails when the oracle
// has no samples or the timestamp predates the oldest one it still holds.
func (o *Oracle) GetSampleAt(p Parameters, lookUp uint64) (OracleSample, error) {
	if p.OracleID == 0 || len(o.samples) == 0 {
		return OracleSample{}, ErrEmptyOracle
	}
	newest := o.samples[p.OracleID-1]
	if newest.LastUpdatedAt() <= lookUp {
		return OracleSample{
			CumulativeID:         newest.CumulativeID,
			CumulativeVolatility: newest.CumulativeVolatility,
			CumulativeBinCrossed: newest.CumulativeBinCrossed,
			At:                   newest.LastUpdatedAt(),
		}, nil
	}

	prev, next, err := o.binarySearch(p.OracleID, lookUp)
	if err != nil {
		return OracleSample{}, err
	}
	prevAt, nextAt := prev.LastUpdatedAt(), next.LastUpdatedAt()
	if prevAt == nextAt {
		return OracleSample{
			CumulativeID:         prev.CumulativeID,
			CumulativeVolatility: prev.CumulativeVolatility,
			CumulativeBinCrossed: prev.CumulativeBinCrossed,
			At:                   lookUp,
		}, nil
	}

	weightPrev := nextAt - lookUp
	weightNext := lookUp - prevAt
	return OracleSample{
		CumulativeID:         weightedAverage(prev.CumulativeID, next.CumulativeID, weightPrev, weightNext),
		CumulativeVolatility: weightedAverage(prev.CumulativeVolatility, next.CumulativeVolatility, weightPrev, weightNext),
		CumulativeBinCrossed: weightedAverage(prev.CumulativeBinCrossed, next.CumulativeBinCrossed, weightPrev, weightNext),
		At:                   lookUp,
	}, nil
}

// binarySearch brackets lookUp between two stored samples. Slots are probed
// in logical order, oldest first, starting one past the cursor; zeroed slots
// sort before everything real.
func (o *Oracle) binarySearch(oracleID uint16, lookUp uint64) (Sample, Sample, error) {
	length := int64(len(o.samples))
	low, high := int64(0), length-1
	start := int64(oracleID)

	var probe Sample
	var probeAt uint64
	pos := int64(-1)
	for low <= high {
		mid := (low + high) >> 1
		pos = (start + mid) % length
		probe = o.samples[pos]
		probeAt = probe.LastUpdatedAt()
		switch {
		case probeAt < lookUp:
			low = mid + 1
		case probeAt > lookUp:
			high = mid - 1
		default:
			return probe, probe, nil
		}
	}

	if lookUp < probe.CreatedAt {
		return Sample{}, Sample{}, ErrLookupTimestampTooOld
	}
	var prev, next Sample
	if probeAt < lookUp {
		prev, next = probe, o.samples[(pos+1)%length]
	} else {
		prev, next = o.samples[(pos-1+length)%length], probe
	}
	// A zeroed or out-of-order neighbor means lookUp fell into the hole the
	// ring keeps between its newest and oldest real samples.
	if prev.LastUpdatedAt() == 0 || prev.LastUpdatedAt() > lookUp || next.LastUpdatedAt() < lookUp {
		return Sample{}, Sample{}, ErrLookupTimestampTooOld
	}
	return prev, next, nil
}

// weightedAverage computes (c1*w1 + c2*w2) / (w1 + w2) with a 128-bit
// intermediate. The quotient fits 64 bits because it is a mean of two
// 64-bit values.
func weightedAverage(c1, c2, w1, w2 uint64) uint64 {
	hi1, lo1 := bits.Mul64(c1, w1)
	hi2, lo2 := bits.Mul64(c2, w2)
	lo, carry := bits.Add64(lo1, lo2, 0)
	hi := hi1 + hi2 + carry
	q, _ := bits.Div64(hi, lo, w1+w2)
	return q
}
