package book

import "github.com/holiman/uint256"

// Sample bit layout inside its 256-bit word.
const (
	offsetSampleLength   = 0   // 16 bits
	offsetCumulativeID   = 16  // 64 bits
	offsetCumulativeVol  = 80  // 64 bits
	offsetCumulativeBin  = 144 // 64 bits
	offsetSampleLifetime = 208 // 8 bits
	offsetSampleCreation = 216 // 40 bits
)

// Sample is one oracle slot: time integrals of the active id, the volatility
// accumulator, and bins crossed, plus slot bookkeeping. The cumulatives wrap
// modulo 2^64; consumers difference two samples, so wrapping cancels.
type Sample struct {
	OracleLength         uint16
	CumulativeID         uint64
	CumulativeVolatility uint64
	CumulativeBinCrossed uint64
	Lifetime             uint8
	CreatedAt            uint64
}

// LastUpdatedAt returns the timestamp the cumulatives run up to.
func (s Sample) LastUpdatedAt() uint64 {
	return s.CreatedAt + uint64(s.Lifetime)
}

// accumulate extends the cumulatives by deltaTime at the given live values.
func (s Sample) accumulate(deltaTime uint64, activeID, volatilityAcc, binCrossed uint32) (cumID, cumVol, cumBin uint64) {
	cumID = s.CumulativeID + uint64(activeID)*deltaTime
	cumVol = s.CumulativeVolatility + uint64(volatilityAcc)*deltaTime
	cumBin = s.CumulativeBinCrossed + uint64(binCrossed)*deltaTime
	return cumID, cumVol, cumBin
}

// Pack lays the sample into its 32-byte big-endian wire word.
func (s Sample) Pack() [SampleSize]byte {
	w := new(uint256.Int).SetUint64(uint64(s.OracleLength))
	field := new(uint256.Int)
	w.Or(w, field.Lsh(field.SetUint64(s.CumulativeID), offsetCumulativeID))
	w.Or(w, field.Lsh(field.SetUint64(s.CumulativeVolatility), offsetCumulativeVol))
	w.Or(w, field.Lsh(field.SetUint64(s.CumulativeBinCrossed), offsetCumulativeBin))
	w.Or(w, field.Lsh(field.SetUint64(uint64(s.Lifetime)), offsetSampleLifetime))
	w.Or(w, field.Lsh(field.SetUint64(s.CreatedAt&maskUint40), offsetSampleCreation))
	return w.Bytes32()
}

func UnpackSample(b [SampleSize]byte) Sample {
	w := new(uint256.Int).SetBytes(b[:])
	field := new(uint256.Int)
	return Sample{
		OracleLength:         uint16(field.Rsh(w, offsetSampleLength).Uint64() & 0xffff),
		CumulativeID:         field.Rsh(w, offsetCumulativeID).Uint64(),
		CumulativeVolatility: field.Rsh(w, offsetCumulativeVol).Uint64(),
		CumulativeBinCrossed: field.Rsh(w, offsetCumulativeBin).Uint64(),
		Lifetime:             uint8(field.Rsh(w, offsetSampleLifetime).Uint64() & 0xff),
		CreatedAt:            field.Rsh(w, offsetSampleCreation).Uint64() & maskUint40,
	}
}
