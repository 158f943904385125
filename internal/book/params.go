package book

// Bit layout of the packed parameter word, offsets counted from bit zero.
const (
	offsetActiveID           = 0   // 24 bits
	offsetVolatilityAcc      = 24  // 20 bits
	offsetVolatilityRef      = 44  // 20 bits
	offsetIDRef              = 64  // 24 bits
	offsetTimeOfLastUpdate   = 88  // 40 bits
	offsetOracleID           = 128 // 16 bits
	offsetReductionFactor    = 144 // 16 bits
	offsetVariableFeeControl = 160 // 24 bits
	offsetFilterPeriod       = 184 // 12 bits
	offsetDecayPeriod        = 196 // 12 bits
	offsetProtocolShare      = 208 // 16 bits
	offsetMaxVolatilityAcc   = 224 // 24 bits
	offsetBaseFactor         = 248 // 16 bits

	parametersBits      = 264
	ParametersSize      = 33
	SampleSize          = 32
	AmountsSize         = 32
	LiquidityConfigSize = 19
)

// StaticFeeParameters is the operator-set portion of the fee machinery. It
// only changes through SetStaticFeeParameters.
type StaticFeeParameters struct {
	BaseFactor               uint16
	FilterPeriod             uint16
	DecayPeriod              uint16
	ReductionFactor          uint16
	VariableFeeControl       uint32
	ProtocolShare            uint16
	MaxVolatilityAccumulator uint32
}

// Parameters is the full per-pool parameter word: the static fee settings
// plus the volatility state the swap path keeps updating. It is a value;
// transitions return the updated copy and the caller commits it, which keeps
// failed operations from leaving partial writes behind.
type Parameters struct {
	BaseFactor               uint16
	FilterPeriod             uint16
	DecayPeriod              uint16
	ReductionFactor          uint16
	VariableFeeControl       uint32
	ProtocolShare            uint16
	MaxVolatilityAccumulator uint32

	VolatilityAccumulator uint32
	VolatilityReference   uint32
	IDReference           uint32
	ActiveID              uint32
	TimeOfLastUpdate      uint64
	OracleID              uint16
}

// Static returns the operator-set portion of the parameters.
func (p Parameters) Static() StaticFeeParameters {
	return StaticFeeParameters{
		BaseFactor:               p.BaseFactor,
		FilterPeriod:             p.FilterPeriod,
		DecayPeriod:              p.DecayPeriod,
		ReductionFactor:          p.ReductionFactor,
		VariableFeeControl:       p.VariableFeeControl,
		ProtocolShare:            p.ProtocolShare,
		MaxVolatilityAccumulator: p.MaxVolatilityAccumulator,
	}
}

// SetStaticFeeParameters validates and installs new static settings, leaving
// the volatility state untouched.
func (p Parameters) SetStaticFeeParameters(s StaticFeeParameters) (Parameters, error) {
	switch {
	case s.FilterPeriod > s.DecayPeriod:
		return p, ErrInvalidParameter
	case s.DecayPeriod > maskUint12:
		return p, ErrInvalidParameter
	case s.ReductionFactor > basisPointMax:
		return p, ErrInvalidParameter
	case s.VariableFeeControl > maskUint24:
		return p, ErrInvalidParameter
	case s.ProtocolShare > maxProtocolShare:
		return p, ErrInvalidParameter
	case s.MaxVolatilityAccumulator > maskUint20:
		return p, ErrInvalidParameter
	}
	p.BaseFactor = s.BaseFactor
	p.FilterPeriod = s.FilterPeriod
	p.DecayPeriod = s.DecayPeriod
	p.ReductionFactor = s.ReductionFactor
	p.VariableFeeControl = s.VariableFeeControl
	p.ProtocolShare = s.ProtocolShare
	p.MaxVolatilityAccumulator = s.MaxVolatilityAccumulator
	return p, nil
}

// DeltaID returns the distance in bins between activeID and the reference id.
func (p Parameters) DeltaID(activeID uint32) uint32 {
	if activeID > p.IDReference {
		return activeID - p.IDReference
	}
	return p.IDReference - activeID
}

// UpdateReferences rolls the reference id and volatility reference forward
// for a transaction at the given time. Within the filter period nothing
// moves; past it the reference id snaps to the active id and the volatility
// reference decays by the reduction factor, or all the way to zero once the
// decay period has fully elapsed. It does not stamp TimeOfLastUpdate.
func (p Parameters) UpdateReferences(now uint64) (Parameters, error) {
	if now > maskUint40 {
		return p, ErrTimestampOverflow
	}
	if now < p.TimeOfLastUpdate {
		return p, ErrNonMonotonicTime
	}
	dt := now - p.TimeOfLastUpdate
	if dt >= uint64(p.FilterPeriod) {
		p.IDReference = p.ActiveID
		if dt < uint64(p.DecayPeriod) {
			p.VolatilityReference = uint32(
				uint64(p.VolatilityAccumulator) * uint64(p.ReductionFactor) / basisPointMax)
		} else {
			p.VolatilityReference = 0
		}
	}
	return p, nil
}

// UpdateVolatilityAccumulator charges the accumulator for the bins between
// activeID and the reference id, clamped to the configured maximum.
func (p Parameters) UpdateVolatilityAccumulator(activeID uint32) Parameters {
	acc := uint64(p.VolatilityReference) + uint64(p.DeltaID(activeID))*basisPointMax
	if acc > uint64(p.MaxVolatilityAccumulator) {
		acc = uint64(p.MaxVolatilityAccumulator)
	}
	p.VolatilityAccumulator = uint32(acc)
	return p
}

// UpdateVolatilityParameters rolls references, charges the accumulator for
// activeID, and stamps the update time.
func (p Parameters) UpdateVolatilityParameters(activeID uint32, now uint64) (Parameters, error) {
	p, err := p.UpdateReferences(now)
	if err != nil {
		return p, err
	}
	p = p.UpdateVolatilityAccumulator(activeID)
	p.TimeOfLastUpdate = now
	return p, nil
}

// ForceDecay applies the reduction factor to the accumulator immediately and
// re-anchors the reference id, without waiting for the filter period.
func (p Parameters) ForceDecay() Parameters {
	p.VolatilityReference = uint32(
		uint64(p.VolatilityAccumulator) * uint64(p.ReductionFactor) / basisPointMax)
	p.IDReference = p.ActiveID
	return p
}

// Pack lays the parameters into their 33-byte big-endian wire word.
func (p Parameters) Pack() [ParametersSize]byte {
	w := newPackedWord(parametersBits)
	w.set(offsetActiveID, 24, uint64(p.ActiveID))
	w.set(offsetVolatilityAcc, 20, uint64(p.VolatilityAccumulator))
	w.set(offsetVolatilityRef, 20, uint64(p.VolatilityReference))
	w.set(offsetIDRef, 24, uint64(p.IDReference))
	w.set(offsetTimeOfLastUpdate, 40, p.TimeOfLastUpdate)
	w.set(offsetOracleID, 16, uint64(p.OracleID))
	w.set(offsetReductionFactor, 16, uint64(p.ReductionFactor))
	w.set(offsetVariableFeeControl, 24, uint64(p.VariableFeeControl))
	w.set(offsetFilterPeriod, 12, uint64(p.FilterPeriod))
	w.set(offsetDecayPeriod, 12, uint64(p.DecayPeriod))
	w.set(offsetProtocolShare, 16, uint64(p.ProtocolShare))
	w.set(offsetMaxVolatilityAcc, 24, uint64(p.MaxVolatilityAccumulator))
	w.set(offsetBaseFactor, 16, uint64(p.BaseFactor))

	var out [ParametersSize]byte
	copy(out[:], w.bytesBE(ParametersSize))
	return out
}

// UnpackParameters parses the 33-byte wire word and re-validates the static
// portion, so malformed snapshots fail here rather than later in fee math.
func UnpackParameters(b [ParametersSize]byte) (Parameters, error) {
	w, err := packedWordFromBytesBE(b[:], parametersBits)
	if err != nil {
		return Parameters{}, ErrInvalidParameter
	}
	p := Parameters{
		ActiveID:                 uint32(w.get(offsetActiveID, 24)),
		VolatilityAccumulator:    uint32(w.get(offsetVolatilityAcc, 20)),
		VolatilityReference:      uint32(w.get(offsetVolatilityRef, 20)),
		IDReference:              uint32(w.get(offsetIDRef, 24)),
		TimeOfLastUpdate:         w.get(offsetTimeOfLastUpdate, 40),
		OracleID:                 uint16(w.get(offsetOracleID, 16)),
		ReductionFactor:          uint16(w.get(offsetReductionFactor, 16)),
		VariableFeeControl:       uint32(w.get(offsetVariableFeeControl, 24)),
		FilterPeriod:             uint16(w.get(offsetFilterPeriod, 12)),
		DecayPeriod:              uint16(w.get(offsetDecayPeriod, 12)),
		ProtocolShare:            uint16(w.get(offsetProtocolShare, 16)),
		MaxVolatilityAccumulator: uint32(w.get(offsetMaxVolatilityAcc, 24)),
		BaseFactor:               uint16(w.get(offsetBaseFactor, 16)),
	}
	if _, err := Parameters{}.SetStaticFeeParameters(p.Static()); err != nil {
		return Parameters{}, err
	}
	return p, nil
}
