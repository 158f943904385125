package book

import "github.com/holiman/uint256"

// Fee rates are 1e18-scaled: a rate of 1e16 is one percent.

// BaseFee returns the flat component, baseFactor * binStep * 1e10.
func (p Parameters) BaseFee(binStep uint16) *uint256.Int {
	fee := uint256.NewInt(uint64(p.BaseFactor) * uint64(binStep))
	return fee.Mul(fee, uint256.NewInt(10_000_000_000))
}

// VariableFee returns the volatility component,
// ceil((volatilityAccumulator * binStep)^2 * variableFeeControl / 100).
func (p Parameters) VariableFee(binStep uint16) *uint256.Int {
	if p.VariableFeeControl == 0 {
		return new(uint256.Int)
	}
	prod := uint256.NewInt(uint64(p.VolatilityAccumulator) * uint64(binStep))
	fee := new(uint256.Int).Mul(prod, prod)
	fee.Mul(fee, uint256.NewInt(uint64(p.VariableFeeControl)))
	fee.AddUint64(fee, 99)
	return fee.Div(fee, uHundred)
}

// TotalFee returns base plus variable, failing with ErrFeeTooLarge past the
// 10% cap.
func (p Parameters) TotalFee(binStep uint16) (*uint256.Int, error) {
	fee := p.BaseFee(binStep)
	fee.Add(fee, p.VariableFee(binStep))
	if fee.Gt(uMaxTotalFee) {
		return nil, ErrFeeTooLarge
	}
	return fee, nil
}

// FeeAmountFrom returns the fee taken out of an amount that already includes
// it: ceil(amountWithFees * rate / 1e18).
func FeeAmountFrom(amountWithFees, rate *uint256.Int) (*uint256.Int, error) {
	return mulDivRoundUp(amountWithFees, rate, uPrecision)
}

// FeeAmount returns the fee to add on top of a net amount so that the fee is
// the configured share of the gross: ceil(amount * rate / (1e18 - rate)).
func FeeAmount(amount, rate *uint256.Int) (*uint256.Int, error) {
	denominator := new(uint256.Int).Sub(uPrecision, rate)
	return mulDivRoundUp(amount, rate, denominator)
}

// CompositionFee charges a deposit that implicitly swapped within the active
// bin: ceil(amountWithFees * rate * (rate + 1e18) / 1e36).
func CompositionFee(amountWithFees, rate *uint256.Int) *uint256.Int {
	fee := new(uint256.Int).Mul(amountWithFees, rate)
	outer := new(uint256.Int).Add(rate, uPrecision)
	fee.Mul(fee, outer)
	rem := new(uint256.Int).Mod(fee, uSquaredPrecision)
	fee.Div(fee, uSquaredPrecision)
	if !rem.IsZero() {
		fee.AddUint64(fee, 1)
	}
	return fee
}

// ProtocolFeeAmount returns the protocol's cut of a collected fee, rounded
// down in the liquidity providers' favor.
func ProtocolFeeAmount(fee *uint256.Int, protocolShare uint16) (*uint256.Int, error) {
	if protocolShare > maxProtocolShare {
		return nil, ErrProtocolShareTooLarge
	}
	cut := new(uint256.Int).Mul(fee, uint256.NewInt(uint64(protocolShare)))
	return cut.Div(cut, uBasisPointMax), nil
}
