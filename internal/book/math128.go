package book

import (
	"math/big"

	"github.com/holiman/uint256"
)

// pow raises a 128.128 base to an integer exponent, truncating toward zero at
// every step. Bases above 1.0 are inverted first so the repeated squaring
// stays inside 256 bits; exponents at or beyond 2^20, and products that decay
// to zero, fail with ErrPowUnderflow.
func pow(x *uint256.Int, y int64) (*uint256.Int, error) {
	if y == 0 {
		return new(uint256.Int).Set(uScale), nil
	}
	absY := uint64(y)
	if y < 0 {
		absY = uint64(-y)
	}
	if absY >= maxPowExponent {
		return nil, ErrPowUnderflow
	}

	invert := y < 0
	squared := new(uint256.Int).Set(x)
	if squared.Gt(uMaxUint128) {
		squared.Div(uMaxUint256, squared)
		invert = !invert
	}

	result := new(uint256.Int).Set(uScale)
	for ; absY != 0; absY >>= 1 {
		if absY&1 != 0 {
			result.Mul(result, squared)
			result.Rsh(result, scaleOffset)
		}
		squared.Mul(squared, squared)
		squared.Rsh(squared, scaleOffset)
	}
	if result.IsZero() {
		return nil, ErrPowUnderflow
	}
	if invert {
		result.Div(uMaxUint256, result)
	}
	return result, nil
}

// log2 returns the base-2 logarithm of a 128.128 value as a signed 128.128
// big integer. The input is reduced to 129.127 form so the squaring
// refinement below never overflows, values under 1.0 go through
// log2(x) = -log2(1/x), and the integer part comes straight off the most
// significant bit.
func log2(x *uint256.Int) (*big.Int, error) {
	v := new(uint256.Int).Rsh(x, 1)
	if v.IsZero() {
		return nil, ErrLogUnderflow
	}

	sign := int64(1)
	if v.Lt(uLogScale) {
		sign = -1
		v.Div(uLogScaleSquared, v)
	}

	n := uint(new(uint256.Int).Rsh(v, 127).BitLen() - 1)
	result := new(uint256.Int).Lsh(uint256.NewInt(uint64(n)), 127)
	y := new(uint256.Int).Rsh(v, n)

	if !y.Eq(uLogScale) {
		delta := new(uint256.Int).Lsh(uOne, 126)
		for !delta.IsZero() {
			y.Mul(y, y)
			y.Rsh(y, 127)
			// y landed in [2,4): its square root contributes this bit.
			if y.BitLen() > 128 {
				result.Add(result, delta)
				y.Rsh(y, 1)
			}
			delta.Rsh(delta, 1)
		}
	}

	out := result.ToBig()
	out.Lsh(out, 1)
	if sign < 0 {
		out.Neg(out)
	}
	return out, nil
}
