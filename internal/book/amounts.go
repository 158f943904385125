package book

import "github.com/holiman/uint256"

// Amounts carries an X and a Y quantity through swaps, deposits, and fee
// accounting. Each side is bounded to 128 bits so the pair packs into one
// 256-bit word: X in the low half, Y in the high half. The zero value is
// zero on both sides, and all arithmetic is by value.
type Amounts struct {
	X uint256.Int
	Y uint256.Int
}

// NewAmounts bounds both sides to 128 bits.
func NewAmounts(x, y *uint256.Int) (Amounts, error) {
	if x.Gt(uMaxUint128) || y.Gt(uMaxUint128) {
		return Amounts{}, ErrAmountOverflow
	}
	var a Amounts
	a.X.Set(x)
	a.Y.Set(y)
	return a, nil
}

func amountsX(x *uint256.Int) Amounts {
	var a Amounts
	a.X.Set(x)
	return a
}

func amountsY(y *uint256.Int) Amounts {
	var a Amounts
	a.Y.Set(y)
	return a
}

// oneSided places v on the X side when forX is true, on the Y side otherwise.
func oneSided(v *uint256.Int, forX bool) Amounts {
	if forX {
		return amountsX(v)
	}
	return amountsY(v)
}

func (a Amounts) IsZero() bool {
	return a.X.IsZero() && a.Y.IsZero()
}

// Add fails with ErrAmountOverflow when either side leaves 128 bits.
func (a Amounts) Add(b Amounts) (Amounts, error) {
	var out Amounts
	out.X.Add(&a.X, &b.X)
	out.Y.Add(&a.Y, &b.Y)
	if out.X.Gt(uMaxUint128) || out.Y.Gt(uMaxUint128) {
		return Amounts{}, ErrAmountOverflow
	}
	return out, nil
}

// Sub fails with ErrAmountUnderflow when either side of b exceeds a.
func (a Amounts) Sub(b Amounts) (Amounts, error) {
	if a.X.Lt(&b.X) || a.Y.Lt(&b.Y) {
		return Amounts{}, ErrAmountUnderflow
	}
	var out Amounts
	out.X.Sub(&a.X, &b.X)
	out.Y.Sub(&a.Y, &b.Y)
	return out, nil
}

// ScalarMulDivBasisPoint scales both sides by bp/10_000, rounding down.
func (a Amounts) ScalarMulDivBasisPoint(bp uint16) Amounts {
	scale := uint256.NewInt(uint64(bp))
	var out Amounts
	out.X.Mul(&a.X, scale)
	out.X.Div(&out.X, uBasisPointMax)
	out.Y.Mul(&a.Y, scale)
	out.Y.Div(&out.Y, uBasisPointMax)
	return out
}

// Pack lays both sides into one big-endian 256-bit word, X low and Y high.
func (a Amounts) Pack() [32]byte {
	w := new(uint256.Int).Lsh(&a.Y, scaleOffset)
	w.Or(w, &a.X)
	return w.Bytes32()
}

func UnpackAmounts(b [32]byte) Amounts {
	w := new(uint256.Int).SetBytes(b[:])
	var a Amounts
	a.X.And(w, uMaxUint128)
	a.Y.Rsh(w, scaleOffset)
	return a
}
