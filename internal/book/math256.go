package book

import "github.com/holiman/uint256"

// mulProds returns the full 512-bit product of x and y split into a low and a
// high 256-bit half.
func mulProds(x, y *uint256.Int) (prod0, prod1 *uint256.Int) {
	mm := new(uint256.Int).MulMod(x, y, uMaxUint256)
	prod0 = new(uint256.Int).Mul(x, y)
	prod1 = new(uint256.Int).Sub(mm, prod0)
	if mm.Lt(prod0) {
		prod1.Sub(prod1, uOne)
	}
	return prod0, prod1
}

// mulDivRoundDown returns floor(x*y/denominator), carrying the intermediate
// product at 512 bits. Fails when the quotient does not fit 256 bits or the
// denominator is zero.
func mulDivRoundDown(x, y, denominator *uint256.Int) (*uint256.Int, error) {
	if denominator.IsZero() {
		return nil, ErrMulDivOverflow
	}
	prod0, prod1 := mulProds(x, y)
	if prod1.IsZero() {
		return prod0.Div(prod0, denominator), nil
	}
	if !prod1.Lt(denominator) {
		return nil, ErrMulDivOverflow
	}
	return mulDivCarry(x, y, denominator, prod0, prod1), nil
}

func mulDivRoundUp(x, y, denominator *uint256.Int) (*uint256.Int, error) {
	result, err := mulDivRoundDown(x, y, denominator)
	if err != nil {
		return nil, err
	}
	if !new(uint256.Int).MulMod(x, y, denominator).IsZero() {
		result.AddUint64(result, 1)
	}
	return result, nil
}

// mulShiftRoundDown returns floor(x*y / 2^offset).
func mulShiftRoundDown(x, y *uint256.Int, offset uint) (*uint256.Int, error) {
	prod0, prod1 := mulProds(x, y)
	result := prod0.Rsh(prod0, offset)
	if !prod1.IsZero() {
		if prod1.BitLen() > int(offset) {
			return nil, ErrMulDivOverflow
		}
		hi := prod1.Lsh(prod1, 256-offset)
		result.Or(result, hi)
	}
	return result, nil
}

func mulShiftRoundUp(x, y *uint256.Int, offset uint) (*uint256.Int, error) {
	result, err := mulShiftRoundDown(x, y, offset)
	if err != nil {
		return nil, err
	}
	low := new(uint256.Int).Mul(x, y)
	mask := new(uint256.Int).Lsh(uOne, offset)
	mask.Sub(mask, uOne)
	if !low.And(low, mask).IsZero() {
		result.AddUint64(result, 1)
	}
	return result, nil
}

// shiftDivRoundDown returns floor(x * 2^offset / denominator).
func shiftDivRoundDown(x *uint256.Int, offset uint, denominator *uint256.Int) (*uint256.Int, error) {
	if denominator.IsZero() {
		return nil, ErrMulDivOverflow
	}
	prod0 := new(uint256.Int).Lsh(x, offset)
	prod1 := new(uint256.Int).Rsh(x, 256-offset)
	if prod1.IsZero() {
		return prod0.Div(prod0, denominator), nil
	}
	if !prod1.Lt(denominator) {
		return nil, ErrMulDivOverflow
	}
	y := new(uint256.Int).Lsh(uOne, offset)
	return mulDivCarry(x, y, denominator, prod0, prod1), nil
}

func shiftDivRoundUp(x *uint256.Int, offset uint, denominator *uint256.Int) (*uint256.Int, error) {
	result, err := shiftDivRoundDown(x, offset, denominator)
	if err != nil {
		return nil, err
	}
	y := new(uint256.Int).Lsh(uOne, offset)
	if !y.MulMod(x, y, denominator).IsZero() {
		result.AddUint64(result, 1)
	}
	return result, nil
}

// mulDivCarry divides the 512-bit product [prod1 prod0] by denominator.
// Requires 0 < denominator and prod1 < denominator; the quotient then fits
// 256 bits. This is the usual trick of factoring powers of two out of the
// denominator and finishing with its inverse modulo 2^256.
func mulDivCarry(x, y, denominator, prod0, prod1 *uint256.Int) *uint256.Int {
	prod0 = new(uint256.Int).Set(prod0)
	prod1 = new(uint256.Int).Set(prod1)

	// Subtract the remainder from the 512-bit product so it divides exactly.
	remainder := new(uint256.Int).MulMod(x, y, denominator)
	if remainder.Gt(prod0) {
		prod1.Sub(prod1, uOne)
	}
	prod0.Sub(prod0, remainder)

	// Largest power of two dividing the denominator.
	twos := new(uint256.Int).Neg(denominator)
	twos.And(twos, denominator)
	odd := new(uint256.Int).Div(denominator, twos)
	prod0.Div(prod0, twos)

	// Fold the bits of prod1 that the shift above vacated into prod0.
	carryShift := new(uint256.Int).Neg(twos)
	carryShift.Div(carryShift, twos)
	carryShift.AddUint64(carryShift, 1)
	prod1.Mul(prod1, carryShift)
	prod0.Or(prod0, prod1)

	// Invert the odd denominator modulo 2^256: seed correct to 4 bits, then
	// six Newton steps double the precision each time.
	inverse := new(uint256.Int).Mul(odd, uThree)
	inverse.Xor(inverse, uTwo)
	tmp := new(uint256.Int)
	for i := 0; i < 6; i++ {
		tmp.Mul(odd, inverse)
		tmp.Sub(uTwo, tmp)
		inverse.Mul(inverse, tmp)
	}
	return prod0.Mul(prod0, inverse)
}

// sqrtRoundDown returns the integer square root of x.
func sqrtRoundDown(x *uint256.Int) *uint256.Int {
	if x.IsZero() {
		return new(uint256.Int)
	}
	// Seed with 2^ceil(bitlen/2), an over-estimate, so the Newton sequence
	// decreases monotonically onto the floor root.
	z := new(uint256.Int).Lsh(uOne, uint(x.BitLen()+1)/2)
	next := new(uint256.Int)
	quo := new(uint256.Int)
	for {
		quo.Div(x, z)
		next.Add(z, quo)
		next.Rsh(next, 1)
		if !next.Lt(z) {
			return z
		}
		z.Set(next)
	}
}
