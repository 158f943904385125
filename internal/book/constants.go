package book

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Prices and liquidity are unsigned 128.128 binary fixed-point numbers:
// the high 128 bits carry the integer part, the low 128 bits the fraction.
const (
	scaleOffset = 128

	// precision is the 1e18 scale shared by fee rates and distributions.
	precision = 1_000_000_000_000_000_000

	basisPointMax = 10_000

	// maxTotalFee caps the combined base and variable fee at 10% of 1e18.
	maxTotalFee = 100_000_000_000_000_000

	maxProtocolShare = 2_500

	// realIDShift maps the unsigned 24-bit bin id space onto signed
	// exponents: id 1<<23 is price 1.0.
	realIDShift = 1 << 23

	maxID = 1<<24 - 1

	// maxSampleLifetime is how long an oracle sample keeps accumulating
	// in place before the cursor advances, in seconds.
	maxSampleLifetime = 120

	maxPowExponent = 1 << 20

	maskUint12 = 1<<12 - 1
	maskUint20 = 1<<20 - 1
	maskUint24 = 1<<24 - 1
	maskUint40 = 1<<40 - 1
)

// Package-level words below are shared read-only values. They are only ever
// passed as operands, never as receivers.
var (
	uZero    = uint256.NewInt(0)
	uOne     = uint256.NewInt(1)
	uTwo     = uint256.NewInt(2)
	uThree   = uint256.NewInt(3)
	uHundred = uint256.NewInt(100)

	uBasisPointMax = uint256.NewInt(basisPointMax)
	uPrecision     = uint256.NewInt(precision)
	uMaxTotalFee   = uint256.NewInt(maxTotalFee)

	// uSquaredPrecision is 1e36, the divisor of the composition fee.
	uSquaredPrecision = new(uint256.Int).Mul(uPrecision, uPrecision)

	// uScale is 1.0 in 128.128 form.
	uScale = new(uint256.Int).Lsh(uOne, scaleOffset)

	// log2 internals work on a 129.127 representation so that squaring a
	// value below 2.0 never overflows 256 bits.
	uLogScale        = new(uint256.Int).Lsh(uOne, 127)
	uLogScaleSquared = new(uint256.Int).Lsh(uOne, 254)

	uMaxUint256 = new(uint256.Int).Not(uZero)
	uMaxUint128 = new(uint256.Int).Sub(uScale, uOne)

	// uMaxLiquidityPerBin bounds the 128.128 liquidity of a single bin so
	// that share math cannot overflow even at the price extremes.
	uMaxLiquidityPerBin = uint256.MustFromBig(mustParseBig(
		"65251743116719673010965625540244653191619923014385985379600384103134737"))
)

func mustParseBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("book: bad integer literal " + s)
	}
	return v
}
