package book

import (
	"math/big"

	"github.com/holiman/uint256"
)

// BasePrice returns 1 + binStep/10_000 in 128.128 form, the price ratio
// between two adjacent bins.
func BasePrice(binStep uint16) *uint256.Int {
	b := new(uint256.Int).Lsh(uint256.NewInt(uint64(binStep)), scaleOffset)
	b.Div(b, uBasisPointMax)
	return b.Add(b, uScale)
}

// PriceFromID returns the 128.128 price of a bin, base^(id - 2^23). The
// ladder is strictly increasing in id for any non-zero bin step.
func PriceFromID(id uint32, binStep uint16) (*uint256.Int, error) {
	if id > maxID {
		return nil, ErrOutOfID
	}
	return pow(BasePrice(binStep), int64(id)-realIDShift)
}

// IDFromPrice returns the id of the bin whose price range contains the given
// 128.128 price, the largest id whose price does not exceed it. Together with
// PriceFromID this round-trips exactly: IDFromPrice(PriceFromID(id)) == id.
func IDFromPrice(price *uint256.Int, binStep uint16) (uint32, error) {
	if binStep == 0 {
		return 0, ErrInvalidParameter
	}
	priceLog, err := log2(price)
	if err != nil {
		return 0, err
	}
	baseLog, err := log2(BasePrice(binStep))
	if err != nil {
		return 0, err
	}

	realID := new(big.Int).Quo(priceLog, baseLog)
	if !realID.IsInt64() {
		return 0, ErrOutOfID
	}
	id := realID.Int64() + realIDShift
	if id < 0 || id > maxID {
		return 0, ErrOutOfID
	}

	// The truncated logarithm quotient can land one bin off. Settle on the
	// floor of the ladder: walk down while the candidate prices above the
	// target, then up while the next bin still prices at or below it.
	for id > 0 {
		p, err := PriceFromID(uint32(id), binStep)
		if err != nil {
			return 0, err
		}
		if !p.Gt(price) {
			break
		}
		id--
	}
	for id < maxID {
		p, err := PriceFromID(uint32(id+1), binStep)
		if err != nil {
			break
		}
		if p.Gt(price) {
			break
		}
		id++
	}

	p, err := PriceFromID(uint32(id), binStep)
	if err != nil {
		return 0, err
	}
	if p.Gt(price) {
		return 0, ErrOutOfID
	}
	return uint32(id), nil
}

// ConvertDecimalPriceTo128x128 rescales a 1e18-denominated price to 128.128.
func ConvertDecimalPriceTo128x128(price *uint256.Int) (*uint256.Int, error) {
	return shiftDivRoundDown(price, scaleOffset, uPrecision)
}

// Convert128x128PriceToDecimal rescales a 128.128 price to 1e18 denomination.
func Convert128x128PriceToDecimal(price *uint256.Int) (*uint256.Int, error) {
	return mulShiftRoundDown(price, uPrecision, scaleOffset)
}
