package stats

import (
	"math/big"
	"strings"
	"time"
)

const ratioScale = 18

// formatTokenAmount shifts a raw integer amount right by the token's
// decimals, always printing the full fractional width.
func formatTokenAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	digits := value.String()
	if decimals == 0 {
		return digits
	}
	neg := strings.HasPrefix(digits, "-")
	if neg {
		digits = digits[1:]
	}
	if pad := int(decimals) + 1 - len(digits); pad > 0 {
		digits = strings.Repeat("0", pad) + digits
	}
	cut := len(digits) - int(decimals)
	out := digits[:cut] + "." + digits[cut:]
	if neg {
		return "-" + out
	}
	return out
}

// feeRate renders fee divided by tvl as a fixed point decimal, or nil when
// either side is missing or zero.
func feeRate(fee, tvl *big.Int) *string {
	if fee == nil || tvl == nil || fee.Sign() == 0 || tvl.Sign() == 0 {
		return nil
	}
	out := new(big.Rat).SetFrac(fee, tvl).FloatString(ratioScale)
	return &out
}

func computeFeeRates(feeX, feeY, tvlX, tvlY *big.Int) (*string, *string) {
	return feeRate(feeX, tvlX), feeRate(feeY, tvlY)
}

// computeAPR annualizes the window's fee yield. Swaps pay fees in whichever
// token enters, so both side rates contribute when both are present.
func computeAPR(feeRateX *string, feeRateY *string, windowSeconds uint64) *string {
	if windowSeconds == 0 {
		return nil
	}
	sum := new(big.Rat)
	seen := false
	for _, rate := range []*string{feeRateX, feeRateY} {
		if rate == nil {
			continue
		}
		rat, ok := new(big.Rat).SetString(*rate)
		if !ok {
			return nil
		}
		sum.Add(sum, rat)
		seen = true
	}
	if !seen {
		return nil
	}
	yearSeconds := big.NewRat(int64(365*24*time.Hour/time.Second), 1)
	window := big.NewRat(int64(windowSeconds), 1)
	apr := new(big.Rat).Mul(sum, yearSeconds)
	apr.Quo(apr, window)
	val := apr.FloatString(ratioScale)
	return &val
}
