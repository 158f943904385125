package book

import (
	"fmt"

	"github.com/holiman/uint256"
)

// GetLiquidity values a pair of amounts at a bin price in 128.128 liquidity
// units: price*x + (y << 128).
func GetLiquidity(amounts Amounts, price *uint256.Int) (*uint256.Int, error) {
	liquidity := new(uint256.Int)
	if !amounts.X.IsZero() {
		if _, overflow := liquidity.MulOverflow(price, &amounts.X); overflow {
			return nil, ErrLiquidityOverflow
		}
	}
	if !amounts.Y.IsZero() {
		shifted := new(uint256.Int).Lsh(&amounts.Y, scaleOffset)
		if _, overflow := liquidity.AddOverflow(liquidity, shifted); overflow {
			return nil, ErrLiquidityOverflow
		}
	}
	return liquidity, nil
}

// VerifyAmounts rejects deposits on the impossible side of the active bin:
// above it a bin holds only X, below it only Y.
func VerifyAmounts(amounts Amounts, activeID, binID uint32) error {
	if binID < activeID && !amounts.X.IsZero() || binID > activeID && !amounts.Y.IsZero() {
		return fmt.Errorf("bin %d: %w", binID, ErrCompositionFactorFlawed)
	}
	return nil
}

// GetSharesAndEffectiveAmountsIn converts a deposit into bin shares. An
// empty bin seeds shares with the square root of the deposit's liquidity,
// which keeps a donation of raw reserves from inflating the price of later
// shares. A live bin mints pro rata, rounding the shares down and then
// trimming the deposit to the amounts those shares actually paid for.
func GetSharesAndEffectiveAmountsIn(binReserves, amountsIn Amounts, price, totalShares *uint256.Int) (*uint256.Int, Amounts, error) {
	userLiquidity, err := GetLiquidity(amountsIn, price)
	if err != nil {
		return nil, Amounts{}, err
	}
	binLiquidity, err := GetLiquidity(binReserves, price)
	if err != nil {
		return nil, Amounts{}, err
	}

	sum, overflow := new(uint256.Int).AddOverflow(binLiquidity, userLiquidity)
	if overflow || sum.Gt(uMaxLiquidityPerBin) {
		return nil, Amounts{}, ErrMaxLiquidityPerBin
	}

	if userLiquidity.IsZero() {
		return new(uint256.Int), amountsIn, nil
	}
	if totalShares.IsZero() || binLiquidity.IsZero() {
		return sqrtRoundDown(userLiquidity), amountsIn, nil
	}

	shares, err := mulDivRoundDown(userLiquidity, totalShares, binLiquidity)
	if err != nil {
		return nil, Amounts{}, err
	}
	effectiveLiquidity, err := mulDivRoundUp(shares, binLiquidity, totalShares)
	if err != nil {
		return nil, Amounts{}, err
	}

	effective := amountsIn
	if userLiquidity.Gt(effectiveLiquidity) {
		delta := new(uint256.Int).Sub(userLiquidity, effectiveLiquidity)
		if !delta.Lt(uScale) {
			deltaY := delta.Rsh(delta, scaleOffset)
			if deltaY.Gt(&effective.Y) {
				deltaY.Set(&effective.Y)
			}
			effective.Y.Sub(&effective.Y, deltaY)
		} else if !delta.Lt(price) {
			deltaX := delta.Div(delta, price)
			if deltaX.Gt(&effective.X) {
				deltaX.Set(&effective.X)
			}
			effective.X.Sub(&effective.X, deltaX)
		}
	}
	return shares, effective, nil
}

// SharesForLiquidity converts a liquidity value into shares against the
// bin's current liquidity, rounding down.
func SharesForLiquidity(liquidity, totalShares, binLiquidity *uint256.Int) (*uint256.Int, error) {
	return mulDivRoundDown(liquidity, totalShares, binLiquidity)
}

// GetAmountOutOfBin returns the reserves a share count redeems, pro rata and
// rounded down.
func GetAmountOutOfBin(binReserves Amounts, shares, totalShares *uint256.Int) (Amounts, error) {
	var out Amounts
	if !binReserves.X.IsZero() {
		x, err := mulDivRoundDown(&binReserves.X, shares, totalShares)
		if err != nil {
			return Amounts{}, err
		}
		out.X.Set(x)
	}
	if !binReserves.Y.IsZero() {
		y, err := mulDivRoundDown(&binReserves.Y, shares, totalShares)
		if err != nil {
			return Amounts{}, err
		}
		out.Y.Set(y)
	}
	return out, nil
}

// GetCompositionFees charges the part of an active-bin deposit that
// implicitly swapped against the bin: whatever the minted shares would
// redeem beyond the deposited amount on one side was bought from the other,
// and pays the swap fee on that side.
func GetCompositionFees(binReserves Amounts, p Parameters, binStep uint16, amountsIn Amounts, totalShares, shares *uint256.Int) (Amounts, error) {
	if shares.IsZero() {
		return Amounts{}, nil
	}
	combined, err := binReserves.Add(amountsIn)
	if err != nil {
		return Amounts{}, err
	}
	newShares := new(uint256.Int).Add(totalShares, shares)
	received, err := GetAmountOutOfBin(combined, shares, newShares)
	if err != nil {
		return Amounts{}, err
	}
	rate, err := p.TotalFee(binStep)
	if err != nil {
		return Amounts{}, err
	}

	if received.X.Gt(&amountsIn.X) {
		if amountsIn.Y.Lt(&received.Y) {
			return Amounts{}, nil
		}
		sold := new(uint256.Int).Sub(&amountsIn.Y, &received.Y)
		return amountsY(CompositionFee(sold, rate)), nil
	}
	if received.Y.Gt(&amountsIn.Y) {
		if amountsIn.X.Lt(&received.X) {
			return Amounts{}, nil
		}
		sold := new(uint256.Int).Sub(&amountsIn.X, &received.X)
		return amountsX(CompositionFee(sold, rate)), nil
	}
	return Amounts{}, nil
}

// GetSwapAmounts fills as much of amountsInLeft as the bin can absorb at its
// price. Amounts charged to the trader round up and amounts paid out round
// down. When the remaining input covers the whole out-side reserve the bin
// is emptied at exactly the maximum input; otherwise the fee is carved out
// of the input and the output is converted from the remainder.
func GetSwapAmounts(binReserves Amounts, p Parameters, binStep uint16, swapForY bool, price *uint256.Int, amountsInLeft Amounts) (amountsInWithFees, amountsOutOfBin, totalFees Amounts, err error) {
	var binReserveOut *uint256.Int
	if swapForY {
		binReserveOut = &binReserves.Y
	} else {
		binReserveOut = &binReserves.X
	}
	if binReserveOut.IsZero() {
		return Amounts{}, Amounts{}, Amounts{}, nil
	}

	var maxAmountIn *uint256.Int
	if swapForY {
		maxAmountIn, err = shiftDivRoundUp(binReserveOut, scaleOffset, price)
	} else {
		maxAmountIn, err = mulShiftRoundUp(binReserveOut, price, scaleOffset)
	}
	if err != nil {
		return Amounts{}, Amounts{}, Amounts{}, err
	}
	if maxAmountIn.Gt(uMaxUint128) {
		return Amounts{}, Amounts{}, Amounts{}, ErrAmountOverflow
	}

	rate, err := p.TotalFee(binStep)
	if err != nil {
		return Amounts{}, Amounts{}, Amounts{}, err
	}
	maxFee, err := FeeAmount(maxAmountIn, rate)
	if err != nil {
		return Amounts{}, Amounts{}, Amounts{}, err
	}
	maxAmountIn.Add(maxAmountIn, maxFee)
	if maxAmountIn.Gt(uMaxUint128) {
		return Amounts{}, Amounts{}, Amounts{}, ErrAmountOverflow
	}

	var amountIn *uint256.Int
	if swapForY {
		amountIn = new(uint256.Int).Set(&amountsInLeft.X)
	} else {
		amountIn = new(uint256.Int).Set(&amountsInLeft.Y)
	}

	var fee, amountOut *uint256.Int
	if !amountIn.Lt(maxAmountIn) {
		fee = maxFee
		amountIn = maxAmountIn
		amountOut = new(uint256.Int).Set(binReserveOut)
	} else {
		fee, err = FeeAmountFrom(amountIn, rate)
		if err != nil {
			return Amounts{}, Amounts{}, Amounts{}, err
		}
		net := new(uint256.Int).Sub(amountIn, fee)
		if swapForY {
			amountOut, err = mulShiftRoundDown(net, price, scaleOffset)
		} else {
			amountOut, err = shiftDivRoundDown(net, scaleOffset, price)
		}
		if err != nil {
			return Amounts{}, Amounts{}, Amounts{}, err
		}
		if amountOut.Gt(binReserveOut) {
			amountOut = new(uint256.Int).Set(binReserveOut)
		}
	}

	amountsInWithFees = oneSided(amountIn, swapForY)
	amountsOutOfBin = oneSided(amountOut, !swapForY)
	totalFees = oneSided(fee, swapForY)
	return amountsInWithFees, amountsOutOfBin, totalFees, nil
}

// GetSwapAmountsExactOut sizes the input needed to take amountsOutLeft from
// the bin, capped by the out-side reserve. The input converts from the
// output rounding up and the fee is added on top.
func GetSwapAmountsExactOut(binReserves Amounts, p Parameters, binStep uint16, swapForY bool, price *uint256.Int, amountsOutLeft Amounts) (amountsInWithFees, amountsOutOfBin, totalFees Amounts, err error) {
	var binReserveOut, wantOut *uint256.Int
	if swapForY {
		binReserveOut = &binReserves.Y
		wantOut = &amountsOutLeft.Y
	} else {
		binReserveOut = &binReserves.X
		wantOut = &amountsOutLeft.X
	}
	if binReserveOut.IsZero() || wantOut.IsZero() {
		return Amounts{}, Amounts{}, Amounts{}, nil
	}

	amountOut := new(uint256.Int).Set(wantOut)
	if amountOut.Gt(binReserveOut) {
		amountOut.Set(binReserveOut)
	}

	var amountIn *uint256.Int
	if swapForY {
		amountIn, err = shiftDivRoundUp(amountOut, scaleOffset, price)
	} else {
		amountIn, err = mulShiftRoundUp(amountOut, price, scaleOffset)
	}
	if err != nil {
		return Amounts{}, Amounts{}, Amounts{}, err
	}

	rate, err := p.TotalFee(binStep)
	if err != nil {
		return Amounts{}, Amounts{}, Amounts{}, err
	}
	fee, err := FeeAmount(amountIn, rate)
	if err != nil {
		return Amounts{}, Amounts{}, Amounts{}, err
	}
	amountIn.Add(amountIn, fee)
	if amountIn.Gt(uMaxUint128) {
		return Amounts{}, Amounts{}, Amounts{}, ErrAmountOverflow
	}

	amountsInWithFees = oneSided(amountIn, swapForY)
	amountsOutOfBin = oneSided(amountOut, !swapForY)
	totalFees = oneSided(fee, swapForY)
	return amountsInWithFees, amountsOutOfBin, totalFees, nil
}
