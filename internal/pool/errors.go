package pool

import "errors"

var (
	// ErrInsufficientAmountIn rejects swaps with a zero input.
	ErrInsufficientAmountIn = errors.New("insufficient amount in")

	// ErrInsufficientAmountOut rejects swaps whose input buys nothing.
	ErrInsufficientAmountOut = errors.New("insufficient amount out")

	// ErrOutOfLiquidity means the walk ran past the last live bin before the
	// input was exhausted.
	ErrOutOfLiquidity = errors.New("out of liquidity")

	// ErrEmptyLiquidityConfigs rejects deposits with no target bins.
	ErrEmptyLiquidityConfigs = errors.New("empty liquidity configs")

	// ErrEmptyBurns rejects withdrawals naming no bins.
	ErrEmptyBurns = errors.New("empty burn list")

	// ErrZeroShares means a deposit or withdrawal names a bin where it mints
	// or burns nothing.
	ErrZeroShares = errors.New("zero shares")

	// ErrZeroAmount means burned shares redeem no reserves.
	ErrZeroAmount = errors.New("zero amount")

	// ErrBurnTooLarge means more shares than the bin supply were burned.
	ErrBurnTooLarge = errors.New("burn exceeds supply")

	// ErrBadSnapshot means an exported snapshot fails structural checks.
	ErrBadSnapshot = errors.New("malformed pool snapshot")
)
