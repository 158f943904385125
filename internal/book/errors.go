package book

import "errors"

var (
	ErrInvalidParameter        = errors.New("invalid parameter")
	ErrInvalidConfig           = errors.New("invalid liquidity config")
	ErrNonMonotonicTime        = errors.New("timestamp older than last update")
	ErrTimestampOverflow       = errors.New("timestamp exceeds 40 bits")
	ErrFeeTooLarge             = errors.New("fee exceeds maximum")
	ErrProtocolShareTooLarge   = errors.New("protocol share exceeds maximum")
	ErrLiquidityOverflow       = errors.New("liquidity overflows 256 bits")
	ErrMaxLiquidityPerBin      = errors.New("liquidity exceeds per-bin maximum")
	ErrCompositionFactorFlawed = errors.New("deposit on impossible side of active bin")
	ErrPowUnderflow            = errors.New("pow result underflows")
	ErrLogUnderflow            = errors.New("log of zero")
	ErrMulDivOverflow          = errors.New("mul div overflows 256 bits")
	ErrAmountOverflow          = errors.New("amount exceeds 128 bits")
	ErrAmountUnderflow         = errors.New("amount subtraction underflows")
	ErrNewLengthTooSmall       = errors.New("oracle length not increased")
	ErrLookupTimestampTooOld   = errors.New("timestamp older than oldest sample")
	ErrEmptyOracle             = errors.New("oracle has no samples")
	ErrOutOfID                 = errors.New("id outside 24-bit range")
)
