package ammerr

import (
	"errors"
	"fmt"
)

// Category groups rejections by who is at fault and whether state was touched.
type Category string

const (
	Validation    Category = "validation"
	Economic      Category = "economic"
	Arithmetic    Category = "arithmetic"
	Authorization Category = "authorization"
	Lifecycle     Category = "lifecycle"
)

// Error is a typed engine rejection. Two errors match under errors.Is when
// their codes are equal, so wrapped copies still compare against the sentinels.
type Error struct {
	Code     string
	Category Category
	Message  string
	detail   string
}

func newError(code string, category Category, msg string) *Error {
	return &Error{Code: code, Category: category, Message: msg}
}

func (e *Error) Error() string {
	if e.detail == "" {
		return e.Message
	}
	return e.Message + ": " + e.detail
}

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Wrapf returns a copy of e with call-site context appended to the message.
func (e *Error) Wrapf(format string, args ...interface{}) *Error {
	out := *e
	detail := fmt.Sprintf(format, args...)
	if out.detail != "" {
		detail = detail + ": " + out.detail
	}
	out.detail = detail
	return &out
}

// CodeOf returns the engine code of err, or "" when err is not an engine error.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// CategoryOf returns the category of err, or "" when err is not an engine error.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return ""
}

var (
	ErrInsufficientLiquidity  = newError("InsufficientLiquidity", Economic, "insufficient liquidity in the pool")
	ErrSlippageExceeded       = newError("SlippageExceeded", Economic, "slippage tolerance exceeded")
	ErrInvalidFeeParameters   = newError("InvalidFeeParameters", Validation, "invalid fee parameters")
	ErrPoolPaused             = newError("PoolPaused", Lifecycle, "pool is paused")
	ErrStaleOraclePrice       = newError("StaleOraclePrice", Lifecycle, "oracle price is stale")
	ErrOraclePriceDeviation   = newError("OraclePriceDeviation", Economic, "oracle price deviation too large")
	ErrInvalidOracle          = newError("InvalidOracle", Validation, "invalid oracle")
	ErrMathOverflow           = newError("MathOverflow", Arithmetic, "math overflow")
	ErrZeroAmount             = newError("ZeroAmount", Validation, "zero amount")
	ErrInvalidRatio           = newError("InvalidRatio", Validation, "invalid token ratio")
	ErrMinimumLiquidityNotMet = newError("MinimumLiquidityNotMet", Economic, "minimum liquidity requirement not met")
	ErrFlashLoanNotRepaid     = newError("FlashLoanNotRepaid", Lifecycle, "flash loan not repaid in the same batch")
	ErrFlashLoanAlreadyRepaid = newError("FlashLoanAlreadyRepaid", Lifecycle, "flash loan already repaid")
	ErrFlashLoanNotFound      = newError("FlashLoanNotFound", Lifecycle, "no open flash loan")
	ErrInvalidFlashLoanFee    = newError("InvalidFlashLoanFee", Validation, "invalid flash loan fee")
	ErrUnauthorized           = newError("Unauthorized", Authorization, "unauthorized")
	ErrInvalidTimeRange       = newError("InvalidTimeRange", Validation, "invalid time range")
	ErrFarmingNotActive       = newError("FarmingNotActive", Lifecycle, "farming pool not active")
	ErrFarmingNotStarted      = newError("FarmingNotStarted", Lifecycle, "farming period has not started")
	ErrFarmingEnded           = newError("FarmingEnded", Lifecycle, "farming period has ended")
	ErrNoRewards              = newError("NoRewards", Economic, "no rewards to claim")
	ErrInsufficientStake      = newError("InsufficientStake", Economic, "insufficient staked amount")
	ErrInvalidPoolConfig      = newError("InvalidPoolConfig", Validation, "invalid pool configuration")
	ErrMaxHopsExceeded        = newError("MaxHopsExceeded", Validation, "hop count out of range")
	ErrInvalidSwapRoute       = newError("InvalidSwapRoute", Validation, "invalid swap route")
	ErrDivisionByZero         = newError("DivisionByZero", Arithmetic, "division by zero")
	ErrTokenMintMismatch      = newError("TokenMintMismatch", Authorization, "asset mismatch")
	ErrInvalidAuthority       = newError("InvalidAuthority", Authorization, "invalid authority")
	ErrNumericalOverflow      = newError("NumericalOverflow", Arithmetic, "numerical overflow")

	ErrPoolExists        = newError("PoolExists", Validation, "pool already initialized")
	ErrPoolNotFound      = newError("PoolNotFound", Validation, "pool not found")
	ErrFarmExists        = newError("FarmExists", Validation, "farming pool already initialized")
	ErrFarmNotFound      = newError("FarmNotFound", Validation, "farming pool not found")
	ErrInsufficientFunds = newError("InsufficientFunds", Economic, "insufficient account balance")
)
