package pricing

import (
	"github.com/holiman/uint256"

	"ammEngine/internal/ammerr"
	"ammEngine/internal/fixedpoint"
)

// MinimumLiquidity is locked forever on the first deposit into a pool.
const MinimumLiquidity uint64 = 1000

// Fee is a swap fee expressed as numerator/denominator.
type Fee struct {
	Numerator   uint64 `json:"numerator"`
	Denominator uint64 `json:"denominator"`
}

// DefaultFee is 0.3%.
var DefaultFee = Fee{Numerator: 3, Denominator: 1000}

// Validate checks the denominator is positive and the fee does not exceed 10%.
func (f Fee) Validate() error {
	if f.Denominator == 0 || f.Numerator >= f.Denominator {
		return ammerr.ErrInvalidFeeParameters.Wrapf("fee %d/%d", f.Numerator, f.Denominator)
	}
	scaled, err := fixedpoint.CheckedMul(f.Numerator, 10)
	if err != nil || scaled > f.Denominator {
		return ammerr.ErrInvalidFeeParameters.Wrapf("fee %d/%d above 10%%", f.Numerator, f.Denominator)
	}
	return nil
}

// DisplayFee is the fee embedded in amountIn, reported for accounting only.
func (f Fee) DisplayFee(amountIn uint64) (uint64, error) {
	return fixedpoint.MulDiv(amountIn, f.Numerator, f.Denominator)
}

// GetAmountOut prices a swap of amountIn against the given reserves.
func GetAmountOut(amountIn, reserveIn, reserveOut uint64, fee Fee) (uint64, error) {
	if amountIn == 0 {
		return 0, ammerr.ErrZeroAmount
	}
	if reserveIn == 0 || reserveOut == 0 {
		return 0, ammerr.ErrInsufficientLiquidity.Wrapf("reserves %d/%d", reserveIn, reserveOut)
	}
	if fee.Numerator >= fee.Denominator {
		return 0, ammerr.ErrInvalidFeeParameters.Wrapf("fee %d/%d", fee.Numerator, fee.Denominator)
	}

	inWithFee := new(uint256.Int).Mul(uint256.NewInt(amountIn), uint256.NewInt(fee.Denominator-fee.Numerator))
	numerator := new(uint256.Int).Mul(inWithFee, uint256.NewInt(reserveOut))
	denominator := new(uint256.Int).Mul(uint256.NewInt(reserveIn), uint256.NewInt(fee.Denominator))
	denominator.Add(denominator, inWithFee)
	if !fixedpoint.FitsU128(numerator) || !fixedpoint.FitsU128(denominator) {
		return 0, ammerr.ErrMathOverflow.Wrapf("amount out intermediate")
	}
	if denominator.IsZero() {
		return 0, ammerr.ErrDivisionByZero
	}
	return fixedpoint.ToUint64(numerator.Div(numerator, denominator))
}

// GetAmountIn returns the input needed to receive amountOut, rounded up by one.
func GetAmountIn(amountOut, reserveIn, reserveOut uint64, fee Fee) (uint64, error) {
	if amountOut == 0 {
		return 0, ammerr.ErrZeroAmount
	}
	if reserveIn == 0 || amountOut >= reserveOut {
		return 0, ammerr.ErrInsufficientLiquidity.Wrapf("want %d from reserve %d", amountOut, reserveOut)
	}
	if fee.Numerator >= fee.Denominator {
		return 0, ammerr.ErrInvalidFeeParameters.Wrapf("fee %d/%d", fee.Numerator, fee.Denominator)
	}

	numerator := new(uint256.Int).Mul(uint256.NewInt(reserveIn), uint256.NewInt(amountOut))
	numerator.Mul(numerator, uint256.NewInt(fee.Denominator))
	denominator := new(uint256.Int).Mul(uint256.NewInt(reserveOut-amountOut), uint256.NewInt(fee.Denominator-fee.Numerator))
	if !fixedpoint.FitsU128(numerator) || !fixedpoint.FitsU128(denominator) {
		return 0, ammerr.ErrMathOverflow.Wrapf("amount in intermediate")
	}
	if denominator.IsZero() {
		return 0, ammerr.ErrDivisionByZero
	}
	numerator.Div(numerator, denominator)
	numerator.AddUint64(numerator, 1)
	return fixedpoint.ToUint64(numerator)
}

// InitialLiquidity returns sqrt(a*b), the LP supply minted on the first deposit.
func InitialLiquidity(amountA, amountB uint64) uint64 {
	return fixedpoint.SqrtProduct(amountA, amountB)
}

// ProportionalLiquidity returns min(a*S/Ra, b*S/Rb).
func ProportionalLiquidity(amountA, amountB, reserveA, reserveB, totalSupply uint64) (uint64, error) {
	if reserveA == 0 || reserveB == 0 {
		return 0, ammerr.ErrInsufficientLiquidity
	}
	liqA, err := fixedpoint.MulDiv(amountA, totalSupply, reserveA)
	if err != nil {
		return 0, err
	}
	liqB, err := fixedpoint.MulDiv(amountB, totalSupply, reserveB)
	if err != nil {
		return 0, err
	}
	if liqA < liqB {
		return liqA, nil
	}
	return liqB, nil
}

// WithdrawAmounts returns the share of each reserve owed for liquidity LP units.
func WithdrawAmounts(liquidity, totalSupply, reserveA, reserveB uint64) (uint64, uint64, error) {
	if totalSupply == 0 {
		return 0, 0, ammerr.ErrInsufficientLiquidity
	}
	amountA, err := fixedpoint.MulDiv(liquidity, reserveA, totalSupply)
	if err != nil {
		return 0, 0, err
	}
	amountB, err := fixedpoint.MulDiv(liquidity, reserveB, totalSupply)
	if err != nil {
		return 0, 0, err
	}
	return amountA, amountB, nil
}
