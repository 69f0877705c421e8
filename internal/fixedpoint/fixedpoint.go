package fixedpoint

import (
	gomath "math"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"

	"ammEngine/internal/ammerr"
)

const (
	// MaxBps is 100% expressed in basis points.
	MaxBps uint64 = 10_000
	// PricePrecision scales oracle prices and exchange rates.
	PricePrecision uint64 = 1_000_000_000
	// RewardPrecision scales the farming reward-per-share accumulator.
	RewardPrecision uint64 = 1_000_000_000_000
)

var (
	maxU64  = uint256.NewInt(gomath.MaxUint64)
	maxU128 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))
)

// MaxU128 returns a fresh copy of 2^128-1.
func MaxU128() *uint256.Int {
	return new(uint256.Int).Set(maxU128)
}

// FitsU128 reports whether x is representable in 128 bits.
func FitsU128(x *uint256.Int) bool {
	return x.BitLen() <= 128
}

// ToUint64 narrows x, failing with ErrMathOverflow when it does not fit.
func ToUint64(x *uint256.Int) (uint64, error) {
	if x.Gt(maxU64) {
		return 0, ammerr.ErrMathOverflow.Wrapf("value exceeds 64 bits")
	}
	return x.Uint64(), nil
}

// CheckedAdd adds two 64-bit values.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, overflow := math.SafeAdd(a, b)
	if overflow {
		return 0, ammerr.ErrMathOverflow.Wrapf("%d + %d", a, b)
	}
	return sum, nil
}

// CheckedSub subtracts b from a, rejecting underflow.
func CheckedSub(a, b uint64) (uint64, error) {
	diff, underflow := math.SafeSub(a, b)
	if underflow {
		return 0, ammerr.ErrMathOverflow.Wrapf("%d - %d", a, b)
	}
	return diff, nil
}

// CheckedMul multiplies two 64-bit values.
func CheckedMul(a, b uint64) (uint64, error) {
	product, overflow := math.SafeMul(a, b)
	if overflow {
		return 0, ammerr.ErrMathOverflow.Wrapf("%d * %d", a, b)
	}
	return product, nil
}

// SaturatingAdd adds and clamps at the maximum uint64.
func SaturatingAdd(a, b uint64) uint64 {
	sum, overflow := math.SafeAdd(a, b)
	if overflow {
		return gomath.MaxUint64
	}
	return sum
}

// MulDiv computes floor(a*b/c) with a 128-bit intermediate product.
func MulDiv(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, ammerr.ErrDivisionByZero
	}
	product := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	return ToUint64(product.Div(product, uint256.NewInt(c)))
}

// MulDivU128 computes floor(a*b/c) for 128-bit operands. The result must fit
// in 128 bits.
func MulDivU128(a, b, c *uint256.Int) (*uint256.Int, error) {
	if c.IsZero() {
		return nil, ammerr.ErrDivisionByZero
	}
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ammerr.ErrMathOverflow.Wrapf("product exceeds 256 bits")
	}
	product.Div(product, c)
	if !FitsU128(product) {
		return nil, ammerr.ErrMathOverflow.Wrapf("result exceeds 128 bits")
	}
	return product, nil
}

// AddU128 returns a+b, failing if the sum leaves the 128-bit range.
func AddU128(a, b *uint256.Int) (*uint256.Int, error) {
	sum := new(uint256.Int).Add(a, b)
	if !FitsU128(sum) {
		return nil, ammerr.ErrMathOverflow.Wrapf("accumulator exceeds 128 bits")
	}
	return sum, nil
}

// Sqrt returns floor(sqrt(x)).
func Sqrt(x *uint256.Int) *uint256.Int {
	return new(uint256.Int).Sqrt(x)
}

// SqrtProduct returns floor(sqrt(a*b)). The root of a 128-bit product always
// fits in 64 bits.
func SqrtProduct(a, b uint64) uint64 {
	product := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	return Sqrt(product).Uint64()
}

// ApplyBps returns floor(amount*bps/10000).
func ApplyBps(amount, bps uint64) (uint64, error) {
	return MulDiv(amount, bps, MaxBps)
}

// DeviationBps returns |a-b|*10000/max(a,b). A zero on either side counts as a
// full 100% deviation.
func DeviationBps(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return MaxBps
	}
	larger, smaller := a, b
	if smaller > larger {
		larger, smaller = smaller, larger
	}
	dev, _ := MulDiv(larger-smaller, MaxBps, larger)
	return dev
}

// DeviationBpsU128 is DeviationBps for 128-bit rates. It returns zero when both
// rates are zero.
func DeviationBpsU128(a, b *uint256.Int) *uint256.Int {
	larger, smaller := a, b
	if smaller.Gt(larger) {
		larger, smaller = smaller, larger
	}
	if larger.IsZero() {
		return new(uint256.Int)
	}
	diff := new(uint256.Int).Sub(larger, smaller)
	diff.Mul(diff, uint256.NewInt(MaxBps))
	return diff.Div(diff, larger)
}
