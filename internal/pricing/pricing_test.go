package pricing

import (
	"errors"
	"math/big"
	"testing"

	"ammEngine/internal/ammerr"
)

func TestGetAmountOutReferenceSwap(t *testing.T) {
	out, err := GetAmountOut(100, 1000, 1000, DefaultFee)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != 90 {
		t.Fatalf("amount out = %d, want 90", out)
	}

	// exact price before flooring lies strictly inside (90, 91)
	exact := new(big.Rat).SetFrac(big.NewInt(100*997*1000), big.NewInt(1000*1000+100*997))
	if exact.Cmp(big.NewRat(90, 1)) <= 0 || exact.Cmp(big.NewRat(91, 1)) >= 0 {
		t.Fatalf("exact output %s outside (90, 91)", exact.FloatString(6))
	}
}

func TestGetAmountOutMatchesBigInt(t *testing.T) {
	amountIn, rIn, rOut := uint64(1_000), uint64(1_000_000), uint64(2_000_000)
	out, err := GetAmountOut(amountIn, rIn, rOut, DefaultFee)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inWithFee := new(big.Int).Mul(new(big.Int).SetUint64(amountIn), big.NewInt(997))
	num := new(big.Int).Mul(inWithFee, new(big.Int).SetUint64(rOut))
	den := new(big.Int).Add(new(big.Int).Mul(new(big.Int).SetUint64(rIn), big.NewInt(1000)), inWithFee)
	want := new(big.Int).Div(num, den)
	if want.Uint64() != out {
		t.Fatalf("amount out = %d, want %s", out, want)
	}
}

func TestGetAmountOutErrors(t *testing.T) {
	if _, err := GetAmountOut(0, 10, 10, DefaultFee); !errors.Is(err, ammerr.ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
	if _, err := GetAmountOut(10, 0, 10, DefaultFee); !errors.Is(err, ammerr.ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
	if _, err := GetAmountOut(10, 10, 0, DefaultFee); !errors.Is(err, ammerr.ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
}

func TestGetAmountInErrors(t *testing.T) {
	if _, err := GetAmountIn(0, 10, 10, DefaultFee); !errors.Is(err, ammerr.ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
	if _, err := GetAmountIn(10, 10, 10, DefaultFee); !errors.Is(err, ammerr.ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity for out == reserve, got %v", err)
	}
	if _, err := GetAmountIn(11, 10, 10, DefaultFee); !errors.Is(err, ammerr.ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity for out > reserve, got %v", err)
	}
}

// Holds when one unit of the output asset is worth no more than one unit of
// the input asset; otherwise flooring the output dominates the +1 round up.
func TestRoundTripNeverProfitable(t *testing.T) {
	cases := []struct {
		in, rIn, rOut uint64
		fee           Fee
	}{
		{100, 1000, 1000, DefaultFee},
		{250_000, 1_000_000_000, 4_000_000_000, DefaultFee},
		{12_345, 123_456_789, 987_654_321, DefaultFee},
		{5_000_000, 3_000_000, 10_000_000, Fee{Numerator: 1, Denominator: 10}},
		{777, 1_000_000_000_000, 5_000_000_000_000, Fee{Numerator: 0, Denominator: 1}},
	}

	for _, tc := range cases {
		out, err := GetAmountOut(tc.in, tc.rIn, tc.rOut, tc.fee)
		if err != nil {
			t.Fatalf("amount out %+v: %v", tc, err)
		}
		back, err := GetAmountIn(out, tc.rIn, tc.rOut, tc.fee)
		if err != nil {
			t.Fatalf("amount in %+v: %v", tc, err)
		}
		if back < tc.in {
			t.Fatalf("round trip profitable: in %d, out %d, back %d", tc.in, out, back)
		}
	}
}

func TestAmountInAlwaysCoversOutput(t *testing.T) {
	cases := []struct {
		out, rIn, rOut uint64
	}{
		{1, 1000, 1000},
		{1538, 987_654_321, 123_456_789},
		{999, 1000, 1000},
		{42, 7, 1_000_000},
		{2_999_999, 10_000_000, 3_000_000},
	}
	for _, tc := range cases {
		in, err := GetAmountIn(tc.out, tc.rIn, tc.rOut, DefaultFee)
		if err != nil {
			t.Fatalf("amount in %+v: %v", tc, err)
		}
		got, err := GetAmountOut(in, tc.rIn, tc.rOut, DefaultFee)
		if err != nil {
			t.Fatalf("amount out %+v: %v", tc, err)
		}
		if got < tc.out {
			t.Fatalf("input %d buys %d, want at least %d", in, got, tc.out)
		}
	}
}

func TestInvariantProductNeverShrinks(t *testing.T) {
	rIn, rOut := uint64(1_000_000), uint64(750_000)
	for _, amountIn := range []uint64{1, 10, 999, 50_000, 400_000, 5_000_000} {
		out, err := GetAmountOut(amountIn, rIn, rOut, DefaultFee)
		if err != nil {
			t.Fatalf("amount out: %v", err)
		}
		before := new(big.Int).Mul(new(big.Int).SetUint64(rIn), new(big.Int).SetUint64(rOut))
		after := new(big.Int).Mul(new(big.Int).SetUint64(rIn+amountIn), new(big.Int).SetUint64(rOut-out))
		if after.Cmp(before) < 0 {
			t.Fatalf("k shrank for input %d: %s < %s", amountIn, after, before)
		}
		rIn += amountIn
		rOut -= out
	}
}

func TestFeeValidate(t *testing.T) {
	valid := []Fee{DefaultFee, {Numerator: 0, Denominator: 1}, {Numerator: 1, Denominator: 10}}
	for _, f := range valid {
		if err := f.Validate(); err != nil {
			t.Fatalf("fee %+v should be valid: %v", f, err)
		}
	}
	invalid := []Fee{{Numerator: 1, Denominator: 0}, {Numerator: 5, Denominator: 5}, {Numerator: 11, Denominator: 100}}
	for _, f := range invalid {
		if err := f.Validate(); !errors.Is(err, ammerr.ErrInvalidFeeParameters) {
			t.Fatalf("fee %+v should be rejected, got %v", f, err)
		}
	}
}

func TestLiquidityShares(t *testing.T) {
	if got := InitialLiquidity(10_000, 10_000); got != 10_000 {
		t.Fatalf("initial liquidity = %d", got)
	}

	minted, err := ProportionalLiquidity(500, 2_000, 10_000, 20_000, 14_142)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if minted != 707 {
		t.Fatalf("proportional liquidity = %d, want 707", minted)
	}

	a, b, err := WithdrawAmounts(2_500, 10_000, 40_000, 8_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != 10_000 || b != 2_000 {
		t.Fatalf("withdraw = (%d, %d)", a, b)
	}

	a, b, err = WithdrawAmounts(10_000, 10_000, 40_000, 8_000)
	if err != nil || a != 40_000 || b != 8_000 {
		t.Fatalf("full withdraw = (%d, %d), %v", a, b, err)
	}
}

func BenchmarkGetAmountOut(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = GetAmountOut(1_000, 1_000_000, 2_000_000, DefaultFee)
	}
}
