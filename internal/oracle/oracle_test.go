package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"ammEngine/internal/ammerr"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		price int64
		expo  int32
		want  uint64
	}{
		{price: 150_000_000, expo: -8, want: 1_500_000_000},
		{price: 1_234_567_890_123, expo: -12, want: 1_234_567_890},
		{price: 42, expo: -9, want: 42},
		{price: 3, expo: 0, want: 3_000_000_000},
		{price: 2, expo: 2, want: 200_000_000_000},
		{price: 123, expo: -40, want: 0},
	}
	for _, tc := range cases {
		got, err := Normalize(tc.price, tc.expo)
		if err != nil {
			t.Fatalf("normalize(%d, %d): %v", tc.price, tc.expo, err)
		}
		if got != tc.want {
			t.Fatalf("normalize(%d, %d) = %d, want %d", tc.price, tc.expo, got, tc.want)
		}
	}

	if _, err := Normalize(-1, -8); !errors.Is(err, ammerr.ErrInvalidOracle) {
		t.Fatalf("negative price should be invalid, got %v", err)
	}
	if _, err := Normalize(1, 20); !errors.Is(err, ammerr.ErrMathOverflow) {
		t.Fatalf("huge exponent should overflow, got %v", err)
	}
}

func TestConfidenceBps(t *testing.T) {
	got, err := ConfidenceBps(100_000, 250)
	if err != nil || got != 25 {
		t.Fatalf("confidence = %d, %v", got, err)
	}
	if got, _ := ConfidenceBps(0, 1); got != 10_000 {
		t.Fatalf("zero price confidence = %d", got)
	}
}

func TestCheckDeviation(t *testing.T) {
	// asset A worth 2.0, asset B worth 1.0: feed rate is B/A = 0.5
	priceA := Sample{Price: 200_000_000, Exponent: -8}
	priceB := Sample{Price: 100_000_000, Exponent: -8}

	rate, err := FeedRate(priceA, priceB)
	if err != nil {
		t.Fatalf("feed rate: %v", err)
	}
	if rate.Uint64() != 500_000_000 {
		t.Fatalf("feed rate = %s, want 500000000", rate.ToBig().String())
	}

	if err := CheckDeviation(1_000, 495, priceA, priceB, 500); err != nil {
		t.Fatalf("1%% deviation should pass: %v", err)
	}
	if err := CheckDeviation(1_000, 475, priceA, priceB, 500); err != nil {
		t.Fatalf("5%% deviation should pass at the bound: %v", err)
	}
	if err := CheckDeviation(1_000, 450, priceA, priceB, 500); !errors.Is(err, ammerr.ErrOraclePriceDeviation) {
		t.Fatalf("10%% deviation should fail, got %v", err)
	}

	// 1990 out per 1000 in is 1.99 against 0.5: 7487 bps
	if err := CheckDeviation(1_000, 1_990, priceA, priceB, 500); !errors.Is(err, ammerr.ErrOraclePriceDeviation) {
		t.Fatalf("rate above feed rate should fail, got %v", err)
	}

	if err := CheckDeviation(1_000, 500, Sample{}, priceB, 500); !errors.Is(err, ammerr.ErrDivisionByZero) {
		t.Fatalf("zero price a should fail, got %v", err)
	}
}

func TestQueryStaleness(t *testing.T) {
	feed := NewStaticFeed()
	ref := common.HexToAddress("0xfeed")
	feed.Set(ref, Sample{Price: 1, PublishTime: 1_000})

	if _, err := Query(context.Background(), feed, ref, 1_300, 300); err != nil {
		t.Fatalf("sample at max age should pass: %v", err)
	}
	if _, err := Query(context.Background(), feed, ref, 1_301, 300); !errors.Is(err, ammerr.ErrStaleOraclePrice) {
		t.Fatalf("expected stale price, got %v", err)
	}
	if _, err := Query(context.Background(), feed, ref, 900, 300); err != nil {
		t.Fatalf("sample newer than clock should pass: %v", err)
	}
	if _, err := Query(context.Background(), feed, common.HexToAddress("0xbeef"), 1_000, 300); !errors.Is(err, ammerr.ErrInvalidOracle) {
		t.Fatalf("unknown feed should be invalid, got %v", err)
	}
	if _, err := Query(context.Background(), nil, ref, 1_000, 300); !errors.Is(err, ammerr.ErrInvalidOracle) {
		t.Fatalf("nil feed should be invalid, got %v", err)
	}
}

func TestGuardValidateSwap(t *testing.T) {
	feed := NewStaticFeed()
	a := common.HexToAddress("0xa1")
	b := common.HexToAddress("0xb1")
	feed.Set(a, Sample{Price: 1_000_000_000, Exponent: -9, PublishTime: 100})
	feed.Set(b, Sample{Price: 1_000_000_000, Exponent: -9, PublishTime: 50})

	guard := NewGuard(feed)
	check := SwapCheck{FeedA: a, FeedB: b, AmountIn: 100, AmountOut: 99, Now: 120, MaxAge: 300, MaxDeviationBps: 500}
	if err := guard.ValidateSwap(context.Background(), check); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	check.Now = 400
	if err := guard.ValidateSwap(context.Background(), check); !errors.Is(err, ammerr.ErrStaleOraclePrice) {
		t.Fatalf("expected stale feed b, got %v", err)
	}
}
