package aggregate

import (
	"math/big"
	"time"
)

const ratioScale = 18

func formatAmount(value *big.Int) string {
	if value == nil {
		return "0"
	}
	return value.String()
}

func optionalAmount(value *big.Int) *string {
	if value == nil {
		return nil
	}
	s := value.String()
	return &s
}

// computeFeeRates returns fees earned by liquidity providers (swap plus flash
// loan fees) as a fraction of the closing reserve of the same asset.
func computeFeeRates(feeA, feeB, reserveA, reserveB *big.Int) (*string, *string) {
	var feeRateA *string
	var feeRateB *string

	if rate := computeRateFromInt(feeA, reserveA); rate != "" {
		feeRateA = &rate
	}
	if rate := computeRateFromInt(feeB, reserveB); rate != "" {
		feeRateB = &rate
	}
	return feeRateA, feeRateB
}

func computeRateFromInt(fee *big.Int, reserve *big.Int) string {
	if fee == nil || reserve == nil || reserve.Sign() == 0 {
		return ""
	}
	rat := new(big.Rat).SetFrac(fee, reserve)
	return rat.FloatString(ratioScale)
}

// computeAPR annualizes the window yield. Both sides of a constant-product
// pool hold equal value, so the pool yield is the mean of the two side rates.
func computeAPR(feeRateA *string, feeRateB *string, windowSeconds uint64) *string {
	if windowSeconds == 0 || feeRateA == nil || feeRateB == nil {
		return nil
	}
	rateA, ok := new(big.Rat).SetString(*feeRateA)
	if !ok {
		return nil
	}
	rateB, ok := new(big.Rat).SetString(*feeRateB)
	if !ok {
		return nil
	}

	yield := new(big.Rat).Add(rateA, rateB)
	yield.Quo(yield, big.NewRat(2, 1))
	yearSeconds := big.NewRat(int64(365*24*time.Hour/time.Second), 1)
	window := big.NewRat(int64(windowSeconds), 1)
	apr := new(big.Rat).Mul(yield, yearSeconds)
	apr.Quo(apr, window)
	val := apr.FloatString(ratioScale)
	return &val
}
