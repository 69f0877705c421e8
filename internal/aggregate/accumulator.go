package aggregate

import (
	"encoding/json"
	"fmt"
	"math/big"

	"ammEngine/internal/model"
)

// Accumulator holds aggregate values for a pool window.
type Accumulator struct {
	RunID       string
	PoolAddress string
	WindowStart int64
	WindowEnd   int64
	SwapCount   uint64
	VolumeA     *big.Int
	VolumeB     *big.Int
	FeeA        *big.Int
	FeeB        *big.Int
	FlashFeeA   *big.Int
	FlashFeeB   *big.Int
	// ReserveA and ReserveB are the last reserves seen, nil until known.
	ReserveA *big.Int
	ReserveB *big.Int
	LastTS   int64
}

func NewAccumulator(record model.EventRecord, windowStart, windowEnd int64) *Accumulator {
	return &Accumulator{
		RunID:       record.RunID,
		PoolAddress: record.Pool,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		VolumeA:     big.NewInt(0),
		VolumeB:     big.NewInt(0),
		FeeA:        big.NewInt(0),
		FeeB:        big.NewInt(0),
		FlashFeeA:   big.NewInt(0),
		FlashFeeB:   big.NewInt(0),
		LastTS:      record.Timestamp,
	}
}

func (a *Accumulator) AddEvent(record model.EventRecord) error {
	if record.Timestamp >= a.LastTS {
		a.LastTS = record.Timestamp
	}

	switch record.EventName {
	case model.EventSwap:
		var swap model.SwapEventData
		if err := json.Unmarshal(record.Decoded, &swap); err != nil {
			return fmt.Errorf("decode swap: %w", err)
		}
		return a.applySwap(swap)
	case model.EventAddLiquidity, model.EventRemoveLiquidity:
		var liq model.LiquidityEventData
		if err := json.Unmarshal(record.Decoded, &liq); err != nil {
			return fmt.Errorf("decode %s: %w", record.EventName, err)
		}
		return a.setReserves(liq.ReserveA, liq.ReserveB)
	case model.EventFlashLoanRepay:
		var loan model.FlashLoanEventData
		if err := json.Unmarshal(record.Decoded, &loan); err != nil {
			return fmt.Errorf("decode flash loan repay: %w", err)
		}
		return a.applyFlashFees(loan)
	default:
		return nil
	}
}

func (a *Accumulator) applySwap(swap model.SwapEventData) error {
	amountIn, err := parseBigInt(swap.AmountIn)
	if err != nil {
		return err
	}
	fee, err := parseBigInt(swap.Fee)
	if err != nil {
		return err
	}

	if swap.AToB {
		a.VolumeA.Add(a.VolumeA, amountIn)
		a.FeeA.Add(a.FeeA, fee)
	} else {
		a.VolumeB.Add(a.VolumeB, amountIn)
		a.FeeB.Add(a.FeeB, fee)
	}
	a.SwapCount++
	return a.setReserves(swap.ReserveA, swap.ReserveB)
}

// applyFlashFees adds repaid fees; they also land in the reserves.
func (a *Accumulator) applyFlashFees(loan model.FlashLoanEventData) error {
	feeA, err := parseBigInt(loan.FeeA)
	if err != nil {
		return err
	}
	feeB, err := parseBigInt(loan.FeeB)
	if err != nil {
		return err
	}
	a.FlashFeeA.Add(a.FlashFeeA, feeA)
	a.FlashFeeB.Add(a.FlashFeeB, feeB)
	if a.ReserveA != nil && a.ReserveB != nil {
		a.ReserveA.Add(a.ReserveA, feeA)
		a.ReserveB.Add(a.ReserveB, feeB)
	}
	return nil
}

func (a *Accumulator) setReserves(reserveA, reserveB string) error {
	ra, err := parseBigInt(reserveA)
	if err != nil {
		return err
	}
	rb, err := parseBigInt(reserveB)
	if err != nil {
		return err
	}
	a.ReserveA, a.ReserveB = ra, rb
	return nil
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	return parsed, nil
}
