package amm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"ammEngine/internal/ammerr"
	"ammEngine/internal/fixedpoint"
	"ammEngine/internal/model"
)

// MinTWAPWindow is the shortest window AveragePrice accepts, in seconds.
const MinTWAPWindow int64 = 60

// updateTWAP advances the cumulative prices to now. It runs after reserves
// have been updated. An unset timestamp is initialized without accruing.
func updateTWAP(pool *model.Pool, now int64) error {
	if pool.LastUpdateTimestamp == 0 {
		pool.LastUpdateTimestamp = now
		return nil
	}
	elapsed := now - pool.LastUpdateTimestamp
	if elapsed <= 0 || pool.ReserveA == 0 || pool.ReserveB == 0 {
		return nil
	}

	dt := uint256.NewInt(uint64(elapsed))
	priceA, err := fixedpoint.MulDivU128(uint256.NewInt(pool.ReserveB), dt, uint256.NewInt(pool.ReserveA))
	if err != nil {
		return err
	}
	priceB, err := fixedpoint.MulDivU128(uint256.NewInt(pool.ReserveA), dt, uint256.NewInt(pool.ReserveB))
	if err != nil {
		return err
	}
	cumA, err := fixedpoint.AddU128(&pool.CumulativePriceA, priceA)
	if err != nil {
		return err
	}
	cumB, err := fixedpoint.AddU128(&pool.CumulativePriceB, priceB)
	if err != nil {
		return err
	}

	pool.CumulativePriceA = *cumA
	pool.CumulativePriceB = *cumB
	pool.LastUpdateTimestamp = now
	return nil
}

// SpotPrice returns the price of A in units of B scaled by 10^9.
func SpotPrice(pool *model.Pool) (uint64, error) {
	if pool.ReserveA == 0 || pool.ReserveB == 0 {
		return 0, ammerr.ErrInsufficientLiquidity.Wrapf("pool %s is empty", pool.Address.Hex())
	}
	return fixedpoint.MulDiv(pool.ReserveB, fixedpoint.PricePrecision, pool.ReserveA)
}

// TWAP divides the cumulative price of A by (to - from). It is the average
// price since the accumulator started when from is the pool's first update.
func TWAP(pool *model.Pool, from, to int64) (uint64, error) {
	if to <= from {
		return 0, ammerr.ErrInvalidTimeRange.Wrapf("[%d, %d]", from, to)
	}
	avg := new(uint256.Int).Div(&pool.CumulativePriceA, uint256.NewInt(uint64(to-from)))
	return fixedpoint.ToUint64(avg)
}

// Observation is a cumulative price reading taken at Timestamp.
type Observation struct {
	Timestamp        int64
	CumulativePriceA uint256.Int
	CumulativePriceB uint256.Int
}

// Observe reads the accumulator of a pool.
func Observe(pool *model.Pool) Observation {
	return Observation{
		Timestamp:        pool.LastUpdateTimestamp,
		CumulativePriceA: pool.CumulativePriceA,
		CumulativePriceB: pool.CumulativePriceB,
	}
}

// AveragePrice returns the time-weighted prices of A and B between two
// observations: (cum_end - cum_start) / (t_end - t_start).
func AveragePrice(start, end Observation) (uint64, uint64, error) {
	window := end.Timestamp - start.Timestamp
	if window < MinTWAPWindow {
		return 0, 0, ammerr.ErrInvalidTimeRange.Wrapf("window %ds shorter than %ds", window, MinTWAPWindow)
	}
	if end.CumulativePriceA.Lt(&start.CumulativePriceA) || end.CumulativePriceB.Lt(&start.CumulativePriceB) {
		return 0, 0, ammerr.ErrInvalidTimeRange.Wrapf("observations out of order")
	}
	dt := uint256.NewInt(uint64(window))
	avgA := new(uint256.Int).Sub(&end.CumulativePriceA, &start.CumulativePriceA)
	avgA.Div(avgA, dt)
	avgB := new(uint256.Int).Sub(&end.CumulativePriceB, &start.CumulativePriceB)
	avgB.Div(avgB, dt)

	a, err := fixedpoint.ToUint64(avgA)
	if err != nil {
		return 0, 0, err
	}
	b, err := fixedpoint.ToUint64(avgB)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

// SpotPrice reads the current spot price of a stored pool.
func (e *Engine) SpotPrice(poolAddr common.Address) (uint64, error) {
	pool, err := e.loadPool(poolAddr)
	if err != nil {
		return 0, err
	}
	return SpotPrice(&pool)
}

// TWAP reads the time-weighted price of A for a stored pool.
func (e *Engine) TWAP(poolAddr common.Address, from, to int64) (uint64, error) {
	pool, err := e.loadPool(poolAddr)
	if err != nil {
		return 0, err
	}
	return TWAP(&pool, from, to)
}
