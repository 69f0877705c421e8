package amm

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ammEngine/internal/ammerr"
	"ammEngine/internal/fixedpoint"
	"ammEngine/internal/model"
	"ammEngine/internal/oracle"
	"ammEngine/internal/pricing"
)

// SwapParams describes a single-pool swap. A zero Recipient pays the signer.
type SwapParams struct {
	Signer       common.Address
	Recipient    common.Address
	Pool         common.Address
	AmountIn     uint64
	MinAmountOut uint64
	AToB         bool
}

// SwapResult reports the executed amounts.
type SwapResult struct {
	AmountIn  uint64
	AmountOut uint64
	Fee       uint64
}

// Swap trades AmountIn of one pool asset for the other.
// Custody moves made before a failing call are not undone; run it inside
// a batch.Executor for all-or-nothing effects.
func (e *Engine) Swap(ctx context.Context, clock model.Clock, p SwapParams) (SwapResult, error) {
	res, err := e.swap(ctx, clock, p)
	return res, e.finish(OpSwap, err,
		zap.String("pool", p.Pool.Hex()),
		zap.Bool("a_to_b", p.AToB),
		zap.Uint64("amount_in", p.AmountIn),
		zap.Uint64("amount_out", res.AmountOut),
	)
}

func (e *Engine) swap(ctx context.Context, clock model.Clock, p SwapParams) (SwapResult, error) {
	pool, err := e.loadPool(p.Pool)
	if err != nil {
		return SwapResult{}, err
	}
	if pool.IsPaused {
		return SwapResult{}, ammerr.ErrPoolPaused.Wrapf("pool %s", pool.Address.Hex())
	}
	if p.AmountIn == 0 {
		return SwapResult{}, ammerr.ErrZeroAmount.Wrapf("amount in")
	}

	reserveIn, reserveOut := pool.Reserves(p.AToB)
	amountOut, err := pricing.GetAmountOut(p.AmountIn, reserveIn, reserveOut, pool.Fee())
	if err != nil {
		return SwapResult{}, err
	}
	if amountOut < p.MinAmountOut {
		return SwapResult{}, ammerr.ErrSlippageExceeded.Wrapf("out %d < min %d", amountOut, p.MinAmountOut)
	}
	if err := e.checkOracle(ctx, clock, &pool, p.AmountIn, amountOut); err != nil {
		return SwapResult{}, err
	}
	fee, err := applySwap(&pool, p.AToB, p.AmountIn, amountOut, clock.UnixTimestamp)
	if err != nil {
		return SwapResult{}, err
	}

	recipient := p.Recipient
	if recipient == (common.Address{}) {
		recipient = p.Signer
	}
	if err := e.settleSwap(&pool, p.AToB, p.Signer, recipient, p.AmountIn, amountOut); err != nil {
		return SwapResult{}, err
	}
	e.store.PutPool(pool)

	e.emitSwap(clock, &pool, p.Signer, recipient, p.AToB, p.AmountIn, amountOut, fee, 0)
	return SwapResult{AmountIn: p.AmountIn, AmountOut: amountOut, Fee: fee}, nil
}

func (e *Engine) checkOracle(ctx context.Context, clock model.Clock, pool *model.Pool, amountIn, amountOut uint64) error {
	return e.guard.ValidateSwap(ctx, oracle.SwapCheck{
		FeedA:           pool.OracleA,
		FeedB:           pool.OracleB,
		AmountIn:        amountIn,
		AmountOut:       amountOut,
		Now:             clock.UnixTimestamp,
		MaxAge:          pool.OracleMaxAge,
		MaxDeviationBps: pool.OracleMaxDeviationBps,
	})
}

// applySwap moves reserves, counts volume and the display fee on the input
// side and advances the TWAP. It returns the display fee.
func applySwap(pool *model.Pool, aToB bool, amountIn, amountOut uint64, now int64) (uint64, error) {
	fee, err := pool.Fee().DisplayFee(amountIn)
	if err != nil {
		return 0, err
	}

	reserveIn, reserveOut := pool.Reserves(aToB)
	if reserveIn, err = fixedpoint.CheckedAdd(reserveIn, amountIn); err != nil {
		return 0, err
	}
	if reserveOut, err = fixedpoint.CheckedSub(reserveOut, amountOut); err != nil {
		return 0, err
	}

	if aToB {
		volume, err := fixedpoint.CheckedAdd(pool.TotalVolumeA, amountIn)
		if err != nil {
			return 0, err
		}
		fees, err := fixedpoint.CheckedAdd(pool.TotalFeesA, fee)
		if err != nil {
			return 0, err
		}
		pool.ReserveA, pool.ReserveB = reserveIn, reserveOut
		pool.TotalVolumeA, pool.TotalFeesA = volume, fees
	} else {
		volume, err := fixedpoint.CheckedAdd(pool.TotalVolumeB, amountIn)
		if err != nil {
			return 0, err
		}
		fees, err := fixedpoint.CheckedAdd(pool.TotalFeesB, fee)
		if err != nil {
			return 0, err
		}
		pool.ReserveB, pool.ReserveA = reserveIn, reserveOut
		pool.TotalVolumeB, pool.TotalFeesB = volume, fees
	}

	if err := updateTWAP(pool, now); err != nil {
		return 0, err
	}
	return fee, nil
}

// settleSwap pulls the input from payer into the pool and pays the output to
// recipient.
func (e *Engine) settleSwap(pool *model.Pool, aToB bool, payer, recipient common.Address, amountIn, amountOut uint64) error {
	assetIn, assetOut := pool.Assets(aToB)
	vaultIn, vaultOut := pool.Vaults(aToB)
	if err := e.custody.Transfer(assetIn, payer, vaultIn, amountIn); err != nil {
		return err
	}
	return e.custody.Transfer(assetOut, vaultOut, recipient, amountOut)
}

func (e *Engine) emitSwap(clock model.Clock, pool *model.Pool, sender, recipient common.Address, aToB bool, amountIn, amountOut, fee uint64, hop int) {
	assetIn, assetOut := pool.Assets(aToB)
	e.metrics.ObserveSwap(pool.Address.Hex(), assetIn.Hex(), amountIn, fee)
	e.emit(clock, pool.Address, model.EventSwap, model.SwapEventData{
		Sender:    sender.Hex(),
		Recipient: recipient.Hex(),
		AssetIn:   assetIn.Hex(),
		AssetOut:  assetOut.Hex(),
		AToB:      aToB,
		AmountIn:  model.FormatAmount(amountIn),
		AmountOut: model.FormatAmount(amountOut),
		Fee:       model.FormatAmount(fee),
		ReserveA:  model.FormatAmount(pool.ReserveA),
		ReserveB:  model.FormatAmount(pool.ReserveB),
		Hop:       hop,
	})
}

// Quote prices a swap against the stored pool without changing anything.
func (e *Engine) Quote(poolAddr common.Address, amountIn uint64, aToB bool) (uint64, error) {
	pool, err := e.loadPool(poolAddr)
	if err != nil {
		return 0, err
	}
	reserveIn, reserveOut := pool.Reserves(aToB)
	return pricing.GetAmountOut(amountIn, reserveIn, reserveOut, pool.Fee())
}

// QuoteIn returns the input needed to receive amountOut from the stored pool.
func (e *Engine) QuoteIn(poolAddr common.Address, amountOut uint64, aToB bool) (uint64, error) {
	pool, err := e.loadPool(poolAddr)
	if err != nil {
		return 0, err
	}
	reserveIn, reserveOut := pool.Reserves(aToB)
	return pricing.GetAmountIn(amountOut, reserveIn, reserveOut, pool.Fee())
}
