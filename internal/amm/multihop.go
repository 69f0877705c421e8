package amm

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ammEngine/internal/ammerr"
	"ammEngine/internal/model"
	"ammEngine/internal/pricing"
)

// MaxHops bounds the length of a multi-hop route.
const MaxHops = 3

// MultiHopParams describes a routed swap. Route lists pool addresses in hop
// order; the direction of each hop follows from the asset entering it.
type MultiHopParams struct {
	Signer       common.Address
	AssetIn      common.Address
	Route        []common.Address
	AmountIn     uint64
	MinAmountOut uint64
}

// HopResult is one executed leg of a routed swap.
type HopResult struct {
	Pool      common.Address
	AToB      bool
	AmountIn  uint64
	AmountOut uint64
	Fee       uint64
}

type plannedHop struct {
	pool      *model.Pool
	aToB      bool
	from      common.Address
	to        common.Address
	amountIn  uint64
	amountOut uint64
	fee       uint64
}

// MultiHopSwap chains up to MaxHops swaps. Intermediate outputs are held in
// per-hop accounts derived from the signer; only the final output is checked
// against MinAmountOut.
// Custody moves made before a failing call are not undone; run it inside
// a batch.Executor for all-or-nothing effects.
func (e *Engine) MultiHopSwap(ctx context.Context, clock model.Clock, p MultiHopParams) ([]HopResult, error) {
	results, err := e.multiHopSwap(ctx, clock, p)
	var out uint64
	if len(results) > 0 {
		out = results[len(results)-1].AmountOut
	}
	return results, e.finish(OpMultiHopSwap, err,
		zap.Int("hops", len(p.Route)),
		zap.Uint64("amount_in", p.AmountIn),
		zap.Uint64("amount_out", out),
	)
}

func (e *Engine) multiHopSwap(ctx context.Context, clock model.Clock, p MultiHopParams) ([]HopResult, error) {
	if len(p.Route) < 1 || len(p.Route) > MaxHops {
		return nil, ammerr.ErrMaxHopsExceeded.Wrapf("%d hops", len(p.Route))
	}
	if p.AmountIn == 0 {
		return nil, ammerr.ErrZeroAmount.Wrapf("amount in")
	}

	// a pool visited twice sees the state left by its earlier hop
	working := make(map[common.Address]*model.Pool, len(p.Route))
	plan := make([]plannedHop, 0, len(p.Route))
	asset := p.AssetIn
	amount := p.AmountIn
	from := p.Signer

	for i, addr := range p.Route {
		pool, ok := working[addr]
		if !ok {
			loaded, err := e.loadPool(addr)
			if err != nil {
				return nil, err
			}
			pool = &loaded
			working[addr] = pool
		}
		if pool.IsPaused {
			return nil, ammerr.ErrPoolPaused.Wrapf("hop %d pool %s", i+1, addr.Hex())
		}
		aToB, ok := pool.Side(asset)
		if !ok {
			return nil, ammerr.ErrInvalidSwapRoute.Wrapf("hop %d: pool %s does not hold %s", i+1, addr.Hex(), asset.Hex())
		}

		reserveIn, reserveOut := pool.Reserves(aToB)
		amountOut, err := pricing.GetAmountOut(amount, reserveIn, reserveOut, pool.Fee())
		if err != nil {
			return nil, err
		}
		if err := e.checkOracle(ctx, clock, pool, amount, amountOut); err != nil {
			return nil, err
		}
		fee, err := applySwap(pool, aToB, amount, amountOut, clock.UnixTimestamp)
		if err != nil {
			return nil, err
		}

		to := p.Signer
		if i < len(p.Route)-1 {
			to = model.IntermediateAddress(p.Signer, i)
		}
		plan = append(plan, plannedHop{
			pool:      pool,
			aToB:      aToB,
			from:      from,
			to:        to,
			amountIn:  amount,
			amountOut: amountOut,
			fee:       fee,
		})

		_, asset = pool.Assets(aToB)
		amount = amountOut
		from = to
	}

	if amount < p.MinAmountOut {
		return nil, ammerr.ErrSlippageExceeded.Wrapf("out %d < min %d", amount, p.MinAmountOut)
	}

	for _, hop := range plan {
		if err := e.settleSwap(hop.pool, hop.aToB, hop.from, hop.to, hop.amountIn, hop.amountOut); err != nil {
			return nil, err
		}
	}
	for _, pool := range working {
		e.store.PutPool(*pool)
	}

	results := make([]HopResult, 0, len(plan))
	for i, hop := range plan {
		// reserves in the event reflect the pool after the whole route
		e.emitSwap(clock, hop.pool, hop.from, hop.to, hop.aToB, hop.amountIn, hop.amountOut, hop.fee, i+1)
		results = append(results, HopResult{
			Pool:      hop.pool.Address,
			AToB:      hop.aToB,
			AmountIn:  hop.amountIn,
			AmountOut: hop.amountOut,
			Fee:       hop.fee,
		})
	}
	return results, nil
}
