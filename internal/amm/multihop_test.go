package amm

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"ammEngine/internal/ammerr"
	"ammEngine/internal/model"
)

// routeFixture builds pools A/B and B/C with 1M of each asset.
func routeFixture(t *testing.T) (*fixture, common.Address, common.Address) {
	f := newFixture(t)
	ab := f.initPool(assetA, assetB, 1500)
	bc := f.initPool(assetB, assetC, 1500)
	for _, addr := range []common.Address{ab.Address, bc.Address} {
		_, err := f.engine.AddLiquidity(f.clock, alice, addr, 1_000_000, 1_000_000, 0)
		require.NoError(t, err)
	}
	f.advance(1, 12)
	return f, ab.Address, bc.Address
}

func TestTwoHopMatchesSequentialSwaps(t *testing.T) {
	routed, ab, bc := routeFixture(t)
	sequential, _, _ := routeFixture(t)
	startC := routed.ledger.Balance(assetC, bob)

	hops, err := routed.engine.MultiHopSwap(ctx, routed.clock, MultiHopParams{
		Signer:   bob,
		AssetIn:  assetA,
		Route:    []common.Address{ab, bc},
		AmountIn: 1_000,
	})
	require.NoError(t, err)
	require.Len(t, hops, 2)

	first, err := sequential.engine.Swap(ctx, sequential.clock, SwapParams{Signer: bob, Pool: ab, AmountIn: 1_000, AToB: true})
	require.NoError(t, err)
	second, err := sequential.engine.Swap(ctx, sequential.clock, SwapParams{Signer: bob, Pool: bc, AmountIn: first.AmountOut, AToB: true})
	require.NoError(t, err)

	require.Equal(t, first.AmountOut, hops[0].AmountOut)
	require.Equal(t, second.AmountOut, hops[1].AmountOut)
	require.Equal(t, sequential.pool(ab), routed.pool(ab))
	require.Equal(t, sequential.pool(bc), routed.pool(bc))
	require.Equal(t, startC+second.AmountOut, routed.ledger.Balance(assetC, bob))
	require.Equal(t, sequential.ledger.Balance(assetB, bob), routed.ledger.Balance(assetB, bob))
	require.Zero(t, routed.ledger.Balance(assetB, model.IntermediateAddress(bob, 0)))
	routed.requireVaultsMatch(ab)
	routed.requireVaultsMatch(bc)

	swaps := routed.events.events[len(routed.events.events)-2:]
	require.Equal(t, 1, swaps[0].data.(model.SwapEventData).Hop)
	require.Equal(t, 2, swaps[1].data.(model.SwapEventData).Hop)
	require.Equal(t, model.IntermediateAddress(bob, 0).Hex(), swaps[0].data.(model.SwapEventData).Recipient)
}

func TestRouteDirectionFollowsInputAsset(t *testing.T) {
	f, ab, bc := routeFixture(t)
	hops, err := f.engine.MultiHopSwap(ctx, f.clock, MultiHopParams{
		Signer:   bob,
		AssetIn:  assetC,
		Route:    []common.Address{bc, ab},
		AmountIn: 5_000,
	})
	require.NoError(t, err)
	require.False(t, hops[0].AToB)
	require.False(t, hops[1].AToB)

	// a pool may appear twice: A -> B -> A
	hops, err = f.engine.MultiHopSwap(ctx, f.clock, MultiHopParams{
		Signer:   bob,
		AssetIn:  assetA,
		Route:    []common.Address{ab, ab},
		AmountIn: 5_000,
	})
	require.NoError(t, err)
	require.True(t, hops[0].AToB)
	require.False(t, hops[1].AToB)
	require.Less(t, hops[1].AmountOut, uint64(5_000))
	f.requireVaultsMatch(ab)
}

func TestMultiHopRejections(t *testing.T) {
	f, ab, bc := routeFixture(t)
	beforeAB, beforeBC := f.pool(ab), f.pool(bc)
	balance := f.ledger.Balance(assetA, bob)

	cases := []struct {
		name   string
		params MultiHopParams
		want   error
	}{
		{"empty route", MultiHopParams{Signer: bob, AssetIn: assetA, AmountIn: 10}, ammerr.ErrMaxHopsExceeded},
		{"four hops", MultiHopParams{Signer: bob, AssetIn: assetA, Route: []common.Address{ab, ab, ab, ab}, AmountIn: 10}, ammerr.ErrMaxHopsExceeded},
		{"zero amount", MultiHopParams{Signer: bob, AssetIn: assetA, Route: []common.Address{ab}}, ammerr.ErrZeroAmount},
		{"asset not in pool", MultiHopParams{Signer: bob, AssetIn: assetA, Route: []common.Address{bc}, AmountIn: 10}, ammerr.ErrInvalidSwapRoute},
		{"broken chain", MultiHopParams{Signer: bob, AssetIn: assetC, Route: []common.Address{bc, bc, ab}, AmountIn: 10}, ammerr.ErrInvalidSwapRoute},
		{"final slippage", MultiHopParams{Signer: bob, AssetIn: assetA, Route: []common.Address{ab, bc}, AmountIn: 1_000, MinAmountOut: 1_000}, ammerr.ErrSlippageExceeded},
		{"unknown pool", MultiHopParams{Signer: bob, AssetIn: assetA, Route: []common.Address{common.HexToAddress("0xdead")}, AmountIn: 10}, ammerr.ErrPoolNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.MultiHopSwap(ctx, f.clock, tc.params)
			require.ErrorIs(t, err, tc.want)
			require.Equal(t, beforeAB, f.pool(ab))
			require.Equal(t, beforeBC, f.pool(bc))
			require.Equal(t, balance, f.ledger.Balance(assetA, bob))
		})
	}
}
