package amm

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"ammEngine/internal/ammerr"
	"ammEngine/internal/model"
)

func TestInitializePool(t *testing.T) {
	f := newFixture(t)
	pool := f.initPool(assetA, assetB, 500)

	require.Equal(t, model.PoolAddress(assetA, assetB), pool.Address)
	require.Equal(t, startTime, pool.LastUpdateTimestamp)
	require.True(t, pool.IsEmpty())
	require.Equal(t, []string{model.EventPoolInitialized}, f.events.names())

	_, err := f.engine.InitializePool(f.clock, InitPoolParams{
		Authority: authority, AssetA: assetA, AssetB: assetB,
		FeeNumerator: 3, FeeDenominator: 1000, OracleMaxAge: 60,
	})
	require.ErrorIs(t, err, ammerr.ErrPoolExists)

	reversed := f.initPool(assetB, assetA, 500)
	require.NotEqual(t, pool.Address, reversed.Address)
}

func TestInitializePoolValidation(t *testing.T) {
	base := InitPoolParams{
		Authority:             authority,
		AssetA:                assetA,
		AssetB:                assetB,
		FeeNumerator:          3,
		FeeDenominator:        1000,
		OracleMaxAge:          300,
		OracleMaxDeviationBps: 500,
	}
	cases := []struct {
		name   string
		mutate func(*InitPoolParams)
		want   error
	}{
		{"same assets", func(p *InitPoolParams) { p.AssetB = assetA }, ammerr.ErrInvalidPoolConfig},
		{"zero denominator", func(p *InitPoolParams) { p.FeeNumerator, p.FeeDenominator = 0, 0 }, ammerr.ErrInvalidFeeParameters},
		{"numerator above denominator", func(p *InitPoolParams) { p.FeeNumerator = 1000 }, ammerr.ErrInvalidFeeParameters},
		{"fee above ten percent", func(p *InitPoolParams) { p.FeeNumerator, p.FeeDenominator = 1, 5 }, ammerr.ErrInvalidFeeParameters},
		{"zero max age", func(p *InitPoolParams) { p.OracleMaxAge = 0 }, ammerr.ErrInvalidOracle},
		{"deviation above 100%", func(p *InitPoolParams) { p.OracleMaxDeviationBps = 10_001 }, ammerr.ErrInvalidOracle},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			params := base
			tc.mutate(&params)
			_, err := f.engine.InitializePool(f.clock, params)
			require.ErrorIs(t, err, tc.want)
			require.Empty(t, f.store.Pools())
		})
	}
}

func TestPauseBlocksReserveOperationsButNotFarming(t *testing.T) {
	f := newFixture(t)
	pool := f.initPool(assetA, assetB, 1500)
	_, err := f.engine.AddLiquidity(f.clock, alice, pool.Address, 10_000, 10_000, 0)
	require.NoError(t, err)
	farm, err := f.engine.InitializeFarm(f.clock, InitFarmParams{
		Authority: authority, Pool: pool.Address, RewardMint: reward,
		RewardPerSlot: 9, StartSlot: f.clock.Slot, EndSlot: f.clock.Slot + 10_000,
	})
	require.NoError(t, err)
	require.NoError(t, f.engine.FundFarm(f.clock, bob, farm.Address, 1_000_000))

	require.ErrorIs(t, f.engine.PausePool(f.clock, alice, pool.Address), ammerr.ErrUnauthorized)
	require.NoError(t, f.engine.PausePool(f.clock, authority, pool.Address))
	require.ErrorIs(t, f.engine.PausePool(f.clock, authority, pool.Address), ammerr.ErrPoolPaused)

	_, err = f.engine.Swap(ctx, f.clock, SwapParams{Signer: bob, Pool: pool.Address, AmountIn: 10, AToB: true})
	require.ErrorIs(t, err, ammerr.ErrPoolPaused)
	_, err = f.engine.AddLiquidity(f.clock, bob, pool.Address, 100, 100, 0)
	require.ErrorIs(t, err, ammerr.ErrPoolPaused)
	_, _, err = f.engine.RemoveLiquidity(f.clock, alice, pool.Address, 100, 0, 0)
	require.ErrorIs(t, err, ammerr.ErrPoolPaused)
	_, err = f.engine.FlashLoan(f.clock, bob, pool.Address, 100, 0)
	require.ErrorIs(t, err, ammerr.ErrPoolPaused)
	_, err = f.engine.MultiHopSwap(ctx, f.clock, MultiHopParams{Signer: bob, AssetIn: assetA, Route: []common.Address{pool.Address}, AmountIn: 10})
	require.ErrorIs(t, err, ammerr.ErrPoolPaused)

	_, err = f.engine.Stake(f.clock, alice, farm.Address, 9_000)
	require.NoError(t, err)
	f.advance(10, 4)
	paid, err := f.engine.ClaimRewards(f.clock, alice, farm.Address)
	require.NoError(t, err)
	require.Equal(t, uint64(90), paid)
	_, err = f.engine.Unstake(f.clock, alice, farm.Address, 9_000)
	require.NoError(t, err)

	require.NoError(t, f.engine.UnpausePool(f.clock, authority, pool.Address))
	require.ErrorIs(t, f.engine.UnpausePool(f.clock, authority, pool.Address), ammerr.ErrInvalidPoolConfig)
	_, err = f.engine.Swap(ctx, f.clock, SwapParams{Signer: bob, Pool: pool.Address, AmountIn: 10, AToB: true})
	require.NoError(t, err)
}

func TestUpdateFees(t *testing.T) {
	f := newFixture(t)
	pool := f.initPool(assetA, assetB, 500)

	require.ErrorIs(t, f.engine.UpdateFees(f.clock, bob, pool.Address, 5, 1000), ammerr.ErrUnauthorized)
	require.ErrorIs(t, f.engine.UpdateFees(f.clock, authority, pool.Address, 50, 100), ammerr.ErrInvalidFeeParameters)
	require.ErrorIs(t, f.engine.UpdateFees(f.clock, authority, pool.Address, 1, 0), ammerr.ErrInvalidFeeParameters)
	require.NoError(t, f.engine.UpdateFees(f.clock, authority, pool.Address, 5, 1000))

	updated := f.pool(pool.Address)
	require.Equal(t, uint64(5), updated.FeeNumerator)
	require.Equal(t, uint64(1000), updated.FeeDenominator)

	last := f.events.events[len(f.events.events)-1]
	require.Equal(t, model.EventAdmin, last.name)
	require.Equal(t, "3/1000 -> 5/1000", last.data.(model.AdminEventData).Detail)
}

func TestTransferAuthority(t *testing.T) {
	f := newFixture(t)
	pool := f.initPool(assetA, assetB, 500)

	require.ErrorIs(t, f.engine.TransferAuthority(f.clock, authority, pool.Address, common.Address{}), ammerr.ErrInvalidAuthority)
	require.NoError(t, f.engine.TransferAuthority(f.clock, authority, pool.Address, bob))
	require.ErrorIs(t, f.engine.PausePool(f.clock, authority, pool.Address), ammerr.ErrUnauthorized)
	require.NoError(t, f.engine.PausePool(f.clock, bob, pool.Address))
}

func TestUpdateOracleConfig(t *testing.T) {
	f := newFixture(t)
	pool := f.initPool(assetA, assetB, 500)
	age, dev := uint64(120), uint64(250)
	zero, tooWide := uint64(0), uint64(10_001)

	require.NoError(t, f.engine.UpdateOracleConfig(f.clock, authority, pool.Address, &age, nil))
	updated := f.pool(pool.Address)
	require.Equal(t, age, updated.OracleMaxAge)
	require.Equal(t, uint64(500), updated.OracleMaxDeviationBps)

	require.NoError(t, f.engine.UpdateOracleConfig(f.clock, authority, pool.Address, nil, &dev))
	require.Equal(t, dev, f.pool(pool.Address).OracleMaxDeviationBps)

	require.ErrorIs(t, f.engine.UpdateOracleConfig(f.clock, authority, pool.Address, &zero, nil), ammerr.ErrInvalidOracle)
	require.ErrorIs(t, f.engine.UpdateOracleConfig(f.clock, authority, pool.Address, nil, &tooWide), ammerr.ErrInvalidOracle)
	require.ErrorIs(t, f.engine.UpdateOracleConfig(f.clock, alice, pool.Address, &age, nil), ammerr.ErrUnauthorized)
	require.Equal(t, age, f.pool(pool.Address).OracleMaxAge)
}

func TestUnknownPool(t *testing.T) {
	f := newFixture(t)
	missing := common.HexToAddress("0xdead")
	require.ErrorIs(t, f.engine.PausePool(f.clock, authority, missing), ammerr.ErrPoolNotFound)
	_, err := f.engine.Quote(missing, 10, true)
	require.ErrorIs(t, err, ammerr.ErrPoolNotFound)
}
