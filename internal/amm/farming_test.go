package amm

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"ammEngine/internal/ammerr"
	"ammEngine/internal/farming"
	"ammEngine/internal/model"
)

const rewardPerSlot = 9

// farmFixture gives alice 9000 and bob 10000 LP shares of an A/B pool and
// opens a funded farm starting at the current slot.
func farmFixture(t *testing.T) (*fixture, model.Pool, model.FarmingPool) {
	f := newFixture(t)
	pool := f.initPool(assetA, assetB, 1500)
	_, err := f.engine.AddLiquidity(f.clock, alice, pool.Address, 10_000, 10_000, 0)
	require.NoError(t, err)
	_, err = f.engine.AddLiquidity(f.clock, bob, pool.Address, 10_000, 10_000, 0)
	require.NoError(t, err)

	farm, err := f.engine.InitializeFarm(f.clock, InitFarmParams{
		Authority:     authority,
		Pool:          pool.Address,
		RewardMint:    reward,
		RewardPerSlot: rewardPerSlot,
		StartSlot:     f.clock.Slot,
		EndSlot:       f.clock.Slot + farming.MinDuration,
	})
	require.NoError(t, err)
	require.NoError(t, f.engine.FundFarm(f.clock, bob, farm.Address, 1_000_000))
	return f, pool, farm
}

func TestInitializeFarm(t *testing.T) {
	f, pool, farm := farmFixture(t)

	require.Equal(t, model.FarmAddress(pool.Address), farm.Address)
	require.Equal(t, pool.LPMint, farm.LPMint)
	require.Equal(t, farm.StartSlot, farm.LastUpdateSlot)
	require.True(t, farm.IsActive)
	require.Equal(t, uint64(1_000_000), f.ledger.Balance(reward, farm.RewardVault))

	params := InitFarmParams{
		Authority: authority, Pool: pool.Address, RewardMint: reward,
		RewardPerSlot: 1, StartSlot: f.clock.Slot, EndSlot: f.clock.Slot + farming.MinDuration,
	}
	_, err := f.engine.InitializeFarm(f.clock, params)
	require.ErrorIs(t, err, ammerr.ErrFarmExists)

	other := f.initPool(assetB, assetC, 1500)
	params.Pool = other.Address
	params.Authority = alice
	_, err = f.engine.InitializeFarm(f.clock, params)
	require.ErrorIs(t, err, ammerr.ErrUnauthorized)

	params.Authority = authority
	params.StartSlot = f.clock.Slot - 1
	_, err = f.engine.InitializeFarm(f.clock, params)
	require.ErrorIs(t, err, ammerr.ErrInvalidPoolConfig)
}

func TestSingleStakerEarnsRewardPerSlotTimesSlots(t *testing.T) {
	f, pool, farm := farmFixture(t)

	paid, err := f.engine.Stake(f.clock, alice, farm.Address, 9_000)
	require.NoError(t, err)
	require.Zero(t, paid)
	require.Zero(t, f.ledger.Balance(pool.LPMint, alice))
	require.Equal(t, uint64(9_000), f.ledger.Balance(pool.LPMint, farm.LPVault))

	f.advance(250, 100)
	pending, err := f.engine.PendingRewards(f.clock, alice, farm.Address)
	require.NoError(t, err)
	require.Equal(t, uint64(rewardPerSlot*250), pending)

	before := f.ledger.Balance(reward, alice)
	paid, err = f.engine.ClaimRewards(f.clock, alice, farm.Address)
	require.NoError(t, err)
	require.Equal(t, uint64(rewardPerSlot*250), paid)
	require.Equal(t, before+paid, f.ledger.Balance(reward, alice))

	_, err = f.engine.ClaimRewards(f.clock, alice, farm.Address)
	require.ErrorIs(t, err, ammerr.ErrNoRewards)

	stake, ok := f.store.Stake(model.StakeKey{Farm: farm.Address, Owner: alice})
	require.True(t, ok)
	require.Equal(t, paid, stake.TotalRewardsClaimed)
	require.Equal(t, f.clock.Slot, stake.LastClaimSlot)
	debt, err := farming.RewardDebt(ptr(f.farm(farm.Address)), stake.StakedAmount)
	require.NoError(t, err)
	require.Equal(t, debt, stake.RewardDebt)
}

func TestStakersShareProportionally(t *testing.T) {
	f, pool, farm := farmFixture(t)
	_, err := f.engine.Stake(f.clock, alice, farm.Address, 9_000)
	require.NoError(t, err)
	f.advance(250, 100)
	_, err = f.engine.Stake(f.clock, bob, farm.Address, 3_000)
	require.NoError(t, err)

	f.advance(100, 40)
	bobPaid, err := f.engine.Unstake(f.clock, bob, farm.Address, 3_000)
	require.NoError(t, err)
	require.Equal(t, uint64(225), bobPaid)
	require.Equal(t, uint64(10_000), f.ledger.Balance(pool.LPMint, bob))

	// alice has never claimed: 250 slots alone plus 3/4 of 100 slots
	alicePaid, err := f.engine.Unstake(f.clock, alice, farm.Address, 9_000)
	require.NoError(t, err)
	require.Equal(t, uint64(2_250+675), alicePaid)

	stored := f.farm(farm.Address)
	require.Zero(t, stored.TotalStaked)
	require.Equal(t, uint64(rewardPerSlot*350), stored.TotalRewardsDistributed)
	require.Zero(t, f.ledger.Balance(pool.LPMint, farm.LPVault))
}

func TestStakeAutoClaims(t *testing.T) {
	f, _, farm := farmFixture(t)
	_, err := f.engine.Stake(f.clock, alice, farm.Address, 4_500)
	require.NoError(t, err)
	f.advance(100, 40)

	paid, err := f.engine.Stake(f.clock, alice, farm.Address, 4_500)
	require.NoError(t, err)
	require.Equal(t, uint64(rewardPerSlot*100), paid)

	pending, err := f.engine.PendingRewards(f.clock, alice, farm.Address)
	require.NoError(t, err)
	require.Zero(t, pending)
}

func TestStakeWindow(t *testing.T) {
	f := newFixture(t)
	pool := f.initPool(assetA, assetB, 1500)
	_, err := f.engine.AddLiquidity(f.clock, alice, pool.Address, 10_000, 10_000, 0)
	require.NoError(t, err)
	farm, err := f.engine.InitializeFarm(f.clock, InitFarmParams{
		Authority: authority, Pool: pool.Address, RewardMint: reward,
		RewardPerSlot: rewardPerSlot, StartSlot: f.clock.Slot + 50, EndSlot: f.clock.Slot + 50 + farming.MinDuration,
	})
	require.NoError(t, err)
	require.NoError(t, f.engine.FundFarm(f.clock, bob, farm.Address, 1_000_000))

	_, err = f.engine.Stake(f.clock, alice, farm.Address, 1_000)
	require.ErrorIs(t, err, ammerr.ErrFarmingNotStarted)

	f.advance(50, 20)
	_, err = f.engine.Stake(f.clock, alice, farm.Address, 0)
	require.ErrorIs(t, err, ammerr.ErrZeroAmount)
	_, err = f.engine.Stake(f.clock, alice, farm.Address, 1_000)
	require.NoError(t, err)

	f.advance(farming.MinDuration+10, 4_000)
	_, err = f.engine.Stake(f.clock, alice, farm.Address, 1_000)
	require.ErrorIs(t, err, ammerr.ErrFarmingEnded)

	_, err = f.engine.Unstake(f.clock, alice, farm.Address, 1_001)
	require.ErrorIs(t, err, ammerr.ErrInsufficientStake)
	paid, err := f.engine.Unstake(f.clock, alice, farm.Address, 1_000)
	require.NoError(t, err)
	require.Equal(t, uint64(rewardPerSlot*farming.MinDuration), paid)
}

func TestUnfundedFarmCannotPay(t *testing.T) {
	f := newFixture(t)
	pool := f.initPool(assetA, assetB, 1500)
	_, err := f.engine.AddLiquidity(f.clock, alice, pool.Address, 10_000, 10_000, 0)
	require.NoError(t, err)
	farm, err := f.engine.InitializeFarm(f.clock, InitFarmParams{
		Authority: authority, Pool: pool.Address, RewardMint: reward,
		RewardPerSlot: rewardPerSlot, StartSlot: f.clock.Slot, EndSlot: f.clock.Slot + farming.MinDuration,
	})
	require.NoError(t, err)
	_, err = f.engine.Stake(f.clock, alice, farm.Address, 9_000)
	require.NoError(t, err)
	f.advance(10, 4)

	before := f.farm(farm.Address)
	_, err = f.engine.ClaimRewards(f.clock, alice, farm.Address)
	require.ErrorIs(t, err, ammerr.ErrInsufficientFunds)
	require.Equal(t, before, f.farm(farm.Address))
}

func (f *fixture) farm(addr common.Address) model.FarmingPool {
	f.t.Helper()
	farm, ok := f.store.Farm(addr)
	require.True(f.t, ok)
	return farm
}
