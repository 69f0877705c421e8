package amm

import (
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ammEngine/internal/ammerr"
	"ammEngine/internal/farming"
	"ammEngine/internal/fixedpoint"
	"ammEngine/internal/model"
	"ammEngine/internal/store"
)

// InitFarmParams describes a farm on a pool's LP shares.
type InitFarmParams struct {
	Authority     common.Address
	Pool          common.Address
	RewardMint    common.Address
	RewardPerSlot uint64
	StartSlot     uint64
	EndSlot       uint64
}

// InitializeFarm creates the farm of a pool. Only the pool authority may do so.
func (e *Engine) InitializeFarm(clock model.Clock, p InitFarmParams) (model.FarmingPool, error) {
	farm, err := e.initializeFarm(clock, p)
	return farm, e.finish(OpInitializeFarm, err, zap.String("pool", p.Pool.Hex()))
}

func (e *Engine) initializeFarm(clock model.Clock, p InitFarmParams) (model.FarmingPool, error) {
	pool, err := e.loadPool(p.Pool)
	if err != nil {
		return model.FarmingPool{}, err
	}
	if err := requireAuthority(&pool, p.Authority); err != nil {
		return model.FarmingPool{}, err
	}
	addr := model.FarmAddress(p.Pool)
	if _, exists := e.store.Farm(addr); exists {
		return model.FarmingPool{}, ammerr.ErrFarmExists.Wrapf("farm %s", addr.Hex())
	}
	if err := farming.ValidateSchedule(p.RewardPerSlot, p.StartSlot, p.EndSlot, clock.Slot); err != nil {
		return model.FarmingPool{}, err
	}

	farm := model.FarmingPool{
		Address:        addr,
		Authority:      p.Authority,
		Pool:           p.Pool,
		LPMint:         pool.LPMint,
		RewardMint:     p.RewardMint,
		RewardVault:    model.RewardVaultAddress(addr),
		LPVault:        model.FarmLPVaultAddress(addr),
		RewardPerSlot:  p.RewardPerSlot,
		StartSlot:      p.StartSlot,
		EndSlot:        p.EndSlot,
		LastUpdateSlot: p.StartSlot,
		IsActive:       true,
	}
	e.store.PutFarm(farm)
	e.emit(clock, p.Pool, model.EventFarmInitialized, farmEvent(&farm, p.Authority, 0, 0))
	return farm, nil
}

// FundFarm moves reward tokens from funder into the farm's reward vault.
func (e *Engine) FundFarm(clock model.Clock, funder, farmAddr common.Address, amount uint64) error {
	err := e.fundFarm(clock, funder, farmAddr, amount)
	return e.finish(OpFundFarm, err, zap.String("farm", farmAddr.Hex()), zap.Uint64("amount", amount))
}

func (e *Engine) fundFarm(clock model.Clock, funder, farmAddr common.Address, amount uint64) error {
	farm, err := e.loadFarm(farmAddr)
	if err != nil {
		return err
	}
	if amount == 0 {
		return ammerr.ErrZeroAmount.Wrapf("funding amount")
	}
	if err := e.custody.Transfer(farm.RewardMint, funder, farm.RewardVault, amount); err != nil {
		return err
	}
	e.emit(clock, farm.Pool, model.EventFarmFunded, farmEvent(&farm, funder, amount, 0))
	return nil
}

// Stake locks LP shares in the farm. Pending rewards of an existing stake are
// paid out first.
// Custody moves made before a failing call are not undone; run it inside
// a batch.Executor for all-or-nothing effects.
func (e *Engine) Stake(clock model.Clock, owner, farmAddr common.Address, amount uint64) (uint64, error) {
	paid, err := e.stake(clock, owner, farmAddr, amount)
	return paid, e.finish(OpStake, err,
		zap.String("farm", farmAddr.Hex()),
		zap.String("owner", owner.Hex()),
		zap.Uint64("amount", amount),
	)
}

func (e *Engine) stake(clock model.Clock, owner, farmAddr common.Address, amount uint64) (uint64, error) {
	farm, err := e.loadFarm(farmAddr)
	if err != nil {
		return 0, err
	}
	if err := farming.CheckStakeWindow(&farm, clock.Slot); err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, ammerr.ErrZeroAmount.Wrapf("stake amount")
	}
	if err := farming.UpdateRewards(&farm, clock.Slot); err != nil {
		return 0, err
	}

	stake, _ := store.StakeOrNew(e.store, model.StakeKey{Farm: farmAddr, Owner: owner})
	var pending uint64
	if stake.StakedAmount > 0 {
		if pending, err = farming.PendingRewards(&farm, stake.StakedAmount, &stake.RewardDebt); err != nil {
			return 0, err
		}
		if stake.TotalRewardsClaimed, err = fixedpoint.CheckedAdd(stake.TotalRewardsClaimed, pending); err != nil {
			return 0, err
		}
	} else {
		stake.CreatedAt = clock.UnixTimestamp
		stake.LastClaimSlot = clock.Slot
	}

	if stake.StakedAmount, err = fixedpoint.CheckedAdd(stake.StakedAmount, amount); err != nil {
		return 0, err
	}
	if farm.TotalStaked, err = fixedpoint.CheckedAdd(farm.TotalStaked, amount); err != nil {
		return 0, err
	}
	if stake.RewardDebt, err = farming.RewardDebt(&farm, stake.StakedAmount); err != nil {
		return 0, err
	}

	if err := e.custody.Transfer(farm.RewardMint, farm.RewardVault, owner, pending); err != nil {
		return 0, err
	}
	if err := e.custody.Transfer(farm.LPMint, owner, farm.LPVault, amount); err != nil {
		return 0, err
	}

	e.store.PutFarm(farm)
	e.store.PutStake(stake)
	e.metrics.ObserveRewards(farmAddr.Hex(), pending)
	e.emit(clock, farm.Pool, model.EventStake, farmEvent(&farm, owner, amount, pending))
	return pending, nil
}

// Unstake returns LP shares and pays pending rewards. It is allowed at any
// time, including after the farm ends.
// Custody moves made before a failing call are not undone; run it inside
// a batch.Executor for all-or-nothing effects.
func (e *Engine) Unstake(clock model.Clock, owner, farmAddr common.Address, amount uint64) (uint64, error) {
	paid, err := e.unstake(clock, owner, farmAddr, amount)
	return paid, e.finish(OpUnstake, err,
		zap.String("farm", farmAddr.Hex()),
		zap.String("owner", owner.Hex()),
		zap.Uint64("amount", amount),
	)
}

func (e *Engine) unstake(clock model.Clock, owner, farmAddr common.Address, amount uint64) (uint64, error) {
	farm, err := e.loadFarm(farmAddr)
	if err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, ammerr.ErrZeroAmount.Wrapf("unstake amount")
	}
	stake, ok := e.store.Stake(model.StakeKey{Farm: farmAddr, Owner: owner})
	if !ok || stake.StakedAmount < amount {
		return 0, ammerr.ErrInsufficientStake.Wrapf("staked %d, unstaking %d", stake.StakedAmount, amount)
	}
	if err := farming.UpdateRewards(&farm, clock.Slot); err != nil {
		return 0, err
	}

	pending, err := farming.PendingRewards(&farm, stake.StakedAmount, &stake.RewardDebt)
	if err != nil {
		return 0, err
	}
	if pending > 0 {
		if stake.TotalRewardsClaimed, err = fixedpoint.CheckedAdd(stake.TotalRewardsClaimed, pending); err != nil {
			return 0, err
		}
		stake.LastClaimSlot = clock.Slot
	}
	stake.StakedAmount -= amount
	farm.TotalStaked -= amount
	if stake.RewardDebt, err = farming.RewardDebt(&farm, stake.StakedAmount); err != nil {
		return 0, err
	}

	if err := e.custody.Transfer(farm.RewardMint, farm.RewardVault, owner, pending); err != nil {
		return 0, err
	}
	if err := e.custody.Transfer(farm.LPMint, farm.LPVault, owner, amount); err != nil {
		return 0, err
	}

	e.store.PutFarm(farm)
	e.store.PutStake(stake)
	e.metrics.ObserveRewards(farmAddr.Hex(), pending)
	e.emit(clock, farm.Pool, model.EventUnstake, farmEvent(&farm, owner, amount, pending))
	return pending, nil
}

// ClaimRewards pays pending rewards without touching the stake.
func (e *Engine) ClaimRewards(clock model.Clock, owner, farmAddr common.Address) (uint64, error) {
	paid, err := e.claimRewards(clock, owner, farmAddr)
	return paid, e.finish(OpClaimRewards, err,
		zap.String("farm", farmAddr.Hex()),
		zap.String("owner", owner.Hex()),
		zap.Uint64("rewards", paid),
	)
}

func (e *Engine) claimRewards(clock model.Clock, owner, farmAddr common.Address) (uint64, error) {
	farm, err := e.loadFarm(farmAddr)
	if err != nil {
		return 0, err
	}
	stake, ok := e.store.Stake(model.StakeKey{Farm: farmAddr, Owner: owner})
	if !ok {
		return 0, ammerr.ErrNoRewards.Wrapf("%s has no stake", owner.Hex())
	}
	if err := farming.UpdateRewards(&farm, clock.Slot); err != nil {
		return 0, err
	}
	pending, err := farming.PendingRewards(&farm, stake.StakedAmount, &stake.RewardDebt)
	if err != nil {
		return 0, err
	}
	if pending == 0 {
		return 0, ammerr.ErrNoRewards
	}

	if stake.TotalRewardsClaimed, err = fixedpoint.CheckedAdd(stake.TotalRewardsClaimed, pending); err != nil {
		return 0, err
	}
	stake.LastClaimSlot = clock.Slot
	if stake.RewardDebt, err = farming.RewardDebt(&farm, stake.StakedAmount); err != nil {
		return 0, err
	}

	if err := e.custody.Transfer(farm.RewardMint, farm.RewardVault, owner, pending); err != nil {
		return 0, err
	}

	e.store.PutFarm(farm)
	e.store.PutStake(stake)
	e.metrics.ObserveRewards(farmAddr.Hex(), pending)
	e.emit(clock, farm.Pool, model.EventClaimRewards, farmEvent(&farm, owner, 0, pending))
	return pending, nil
}

// PendingRewards previews what ClaimRewards would pay at clock.
func (e *Engine) PendingRewards(clock model.Clock, owner, farmAddr common.Address) (uint64, error) {
	farm, err := e.loadFarm(farmAddr)
	if err != nil {
		return 0, err
	}
	stake, ok := e.store.Stake(model.StakeKey{Farm: farmAddr, Owner: owner})
	if !ok {
		return 0, nil
	}
	if err := farming.UpdateRewards(&farm, clock.Slot); err != nil {
		return 0, err
	}
	return farming.PendingRewards(&farm, stake.StakedAmount, &stake.RewardDebt)
}

func farmEvent(farm *model.FarmingPool, owner common.Address, amount, rewards uint64) model.FarmEventData {
	return model.FarmEventData{
		Farm:        farm.Address.Hex(),
		Owner:       owner.Hex(),
		Amount:      model.FormatAmount(amount),
		Rewards:     model.FormatAmount(rewards),
		TotalStaked: model.FormatAmount(farm.TotalStaked),
	}
}
