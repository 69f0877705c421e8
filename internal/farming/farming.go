package farming

import (
	gomath "math"

	"github.com/holiman/uint256"

	"ammEngine/internal/ammerr"
	"ammEngine/internal/fixedpoint"
	"ammEngine/internal/model"
)

const (
	// MinDuration is roughly one hour of slots.
	MinDuration uint64 = 9_000
	// MaxDuration is roughly thirty days of slots.
	MaxDuration uint64 = 6_480_000
)

var rewardPrecision = uint256.NewInt(fixedpoint.RewardPrecision)

// ValidateSchedule checks the parameters of a new farm at currentSlot.
func ValidateSchedule(rewardPerSlot, startSlot, endSlot, currentSlot uint64) error {
	if rewardPerSlot == 0 {
		return ammerr.ErrInvalidPoolConfig.Wrapf("reward per slot must be positive")
	}
	if startSlot < currentSlot {
		return ammerr.ErrInvalidPoolConfig.Wrapf("start slot %d before current slot %d", startSlot, currentSlot)
	}
	if endSlot <= startSlot {
		return ammerr.ErrInvalidPoolConfig.Wrapf("end slot %d not after start slot %d", endSlot, startSlot)
	}
	if duration := endSlot - startSlot; duration < MinDuration || duration > MaxDuration {
		return ammerr.ErrInvalidPoolConfig.Wrapf("duration %d outside [%d, %d]", duration, MinDuration, MaxDuration)
	}
	return nil
}

// CheckStakeWindow rejects new stake outside [StartSlot, EndSlot) or on an
// inactive farm. Unstake and claim never call it.
func CheckStakeWindow(farm *model.FarmingPool, currentSlot uint64) error {
	if !farm.IsActive {
		return ammerr.ErrFarmingNotActive
	}
	if currentSlot < farm.StartSlot {
		return ammerr.ErrFarmingNotStarted.Wrapf("slot %d < start %d", currentSlot, farm.StartSlot)
	}
	if currentSlot >= farm.EndSlot {
		return ammerr.ErrFarmingEnded.Wrapf("slot %d >= end %d", currentSlot, farm.EndSlot)
	}
	return nil
}

// UpdateRewards accrues rewards up to currentSlot. Accrual stops at EndSlot
// but the watermark still moves to currentSlot. With nothing staked the
// elapsed slots are dropped.
func UpdateRewards(farm *model.FarmingPool, currentSlot uint64) error {
	if farm.TotalStaked == 0 {
		farm.LastUpdateSlot = currentSlot
		return nil
	}

	effectiveEnd := currentSlot
	if farm.EndSlot < effectiveEnd {
		effectiveEnd = farm.EndSlot
	}
	if effectiveEnd <= farm.LastUpdateSlot {
		return nil
	}

	elapsed := effectiveEnd - farm.LastUpdateSlot
	rewards := new(uint256.Int).Mul(uint256.NewInt(farm.RewardPerSlot), uint256.NewInt(elapsed))
	perShare, err := fixedpoint.MulDivU128(rewards, rewardPrecision, uint256.NewInt(farm.TotalStaked))
	if err != nil {
		return err
	}
	acc, err := fixedpoint.AddU128(&farm.AccumulatedRewardPerShare, perShare)
	if err != nil {
		return err
	}

	farm.AccumulatedRewardPerShare = *acc
	distributed := uint64(gomath.MaxUint64)
	if rewards.IsUint64() {
		distributed = rewards.Uint64()
	}
	farm.TotalRewardsDistributed = fixedpoint.SaturatingAdd(farm.TotalRewardsDistributed, distributed)
	farm.LastUpdateSlot = currentSlot
	return nil
}

// RewardDebt returns stakedAmount * acc / 10^12.
func RewardDebt(farm *model.FarmingPool, stakedAmount uint64) (uint256.Int, error) {
	debt, err := fixedpoint.MulDivU128(uint256.NewInt(stakedAmount), &farm.AccumulatedRewardPerShare, rewardPrecision)
	if err != nil {
		return uint256.Int{}, err
	}
	return *debt, nil
}

// PendingRewards returns stakedAmount*acc/10^12 - rewardDebt, floored at zero.
func PendingRewards(farm *model.FarmingPool, stakedAmount uint64, rewardDebt *uint256.Int) (uint64, error) {
	accrued, err := RewardDebt(farm, stakedAmount)
	if err != nil {
		return 0, err
	}
	if accrued.Lt(rewardDebt) {
		return 0, nil
	}
	pending := new(uint256.Int).Sub(&accrued, rewardDebt)
	return fixedpoint.ToUint64(pending)
}
