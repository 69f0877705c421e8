package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Clock is the host-supplied time source for one call.
type Clock struct {
	Slot          uint64 `json:"slot"`
	UnixTimestamp int64  `json:"timestamp"`
}

// LiquidityProvider is a per (pool, owner) LP position.
type LiquidityProvider struct {
	Pool            common.Address
	Owner           common.Address
	LPTokenAmount   uint64
	InitialDepositA uint64
	InitialDepositB uint64
	CreatedAt       int64
}

// FarmingPool distributes RewardPerSlot reward units across LP stakers
// between StartSlot and EndSlot.
type FarmingPool struct {
	Address     common.Address
	Authority   common.Address
	Pool        common.Address
	LPMint      common.Address
	RewardMint  common.Address
	RewardVault common.Address
	LPVault     common.Address

	TotalStaked    uint64
	RewardPerSlot  uint64
	StartSlot      uint64
	EndSlot        uint64
	LastUpdateSlot uint64

	// scaled by fixedpoint.RewardPrecision, never decreases
	AccumulatedRewardPerShare uint256.Int
	TotalRewardsDistributed   uint64
	IsActive                  bool
}

// UserStake is a per (farm, owner) staking position.
type UserStake struct {
	Farm                common.Address
	Owner               common.Address
	StakedAmount        uint64
	RewardDebt          uint256.Int
	CreatedAt           int64
	LastClaimSlot       uint64
	TotalRewardsClaimed uint64
}

// FlashLoanRecord tracks an open loan until it is repaid within its slot.
type FlashLoanRecord struct {
	Pool            common.Address
	Borrower        common.Address
	AmountABorrowed uint64
	AmountBBorrowed uint64
	FeeA            uint64
	FeeB            uint64
	InitiatedSlot   uint64
	IsRepaid        bool
}
