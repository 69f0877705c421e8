package model

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Seeds used to derive deterministic addresses.
const (
	SeedPool         = "pool"
	SeedLPMint       = "lp_mint"
	SeedTokenAVault  = "token_a_vault"
	SeedTokenBVault  = "token_b_vault"
	SeedLPProvider   = "lp_provider"
	SeedFarmingPool  = "farming_pool"
	SeedRewardVault  = "reward_vault"
	SeedFarmLPVault  = "farm_lp_vault"
	SeedUserStake    = "user_stake"
	SeedFlashLoan    = "flash_loan"
	SeedIntermediate = "hop_intermediate"
)

// DeriveAddress hashes a seed and its parts into an address.
func DeriveAddress(seed string, parts ...[]byte) common.Address {
	data := make([][]byte, 0, len(parts)+1)
	data = append(data, []byte(seed))
	data = append(data, parts...)
	return common.BytesToAddress(crypto.Keccak256(data...)[12:])
}

// PoolAddress is order sensitive: (A, B) and (B, A) are different pools.
func PoolAddress(assetA, assetB common.Address) common.Address {
	return DeriveAddress(SeedPool, assetA.Bytes(), assetB.Bytes())
}

func LPMintAddress(pool common.Address) common.Address {
	return DeriveAddress(SeedLPMint, pool.Bytes())
}

func VaultAAddress(pool common.Address) common.Address {
	return DeriveAddress(SeedTokenAVault, pool.Bytes())
}

func VaultBAddress(pool common.Address) common.Address {
	return DeriveAddress(SeedTokenBVault, pool.Bytes())
}

func FarmAddress(pool common.Address) common.Address {
	return DeriveAddress(SeedFarmingPool, pool.Bytes())
}

func RewardVaultAddress(farm common.Address) common.Address {
	return DeriveAddress(SeedRewardVault, farm.Bytes())
}

func FarmLPVaultAddress(farm common.Address) common.Address {
	return DeriveAddress(SeedFarmLPVault, farm.Bytes())
}

// IntermediateAddress is the holding account for the output of hop index
// (zero based) of a multi-hop swap made by owner.
func IntermediateAddress(owner common.Address, hop int) common.Address {
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], uint64(hop))
	return DeriveAddress(SeedIntermediate, owner.Bytes(), idx[:])
}

// ProviderKey addresses a LiquidityProvider in the store.
type ProviderKey struct {
	Pool  common.Address
	Owner common.Address
}

// StakeKey addresses a UserStake in the store.
type StakeKey struct {
	Farm  common.Address
	Owner common.Address
}

// LoanKey addresses a FlashLoanRecord in the store.
type LoanKey struct {
	Pool     common.Address
	Borrower common.Address
}
