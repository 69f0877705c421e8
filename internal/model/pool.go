package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"ammEngine/internal/pricing"
)

// Pool is the state record of one two-asset constant-product pool.
// Cumulative prices are plain uint256 values so copying a Pool copies them too.
type Pool struct {
	Address   common.Address
	Authority common.Address

	AssetA common.Address
	AssetB common.Address
	VaultA common.Address
	VaultB common.Address
	LPMint common.Address

	ReserveA      uint64
	ReserveB      uint64
	TotalLPSupply uint64

	FeeNumerator   uint64
	FeeDenominator uint64

	OracleA               common.Address
	OracleB               common.Address
	OracleMaxAge          uint64
	OracleMaxDeviationBps uint64

	IsPaused bool

	CumulativePriceA    uint256.Int
	CumulativePriceB    uint256.Int
	LastUpdateTimestamp int64

	TotalVolumeA uint64
	TotalVolumeB uint64
	TotalFeesA   uint64
	TotalFeesB   uint64

	CreatedAt int64
}

// Fee returns the pool's swap fee schedule.
func (p *Pool) Fee() pricing.Fee {
	return pricing.Fee{Numerator: p.FeeNumerator, Denominator: p.FeeDenominator}
}

// IsEmpty reports whether the pool holds no liquidity.
func (p *Pool) IsEmpty() bool {
	return p.ReserveA == 0 && p.ReserveB == 0 && p.TotalLPSupply == 0
}

// Side resolves which side of the pool an asset sits on.
func (p *Pool) Side(asset common.Address) (aToB bool, ok bool) {
	switch asset {
	case p.AssetA:
		return true, true
	case p.AssetB:
		return false, true
	default:
		return false, false
	}
}

// Reserves returns (reserveIn, reserveOut) for a swap direction.
func (p *Pool) Reserves(aToB bool) (uint64, uint64) {
	if aToB {
		return p.ReserveA, p.ReserveB
	}
	return p.ReserveB, p.ReserveA
}

// Vaults returns (vaultIn, vaultOut) for a swap direction.
func (p *Pool) Vaults(aToB bool) (common.Address, common.Address) {
	if aToB {
		return p.VaultA, p.VaultB
	}
	return p.VaultB, p.VaultA
}

// Assets returns (assetIn, assetOut) for a swap direction.
func (p *Pool) Assets(aToB bool) (common.Address, common.Address) {
	if aToB {
		return p.AssetA, p.AssetB
	}
	return p.AssetB, p.AssetA
}
