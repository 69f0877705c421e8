package model

import (
	"strconv"
)

// PoolSnapshot is a flattened Pool for storage and reports.
type PoolSnapshot struct {
	Address               string `json:"address"`
	Authority             string `json:"authority"`
	AssetA                string `json:"asset_a"`
	AssetB                string `json:"asset_b"`
	ReserveA              string `json:"reserve_a"`
	ReserveB              string `json:"reserve_b"`
	TotalLPSupply         string `json:"total_lp_supply"`
	FeeNumerator          uint64 `json:"fee_numerator"`
	FeeDenominator        uint64 `json:"fee_denominator"`
	OracleMaxAge          uint64 `json:"oracle_max_age"`
	OracleMaxDeviationBps uint64 `json:"oracle_max_deviation_bps"`
	IsPaused              bool   `json:"is_paused"`
	CumulativePriceA      string `json:"cumulative_price_a"`
	CumulativePriceB      string `json:"cumulative_price_b"`
	LastUpdateTimestamp   int64  `json:"last_update_timestamp"`
	TotalVolumeA          string `json:"total_volume_a"`
	TotalVolumeB          string `json:"total_volume_b"`
	TotalFeesA            string `json:"total_fees_a"`
	TotalFeesB            string `json:"total_fees_b"`
	Slot                  uint64 `json:"slot"`
}

// Snapshot flattens p as of slot.
func (p *Pool) Snapshot(slot uint64) PoolSnapshot {
	return PoolSnapshot{
		Address:               p.Address.Hex(),
		Authority:             p.Authority.Hex(),
		AssetA:                p.AssetA.Hex(),
		AssetB:                p.AssetB.Hex(),
		ReserveA:              FormatAmount(p.ReserveA),
		ReserveB:              FormatAmount(p.ReserveB),
		TotalLPSupply:         FormatAmount(p.TotalLPSupply),
		FeeNumerator:          p.FeeNumerator,
		FeeDenominator:        p.FeeDenominator,
		OracleMaxAge:          p.OracleMaxAge,
		OracleMaxDeviationBps: p.OracleMaxDeviationBps,
		IsPaused:              p.IsPaused,
		CumulativePriceA:      p.CumulativePriceA.ToBig().String(),
		CumulativePriceB:      p.CumulativePriceB.ToBig().String(),
		LastUpdateTimestamp:   p.LastUpdateTimestamp,
		TotalVolumeA:          FormatAmount(p.TotalVolumeA),
		TotalVolumeB:          FormatAmount(p.TotalVolumeB),
		TotalFeesA:            FormatAmount(p.TotalFeesA),
		TotalFeesB:            FormatAmount(p.TotalFeesB),
		Slot:                  slot,
	}
}

// FormatAmount renders a token amount as a decimal string.
func FormatAmount(v uint64) string {
	return strconv.FormatUint(v, 10)
}
