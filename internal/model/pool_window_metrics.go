package model

import "time"

// PoolWindowMetrics stores aggregated metrics for a pool window.
type PoolWindowMetrics struct {
	RunID          string    `json:"run_id"`
	PoolAddress    string    `json:"pool_address"`
	WindowSizeSecs int64     `json:"window_size_seconds"`
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	SwapCount      uint64    `json:"swap_count"`
	VolumeA        string    `json:"volume_a"`
	VolumeB        string    `json:"volume_b"`
	FeeA           string    `json:"fee_a"`
	FeeB           string    `json:"fee_b"`
	FlashFeeA      string    `json:"flash_fee_a"`
	FlashFeeB      string    `json:"flash_fee_b"`
	FeeRateA       *string   `json:"fee_rate_a,omitempty"`
	FeeRateB       *string   `json:"fee_rate_b,omitempty"`
	ReserveA       *string   `json:"reserve_a,omitempty"`
	ReserveB       *string   `json:"reserve_b,omitempty"`
	APR            *string   `json:"apr,omitempty"`
	FeeMethod      string    `json:"fee_method"`
}
