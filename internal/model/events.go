package model

// Event names emitted by the engine.
const (
	EventPoolInitialized = "pool_initialized"
	EventSwap            = "swap"
	EventAddLiquidity    = "add_liquidity"
	EventRemoveLiquidity = "remove_liquidity"
	EventFlashLoan       = "flash_loan"
	EventFlashLoanRepay  = "flash_loan_repay"
	EventFarmInitialized = "farm_initialized"
	EventFarmFunded      = "farm_funded"
	EventStake           = "stake"
	EventUnstake         = "unstake"
	EventClaimRewards    = "claim_rewards"
	EventAdmin           = "admin"
)

// PoolInitializedData is the payload of a pool_initialized event.
type PoolInitializedData struct {
	Authority             string `json:"authority"`
	AssetA                string `json:"asset_a"`
	AssetB                string `json:"asset_b"`
	LPMint                string `json:"lp_mint"`
	FeeNumerator          uint64 `json:"fee_numerator"`
	FeeDenominator        uint64 `json:"fee_denominator"`
	OracleMaxAge          uint64 `json:"oracle_max_age"`
	OracleMaxDeviationBps uint64 `json:"oracle_max_deviation_bps"`
}

// SwapEventData is the payload of a swap event. Amounts are decimal strings.
type SwapEventData struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	AssetIn   string `json:"asset_in"`
	AssetOut  string `json:"asset_out"`
	AToB      bool   `json:"a_to_b"`
	AmountIn  string `json:"amount_in"`
	AmountOut string `json:"amount_out"`
	Fee       string `json:"fee"`
	ReserveA  string `json:"reserve_a"`
	ReserveB  string `json:"reserve_b"`
	Hop       int    `json:"hop,omitempty"`
}

// LiquidityEventData is the payload of add_liquidity and remove_liquidity.
type LiquidityEventData struct {
	Owner       string `json:"owner"`
	AmountA     string `json:"amount_a"`
	AmountB     string `json:"amount_b"`
	Liquidity   string `json:"liquidity"`
	ReserveA    string `json:"reserve_a"`
	ReserveB    string `json:"reserve_b"`
	TotalSupply string `json:"total_supply"`
}

// FlashLoanEventData is the payload of flash_loan and flash_loan_repay.
type FlashLoanEventData struct {
	Borrower string `json:"borrower"`
	AmountA  string `json:"amount_a"`
	AmountB  string `json:"amount_b"`
	FeeA     string `json:"fee_a"`
	FeeB     string `json:"fee_b"`
}

// FarmEventData is the payload of farming events.
type FarmEventData struct {
	Farm        string `json:"farm"`
	Owner       string `json:"owner"`
	Amount      string `json:"amount"`
	Rewards     string `json:"rewards"`
	TotalStaked string `json:"total_staked"`
}

// AdminEventData is the payload of admin events.
type AdminEventData struct {
	Authority string `json:"authority"`
	Action    string `json:"action"`
	Detail    string `json:"detail,omitempty"`
}
