package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"ammEngine/internal/amm"
	"ammEngine/internal/batch"
	"ammEngine/internal/model"
	"ammEngine/internal/oracle"
)

// Host operations that set up a scenario without going through the engine.
const (
	OpMint     = "mint"
	OpSetPrice = "set_price"
)

// Minter credits balances to scenario accounts.
type Minter interface {
	Mint(asset, to common.Address, amount uint64) error
}

// PriceSetter publishes feed samples.
type PriceSetter interface {
	Set(ref common.Address, sample oracle.Sample)
}

type mintParams struct {
	Asset  string `json:"asset"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type setPriceParams struct {
	Feed        string `json:"feed"`
	Price       int64  `json:"price"`
	Confidence  uint64 `json:"confidence"`
	Exponent    int32  `json:"exponent"`
	PublishTime int64  `json:"publish_time"`
}

type initPoolParams struct {
	AssetA                string `json:"asset_a"`
	AssetB                string `json:"asset_b"`
	OracleA               string `json:"oracle_a"`
	OracleB               string `json:"oracle_b"`
	FeeNumerator          uint64 `json:"fee_numerator"`
	FeeDenominator        uint64 `json:"fee_denominator"`
	OracleMaxAge          uint64 `json:"oracle_max_age"`
	OracleMaxDeviationBps uint64 `json:"oracle_max_deviation_bps"`
}

type addLiquidityParams struct {
	Pool         string `json:"pool"`
	AmountA      uint64 `json:"amount_a"`
	AmountB      uint64 `json:"amount_b"`
	MinLiquidity uint64 `json:"min_liquidity"`
}

type removeLiquidityParams struct {
	Pool      string `json:"pool"`
	Liquidity uint64 `json:"liquidity"`
	MinA      uint64 `json:"min_a"`
	MinB      uint64 `json:"min_b"`
}

type swapParams struct {
	Pool         string `json:"pool"`
	Recipient    string `json:"recipient"`
	AmountIn     uint64 `json:"amount_in"`
	MinAmountOut uint64 `json:"min_amount_out"`
	AToB         bool   `json:"a_to_b"`
}

type multiHopParams struct {
	AssetIn      string   `json:"asset_in"`
	Route        []string `json:"route"`
	AmountIn     uint64   `json:"amount_in"`
	MinAmountOut uint64   `json:"min_amount_out"`
}

type flashLoanParams struct {
	Pool    string `json:"pool"`
	AmountA uint64 `json:"amount_a"`
	AmountB uint64 `json:"amount_b"`
}

type repayParams struct {
	Pool     string `json:"pool"`
	Borrower string `json:"borrower"`
}

type initFarmParams struct {
	Pool          string `json:"pool"`
	RewardMint    string `json:"reward_mint"`
	RewardPerSlot uint64 `json:"reward_per_slot"`
	StartSlot     uint64 `json:"start_slot"`
	EndSlot       uint64 `json:"end_slot"`
}

type farmAmountParams struct {
	Farm   string `json:"farm"`
	Amount uint64 `json:"amount"`
}

type poolParams struct {
	Pool string `json:"pool"`
}

type updateFeesParams struct {
	Pool           string `json:"pool"`
	FeeNumerator   uint64 `json:"fee_numerator"`
	FeeDenominator uint64 `json:"fee_denominator"`
}

type transferAuthorityParams struct {
	Pool         string `json:"pool"`
	NewAuthority string `json:"new_authority"`
}

type oracleConfigParams struct {
	Pool            string  `json:"pool"`
	MaxAge          *uint64 `json:"max_age"`
	MaxDeviationBps *uint64 `json:"max_deviation_bps"`
}

// StepBuilder turns scenario records into batch steps against one engine.
type StepBuilder struct {
	Engine *amm.Engine
	Minter Minter
	Prices PriceSetter
}

// Build decodes rec and returns the step that applies it.
func (b *StepBuilder) Build(rec model.OperationRecord) (batch.Step, error) {
	signer, err := parseAddress("signer", rec.Signer, rec.Op == OpMint || rec.Op == OpSetPrice)
	if err != nil {
		return batch.Step{}, err
	}
	run, err := b.build(rec, signer)
	if err != nil {
		return batch.Step{}, fmt.Errorf("%s: %w", rec.Op, err)
	}
	return batch.Step{Name: rec.Op, Signer: signer, Run: run}, nil
}

type runFunc = func(ctx context.Context, clock model.Clock) error

func (b *StepBuilder) build(rec model.OperationRecord, signer common.Address) (runFunc, error) {
	e := b.Engine
	var addrErr error
	addr := func(field, value string) common.Address {
		a, err := parseAddress(field, value, false)
		if err != nil && addrErr == nil {
			addrErr = err
		}
		return a
	}
	optional := func(field, value string) common.Address {
		a, err := parseAddress(field, value, true)
		if err != nil && addrErr == nil {
			addrErr = err
		}
		return a
	}

	var run runFunc
	switch rec.Op {
	case OpMint:
		var p mintParams
		if err := decodeParams(rec.Params, &p); err != nil {
			return nil, err
		}
		asset, to := addr("asset", p.Asset), addr("to", p.To)
		if b.Minter == nil {
			return nil, fmt.Errorf("no ledger to mint into")
		}
		run = func(context.Context, model.Clock) error {
			return b.Minter.Mint(asset, to, p.Amount)
		}

	case OpSetPrice:
		var p setPriceParams
		if err := decodeParams(rec.Params, &p); err != nil {
			return nil, err
		}
		feed := addr("feed", p.Feed)
		if b.Prices == nil {
			return nil, fmt.Errorf("price feed is read-only")
		}
		run = func(_ context.Context, clock model.Clock) error {
			sample := oracle.Sample{Price: p.Price, Confidence: p.Confidence, Exponent: p.Exponent, PublishTime: p.PublishTime}
			if sample.PublishTime == 0 {
				sample.PublishTime = clock.UnixTimestamp
			}
			b.Prices.Set(feed, sample)
			return nil
		}

	case amm.OpInitializePool:
		var p initPoolParams
		if err := decodeParams(rec.Params, &p); err != nil {
			return nil, err
		}
		params := amm.InitPoolParams{
			Authority:             signer,
			AssetA:                addr("asset_a", p.AssetA),
			AssetB:                addr("asset_b", p.AssetB),
			OracleA:               optional("oracle_a", p.OracleA),
			OracleB:               optional("oracle_b", p.OracleB),
			FeeNumerator:          p.FeeNumerator,
			FeeDenominator:        p.FeeDenominator,
			OracleMaxAge:          p.OracleMaxAge,
			OracleMaxDeviationBps: p.OracleMaxDeviationBps,
		}
		run = func(_ context.Context, clock model.Clock) error {
			_, err := e.InitializePool(clock, params)
			return err
		}

	case amm.OpAddLiquidity:
		var p addLiquidityParams
		if err := decodeParams(rec.Params, &p); err != nil {
			return nil, err
		}
		pool := addr("pool", p.Pool)
		run = func(_ context.Context, clock model.Clock) error {
			_, err := e.AddLiquidity(clock, signer, pool, p.AmountA, p.AmountB, p.MinLiquidity)
			return err
		}

	case amm.OpRemoveLiquidity:
		var p removeLiquidityParams
		if err := decodeParams(rec.Params, &p); err != nil {
			return nil, err
		}
		pool := addr("pool", p.Pool)
		run = func(_ context.Context, clock model.Clock) error {
			_, _, err := e.RemoveLiquidity(clock, signer, pool, p.Liquidity, p.MinA, p.MinB)
			return err
		}

	case amm.OpSwap:
		var p swapParams
		if err := decodeParams(rec.Params, &p); err != nil {
			return nil, err
		}
		params := amm.SwapParams{
			Signer:       signer,
			Recipient:    optional("recipient", p.Recipient),
			Pool:         addr("pool", p.Pool),
			AmountIn:     p.AmountIn,
			MinAmountOut: p.MinAmountOut,
			AToB:         p.AToB,
		}
		run = func(ctx context.Context, clock model.Clock) error {
			_, err := e.Swap(ctx, clock, params)
			return err
		}

	case amm.OpMultiHopSwap:
		var p multiHopParams
		if err := decodeParams(rec.Params, &p); err != nil {
			return nil, err
		}
		route, err := ParseAddresses(p.Route)
		if err != nil {
			return nil, err
		}
		params := amm.MultiHopParams{
			Signer:       signer,
			AssetIn:      addr("asset_in", p.AssetIn),
			Route:        route,
			AmountIn:     p.AmountIn,
			MinAmountOut: p.MinAmountOut,
		}
		run = func(ctx context.Context, clock model.Clock) error {
			_, err := e.MultiHopSwap(ctx, clock, params)
			return err
		}

	case amm.OpFlashLoan:
		var p flashLoanParams
		if err := decodeParams(rec.Params, &p); err != nil {
			return nil, err
		}
		pool := addr("pool", p.Pool)
		run = func(_ context.Context, clock model.Clock) error {
			_, err := e.FlashLoan(clock, signer, pool, p.AmountA, p.AmountB)
			return err
		}

	case amm.OpFlashLoanRepay:
		var p repayParams
		if err := decodeParams(rec.Params, &p); err != nil {
			return nil, err
		}
		pool := addr("pool", p.Pool)
		borrower := optional("borrower", p.Borrower)
		if borrower == (common.Address{}) {
			borrower = signer
		}
		run = func(_ context.Context, clock model.Clock) error {
			return e.RepayFlashLoan(clock, signer, pool, borrower)
		}

	case amm.OpInitializeFarm:
		var p initFarmParams
		if err := decodeParams(rec.Params, &p); err != nil {
			return nil, err
		}
		params := amm.InitFarmParams{
			Authority:     signer,
			Pool:          addr("pool", p.Pool),
			RewardMint:    addr("reward_mint", p.RewardMint),
			RewardPerSlot: p.RewardPerSlot,
			StartSlot:     p.StartSlot,
			EndSlot:       p.EndSlot,
		}
		run = func(_ context.Context, clock model.Clock) error {
			_, err := e.InitializeFarm(clock, params)
			return err
		}

	case amm.OpFundFarm, amm.OpStake, amm.OpUnstake, amm.OpClaimRewards:
		var p farmAmountParams
		if err := decodeParams(rec.Params, &p); err != nil {
			return nil, err
		}
		farm := addr("farm", p.Farm)
		op := rec.Op
		run = func(_ context.Context, clock model.Clock) error {
			var err error
			switch op {
			case amm.OpFundFarm:
				err = e.FundFarm(clock, signer, farm, p.Amount)
			case amm.OpStake:
				_, err = e.Stake(clock, signer, farm, p.Amount)
			case amm.OpUnstake:
				_, err = e.Unstake(clock, signer, farm, p.Amount)
			default:
				_, err = e.ClaimRewards(clock, signer, farm)
			}
			return err
		}

	case amm.OpPausePool, amm.OpUnpausePool:
		var p poolParams
		if err := decodeParams(rec.Params, &p); err != nil {
			return nil, err
		}
		pool := addr("pool", p.Pool)
		pause := rec.Op == amm.OpPausePool
		run = func(_ context.Context, clock model.Clock) error {
			if pause {
				return e.PausePool(clock, signer, pool)
			}
			return e.UnpausePool(clock, signer, pool)
		}

	case amm.OpUpdateFees:
		var p updateFeesParams
		if err := decodeParams(rec.Params, &p); err != nil {
			return nil, err
		}
		pool := addr("pool", p.Pool)
		run = func(_ context.Context, clock model.Clock) error {
			return e.UpdateFees(clock, signer, pool, p.FeeNumerator, p.FeeDenominator)
		}

	case amm.OpTransferAuthority:
		var p transferAuthorityParams
		if err := decodeParams(rec.Params, &p); err != nil {
			return nil, err
		}
		pool := addr("pool", p.Pool)
		next := optional("new_authority", p.NewAuthority)
		run = func(_ context.Context, clock model.Clock) error {
			return e.TransferAuthority(clock, signer, pool, next)
		}

	case amm.OpUpdateOracleConfig:
		var p oracleConfigParams
		if err := decodeParams(rec.Params, &p); err != nil {
			return nil, err
		}
		pool := addr("pool", p.Pool)
		run = func(_ context.Context, clock model.Clock) error {
			return e.UpdateOracleConfig(clock, signer, pool, p.MaxAge, p.MaxDeviationBps)
		}

	default:
		return nil, fmt.Errorf("unknown operation")
	}

	if addrErr != nil {
		return nil, addrErr
	}
	return run, nil
}

func decodeParams(raw json.RawMessage, out interface{}) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	return nil
}
