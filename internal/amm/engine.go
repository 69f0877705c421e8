package amm

import (
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ammEngine/internal/ammerr"
	"ammEngine/internal/custody"
	"ammEngine/internal/metrics"
	"ammEngine/internal/model"
	"ammEngine/internal/oracle"
	"ammEngine/internal/store"
)

// Operation names used for metrics, logs and scenario files.
const (
	OpInitializePool     = "initialize_pool"
	OpAddLiquidity       = "add_liquidity"
	OpRemoveLiquidity    = "remove_liquidity"
	OpSwap               = "swap"
	OpMultiHopSwap       = "multi_hop_swap"
	OpFlashLoan          = "flash_loan"
	OpFlashLoanRepay     = "flash_loan_repay"
	OpInitializeFarm     = "initialize_farm"
	OpFundFarm           = "fund_farm"
	OpStake              = "stake"
	OpUnstake            = "unstake"
	OpClaimRewards       = "claim_rewards"
	OpPausePool          = "pause_pool"
	OpUnpausePool        = "unpause_pool"
	OpUpdateFees         = "update_fees"
	OpTransferAuthority  = "transfer_authority"
	OpUpdateOracleConfig = "update_oracle_config"
)

// Emitter receives the events of applied operations in order.
type Emitter interface {
	Emit(clock model.Clock, pool common.Address, name string, data interface{})
}

type nopEmitter struct{}

func (nopEmitter) Emit(model.Clock, common.Address, string, interface{}) {}

// Engine applies pool, flash loan and farming operations against a store.
// Every operation works on copies of the records it touches and writes them
// back only after all checks and custody calls succeed. Rolling back custody
// movements of a failed operation is left to the caller (see package batch).
type Engine struct {
	store   store.Store
	custody custody.Custody
	guard   *oracle.Guard
	events  Emitter
	metrics *metrics.EngineMetrics
	logger  *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithEmitter(emitter Emitter) Option {
	return func(e *Engine) {
		if emitter != nil {
			e.events = emitter
		}
	}
}

func WithMetrics(m *metrics.EngineMetrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New builds an Engine over a record store, a custody backend and a price feed.
func New(s store.Store, c custody.Custody, feed oracle.Feed, opts ...Option) *Engine {
	e := &Engine{
		store:   s,
		custody: c,
		guard:   oracle.NewGuard(feed),
		events:  nopEmitter{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetEmitter replaces the event receiver.
func (e *Engine) SetEmitter(emitter Emitter) {
	if emitter == nil {
		emitter = nopEmitter{}
	}
	e.events = emitter
}

func (e *Engine) loadPool(addr common.Address) (model.Pool, error) {
	pool, ok := e.store.Pool(addr)
	if !ok {
		return model.Pool{}, ammerr.ErrPoolNotFound.Wrapf("pool %s", addr.Hex())
	}
	return pool, nil
}

func (e *Engine) loadFarm(addr common.Address) (model.FarmingPool, error) {
	farm, ok := e.store.Farm(addr)
	if !ok {
		return model.FarmingPool{}, ammerr.ErrFarmNotFound.Wrapf("farm %s", addr.Hex())
	}
	return farm, nil
}

func (e *Engine) emit(clock model.Clock, pool common.Address, name string, data interface{}) {
	e.events.Emit(clock, pool, name, data)
}

// finish records the outcome of op and passes err through.
func (e *Engine) finish(op string, err error, fields ...zap.Field) error {
	if err != nil {
		e.metrics.ObserveRejection(op, ammerr.CodeOf(err))
		e.logger.Debug("operation rejected", append(fields, zap.String("op", op), zap.Error(err))...)
		return err
	}
	e.metrics.ObserveOperation(op)
	e.logger.Debug("operation applied", append(fields, zap.String("op", op))...)
	return nil
}

func requireAuthority(pool *model.Pool, signer common.Address) error {
	if pool.Authority != signer {
		return ammerr.ErrUnauthorized.Wrapf("signer %s is not the authority of pool %s", signer.Hex(), pool.Address.Hex())
	}
	return nil
}
