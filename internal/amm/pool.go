package amm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ammEngine/internal/ammerr"
	"ammEngine/internal/fixedpoint"
	"ammEngine/internal/model"
	"ammEngine/internal/pricing"
)

// InitPoolParams describes a new pool.
type InitPoolParams struct {
	Authority             common.Address
	AssetA                common.Address
	AssetB                common.Address
	OracleA               common.Address
	OracleB               common.Address
	FeeNumerator          uint64
	FeeDenominator        uint64
	OracleMaxAge          uint64
	OracleMaxDeviationBps uint64
}

func validateOracleConfig(maxAge, maxDeviationBps uint64) error {
	if maxAge == 0 {
		return ammerr.ErrInvalidOracle.Wrapf("oracle max age must be positive")
	}
	if maxDeviationBps > fixedpoint.MaxBps {
		return ammerr.ErrInvalidOracle.Wrapf("max deviation %d bps above %d", maxDeviationBps, fixedpoint.MaxBps)
	}
	return nil
}

// InitializePool creates an empty pool for (AssetA, AssetB). The pair is
// ordered: (B, A) is a different pool.
func (e *Engine) InitializePool(clock model.Clock, p InitPoolParams) (model.Pool, error) {
	pool, err := e.initializePool(clock, p)
	return pool, e.finish(OpInitializePool, err, zap.String("pool", pool.Address.Hex()))
}

func (e *Engine) initializePool(clock model.Clock, p InitPoolParams) (model.Pool, error) {
	fee := pricing.Fee{Numerator: p.FeeNumerator, Denominator: p.FeeDenominator}
	if err := fee.Validate(); err != nil {
		return model.Pool{}, err
	}
	if err := validateOracleConfig(p.OracleMaxAge, p.OracleMaxDeviationBps); err != nil {
		return model.Pool{}, err
	}
	if p.AssetA == p.AssetB {
		return model.Pool{}, ammerr.ErrInvalidPoolConfig.Wrapf("assets must differ")
	}

	addr := model.PoolAddress(p.AssetA, p.AssetB)
	if _, exists := e.store.Pool(addr); exists {
		return model.Pool{}, ammerr.ErrPoolExists.Wrapf("pool %s", addr.Hex())
	}

	pool := model.Pool{
		Address:               addr,
		Authority:             p.Authority,
		AssetA:                p.AssetA,
		AssetB:                p.AssetB,
		VaultA:                model.VaultAAddress(addr),
		VaultB:                model.VaultBAddress(addr),
		LPMint:                model.LPMintAddress(addr),
		FeeNumerator:          p.FeeNumerator,
		FeeDenominator:        p.FeeDenominator,
		OracleA:               p.OracleA,
		OracleB:               p.OracleB,
		OracleMaxAge:          p.OracleMaxAge,
		OracleMaxDeviationBps: p.OracleMaxDeviationBps,
		LastUpdateTimestamp:   clock.UnixTimestamp,
		CreatedAt:             clock.UnixTimestamp,
	}
	e.store.PutPool(pool)

	e.emit(clock, addr, model.EventPoolInitialized, model.PoolInitializedData{
		Authority:             p.Authority.Hex(),
		AssetA:                p.AssetA.Hex(),
		AssetB:                p.AssetB.Hex(),
		LPMint:                pool.LPMint.Hex(),
		FeeNumerator:          p.FeeNumerator,
		FeeDenominator:        p.FeeDenominator,
		OracleMaxAge:          p.OracleMaxAge,
		OracleMaxDeviationBps: p.OracleMaxDeviationBps,
	})
	return pool, nil
}

// PausePool stops swaps, liquidity changes and flash loans on a pool.
func (e *Engine) PausePool(clock model.Clock, signer, poolAddr common.Address) error {
	err := e.adminUpdate(clock, signer, poolAddr, "pause", func(pool *model.Pool) (string, error) {
		if pool.IsPaused {
			return "", ammerr.ErrPoolPaused.Wrapf("already paused")
		}
		pool.IsPaused = true
		return "", nil
	})
	return e.finish(OpPausePool, err, zap.String("pool", poolAddr.Hex()))
}

func (e *Engine) UnpausePool(clock model.Clock, signer, poolAddr common.Address) error {
	err := e.adminUpdate(clock, signer, poolAddr, "unpause", func(pool *model.Pool) (string, error) {
		if !pool.IsPaused {
			return "", ammerr.ErrInvalidPoolConfig.Wrapf("pool is not paused")
		}
		pool.IsPaused = false
		return "", nil
	})
	return e.finish(OpUnpausePool, err, zap.String("pool", poolAddr.Hex()))
}

// UpdateFees replaces the swap fee schedule.
func (e *Engine) UpdateFees(clock model.Clock, signer, poolAddr common.Address, numerator, denominator uint64) error {
	err := e.adminUpdate(clock, signer, poolAddr, "update_fees", func(pool *model.Pool) (string, error) {
		fee := pricing.Fee{Numerator: numerator, Denominator: denominator}
		if err := fee.Validate(); err != nil {
			return "", err
		}
		detail := fmt.Sprintf("%d/%d -> %d/%d", pool.FeeNumerator, pool.FeeDenominator, numerator, denominator)
		pool.FeeNumerator = numerator
		pool.FeeDenominator = denominator
		return detail, nil
	})
	return e.finish(OpUpdateFees, err, zap.String("pool", poolAddr.Hex()))
}

func (e *Engine) TransferAuthority(clock model.Clock, signer, poolAddr, newAuthority common.Address) error {
	err := e.adminUpdate(clock, signer, poolAddr, "transfer_authority", func(pool *model.Pool) (string, error) {
		if newAuthority == (common.Address{}) {
			return "", ammerr.ErrInvalidAuthority.Wrapf("new authority is the zero address")
		}
		detail := pool.Authority.Hex() + " -> " + newAuthority.Hex()
		pool.Authority = newAuthority
		return detail, nil
	})
	return e.finish(OpTransferAuthority, err, zap.String("pool", poolAddr.Hex()))
}

// UpdateOracleConfig changes the staleness and deviation bounds. A nil value
// keeps the current setting.
func (e *Engine) UpdateOracleConfig(clock model.Clock, signer, poolAddr common.Address, maxAge, maxDeviationBps *uint64) error {
	err := e.adminUpdate(clock, signer, poolAddr, "update_oracle_config", func(pool *model.Pool) (string, error) {
		age, dev := pool.OracleMaxAge, pool.OracleMaxDeviationBps
		if maxAge != nil {
			age = *maxAge
		}
		if maxDeviationBps != nil {
			dev = *maxDeviationBps
		}
		if err := validateOracleConfig(age, dev); err != nil {
			return "", err
		}
		pool.OracleMaxAge, pool.OracleMaxDeviationBps = age, dev
		return fmt.Sprintf("max_age=%d max_deviation_bps=%d", age, dev), nil
	})
	return e.finish(OpUpdateOracleConfig, err, zap.String("pool", poolAddr.Hex()))
}

func (e *Engine) adminUpdate(clock model.Clock, signer, poolAddr common.Address, action string, apply func(*model.Pool) (string, error)) error {
	pool, err := e.loadPool(poolAddr)
	if err != nil {
		return err
	}
	if err := requireAuthority(&pool, signer); err != nil {
		return err
	}
	detail, err := apply(&pool)
	if err != nil {
		return err
	}
	e.store.PutPool(pool)
	e.emit(clock, poolAddr, model.EventAdmin, model.AdminEventData{
		Authority: signer.Hex(),
		Action:    action,
		Detail:    detail,
	})
	return nil
}
