package amm

import (
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ammEngine/internal/ammerr"
	"ammEngine/internal/fixedpoint"
	"ammEngine/internal/model"
	"ammEngine/internal/pricing"
	"ammEngine/internal/store"
)

// AddLiquidity deposits both assets and credits LP shares to owner. The first
// deposit permanently locks pricing.MinimumLiquidity shares in the pool.
// Custody moves made before a failing call are not undone; run it inside
// a batch.Executor for all-or-nothing effects.
func (e *Engine) AddLiquidity(clock model.Clock, owner, poolAddr common.Address, amountA, amountB, minLiquidity uint64) (uint64, error) {
	credited, err := e.addLiquidity(clock, owner, poolAddr, amountA, amountB, minLiquidity)
	return credited, e.finish(OpAddLiquidity, err,
		zap.String("pool", poolAddr.Hex()),
		zap.String("owner", owner.Hex()),
		zap.Uint64("liquidity", credited),
	)
}

func (e *Engine) addLiquidity(clock model.Clock, owner, poolAddr common.Address, amountA, amountB, minLiquidity uint64) (uint64, error) {
	pool, err := e.loadPool(poolAddr)
	if err != nil {
		return 0, err
	}
	if pool.IsPaused {
		return 0, ammerr.ErrPoolPaused.Wrapf("pool %s", poolAddr.Hex())
	}
	if amountA == 0 || amountB == 0 {
		return 0, ammerr.ErrZeroAmount.Wrapf("deposit %d/%d", amountA, amountB)
	}

	var minted, credited, locked uint64
	if pool.TotalLPSupply == 0 {
		minted = pricing.InitialLiquidity(amountA, amountB)
		if minted < pricing.MinimumLiquidity {
			return 0, ammerr.ErrMinimumLiquidityNotMet.Wrapf("initial liquidity %d < %d", minted, pricing.MinimumLiquidity)
		}
		locked = pricing.MinimumLiquidity
		credited = minted - locked
	} else {
		minted, err = pricing.ProportionalLiquidity(amountA, amountB, pool.ReserveA, pool.ReserveB, pool.TotalLPSupply)
		if err != nil {
			return 0, err
		}
		credited = minted
	}
	if credited < minLiquidity {
		return 0, ammerr.ErrSlippageExceeded.Wrapf("liquidity %d < min %d", credited, minLiquidity)
	}

	if pool.ReserveA, err = fixedpoint.CheckedAdd(pool.ReserveA, amountA); err != nil {
		return 0, err
	}
	if pool.ReserveB, err = fixedpoint.CheckedAdd(pool.ReserveB, amountB); err != nil {
		return 0, err
	}
	if pool.TotalLPSupply, err = fixedpoint.CheckedAdd(pool.TotalLPSupply, minted); err != nil {
		return 0, err
	}
	if err := updateTWAP(&pool, clock.UnixTimestamp); err != nil {
		return 0, err
	}

	provider, created := store.ProviderOrNew(e.store, model.ProviderKey{Pool: poolAddr, Owner: owner})
	if created || provider.LPTokenAmount == 0 {
		provider.InitialDepositA = amountA
		provider.InitialDepositB = amountB
		provider.CreatedAt = clock.UnixTimestamp
	}
	if provider.LPTokenAmount, err = fixedpoint.CheckedAdd(provider.LPTokenAmount, credited); err != nil {
		return 0, err
	}

	if err := e.custody.Transfer(pool.AssetA, owner, pool.VaultA, amountA); err != nil {
		return 0, err
	}
	if err := e.custody.Transfer(pool.AssetB, owner, pool.VaultB, amountB); err != nil {
		return 0, err
	}
	if err := e.custody.Mint(pool.LPMint, owner, credited); err != nil {
		return 0, err
	}
	// locked shares are held by the pool itself and never redeemable
	if err := e.custody.Mint(pool.LPMint, pool.Address, locked); err != nil {
		return 0, err
	}

	e.store.PutPool(pool)
	e.store.PutProvider(provider)
	e.emit(clock, poolAddr, model.EventAddLiquidity, model.LiquidityEventData{
		Owner:       owner.Hex(),
		AmountA:     model.FormatAmount(amountA),
		AmountB:     model.FormatAmount(amountB),
		Liquidity:   model.FormatAmount(credited),
		ReserveA:    model.FormatAmount(pool.ReserveA),
		ReserveB:    model.FormatAmount(pool.ReserveB),
		TotalSupply: model.FormatAmount(pool.TotalLPSupply),
	})
	return credited, nil
}

// RemoveLiquidity burns liquidity shares of owner and returns the
// proportional reserves.
// Custody moves made before a failing call are not undone; run it inside
// a batch.Executor for all-or-nothing effects.
func (e *Engine) RemoveLiquidity(clock model.Clock, owner, poolAddr common.Address, liquidity, minA, minB uint64) (uint64, uint64, error) {
	amountA, amountB, err := e.removeLiquidity(clock, owner, poolAddr, liquidity, minA, minB)
	return amountA, amountB, e.finish(OpRemoveLiquidity, err,
		zap.String("pool", poolAddr.Hex()),
		zap.String("owner", owner.Hex()),
		zap.Uint64("liquidity", liquidity),
	)
}

func (e *Engine) removeLiquidity(clock model.Clock, owner, poolAddr common.Address, liquidity, minA, minB uint64) (uint64, uint64, error) {
	pool, err := e.loadPool(poolAddr)
	if err != nil {
		return 0, 0, err
	}
	if pool.IsPaused {
		return 0, 0, ammerr.ErrPoolPaused.Wrapf("pool %s", poolAddr.Hex())
	}
	if liquidity == 0 {
		return 0, 0, ammerr.ErrZeroAmount.Wrapf("liquidity")
	}
	provider, ok := e.store.Provider(model.ProviderKey{Pool: poolAddr, Owner: owner})
	if !ok || provider.LPTokenAmount < liquidity {
		return 0, 0, ammerr.ErrInsufficientLiquidity.Wrapf("position holds %d, removing %d", provider.LPTokenAmount, liquidity)
	}

	amountA, amountB, err := pricing.WithdrawAmounts(liquidity, pool.TotalLPSupply, pool.ReserveA, pool.ReserveB)
	if err != nil {
		return 0, 0, err
	}
	if amountA < minA {
		return 0, 0, ammerr.ErrSlippageExceeded.Wrapf("amount a %d < min %d", amountA, minA)
	}
	if amountB < minB {
		return 0, 0, ammerr.ErrSlippageExceeded.Wrapf("amount b %d < min %d", amountB, minB)
	}

	if pool.ReserveA, err = fixedpoint.CheckedSub(pool.ReserveA, amountA); err != nil {
		return 0, 0, err
	}
	if pool.ReserveB, err = fixedpoint.CheckedSub(pool.ReserveB, amountB); err != nil {
		return 0, 0, err
	}
	if pool.TotalLPSupply, err = fixedpoint.CheckedSub(pool.TotalLPSupply, liquidity); err != nil {
		return 0, 0, err
	}
	if err := updateTWAP(&pool, clock.UnixTimestamp); err != nil {
		return 0, 0, err
	}
	provider.LPTokenAmount -= liquidity

	if err := e.custody.Burn(pool.LPMint, owner, liquidity); err != nil {
		return 0, 0, err
	}
	if err := e.custody.Transfer(pool.AssetA, pool.VaultA, owner, amountA); err != nil {
		return 0, 0, err
	}
	if err := e.custody.Transfer(pool.AssetB, pool.VaultB, owner, amountB); err != nil {
		return 0, 0, err
	}

	e.store.PutPool(pool)
	e.store.PutProvider(provider)
	e.emit(clock, poolAddr, model.EventRemoveLiquidity, model.LiquidityEventData{
		Owner:       owner.Hex(),
		AmountA:     model.FormatAmount(amountA),
		AmountB:     model.FormatAmount(amountB),
		Liquidity:   model.FormatAmount(liquidity),
		ReserveA:    model.FormatAmount(pool.ReserveA),
		ReserveB:    model.FormatAmount(pool.ReserveB),
		TotalSupply: model.FormatAmount(pool.TotalLPSupply),
	})
	return amountA, amountB, nil
}

// Position returns the LP position of owner in a pool.
func (e *Engine) Position(poolAddr, owner common.Address) (model.LiquidityProvider, bool) {
	return e.store.Provider(model.ProviderKey{Pool: poolAddr, Owner: owner})
}
