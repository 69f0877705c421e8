package amm

import (
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ammEngine/internal/ammerr"
	"ammEngine/internal/fixedpoint"
	"ammEngine/internal/model"
)

const (
	FlashLoanFeeNumerator   uint64 = 9
	FlashLoanFeeDenominator uint64 = 10_000
)

// FlashLoanFee returns max(1, amount*9/10000) for a non-zero amount and zero
// otherwise.
func FlashLoanFee(amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, nil
	}
	fee, err := fixedpoint.MulDiv(amount, FlashLoanFeeNumerator, FlashLoanFeeDenominator)
	if err != nil {
		return 0, err
	}
	if fee == 0 {
		fee = 1
	}
	return fee, nil
}

// TotalRepay returns principal plus fee for each asset of a loan.
func TotalRepay(loan model.FlashLoanRecord) (uint64, uint64, error) {
	a, err := fixedpoint.CheckedAdd(loan.AmountABorrowed, loan.FeeA)
	if err != nil {
		return 0, 0, err
	}
	b, err := fixedpoint.CheckedAdd(loan.AmountBBorrowed, loan.FeeB)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

// FlashLoan lends pool assets to borrower for the current slot. Reserves are
// not reduced; the loan must be repaid with RepayFlashLoan in the same slot.
// Custody moves made before a failing call are not undone; run it inside
// a batch.Executor for all-or-nothing effects.
func (e *Engine) FlashLoan(clock model.Clock, borrower, poolAddr common.Address, amountA, amountB uint64) (model.FlashLoanRecord, error) {
	loan, err := e.flashLoan(clock, borrower, poolAddr, amountA, amountB)
	return loan, e.finish(OpFlashLoan, err,
		zap.String("pool", poolAddr.Hex()),
		zap.String("borrower", borrower.Hex()),
		zap.Uint64("amount_a", amountA),
		zap.Uint64("amount_b", amountB),
	)
}

func (e *Engine) flashLoan(clock model.Clock, borrower, poolAddr common.Address, amountA, amountB uint64) (model.FlashLoanRecord, error) {
	pool, err := e.loadPool(poolAddr)
	if err != nil {
		return model.FlashLoanRecord{}, err
	}
	if pool.IsPaused {
		return model.FlashLoanRecord{}, ammerr.ErrPoolPaused.Wrapf("pool %s", poolAddr.Hex())
	}
	if amountA == 0 && amountB == 0 {
		return model.FlashLoanRecord{}, ammerr.ErrZeroAmount.Wrapf("flash loan amounts")
	}
	if pool.ReserveA < amountA || pool.ReserveB < amountB {
		return model.FlashLoanRecord{}, ammerr.ErrInsufficientLiquidity.Wrapf("reserves %d/%d, borrowing %d/%d", pool.ReserveA, pool.ReserveB, amountA, amountB)
	}
	key := model.LoanKey{Pool: poolAddr, Borrower: borrower}
	if open, ok := e.store.FlashLoan(key); ok && !open.IsRepaid {
		return model.FlashLoanRecord{}, ammerr.ErrFlashLoanNotRepaid.Wrapf("borrower %s has an open loan from slot %d", borrower.Hex(), open.InitiatedSlot)
	}

	feeA, err := FlashLoanFee(amountA)
	if err != nil {
		return model.FlashLoanRecord{}, err
	}
	feeB, err := FlashLoanFee(amountB)
	if err != nil {
		return model.FlashLoanRecord{}, err
	}
	loan := model.FlashLoanRecord{
		Pool:            poolAddr,
		Borrower:        borrower,
		AmountABorrowed: amountA,
		AmountBBorrowed: amountB,
		FeeA:            feeA,
		FeeB:            feeB,
		InitiatedSlot:   clock.Slot,
	}
	if _, _, err := TotalRepay(loan); err != nil {
		return model.FlashLoanRecord{}, err
	}

	if err := e.custody.Transfer(pool.AssetA, pool.VaultA, borrower, amountA); err != nil {
		return model.FlashLoanRecord{}, err
	}
	if err := e.custody.Transfer(pool.AssetB, pool.VaultB, borrower, amountB); err != nil {
		return model.FlashLoanRecord{}, err
	}
	e.store.PutFlashLoan(loan)

	e.emit(clock, poolAddr, model.EventFlashLoan, flashLoanEvent(loan))
	return loan, nil
}

// RepayFlashLoan pulls principal plus fee from the borrower back into the pool.
// Fees are added to the reserves and the fee counters.
// Custody moves made before a failing call are not undone; run it inside
// a batch.Executor for all-or-nothing effects.
func (e *Engine) RepayFlashLoan(clock model.Clock, signer, poolAddr, borrower common.Address) error {
	err := e.repayFlashLoan(clock, signer, poolAddr, borrower)
	return e.finish(OpFlashLoanRepay, err,
		zap.String("pool", poolAddr.Hex()),
		zap.String("borrower", borrower.Hex()),
	)
}

func (e *Engine) repayFlashLoan(clock model.Clock, signer, poolAddr, borrower common.Address) error {
	key := model.LoanKey{Pool: poolAddr, Borrower: borrower}
	loan, ok := e.store.FlashLoan(key)
	if !ok {
		return ammerr.ErrFlashLoanNotFound.Wrapf("pool %s borrower %s", poolAddr.Hex(), borrower.Hex())
	}
	if signer != loan.Borrower {
		return ammerr.ErrInvalidAuthority.Wrapf("signer %s is not the borrower", signer.Hex())
	}
	if loan.IsRepaid {
		return ammerr.ErrFlashLoanAlreadyRepaid
	}
	if clock.Slot != loan.InitiatedSlot {
		return ammerr.ErrFlashLoanNotRepaid.Wrapf("opened in slot %d, repaying in slot %d", loan.InitiatedSlot, clock.Slot)
	}

	pool, err := e.loadPool(poolAddr)
	if err != nil {
		return err
	}
	repayA, repayB, err := TotalRepay(loan)
	if err != nil {
		return err
	}
	if pool.ReserveA, err = fixedpoint.CheckedAdd(pool.ReserveA, loan.FeeA); err != nil {
		return err
	}
	if pool.ReserveB, err = fixedpoint.CheckedAdd(pool.ReserveB, loan.FeeB); err != nil {
		return err
	}
	if pool.TotalFeesA, err = fixedpoint.CheckedAdd(pool.TotalFeesA, loan.FeeA); err != nil {
		return err
	}
	if pool.TotalFeesB, err = fixedpoint.CheckedAdd(pool.TotalFeesB, loan.FeeB); err != nil {
		return err
	}

	if err := e.custody.Transfer(pool.AssetA, borrower, pool.VaultA, repayA); err != nil {
		return err
	}
	if err := e.custody.Transfer(pool.AssetB, borrower, pool.VaultB, repayB); err != nil {
		return err
	}

	loan.IsRepaid = true
	e.store.PutPool(pool)
	e.store.PutFlashLoan(loan)

	e.metrics.ObserveFlashFee(poolAddr.Hex(), pool.AssetA.Hex(), loan.FeeA)
	e.metrics.ObserveFlashFee(poolAddr.Hex(), pool.AssetB.Hex(), loan.FeeB)
	e.emit(clock, poolAddr, model.EventFlashLoanRepay, flashLoanEvent(loan))
	return nil
}

// SettleFlashLoans closes out slot: it fails when any loan is still open and
// otherwise drops the repaid records.
func (e *Engine) SettleFlashLoans(slot uint64) error {
	loans := e.store.FlashLoans()
	for _, loan := range loans {
		if !loan.IsRepaid {
			return ammerr.ErrFlashLoanNotRepaid.Wrapf("pool %s borrower %s opened in slot %d, settling slot %d",
				loan.Pool.Hex(), loan.Borrower.Hex(), loan.InitiatedSlot, slot)
		}
	}
	for _, loan := range loans {
		e.store.DeleteFlashLoan(model.LoanKey{Pool: loan.Pool, Borrower: loan.Borrower})
	}
	return nil
}

func flashLoanEvent(loan model.FlashLoanRecord) model.FlashLoanEventData {
	return model.FlashLoanEventData{
		Borrower: loan.Borrower.Hex(),
		AmountA:  model.FormatAmount(loan.AmountABorrowed),
		AmountB:  model.FormatAmount(loan.AmountBBorrowed),
		FeeA:     model.FormatAmount(loan.FeeA),
		FeeB:     model.FormatAmount(loan.FeeB),
	}
}
