package engine

import (
	"github.com/tollhouse/tolld/internal/core/amount"
	"github.com/tollhouse/tolld/internal/core/ledger"
)

// Launch performs the one-shot transition from pre-launch to
// trading-enabled: it moves the seed into ledger custody, creates (or
// connects to) the liquidity pool, deposits the seed pair, registers
// the pool endpoint, and flips the launch flag. The flag flip is the
// final effect; a failed pool interaction aborts the whole operation
// and reverts the custody moves, leaving the system un-launched.
func (e *Engine) Launch(caller ledger.Address, seedAmount, seedCurrency amount.Amount) Result {
	if e.launched {
		return AlreadyLaunched
	}
	if seedAmount.IsZero() {
		return ZeroSeedAmount
	}
	if seedCurrency.IsZero() {
		return ZeroSeedCurrency
	}
	if e.ledger.Balance(caller) < seedAmount {
		return InsufficientFunds
	}
	if e.bank.CurrencyBalance(caller) < seedCurrency {
		return InsufficientFunds
	}

	custody := e.config.CustodyAccount

	// Move the seed pair into ledger custody. These moves are undone
	// below if the pool interaction fails.
	if err := e.ledger.Debit(caller, seedAmount); err != nil {
		return InsufficientFunds
	}
	if err := e.ledger.Credit(custody, seedAmount); err != nil {
		_ = e.ledger.Credit(caller, seedAmount)
		return Internal
	}
	if err := e.bank.TransferCurrency(caller, custody, seedCurrency); err != nil {
		e.revertSeed(caller, seedAmount, 0)
		return InsufficientFunds
	}

	p, ok := e.factory.GetPool()
	if !ok {
		created, err := e.factory.CreatePool()
		if err != nil {
			e.revertSeed(caller, seedAmount, seedCurrency)
			return PoolCallFailed
		}
		p = created
	}

	recipient := custody
	if e.config.ReceiptPolicy == ReceiptTreasury {
		recipient = e.config.TreasuryAccount
	}

	// The pool deposit is the last external side effect before the
	// flag flips.
	if _, _, _, err := p.AddLiquidity(custody, seedAmount, seedCurrency, seedAmount, seedCurrency, recipient, 0); err != nil {
		e.revertSeed(caller, seedAmount, seedCurrency)
		return PoolCallFailed
	}

	e.registry.SetPool(p.Address(), true)
	e.swapPool = p
	e.launched = true
	return Success
}

// revertSeed undoes the custody moves after a failed launch.
func (e *Engine) revertSeed(caller ledger.Address, seedAmount, seedCurrency amount.Amount) {
	custody := e.config.CustodyAccount
	if !seedAmount.IsZero() {
		_ = e.ledger.Debit(custody, seedAmount)
		_ = e.ledger.Credit(caller, seedAmount)
	}
	if !seedCurrency.IsZero() {
		_ = e.bank.TransferCurrency(custody, caller, seedCurrency)
	}
}
