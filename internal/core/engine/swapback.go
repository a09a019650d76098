package engine

import "github.com/tollhouse/tolld/internal/core/amount"

// SwapBack converts held fee tokens to settlement currency through the
// liquidity pool and forwards the proceeds to the operations account.
// Invoked by the transfer engine when the fee balance crosses the
// threshold, or externally by an authorized manual trigger.
//
// A reentrant call while a swap is in flight fails immediately with
// SwapLocked. The lock is released on every exit path.
func (e *Engine) SwapBack(requested amount.Amount) Result {
	if e.inSwap {
		return SwapLocked
	}
	if e.swapPool == nil {
		return NotLaunched
	}

	e.inSwap = true
	defer func() { e.inSwap = false }()

	custody := e.config.CustodyAccount

	// Bound the exchange to a multiple of the threshold so one
	// invocation cannot move the pool price arbitrarily far.
	amt := requested
	if threshold := e.registry.SwapThreshold(); threshold > 0 {
		bound := amount.Amount(e.config.SwapCapMultiplier) * threshold
		if amt > bound {
			amt = bound
		}
	}
	if held := e.ledger.Balance(custody); amt > held {
		amt = held
	}
	if amt.IsZero() {
		return Success
	}

	// Optional minimum-output floor: spot quote minus a configured
	// haircut. Zero haircut accepts any output.
	var minOut amount.Amount
	if e.config.QuoteHaircutBps > 0 {
		quote := e.swapPool.QuoteTokensForCurrency(amt)
		minOut = quote.Sub(amount.FeePortion(quote, e.config.QuoteHaircutBps))
	}

	// Under ForwardAbort the pool pays operations directly, so a
	// refused payment fails the exchange itself and nothing strands.
	recipient := e.config.OperationsAccount
	if e.config.ForwardPolicy == ForwardRetain {
		recipient = custody
	}

	proceeds, err := e.swapPool.SwapExactTokensForCurrency(custody, amt, minOut, recipient, 0)
	if err != nil {
		return PoolCallFailed
	}
	e.lastSwapTick = e.tick

	if e.config.ForwardPolicy == ForwardRetain {
		// Forward the entire custody currency balance, which also
		// retries anything stranded by an earlier failed forward.
		balance := e.bank.CurrencyBalance(custody)
		if err := e.bank.TransferCurrency(custody, e.config.OperationsAccount, balance); err != nil {
			return ForwardTransferFailed
		}
	}

	if e.events != nil {
		e.events.SwapBackExecuted(amt, proceeds)
	}
	return Success
}
