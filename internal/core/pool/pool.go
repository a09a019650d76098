// Package pool defines the narrow contract the ledger has with external
// liquidity pools, and a constant-product implementation used by the
// default node wiring and the test suites. The pricing algorithm of a
// production pool is opaque to the rest of the system; only the
// interfaces below are relied upon.
package pool

import (
	"errors"

	"github.com/tollhouse/tolld/internal/core/amount"
	"github.com/tollhouse/tolld/internal/core/ledger"
)

var (
	ErrPoolExists       = errors.New("pool already exists for pair")
	ErrNoPool           = errors.New("no pool for pair")
	ErrSlippage         = errors.New("output below minimum")
	ErrExpired          = errors.New("deadline passed")
	ErrEmptyPool        = errors.New("pool has no liquidity")
	ErrInsufficientIn   = errors.New("input amount is zero")
	ErrCurrencyFunds    = errors.New("insufficient settlement currency")
)

// Factory creates or locates pools for an asset/currency pair.
type Factory interface {
	// CreatePool creates the pool for the pair. Fails with
	// ErrPoolExists if one already exists.
	CreatePool() (Pool, error)

	// GetPool returns the existing pool for the pair, or false.
	GetPool() (Pool, bool)
}

// Pool is a liquidity-pool endpoint. Its token reserve lives in the
// ledger under Address(); its settlement-currency reserve lives in the
// Bank under the same address.
type Pool interface {
	// Address is the pool's ledger endpoint. Transfers touching it
	// are classified as acquisitions or disposals.
	Address() ledger.Address

	// AddLiquidity deposits tokens and currency, minting share
	// receipts to the recipient. Returns the amounts actually used
	// and the shares minted.
	AddLiquidity(from ledger.Address, tokens, currency, minTokens, minCurrency amount.Amount, recipient ledger.Address, deadline uint64) (usedTokens, usedCurrency, shares amount.Amount, err error)

	// SwapExactTokensForCurrency sells amountIn tokens for
	// settlement currency, paying the proceeds to recipient.
	SwapExactTokensForCurrency(from ledger.Address, amountIn, minOut amount.Amount, recipient ledger.Address, deadline uint64) (amount.Amount, error)

	// SwapExactCurrencyForTokens buys tokens with settlement
	// currency.
	SwapExactCurrencyForTokens(from ledger.Address, amountIn, minOut amount.Amount, recipient ledger.Address, deadline uint64) (amount.Amount, error)

	// QuoteTokensForCurrency is the read-only spot quote for a
	// token sale of amountIn.
	QuoteTokensForCurrency(amountIn amount.Amount) amount.Amount

	// Shares returns the share receipts held by an address.
	Shares(holder ledger.Address) amount.Amount
}

// Bank tracks settlement-currency balances. The network's base
// currency is not part of the token ledger; the bank is its
// bookkeeping surface.
type Bank interface {
	CurrencyBalance(addr ledger.Address) amount.Amount
	CreditCurrency(addr ledger.Address, amt amount.Amount) error
	TransferCurrency(from, to ledger.Address, amt amount.Amount) error
}
