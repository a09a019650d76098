// Package ledger holds the authoritative mapping of account identifiers
// to balances. Value is only ever moved between accounts; the sum of all
// balances equals the total issued supply at all times.
package ledger

import (
	"errors"
	"fmt"

	"github.com/tollhouse/tolld/internal/core/amount"
)

// Address identifies an account. Addresses are opaque strings; accounts
// are created implicitly on first credit and never destroyed.
type Address string

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBalanceOverflow   = errors.New("balance overflow")
)

// View is the read/write surface the transfer engine operates on.
// Both the base ledger and the transactional sandbox implement it.
type View interface {
	// Balance returns the balance of an account. Unknown accounts
	// have a zero balance.
	Balance(addr Address) amount.Amount

	// Debit removes units from an account. Fails with
	// ErrInsufficientFunds if the balance is too low.
	Debit(addr Address, amt amount.Amount) error

	// Credit adds units to an account, creating it if needed.
	Credit(addr Address, amt amount.Amount) error
}

// Ledger is the base account store.
type Ledger struct {
	balances    map[Address]amount.Amount
	totalSupply amount.Amount
}

// New creates an empty ledger with zero issued supply.
func New() *Ledger {
	return &Ledger{balances: make(map[Address]amount.Amount)}
}

// NewWithGenesis creates a ledger with the full supply credited to the
// genesis holder.
func NewWithGenesis(holder Address, supply amount.Amount) *Ledger {
	l := New()
	l.balances[holder] = supply
	l.totalSupply = supply
	return l
}

func (l *Ledger) Balance(addr Address) amount.Amount {
	return l.balances[addr]
}

// TotalSupply returns the total issued supply.
func (l *Ledger) TotalSupply() amount.Amount {
	return l.totalSupply
}

func (l *Ledger) Debit(addr Address, amt amount.Amount) error {
	bal := l.balances[addr]
	if bal < amt {
		return fmt.Errorf("debit %s from %s (balance %s): %w", amt, addr, bal, ErrInsufficientFunds)
	}
	l.balances[addr] = bal - amt
	return nil
}

func (l *Ledger) Credit(addr Address, amt amount.Amount) error {
	sum, ok := amount.CheckedAdd(l.balances[addr], amt)
	if !ok {
		return fmt.Errorf("credit %s to %s: %w", amt, addr, ErrBalanceOverflow)
	}
	l.balances[addr] = sum
	return nil
}

// Accounts returns every account with an entry, including zero balances.
func (l *Ledger) Accounts() []Address {
	out := make([]Address, 0, len(l.balances))
	for addr := range l.balances {
		out = append(out, addr)
	}
	return out
}

// SumBalances adds up every balance entry. Used by the conservation
// check and the snapshot writer.
func (l *Ledger) SumBalances() amount.Amount {
	var sum amount.Amount
	for _, bal := range l.balances {
		sum += bal
	}
	return sum
}

// SetBalance overwrites an account balance directly. Reserved for
// snapshot restore; it bypasses the conservation bookkeeping.
func (l *Ledger) SetBalance(addr Address, amt amount.Amount) {
	l.balances[addr] = amt
}

// SetTotalSupply overwrites the issued supply. Reserved for snapshot
// restore.
func (l *Ledger) SetTotalSupply(supply amount.Amount) {
	l.totalSupply = supply
}
