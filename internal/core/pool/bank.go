package pool

import (
	"github.com/tollhouse/tolld/internal/core/amount"
	"github.com/tollhouse/tolld/internal/core/ledger"
)

// MemoryBank is the in-process settlement-currency book used by the
// default node wiring and the tests.
type MemoryBank struct {
	balances map[ledger.Address]amount.Amount
}

func NewMemoryBank() *MemoryBank {
	return &MemoryBank{balances: make(map[ledger.Address]amount.Amount)}
}

func (b *MemoryBank) CurrencyBalance(addr ledger.Address) amount.Amount {
	return b.balances[addr]
}

func (b *MemoryBank) CreditCurrency(addr ledger.Address, amt amount.Amount) error {
	sum, ok := amount.CheckedAdd(b.balances[addr], amt)
	if !ok {
		return ledger.ErrBalanceOverflow
	}
	b.balances[addr] = sum
	return nil
}

func (b *MemoryBank) TransferCurrency(from, to ledger.Address, amt amount.Amount) error {
	if b.balances[from] < amt {
		return ErrCurrencyFunds
	}
	b.balances[from] -= amt
	return b.CreditCurrency(to, amt)
}
