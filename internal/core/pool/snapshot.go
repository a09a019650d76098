package pool

import (
	"github.com/tollhouse/tolld/internal/core/amount"
	"github.com/tollhouse/tolld/internal/core/ledger"
)

// ShareSnapshot is the serializable share book of a pool. Reserves are
// not part of it: they live in the ledger and the bank and are restored
// with those.
type ShareSnapshot struct {
	Holders map[string]uint64
	Total   uint64
}

// ExportShares captures the current share book.
func (p *ConstantProduct) ExportShares() ShareSnapshot {
	holders := make(map[string]uint64, len(p.shares))
	for addr, bal := range p.shares {
		holders[string(addr)] = bal.Units()
	}
	return ShareSnapshot{Holders: holders, Total: p.total.Units()}
}

// RestoreShares overwrites the share book from a snapshot.
func (p *ConstantProduct) RestoreShares(s ShareSnapshot) {
	p.shares = make(map[ledger.Address]amount.Amount, len(s.Holders))
	for addr, bal := range s.Holders {
		p.shares[ledger.Address(addr)] = amount.New(bal)
	}
	p.total = amount.New(s.Total)
}

// Export captures every currency balance for snapshot persistence.
func (b *MemoryBank) Export() map[string]uint64 {
	out := make(map[string]uint64, len(b.balances))
	for addr, bal := range b.balances {
		out[string(addr)] = bal.Units()
	}
	return out
}

// Restore overwrites the currency book from a snapshot.
func (b *MemoryBank) Restore(balances map[string]uint64) {
	b.balances = make(map[ledger.Address]amount.Amount, len(balances))
	for addr, bal := range balances {
		b.balances[ledger.Address(addr)] = amount.New(bal)
	}
}
