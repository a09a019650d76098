package pool

import "github.com/tollhouse/tolld/internal/core/ledger"

// MemoryFactory manages the single in-process pool for the ledger
// asset / settlement currency pair.
type MemoryFactory struct {
	addr ledger.Address
	view ledger.View
	bank Bank
	now  func() uint64

	pool *ConstantProduct
}

// NewMemoryFactory creates a factory that will place the pool at the
// given ledger address when CreatePool is called.
func NewMemoryFactory(addr ledger.Address, view ledger.View, bank Bank, now func() uint64) *MemoryFactory {
	return &MemoryFactory{addr: addr, view: view, bank: bank, now: now}
}

func (f *MemoryFactory) CreatePool() (Pool, error) {
	if f.pool != nil {
		return nil, ErrPoolExists
	}
	f.pool = NewConstantProduct(f.addr, f.view, f.bank, f.now)
	return f.pool, nil
}

// Concrete returns the pool with its full surface, or nil before
// CreatePool. The persistence layer uses it for share snapshots.
func (f *MemoryFactory) Concrete() *ConstantProduct { return f.pool }

func (f *MemoryFactory) GetPool() (Pool, bool) {
	if f.pool == nil {
		return nil, false
	}
	return f.pool, true
}
