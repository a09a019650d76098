// Package snapshot persists the full node state (ledger balances,
// policy registry, engine flags, currency book and pool shares) to a
// key-value store, CBOR-encoded and lz4-compressed.
package snapshot

import (
	"context"
	"errors"

	"github.com/tollhouse/tolld/internal/core/amount"
	"github.com/tollhouse/tolld/internal/core/engine"
	"github.com/tollhouse/tolld/internal/core/ledger"
	"github.com/tollhouse/tolld/internal/core/policy"
	"github.com/tollhouse/tolld/internal/core/pool"
	"github.com/tollhouse/tolld/internal/storage/keyvalue"
)

// ErrNoSnapshot is returned by Load when the store holds no snapshot.
var ErrNoSnapshot = errors.New("no snapshot stored")

var snapshotKey = []byte("snapshot/latest")

// Snapshot is the serialized node state.
type Snapshot struct {
	Balances    map[string]uint64
	TotalSupply uint64

	Policy policy.Snapshot
	Engine engine.State

	Currency   map[string]uint64
	PoolShares pool.ShareSnapshot
}

// Store reads and writes snapshots through a key-value backend.
type Store struct {
	db keyvalue.DB
}

func NewStore(db keyvalue.DB) *Store {
	return &Store{db: db}
}

// Capture assembles a snapshot from the live components. The pool may
// be nil before launch.
func Capture(l *ledger.Ledger, reg *policy.Registry, e *engine.Engine, bank *pool.MemoryBank, p *pool.ConstantProduct) Snapshot {
	balances := make(map[string]uint64)
	for _, addr := range l.Accounts() {
		balances[string(addr)] = l.Balance(addr).Units()
	}

	snap := Snapshot{
		Balances:    balances,
		TotalSupply: l.TotalSupply().Units(),
		Policy:      reg.Export(),
		Engine:      e.ExportState(),
		Currency:    bank.Export(),
	}
	if p != nil {
		snap.PoolShares = p.ExportShares()
	}
	return snap
}

// Apply restores a snapshot into the live components. The pool may be
// nil when the snapshot predates launch.
func Apply(snap Snapshot, l *ledger.Ledger, reg *policy.Registry, e *engine.Engine, bank *pool.MemoryBank, p *pool.ConstantProduct) {
	for addr, bal := range snap.Balances {
		l.SetBalance(ledger.Address(addr), amount.New(bal))
	}
	l.SetTotalSupply(amount.New(snap.TotalSupply))
	reg.Restore(snap.Policy)
	e.RestoreState(snap.Engine)
	bank.Restore(snap.Currency)
	if p != nil {
		p.RestoreShares(snap.PoolShares)
	}
}

// Save writes the snapshot, replacing any previous one.
func (s *Store) Save(ctx context.Context, snap Snapshot) error {
	data, err := encode(snap)
	if err != nil {
		return err
	}
	return s.db.Write(ctx, snapshotKey, data)
}

// Load reads the latest snapshot.
func (s *Store) Load(ctx context.Context) (Snapshot, error) {
	data, err := s.db.Read(ctx, snapshotKey)
	if err != nil {
		if errors.Is(err, keyvalue.ErrKeyNotFound) {
			return Snapshot{}, ErrNoSnapshot
		}
		return Snapshot{}, err
	}

	var snap Snapshot
	if err := decode(data, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
