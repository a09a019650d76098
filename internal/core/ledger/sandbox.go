package ledger

import "github.com/tollhouse/tolld/internal/core/amount"

// Sandbox is a transactional overlay on a View. All balance movements
// made during one unit of work go through a sandbox; they become
// visible in the base view only when Apply is called. Dropping the
// sandbox without applying it discards every change, which gives the
// engine its abort-on-first-failure semantics.
type Sandbox struct {
	base    View
	dirty   map[Address]amount.Amount
	applied bool
}

// NewSandbox creates a sandbox over the given base view. Sandboxes
// nest: a sandbox is itself a View.
func NewSandbox(base View) *Sandbox {
	return &Sandbox{
		base:  base,
		dirty: make(map[Address]amount.Amount),
	}
}

func (s *Sandbox) Balance(addr Address) amount.Amount {
	if bal, ok := s.dirty[addr]; ok {
		return bal
	}
	return s.base.Balance(addr)
}

func (s *Sandbox) Debit(addr Address, amt amount.Amount) error {
	bal := s.Balance(addr)
	if bal < amt {
		return ErrInsufficientFunds
	}
	s.dirty[addr] = bal - amt
	return nil
}

func (s *Sandbox) Credit(addr Address, amt amount.Amount) error {
	sum, ok := amount.CheckedAdd(s.Balance(addr), amt)
	if !ok {
		return ErrBalanceOverflow
	}
	s.dirty[addr] = sum
	return nil
}

// Apply writes every touched balance to the base view. A sandbox can
// be applied at most once.
func (s *Sandbox) Apply() {
	if s.applied {
		return
	}
	s.applied = true
	for addr, bal := range s.dirty {
		base := s.base.Balance(addr)
		switch {
		case bal > base:
			// Credit cannot fail here: the sandbox already
			// checked the overflow bound against the same base.
			_ = s.base.Credit(addr, bal-base)
		case bal < base:
			_ = s.base.Debit(addr, base-bal)
		}
	}
}

// Discard marks the sandbox as dead. Subsequent Apply calls are no-ops.
func (s *Sandbox) Discard() {
	s.applied = true
	s.dirty = nil
}
