package policy

import (
	"github.com/tollhouse/tolld/internal/core/amount"
	"github.com/tollhouse/tolld/internal/core/ledger"
)

// Snapshot is the serializable form of the registry, used by the
// persistence layer. It bypasses setter validation on restore: the
// values were validated when they were first set.
type Snapshot struct {
	Rates         Rates
	Limits        Limits
	SwapThreshold uint64
	LimitsEnabled bool
	TaxesEnabled  bool
	Paused        bool
	FeeExempt     []string
	LimitExempt   []string
	Blocked       []string
	Pools         []string
}

// Export captures the current registry state.
func (r *Registry) Export() Snapshot {
	return Snapshot{
		Rates:         r.rates,
		Limits:        r.limits,
		SwapThreshold: r.swapThreshold.Units(),
		LimitsEnabled: r.limitsEnabled,
		TaxesEnabled:  r.taxesEnabled,
		Paused:        r.paused,
		FeeExempt:     addressList(r.feeExempt),
		LimitExempt:   addressList(r.limitExempt),
		Blocked:       addressList(r.blocked),
		Pools:         addressList(r.pools),
	}
}

// Restore overwrites the registry state from a snapshot.
func (r *Registry) Restore(s Snapshot) {
	r.rates = s.Rates
	r.limits = s.Limits
	r.swapThreshold = amount.New(s.SwapThreshold)
	r.limitsEnabled = s.LimitsEnabled
	r.taxesEnabled = s.TaxesEnabled
	r.paused = s.Paused
	r.feeExempt = addressSet(s.FeeExempt)
	r.limitExempt = addressSet(s.LimitExempt)
	r.blocked = addressSet(s.Blocked)
	r.pools = addressSet(s.Pools)
}

func addressList(set map[ledger.Address]bool) []string {
	out := make([]string, 0, len(set))
	for addr := range set {
		out = append(out, string(addr))
	}
	return out
}

func addressSet(list []string) map[ledger.Address]bool {
	set := make(map[ledger.Address]bool, len(list))
	for _, addr := range list {
		set[ledger.Address(addr)] = true
	}
	return set
}
