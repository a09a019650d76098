package engine

import (
	"github.com/tollhouse/tolld/internal/core/ledger"
	"github.com/tollhouse/tolld/internal/core/policy"
)

// Classification tags a transfer by which side, if any, is a
// registered liquidity-pool endpoint. It is computed once per
// transfer and threaded through the pipeline.
type Classification int

const (
	// Peer is a transfer between two non-pool accounts.
	Peer Classification = iota
	// Acquisition is a transfer whose source is a pool endpoint.
	Acquisition
	// Disposal is a transfer whose destination is a pool endpoint.
	Disposal
)

func (c Classification) String() string {
	switch c {
	case Acquisition:
		return "acquisition"
	case Disposal:
		return "disposal"
	default:
		return "peer"
	}
}

// classify resolves the transfer category from pool-registry
// membership. When both endpoints are pools the source wins, matching
// the branch order of the reference hook implementations.
func classify(reg *policy.Registry, from, to ledger.Address) Classification {
	if reg.IsPool(from) {
		return Acquisition
	}
	if reg.IsPool(to) {
		return Disposal
	}
	return Peer
}
