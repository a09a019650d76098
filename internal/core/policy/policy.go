// Package policy is the registry of transfer rules: fee rates, size
// limits, exclusion sets, and the set of addresses recognized as
// liquidity-pool endpoints. The transfer engine reads it on every
// movement; only the configuration surface mutates it.
package policy

import (
	"errors"
	"fmt"

	"github.com/tollhouse/tolld/internal/core/amount"
	"github.com/tollhouse/tolld/internal/core/ledger"
)

// Configuration failures. Raised only while mutating the registry,
// never during a transfer.
var (
	ErrFeeTooHigh          = errors.New("fee rate above maximum")
	ErrLimitOutOfRange     = errors.New("limit outside allowed band")
	ErrThresholdOutOfRange = errors.New("swap threshold outside allowed band")
)

// Bounds are the numeric bands every mutable parameter is validated
// against. All percentages are expressed in basis points of total
// supply.
type Bounds struct {
	// MaxFeeRate is the ceiling for every fee rate, in basis points.
	MaxFeeRate uint64

	// LimitFloorBps / LimitCeilBps band maxBuy, maxSell and maxWallet.
	LimitFloorBps uint64
	LimitCeilBps  uint64

	// ThresholdFloorBps / ThresholdCeilBps band the swap threshold.
	ThresholdFloorBps uint64
	ThresholdCeilBps  uint64
}

// DefaultBounds mirror the usual deployment: fees capped at 10%,
// limits between 0.1% and 100% of supply, threshold between 0.001%
// and 1% of supply.
func DefaultBounds() Bounds {
	return Bounds{
		MaxFeeRate:        1000,
		LimitFloorBps:     10,
		LimitCeilBps:      10000,
		ThresholdFloorBps: 1,
		ThresholdCeilBps:  100,
	}
}

// Rates are the three per-classification fee rates in basis points.
type Rates struct {
	Buy      uint64
	Sell     uint64
	Transfer uint64
}

// Limits are the per-transaction and per-wallet size caps.
type Limits struct {
	MaxBuy    amount.Amount
	MaxSell   amount.Amount
	MaxWallet amount.Amount
}

// Registry holds the current policy. It is not safe for concurrent
// mutation; the execution model is single-threaded per transfer.
type Registry struct {
	bounds      Bounds
	totalSupply amount.Amount

	rates         Rates
	limits        Limits
	swapThreshold amount.Amount

	limitsEnabled bool
	taxesEnabled  bool
	paused        bool

	feeExempt   map[ledger.Address]bool
	limitExempt map[ledger.Address]bool
	blocked     map[ledger.Address]bool
	pools       map[ledger.Address]bool
}

// NewRegistry creates a registry with limits and taxes enabled and all
// sets empty. Rates, limits and threshold start at zero and are set
// through the validated setters.
func NewRegistry(bounds Bounds, totalSupply amount.Amount) *Registry {
	return &Registry{
		bounds:        bounds,
		totalSupply:   totalSupply,
		limitsEnabled: true,
		taxesEnabled:  true,
		feeExempt:     make(map[ledger.Address]bool),
		limitExempt:   make(map[ledger.Address]bool),
		blocked:       make(map[ledger.Address]bool),
		pools:         make(map[ledger.Address]bool),
	}
}

func (r *Registry) Rates() Rates                 { return r.rates }
func (r *Registry) Limits() Limits               { return r.limits }
func (r *Registry) SwapThreshold() amount.Amount { return r.swapThreshold }
func (r *Registry) LimitsEnabled() bool          { return r.limitsEnabled }
func (r *Registry) TaxesEnabled() bool           { return r.taxesEnabled }
func (r *Registry) Paused() bool                 { return r.paused }
func (r *Registry) TotalSupply() amount.Amount   { return r.totalSupply }

// SetRates validates each rate against MaxFeeRate and installs the new
// schedule atomically.
func (r *Registry) SetRates(rates Rates) error {
	for _, rate := range []uint64{rates.Buy, rates.Sell, rates.Transfer} {
		if rate > r.bounds.MaxFeeRate {
			return fmt.Errorf("rate %d bps (max %d): %w", rate, r.bounds.MaxFeeRate, ErrFeeTooHigh)
		}
	}
	r.rates = rates
	return nil
}

// SetLimits validates each limit against the configured band of total
// supply and installs the new caps atomically.
func (r *Registry) SetLimits(limits Limits) error {
	for _, limit := range []amount.Amount{limits.MaxBuy, limits.MaxSell, limits.MaxWallet} {
		if err := r.checkBand(limit, r.bounds.LimitFloorBps, r.bounds.LimitCeilBps, ErrLimitOutOfRange); err != nil {
			return err
		}
	}
	r.limits = limits
	return nil
}

// SetSwapThreshold validates the threshold against its band.
func (r *Registry) SetSwapThreshold(threshold amount.Amount) error {
	if err := r.checkBand(threshold, r.bounds.ThresholdFloorBps, r.bounds.ThresholdCeilBps, ErrThresholdOutOfRange); err != nil {
		return err
	}
	r.swapThreshold = threshold
	return nil
}

func (r *Registry) checkBand(v amount.Amount, floorBps, ceilBps uint64, outOfRange error) error {
	floor := amount.FeePortion(r.totalSupply, floorBps)
	ceil := amount.FeePortion(r.totalSupply, ceilBps)
	if v < floor || v > ceil {
		return fmt.Errorf("%s outside [%s, %s]: %w", v, floor, ceil, outOfRange)
	}
	return nil
}

// SetLimitsEnabled toggles the limit gate globally.
func (r *Registry) SetLimitsEnabled(enabled bool) { r.limitsEnabled = enabled }

// SetTaxesEnabled toggles fee computation globally.
func (r *Registry) SetTaxesEnabled(enabled bool) { r.taxesEnabled = enabled }

// SetPaused sets the emergency pause flag. While paused the engine
// rejects every movement unconditionally.
func (r *Registry) SetPaused(paused bool) { r.paused = paused }

// Exclusion set predicates. All O(1) map lookups.

func (r *Registry) IsFeeExempt(addr ledger.Address) bool   { return r.feeExempt[addr] }
func (r *Registry) IsLimitExempt(addr ledger.Address) bool { return r.limitExempt[addr] }
func (r *Registry) IsBlocked(addr ledger.Address) bool     { return r.blocked[addr] }
func (r *Registry) IsPool(addr ledger.Address) bool        { return r.pools[addr] }

// Exclusion set toggles. Setting the same value twice is a no-op.

func (r *Registry) SetFeeExempt(addr ledger.Address, exempt bool) {
	setMembership(r.feeExempt, addr, exempt)
}

func (r *Registry) SetLimitExempt(addr ledger.Address, exempt bool) {
	setMembership(r.limitExempt, addr, exempt)
}

func (r *Registry) SetBlocked(addr ledger.Address, blocked bool) {
	setMembership(r.blocked, addr, blocked)
}

// SetPool registers or deregisters a liquidity-pool endpoint.
// Membership is authoritative: a transfer is classified purely by
// whether its endpoints are in this set.
func (r *Registry) SetPool(addr ledger.Address, isPool bool) {
	setMembership(r.pools, addr, isPool)
}

// Pools returns the registered pool endpoints.
func (r *Registry) Pools() []ledger.Address {
	out := make([]ledger.Address, 0, len(r.pools))
	for addr := range r.pools {
		out = append(out, addr)
	}
	return out
}

func setMembership(set map[ledger.Address]bool, addr ledger.Address, member bool) {
	if member {
		set[addr] = true
	} else {
		delete(set, addr)
	}
}
