// Package engine implements the transfer-interception state machine:
// launch gating, blocklisting, size limits, the fee schedule, and the
// swap-back subsystem that converts accumulated fees to settlement
// currency.
package engine

import (
	"github.com/tollhouse/tolld/internal/core/amount"
	"github.com/tollhouse/tolld/internal/core/ledger"
	"github.com/tollhouse/tolld/internal/core/policy"
	"github.com/tollhouse/tolld/internal/core/pool"
)

// ReceiptPolicy selects where pool-ownership receipts minted at launch
// are held.
type ReceiptPolicy int

const (
	// ReceiptCustody keeps launch share receipts in ledger custody.
	ReceiptCustody ReceiptPolicy = iota
	// ReceiptTreasury forwards launch share receipts to the treasury
	// account.
	ReceiptTreasury
)

// ForwardPolicy selects how a failed settlement-currency forward is
// handled during swap-back. Neither policy is silent.
type ForwardPolicy int

const (
	// ForwardAbort makes the pool pay the operations account
	// directly, so a refused payment aborts the exchange itself.
	ForwardAbort ForwardPolicy = iota
	// ForwardRetain pays proceeds into ledger custody first and
	// forwards them in a second step; a failed forward leaves the
	// currency in custody to be retried on the next swap-back.
	ForwardRetain
)

// Config is the static engine configuration. The mutable policy lives
// in the policy registry.
type Config struct {
	// CustodyAccount is the ledger's own account: the fee-holding
	// accumulator and the custodian of launch seeds.
	CustodyAccount ledger.Address

	// OperationsAccount receives swap-back proceeds.
	OperationsAccount ledger.Address

	// TreasuryAccount receives launch share receipts under
	// ReceiptTreasury.
	TreasuryAccount ledger.Address

	// ReceiptPolicy selects the destination of launch receipts.
	ReceiptPolicy ReceiptPolicy

	// ForwardPolicy selects the swap-back forwarding behavior.
	ForwardPolicy ForwardPolicy

	// SwapCapMultiplier bounds a single swap-back to
	// SwapCapMultiplier x swapThreshold. 1 caps at exactly the
	// threshold; higher values allow draining a backlog faster at
	// the price of more price impact per invocation.
	SwapCapMultiplier uint64

	// MinSwapInterval is the minimum number of ticks between
	// swap-back invocations.
	MinSwapInterval uint64

	// QuoteHaircutBps, when nonzero, sets the swap-back minimum
	// output to the spot quote minus this many basis points. Zero
	// accepts any output.
	QuoteHaircutBps uint64
}

// Receipt describes the outcome of one transfer attempt.
type Receipt struct {
	Result         Result
	Classification Classification
	Fee            amount.Amount
	Net            amount.Amount
	SwapTriggered  bool
	SwapResult     Result
}

// EventSink receives engine events. The node wires this to the
// websocket publisher; tests leave it nil.
type EventSink interface {
	TransferApplied(from, to ledger.Address, amt, fee amount.Amount, class Classification)
	SwapBackExecuted(sold, proceeds amount.Amount)
	SwapBackFailed(res Result)
}

// Engine is the transfer hook. It is not safe for concurrent use; the
// execution model is strictly single-threaded per transfer.
type Engine struct {
	ledger   *ledger.Ledger
	registry *policy.Registry
	factory  pool.Factory
	bank     pool.Bank
	config   Config
	events   EventSink

	swapPool     pool.Pool
	launched     bool
	inSwap       bool
	tick         uint64
	lastSwapTick uint64
}

// New creates an engine over the given ledger, policy registry, pool
// factory and currency bank.
func New(l *ledger.Ledger, reg *policy.Registry, factory pool.Factory, bank pool.Bank, cfg Config) *Engine {
	if cfg.SwapCapMultiplier == 0 {
		cfg.SwapCapMultiplier = 1
	}
	if cfg.MinSwapInterval == 0 {
		cfg.MinSwapInterval = 1
	}
	e := &Engine{
		ledger:   l,
		registry: reg,
		factory:  factory,
		bank:     bank,
		config:   cfg,
	}
	// After a restart the pool may already exist.
	if p, ok := factory.GetPool(); ok {
		e.swapPool = p
	}
	return e
}

// SetEvents installs the event sink.
func (e *Engine) SetEvents(sink EventSink) { e.events = sink }

// Ledger exposes the underlying account store for queries.
func (e *Engine) Ledger() *ledger.Ledger { return e.ledger }

// Registry exposes the policy registry.
func (e *Engine) Registry() *policy.Registry { return e.registry }

// Launched reports whether the launch transition has happened. The
// transition is monotonic: once true it never reverts.
func (e *Engine) Launched() bool { return e.launched }

// Tick returns the current tick (block counter).
func (e *Engine) Tick() uint64 { return e.tick }

// AdvanceTick moves the engine clock forward one tick.
func (e *Engine) AdvanceTick() { e.tick++ }

// Transfer runs the full interception pipeline for one balance
// movement. All checks and mutations happen in one uninterruptible
// unit of work: either every step succeeds and the ledger mutates
// once, or nothing mutates at all.
func (e *Engine) Transfer(from, to ledger.Address, amt amount.Amount) Receipt {
	class := classify(e.registry, from, to)
	receipt := Receipt{Result: Success, Classification: class}

	// Emergency pause rejects everything, checked before the launch
	// gate.
	if e.registry.Paused() {
		receipt.Result = Paused
		return receipt
	}

	// Step 1: launch gate. Pre-launch only limit-exempt parties may
	// move value (seeding and setup traffic).
	limitExempt := e.registry.IsLimitExempt(from) || e.registry.IsLimitExempt(to)
	if !e.launched && !limitExempt {
		receipt.Result = NotLaunched
		return receipt
	}

	// Step 2: blocklist gate.
	if e.registry.IsBlocked(from) || e.registry.IsBlocked(to) {
		receipt.Result = AccountBlocked
		return receipt
	}

	// Zero-amount transfers succeed trivially.
	if amt.IsZero() {
		return receipt
	}

	// Step 3: limit gate.
	if res := e.checkLimits(class, to, amt, limitExempt); !res.IsSuccess() {
		receipt.Result = res
		return receipt
	}

	// The sender must be able to fund the whole movement before any
	// side effect runs, so a doomed transfer cannot trigger a swap.
	if e.ledger.Balance(from) < amt {
		receipt.Result = InsufficientFunds
		return receipt
	}

	// Step 4: fee computation. The fee is redirected to the custody
	// account, never burned; total supply is conserved.
	fee := e.computeFee(class, from, to, amt)
	receipt.Fee = fee
	receipt.Net = amt.Sub(fee)

	// Step 5: swap-back trigger. Evaluated on the fee balance settled
	// by previous transfers, and never on an acquisition, so a buy
	// cannot be used to force a pool interaction against itself.
	if e.feeEligible(class, from, to) && class != Acquisition && !e.inSwap {
		held := e.ledger.Balance(e.config.CustodyAccount)
		threshold := e.registry.SwapThreshold()
		if threshold > 0 && held >= threshold && e.tick-e.lastSwapTick >= e.config.MinSwapInterval {
			receipt.SwapTriggered = true
			receipt.SwapResult = e.SwapBack(held)
			if !receipt.SwapResult.IsSuccess() && e.events != nil {
				e.events.SwapBackFailed(receipt.SwapResult)
			}
		}
	}

	// Step 6: settlement. The three movements run in a sandbox so a
	// late failure cannot leave a partial mutation behind.
	sb := ledger.NewSandbox(e.ledger)
	if err := sb.Debit(from, amt); err != nil {
		sb.Discard()
		receipt.Result = InsufficientFunds
		return receipt
	}
	if fee > 0 {
		if err := sb.Credit(e.config.CustodyAccount, fee); err != nil {
			sb.Discard()
			receipt.Result = Internal
			return receipt
		}
	}
	if err := sb.Credit(to, receipt.Net); err != nil {
		sb.Discard()
		receipt.Result = Internal
		return receipt
	}
	sb.Apply()

	if e.events != nil {
		e.events.TransferApplied(from, to, amt, fee, class)
	}
	return receipt
}

// checkLimits enforces maxBuy, maxSell and maxWallet by
// classification. Skipped while the swap lock is held, when either
// party is limit-exempt, or when limits are globally disabled.
func (e *Engine) checkLimits(class Classification, to ledger.Address, amt amount.Amount, limitExempt bool) Result {
	if e.inSwap || limitExempt || !e.registry.LimitsEnabled() {
		return Success
	}

	limits := e.registry.Limits()
	switch class {
	case Acquisition:
		if limits.MaxBuy > 0 && amt > limits.MaxBuy {
			return BuyLimitExceeded
		}
		if res := e.checkWallet(to, amt, limits.MaxWallet); !res.IsSuccess() {
			return res
		}
	case Disposal:
		if limits.MaxSell > 0 && amt > limits.MaxSell {
			return SellLimitExceeded
		}
	case Peer:
		if res := e.checkWallet(to, amt, limits.MaxWallet); !res.IsSuccess() {
			return res
		}
	}
	return Success
}

func (e *Engine) checkWallet(to ledger.Address, amt, maxWallet amount.Amount) Result {
	if maxWallet == 0 {
		return Success
	}
	sum, ok := amount.CheckedAdd(e.ledger.Balance(to), amt)
	if !ok || sum > maxWallet {
		return WalletLimitExceeded
	}
	return Success
}

// feeEligible reports whether fee computation runs for this transfer.
func (e *Engine) feeEligible(class Classification, from, to ledger.Address) bool {
	if e.inSwap || !e.registry.TaxesEnabled() {
		return false
	}
	if e.registry.IsFeeExempt(from) || e.registry.IsFeeExempt(to) {
		return false
	}
	return true
}

// computeFee selects the rate by classification and floors the
// basis-point product.
func (e *Engine) computeFee(class Classification, from, to ledger.Address, amt amount.Amount) amount.Amount {
	if !e.feeEligible(class, from, to) {
		return 0
	}
	rates := e.registry.Rates()
	var rate uint64
	switch class {
	case Acquisition:
		rate = rates.Buy
	case Disposal:
		rate = rates.Sell
	case Peer:
		rate = rates.Transfer
	}
	if rate == 0 {
		return 0
	}
	return amount.FeePortion(amt, rate)
}
