package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tollhouse/tolld/internal/core/amount"
	"github.com/tollhouse/tolld/internal/core/ledger"
	"github.com/tollhouse/tolld/internal/core/policy"
	"github.com/tollhouse/tolld/internal/core/pool"
)

func TestScenarioDThresholdTrigger(t *testing.T) {
	env := newTestEnv(t)
	env.launch()
	env.fund("seller", 25_000_000)
	env.fund("alice", 1_000_000)

	// A 10M disposal at 500 bps banks exactly the 500k threshold.
	// The disposal itself does not swap: the trigger reads the fee
	// balance settled by earlier transfers, which is still zero.
	res := env.engine.Transfer("seller", poolAddr, amount.New(10_000_000))
	require.Equal(t, Success, res.Result)
	assert.False(t, res.SwapTriggered)
	assert.Equal(t, amount.New(500_000), env.ledger.Balance(custody))

	// The next fee-eligible non-acquisition transfer carries the swap.
	res = env.engine.Transfer("alice", "bob", amount.New(1000))
	require.Equal(t, Success, res.Result)
	assert.True(t, res.SwapTriggered)
	assert.Equal(t, Success, res.SwapResult)

	// Custody drained to just this transfer's own fee; proceeds
	// landed at operations.
	assert.Equal(t, amount.New(10), env.ledger.Balance(custody))
	assert.Greater(t, env.bank.CurrencyBalance(ops).Units(), uint64(0))
	assert.True(t, env.bank.CurrencyBalance(custody).IsZero())
	env.requireConservation()
}

func TestSwapAtMostOncePerTick(t *testing.T) {
	env := newTestEnv(t)
	env.launch()
	env.fund("seller", 25_000_000)
	env.fund("alice", 1_000_000)

	env.engine.Transfer("seller", poolAddr, amount.New(10_000_000))
	res := env.engine.Transfer("alice", "bob", amount.New(1000))
	require.True(t, res.SwapTriggered)

	// Refill past the threshold within the same tick.
	env.engine.Transfer("seller", poolAddr, amount.New(10_000_000))
	require.GreaterOrEqual(t, env.ledger.Balance(custody).Units(), uint64(500_000))

	res = env.engine.Transfer("alice", "bob", amount.New(1000))
	require.Equal(t, Success, res.Result)
	assert.False(t, res.SwapTriggered)

	// The next tick swaps again.
	env.engine.AdvanceTick()
	res = env.engine.Transfer("alice", "bob", amount.New(1000))
	require.Equal(t, Success, res.Result)
	assert.True(t, res.SwapTriggered)
	assert.Equal(t, Success, res.SwapResult)
}

func TestAcquisitionNeverTriggersSwap(t *testing.T) {
	env := newTestEnv(t)
	env.launch()
	env.fund("seller", 25_000_000)

	env.engine.Transfer("seller", poolAddr, amount.New(10_000_000))
	require.Equal(t, amount.New(500_000), env.ledger.Balance(custody))

	// An acquisition over the threshold still does not swap.
	res := env.engine.Transfer(poolAddr, "buyer", amount.New(1000))
	require.Equal(t, Success, res.Result)
	assert.False(t, res.SwapTriggered)
	assert.Equal(t, amount.New(500_000+30), env.ledger.Balance(custody))
}

func TestSwapBackBeforeLaunch(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, NotLaunched, env.engine.SwapBack(amount.New(100)))
}

func TestSwapBackEmptyCustody(t *testing.T) {
	env := newTestEnv(t)
	env.launch()

	assert.Equal(t, Success, env.engine.SwapBack(amount.New(100)))
	assert.True(t, env.bank.CurrencyBalance(ops).IsZero())
}

func TestSwapBackCapMultiplier(t *testing.T) {
	env := newTestEnvCfg(t, func(cfg *Config) {
		cfg.SwapCapMultiplier = 3
	})
	env.launch()
	env.fund(custody, 2_000_000)

	// Capped at 3x the 500k threshold, not the full request.
	res := env.engine.SwapBack(amount.New(2_000_000))
	require.Equal(t, Success, res)
	assert.Equal(t, amount.New(500_000), env.ledger.Balance(custody))
	assert.Greater(t, env.bank.CurrencyBalance(ops).Units(), uint64(0))
}

func TestSwapBackQuoteHaircut(t *testing.T) {
	env := newTestEnvCfg(t, func(cfg *Config) {
		cfg.QuoteHaircutBps = 100
	})
	env.launch()
	env.fund(custody, 600_000)

	p, ok := env.factory.GetPool()
	require.True(t, ok)
	quote := p.QuoteTokensForCurrency(amount.New(500_000))

	res := env.engine.SwapBack(amount.New(600_000))
	require.Equal(t, Success, res)
	assert.Equal(t, quote, env.bank.CurrencyBalance(ops))
}

// failingBank refuses transfers matched by refuse.
type failingBank struct {
	*pool.MemoryBank
	refuse func(from, to ledger.Address) bool
}

func (b *failingBank) TransferCurrency(from, to ledger.Address, amt amount.Amount) error {
	if b.refuse != nil && b.refuse(from, to) {
		return errors.New("transfer refused")
	}
	return b.MemoryBank.TransferCurrency(from, to, amt)
}

func TestForwardRetainStrandedRetry(t *testing.T) {
	l := ledger.NewWithGenesis(owner, amount.New(totalSupply))
	reg := policy.NewRegistry(policy.DefaultBounds(), amount.New(totalSupply))
	bank := &failingBank{MemoryBank: pool.NewMemoryBank()}

	var e *Engine
	factory := pool.NewMemoryFactory(poolAddr, l, bank, func() uint64 { return e.Tick() })
	e = New(l, reg, factory, bank, Config{
		CustodyAccount:    custody,
		OperationsAccount: ops,
		TreasuryAccount:   treasury,
		ForwardPolicy:     ForwardRetain,
	})
	reg.SetLimitExempt(owner, true)
	reg.SetFeeExempt(owner, true)
	reg.SetLimitExempt(custody, true)
	reg.SetFeeExempt(custody, true)
	require.NoError(t, reg.SetSwapThreshold(amount.New(500_000)))

	require.NoError(t, bank.CreditCurrency(owner, amount.New(100_000_000)))
	require.Equal(t, Success, e.Launch(owner, amount.New(400_000_000), amount.New(100_000_000)))
	e.AdvanceTick()
	require.Equal(t, Success, e.Transfer(owner, custody, amount.New(2_000_000)).Result)

	// First swap succeeds but the forward is refused: the proceeds
	// stay in custody.
	bank.refuse = func(from, to ledger.Address) bool {
		return from == custody && to == ops
	}
	res := e.SwapBack(amount.New(2_000_000))
	assert.Equal(t, ForwardTransferFailed, res)

	stranded := bank.CurrencyBalance(custody)
	assert.Greater(t, stranded.Units(), uint64(0))
	assert.True(t, bank.CurrencyBalance(ops).IsZero())

	// The next swap forwards the stranded balance along with its own
	// proceeds.
	bank.refuse = nil
	res = e.SwapBack(amount.New(500_000))
	require.Equal(t, Success, res)
	assert.True(t, bank.CurrencyBalance(custody).IsZero())
	assert.Greater(t, bank.CurrencyBalance(ops).Units(), stranded.Units())
}

func TestForwardAbortRefusalFailsExchange(t *testing.T) {
	l := ledger.NewWithGenesis(owner, amount.New(totalSupply))
	reg := policy.NewRegistry(policy.DefaultBounds(), amount.New(totalSupply))
	bank := &failingBank{MemoryBank: pool.NewMemoryBank()}

	var e *Engine
	factory := pool.NewMemoryFactory(poolAddr, l, bank, func() uint64 { return e.Tick() })
	e = New(l, reg, factory, bank, Config{
		CustodyAccount:    custody,
		OperationsAccount: ops,
		TreasuryAccount:   treasury,
	})
	reg.SetLimitExempt(owner, true)
	reg.SetFeeExempt(owner, true)
	reg.SetLimitExempt(custody, true)
	reg.SetFeeExempt(custody, true)
	require.NoError(t, reg.SetSwapThreshold(amount.New(500_000)))

	require.NoError(t, bank.CreditCurrency(owner, amount.New(100_000_000)))
	require.Equal(t, Success, e.Launch(owner, amount.New(400_000_000), amount.New(100_000_000)))
	e.AdvanceTick()
	require.Equal(t, Success, e.Transfer(owner, custody, amount.New(2_000_000)).Result)

	// The pool pays operations directly; a refused payment aborts the
	// exchange with nothing spent on either side.
	bank.refuse = func(from, to ledger.Address) bool { return to == ops }
	res := e.SwapBack(amount.New(500_000))
	assert.Equal(t, PoolCallFailed, res)

	assert.Equal(t, amount.New(2_000_000), l.Balance(custody))
	assert.True(t, bank.CurrencyBalance(ops).IsZero())
	assert.Equal(t, amount.New(400_000_000), l.Balance(poolAddr))
	assert.Equal(t, amount.New(100_000_000), bank.CurrencyBalance(poolAddr))
}

// reentrantPool calls back into the engine from inside a swap and
// records the result.
type reentrantPool struct {
	brokenPool
	engine *Engine
	called bool
	inner  Result
}

func (p *reentrantPool) SwapExactTokensForCurrency(from ledger.Address, amountIn, minOut amount.Amount, recipient ledger.Address, deadline uint64) (amount.Amount, error) {
	p.called = true
	p.inner = p.engine.SwapBack(amountIn)
	return amountIn, nil
}

func TestSwapBackReentrancyLocked(t *testing.T) {
	l := ledger.NewWithGenesis(custody, amount.New(totalSupply))
	reg := policy.NewRegistry(policy.DefaultBounds(), amount.New(totalSupply))
	bank := pool.NewMemoryBank()

	mal := &reentrantPool{brokenPool: brokenPool{addr: poolAddr}}
	e := New(l, reg, &fixedFactory{pool: mal}, bank, Config{
		CustodyAccount:    custody,
		OperationsAccount: ops,
		TreasuryAccount:   treasury,
	})
	mal.engine = e
	require.NoError(t, reg.SetSwapThreshold(amount.New(500_000)))

	res := e.SwapBack(amount.New(1_000_000))
	assert.Equal(t, Success, res)
	assert.True(t, mal.called)
	assert.Equal(t, SwapLocked, mal.inner)
}
