package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tollhouse/tolld/internal/core/amount"
	"github.com/tollhouse/tolld/internal/core/ledger"
)

func newTestPool(t *testing.T) (*ConstantProduct, *ledger.Ledger, *MemoryBank) {
	t.Helper()
	l := ledger.NewWithGenesis("seeder", amount.New(1_000_000_000))
	bank := NewMemoryBank()
	require.NoError(t, bank.CreditCurrency("seeder", amount.New(1_000_000_000)))

	tick := uint64(1)
	p := NewConstantProduct("pool-1", l, bank, func() uint64 { return tick })
	return p, l, bank
}

func seed(t *testing.T, p *ConstantProduct, tokens, currency uint64) {
	t.Helper()
	_, _, _, err := p.AddLiquidity("seeder", amount.New(tokens), amount.New(currency), 0, 0, "seeder", 0)
	require.NoError(t, err)
}

func TestAddLiquidityFirstDeposit(t *testing.T) {
	p, l, bank := newTestPool(t)

	used1, used2, shares, err := p.AddLiquidity("seeder", amount.New(400_000_000), amount.New(100_000_000), 0, 0, "seeder", 0)
	require.NoError(t, err)

	assert.Equal(t, amount.New(400_000_000), used1)
	assert.Equal(t, amount.New(100_000_000), used2)
	// sqrt(4e8 * 1e8) = 2e8
	assert.Equal(t, amount.New(200_000_000), shares)
	assert.Equal(t, shares, p.Shares("seeder"))

	assert.Equal(t, amount.New(400_000_000), l.Balance("pool-1"))
	assert.Equal(t, amount.New(100_000_000), bank.CurrencyBalance("pool-1"))
}

func TestAddLiquidityProportional(t *testing.T) {
	p, _, _ := newTestPool(t)
	seed(t, p, 400_000_000, 100_000_000)

	// Offering too much currency for the token amount; pool should
	// only take the proportional share.
	used1, used2, _, err := p.AddLiquidity("seeder", amount.New(4_000_000), amount.New(2_000_000), 0, 0, "seeder", 0)
	require.NoError(t, err)
	assert.Equal(t, amount.New(4_000_000), used1)
	assert.Equal(t, amount.New(1_000_000), used2)
}

func TestAddLiquidityZero(t *testing.T) {
	p, _, _ := newTestPool(t)
	_, _, _, err := p.AddLiquidity("seeder", 0, amount.New(1), 0, 0, "seeder", 0)
	assert.ErrorIs(t, err, ErrInsufficientIn)
}

func TestSwapTokensForCurrency(t *testing.T) {
	p, l, bank := newTestPool(t)
	seed(t, p, 100_000_000, 100_000_000)

	out, err := p.SwapExactTokensForCurrency("seeder", amount.New(1_000_000), 0, "seeder", 0)
	require.NoError(t, err)

	// ~1% price impact plus the 0.3% pool fee.
	assert.Greater(t, out.Units(), uint64(980_000))
	assert.Less(t, out.Units(), uint64(1_000_000))

	assert.Equal(t, amount.New(101_000_000), l.Balance("pool-1"))
	assert.Equal(t, amount.New(100_000_000).Sub(out), bank.CurrencyBalance("pool-1"))
}

func TestSwapRespectsMinOut(t *testing.T) {
	p, _, _ := newTestPool(t)
	seed(t, p, 100_000_000, 100_000_000)

	quote := p.QuoteTokensForCurrency(amount.New(1_000_000))
	_, err := p.SwapExactTokensForCurrency("seeder", amount.New(1_000_000), quote+1, "seeder", 0)
	assert.ErrorIs(t, err, ErrSlippage)
}

func TestSwapEmptyPool(t *testing.T) {
	p, _, _ := newTestPool(t)
	_, err := p.SwapExactTokensForCurrency("seeder", amount.New(1_000_000), 0, "seeder", 0)
	assert.ErrorIs(t, err, ErrEmptyPool)
}

func TestSwapDeadline(t *testing.T) {
	l := ledger.NewWithGenesis("seeder", amount.New(1_000_000_000))
	bank := NewMemoryBank()
	require.NoError(t, bank.CreditCurrency("seeder", amount.New(1_000_000_000)))
	p := NewConstantProduct("pool-1", l, bank, func() uint64 { return 10 })
	_, _, _, err := p.AddLiquidity("seeder", amount.New(100_000_000), amount.New(100_000_000), 0, 0, "seeder", 0)
	require.NoError(t, err)

	// Clock is at tick 10; a deadline of 5 has passed.
	_, err = p.SwapExactTokensForCurrency("seeder", amount.New(100), 0, "seeder", 5)
	assert.ErrorIs(t, err, ErrExpired)

	// Deadline 0 means no deadline.
	_, err = p.SwapExactTokensForCurrency("seeder", amount.New(100), 0, "seeder", 0)
	require.NoError(t, err)
}

func TestQuoteMatchesSwap(t *testing.T) {
	p, _, bank := newTestPool(t)
	seed(t, p, 100_000_000, 50_000_000)

	quote := p.QuoteTokensForCurrency(amount.New(2_000_000))
	before := bank.CurrencyBalance("seeder")
	out, err := p.SwapExactTokensForCurrency("seeder", amount.New(2_000_000), quote, "seeder", 0)
	require.NoError(t, err)
	assert.Equal(t, quote, out)
	assert.Equal(t, before.Add(out), bank.CurrencyBalance("seeder"))
}

func TestFactorySinglePool(t *testing.T) {
	l := ledger.New()
	bank := NewMemoryBank()
	f := NewMemoryFactory("pool-1", l, bank, func() uint64 { return 0 })

	_, ok := f.GetPool()
	assert.False(t, ok)

	p, err := f.CreatePool()
	require.NoError(t, err)
	assert.Equal(t, ledger.Address("pool-1"), p.Address())

	_, err = f.CreatePool()
	assert.ErrorIs(t, err, ErrPoolExists)

	got, ok := f.GetPool()
	assert.True(t, ok)
	assert.Equal(t, p, got)
}
