package pool

import (
	"github.com/holiman/uint256"

	"github.com/tollhouse/tolld/internal/core/amount"
	"github.com/tollhouse/tolld/internal/core/ledger"
)

// swapFeeBps is the pool's own trading fee, charged on the input side.
const swapFeeBps = 30

// ConstantProduct is an x*y=k pool. Its token reserve is its ledger
// balance; its currency reserve is its bank balance. Reserves are read
// from those stores rather than shadowed, so the pool can never
// disagree with the ledger about its own holdings.
type ConstantProduct struct {
	addr   ledger.Address
	view   ledger.View
	bank   Bank
	now    func() uint64
	shares map[ledger.Address]amount.Amount
	total  amount.Amount
}

// NewConstantProduct creates an empty pool at the given ledger address.
func NewConstantProduct(addr ledger.Address, view ledger.View, bank Bank, now func() uint64) *ConstantProduct {
	return &ConstantProduct{
		addr:   addr,
		view:   view,
		bank:   bank,
		now:    now,
		shares: make(map[ledger.Address]amount.Amount),
	}
}

func (p *ConstantProduct) Address() ledger.Address { return p.addr }

func (p *ConstantProduct) Shares(holder ledger.Address) amount.Amount {
	return p.shares[holder]
}

// TotalShares returns the share receipts outstanding.
func (p *ConstantProduct) TotalShares() amount.Amount { return p.total }

func (p *ConstantProduct) tokenReserve() amount.Amount {
	return p.view.Balance(p.addr)
}

func (p *ConstantProduct) currencyReserve() amount.Amount {
	return p.bank.CurrencyBalance(p.addr)
}

func (p *ConstantProduct) expired(deadline uint64) bool {
	return deadline != 0 && p.now() > deadline
}

func (p *ConstantProduct) AddLiquidity(from ledger.Address, tokens, currency, minTokens, minCurrency amount.Amount, recipient ledger.Address, deadline uint64) (amount.Amount, amount.Amount, amount.Amount, error) {
	if p.expired(deadline) {
		return 0, 0, 0, ErrExpired
	}
	if tokens.IsZero() || currency.IsZero() {
		return 0, 0, 0, ErrInsufficientIn
	}

	useTokens, useCurrency := tokens, currency
	tokenRes, currencyRes := p.tokenReserve(), p.currencyReserve()

	var minted amount.Amount
	if p.total.IsZero() {
		// First deposit sets the price; shares = sqrt(x*y).
		minted = sqrtProduct(tokens, currency)
	} else {
		// Keep the deposit proportional to current reserves.
		optCurrency := mulDiv(tokens, currencyRes, tokenRes)
		if optCurrency <= currency {
			useCurrency = optCurrency
		} else {
			useTokens = mulDiv(currency, tokenRes, currencyRes)
		}
		minted = mulDiv(useTokens, p.total, tokenRes)
	}

	if useTokens < minTokens || useCurrency < minCurrency {
		return 0, 0, 0, ErrSlippage
	}
	if minted.IsZero() {
		return 0, 0, 0, ErrInsufficientIn
	}
	if p.view.Balance(from) < useTokens {
		return 0, 0, 0, ledger.ErrInsufficientFunds
	}
	if p.bank.CurrencyBalance(from) < useCurrency {
		return 0, 0, 0, ErrCurrencyFunds
	}

	if err := p.view.Debit(from, useTokens); err != nil {
		return 0, 0, 0, err
	}
	if err := p.view.Credit(p.addr, useTokens); err != nil {
		return 0, 0, 0, err
	}
	if err := p.bank.TransferCurrency(from, p.addr, useCurrency); err != nil {
		return 0, 0, 0, err
	}

	p.shares[recipient] = p.shares[recipient].Add(minted)
	p.total = p.total.Add(minted)
	return useTokens, useCurrency, minted, nil
}

func (p *ConstantProduct) SwapExactTokensForCurrency(from ledger.Address, amountIn, minOut amount.Amount, recipient ledger.Address, deadline uint64) (amount.Amount, error) {
	if p.expired(deadline) {
		return 0, ErrExpired
	}
	if amountIn.IsZero() {
		return 0, ErrInsufficientIn
	}

	out := p.QuoteTokensForCurrency(amountIn)
	if out.IsZero() {
		return 0, ErrEmptyPool
	}
	if out < minOut {
		return 0, ErrSlippage
	}
	if p.view.Balance(from) < amountIn {
		return 0, ledger.ErrInsufficientFunds
	}

	// Pay the currency side first: it is the only step that can be
	// refused, and a refusal must abort the exchange as a whole.
	if err := p.bank.TransferCurrency(p.addr, recipient, out); err != nil {
		return 0, err
	}
	if err := p.view.Debit(from, amountIn); err != nil {
		// Unreachable given the balance check; restore the payout.
		_ = p.bank.TransferCurrency(recipient, p.addr, out)
		return 0, err
	}
	if err := p.view.Credit(p.addr, amountIn); err != nil {
		_ = p.view.Credit(from, amountIn)
		_ = p.bank.TransferCurrency(recipient, p.addr, out)
		return 0, err
	}
	return out, nil
}

func (p *ConstantProduct) SwapExactCurrencyForTokens(from ledger.Address, amountIn, minOut amount.Amount, recipient ledger.Address, deadline uint64) (amount.Amount, error) {
	if p.expired(deadline) {
		return 0, ErrExpired
	}
	if amountIn.IsZero() {
		return 0, ErrInsufficientIn
	}

	out := quoteOut(amountIn, p.currencyReserve(), p.tokenReserve())
	if out.IsZero() {
		return 0, ErrEmptyPool
	}
	if out < minOut {
		return 0, ErrSlippage
	}

	if err := p.bank.TransferCurrency(from, p.addr, amountIn); err != nil {
		return 0, err
	}
	if err := p.view.Debit(p.addr, out); err != nil {
		return 0, err
	}
	if err := p.view.Credit(recipient, out); err != nil {
		return 0, err
	}
	return out, nil
}

func (p *ConstantProduct) QuoteTokensForCurrency(amountIn amount.Amount) amount.Amount {
	return quoteOut(amountIn, p.tokenReserve(), p.currencyReserve())
}

// quoteOut prices an exact-input swap against x*y=k with the pool fee
// taken from the input: out = inAfterFee*ro / (ri + inAfterFee).
// Products are computed in 256-bit space.
func quoteOut(amountIn, reserveIn, reserveOut amount.Amount) amount.Amount {
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return 0
	}
	inAfterFee := new(uint256.Int).Mul(
		uint256.NewInt(amountIn.Units()),
		uint256.NewInt(amount.FeeDenominator-swapFeeBps),
	)
	numerator := new(uint256.Int).Mul(inAfterFee, uint256.NewInt(reserveOut.Units()))
	denominator := new(uint256.Int).Mul(
		uint256.NewInt(reserveIn.Units()),
		uint256.NewInt(amount.FeeDenominator),
	)
	denominator.Add(denominator, inAfterFee)
	if denominator.IsZero() {
		return 0
	}
	numerator.Div(numerator, denominator)
	return amount.Amount(numerator.Uint64())
}

// mulDiv computes a*b/c in 256-bit space.
func mulDiv(a, b, c amount.Amount) amount.Amount {
	if c.IsZero() {
		return 0
	}
	product := new(uint256.Int).Mul(uint256.NewInt(a.Units()), uint256.NewInt(b.Units()))
	product.Div(product, uint256.NewInt(c.Units()))
	return amount.Amount(product.Uint64())
}

func sqrtProduct(a, b amount.Amount) amount.Amount {
	product := new(uint256.Int).Mul(uint256.NewInt(a.Units()), uint256.NewInt(b.Units()))
	root := new(uint256.Int).Sqrt(product)
	return amount.Amount(root.Uint64())
}
