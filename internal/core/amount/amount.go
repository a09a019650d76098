package amount

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Amount is a quantity of the ledger asset in base units.
type Amount uint64

// UnitsPerToken is the number of base units in one whole token.
// The asset carries six fractional decimals.
const UnitsPerToken Amount = 1_000_000

// FeeDenominator is the basis-point denominator for all fee rates.
const FeeDenominator uint64 = 10_000

func New(units uint64) Amount {
	return Amount(units)
}

// FromTokens converts a whole-token count to base units.
func FromTokens(tokens uint64) Amount {
	return Amount(tokens) * UnitsPerToken
}

func (a Amount) Units() uint64 {
	return uint64(a)
}

func (a Amount) Add(other Amount) Amount {
	return a + other
}

func (a Amount) Sub(other Amount) Amount {
	return a - other
}

func (a Amount) IsZero() bool {
	return a == 0
}

func (a Amount) String() string {
	return fmt.Sprintf("%d", uint64(a))
}

// FeePortion returns floor(a * rateBps / FeeDenominator).
// The intermediate product is computed in 256-bit space so the result
// is exact for any amount up to the full uint64 range.
func FeePortion(a Amount, rateBps uint64) Amount {
	product := new(uint256.Int).Mul(
		uint256.NewInt(uint64(a)),
		uint256.NewInt(rateBps),
	)
	product.Div(product, uint256.NewInt(FeeDenominator))
	return Amount(product.Uint64())
}

// CheckedAdd reports a+b and whether the sum overflowed.
func CheckedAdd(a, b Amount) (Amount, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}
