package money

import (
	"github.com/shopspring/decimal"
)

// Zero is decimal zero
var Zero = decimal.Zero

// FromString parses an exact decimal amount from its string form.
func FromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// MustFromString parses a decimal from string, panics on error
func MustFromString(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Sum sums a slice of decimals without intermediate rounding.
func Sum(values []decimal.Decimal) decimal.Decimal {
	result := Zero
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}

// Percent computes part/whole*100. A non-positive whole short-circuits
// to zero so callers never divide by zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.LessThanOrEqual(Zero) {
		return Zero
	}
	hundred := decimal.NewFromInt(100)
	return part.Mul(hundred).Div(whole)
}

// Round2 rounds to 2 places (BRL cents) for presentation.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// IsNonNegative returns true if decimal is >= zero
func IsNonNegative(d decimal.Decimal) bool {
	return d.GreaterThanOrEqual(Zero)
}
