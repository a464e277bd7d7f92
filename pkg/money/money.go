// Package money converts between integer cents and decimal dollar amounts.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FromCents returns the dollar amount for cents.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// ToCents converts a dollar amount to cents, dropping fractions of a cent.
func ToCents(d decimal.Decimal) int64 {
	return d.Mul(hundred).Truncate(0).IntPart()
}

// Parse reads a user-supplied price such as "$3.499" or "2.5". Fractions of a cent
// are dropped rather than rounded.
func Parse(raw string) (int64, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "$")
	clean = strings.ReplaceAll(clean, ",", "")
	if clean == "" {
		return 0, fmt.Errorf("money: empty amount")
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("money: parse %q: %w", raw, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("money: negative amount %q", raw)
	}
	return ToCents(d), nil
}

// Format renders cents as a fixed two-place string, e.g. "4.95".
func Format(cents int64) string {
	return FromCents(cents).StringFixed(2)
}

// ApplyRate multiplies cents by rate, rounding half away from zero to the nearest cent.
func ApplyRate(cents int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(cents).Mul(rate).Round(0).IntPart()
}
