// Package money renders decimal amounts for humans in the configured currency.
package money

import (
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Format renders amount using the currency's grapheme, separators and
// fraction digits. Unknown currency codes fall back to "<amount> <CODE>".
func Format(amount decimal.Decimal, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	cur := gomoney.GetCurrency(code)
	if cur == nil {
		return strings.TrimSpace(amount.StringFixed(2) + " " + code)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return gomoney.New(minor.IntPart(), code).Display()
}

// Formatter binds Format to one currency.
type Formatter struct {
	currency string
}

// NewFormatter returns a formatter for the given currency code.
func NewFormatter(currency string) Formatter {
	return Formatter{currency: currency}
}

func (f Formatter) Format(amount decimal.Decimal) string {
	return Format(amount, f.currency)
}

// Currency reports the bound currency code.
func (f Formatter) Currency() string {
	return f.currency
}
