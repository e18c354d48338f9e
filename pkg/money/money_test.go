package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "$30,000.00", Format(decimal.NewFromInt(30000), "USD"))
	assert.Equal(t, "$12.35", Format(decimal.RequireFromString("12.345"), "usd"))
	assert.Equal(t, "12.50 XYZ", Format(decimal.RequireFromString("12.5"), "XYZ"))
}

func TestFormatter(t *testing.T) {
	f := NewFormatter("USD")
	assert.Equal(t, "USD", f.Currency())
	assert.Equal(t, "$5,000.00", f.Format(decimal.NewFromInt(5000)))
}
