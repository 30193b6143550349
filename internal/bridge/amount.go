package bridge

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatAmount shifts a raw base-unit integer string by decimals without
// passing through floating point.
func FormatAmount(raw string, decimals int32) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "0" {
		return decimal.Zero, nil
	}
	if decimals < 0 {
		return decimal.Decimal{}, fmt.Errorf("negative decimals %d", decimals)
	}

	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("invalid integer amount %q", raw)
	}
	return decimal.NewFromBigInt(value, -decimals), nil
}

// ParseDecimal reads an optional decimal string, ok is false when absent or invalid.
func ParseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// USDValue applies the preference order: a provider-supplied USD figure,
// then amount times unit price, else zero.
func USDValue(providedUSD, unitPrice string, amount decimal.Decimal) decimal.Decimal {
	if usd, ok := ParseDecimal(providedUSD); ok {
		return usd
	}
	if price, ok := ParseDecimal(unitPrice); ok {
		return amount.Mul(price)
	}
	return decimal.Zero
}
