package nfe

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseDecimal reads a fiscal amount. Documents in the wild use both
// comma and period separators; anything unparseable becomes zero so a
// single bad field never rejects a whole document.
func ParseDecimal(value string) decimal.Decimal {
	value = strings.TrimSpace(strings.ReplaceAll(value, ",", "."))
	if value == "" {
		return decimal.Zero
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return parsed
}
