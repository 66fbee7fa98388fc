// Package money provides helpers for exact currency arithmetic and formatting.
package money

import (
	"strings"

	"github.com/iwvelando/bid-estimator/pkg/constants"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(constants.PercentageMultiplier)

// Round rounds a value to cents, half away from zero.
func Round(val decimal.Decimal) decimal.Decimal {
	return val.Round(constants.CurrencyPlaces)
}

// IsCents reports whether val has no fraction of a cent.
func IsCents(val decimal.Decimal) bool {
	return val.Equal(Round(val))
}

// ApplyPercentage returns value * pct / 100 rounded to cents.
func ApplyPercentage(value, pct decimal.Decimal) decimal.Decimal {
	return Round(value.Mul(pct).Div(hundred))
}

// Sum adds all values; the result does not depend on their order.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Parse reads a plain decimal string such as "250", "12.50" or "$1,250.00".
func Parse(value string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(value)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	return decimal.NewFromString(cleaned)
}

// Fixed returns the value with exactly two decimals and no separators (e.g., "3921.50").
func Fixed(amount decimal.Decimal) string {
	return amount.StringFixed(constants.CurrencyPlaces)
}

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount decimal.Decimal) string {
	formatted := formatPositiveCurrency(amount.Abs())
	if amount.IsNegative() {
		return "-$" + formatted
	}
	return "$" + formatted
}

// Percent renders a percentage without trailing zeros ("10", "12.5").
func Percent(pct decimal.Decimal) string {
	return pct.String()
}

func formatPositiveCurrency(value decimal.Decimal) string {
	formatted := Fixed(value)
	parts := strings.SplitN(formatted, ".", 2)
	intPart := parts[0]
	decPart := "00"
	if len(parts) == 2 {
		decPart = parts[1]
	}

	if len(intPart) > 3 {
		var builder strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				builder.WriteByte(',')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String()
	}

	return intPart + "." + decPart
}
