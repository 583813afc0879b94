package core

import (
	"math"
	"strconv"
)

// Placeholder is shown in place of a missing numeric value, so that
// "missing" never reads as zero.
const Placeholder = "N/A"

// Currency labels used by report cells and totals.
const (
	CurrencyPrefix = "RS"
	CurrencyUnit   = "Rs"
)

// FormatValue renders v with two decimals, or Placeholder when v is nil or NaN.
func FormatValue(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return Placeholder
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

// FormatFixed is FormatValue for a value known to be present.
func FormatFixed(v float64) string {
	return FormatValue(&v)
}

// FormatQuantity renders a litre quantity with its unit, without padding
// decimals ("10 L", "2.5 L").
func FormatQuantity(litres float64) string {
	return strconv.FormatFloat(litres, 'f', -1, 64) + " L"
}

// FormatPrice renders an amount with the currency prefix ("RS 355.00").
func FormatPrice(v float64) string {
	return CurrencyPrefix + " " + FormatFixed(v)
}
