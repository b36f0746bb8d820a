// Package format renders numbers for terminal output.
package format

import (
	"math"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const Missing = "—"

// USD formats a dollar amount with two decimals, e.g. "$1,234.50".
func USD(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Missing
	}
	cents := decimal.NewFromFloat(v).Shift(2).Round(0).IntPart()
	return money.New(cents, money.USD).Display()
}

func USDPtr(v *float64) string {
	if v == nil {
		return Missing
	}
	return USD(*v)
}

// SignedUSD prefixes positive amounts with "+".
func SignedUSD(v float64) string {
	s := USD(v)
	if v > 0 {
		return "+" + s
	}
	return s
}

// Percent formats a value already expressed in percent units.
func Percent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + "%"
}

// Ratio formats a fractional ratio (0.1) as a percentage ("10.00%").
func Ratio(v float64) string {
	return Percent(v * 100)
}

// Quantity trims trailing zeros: 100 → "100", 2.5 → "2.5".
func Quantity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Compact abbreviates large magnitudes: 1250000 → "1.25M".
func Compact(v float64) string {
	abs := math.Abs(v)
	var unit string
	switch {
	case abs >= 1e12:
		v, unit = v/1e12, "T"
	case abs >= 1e9:
		v, unit = v/1e9, "B"
	case abs >= 1e6:
		v, unit = v/1e6, "M"
	case abs >= 1e3:
		v, unit = v/1e3, "K"
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	return s + unit
}

// Multiple formats a ratio such as relative volume, e.g. "2.35x".
func Multiple(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Missing
	}
	return strconv.FormatFloat(v, 'f', 2, 64) + "x"
}
