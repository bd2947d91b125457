// Package money formats USD amounts for human-readable output.
package money

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Number formats n with thousands separators, e.g. 12500 -> "12,500".
func Number(n int64) string {
	return printer.Sprintf("%d", n)
}

// Amount formats a whole-dollar amount as "$1,234". Fractional amounts keep two decimals.
func Amount(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		if v < 0 {
			return "-$" + Number(int64(-v))
		}
		return "$" + Number(int64(v))
	}
	if v < 0 {
		return "-$" + printer.Sprintf("%.2f", -v)
	}
	return "$" + printer.Sprintf("%.2f", v)
}

// Percent returns part as a whole-number percentage of whole, or 0 when whole is not positive.
func Percent(part, whole float64) int64 {
	if whole <= 0 {
		return 0
	}
	return int64(math.Round(part / whole * 100))
}
