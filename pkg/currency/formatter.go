// Package currency formats money and point balances for display.
package currency

import (
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

// zeroDecimal currencies are shown without minor units.
var zeroDecimal = map[string]bool{
	"JPY": true,
	"IDR": true,
	"KRW": true,
}

// Format renders an amount with thousands separators, e.g. "$1,234.50" or
// "IDR 1,500,000". Unknown codes are written before the number.
func Format(amount float64, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = "USD"
	}

	negative := amount < 0
	if negative {
		amount = -amount
	}

	var number string
	if zeroDecimal[code] {
		number = humanize.FormatFloat("#,###.", math.Round(amount))
	} else {
		number = humanize.FormatFloat("#,###.##", amount)
	}

	var result string
	if sym, ok := symbols[code]; ok {
		result = sym + number
	} else {
		result = code + " " + number
	}
	if negative {
		result = "-" + result
	}
	return result
}

// FormatPoints renders a points balance, e.g. "25,000 pts".
func FormatPoints(points int) string {
	return humanize.Comma(int64(points)) + " pts"
}

// FormatCents renders a per-point valuation in cents, e.g. "1.35¢".
func FormatCents(cents float64) string {
	return humanize.FormatFloat("#,###.##", cents) + "¢"
}
