// Package money formats major-unit amounts for display.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

var symbols = map[string]string{
	"KES": "KES ",
	"NGN": "₦",
	"GHS": "GH₵",
	"ZAR": "R",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// Format renders amount with the currency symbol and thousands separators, e.g. "KES 1,200" or "$19.99".
// Whole amounts are printed without decimals.
func Format(currency string, amount decimal.Decimal) string {
	symbol, ok := symbols[strings.ToUpper(currency)]
	if !ok {
		symbol = strings.ToUpper(currency) + " "
	}
	return symbol + Group(amount)
}

// Group inserts thousands separators into the amount.
func Group(amount decimal.Decimal) string {
	neg := amount.IsNegative()
	amount = amount.Abs()

	var text string
	if amount.Equal(amount.Truncate(0)) {
		text = amount.StringFixed(0)
	} else {
		text = amount.StringFixed(2)
	}

	intPart, frac := text, ""
	if dot := strings.IndexByte(text, '.'); dot >= 0 {
		intPart, frac = text[:dot], text[dot:]
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteString(frac)
	return b.String()
}
