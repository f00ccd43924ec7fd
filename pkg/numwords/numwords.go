// Package numwords renders monetary amounts as English words, e.g.
// 5.00 -> "five dollars and zero cents". Used to derive a request's
// amount-in-words field from its recomputed total.
package numwords

import (
	"strings"

	"github.com/shopspring/decimal"
)

var ones = []string{
	"zero", "one", "two", "three", "four", "five", "six", "seven",
	"eight", "nine", "ten", "eleven", "twelve", "thirteen", "fourteen",
	"fifteen", "sixteen", "seventeen", "eighteen", "nineteen",
}

var tens = []string{
	"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy",
	"eighty", "ninety",
}

var scales = []struct {
	value int64
	name  string
}{
	{1_000_000_000_000, "trillion"},
	{1_000_000_000, "billion"},
	{1_000_000, "million"},
	{1_000, "thousand"},
}

// Amount spells out a monetary value: integer and fractional-cents
// parts each in words, joined by the currency-unit phrase. Negative
// amounts are prefixed with "minus".
func Amount(d decimal.Decimal) string {
	negative := d.IsNegative()
	d = d.Abs().Round(2)

	units := d.IntPart()
	cents := d.Sub(decimal.NewFromInt(units)).Mul(decimal.NewFromInt(100)).IntPart()

	var b strings.Builder
	if negative {
		b.WriteString("minus ")
	}
	b.WriteString(Cardinal(units))
	if units == 1 {
		b.WriteString(" dollar")
	} else {
		b.WriteString(" dollars")
	}
	b.WriteString(" and ")
	b.WriteString(Cardinal(cents))
	if cents == 1 {
		b.WriteString(" cent")
	} else {
		b.WriteString(" cents")
	}
	return b.String()
}

// Cardinal spells out an integer in English words.
func Cardinal(n int64) string {
	if n < 0 {
		return "minus " + Cardinal(-n)
	}
	if n < 20 {
		return ones[n]
	}

	for _, scale := range scales {
		if n >= scale.value {
			head := Cardinal(n / scale.value)
			rest := n % scale.value
			if rest == 0 {
				return head + " " + scale.name
			}
			return head + " " + scale.name + " " + Cardinal(rest)
		}
	}

	return belowThousand(n)
}

func belowThousand(n int64) string {
	if n >= 100 {
		head := ones[n/100] + " hundred"
		rest := n % 100
		if rest == 0 {
			return head
		}
		return head + " " + belowThousand(rest)
	}
	if n >= 20 {
		head := tens[n/10]
		if rest := n % 10; rest != 0 {
			return head + "-" + ones[rest]
		}
		return head
	}
	return ones[n]
}
