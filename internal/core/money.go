package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatAmount renders d with two decimals and comma thousands separators,
// e.g. 1234567.891 -> "1,234,567.89".
func FormatAmount(d decimal.Decimal) string {
	return groupThousands(d.StringFixed(2))
}

// FormatCount renders an integer count with thousands separators.
func FormatCount(n int) string {
	return groupThousands(strconv.Itoa(n))
}

func groupThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if hasFrac {
		out += "." + frac
	}
	if neg {
		return "-" + out
	}
	return out
}
