// internal/money/money.go
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultPrefix is the currency prefix used when none is configured.
const DefaultPrefix = "R$"

// normalize reduces free text to a string decimal.NewFromString understands.
// Brazilian convention wins when both separators are present: dots are
// thousands and the comma is the decimal mark.
func normalize(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	s := b.String()

	negative := strings.HasPrefix(s, "-")
	s = strings.ReplaceAll(s, "-", "")

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")

	switch {
	case hasComma && hasDot:
		s = strings.ReplaceAll(s, ".", "")
		s = lastAsDecimal(s, ",")
	case hasComma:
		s = lastAsDecimal(s, ",")
	case hasDot && strings.Count(s, ".") > 1:
		s = lastAsDecimal(s, ".")
	}

	if negative {
		s = "-" + s
	}
	return s
}

// lastAsDecimal keeps the last sep as the decimal point and drops the others.
func lastAsDecimal(s, sep string) string {
	i := strings.LastIndex(s, sep)
	head := strings.ReplaceAll(s[:i], sep, "")
	return head + "." + s[i+len(sep):]
}

// ParseAmount parses a user- or CSV-supplied amount ("R$ 1.234,56",
// "1234.56", "-12,5"). Empty or unparseable input yields zero.
func ParseAmount(raw string) decimal.Decimal {
	s := normalize(raw)
	if s == "" || s == "-" || s == "." || s == "-." {
		return decimal.Zero
	}
	// pad bare ".5" and "5." with a zero
	if strings.HasPrefix(strings.TrimPrefix(s, "-"), ".") {
		s = strings.Replace(s, ".", "0.", 1)
	}
	s = strings.TrimSuffix(s, ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParsePercent parses a percentage with the same separator rules and clamps
// it to [0, 100].
func ParsePercent(raw string) float64 {
	return ClampPercent(ParseAmount(raw).InexactFloat64())
}

// ClampPercent clamps p to [0, 100]; NaN becomes 0.
func ClampPercent(p float64) float64 {
	if p != p || p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// FormatAmount renders v as "R$ 1.234,56": two decimals, comma decimal mark,
// dot thousands separator. An empty prefix renders the bare number.
func FormatAmount(v decimal.Decimal, prefix string) string {
	fixed := v.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var grouped strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}

	out := grouped.String() + "," + frac
	if prefix != "" {
		out = prefix + " " + out
	}
	if v.Round(2).IsNegative() {
		out = "-" + out
	}
	return out
}

// FormatAmountString parses raw and formats the result.
func FormatAmountString(raw, prefix string) string {
	return FormatAmount(ParseAmount(raw), prefix)
}
