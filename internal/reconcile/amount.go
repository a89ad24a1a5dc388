package reconcile

import (
	"strings"

	"github.com/shopspring/decimal"
)

var currencyLabels = []string{"INR", "inr", "Rs.", "rs.", "Rs", "rs", "₹"}

// ParseAmount reads user formatted numbers such as "1,20,000.50", "Rs 500", "(25)" or
// "1.5E+05". Anything unparseable is zero.
func ParseAmount(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero
	}
	s = strings.ReplaceAll(s, ",", "")
	for _, label := range currencyLabels {
		s = strings.ReplaceAll(s, label, "")
	}
	s = strings.TrimSpace(s)

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if strings.HasPrefix(s, "-") {
		neg = !neg
		s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
	}

	val, err := decimal.NewFromString(s)
	if err != nil {
		val, err = decimal.NewFromString(digitsOnly(s))
		if err != nil {
			return decimal.Zero
		}
	}
	if neg {
		return val.Neg()
	}
	return val
}

// digitsOnly drops labels around a number, as in "500/-" or "USD 12.5". A sign left
// inside the value, as in "12-5", makes it unparseable.
func digitsOnly(s string) string {
	s = strings.TrimSuffix(s, "/-")
	if strings.ContainsAny(s, "+-") {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Amount is ParseAmount as float64.
func Amount(raw string) float64 {
	return ParseAmount(raw).InexactFloat64()
}

func withinTolerance(external, internal string, tolerance float64) bool {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	diff := ParseAmount(external).Sub(ParseAmount(internal)).Abs()
	return diff.LessThanOrEqual(decimal.NewFromFloat(tolerance))
}
