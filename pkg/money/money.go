package money

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseBudget reads a free-form commission budget such as "$1,250.00",
// "$.50" or "Rs. 15,000". Digits and decimal points are kept; a dot directly
// after a letter closes an abbreviation ("Rs.", "approx.") and is dropped, as
// are trailing dots. Anything still unparsable counts as zero.
func ParseBudget(raw string) decimal.Decimal {
	var (
		b    strings.Builder
		prev rune
	)
	b.Grow(len(raw) + 1)
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !unicode.IsLetter(prev):
			b.WriteRune(r)
		}
		prev = r
	}

	cleaned := strings.TrimRight(b.String(), ".")
	if cleaned == "" {
		return decimal.Zero
	}
	if cleaned[0] == '.' {
		cleaned = "0" + cleaned
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

// Sum adds the given amounts, treating an empty slice as zero.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}
	return total
}

// FromNullable unwraps an optional amount, defaulting to zero.
func FromNullable(v decimal.NullDecimal) decimal.Decimal {
	if !v.Valid {
		return decimal.Zero
	}
	return v.Decimal
}
