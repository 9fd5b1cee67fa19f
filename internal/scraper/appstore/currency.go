package appstore

import (
	"fmt"
	"log"
	"math"
	"strconv"
)

// ParseCurrency splits a locale-formatted amount string at its first
// decimal digit: everything before is the currency symbol, everything
// from the digit on is the amount (e.g. "$12.34", "¥¥¥19999.99").
//
// A string with no digit at all fails with ErrMalformedAmount. A string
// whose numeric portion does not parse is coerced to zero and logged,
// so one bad line item does not discard an otherwise-valid day.
func ParseCurrency(s string) (Currency, error) {
	idx := -1
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Currency{}, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}

	amount, err := strconv.ParseFloat(s[idx:], 64)
	if err != nil {
		log.Printf("WARN: coercing unparseable amount %q to zero: %v", s, err)
		amount = 0
	}

	return Currency{Symbol: s[:idx], Amount: amount}, nil
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}
