package statement

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var errEmptyAmount = errors.New("empty amount")

var currencyMarks = strings.NewReplacer("INR", "", "Rs.", "", "₹", "", ",", "", " ", "")

// parseAmount converts an Indian-format amount to a decimal.
// Handles: "1,23,456.78", "-500.00", "(500.00)", "2,500.00 Cr", "₹ 750", "INR 1,000.00 Dr".
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)

	negative := false

	upper := strings.ToUpper(s)
	switch {
	case strings.HasSuffix(upper, "DR"):
		negative = true
		s = s[:len(s)-2]
	case strings.HasSuffix(upper, "CR"):
		s = s[:len(s)-2]
	}

	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = currencyMarks.Replace(s)
	if s == "" {
		return decimal.Zero, errEmptyAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	if negative {
		d = d.Neg()
	}

	return d, nil
}
