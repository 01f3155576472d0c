package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseLocaleNumber parses a number written with "." as thousands separator and
// "," as decimal separator, e.g. "1.234.567,89". Thousands separators are
// stripped before the decimal separator is converted, so "1.000" reads as 1000.
func ParseLocaleNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.NewReplacer(" ", "", "\u00a0", "", "$", "", "%", "").Replace(s)
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}

	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", raw, err)
	}
	return d.InexactFloat64(), nil
}

// ParseOptionalLocaleNumber is ParseLocaleNumber returning nil instead of an error
func ParseOptionalLocaleNumber(raw string) *float64 {
	v, err := ParseLocaleNumber(raw)
	if err != nil {
		return nil
	}
	return &v
}

// parsePlainNumber parses a machine-written number with "." as decimal separator
func parsePlainNumber(raw string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", raw, err)
	}
	return d.InexactFloat64(), nil
}

// RoundDisplay rounds half away from zero to two decimals for presentation
func RoundDisplay(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// RoundDisplayPtr rounds a nullable value, keeping nil as nil
func RoundDisplayPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := RoundDisplay(*v)
	return &r
}

func ptr(v float64) *float64 {
	return &v
}
