package core

import (
	"math"
	"strings"

	"golang.org/x/text/currency"
)

// Currency is an ISO 4217 code restricted to the supported set.
type Currency string

const DefaultCurrency Currency = "INR"

var supportedCurrencies = []Currency{"USD", "EUR", "GBP", "INR", "JPY", "CNY"}

// ParseCurrency normalizes s to an upper-case ISO code. An empty string yields
// DefaultCurrency.
func ParseCurrency(s string) (Currency, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return DefaultCurrency, nil
	}
	unit, err := currency.ParseISO(s)
	if err != nil {
		return "", Invalid("Currency must be one of: %s", strings.Join(SupportedCurrencyCodes(), ", "))
	}
	c := Currency(unit.String())
	if !c.Supported() {
		return "", Invalid("Currency must be one of: %s", strings.Join(SupportedCurrencyCodes(), ", "))
	}
	return c, nil
}

func (c Currency) Supported() bool {
	for _, s := range supportedCurrencies {
		if c == s {
			return true
		}
	}
	return false
}

// SupportedCurrencyCodes lists the accepted codes in display order.
func SupportedCurrencyCodes() []string {
	out := make([]string, len(supportedCurrencies))
	for i, c := range supportedCurrencies {
		out[i] = string(c)
	}
	return out
}

// SafeAmount returns a when it is a finite non-negative number, otherwise 0.
// Aggregations use it so a bad row degrades instead of poisoning a total.
func SafeAmount(a float64) float64 {
	if math.IsNaN(a) || math.IsInf(a, 0) || a < 0 {
		return 0
	}
	return a
}
