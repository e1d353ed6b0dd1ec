package domain

import (
	"fmt"
	"strings"
)

type Currency string

const (
	RON Currency = "RON"
	EUR Currency = "EUR"
	USD Currency = "USD"
	GBP Currency = "GBP"
)

// Currencies lists every supported currency in a stable order.
var Currencies = []Currency{RON, EUR, USD, GBP}

func ParseCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if !c.IsValid() {
		return "", fmt.Errorf("unsupported currency %q", code)
	}
	return c, nil
}

func (c Currency) IsValid() bool {
	switch c {
	case RON, EUR, USD, GBP:
		return true
	}
	return false
}

func (c Currency) String() string {
	return string(c)
}
