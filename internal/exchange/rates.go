// Package exchange provides currency converters for account transfers.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"mybank/internal/domain"
)

var ErrRateNotFound = errors.New("exchange rate not found")

// Converted amounts are rounded to this many decimal places.
const amountPlaces = 2

type pair struct {
	from, to domain.Currency
}

// RateTable converts with a fixed set of rates. Setting A->B also answers
// B->A with the inverse rate unless that direction was set explicitly.
type RateTable struct {
	mu       sync.RWMutex
	rates    map[pair]decimal.Decimal
	explicit map[pair]bool
}

func NewRateTable() *RateTable {
	return &RateTable{
		rates:    make(map[pair]decimal.Decimal),
		explicit: make(map[pair]bool),
	}
}

// DefaultRateTable returns RON-based reference rates for the supported
// currencies, with cross rates derived through RON.
func DefaultRateTable() *RateTable {
	t := NewRateTable()
	ronPer := map[domain.Currency]decimal.Decimal{
		domain.EUR: decimal.RequireFromString("4.97"),
		domain.USD: decimal.RequireFromString("4.58"),
		domain.GBP: decimal.RequireFromString("5.82"),
	}
	for c, r := range ronPer {
		_ = t.SetRate(c, domain.RON, r)
	}
	for a, ra := range ronPer {
		for b, rb := range ronPer {
			if a != b {
				_ = t.SetRate(a, b, ra.DivRound(rb, 8))
			}
		}
	}
	return t
}

func (t *RateTable) SetRate(from, to domain.Currency, rate decimal.Decimal) error {
	if !from.IsValid() || !to.IsValid() {
		return fmt.Errorf("unsupported currency pair %s/%s", from, to)
	}
	if from == to {
		return fmt.Errorf("rate for %s to itself is always 1", from)
	}
	if !rate.IsPositive() {
		return fmt.Errorf("rate %s/%s must be positive, got %s", from, to, rate)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	p := pair{from, to}
	t.rates[p] = rate
	t.explicit[p] = true

	inv := pair{to, from}
	if !t.explicit[inv] {
		t.rates[inv] = decimal.NewFromInt(1).DivRound(rate, 8)
	}
	return nil
}

func (t *RateTable) Rate(from, to domain.Currency) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	rate, ok := t.rates[pair{from, to}]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s to %s", ErrRateNotFound, from, to)
	}
	return rate, nil
}

func (t *RateTable) Convert(ctx context.Context, amount decimal.Decimal, from, to domain.Currency) (decimal.Decimal, error) {
	rate, err := t.Rate(from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate).Round(amountPlaces), nil
}
