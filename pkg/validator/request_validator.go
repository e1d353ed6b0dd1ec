package validator

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"mybank/internal/domain"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrAmountTooLarge  = errors.New("amount exceeds limit")
	ErrSameAccount     = errors.New("cannot transfer to same account")
)

// maxAmountPlaces bounds the significant fractional digits of an amount.
// Trailing zeros do not count.
const maxAmountPlaces = 8

// RequestValidator screens API input before it reaches an account.
type RequestValidator struct {
	currencyRegex *regexp.Regexp
	limits        map[domain.Currency]decimal.Decimal
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{
		currencyRegex: regexp.MustCompile(`^[A-Za-z]{3}$`),
		limits: map[domain.Currency]decimal.Decimal{
			domain.RON: decimal.NewFromInt(5000000),
			domain.USD: decimal.NewFromInt(1000000),
			domain.EUR: decimal.NewFromInt(900000),
			domain.GBP: decimal.NewFromInt(800000),
		},
	}
}

func (v *RequestValidator) ParseCurrency(code string) (domain.Currency, error) {
	if !v.currencyRegex.MatchString(code) {
		return "", fmt.Errorf("%w: %q must be a 3-letter code", ErrInvalidCurrency, code)
	}
	c, err := domain.ParseCurrency(code)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCurrency, err)
	}
	return c, nil
}

// ValidateAmount only enforces the per-currency ceiling. Sign checks belong to
// the account so that its errors name the offending parameter.
func (v *RequestValidator) ValidateAmount(amount decimal.Decimal, currency domain.Currency) error {
	if !amount.Truncate(maxAmountPlaces).Equal(amount) {
		return fmt.Errorf("%w: too many decimal places in %s", ErrInvalidAmount, amount)
	}
	if max, ok := v.limits[currency]; ok && amount.GreaterThan(max) {
		return fmt.Errorf("%w: %s %s > %s", ErrAmountTooLarge, amount, currency, max)
	}
	return nil
}

func (v *RequestValidator) ValidateTransfer(fromID, toID string) error {
	if fromID == toID {
		return ErrSameAccount
	}
	return nil
}
