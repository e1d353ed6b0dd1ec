package account

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNilTarget         = errors.New("target account is nil")
	ErrInvalidConversion = errors.New("invalid conversion result")
	ErrAmountTooSmall    = errors.New("amount too small to convert")
)

// ArgumentError reports which parameter of an operation was rejected.
type ArgumentError struct {
	Param  string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Param, e.Reason)
}

func (e *ArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

func argumentError(param, reason string) error {
	return &ArgumentError{Param: param, Reason: reason}
}
