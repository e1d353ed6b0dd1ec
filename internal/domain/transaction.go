package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TypeInitialDeposit TransactionType = "initial_deposit"
	TypeDeposit        TransactionType = "deposit"
	TypeWithdrawal     TransactionType = "withdrawal"
	TypeTransferOut    TransactionType = "transfer_out"
	TypeTransferIn     TransactionType = "transfer_in"
	// TypeTransferReversal credits back a transfer out whose receiving side
	// could not be recorded.
	TypeTransferReversal TransactionType = "transfer_reversal"
)

// Transaction is an immutable record of a single balance movement. Amount is
// always positive; the direction is carried by Type and Description.
type Transaction struct {
	ID          string          `json:"id"`
	Type        TransactionType `json:"type"`
	Timestamp   time.Time       `json:"timestamp"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    Currency        `json:"currency"`
	Description string          `json:"description"`
}

func NewTransaction(t TransactionType, amount decimal.Decimal, currency Currency, description string) *Transaction {
	return &Transaction{
		ID:          uuid.NewString(),
		Type:        t,
		Timestamp:   time.Now().UTC(),
		Amount:      amount,
		Currency:    currency,
		Description: description,
	}
}
