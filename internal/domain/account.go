package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountSnapshot is a read-only view of an account at a point in time.
type AccountSnapshot struct {
	ID             string          `json:"id"`
	Balance        decimal.Decimal `json:"balance"`
	Currency       Currency        `json:"currency"`
	CreatedAt      time.Time       `json:"created_at"`
	LastActivityAt time.Time       `json:"last_activity_at"`
}
