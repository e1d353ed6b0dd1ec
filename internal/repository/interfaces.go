package repository

import (
	"context"
	"errors"

	"mybank/internal/domain"
)

// TransactionRepository stores the transactions recorded by a single account.
// History returns them in insertion order.
type TransactionRepository interface {
	Save(ctx context.Context, transaction *domain.Transaction) error
	History(ctx context.Context) ([]*domain.Transaction, error)
}

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate entry")
)
