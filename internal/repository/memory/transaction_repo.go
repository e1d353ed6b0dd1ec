package memory

import (
	"context"
	"fmt"
	"sync"

	"mybank/internal/domain"
	"mybank/internal/repository"
)

type TransactionRepository struct {
	mu           sync.RWMutex
	transactions []*domain.Transaction
	index        map[string]int
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{
		index: make(map[string]int),
	}
}

func (r *TransactionRepository) Save(ctx context.Context, tx *domain.Transaction) error {
	if tx == nil {
		return fmt.Errorf("save transaction: nil transaction")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[tx.ID]; exists {
		return fmt.Errorf("%w: transaction %s", repository.ErrDuplicate, tx.ID)
	}

	r.index[tx.ID] = len(r.transactions)
	r.transactions = append(r.transactions, tx)

	return nil
}

func (r *TransactionRepository) History(ctx context.Context) ([]*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Transaction, len(r.transactions))
	copy(result, r.transactions)
	return result, nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, exists := r.index[id]
	if !exists {
		return nil, fmt.Errorf("%w: transaction %s", repository.ErrNotFound, id)
	}
	return r.transactions[i], nil
}
