package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"mybank/internal/domain"
	"mybank/internal/repository"
)

func TestTransactionRepository_SaveAndGetByID(t *testing.T) {
	repo := NewTransactionRepository()
	tx := domain.NewTransaction(domain.TypeDeposit, decimal.NewFromInt(100), domain.RON, "Deposit to account acc1")

	err := repo.Save(context.Background(), tx)
	if err != nil {
		t.Fatalf("unexpected error on Save: %v", err)
	}
	got, err := repo.GetByID(context.Background(), tx.ID)

	if err != nil {
		t.Fatalf("unexpected error on GetByID: %v", err)
	}
	if got.ID != tx.ID || !got.Amount.Equal(tx.Amount) || got.Currency != domain.RON {
		t.Errorf("expected transaction %+v, got %+v", tx, got)
	}
}

func TestTransactionRepository_GetByIDNotFound(t *testing.T) {
	repo := NewTransactionRepository()

	_, err := repo.GetByID(context.Background(), "missing")

	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTransactionRepository_SaveDuplicate(t *testing.T) {
	repo := NewTransactionRepository()
	tx := domain.NewTransaction(domain.TypeDeposit, decimal.NewFromInt(10), domain.EUR, "Deposit")
	_ = repo.Save(context.Background(), tx)

	err := repo.Save(context.Background(), tx)

	if !errors.Is(err, repository.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestTransactionRepository_HistoryKeepsInsertionOrder(t *testing.T) {
	repo := NewTransactionRepository()
	descriptions := []string{"first", "second", "third"}
	for _, d := range descriptions {
		if err := repo.Save(context.Background(), domain.NewTransaction(domain.TypeDeposit, decimal.NewFromInt(1), domain.USD, d)); err != nil {
			t.Fatalf("unexpected error on Save: %v", err)
		}
	}

	history, err := repo.History(context.Background())

	if err != nil {
		t.Fatalf("unexpected error on History: %v", err)
	}
	if len(history) != len(descriptions) {
		t.Fatalf("expected %d transactions, got %d", len(descriptions), len(history))
	}
	for i, d := range descriptions {
		if history[i].Description != d {
			t.Errorf("expected %q at position %d, got %q", d, i, history[i].Description)
		}
	}
}

func TestTransactionRepository_HistoryReturnsCopy(t *testing.T) {
	repo := NewTransactionRepository()
	_ = repo.Save(context.Background(), domain.NewTransaction(domain.TypeDeposit, decimal.NewFromInt(1), domain.GBP, "one"))

	history, _ := repo.History(context.Background())
	history[0] = nil

	again, _ := repo.History(context.Background())
	if again[0] == nil {
		t.Error("expected repository state to be unaffected by caller mutation")
	}
}

func TestTransactionRepository_SaveNil(t *testing.T) {
	repo := NewTransactionRepository()

	if err := repo.Save(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil transaction, got nil")
	}
}
