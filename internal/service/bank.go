package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"mybank/internal/account"
	"mybank/internal/domain"
	"mybank/internal/repository/memory"
)

var ErrAccountNotFound = errors.New("account not found")

// OperationRecorder receives per-operation metrics from the Bank.
type OperationRecorder interface {
	RecordOperation(operation string, currency domain.Currency, duration time.Duration, success bool)
	RecordLargeTransaction(operation string, currency domain.Currency)
	UpdateAccountBalance(accountID string, currency domain.Currency, balance decimal.Decimal)
}

type accountEntry struct {
	acc            *account.Account
	repo           *memory.TransactionRepository
	createdAt      time.Time
	lastActivityAt time.Time
}

func (e *accountEntry) snapshot() domain.AccountSnapshot {
	return domain.AccountSnapshot{
		ID:             e.acc.ID(),
		Balance:        e.acc.Balance(),
		Currency:       e.acc.Currency(),
		CreatedAt:      e.createdAt,
		LastActivityAt: e.lastActivityAt,
	}
}

// quote is a conversion obtained before the bank lock was taken.
type quote struct {
	amount   decimal.Decimal
	from, to domain.Currency
	result   decimal.Decimal
	err      error
}

// quoteBook is the converter handed to every account. While a transfer holds
// the bank lock it answers the matching conversion from the prefetched quote
// and passes anything else through to the live converter. quote is only
// touched under Bank.mu.
type quoteBook struct {
	next  account.CurrencyConverter
	quote *quote
}

func (q *quoteBook) Convert(ctx context.Context, amount decimal.Decimal, from, to domain.Currency) (decimal.Decimal, error) {
	if p := q.quote; p != nil && p.from == from && p.to == to && p.amount.Equal(amount) {
		return p.result, p.err
	}
	return q.next.Convert(ctx, amount, from, to)
}

// Bank keeps the open accounts of one process. Each account gets its own
// in-memory transaction repository. A single mutex serializes every
// operation, so a transfer is atomic with respect to other callers.
//
// Rate lookups for transfers happen before the mutex is taken, and the
// notifier must not block (NotificationService drops on a full queue), so a
// slow rate source or alert channel does not stall other accounts.
type Bank struct {
	mu        sync.Mutex
	accounts  map[string]*accountEntry
	order     []string
	converter account.CurrencyConverter
	quotes    *quoteBook
	notifier  account.Notifier
	recorder  OperationRecorder
	logger    *slog.Logger
}

type TransferResult struct {
	From domain.AccountSnapshot `json:"from"`
	To   domain.AccountSnapshot `json:"to"`
}

func NewBank(
	converter account.CurrencyConverter,
	notifier account.Notifier,
	recorder OperationRecorder,
	logger *slog.Logger,
) *Bank {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bank{
		accounts:  make(map[string]*accountEntry),
		converter: converter,
		quotes:    &quoteBook{next: converter},
		notifier:  notifier,
		recorder:  recorder,
		logger:    logger,
	}
}

func (b *Bank) OpenAccount(ctx context.Context, currency domain.Currency, initialBalance decimal.Decimal) (domain.AccountSnapshot, error) {
	start := time.Now()
	repo := memory.NewTransactionRepository()

	acc, err := account.New(ctx, repo, b.quotes, b.notifier,
		account.WithCurrency(currency),
		account.WithInitialBalance(initialBalance),
		account.WithLogger(b.logger))
	b.record("open", currency, start, err)
	if err != nil {
		return domain.AccountSnapshot{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().UTC()
	entry := &accountEntry{acc: acc, repo: repo, createdAt: now, lastActivityAt: now}
	b.accounts[acc.ID()] = entry
	b.order = append(b.order, acc.ID())
	b.updateBalance(entry)

	b.logger.InfoContext(ctx, "Account opened",
		slog.String("account_id", acc.ID()),
		slog.String("currency", currency.String()),
		slog.String("initial_balance", initialBalance.String()))

	return entry.snapshot(), nil
}

func (b *Bank) Account(id string) (domain.AccountSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, err := b.lookup(id)
	if err != nil {
		return domain.AccountSnapshot{}, err
	}
	return entry.snapshot(), nil
}

// Accounts returns every account in the order it was opened.
func (b *Bank) Accounts() []domain.AccountSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]domain.AccountSnapshot, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.accounts[id].snapshot())
	}
	return out
}

func (b *Bank) Deposit(ctx context.Context, id string, amount decimal.Decimal) (domain.AccountSnapshot, error) {
	return b.apply(ctx, "deposit", id, amount, (*account.Account).Deposit)
}

func (b *Bank) Withdraw(ctx context.Context, id string, amount decimal.Decimal) (domain.AccountSnapshot, error) {
	return b.apply(ctx, "withdraw", id, amount, (*account.Account).Withdraw)
}

func (b *Bank) apply(
	ctx context.Context,
	operation, id string,
	amount decimal.Decimal,
	op func(*account.Account, context.Context, decimal.Decimal) error,
) (domain.AccountSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, err := b.lookup(id)
	if err != nil {
		return domain.AccountSnapshot{}, err
	}

	start := time.Now()
	err = op(entry.acc, ctx, amount)
	b.record(operation, entry.acc.Currency(), start, err)
	if err != nil {
		b.logger.WarnContext(ctx, "Operation rejected",
			slog.String("operation", operation),
			slog.String("account_id", id),
			slog.String("amount", amount.String()),
			slog.String("error", err.Error()))
		return domain.AccountSnapshot{}, fmt.Errorf("%s %s: %w", operation, id, err)
	}

	if b.recorder != nil && amount.GreaterThanOrEqual(account.LargeTransactionThreshold) {
		b.recorder.RecordLargeTransaction(operation, entry.acc.Currency())
	}
	entry.lastActivityAt = time.Now().UTC()
	b.updateBalance(entry)

	return entry.snapshot(), nil
}

func (b *Bank) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (TransferResult, error) {
	prefetched := b.prefetchQuote(ctx, fromID, toID, amount)

	b.mu.Lock()
	defer b.mu.Unlock()

	from, err := b.lookup(fromID)
	if err != nil {
		return TransferResult{}, err
	}
	to, err := b.lookup(toID)
	if err != nil {
		return TransferResult{}, err
	}

	b.quotes.quote = prefetched
	defer func() { b.quotes.quote = nil }()

	start := time.Now()
	err = from.acc.TransferTo(ctx, to.acc, amount)
	b.record("transfer", from.acc.Currency(), start, err)
	if err != nil {
		b.logger.WarnContext(ctx, "Transfer rejected",
			slog.String("from_account", fromID),
			slog.String("to_account", toID),
			slog.String("amount", amount.String()),
			slog.String("error", err.Error()))
		return TransferResult{}, fmt.Errorf("transfer %s to %s: %w", fromID, toID, err)
	}

	if b.recorder != nil && amount.GreaterThanOrEqual(account.LargeTransactionThreshold) {
		b.recorder.RecordLargeTransaction("transfer", from.acc.Currency())
	}
	now := time.Now().UTC()
	from.lastActivityAt = now
	to.lastActivityAt = now
	b.updateBalance(from)
	b.updateBalance(to)

	b.logger.InfoContext(ctx, "Transfer completed",
		slog.String("from_account", fromID),
		slog.String("to_account", toID),
		slog.String("amount", amount.String()),
		slog.String("currency", from.acc.Currency().String()))

	return TransferResult{From: from.snapshot(), To: to.snapshot()}, nil
}

// prefetchQuote runs the conversion a cross-currency transfer will need
// without holding the bank lock. It returns nil when the transfer needs no
// conversion or will be rejected before converting, in which case the
// account falls back to the live converter.
func (b *Bank) prefetchQuote(ctx context.Context, fromID, toID string, amount decimal.Decimal) *quote {
	b.mu.Lock()
	from, errFrom := b.lookup(fromID)
	to, errTo := b.lookup(toID)
	if errFrom != nil || errTo != nil {
		b.mu.Unlock()
		return nil
	}
	fromCur, toCur, balance := from.acc.Currency(), to.acc.Currency(), from.acc.Balance()
	b.mu.Unlock()

	if fromCur == toCur || !amount.IsPositive() || amount.GreaterThan(balance) {
		return nil
	}

	result, err := b.converter.Convert(ctx, amount, fromCur, toCur)
	return &quote{amount: amount, from: fromCur, to: toCur, result: result, err: err}
}

func (b *Bank) History(ctx context.Context, id string) ([]*domain.Transaction, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, err := b.lookup(id)
	if err != nil {
		return nil, err
	}
	return entry.acc.TransactionHistory(ctx)
}

func (b *Bank) Transaction(ctx context.Context, accountID, transactionID string) (*domain.Transaction, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, err := b.lookup(accountID)
	if err != nil {
		return nil, err
	}
	return entry.repo.GetByID(ctx, transactionID)
}

func (b *Bank) lookup(id string) (*accountEntry, error) {
	entry, ok := b.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	return entry, nil
}

func (b *Bank) record(operation string, currency domain.Currency, start time.Time, err error) {
	if b.recorder == nil {
		return
	}
	b.recorder.RecordOperation(operation, currency, time.Since(start), err == nil)
}

func (b *Bank) updateBalance(entry *accountEntry) {
	if b.recorder == nil {
		return
	}
	b.recorder.UpdateAccountBalance(entry.acc.ID(), entry.acc.Currency(), entry.acc.Balance())
}
