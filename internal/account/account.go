// Package account holds the bank account domain object. An Account enforces
// the monetary invariants (non-negative balance, positive amounts) and hands
// persistence, currency conversion and large-transaction alerts to injected
// collaborators.
//
// An Account is not safe for concurrent use. Callers that share accounts
// between goroutines must serialize access themselves.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"mybank/internal/domain"
	"mybank/internal/repository"
)

// LargeTransactionThreshold is the inclusive amount at or above which the
// notifier is told about a movement.
var LargeTransactionThreshold = decimal.NewFromInt(10000)

type CurrencyConverter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to domain.Currency) (decimal.Decimal, error)
}

type Notifier interface {
	Notify(ctx context.Context, accountID, message string) error
}

type Account struct {
	id       string
	balance  decimal.Decimal
	currency domain.Currency

	repo      repository.TransactionRepository
	converter CurrencyConverter
	notifier  Notifier
	logger    *slog.Logger
}

type Option func(*options)

type options struct {
	currency       domain.Currency
	initialBalance decimal.Decimal
	logger         *slog.Logger
}

func WithCurrency(c domain.Currency) Option {
	return func(o *options) { o.currency = c }
}

func WithInitialBalance(b decimal.Decimal) Option {
	return func(o *options) { o.initialBalance = b }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New opens an account. Defaults are RON and a zero balance. A positive
// initial balance is recorded as an initial deposit.
func New(
	ctx context.Context,
	repo repository.TransactionRepository,
	converter CurrencyConverter,
	notifier Notifier,
	opts ...Option,
) (*Account, error) {
	o := options{
		currency:       domain.RON,
		initialBalance: decimal.Zero,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.initialBalance.IsNegative() {
		return nil, argumentError("initialBalance", "initial balance cannot be negative")
	}
	if !o.currency.IsValid() {
		return nil, argumentError("currency", fmt.Sprintf("unsupported currency %q", o.currency))
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	a := &Account{
		id:        uuid.NewString(),
		balance:   o.initialBalance,
		currency:  o.currency,
		repo:      repo,
		converter: converter,
		notifier:  notifier,
		logger:    o.logger,
	}

	if o.initialBalance.IsPositive() {
		tx := domain.NewTransaction(
			domain.TypeInitialDeposit,
			o.initialBalance,
			a.currency,
			fmt.Sprintf("Initial deposit to account %s", a.id))
		if err := a.repo.Save(ctx, tx); err != nil {
			return nil, fmt.Errorf("failed to record initial deposit: %w", err)
		}
	}

	return a, nil
}

func (a *Account) ID() string {
	return a.id
}

func (a *Account) Balance() decimal.Decimal {
	return a.balance
}

func (a *Account) Currency() domain.Currency {
	return a.currency
}

func (a *Account) Deposit(ctx context.Context, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return argumentError("amount", "deposit amount must be positive")
	}

	tx := domain.NewTransaction(
		domain.TypeDeposit,
		amount,
		a.currency,
		fmt.Sprintf("Deposit to account %s", a.id))
	if err := a.repo.Save(ctx, tx); err != nil {
		return fmt.Errorf("failed to record deposit: %w", err)
	}

	a.balance = a.balance.Add(amount)

	if isLarge(amount) {
		a.notify(ctx, a.id, fmt.Sprintf("Large deposit of %s %s received", amount, a.currency))
	}

	return nil
}

func (a *Account) Withdraw(ctx context.Context, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return argumentError("amount", "withdrawal amount must be positive")
	}
	if amount.GreaterThan(a.balance) {
		return ErrInsufficientFunds
	}

	tx := domain.NewTransaction(
		domain.TypeWithdrawal,
		amount,
		a.currency,
		fmt.Sprintf("Withdrawal from account %s", a.id))
	if err := a.repo.Save(ctx, tx); err != nil {
		return fmt.Errorf("failed to record withdrawal: %w", err)
	}

	a.balance = a.balance.Sub(amount)

	if isLarge(amount) {
		a.notify(ctx, a.id, fmt.Sprintf("Large withdrawal of %s %s processed", amount, a.currency))
	}

	return nil
}

// TransferTo moves amount, in the sender's currency, to target. The converter
// is consulted only when the currencies differ. The sender side (debit, record,
// notification) completes before the target is credited.
//
// The large-transaction check uses the sender amount for the "sent" alert and
// the converted amount for the "received" alert.
func (a *Account) TransferTo(ctx context.Context, target *Account, amount decimal.Decimal) error {
	if target == nil {
		return ErrNilTarget
	}
	if !amount.IsPositive() {
		return argumentError("amount", "transfer amount must be positive")
	}
	if amount.GreaterThan(a.balance) {
		return ErrInsufficientFunds
	}

	converted := amount
	if a.currency != target.currency {
		var err error
		converted, err = a.converter.Convert(ctx, amount, a.currency, target.currency)
		if err != nil {
			return fmt.Errorf("failed to convert %s %s to %s: %w", amount, a.currency, target.currency, err)
		}
		if converted.IsZero() {
			return fmt.Errorf("%w: %s %s is worth nothing in %s",
				ErrAmountTooSmall, amount, a.currency, target.currency)
		}
		if converted.IsNegative() {
			return fmt.Errorf("%w: %s %s converted to %s %s",
				ErrInvalidConversion, amount, a.currency, converted, target.currency)
		}
	}

	tx := domain.NewTransaction(
		domain.TypeTransferOut,
		amount,
		a.currency,
		fmt.Sprintf("Transfer out from account %s to account %s", a.id, target.id))
	if err := a.repo.Save(ctx, tx); err != nil {
		return fmt.Errorf("failed to record transfer out: %w", err)
	}

	a.balance = a.balance.Sub(amount)

	if isLarge(amount) {
		a.notify(ctx, a.id, fmt.Sprintf("Large transfer of %s %s sent to account %s", amount, a.currency, target.id))
	}

	if err := target.receiveTransfer(ctx, converted, a.id); err != nil {
		return a.reverseTransfer(ctx, target.id, amount, err)
	}

	return nil
}

// reverseTransfer restores a debit whose credit side failed. The store is
// append-only, so the transfer out is netted by a reversal entry, and a "sent"
// alert that already went out is followed by a reversal alert.
func (a *Account) reverseTransfer(ctx context.Context, targetID string, amount decimal.Decimal, cause error) error {
	a.balance = a.balance.Add(amount)

	tx := domain.NewTransaction(
		domain.TypeTransferReversal,
		amount,
		a.currency,
		fmt.Sprintf("Transfer reversal to account %s, transfer to account %s failed", a.id, targetID))
	if err := a.repo.Save(ctx, tx); err != nil {
		a.logger.ErrorContext(ctx, "Failed to record transfer reversal",
			slog.String("account_id", a.id),
			slog.String("target_account", targetID),
			slog.String("amount", amount.String()),
			slog.String("error", err.Error()))
		return errors.Join(cause, fmt.Errorf("failed to record transfer reversal: %w", err))
	}

	if isLarge(amount) {
		a.notify(ctx, a.id, fmt.Sprintf("Large transfer of %s %s to account %s was reversed", amount, a.currency, targetID))
	}

	return cause
}

func (a *Account) receiveTransfer(ctx context.Context, amount decimal.Decimal, fromID string) error {
	tx := domain.NewTransaction(
		domain.TypeTransferIn,
		amount,
		a.currency,
		fmt.Sprintf("Transfer in to account %s from account %s", a.id, fromID))
	if err := a.repo.Save(ctx, tx); err != nil {
		return fmt.Errorf("failed to record transfer in: %w", err)
	}

	a.balance = a.balance.Add(amount)

	if isLarge(amount) {
		a.notify(ctx, a.id, fmt.Sprintf("Large transfer of %s %s received from account %s", amount, a.currency, fromID))
	}

	return nil
}

func (a *Account) TransactionHistory(ctx context.Context) ([]*domain.Transaction, error) {
	return a.repo.History(ctx)
}

// notify is fire-and-forget: the balance change has already been applied, so
// a delivery failure is only logged.
func (a *Account) notify(ctx context.Context, accountID, message string) {
	if err := a.notifier.Notify(ctx, accountID, message); err != nil {
		a.logger.WarnContext(ctx, "Failed to send notification",
			slog.String("account_id", accountID),
			slog.String("error", err.Error()))
	}
}

func isLarge(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(LargeTransactionThreshold)
}
