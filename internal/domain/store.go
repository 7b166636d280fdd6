package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// LedgerTx is the handle a unit of work operates through while it holds
// exclusive access to its accounts.
type LedgerTx interface {
	// GetAccount returns a snapshot of a locked account.
	GetAccount(number int64) (*Account, error)

	// ApplyDelta atomically adjusts the account balance by delta (positive
	// credit, negative debit), re-validating activity, non-negative balance
	// and, for withdrawals, daily headroom. Returns the post-change account.
	ApplyDelta(number int64, delta decimal.Decimal, isWithdrawal bool) (*Account, error)

	// RecordTransaction stages the audit record; it commits together with the
	// balance changes of the same unit, or not at all.
	RecordTransaction(tx *Transaction) error
}

// LedgerStore is the authoritative holder of account state. Balance changes
// happen only inside WithAccounts.
type LedgerStore interface {
	GetAccount(ctx context.Context, number int64) (*Account, error)
	CreateAccount(ctx context.Context, account *Account) error
	SetAccountActive(ctx context.Context, number int64, active bool) error

	// WithAccounts runs fn with exclusive access to the named accounts,
	// acquiring them in ascending account-number order to keep concurrent
	// multi-account units from deadlocking. The unit commits iff fn returns
	// nil; on error no mutation survives.
	WithAccounts(ctx context.Context, numbers []int64, fn func(LedgerTx) error) error
}
