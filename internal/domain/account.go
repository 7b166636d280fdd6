package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bank-ledger/internal/errors"
)

type AccountType string

const (
	AccountTypeSavings  AccountType = "savings"
	AccountTypeChecking AccountType = "checking"
	AccountTypeBusiness AccountType = "business"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeSavings, AccountTypeChecking, AccountTypeBusiness:
		return true
	}
	return false
}

// Limits carries the configured withdrawal policy the account rules evaluate
// against: the system-wide daily cap and the reference timezone for the
// calendar-day rollover.
type Limits struct {
	DefaultDailyWithdrawal decimal.Decimal
	Location               *time.Location
}

type Account struct {
	Number                 int64            `json:"account_number"`
	OwnerID                uuid.UUID        `json:"owner_id"`
	Type                   AccountType      `json:"account_type"`
	Balance                decimal.Decimal  `json:"balance"`
	DailyWithdrawnTotal    decimal.Decimal  `json:"daily_withdrawn_total"`
	WithdrawalDay          time.Time        `json:"withdrawal_day"`
	SpecialWithdrawalLimit *decimal.Decimal `json:"special_withdrawal_limit,omitempty"`
	IsActive               bool             `json:"is_active"`
	CreatedAt              time.Time        `json:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at"`
}

// Clone returns a deep copy so stores can hand out snapshots without exposing
// internal pointers.
func (a *Account) Clone() *Account {
	cp := *a
	if a.SpecialWithdrawalLimit != nil {
		limit := *a.SpecialWithdrawalLimit
		cp.SpecialWithdrawalLimit = &limit
	}
	return &cp
}

// EffectiveWithdrawalLimit returns the account's daily cap: the special limit
// when set, otherwise the configured default.
func (a *Account) EffectiveWithdrawalLimit(defaultLimit decimal.Decimal) decimal.Decimal {
	if a.SpecialWithdrawalLimit != nil {
		return *a.SpecialWithdrawalLimit
	}
	return defaultLimit
}

// rolloverDay resets the daily withdrawal counter the first time the account
// is touched on a new calendar day in the reference timezone, so a stale
// counter never overstates today's usage.
func (a *Account) rolloverDay(now time.Time, loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	y1, m1, d1 := a.WithdrawalDay.In(loc).Date()
	y2, m2, d2 := now.In(loc).Date()
	if y1 != y2 || m1 != m2 || d1 != d2 {
		a.DailyWithdrawnTotal = decimal.Zero
		a.WithdrawalDay = now
	}
}

// ApplyDelta adjusts the balance by delta (positive credit, negative debit)
// after re-validating the account state. It must only be called while the
// caller holds exclusive access to the account. On any error the receiver is
// left unchanged.
func (a *Account) ApplyDelta(delta decimal.Decimal, isWithdrawal bool, now time.Time, limits Limits) error {
	if !a.IsActive {
		return errors.ErrAccountInactive
	}
	a.rolloverDay(now, limits.Location)

	newBalance := a.Balance.Add(delta)
	if delta.IsNegative() {
		if newBalance.IsNegative() {
			return errors.ErrInsufficientFunds
		}
		if isWithdrawal {
			debit := delta.Neg()
			limit := a.EffectiveWithdrawalLimit(limits.DefaultDailyWithdrawal)
			if a.DailyWithdrawnTotal.Add(debit).GreaterThan(limit) {
				return errors.ErrDailyLimitExceeded
			}
			a.DailyWithdrawnTotal = a.DailyWithdrawnTotal.Add(debit)
		}
	}

	a.Balance = newBalance
	a.UpdatedAt = now
	return nil
}
