package memstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestStore() *MemStore {
	return NewMemStore(domain.Limits{
		DefaultDailyWithdrawal: dec("500"),
		Location:               time.UTC,
	})
}

func mustCreate(t *testing.T, s *MemStore, balance string) int64 {
	t.Helper()
	now := time.Now()
	account := &domain.Account{
		OwnerID:             uuid.New(),
		Type:                domain.AccountTypeChecking,
		Balance:             dec(balance),
		DailyWithdrawnTotal: decimal.Zero,
		WithdrawalDay:       now,
		IsActive:            true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	require.NoError(t, s.CreateAccount(context.Background(), account))
	return account.Number
}

func TestCreateAndGetAccount(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	n1 := mustCreate(t, s, "100")
	n2 := mustCreate(t, s, "0")
	assert.NotEqual(t, n1, n2)

	a, err := s.GetAccount(ctx, n1)
	require.NoError(t, err)
	assert.True(t, a.Balance.Equal(dec("100")))

	_, err = s.GetAccount(ctx, 99999)
	assert.ErrorIs(t, err, errors.ErrAccountNotFound)
}

func TestCreateDuplicateAccount(t *testing.T) {
	s := newTestStore()
	n := mustCreate(t, s, "0")

	err := s.CreateAccount(context.Background(), &domain.Account{Number: n, IsActive: true})
	assert.ErrorIs(t, err, errors.ErrDuplicateAccount)
}

func TestSetAccountActive(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	n := mustCreate(t, s, "100")

	require.NoError(t, s.SetAccountActive(ctx, n, false))
	a, err := s.GetAccount(ctx, n)
	require.NoError(t, err)
	assert.False(t, a.IsActive)

	assert.ErrorIs(t, s.SetAccountActive(ctx, 99999, false), errors.ErrAccountNotFound)
}

func TestWithAccountsCommits(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	n := mustCreate(t, s, "100")

	err := s.WithAccounts(ctx, []int64{n}, func(tx domain.LedgerTx) error {
		a, err := tx.ApplyDelta(n, dec("40").Neg(), true)
		if err != nil {
			return err
		}
		assert.True(t, a.Balance.Equal(dec("60")))
		return tx.RecordTransaction(&domain.Transaction{
			ID:                  uuid.New(),
			Type:                domain.TransactionTypeWithdrawal,
			OriginAccountNumber: n,
			Value:               dec("40"),
			ResultingBalance:    a.Balance,
			CreatedAt:           a.UpdatedAt,
		})
	})
	require.NoError(t, err)

	a, err := s.GetAccount(ctx, n)
	require.NoError(t, err)
	assert.True(t, a.Balance.Equal(dec("60")))
	assert.True(t, a.DailyWithdrawnTotal.Equal(dec("40")))
	assert.Len(t, s.ListTransactions(ctx, n), 1)
}

func TestWithAccountsRollsBackOnError(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	n := mustCreate(t, s, "100")

	errAbort := fmt.Errorf("abort after debit")
	err := s.WithAccounts(ctx, []int64{n}, func(tx domain.LedgerTx) error {
		if _, err := tx.ApplyDelta(n, dec("40").Neg(), true); err != nil {
			return err
		}
		// Unit fails after the debit: nothing may survive, record included.
		if err := tx.RecordTransaction(&domain.Transaction{ID: uuid.New(), OriginAccountNumber: n}); err != nil {
			return err
		}
		return errAbort
	})
	assert.ErrorIs(t, err, errAbort)

	a, err := s.GetAccount(ctx, n)
	require.NoError(t, err)
	assert.True(t, a.Balance.Equal(dec("100")))
	assert.True(t, a.DailyWithdrawnTotal.IsZero())
	assert.Empty(t, s.ListTransactions(ctx, n))
}

func TestWithAccountsUnknownAccount(t *testing.T) {
	s := newTestStore()
	called := false
	err := s.WithAccounts(context.Background(), []int64{42}, func(tx domain.LedgerTx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, errors.ErrAccountNotFound)
	assert.False(t, called)
}

func TestWithAccountsRejectsForeignAccount(t *testing.T) {
	s := newTestStore()
	n1 := mustCreate(t, s, "100")
	n2 := mustCreate(t, s, "100")

	err := s.WithAccounts(context.Background(), []int64{n1}, func(tx domain.LedgerTx) error {
		_, err := tx.ApplyDelta(n2, dec("10"), false)
		return err
	})
	require.Error(t, err)
	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, errors.InternalError, appErr.Code)
}

// Two concurrent withdrawals that individually fit but jointly overdraw must
// produce exactly one success.
func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	n := mustCreate(t, s, "100")

	withdraw := func(results chan<- error) {
		results <- s.WithAccounts(ctx, []int64{n}, func(tx domain.LedgerTx) error {
			_, err := tx.ApplyDelta(n, dec("60").Neg(), true)
			return err
		})
	}

	results := make(chan error, 2)
	go withdraw(results)
	go withdraw(results)

	var failures, successes int
	for i := 0; i < 2; i++ {
		if err := <-results; err != nil {
			assert.ErrorIs(t, err, errors.ErrInsufficientFunds)
			failures++
		} else {
			successes++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, failures)

	a, err := s.GetAccount(ctx, n)
	require.NoError(t, err)
	assert.True(t, a.Balance.Equal(dec("40")))
}

// Opposite-direction transfers between the same pair must not deadlock, and
// money must be conserved across every interleaving.
func TestConcurrentOppositeTransfers(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	n1 := mustCreate(t, s, "10000")
	n2 := mustCreate(t, s, "10000")

	transfer := func(from, to int64) error {
		return s.WithAccounts(ctx, []int64{from, to}, func(tx domain.LedgerTx) error {
			if _, err := tx.ApplyDelta(from, dec("1").Neg(), true); err != nil {
				return err
			}
			_, err := tx.ApplyDelta(to, dec("1"), false)
			return err
		})
	}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, transfer(n1, n2))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, transfer(n2, n1))
		}()
	}
	wg.Wait()

	a1, err := s.GetAccount(ctx, n1)
	require.NoError(t, err)
	a2, err := s.GetAccount(ctx, n2)
	require.NoError(t, err)
	assert.True(t, a1.Balance.Add(a2.Balance).Equal(dec("20000")))
	assert.True(t, a1.Balance.Equal(dec("10000")))
	assert.True(t, a2.Balance.Equal(dec("10000")))
}

func TestListTransactionsFiltersByAccount(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	n1 := mustCreate(t, s, "100")
	n2 := mustCreate(t, s, "100")
	n3 := mustCreate(t, s, "100")

	record := func(origin int64, destination *int64) {
		require.NoError(t, s.WithAccounts(ctx, []int64{origin}, func(tx domain.LedgerTx) error {
			return tx.RecordTransaction(&domain.Transaction{
				ID:                       uuid.New(),
				Type:                     domain.TransactionTypeDeposit,
				OriginAccountNumber:      origin,
				DestinationAccountNumber: destination,
				Value:                    dec("1"),
			})
		}))
	}

	record(n1, nil)
	record(n2, &n1)
	record(n3, nil)

	assert.Len(t, s.ListTransactions(ctx, n1), 2)
	assert.Len(t, s.ListTransactions(ctx, n2), 1)
	assert.Len(t, s.ListTransactions(ctx, n3), 1)
}
