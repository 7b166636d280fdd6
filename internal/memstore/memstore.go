// Package memstore implements the ledger store in memory with one lock per
// account. Units of work operate on staged copies, so a failed unit leaves no
// trace; commit swaps the staged copies in while the locks are still held.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
)

type entry struct {
	mu   sync.Mutex
	acct *domain.Account
}

type MemStore struct {
	limits domain.Limits

	// Clock is overridable in tests to drive the day rollover.
	Clock func() time.Time

	mu         sync.RWMutex
	accounts   map[int64]*entry
	nextNumber int64

	logMu sync.Mutex
	log   []*domain.Transaction
}

func NewMemStore(limits domain.Limits) *MemStore {
	return &MemStore{
		limits:   limits,
		Clock:    time.Now,
		accounts: make(map[int64]*entry),
	}
}

// CreateAccount inserts a copy of the account. A zero account number gets the
// next free number assigned, mirroring the serial column of the SQL store.
func (s *MemStore) CreateAccount(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if account.Number == 0 {
		s.nextNumber++
		account.Number = s.nextNumber
	} else if account.Number > s.nextNumber {
		s.nextNumber = account.Number
	}

	if _, ok := s.accounts[account.Number]; ok {
		return errors.ErrDuplicateAccount
	}
	s.accounts[account.Number] = &entry{acct: account.Clone()}
	return nil
}

func (s *MemStore) GetAccount(ctx context.Context, number int64) (*domain.Account, error) {
	e, err := s.lookup(number)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acct.Clone(), nil
}

func (s *MemStore) SetAccountActive(ctx context.Context, number int64, active bool) error {
	e, err := s.lookup(number)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.acct.IsActive = active
	e.acct.UpdatedAt = s.Clock()
	return nil
}

// WithAccounts locks the named accounts in ascending number order, runs fn
// against staged copies, and commits them only when fn succeeds.
func (s *MemStore) WithAccounts(ctx context.Context, numbers []int64, fn func(domain.LedgerTx) error) error {
	ordered := make([]int64, len(numbers))
	copy(ordered, numbers)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	entries := make(map[int64]*entry, len(ordered))
	locked := make([]*entry, 0, len(ordered))
	defer func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].mu.Unlock()
		}
	}()

	for _, n := range ordered {
		if _, ok := entries[n]; ok {
			continue
		}
		e, err := s.lookup(n)
		if err != nil {
			return err
		}
		e.mu.Lock()
		locked = append(locked, e)
		entries[n] = e
	}

	tx := &memTx{
		entries: entries,
		staged:  make(map[int64]*domain.Account, len(entries)),
		limits:  s.limits,
		now:     s.Clock(),
	}
	if err := fn(tx); err != nil {
		return err
	}

	for n, acct := range tx.staged {
		entries[n].acct = acct
	}
	if len(tx.records) > 0 {
		s.logMu.Lock()
		s.log = append(s.log, tx.records...)
		s.logMu.Unlock()
	}
	return nil
}

// ListTransactions returns the committed records referencing the account as
// origin or destination, oldest first.
func (s *MemStore) ListTransactions(ctx context.Context, number int64) []*domain.Transaction {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	var out []*domain.Transaction
	for _, rec := range s.log {
		if rec.OriginAccountNumber == number ||
			(rec.DestinationAccountNumber != nil && *rec.DestinationAccountNumber == number) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out
}

func (s *MemStore) lookup(number int64) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.accounts[number]
	if !ok {
		return nil, errors.ErrAccountNotFound
	}
	return e, nil
}

type memTx struct {
	entries map[int64]*entry
	staged  map[int64]*domain.Account
	records []*domain.Transaction
	limits  domain.Limits
	now     time.Time
}

// account returns the unit's working copy, staging it on first touch.
func (t *memTx) account(number int64) (*domain.Account, error) {
	if acct, ok := t.staged[number]; ok {
		return acct, nil
	}
	e, ok := t.entries[number]
	if !ok {
		return nil, errors.NewAppErrorf(errors.InternalError, "account %d is not part of this unit of work", number)
	}
	acct := e.acct.Clone()
	t.staged[number] = acct
	return acct, nil
}

func (t *memTx) GetAccount(number int64) (*domain.Account, error) {
	acct, err := t.account(number)
	if err != nil {
		return nil, err
	}
	return acct.Clone(), nil
}

func (t *memTx) ApplyDelta(number int64, delta decimal.Decimal, isWithdrawal bool) (*domain.Account, error) {
	acct, err := t.account(number)
	if err != nil {
		return nil, err
	}
	if err := acct.ApplyDelta(delta, isWithdrawal, t.now, t.limits); err != nil {
		return nil, err
	}
	return acct.Clone(), nil
}

func (t *memTx) RecordTransaction(tx *domain.Transaction) error {
	cp := *tx
	t.records = append(t.records, &cp)
	return nil
}

var _ domain.LedgerStore = (*MemStore)(nil)
