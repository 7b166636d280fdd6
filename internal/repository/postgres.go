// Package repository implements the ledger store on PostgreSQL. Exclusive
// account access maps to SELECT ... FOR UPDATE row locks taken in ascending
// account-number order, and the unit of work maps to a single SQL transaction
// so a balance change commits together with its audit record or not at all.
package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"sort"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
)

type PostgresStore struct {
	db     *sql.DB
	limits domain.Limits
	logger *slog.Logger
}

func NewPostgresStore(db *sql.DB, limits domain.Limits, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		limits: limits,
		logger: logger,
	}
}

const accountColumns = `account_number, owner_id, account_type, balance, daily_withdrawn_total,
	withdrawal_day, special_withdrawal_limit, is_active, created_at, updated_at`

func (s *PostgresStore) CreateAccount(ctx context.Context, account *domain.Account) error {
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	var special interface{}
	if account.SpecialWithdrawalLimit != nil {
		special = account.SpecialWithdrawalLimit.String()
	}

	query := `
		INSERT INTO accounts
		(owner_id, account_type, balance, daily_withdrawn_total, withdrawal_day,
		 special_withdrawal_limit, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING account_number
	`
	err := s.db.QueryRow(
		query,
		account.OwnerID,
		string(account.Type),
		account.Balance.String(),
		account.DailyWithdrawnTotal.String(),
		account.WithdrawalDay,
		special,
		account.IsActive,
		now,
		now,
	).Scan(&account.Number)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			s.logger.Warn("Duplicate account creation attempt", "owner_id", account.OwnerID)
			return errors.ErrDuplicateAccount
		}
		s.logger.Error("Failed to create account", "owner_id", account.OwnerID, "error", err)
		return errors.NewAppError(errors.StorageFailure, "failed to create account").WithDetails(err.Error())
	}

	s.logger.Info("Account created successfully", "account_number", account.Number)
	return nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, number int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`
	return scanAccount(s.db, s.logger, query, number)
}

func (s *PostgresStore) SetAccountActive(ctx context.Context, number int64, active bool) error {
	query := `UPDATE accounts SET is_active = $1, updated_at = $2 WHERE account_number = $3`

	result, err := s.db.Exec(query, active, time.Now(), number)
	if err != nil {
		s.logger.Error("Failed to update account status", "account_number", number, "error", err)
		return errors.NewAppError(errors.StorageFailure, "failed to update account status").WithDetails(err.Error())
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.StorageFailure, "failed to get rows affected").WithDetails(err.Error())
	}
	if rows == 0 {
		return errors.ErrAccountNotFound
	}
	return nil
}

// WithAccounts runs fn inside one SQL transaction, row-locking the named
// accounts in ascending order first. COMMIT makes the balance changes and the
// staged audit records durable as a single unit; any error rolls it all back.
func (s *PostgresStore) WithAccounts(ctx context.Context, numbers []int64, fn func(domain.LedgerTx) error) error {
	ordered := make([]int64, len(numbers))
	copy(ordered, numbers)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	tx, err := s.db.Begin()
	if err != nil {
		return errors.NewAppError(errors.StorageFailure, "failed to begin transaction").WithDetails(err.Error())
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	ptx := &pgTx{
		tx:       tx,
		accounts: make(map[int64]*domain.Account, len(ordered)),
		limits:   s.limits,
		now:      time.Now(),
		logger:   s.logger,
	}

	for _, n := range ordered {
		if _, ok := ptx.accounts[n]; ok {
			continue
		}
		query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1 FOR UPDATE`
		acct, err := scanAccount(tx, s.logger, query, n)
		if err != nil {
			tx.Rollback()
			return err
		}
		ptx.accounts[n] = acct
	}

	if err := fn(ptx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("Failed to commit unit of work", "error", err)
		return errors.NewAppError(errors.StorageFailure, "failed to commit unit of work").WithDetails(err.Error())
	}
	return nil
}

func scanAccount(db SQLExecutor, logger *slog.Logger, query string, number int64) (*domain.Account, error) {
	var (
		account      domain.Account
		accountType  string
		balanceStr   string
		withdrawnStr string
		specialStr   sql.NullString
	)

	err := db.QueryRow(query, number).Scan(
		&account.Number,
		&account.OwnerID,
		&accountType,
		&balanceStr,
		&withdrawnStr,
		&account.WithdrawalDay,
		&specialStr,
		&account.IsActive,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Warn("Account not found", "account_number", number)
			return nil, errors.ErrAccountNotFound
		}
		logger.Error("Failed to get account", "account_number", number, "error", err)
		return nil, errors.NewAppError(errors.StorageFailure, "failed to get account").WithDetails(err.Error())
	}

	account.Type = domain.AccountType(accountType)
	if account.Balance, err = decimal.NewFromString(balanceStr); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to parse balance").WithDetails(err.Error())
	}
	if account.DailyWithdrawnTotal, err = decimal.NewFromString(withdrawnStr); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to parse daily withdrawn total").WithDetails(err.Error())
	}
	if specialStr.Valid {
		special, err := decimal.NewFromString(specialStr.String)
		if err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to parse special withdrawal limit").WithDetails(err.Error())
		}
		account.SpecialWithdrawalLimit = &special
	}
	return &account, nil
}

type pgTx struct {
	tx       *sql.Tx
	accounts map[int64]*domain.Account
	limits   domain.Limits
	now      time.Time
	logger   *slog.Logger
}

func (t *pgTx) locked(number int64) (*domain.Account, error) {
	acct, ok := t.accounts[number]
	if !ok {
		return nil, errors.NewAppErrorf(errors.InternalError, "account %d is not part of this unit of work", number)
	}
	return acct, nil
}

func (t *pgTx) GetAccount(number int64) (*domain.Account, error) {
	acct, err := t.locked(number)
	if err != nil {
		return nil, err
	}
	return acct.Clone(), nil
}

func (t *pgTx) ApplyDelta(number int64, delta decimal.Decimal, isWithdrawal bool) (*domain.Account, error) {
	acct, err := t.locked(number)
	if err != nil {
		return nil, err
	}
	if err := acct.ApplyDelta(delta, isWithdrawal, t.now, t.limits); err != nil {
		return nil, err
	}

	query := `
		UPDATE accounts
		SET balance = $1, daily_withdrawn_total = $2, withdrawal_day = $3, updated_at = $4
		WHERE account_number = $5
	`
	if _, err := t.tx.Exec(
		query,
		acct.Balance.String(),
		acct.DailyWithdrawnTotal.String(),
		acct.WithdrawalDay,
		acct.UpdatedAt,
		number,
	); err != nil {
		t.logger.Error("Failed to update account balance", "account_number", number, "error", err)
		return nil, errors.NewAppError(errors.StorageFailure, "failed to update account balance").WithDetails(err.Error())
	}
	return acct.Clone(), nil
}

func (t *pgTx) RecordTransaction(rec *domain.Transaction) error {
	query := `
		INSERT INTO transactions
		(id, transaction_type, origin_account_number, destination_account_number,
		 value, resulting_balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	var destination interface{}
	if rec.DestinationAccountNumber != nil {
		destination = *rec.DestinationAccountNumber
	}

	if _, err := t.tx.Exec(
		query,
		rec.ID,
		string(rec.Type),
		rec.OriginAccountNumber,
		destination,
		rec.Value.String(),
		rec.ResultingBalance.String(),
		rec.CreatedAt,
	); err != nil {
		t.logger.Error("Failed to record transaction",
			"transaction_id", rec.ID,
			"origin_account_number", rec.OriginAccountNumber,
			"error", err)
		return errors.NewAppError(errors.StorageFailure, "failed to record transaction").WithDetails(err.Error())
	}
	return nil
}

var _ domain.LedgerStore = (*PostgresStore)(nil)
