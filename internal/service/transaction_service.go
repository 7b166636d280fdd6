// Package service holds the account management and transaction processing
// logic: deposits, withdrawals and transfers become validated balance
// mutations plus an immutable audit record, as one unit of work against the
// ledger store.
package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
)

type TransactionService struct {
	store  domain.LedgerStore
	logger *slog.Logger
}

func NewTransactionService(store domain.LedgerStore, logger *slog.Logger) *TransactionService {
	return &TransactionService{
		store:  store,
		logger: logger,
	}
}

func (s *TransactionService) Deposit(ctx context.Context, accountNumber int64, value decimal.Decimal) (*domain.Transaction, error) {
	s.logger.Info("Processing deposit", "account_number", accountNumber, "value", value)

	if !value.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	var record *domain.Transaction
	err := s.store.WithAccounts(ctx, []int64{accountNumber}, func(tx domain.LedgerTx) error {
		account, err := tx.ApplyDelta(accountNumber, value, false)
		if err != nil {
			return err
		}
		record = newRecord(domain.TransactionTypeDeposit, accountNumber, nil, value, account)
		return tx.RecordTransaction(record)
	})
	if err != nil {
		s.logger.Error("Deposit failed", "account_number", accountNumber, "error", err)
		return nil, err
	}

	s.logger.Info("Deposit completed",
		"transaction_id", record.ID,
		"account_number", accountNumber,
		"resulting_balance", record.ResultingBalance)
	return record, nil
}

func (s *TransactionService) Withdraw(ctx context.Context, accountNumber int64, value decimal.Decimal) (*domain.Transaction, error) {
	s.logger.Info("Processing withdrawal", "account_number", accountNumber, "value", value)

	if !value.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	var record *domain.Transaction
	err := s.store.WithAccounts(ctx, []int64{accountNumber}, func(tx domain.LedgerTx) error {
		account, err := tx.ApplyDelta(accountNumber, value.Neg(), true)
		if err != nil {
			return err
		}
		record = newRecord(domain.TransactionTypeWithdrawal, accountNumber, nil, value, account)
		return tx.RecordTransaction(record)
	})
	if err != nil {
		s.logger.Error("Withdrawal failed", "account_number", accountNumber, "error", err)
		return nil, err
	}

	s.logger.Info("Withdrawal completed",
		"transaction_id", record.ID,
		"account_number", accountNumber,
		"resulting_balance", record.ResultingBalance)
	return record, nil
}

// Transfer debits the origin (counted against its daily withdrawal limit) and
// credits the destination inside one unit of work. The store acquires both
// accounts lower-number first, and a failed credit rolls the debit back with
// the rest of the unit, so no partial transfer is ever observable.
func (s *TransactionService) Transfer(ctx context.Context, originNumber, destinationNumber int64, value decimal.Decimal) (*domain.Transaction, error) {
	s.logger.Info("Processing transfer",
		"origin_account_number", originNumber,
		"destination_account_number", destinationNumber,
		"value", value)

	if !value.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}
	if originNumber == destinationNumber {
		return nil, errors.ErrSameAccountTransfer
	}

	var record *domain.Transaction
	err := s.store.WithAccounts(ctx, []int64{originNumber, destinationNumber}, func(tx domain.LedgerTx) error {
		// Reject an inactive destination before any mutation.
		destination, err := tx.GetAccount(destinationNumber)
		if err != nil {
			return err
		}
		if !destination.IsActive {
			return errors.ErrAccountInactive
		}

		origin, err := tx.ApplyDelta(originNumber, value.Neg(), true)
		if err != nil {
			return err
		}
		if _, err := tx.ApplyDelta(destinationNumber, value, false); err != nil {
			return err
		}

		record = newRecord(domain.TransactionTypeTransfer, originNumber, &destinationNumber, value, origin)
		return tx.RecordTransaction(record)
	})
	if err != nil {
		s.logger.Error("Transfer failed",
			"origin_account_number", originNumber,
			"destination_account_number", destinationNumber,
			"error", err)
		return nil, err
	}

	s.logger.Info("Transfer completed",
		"transaction_id", record.ID,
		"origin_account_number", originNumber,
		"destination_account_number", destinationNumber,
		"resulting_balance", record.ResultingBalance)
	return record, nil
}

// newRecord snapshots the origin account's post-operation balance for audit.
// The record carries the unit's commit time, taken from the mutated account.
func newRecord(txType domain.TransactionType, origin int64, destination *int64, value decimal.Decimal, account *domain.Account) *domain.Transaction {
	return &domain.Transaction{
		ID:                       uuid.New(),
		Type:                     txType,
		OriginAccountNumber:      origin,
		DestinationAccountNumber: destination,
		Value:                    value,
		ResultingBalance:         account.Balance,
		CreatedAt:                account.UpdatedAt,
	}
}
