package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
)

type AccountService struct {
	store  domain.LedgerStore
	logger *slog.Logger
}

func NewAccountService(store domain.LedgerStore, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:  store,
		logger: logger,
	}
}

// CreateAccount opens an account with a zero balance. The special withdrawal
// limit, when given, replaces the default daily cap for this account.
func (s *AccountService) CreateAccount(ctx context.Context, ownerID uuid.UUID, accountType domain.AccountType, specialLimit *decimal.Decimal) (*domain.Account, error) {
	s.logger.Info("Creating account", "owner_id", ownerID, "account_type", accountType)

	if !accountType.Valid() {
		return nil, errors.NewAppErrorf(errors.InvalidInput, "unknown account type %q", accountType)
	}
	if ownerID == uuid.Nil {
		return nil, errors.NewAppError(errors.InvalidInput, "owner id is required")
	}
	if specialLimit != nil && !specialLimit.IsPositive() {
		return nil, errors.NewAppError(errors.InvalidAmount, "special withdrawal limit must be positive")
	}

	now := time.Now()
	account := &domain.Account{
		OwnerID:                ownerID,
		Type:                   accountType,
		Balance:                decimal.Zero,
		DailyWithdrawnTotal:    decimal.Zero,
		WithdrawalDay:          now,
		SpecialWithdrawalLimit: specialLimit,
		IsActive:               true,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("Account created successfully", "account_number", account.Number)
	return account, nil
}

func (s *AccountService) GetAccount(ctx context.Context, accountNumber string) (*domain.Account, error) {
	number, err := strconv.ParseInt(accountNumber, 10, 64)
	if err != nil || number <= 0 {
		return nil, errors.NewAppError(errors.InvalidInput, "account number must be a positive integer")
	}
	return s.store.GetAccount(ctx, number)
}

// DeactivateAccount soft-deactivates the account; records referencing it stay
// untouched and the account is never physically deleted.
func (s *AccountService) DeactivateAccount(ctx context.Context, number int64) error {
	s.logger.Info("Deactivating account", "account_number", number)
	return s.store.SetAccountActive(ctx, number, false)
}
