package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeTransfer   TransactionType = "transfer"
)

// Transaction is the immutable audit record of a committed operation. A record
// exists if and only if its balance effect was durably applied; validation
// failures never produce one.
type Transaction struct {
	ID                       uuid.UUID       `json:"id"`
	Type                     TransactionType `json:"transaction_type"`
	OriginAccountNumber      int64           `json:"origin_account_number"`
	DestinationAccountNumber *int64          `json:"destination_account_number,omitempty"`
	Value                    decimal.Decimal `json:"value"`
	ResultingBalance         decimal.Decimal `json:"resulting_balance"`
	CreatedAt                time.Time       `json:"created_at"`
}
