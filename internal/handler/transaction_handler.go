package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
	"bank-ledger/internal/service"
)

type TransactionHandler struct {
	transactionService *service.TransactionService
}

func NewTransactionHandler(transactionService *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
	}
}

type TransactionRequest struct {
	AccountNumber            json.Number `json:"account_number"`
	DestinationAccountNumber json.Number `json:"destination_account_number"`
	Value                    string      `json:"value"`
}

type TransactionResponse struct {
	TransactionID            string `json:"transaction_id"`
	TransactionType          string `json:"transaction_type"`
	OriginAccountNumber      int64  `json:"origin_account_number"`
	DestinationAccountNumber *int64 `json:"destination_account_number,omitempty"`
	Value                    string `json:"value"`
	ResultingBalance         string `json:"resulting_balance"`
	CreatedAt                string `json:"created_at"`
}

func transactionResponse(rec *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID:            rec.ID.String(),
		TransactionType:          string(rec.Type),
		OriginAccountNumber:      rec.OriginAccountNumber,
		DestinationAccountNumber: rec.DestinationAccountNumber,
		Value:                    rec.Value.String(),
		ResultingBalance:         rec.ResultingBalance.String(),
		CreatedAt:                rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *TransactionHandler) parse(w http.ResponseWriter, r *http.Request) (*TransactionRequest, int64, decimal.Decimal, bool) {
	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return nil, 0, decimal.Zero, false
	}

	number, err := req.AccountNumber.Int64()
	if err != nil || number <= 0 {
		writeError(w, errors.NewAppError(errors.InvalidInput, "account_number must be a positive integer"))
		return nil, 0, decimal.Zero, false
	}

	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid value format"))
		return nil, 0, decimal.Zero, false
	}

	return &req, number, value, true
}

func (h *TransactionHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	_, number, value, ok := h.parse(w, r)
	if !ok {
		return
	}

	rec, err := h.transactionService.Deposit(r.Context(), number, value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, transactionResponse(rec))
}

func (h *TransactionHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	_, number, value, ok := h.parse(w, r)
	if !ok {
		return
	}

	rec, err := h.transactionService.Withdraw(r.Context(), number, value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, transactionResponse(rec))
}

func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	req, number, value, ok := h.parse(w, r)
	if !ok {
		return
	}

	destination, err := req.DestinationAccountNumber.Int64()
	if err != nil || destination <= 0 {
		writeError(w, errors.NewAppError(errors.InvalidInput, "destination_account_number must be a positive integer"))
		return
	}

	rec, err := h.transactionService.Transfer(r.Context(), number, destination, value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, transactionResponse(rec))
}
