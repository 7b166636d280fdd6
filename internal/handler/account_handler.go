package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
	"bank-ledger/internal/service"
)

type AccountHandler struct {
	accountService *service.AccountService
}

func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

type CreateAccountRequest struct {
	OwnerID                string `json:"owner_id"`
	AccountType            string `json:"account_type"`
	SpecialWithdrawalLimit string `json:"special_withdrawal_limit,omitempty"`
}

type AccountResponse struct {
	AccountNumber          int64  `json:"account_number"`
	OwnerID                string `json:"owner_id"`
	AccountType            string `json:"account_type"`
	Balance                string `json:"balance"`
	DailyWithdrawnTotal    string `json:"daily_withdrawn_total"`
	SpecialWithdrawalLimit string `json:"special_withdrawal_limit,omitempty"`
	IsActive               bool   `json:"is_active"`
}

func accountResponse(account *domain.Account) AccountResponse {
	resp := AccountResponse{
		AccountNumber:       account.Number,
		OwnerID:             account.OwnerID.String(),
		AccountType:         string(account.Type),
		Balance:             account.Balance.String(),
		DailyWithdrawnTotal: account.DailyWithdrawnTotal.String(),
		IsActive:            account.IsActive,
	}
	if account.SpecialWithdrawalLimit != nil {
		resp.SpecialWithdrawalLimit = account.SpecialWithdrawalLimit.String()
	}
	return resp
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body"))
		return
	}

	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid owner_id format"))
		return
	}

	var specialLimit *decimal.Decimal
	if req.SpecialWithdrawalLimit != "" {
		limit, err := decimal.NewFromString(req.SpecialWithdrawalLimit)
		if err != nil {
			writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid special_withdrawal_limit format"))
			return
		}
		specialLimit = &limit
	}

	account, err := h.accountService.CreateAccount(r.Context(), ownerID, domain.AccountType(req.AccountType), specialLimit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, accountResponse(account))
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	account, err := h.accountService.GetAccount(r.Context(), vars["account_number"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, accountResponse(account))
}

// DeactivateAccount soft-deactivates the account; it stays on record but
// rejects all further operations.
func (h *AccountHandler) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	account, err := h.accountService.GetAccount(r.Context(), vars["account_number"])
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.accountService.DeactivateAccount(r.Context(), account.Number); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
