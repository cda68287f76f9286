package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/coralbank/backend/internal/models"
	"github.com/coralbank/backend/internal/services"
)

// BankHandler exposes the ledger service over REST. All money amounts cross
// the wire as decimal strings; identifiers travel in their canonical string
// form.
type BankHandler struct {
	bank      *services.BankService
	validator *services.ValidationHelper
}

func NewBankHandler(bank *services.BankService) *BankHandler {
	return &BankHandler{
		bank:      bank,
		validator: services.NewValidationHelper(),
	}
}

// AmountRequest carries the amount of a deposit or withdrawal.
type AmountRequest struct {
	Amount string `json:"amount" validate:"required"`
}

// TransferRequest carries the target account and amount of a transfer; the
// source account comes from the URL path.
type TransferRequest struct {
	ToAccount int64  `json:"toAccount" validate:"required"`
	Amount    string `json:"amount" validate:"required"`
}

// GetAccount returns the account state
// @Summary Get account balance
// @Description Check the balance of the given banking account
// @Tags accounts
// @Produce json
// @Param accountNumber path string true "10-digit account number"
// @Success 200 {object} models.Account
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountNumber} [get]
func (h *BankHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	number, ok := h.accountNumber(w, r)
	if !ok {
		return
	}
	account, err := h.bank.GetAccount(r.Context(), number)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// Deposit adds money to the account, creating it on first use
// @Summary Deposit money
// @Description Deposit the specified amount of money to the given account
// @Tags transactions
// @Accept json
// @Produce json
// @Param accountNumber path string true "10-digit account number"
// @Param request body AmountRequest true "Deposit amount as decimal string"
// @Success 201 {object} models.Account
// @Failure 400 {object} services.ErrorResponse
// @Router /accounts/{accountNumber}/transactions/deposits [post]
func (h *BankHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	number, ok := h.accountNumber(w, r)
	if !ok {
		return
	}
	amount, ok := h.amountFromBody(w, r)
	if !ok {
		return
	}
	account, err := h.bank.Deposit(r.Context(), number, amount)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// Withdraw removes money from the account
// @Summary Withdraw money
// @Description Withdraw the specified amount of money from the given account
// @Tags transactions
// @Accept json
// @Produce json
// @Param accountNumber path string true "10-digit account number"
// @Param request body AmountRequest true "Withdrawal amount as decimal string"
// @Success 201 {object} models.Account
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountNumber}/transactions/withdrawals [post]
func (h *BankHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	number, ok := h.accountNumber(w, r)
	if !ok {
		return
	}
	amount, ok := h.amountFromBody(w, r)
	if !ok {
		return
	}
	account, err := h.bank.Withdraw(r.Context(), number, amount)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// Transfer moves money between two accounts
// @Summary Transfer money
// @Description Transfer the specified amount from one account to another
// @Tags transactions
// @Accept json
// @Produce json
// @Param accountNumber path string true "10-digit source account number"
// @Param request body TransferRequest true "Target account and amount"
// @Success 201 {object} models.Transaction
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountNumber}/transactions/transfers [post]
func (h *BankHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	from, ok := h.accountNumber(w, r)
	if !ok {
		return
	}

	var req TransferRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	to, err := models.ParseAccountNumber(req.ToAccount)
	if err != nil {
		services.SendErrorResponse(w, "Invalid target account number", http.StatusBadRequest, err)
		return
	}
	amount, ok := h.parseAmount(w, req.Amount)
	if !ok {
		return
	}

	record, err := h.bank.Transfer(r.Context(), from, to, amount)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// ListDeposits returns deposit history, newest first
// @Summary List deposits
// @Tags transactions
// @Produce json
// @Param accountNumber path string true "10-digit account number"
// @Success 200 {array} models.Transaction
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountNumber}/transactions/deposits [get]
func (h *BankHandler) ListDeposits(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.bank.ListDeposits)
}

// ListWithdrawals returns withdrawal history, newest first
// @Summary List withdrawals
// @Tags transactions
// @Produce json
// @Param accountNumber path string true "10-digit account number"
// @Success 200 {array} models.Transaction
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountNumber}/transactions/withdrawals [get]
func (h *BankHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.bank.ListWithdrawals)
}

// ListTransfers returns transfer history, newest first
// @Summary List transfers
// @Tags transactions
// @Produce json
// @Param accountNumber path string true "10-digit account number"
// @Success 200 {array} models.Transaction
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountNumber}/transactions/transfers [get]
func (h *BankHandler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.bank.ListTransfers)
}

// ListTransactions returns the full history across all kinds, newest first
// @Summary List all transactions
// @Tags transactions
// @Produce json
// @Param accountNumber path string true "10-digit account number"
// @Success 200 {array} models.Transaction
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountNumber}/transactions [get]
func (h *BankHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.bank.ListTransactions)
}

type listFunc func(ctx context.Context, number models.AccountNumber) ([]models.Transaction, error)

func (h *BankHandler) list(w http.ResponseWriter, r *http.Request, fn listFunc) {
	number, ok := h.accountNumber(w, r)
	if !ok {
		return
	}
	txs, err := fn(r.Context(), number)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *BankHandler) accountNumber(w http.ResponseWriter, r *http.Request) (models.AccountNumber, bool) {
	raw := chi.URLParam(r, "accountNumber")
	number, err := models.ParseAccountNumberString(raw)
	if err != nil {
		services.SendErrorResponse(w, "Invalid account number", http.StatusBadRequest, err)
		return models.AccountNumber{}, false
	}
	return number, true
}

func (h *BankHandler) amountFromBody(w http.ResponseWriter, r *http.Request) (decimal.Decimal, bool) {
	var req AmountRequest
	if !h.decodeBody(w, r, &req) {
		return decimal.Decimal{}, false
	}
	return h.parseAmount(w, req.Amount)
}

// parseAmount maps malformed numeric strings to a 400 before the core is
// ever touched.
func (h *BankHandler) parseAmount(w http.ResponseWriter, raw string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		services.SendErrorResponse(w, "Invalid amount format", http.StatusBadRequest,
			models.ErrInvalidAmountFormat)
		return decimal.Decimal{}, false
	}
	return amount, true
}

func (h *BankHandler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	if err := h.validator.ValidateStruct(dst); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}

func (h *BankHandler) sendServiceError(w http.ResponseWriter, err error) {
	var invalidNumber *models.InvalidAccountNumberError
	switch {
	case errors.Is(err, models.ErrAccountNotFound):
		services.SendErrorResponse(w, "Account not found", http.StatusNotFound, err)
	case errors.Is(err, models.ErrInsufficientBalance):
		services.SendErrorResponse(w, "Insufficient balance", http.StatusBadRequest, err)
	case errors.Is(err, models.ErrInvalidArgument),
		errors.Is(err, models.ErrInvalidAmountFormat),
		errors.As(err, &invalidNumber):
		services.SendErrorResponse(w, "Invalid request", http.StatusBadRequest, err)
	default:
		log.Printf("[HTTP] internal error: %v", err)
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
