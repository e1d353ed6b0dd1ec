package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"mybank/internal/account"
	"mybank/internal/domain"
	"mybank/internal/exchange"
	"mybank/internal/repository"
	"mybank/internal/service"
	"mybank/pkg/crypto"
	"mybank/pkg/metrics"
	"mybank/pkg/validator"
)

type APIHandler struct {
	bank           *service.Bank
	validator      *validator.RequestValidator
	metrics        *metrics.MetricsCollector
	signer         *crypto.Signer
	logger         *slog.Logger
	requestTimeout time.Duration
}

// NewAPIHandler wires the HTTP surface. metrics and signer may be nil; without
// a signer transaction receipts are returned unsigned.
func NewAPIHandler(
	bank *service.Bank,
	metrics *metrics.MetricsCollector,
	signer *crypto.Signer,
	logger *slog.Logger,
	requestTimeout time.Duration,
) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	return &APIHandler{
		bank:           bank,
		validator:      validator.NewRequestValidator(),
		metrics:        metrics,
		signer:         signer,
		logger:         logger,
		requestTimeout: requestTimeout,
	}
}

type OpenAccountRequest struct {
	Currency       string          `json:"currency"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type TransferRequest struct {
	ToAccountID string          `json:"to_account_id"`
	Amount      decimal.Decimal `json:"amount"`
}

type TransactionResponse struct {
	*domain.Transaction
	Signature string `json:"signature,omitempty"`
}

type VerifyReceiptRequest struct {
	Signature string `json:"signature"`
}

type VerifyReceiptResponse struct {
	TransactionID string `json:"transaction_id"`
	Valid         bool   `json:"valid"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (h *APIHandler) OpenAccountHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var req OpenAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	currency := domain.RON
	if req.Currency != "" {
		c, err := h.validator.ParseCurrency(req.Currency)
		if err != nil {
			h.sendError(w, err.Error(), http.StatusBadRequest, "VALIDATION_ERROR")
			return
		}
		currency = c
	}
	if err := h.validator.ValidateAmount(req.InitialBalance, currency); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest, "VALIDATION_ERROR")
		return
	}

	snap, err := h.bank.OpenAccount(ctx, currency, req.InitialBalance)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	h.sendJSON(w, snap, http.StatusCreated)
}

func (h *APIHandler) ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, h.bank.Accounts(), http.StatusOK)
}

func (h *APIHandler) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := h.bank.Account(mux.Vars(r)["id"])
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, snap, http.StatusOK)
}

func (h *APIHandler) DepositHandler(w http.ResponseWriter, r *http.Request) {
	h.handleAmount(w, r, h.bank.Deposit)
}

func (h *APIHandler) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	h.handleAmount(w, r, h.bank.Withdraw)
}

func (h *APIHandler) handleAmount(
	w http.ResponseWriter,
	r *http.Request,
	op func(context.Context, string, decimal.Decimal) (domain.AccountSnapshot, error),
) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	id := mux.Vars(r)["id"]

	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	current, err := h.bank.Account(id)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	if err := h.validator.ValidateAmount(req.Amount, current.Currency); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest, "VALIDATION_ERROR")
		return
	}

	snap, err := op(ctx, id, req.Amount)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	h.sendJSON(w, snap, http.StatusOK)
}

func (h *APIHandler) TransferHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	fromID := mux.Vars(r)["id"]

	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}
	if req.ToAccountID == "" {
		h.sendError(w, "to_account_id is required", http.StatusBadRequest, "VALIDATION_ERROR")
		return
	}
	if err := h.validator.ValidateTransfer(fromID, req.ToAccountID); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest, "VALIDATION_ERROR")
		return
	}

	from, err := h.bank.Account(fromID)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	if err := h.validator.ValidateAmount(req.Amount, from.Currency); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest, "VALIDATION_ERROR")
		return
	}

	result, err := h.bank.Transfer(ctx, fromID, req.ToAccountID, req.Amount)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	h.sendJSON(w, result, http.StatusOK)
}

func (h *APIHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	history, err := h.bank.History(ctx, mux.Vars(r)["id"])
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	out := make([]TransactionResponse, 0, len(history))
	for _, tx := range history {
		out = append(out, h.receipt(tx))
	}
	h.sendJSON(w, out, http.StatusOK)
}

func (h *APIHandler) GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	vars := mux.Vars(r)
	tx, err := h.bank.Transaction(ctx, vars["id"], vars["txid"])
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, h.receipt(tx), http.StatusOK)
}

// VerifyReceiptHandler checks a receipt signature against the stored
// transaction, so a tampered amount or a foreign signature reports invalid.
func (h *APIHandler) VerifyReceiptHandler(w http.ResponseWriter, r *http.Request) {
	if h.signer == nil {
		h.sendError(w, "Receipt signing is disabled", http.StatusNotImplemented, "SIGNING_DISABLED")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var req VerifyReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}
	if req.Signature == "" {
		h.sendError(w, "signature is required", http.StatusBadRequest, "VALIDATION_ERROR")
		return
	}

	vars := mux.Vars(r)
	tx, err := h.bank.Transaction(ctx, vars["id"], vars["txid"])
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	valid := h.signer.VerifyTransaction(tx, req.Signature) == nil
	h.sendJSON(w, VerifyReceiptResponse{TransactionID: tx.ID, Valid: valid}, http.StatusOK)
}

func (h *APIHandler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
	}
	h.sendJSON(w, response, http.StatusOK)
}

func (h *APIHandler) receipt(tx *domain.Transaction) TransactionResponse {
	resp := TransactionResponse{Transaction: tx}
	if h.signer != nil {
		resp.Signature = h.signer.SignTransaction(tx)
	}
	return resp
}

func (h *APIHandler) sendServiceError(w http.ResponseWriter, err error) {
	var argErr *account.ArgumentError
	switch {
	case errors.As(err, &argErr):
		h.sendError(w, argErr.Error(), http.StatusBadRequest, "INVALID_ARGUMENT")
	case errors.Is(err, account.ErrInsufficientFunds):
		h.sendError(w, "Insufficient funds", http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS")
	case errors.Is(err, service.ErrAccountNotFound), errors.Is(err, repository.ErrNotFound):
		h.sendError(w, "Not found", http.StatusNotFound, "NOT_FOUND")
	case errors.Is(err, account.ErrAmountTooSmall):
		h.sendError(w, "Amount too small to convert", http.StatusUnprocessableEntity, "AMOUNT_TOO_SMALL")
	case errors.Is(err, exchange.ErrRateNotFound), errors.Is(err, account.ErrInvalidConversion):
		h.sendError(w, "Currency conversion unavailable", http.StatusBadGateway, "CONVERSION_ERROR")
	case errors.Is(err, context.DeadlineExceeded):
		h.sendError(w, "Request timed out", http.StatusGatewayTimeout, "TIMEOUT")
	default:
		h.logger.Error("Request failed", slog.String("error", err.Error()))
		h.sendError(w, "Internal server error", http.StatusInternalServerError, "SERVER_ERROR")
	}
}

func (h *APIHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", slog.String("error", err.Error()))
	}
}

func (h *APIHandler) sendError(w http.ResponseWriter, message string, statusCode int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: code})

	h.logger.Warn("API error response",
		slog.String("message", message),
		slog.String("code", code),
		slog.Int("status", statusCode))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (h *APIHandler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if h.metrics == nil {
			return
		}
		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		h.metrics.RecordHTTPRequest(r.Method, route, rec.status, time.Since(start))
	})
}

func (h *APIHandler) RegisterRoutes(r *mux.Router) {
	r.Use(h.instrument)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/accounts", h.OpenAccountHandler).Methods(http.MethodPost)
	v1.HandleFunc("/accounts", h.ListAccountsHandler).Methods(http.MethodGet)
	v1.HandleFunc("/accounts/{id}", h.GetAccountHandler).Methods(http.MethodGet)
	v1.HandleFunc("/accounts/{id}/deposit", h.DepositHandler).Methods(http.MethodPost)
	v1.HandleFunc("/accounts/{id}/withdraw", h.WithdrawHandler).Methods(http.MethodPost)
	v1.HandleFunc("/accounts/{id}/transfer", h.TransferHandler).Methods(http.MethodPost)
	v1.HandleFunc("/accounts/{id}/transactions", h.HistoryHandler).Methods(http.MethodGet)
	v1.HandleFunc("/accounts/{id}/transactions/{txid}", h.GetTransactionHandler).Methods(http.MethodGet)
	v1.HandleFunc("/accounts/{id}/transactions/{txid}/verify", h.VerifyReceiptHandler).Methods(http.MethodPost)

	r.HandleFunc("/api/health", h.HealthCheckHandler).Methods(http.MethodGet)
}

func (h *APIHandler) Router() *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}
