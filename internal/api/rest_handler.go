package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"bankcore/internal/domain"
	"bankcore/internal/processor"
	"bankcore/internal/repository"
	"bankcore/pkg/crypto"
	"bankcore/pkg/metrics"
	"bankcore/pkg/validator"
)

type APIHandler struct {
	processor      *processor.TransferProcessor
	stores         processor.Stores
	metrics        *metrics.MetricsCollector
	signer         *crypto.Signer
	logger         *slog.Logger
	requestTimeout time.Duration
}

func NewAPIHandler(
	proc *processor.TransferProcessor,
	stores processor.Stores,
	collector *metrics.MetricsCollector,
	signer *crypto.Signer,
	logger *slog.Logger,
) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &APIHandler{
		processor:      proc,
		stores:         stores,
		metrics:        collector,
		signer:         signer,
		logger:         logger,
		requestTimeout: 30 * time.Second,
	}
}

type CreateTransactionRequest struct {
	Type           domain.TransactionType `json:"type"`
	Amount         decimal.Decimal        `json:"amount"`
	SenderNumber   string                 `json:"sender_number,omitempty"`
	ReceiverNumber string                 `json:"receiver_number,omitempty"`
	Description    string                 `json:"description,omitempty"`
	Timestamp      int64                  `json:"timestamp,omitempty"`
	Signature      string                 `json:"signature,omitempty"`
}

type TransactionResponse struct {
	ID            string                   `json:"id"`
	Status        domain.TransactionStatus `json:"status"`
	FailureReason string                   `json:"failure_reason,omitempty"`
	Message       string                   `json:"message,omitempty"`
}

type CreateCustomerRequest struct {
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	Gender      domain.Gender `json:"gender"`
	Phone       string        `json:"phone"`
	Address     string        `json:"address,omitempty"`
	City        string        `json:"city,omitempty"`
	State       string        `json:"state,omitempty"`
	Country     string        `json:"country,omitempty"`
	DateOfBirth time.Time     `json:"date_of_birth,omitempty"`
}

type CreateAccountRequest struct {
	CustomerID      string             `json:"customer_id"`
	Type            domain.AccountType `json:"type"`
	Balance         decimal.Decimal    `json:"balance,omitempty"`
	TransferLimit   decimal.Decimal    `json:"transfer_limit,omitempty"`
	WithdrawalLimit decimal.Decimal    `json:"withdrawal_limit,omitempty"`
}

type UpdateAccountStatusRequest struct {
	Status domain.AccountStatus `json:"status"`
}

type CreateCardRequest struct {
	AccountNumber string          `json:"account_number"`
	Type          domain.CardType `json:"type"`
}

type CreateOfferRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Status      domain.OfferStatus `json:"status"`
	Type        domain.OfferType   `json:"type"`
}

type CreateEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	FireAt      time.Time `json:"fire_at"`
}

type ServiceRequest struct {
	Phone         string `json:"phone"`
	AccountNumber string `json:"account_number"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (h *APIHandler) CreateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	if req.Signature != "" {
		valid, err := h.signer.VerifyTransfer(req.SenderNumber, req.ReceiverNumber, req.Amount, req.Timestamp, req.Signature)
		if !valid || err != nil {
			h.sendError(w, "Invalid signature", http.StatusUnauthorized, "INVALID_SIGNATURE")
			return
		}
	}

	tx := domain.NewTransaction(req.Type, req.Amount).
		WithDescription(req.Description).
		WithAccounts(req.SenderNumber, req.ReceiverNumber)

	err := h.processor.Process(ctx, tx)
	duration := time.Since(startTime)

	// Errored requests count as failures with an explicit reason; only a
	// nil error with no failure reason is a processed transfer.
	reason := tx.FailureReason
	switch {
	case err == nil:
	case validator.IsValidation(err):
		reason = "validation_error"
	default:
		reason = "processing_error"
	}
	amount, _ := req.Amount.Float64()
	h.metrics.RecordTransfer(string(req.Type), amount, duration, reason)

	if err != nil {
		if validator.IsValidation(err) {
			h.sendError(w, err.Error(), http.StatusBadRequest, "VALIDATION_ERROR")
			return
		}
		if errors.Is(err, repository.ErrNotFound) {
			h.sendError(w, err.Error(), http.StatusNotFound, "NOT_FOUND")
			return
		}
		h.logger.Error("Transaction processing failed",
			slog.String("error", err.Error()),
			slog.String("transaction_id", tx.ID))
		h.sendError(w, fmt.Sprintf("Transaction failed: %v", err), http.StatusInternalServerError, "PROCESSING_ERROR")
		return
	}

	response := TransactionResponse{
		ID:            tx.ID,
		Status:        tx.Status,
		FailureReason: tx.FailureReason,
		Message:       "Transaction processed",
	}

	h.sendJSON(w, response, http.StatusCreated)
}

func (h *APIHandler) GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	tx, err := h.processor.GetTransaction(ctx, mux.Vars(r)["id"])
	if err != nil {
		h.sendStoreError(w, err, "transaction")
		return
	}

	h.sendJSON(w, tx, http.StatusOK)
}

func (h *APIHandler) ListAccountTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	number := mux.Vars(r)["number"]
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	txs, err := h.stores.Transactions.GetByAccount(ctx, number, limit, offset)
	if err != nil {
		h.sendStoreError(w, err, "transactions")
		return
	}

	h.sendJSON(w, txs, http.StatusOK)
}

func (h *APIHandler) CreateCustomerHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var req CreateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}
	if req.Name == "" || req.Phone == "" {
		h.sendError(w, "name and phone are required", http.StatusBadRequest, "VALIDATION_ERROR")
		return
	}

	customer := &domain.Customer{
		Name:        req.Name,
		Email:       req.Email,
		Gender:      req.Gender,
		Phone:       req.Phone,
		Address:     req.Address,
		City:        req.City,
		State:       req.State,
		Country:     req.Country,
		DateOfBirth: req.DateOfBirth,
	}

	if err := h.processor.RegisterCustomer(ctx, customer); err != nil {
		if validator.IsValidation(err) {
			h.sendError(w, err.Error(), http.StatusBadRequest, "VALIDATION_ERROR")
			return
		}
		if errors.Is(err, repository.ErrDuplicate) {
			h.sendError(w, "Phone number already registered", http.StatusConflict, "DUPLICATE")
			return
		}
		h.sendError(w, "Failed to register customer", http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	h.sendJSON(w, customer, http.StatusCreated)
}

func (h *APIHandler) GetCustomerHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	customer, err := h.stores.Customers.GetByID(ctx, mux.Vars(r)["id"])
	if err != nil {
		h.sendStoreError(w, err, "customer")
		return
	}

	h.sendJSON(w, customer, http.StatusOK)
}

func (h *APIHandler) UpdateCustomerHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var customer domain.Customer
	if err := json.NewDecoder(r.Body).Decode(&customer); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}
	customer.CustomerID = mux.Vars(r)["id"]

	if err := h.stores.Customers.Update(ctx, &customer); err != nil {
		h.sendStoreError(w, err, "customer")
		return
	}

	h.sendJSON(w, customer, http.StatusOK)
}

func (h *APIHandler) DeleteCustomerHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	if err := h.stores.Customers.Delete(ctx, mux.Vars(r)["id"]); err != nil {
		h.sendStoreError(w, err, "customer")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}
	if req.CustomerID == "" {
		h.sendError(w, "customer_id is required", http.StatusBadRequest, "VALIDATION_ERROR")
		return
	}

	account := domain.NewAccount(req.CustomerID, req.Type)
	if !req.Balance.IsZero() {
		account.Balance = req.Balance
	}
	if !req.TransferLimit.IsZero() {
		account.TransferLimit = req.TransferLimit
	}
	if !req.WithdrawalLimit.IsZero() {
		account.WithdrawalLimit = req.WithdrawalLimit
	}

	if err := h.processor.OpenAccount(ctx, account); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.sendError(w, "Customer not found", http.StatusNotFound, "NOT_FOUND")
			return
		}
		h.sendError(w, "Failed to open account", http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	h.sendJSON(w, account, http.StatusCreated)
}

func (h *APIHandler) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	account, err := h.stores.Accounts.GetByNumber(ctx, mux.Vars(r)["number"])
	if err != nil {
		h.sendStoreError(w, err, "account")
		return
	}

	h.sendJSON(w, account, http.StatusOK)
}

func (h *APIHandler) ListCustomerAccountsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	accounts, err := h.stores.Accounts.GetByCustomerID(ctx, mux.Vars(r)["id"])
	if err != nil {
		h.sendStoreError(w, err, "accounts")
		return
	}

	h.sendJSON(w, accounts, http.StatusOK)
}

func (h *APIHandler) UpdateAccountStatusHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var req UpdateAccountStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	switch req.Status {
	case domain.AccountActive, domain.AccountInactive, domain.AccountBlocked, domain.AccountClosed:
	default:
		h.sendError(w, fmt.Sprintf("unknown account status: %s", req.Status), http.StatusBadRequest, "VALIDATION_ERROR")
		return
	}

	number := mux.Vars(r)["number"]
	if err := h.stores.Accounts.UpdateStatus(ctx, number, req.Status); err != nil {
		h.sendStoreError(w, err, "account")
		return
	}

	h.sendJSON(w, map[string]string{"number": number, "status": string(req.Status)}, http.StatusOK)
}

func (h *APIHandler) CreateCardHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var req CreateCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}
	if req.Type != domain.CardCredit && req.Type != domain.CardDebit {
		h.sendError(w, fmt.Sprintf("unknown card type: %s", req.Type), http.StatusBadRequest, "VALIDATION_ERROR")
		return
	}

	card, err := h.processor.RequestCard(ctx, req.AccountNumber, req.Type)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.sendError(w, "Account not found", http.StatusNotFound, "NOT_FOUND")
			return
		}
		h.sendError(w, "Failed to request card", http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	h.sendJSON(w, card, http.StatusCreated)
}

func (h *APIHandler) ListAccountCardsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	cards, err := h.stores.Cards.GetByAccount(ctx, mux.Vars(r)["number"])
	if err != nil {
		h.sendStoreError(w, err, "cards")
		return
	}

	h.sendJSON(w, cards, http.StatusOK)
}

func (h *APIHandler) CreateOfferHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var req CreateOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	offer := &domain.Offer{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Type:        req.Type,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if offer.Status == "" {
		offer.Status = domain.OfferInactive
	}

	if err := h.processor.PublishOffer(ctx, offer); err != nil {
		h.sendError(w, "Failed to publish offer", http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	h.sendJSON(w, offer, http.StatusCreated)
}

func (h *APIHandler) ListActiveOffersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	offers, err := h.stores.Offers.GetActive(ctx)
	if err != nil {
		h.sendStoreError(w, err, "offers")
		return
	}

	h.sendJSON(w, offers, http.StatusOK)
}

func (h *APIHandler) CreateEventHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}
	if req.FireAt.IsZero() {
		h.sendError(w, "fire_at is required", http.StatusBadRequest, "VALIDATION_ERROR")
		return
	}

	event := &domain.Event{
		Title:       req.Title,
		Description: req.Description,
		FireAt:      req.FireAt,
		CreatedAt:   time.Now(),
	}

	if err := h.processor.ScheduleEvent(ctx, event); err != nil {
		h.sendError(w, "Failed to schedule event", http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	h.sendJSON(w, event, http.StatusCreated)
}

func (h *APIHandler) BalanceRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.serviceRequest(w, r, h.processor.RequestBalance)
}

func (h *APIHandler) StatusRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.serviceRequest(w, r, h.processor.RequestAccountStatus)
}

func (h *APIHandler) ChequeBookRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.serviceRequest(w, r, h.processor.RequestChequeBook)
}

func (h *APIHandler) serviceRequest(w http.ResponseWriter, r *http.Request, handle func(ctx context.Context, phone, accountNumber string) error) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var req ServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}
	if req.Phone == "" || req.AccountNumber == "" {
		h.sendError(w, "phone and account_number are required", http.StatusBadRequest, "VALIDATION_ERROR")
		return
	}

	if err := handle(ctx, req.Phone, req.AccountNumber); err != nil {
		h.sendStoreError(w, err, "account")
		return
	}

	h.sendJSON(w, map[string]string{"status": "queued"}, http.StatusAccepted)
}

func (h *APIHandler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
	}
	h.sendJSON(w, response, http.StatusOK)
}

func (h *APIHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", slog.String("error", err.Error()))
	}
}

func (h *APIHandler) sendError(w http.ResponseWriter, message string, statusCode int, code string) {
	errorResponse := ErrorResponse{
		Error: message,
		Code:  code,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(errorResponse)

	h.logger.Warn("API error response",
		slog.String("message", message),
		slog.String("code", code),
		slog.Int("status", statusCode))
}

func (h *APIHandler) sendStoreError(w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		h.sendError(w, fmt.Sprintf("%s not found", what), http.StatusNotFound, "NOT_FOUND")
	case errors.Is(err, repository.ErrDuplicate):
		h.sendError(w, fmt.Sprintf("%s already exists", what), http.StatusConflict, "DUPLICATE")
	default:
		h.sendError(w, fmt.Sprintf("failed to access %s", what), http.StatusInternalServerError, "SERVER_ERROR")
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	var v int
	if _, err := fmt.Sscanf(raw, "%d", &v); err != nil || v < 0 {
		return fallback
	}
	return v
}

func (h *APIHandler) RegisterRoutes(router *mux.Router) {
	v1 := router.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/transactions", h.CreateTransactionHandler).Methods(http.MethodPost)
	v1.HandleFunc("/transactions/{id}", h.GetTransactionHandler).Methods(http.MethodGet)
	v1.HandleFunc("/accounts/{number}/transactions", h.ListAccountTransactionsHandler).Methods(http.MethodGet)

	v1.HandleFunc("/customers", h.CreateCustomerHandler).Methods(http.MethodPost)
	v1.HandleFunc("/customers/{id}", h.GetCustomerHandler).Methods(http.MethodGet)
	v1.HandleFunc("/customers/{id}", h.UpdateCustomerHandler).Methods(http.MethodPut)
	v1.HandleFunc("/customers/{id}", h.DeleteCustomerHandler).Methods(http.MethodDelete)
	v1.HandleFunc("/customers/{id}/accounts", h.ListCustomerAccountsHandler).Methods(http.MethodGet)

	v1.HandleFunc("/accounts", h.CreateAccountHandler).Methods(http.MethodPost)
	v1.HandleFunc("/accounts/{number}", h.GetAccountHandler).Methods(http.MethodGet)
	v1.HandleFunc("/accounts/{number}/status", h.UpdateAccountStatusHandler).Methods(http.MethodPut)
	v1.HandleFunc("/accounts/{number}/cards", h.ListAccountCardsHandler).Methods(http.MethodGet)

	v1.HandleFunc("/cards", h.CreateCardHandler).Methods(http.MethodPost)

	v1.HandleFunc("/offers", h.CreateOfferHandler).Methods(http.MethodPost)
	v1.HandleFunc("/offers", h.ListActiveOffersHandler).Methods(http.MethodGet)

	v1.HandleFunc("/events", h.CreateEventHandler).Methods(http.MethodPost)

	v1.HandleFunc("/requests/balance", h.BalanceRequestHandler).Methods(http.MethodPost)
	v1.HandleFunc("/requests/status", h.StatusRequestHandler).Methods(http.MethodPost)
	v1.HandleFunc("/requests/cheque-book", h.ChequeBookRequestHandler).Methods(http.MethodPost)

	router.HandleFunc("/health", h.HealthCheckHandler).Methods(http.MethodGet)
}
