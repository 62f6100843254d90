package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bankcore/internal/domain"
	"bankcore/internal/processor"
	"bankcore/internal/repository/memory"
	"bankcore/pkg/crypto"
	"bankcore/pkg/metrics"
)

type stubNotifier struct{}

func (stubNotifier) Notify(context.Context, string, string, string) error { return nil }
func (stubNotifier) Broadcast(context.Context, []string, string, string) error {
	return nil
}
func (stubNotifier) NotifyTransaction(context.Context, *domain.Transaction, string) error {
	return nil
}
func (stubNotifier) NotifyCredit(context.Context, *domain.Transaction, string) error {
	return nil
}
func (stubNotifier) NotifyLowBalance(context.Context, string, string, decimal.Decimal) error {
	return nil
}

type stubScheduler struct{}

func (stubScheduler) Schedule(time.Time, func(ctx context.Context)) {}

type handlerEnv struct {
	handler   *APIHandler
	stores    processor.Stores
	collector *metrics.MetricsCollector
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	stores := processor.Stores{
		Customers:    memory.NewCustomerRepository(),
		Accounts:     memory.NewAccountRepository(),
		Transactions: memory.NewTransactionRepository(),
		Cards:        memory.NewCardRepository(),
		Offers:       memory.NewOfferRepository(),
		Events:       memory.NewEventRepository(),
	}
	collector := metrics.NewMetricsCollector(nil)
	proc := processor.NewTransferProcessor(stores, stubNotifier{}, stubScheduler{},
		processor.Config{MinBalance: decimal.NewFromInt(100)}, nil)
	handler := NewAPIHandler(proc, stores, collector, crypto.NewSigner("test-secret", nil), nil)

	return &handlerEnv{handler: handler, stores: stores, collector: collector}
}

func (e *handlerEnv) seedAccount(t *testing.T, number, customerID, phone string, balance int64) {
	t.Helper()
	ctx := context.Background()

	customer := &domain.Customer{CustomerID: customerID, Name: "Customer " + customerID, Phone: phone}
	if err := e.stores.Customers.Save(ctx, customer); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	account := domain.NewAccount(customerID, domain.AccountPersonal)
	account.Number = number
	account.Balance = decimal.NewFromInt(balance)
	if err := e.stores.Accounts.Save(ctx, account); err != nil {
		t.Fatalf("seed account: %v", err)
	}
}

func (e *handlerEnv) postTransaction(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.handler.CreateTransactionHandler(rec, req)
	return rec
}

func (e *handlerEnv) scrapeMetrics(t *testing.T) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.collector.GetHandler().ServeHTTP(rec, req)
	return rec.Body.String()
}

func TestCreateTransactionHandler_SuccessCountsAsProcessed(t *testing.T) {
	env := newHandlerEnv(t)
	env.seedAccount(t, "1111111111", "c1", "+911111111111", 1000)
	env.seedAccount(t, "2222222222", "c2", "+922222222222", 200)

	rec := env.postTransaction(t,
		`{"type":"transfer","amount":"300","sender_number":"1111111111","receiver_number":"2222222222"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	body := env.scrapeMetrics(t)
	if !strings.Contains(body, `transfers_processed_total{type="transfer"} 1`) {
		t.Errorf("expected one processed transfer, got:\n%s", body)
	}
	if strings.Contains(body, `transfers_failed_total{`) {
		t.Error("a successful transfer must not count as failed")
	}
}

func TestCreateTransactionHandler_ValidationErrorCountsAsFailure(t *testing.T) {
	env := newHandlerEnv(t)

	rec := env.postTransaction(t,
		`{"type":"transfer","amount":"0","sender_number":"1111111111","receiver_number":"2222222222"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	body := env.scrapeMetrics(t)
	if !strings.Contains(body, `transfers_failed_total{reason="validation_error",type="transfer"} 1`) {
		t.Errorf("expected the errored request in the failed series, got:\n%s", body)
	}
	if strings.Contains(body, `transfers_processed_total{`) {
		t.Error("an errored request must not count as processed")
	}
}

func TestCreateTransactionHandler_BusinessRejectionKeepsItsReason(t *testing.T) {
	env := newHandlerEnv(t)
	env.seedAccount(t, "1111111111", "c1", "+911111111111", 100)
	env.seedAccount(t, "2222222222", "c2", "+922222222222", 200)

	rec := env.postTransaction(t,
		`{"type":"transfer","amount":"500","sender_number":"1111111111","receiver_number":"2222222222"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	body := env.scrapeMetrics(t)
	if !strings.Contains(body, `reason="insufficient funds in your account"`) {
		t.Errorf("expected the rejection reason on the failed series, got:\n%s", body)
	}
	if strings.Contains(body, `transfers_processed_total{`) {
		t.Error("a rejected transfer must not count as processed")
	}
}
