package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"bankcore/internal/domain"
)

// SMSSender is the narrow seam to the messaging provider. Delivery is
// best-effort: a failed send never invalidates a committed ledger change.
type SMSSender interface {
	SendSMS(to, body string) error
}

type NotificationService struct {
	sender       SMSSender
	messageQueue chan Message
	workers      int
	shutdownChan chan struct{}
	wg           sync.WaitGroup
	logger       *slog.Logger
}

type Message struct {
	Recipient string
	Body      string
	Kind      string
	CreatedAt time.Time
}

func NewNotificationService(sender SMSSender, workers int, logger *slog.Logger) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = 1
	}

	s := &NotificationService{
		sender:       sender,
		messageQueue: make(chan Message, 1000),
		workers:      workers,
		shutdownChan: make(chan struct{}),
		logger:       logger,
	}

	s.startWorkers()

	return s
}

// Notify queues a single SMS. It blocks only when the queue is full, and
// returns an error only when the context is cancelled first.
func (s *NotificationService) Notify(ctx context.Context, recipient, body, kind string) error {
	msg := Message{
		Recipient: recipient,
		Body:      body,
		Kind:      kind,
		CreatedAt: time.Now(),
	}

	select {
	case s.messageQueue <- msg:
		s.logger.Info("Notification queued",
			slog.String("kind", kind),
			slog.String("recipient", recipient))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Broadcast queues the same body for every recipient.
func (s *NotificationService) Broadcast(ctx context.Context, recipients []string, body, kind string) error {
	for _, recipient := range recipients {
		if err := s.Notify(ctx, recipient, body, kind); err != nil {
			return err
		}
	}
	return nil
}

// NotifyTransaction sends the outcome message for a finalized transaction
// to the given customer phone.
func (s *NotificationService) NotifyTransaction(ctx context.Context, tx *domain.Transaction, phone string) error {
	var body string

	switch tx.Status {
	case domain.StatusSuccess:
		body = fmt.Sprintf("Rs. %s was debited from your account %s, as per your request. "+
			"If the transaction was not made by you then please reach out to us on our support channel.",
			tx.Amount.StringFixed(2), tx.SenderNumber)
	case domain.StatusFailed:
		body = "We have received your request and the transaction has failed due to " +
			tx.FailureReason + ". Your balance was not debited."
	default:
		body = fmt.Sprintf("Your transaction of Rs. %s is now %s.", tx.Amount.StringFixed(2), tx.Status)
	}

	return s.Notify(ctx, phone, body, "transaction")
}

// NotifyCredit tells the receiving customer that funds arrived.
func (s *NotificationService) NotifyCredit(ctx context.Context, tx *domain.Transaction, phone string) error {
	body := fmt.Sprintf("Rs. %s was credited to your account %s.",
		tx.Amount.StringFixed(2), tx.ReceiverNumber)
	return s.Notify(ctx, phone, body, "transaction")
}

// NotifyLowBalance alerts the sender that the balance fell under the
// configured minimum.
func (s *NotificationService) NotifyLowBalance(ctx context.Context, phone, accountNumber string, balance decimal.Decimal) error {
	body := fmt.Sprintf("ALERT: You have only Rs. %s in your account %s, lower than the minimum balance.",
		balance.StringFixed(2), accountNumber)
	return s.Notify(ctx, phone, body, "low_balance")
}

func (s *NotificationService) startWorkers() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

func (s *NotificationService) worker(id int) {
	defer s.wg.Done()

	s.logger.Info("Notification worker started", slog.Int("worker_id", id))

	for {
		select {
		case msg := <-s.messageQueue:
			s.deliver(msg, id)
		case <-s.shutdownChan:
			s.logger.Info("Notification worker stopping", slog.Int("worker_id", id))
			return
		}
	}
}

func (s *NotificationService) deliver(msg Message, workerID int) {
	startTime := time.Now()
	err := s.sender.SendSMS(msg.Recipient, msg.Body)
	duration := time.Since(startTime)

	if err != nil {
		// Logged only; never escalated and never rolled back into the ledger.
		s.logger.Error("Failed to send SMS",
			slog.String("kind", msg.Kind),
			slog.String("recipient", msg.Recipient),
			slog.String("error", err.Error()),
			slog.Int("worker_id", workerID),
			slog.Duration("duration", duration))
		return
	}

	s.logger.Info("SMS sent",
		slog.String("kind", msg.Kind),
		slog.String("recipient", msg.Recipient),
		slog.Int("worker_id", workerID),
		slog.Duration("duration", duration))
}

func (s *NotificationService) Shutdown(ctx context.Context) error {
	close(s.shutdownChan)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Notification service shutdown complete")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MockSMSSender records sent messages for tests.
type MockSMSSender struct {
	mu      sync.Mutex
	SentSMS []struct {
		To      string
		Message string
	}
}

func (m *MockSMSSender) SendSMS(to, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentSMS = append(m.SentSMS, struct {
		To      string
		Message string
	}{to, message})
	return nil
}

func (m *MockSMSSender) Sent() []struct {
	To      string
	Message string
} {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]struct {
		To      string
		Message string
	}, len(m.SentSMS))
	copy(out, m.SentSMS)
	return out
}

// LogSMSSender is the default sender when no provider is configured. It
// writes the message to the log instead of a carrier.
type LogSMSSender struct {
	Logger *slog.Logger
}

func (l *LogSMSSender) SendSMS(to, message string) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("SMS (dry run)", slog.String("to", to), slog.String("body", message))
	return nil
}
