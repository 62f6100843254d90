package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"bankcore/internal/domain"
	"bankcore/internal/repository"
	"bankcore/pkg/validator"
)

// Notifier delivers SMS side effects. All calls are best-effort from the
// processor's point of view: failures are logged, never rolled back into
// the ledger.
type Notifier interface {
	Notify(ctx context.Context, recipient, body, kind string) error
	Broadcast(ctx context.Context, recipients []string, body, kind string) error
	NotifyTransaction(ctx context.Context, tx *domain.Transaction, phone string) error
	NotifyCredit(ctx context.Context, tx *domain.Transaction, phone string) error
	NotifyLowBalance(ctx context.Context, phone, accountNumber string, balance decimal.Decimal) error
}

// Scheduler invokes the delivery callback at or after fireAt, at least once.
type Scheduler interface {
	Schedule(fireAt time.Time, deliver func(ctx context.Context))
}

type Stores struct {
	Customers    repository.CustomerRepository
	Accounts     repository.AccountRepository
	Transactions repository.TransactionRepository
	Cards        repository.CardRepository
	Offers       repository.OfferRepository
	Events       repository.EventRepository
}

type Config struct {
	// MinBalance is the threshold under which a successful debit triggers
	// a low-balance alert to the sender.
	MinBalance decimal.Decimal
}

// TransferProcessor owns every balance mutation. Transactions move through
// an explicit lifecycle (pending, then exactly one of success or failed);
// concurrent work touching the same account is serialized on per-account
// locks so a stale balance read can never admit a double spend.
type TransferProcessor struct {
	stores    Stores
	notifier  Notifier
	scheduler Scheduler
	validator *validator.TransactionValidator
	cfg       Config
	logger    *slog.Logger

	lockMu       sync.Mutex
	accountLocks map[string]*sync.Mutex

	mu      sync.RWMutex
	metrics map[string]int
}

func NewTransferProcessor(stores Stores, notifier Notifier, scheduler Scheduler, cfg Config, logger *slog.Logger) *TransferProcessor {
	if logger == nil {
		logger = slog.Default()
	}

	return &TransferProcessor{
		stores:       stores,
		notifier:     notifier,
		scheduler:    scheduler,
		validator:    validator.NewTransactionValidator(),
		cfg:          cfg,
		logger:       logger,
		accountLocks: make(map[string]*sync.Mutex),
		metrics:      make(map[string]int),
	}
}

// Process validates and applies a money movement. Admission failures are
// business outcomes: the transaction is persisted as failed, no balance is
// touched, and nil is returned. Validation and storage failures are
// returned as errors with nothing persisted as success.
func (p *TransferProcessor) Process(ctx context.Context, tx *domain.Transaction) error {
	if err := p.validator.ValidateTransaction(tx); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	switch tx.Type {
	case domain.TypeTransfer:
		return p.processTransfer(ctx, tx)
	case domain.TypeDeposit:
		return p.processDeposit(ctx, tx)
	case domain.TypeWithdrawal:
		return p.processWithdrawal(ctx, tx)
	default:
		return fmt.Errorf("unknown transaction type: %s", tx.Type)
	}
}

func (p *TransferProcessor) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return p.stores.Transactions.GetByID(ctx, id)
}

func (p *TransferProcessor) processTransfer(ctx context.Context, tx *domain.Transaction) error {
	p.logger.InfoContext(ctx, "Processing transfer",
		slog.String("transaction_id", tx.ID),
		slog.String("sender", tx.SenderNumber),
		slog.String("receiver", tx.ReceiverNumber),
		slog.String("amount", tx.Amount.StringFixed(2)))

	unlock := p.lockPair(tx.SenderNumber, tx.ReceiverNumber)
	defer unlock()

	sender, err := p.stores.Accounts.GetByNumber(ctx, tx.SenderNumber)
	if err != nil {
		return fmt.Errorf("sender account: %w", err)
	}
	receiver, err := p.stores.Accounts.GetByNumber(ctx, tx.ReceiverNumber)
	if err != nil {
		return fmt.Errorf("receiver account: %w", err)
	}

	if name, reason, ok := runChecks(transferChecks(), sender, receiver, tx.Amount); !ok {
		return p.reject(ctx, tx, sender, name, reason)
	}

	if err := p.recordPending(ctx, tx); err != nil {
		return err
	}

	// Both rows commit as one unit or the transfer never happened. The
	// store re-checks the sender balance under its row lock, so another
	// process draining the account between our read and this commit turns
	// into a rejection, never an overdraw.
	remaining, err := p.stores.Accounts.ApplyTransfer(ctx, tx.SenderNumber, tx.ReceiverNumber, tx.Amount)
	if errors.Is(err, repository.ErrInsufficientFunds) {
		return p.reject(ctx, tx, sender, checkSufficientFunds, reasonInsufficientFunds)
	}
	if err != nil {
		return fmt.Errorf("failed to commit transfer: %w", err)
	}
	sender.Balance = remaining
	receiver.Balance = receiver.Balance.Add(tx.Amount)

	if err := p.finalize(ctx, tx, domain.StatusSuccess, ""); err != nil {
		return err
	}

	p.notifySender(ctx, tx, sender)
	p.notifyReceiver(ctx, tx, receiver)
	p.alertLowBalance(ctx, sender)

	p.recordMetric("transfers_succeeded", 1)
	p.logger.InfoContext(ctx, "Transfer completed",
		slog.String("transaction_id", tx.ID))
	return nil
}

func (p *TransferProcessor) processDeposit(ctx context.Context, tx *domain.Transaction) error {
	p.logger.InfoContext(ctx, "Processing deposit",
		slog.String("transaction_id", tx.ID),
		slog.String("receiver", tx.ReceiverNumber),
		slog.String("amount", tx.Amount.StringFixed(2)))

	unlock := p.lockAccount(tx.ReceiverNumber)
	defer unlock()

	receiver, err := p.stores.Accounts.GetByNumber(ctx, tx.ReceiverNumber)
	if err != nil {
		return fmt.Errorf("receiver account: %w", err)
	}

	if name, reason, ok := runChecks(depositChecks(), nil, receiver, tx.Amount); !ok {
		return p.reject(ctx, tx, receiver, name, reason)
	}

	if err := p.recordPending(ctx, tx); err != nil {
		return err
	}

	receiver.Balance = receiver.Balance.Add(tx.Amount)
	if err := p.stores.Accounts.Update(ctx, receiver); err != nil {
		return fmt.Errorf("failed to commit deposit: %w", err)
	}

	if err := p.finalize(ctx, tx, domain.StatusSuccess, ""); err != nil {
		return err
	}

	p.notifyReceiver(ctx, tx, receiver)
	p.recordMetric("deposits_succeeded", 1)
	return nil
}

func (p *TransferProcessor) processWithdrawal(ctx context.Context, tx *domain.Transaction) error {
	p.logger.InfoContext(ctx, "Processing withdrawal",
		slog.String("transaction_id", tx.ID),
		slog.String("sender", tx.SenderNumber),
		slog.String("amount", tx.Amount.StringFixed(2)))

	unlock := p.lockAccount(tx.SenderNumber)
	defer unlock()

	sender, err := p.stores.Accounts.GetByNumber(ctx, tx.SenderNumber)
	if err != nil {
		return fmt.Errorf("sender account: %w", err)
	}

	if name, reason, ok := runChecks(withdrawalChecks(), sender, nil, tx.Amount); !ok {
		return p.reject(ctx, tx, sender, name, reason)
	}

	if err := p.recordPending(ctx, tx); err != nil {
		return err
	}

	sender.Balance = sender.Balance.Sub(tx.Amount)
	if err := p.stores.Accounts.Update(ctx, sender); err != nil {
		return fmt.Errorf("failed to commit withdrawal: %w", err)
	}

	if err := p.finalize(ctx, tx, domain.StatusSuccess, ""); err != nil {
		return err
	}

	p.notifySender(ctx, tx, sender)
	p.alertLowBalance(ctx, sender)
	p.recordMetric("withdrawals_succeeded", 1)
	return nil
}

// reject records the business outcome: a failed transaction row, untouched
// balances, and an explanation to the initiating customer.
func (p *TransferProcessor) reject(ctx context.Context, tx *domain.Transaction, account *domain.Account, checkName, reason string) error {
	p.logger.WarnContext(ctx, "Transaction rejected",
		slog.String("transaction_id", tx.ID),
		slog.String("check", checkName),
		slog.String("reason", reason))

	if err := p.finalize(ctx, tx, domain.StatusFailed, reason); err != nil {
		return err
	}

	if phone, ok := p.customerPhone(ctx, account); ok {
		if err := p.notifier.NotifyTransaction(ctx, tx, phone); err != nil {
			p.logger.ErrorContext(ctx, "Failed to queue rejection notification",
				slog.String("transaction_id", tx.ID),
				slog.String("error", err.Error()))
		}
	}

	p.recordMetric("transactions_rejected", 1)
	return nil
}

// recordPending writes the admitted transaction before any balance moves.
// If finalizing fails later, the ledger still holds a pending row for the
// movement instead of money that left no trace.
func (p *TransferProcessor) recordPending(ctx context.Context, tx *domain.Transaction) error {
	if err := p.stores.Transactions.Save(ctx, tx); err != nil {
		return fmt.Errorf("failed to record pending transaction: %w", err)
	}
	return nil
}

// finalize moves the transaction into its terminal status exactly once and
// persists the audit record.
func (p *TransferProcessor) finalize(ctx context.Context, tx *domain.Transaction, status domain.TransactionStatus, reason string) error {
	if tx.Finalized() {
		return fmt.Errorf("%w: transaction %s", repository.ErrFinalized, tx.ID)
	}

	tx.Status = status
	tx.FailureReason = reason
	tx.FinalizedAt = time.Now()

	if err := p.stores.Transactions.Save(ctx, tx); err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

func (p *TransferProcessor) notifySender(ctx context.Context, tx *domain.Transaction, sender *domain.Account) {
	phone, ok := p.customerPhone(ctx, sender)
	if !ok {
		return
	}
	if err := p.notifier.NotifyTransaction(ctx, tx, phone); err != nil {
		p.logger.ErrorContext(ctx, "Failed to queue debit notification",
			slog.String("transaction_id", tx.ID),
			slog.String("error", err.Error()))
	}
}

func (p *TransferProcessor) notifyReceiver(ctx context.Context, tx *domain.Transaction, receiver *domain.Account) {
	phone, ok := p.customerPhone(ctx, receiver)
	if !ok {
		return
	}
	if err := p.notifier.NotifyCredit(ctx, tx, phone); err != nil {
		p.logger.ErrorContext(ctx, "Failed to queue credit notification",
			slog.String("transaction_id", tx.ID),
			slog.String("error", err.Error()))
	}
}

func (p *TransferProcessor) alertLowBalance(ctx context.Context, account *domain.Account) {
	if account.Balance.GreaterThanOrEqual(p.cfg.MinBalance) {
		return
	}

	phone, ok := p.customerPhone(ctx, account)
	if !ok {
		return
	}
	if err := p.notifier.NotifyLowBalance(ctx, phone, account.Number, account.Balance); err != nil {
		p.logger.ErrorContext(ctx, "Failed to queue low balance alert",
			slog.String("account", account.Number),
			slog.String("error", err.Error()))
	}
	p.recordMetric("low_balance_alerts", 1)
}

func (p *TransferProcessor) customerPhone(ctx context.Context, account *domain.Account) (string, bool) {
	customer, err := p.stores.Customers.GetByID(ctx, account.CustomerID)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to resolve customer phone",
			slog.String("account", account.Number),
			slog.String("customer_id", account.CustomerID),
			slog.String("error", err.Error()))
		return "", false
	}
	return customer.Phone, true
}

// lockPair acquires both account locks in deterministic order so two
// transfers touching the same accounts cannot deadlock.
func (p *TransferProcessor) lockPair(a, b string) func() {
	first, second := a, b
	if second < first {
		first, second = second, first
	}

	unlockFirst := p.lockAccount(first)
	unlockSecond := p.lockAccount(second)
	return func() {
		unlockSecond()
		unlockFirst()
	}
}

func (p *TransferProcessor) lockAccount(number string) func() {
	p.lockMu.Lock()
	l, ok := p.accountLocks[number]
	if !ok {
		l = &sync.Mutex{}
		p.accountLocks[number] = l
	}
	p.lockMu.Unlock()

	l.Lock()
	return l.Unlock
}

func (p *TransferProcessor) GetMetrics() map[string]int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]int, len(p.metrics))
	for k, v := range p.metrics {
		out[k] = v
	}
	return out
}

func (p *TransferProcessor) recordMetric(key string, value int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics[key] += value
}
