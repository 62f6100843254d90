package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"bankcore/internal/domain"
)

type CustomerRepository interface {
	Save(ctx context.Context, customer *domain.Customer) error
	GetByID(ctx context.Context, customerID string) (*domain.Customer, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Customer, error)
	Update(ctx context.Context, customer *domain.Customer) error
	Delete(ctx context.Context, customerID string) error
	AllPhones(ctx context.Context) ([]string, error)
	Exists(ctx context.Context, customerID string) (bool, error)
}

type AccountRepository interface {
	Save(ctx context.Context, account *domain.Account) error
	GetByNumber(ctx context.Context, number string) (*domain.Account, error)
	GetByCustomerID(ctx context.Context, customerID string) ([]*domain.Account, error)
	Update(ctx context.Context, account *domain.Account) error
	// ApplyTransfer debits sender and credits receiver by amount as one
	// unit: either both rows commit or neither does. The debit is guarded
	// by the stored balance, not the caller's earlier read, so two
	// processes can never both spend the same funds; a failed guard
	// returns ErrInsufficientFunds with neither row changed. On success
	// the sender's remaining balance is returned.
	ApplyTransfer(ctx context.Context, senderNumber, receiverNumber string, amount decimal.Decimal) (decimal.Decimal, error)
	UpdateStatus(ctx context.Context, number string, status domain.AccountStatus) error
	// PurgeUnassigned deletes any rows still carrying the sentinel number
	// and reports how many were removed. Safe to call repeatedly.
	PurgeUnassigned(ctx context.Context) (int, error)
	Exists(ctx context.Context, number string) (bool, error)
}

type TransactionRepository interface {
	Save(ctx context.Context, tx *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	GetByAccount(ctx context.Context, accountNumber string, limit, offset int) ([]*domain.Transaction, error)
	GetByStatus(ctx context.Context, status domain.TransactionStatus) ([]*domain.Transaction, error)
	GetByPeriod(ctx context.Context, from, to time.Time) ([]*domain.Transaction, error)
}

type CardRepository interface {
	Save(ctx context.Context, card *domain.Card) error
	GetByNumber(ctx context.Context, number string) (*domain.Card, error)
	GetByAccount(ctx context.Context, accountNumber string) ([]*domain.Card, error)
	UpdateStatus(ctx context.Context, number string, status domain.CardStatus) error
	Exists(ctx context.Context, number string) (bool, error)
}

type OfferRepository interface {
	Save(ctx context.Context, offer *domain.Offer) error
	GetByID(ctx context.Context, id string) (*domain.Offer, error)
	GetActive(ctx context.Context) ([]*domain.Offer, error)
	Update(ctx context.Context, offer *domain.Offer) error
}

type EventRepository interface {
	Save(ctx context.Context, event *domain.Event) error
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	GetPending(ctx context.Context) ([]*domain.Event, error)
	MarkDelivered(ctx context.Context, id string) error
}

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate entry")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrFinalized         = errors.New("transaction already finalized")
	ErrConflict          = errors.New("storage conflict")
)
