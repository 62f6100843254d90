package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string
type TransactionStatus string

const (
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
	TypeTransfer   TransactionType = "transfer"

	// StatusPending is the only state a transaction may be created in.
	// It is finalized exactly once, to either StatusSuccess or StatusFailed,
	// and never transitions again.
	StatusPending TransactionStatus = "pending"
	StatusSuccess TransactionStatus = "success"
	StatusFailed  TransactionStatus = "failed"
)

type Transaction struct {
	ID             string            `json:"id"`
	Type           TransactionType   `json:"type"`
	Amount         decimal.Decimal   `json:"amount"`
	Description    string            `json:"description"`
	Status         TransactionStatus `json:"status"`
	SenderNumber   string            `json:"sender_number,omitempty"`
	ReceiverNumber string            `json:"receiver_number,omitempty"`
	FailureReason  string            `json:"failure_reason,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	FinalizedAt    time.Time         `json:"finalized_at"`
}

func NewTransaction(t TransactionType, amount decimal.Decimal) *Transaction {
	return &Transaction{
		ID:        uuid.NewString(),
		Type:      t,
		Amount:    amount,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
}

func (tx *Transaction) WithDescription(desc string) *Transaction {
	tx.Description = desc
	return tx
}

func (tx *Transaction) WithAccounts(sender, receiver string) *Transaction {
	tx.SenderNumber = sender
	tx.ReceiverNumber = receiver
	return tx
}

// Finalized reports whether the transaction has reached a terminal status.
func (tx *Transaction) Finalized() bool {
	return tx.Status == StatusSuccess || tx.Status == StatusFailed
}
