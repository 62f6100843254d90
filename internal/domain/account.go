package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string
type AccountStatus string

const (
	AccountPersonal AccountType = "personal"
	AccountBusiness AccountType = "business"

	AccountActive   AccountStatus = "active"
	AccountInactive AccountStatus = "inactive"
	AccountClosed   AccountStatus = "closed"
	AccountBlocked  AccountStatus = "blocked"
)

// UnassignedNumber is the sentinel account/customer identifier meaning
// "not yet generated". Rows carrying it are purged once a real id exists.
const UnassignedNumber = "0"

type Account struct {
	Number          string          `json:"number"`
	Type            AccountType     `json:"type"`
	Status          AccountStatus   `json:"status"`
	Balance         decimal.Decimal `json:"balance"`
	TransferLimit   decimal.Decimal `json:"transfer_limit"`
	WithdrawalLimit decimal.Decimal `json:"withdrawal_limit"`
	CustomerID      string          `json:"customer_id"`
	OpenedAt        time.Time       `json:"opened_at"`
	ClosedAt        *time.Time      `json:"closed_at,omitempty"`
}

func NewAccount(customerID string, accountType AccountType) *Account {
	return &Account{
		Number:          UnassignedNumber,
		Type:            accountType,
		Status:          AccountActive,
		Balance:         decimal.Zero,
		TransferLimit:   decimal.NewFromInt(100000),
		WithdrawalLimit: decimal.NewFromInt(50000),
		CustomerID:      customerID,
		OpenedAt:        time.Now(),
	}
}

// Unassigned reports whether the account still carries the sentinel number.
func (a *Account) Unassigned() bool {
	return a.Number == UnassignedNumber || a.Number == ""
}

// CanReceive reports whether funds may be credited to the account.
// Closed and blocked accounts accept no credits.
func (a *Account) CanReceive() bool {
	return a.Status == AccountActive || a.Status == AccountInactive
}

// CanSend reports whether funds may be debited from the account.
func (a *Account) CanSend() bool {
	return a.Status == AccountActive
}
