package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"bankcore/internal/domain"
	"bankcore/internal/repository"
)

type AccountRepository struct {
	mu            sync.RWMutex
	accounts      map[string]*domain.Account
	customerIndex map[string][]string
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts:      make(map[string]*domain.Account),
		customerIndex: make(map[string][]string),
	}
}

func (r *AccountRepository) Save(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.Number]; exists {
		return fmt.Errorf("%w: account %s", repository.ErrDuplicate, account.Number)
	}

	if account.OpenedAt.IsZero() {
		account.OpenedAt = time.Now()
	}
	r.accounts[account.Number] = clone(account)
	r.customerIndex[account.CustomerID] = append(r.customerIndex[account.CustomerID], account.Number)

	return nil
}

func (r *AccountRepository) GetByNumber(ctx context.Context, number string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, exists := r.accounts[number]
	if !exists {
		return nil, fmt.Errorf("%w: account %s", repository.ErrNotFound, number)
	}
	return clone(account), nil
}

func (r *AccountRepository) GetByCustomerID(ctx context.Context, customerID string) ([]*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	numbers, exists := r.customerIndex[customerID]
	if !exists {
		return nil, fmt.Errorf("%w: customer %s", repository.ErrNotFound, customerID)
	}

	var result []*domain.Account
	for _, n := range numbers {
		if account, ok := r.accounts[n]; ok {
			result = append(result, clone(account))
		}
	}

	return result, nil
}

func (r *AccountRepository) Update(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.Number]; !exists {
		return fmt.Errorf("%w: account %s", repository.ErrNotFound, account.Number)
	}

	r.accounts[account.Number] = clone(account)

	return nil
}

// ApplyTransfer moves amount between the two rows under a single lock hold.
// The debit is checked against the stored balance, so a stale caller read
// can never overdraw the sender. Both rows must exist; on any failure
// neither is written.
func (r *AccountRepository) ApplyTransfer(ctx context.Context, senderNumber, receiverNumber string, amount decimal.Decimal) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sender, exists := r.accounts[senderNumber]
	if !exists {
		return decimal.Zero, fmt.Errorf("%w: account %s", repository.ErrNotFound, senderNumber)
	}
	receiver, exists := r.accounts[receiverNumber]
	if !exists {
		return decimal.Zero, fmt.Errorf("%w: account %s", repository.ErrNotFound, receiverNumber)
	}
	if sender.Balance.LessThan(amount) {
		return decimal.Zero, fmt.Errorf("%w: account %s", repository.ErrInsufficientFunds, senderNumber)
	}

	sender.Balance = sender.Balance.Sub(amount)
	receiver.Balance = receiver.Balance.Add(amount)

	return sender.Balance, nil
}

func (r *AccountRepository) UpdateStatus(ctx context.Context, number string, status domain.AccountStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, exists := r.accounts[number]
	if !exists {
		return fmt.Errorf("%w: account %s", repository.ErrNotFound, number)
	}

	account.Status = status
	if status == domain.AccountClosed {
		now := time.Now()
		account.ClosedAt = &now
	}

	return nil
}

func (r *AccountRepository) PurgeUnassigned(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var purged int
	for number, account := range r.accounts {
		if account.Unassigned() {
			delete(r.accounts, number)
			r.dropFromIndex(account.CustomerID, number)
			purged++
		}
	}

	return purged, nil
}

func (r *AccountRepository) Exists(ctx context.Context, number string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.accounts[number]
	return exists, nil
}

// dropFromIndex must be called with r.mu held.
func (r *AccountRepository) dropFromIndex(customerID, number string) {
	numbers := r.customerIndex[customerID]
	for i, n := range numbers {
		if n == number {
			r.customerIndex[customerID] = append(numbers[:i], numbers[i+1:]...)
			break
		}
	}
	if len(r.customerIndex[customerID]) == 0 {
		delete(r.customerIndex, customerID)
	}
}

// clone keeps stored rows isolated from caller mutation, so an aborted
// transfer cannot leak a balance change into the store.
func clone(a *domain.Account) *domain.Account {
	c := *a
	return &c
}
