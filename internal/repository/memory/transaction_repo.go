package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"bankcore/internal/domain"
	"bankcore/internal/repository"
)

type TransactionRepository struct {
	mu           sync.RWMutex
	transactions map[string]*domain.Transaction
	accountIndex map[string][]string
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{
		transactions: make(map[string]*domain.Transaction),
		accountIndex: make(map[string][]string),
	}
}

func (r *TransactionRepository) Save(ctx context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.transactions[tx.ID]; exists {
		// Finalized records are an immutable audit trail.
		if existing.Finalized() {
			return fmt.Errorf("%w: transaction %s", repository.ErrFinalized, tx.ID)
		}
		r.transactions[tx.ID] = cloneTx(tx)
		return nil
	}

	r.transactions[tx.ID] = cloneTx(tx)

	if tx.SenderNumber != "" {
		r.accountIndex[tx.SenderNumber] = append(r.accountIndex[tx.SenderNumber], tx.ID)
	}
	if tx.ReceiverNumber != "" && tx.ReceiverNumber != tx.SenderNumber {
		r.accountIndex[tx.ReceiverNumber] = append(r.accountIndex[tx.ReceiverNumber], tx.ID)
	}

	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tx, exists := r.transactions[id]
	if !exists {
		return nil, fmt.Errorf("%w: transaction %s", repository.ErrNotFound, id)
	}
	return cloneTx(tx), nil
}

func (r *TransactionRepository) GetByAccount(ctx context.Context, accountNumber string, limit, offset int) ([]*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids, exists := r.accountIndex[accountNumber]
	if !exists {
		return []*domain.Transaction{}, nil
	}

	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		return r.transactions[sorted[i]].CreatedAt.After(r.transactions[sorted[j]].CreatedAt)
	})

	start := offset
	end := offset + limit
	if end > len(sorted) || limit <= 0 {
		end = len(sorted)
	}
	if start >= len(sorted) {
		return []*domain.Transaction{}, nil
	}

	var result []*domain.Transaction
	for _, id := range sorted[start:end] {
		result = append(result, cloneTx(r.transactions[id]))
	}

	return result, nil
}

func (r *TransactionRepository) GetByStatus(ctx context.Context, status domain.TransactionStatus) ([]*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.Transaction
	for _, tx := range r.transactions {
		if tx.Status == status {
			result = append(result, cloneTx(tx))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

func (r *TransactionRepository) GetByPeriod(ctx context.Context, from, to time.Time) ([]*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.Transaction
	for _, tx := range r.transactions {
		if !tx.CreatedAt.Before(from) && !tx.CreatedAt.After(to) {
			result = append(result, cloneTx(tx))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// cloneTx keeps stored rows isolated from caller mutation; without it a
// caller holding an old pointer could rewrite a finalized audit record in
// place.
func cloneTx(tx *domain.Transaction) *domain.Transaction {
	c := *tx
	return &c
}
