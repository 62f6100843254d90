package memory

import (
	"context"
	"fmt"
	"sync"

	"bankcore/internal/domain"
	"bankcore/internal/repository"
)

type CardRepository struct {
	mu           sync.RWMutex
	cards        map[string]*domain.Card
	accountIndex map[string][]string
}

func NewCardRepository() *CardRepository {
	return &CardRepository{
		cards:        make(map[string]*domain.Card),
		accountIndex: make(map[string][]string),
	}
}

func (r *CardRepository) Save(ctx context.Context, card *domain.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.cards[card.Number]; exists {
		return fmt.Errorf("%w: card %s", repository.ErrDuplicate, card.Number)
	}

	r.cards[card.Number] = card
	r.accountIndex[card.AccountNumber] = append(r.accountIndex[card.AccountNumber], card.Number)

	return nil
}

func (r *CardRepository) GetByNumber(ctx context.Context, number string) (*domain.Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	card, exists := r.cards[number]
	if !exists {
		return nil, fmt.Errorf("%w: card %s", repository.ErrNotFound, number)
	}
	return card, nil
}

func (r *CardRepository) GetByAccount(ctx context.Context, accountNumber string) ([]*domain.Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.Card
	for _, number := range r.accountIndex[accountNumber] {
		if card, ok := r.cards[number]; ok {
			result = append(result, card)
		}
	}

	return result, nil
}

func (r *CardRepository) UpdateStatus(ctx context.Context, number string, status domain.CardStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	card, exists := r.cards[number]
	if !exists {
		return fmt.Errorf("%w: card %s", repository.ErrNotFound, number)
	}

	card.Status = status

	return nil
}

func (r *CardRepository) Exists(ctx context.Context, number string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.cards[number]
	return exists, nil
}
