package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bankcore/internal/domain"
	"bankcore/internal/repository"
)

type OfferRepository struct {
	mu     sync.RWMutex
	offers map[string]*domain.Offer
}

func NewOfferRepository() *OfferRepository {
	return &OfferRepository{
		offers: make(map[string]*domain.Offer),
	}
}

func (r *OfferRepository) Save(ctx context.Context, offer *domain.Offer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.offers[offer.ID]; exists {
		return fmt.Errorf("%w: offer %s", repository.ErrDuplicate, offer.ID)
	}

	now := time.Now()
	offer.CreatedAt = now
	offer.UpdatedAt = now
	r.offers[offer.ID] = offer

	return nil
}

func (r *OfferRepository) GetByID(ctx context.Context, id string) (*domain.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	offer, exists := r.offers[id]
	if !exists {
		return nil, fmt.Errorf("%w: offer %s", repository.ErrNotFound, id)
	}
	return offer, nil
}

func (r *OfferRepository) GetActive(ctx context.Context) ([]*domain.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.Offer
	for _, offer := range r.offers {
		if offer.Status == domain.OfferActive {
			result = append(result, offer)
		}
	}

	return result, nil
}

func (r *OfferRepository) Update(ctx context.Context, offer *domain.Offer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.offers[offer.ID]; !exists {
		return fmt.Errorf("%w: offer %s", repository.ErrNotFound, offer.ID)
	}

	offer.UpdatedAt = time.Now()
	r.offers[offer.ID] = offer

	return nil
}
