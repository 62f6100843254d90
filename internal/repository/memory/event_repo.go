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

type EventRepository struct {
	mu     sync.RWMutex
	events map[string]*domain.Event
}

func NewEventRepository() *EventRepository {
	return &EventRepository{
		events: make(map[string]*domain.Event),
	}
}

func (r *EventRepository) Save(ctx context.Context, event *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.events[event.ID]; exists {
		return fmt.Errorf("%w: event %s", repository.ErrDuplicate, event.ID)
	}

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	r.events[event.ID] = event

	return nil
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, exists := r.events[id]
	if !exists {
		return nil, fmt.Errorf("%w: event %s", repository.ErrNotFound, id)
	}
	return event, nil
}

func (r *EventRepository) GetPending(ctx context.Context) ([]*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.Event
	for _, event := range r.events {
		if !event.Delivered {
			result = append(result, event)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].FireAt.Before(result[j].FireAt)
	})

	return result, nil
}

func (r *EventRepository) MarkDelivered(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, exists := r.events[id]
	if !exists {
		return fmt.Errorf("%w: event %s", repository.ErrNotFound, id)
	}

	event.Delivered = true

	return nil
}
