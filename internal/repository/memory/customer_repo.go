package memory

import (
	"context"
	"fmt"
	"sync"

	"bankcore/internal/domain"
	"bankcore/internal/repository"
)

type CustomerRepository struct {
	mu         sync.RWMutex
	customers  map[string]*domain.Customer
	phoneIndex map[string]string
}

func NewCustomerRepository() *CustomerRepository {
	return &CustomerRepository{
		customers:  make(map[string]*domain.Customer),
		phoneIndex: make(map[string]string),
	}
}

func (r *CustomerRepository) Save(ctx context.Context, customer *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.customers[customer.CustomerID]; exists {
		return fmt.Errorf("%w: customer %s", repository.ErrDuplicate, customer.CustomerID)
	}
	if _, exists := r.phoneIndex[customer.Phone]; exists {
		return fmt.Errorf("%w: phone %s", repository.ErrDuplicate, customer.Phone)
	}

	r.customers[customer.CustomerID] = customer
	r.phoneIndex[customer.Phone] = customer.CustomerID

	return nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, customerID string) (*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	customer, exists := r.customers[customerID]
	if !exists {
		return nil, fmt.Errorf("%w: customer %s", repository.ErrNotFound, customerID)
	}
	return customer, nil
}

func (r *CustomerRepository) GetByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	customerID, exists := r.phoneIndex[phone]
	if !exists {
		return nil, fmt.Errorf("%w: phone %s", repository.ErrNotFound, phone)
	}
	return r.customers[customerID], nil
}

func (r *CustomerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.customers[customer.CustomerID]
	if !exists {
		return fmt.Errorf("%w: customer %s", repository.ErrNotFound, customer.CustomerID)
	}

	if existing.Phone != customer.Phone {
		if _, taken := r.phoneIndex[customer.Phone]; taken {
			return fmt.Errorf("%w: phone %s", repository.ErrDuplicate, customer.Phone)
		}
		delete(r.phoneIndex, existing.Phone)
		r.phoneIndex[customer.Phone] = customer.CustomerID
	}

	r.customers[customer.CustomerID] = customer

	return nil
}

func (r *CustomerRepository) Delete(ctx context.Context, customerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	customer, exists := r.customers[customerID]
	if !exists {
		return fmt.Errorf("%w: customer %s", repository.ErrNotFound, customerID)
	}

	delete(r.phoneIndex, customer.Phone)
	delete(r.customers, customerID)

	return nil
}

func (r *CustomerRepository) AllPhones(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	phones := make([]string, 0, len(r.phoneIndex))
	for phone := range r.phoneIndex {
		phones = append(phones, phone)
	}

	return phones, nil
}

func (r *CustomerRepository) Exists(ctx context.Context, customerID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.customers[customerID]
	return exists, nil
}
