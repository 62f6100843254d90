package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bankcore/internal/domain"
	"bankcore/internal/repository"
)

type CustomerRepository struct {
	db *sql.DB
}

func NewCustomerRepository(db *sql.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

const customerColumns = `customer_id, name, email, gender, phone, address, city, state, country, date_of_birth`

func (r *CustomerRepository) Save(ctx context.Context, customer *domain.Customer) error {
	query := `INSERT INTO customers (` + customerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		customer.CustomerID, customer.Name, customer.Email, customer.Gender,
		customer.Phone, customer.Address, customer.City, customer.State,
		customer.Country, customer.DateOfBirth)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: customer %s", repository.ErrDuplicate, customer.CustomerID)
		}
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, customerID string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE customer_id = $1`
	return r.scanCustomer(r.db.QueryRowContext(ctx, query, customerID), customerID)
}

func (r *CustomerRepository) GetByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE phone = $1`
	return r.scanCustomer(r.db.QueryRowContext(ctx, query, phone), phone)
}

func (r *CustomerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	query := `UPDATE customers
		SET name = $2, email = $3, gender = $4, phone = $5, address = $6,
		    city = $7, state = $8, country = $9, date_of_birth = $10
		WHERE customer_id = $1`

	result, err := r.db.ExecContext(ctx, query,
		customer.CustomerID, customer.Name, customer.Email, customer.Gender,
		customer.Phone, customer.Address, customer.City, customer.State,
		customer.Country, customer.DateOfBirth)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: phone %s", repository.ErrDuplicate, customer.Phone)
		}
		return fmt.Errorf("failed to update customer: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: customer %s", repository.ErrNotFound, customer.CustomerID)
	}
	return nil
}

// Delete removes the customer; accounts cascade at the schema level.
func (r *CustomerRepository) Delete(ctx context.Context, customerID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM customers WHERE customer_id = $1`, customerID)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: customer %s", repository.ErrNotFound, customerID)
	}
	return nil
}

func (r *CustomerRepository) AllPhones(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT phone FROM customers`)
	if err != nil {
		return nil, fmt.Errorf("failed to list customer phones: %w", err)
	}
	defer rows.Close()

	var phones []string
	for rows.Next() {
		var phone string
		if err := rows.Scan(&phone); err != nil {
			return nil, fmt.Errorf("failed to scan phone: %w", err)
		}
		phones = append(phones, phone)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read phone rows: %w", err)
	}
	return phones, nil
}

func (r *CustomerRepository) Exists(ctx context.Context, customerID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM customers WHERE customer_id = $1)`, customerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check customer existence: %w", err)
	}
	return exists, nil
}

func (r *CustomerRepository) scanCustomer(row rowScanner, key string) (*domain.Customer, error) {
	customer := &domain.Customer{}
	err := row.Scan(&customer.CustomerID, &customer.Name, &customer.Email,
		&customer.Gender, &customer.Phone, &customer.Address, &customer.City,
		&customer.State, &customer.Country, &customer.DateOfBirth)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: customer %s", repository.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to scan customer: %w", err)
	}
	return customer, nil
}
