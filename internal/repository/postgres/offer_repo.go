package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bankcore/internal/domain"
	"bankcore/internal/repository"
)

type OfferRepository struct {
	db *sql.DB
}

func NewOfferRepository(db *sql.DB) *OfferRepository {
	return &OfferRepository{db: db}
}

const offerColumns = `id, name, description, status, type, created_at, updated_at`

func (r *OfferRepository) Save(ctx context.Context, offer *domain.Offer) error {
	query := `INSERT INTO offers (id, name, description, status, type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		offer.ID, offer.Name, offer.Description, offer.Status, offer.Type).
		Scan(&offer.CreatedAt, &offer.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: offer %s", repository.ErrDuplicate, offer.ID)
		}
		return fmt.Errorf("failed to create offer: %w", err)
	}
	return nil
}

func (r *OfferRepository) GetByID(ctx context.Context, id string) (*domain.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE id = $1`

	offer := &domain.Offer{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&offer.ID, &offer.Name, &offer.Description, &offer.Status, &offer.Type,
		&offer.CreatedAt, &offer.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: offer %s", repository.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	return offer, nil
}

func (r *OfferRepository) GetActive(ctx context.Context) ([]*domain.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE status = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, domain.OfferActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list active offers: %w", err)
	}
	defer rows.Close()

	var result []*domain.Offer
	for rows.Next() {
		offer := &domain.Offer{}
		if err := rows.Scan(&offer.ID, &offer.Name, &offer.Description,
			&offer.Status, &offer.Type, &offer.CreatedAt, &offer.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		result = append(result, offer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read offer rows: %w", err)
	}
	return result, nil
}

func (r *OfferRepository) Update(ctx context.Context, offer *domain.Offer) error {
	query := `UPDATE offers
		SET name = $2, description = $3, status = $4, type = $5, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		offer.ID, offer.Name, offer.Description, offer.Status, offer.Type).
		Scan(&offer.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: offer %s", repository.ErrNotFound, offer.ID)
		}
		return fmt.Errorf("failed to update offer: %w", err)
	}
	return nil
}
