package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bankcore/internal/domain"
	"bankcore/internal/repository"
)

type CardRepository struct {
	db *sql.DB
}

func NewCardRepository(db *sql.DB) *CardRepository {
	return &CardRepository{db: db}
}

const cardColumns = `number, account_number, type, status, created_at, expires_at`

func (r *CardRepository) Save(ctx context.Context, card *domain.Card) error {
	query := `INSERT INTO cards (` + cardColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		card.Number, card.AccountNumber, card.Type, card.Status,
		card.CreatedAt, card.ExpiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: card %s", repository.ErrDuplicate, card.Number)
		}
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

func (r *CardRepository) GetByNumber(ctx context.Context, number string) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE number = $1`

	card := &domain.Card{}
	err := r.db.QueryRowContext(ctx, query, number).Scan(
		&card.Number, &card.AccountNumber, &card.Type, &card.Status,
		&card.CreatedAt, &card.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: card %s", repository.ErrNotFound, number)
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return card, nil
}

func (r *CardRepository) GetByAccount(ctx context.Context, accountNumber string) ([]*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE account_number = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, accountNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	var result []*domain.Card
	for rows.Next() {
		card := &domain.Card{}
		if err := rows.Scan(&card.Number, &card.AccountNumber, &card.Type,
			&card.Status, &card.CreatedAt, &card.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		result = append(result, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read card rows: %w", err)
	}
	return result, nil
}

func (r *CardRepository) UpdateStatus(ctx context.Context, number string, status domain.CardStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE cards SET status = $2 WHERE number = $1`, number, status)
	if err != nil {
		return fmt.Errorf("failed to update card status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: card %s", repository.ErrNotFound, number)
	}
	return nil
}

func (r *CardRepository) Exists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM cards WHERE number = $1)`, number).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check card existence: %w", err)
	}
	return exists, nil
}
