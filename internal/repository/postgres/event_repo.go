package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bankcore/internal/domain"
	"bankcore/internal/repository"
)

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, title, description, fire_at, created_at, delivered`

func (r *EventRepository) Save(ctx context.Context, event *domain.Event) error {
	query := `INSERT INTO events (id, title, description, fire_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		event.ID, event.Title, event.Description, event.FireAt).
		Scan(&event.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: event %s", repository.ErrDuplicate, event.ID)
		}
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	event := &domain.Event{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&event.ID, &event.Title, &event.Description, &event.FireAt,
		&event.CreatedAt, &event.Delivered)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: event %s", repository.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) GetPending(ctx context.Context) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE delivered = FALSE ORDER BY fire_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending events: %w", err)
	}
	defer rows.Close()

	var result []*domain.Event
	for rows.Next() {
		event := &domain.Event{}
		if err := rows.Scan(&event.ID, &event.Title, &event.Description,
			&event.FireAt, &event.CreatedAt, &event.Delivered); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		result = append(result, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event rows: %w", err)
	}
	return result, nil
}

func (r *EventRepository) MarkDelivered(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE events SET delivered = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark event delivered: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: event %s", repository.ErrNotFound, id)
	}
	return nil
}
