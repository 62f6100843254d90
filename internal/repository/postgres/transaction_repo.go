package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bankcore/internal/domain"
	"bankcore/internal/repository"
)

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, type, amount, description, status, sender_number, receiver_number, failure_reason, created_at, finalized_at`

func (r *TransactionRepository) Save(ctx context.Context, tx *domain.Transaction) error {
	var finalizedAt any
	if !tx.FinalizedAt.IsZero() {
		finalizedAt = tx.FinalizedAt
	}

	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    failure_reason = EXCLUDED.failure_reason,
		    finalized_at = EXCLUDED.finalized_at
		WHERE transactions.status = 'pending'`

	result, err := r.db.ExecContext(ctx, query,
		tx.ID, tx.Type, tx.Amount, tx.Description, tx.Status,
		nullString(tx.SenderNumber), nullString(tx.ReceiverNumber),
		tx.FailureReason, tx.CreatedAt, finalizedAt)
	if err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	// The conditional upsert refuses to touch a finalized row.
	if affected == 0 {
		return fmt.Errorf("%w: transaction %s", repository.ErrFinalized, tx.ID)
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: transaction %s", repository.ErrNotFound, id)
		}
		return nil, err
	}
	return tx, nil
}

func (r *TransactionRepository) GetByAccount(ctx context.Context, accountNumber string, limit, offset int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE sender_number = $1 OR receiver_number = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	return r.queryTransactions(ctx, query, accountNumber, limit, offset)
}

func (r *TransactionRepository) GetByStatus(ctx context.Context, status domain.TransactionStatus) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE status = $1 ORDER BY created_at DESC`

	return r.queryTransactions(ctx, query, status)
}

func (r *TransactionRepository) GetByPeriod(ctx context.Context, from, to time.Time) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE created_at >= $1 AND created_at <= $2 ORDER BY created_at`

	return r.queryTransactions(ctx, query, from, to)
}

func (r *TransactionRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]*domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var result []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transaction rows: %w", err)
	}
	return result, nil
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	tx := &domain.Transaction{}
	var sender, receiver sql.NullString
	var finalizedAt sql.NullTime

	err := row.Scan(&tx.ID, &tx.Type, &tx.Amount, &tx.Description, &tx.Status,
		&sender, &receiver, &tx.FailureReason, &tx.CreatedAt, &finalizedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.SenderNumber = sender.String
	tx.ReceiverNumber = receiver.String
	if finalizedAt.Valid {
		tx.FinalizedAt = finalizedAt.Time
	}
	return tx, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
