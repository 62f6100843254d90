package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"bankcore/internal/domain"
	"bankcore/internal/repository"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `number, type, status, balance, transfer_limit, withdrawal_limit, customer_id, opened_at, closed_at`

func (r *AccountRepository) Save(ctx context.Context, account *domain.Account) error {
	query := `INSERT INTO accounts (number, type, status, balance, transfer_limit, withdrawal_limit, customer_id, opened_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)
		RETURNING opened_at`

	err := r.db.QueryRowContext(ctx, query,
		account.Number, account.Type, account.Status, account.Balance,
		account.TransferLimit, account.WithdrawalLimit, account.CustomerID,
	).Scan(&account.OpenedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: account %s", repository.ErrDuplicate, account.Number)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetByNumber(ctx context.Context, number string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE number = $1`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, number), number)
}

func (r *AccountRepository) GetByCustomerID(ctx context.Context, customerID string) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE customer_id = $1 ORDER BY opened_at`

	rows, err := r.db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts for customer: %w", err)
	}
	defer rows.Close()

	var result []*domain.Account
	for rows.Next() {
		account, err := r.scanAccountRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read account rows: %w", err)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: customer %s", repository.ErrNotFound, customerID)
	}
	return result, nil
}

func (r *AccountRepository) Update(ctx context.Context, account *domain.Account) error {
	query := `UPDATE accounts
		SET type = $2, status = $3, balance = $4, transfer_limit = $5, withdrawal_limit = $6, closed_at = $7
		WHERE number = $1`

	result, err := r.db.ExecContext(ctx, query,
		account.Number, account.Type, account.Status, account.Balance,
		account.TransferLimit, account.WithdrawalLimit, account.ClosedAt)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return requireRow(result, account.Number)
}

// ApplyTransfer debits and credits inside one SQL transaction, locking the
// rows in deterministic order so concurrent transfers cannot deadlock. The
// debit re-checks the stored balance under the row lock, so a snapshot read
// in another process can never overdraw the sender.
func (r *AccountRepository) ApplyTransfer(ctx context.Context, senderNumber, receiverNumber string, amount decimal.Decimal) (decimal.Decimal, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: begin transfer: %v", repository.ErrConflict, err)
	}
	defer tx.Rollback()

	first, second := senderNumber, receiverNumber
	if second < first {
		first, second = second, first
	}
	for _, number := range []string{first, second} {
		var locked string
		err := tx.QueryRowContext(ctx,
			`SELECT number FROM accounts WHERE number = $1 FOR UPDATE`, number).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("%w: account %s", repository.ErrNotFound, number)
		}
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to lock account %s: %w", number, err)
		}
	}

	var remaining decimal.Decimal
	err = tx.QueryRowContext(ctx,
		`UPDATE accounts SET balance = balance - $2 WHERE number = $1 AND balance >= $2 RETURNING balance`,
		senderNumber, amount).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: account %s", repository.ErrInsufficientFunds, senderNumber)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to debit account %s: %w", senderNumber, err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = balance + $2 WHERE number = $1`, receiverNumber, amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to credit account %s: %w", receiverNumber, err)
	}
	if err := requireRow(result, receiverNumber); err != nil {
		return decimal.Zero, err
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, fmt.Errorf("%w: commit transfer: %v", repository.ErrConflict, err)
	}
	return remaining, nil
}

func (r *AccountRepository) UpdateStatus(ctx context.Context, number string, status domain.AccountStatus) error {
	query := `UPDATE accounts
		SET status = $2,
		    closed_at = CASE WHEN $2 = 'closed' THEN CURRENT_TIMESTAMP ELSE closed_at END
		WHERE number = $1`

	result, err := r.db.ExecContext(ctx, query, number, status)
	if err != nil {
		return fmt.Errorf("failed to update account status: %w", err)
	}
	return requireRow(result, number)
}

func (r *AccountRepository) PurgeUnassigned(ctx context.Context) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE number = $1 OR number = ''`, domain.UnassignedNumber)
	if err != nil {
		return 0, fmt.Errorf("failed to purge unassigned accounts: %w", err)
	}
	purged, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged accounts: %w", err)
	}
	return int(purged), nil
}

func (r *AccountRepository) Exists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE number = $1)`, number).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *AccountRepository) scanAccount(row rowScanner, number string) (*domain.Account, error) {
	account, err := r.scanAccountRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %s", repository.ErrNotFound, number)
		}
		return nil, err
	}
	return account, nil
}

func (r *AccountRepository) scanAccountRow(row rowScanner) (*domain.Account, error) {
	account := &domain.Account{}
	var closedAt sql.NullTime
	err := row.Scan(&account.Number, &account.Type, &account.Status, &account.Balance,
		&account.TransferLimit, &account.WithdrawalLimit, &account.CustomerID,
		&account.OpenedAt, &closedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	if closedAt.Valid {
		account.ClosedAt = &closedAt.Time
	}
	return account, nil
}

func requireRow(result sql.Result, number string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: account %s", repository.ErrNotFound, number)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
