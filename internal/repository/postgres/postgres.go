// Package postgres implements the repository interfaces on PostgreSQL.
// Transfers commit both account rows inside one SQL transaction with
// ordered row locks, and the debit is guarded by the stored balance, so
// the ledger stays consistent across processes.
package postgres

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"bankcore/internal/repository"
)

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

func Open(cfg Config) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(10 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Schema is applied at startup when AutoMigrate is enabled.
const Schema = `
CREATE TABLE IF NOT EXISTS customers (
	customer_id   TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL,
	gender        TEXT NOT NULL,
	phone         TEXT NOT NULL UNIQUE,
	address       TEXT NOT NULL DEFAULT '',
	city          TEXT NOT NULL DEFAULT '',
	state         TEXT NOT NULL DEFAULT '',
	country       TEXT NOT NULL DEFAULT '',
	date_of_birth DATE
);

CREATE TABLE IF NOT EXISTS accounts (
	number           TEXT PRIMARY KEY,
	type             TEXT NOT NULL,
	status           TEXT NOT NULL,
	balance          NUMERIC(12,2) NOT NULL DEFAULT 0,
	transfer_limit   NUMERIC(12,2) NOT NULL,
	withdrawal_limit NUMERIC(12,2) NOT NULL,
	customer_id      TEXT NOT NULL REFERENCES customers(customer_id) ON DELETE CASCADE,
	opened_at        TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	closed_at        TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS transactions (
	id              TEXT PRIMARY KEY,
	type            TEXT NOT NULL,
	amount          NUMERIC(12,2) NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	sender_number   TEXT,
	receiver_number TEXT,
	failure_reason  TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	finalized_at    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS cards (
	number         TEXT PRIMARY KEY,
	account_number TEXT NOT NULL REFERENCES accounts(number) ON DELETE CASCADE,
	type           TEXT NOT NULL,
	status         TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	expires_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS offers (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL,
	status      TEXT NOT NULL,
	type        TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS events (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL,
	fire_at     TIMESTAMPTZ NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	delivered   BOOLEAN NOT NULL DEFAULT FALSE
);
`

func Migrate(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

var (
	_ repository.CustomerRepository    = (*CustomerRepository)(nil)
	_ repository.AccountRepository     = (*AccountRepository)(nil)
	_ repository.TransactionRepository = (*TransactionRepository)(nil)
	_ repository.CardRepository        = (*CardRepository)(nil)
	_ repository.OfferRepository       = (*OfferRepository)(nil)
	_ repository.EventRepository       = (*EventRepository)(nil)
)
