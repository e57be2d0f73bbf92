package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"order-sync/internal/models"
	"order-sync/internal/service"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Store is the Postgres repository behind the sync engine.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// Ping checks the connection, used by the readiness probe
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Queries returns statements that run on the pool, outside any transaction.
func (s *Store) Queries() service.Queries {
	return &queries{ext: s.db}
}

// InTx runs fn inside one transaction. The transaction is rolled back on
// every path that does not reach Commit, including panics and ctx expiry.
func (s *Store) InTx(ctx context.Context, fn func(q service.Queries) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&queries{ext: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// queries runs every statement on either the pool or a transaction.
type queries struct {
	ext sqlx.ExtContext
}

// ErrDuplicateID is returned when an insert collides on id_input.
var ErrDuplicateID = errors.New("duplicate id_input")

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// dateArg renders a deadline the way DATE columns are compared.
func dateArg(t time.Time) string {
	return t.Format(models.DateLayout)
}
