// Package repository persists users and posts in SQLite. Repositories run
// against a DBTX so the same code serves plain queries and transactions.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store hands out repositories bound to the pool or to a single transaction.
type Store struct {
	db    *sql.DB
	Users *UserRepository
	Posts *PostRepository
}

// Tx exposes the repositories bound to one open transaction.
type Tx struct {
	Users *UserRepository
	Posts *PostRepository
}

// NewStore creates a Store over the given pool.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:    db,
		Users: NewUserRepository(db),
		Posts: NewPostRepository(db),
	}
}

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}

	tx := &Tx{
		Users: NewUserRepository(sqlTx),
		Posts: NewPostRepository(sqlTx),
	}
	if err := fn(tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("Failed to roll back transaction")
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}
