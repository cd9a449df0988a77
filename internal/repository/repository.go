// Package repository provides database access layer.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/penshort/teamkeys/internal/model"
)

// DBTX is satisfied by both the pool and a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the persistence surface used by the service layer.
// Methods called on the Store passed to WithTx's callback run inside the
// transaction.
type Store interface {
	WithTx(ctx context.Context, fn func(Store) error) error

	GetTeamByID(ctx context.Context, id string) (*model.Team, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)

	CreateAPIKey(ctx context.Context, key *model.APIKey) error
	GetAPIKeyForUpdate(ctx context.Context, id string) (*model.APIKey, error)
	DeleteAPIKey(ctx context.Context, id string) error
	ListAPIKeys(ctx context.Context, filter APIKeyFilter, page model.Page) ([]*model.APIKey, error)
	CountAPIKeys(ctx context.Context, filter APIKeyFilter) (int, error)

	CreateEvent(ctx context.Context, event *model.Event) error
}

// Repository provides database access methods.
type Repository struct {
	pool *pgxpool.Pool
	db   DBTX
}

var _ Store = (*Repository)(nil)

// New creates a new Repository with a connection pool.
func New(ctx context.Context, databaseURL string) (*Repository, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pool settings
	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{pool: pool, db: pool}, nil
}

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back on error, panic or context cancellation.
func (r *Repository) WithTx(ctx context.Context, fn func(Store) error) error {
	if _, inTx := r.db.(pgx.Tx); inTx {
		return fn(r)
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&Repository{pool: r.pool, db: tx})
	})
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool.
// Use sparingly - prefer adding methods to Repository.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
