// Package repository provides the PostgreSQL entity store.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/confcentral/confcentral/internal/model"
)

// PostgreSQL error codes the store reacts to.
const (
	pgUniqueViolation      = "23505"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

var (
	// ErrTxConflict indicates a transaction aborted by a concurrent writer.
	// Callers may retry the whole transaction.
	ErrTxConflict = errors.New("transaction conflict")
	// ErrConstraintViolated indicates a write rejected by a CHECK constraint.
	ErrConstraintViolated = errors.New("constraint violated")
)

// Tx is the set of row-locking operations available inside RunInTx.
// Reads lock the returned rows until the transaction ends.
type Tx interface {
	GetProfileForUpdate(ctx context.Context, userID string) (*model.Profile, error)
	GetConferenceForUpdate(ctx context.Context, key model.Key) (*model.Conference, error)
	UpdateProfile(ctx context.Context, profile *model.Profile) error
	UpdateConference(ctx context.Context, conf *model.Conference) error
}

// TxFunc is the body of a transaction.
type TxFunc func(ctx context.Context, tx Tx) error

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides database access methods.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new Repository with a connection pool.
func New(ctx context.Context, databaseURL string) (*Repository, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{pool: pool}, nil
}

// NewWithPool wraps an existing pool. Used by integration tests.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
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
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// RunInTx runs fn in a read-committed transaction. Row locks taken through
// the Tx serialize competing writers; the lock order is profile first, then
// conference. Serialization failures and deadlocks surface as ErrTxConflict.
func (r *Repository) RunInTx(ctx context.Context, fn TxFunc) error {
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{q: tx})
	})
	return mapTxError(err)
}

// pgTx implements Tx on top of an open pgx transaction.
type pgTx struct {
	q querier
}

func (t *pgTx) GetProfileForUpdate(ctx context.Context, userID string) (*model.Profile, error) {
	return getProfile(ctx, t.q, userID, true)
}

func (t *pgTx) GetConferenceForUpdate(ctx context.Context, key model.Key) (*model.Conference, error) {
	return getConference(ctx, t.q, key, true)
}

func (t *pgTx) UpdateProfile(ctx context.Context, profile *model.Profile) error {
	return updateProfile(ctx, t.q, profile)
}

func (t *pgTx) UpdateConference(ctx context.Context, conf *model.Conference) error {
	return updateConference(ctx, t.q, conf)
}

func mapTxError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: %s", ErrTxConflict, pgErr.Message)
		case pgCheckViolation:
			return fmt.Errorf("%w: %s", ErrConstraintViolated, pgErr.ConstraintName)
		}
	}
	return err
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
