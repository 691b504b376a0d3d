package pgstorage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"syscall"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"

	// Postgres driver.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/rzpatryk/BuggyVege/internal/storage"
)

var _ storage.Storage = (*Storage)(nil)

//go:embed migrations/*.sql
var migrations embed.FS

// retryWaitInterval is the step between retry attempts: 1, 3, 5 intervals.
var retryWaitInterval = time.Second

type Storage struct {
	db *sql.DB
}

type Config struct {
	maxOpenConns    int
	maxIdleConns    int
	connMaxIdleTime time.Duration
	connMaxLifetime time.Duration
}

type Option func(s *Config)

func WithMaxOpenConns(conns int) Option {
	return func(c *Config) {
		c.maxOpenConns = conns
	}
}

func WithMaxIdleConns(conns int) Option {
	return func(c *Config) {
		c.maxIdleConns = conns
	}
}

func WithConnMaxIdleTime(idleTime time.Duration) Option {
	return func(c *Config) {
		c.connMaxIdleTime = idleTime
	}
}

func WithConnMaxLifetime(lifetime time.Duration) Option {
	return func(c *Config) {
		c.connMaxLifetime = lifetime
	}
}

func NewStorage(connStr string, opts ...Option) (*Storage, error) {
	cfg := &Config{
		maxOpenConns:    10,
		maxIdleConns:    5,
		connMaxIdleTime: 180 * time.Second,
		connMaxLifetime: 3600 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	db.SetMaxOpenConns(cfg.maxOpenConns)
	db.SetMaxIdleConns(cfg.maxIdleConns)
	db.SetConnMaxIdleTime(cfg.connMaxIdleTime)
	db.SetConnMaxLifetime(cfg.connMaxLifetime)

	return New(db), nil
}

// New wraps an already opened database handle.
func New(db *sql.DB) *Storage {
	return &Storage{
		db: db,
	}
}

// Bootstrap applies the embedded schema migrations.
func (s *Storage) Bootstrap(ctx context.Context) error {
	migrationsFS, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("fs.Sub: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, s.db, migrationsFS)
	if err != nil {
		return fmt.Errorf("goose.NewProvider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("provider.Up: %w", err)
	}

	return nil
}

func (s *Storage) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("db.Close: %w", err)
	}

	return nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return WithRetry(ctx, func() error {
		if err := s.db.PingContext(ctx); err != nil {
			return fmt.Errorf("db.PingContext: %w", err)
		}

		return nil
	})
}

// isRetryableError checks if error is retryable.
func isRetryableError(err error) bool {
	// Connection refused error
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Lost connections and serialization failures or deadlocks both
		// leave nothing committed, so the whole unit can run again.
		return pgerrcode.IsConnectionException(pgErr.Code) || pgerrcode.IsTransactionRollback(pgErr.Code)
	}

	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}

// WithRetry retries operations in case of retryable errors.
func WithRetry(ctx context.Context, operation func() error) error {
	retryCount := 3

	var err error

	for i := 0; i < retryCount; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if !isRetryableError(err) {
			return err
		}

		// 1, 3, 5 intervals
		retryWaitTime := time.Duration(i*2+1) * retryWaitInterval

		select {
		case <-ctx.Done():
			return fmt.Errorf("ctx.Done: %w", errors.Join(ctx.Err(), err))
		case <-time.After(retryWaitTime):
		}
	}

	return fmt.Errorf("retry attempts exceeded: %w", err)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
