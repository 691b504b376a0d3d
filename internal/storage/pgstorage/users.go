package pgstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rzpatryk/BuggyVege/internal/domain/accounts"
	"github.com/rzpatryk/BuggyVege/internal/domain/money"
	"github.com/rzpatryk/BuggyVege/internal/domain/users"
	"github.com/rzpatryk/BuggyVege/internal/storage"
	"github.com/rzpatryk/BuggyVege/internal/storage/dbmodels"
)

const userColumns = `id, email, name, password_hash, role, created_at`

func (s *Storage) CreateUser(ctx context.Context, usr *users.User) error {
	return WithRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
			usr.ID, usr.Email, usr.Name, usr.PasswordHash, string(usr.Role), usr.CreatedAt,
		); err != nil {
			if isUniqueViolation(err) {
				return storage.ErrUserAlreadyExists
			}

			return fmt.Errorf("tx.ExecContext: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (user_id, balance, currency, updated_at) VALUES ($1, 0, $2, $3)`,
			usr.ID, money.Currency, usr.CreatedAt,
		); err != nil {
			return fmt.Errorf("tx.ExecContext: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
}

func (s *Storage) GetUser(ctx context.Context, id uuid.UUID) (*users.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*users.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, users.NormalizeEmail(email))
}

func (s *Storage) getUser(ctx context.Context, query string, arg any) (*users.User, error) {
	dbUser := new(dbmodels.User)

	err := WithRetry(ctx, func() error {
		row := s.db.QueryRowContext(ctx, query, arg)

		if err := row.Scan(
			&dbUser.ID, &dbUser.Email, &dbUser.Name, &dbUser.PasswordHash, &dbUser.Role, &dbUser.CreatedAt,
		); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrUserNotFound
			}

			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &users.User{
		ID:           dbUser.ID,
		Email:        dbUser.Email,
		Name:         dbUser.Name,
		PasswordHash: dbUser.PasswordHash,
		Role:         users.Role(dbUser.Role),
		CreatedAt:    dbUser.CreatedAt,
	}, nil
}

func (s *Storage) GetAccount(ctx context.Context, userID uuid.UUID) (*accounts.Account, error) {
	var acc *accounts.Account

	err := WithRetry(ctx, func() error {
		var err error

		acc, err = scanAccount(s.db.QueryRowContext(ctx,
			`SELECT user_id, balance, currency, updated_at FROM accounts WHERE user_id = $1`, userID))

		return err
	})
	if err != nil {
		return nil, err
	}

	return acc, nil
}

func scanAccount(row *sql.Row) (*accounts.Account, error) {
	dbAccount := new(dbmodels.Account)

	if err := row.Scan(&dbAccount.UserID, &dbAccount.Balance, &dbAccount.Currency, &dbAccount.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrAccountNotFound
		}

		return nil, fmt.Errorf("row.Scan: %w", err)
	}

	acc, err := accounts.NewAccount(dbAccount.UserID, dbAccount.Balance, dbAccount.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("accounts.NewAccount: %w", err)
	}

	return acc, nil
}
