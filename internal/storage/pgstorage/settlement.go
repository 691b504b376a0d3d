package pgstorage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rzpatryk/BuggyVege/internal/domain/accounts"
	"github.com/rzpatryk/BuggyVege/internal/domain/ledger"
	"github.com/rzpatryk/BuggyVege/internal/domain/orders"
	"github.com/rzpatryk/BuggyVege/internal/storage"
)

var _ storage.SettlementTx = (*settlementTx)(nil)

type settlementTx struct {
	db      *sql.DB
	tx      *sql.Tx
	account *accounts.Account
	opening decimal.Decimal
	entries []*ledger.Entry
}

// WithAccountLock runs fn inside a transaction holding the row lock of the
// user's account. The whole unit is retried on connection loss, deadlock or
// serialization failure.
func (s *Storage) WithAccountLock(
	ctx context.Context, userID uuid.UUID, fn func(ctx context.Context, tx storage.SettlementTx) error,
) error {
	return WithRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		acc, err := scanAccount(tx.QueryRowContext(ctx,
			`SELECT user_id, balance, currency, updated_at FROM accounts WHERE user_id = $1 FOR UPDATE`, userID))
		if err != nil {
			return err
		}

		stx := &settlementTx{
			db:      s.db,
			tx:      tx,
			account: acc,
			opening: acc.Balance(),
		}

		if err := fn(ctx, stx); err != nil {
			return err
		}

		if err := storage.CheckLedger(userID, stx.opening, stx.account.Balance(), stx.entries); err != nil {
			return fmt.Errorf("storage.CheckLedger: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
}

// Account returns a copy; changes count only once passed to SaveAccount.
func (stx *settlementTx) Account() *accounts.Account {
	return stx.account.Clone()
}

func (stx *settlementTx) SaveAccount(ctx context.Context, acc *accounts.Account) error {
	if acc.UserID() != stx.account.UserID() {
		return storage.ErrForeignAccount
	}

	if _, err := stx.tx.ExecContext(ctx,
		`UPDATE accounts SET balance = $1, updated_at = $2 WHERE user_id = $3`,
		acc.Balance(), acc.UpdatedAt(), acc.UserID(),
	); err != nil {
		return fmt.Errorf("tx.ExecContext: %w", err)
	}

	stx.account = acc

	return nil
}

func (stx *settlementTx) AppendEntry(ctx context.Context, entry *ledger.Entry) error {
	if err := insertEntry(ctx, stx.tx, entry); err != nil {
		return err
	}

	stx.entries = append(stx.entries, entry)

	return nil
}

// NextOrderSequence allocates outside the unit's transaction so concurrent
// purchases of different accounts do not queue on the counter row. Numbers
// of a rolled back unit are skipped, never reused.
func (stx *settlementTx) NextOrderSequence(ctx context.Context, day time.Time) (int, error) {
	var seq int

	row := stx.db.QueryRowContext(ctx,
		`INSERT INTO order_sequences (day, last_value) VALUES ($1, 1)`+
			` ON CONFLICT (day) DO UPDATE SET last_value = order_sequences.last_value + 1 RETURNING last_value`,
		orders.Day(day),
	)
	if err := row.Scan(&seq); err != nil {
		return 0, fmt.Errorf("db.QueryRowContext: %w", err)
	}

	return seq, nil
}

func (stx *settlementTx) CreateOrder(ctx context.Context, order *orders.Order) error {
	if order.UserID != stx.account.UserID() {
		return storage.ErrForeignAccount
	}

	return insertOrder(ctx, stx.tx, order)
}

func (stx *settlementTx) GetOrder(ctx context.Context, id uuid.UUID) (*orders.Order, error) {
	return selectOrder(ctx, stx.tx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2 FOR UPDATE`,
		id, stx.account.UserID(),
	)
}

func (stx *settlementTx) UpdateOrder(ctx context.Context, order *orders.Order) error {
	if order.UserID != stx.account.UserID() {
		return storage.ErrOrderNotFound
	}

	return updateOrder(ctx, stx.tx, order)
}
