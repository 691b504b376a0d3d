package pgstorage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/rzpatryk/BuggyVege/internal/domain/ledger"
	"github.com/rzpatryk/BuggyVege/internal/storage"
	"github.com/rzpatryk/BuggyVege/internal/storage/dbmodels"
)

const entryColumns = `id, user_id, kind, amount, balance_before, balance_after, currency, related_order_id,` +
	` status, description, payment_method, created_at`

func (s *Storage) ListEntries(
	ctx context.Context, userID uuid.UUID, kind ledger.Kind, page storage.Page,
) ([]*ledger.Entry, int, error) {
	var (
		entries []*ledger.Entry
		total   int
	)

	err := WithRetry(ctx, func() error {
		row := s.db.QueryRowContext(ctx,
			`SELECT count(*) FROM ledger_entries WHERE user_id = $1 AND ($2 = '' OR kind = $2)`,
			userID, string(kind),
		)
		if err := row.Scan(&total); err != nil {
			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		rows, err := s.db.QueryContext(ctx,
			`SELECT `+entryColumns+` FROM ledger_entries WHERE user_id = $1 AND ($2 = '' OR kind = $2)`+
				` ORDER BY created_at DESC, seq DESC LIMIT $3 OFFSET $4`,
			userID, string(kind), page.Size, page.Offset(),
		)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		entries, err = scanEntries(rows)

		return err
	})
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func insertEntry(ctx context.Context, q querier, e *ledger.Entry) error {
	if _, err := q.ExecContext(ctx,
		`INSERT INTO ledger_entries (`+entryColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.UserID, string(e.Kind), e.Amount, e.BalanceBefore, e.BalanceAfter, e.Currency,
		nullUUID(e.RelatedOrderID), string(e.Status), e.Description, e.PaymentMethod, e.CreatedAt,
	); err != nil {
		return fmt.Errorf("q.ExecContext: %w", err)
	}

	return nil
}

func scanEntries(rows *sql.Rows) ([]*ledger.Entry, error) {
	entries := make([]*ledger.Entry, 0)

	for rows.Next() {
		dbEntry := new(dbmodels.LedgerEntry)

		if err := rows.Scan(
			&dbEntry.ID,
			&dbEntry.UserID,
			&dbEntry.Kind,
			&dbEntry.Amount,
			&dbEntry.BalanceBefore,
			&dbEntry.BalanceAfter,
			&dbEntry.Currency,
			&dbEntry.RelatedOrderID,
			&dbEntry.Status,
			&dbEntry.Description,
			&dbEntry.PaymentMethod,
			&dbEntry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}

		entries = append(entries, &ledger.Entry{
			ID:             dbEntry.ID,
			UserID:         dbEntry.UserID,
			Kind:           ledger.Kind(dbEntry.Kind),
			Amount:         dbEntry.Amount,
			BalanceBefore:  dbEntry.BalanceBefore,
			BalanceAfter:   dbEntry.BalanceAfter,
			Currency:       dbEntry.Currency,
			RelatedOrderID: uuidPtr(dbEntry.RelatedOrderID),
			Status:         ledger.Status(dbEntry.Status),
			Description:    dbEntry.Description,
			PaymentMethod:  dbEntry.PaymentMethod,
			CreatedAt:      dbEntry.CreatedAt,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return entries, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}

	return uuid.NullUUID{UUID: *id, Valid: true}
}

func uuidPtr(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}

	v := id.UUID

	return &v
}
