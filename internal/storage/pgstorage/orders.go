package pgstorage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/rzpatryk/BuggyVege/internal/domain/orders"
	"github.com/rzpatryk/BuggyVege/internal/storage"
	"github.com/rzpatryk/BuggyVege/internal/storage/dbmodels"
)

const orderColumns = `id, order_number, user_id, total_amount, currency, status, payment_method,` +
	` ship_street, ship_city, ship_postal_code, ship_country, ledger_entry_id, refund_entry_id,` +
	` refund_reason, cancel_reason, refunded_at, created_at, updated_at`

func (s *Storage) GetOrder(ctx context.Context, id uuid.UUID) (*orders.Order, error) {
	var order *orders.Order

	err := WithRetry(ctx, func() error {
		var err error

		order, err = selectOrder(ctx, s.db, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)

		return err
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

func (s *Storage) ListOrders(ctx context.Context, userID uuid.UUID, page storage.Page) ([]*orders.Order, int, error) {
	var (
		ords  []*orders.Order
		total int
	)

	err := WithRetry(ctx, func() error {
		row := s.db.QueryRowContext(ctx, `SELECT count(*) FROM orders WHERE user_id = $1`, userID)
		if err := row.Scan(&total); err != nil {
			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		var err error

		ords, err = selectOrders(ctx, s.db,
			`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, seq DESC LIMIT $2 OFFSET $3`,
			userID, page.Size, page.Offset(),
		)

		return err
	})
	if err != nil {
		return nil, 0, err
	}

	return ords, total, nil
}

func (s *Storage) GetOrdersByStatus(ctx context.Context, statuses ...orders.OrderStatus) ([]*orders.Order, error) {
	var ords []*orders.Order

	err := WithRetry(ctx, func() error {
		query := `SELECT ` + orderColumns + ` FROM orders`
		args := make([]any, 0, 1)

		if len(statuses) > 0 {
			names := make([]string, 0, len(statuses))
			for _, st := range statuses {
				names = append(names, st.String())
			}

			query += ` WHERE status = ANY($1)`
			args = append(args, pq.Array(names))
		}

		query += ` ORDER BY created_at, seq`

		var err error

		ords, err = selectOrders(ctx, s.db, query, args...)

		return err
	})
	if err != nil {
		return nil, err
	}

	return ords, nil
}

func (s *Storage) GetUserOrdersByStatus(
	ctx context.Context, userID uuid.UUID, statuses ...orders.OrderStatus,
) ([]*orders.Order, error) {
	var ords []*orders.Order

	names := make([]string, 0, len(statuses))
	for _, st := range statuses {
		names = append(names, st.String())
	}

	err := WithRetry(ctx, func() error {
		var err error

		ords, err = selectOrders(ctx, s.db,
			`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 AND (cardinality($2::text[]) = 0 OR status = ANY($2))`+
				` ORDER BY created_at DESC, seq DESC`,
			userID, pq.Array(names),
		)

		return err
	})
	if err != nil {
		return nil, err
	}

	return ords, nil
}

func selectOrder(ctx context.Context, q querier, query string, args ...any) (*orders.Order, error) {
	ords, err := selectOrders(ctx, q, query, args...)
	if err != nil {
		return nil, err
	}

	if len(ords) == 0 {
		return nil, storage.ErrOrderNotFound
	}

	return ords[0], nil
}

// selectOrders runs query over the orders table and attaches the items of
// every returned order.
func selectOrders(ctx context.Context, q querier, query string, args ...any) ([]*orders.Order, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("q.QueryContext: %w", err)
	}
	defer rows.Close()

	ords := make([]*orders.Order, 0)
	byID := make(map[uuid.UUID]*orders.Order)
	ids := make([]string, 0)

	for rows.Next() {
		dbOrder := new(dbmodels.Order)

		if err := rows.Scan(
			&dbOrder.ID,
			&dbOrder.Number,
			&dbOrder.UserID,
			&dbOrder.TotalAmount,
			&dbOrder.Currency,
			&dbOrder.Status,
			&dbOrder.PaymentMethod,
			&dbOrder.ShipStreet,
			&dbOrder.ShipCity,
			&dbOrder.ShipPostalCode,
			&dbOrder.ShipCountry,
			&dbOrder.LedgerEntryID,
			&dbOrder.RefundEntryID,
			&dbOrder.RefundReason,
			&dbOrder.CancelReason,
			&dbOrder.RefundedAt,
			&dbOrder.CreatedAt,
			&dbOrder.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}

		ord := toOrder(dbOrder)
		ords = append(ords, ord)
		byID[ord.ID] = ord
		ids = append(ids, ord.ID.String())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	// A transaction runs on one connection, which must be released before the next query.
	rows.Close()

	if len(ords) == 0 {
		return ords, nil
	}

	itemRows, err := q.QueryContext(ctx,
		`SELECT order_id, position, product_id, quantity, unit_price, line_total FROM order_items`+
			` WHERE order_id = ANY($1) ORDER BY order_id, position`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("q.QueryContext: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		dbItem := new(dbmodels.OrderItem)

		if err := itemRows.Scan(
			&dbItem.OrderID, &dbItem.Position, &dbItem.ProductID, &dbItem.Quantity, &dbItem.UnitPrice, &dbItem.LineTotal,
		); err != nil {
			return nil, fmt.Errorf("itemRows.Scan: %w", err)
		}

		if ord, ok := byID[dbItem.OrderID]; ok {
			ord.Items = append(ord.Items, orders.Item{
				ProductID: dbItem.ProductID,
				Quantity:  dbItem.Quantity,
				UnitPrice: dbItem.UnitPrice,
				LineTotal: dbItem.LineTotal,
			})
		}
	}

	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("itemRows.Err: %w", err)
	}

	return ords, nil
}

func insertOrder(ctx context.Context, q querier, o *orders.Order) error {
	if _, err := q.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`) VALUES`+
			` ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		o.ID, o.Number, o.UserID, o.TotalAmount, o.Currency, o.Status.String(), string(o.PaymentMethod),
		o.ShippingAddress.Street, o.ShippingAddress.City, o.ShippingAddress.PostalCode, o.ShippingAddress.Country,
		nullUUID(o.LedgerEntryID), nullUUID(o.RefundEntryID), o.RefundReason, o.CancelReason,
		nullTime(o.RefundedAt), o.CreatedAt, o.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return storage.ErrOrderAlreadyExists
		}

		return fmt.Errorf("q.ExecContext: %w", err)
	}

	for i, item := range o.Items {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO order_items (order_id, position, product_id, quantity, unit_price, line_total)`+
				` VALUES ($1, $2, $3, $4, $5, $6)`,
			o.ID, i, item.ProductID, item.Quantity, item.UnitPrice, item.LineTotal,
		); err != nil {
			return fmt.Errorf("q.ExecContext: %w", err)
		}
	}

	return nil
}

func updateOrder(ctx context.Context, q querier, o *orders.Order) error {
	res, err := q.ExecContext(ctx,
		`UPDATE orders SET status = $3, ledger_entry_id = $4, refund_entry_id = $5, refund_reason = $6,`+
			` cancel_reason = $7, refunded_at = $8, updated_at = $9 WHERE id = $1 AND user_id = $2`,
		o.ID, o.UserID, o.Status.String(), nullUUID(o.LedgerEntryID), nullUUID(o.RefundEntryID),
		o.RefundReason, o.CancelReason, nullTime(o.RefundedAt), o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("q.ExecContext: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("res.RowsAffected: %w", err)
	}

	if n == 0 {
		return storage.ErrOrderNotFound
	}

	return nil
}

func toOrder(dbOrder *dbmodels.Order) *orders.Order {
	ord := &orders.Order{
		ID:            dbOrder.ID,
		Number:        dbOrder.Number,
		UserID:        dbOrder.UserID,
		Items:         make([]orders.Item, 0),
		TotalAmount:   dbOrder.TotalAmount,
		Currency:      dbOrder.Currency,
		Status:        orders.OrderStatus(dbOrder.Status),
		PaymentMethod: orders.PaymentMethod(dbOrder.PaymentMethod),
		ShippingAddress: orders.ShippingAddress{
			Street:     dbOrder.ShipStreet,
			City:       dbOrder.ShipCity,
			PostalCode: dbOrder.ShipPostalCode,
			Country:    dbOrder.ShipCountry,
		},
		LedgerEntryID: uuidPtr(dbOrder.LedgerEntryID),
		RefundEntryID: uuidPtr(dbOrder.RefundEntryID),
		RefundReason:  dbOrder.RefundReason,
		CancelReason:  dbOrder.CancelReason,
		CreatedAt:     dbOrder.CreatedAt,
		UpdatedAt:     dbOrder.UpdatedAt,
	}

	if dbOrder.RefundedAt.Valid {
		at := dbOrder.RefundedAt.Time
		ord.RefundedAt = &at
	}

	return ord
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: *t, Valid: true}
}
