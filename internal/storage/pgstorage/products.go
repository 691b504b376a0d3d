package pgstorage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/rzpatryk/BuggyVege/internal/domain/products"
	"github.com/rzpatryk/BuggyVege/internal/storage"
	"github.com/rzpatryk/BuggyVege/internal/storage/dbmodels"
)

const productColumns = `id, name, category, descriptions, price, offer_price, created_at, updated_at`

func (s *Storage) CreateProduct(ctx context.Context, p *products.Product) error {
	return WithRetry(ctx, func() error {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO products (`+productColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, p.Name, p.Category, pq.Array(p.Descriptions), p.Price, p.OfferPrice, p.CreatedAt, p.UpdatedAt,
		); err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		return nil
	})
}

func (s *Storage) UpdateProduct(ctx context.Context, p *products.Product) error {
	return WithRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE products SET name = $2, category = $3, descriptions = $4, price = $5, offer_price = $6,`+
				` updated_at = $7 WHERE id = $1`,
			p.ID, p.Name, p.Category, pq.Array(p.Descriptions), p.Price, p.OfferPrice, p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("res.RowsAffected: %w", err)
		}

		if n == 0 {
			return storage.ErrProductNotFound
		}

		return nil
	})
}

// DeleteProduct relies on the reviews foreign key cascading.
func (s *Storage) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return WithRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		return expectOneRow(res, storage.ErrProductNotFound)
	})
}

func (s *Storage) GetProduct(ctx context.Context, id uuid.UUID) (*products.Product, error) {
	var product *products.Product

	err := WithRetry(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		list, err := scanProducts(rows)
		if err != nil {
			return err
		}

		if len(list) == 0 {
			return storage.ErrProductNotFound
		}

		product = list[0]

		return nil
	})
	if err != nil {
		return nil, err
	}

	return product, nil
}

func (s *Storage) ListProducts(ctx context.Context, category string, page storage.Page) ([]*products.Product, int, error) {
	var (
		list  []*products.Product
		total int
	)

	err := WithRetry(ctx, func() error {
		row := s.db.QueryRowContext(ctx,
			`SELECT count(*) FROM products WHERE ($1 = '' OR lower(category) = lower($1))`, category)
		if err := row.Scan(&total); err != nil {
			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		rows, err := s.db.QueryContext(ctx,
			`SELECT `+productColumns+` FROM products WHERE ($1 = '' OR lower(category) = lower($1))`+
				` ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
			category, page.Size, page.Offset(),
		)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		list, err = scanProducts(rows)

		return err
	})
	if err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

func scanProducts(rows *sql.Rows) ([]*products.Product, error) {
	list := make([]*products.Product, 0)

	for rows.Next() {
		dbProduct := new(dbmodels.Product)

		if err := rows.Scan(
			&dbProduct.ID,
			&dbProduct.Name,
			&dbProduct.Category,
			&dbProduct.Descriptions,
			&dbProduct.Price,
			&dbProduct.OfferPrice,
			&dbProduct.CreatedAt,
			&dbProduct.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}

		list = append(list, &products.Product{
			ID:           dbProduct.ID,
			Name:         dbProduct.Name,
			Category:     dbProduct.Category,
			Descriptions: []string(dbProduct.Descriptions),
			Price:        dbProduct.Price,
			OfferPrice:   dbProduct.OfferPrice,
			CreatedAt:    dbProduct.CreatedAt,
			UpdatedAt:    dbProduct.UpdatedAt,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return list, nil
}
