package pgstorage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/rzpatryk/BuggyVege/internal/domain/reviews"
	"github.com/rzpatryk/BuggyVege/internal/storage"
	"github.com/rzpatryk/BuggyVege/internal/storage/dbmodels"
)

const reviewColumns = `id, user_id, product_id, order_id, rating, title, comment, pros, cons, helpful_votes,` +
	` verified_purchase, status, moderator_note, created_at, updated_at`

func (s *Storage) CreateReview(ctx context.Context, r *reviews.Review) error {
	return WithRetry(ctx, func() error {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO reviews (`+reviewColumns+`)`+
				` VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			r.ID, r.UserID, r.ProductID, r.OrderID, r.Rating, r.Title, r.Comment,
			pq.Array(r.Pros), pq.Array(r.Cons), r.HelpfulVotes, r.VerifiedPurchase,
			r.Status.String(), r.ModeratorNote, r.CreatedAt, r.UpdatedAt,
		); err != nil {
			if isUniqueViolation(err) {
				return storage.ErrReviewExists
			}

			if isForeignKeyViolation(err) {
				return storage.ErrProductNotFound
			}

			return fmt.Errorf("db.ExecContext: %w", err)
		}

		return nil
	})
}

func (s *Storage) GetReview(ctx context.Context, id uuid.UUID) (*reviews.Review, error) {
	var review *reviews.Review

	err := WithRetry(ctx, func() error {
		list, err := s.selectReviews(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id)
		if err != nil {
			return err
		}

		if len(list) == 0 {
			return storage.ErrReviewNotFound
		}

		review = list[0]

		return nil
	})
	if err != nil {
		return nil, err
	}

	return review, nil
}

// UpdateReview leaves helpful_votes alone; AddHelpfulVote owns it.
func (s *Storage) UpdateReview(ctx context.Context, r *reviews.Review) error {
	return WithRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE reviews SET rating = $2, title = $3, comment = $4, pros = $5, cons = $6, status = $7,`+
				` moderator_note = $8, updated_at = $9 WHERE id = $1`,
			r.ID, r.Rating, r.Title, r.Comment, pq.Array(r.Pros), pq.Array(r.Cons),
			r.Status.String(), r.ModeratorNote, r.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		return expectOneRow(res, storage.ErrReviewNotFound)
	})
}

func (s *Storage) DeleteReview(ctx context.Context, id uuid.UUID) error {
	return WithRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		return expectOneRow(res, storage.ErrReviewNotFound)
	})
}

func (s *Storage) AddHelpfulVote(ctx context.Context, id uuid.UUID) (*reviews.Review, error) {
	var review *reviews.Review

	err := WithRetry(ctx, func() error {
		list, err := s.selectReviews(ctx,
			`UPDATE reviews SET helpful_votes = helpful_votes + 1 WHERE id = $1 RETURNING `+reviewColumns, id)
		if err != nil {
			return err
		}

		if len(list) == 0 {
			return storage.ErrReviewNotFound
		}

		review = list[0]

		return nil
	})
	if err != nil {
		return nil, err
	}

	return review, nil
}

func (s *Storage) ListProductReviews(
	ctx context.Context, productID uuid.UUID, status reviews.Status, page storage.Page,
) ([]*reviews.Review, int, error) {
	return s.listReviews(ctx, `product_id = $1 AND status = $2`, page, productID, status.String())
}

func (s *Storage) ListUserReviews(ctx context.Context, userID uuid.UUID, page storage.Page) ([]*reviews.Review, int, error) {
	return s.listReviews(ctx, `user_id = $1`, page, userID)
}

func (s *Storage) ListReviewsByStatus(
	ctx context.Context, status reviews.Status, page storage.Page,
) ([]*reviews.Review, int, error) {
	return s.listReviews(ctx, `status = $1`, page, status.String())
}

func (s *Storage) RatingCounts(ctx context.Context, productID uuid.UUID) (reviews.RatingCounts, error) {
	var counts reviews.RatingCounts

	err := WithRetry(ctx, func() error {
		counts = reviews.RatingCounts{}

		rows, err := s.db.QueryContext(ctx,
			`SELECT rating, count(*) FROM reviews WHERE product_id = $1 AND status = $2 GROUP BY rating`,
			productID, reviews.StatusApproved.String(),
		)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var rating, n int

			if err := rows.Scan(&rating, &n); err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			if rating >= reviews.MinRating && rating <= reviews.MaxRating {
				counts[rating-1] = n
			}
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows.Err: %w", err)
		}

		return nil
	})
	if err != nil {
		return reviews.RatingCounts{}, err
	}

	return counts, nil
}

func (s *Storage) ReviewedProductIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID

	err := WithRetry(ctx, func() error {
		ids = make([]uuid.UUID, 0)

		rows, err := s.db.QueryContext(ctx, `SELECT product_id FROM reviews WHERE user_id = $1`, userID)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var id uuid.UUID

			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			ids = append(ids, id)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows.Err: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

// listReviews pages through reviews matching where, newest first. The
// LIMIT and OFFSET placeholders follow the where arguments.
func (s *Storage) listReviews(
	ctx context.Context, where string, page storage.Page, args ...any,
) ([]*reviews.Review, int, error) {
	var (
		list  []*reviews.Review
		total int
	)

	err := WithRetry(ctx, func() error {
		row := s.db.QueryRowContext(ctx, `SELECT count(*) FROM reviews WHERE `+where, args...)
		if err := row.Scan(&total); err != nil {
			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		n := len(args)

		var err error

		list, err = s.selectReviews(ctx,
			`SELECT `+reviewColumns+` FROM reviews WHERE `+where+
				fmt.Sprintf(` ORDER BY created_at DESC, seq DESC LIMIT $%d OFFSET $%d`, n+1, n+2),
			append(args, page.Size, page.Offset())...,
		)

		return err
	})
	if err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

func (s *Storage) selectReviews(ctx context.Context, query string, args ...any) ([]*reviews.Review, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db.QueryContext: %w", err)
	}
	defer rows.Close()

	return scanReviews(rows)
}

func scanReviews(rows *sql.Rows) ([]*reviews.Review, error) {
	list := make([]*reviews.Review, 0)

	for rows.Next() {
		dbReview := new(dbmodels.Review)

		if err := rows.Scan(
			&dbReview.ID,
			&dbReview.UserID,
			&dbReview.ProductID,
			&dbReview.OrderID,
			&dbReview.Rating,
			&dbReview.Title,
			&dbReview.Comment,
			&dbReview.Pros,
			&dbReview.Cons,
			&dbReview.HelpfulVotes,
			&dbReview.VerifiedPurchase,
			&dbReview.Status,
			&dbReview.ModeratorNote,
			&dbReview.CreatedAt,
			&dbReview.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}

		list = append(list, &reviews.Review{
			ID:               dbReview.ID,
			UserID:           dbReview.UserID,
			ProductID:        dbReview.ProductID,
			OrderID:          dbReview.OrderID,
			Rating:           dbReview.Rating,
			Title:            dbReview.Title,
			Comment:          dbReview.Comment,
			Pros:             []string(dbReview.Pros),
			Cons:             []string(dbReview.Cons),
			HelpfulVotes:     dbReview.HelpfulVotes,
			VerifiedPurchase: dbReview.VerifiedPurchase,
			Status:           reviews.Status(dbReview.Status),
			ModeratorNote:    dbReview.ModeratorNote,
			CreatedAt:        dbReview.CreatedAt,
			UpdatedAt:        dbReview.UpdatedAt,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return list, nil
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("res.RowsAffected: %w", err)
	}

	if n == 0 {
		return notFound
	}

	return nil
}
