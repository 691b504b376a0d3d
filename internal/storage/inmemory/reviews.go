package inmemory

import (
	"context"

	"github.com/google/uuid"

	"github.com/rzpatryk/BuggyVege/internal/domain/reviews"
	"github.com/rzpatryk/BuggyVege/internal/storage"
)

func (s *Storage) CreateReview(_ context.Context, review *reviews.Review) error {
	// Same lock order as DeleteProduct: products, then reviews.
	s.ProductStore.mu.Lock()
	defer s.ProductStore.mu.Unlock()

	s.ReviewStore.mu.Lock()
	defer s.ReviewStore.mu.Unlock()

	if _, ok := s.ProductStore.products[review.ProductID]; !ok {
		return storage.ErrProductNotFound
	}

	for _, r := range s.ReviewStore.reviews {
		if r.UserID == review.UserID && r.ProductID == review.ProductID {
			return storage.ErrReviewExists
		}
	}

	s.ReviewStore.reviews[review.ID] = review.Clone()
	s.ReviewStore.ids = append(s.ReviewStore.ids, review.ID)

	return nil
}

func (s *Storage) GetReview(_ context.Context, id uuid.UUID) (*reviews.Review, error) {
	s.ReviewStore.mu.Lock()
	defer s.ReviewStore.mu.Unlock()

	r, ok := s.ReviewStore.reviews[id]
	if !ok {
		return nil, storage.ErrReviewNotFound
	}

	return r.Clone(), nil
}

func (s *Storage) UpdateReview(_ context.Context, review *reviews.Review) error {
	s.ReviewStore.mu.Lock()
	defer s.ReviewStore.mu.Unlock()

	current, ok := s.ReviewStore.reviews[review.ID]
	if !ok {
		return storage.ErrReviewNotFound
	}

	updated := review.Clone()
	// Votes only change through AddHelpfulVote.
	updated.HelpfulVotes = current.HelpfulVotes
	s.ReviewStore.reviews[review.ID] = updated

	return nil
}

func (s *Storage) DeleteReview(_ context.Context, id uuid.UUID) error {
	s.ReviewStore.mu.Lock()
	defer s.ReviewStore.mu.Unlock()

	if _, ok := s.ReviewStore.reviews[id]; !ok {
		return storage.ErrReviewNotFound
	}

	delete(s.ReviewStore.reviews, id)
	s.ReviewStore.ids = removeID(s.ReviewStore.ids, id)

	return nil
}

func (s *Storage) AddHelpfulVote(_ context.Context, id uuid.UUID) (*reviews.Review, error) {
	s.ReviewStore.mu.Lock()
	defer s.ReviewStore.mu.Unlock()

	r, ok := s.ReviewStore.reviews[id]
	if !ok {
		return nil, storage.ErrReviewNotFound
	}

	r.HelpfulVotes++

	return r.Clone(), nil
}

func (s *Storage) ListProductReviews(
	_ context.Context, productID uuid.UUID, status reviews.Status, page storage.Page,
) ([]*reviews.Review, int, error) {
	matched := s.filterReviews(func(r *reviews.Review) bool {
		return r.ProductID == productID && r.Status == status
	})

	return paginate(matched, page), len(matched), nil
}

func (s *Storage) ListUserReviews(_ context.Context, userID uuid.UUID, page storage.Page) ([]*reviews.Review, int, error) {
	matched := s.filterReviews(func(r *reviews.Review) bool {
		return r.UserID == userID
	})

	return paginate(matched, page), len(matched), nil
}

func (s *Storage) ListReviewsByStatus(
	_ context.Context, status reviews.Status, page storage.Page,
) ([]*reviews.Review, int, error) {
	matched := s.filterReviews(func(r *reviews.Review) bool {
		return r.Status == status
	})

	return paginate(matched, page), len(matched), nil
}

func (s *Storage) RatingCounts(_ context.Context, productID uuid.UUID) (reviews.RatingCounts, error) {
	var counts reviews.RatingCounts

	for _, r := range s.filterReviews(func(r *reviews.Review) bool {
		return r.ProductID == productID && r.Status == reviews.StatusApproved
	}) {
		counts[r.Rating-1]++
	}

	return counts, nil
}

func (s *Storage) ReviewedProductIDs(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)

	for _, r := range s.filterReviews(func(r *reviews.Review) bool {
		return r.UserID == userID
	}) {
		ids = append(ids, r.ProductID)
	}

	return ids, nil
}

// filterReviews returns copies of the matching reviews, newest first.
func (s *Storage) filterReviews(match func(r *reviews.Review) bool) []*reviews.Review {
	s.ReviewStore.mu.Lock()
	defer s.ReviewStore.mu.Unlock()

	matched := make([]*reviews.Review, 0)

	for i := len(s.ReviewStore.ids) - 1; i >= 0; i-- {
		r := s.ReviewStore.reviews[s.ReviewStore.ids[i]]
		if match(r) {
			matched = append(matched, r.Clone())
		}
	}

	return matched
}
