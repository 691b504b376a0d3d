// Package reviews holds product reviews written by buyers of delivered orders.
package reviews

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/rzpatryk/BuggyVege/internal/domain/orders"
)

const (
	MinRating        = 1
	MaxRating        = 5
	MaxTitleLength   = 100
	MinCommentLength = 10
	MaxCommentLength = 1000
	MaxPointLength   = 200
)

var (
	ErrRatingInvalid  = errors.New("rating must be an integer from 1 to 5")
	ErrTitleInvalid   = errors.New("title must be 1 to 100 characters")
	ErrCommentInvalid = errors.New("comment must be 10 to 1000 characters")
	ErrPointInvalid   = errors.New("pros and cons must be at most 200 characters each")
	ErrStatusInvalid  = errors.New("moderation status must be approved or rejected")
	ErrNotPurchased   = errors.New("only products from your delivered orders can be reviewed")
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) String() string {
	return string(s)
}

type Review struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	ProductID        uuid.UUID
	OrderID          uuid.UUID
	Rating           int
	Title            string
	Comment          string
	Pros             []string
	Cons             []string
	HelpfulVotes     int
	VerifiedPurchase bool
	Status           Status
	ModeratorNote    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewReview returns a pending review; it is published once approved.
func NewReview(
	userID, productID, orderID uuid.UUID, rating int, title, comment string, pros, cons []string, at time.Time,
) (*Review, error) {
	r := &Review{
		ID:               uuid.New(),
		UserID:           userID,
		ProductID:        productID,
		OrderID:          orderID,
		Rating:           rating,
		Title:            strings.TrimSpace(title),
		Comment:          strings.TrimSpace(comment),
		Pros:             cleanPoints(pros),
		Cons:             cleanPoints(cons),
		VerifiedPurchase: true,
		Status:           StatusPending,
		CreatedAt:        at,
		UpdatedAt:        at,
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Review) Validate() error {
	if r.Rating < MinRating || r.Rating > MaxRating {
		return ErrRatingInvalid
	}

	if n := utf8.RuneCountInString(r.Title); n == 0 || n > MaxTitleLength {
		return ErrTitleInvalid
	}

	if n := utf8.RuneCountInString(r.Comment); n < MinCommentLength || n > MaxCommentLength {
		return ErrCommentInvalid
	}

	for _, p := range append(append([]string{}, r.Pros...), r.Cons...) {
		if utf8.RuneCountInString(p) > MaxPointLength {
			return fmt.Errorf("%w: %q", ErrPointInvalid, p)
		}
	}

	return nil
}

// Patch holds optional review changes; nil fields are left untouched.
type Patch struct {
	Rating  *int
	Title   *string
	Comment *string
	Pros    *[]string
	Cons    *[]string
}

// Apply edits the review and sends it back to moderation.
func (r *Review) Apply(patch Patch, at time.Time) error {
	updated := *r

	if patch.Rating != nil {
		updated.Rating = *patch.Rating
	}

	if patch.Title != nil {
		updated.Title = strings.TrimSpace(*patch.Title)
	}

	if patch.Comment != nil {
		updated.Comment = strings.TrimSpace(*patch.Comment)
	}

	if patch.Pros != nil {
		updated.Pros = cleanPoints(*patch.Pros)
	}

	if patch.Cons != nil {
		updated.Cons = cleanPoints(*patch.Cons)
	}

	if err := updated.Validate(); err != nil {
		return err
	}

	updated.Status = StatusPending
	updated.UpdatedAt = at
	*r = updated

	return nil
}

func (r *Review) Moderate(status Status, note string, at time.Time) error {
	if status != StatusApproved && status != StatusRejected {
		return fmt.Errorf("%w: %q", ErrStatusInvalid, status)
	}

	r.Status = status
	r.ModeratorNote = strings.TrimSpace(note)
	r.UpdatedAt = at

	return nil
}

func (r *Review) Clone() *Review {
	c := *r
	c.Pros = append([]string(nil), r.Pros...)
	c.Cons = append([]string(nil), r.Cons...)

	return &c
}

// CheckPurchase verifies that order is userID's delivered order containing productID.
func CheckPurchase(order *orders.Order, userID, productID uuid.UUID) error {
	if order.UserID != userID || order.Status != orders.OrderStatusDelivered {
		return ErrNotPurchased
	}

	for _, item := range order.Items {
		if item.ProductID == productID {
			return nil
		}
	}

	return ErrNotPurchased
}

func cleanPoints(points []string) []string {
	cleaned := make([]string, 0, len(points))

	for _, p := range points {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}

	return cleaned
}

// RatingCounts holds the number of approved reviews per star, index 0 is one star.
type RatingCounts [MaxRating]int

type StarCount struct {
	Stars      int
	Count      int
	Percentage int
}

type Stats struct {
	Average      float64
	Total        int
	Distribution []StarCount
}

// NewStats summarizes counts; the average is rounded to one decimal place
// and percentages to whole numbers.
func NewStats(counts RatingCounts) Stats {
	stats := Stats{Distribution: make([]StarCount, 0, MaxRating)}

	sum := 0

	for i, n := range counts {
		stats.Total += n
		sum += (i + 1) * n
	}

	for i, n := range counts {
		sc := StarCount{Stars: i + 1, Count: n}
		if stats.Total > 0 {
			sc.Percentage = int(math.Round(float64(n) * 100 / float64(stats.Total)))
		}

		stats.Distribution = append(stats.Distribution, sc)
	}

	if stats.Total > 0 {
		stats.Average = math.Round(float64(sum)/float64(stats.Total)*10) / 10
	}

	return stats
}
