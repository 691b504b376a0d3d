package reviews

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpatryk/BuggyVege/internal/domain/orders"
)

var now = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func TestNewReview(t *testing.T) {
	r, err := NewReview(uuid.New(), uuid.New(), uuid.New(), 4, " Fresh ", " Crunchy and sweet ",
		[]string{"taste", "  ", ""}, nil, now)
	require.NoError(t, err)

	assert.Equal(t, "Fresh", r.Title)
	assert.Equal(t, "Crunchy and sweet", r.Comment)
	assert.Equal(t, []string{"taste"}, r.Pros)
	assert.Empty(t, r.Cons)
	assert.Equal(t, StatusPending, r.Status)
	assert.True(t, r.VerifiedPurchase)
}

func TestNewReviewValidation(t *testing.T) {
	tests := []struct {
		name    string
		rating  int
		title   string
		comment string
		pros    []string
		wantErr error
	}{
		{name: "rating too low", rating: 0, title: "ok", comment: "long enough text", wantErr: ErrRatingInvalid},
		{name: "rating too high", rating: 6, title: "ok", comment: "long enough text", wantErr: ErrRatingInvalid},
		{name: "blank title", rating: 3, title: "   ", comment: "long enough text", wantErr: ErrTitleInvalid},
		{
			name: "title too long", rating: 3, title: strings.Repeat("t", 101), comment: "long enough text",
			wantErr: ErrTitleInvalid,
		},
		{name: "comment too short", rating: 3, title: "ok", comment: "  too short ", wantErr: ErrCommentInvalid},
		{
			name: "comment too long", rating: 3, title: "ok", comment: strings.Repeat("c", 1001),
			wantErr: ErrCommentInvalid,
		},
		{
			name: "long pro", rating: 3, title: "ok", comment: "long enough text",
			pros: []string{strings.Repeat("p", 201)}, wantErr: ErrPointInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReview(uuid.New(), uuid.New(), uuid.New(), tt.rating, tt.title, tt.comment, tt.pros, nil, now)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := NewReview(uuid.New(), uuid.New(), uuid.New(), 5, strings.Repeat("ą", 100), strings.Repeat("ż", 1000),
		nil, nil, now)
	assert.NoError(t, err)
}

func TestApply(t *testing.T) {
	r, err := NewReview(uuid.New(), uuid.New(), uuid.New(), 4, "Fresh", "Crunchy and sweet", nil, nil, now)
	require.NoError(t, err)
	require.NoError(t, r.Moderate(StatusApproved, "", now))

	rating := 2
	cons := []string{"bruised", " "}

	later := now.Add(time.Hour)
	require.NoError(t, r.Apply(Patch{Rating: &rating, Cons: &cons}, later))

	assert.Equal(t, 2, r.Rating)
	assert.Equal(t, "Fresh", r.Title)
	assert.Equal(t, []string{"bruised"}, r.Cons)
	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, later, r.UpdatedAt)

	short := "meh"
	err = r.Apply(Patch{Comment: &short}, later)
	require.ErrorIs(t, err, ErrCommentInvalid)
	assert.Equal(t, "Crunchy and sweet", r.Comment)
}

func TestModerate(t *testing.T) {
	r, err := NewReview(uuid.New(), uuid.New(), uuid.New(), 4, "Fresh", "Crunchy and sweet", nil, nil, now)
	require.NoError(t, err)

	require.NoError(t, r.Moderate(StatusRejected, " spam ", now))
	assert.Equal(t, StatusRejected, r.Status)
	assert.Equal(t, "spam", r.ModeratorNote)

	assert.ErrorIs(t, r.Moderate(StatusPending, "", now), ErrStatusInvalid)
	assert.ErrorIs(t, r.Moderate("published", "", now), ErrStatusInvalid)
}

func TestCheckPurchase(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()

	item, err := orders.NewItem(productID, 1, decimal.NewFromInt(5))
	require.NoError(t, err)

	ord, err := orders.NewOrder("202405010001", userID, []orders.Item{item}, orders.ShippingAddress{},
		orders.PaymentMethodWallet, now)
	require.NoError(t, err)

	ord.Status = orders.OrderStatusShipped
	assert.ErrorIs(t, CheckPurchase(ord, userID, productID), ErrNotPurchased)

	ord.Status = orders.OrderStatusDelivered
	assert.NoError(t, CheckPurchase(ord, userID, productID))
	assert.ErrorIs(t, CheckPurchase(ord, uuid.New(), productID), ErrNotPurchased)
	assert.ErrorIs(t, CheckPurchase(ord, userID, uuid.New()), ErrNotPurchased)
}

func TestNewStats(t *testing.T) {
	stats := NewStats(RatingCounts{0, 0, 1, 0, 2})

	assert.Equal(t, 3, stats.Total)
	assert.InDelta(t, 4.3, stats.Average, 0.001)
	require.Len(t, stats.Distribution, 5)
	assert.Equal(t, StarCount{Stars: 3, Count: 1, Percentage: 33}, stats.Distribution[2])
	assert.Equal(t, StarCount{Stars: 5, Count: 2, Percentage: 67}, stats.Distribution[4])
	assert.Equal(t, StarCount{Stars: 1}, stats.Distribution[0])

	empty := NewStats(RatingCounts{})
	assert.Zero(t, empty.Total)
	assert.Zero(t, empty.Average)
	assert.Len(t, empty.Distribution, 5)
}
