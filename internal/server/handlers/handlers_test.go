package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpatryk/BuggyVege/internal/settlement"
	"github.com/rzpatryk/BuggyVege/internal/storage"
)

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{
			name:     "validation",
			err:      fmt.Errorf("wrapped: %w", &settlement.ValidationError{Field: "items", Reason: "is required"}),
			wantCode: http.StatusBadRequest,
			wantErr:  "validation failed: items: is required",
		},
		{
			name:     "invalid amount",
			err:      fmt.Errorf("store.WithAccountLock: %w", fmt.Errorf("%w: too small", settlement.ErrInvalidAmount)),
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid amount: too small",
		},
		{
			name: "insufficient funds",
			err: fmt.Errorf("store.WithAccountLock: %w", &settlement.InsufficientFundsError{
				Required: decimal.NewFromInt(150), Available: decimal.NewFromInt(70),
			}),
			wantCode: http.StatusPaymentRequired,
			wantErr:  "insufficient funds: need 150.00 PLN, have 70.00 PLN",
		},
		{
			name:     "order not found",
			err:      fmt.Errorf("tx.GetOrder: %w", settlement.ErrOrderNotFound),
			wantCode: http.StatusNotFound,
			wantErr:  "order not found",
		},
		{
			name:     "already refunded",
			err:      fmt.Errorf("store.WithAccountLock: %w", settlement.ErrAlreadyRefunded),
			wantCode: http.StatusConflict,
			wantErr:  "order already refunded",
		},
		{
			name: "invalid refund state",
			err: fmt.Errorf("store.WithAccountLock: %w",
				fmt.Errorf("%w: order is paid", settlement.ErrInvalidRefundState)),
			wantCode: http.StatusConflict,
			wantErr:  settlement.ErrInvalidRefundState.Error() + ": order is paid",
		},
		{
			name:     "unexpected",
			err:      errors.New("connection reset"),
			wantCode: http.StatusInternalServerError,
			wantErr:  "internal server error",
		},
	}

	h := NewHandlers(nil, nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			h.handleServiceError(rec, "op", tt.err)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("content-type"))

			var resp JSONResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.wantErr, resp.Error)
		})
	}
}

func TestStripCallSites(t *testing.T) {
	limit := fmt.Errorf("%w: 10000.01 PLN is above 10000.00 PLN", settlement.ErrAmountExceedsLimit)

	assert.Equal(t, limit.Error(), stripCallSites(fmt.Errorf("engine.Deposit: %w", limit)).Error())
	assert.Equal(t, "plain", stripCallSites(errors.New("plain")).Error())
}

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/orders?page=2&limit=x", nil)

	page, err := queryInt(r, "page")
	require.NoError(t, err)
	assert.Equal(t, 2, page)

	_, err = queryInt(r, "limit")
	assert.Error(t, err)

	missing, err := queryInt(r, "type")
	require.NoError(t, err)
	assert.Zero(t, missing)
}

func TestHandleStorageError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{name: "product", err: fmt.Errorf("tx: %w", storage.ErrProductNotFound), wantCode: http.StatusNotFound, wantErr: "product not found"},
		{name: "order", err: storage.ErrOrderNotFound, wantCode: http.StatusNotFound, wantErr: "order not found"},
		{name: "review", err: storage.ErrReviewNotFound, wantCode: http.StatusNotFound, wantErr: "review not found"},
		{name: "duplicate review", err: storage.ErrReviewExists, wantCode: http.StatusConflict, wantErr: "product already reviewed"},
		{name: "unexpected", err: errors.New("connection reset"), wantCode: http.StatusInternalServerError},
	}

	h := NewHandlers(nil, nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			h.handleStorageError(rec, "op", tt.err)

			assert.Equal(t, tt.wantCode, rec.Code)

			if tt.wantErr == "" {
				return
			}

			var resp JSONResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.wantErr, resp.Error)
		})
	}
}

func TestListingPage(t *testing.T) {
	h := NewHandlers(nil, nil)

	rec := httptest.NewRecorder()
	page, limit, ok := h.listingPage(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	require.True(t, ok)
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, limit)

	rec = httptest.NewRecorder()
	page, limit, ok = h.listingPage(rec, httptest.NewRequest(http.MethodGet, "/api/products?page=3&limit=100", nil))
	require.True(t, ok)
	assert.Equal(t, 3, page)
	assert.Equal(t, 100, limit)

	for _, query := range []string{"limit=101", "page=-1", "limit=x"} {
		rec = httptest.NewRecorder()
		_, _, ok = h.listingPage(rec, httptest.NewRequest(http.MethodGet, "/api/products?"+query, nil))
		assert.False(t, ok, query)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}
