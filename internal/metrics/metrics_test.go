package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRecordSettlement(t *testing.T) {
	r := NewRecorder()

	success := testutil.ToFloat64(settlementsTotal.WithLabelValues("deposit", OutcomeSuccess))
	amount := testutil.ToFloat64(settledAmountTotal.WithLabelValues("deposit"))
	rejected := testutil.ToFloat64(settlementsTotal.WithLabelValues("deposit", OutcomeRejected))

	r.RecordSettlement("deposit", OutcomeSuccess, decimal.RequireFromString("12.50"))
	r.RecordSettlement("deposit", OutcomeRejected, decimal.NewFromInt(99))

	assert.InDelta(t, success+1, testutil.ToFloat64(settlementsTotal.WithLabelValues("deposit", OutcomeSuccess)), 1e-9)
	assert.InDelta(t, rejected+1, testutil.ToFloat64(settlementsTotal.WithLabelValues("deposit", OutcomeRejected)), 1e-9)
	assert.InDelta(t, amount+12.5, testutil.ToFloat64(settledAmountTotal.WithLabelValues("deposit")), 1e-9)
}

func TestMiddleware(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/items/{id}", http.MethodGet, "418"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.InDelta(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/items/{id}", http.MethodGet, "418")), 1e-9)
}
