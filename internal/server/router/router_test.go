package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpatryk/BuggyVege/internal/auth"
	"github.com/rzpatryk/BuggyVege/internal/domain/users"
	"github.com/rzpatryk/BuggyVege/internal/server/router"
	"github.com/rzpatryk/BuggyVege/internal/settlement"
	"github.com/rzpatryk/BuggyVege/internal/storage/inmemory"
)

var secret = []byte("test-secret")

type api struct {
	t      *testing.T
	srv    *httptest.Server
	store  *inmemory.Storage
	client *http.Client
}

func newAPI(t *testing.T) *api {
	t.Helper()

	store := inmemory.NewStorage()
	engine := settlement.New(store, store)

	srv := httptest.NewServer(router.NewRouter(store, engine,
		router.WithSecret(secret),
		router.WithAccessLog(false),
		router.WithMetricsRoute(false),
	))
	t.Cleanup(srv.Close)

	return &api{t: t, srv: srv, store: store, client: srv.Client()}
}

func (a *api) do(method, path, token string, body any) (int, map[string]any) {
	a.t.Helper()

	var reader *bytes.Reader

	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)

		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, a.srv.URL+path, reader)
	require.NoError(a.t, err)

	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.client.Do(req)
	require.NoError(a.t, err)

	defer resp.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)

	return resp.StatusCode, out
}

func (a *api) register(email string) string {
	a.t.Helper()

	code, body := a.do(http.MethodPost, "/api/user/register", "", map[string]string{
		"email": email, "name": "Test User", "password": "password123",
	})
	require.Equal(a.t, http.StatusCreated, code, body)

	return body["token"].(string)
}

func (a *api) admin() string {
	a.t.Helper()

	usr, err := users.CreateUser("admin@example.com", "Admin", "password123")
	require.NoError(a.t, err)

	usr.Role = users.RoleAdmin
	require.NoError(a.t, a.store.CreateUser(context.Background(), usr))

	token, err := auth.NewJWTAuth(secret).CreateJWTString(usr.ID.String(), string(usr.Role))
	require.NoError(a.t, err)

	return token
}

func (a *api) product(adminToken, price string) string {
	a.t.Helper()

	code, body := a.do(http.MethodPost, "/api/products", adminToken, map[string]any{
		"name": "Tomatoes", "category": "vegetables", "price": price,
	})
	require.Equal(a.t, http.StatusCreated, code, body)

	return body["id"].(string)
}

func purchaseBody(productID string, qty int) map[string]any {
	return map[string]any{
		"items": []map[string]any{{"productId": productID, "quantity": qty}},
		"shippingAddress": map[string]string{
			"street": "Dluga 5", "city": "Gdansk", "postalCode": "80-001", "country": "PL",
		},
	}
}

func TestPing(t *testing.T) {
	a := newAPI(t)

	code, body := a.do(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["message"])
}

func TestUserRegisterAndLogin(t *testing.T) {
	a := newAPI(t)

	a.register("Jan@Example.com")

	code, _ := a.do(http.MethodPost, "/api/user/register", "", map[string]string{
		"email": "jan@example.com", "name": "Jan", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = a.do(http.MethodPost, "/api/user/register", "", map[string]string{
		"email": "short@example.com", "name": "Jan", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.do(http.MethodPost, "/api/user/register", "", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := a.do(http.MethodPost, "/api/user/login", "", map[string]string{
		"email": "jan@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body["token"])

	code, _ = a.do(http.MethodPost, "/api/user/login", "", map[string]string{
		"email": "jan@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = a.do(http.MethodPost, "/api/user/login", "", map[string]string{
		"email": "nobody@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestWalletRequiresToken(t *testing.T) {
	a := newAPI(t)

	code, _ := a.do(http.MethodGet, "/api/wallet/balance", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = a.do(http.MethodGet, "/api/wallet/balance", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestDeposit(t *testing.T) {
	a := newAPI(t)
	token := a.register("dep@example.com")

	code, body := a.do(http.MethodPost, "/api/wallet/deposit", token, map[string]any{
		"amount": "100", "paymentMethod": "card",
	})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "100.00", body["newBalance"])

	tx := body["transaction"].(map[string]any)
	assert.Equal(t, "deposit", tx["type"])
	assert.Equal(t, "0.00", tx["balanceBefore"])
	assert.Equal(t, "100.00", tx["balanceAfter"])
	assert.Equal(t, "PLN", tx["currency"])

	for _, amount := range []string{"0", "-5", "10.001", "10000.01"} {
		code, body = a.do(http.MethodPost, "/api/wallet/deposit", token, map[string]any{"amount": amount})
		assert.Equal(t, http.StatusBadRequest, code, amount)
		assert.NotEmpty(t, body["error"])
	}

	code, body = a.do(http.MethodGet, "/api/wallet/balance", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "100.00", body["balance"])
	assert.Equal(t, "PLN", body["currency"])
}

func TestProductsAdminOnly(t *testing.T) {
	a := newAPI(t)
	token := a.register("buyer@example.com")
	adminToken := a.admin()

	code, _ := a.do(http.MethodPost, "/api/products", token, map[string]any{"name": "Kale", "price": "3"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = a.do(http.MethodPost, "/api/products", adminToken, map[string]any{"name": "Kale", "price": "0"})
	assert.Equal(t, http.StatusBadRequest, code)

	id := a.product(adminToken, "12.00")

	code, body := a.do(http.MethodPatch, "/api/products/"+id, adminToken, map[string]any{"offerPrice": "9.99"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "9.99", body["offerPrice"])
	assert.Equal(t, "9.99", body["unitPrice"])

	code, body = a.do(http.MethodPatch, "/api/products/"+id, adminToken, `{"offerPrice": null}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Nil(t, body["offerPrice"])
	assert.Equal(t, "12.00", body["unitPrice"])

	code, body = a.do(http.MethodGet, "/api/products/"+id, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Tomatoes", body["name"])

	code, _ = a.do(http.MethodGet, "/api/products/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = a.do(http.MethodGet, "/api/products?category=VEGETABLES&limit=5", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["products"], 1)

	code, _ = a.do(http.MethodGet, "/api/products?limit=500", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPurchaseInsufficientFunds(t *testing.T) {
	a := newAPI(t)
	token := a.register("poor@example.com")
	productID := a.product(a.admin(), "75")

	a.do(http.MethodPost, "/api/wallet/deposit", token, map[string]any{"amount": "70"})

	code, body := a.do(http.MethodPost, "/api/wallet/purchase", token, purchaseBody(productID, 2))
	require.Equal(t, http.StatusPaymentRequired, code)

	details := body["details"].(map[string]any)
	assert.Equal(t, "150.00", details["required"])
	assert.Equal(t, "70.00", details["available"])

	code, body = a.do(http.MethodGet, "/api/wallet/balance", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "70.00", body["balance"])
}

func TestPurchaseValidation(t *testing.T) {
	a := newAPI(t)
	token := a.register("val@example.com")
	productID := a.product(a.admin(), "5")

	req := purchaseBody(productID, 1)
	req["shippingAddress"] = map[string]string{"street": "Dluga 5"}

	code, body := a.do(http.MethodPost, "/api/wallet/purchase", token, req)
	require.Equal(t, http.StatusBadRequest, code)
	assert.True(t, strings.HasPrefix(body["details"].(map[string]any)["field"].(string), "shippingAddress."))

	code, _ = a.do(http.MethodPost, "/api/wallet/purchase", token, purchaseBody("00000000-0000-0000-0000-000000000001", 1))
	assert.Equal(t, http.StatusNotFound, code)
}

func TestOrderLifecycle(t *testing.T) {
	a := newAPI(t)
	token := a.register("life@example.com")
	adminToken := a.admin()
	productID := a.product(adminToken, "40")

	a.do(http.MethodPost, "/api/wallet/deposit", token, map[string]any{"amount": "100"})

	code, body := a.do(http.MethodPost, "/api/wallet/purchase", token, purchaseBody(productID, 1))
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "60.00", body["newBalance"])

	order := body["order"].(map[string]any)
	orderID := order["id"].(string)
	assert.Equal(t, "paid", order["status"])
	assert.Len(t, order["orderNumber"], 12)

	code, _ = a.do(http.MethodPost, "/api/wallet/refund", token, map[string]any{"orderId": orderID, "reason": "early"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = a.do(http.MethodPatch, "/api/admin/orders/"+orderID+"/status", token, map[string]string{"status": "processing"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = a.do(http.MethodPatch, "/api/admin/orders/"+orderID+"/status", adminToken, map[string]string{"status": "delivered"})
	assert.Equal(t, http.StatusConflict, code)

	for _, st := range []string{"processing", "shipped", "delivered"} {
		code, body = a.do(http.MethodPatch, "/api/admin/orders/"+orderID+"/status", adminToken, map[string]string{"status": st})
		require.Equal(t, http.StatusOK, code, body)
		assert.Equal(t, st, body["status"])
	}

	code, body = a.do(http.MethodPost, "/api/wallet/refund", token, map[string]any{"orderId": orderID, "reason": "bruised"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "40.00", body["refundAmount"])
	assert.Equal(t, "100.00", body["newBalance"])
	assert.Equal(t, "refunded", body["order"].(map[string]any)["status"])

	code, _ = a.do(http.MethodPost, "/api/wallet/refund", token, map[string]any{"orderId": orderID, "reason": "again"})
	assert.Equal(t, http.StatusConflict, code)

	other := a.register("other@example.com")

	code, _ = a.do(http.MethodGet, "/api/orders/"+orderID, other, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = a.do(http.MethodGet, "/api/orders/"+orderID, token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "bruised", body["refundReason"])

	code, body = a.do(http.MethodGet, "/api/wallet/transactions?type=refund", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["transactions"], 1)

	code, body = a.do(http.MethodGet, "/api/wallet/transactions?limit=2&page=1", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["transactions"], 2)

	pagination := body["pagination"].(map[string]any)
	assert.EqualValues(t, 3, pagination["total"])
	assert.EqualValues(t, 2, pagination["pages"])

	code, _ = a.do(http.MethodGet, "/api/wallet/transactions?type=bonus", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = a.do(http.MethodGet, "/api/orders", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["orders"], 1)
}

func TestCancelOrder(t *testing.T) {
	a := newAPI(t)
	token := a.register("cancel@example.com")
	productID := a.product(a.admin(), "30")

	a.do(http.MethodPost, "/api/wallet/deposit", token, map[string]any{"amount": "30"})

	_, body := a.do(http.MethodPost, "/api/wallet/purchase", token, purchaseBody(productID, 1))
	orderID := body["order"].(map[string]any)["id"].(string)

	code, body := a.do(http.MethodPost, "/api/orders/"+orderID+"/cancel", token, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "30.00", body["newBalance"])
	assert.Equal(t, "cancelled", body["order"].(map[string]any)["status"])
	assert.Equal(t, "refund", body["transaction"].(map[string]any)["type"])

	code, _ = a.do(http.MethodPost, "/api/orders/"+orderID+"/cancel", token, map[string]string{"reason": "twice"})
	assert.Equal(t, http.StatusConflict, code)
}

func (a *api) deliveredOrder(token, adminToken, productID string) string {
	a.t.Helper()

	code, body := a.do(http.MethodPost, "/api/wallet/purchase", token, purchaseBody(productID, 1))
	require.Equal(a.t, http.StatusCreated, code, body)

	orderID := body["order"].(map[string]any)["id"].(string)

	for _, st := range []string{"processing", "shipped", "delivered"} {
		code, body = a.do(http.MethodPatch, "/api/admin/orders/"+orderID+"/status", adminToken, map[string]string{"status": st})
		require.Equal(a.t, http.StatusOK, code, body)
	}

	return orderID
}

func reviewBody(productID, orderID string, rating int) map[string]any {
	return map[string]any{
		"productId": productID,
		"orderId":   orderID,
		"rating":    rating,
		"title":     "Very fresh",
		"comment":   "Crunchy, sweet and cheap.",
		"pros":      []string{"taste", " "},
	}
}

func TestReviewLifecycle(t *testing.T) {
	a := newAPI(t)
	token := a.register("reviewer@example.com")
	adminToken := a.admin()
	productID := a.product(adminToken, "10")
	otherProductID := a.product(adminToken, "12")

	a.do(http.MethodPost, "/api/wallet/deposit", token, map[string]any{"amount": "100"})

	code, body := a.do(http.MethodPost, "/api/wallet/purchase", token, purchaseBody(productID, 1))
	require.Equal(t, http.StatusCreated, code, body)
	paidOrderID := body["order"].(map[string]any)["id"].(string)

	code, body = a.do(http.MethodPost, "/api/reviews", token, reviewBody(productID, paidOrderID, 5))
	assert.Equal(t, http.StatusForbidden, code, body)

	orderID := a.deliveredOrder(token, adminToken, productID)

	code, body = a.do(http.MethodGet, "/api/reviews/to-review", token, nil)
	require.Equal(t, http.StatusOK, code, body)
	require.Len(t, body["products"], 1)
	assert.Equal(t, productID, body["products"].([]any)[0].(map[string]any)["productId"])

	code, _ = a.do(http.MethodPost, "/api/reviews", token, reviewBody(otherProductID, orderID, 5))
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = a.do(http.MethodPost, "/api/reviews", token, reviewBody(productID, orderID, 6))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.do(http.MethodPost, "/api/reviews", token,
		`{"productId":"`+productID+`","orderId":"`+orderID+`","rating":4.5,"title":"t","comment":"long enough text"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	stranger := a.register("stranger@example.com")
	code, _ = a.do(http.MethodPost, "/api/reviews", stranger, reviewBody(productID, orderID, 5))
	assert.Equal(t, http.StatusNotFound, code)

	code, body = a.do(http.MethodPost, "/api/reviews", token, reviewBody(productID, orderID, 4))
	require.Equal(t, http.StatusCreated, code, body)
	reviewID := body["id"].(string)
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, []any{"taste"}, body["pros"])
	assert.Equal(t, true, body["verifiedPurchase"])

	code, _ = a.do(http.MethodPost, "/api/reviews", token, reviewBody(productID, orderID, 3))
	assert.Equal(t, http.StatusConflict, code)

	code, body = a.do(http.MethodGet, "/api/reviews/to-review", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["products"])

	// Pending reviews are not public yet.
	code, body = a.do(http.MethodGet, "/api/products/"+productID+"/reviews", "", nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Empty(t, body["reviews"])
	assert.Nil(t, body["stats"])

	code, _ = a.do(http.MethodGet, "/api/admin/reviews/pending", token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body = a.do(http.MethodGet, "/api/admin/reviews/pending", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["reviews"], 1)

	code, _ = a.do(http.MethodPatch, "/api/admin/reviews/"+reviewID+"/moderate", adminToken,
		map[string]string{"status": "published"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = a.do(http.MethodPatch, "/api/admin/reviews/"+reviewID+"/moderate", adminToken,
		map[string]string{"status": "approved", "moderatorNote": "ok"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "approved", body["status"])

	code, body = a.do(http.MethodGet, "/api/products/"+productID+"/reviews", "", nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Len(t, body["reviews"], 1)

	stats := body["stats"].(map[string]any)
	assert.EqualValues(t, 4, stats["averageRating"])
	assert.EqualValues(t, 1, stats["totalReviews"])
	assert.EqualValues(t, 100, stats["distribution"].([]any)[3].(map[string]any)["percentage"])

	code, body = a.do(http.MethodPatch, "/api/reviews/"+reviewID+"/helpful", stranger, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.EqualValues(t, 1, body["helpfulVotes"])

	code, _ = a.do(http.MethodPatch, "/api/reviews/"+reviewID, stranger, map[string]any{"rating": 1})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = a.do(http.MethodPatch, "/api/reviews/"+reviewID, token, map[string]any{"comment": "short"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = a.do(http.MethodPatch, "/api/reviews/"+reviewID, token, map[string]any{"rating": 2})
	require.Equal(t, http.StatusOK, code, body)
	assert.EqualValues(t, 2, body["rating"])
	assert.Equal(t, "pending", body["status"])
	assert.EqualValues(t, 1, body["helpfulVotes"])

	code, body = a.do(http.MethodGet, "/api/reviews/mine", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["reviews"], 1)

	code, _ = a.do(http.MethodDelete, "/api/reviews/"+reviewID, stranger, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = a.do(http.MethodDelete, "/api/reviews/"+reviewID, token, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = a.do(http.MethodDelete, "/api/reviews/"+reviewID, token, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestDeleteProduct(t *testing.T) {
	a := newAPI(t)
	token := a.register("buyer.del@example.com")
	adminToken := a.admin()
	productID := a.product(adminToken, "10")

	a.do(http.MethodPost, "/api/wallet/deposit", token, map[string]any{"amount": "50"})
	orderID := a.deliveredOrder(token, adminToken, productID)

	code, body := a.do(http.MethodPost, "/api/reviews", token, reviewBody(productID, orderID, 5))
	require.Equal(t, http.StatusCreated, code, body)

	code, _ = a.do(http.MethodDelete, "/api/products/"+productID, token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = a.do(http.MethodDelete, "/api/products/"+productID, adminToken, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = a.do(http.MethodDelete, "/api/products/"+productID, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = a.do(http.MethodGet, "/api/products/"+productID+"/reviews", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = a.do(http.MethodGet, "/api/reviews/mine", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["reviews"])

	// The order keeps its items and total.
	code, body = a.do(http.MethodGet, "/api/orders/"+orderID, token, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Len(t, body["items"], 1)

	code, _ = a.do(http.MethodPost, "/api/wallet/purchase", token, purchaseBody(productID, 1))
	assert.Equal(t, http.StatusNotFound, code)
}
