package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rzpatryk/BuggyVege/internal/domain/ledger"
	"github.com/rzpatryk/BuggyVege/internal/domain/money"
	"github.com/rzpatryk/BuggyVege/internal/domain/orders"
	"github.com/rzpatryk/BuggyVege/internal/domain/products"
	"github.com/rzpatryk/BuggyVege/internal/domain/reviews"
)

type UserRegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type UserLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type ProductRequest struct {
	Name         string              `json:"name"`
	Category     string              `json:"category"`
	Descriptions []string            `json:"descriptions"`
	Price        decimal.Decimal     `json:"price"`
	OfferPrice   decimal.NullDecimal `json:"offerPrice"`
}

// ProductPatchRequest leaves absent fields untouched. An explicit null
// offerPrice removes the offer.
type ProductPatchRequest struct {
	Name         *string          `json:"name"`
	Category     *string          `json:"category"`
	Descriptions []string         `json:"descriptions"`
	Price        *decimal.Decimal `json:"price"`
	OfferPrice   json.RawMessage  `json:"offerPrice"`
}

func (r ProductPatchRequest) Patch() (products.Patch, error) {
	patch := products.Patch{
		Name:         r.Name,
		Category:     r.Category,
		Descriptions: r.Descriptions,
		Price:        r.Price,
	}

	if len(r.OfferPrice) > 0 {
		offer := decimal.NullDecimal{}
		if err := json.Unmarshal(r.OfferPrice, &offer); err != nil {
			return products.Patch{}, fmt.Errorf("offerPrice: %w", err)
		}

		patch.OfferPrice = &offer
	}

	return patch, nil
}

type ProductResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Descriptions []string `json:"descriptions"`
	Price        string   `json:"price"`
	OfferPrice   *string  `json:"offerPrice"`
	UnitPrice    string   `json:"unitPrice"`
	CreatedAt    string   `json:"createdAt"`
	UpdatedAt    string   `json:"updatedAt"`
}

func NewProductResponse(p *products.Product) ProductResponse {
	resp := ProductResponse{
		ID:           p.ID.String(),
		Name:         p.Name,
		Category:     p.Category,
		Descriptions: p.Descriptions,
		Price:        money.String(p.Price),
		UnitPrice:    money.String(p.UnitPrice()),
		CreatedAt:    p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    p.UpdatedAt.Format(time.RFC3339),
	}

	if p.OfferPrice.Valid {
		offer := money.String(p.OfferPrice.Decimal)
		resp.OfferPrice = &offer
	}

	return resp
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}

	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

type ProductListResponse struct {
	Products   []ProductResponse `json:"products"`
	Pagination Pagination        `json:"pagination"`
}

type BalanceResponse struct {
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
}

type DepositRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod"`
	Description   string          `json:"description"`
}

type TransactionResponse struct {
	ID             string  `json:"id"`
	Type           string  `json:"type"`
	Amount         string  `json:"amount"`
	BalanceBefore  string  `json:"balanceBefore"`
	BalanceAfter   string  `json:"balanceAfter"`
	Currency       string  `json:"currency"`
	RelatedOrderID *string `json:"relatedOrderId,omitempty"`
	Status         string  `json:"status"`
	Description    string  `json:"description"`
	PaymentMethod  string  `json:"paymentMethod"`
	CreatedAt      string  `json:"createdAt"`
}

func NewTransactionResponse(e *ledger.Entry) TransactionResponse {
	return TransactionResponse{
		ID:             e.ID.String(),
		Type:           string(e.Kind),
		Amount:         money.String(e.Amount),
		BalanceBefore:  money.String(e.BalanceBefore),
		BalanceAfter:   money.String(e.BalanceAfter),
		Currency:       e.Currency,
		RelatedOrderID: uuidString(e.RelatedOrderID),
		Status:         string(e.Status),
		Description:    e.Description,
		PaymentMethod:  e.PaymentMethod,
		CreatedAt:      e.CreatedAt.Format(time.RFC3339),
	}
}

type DepositResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	NewBalance  string              `json:"newBalance"`
}

type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Pagination   Pagination            `json:"pagination"`
}

type OrderItemResponse struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	LineTotal string `json:"lineTotal"`
}

type OrderResponse struct {
	ID              string                 `json:"id"`
	OrderNumber     string                 `json:"orderNumber"`
	Items           []OrderItemResponse    `json:"items"`
	TotalAmount     string                 `json:"totalAmount"`
	Currency        string                 `json:"currency"`
	Status          string                 `json:"status"`
	PaymentMethod   string                 `json:"paymentMethod"`
	ShippingAddress orders.ShippingAddress `json:"shippingAddress"`
	LedgerEntryID   *string                `json:"ledgerEntryId,omitempty"`
	RefundEntryID   *string                `json:"refundEntryId,omitempty"`
	RefundReason    string                 `json:"refundReason,omitempty"`
	CancelReason    string                 `json:"cancelReason,omitempty"`
	RefundedAt      *string                `json:"refundedAt,omitempty"`
	CreatedAt       string                 `json:"createdAt"`
	UpdatedAt       string                 `json:"updatedAt"`
}

func NewOrderResponse(o *orders.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			ProductID: it.ProductID.String(),
			Quantity:  it.Quantity,
			UnitPrice: money.String(it.UnitPrice),
			LineTotal: money.String(it.LineTotal),
		})
	}

	resp := OrderResponse{
		ID:              o.ID.String(),
		OrderNumber:     o.Number,
		Items:           items,
		TotalAmount:     money.String(o.TotalAmount),
		Currency:        o.Currency,
		Status:          o.Status.String(),
		PaymentMethod:   string(o.PaymentMethod),
		ShippingAddress: o.ShippingAddress,
		LedgerEntryID:   uuidString(o.LedgerEntryID),
		RefundEntryID:   uuidString(o.RefundEntryID),
		RefundReason:    o.RefundReason,
		CancelReason:    o.CancelReason,
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       o.UpdatedAt.Format(time.RFC3339),
	}

	if o.RefundedAt != nil {
		at := o.RefundedAt.Format(time.RFC3339)
		resp.RefundedAt = &at
	}

	return resp
}

type PurchaseResponse struct {
	Order       OrderResponse       `json:"order"`
	Transaction TransactionResponse `json:"transaction"`
	NewBalance  string              `json:"newBalance"`
}

type RefundRequest struct {
	OrderID uuid.UUID `json:"orderId"`
	Reason  string    `json:"reason"`
}

type RefundResponse struct {
	Order        OrderResponse       `json:"order"`
	Transaction  TransactionResponse `json:"transaction"`
	RefundAmount string              `json:"refundAmount"`
	NewBalance   string              `json:"newBalance"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type CancelResponse struct {
	Order       OrderResponse        `json:"order"`
	Transaction *TransactionResponse `json:"transaction,omitempty"`
	NewBalance  string               `json:"newBalance"`
}

type OrderListResponse struct {
	Orders     []OrderResponse `json:"orders"`
	Pagination Pagination      `json:"pagination"`
}

type OrderStatusRequest struct {
	Status string `json:"status"`
}

type ReviewRequest struct {
	ProductID uuid.UUID `json:"productId"`
	OrderID   uuid.UUID `json:"orderId"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title"`
	Comment   string    `json:"comment"`
	Pros      []string  `json:"pros"`
	Cons      []string  `json:"cons"`
}

type ReviewPatchRequest struct {
	Rating  *int      `json:"rating"`
	Title   *string   `json:"title"`
	Comment *string   `json:"comment"`
	Pros    *[]string `json:"pros"`
	Cons    *[]string `json:"cons"`
}

func (r ReviewPatchRequest) Patch() reviews.Patch {
	return reviews.Patch{
		Rating:  r.Rating,
		Title:   r.Title,
		Comment: r.Comment,
		Pros:    r.Pros,
		Cons:    r.Cons,
	}
}

type ModerationRequest struct {
	Status        string `json:"status"`
	ModeratorNote string `json:"moderatorNote"`
}

type ReviewResponse struct {
	ID               string   `json:"id"`
	UserID           string   `json:"userId"`
	ProductID        string   `json:"productId"`
	OrderID          string   `json:"orderId"`
	Rating           int      `json:"rating"`
	Title            string   `json:"title"`
	Comment          string   `json:"comment"`
	Pros             []string `json:"pros"`
	Cons             []string `json:"cons"`
	HelpfulVotes     int      `json:"helpfulVotes"`
	VerifiedPurchase bool     `json:"verifiedPurchase"`
	Status           string   `json:"status"`
	ModeratorNote    string   `json:"moderatorNote,omitempty"`
	CreatedAt        string   `json:"createdAt"`
	UpdatedAt        string   `json:"updatedAt"`
}

func NewReviewResponse(r *reviews.Review) ReviewResponse {
	return ReviewResponse{
		ID:               r.ID.String(),
		UserID:           r.UserID.String(),
		ProductID:        r.ProductID.String(),
		OrderID:          r.OrderID.String(),
		Rating:           r.Rating,
		Title:            r.Title,
		Comment:          r.Comment,
		Pros:             nonNil(r.Pros),
		Cons:             nonNil(r.Cons),
		HelpfulVotes:     r.HelpfulVotes,
		VerifiedPurchase: r.VerifiedPurchase,
		Status:           r.Status.String(),
		ModeratorNote:    r.ModeratorNote,
		CreatedAt:        r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        r.UpdatedAt.Format(time.RFC3339),
	}
}

func NewReviewResponses(list []*reviews.Review) []ReviewResponse {
	resp := make([]ReviewResponse, 0, len(list))
	for _, r := range list {
		resp = append(resp, NewReviewResponse(r))
	}

	return resp
}

type StarCountResponse struct {
	Stars      int `json:"stars"`
	Count      int `json:"count"`
	Percentage int `json:"percentage"`
}

type ReviewStatsResponse struct {
	AverageRating float64             `json:"averageRating"`
	TotalReviews  int                 `json:"totalReviews"`
	Distribution  []StarCountResponse `json:"distribution"`
}

// NewReviewStatsResponse returns nil for a product without approved reviews.
func NewReviewStatsResponse(stats reviews.Stats) *ReviewStatsResponse {
	if stats.Total == 0 {
		return nil
	}

	resp := &ReviewStatsResponse{
		AverageRating: stats.Average,
		TotalReviews:  stats.Total,
		Distribution:  make([]StarCountResponse, 0, len(stats.Distribution)),
	}

	for _, sc := range stats.Distribution {
		resp.Distribution = append(resp.Distribution, StarCountResponse(sc))
	}

	return resp
}

type ProductReviewsResponse struct {
	Reviews    []ReviewResponse     `json:"reviews"`
	Stats      *ReviewStatsResponse `json:"stats"`
	Pagination Pagination           `json:"pagination"`
}

type ReviewListResponse struct {
	Reviews    []ReviewResponse `json:"reviews"`
	Pagination Pagination       `json:"pagination"`
}

type ProductToReviewResponse struct {
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	OrderDate   string `json:"orderDate"`
	ProductID   string `json:"productId"`
	ProductName string `json:"productName,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
}

type ProductsToReviewResponse struct {
	Products []ProductToReviewResponse `json:"products"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}

	s := id.String()

	return &s
}
