//nolint:wrapcheck
package orders

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rzpatryk/BuggyVege/internal/domain/money"
)

var (
	ErrOrderItemsEmpty          = errors.New("order has no items")
	ErrOrderItemQuantityInvalid = errors.New("order item quantity must be greater than zero")
	ErrOrderUserIDEmpty         = errors.New("order user id is empty")
	ErrOrderNumberEmpty         = errors.New("order number is empty")
	ErrOrderStatusInvalid       = errors.New("order status is invalid")
	ErrPaymentMethodInvalid     = errors.New("order payment method is invalid")
	ErrTransitionInvalid        = errors.New("order status transition is invalid")
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

func (s OrderStatus) String() string {
	return string(s)
}

func ParseOrderStatus(status string) (OrderStatus, error) {
	s := OrderStatus(status)
	if _, ok := transitions[s]; !ok {
		return "", fmt.Errorf("%w: %s", ErrOrderStatusInvalid, status)
	}

	return s, nil
}

// transitions lists the statuses reachable from each status in one step.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:       {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:  {OrderStatusRefunded},
	OrderStatusCancelled:  {},
	OrderStatusRefunded:   {},
}

// fulfillmentPath is the forward path an order takes once it is paid.
var fulfillmentPath = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, st := range transitions[s] {
		if st == next {
			return true
		}
	}

	return false
}

// IsTerminal reports whether no transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// StepsTo returns the forward fulfillment steps leading from s to target,
// excluding s. It returns false when target is not ahead of s.
func (s OrderStatus) StepsTo(target OrderStatus) ([]OrderStatus, bool) {
	from, to := -1, -1

	for i, st := range fulfillmentPath {
		if st == s {
			from = i
		}

		if st == target {
			to = i
		}
	}

	if from < 0 || to <= from {
		return nil, false
	}

	steps := make([]OrderStatus, to-from)
	copy(steps, fulfillmentPath[from+1:to+1])

	return steps, true
}

type PaymentMethod string

const (
	PaymentMethodWallet       PaymentMethod = "wallet"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodBLIK         PaymentMethod = "blik"
)

func ParsePaymentMethod(method string) (PaymentMethod, error) {
	switch PaymentMethod(method) {
	case PaymentMethodWallet, PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodBLIK:
		return PaymentMethod(method), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrPaymentMethodInvalid, method)
	}
}

type Item struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// NewItem prices quantity units of a product at unitPrice.
func NewItem(productID uuid.UUID, quantity int, unitPrice decimal.Decimal) (Item, error) {
	if quantity <= 0 {
		return Item{}, ErrOrderItemQuantityInvalid
	}

	return Item{
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		LineTotal: unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}, nil
}

type ShippingAddress struct {
	Street     string `json:"street" validate:"required,notblank"`
	City       string `json:"city" validate:"required,notblank"`
	PostalCode string `json:"postalCode" validate:"required,notblank"`
	Country    string `json:"country" validate:"required,notblank"`
}

type Order struct {
	ID              uuid.UUID
	Number          string
	UserID          uuid.UUID
	Items           []Item
	TotalAmount     decimal.Decimal
	Currency        string
	Status          OrderStatus
	PaymentMethod   PaymentMethod
	ShippingAddress ShippingAddress
	LedgerEntryID   *uuid.UUID
	RefundEntryID   *uuid.UUID
	RefundReason    string
	CancelReason    string
	RefundedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewOrder creates a pending order whose total is the sum of its line totals.
func NewOrder(
	number string,
	userID uuid.UUID,
	items []Item,
	address ShippingAddress,
	method PaymentMethod,
	createdAt time.Time,
) (*Order, error) {
	if number == "" {
		return nil, ErrOrderNumberEmpty
	}

	if userID == uuid.Nil {
		return nil, ErrOrderUserIDEmpty
	}

	if len(items) == 0 {
		return nil, ErrOrderItemsEmpty
	}

	if _, err := ParsePaymentMethod(string(method)); err != nil {
		return nil, err
	}

	total := decimal.Zero

	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, ErrOrderItemQuantityInvalid
		}

		total = total.Add(item.LineTotal)
	}

	return &Order{
		ID:              uuid.New(),
		Number:          number,
		UserID:          userID,
		Items:           append([]Item(nil), items...),
		TotalAmount:     total,
		Currency:        money.Currency,
		Status:          OrderStatusPending,
		PaymentMethod:   method,
		ShippingAddress: address,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}, nil
}

// Transition moves the order to next if the state machine allows it.
func (o *Order) Transition(next OrderStatus, at time.Time) error {
	if !o.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrTransitionInvalid, o.Status, next)
	}

	o.Status = next
	o.UpdatedAt = at

	return nil
}

// MarkRefunded moves a delivered order to refunded and records the refund.
func (o *Order) MarkRefunded(entryID uuid.UUID, reason string, at time.Time) error {
	if err := o.Transition(OrderStatusRefunded, at); err != nil {
		return err
	}

	o.RefundEntryID = &entryID
	o.RefundReason = reason
	o.RefundedAt = &at

	return nil
}

// MarkCancelled cancels the order. entryID is set when the payment was
// credited back to the wallet.
func (o *Order) MarkCancelled(entryID *uuid.UUID, reason string, at time.Time) error {
	if err := o.Transition(OrderStatusCancelled, at); err != nil {
		return err
	}

	o.CancelReason = reason

	if entryID != nil {
		o.RefundEntryID = entryID
		o.RefundedAt = &at
	}

	return nil
}

// IsPaidFromWallet reports whether the order total was debited from the wallet.
func (o *Order) IsPaidFromWallet() bool {
	return o.PaymentMethod == PaymentMethodWallet && o.LedgerEntryID != nil
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = append([]Item(nil), o.Items...)

	if o.LedgerEntryID != nil {
		id := *o.LedgerEntryID
		c.LedgerEntryID = &id
	}

	if o.RefundEntryID != nil {
		id := *o.RefundEntryID
		c.RefundEntryID = &id
	}

	if o.RefundedAt != nil {
		at := *o.RefundedAt
		c.RefundedAt = &at
	}

	return &c
}
