package dbmodels

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

type Account struct {
	UserID    uuid.UUID
	Balance   decimal.Decimal
	Currency  string
	UpdatedAt time.Time
}

type Product struct {
	ID           uuid.UUID
	Name         string
	Category     string
	Descriptions pq.StringArray
	Price        decimal.Decimal
	OfferPrice   decimal.NullDecimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type LedgerEntry struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Kind           string
	Amount         decimal.Decimal
	BalanceBefore  decimal.Decimal
	BalanceAfter   decimal.Decimal
	Currency       string
	RelatedOrderID uuid.NullUUID
	Status         string
	Description    string
	PaymentMethod  string
	CreatedAt      time.Time
}

type Order struct {
	ID             uuid.UUID
	Number         string
	UserID         uuid.UUID
	TotalAmount    decimal.Decimal
	Currency       string
	Status         string
	PaymentMethod  string
	ShipStreet     string
	ShipCity       string
	ShipPostalCode string
	ShipCountry    string
	LedgerEntryID  uuid.NullUUID
	RefundEntryID  uuid.NullUUID
	RefundReason   string
	CancelReason   string
	RefundedAt     sql.NullTime
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type OrderItem struct {
	OrderID   uuid.UUID
	Position  int
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

type Review struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	ProductID        uuid.UUID
	OrderID          uuid.UUID
	Rating           int
	Title            string
	Comment          string
	Pros             pq.StringArray
	Cons             pq.StringArray
	HelpfulVotes     int
	VerifiedPurchase bool
	Status           string
	ModeratorNote    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
