package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rzpatryk/BuggyVege/internal/domain/accounts"
	"github.com/rzpatryk/BuggyVege/internal/domain/ledger"
	"github.com/rzpatryk/BuggyVege/internal/domain/orders"
	"github.com/rzpatryk/BuggyVege/internal/domain/products"
	"github.com/rzpatryk/BuggyVege/internal/domain/reviews"
	"github.com/rzpatryk/BuggyVege/internal/domain/users"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrAccountNotFound    = errors.New("account not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderAlreadyExists = errors.New("order already exists")
	ErrLedgerInconsistent = errors.New("ledger entries do not match balance change")
	ErrForeignAccount     = errors.New("record belongs to another account")
	ErrReviewNotFound     = errors.New("review not found")
	ErrReviewExists       = errors.New("product already reviewed by user")
)

// Page selects a window of a newest-first listing.
type Page struct {
	Number int
	Size   int
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

type UserStorage interface {
	// CreateUser stores the user together with an empty account.
	CreateUser(ctx context.Context, usr *users.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*users.User, error)
	GetUserByEmail(ctx context.Context, email string) (*users.User, error)
}

type ProductStorage interface {
	CreateProduct(ctx context.Context, product *products.Product) error
	UpdateProduct(ctx context.Context, product *products.Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*products.Product, error)
	ListProducts(ctx context.Context, category string, page Page) ([]*products.Product, int, error)
	// DeleteProduct removes the product and its reviews. Order items keep
	// their copy of the product id and price.
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type AccountStorage interface {
	GetAccount(ctx context.Context, userID uuid.UUID) (*accounts.Account, error)
}

type LedgerStorage interface {
	// ListEntries returns the user's entries newest first; an empty kind matches all.
	ListEntries(ctx context.Context, userID uuid.UUID, kind ledger.Kind, page Page) ([]*ledger.Entry, int, error)
}

type OrderStorage interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*orders.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID, page Page) ([]*orders.Order, int, error)
	GetOrdersByStatus(ctx context.Context, statuses ...orders.OrderStatus) ([]*orders.Order, error)
	// GetUserOrdersByStatus returns the user's orders newest first.
	GetUserOrdersByStatus(ctx context.Context, userID uuid.UUID, statuses ...orders.OrderStatus) ([]*orders.Order, error)
}

type ReviewStorage interface {
	// CreateReview fails with ErrReviewExists when the user already reviewed the product.
	CreateReview(ctx context.Context, review *reviews.Review) error
	GetReview(ctx context.Context, id uuid.UUID) (*reviews.Review, error)
	UpdateReview(ctx context.Context, review *reviews.Review) error
	DeleteReview(ctx context.Context, id uuid.UUID) error
	// AddHelpfulVote increments the vote counter atomically.
	AddHelpfulVote(ctx context.Context, id uuid.UUID) (*reviews.Review, error)
	ListProductReviews(ctx context.Context, productID uuid.UUID, status reviews.Status, page Page) ([]*reviews.Review, int, error)
	ListUserReviews(ctx context.Context, userID uuid.UUID, page Page) ([]*reviews.Review, int, error)
	ListReviewsByStatus(ctx context.Context, status reviews.Status, page Page) ([]*reviews.Review, int, error)
	// RatingCounts counts the product's approved reviews per star.
	RatingCounts(ctx context.Context, productID uuid.UUID) (reviews.RatingCounts, error)
	ReviewedProductIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// SettlementTx is the view of storage inside one account-scoped atomic unit.
// Every write is discarded unless the unit function returns nil.
type SettlementTx interface {
	// Account returns the locked account of the unit.
	Account() *accounts.Account
	SaveAccount(ctx context.Context, acc *accounts.Account) error
	AppendEntry(ctx context.Context, entry *ledger.Entry) error
	NextOrderSequence(ctx context.Context, day time.Time) (int, error)
	CreateOrder(ctx context.Context, order *orders.Order) error
	// GetOrder returns an order owned by the account's user.
	GetOrder(ctx context.Context, id uuid.UUID) (*orders.Order, error)
	UpdateOrder(ctx context.Context, order *orders.Order) error
}

// Settler runs fn with exclusive access to the account of userID.
type Settler interface {
	WithAccountLock(ctx context.Context, userID uuid.UUID, fn func(ctx context.Context, tx SettlementTx) error) error
}

type Storage interface {
	UserStorage
	ProductStorage
	AccountStorage
	LedgerStorage
	OrderStorage
	ReviewStorage
	Settler
	Close() error
	Ping(ctx context.Context) error
}

func NewStorage(store Storage) Storage {
	return store
}

// CheckLedger verifies that the entries staged in a unit account for the
// whole change of the balance, each one starting where the previous ended.
func CheckLedger(userID uuid.UUID, opening, closing decimal.Decimal, entries []*ledger.Entry) error {
	current := opening

	for _, e := range entries {
		if e.UserID != userID {
			return ErrForeignAccount
		}

		if !e.BalanceBefore.Equal(current) {
			return fmt.Errorf("%w: entry %s starts at %s, balance is %s",
				ErrLedgerInconsistent, e.ID, e.BalanceBefore, current)
		}

		current = e.BalanceAfter
	}

	if !current.Equal(closing) {
		return fmt.Errorf("%w: entries end at %s, balance is %s", ErrLedgerInconsistent, current, closing)
	}

	return nil
}
