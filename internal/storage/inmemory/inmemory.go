package inmemory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rzpatryk/BuggyVege/internal/domain/accounts"
	"github.com/rzpatryk/BuggyVege/internal/domain/ledger"
	"github.com/rzpatryk/BuggyVege/internal/domain/orders"
	"github.com/rzpatryk/BuggyVege/internal/domain/products"
	"github.com/rzpatryk/BuggyVege/internal/domain/reviews"
	"github.com/rzpatryk/BuggyVege/internal/domain/users"
	"github.com/rzpatryk/BuggyVege/internal/storage"
)

var _ storage.Storage = (*Storage)(nil)

type UserStore struct {
	users   map[uuid.UUID]*users.User
	byEmail map[string]uuid.UUID
	mu      sync.Mutex
}

type AccountStore struct {
	accounts map[uuid.UUID]*accounts.Account
	locks    map[uuid.UUID]*sync.Mutex
	mu       sync.Mutex
}

type ProductStore struct {
	products map[uuid.UUID]*products.Product
	ids      []uuid.UUID
	mu       sync.Mutex
}

type OrderStore struct {
	orders   map[uuid.UUID]*orders.Order
	byUser   map[uuid.UUID][]uuid.UUID
	numbers  map[string]uuid.UUID
	sequence map[string]int
	mu       sync.Mutex
}

type LedgerStore struct {
	entries map[uuid.UUID][]*ledger.Entry
	mu      sync.Mutex
}

type ReviewStore struct {
	reviews map[uuid.UUID]*reviews.Review
	ids     []uuid.UUID
	mu      sync.Mutex
}

type Storage struct {
	UserStore    UserStore
	AccountStore AccountStore
	ProductStore ProductStore
	OrderStore   OrderStore
	LedgerStore  LedgerStore
	ReviewStore  ReviewStore
}

func NewStorage() *Storage {
	return &Storage{
		UserStore: UserStore{
			users:   make(map[uuid.UUID]*users.User),
			byEmail: make(map[string]uuid.UUID),
		},
		AccountStore: AccountStore{
			accounts: make(map[uuid.UUID]*accounts.Account),
			locks:    make(map[uuid.UUID]*sync.Mutex),
		},
		ProductStore: ProductStore{
			products: make(map[uuid.UUID]*products.Product),
		},
		OrderStore: OrderStore{
			orders:   make(map[uuid.UUID]*orders.Order),
			byUser:   make(map[uuid.UUID][]uuid.UUID),
			numbers:  make(map[string]uuid.UUID),
			sequence: make(map[string]int),
		},
		LedgerStore: LedgerStore{
			entries: make(map[uuid.UUID][]*ledger.Entry),
		},
		ReviewStore: ReviewStore{
			reviews: make(map[uuid.UUID]*reviews.Review),
		},
	}
}

func (s *Storage) Close() error {
	return nil
}

func (s *Storage) Ping(_ context.Context) error {
	return nil
}

func (s *Storage) CreateUser(_ context.Context, usr *users.User) error {
	s.UserStore.mu.Lock()
	defer s.UserStore.mu.Unlock()

	s.AccountStore.mu.Lock()
	defer s.AccountStore.mu.Unlock()

	if _, ok := s.UserStore.byEmail[usr.Email]; ok {
		return storage.ErrUserAlreadyExists
	}

	if _, ok := s.UserStore.users[usr.ID]; ok {
		return storage.ErrUserAlreadyExists
	}

	acc, err := accounts.NewAccount(usr.ID, decimal.Zero, usr.CreatedAt)
	if err != nil {
		return err //nolint:wrapcheck
	}

	u := *usr
	s.UserStore.users[usr.ID] = &u
	s.UserStore.byEmail[usr.Email] = usr.ID
	s.AccountStore.accounts[usr.ID] = acc

	return nil
}

func (s *Storage) GetUser(_ context.Context, id uuid.UUID) (*users.User, error) {
	s.UserStore.mu.Lock()
	defer s.UserStore.mu.Unlock()

	usr, ok := s.UserStore.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}

	u := *usr

	return &u, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*users.User, error) {
	s.UserStore.mu.Lock()
	id, ok := s.UserStore.byEmail[users.NormalizeEmail(email)]
	s.UserStore.mu.Unlock()

	if !ok {
		return nil, storage.ErrUserNotFound
	}

	return s.GetUser(ctx, id)
}

func (s *Storage) GetAccount(_ context.Context, userID uuid.UUID) (*accounts.Account, error) {
	s.AccountStore.mu.Lock()
	defer s.AccountStore.mu.Unlock()

	acc, ok := s.AccountStore.accounts[userID]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}

	return acc.Clone(), nil
}

func (s *Storage) CreateProduct(_ context.Context, product *products.Product) error {
	s.ProductStore.mu.Lock()
	defer s.ProductStore.mu.Unlock()

	p := cloneProduct(product)
	s.ProductStore.products[p.ID] = p
	s.ProductStore.ids = append(s.ProductStore.ids, p.ID)

	return nil
}

func (s *Storage) UpdateProduct(_ context.Context, product *products.Product) error {
	s.ProductStore.mu.Lock()
	defer s.ProductStore.mu.Unlock()

	if _, ok := s.ProductStore.products[product.ID]; !ok {
		return storage.ErrProductNotFound
	}

	s.ProductStore.products[product.ID] = cloneProduct(product)

	return nil
}

func (s *Storage) GetProduct(_ context.Context, id uuid.UUID) (*products.Product, error) {
	s.ProductStore.mu.Lock()
	defer s.ProductStore.mu.Unlock()

	p, ok := s.ProductStore.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}

	return cloneProduct(p), nil
}

func (s *Storage) ListProducts(_ context.Context, category string, page storage.Page) ([]*products.Product, int, error) {
	s.ProductStore.mu.Lock()
	defer s.ProductStore.mu.Unlock()

	matched := make([]*products.Product, 0)

	for i := len(s.ProductStore.ids) - 1; i >= 0; i-- {
		p := s.ProductStore.products[s.ProductStore.ids[i]]
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}

		matched = append(matched, cloneProduct(p))
	}

	return paginate(matched, page), len(matched), nil
}

func (s *Storage) DeleteProduct(_ context.Context, id uuid.UUID) error {
	s.ProductStore.mu.Lock()
	defer s.ProductStore.mu.Unlock()

	if _, ok := s.ProductStore.products[id]; !ok {
		return storage.ErrProductNotFound
	}

	delete(s.ProductStore.products, id)
	s.ProductStore.ids = removeID(s.ProductStore.ids, id)

	s.ReviewStore.mu.Lock()
	defer s.ReviewStore.mu.Unlock()

	for _, reviewID := range append([]uuid.UUID(nil), s.ReviewStore.ids...) {
		if s.ReviewStore.reviews[reviewID].ProductID == id {
			delete(s.ReviewStore.reviews, reviewID)
			s.ReviewStore.ids = removeID(s.ReviewStore.ids, reviewID)
		}
	}

	return nil
}

func (s *Storage) ListEntries(
	_ context.Context, userID uuid.UUID, kind ledger.Kind, page storage.Page,
) ([]*ledger.Entry, int, error) {
	s.LedgerStore.mu.Lock()
	defer s.LedgerStore.mu.Unlock()

	entries := s.LedgerStore.entries[userID]
	matched := make([]*ledger.Entry, 0, len(entries))

	// Entries are appended in commit order, so walking backwards is newest first.
	for i := len(entries) - 1; i >= 0; i-- {
		if kind != "" && entries[i].Kind != kind {
			continue
		}

		e := *entries[i]
		matched = append(matched, &e)
	}

	return paginate(matched, page), len(matched), nil
}

func (s *Storage) GetOrder(_ context.Context, id uuid.UUID) (*orders.Order, error) {
	s.OrderStore.mu.Lock()
	defer s.OrderStore.mu.Unlock()

	ord, ok := s.OrderStore.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}

	return ord.Clone(), nil
}

func (s *Storage) ListOrders(_ context.Context, userID uuid.UUID, page storage.Page) ([]*orders.Order, int, error) {
	s.OrderStore.mu.Lock()
	defer s.OrderStore.mu.Unlock()

	ids := s.OrderStore.byUser[userID]
	ords := make([]*orders.Order, 0, len(ids))

	for i := len(ids) - 1; i >= 0; i-- {
		ords = append(ords, s.OrderStore.orders[ids[i]].Clone())
	}

	return paginate(ords, page), len(ords), nil
}

func (s *Storage) GetOrdersByStatus(_ context.Context, statuses ...orders.OrderStatus) ([]*orders.Order, error) {
	s.OrderStore.mu.Lock()
	defer s.OrderStore.mu.Unlock()

	ords := make([]*orders.Order, 0)

	for _, ord := range s.OrderStore.orders {
		if len(statuses) > 0 && !hasStatus(statuses, ord.Status) {
			continue
		}

		ords = append(ords, ord.Clone())
	}

	sortOrdersByCreatedAt(ords)

	return ords, nil
}

func (s *Storage) GetUserOrdersByStatus(
	_ context.Context, userID uuid.UUID, statuses ...orders.OrderStatus,
) ([]*orders.Order, error) {
	s.OrderStore.mu.Lock()
	defer s.OrderStore.mu.Unlock()

	ids := s.OrderStore.byUser[userID]
	ords := make([]*orders.Order, 0, len(ids))

	for i := len(ids) - 1; i >= 0; i-- {
		ord := s.OrderStore.orders[ids[i]]
		if len(statuses) > 0 && !hasStatus(statuses, ord.Status) {
			continue
		}

		ords = append(ords, ord.Clone())
	}

	return ords, nil
}

func hasStatus(statuses []orders.OrderStatus, status orders.OrderStatus) bool {
	for _, st := range statuses {
		if st == status {
			return true
		}
	}

	return false
}

func paginate[T any](items []T, page storage.Page) []T {
	offset := page.Offset()
	if offset < 0 || offset >= len(items) {
		return []T{}
	}

	end := offset + page.Size
	if end > len(items) {
		end = len(items)
	}

	return items[offset:end]
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}

	return ids
}

func cloneProduct(p *products.Product) *products.Product {
	c := *p
	c.Descriptions = append([]string(nil), p.Descriptions...)

	return &c
}

func dayKey(day time.Time) string {
	return orders.Day(day).Format(time.DateOnly)
}
