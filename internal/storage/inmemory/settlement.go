package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rzpatryk/BuggyVege/internal/domain/accounts"
	"github.com/rzpatryk/BuggyVege/internal/domain/ledger"
	"github.com/rzpatryk/BuggyVege/internal/domain/orders"
	"github.com/rzpatryk/BuggyVege/internal/storage"
)

var _ storage.SettlementTx = (*settlementTx)(nil)

// settlementTx stages writes of one unit; they reach the stores only on commit.
type settlementTx struct {
	s       *Storage
	account *accounts.Account
	opening decimal.Decimal
	entries []*ledger.Entry
	created []*orders.Order
	updated map[uuid.UUID]*orders.Order
}

func (s *Storage) accountLock(userID uuid.UUID) (*sync.Mutex, error) {
	s.AccountStore.mu.Lock()
	defer s.AccountStore.mu.Unlock()

	if _, ok := s.AccountStore.accounts[userID]; !ok {
		return nil, storage.ErrAccountNotFound
	}

	lock, ok := s.AccountStore.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.AccountStore.locks[userID] = lock
	}

	return lock, nil
}

func (s *Storage) WithAccountLock(
	ctx context.Context, userID uuid.UUID, fn func(ctx context.Context, tx storage.SettlementTx) error,
) error {
	lock, err := s.accountLock(userID)
	if err != nil {
		return err
	}

	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("ctx.Err: %w", err)
	}

	acc, err := s.GetAccount(ctx, userID)
	if err != nil {
		return err
	}

	tx := &settlementTx{
		s:       s,
		account: acc,
		opening: acc.Balance(),
		updated: make(map[uuid.UUID]*orders.Order),
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}

	return tx.commit()
}

// Account returns a copy; changes count only once passed to SaveAccount.
func (tx *settlementTx) Account() *accounts.Account {
	return tx.account.Clone()
}

func (tx *settlementTx) SaveAccount(_ context.Context, acc *accounts.Account) error {
	if acc.UserID() != tx.account.UserID() {
		return storage.ErrForeignAccount
	}

	tx.account = acc

	return nil
}

func (tx *settlementTx) AppendEntry(_ context.Context, entry *ledger.Entry) error {
	e := *entry
	tx.entries = append(tx.entries, &e)

	return nil
}

// NextOrderSequence allocates immediately; numbers of a rolled back unit are
// not reused, which leaves gaps but never duplicates.
func (tx *settlementTx) NextOrderSequence(_ context.Context, day time.Time) (int, error) {
	store := &tx.s.OrderStore

	store.mu.Lock()
	defer store.mu.Unlock()

	key := dayKey(day)
	store.sequence[key]++

	return store.sequence[key], nil
}

func (tx *settlementTx) CreateOrder(_ context.Context, order *orders.Order) error {
	if order.UserID != tx.account.UserID() {
		return storage.ErrForeignAccount
	}

	tx.created = append(tx.created, order.Clone())

	return nil
}

func (tx *settlementTx) GetOrder(ctx context.Context, id uuid.UUID) (*orders.Order, error) {
	if ord, ok := tx.updated[id]; ok {
		return ord.Clone(), nil
	}

	for _, ord := range tx.created {
		if ord.ID == id {
			return ord.Clone(), nil
		}
	}

	ord, err := tx.s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if ord.UserID != tx.account.UserID() {
		return nil, storage.ErrOrderNotFound
	}

	return ord, nil
}

func (tx *settlementTx) UpdateOrder(ctx context.Context, order *orders.Order) error {
	for i, ord := range tx.created {
		if ord.ID == order.ID {
			tx.created[i] = order.Clone()

			return nil
		}
	}

	if _, err := tx.GetOrder(ctx, order.ID); err != nil {
		return err
	}

	tx.updated[order.ID] = order.Clone()

	return nil
}

func (tx *settlementTx) commit() error {
	userID := tx.account.UserID()

	if err := storage.CheckLedger(userID, tx.opening, tx.account.Balance(), tx.entries); err != nil {
		return fmt.Errorf("storage.CheckLedger: %w", err)
	}

	s := tx.s

	s.AccountStore.mu.Lock()
	defer s.AccountStore.mu.Unlock()

	s.OrderStore.mu.Lock()
	defer s.OrderStore.mu.Unlock()

	s.LedgerStore.mu.Lock()
	defer s.LedgerStore.mu.Unlock()

	for _, ord := range tx.created {
		if _, ok := s.OrderStore.orders[ord.ID]; ok {
			return storage.ErrOrderAlreadyExists
		}

		if _, ok := s.OrderStore.numbers[ord.Number]; ok {
			return storage.ErrOrderAlreadyExists
		}
	}

	s.AccountStore.accounts[userID] = tx.account.Clone()

	for _, ord := range tx.created {
		s.OrderStore.orders[ord.ID] = ord
		s.OrderStore.numbers[ord.Number] = ord.ID
		s.OrderStore.byUser[userID] = append(s.OrderStore.byUser[userID], ord.ID)
	}

	for id, ord := range tx.updated {
		s.OrderStore.orders[id] = ord
	}

	s.LedgerStore.entries[userID] = append(s.LedgerStore.entries[userID], tx.entries...)

	return nil
}

func sortOrdersByCreatedAt(ords []*orders.Order) {
	sort.SliceStable(ords, func(i, j int) bool {
		return ords[i].CreatedAt.Before(ords[j].CreatedAt)
	})
}
