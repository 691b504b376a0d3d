// Package settlement moves money between wallets and orders. Every balance
// change happens inside one account-scoped storage unit together with exactly
// one ledger entry describing it.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rzpatryk/BuggyVege/internal/domain/accounts"
	"github.com/rzpatryk/BuggyVege/internal/domain/ledger"
	"github.com/rzpatryk/BuggyVege/internal/domain/money"
	"github.com/rzpatryk/BuggyVege/internal/domain/orders"
	"github.com/rzpatryk/BuggyVege/internal/domain/products"
	"github.com/rzpatryk/BuggyVege/internal/logger"
	"github.com/rzpatryk/BuggyVege/internal/metrics"
	"github.com/rzpatryk/BuggyVege/internal/storage"
)

const (
	OperationDeposit  = "deposit"
	OperationPurchase = "purchase"
	OperationRefund   = "refund"
	OperationCancel   = "cancel"
)

// Store is the storage the engine settles against.
type Store interface {
	storage.Settler
	storage.AccountStorage
	storage.LedgerStorage
	storage.OrderStorage
}

// Catalog resolves product prices.
type Catalog interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*products.Product, error)
}

// Recorder receives the outcome of every money-moving operation.
type Recorder interface {
	RecordSettlement(operation, outcome string, amount decimal.Decimal)
}

type nopRecorder struct{}

func (nopRecorder) RecordSettlement(string, string, decimal.Decimal) {}

type Engine struct {
	store        Store
	catalog      Catalog
	log          *slog.Logger
	now          func() time.Time
	depositLimit decimal.Decimal
	recorder     Recorder
	validate     *validator.Validate
}

type Option func(e *Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.log = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithDepositLimit(limit decimal.Decimal) Option {
	return func(e *Engine) {
		e.depositLimit = limit
	}
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

func New(store Store, catalog Catalog, opts ...Option) *Engine {
	e := &Engine{
		store:        store,
		catalog:      catalog,
		log:          logger.Nop(),
		now:          func() time.Time { return time.Now().UTC() },
		depositLimit: decimal.NewFromInt(10000),
		recorder:     nopRecorder{},
		validate:     newValidator(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.log = e.log.With(slog.String("module", "settlement"))

	return e
}

// Deposit credits amount to the user's wallet.
func (e *Engine) Deposit(ctx context.Context, userID uuid.UUID, req DepositRequest) (*DepositResult, error) {
	if err := money.ValidatePositive(req.Amount); err != nil {
		e.record(OperationDeposit, ErrInvalidAmount, req.Amount)

		return nil, fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}

	if req.Amount.GreaterThan(e.depositLimit) {
		e.record(OperationDeposit, ErrAmountExceedsLimit, req.Amount)

		return nil, fmt.Errorf("%w: %s is above %s", ErrAmountExceedsLimit, money.Format(req.Amount), money.Format(e.depositLimit))
	}

	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		method = ledger.PaymentMethodUnknown
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "Wallet top-up"
	}

	var result DepositResult

	err := e.store.WithAccountLock(ctx, userID, func(ctx context.Context, tx storage.SettlementTx) error {
		now := e.now()
		acc := tx.Account()

		before, after := acc.Credit(req.Amount, now)

		entry, err := ledger.NewEntry(ledger.Entry{
			UserID:        userID,
			Kind:          ledger.KindDeposit,
			Amount:        req.Amount,
			BalanceBefore: before,
			BalanceAfter:  after,
			Description:   description,
			PaymentMethod: method,
			CreatedAt:     now,
		})
		if err != nil {
			return fmt.Errorf("ledger.NewEntry: %w", err)
		}

		if err := e.settle(ctx, tx, acc, entry); err != nil {
			return err
		}

		result = DepositResult{Entry: entry, NewBalance: after}

		return nil
	})

	e.record(OperationDeposit, err, req.Amount)

	if err != nil {
		return nil, fmt.Errorf("store.WithAccountLock: %w", err)
	}

	e.log.Info("Deposit settled",
		slog.String("user_id", userID.String()),
		slog.String("amount", money.String(req.Amount)),
		slog.String("balance_after", money.String(result.NewBalance)),
		slog.String("entry_id", result.Entry.ID.String()),
	)

	return &result, nil
}

// Purchase creates a paid order for the items and debits its total from the wallet.
func (e *Engine) Purchase(ctx context.Context, userID uuid.UUID, req PurchaseRequest) (*PurchaseResult, error) {
	if err := e.validate.Struct(req); err != nil {
		e.record(OperationPurchase, ErrValidation, decimal.Zero)

		return nil, toValidationError(err)
	}

	items, total, err := e.priceItems(ctx, req.Items)
	if err != nil {
		e.record(OperationPurchase, err, decimal.Zero)

		return nil, err
	}

	var result PurchaseResult

	err = e.store.WithAccountLock(ctx, userID, func(ctx context.Context, tx storage.SettlementTx) error {
		now := e.now()
		acc := tx.Account()

		if acc.Balance().LessThan(total) {
			return &InsufficientFundsError{Required: total, Available: acc.Balance()}
		}

		seq, err := tx.NextOrderSequence(ctx, now)
		if err != nil {
			return fmt.Errorf("tx.NextOrderSequence: %w", err)
		}

		order, err := orders.NewOrder(
			orders.FormatNumber(now, seq), userID, items, req.ShippingAddress, orders.PaymentMethodWallet, now,
		)
		if err != nil {
			return fmt.Errorf("orders.NewOrder: %w", err)
		}

		before, after, err := acc.Debit(total, now)
		if err != nil {
			return &InsufficientFundsError{Required: total, Available: acc.Balance()}
		}

		entry, err := ledger.NewEntry(ledger.Entry{
			UserID:         userID,
			Kind:           ledger.KindPayment,
			Amount:         total,
			BalanceBefore:  before,
			BalanceAfter:   after,
			RelatedOrderID: &order.ID,
			Description:    "Payment for order " + order.Number,
			PaymentMethod:  ledger.PaymentMethodWallet,
			CreatedAt:      now,
		})
		if err != nil {
			return fmt.Errorf("ledger.NewEntry: %w", err)
		}

		order.LedgerEntryID = &entry.ID

		if err := order.Transition(orders.OrderStatusPaid, now); err != nil {
			return fmt.Errorf("order.Transition: %w", err)
		}

		// The order goes first: the entry references it.
		if err := tx.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("tx.CreateOrder: %w", err)
		}

		if err := e.settle(ctx, tx, acc, entry); err != nil {
			return err
		}

		result = PurchaseResult{Order: order, Entry: entry, NewBalance: after}

		return nil
	})

	e.record(OperationPurchase, err, total)

	if err != nil {
		return nil, fmt.Errorf("store.WithAccountLock: %w", err)
	}

	e.log.Info("Purchase settled",
		slog.String("user_id", userID.String()),
		slog.String("order_number", result.Order.Number),
		slog.String("amount", money.String(total)),
		slog.String("balance_after", money.String(result.NewBalance)),
	)

	return &result, nil
}

// Refund returns the total of a delivered wallet order to the wallet.
func (e *Engine) Refund(ctx context.Context, userID, orderID uuid.UUID, reason string) (*RefundResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		e.record(OperationRefund, ErrValidation, decimal.Zero)

		return nil, validationError("reason", "is required")
	}

	var result RefundResult

	err := e.store.WithAccountLock(ctx, userID, func(ctx context.Context, tx storage.SettlementTx) error {
		now := e.now()

		order, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("tx.GetOrder: %w", err)
		}

		if order.Status == orders.OrderStatusRefunded {
			return ErrAlreadyRefunded
		}

		if !order.IsPaidFromWallet() || order.Status != orders.OrderStatusDelivered {
			return fmt.Errorf("%w: order is %s", ErrInvalidRefundState, order.Status)
		}

		acc := tx.Account()
		before, after := acc.Credit(order.TotalAmount, now)

		entry, err := ledger.NewEntry(ledger.Entry{
			UserID:         userID,
			Kind:           ledger.KindRefund,
			Amount:         order.TotalAmount,
			BalanceBefore:  before,
			BalanceAfter:   after,
			RelatedOrderID: &order.ID,
			Description:    "Refund for order " + order.Number + ": " + reason,
			PaymentMethod:  ledger.PaymentMethodWallet,
			CreatedAt:      now,
		})
		if err != nil {
			return fmt.Errorf("ledger.NewEntry: %w", err)
		}

		if err := order.MarkRefunded(entry.ID, reason, now); err != nil {
			return fmt.Errorf("order.MarkRefunded: %w", err)
		}

		if err := tx.UpdateOrder(ctx, order); err != nil {
			return fmt.Errorf("tx.UpdateOrder: %w", err)
		}

		if err := e.settle(ctx, tx, acc, entry); err != nil {
			return err
		}

		result = RefundResult{Order: order, Entry: entry, RefundAmount: order.TotalAmount, NewBalance: after}

		return nil
	})

	e.record(OperationRefund, err, result.RefundAmount)

	if err != nil {
		return nil, fmt.Errorf("store.WithAccountLock: %w", err)
	}

	e.log.Info("Refund settled",
		slog.String("user_id", userID.String()),
		slog.String("order_number", result.Order.Number),
		slog.String("amount", money.String(result.RefundAmount)),
		slog.String("balance_after", money.String(result.NewBalance)),
	)

	return &result, nil
}

// Cancel cancels an order that has not been delivered yet. A wallet payment
// is credited back in the same unit.
func (e *Engine) Cancel(ctx context.Context, userID, orderID uuid.UUID, reason string) (*CancelResult, error) {
	reason = strings.TrimSpace(reason)

	var result CancelResult

	err := e.store.WithAccountLock(ctx, userID, func(ctx context.Context, tx storage.SettlementTx) error {
		// The unit may run again after a retryable failure.
		result = CancelResult{}

		now := e.now()
		acc := tx.Account()

		order, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("tx.GetOrder: %w", err)
		}

		if order.Status == orders.OrderStatusRefunded {
			return ErrAlreadyRefunded
		}

		if !order.Status.CanTransitionTo(orders.OrderStatusCancelled) {
			return fmt.Errorf("%w: order is %s", ErrInvalidCancelState, order.Status)
		}

		result.NewBalance = acc.Balance()

		var entryID *uuid.UUID

		if order.Status != orders.OrderStatusPending && order.IsPaidFromWallet() {
			before, after := acc.Credit(order.TotalAmount, now)

			entry, err := ledger.NewEntry(ledger.Entry{
				UserID:         userID,
				Kind:           ledger.KindRefund,
				Amount:         order.TotalAmount,
				BalanceBefore:  before,
				BalanceAfter:   after,
				RelatedOrderID: &order.ID,
				Description:    "Cancellation of order " + order.Number,
				PaymentMethod:  ledger.PaymentMethodWallet,
				CreatedAt:      now,
			})
			if err != nil {
				return fmt.Errorf("ledger.NewEntry: %w", err)
			}

			entryID = &entry.ID
			result.Entry = entry
			result.NewBalance = after
		}

		if err := order.MarkCancelled(entryID, reason, now); err != nil {
			return fmt.Errorf("order.MarkCancelled: %w", err)
		}

		if err := tx.UpdateOrder(ctx, order); err != nil {
			return fmt.Errorf("tx.UpdateOrder: %w", err)
		}

		if result.Entry != nil {
			if err := e.settle(ctx, tx, acc, result.Entry); err != nil {
				return err
			}
		}

		result.Order = order

		return nil
	})

	amount := decimal.Zero
	if result.Entry != nil {
		amount = result.Entry.Amount
	}

	e.record(OperationCancel, err, amount)

	if err != nil {
		return nil, fmt.Errorf("store.WithAccountLock: %w", err)
	}

	e.log.Info("Order cancelled",
		slog.String("user_id", userID.String()),
		slog.String("order_number", result.Order.Number),
		slog.String("credited", money.String(amount)),
	)

	return &result, nil
}

// AdvanceOrder moves an order one step forward on its fulfillment path. It
// never touches balances; paying, cancelling and refunding have their own
// operations.
func (e *Engine) AdvanceOrder(ctx context.Context, orderID uuid.UUID, next orders.OrderStatus) (*orders.Order, error) {
	switch next {
	case orders.OrderStatusProcessing, orders.OrderStatusShipped, orders.OrderStatusDelivered:
	default:
		return nil, fmt.Errorf("%w: cannot advance to %s", ErrInvalidTransition, next)
	}

	current, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("store.GetOrder: %w", err)
	}

	var advanced *orders.Order

	err = e.store.WithAccountLock(ctx, current.UserID, func(ctx context.Context, tx storage.SettlementTx) error {
		order, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("tx.GetOrder: %w", err)
		}

		if err := order.Transition(next, e.now()); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
		}

		if err := tx.UpdateOrder(ctx, order); err != nil {
			return fmt.Errorf("tx.UpdateOrder: %w", err)
		}

		advanced = order

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store.WithAccountLock: %w", err)
	}

	e.log.Info("Order advanced",
		slog.String("order_number", advanced.Number),
		slog.String("order_status", advanced.Status.String()),
	)

	return advanced, nil
}

func (e *Engine) GetBalance(ctx context.Context, userID uuid.UUID) (Balance, error) {
	acc, err := e.store.GetAccount(ctx, userID)
	if err != nil {
		return Balance{}, fmt.Errorf("store.GetAccount: %w", err)
	}

	return balanceOf(acc), nil
}

// GetHistory lists the user's ledger entries newest first.
func (e *Engine) GetHistory(ctx context.Context, userID uuid.UUID, q HistoryQuery) (*History, error) {
	page, limit, err := NormalizePage(q.Page, q.Limit)
	if err != nil {
		return nil, err
	}

	var kind ledger.Kind

	if q.Kind != "" {
		kind, err = ledger.ParseKind(q.Kind)
		if err != nil {
			return nil, validationError("type", "must be one of deposit, payment, refund")
		}
	}

	entries, total, err := e.store.ListEntries(ctx, userID, kind, storage.Page{Number: page, Size: limit})
	if err != nil {
		return nil, fmt.Errorf("store.ListEntries: %w", err)
	}

	return &History{Entries: entries, Total: total, Page: page, Limit: limit}, nil
}

// GetOrderHistory lists the user's orders newest first.
func (e *Engine) GetOrderHistory(ctx context.Context, userID uuid.UUID, q OrderHistoryQuery) (*OrderHistory, error) {
	page, limit, err := NormalizePage(q.Page, q.Limit)
	if err != nil {
		return nil, err
	}

	ords, total, err := e.store.ListOrders(ctx, userID, storage.Page{Number: page, Size: limit})
	if err != nil {
		return nil, fmt.Errorf("store.ListOrders: %w", err)
	}

	return &OrderHistory{Orders: ords, Total: total, Page: page, Limit: limit}, nil
}

// GetOrder returns one of the user's orders. Orders of other users are
// reported as not found.
func (e *Engine) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*orders.Order, error) {
	order, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("store.GetOrder: %w", err)
	}

	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}

	return order, nil
}

// priceItems resolves every product and prices the lines at the product's
// effective unit price.
func (e *Engine) priceItems(ctx context.Context, reqItems []PurchaseItem) ([]orders.Item, decimal.Decimal, error) {
	items := make([]orders.Item, 0, len(reqItems))
	total := decimal.Zero

	for i, ri := range reqItems {
		product, err := e.catalog.GetProduct(ctx, ri.ProductID)
		if err != nil {
			if errors.Is(err, storage.ErrProductNotFound) {
				return nil, decimal.Zero, fmt.Errorf("%w: %s", ErrProductNotFound, ri.ProductID)
			}

			return nil, decimal.Zero, fmt.Errorf("catalog.GetProduct: %w", err)
		}

		item, err := orders.NewItem(product.ID, ri.Quantity, product.UnitPrice())
		if err != nil {
			return nil, decimal.Zero, validationError(fmt.Sprintf("items[%d].quantity", i), err.Error())
		}

		items = append(items, item)
		total = total.Add(item.LineTotal)
	}

	return items, total, nil
}

// settle persists a balance change together with the entry that records it.
func (e *Engine) settle(ctx context.Context, tx storage.SettlementTx, acc *accounts.Account, entry *ledger.Entry) error {
	if err := tx.SaveAccount(ctx, acc); err != nil {
		return fmt.Errorf("tx.SaveAccount: %w", err)
	}

	if err := tx.AppendEntry(ctx, entry); err != nil {
		return fmt.Errorf("tx.AppendEntry: %w", err)
	}

	return nil
}

func (e *Engine) record(operation string, err error, amount decimal.Decimal) {
	switch {
	case err == nil:
		e.recorder.RecordSettlement(operation, metrics.OutcomeSuccess, amount)
	case isRejection(err):
		e.recorder.RecordSettlement(operation, metrics.OutcomeRejected, amount)
	default:
		e.recorder.RecordSettlement(operation, metrics.OutcomeError, amount)
		e.log.Error("Settlement failed", slog.String("operation", operation), slog.Any("error", err))
	}
}

// isRejection reports whether err is a business rule refusal rather than a
// system failure.
func isRejection(err error) bool {
	for _, target := range []error{
		ErrInvalidAmount, ErrValidation, ErrInsufficientFunds, ErrAlreadyRefunded,
		ErrInvalidRefundState, ErrInvalidCancelState, ErrInvalidTransition,
		ErrAccountNotFound, ErrProductNotFound, ErrOrderNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
