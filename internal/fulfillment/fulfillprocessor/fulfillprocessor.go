package fulfillprocessor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/rzpatryk/BuggyVege/internal/domain/orders"
	"github.com/rzpatryk/BuggyVege/internal/fulfillment/fulfillclient"
	"github.com/rzpatryk/BuggyVege/internal/logger"
)

// OrderSource lists orders still on their way to the customer.
type OrderSource interface {
	GetOrdersByStatus(ctx context.Context, statuses ...orders.OrderStatus) ([]*orders.Order, error)
}

// Advancer moves an order one step along its fulfillment path.
type Advancer interface {
	AdvanceOrder(ctx context.Context, orderID uuid.UUID, next orders.OrderStatus) (*orders.Order, error)
}

type ShipmentClient interface {
	GetShipment(ctx context.Context, orderNumber string) (*fulfillclient.Shipment, error)
}

type FulfillmentProcessor struct {
	log      *slog.Logger
	source   OrderSource
	advancer Advancer
	client   ShipmentClient
	poolSize int
}

type Config struct {
	logger   *slog.Logger
	poolSize int
}

type Option func(c *Config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.logger = logger
	}
}

func WithPoolSize(size int) Option {
	return func(c *Config) {
		c.poolSize = size
	}
}

func New(source OrderSource, advancer Advancer, client ShipmentClient, opts ...Option) *FulfillmentProcessor {
	cfg := &Config{
		logger:   logger.Nop(),
		poolSize: 1,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.poolSize < 1 {
		cfg.poolSize = 1
	}

	return &FulfillmentProcessor{
		log:      cfg.logger.With(slog.String("module", "fulfillment_processor")),
		source:   source,
		advancer: advancer,
		client:   client,
		poolSize: cfg.poolSize,
	}
}

// Process syncs every open order with the fulfillment system once.
func (p *FulfillmentProcessor) Process(ctx context.Context) error {
	p.log.Debug("Start orders processing")

	ords, err := p.source.GetOrdersByStatus(ctx,
		orders.OrderStatusPaid,
		orders.OrderStatusProcessing,
		orders.OrderStatusShipped,
	)
	if err != nil {
		return fmt.Errorf("source.GetOrdersByStatus: %w", err)
	}

	if len(ords) == 0 {
		p.log.Debug("No orders to process")

		return nil
	}

	// Cancelling stops the round when the system throttles us.
	roundCtx, stop := context.WithCancel(ctx)
	defer stop()

	ordCh := orderGenerator(roundCtx, ords)

	p.orderProcessor(roundCtx, stop, ordCh)

	return nil
}

func orderGenerator(ctx context.Context, ords []*orders.Order) <-chan *orders.Order {
	ordersCh := make(chan *orders.Order)

	go func() {
		defer close(ordersCh)

		for _, ord := range ords {
			select {
			case <-ctx.Done():
				return
			case ordersCh <- ord:
			}
		}
	}()

	return ordersCh
}

func (p *FulfillmentProcessor) orderProcessor(ctx context.Context, stop context.CancelFunc, ordCh <-chan *orders.Order) {
	wg := &sync.WaitGroup{}

	for w := 1; w <= p.poolSize; w++ {
		wg.Add(1)

		go p.orderProcessorWorker(ctx, stop, wg, ordCh)
	}

	wg.Wait()
}

func (p *FulfillmentProcessor) orderProcessorWorker(
	ctx context.Context, stop context.CancelFunc, wg *sync.WaitGroup, ordCh <-chan *orders.Order,
) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case order, ok := <-ordCh:
			if !ok {
				return
			}

			if err := p.syncOrder(ctx, order); err != nil {
				if errors.Is(err, fulfillclient.ErrTooManyRequests) {
					p.log.Warn("Fulfillment system throttles requests, skipping the rest of the round")
					stop()

					return
				}

				p.log.Error("syncOrder()",
					slog.String("order_number", order.Number),
					slog.Any("error", err),
				)
			}
		}
	}
}

// syncOrder advances order step by step until it matches the shipment state.
func (p *FulfillmentProcessor) syncOrder(ctx context.Context, order *orders.Order) error {
	shipment, err := p.client.GetShipment(ctx, order.Number)
	if err != nil {
		if errors.Is(err, fulfillclient.ErrShipmentNotFound) {
			p.log.Debug("Shipment is not registered yet", slog.String("order_number", order.Number))

			return nil
		}

		return fmt.Errorf("client.GetShipment: %w", err)
	}

	steps, ok := order.Status.StepsTo(shipment.OrderStatus())
	if !ok {
		return nil
	}

	for _, next := range steps {
		if _, err := p.advancer.AdvanceOrder(ctx, order.ID, next); err != nil {
			return fmt.Errorf("advancer.AdvanceOrder: %w", err)
		}
	}

	p.log.Info("Order synced",
		slog.String("order_number", order.Number),
		slog.String("order_status", shipment.OrderStatus().String()),
	)

	return nil
}
