package fulfillclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/rzpatryk/BuggyVege/internal/httpclient"
	"github.com/rzpatryk/BuggyVege/internal/logger"
)

var (
	ErrShipmentNotFound   = errors.New("shipment not found")
	ErrTooManyRequests    = errors.New("too many requests")
	ErrSomethingWentWrong = errors.New("something went wrong")
)

type FulfillmentClient struct {
	log    *slog.Logger
	client *resty.Client
}

func New(opts ...Option) *FulfillmentClient {
	c := &FulfillmentClient{
		log:    logger.Nop(),
		client: httpclient.New(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.log = c.log.With(slog.String("module", "fulfillment_client"))

	return c
}

type Option func(c *FulfillmentClient)

func WithLogger(logger *slog.Logger) Option {
	return func(c *FulfillmentClient) {
		c.log = logger
	}
}

func WithClient(client *resty.Client) Option {
	return func(c *FulfillmentClient) {
		c.client = client
	}
}

// GetShipment asks the fulfillment system about the shipment of an order.
func (c *FulfillmentClient) GetShipment(ctx context.Context, orderNumber string) (*Shipment, error) {
	data := new(ShipmentModel)

	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(data).
		SetPathParams(map[string]string{
			"orderNumber": orderNumber,
		}).
		Get("/api/shipments/{orderNumber}")
	if err != nil {
		return nil, fmt.Errorf("client.R: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNoContent, http.StatusNotFound:
		return nil, ErrShipmentNotFound
	case http.StatusTooManyRequests:
		return nil, ErrTooManyRequests
	default:
		c.log.Debug("Unexpected fulfillment response",
			slog.String("order_number", orderNumber),
			slog.Int("status_code", resp.StatusCode()),
		)

		return nil, fmt.Errorf("%w: status %d", ErrSomethingWentWrong, resp.StatusCode())
	}

	shipment, err := NewShipment(data.Order, data.Status)
	if err != nil {
		return nil, fmt.Errorf("NewShipment: %w", err)
	}

	return shipment, nil
}
