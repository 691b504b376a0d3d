package fulfillclient

import (
	"fmt"

	"github.com/rzpatryk/BuggyVege/internal/domain/orders"
)

type ShipmentStatus string

const (
	ShipmentStatusRegistered ShipmentStatus = "REGISTERED"
	ShipmentStatusProcessing ShipmentStatus = "PROCESSING"
	ShipmentStatusShipped    ShipmentStatus = "SHIPPED"
	ShipmentStatusDelivered  ShipmentStatus = "DELIVERED"
)

type ShipmentModel struct {
	Order  string `json:"order"`
	Status string `json:"status"`
}

func parseShipmentStatus(status string) (ShipmentStatus, error) {
	switch ShipmentStatus(status) {
	case ShipmentStatusRegistered, ShipmentStatusProcessing, ShipmentStatusShipped, ShipmentStatusDelivered:
		return ShipmentStatus(status), nil
	default:
		return "", fmt.Errorf("unknown shipment status: %s", status)
	}
}

type Shipment struct {
	orderNumber string
	status      ShipmentStatus
}

// NewShipment validates the reported status.
func NewShipment(orderNumber, status string) (*Shipment, error) {
	st, err := parseShipmentStatus(status)
	if err != nil {
		return nil, err
	}

	return &Shipment{
		orderNumber: orderNumber,
		status:      st,
	}, nil
}

func (s *Shipment) OrderNumber() string {
	return s.orderNumber
}

func (s *Shipment) Status() ShipmentStatus {
	return s.status
}

// OrderStatus is the order status the shipment state corresponds to. A
// registered shipment has not started, so the order stays paid.
func (s *Shipment) OrderStatus() orders.OrderStatus {
	switch s.status {
	case ShipmentStatusProcessing:
		return orders.OrderStatusProcessing
	case ShipmentStatusShipped:
		return orders.OrderStatusShipped
	case ShipmentStatusDelivered:
		return orders.OrderStatusDelivered
	default:
		return orders.OrderStatusPaid
	}
}
