package fulfillprocessor

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rzpatryk/BuggyVege/internal/domain/orders"
	"github.com/rzpatryk/BuggyVege/internal/fulfillment/fulfillclient"
)

type sourceMock struct {
	mock.Mock
}

func (m *sourceMock) GetOrdersByStatus(ctx context.Context, statuses ...orders.OrderStatus) ([]*orders.Order, error) {
	args := m.Called(ctx, statuses)

	ords, _ := args.Get(0).([]*orders.Order)

	return ords, args.Error(1)
}

type advancerMock struct {
	mock.Mock
}

func (m *advancerMock) AdvanceOrder(ctx context.Context, orderID uuid.UUID, next orders.OrderStatus) (*orders.Order, error) {
	args := m.Called(ctx, orderID, next)

	ord, _ := args.Get(0).(*orders.Order)

	return ord, args.Error(1)
}

type clientMock struct {
	mock.Mock
}

func (m *clientMock) GetShipment(ctx context.Context, orderNumber string) (*fulfillclient.Shipment, error) {
	args := m.Called(ctx, orderNumber)

	s, _ := args.Get(0).(*fulfillclient.Shipment)

	return s, args.Error(1)
}

func shipment(t *testing.T, number string, status fulfillclient.ShipmentStatus) *fulfillclient.Shipment {
	t.Helper()

	s, err := fulfillclient.NewShipment(number, string(status))
	require.NoError(t, err)

	return s
}

var openStatuses = []orders.OrderStatus{
	orders.OrderStatusPaid,
	orders.OrderStatusProcessing,
	orders.OrderStatusShipped,
}

func TestProcessAdvancesStepByStep(t *testing.T) {
	ord := &orders.Order{ID: uuid.New(), Number: "202405010001", Status: orders.OrderStatusPaid}

	source := new(sourceMock)
	source.On("GetOrdersByStatus", mock.Anything, openStatuses).Return([]*orders.Order{ord}, nil)

	client := new(clientMock)
	client.On("GetShipment", mock.Anything, ord.Number).
		Return(shipment(t, ord.Number, fulfillclient.ShipmentStatusDelivered), nil)

	advancer := new(advancerMock)
	advancer.On("AdvanceOrder", mock.Anything, ord.ID, orders.OrderStatusProcessing).Return(ord, nil).Once()
	advancer.On("AdvanceOrder", mock.Anything, ord.ID, orders.OrderStatusShipped).Return(ord, nil).Once()
	advancer.On("AdvanceOrder", mock.Anything, ord.ID, orders.OrderStatusDelivered).Return(ord, nil).Once()

	p := New(source, advancer, client, WithPoolSize(2))

	require.NoError(t, p.Process(context.Background()))

	source.AssertExpectations(t)
	client.AssertExpectations(t)
	advancer.AssertExpectations(t)
}

func TestProcessSkipsUnchangedAndUnknown(t *testing.T) {
	same := &orders.Order{ID: uuid.New(), Number: "202405010001", Status: orders.OrderStatusShipped}
	unknown := &orders.Order{ID: uuid.New(), Number: "202405010002", Status: orders.OrderStatusPaid}
	registered := &orders.Order{ID: uuid.New(), Number: "202405010003", Status: orders.OrderStatusPaid}

	source := new(sourceMock)
	source.On("GetOrdersByStatus", mock.Anything, openStatuses).
		Return([]*orders.Order{same, unknown, registered}, nil)

	client := new(clientMock)
	client.On("GetShipment", mock.Anything, same.Number).
		Return(shipment(t, same.Number, fulfillclient.ShipmentStatusShipped), nil)
	client.On("GetShipment", mock.Anything, unknown.Number).
		Return(nil, fulfillclient.ErrShipmentNotFound)
	client.On("GetShipment", mock.Anything, registered.Number).
		Return(shipment(t, registered.Number, fulfillclient.ShipmentStatusRegistered), nil)

	advancer := new(advancerMock)

	p := New(source, advancer, client)

	require.NoError(t, p.Process(context.Background()))

	client.AssertExpectations(t)
	advancer.AssertNotCalled(t, "AdvanceOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessStopsOnAdvanceFailure(t *testing.T) {
	ord := &orders.Order{ID: uuid.New(), Number: "202405010001", Status: orders.OrderStatusPaid}

	source := new(sourceMock)
	source.On("GetOrdersByStatus", mock.Anything, openStatuses).Return([]*orders.Order{ord}, nil)

	client := new(clientMock)
	client.On("GetShipment", mock.Anything, ord.Number).
		Return(shipment(t, ord.Number, fulfillclient.ShipmentStatusShipped), nil)

	advancer := new(advancerMock)
	advancer.On("AdvanceOrder", mock.Anything, ord.ID, orders.OrderStatusProcessing).
		Return(nil, errors.New("order was cancelled")).Once()

	p := New(source, advancer, client)

	require.NoError(t, p.Process(context.Background()))

	advancer.AssertExpectations(t)
	advancer.AssertNotCalled(t, "AdvanceOrder", mock.Anything, ord.ID, orders.OrderStatusShipped)
}

func TestProcessStopsRoundWhenThrottled(t *testing.T) {
	first := &orders.Order{ID: uuid.New(), Number: "202405010001", Status: orders.OrderStatusPaid}
	second := &orders.Order{ID: uuid.New(), Number: "202405010002", Status: orders.OrderStatusPaid}

	source := new(sourceMock)
	source.On("GetOrdersByStatus", mock.Anything, openStatuses).Return([]*orders.Order{first, second}, nil)

	client := new(clientMock)
	client.On("GetShipment", mock.Anything, first.Number).Return(nil, fulfillclient.ErrTooManyRequests).Once()

	p := New(source, new(advancerMock), client, WithPoolSize(1))

	require.NoError(t, p.Process(context.Background()))

	client.AssertNotCalled(t, "GetShipment", mock.Anything, second.Number)
}

func TestProcessSourceError(t *testing.T) {
	source := new(sourceMock)
	source.On("GetOrdersByStatus", mock.Anything, openStatuses).Return(nil, errors.New("db down"))

	p := New(source, new(advancerMock), new(clientMock))

	assert.ErrorContains(t, p.Process(context.Background()), "db down")
}
