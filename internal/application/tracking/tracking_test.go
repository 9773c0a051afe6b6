package tracking

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storefront/client/internal/domain/order"
	"github.com/storefront/client/internal/domain/shared"
	"github.com/storefront/client/internal/infrastructure/httpclient"
)

type MockOrderReader struct{ mock.Mock }

func (m *MockOrderReader) Get(ctx context.Context, id shared.ID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderReader) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func TestNewView_Shipped(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	o := &order.Order{
		Status:         order.StatusShipped,
		PaymentStatus:  order.PaymentPaid,
		Subtotal:       1234.5,
		TaxAmount:      98.76,
		TotalAmount:    1333.26,
		TrackingNumber: "1Z999",
		CreatedAt:      &created,
		ShippingAddress: &order.Address{
			FirstName: "Ada", LastName: "Lovelace", AddressLine1: "1 Main St",
			City: "Springfield", State: "IL", PostalCode: "62701", Country: "US",
		},
	}

	v := NewView(o)

	assert.True(t, v.KnownStatus)
	assert.Equal(t, "#28a745", v.Status.Color)
	assert.Equal(t, 80, v.Status.Progress)
	require.Len(t, v.Steps, 5)
	assert.True(t, v.Steps[3].Completed)
	assert.False(t, v.Steps[4].Completed)
	require.NotNil(t, v.Next)
	assert.Equal(t, "Out for Delivery", v.Next.Title)
	assert.Equal(t, "$1,234.50", v.Totals.Subtotal)
	assert.Equal(t, "FREE", v.Totals.Shipping)
	assert.Empty(t, v.Totals.Discount)
	assert.Equal(t, []string{"Ada Lovelace", "1 Main St", "Springfield, IL 62701", "US"}, v.ShippingLines)
	assert.Len(t, v.PaymentEvents, 2)
	assert.Equal(t, "Paid", v.Payment)
}

func TestNewView_UnknownStatus(t *testing.T) {
	v := NewView(&order.Order{Status: "on_hold"})
	assert.False(t, v.KnownStatus)
	assert.Equal(t, "#6c757d", v.Status.Color)
	assert.Equal(t, "📋", v.Status.Icon)
	assert.Equal(t, 0, v.Status.Progress)
	assert.Nil(t, v.Next)
}

func TestService_TrackByIDOrNumber(t *testing.T) {
	orders := new(MockOrderReader)
	orders.On("Get", mock.Anything, shared.ID("17")).Return(&order.Order{ID: "17", Status: order.StatusPending}, nil)
	orders.On("GetByNumber", mock.Anything, "ORD-17").Return(&order.Order{OrderNumber: "ORD-17", Status: order.StatusDelivered}, nil)
	svc := NewService(orders, nil)

	v, err := svc.Track(context.Background(), " 17 ")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, v.Order.Status)

	v, err = svc.Track(context.Background(), "ORD-17")
	require.NoError(t, err)
	assert.Equal(t, 100, v.Status.Progress)

	orders.AssertExpectations(t)
}

func TestService_TrackNotFound(t *testing.T) {
	orders := new(MockOrderReader)
	orders.On("GetByNumber", mock.Anything, "ORD-404").
		Return(nil, &httpclient.APIError{StatusCode: http.StatusNotFound, Message: "Order not found"})
	svc := NewService(orders, nil)

	_, err := svc.Track(context.Background(), "ORD-404")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.Track(context.Background(), "")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
