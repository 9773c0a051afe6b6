package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/storefront/client/internal/domain/cart"
	"github.com/storefront/client/internal/domain/identity"
	"github.com/storefront/client/internal/domain/order"
	"github.com/storefront/client/internal/domain/shared"
	"github.com/storefront/client/internal/infrastructure/cache"
	"github.com/storefront/client/internal/infrastructure/httpclient"
	"github.com/storefront/client/internal/infrastructure/storeapi"
)

type MockCartReader struct{ mock.Mock }

func (m *MockCartReader) Get(ctx context.Context) (*cart.Cart, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

type MockAddressLister struct{ mock.Mock }

func (m *MockAddressLister) List(ctx context.Context) ([]identity.Address, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]identity.Address), args.Error(1)
}

type MockPaymentLister struct{ mock.Mock }

func (m *MockPaymentLister) List(ctx context.Context) (*storeapi.PaymentList, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storeapi.PaymentList), args.Error(1)
}

type MockOrderCreator struct{ mock.Mock }

func (m *MockOrderCreator) Create(ctx context.Context, payload any, idempotencyKey string) (*order.Order, error) {
	args := m.Called(ctx, payload, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

type staticUser struct{ u *identity.User }

func (s staticUser) User() *identity.User { return s.u }

type serviceFixture struct {
	carts     *MockCartReader
	addresses *MockAddressLister
	payments  *MockPaymentLister
	orders    *MockOrderCreator
	guard     *cache.MemoryGuard
	svc       *Service
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		carts:     new(MockCartReader),
		addresses: new(MockAddressLister),
		payments:  new(MockPaymentLister),
		orders:    new(MockOrderCreator),
		guard:     cache.NewMemoryGuard(),
	}
	t.Cleanup(func() { _ = f.guard.Close() })
	f.svc = NewService(f.carts, f.addresses, f.payments, f.orders, f.guard,
		WithLogger(zaptest.NewLogger(t)),
		WithUsers(staticUser{&identity.User{ID: shared.IDFromInt(42), Email: "ada@example.com", FirstName: "Ada"}}),
	)
	return f
}

func TestService_PrepareSelectsDefaults(t *testing.T) {
	f := newFixture(t)
	f.carts.On("Get", mock.Anything).Return(testCart(50), nil)
	f.addresses.On("List", mock.Anything).Return([]identity.Address{
		{ID: shared.IDFromInt(1)},
		{ID: shared.IDFromInt(2), IsDefault: true},
	}, nil)
	f.payments.On("List", mock.Anything).Return(&storeapi.PaymentList{Payments: []identity.PaymentMethod{
		{ID: shared.IDFromInt(8), IsDefault: true},
	}}, nil)

	flow, err := f.svc.Prepare(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StepContact, flow.Active)
	require.NotNil(t, flow.Selection.Address)
	assert.Equal(t, shared.IDFromInt(2), flow.Selection.Address.ID)
	assert.Equal(t, shared.IDFromInt(8), flow.Selection.PaymentID)
	assert.Equal(t, "ada@example.com", flow.Selection.Contact.Email)
}

func TestService_PrepareToleratesSectionFailures(t *testing.T) {
	f := newFixture(t)
	f.carts.On("Get", mock.Anything).Return(testCart(50), nil)
	f.addresses.On("List", mock.Anything).Return(nil, errors.New("boom"))
	f.payments.On("List", mock.Anything).Return(nil, errors.New("boom"))

	flow, err := f.svc.Prepare(context.Background())
	require.NoError(t, err)
	assert.Nil(t, flow.Selection.Address)
	assert.Empty(t, flow.Addresses)
}

func TestService_PrepareFailsWithoutCart(t *testing.T) {
	f := newFixture(t)
	f.carts.On("Get", mock.Anything).Return(nil, errors.New("unreachable"))
	f.addresses.On("List", mock.Anything).Return([]identity.Address{}, nil).Maybe()
	f.payments.On("List", mock.Anything).Return(&storeapi.PaymentList{}, nil).Maybe()

	_, err := f.svc.Prepare(context.Background())
	assert.ErrorContains(t, err, "loading cart")
}

func TestService_SubmitSuccess(t *testing.T) {
	f := newFixture(t)
	created := &order.Order{ID: shared.IDFromInt(11), OrderNumber: "ORD-0011", Status: order.StatusPending}
	f.orders.On("Create", mock.Anything, mock.AnythingOfType("*checkout.Payload"), mock.AnythingOfType("string")).
		Return(created, nil).Once()

	flow := NewFlow(testCart(50))
	o, err := f.svc.Submit(context.Background(), flow)
	require.NoError(t, err)

	assert.Equal(t, "ORD-0011", o.OrderNumber)
	assert.True(t, flow.IsComplete())
	assert.Same(t, created, flow.Order)

	payload := f.orders.Calls[0].Arguments.Get(1).(*Payload)
	assert.Equal(t, shared.IDFromInt(42), payload.UserID)
	assert.NotEmpty(t, f.orders.Calls[0].Arguments.String(2))
	f.orders.AssertExpectations(t)
}

func TestService_SubmitRejectsEmptyCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Submit(context.Background(), NewFlow(&cart.Cart{}))
	assert.ErrorIs(t, err, shared.ErrEmptyCart)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_SubmitRejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	f.orders.On("Create", mock.Anything, mock.Anything, mock.Anything).
		Return(&order.Order{OrderNumber: "ORD-1"}, nil).Once()

	_, err := f.svc.Submit(context.Background(), NewFlow(testCart(50)))
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), NewFlow(testCart(50)))
	assert.ErrorIs(t, err, shared.ErrDuplicateSubmission)
	f.orders.AssertNumberOfCalls(t, "Create", 1)
}

func TestService_SubmitFailureReleasesGuard(t *testing.T) {
	f := newFixture(t)
	f.orders.On("Create", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("server down")).Once()
	f.orders.On("Create", mock.Anything, mock.Anything, mock.Anything).
		Return(&order.Order{OrderNumber: "ORD-2"}, nil).Once()

	flow := NewFlow(testCart(50))
	flow.Active = StepReview
	_, err := f.svc.Submit(context.Background(), flow)
	require.ErrorContains(t, err, "server down")
	assert.Equal(t, StepReview, flow.Active)
	assert.Nil(t, flow.Order)

	o, err := f.svc.Submit(context.Background(), flow)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2", o.OrderNumber)

	first := f.orders.Calls[0].Arguments.String(2)
	second := f.orders.Calls[1].Arguments.String(2)
	assert.NotEqual(t, first, second)
}

func TestService_SubmitValidatesFriend(t *testing.T) {
	f := newFixture(t)
	flow := NewFlow(testCart(50))
	flow.OrderForFriend(&Friend{FirstName: "Grace"})

	_, err := f.svc.Submit(context.Background(), flow)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "phone")
}

func TestCheckout_EndToEnd(t *testing.T) {
	var posts atomic.Int32
	var body map[string]any
	var idemKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/orders/cart/":
			_, _ = w.Write([]byte(`{"items":[{"product_id":1,"quantity":2,"price":25.0}],"subtotal":50.0}`))
		case r.Method == http.MethodGet && r.URL.Path == "/addresses/":
			_, _ = w.Write([]byte(`{"addresses":[{"id":3,"first_name":"Ada","last_name":"Lovelace","street_address":"1 Main St","city":"Springfield","state":"IL","postal_code":"62701","country":"US","is_default":true}]}`))
		case r.Method == http.MethodGet && r.URL.Path == "/payments/":
			_, _ = w.Write([]byte(`[]`))
		case r.Method == http.MethodPost && r.URL.Path == "/orders/":
			posts.Add(1)
			idemKey = r.Header.Get("Idempotency-Key")
			_ = json.NewDecoder(r.Body).Decode(&body)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":99,"order_number":"ORD-20260001","status":"pending","total_amount":58.99}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cfg := httpclient.DefaultConfig()
	cfg.BaseURL = srv.URL
	client, err := httpclient.New(cfg, nil)
	require.NoError(t, err)
	api := storeapi.New(client)
	defer api.Close()

	guard := cache.NewMemoryGuard()
	defer guard.Close()
	svc := NewServiceFromAPI(api, guard, WithLogger(zaptest.NewLogger(t)))

	ctx := context.Background()
	flow, err := svc.Prepare(ctx)
	require.NoError(t, err)
	require.NotNil(t, flow.Selection.Address)

	o, err := svc.Submit(ctx, flow)
	require.NoError(t, err)

	assert.Equal(t, int32(1), posts.Load())
	assert.NotEmpty(t, idemKey)
	assert.True(t, flow.IsComplete())
	assert.Equal(t, "ORD-20260001", o.OrderNumber)

	items, ok := body["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, map[string]any{
		"product_id": float64(1),
		"quantity":   float64(2),
		"price":      25.0,
		"subtotal":   50.0,
	}, items[0])

	ship := body["shipping_address"].(map[string]any)
	assert.Equal(t, "1 Main St", ship["address_line_1"])
	assert.Equal(t, body["shipping_address"], body["billing_address"])
	assert.Equal(t, "creditCard", body["payment_method"])
}
