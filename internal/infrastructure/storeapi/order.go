package storeapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/storefront/client/internal/domain/order"
	"github.com/storefront/client/internal/domain/shared"
	"github.com/storefront/client/internal/infrastructure/httpclient"
)

// OrderAPI covers /orders for the signed-in customer.
type OrderAPI struct {
	r Requester
}

// List returns the customer's orders.
func (o *OrderAPI) List(ctx context.Context) ([]order.Order, error) {
	var out []order.Order
	if err := getList(ctx, o.r, "/orders/", nil, "orders", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create places an order. idempotencyKey, when set, is sent on every
// attempt so the backend can drop replays.
func (o *OrderAPI) Create(ctx context.Context, payload any, idempotencyKey string) (*order.Order, error) {
	resp, err := o.r.Do(ctx, httpclient.Request{
		Method:         http.MethodPost,
		Path:           "/orders/",
		Body:           payload,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return nil, err
	}
	var out order.Order
	if err := decodeOne(resp.Body, "order", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns one order by id.
func (o *OrderAPI) Get(ctx context.Context, id shared.ID) (*order.Order, error) {
	var out order.Order
	if err := get(ctx, o.r, resource("/orders/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByNumber returns one order by its human-facing number.
func (o *OrderAPI) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	var out order.Order
	if err := get(ctx, o.r, "/orders/by-number/"+url.PathEscape(number), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func requestGet(path string, q url.Values) httpclient.Request {
	return httpclient.Request{Method: http.MethodGet, Path: path, Query: q}
}
