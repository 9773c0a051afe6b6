package storeapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/storefront/client/internal/domain/cart"
	"github.com/storefront/client/internal/domain/shared"
	"github.com/storefront/client/internal/infrastructure/httpclient"
)

// CartAPI covers /orders/cart. Mutations take their arguments as query
// parameters and return the updated cart.
type CartAPI struct {
	r Requester
}

// Get returns the current cart.
func (c *CartAPI) Get(ctx context.Context) (*cart.Cart, error) {
	var out cart.Cart
	if err := get(ctx, c.r, "/orders/cart/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Add puts quantity units of a product variant into the cart.
func (c *CartAPI) Add(ctx context.Context, productID shared.ID, quantity int, size, color string) (*cart.Mutation, error) {
	if quantity <= 0 {
		quantity = 1
	}
	return c.mutate(ctx, http.MethodPost, "/orders/cart/add/", cartQuery(productID, &quantity, size, color))
}

// UpdateQuantity sets the quantity of a cart line.
func (c *CartAPI) UpdateQuantity(ctx context.Context, productID shared.ID, quantity int, size, color string) (*cart.Mutation, error) {
	return c.mutate(ctx, http.MethodPut, "/orders/cart/update/", cartQuery(productID, &quantity, size, color))
}

// Remove deletes a cart line.
func (c *CartAPI) Remove(ctx context.Context, productID shared.ID, size, color string) (*cart.Mutation, error) {
	return c.mutate(ctx, http.MethodDelete, "/orders/cart/remove/", cartQuery(productID, nil, size, color))
}

func (c *CartAPI) mutate(ctx context.Context, method, path string, q url.Values) (*cart.Mutation, error) {
	var out cart.Mutation
	if err := call(ctx, c.r, httpclient.Request{Method: method, Path: path, Query: q}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func cartQuery(productID shared.ID, quantity *int, size, color string) url.Values {
	q := url.Values{}
	q.Set("product_id", productID.String())
	if quantity != nil {
		q.Set("quantity", strconv.Itoa(*quantity))
	}
	if size != "" {
		q.Set("size", size)
	}
	if color != "" {
		q.Set("color", color)
	}
	return q
}
