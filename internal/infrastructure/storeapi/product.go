package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/storefront/client/internal/domain/catalog"
	"github.com/storefront/client/internal/domain/shared"
)

// ProductAPI covers /products.
type ProductAPI struct {
	r Requester
}

// List returns one page of products matching f.
func (p *ProductAPI) List(ctx context.Context, f catalog.Filter) (*catalog.Page, error) {
	resp, err := p.r.Do(ctx, requestGet("/products", f.Query()))
	if err != nil {
		return nil, err
	}
	return decodeProductPage(resp.Body)
}

// decodeProductPage accepts both the paginated envelope and a bare array.
func decodeProductPage(body []byte) (*catalog.Page, error) {
	body = bytes.TrimSpace(body)
	page := &catalog.Page{}
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &page.Products); err != nil {
			return nil, err
		}
		page.Total = len(page.Products)
		return page, nil
	}
	if err := json.Unmarshal(body, page); err != nil {
		return nil, err
	}
	return page, nil
}

// Get returns one product.
func (p *ProductAPI) Get(ctx context.Context, id shared.ID) (*catalog.Product, error) {
	var out catalog.Product
	if err := get(ctx, p.r, resource("/products/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Featured returns featured products. limit <= 0 uses the backend default.
func (p *ProductAPI) Featured(ctx context.Context, limit int) ([]catalog.Product, error) {
	return p.collection(ctx, "/products/featured/", limit)
}

// Trending returns trending products.
func (p *ProductAPI) Trending(ctx context.Context, limit int) ([]catalog.Product, error) {
	return p.collection(ctx, "/products/trending/", limit)
}

// NewArrivals returns the newest products.
func (p *ProductAPI) NewArrivals(ctx context.Context, limit int) ([]catalog.Product, error) {
	return p.collection(ctx, "/products/new-arrivals/", limit)
}

func (p *ProductAPI) collection(ctx context.Context, path string, limit int) ([]catalog.Product, error) {
	var q url.Values
	if limit > 0 {
		q = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	var out []catalog.Product
	if err := getList(ctx, p.r, path, q, "products", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create adds a product.
func (p *ProductAPI) Create(ctx context.Context, product *catalog.Product) (*catalog.Product, error) {
	var out catalog.Product
	if err := sendOne(ctx, p.r, http.MethodPost, "/products/", "product", product, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update replaces product fields.
func (p *ProductAPI) Update(ctx context.Context, id shared.ID, update any) (*catalog.Product, error) {
	var out catalog.Product
	if err := sendOne(ctx, p.r, http.MethodPut, resource("/products/", id), "product", update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a product.
func (p *ProductAPI) Delete(ctx context.Context, id shared.ID) error {
	return send(ctx, p.r, http.MethodDelete, resource("/products/", id), nil, nil)
}
