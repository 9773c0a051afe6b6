package admin

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/storefront/client/internal/domain/catalog"
	"github.com/storefront/client/internal/domain/shared"
	"github.com/storefront/client/internal/infrastructure/storeapi"
)

// ProductAdmin is the admin product API.
type ProductAdmin interface {
	ListProducts(ctx context.Context, params map[string]any) (*catalog.Page, error)
	UpdateProductStatus(ctx context.Context, id shared.ID, status string) error
	BulkUpdateProductStatus(ctx context.Context, ids []shared.ID, status string) (*storeapi.BulkResult, error)
	DeleteProduct(ctx context.Context, id shared.ID) error
}

// Products manages the catalog from the back office.
type Products struct {
	api    ProductAdmin
	logger *zap.Logger
}

// NewProducts creates the product management service.
func NewProducts(api ProductAdmin, l *zap.Logger) *Products {
	if l == nil {
		l = zap.NewNop()
	}
	return &Products{api: api, logger: l}
}

// List returns the products matching f.
func (p *Products) List(ctx context.Context, f catalog.Filter) (*catalog.Page, error) {
	params := map[string]any{}
	for k, vs := range f.Query() {
		if len(vs) == 1 {
			params[k] = vs[0]
		} else {
			params[k] = vs
		}
	}
	page, err := p.api.ListProducts(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return page, nil
}

// SetStatus changes the lifecycle status of one product.
func (p *Products) SetStatus(ctx context.Context, id shared.ID, status string) error {
	if !catalog.ValidStatus(status) {
		return fmt.Errorf("%w: unknown product status %q", shared.ErrInvalidInput, status)
	}
	if err := p.api.UpdateProductStatus(ctx, id, status); err != nil {
		return fmt.Errorf("updating product %s: %w", id, err)
	}
	return nil
}

// BulkSetStatus changes the status of several products.
func (p *Products) BulkSetStatus(ctx context.Context, ids []shared.ID, status string) (*storeapi.BulkResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no products selected", shared.ErrInvalidInput)
	}
	if !catalog.ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown product status %q", shared.ErrInvalidInput, status)
	}
	return p.api.BulkUpdateProductStatus(ctx, ids, status)
}

// Delete removes a product.
func (p *Products) Delete(ctx context.Context, id shared.ID) error {
	if err := p.api.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("deleting product %s: %w", id, err)
	}
	p.logger.Info("Product deleted", zap.String("product_id", id.String()))
	return nil
}
