package catalog

import (
	"github.com/storefront/client/internal/domain/shared"
)

// Product is a catalog product as returned by the backend.
type Product struct {
	ID                shared.ID `json:"id" yaml:"id"`
	Name              string    `json:"name" yaml:"name"`
	Description       string    `json:"description,omitempty" yaml:"description,omitempty"`
	Price             float64   `json:"price" yaml:"price"`
	SalePrice         *float64  `json:"sale_price,omitempty" yaml:"sale_price,omitempty"`
	Images            []string  `json:"images,omitempty" yaml:"-"`
	Colors            []string  `json:"colors,omitempty" yaml:"colors,omitempty"`
	Sizes             []string  `json:"sizes,omitempty" yaml:"sizes,omitempty"`
	Category          string    `json:"category,omitempty" yaml:"category,omitempty"`
	Rating            float64   `json:"rating,omitempty" yaml:"rating,omitempty"`
	ReviewCount       int       `json:"review_count,omitempty" yaml:"review_count,omitempty"`
	InventoryQuantity int       `json:"inventory_quantity" yaml:"inventory_quantity"`
	SKU               string    `json:"sku,omitempty" yaml:"sku,omitempty"`
	Status            string    `json:"status,omitempty" yaml:"status,omitempty"`
	Featured          bool      `json:"is_featured,omitempty" yaml:"is_featured,omitempty"`
}

// EffectivePrice is the sale price when one is set, else the list price.
func (p *Product) EffectivePrice() float64 {
	if p.SalePrice != nil && *p.SalePrice > 0 && *p.SalePrice < p.Price {
		return *p.SalePrice
	}
	return p.Price
}

// Discount returns the whole-number percentage off the list price.
func (p *Product) Discount() int {
	if p.SalePrice == nil {
		return 0
	}
	return shared.DiscountPercent(p.Price, *p.SalePrice)
}

// InStock reports whether at least one unit is available.
func (p *Product) InStock() bool {
	return p.InventoryQuantity > 0
}

// Page is a paginated product listing.
type Page struct {
	Products []Product `json:"products" yaml:"products"`
	Total    int       `json:"total" yaml:"total"`
	HasNext  bool      `json:"has_next" yaml:"has_next"`
	HasPrev  bool      `json:"has_prev" yaml:"has_prev"`
}

// Product lifecycle statuses used by the admin catalog.
const (
	StatusActive       = "active"
	StatusInactive     = "inactive"
	StatusDraft        = "draft"
	StatusOutOfStock   = "out_of_stock"
	StatusDiscontinued = "discontinued"
)

// ValidStatus reports whether s is a product status the admin API accepts.
func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusInactive, StatusDraft, StatusOutOfStock, StatusDiscontinued:
		return true
	}
	return false
}
