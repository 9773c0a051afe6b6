package cart

import (
	"github.com/shopspring/decimal"

	"github.com/storefront/client/internal/domain/shared"
)

// Item is a cart line.
type Item struct {
	ID           shared.ID `json:"id,omitempty" yaml:"id,omitempty"`
	ProductID    shared.ID `json:"product_id" yaml:"product_id"`
	ProductName  string    `json:"product_name,omitempty" yaml:"product_name,omitempty"`
	ProductImage string    `json:"product_image,omitempty" yaml:"-"`
	Quantity     int       `json:"quantity" yaml:"quantity"`
	Price        float64   `json:"price" yaml:"price"`
	Size         string    `json:"size,omitempty" yaml:"size,omitempty"`
	Color        string    `json:"color,omitempty" yaml:"color,omitempty"`
}

// Product returns the product id of the line. Older cart payloads only
// carry the line id, which then doubles as the product id.
func (i Item) Product() shared.ID {
	if !i.ProductID.IsZero() {
		return i.ProductID
	}
	return i.ID
}

// LineTotal is quantity times unit price.
func (i Item) LineTotal() decimal.Decimal {
	return shared.Dec(i.Price).Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the server-side shopping cart.
type Cart struct {
	Items        []Item  `json:"items" yaml:"items"`
	Subtotal     float64 `json:"subtotal" yaml:"subtotal"`
	TaxAmount    float64 `json:"tax_amount" yaml:"tax_amount"`
	ShippingCost float64 `json:"shipping_cost" yaml:"shipping_cost"`
	TotalAmount  float64 `json:"total_amount" yaml:"total_amount"`
	ItemCount    int     `json:"item_count" yaml:"item_count"`
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// ComputedSubtotal sums the line totals. It is used when the backend
// subtotal is missing.
func (c *Cart) ComputedSubtotal() decimal.Decimal {
	sum := decimal.Zero
	if c == nil {
		return sum
	}
	for _, it := range c.Items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

// EffectiveSubtotal prefers the backend subtotal and falls back to the
// computed one.
func (c *Cart) EffectiveSubtotal() decimal.Decimal {
	if c != nil && c.Subtotal > 0 {
		return shared.Dec(c.Subtotal)
	}
	return c.ComputedSubtotal()
}

// Mutation is returned by the add, update and remove endpoints.
type Mutation struct {
	Message string `json:"message,omitempty"`
	Cart    *Cart  `json:"cart"`
}
