package cart

import (
	"github.com/shopspring/decimal"

	"github.com/storefront/client/internal/domain/shared"
)

// Shipping methods offered at checkout.
const (
	ShippingStandard = "standard"
	ShippingExpress  = "express"
	ShippingFree     = "free"
)

var (
	// FreeShippingThreshold is the subtotal from which standard shipping is free.
	FreeShippingThreshold = decimal.NewFromInt(100)
	StandardShippingCost  = decimal.RequireFromString("4.99")
	ExpressShippingCost   = decimal.RequireFromString("9.99")
	TaxRate               = decimal.RequireFromString("0.08")
)

// ShippingOption describes a selectable shipping method.
type ShippingOption struct {
	Method    string
	Label     string
	Cost      decimal.Decimal
	Available bool
}

// ShippingOptions lists the shipping methods for a subtotal. Free shipping
// is only available once the subtotal reaches the threshold.
func ShippingOptions(subtotal decimal.Decimal) []ShippingOption {
	qualifies := subtotal.GreaterThanOrEqual(FreeShippingThreshold)
	return []ShippingOption{
		{Method: ShippingStandard, Label: "Standard Shipping (5-7 business days)", Cost: ShippingCost(subtotal, ShippingStandard), Available: true},
		{Method: ShippingExpress, Label: "Express Shipping (2-3 business days)", Cost: ExpressShippingCost, Available: true},
		{Method: ShippingFree, Label: "Free Shipping (orders over $100)", Cost: decimal.Zero, Available: qualifies},
	}
}

// ShippingCost returns the shipping charge: express is always charged,
// anything else is free from the threshold up and standard rate below it.
func ShippingCost(subtotal decimal.Decimal, method string) decimal.Decimal {
	if method == ShippingExpress {
		return ExpressShippingCost
	}
	if subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		return decimal.Zero
	}
	return StandardShippingCost
}

// Totals is the checkout price breakdown.
type Totals struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Compute derives the totals for a subtotal and shipping method.
func Compute(subtotal decimal.Decimal, method string) Totals {
	shipping := ShippingCost(subtotal, method)
	tax := subtotal.Mul(TaxRate).Round(2)
	return Totals{
		Subtotal: subtotal.Round(2),
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax).Round(2),
	}
}

// Floats returns the totals as wire amounts.
func (t Totals) Floats() (subtotal, shipping, tax, total float64) {
	return shared.Cents(t.Subtotal), shared.Cents(t.Shipping), shared.Cents(t.Tax), shared.Cents(t.Total)
}
