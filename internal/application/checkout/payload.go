package checkout

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/storefront/client/internal/domain/cart"
	"github.com/storefront/client/internal/domain/identity"
	"github.com/storefront/client/internal/domain/order"
	"github.com/storefront/client/internal/domain/shared"
)

// Payload is the body of POST /orders/.
type Payload struct {
	UserID          shared.ID      `json:"user_id,omitempty"`
	Items           []order.Item   `json:"items"`
	ShippingAddress *order.Address `json:"shipping_address"`
	BillingAddress  *order.Address `json:"billing_address"`
	PaymentMethod   string         `json:"payment_method"`
	ShippingMethod  string         `json:"shipping_method"`
	Notes           string         `json:"notes,omitempty"`
}

// BuildPayload maps the cart and selections to an order request. Every
// cart line becomes one order item with subtotal = quantity * price.
// Shipping and billing address are both taken from the selected address.
func BuildPayload(c *cart.Cart, sel Selection, user *identity.User) (*Payload, error) {
	if c.IsEmpty() {
		return nil, shared.ErrEmptyCart
	}

	p := &Payload{
		Items:          make([]order.Item, 0, len(c.Items)),
		PaymentMethod:  paymentMethod(sel),
		ShippingMethod: sel.ShippingMethod,
	}
	if user != nil {
		p.UserID = user.ID
	}
	for _, it := range c.Items {
		p.Items = append(p.Items, order.Item{
			ProductID:   it.Product(),
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price,
			Size:        it.Size,
			Color:       it.Color,
			Subtotal:    shared.Cents(shared.Dec(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))),
		})
	}
	if sel.Address != nil {
		p.ShippingAddress = orderAddress(sel.Address)
		p.BillingAddress = orderAddress(sel.Address)
	}
	if sel.Friend != nil {
		p.Notes = friendNote(sel.Friend)
	}
	return p, nil
}

func paymentMethod(sel Selection) string {
	if !sel.PaymentID.IsZero() {
		return "payment_" + sel.PaymentID.String()
	}
	return sel.PaymentMethod
}

func orderAddress(a *identity.Address) *order.Address {
	return &order.Address{
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		AddressLine1: a.StreetAddress,
		City:         a.City,
		State:        a.State,
		PostalCode:   a.PostalCode,
		Country:      a.Country,
		Phone:        a.Phone,
	}
}

func friendNote(f *Friend) string {
	name := strings.TrimSpace(f.FirstName + " " + f.LastName)
	note := fmt.Sprintf("Deliver to %s, phone %s", name, f.Phone)
	if f.Email != "" {
		note += ", email " + f.Email
	}
	return note
}
