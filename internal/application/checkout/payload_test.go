package checkout

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/client/internal/domain/cart"
	"github.com/storefront/client/internal/domain/identity"
	"github.com/storefront/client/internal/domain/shared"
)

func TestBuildPayload_ItemsMapOneToOne(t *testing.T) {
	c := &cart.Cart{Items: []cart.Item{
		{ProductID: shared.IDFromInt(1), Quantity: 2, Price: 25.0, Size: "M"},
		{ProductID: shared.IDFromInt(2), Quantity: 3, Price: 19.99, Color: "red"},
		{ID: shared.IDFromInt(3), Quantity: 1, Price: 0.1},
	}}

	p, err := BuildPayload(c, Selection{PaymentMethod: "creditCard", ShippingMethod: "standard"}, nil)
	require.NoError(t, err)
	require.Len(t, p.Items, len(c.Items))

	assert.Equal(t, 50.0, p.Items[0].Subtotal)
	assert.Equal(t, 59.97, p.Items[1].Subtotal)
	assert.Equal(t, 0.1, p.Items[2].Subtotal)
	assert.Equal(t, shared.IDFromInt(3), p.Items[2].ProductID)
	assert.Equal(t, "M", p.Items[0].Size)
	assert.Equal(t, "red", p.Items[1].Color)
	assert.Nil(t, p.ShippingAddress)
}

func TestBuildPayload_Addresses(t *testing.T) {
	addr := &identity.Address{
		ID: shared.IDFromInt(7), FirstName: "Ada", LastName: "Lovelace",
		StreetAddress: "12 Analytical Way", City: "London", State: "LDN",
		PostalCode: "N1", Country: "UK", Phone: "+44 20 7946 0000",
	}
	user := &identity.User{ID: shared.IDFromInt(42)}

	p, err := BuildPayload(testCart(50), Selection{Address: addr, PaymentID: shared.IDFromInt(9), ShippingMethod: "express"}, user)
	require.NoError(t, err)

	require.NotNil(t, p.ShippingAddress)
	assert.Equal(t, "12 Analytical Way", p.ShippingAddress.AddressLine1)
	assert.Equal(t, "", p.ShippingAddress.AddressLine2)
	assert.Equal(t, p.ShippingAddress, p.BillingAddress)
	assert.NotSame(t, p.ShippingAddress, p.BillingAddress)
	assert.Equal(t, "payment_9", p.PaymentMethod)
	assert.Equal(t, "express", p.ShippingMethod)
	assert.Equal(t, shared.IDFromInt(42), p.UserID)
}

func TestBuildPayload_EmptyCart(t *testing.T) {
	_, err := BuildPayload(&cart.Cart{}, Selection{}, nil)
	assert.ErrorIs(t, err, shared.ErrEmptyCart)

	_, err = BuildPayload(nil, Selection{}, nil)
	assert.ErrorIs(t, err, shared.ErrEmptyCart)
}

func TestBuildPayload_FriendNote(t *testing.T) {
	sel := Selection{Friend: &Friend{FirstName: "Grace", LastName: "Hopper", Phone: "555-010-0199"}}
	p, err := BuildPayload(testCart(50), sel, nil)
	require.NoError(t, err)
	assert.Equal(t, "Deliver to Grace Hopper, phone 555-010-0199", p.Notes)
}

func TestPayload_JSON(t *testing.T) {
	c := &cart.Cart{Items: []cart.Item{{ProductID: shared.IDFromInt(1), Quantity: 2, Price: 25.0}}}
	p, err := BuildPayload(c, Selection{PaymentMethod: "creditCard", ShippingMethod: "standard"}, nil)
	require.NoError(t, err)

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"items": [{"product_id": 1, "quantity": 2, "price": 25.0, "subtotal": 50.0}],
		"shipping_address": null,
		"billing_address": null,
		"payment_method": "creditCard",
		"shipping_method": "standard"
	}`, string(data))
}
