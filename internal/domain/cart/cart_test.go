package cart

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/client/internal/domain/shared"
)

func TestShippingCost(t *testing.T) {
	tests := []struct {
		name     string
		subtotal string
		method   string
		want     string
	}{
		{"standard under threshold", "99.99", ShippingStandard, "4.99"},
		{"standard at threshold", "100", ShippingStandard, "0"},
		{"express always charged", "250", ShippingExpress, "9.99"},
		{"free method below threshold still pays standard", "20", ShippingFree, "4.99"},
		{"free method above threshold", "120", ShippingFree, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShippingCost(decimal.RequireFromString(tt.subtotal), tt.method)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestShippingOptions_FreeAvailability(t *testing.T) {
	opts := ShippingOptions(decimal.NewFromInt(50))
	require.Len(t, opts, 3)
	assert.Equal(t, ShippingFree, opts[2].Method)
	assert.False(t, opts[2].Available)

	opts = ShippingOptions(decimal.NewFromInt(150))
	assert.True(t, opts[2].Available)
	assert.True(t, opts[0].Cost.IsZero())
}

func TestCompute(t *testing.T) {
	totals := Compute(decimal.NewFromInt(50), ShippingStandard)

	sub, ship, tax, total := totals.Floats()
	assert.Equal(t, 50.0, sub)
	assert.Equal(t, 4.99, ship)
	assert.Equal(t, 4.0, tax)
	assert.Equal(t, 58.99, total)
}

func TestCart_Subtotals(t *testing.T) {
	var c Cart
	require.NoError(t, json.Unmarshal([]byte(`{"items":[{"product_id":1,"quantity":2,"price":25.0},{"id":9,"quantity":1,"price":0.1}]}`), &c))

	assert.False(t, c.IsEmpty())
	assert.Equal(t, shared.ID("1"), c.Items[0].Product())
	assert.Equal(t, shared.ID("9"), c.Items[1].Product())
	assert.Equal(t, "50.1", c.ComputedSubtotal().String())
	assert.Equal(t, "50.1", c.EffectiveSubtotal().String())

	c.Subtotal = 42
	assert.Equal(t, "42", c.EffectiveSubtotal().String())

	var empty *Cart
	assert.True(t, empty.IsEmpty())
	assert.True(t, empty.EffectiveSubtotal().IsZero())
}
