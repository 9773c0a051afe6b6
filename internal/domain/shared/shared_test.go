package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Is(t *testing.T) {
	wrapped := fmt.Errorf("submit order: %w", ErrEmptyCart)

	assert.True(t, errors.Is(wrapped, ErrEmptyCart))
	assert.True(t, errors.Is(wrapped, NewDomainError("EMPTY_CART", "other text")))
	assert.False(t, errors.Is(wrapped, ErrNotFound))
}

func TestID_JSON(t *testing.T) {
	var payload struct {
		ProductID ID `json:"product_id"`
		OrderID   ID `json:"order_id"`
		Missing   ID `json:"missing"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"product_id": 1, "order_id": "ord_9", "missing": null}`), &payload))

	assert.Equal(t, ID("1"), payload.ProductID)
	assert.Equal(t, ID("ord_9"), payload.OrderID)
	assert.True(t, payload.Missing.IsZero())

	n, ok := payload.ProductID.Int()
	assert.True(t, ok)
	assert.EqualValues(t, 1, n)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"product_id":1,"order_id":"ord_9","missing":null}`, string(out))
}

func TestID_RejectsObjects(t *testing.T) {
	var id ID
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &id))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "$25.00", FormatPrice(25, "USD"))
	assert.Equal(t, "$1,234.50", FormatPrice(1234.5, "USD"))
	assert.Equal(t, "€9.99", FormatPrice(9.99, "EUR"))
	assert.Equal(t, "$4.99", FormatPrice(4.99, "not-a-code"))
	assert.Equal(t, "-$5.00", FormatPrice(-5, "USD"))
}

func TestDiscountPercent(t *testing.T) {
	assert.Equal(t, 25, DiscountPercent(100, 75))
	assert.Equal(t, 33, DiscountPercent(29.99, 19.99))
	assert.Equal(t, 0, DiscountPercent(50, 50))
	assert.Equal(t, 0, DiscountPercent(50, 0))
	assert.Equal(t, 0, DiscountPercent(0, 10))
}

func TestValidate(t *testing.T) {
	type form struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,password"`
		Phone    string `json:"phone" validate:"omitempty,phone"`
	}

	require.NoError(t, Validate(form{Email: "a@b.co", Password: "Secret123", Phone: "+1 (555) 123-4567"}))

	err := Validate(form{Email: "nope", Password: "short", Phone: "12"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Invalid email format", verr.Fields["email"])
	assert.Contains(t, verr.Fields["password"], "8 characters")
	assert.Equal(t, "Invalid phone number", verr.Fields["phone"])
	assert.Contains(t, verr.Error(), "email: Invalid email format")
}

func TestIsStrongPassword(t *testing.T) {
	assert.True(t, IsStrongPassword("Passw0rd"))
	assert.False(t, IsStrongPassword("password1"))
	assert.False(t, IsStrongPassword("PASSWORD1"))
	assert.False(t, IsStrongPassword("Password"))
	assert.False(t, IsStrongPassword("Pa1"))
}
