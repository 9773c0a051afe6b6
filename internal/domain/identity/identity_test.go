package identity

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/client/internal/domain/shared"
)

func TestAuthResult_AcceptsTokenAlias(t *testing.T) {
	var a AuthResult
	require.NoError(t, json.Unmarshal([]byte(`{"token":"abc","user":{"id":7,"email":"a@b.co","role":"admin"}}`), &a))

	assert.Equal(t, "abc", a.AccessToken)
	require.NotNil(t, a.User)
	assert.True(t, a.User.IsAdmin())
	assert.Equal(t, shared.ID("7"), a.User.ID)
}

func TestPreferences(t *testing.T) {
	var u User
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"preferences":{"last_active_section":"orders","theme":3}}`), &u))

	assert.Equal(t, "orders", u.Preferences.String(LastTabKey("profile")))
	assert.Equal(t, "", u.Preferences.String("theme"))

	clone := u.Preferences.Clone()
	clone["last_active_section"] = "security"
	assert.Equal(t, "orders", u.Preferences.String("last_active_section"))
	assert.Equal(t, "last_active_section_admin", LastTabKey(PageAdmin))
	assert.Equal(t, "last_active_tab_order_42", LastTabKey("order_42"))
	assert.Equal(t, "", Preferences(nil).String("x"))
}

func TestRegistrationValidation(t *testing.T) {
	reg := Registration{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           "ada@example.com",
		Password:        "Analytical1",
		ConfirmPassword: "Analytical1",
	}
	require.NoError(t, shared.Validate(reg))

	reg.ConfirmPassword = "Analytical2"
	reg.Password = "weak"
	err := shared.Validate(reg)
	require.Error(t, err)

	var verr *shared.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "password")
	assert.Contains(t, verr.Fields, "ConfirmPassword")
}

func TestPasswordChangeValidation(t *testing.T) {
	err := shared.Validate(PasswordChange{CurrentPassword: "Secret123", NewPassword: "Secret123", ConfirmPassword: "Secret123"})
	require.Error(t, err)

	require.NoError(t, shared.Validate(PasswordChange{CurrentPassword: "Secret123", NewPassword: "Secret456", ConfirmPassword: "Secret456"}))
}

func TestAddressHelpers(t *testing.T) {
	list := []Address{
		{ID: "1", FirstName: "A", LastName: "B", StreetAddress: "1 Main St", City: "Austin", State: "TX", PostalCode: "73301", Country: "US"},
		{ID: "2", FirstName: "C", LastName: "D", IsDefault: true},
	}

	def, ok := DefaultAddress(list)
	require.True(t, ok)
	assert.Equal(t, shared.ID("2"), def.ID)

	found, ok := FindAddress(list, "1")
	require.True(t, ok)
	assert.Equal(t, "A B, 1 Main St, Austin, TX 73301, US", found.OneLine())

	_, ok = FindAddress(list, "9")
	assert.False(t, ok)

	require.NoError(t, shared.Validate(list[0]))
	assert.Error(t, shared.Validate(list[1]))
}

func TestPaymentMethodLabel(t *testing.T) {
	card := PaymentMethod{Type: "credit_card", CreditCard: &CreditCard{CardBrand: "visa", LastFour: "4242"}}
	assert.Equal(t, "VISA **** **** **** 4242", card.Label())

	assert.Equal(t, "apple pay", (&PaymentMethod{Type: "apple_pay"}).Label())
	assert.Equal(t, "Work card", (&PaymentMethod{DisplayName: "Work card"}).Label())

	_, ok := DefaultPaymentMethod([]PaymentMethod{card})
	assert.False(t, ok)

	assert.Error(t, shared.Validate(PaymentMethod{Type: "cash"}))
}
