package identity

import (
	"fmt"
	"strings"

	"github.com/storefront/client/internal/domain/shared"
)

// CreditCard holds the card details of a stored payment method. The
// backend only ever returns the last four digits.
type CreditCard struct {
	CardNumber     string `json:"card_number,omitempty" yaml:"-" validate:"omitempty,numeric,min=12,max=19"`
	LastFour       string `json:"last_four,omitempty" yaml:"last_four,omitempty"`
	CardBrand      string `json:"card_brand,omitempty" yaml:"card_brand,omitempty"`
	CardholderName string `json:"cardholder_name,omitempty" yaml:"cardholder_name,omitempty"`
	ExpiryMonth    int    `json:"expiry_month,omitempty" yaml:"expiry_month,omitempty" validate:"omitempty,min=1,max=12"`
	ExpiryYear     int    `json:"expiry_year,omitempty" yaml:"expiry_year,omitempty"`
	CVV            string `json:"cvv,omitempty" yaml:"-" validate:"omitempty,numeric,min=3,max=4"`
}

// PaymentMethod is a saved payment method.
type PaymentMethod struct {
	ID          shared.ID   `json:"id,omitempty" yaml:"id,omitempty"`
	Type        string      `json:"type" yaml:"type" validate:"required,oneof=credit_card debit_card paypal apple_pay google_pay bank_transfer"`
	DisplayName string      `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	CreditCard  *CreditCard `json:"credit_card,omitempty" yaml:"credit_card,omitempty"`
	IsDefault   bool        `json:"is_default" yaml:"is_default"`
}

// Label is the human-readable name of the payment method.
func (p *PaymentMethod) Label() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if p.CreditCard == nil {
		return strings.ReplaceAll(p.Type, "_", " ")
	}
	brand := strings.ToUpper(p.CreditCard.CardBrand)
	if brand == "" {
		brand = "CARD"
	}
	last := p.CreditCard.LastFour
	if last == "" {
		last = "****"
	}
	return fmt.Sprintf("%s **** **** **** %s", brand, last)
}

// DefaultPaymentMethod returns the payment method flagged as default, if any.
func DefaultPaymentMethod(list []PaymentMethod) (*PaymentMethod, bool) {
	for i := range list {
		if list[i].IsDefault {
			return &list[i], true
		}
	}
	return nil, false
}
