package identity

import (
	"fmt"
	"strings"

	"github.com/storefront/client/internal/domain/shared"
)

// Address is a saved address book entry.
type Address struct {
	ID            shared.ID `json:"id,omitempty" yaml:"id,omitempty"`
	Name          string    `json:"name,omitempty" yaml:"name,omitempty" validate:"max=50"`
	FirstName     string    `json:"first_name" yaml:"first_name" validate:"required"`
	LastName      string    `json:"last_name" yaml:"last_name" validate:"required"`
	StreetAddress string    `json:"street_address" yaml:"street_address" validate:"required"`
	City          string    `json:"city" yaml:"city" validate:"required"`
	State         string    `json:"state" yaml:"state" validate:"required"`
	PostalCode    string    `json:"postal_code" yaml:"postal_code" validate:"required"`
	Country       string    `json:"country" yaml:"country" validate:"required"`
	Phone         string    `json:"phone,omitempty" yaml:"phone,omitempty" validate:"omitempty,phone"`
	Type          string    `json:"type,omitempty" yaml:"type,omitempty" validate:"omitempty,oneof=shipping billing both"`
	IsDefault     bool      `json:"is_default" yaml:"is_default"`
}

// OneLine renders the address on a single line.
func (a *Address) OneLine() string {
	parts := []string{strings.TrimSpace(a.FirstName + " " + a.LastName), a.StreetAddress,
		fmt.Sprintf("%s, %s %s", a.City, a.State, a.PostalCode), a.Country}
	out := parts[:0]
	for _, p := range parts {
		if strings.Trim(p, ", ") != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

// DefaultAddress returns the address flagged as default, if any.
func DefaultAddress(list []Address) (*Address, bool) {
	for i := range list {
		if list[i].IsDefault {
			return &list[i], true
		}
	}
	return nil, false
}

// FindAddress returns the address with the given id.
func FindAddress(list []Address, id shared.ID) (*Address, bool) {
	for i := range list {
		if list[i].ID == id {
			return &list[i], true
		}
	}
	return nil, false
}
