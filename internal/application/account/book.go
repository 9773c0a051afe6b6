package account

import (
	"context"
	"fmt"

	"github.com/storefront/client/internal/domain/identity"
	"github.com/storefront/client/internal/domain/shared"
	"github.com/storefront/client/internal/infrastructure/storeapi"
)

// AddressAPI is the backend address book.
type AddressAPI interface {
	List(ctx context.Context) ([]identity.Address, error)
	Create(ctx context.Context, addr identity.Address) (*identity.Address, error)
	Update(ctx context.Context, id shared.ID, addr identity.Address) (*identity.Address, error)
	Delete(ctx context.Context, id shared.ID) error
	SetDefault(ctx context.Context, id shared.ID) error
}

// PaymentAPI is the backend payment method store.
type PaymentAPI interface {
	List(ctx context.Context) (*storeapi.PaymentList, error)
	Create(ctx context.Context, pm identity.PaymentMethod) (*identity.PaymentMethod, error)
	Update(ctx context.Context, id shared.ID, pm identity.PaymentMethod) (*identity.PaymentMethod, error)
	Delete(ctx context.Context, id shared.ID) error
	SetDefault(ctx context.Context, id shared.ID) error
}

// Addresses manages the address book.
type Addresses struct {
	api AddressAPI
}

// NewAddresses creates the address book service.
func NewAddresses(api AddressAPI) *Addresses {
	return &Addresses{api: api}
}

// List returns the saved addresses.
func (a *Addresses) List(ctx context.Context) ([]identity.Address, error) {
	return a.api.List(ctx)
}

// Save creates addr, or updates it when it has an id. When addr is
// flagged default the backend default is moved to it as well.
func (a *Addresses) Save(ctx context.Context, addr identity.Address) (*identity.Address, error) {
	if err := shared.Validate(addr); err != nil {
		return nil, err
	}
	var (
		saved *identity.Address
		err   error
	)
	if addr.ID.IsZero() {
		saved, err = a.api.Create(ctx, addr)
	} else {
		saved, err = a.api.Update(ctx, addr.ID, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("saving address: %w", err)
	}
	if addr.IsDefault && !saved.IsDefault {
		if err := a.api.SetDefault(ctx, saved.ID); err != nil {
			return saved, fmt.Errorf("setting default address: %w", err)
		}
		saved.IsDefault = true
	}
	return saved, nil
}

// SetDefault makes id the default address.
func (a *Addresses) SetDefault(ctx context.Context, id shared.ID) error {
	return a.api.SetDefault(ctx, id)
}

// Delete removes an address.
func (a *Addresses) Delete(ctx context.Context, id shared.ID) error {
	return a.api.Delete(ctx, id)
}

// Payments manages saved payment methods.
type Payments struct {
	api PaymentAPI
}

// NewPayments creates the payment method service.
func NewPayments(api PaymentAPI) *Payments {
	return &Payments{api: api}
}

// List returns the saved methods and billing history.
func (p *Payments) List(ctx context.Context) (*storeapi.PaymentList, error) {
	return p.api.List(ctx)
}

// Save creates pm, or updates it when it has an id. LastFour is filled
// from a full card number when missing.
func (p *Payments) Save(ctx context.Context, pm identity.PaymentMethod) (*identity.PaymentMethod, error) {
	if err := shared.Validate(pm); err != nil {
		return nil, err
	}
	if pm.CreditCard != nil {
		if n := pm.CreditCard.CardNumber; len(n) >= 4 && pm.CreditCard.LastFour == "" {
			pm.CreditCard.LastFour = n[len(n)-4:]
		}
	}
	var (
		saved *identity.PaymentMethod
		err   error
	)
	if pm.ID.IsZero() {
		saved, err = p.api.Create(ctx, pm)
	} else {
		saved, err = p.api.Update(ctx, pm.ID, pm)
	}
	if err != nil {
		return nil, fmt.Errorf("saving payment method: %w", err)
	}
	if pm.IsDefault && !saved.IsDefault {
		if err := p.api.SetDefault(ctx, saved.ID); err != nil {
			return saved, fmt.Errorf("setting default payment method: %w", err)
		}
		saved.IsDefault = true
	}
	return saved, nil
}

// SetDefault makes id the default payment method.
func (p *Payments) SetDefault(ctx context.Context, id shared.ID) error {
	return p.api.SetDefault(ctx, id)
}

// Delete removes a payment method.
func (p *Payments) Delete(ctx context.Context, id shared.ID) error {
	return p.api.Delete(ctx, id)
}
