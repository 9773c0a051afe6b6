package storeapi

import (
	"context"
	"net/http"

	"github.com/storefront/client/internal/domain/identity"
	"github.com/storefront/client/internal/domain/shared"
)

// AddressAPI covers /addresses.
type AddressAPI struct {
	r Requester
}

// List returns the saved addresses.
func (a *AddressAPI) List(ctx context.Context) ([]identity.Address, error) {
	var out []identity.Address
	if err := getList(ctx, a.r, "/addresses/", nil, "addresses", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one address.
func (a *AddressAPI) Get(ctx context.Context, id shared.ID) (*identity.Address, error) {
	var out identity.Address
	if err := get(ctx, a.r, resource("/addresses/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create saves a new address.
func (a *AddressAPI) Create(ctx context.Context, addr identity.Address) (*identity.Address, error) {
	var out identity.Address
	if err := sendOne(ctx, a.r, http.MethodPost, "/addresses/", "address", addr, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update replaces an address.
func (a *AddressAPI) Update(ctx context.Context, id shared.ID, addr identity.Address) (*identity.Address, error) {
	var out identity.Address
	if err := sendOne(ctx, a.r, http.MethodPut, resource("/addresses/", id), "address", addr, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes an address.
func (a *AddressAPI) Delete(ctx context.Context, id shared.ID) error {
	return send(ctx, a.r, http.MethodDelete, resource("/addresses/", id), nil, nil)
}

// SetDefault marks an address as the default one.
func (a *AddressAPI) SetDefault(ctx context.Context, id shared.ID) error {
	return send(ctx, a.r, http.MethodPut, resource("/addresses/", id)+"/default", nil, nil)
}
