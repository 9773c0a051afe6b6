package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/storefront/client/internal/domain/identity"
	"github.com/storefront/client/internal/domain/shared"
)

// PaymentAPI covers /payments.
type PaymentAPI struct {
	r Requester
}

// BillingRecord is one entry of the billing history.
type BillingRecord struct {
	ID            shared.ID  `json:"id" yaml:"id"`
	OrderID       shared.ID  `json:"order_id,omitempty" yaml:"order_id,omitempty"`
	OrderNumber   string     `json:"order_number,omitempty" yaml:"order_number,omitempty"`
	Amount        float64    `json:"amount" yaml:"amount"`
	Status        string     `json:"status" yaml:"status"`
	PaymentMethod string     `json:"payment_method,omitempty" yaml:"payment_method,omitempty"`
	Description   string     `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// PaymentList is the /payments/ listing. Some backends embed the billing
// history in it.
type PaymentList struct {
	Payments       []identity.PaymentMethod `json:"payments"`
	BillingHistory []BillingRecord          `json:"billing_history,omitempty"`
}

// List returns the saved payment methods.
func (p *PaymentAPI) List(ctx context.Context) (*PaymentList, error) {
	resp, err := p.r.Do(ctx, requestGet("/payments/", nil))
	if err != nil {
		return nil, err
	}
	out := &PaymentList{}
	body := bytes.TrimSpace(resp.Body)
	if len(body) > 0 && body[0] == '[' {
		err = json.Unmarshal(body, &out.Payments)
	} else if len(body) > 0 {
		err = json.Unmarshal(body, out)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding payments: %w", err)
	}
	return out, nil
}

// Get returns one payment method.
func (p *PaymentAPI) Get(ctx context.Context, id shared.ID) (*identity.PaymentMethod, error) {
	var out identity.PaymentMethod
	if err := get(ctx, p.r, resource("/payments/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create saves a payment method.
func (p *PaymentAPI) Create(ctx context.Context, pm identity.PaymentMethod) (*identity.PaymentMethod, error) {
	var out identity.PaymentMethod
	if err := sendOne(ctx, p.r, http.MethodPost, "/payments/", "payment", pm, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update replaces a payment method.
func (p *PaymentAPI) Update(ctx context.Context, id shared.ID, pm identity.PaymentMethod) (*identity.PaymentMethod, error) {
	var out identity.PaymentMethod
	if err := sendOne(ctx, p.r, http.MethodPut, resource("/payments/", id), "payment", pm, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a payment method.
func (p *PaymentAPI) Delete(ctx context.Context, id shared.ID) error {
	return send(ctx, p.r, http.MethodDelete, resource("/payments/", id), nil, nil)
}

// SetDefault marks a payment method as the default one.
func (p *PaymentAPI) SetDefault(ctx context.Context, id shared.ID) error {
	return send(ctx, p.r, http.MethodPut, resource("/payments/", id)+"/default", nil, nil)
}

// BillingHistory returns one page of past charges.
func (p *PaymentAPI) BillingHistory(ctx context.Context, skip, limit int) ([]BillingRecord, error) {
	var out []BillingRecord
	if err := getList(ctx, p.r, "/payments/billing/history/", pageQuery(skip, limit), "billing_history", &out); err != nil {
		return nil, err
	}
	return out, nil
}
