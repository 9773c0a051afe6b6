// Package tracking builds the order tracking view.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/storefront/client/internal/domain/order"
	"github.com/storefront/client/internal/domain/shared"
	"github.com/storefront/client/internal/infrastructure/httpclient"
	"github.com/storefront/client/internal/infrastructure/logger"
)

// OrderReader fetches orders.
type OrderReader interface {
	Get(ctx context.Context, id shared.ID) (*order.Order, error)
	GetByNumber(ctx context.Context, number string) (*order.Order, error)
}

// Totals are the formatted amounts of an order.
type Totals struct {
	Subtotal string
	Shipping string
	Tax      string
	Discount string
	Total    string
}

// View is everything the tracking page shows for one order.
type View struct {
	Order          *order.Order
	Status         order.Meta
	KnownStatus    bool
	Steps          []order.Step
	Next           *order.Hint
	Timeline       []order.Event
	Payment        string
	PaymentEvents  []order.Event
	Totals         Totals
	ShippingLines  []string
	TrackingNumber string
}

// NewView derives the view model for o.
func NewView(o *order.Order) *View {
	meta, known := order.Lookup(o.Status)
	v := &View{
		Order:          o,
		Status:         meta,
		KnownStatus:    known,
		Steps:          order.Steps(o.Status),
		Timeline:       order.Timeline(o),
		PaymentEvents:  order.PaymentTimeline(o),
		Totals:         formatTotals(o),
		TrackingNumber: o.TrackingNumber,
	}
	if o.PaymentStatus != "" {
		v.Payment = order.Label(order.Status(o.PaymentStatus))
	}
	if h, ok := order.NextStep(o.Status); ok {
		v.Next = &h
	}
	if o.ShippingAddress != nil {
		v.ShippingLines = addressLines(o.ShippingAddress)
	}
	return v
}

func formatTotals(o *order.Order) Totals {
	cur := o.Currency
	if cur == "" {
		cur = shared.DefaultCurrency
	}
	t := Totals{
		Subtotal: shared.FormatPrice(o.Subtotal, cur),
		Shipping: "FREE",
		Tax:      shared.FormatPrice(o.TaxAmount, cur),
		Total:    shared.FormatPrice(o.TotalAmount, cur),
	}
	if o.ShippingCost > 0 {
		t.Shipping = shared.FormatPrice(o.ShippingCost, cur)
	}
	if o.DiscountAmount > 0 {
		t.Discount = "-" + shared.FormatPrice(o.DiscountAmount, cur)
	}
	return t
}

func addressLines(a *order.Address) []string {
	lines := []string{
		strings.TrimSpace(a.FirstName + " " + a.LastName),
		a.AddressLine1,
		a.AddressLine2,
		strings.TrimSpace(fmt.Sprintf("%s, %s %s", a.City, a.State, a.PostalCode)),
		a.Country,
		a.Phone,
	}
	out := lines[:0]
	for _, l := range lines {
		if strings.Trim(l, ", ") != "" {
			out = append(out, l)
		}
	}
	return out
}

// Service loads orders for tracking.
type Service struct {
	orders OrderReader
	logger *zap.Logger
}

// NewService creates a tracking service.
func NewService(orders OrderReader, l *zap.Logger) *Service {
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{orders: orders, logger: l}
}

// Track looks up an order by id or, when ref is not numeric, by order
// number, and returns its view. Unknown orders yield shared.ErrNotFound.
func (s *Service) Track(ctx context.Context, ref string) (*View, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, shared.ErrInvalidInput
	}

	var (
		o   *order.Order
		err error
	)
	id := shared.ID(ref)
	if _, numeric := id.Int(); numeric {
		o, err = s.orders.Get(ctx, id)
	} else {
		o, err = s.orders.GetByNumber(ctx, ref)
	}
	if err != nil {
		if apiErr, ok := httpclient.AsAPIError(err); ok && apiErr.IsNotFound() {
			return nil, fmt.Errorf("order %s: %w", ref, shared.ErrNotFound)
		}
		logger.WithLogger(ctx, s.logger).Error("Failed to load order", zap.String("ref", ref), zap.Error(err))
		return nil, fmt.Errorf("loading order %s: %w", ref, err)
	}
	if o == nil {
		return nil, errors.New("loading order: empty response")
	}
	return NewView(o), nil
}
