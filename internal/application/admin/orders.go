package admin

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/storefront/client/internal/domain/order"
	"github.com/storefront/client/internal/domain/shared"
	"github.com/storefront/client/internal/infrastructure/storeapi"
)

// OrdersPageSize is the admin order listing page size.
const OrdersPageSize = 20

// OrderAdmin is the admin order API.
type OrderAdmin interface {
	ListOrders(ctx context.Context, f storeapi.OrderFilter) (*order.Page, error)
	GetOrder(ctx context.Context, id shared.ID) (*order.Order, error)
	UpdateOrderStatus(ctx context.Context, id shared.ID, u storeapi.OrderUpdate) (*order.Order, error)
	BulkUpdateOrderStatus(ctx context.Context, ids []shared.ID, status order.Status) (*storeapi.BulkResult, error)
	OrderStats(ctx context.Context) (*order.Stats, error)
	ExportOrders(ctx context.Context, f storeapi.OrderFilter) (*storeapi.Export, error)
}

// Orders manages orders from the back office.
type Orders struct {
	api    OrderAdmin
	logger *zap.Logger
}

// NewOrders creates the order management service.
func NewOrders(api OrderAdmin, l *zap.Logger) *Orders {
	if l == nil {
		l = zap.NewNop()
	}
	return &Orders{api: api, logger: l}
}

// OrderListing is one page of the admin order list.
type OrderListing struct {
	Orders     []order.Order
	Total      int
	Page       int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// List returns a 1-based page of orders matching f. f.Skip and f.Limit
// are derived from page; sorting defaults to newest first.
func (s *Orders) List(ctx context.Context, f storeapi.OrderFilter, page int) (*OrderListing, error) {
	if page < 1 {
		page = 1
	}
	f.Skip = (page - 1) * OrdersPageSize
	f.Limit = OrdersPageSize
	if f.SortBy == "" {
		f.SortBy = "created_at"
	}
	if f.SortOrder == "" {
		f.SortOrder = "-1"
	}
	if err := validateStatuses(f.Statuses); err != nil {
		return nil, err
	}

	res, err := s.api.ListOrders(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	pages := (res.Total + OrdersPageSize - 1) / OrdersPageSize
	return &OrderListing{
		Orders:     res.Orders,
		Total:      res.Total,
		Page:       page,
		TotalPages: pages,
		HasNext:    page < pages,
		HasPrev:    page > 1,
	}, nil
}

func validateStatuses(list []string) error {
	for _, st := range list {
		if !order.Status(st).IsValid() {
			return fmt.Errorf("%w: unknown order status %q", shared.ErrInvalidInput, st)
		}
	}
	return nil
}

// StatusChange is a requested status update. Empty tracking number and
// notes are sent as null.
type StatusChange struct {
	Status         order.Status
	TrackingNumber string
	Notes          string
}

// StatusResult is the updated order plus an advisory warning when the
// change skipped the usual fulfilment flow.
type StatusResult struct {
	Order   *order.Order
	Warning string
}

// UpdateStatus changes the status of one order. Unusual transitions are
// reported in the result but still submitted; the backend decides.
func (s *Orders) UpdateStatus(ctx context.Context, id shared.ID, change StatusChange) (*StatusResult, error) {
	if id.IsZero() || !change.Status.IsValid() {
		return nil, shared.ErrInvalidInput
	}

	res := &StatusResult{}
	current, err := s.api.GetOrder(ctx, id)
	if err != nil {
		s.logger.Warn("Could not load order before status change", zap.String("order_id", id.String()), zap.Error(err))
	} else if !current.Status.CanTransitionTo(change.Status) {
		res.Warning = fmt.Sprintf("Unusual status change from %s to %s", order.Label(current.Status), order.Label(change.Status))
		s.logger.Warn("Unusual order status transition",
			zap.String("order_id", id.String()),
			zap.String("from", current.Status.String()),
			zap.String("to", change.Status.String()))
	}

	update := storeapi.OrderUpdate{Status: change.Status}
	if tn := strings.TrimSpace(change.TrackingNumber); tn != "" {
		update.TrackingNumber = &tn
	}
	if notes := strings.TrimSpace(change.Notes); notes != "" {
		update.Notes = &notes
	}
	updated, err := s.api.UpdateOrderStatus(ctx, id, update)
	if err != nil {
		return nil, fmt.Errorf("updating order %s: %w", id, err)
	}
	res.Order = updated
	s.logger.Info("Order status updated", zap.String("order_id", id.String()), zap.String("status", change.Status.String()))
	return res, nil
}

// BulkUpdateStatus sets status on every order in ids.
func (s *Orders) BulkUpdateStatus(ctx context.Context, ids []shared.ID, status order.Status) (*storeapi.BulkResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no orders selected", shared.ErrInvalidInput)
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown order status %q", shared.ErrInvalidInput, status)
	}
	res, err := s.api.BulkUpdateOrderStatus(ctx, ids, status)
	if err != nil {
		return nil, fmt.Errorf("bulk updating orders: %w", err)
	}
	if len(res.FailedIDs) > 0 {
		s.logger.Warn("Some orders were not updated", zap.Int("failed", len(res.FailedIDs)))
	}
	return res, nil
}

// Stats returns the order aggregates.
func (s *Orders) Stats(ctx context.Context) (*order.Stats, error) {
	return s.api.OrderStats(ctx)
}

// Export downloads the orders matching f. A missing filename defaults to
// orders.csv.
func (s *Orders) Export(ctx context.Context, f storeapi.OrderFilter) (*storeapi.Export, error) {
	if err := validateStatuses(f.Statuses); err != nil {
		return nil, err
	}
	exp, err := s.api.ExportOrders(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("exporting orders: %w", err)
	}
	if exp.Filename == "" {
		exp.Filename = "orders.csv"
	}
	return exp, nil
}
