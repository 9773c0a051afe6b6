package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/storefront/client/internal/domain/catalog"
	"github.com/storefront/client/internal/domain/identity"
	"github.com/storefront/client/internal/domain/order"
	"github.com/storefront/client/internal/domain/shared"
	"github.com/storefront/client/internal/infrastructure/debounce"
	"github.com/storefront/client/internal/infrastructure/httpclient"
)

// DefaultDebounceWindow coalesces bursts of dashboard reads.
const DefaultDebounceWindow = 100 * time.Millisecond

// Debounce keys for the dashboard reads.
const (
	KeyDashboardStats       = "dashboard-stats"
	KeyPerformanceMetrics   = "performance-metrics"
	KeyCustomerSatisfaction = "customer-satisfaction"
	KeyCustomerStats        = "customer-stats"
	KeyTrafficSources       = "traffic-sources"
	KeySystemStatus         = "system-status"
)

// AdminAPI covers the /admin endpoints and the admin views of /orders and
// /returns.
type AdminAPI struct {
	r      Requester
	log    *zap.Logger
	group  *debounce.Group[Stats]
	window time.Duration
}

func newAdminAPI(r Requester, o options) *AdminAPI {
	return &AdminAPI{
		r:      r,
		log:    o.logger,
		group:  debounce.New[Stats](debounce.WithMetrics(o.metrics)),
		window: o.debounceWindow,
	}
}

func (a *AdminAPI) close() {
	a.group.Close()
}

// debounced fetches path under key. The request keeps the caller's context
// values but not its cancellation, since other callers may share it.
func (a *AdminAPI) debounced(ctx context.Context, key, path string) (Stats, error) {
	return a.group.Do(ctx, key, a.window, func(gctx context.Context) (Stats, error) {
		rctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		stop := context.AfterFunc(gctx, cancel)
		defer stop()

		var out Stats
		if err := get(rctx, a.r, path, nil, &out); err != nil {
			a.log.Debug("debounced admin read failed", zap.String("key", key), zap.Error(err))
			return nil, err
		}
		return out, nil
	})
}

func (a *AdminAPI) document(ctx context.Context, path string, q url.Values) (any, error) {
	var out any
	if err := get(ctx, a.r, path, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DashboardStats returns the headline dashboard counters.
func (a *AdminAPI) DashboardStats(ctx context.Context) (Stats, error) {
	return a.debounced(ctx, KeyDashboardStats, "/admin/dashboard/stats")
}

// PerformanceMetrics returns backend performance figures.
func (a *AdminAPI) PerformanceMetrics(ctx context.Context) (Stats, error) {
	return a.debounced(ctx, KeyPerformanceMetrics, "/admin/performance/metrics")
}

// CustomerSatisfaction returns satisfaction scores.
func (a *AdminAPI) CustomerSatisfaction(ctx context.Context) (Stats, error) {
	return a.debounced(ctx, KeyCustomerSatisfaction, "/admin/customers/satisfaction")
}

// CustomerStats returns customer counters.
func (a *AdminAPI) CustomerStats(ctx context.Context) (Stats, error) {
	return a.debounced(ctx, KeyCustomerStats, "/admin/customers/stats")
}

// TrafficSources returns the traffic breakdown.
func (a *AdminAPI) TrafficSources(ctx context.Context) (Stats, error) {
	return a.debounced(ctx, KeyTrafficSources, "/admin/analytics/traffic")
}

// SystemStatus returns service health.
func (a *AdminAPI) SystemStatus(ctx context.Context) (Stats, error) {
	return a.debounced(ctx, KeySystemStatus, "/admin/system/status")
}

// Users

// ListUsers returns all accounts.
func (a *AdminAPI) ListUsers(ctx context.Context) ([]identity.User, error) {
	var out []identity.User
	if err := getList(ctx, a.r, "/admin/users", nil, "users", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateUser creates an account.
func (a *AdminAPI) CreateUser(ctx context.Context, user any) (*identity.User, error) {
	var out identity.User
	if err := sendOne(ctx, a.r, http.MethodPost, "/admin/users", "user", user, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUser changes an account.
func (a *AdminAPI) UpdateUser(ctx context.Context, id shared.ID, update any) (*identity.User, error) {
	var out identity.User
	if err := sendOne(ctx, a.r, http.MethodPut, resource("/admin/users/", id), "user", update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUser removes an account.
func (a *AdminAPI) DeleteUser(ctx context.Context, id shared.ID) error {
	return send(ctx, a.r, http.MethodDelete, resource("/admin/users/", id), nil, nil)
}

// Security

// SecurityStats returns security counters across users.
func (a *AdminAPI) SecurityStats(ctx context.Context) (Stats, error) {
	var out Stats
	if err := get(ctx, a.r, "/admin/security/stats", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LoginHistory returns sign-ins, optionally for one user.
func (a *AdminAPI) LoginHistory(ctx context.Context, userID shared.ID, limit int) (any, error) {
	return a.document(ctx, "/admin/security/login-history", securityQuery(userID, "", limit))
}

// SecurityEvents returns security events filtered by user and type.
func (a *AdminAPI) SecurityEvents(ctx context.Context, userID shared.ID, eventType string, limit int) (any, error) {
	return a.document(ctx, "/admin/security/events", securityQuery(userID, eventType, limit))
}

// Devices returns connected devices, optionally for one user.
func (a *AdminAPI) Devices(ctx context.Context, userID shared.ID) (any, error) {
	return a.document(ctx, "/admin/security/devices", securityQuery(userID, "", 0))
}

// RunSecurityScan starts a scan and returns its report.
func (a *AdminAPI) RunSecurityScan(ctx context.Context) (Stats, error) {
	var out Stats
	if err := send(ctx, a.r, http.MethodPost, "/admin/security/scan", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func securityQuery(userID shared.ID, eventType string, limit int) url.Values {
	q := url.Values{}
	if !userID.IsZero() {
		q.Set("user_id", userID.String())
	}
	if eventType != "" {
		q.Set("event_type", eventType)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

// Inventory, marketing and analytics

// InventoryAlerts returns low-stock alerts.
func (a *AdminAPI) InventoryAlerts(ctx context.Context) (any, error) {
	return a.document(ctx, "/admin/inventory/alerts", nil)
}

// InventoryItems returns inventory levels.
func (a *AdminAPI) InventoryItems(ctx context.Context) (any, error) {
	return a.document(ctx, "/admin/inventory/items", nil)
}

// MarketingCampaigns returns campaigns.
func (a *AdminAPI) MarketingCampaigns(ctx context.Context) (any, error) {
	return a.document(ctx, "/admin/marketing/campaigns", nil)
}

// MarketingStats returns campaign counters.
func (a *AdminAPI) MarketingStats(ctx context.Context) (any, error) {
	return a.document(ctx, "/admin/marketing/stats", nil)
}

// SalesData returns the sales series.
func (a *AdminAPI) SalesData(ctx context.Context) (any, error) {
	return a.document(ctx, "/admin/analytics/sales-data", nil)
}

// TopProducts returns best sellers.
func (a *AdminAPI) TopProducts(ctx context.Context) (any, error) {
	return a.document(ctx, "/admin/analytics/top-products", nil)
}

// RecentOrders returns the latest orders summary.
func (a *AdminAPI) RecentOrders(ctx context.Context) (any, error) {
	return a.document(ctx, "/admin/analytics/recent-orders", nil)
}

// RevenueTrend returns the revenue series.
func (a *AdminAPI) RevenueTrend(ctx context.Context) (any, error) {
	return a.document(ctx, "/admin/analytics/revenue-trend", nil)
}

// Products

// ListProducts returns the admin product listing.
func (a *AdminAPI) ListProducts(ctx context.Context, params map[string]any) (*catalog.Page, error) {
	resp, err := a.r.Do(ctx, requestGet("/admin/products", Query(params)))
	if err != nil {
		return nil, err
	}
	return decodeProductPage(resp.Body)
}

// UpdateProductStatus sets a product's lifecycle status.
func (a *AdminAPI) UpdateProductStatus(ctx context.Context, id shared.ID, status string) error {
	return send(ctx, a.r, http.MethodPut, resource("/admin/products/", id)+"/status", map[string]string{"status": status}, nil)
}

// DeleteProduct removes a product.
func (a *AdminAPI) DeleteProduct(ctx context.Context, id shared.ID) error {
	return send(ctx, a.r, http.MethodDelete, resource("/admin/products/", id), nil, nil)
}

// BulkResult reports how many records a bulk update touched.
type BulkResult struct {
	Message      string      `json:"message,omitempty" yaml:"message,omitempty"`
	UpdatedCount int         `json:"updated_count" yaml:"updated_count"`
	FailedIDs    []shared.ID `json:"failed_ids,omitempty" yaml:"failed_ids,omitempty"`
}

// BulkUpdateProductStatus sets the status of many products.
func (a *AdminAPI) BulkUpdateProductStatus(ctx context.Context, ids []shared.ID, status string) (*BulkResult, error) {
	var out BulkResult
	body := map[string]any{"product_ids": ids, "status": status}
	if err := send(ctx, a.r, http.MethodPost, "/admin/products/bulk-status-update", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Orders

// OrderFilter selects orders in the admin listing and export.
type OrderFilter struct {
	Statuses        []string
	PaymentStatuses []string
	DateFrom        *time.Time
	DateTo          *time.Time
	Search          string
	Skip            int
	Limit           int
	SortBy          string
	SortOrder       string
}

// Query encodes the filter; multi-valued fields are repeated.
func (f OrderFilter) Query() url.Values {
	params := map[string]any{
		"status":         f.Statuses,
		"payment_status": f.PaymentStatuses,
		"search":         f.Search,
		"sort_by":        f.SortBy,
		"sort_order":     f.SortOrder,
	}
	if f.DateFrom != nil {
		params["date_from"] = f.DateFrom.Format(time.DateOnly)
	}
	if f.DateTo != nil {
		params["date_to"] = f.DateTo.Format(time.DateOnly)
	}
	if f.Skip > 0 {
		params["skip"] = f.Skip
	}
	if f.Limit > 0 {
		params["limit"] = f.Limit
	}
	return Query(params)
}

// ListOrders returns orders across all customers.
func (a *AdminAPI) ListOrders(ctx context.Context, f OrderFilter) (*order.Page, error) {
	resp, err := a.r.Do(ctx, requestGet("/admin/orders", f.Query()))
	if err != nil {
		return nil, err
	}
	page := &order.Page{Skip: f.Skip, Limit: f.Limit}
	body := bytes.TrimSpace(resp.Body)
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &page.Orders); err != nil {
			return nil, fmt.Errorf("decoding orders: %w", err)
		}
		page.Total = len(page.Orders)
		return page, nil
	}
	if err := json.Unmarshal(body, page); err != nil {
		return nil, fmt.Errorf("decoding orders: %w", err)
	}
	return page, nil
}

// GetOrder returns one order.
func (a *AdminAPI) GetOrder(ctx context.Context, id shared.ID) (*order.Order, error) {
	var out order.Order
	if err := get(ctx, a.r, resource("/orders/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OrderUpdate changes an order's status. Nil fields are sent as null.
type OrderUpdate struct {
	Status         order.Status `json:"status"`
	TrackingNumber *string      `json:"tracking_number"`
	Notes          *string      `json:"notes"`
}

// UpdateOrderStatus applies u to one order.
func (a *AdminAPI) UpdateOrderStatus(ctx context.Context, id shared.ID, u OrderUpdate) (*order.Order, error) {
	var out order.Order
	if err := sendOne(ctx, a.r, http.MethodPut, resource("/orders/", id), "order", u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BulkUpdateOrderStatus sets the status of many orders.
func (a *AdminAPI) BulkUpdateOrderStatus(ctx context.Context, ids []shared.ID, status order.Status) (*BulkResult, error) {
	var out BulkResult
	body := map[string]any{"order_ids": ids, "status": status}
	if err := send(ctx, a.r, http.MethodPatch, "/admin/orders/bulk-status", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OrderStats returns order aggregates.
func (a *AdminAPI) OrderStats(ctx context.Context) (*order.Stats, error) {
	var out order.Stats
	if err := get(ctx, a.r, "/admin/stats/orders", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Export is a downloaded file.
type Export struct {
	ContentType string
	Filename    string
	Data        []byte
}

// ExportOrders downloads the orders matching f, usually as CSV.
func (a *AdminAPI) ExportOrders(ctx context.Context, f OrderFilter) (*Export, error) {
	resp, err := a.r.Do(ctx, httpclient.Request{
		Method:  http.MethodGet,
		Path:    "/orders/export",
		Query:   f.Query(),
		Headers: map[string]string{"Accept": "text/csv, application/octet-stream, */*"},
	})
	if err != nil {
		return nil, err
	}
	return &Export{
		ContentType: resp.Headers.Get("Content-Type"),
		Filename:    attachmentName(resp.Headers.Get("Content-Disposition")),
		Data:        resp.Body,
	}, nil
}

// OrderAnalytics returns order analytics for the given parameters.
func (a *AdminAPI) OrderAnalytics(ctx context.Context, params map[string]any) (Stats, error) {
	var out Stats
	if err := get(ctx, a.r, "/orders/analytics", Query(params), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// OrderNotifications returns order related notifications.
func (a *AdminAPI) OrderNotifications(ctx context.Context) ([]Notification, error) {
	var out []Notification
	if err := getList(ctx, a.r, "/orders/notifications", nil, "notifications", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkOrderNotificationRead marks one order notification read.
func (a *AdminAPI) MarkOrderNotificationRead(ctx context.Context, id shared.ID) error {
	return send(ctx, a.r, http.MethodPut, resource("/orders/notifications/", id)+"/read", nil, nil)
}

// Returns

// ReturnRequest is a customer return or refund request.
type ReturnRequest struct {
	ID           shared.ID  `json:"id" yaml:"id"`
	OrderID      shared.ID  `json:"order_id" yaml:"order_id"`
	OrderNumber  string     `json:"order_number,omitempty" yaml:"order_number,omitempty"`
	Reason       string     `json:"reason" yaml:"reason"`
	Status       string     `json:"status" yaml:"status"`
	RefundAmount float64    `json:"refund_amount,omitempty" yaml:"refund_amount,omitempty"`
	AdminNotes   string     `json:"admin_notes,omitempty" yaml:"admin_notes,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// ListReturns returns return requests.
func (a *AdminAPI) ListReturns(ctx context.Context, params map[string]any) ([]ReturnRequest, error) {
	var out []ReturnRequest
	if err := getList(ctx, a.r, "/returns", Query(params), "returns", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateReturn changes a return request.
func (a *AdminAPI) UpdateReturn(ctx context.Context, id shared.ID, update any) (*ReturnRequest, error) {
	var out ReturnRequest
	if err := sendOne(ctx, a.r, http.MethodPut, resource("/returns/", id), "return", update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReturnStats returns return counters.
func (a *AdminAPI) ReturnStats(ctx context.Context) (Stats, error) {
	var out Stats
	if err := get(ctx, a.r, "/returns/stats", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func attachmentName(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
