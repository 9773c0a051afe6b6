package sandbox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/storefront/client/internal/domain/cart"
	"github.com/storefront/client/internal/domain/order"
	"github.com/storefront/client/internal/domain/shared"
	"github.com/storefront/client/internal/infrastructure/realtime"
)

var errOutOfStock = errors.New("not enough stock")

type orderRequest struct {
	Items           []order.Item   `json:"items"`
	ShippingAddress *order.Address `json:"shipping_address"`
	BillingAddress  *order.Address `json:"billing_address"`
	PaymentMethod   string         `json:"payment_method"`
	ShippingMethod  string         `json:"shipping_method"`
	Notes           string         `json:"notes"`
}

func (s *Server) loadOrder(ctx context.Context, where string, args ...any) (*OrderModel, error) {
	var o OrderModel
	if err := s.db.WithContext(ctx).Preload("Items").Where(where, args...).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Server) createOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if len(req.Items) == 0 {
		fail(c, http.StatusBadRequest, "Order has no items")
		return
	}
	if req.ShippingAddress == nil {
		fail(c, http.StatusBadRequest, "Shipping address is required")
		return
	}
	u := currentUser(c)
	ctx := c.Request.Context()

	key := c.GetHeader("Idempotency-Key")
	if key != "" {
		if prev, err := s.loadOrder(ctx, "user_id = ? AND idempotency_key = ?", u.ID, key); err == nil {
			s.log.Info("Replayed order creation", zap.String("order_number", prev.OrderNumber))
			c.JSON(http.StatusOK, prev.toDomain())
			return
		}
	}

	m := OrderModel{
		OrderNumber:     "pending-" + uuid.NewString(),
		UserID:          u.ID,
		Status:          string(order.StatusPending),
		PaymentStatus:   string(order.PaymentPending),
		PaymentMethod:   req.PaymentMethod,
		ShippingMethod:  req.ShippingMethod,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		Notes:           req.Notes,
		IdempotencyKey:  key,
	}
	if m.ShippingMethod == "" {
		m.ShippingMethod = cart.ShippingStandard
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subtotal := decimal.Zero
		for _, it := range req.Items {
			pid, ok := it.ProductID.Int()
			if !ok || it.Quantity <= 0 {
				return fmt.Errorf("%w: invalid item", shared.ErrInvalidInput)
			}
			var p ProductModel
			if err := tx.First(&p, pid).Error; err != nil {
				return fmt.Errorf("%w: product %d", shared.ErrNotFound, pid)
			}
			if p.InventoryQuantity < it.Quantity {
				return fmt.Errorf("%w: %s", errOutOfStock, p.Name)
			}
			if err := tx.Model(&p).Update("inventory_quantity", p.InventoryQuantity-it.Quantity).Error; err != nil {
				return err
			}
			line := shared.Dec(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
			subtotal = subtotal.Add(line)
			name := it.ProductName
			if name == "" {
				name = p.Name
			}
			m.Items = append(m.Items, OrderItemModel{
				ProductID:    uint(pid),
				ProductName:  name,
				ProductImage: it.ProductImage,
				Quantity:     it.Quantity,
				Price:        it.Price,
				Size:         it.Size,
				Color:        it.Color,
				Subtotal:     shared.Cents(line),
			})
		}
		totals := cart.Compute(subtotal, m.ShippingMethod)
		m.Subtotal, m.ShippingCost, m.TaxAmount, m.TotalAmount = totals.Floats()

		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		m.OrderNumber = fmt.Sprintf("ORD-%d%04d", m.CreatedAt.Year(), m.ID)
		if err := tx.Model(&m).Update("order_number", m.OrderNumber).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", u.ID).Delete(&CartItemModel{}).Error
	})
	switch {
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, errOutOfStock):
		fail(c, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, shared.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error())
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	s.log.Info("Order created", zap.String("order_number", m.OrderNumber), zap.Float64("total", m.TotalAmount))
	s.notifyOrder(ctx, &m, "created")
	c.JSON(http.StatusCreated, m.toDomain())
}

func (s *Server) notifyOrder(ctx context.Context, m *OrderModel, action string) {
	s.hub.Broadcast(realtime.TypeOrderUpdate, gin.H{
		"order_id":     m.ID,
		"order_number": m.OrderNumber,
		"status":       m.Status,
		"action":       action,
	})
	if summary, err := s.statsSummary(ctx); err == nil {
		s.hub.Broadcast(realtime.TypeStatsUpdate, summary)
	}
}

func (s *Server) listOrders(c *gin.Context) {
	var rows []OrderModel
	err := s.db.WithContext(c.Request.Context()).Preload("Items").
		Where("user_id = ?", currentUser(c).ID).Order("created_at DESC, id DESC").Find(&rows).Error
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]order.Order, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}

// visible reports whether u may read o.
func visible(u *UserModel, o *OrderModel) bool {
	return u.admin() || o.UserID == u.ID
}

func (s *Server) getOrder(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	o, err := s.loadOrder(c.Request.Context(), "id = ?", id)
	if err != nil || !visible(currentUser(c), o) {
		fail(c, http.StatusNotFound, "Order not found")
		return
	}
	c.JSON(http.StatusOK, o.toDomain())
}

func (s *Server) getOrderByNumber(c *gin.Context) {
	o, err := s.loadOrder(c.Request.Context(), "order_number = ?", c.Param("number"))
	if err != nil || !visible(currentUser(c), o) {
		fail(c, http.StatusNotFound, "Order not found")
		return
	}
	c.JSON(http.StatusOK, o.toDomain())
}

type statusUpdate struct {
	Status         order.Status `json:"status"`
	TrackingNumber *string      `json:"tracking_number"`
	Notes          *string      `json:"notes"`
}

// applyStatus sets status and the timestamps and payment state that go
// with it.
func applyStatus(m *OrderModel, status order.Status, now time.Time) {
	m.Status = string(status)
	switch status {
	case order.StatusShipped:
		if m.ShippedAt == nil {
			m.ShippedAt = &now
		}
	case order.StatusDelivered:
		m.DeliveredAt = &now
		if m.PaymentStatus == string(order.PaymentPending) {
			m.PaymentStatus = string(order.PaymentPaid)
		}
	case order.StatusRefunded:
		m.PaymentStatus = string(order.PaymentRefunded)
	}
}

func (s *Server) updateOrder(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req statusUpdate
	if err := c.ShouldBindJSON(&req); err != nil || !req.Status.IsValid() {
		fail(c, http.StatusBadRequest, "Invalid status")
		return
	}
	ctx := c.Request.Context()
	o, err := s.loadOrder(ctx, "id = ?", id)
	if err != nil {
		fail(c, http.StatusNotFound, "Order not found")
		return
	}
	applyStatus(o, req.Status, time.Now())
	if req.TrackingNumber != nil {
		o.TrackingNumber = *req.TrackingNumber
	}
	if req.Notes != nil {
		o.Notes = *req.Notes
	}
	if err := s.db.WithContext(ctx).Omit("Items").Save(o).Error; err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	s.notifyOrder(ctx, o, "status_changed")
	c.JSON(http.StatusOK, gin.H{"message": "Order updated", "order": o.toDomain()})
}

func (s *Server) adminListOrders(c *gin.Context) {
	q := s.db.WithContext(c.Request.Context()).Model(&OrderModel{})
	if st := c.QueryArray("status"); len(st) > 0 {
		q = q.Where("status IN ?", st)
	}
	if ps := c.QueryArray("payment_status"); len(ps) > 0 {
		q = q.Where("payment_status IN ?", ps)
	}
	if search := c.Query("search"); search != "" {
		q = q.Where("order_number LIKE ?", "%"+search+"%")
	}
	if from, err := time.Parse(time.DateOnly, c.Query("date_from")); err == nil {
		q = q.Where("created_at >= ?", from)
	}
	if to, err := time.Parse(time.DateOnly, c.Query("date_to")); err == nil {
		q = q.Where("created_at < ?", to.AddDate(0, 0, 1))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	column := "created_at"
	switch c.Query("sort_by") {
	case "total_amount", "status", "order_number":
		column = c.Query("sort_by")
	}
	direction := " ASC"
	if c.DefaultQuery("sort_order", "-1") == "-1" {
		direction = " DESC"
	}
	skip := queryInt(c, "skip", 0)
	limit := queryInt(c, "limit", 20)
	if limit == 0 || limit > 200 {
		limit = 20
	}

	var rows []OrderModel
	if err := q.Preload("Items").Order(column + direction).Offset(skip).Limit(limit).Find(&rows).Error; err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	page := order.Page{Orders: make([]order.Order, 0, len(rows)), Total: int(total), Skip: skip, Limit: limit}
	for i := range rows {
		page.Orders = append(page.Orders, rows[i].toDomain())
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) bulkOrderStatus(c *gin.Context) {
	var req struct {
		OrderIDs []shared.ID `json:"order_ids"`
		Status   order.Status `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !req.Status.IsValid() || len(req.OrderIDs) == 0 {
		fail(c, http.StatusBadRequest, "order_ids and a valid status are required")
		return
	}
	ctx := c.Request.Context()
	now := time.Now()
	var (
		updated int
		failed  []shared.ID
	)
	for _, id := range req.OrderIDs {
		n, ok := id.Int()
		if !ok {
			failed = append(failed, id)
			continue
		}
		o, err := s.loadOrder(ctx, "id = ?", n)
		if err != nil {
			failed = append(failed, id)
			continue
		}
		applyStatus(o, req.Status, now)
		if err := s.db.WithContext(ctx).Omit("Items").Save(o).Error; err != nil {
			failed = append(failed, id)
			continue
		}
		updated++
	}
	if updated > 0 {
		s.hub.Broadcast(realtime.TypeOrderUpdate, gin.H{"action": "bulk_status", "status": req.Status, "count": updated})
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       strconv.Itoa(updated) + " orders updated",
		"updated_count": updated,
		"failed_ids":    failed,
	})
}

func (s *Server) computeOrderStats(ctx context.Context) (*order.Stats, error) {
	var rows []OrderModel
	if err := s.db.WithContext(ctx).Select("status", "payment_status", "total_amount", "created_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	st := &order.Stats{StatusCounts: map[string]int{}, PaymentCounts: map[string]int{}}
	revenue, today := decimal.Zero, decimal.Zero
	y, m, d := time.Now().Date()
	for _, o := range rows {
		st.TotalOrders++
		st.StatusCounts[o.Status]++
		st.PaymentCounts[o.PaymentStatus]++
		if o.Status == string(order.StatusPending) {
			st.PendingOrders++
		}
		if o.Status == string(order.StatusCancelled) || o.Status == string(order.StatusRefunded) {
			continue
		}
		revenue = revenue.Add(shared.Dec(o.TotalAmount))
		if oy, om, od := o.CreatedAt.Date(); oy == y && om == m && od == d {
			st.TodayOrders++
			today = today.Add(shared.Dec(o.TotalAmount))
		}
	}
	st.TotalRevenue = shared.Cents(revenue)
	st.TodayRevenue = shared.Cents(today)
	if st.TotalOrders > 0 {
		st.AverageOrder = shared.Cents(revenue.Div(decimal.NewFromInt(int64(st.TotalOrders))))
	}
	return st, nil
}

func (s *Server) orderStats(c *gin.Context) {
	st, err := s.computeOrderStats(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, st)
}

type storeCounts struct {
	orders   *order.Stats
	users    int64
	products int64
}

func (s *Server) counts(ctx context.Context) (*storeCounts, error) {
	st, err := s.computeOrderStats(ctx)
	if err != nil {
		return nil, err
	}
	out := &storeCounts{orders: st}
	db := s.db.WithContext(ctx)
	if err := db.Model(&UserModel{}).Where("role = ?", "user").Count(&out.users).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&ProductModel{}).Count(&out.products).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Server) dashboardStats(c *gin.Context) {
	n, err := s.counts(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": gin.H{
			"total_orders":   n.orders.TotalOrders,
			"total_revenue":  n.orders.TotalRevenue,
			"pending_orders": n.orders.PendingOrders,
			"today_orders":   n.orders.TodayOrders,
		},
		"users":    gin.H{"total_users": n.users},
		"products": gin.H{"total_products": n.products},
		"revenue":  gin.H{"total": n.orders.TotalRevenue, "today": n.orders.TodayRevenue},
	})
}

// systemStatus reports the health of the sandbox itself.
func (s *Server) systemStatus(c *gin.Context) {
	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		dbStatus = "unavailable"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":            "operational",
		"database":          dbStatus,
		"websocket_clients": s.hub.Clients(),
		"uptime_seconds":    int64(time.Since(s.startedAt).Seconds()),
	})
}

// statsSummary is the flat shape pushed as stats_update.
func (s *Server) statsSummary(ctx context.Context) (map[string]any, error) {
	n, err := s.counts(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"total_sales":     n.orders.TotalRevenue,
		"total_orders":    n.orders.TotalOrders,
		"pending_orders":  n.orders.PendingOrders,
		"total_customers": n.users,
		"total_products":  n.products,
		"revenue":         n.orders.TotalRevenue,
	}, nil
}
