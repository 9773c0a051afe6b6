// Package admin implements the back-office workflows: the live dashboard,
// order management and product management.
package admin

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/storefront/client/internal/infrastructure/realtime"
	"github.com/storefront/client/internal/infrastructure/storeapi"
)

// DashboardChannel is the realtime channel that pushes dashboard updates.
const DashboardChannel = "admin-dashboard"

// Dashboard section names.
const (
	SectionPerformance  = "performance"
	SectionSatisfaction = "satisfaction"
	SectionTraffic      = "traffic"
	SectionSystem       = "system"
)

// StatsSource serves the dashboard reads.
type StatsSource interface {
	DashboardStats(ctx context.Context) (storeapi.Stats, error)
	PerformanceMetrics(ctx context.Context) (storeapi.Stats, error)
	CustomerSatisfaction(ctx context.Context) (storeapi.Stats, error)
	TrafficSources(ctx context.Context) (storeapi.Stats, error)
	SystemStatus(ctx context.Context) (storeapi.Stats, error)
}

// Subscriber opens realtime channels.
type Subscriber interface {
	Connect(ctx context.Context, channel string, h realtime.Handler) (*realtime.Channel, error)
}

// Snapshot is a consistent copy of the dashboard state.
type Snapshot struct {
	Stats     map[string]any
	Sections  map[string]storeapi.Stats
	Connected bool
	Errors    map[string]string
}

// Dashboard keeps the admin dashboard state. The initial load comes from
// REST; afterwards stats_update pushes are merged into Stats key by key
// and order_update pushes trigger the orders reload callback. Without a
// realtime connection the loaded state simply stays as it is.
type Dashboard struct {
	source StatsSource
	sub    Subscriber
	logger *zap.Logger

	mu        sync.RWMutex
	stats     map[string]any
	sections  map[string]storeapi.Stats
	errs      map[string]string
	connected bool
	channel   *realtime.Channel

	onOrders func(ctx context.Context)
	onChange func()
}

// DashboardOption configures a Dashboard.
type DashboardOption func(*Dashboard)

// WithDashboardLogger sets the logger.
func WithDashboardLogger(l *zap.Logger) DashboardOption {
	return func(d *Dashboard) { d.logger = l }
}

// OnOrderUpdate registers the callback run for order_update pushes.
func OnOrderUpdate(fn func(ctx context.Context)) DashboardOption {
	return func(d *Dashboard) { d.onOrders = fn }
}

// OnChange registers a callback run after every state change.
func OnChange(fn func()) DashboardOption {
	return func(d *Dashboard) { d.onChange = fn }
}

// NewDashboard creates a dashboard. sub may be nil for a static dashboard.
func NewDashboard(source StatsSource, sub Subscriber, opts ...DashboardOption) *Dashboard {
	d := &Dashboard{
		source:   source,
		sub:      sub,
		logger:   zap.NewNop(),
		stats:    map[string]any{},
		sections: map[string]storeapi.Stats{},
		errs:     map[string]string{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Load fetches every dashboard section in parallel. Sections fail
// independently; their errors are kept in the snapshot and the joined
// error is returned.
func (d *Dashboard) Load(ctx context.Context) error {
	type section struct {
		name  string
		fetch func(context.Context) (storeapi.Stats, error)
	}
	sections := []section{
		{"stats", d.source.DashboardStats},
		{SectionPerformance, d.source.PerformanceMetrics},
		{SectionSatisfaction, d.source.CustomerSatisfaction},
		{SectionTraffic, d.source.TrafficSources},
		{SectionSystem, d.source.SystemStatus},
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, s := range sections {
		g.Go(func() error {
			data, err := s.fetch(ctx)
			d.mu.Lock()
			if err != nil {
				d.errs[s.name] = err.Error()
			} else {
				delete(d.errs, s.name)
				if s.name == "stats" {
					for k, v := range Summarize(data) {
						d.stats[k] = v
					}
				} else {
					d.sections[s.name] = data
				}
			}
			d.mu.Unlock()
			if err != nil {
				d.logger.Warn("Failed to load dashboard section", zap.String("section", s.name), zap.Error(err))
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	d.changed()
	return errors.Join(errs...)
}

// Summarize flattens the nested dashboard stats document into the
// headline figures.
func Summarize(s storeapi.Stats) map[string]any {
	out := map[string]any{}
	pick := func(key, section, field string) {
		if m, ok := s[section].(map[string]any); ok {
			if v, ok := m[field]; ok {
				out[key] = v
			}
		}
	}
	pick("total_sales", "orders", "total_revenue")
	pick("total_orders", "orders", "total_orders")
	pick("pending_orders", "orders", "pending_orders")
	pick("total_customers", "users", "total_users")
	pick("total_products", "products", "total_products")
	pick("revenue", "revenue", "total")
	return out
}

// Subscribe connects to the dashboard channel. A failed connection leaves
// the dashboard on its loaded data.
func (d *Dashboard) Subscribe(ctx context.Context) error {
	if d.sub == nil {
		return nil
	}
	ch, err := d.sub.Connect(ctx, DashboardChannel, d.Handle)
	if err != nil {
		d.logger.Warn("Dashboard realtime unavailable, using loaded data", zap.Error(err))
		return err
	}
	d.mu.Lock()
	d.channel = ch
	d.mu.Unlock()
	return nil
}

// Handle applies one realtime message.
func (d *Dashboard) Handle(ctx context.Context, msg realtime.Message) {
	switch msg.Type {
	case realtime.TypeStatsUpdate:
		var update map[string]any
		if err := msg.DecodeData(&update); err != nil {
			d.logger.Warn("Invalid stats_update payload", zap.Error(err))
			return
		}
		d.mu.Lock()
		for k, v := range update {
			d.stats[k] = v
		}
		d.mu.Unlock()
	case realtime.TypeOrderUpdate:
		if d.onOrders != nil {
			d.onOrders(ctx)
		}
		return
	case realtime.TypeAuthSuccess:
		d.setConnected(true)
	case realtime.TypeAuthFailed, realtime.TypeAuthRequired:
		d.setConnected(false)
	default:
		return
	}
	d.changed()
}

// Disconnected marks the realtime link as down. It is meant for the
// realtime client's close and error handlers.
func (d *Dashboard) Disconnected() {
	d.setConnected(false)
	d.changed()
}

func (d *Dashboard) setConnected(v bool) {
	d.mu.Lock()
	d.connected = v
	d.mu.Unlock()
}

func (d *Dashboard) changed() {
	if d.onChange != nil {
		d.onChange()
	}
}

// Snapshot returns a copy of the current state.
func (d *Dashboard) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s := Snapshot{
		Stats:     make(map[string]any, len(d.stats)),
		Sections:  make(map[string]storeapi.Stats, len(d.sections)),
		Errors:    make(map[string]string, len(d.errs)),
		Connected: d.connected,
	}
	for k, v := range d.stats {
		s.Stats[k] = v
	}
	for k, v := range d.sections {
		s.Sections[k] = v
	}
	for k, v := range d.errs {
		s.Errors[k] = v
	}
	return s
}

// Close disconnects the realtime channel.
func (d *Dashboard) Close() error {
	d.mu.Lock()
	ch := d.channel
	d.channel = nil
	d.connected = false
	d.mu.Unlock()
	if ch == nil {
		return nil
	}
	return ch.Close()
}
