package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/storefront/client/internal/application/admin"
	"github.com/storefront/client/internal/domain/catalog"
	"github.com/storefront/client/internal/domain/order"
	"github.com/storefront/client/internal/domain/shared"
	"github.com/storefront/client/internal/infrastructure/storeapi"
)

const adminUsage = "admin [stats | watch | orders | order-stats | order-status | bulk-status | export | products | product-status]"

func runAdmin(ctx context.Context, a *app, p *printer, args []string) error {
	if len(args) == 0 {
		return usageError(adminUsage)
	}
	if err := a.requireAdmin(); err != nil {
		return err
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "stats":
		return adminStats(ctx, a, p)
	case "watch":
		return adminWatch(ctx, a, p, rest)
	case "orders":
		return adminOrders(ctx, a, p, rest)
	case "order-stats":
		return adminOrderStats(ctx, a, p)
	case "order-status":
		return adminOrderStatus(ctx, a, p, rest)
	case "bulk-status":
		return adminBulkStatus(ctx, a, p, rest)
	case "export":
		return adminExport(ctx, a, p, rest)
	case "products":
		return adminProducts(ctx, a, p, rest)
	case "product-status":
		if err := needArgs(rest, 2, "admin product-status <id> <status>"); err != nil {
			return err
		}
		if err := a.products.SetStatus(ctx, shared.ID(rest[0]), rest[1]); err != nil {
			return err
		}
		return p.message("Product %s is now %s", rest[0], rest[1])
	default:
		return usageError(adminUsage)
	}
}

func adminStats(ctx context.Context, a *app, p *printer) error {
	d := a.dashboard()
	if err := loadDashboard(ctx, a, d); err != nil {
		return err
	}
	snap := d.Snapshot()
	return p.print(snap.Stats, func(t *tabwriter.Writer) { statsTable(t, snap) })
}

// adminWatch keeps the dashboard open and prints it after every pushed
// change until the duration elapses or the command is interrupted.
func adminWatch(ctx context.Context, a *app, p *printer, args []string) error {
	var forDur time.Duration
	if _, err := parseFlags("admin watch", args, func(fs *pflag.FlagSet) {
		fs.DurationVar(&forDur, "for", 0, "Stop after this long (default: until interrupted)")
	}); err != nil {
		return err
	}
	if forDur > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, forDur)
		defer cancel()
	}

	changes := make(chan struct{}, 1)
	orderUpdates := make(chan struct{}, 1)
	notify := func(ch chan struct{}) {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	d := a.dashboard(
		admin.OnChange(func() { notify(changes) }),
		admin.OnOrderUpdate(func(context.Context) { notify(orderUpdates) }),
	)
	defer d.Close()

	if err := loadDashboard(ctx, a, d); err != nil {
		return err
	}
	if err := d.Subscribe(ctx); err != nil {
		a.log.Warn("Live updates unavailable, showing loaded stats only", zap.Error(err))
	}

	render := func() error {
		snap := d.Snapshot()
		return p.print(snap.Stats, func(t *tabwriter.Writer) {
			fmt.Fprintf(t, "--- %s ---\n", time.Now().Format("15:04:05"))
			statsTable(t, snap)
		})
	}
	if err := render(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			if err := render(); err != nil {
				return err
			}
		case <-orderUpdates:
			listing, err := a.orders.List(ctx, storeapi.OrderFilter{Limit: 5}, 1)
			if err != nil {
				a.log.Warn("Failed to reload orders", zap.Error(err))
				continue
			}
			if err := p.print(listing.Orders, func(t *tabwriter.Writer) {
				fmt.Fprintln(t, "Latest orders:")
				orderTable(t, listing.Orders)
			}); err != nil {
				return err
			}
		}
	}
}

// loadDashboard fails only when the headline stats could not be loaded;
// missing secondary sections are listed in the output instead.
func loadDashboard(ctx context.Context, a *app, d *admin.Dashboard) error {
	err := d.Load(ctx)
	if err == nil {
		return nil
	}
	snap := d.Snapshot()
	if msg, failed := snap.Errors["stats"]; failed || len(snap.Stats) == 0 {
		if failed {
			a.log.Debug("Dashboard stats failed", zap.String("error", msg))
		}
		return err
	}
	a.log.Debug("Some dashboard sections are unavailable", zap.Error(err))
	return nil
}

func statsTable(t *tabwriter.Writer, snap admin.Snapshot) {
	live := "offline"
	if snap.Connected {
		live = "live"
	}
	row(t, "Dashboard", live)
	keys := make([]string, 0, len(snap.Stats))
	for k := range snap.Stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		row(t, k, snap.Stats[k])
	}
	sections := make([]string, 0, len(snap.Sections))
	for name := range snap.Sections {
		sections = append(sections, name)
	}
	sort.Strings(sections)
	for _, name := range sections {
		row(t, name, compact(snap.Sections[name]))
	}
	for section := range snap.Errors {
		row(t, section, "unavailable")
	}
}

func adminOrders(ctx context.Context, a *app, p *printer, args []string) error {
	var (
		f        storeapi.OrderFilter
		page     int
		from, to string
		oldest   bool
	)
	if _, err := parseFlags("admin orders", args, func(fs *pflag.FlagSet) {
		fs.StringSliceVar(&f.Statuses, "status", nil, "Order status (repeatable)")
		fs.StringSliceVar(&f.PaymentStatuses, "payment-status", nil, "Payment status (repeatable)")
		fs.StringVar(&f.Search, "search", "", "Order number or customer search")
		fs.StringVar(&from, "from", "", "Placed on or after (YYYY-MM-DD)")
		fs.StringVar(&to, "to", "", "Placed on or before (YYYY-MM-DD)")
		fs.StringVar(&f.SortBy, "sort", "", "Sort field (default created_at)")
		fs.BoolVar(&oldest, "oldest", false, "Oldest first")
		fs.IntVar(&page, "page", 1, "Page number")
	}); err != nil {
		return err
	}
	var err error
	if f.DateFrom, err = parseDay(from); err != nil {
		return err
	}
	if f.DateTo, err = parseDay(to); err != nil {
		return err
	}
	if oldest {
		f.SortOrder = "1"
	}

	listing, err := a.orders.List(ctx, f, page)
	if err != nil {
		return err
	}
	return p.print(listing, func(t *tabwriter.Writer) {
		orderTable(t, listing.Orders)
		fmt.Fprintf(t, "\npage %d of %d, %d orders\n", listing.Page, listing.TotalPages, listing.Total)
	})
}

func parseDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return nil, usageError(fmt.Sprintf("invalid date %q, want YYYY-MM-DD", s))
	}
	return &d, nil
}

func adminOrderStats(ctx context.Context, a *app, p *printer) error {
	st, err := a.orders.Stats(ctx)
	if err != nil {
		return err
	}
	return p.print(st, func(t *tabwriter.Writer) {
		row(t, "Total orders", st.TotalOrders)
		row(t, "Revenue", formatPrice(st.TotalRevenue))
		row(t, "Average order", formatPrice(st.AverageOrder))
		row(t, "Pending", st.PendingOrders)
		row(t, "Today", fmt.Sprintf("%d (%s)", st.TodayOrders, formatPrice(st.TodayRevenue)))
		for _, s := range order.Statuses() {
			if n, ok := st.StatusCounts[string(s)]; ok {
				row(t, "  "+statusLabel(s), n)
			}
		}
	})
}

func adminOrderStatus(ctx context.Context, a *app, p *printer, args []string) error {
	var change admin.StatusChange
	fs, err := parseFlags("admin order-status", args, func(fs *pflag.FlagSet) {
		fs.StringVar(&change.TrackingNumber, "tracking", "", "Tracking number")
		fs.StringVar(&change.Notes, "notes", "", "Internal notes")
	})
	if err != nil {
		return err
	}
	if err := needArgs(fs.Args(), 2, "admin order-status <id> <status> [--tracking <no>] [--notes <text>]"); err != nil {
		return err
	}
	change.Status = order.Status(fs.Arg(1))
	res, err := a.orders.UpdateStatus(ctx, shared.ID(fs.Arg(0)), change)
	if err != nil {
		return err
	}
	return p.print(res.Order, func(t *tabwriter.Writer) {
		if res.Warning != "" {
			row(t, "Warning", res.Warning)
		}
		row(t, "Order", res.Order.OrderNumber)
		row(t, "Status", statusLabel(res.Order.Status))
		row(t, "Payment", res.Order.PaymentStatus)
		if res.Order.TrackingNumber != "" {
			row(t, "Tracking number", res.Order.TrackingNumber)
		}
	})
}

func adminBulkStatus(ctx context.Context, a *app, p *printer, args []string) error {
	if err := needArgs(args, 2, "admin bulk-status <status> <id>..."); err != nil {
		return err
	}
	ids := make([]shared.ID, 0, len(args)-1)
	for _, s := range args[1:] {
		ids = append(ids, shared.ID(s))
	}
	res, err := a.orders.BulkUpdateStatus(ctx, ids, order.Status(args[0]))
	if err != nil {
		return err
	}
	return p.print(res, func(t *tabwriter.Writer) {
		row(t, "Updated", res.UpdatedCount)
		if len(res.FailedIDs) > 0 {
			row(t, "Failed", fmt.Sprint(res.FailedIDs))
		}
	})
}

func adminExport(ctx context.Context, a *app, p *printer, args []string) error {
	var (
		f    storeapi.OrderFilter
		path string
	)
	if _, err := parseFlags("admin export", args, func(fs *pflag.FlagSet) {
		fs.StringSliceVar(&f.Statuses, "status", nil, "Order status (repeatable)")
		fs.StringVar(&path, "file", "", "Output file (default: the name the server suggests)")
	}); err != nil {
		return err
	}
	exp, err := a.orders.Export(ctx, f)
	if err != nil {
		return err
	}
	if path == "" {
		path = exp.Filename
	}
	if err := os.WriteFile(path, exp.Data, 0o644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return p.message("Exported %d bytes to %s", len(exp.Data), path)
}

func adminProducts(ctx context.Context, a *app, p *printer, args []string) error {
	var (
		f      catalog.Filter
		status string
		page   int
	)
	if _, err := parseFlags("admin products", args, func(fs *pflag.FlagSet) {
		fs.StringVar(&f.Search, "search", "", "Search text")
		fs.StringVar(&status, "status", "", "Product status: active, inactive, draft, discontinued")
		fs.IntVar(&page, "page", 1, "Page number")
		fs.IntVar(&f.Limit, "limit", 20, "Products per page")
	}); err != nil {
		return err
	}
	if status != "" {
		f.Extra = map[string][]string{"status": {status}}
	}
	if page < 1 {
		page = 1
	}
	f.Skip = (page - 1) * f.Limit

	res, err := a.products.List(ctx, f)
	if err != nil {
		return err
	}
	return p.print(res, func(t *tabwriter.Writer) { productTable(t, res, page) })
}

// compact renders a section as key=value pairs in key order.
func compact(s storeapi.Stats) string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, s[k]))
	}
	return strings.Join(parts, " ")
}
