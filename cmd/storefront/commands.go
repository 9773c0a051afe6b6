package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/storefront/client/internal/application/account"
	"github.com/storefront/client/internal/domain/cart"
	"github.com/storefront/client/internal/domain/catalog"
	"github.com/storefront/client/internal/domain/identity"
	"github.com/storefront/client/internal/domain/order"
	"github.com/storefront/client/internal/domain/shared"
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, p *printer, args []string) error
}

var commands = []command{
	{"login", "Sign in and remember the session", runLogin},
	{"register", "Create an account and sign in", runRegister},
	{"logout", "Forget the stored session", runLogout},
	{"whoami", "Show the signed-in user", runWhoami},
	{"profile", "Update first name, last name or phone", runProfile},
	{"addresses", "Manage saved addresses", runAddresses},
	{"payments", "Manage saved payment methods", runPayments},
	{"products", "Browse the catalog", runProducts},
	{"product", "Show one product", runProduct},
	{"cart", "Show or change the cart", runCart},
	{"checkout", "Place an order for the cart", runCheckout},
	{"orders", "List your orders", runOrders},
	{"track", "Track an order by id or number", runTrack},
	{"admin", "Back-office commands", runAdmin},
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// parseFlags parses args with a fresh flag set for one command.
func parseFlags(name string, args []string, define func(fs *pflag.FlagSet)) (*pflag.FlagSet, error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	if define != nil {
		define(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return fs, nil
}

func subcommand(args []string, fallback string) (string, []string) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return fallback, args
	}
	return args[0], args[1:]
}

func needArgs(args []string, n int, usage string) error {
	if len(args) < n {
		return usageError(usage)
	}
	return nil
}

// Account

func runLogin(ctx context.Context, a *app, p *printer, args []string) error {
	var creds identity.Credentials
	if _, err := parseFlags("login", args, func(fs *pflag.FlagSet) {
		fs.StringVar(&creds.Email, "email", "", "Account email")
		fs.StringVar(&creds.Password, "password", os.Getenv("STOREFRONT_PASSWORD"), "Password (or STOREFRONT_PASSWORD)")
		fs.BoolVar(&creds.RememberMe, "remember", false, "Keep the session for 30 days")
	}); err != nil {
		return err
	}
	u, err := a.account.Login(ctx, creds)
	if err != nil {
		return err
	}
	return p.message("Signed in as %s (%s)", u.Email, a.session.Role())
}

func runRegister(ctx context.Context, a *app, p *printer, args []string) error {
	var reg identity.Registration
	if _, err := parseFlags("register", args, func(fs *pflag.FlagSet) {
		fs.StringVar(&reg.FirstName, "first-name", "", "First name")
		fs.StringVar(&reg.LastName, "last-name", "", "Last name")
		fs.StringVar(&reg.Email, "email", "", "Email")
		fs.StringVar(&reg.Phone, "phone", "", "Phone number")
		fs.StringVar(&reg.Password, "password", os.Getenv("STOREFRONT_PASSWORD"), "Password (or STOREFRONT_PASSWORD)")
	}); err != nil {
		return err
	}
	reg.ConfirmPassword = reg.Password
	u, err := a.account.Register(ctx, reg)
	if err != nil {
		return err
	}
	return p.message("Welcome, %s! You are signed in.", u.FirstName)
}

func runLogout(ctx context.Context, a *app, p *printer, _ []string) error {
	if err := a.account.Logout(ctx); err != nil {
		return err
	}
	return p.message("Signed out")
}

func runWhoami(ctx context.Context, a *app, p *printer, _ []string) error {
	u, err := a.account.Current(ctx)
	if err != nil {
		return err
	}
	return p.print(u, func(t *tabwriter.Writer) {
		row(t, "ID", u.ID)
		row(t, "Name", strings.TrimSpace(u.FirstName+" "+u.LastName))
		row(t, "Email", u.Email)
		row(t, "Role", u.Role)
		if u.Phone != "" {
			row(t, "Phone", u.Phone)
		}
	})
}

func runProfile(ctx context.Context, a *app, p *printer, args []string) error {
	var upd account.ProfileUpdate
	fs, err := parseFlags("profile", args, func(fs *pflag.FlagSet) {
		fs.String("first-name", "", "First name")
		fs.String("last-name", "", "Last name")
		fs.String("phone", "", "Phone number")
	})
	if err != nil {
		return err
	}
	set := func(name string) *string {
		if !fs.Changed(name) {
			return nil
		}
		v, _ := fs.GetString(name)
		return &v
	}
	upd.FirstName, upd.LastName, upd.Phone = set("first-name"), set("last-name"), set("phone")
	if upd.FirstName == nil && upd.LastName == nil && upd.Phone == nil {
		return usageError("profile [--first-name <f>] [--last-name <l>] [--phone <n>]")
	}
	u, err := a.account.UpdateProfile(ctx, upd)
	if err != nil {
		return err
	}
	return p.message("Profile updated for %s", u.Email)
}

func runAddresses(ctx context.Context, a *app, p *printer, args []string) error {
	sub, rest := subcommand(args, "list")
	switch sub {
	case "list":
		list, err := a.addresses.List(ctx)
		if err != nil {
			return err
		}
		return p.print(list, func(t *tabwriter.Writer) {
			row(t, "ID", "DEFAULT", "NAME", "ADDRESS")
			for i := range list {
				ad := &list[i]
				row(t, ad.ID, mark(ad.IsDefault), strings.TrimSpace(ad.FirstName+" "+ad.LastName), ad.OneLine())
			}
		})
	case "add":
		var file string
		var makeDefault bool
		if _, err := parseFlags("addresses add", rest, func(fs *pflag.FlagSet) {
			fs.StringVarP(&file, "file", "f", "", "YAML file with the address")
			fs.BoolVar(&makeDefault, "default", false, "Make it the default address")
		}); err != nil {
			return err
		}
		if file == "" {
			return usageError("addresses add --file <addr.yaml> [--default]")
		}
		var addr identity.Address
		if err := readYAML(file, &addr); err != nil {
			return err
		}
		addr.IsDefault = addr.IsDefault || makeDefault
		saved, err := a.addresses.Save(ctx, addr)
		if err != nil {
			return err
		}
		return p.message("Saved address %s: %s", saved.ID, saved.OneLine())
	case "default":
		if err := needArgs(rest, 1, "addresses default <id>"); err != nil {
			return err
		}
		if err := a.addresses.SetDefault(ctx, shared.ID(rest[0])); err != nil {
			return err
		}
		return p.message("Address %s is now the default", rest[0])
	case "delete":
		if err := needArgs(rest, 1, "addresses delete <id>"); err != nil {
			return err
		}
		if err := a.addresses.Delete(ctx, shared.ID(rest[0])); err != nil {
			return err
		}
		return p.message("Address %s deleted", rest[0])
	default:
		return usageError("addresses [list | add | default <id> | delete <id>]")
	}
}

func runPayments(ctx context.Context, a *app, p *printer, args []string) error {
	sub, rest := subcommand(args, "list")
	switch sub {
	case "list":
		list, err := a.payments.List(ctx)
		if err != nil {
			return err
		}
		return p.print(list, func(t *tabwriter.Writer) {
			row(t, "ID", "DEFAULT", "TYPE", "LABEL")
			for i := range list.Payments {
				pm := &list.Payments[i]
				row(t, pm.ID, mark(pm.IsDefault), pm.Type, pm.Label())
			}
		})
	case "add":
		pm := identity.PaymentMethod{}
		card := identity.CreditCard{}
		if _, err := parseFlags("payments add", rest, func(fs *pflag.FlagSet) {
			fs.StringVar(&pm.Type, "type", "credit_card", "credit_card, debit_card, paypal, apple_pay, google_pay, bank_transfer")
			fs.StringVar(&pm.DisplayName, "name", "", "Display name")
			fs.BoolVar(&pm.IsDefault, "default", false, "Make it the default payment method")
			fs.StringVar(&card.CardNumber, "card-number", "", "Card number")
			fs.StringVar(&card.CardholderName, "holder", "", "Cardholder name")
			fs.IntVar(&card.ExpiryMonth, "expiry-month", 0, "Expiry month")
			fs.IntVar(&card.ExpiryYear, "expiry-year", 0, "Expiry year")
			fs.StringVar(&card.CVV, "cvv", "", "Security code")
		}); err != nil {
			return err
		}
		if card.CardNumber != "" {
			pm.CreditCard = &card
		}
		saved, err := a.payments.Save(ctx, pm)
		if err != nil {
			return err
		}
		return p.message("Saved payment method %s: %s", saved.ID, saved.Label())
	case "default":
		if err := needArgs(rest, 1, "payments default <id>"); err != nil {
			return err
		}
		if err := a.payments.SetDefault(ctx, shared.ID(rest[0])); err != nil {
			return err
		}
		return p.message("Payment method %s is now the default", rest[0])
	case "delete":
		if err := needArgs(rest, 1, "payments delete <id>"); err != nil {
			return err
		}
		if err := a.payments.Delete(ctx, shared.ID(rest[0])); err != nil {
			return err
		}
		return p.message("Payment method %s deleted", rest[0])
	default:
		return usageError("payments [list | add | default <id> | delete <id>]")
	}
}

// Shopping

func runProducts(ctx context.Context, a *app, p *printer, args []string) error {
	var (
		f          catalog.Filter
		page, size int
		minP, maxP float64
		descending bool
	)
	fs, err := parseFlags("products", args, func(fs *pflag.FlagSet) {
		fs.StringVar(&f.Search, "search", "", "Search text")
		fs.StringSliceVar(&f.Categories, "category", nil, "Category (repeatable)")
		fs.StringSliceVar(&f.Sizes, "size", nil, "Size (repeatable)")
		fs.StringSliceVar(&f.Colors, "color", nil, "Color (repeatable)")
		fs.Float64Var(&minP, "min-price", 0, "Minimum price")
		fs.Float64Var(&maxP, "max-price", 0, "Maximum price")
		fs.StringVar(&f.SortBy, "sort", "", "Sort field: price, name, rating, created_at")
		fs.BoolVar(&descending, "desc", false, "Sort descending")
		fs.IntVar(&page, "page", 1, "Page number")
		fs.IntVar(&size, "limit", 12, "Products per page")
	})
	if err != nil {
		return err
	}
	if fs.Changed("min-price") {
		f.MinPrice = &minP
	}
	if fs.Changed("max-price") {
		f.MaxPrice = &maxP
	}
	if descending {
		f.SortOrder = "1"
	}
	if page < 1 {
		page = 1
	}
	f.Limit = size
	f.Skip = (page - 1) * size

	res, err := a.api.Products.List(ctx, f)
	if err != nil {
		return err
	}
	return p.print(res, func(t *tabwriter.Writer) { productTable(t, res, page) })
}

func productTable(t *tabwriter.Writer, res *catalog.Page, page int) {
	row(t, "ID", "NAME", "CATEGORY", "PRICE", "STOCK", "RATING")
	for i := range res.Products {
		pr := &res.Products[i]
		price := shared.FormatPrice(pr.EffectivePrice(), shared.DefaultCurrency)
		if d := pr.Discount(); d > 0 {
			price = fmt.Sprintf("%s (-%d%%)", price, d)
		}
		row(t, pr.ID, pr.Name, pr.Category, price, pr.InventoryQuantity, fmt.Sprintf("%.1f", pr.Rating))
	}
	fmt.Fprintf(t, "\npage %d, %d products total\n", page, res.Total)
}

func runProduct(ctx context.Context, a *app, p *printer, args []string) error {
	if err := needArgs(args, 1, "product <id>"); err != nil {
		return err
	}
	pr, err := a.api.Products.Get(ctx, shared.ID(args[0]))
	if err != nil {
		return err
	}
	return p.print(pr, func(t *tabwriter.Writer) {
		row(t, "ID", pr.ID)
		row(t, "Name", pr.Name)
		row(t, "Price", shared.FormatPrice(pr.EffectivePrice(), shared.DefaultCurrency))
		row(t, "Category", pr.Category)
		row(t, "Sizes", strings.Join(pr.Sizes, ", "))
		row(t, "Colors", strings.Join(pr.Colors, ", "))
		row(t, "In stock", pr.InventoryQuantity)
		if pr.Description != "" {
			row(t, "Description", pr.Description)
		}
	})
}

func runCart(ctx context.Context, a *app, p *printer, args []string) error {
	sub, rest := subcommand(args, "show")
	var (
		size, color string
		qty         int
	)
	variant := func(fs *pflag.FlagSet) {
		fs.StringVar(&size, "size", "", "Size")
		fs.StringVar(&color, "color", "", "Color")
		fs.IntVar(&qty, "qty", 1, "Quantity")
	}

	var (
		c   *cart.Cart
		err error
	)
	switch sub {
	case "show":
		c, err = a.api.Cart.Get(ctx)
	case "add":
		fs, perr := parseFlags("cart add", rest, variant)
		if perr != nil {
			return perr
		}
		if err := needArgs(fs.Args(), 1, "cart add <product-id> [--qty n] [--size s] [--color c]"); err != nil {
			return err
		}
		c, err = mutated(a.api.Cart.Add(ctx, shared.ID(fs.Arg(0)), qty, size, color))
	case "update":
		fs, perr := parseFlags("cart update", rest, variant)
		if perr != nil {
			return perr
		}
		if err := needArgs(fs.Args(), 2, "cart update <product-id> <qty> [--size s] [--color c]"); err != nil {
			return err
		}
		var n int
		if _, serr := fmt.Sscan(fs.Arg(1), &n); serr != nil || n < 0 {
			return usageError("cart update <product-id> <qty>: qty must be a non-negative number")
		}
		c, err = mutated(a.api.Cart.UpdateQuantity(ctx, shared.ID(fs.Arg(0)), n, size, color))
	case "remove":
		fs, perr := parseFlags("cart remove", rest, variant)
		if perr != nil {
			return perr
		}
		if err := needArgs(fs.Args(), 1, "cart remove <product-id> [--size s] [--color c]"); err != nil {
			return err
		}
		c, err = mutated(a.api.Cart.Remove(ctx, shared.ID(fs.Arg(0)), size, color))
	case "import":
		if err := needArgs(rest, 1, "cart import <file.yaml>"); err != nil {
			return err
		}
		c, err = importCart(ctx, a, rest[0])
	default:
		return usageError("cart [show | add | update | remove | import]")
	}
	if err != nil {
		return err
	}
	return p.print(c, func(t *tabwriter.Writer) { cartTable(t, c) })
}

func mutated(m *cart.Mutation, err error) (*cart.Cart, error) {
	if err != nil {
		return nil, err
	}
	return m.Cart, nil
}

// cartFile is the format accepted by `cart import`.
type cartFile struct {
	Items []struct {
		ProductID int64  `yaml:"product_id"`
		Quantity  int    `yaml:"quantity"`
		Size      string `yaml:"size"`
		Color     string `yaml:"color"`
	} `yaml:"items"`
}

func importCart(ctx context.Context, a *app, path string) (*cart.Cart, error) {
	var f cartFile
	if err := readYAML(path, &f); err != nil {
		return nil, err
	}
	if len(f.Items) == 0 {
		return nil, fmt.Errorf("%w: %s lists no items", shared.ErrInvalidInput, path)
	}
	var last *cart.Cart
	for _, it := range f.Items {
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		m, err := a.api.Cart.Add(ctx, shared.IDFromInt(it.ProductID), qty, it.Size, it.Color)
		if err != nil {
			return nil, fmt.Errorf("adding product %d: %w", it.ProductID, err)
		}
		last = m.Cart
	}
	return last, nil
}

func cartTable(t *tabwriter.Writer, c *cart.Cart) {
	if c.IsEmpty() {
		fmt.Fprintln(t, "Your cart is empty")
		return
	}
	row(t, "PRODUCT", "NAME", "SIZE", "COLOR", "QTY", "PRICE", "LINE")
	for _, it := range c.Items {
		line := shared.Dec(it.Price).Mul(shared.Dec(float64(it.Quantity)))
		row(t, it.Product(), it.ProductName, it.Size, it.Color, it.Quantity,
			shared.FormatPrice(it.Price, shared.DefaultCurrency),
			shared.FormatPrice(shared.Cents(line), shared.DefaultCurrency))
	}
	totals := cart.Compute(c.EffectiveSubtotal(), cart.ShippingStandard)
	fmt.Fprintln(t)
	row(t, "Subtotal", "", "", "", "", "", formatDec(totals.Subtotal))
	row(t, "Shipping (standard)", "", "", "", "", "", formatDec(totals.Shipping))
	row(t, "Tax", "", "", "", "", "", formatDec(totals.Tax))
	row(t, "Total", "", "", "", "", "", formatDec(totals.Total))
}

func runOrders(ctx context.Context, a *app, p *printer, _ []string) error {
	list, err := a.api.Orders.List(ctx)
	if err != nil {
		return err
	}
	return p.print(list, func(t *tabwriter.Writer) { orderTable(t, list) })
}

func orderTable(t *tabwriter.Writer, list []order.Order) {
	row(t, "ID", "NUMBER", "STATUS", "PAYMENT", "ITEMS", "TOTAL", "PLACED")
	for i := range list {
		o := &list[i]
		placed := ""
		if o.CreatedAt != nil {
			placed = o.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		row(t, o.ID, o.OrderNumber, statusLabel(o.Status), o.PaymentStatus, len(o.Items),
			shared.FormatPrice(o.TotalAmount, currencyOf(o)), placed)
	}
}

func runTrack(ctx context.Context, a *app, p *printer, args []string) error {
	if err := needArgs(args, 1, "track <order id or number>"); err != nil {
		return err
	}
	v, err := a.tracking.Track(ctx, args[0])
	if err != nil {
		return err
	}
	return p.print(v.Order, func(t *tabwriter.Writer) {
		o := v.Order
		row(t, "Order", o.OrderNumber)
		row(t, "Status", fmt.Sprintf("%s %s (%d%%)", v.Status.Icon, v.Status.Label, v.Status.Progress))
		row(t, "Payment", v.Payment)
		if v.TrackingNumber != "" {
			row(t, "Tracking number", v.TrackingNumber)
		}
		if v.Next != nil {
			row(t, "Next", fmt.Sprintf("%s %s: %s", v.Next.Icon, v.Next.Title, v.Next.Message))
		}
		fmt.Fprintln(t)
		for _, s := range v.Steps {
			row(t, mark(s.Completed), s.Icon+" "+s.Label)
		}
		if len(v.Timeline) > 0 {
			fmt.Fprintln(t)
			for _, e := range v.Timeline {
				at := ""
				if e.At != nil {
					at = e.At.Local().Format("2006-01-02 15:04")
				}
				row(t, at, e.Title, e.Message)
			}
		}
		fmt.Fprintln(t)
		if len(v.ShippingLines) > 0 {
			row(t, "Ship to", strings.Join(v.ShippingLines, ", "))
		}
		row(t, "Subtotal", v.Totals.Subtotal)
		row(t, "Shipping", v.Totals.Shipping)
		row(t, "Tax", v.Totals.Tax)
		if v.Totals.Discount != "" {
			row(t, "Discount", v.Totals.Discount)
		}
		row(t, "Total", v.Totals.Total)
	})
}

func statusLabel(s order.Status) string {
	return order.Icon(s) + " " + order.Label(s)
}

func currencyOf(o *order.Order) string {
	if o.Currency != "" {
		return o.Currency
	}
	return shared.DefaultCurrency
}

func mark(b bool) string {
	if b {
		return "✓"
	}
	return " "
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
