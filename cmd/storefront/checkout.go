package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"github.com/storefront/client/internal/application/checkout"
	"github.com/storefront/client/internal/domain/cart"
	"github.com/storefront/client/internal/domain/shared"
)

// checkoutOptions are the selections a buyer can override on the command
// line. Anything left unset keeps the default Prepare picked.
type checkoutOptions struct {
	shipping      string
	addressID     string
	paymentID     string
	paymentMethod string
	email         string
	phone         string
	friend        checkout.Friend
	dryRun        bool
}

func runCheckout(ctx context.Context, a *app, p *printer, args []string) error {
	var opts checkoutOptions
	if _, err := parseFlags("checkout", args, func(fs *pflag.FlagSet) {
		fs.StringVar(&opts.shipping, "shipping", cart.ShippingStandard, "Shipping method: standard, express, free")
		fs.StringVar(&opts.addressID, "address", "", "Saved address id (default: the default address)")
		fs.StringVar(&opts.paymentID, "payment", "", "Saved payment method id (default: the default method)")
		fs.StringVar(&opts.paymentMethod, "method", "", "Pay with a method instead of a saved one, e.g. cash_on_delivery")
		fs.StringVar(&opts.email, "email", "", "Contact email (default: account email)")
		fs.StringVar(&opts.phone, "phone", "", "Contact phone")
		fs.StringVar(&opts.friend.FirstName, "friend-first-name", "", "Order for a friend: first name")
		fs.StringVar(&opts.friend.LastName, "friend-last-name", "", "Order for a friend: last name")
		fs.StringVar(&opts.friend.Phone, "friend-phone", "", "Order for a friend: phone")
		fs.StringVar(&opts.friend.Email, "friend-email", "", "Order for a friend: email")
		fs.BoolVar(&opts.dryRun, "dry-run", false, "Show the totals without placing the order")
	}); err != nil {
		return err
	}
	if !a.session.IsAuthenticated() {
		return shared.ErrNotAuthenticated
	}

	f, err := a.checkout.Prepare(ctx)
	if err != nil {
		return err
	}
	if err := applyCheckoutOptions(f, opts); err != nil {
		return err
	}
	if missing := f.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: checkout is missing %s", shared.ErrInvalidInput, strings.Join(missing, ", "))
	}

	if opts.dryRun {
		return p.print(checkoutSummary(f), func(t *tabwriter.Writer) { reviewTable(t, f) })
	}

	o, err := a.checkout.Submit(ctx, f)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicateSubmission) {
			return fmt.Errorf("%w; wait a moment before placing the same order again", err)
		}
		return err
	}
	return p.print(o, func(t *tabwriter.Writer) {
		reviewTable(t, f)
		fmt.Fprintln(t)
		row(t, "Order placed", o.OrderNumber)
		row(t, "Status", statusLabel(o.Status))
		row(t, "Charged", formatPrice(o.TotalAmount))
		fmt.Fprintf(t, "\nTrack it with: storefront track %s\n", o.OrderNumber)
	})
}

func applyCheckoutOptions(f *checkout.Flow, opts checkoutOptions) error {
	if opts.email != "" {
		f.Selection.Contact.Email = opts.email
	}
	if opts.phone != "" {
		f.Selection.Contact.Phone = opts.phone
	}
	if opts.addressID != "" {
		if err := f.SelectAddress(shared.ID(opts.addressID)); err != nil {
			return fmt.Errorf("address %s: %w", opts.addressID, err)
		}
	}
	switch {
	case opts.paymentMethod != "":
		f.UsePaymentMethod(opts.paymentMethod)
	case opts.paymentID != "":
		if err := f.SelectPayment(shared.ID(opts.paymentID)); err != nil {
			return fmt.Errorf("payment method %s: %w", opts.paymentID, err)
		}
	}
	if err := f.SetShippingMethod(opts.shipping); err != nil {
		return err
	}
	if opts.friend.FirstName != "" || opts.friend.LastName != "" || opts.friend.Phone != "" {
		friend := opts.friend
		f.OrderForFriend(&friend)
	}
	return nil
}

// summary is the structured form of the review step.
type summary struct {
	Items          int     `json:"items" yaml:"items"`
	ShippingMethod string  `json:"shipping_method" yaml:"shipping_method"`
	ShipTo         string  `json:"ship_to" yaml:"ship_to"`
	Subtotal       float64 `json:"subtotal" yaml:"subtotal"`
	Shipping       float64 `json:"shipping" yaml:"shipping"`
	Tax            float64 `json:"tax" yaml:"tax"`
	Total          float64 `json:"total" yaml:"total"`
}

func checkoutSummary(f *checkout.Flow) summary {
	totals := f.Totals()
	s := summary{
		Items:          len(f.Cart.Items),
		ShippingMethod: f.Selection.ShippingMethod,
		Subtotal:       shared.Cents(totals.Subtotal),
		Shipping:       shared.Cents(totals.Shipping),
		Tax:            shared.Cents(totals.Tax),
		Total:          shared.Cents(totals.Total),
	}
	if f.Selection.Address != nil {
		s.ShipTo = f.Selection.Address.OneLine()
	}
	return s
}

func reviewTable(t *tabwriter.Writer, f *checkout.Flow) {
	cartTable(t, f.Cart)
	totals := f.Totals()
	fmt.Fprintln(t)
	if f.Selection.Address != nil {
		row(t, "Ship to", f.Selection.Address.OneLine())
	}
	if f.Selection.Friend != nil {
		row(t, "Recipient", f.Selection.Friend.FirstName+" "+f.Selection.Friend.LastName)
	}
	row(t, "Shipping method", f.Selection.ShippingMethod)
	row(t, "Shipping", formatDec(totals.Shipping))
	row(t, "Tax", formatDec(totals.Tax))
	row(t, "Total", formatDec(totals.Total))
}

func formatDec(d decimal.Decimal) string {
	return formatPrice(shared.Cents(d))
}

func formatPrice(amount float64) string {
	return shared.FormatPrice(amount, shared.DefaultCurrency)
}
