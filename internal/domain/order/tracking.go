package order

import "time"

// Step is one milestone on the tracking progress bar.
type Step struct {
	Label     string
	Icon      string
	Completed bool
}

var steps = []struct {
	label   string
	icon    string
	reached []Status
}{
	{"Ordered", "📋", []Status{StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered}},
	{"Confirmed", "✅", []Status{StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered}},
	{"Processing", "⚙️", []Status{StatusProcessing, StatusShipped, StatusDelivered}},
	{"Shipped", "🚚", []Status{StatusShipped, StatusDelivered}},
	{"Delivered", "📦", []Status{StatusDelivered}},
}

// Steps returns the progress milestones with completion computed for s.
// Cancelled and refunded orders complete no steps.
func Steps(s Status) []Step {
	out := make([]Step, 0, len(steps))
	for _, st := range steps {
		done := false
		for _, r := range st.reached {
			if r == s {
				done = true
				break
			}
		}
		out = append(out, Step{Label: st.label, Icon: st.icon, Completed: done})
	}
	return out
}

// Hint is the "what happens next" message shown for an in-flight order.
type Hint struct {
	Icon    string
	Title   string
	Message string
}

var hints = map[Status]Hint{
	StatusPending:    {"⏳", "Order Confirmation Pending", "We're reviewing your order. You'll receive a confirmation email shortly."},
	StatusConfirmed:  {"⚙️", "Order Being Processed", "We're preparing your items for shipment. This usually takes 1-2 business days."},
	StatusProcessing: {"📦", "Ready for Shipment", "Your order is packed and ready to ship. You'll receive tracking information soon."},
	StatusShipped:    {"🚚", "Out for Delivery", "Your order is on its way! Track your package using the tracking number below."},
	StatusDelivered:  {"✅", "Order Delivered", "Your order has been successfully delivered. Enjoy your purchase!"},
}

// NextStep returns the hint for s, if any.
func NextStep(s Status) (Hint, bool) {
	h, ok := hints[s]
	return h, ok
}

// Event is an entry in an order or payment timeline.
type Event struct {
	Title   string
	Message string
	At      *time.Time
}

// Timeline lists the fulfilment events reached by o, oldest first.
func Timeline(o *Order) []Event {
	events := []Event{{
		Title:   "Order Placed",
		Message: "Your order has been successfully placed and is being processed.",
		At:      o.CreatedAt,
	}}
	reached := func(list ...Status) bool {
		for _, s := range list {
			if o.Status == s {
				return true
			}
		}
		return false
	}

	if o.Status != StatusPending && !reached(StatusCancelled, StatusRefunded) {
		events = append(events, Event{"Order Confirmed", "Your order has been confirmed and payment has been processed.", o.UpdatedAt})
	}
	if reached(StatusProcessing, StatusShipped, StatusDelivered) {
		events = append(events, Event{"Order Processing", "Your order is being prepared for shipment.", o.UpdatedAt})
	}
	if reached(StatusShipped, StatusDelivered) {
		events = append(events, Event{"Order Shipped", "Your order has been shipped and is on its way to you.", o.ShippedAt})
	}
	if reached(StatusDelivered) {
		events = append(events, Event{"Order Delivered", "Your order has been successfully delivered. Thank you for shopping with us!", o.DeliveredAt})
	}
	if reached(StatusCancelled) {
		events = append(events, Event{"Order Cancelled", "Your order has been cancelled.", o.UpdatedAt})
	}
	if reached(StatusRefunded) {
		events = append(events, Event{"Order Refunded", "Your order has been refunded. The amount will be credited to your original payment method.", o.UpdatedAt})
	}
	return events
}

// PaymentTimeline lists the payment events for o.
func PaymentTimeline(o *Order) []Event {
	events := []Event{{Title: "Payment Authorized", At: o.CreatedAt}}
	switch o.PaymentStatus {
	case PaymentPaid:
		events = append(events, Event{Title: "Payment Completed", At: o.CreatedAt})
	case PaymentRefunded:
		events = append(events,
			Event{Title: "Payment Completed", At: o.CreatedAt},
			Event{Title: "Payment Refunded", At: o.UpdatedAt},
		)
	case PaymentFailed:
		events = append(events, Event{Title: "Payment Failed", At: o.UpdatedAt})
	}
	return events
}
