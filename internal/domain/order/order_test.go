package order

import (
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestLookup_KnownStatuses(t *testing.T) {
	tests := []struct {
		status   Status
		color    string
		icon     string
		progress int
	}{
		{StatusPending, "#ffa500", "⏳", 20},
		{StatusConfirmed, "#007bff", "✅", 40},
		{StatusProcessing, "#17a2b8", "⚙️", 60},
		{StatusShipped, "#28a745", "🚚", 80},
		{StatusDelivered, "#20c997", "📦", 100},
		{StatusCancelled, "#dc3545", "❌", 0},
		{StatusRefunded, "#6c757d", "💰", 100},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			m, known := Lookup(tt.status)
			assert.True(t, known)
			assert.Equal(t, tt.color, m.Color)
			assert.Equal(t, tt.icon, m.Icon)
			assert.Equal(t, tt.progress, m.Progress)
			assert.Equal(t, tt.color, Color(tt.status))
			assert.Equal(t, tt.icon, Icon(tt.status))
			assert.Equal(t, tt.progress, Progress(tt.status))
		})
	}
}

func TestLookup_EveryStatusIsRegistered(t *testing.T) {
	for _, s := range Statuses() {
		_, known := Lookup(s)
		assert.True(t, known, s)
		assert.True(t, s.IsValid())
	}
	assert.Len(t, Statuses(), 7)
}

func TestLookup_UnknownStatusFallsBack(t *testing.T) {
	m, known := Lookup("on_hold")

	assert.False(t, known)
	assert.Equal(t, "#6c757d", m.Color)
	assert.Equal(t, "📋", m.Icon)
	assert.Equal(t, 0, m.Progress)
	assert.Equal(t, "On_hold", m.Label)
	assert.False(t, Status("on_hold").IsValid())
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Shipped", Label(StatusShipped))
	assert.Equal(t, "", Label(""))
	assert.Equal(t, "Éclair_hold", Label("éclair_hold"))
	assert.True(t, utf8.ValidString(Label("ñandu")))
	assert.Equal(t, "Ñandu", Label("ñandu"))
}

func TestCanTransitionTo(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusConfirmed))
	assert.True(t, StatusProcessing.CanTransitionTo(StatusShipped))
	assert.True(t, StatusDelivered.CanTransitionTo(StatusRefunded))
	assert.False(t, StatusShipped.CanTransitionTo(StatusPending))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusShipped))
	assert.False(t, StatusPending.CanTransitionTo(StatusPending))
}

func TestPaymentStatuses(t *testing.T) {
	assert.Equal(t, []PaymentStatus{"pending", "paid", "failed", "refunded"}, PaymentStatuses())
	assert.False(t, PaymentStatus("authorized").IsValid())
}

func TestSteps(t *testing.T) {
	completed := func(s Status) []string {
		var out []string
		for _, st := range Steps(s) {
			if st.Completed {
				out = append(out, st.Label)
			}
		}
		return out
	}

	assert.Equal(t, []string{"Ordered"}, completed(StatusPending))
	assert.Equal(t, []string{"Ordered", "Confirmed", "Processing", "Shipped"}, completed(StatusShipped))
	assert.Len(t, completed(StatusDelivered), 5)
	assert.Empty(t, completed(StatusCancelled))
	assert.Empty(t, completed("unknown"))
}

func TestNextStep(t *testing.T) {
	h, ok := NextStep(StatusShipped)
	assert.True(t, ok)
	assert.Equal(t, "Out for Delivery", h.Title)

	_, ok = NextStep(StatusRefunded)
	assert.False(t, ok)
}

func TestTimeline(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	shipped := created.Add(48 * time.Hour)

	o := &Order{Status: StatusShipped, CreatedAt: &created, UpdatedAt: &shipped, ShippedAt: &shipped}
	titles := func(events []Event) []string {
		var out []string
		for _, e := range events {
			out = append(out, e.Title)
		}
		return out
	}

	assert.Equal(t, []string{"Order Placed", "Order Confirmed", "Order Processing", "Order Shipped"}, titles(Timeline(o)))

	o.Status = StatusCancelled
	assert.Equal(t, []string{"Order Placed", "Order Cancelled"}, titles(Timeline(o)))

	o.PaymentStatus = PaymentRefunded
	assert.Equal(t, []string{"Payment Authorized", "Payment Completed", "Payment Refunded"}, titles(PaymentTimeline(o)))
}

func TestItemCount(t *testing.T) {
	o := &Order{Items: []Item{{Quantity: 2}, {Quantity: 3}}}
	assert.Equal(t, 5, o.ItemCount())
}
