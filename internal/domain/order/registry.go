package order

import (
	"unicode"
	"unicode/utf8"
)

// Meta is the presentation metadata of an order status.
type Meta struct {
	Label    string
	Color    string // hex color used for badges and progress bars
	Icon     string
	Progress int // percent complete, 0-100
}

// Fallback is returned for statuses the registry does not know.
var Fallback = Meta{Color: "#6c757d", Icon: "📋", Progress: 0}

var registry = map[Status]Meta{
	StatusPending:    {Label: "Pending", Color: "#ffa500", Icon: "⏳", Progress: 20},
	StatusConfirmed:  {Label: "Confirmed", Color: "#007bff", Icon: "✅", Progress: 40},
	StatusProcessing: {Label: "Processing", Color: "#17a2b8", Icon: "⚙️", Progress: 60},
	StatusShipped:    {Label: "Shipped", Color: "#28a745", Icon: "🚚", Progress: 80},
	StatusDelivered:  {Label: "Delivered", Color: "#20c997", Icon: "📦", Progress: 100},
	StatusCancelled:  {Label: "Cancelled", Color: "#dc3545", Icon: "❌", Progress: 0},
	StatusRefunded:   {Label: "Refunded", Color: "#6c757d", Icon: "💰", Progress: 100},
}

var ordered = []Status{
	StatusPending,
	StatusConfirmed,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
	StatusRefunded,
}

// Lookup returns the metadata for s. The boolean is false when s is not a
// known status, in which case the fallback metadata is returned with a
// label derived from s.
func Lookup(s Status) (Meta, bool) {
	if m, ok := registry[s]; ok {
		return m, true
	}
	m := Fallback
	m.Label = Label(s)
	return m, false
}

// Color returns the badge color for s.
func Color(s Status) string {
	m, _ := Lookup(s)
	return m.Color
}

// Icon returns the icon for s.
func Icon(s Status) string {
	m, _ := Lookup(s)
	return m.Icon
}

// Progress returns the completion percentage for s.
func Progress(s Status) int {
	m, _ := Lookup(s)
	return m.Progress
}

// Label capitalizes a status for display.
func Label(s Status) string {
	if m, ok := registry[s]; ok {
		return m.Label
	}
	return capitalize(string(s))
}

// Statuses returns every known status in fulfilment order.
func Statuses() []Status {
	out := make([]Status, len(ordered))
	copy(out, ordered)
	return out
}

// capitalize upper-cases the first rune. Invalid UTF-8 is returned as is.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
