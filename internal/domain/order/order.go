package order

import (
	"time"

	"github.com/storefront/client/internal/domain/shared"
)

// Order is an order as returned by the backend.
type Order struct {
	ID              shared.ID     `json:"id" yaml:"id"`
	OrderNumber     string        `json:"order_number" yaml:"order_number"`
	UserID          shared.ID     `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Status          Status        `json:"status" yaml:"status"`
	PaymentStatus   PaymentStatus `json:"payment_status" yaml:"payment_status"`
	PaymentMethod   string        `json:"payment_method,omitempty" yaml:"payment_method,omitempty"`
	ShippingMethod  string        `json:"shipping_method,omitempty" yaml:"shipping_method,omitempty"`
	Items           []Item        `json:"items" yaml:"items"`
	ShippingAddress *Address      `json:"shipping_address,omitempty" yaml:"shipping_address,omitempty"`
	BillingAddress  *Address      `json:"billing_address,omitempty" yaml:"billing_address,omitempty"`
	Subtotal        float64       `json:"subtotal" yaml:"subtotal"`
	TaxAmount       float64       `json:"tax_amount" yaml:"tax_amount"`
	ShippingCost    float64       `json:"shipping_cost" yaml:"shipping_cost"`
	DiscountAmount  float64       `json:"discount_amount,omitempty" yaml:"discount_amount,omitempty"`
	TotalAmount     float64       `json:"total_amount" yaml:"total_amount"`
	Currency        string        `json:"currency,omitempty" yaml:"currency,omitempty"`
	TrackingNumber  string        `json:"tracking_number,omitempty" yaml:"tracking_number,omitempty"`
	Notes           string        `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt       *time.Time    `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt       *time.Time    `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	ShippedAt       *time.Time    `json:"shipped_at,omitempty" yaml:"shipped_at,omitempty"`
	DeliveredAt     *time.Time    `json:"delivered_at,omitempty" yaml:"delivered_at,omitempty"`
}

// Item is an order line.
type Item struct {
	ProductID    shared.ID `json:"product_id" yaml:"product_id"`
	ProductName  string    `json:"product_name,omitempty" yaml:"product_name,omitempty"`
	ProductImage string    `json:"product_image,omitempty" yaml:"-"`
	Quantity     int       `json:"quantity" yaml:"quantity"`
	Price        float64   `json:"price" yaml:"price"`
	Size         string    `json:"size,omitempty" yaml:"size,omitempty"`
	Color        string    `json:"color,omitempty" yaml:"color,omitempty"`
	Subtotal     float64   `json:"subtotal" yaml:"subtotal"`
}

// Address is the address shape embedded in orders.
type Address struct {
	FirstName    string `json:"first_name" yaml:"first_name"`
	LastName     string `json:"last_name" yaml:"last_name"`
	AddressLine1 string `json:"address_line_1" yaml:"address_line_1"`
	AddressLine2 string `json:"address_line_2" yaml:"address_line_2"`
	City         string `json:"city" yaml:"city"`
	State        string `json:"state" yaml:"state"`
	PostalCode   string `json:"postal_code" yaml:"postal_code"`
	Country      string `json:"country" yaml:"country"`
	Phone        string `json:"phone" yaml:"phone"`
}

// ItemCount returns the total quantity across all lines.
func (o *Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// Stats is the aggregate returned by the admin order stats endpoint.
type Stats struct {
	TotalOrders   int            `json:"total_orders" yaml:"total_orders"`
	TotalRevenue  float64        `json:"total_revenue" yaml:"total_revenue"`
	AverageOrder  float64        `json:"average_order_value" yaml:"average_order_value"`
	StatusCounts  map[string]int `json:"status_counts" yaml:"status_counts"`
	PaymentCounts map[string]int `json:"payment_status_counts,omitempty" yaml:"payment_status_counts,omitempty"`
	PendingOrders int            `json:"pending_orders" yaml:"pending_orders"`
	TodayOrders   int            `json:"today_orders" yaml:"today_orders"`
	TodayRevenue  float64        `json:"today_revenue" yaml:"today_revenue"`
}

// Page is a paginated list of orders.
type Page struct {
	Orders []Order `json:"orders" yaml:"orders"`
	Total  int     `json:"total" yaml:"total"`
	Skip   int     `json:"skip" yaml:"skip"`
	Limit  int     `json:"limit" yaml:"limit"`
}
