package sandbox

import (
	"time"

	"github.com/storefront/client/internal/domain/cart"
	"github.com/storefront/client/internal/domain/catalog"
	"github.com/storefront/client/internal/domain/identity"
	"github.com/storefront/client/internal/domain/order"
	"github.com/storefront/client/internal/domain/shared"
)

// UserModel is a sandbox account.
type UserModel struct {
	ID           uint   `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;size:255"`
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	Role         string               `gorm:"size:20;default:user"`
	Preferences  identity.Preferences `gorm:"serializer:json"`
	CreatedAt    time.Time
}

func (UserModel) TableName() string { return "users" }

func (u *UserModel) toDomain() *identity.User {
	return &identity.User{
		ID:          shared.IDFromInt(int64(u.ID)),
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		Role:        u.Role,
		Status:      "active",
		Preferences: u.Preferences,
	}
}

// ProductModel is a catalog product.
type ProductModel struct {
	ID                uint `gorm:"primaryKey"`
	Name              string
	Description       string
	Price             float64
	SalePrice         *float64
	Images            []string `gorm:"serializer:json"`
	Colors            []string `gorm:"serializer:json"`
	Sizes             []string `gorm:"serializer:json"`
	Category          string   `gorm:"index"`
	Rating            float64
	ReviewCount       int
	InventoryQuantity int
	SKU               string `gorm:"uniqueIndex"`
	Status            string `gorm:"index;default:active"`
	Featured          bool
	CreatedAt         time.Time
}

func (ProductModel) TableName() string { return "products" }

func (p *ProductModel) toDomain() catalog.Product {
	return catalog.Product{
		ID:                shared.IDFromInt(int64(p.ID)),
		Name:              p.Name,
		Description:       p.Description,
		Price:             p.Price,
		SalePrice:         p.SalePrice,
		Images:            p.Images,
		Colors:            p.Colors,
		Sizes:             p.Sizes,
		Category:          p.Category,
		Rating:            p.Rating,
		ReviewCount:       p.ReviewCount,
		InventoryQuantity: p.InventoryQuantity,
		SKU:               p.SKU,
		Status:            p.Status,
		Featured:          p.Featured,
	}
}

func (p *ProductModel) unitPrice() float64 {
	d := p.toDomain()
	return d.EffectivePrice()
}

// CartItemModel is one cart line. A line is keyed by product, size and color.
type CartItemModel struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"index"`
	ProductID uint
	Product   ProductModel `gorm:"foreignKey:ProductID"`
	Quantity  int
	Size      string
	Color     string
}

func (CartItemModel) TableName() string { return "cart_items" }

func (c *CartItemModel) toDomain() cart.Item {
	item := cart.Item{
		ID:        shared.IDFromInt(int64(c.ID)),
		ProductID: shared.IDFromInt(int64(c.ProductID)),
		Quantity:  c.Quantity,
		Size:      c.Size,
		Color:     c.Color,
	}
	if c.Product.ID != 0 {
		item.ProductName = c.Product.Name
		item.Price = c.Product.unitPrice()
		if len(c.Product.Images) > 0 {
			item.ProductImage = c.Product.Images[0]
		}
	}
	return item
}

// AddressModel is an address book entry.
type AddressModel struct {
	ID            uint `gorm:"primaryKey"`
	UserID        uint `gorm:"index"`
	Name          string
	FirstName     string
	LastName      string
	StreetAddress string
	City          string
	State         string
	PostalCode    string
	Country       string
	Phone         string
	Type          string
	IsDefault     bool
}

func (AddressModel) TableName() string { return "addresses" }

func addressModel(a identity.Address) AddressModel {
	return AddressModel{
		Name:          a.Name,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		StreetAddress: a.StreetAddress,
		City:          a.City,
		State:         a.State,
		PostalCode:    a.PostalCode,
		Country:       a.Country,
		Phone:         a.Phone,
		Type:          a.Type,
		IsDefault:     a.IsDefault,
	}
}

func (a *AddressModel) toDomain() identity.Address {
	return identity.Address{
		ID:            shared.IDFromInt(int64(a.ID)),
		Name:          a.Name,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		StreetAddress: a.StreetAddress,
		City:          a.City,
		State:         a.State,
		PostalCode:    a.PostalCode,
		Country:       a.Country,
		Phone:         a.Phone,
		Type:          a.Type,
		IsDefault:     a.IsDefault,
	}
}

// PaymentModel is a stored payment method. Only the last four card digits
// are kept.
type PaymentModel struct {
	ID             uint `gorm:"primaryKey"`
	UserID         uint `gorm:"index"`
	Type           string
	DisplayName    string
	LastFour       string
	CardBrand      string
	CardholderName string
	ExpiryMonth    int
	ExpiryYear     int
	IsDefault      bool
}

func (PaymentModel) TableName() string { return "payment_methods" }

func paymentModel(pm identity.PaymentMethod) PaymentModel {
	m := PaymentModel{Type: pm.Type, DisplayName: pm.DisplayName, IsDefault: pm.IsDefault}
	if cc := pm.CreditCard; cc != nil {
		m.LastFour = cc.LastFour
		if n := cc.CardNumber; len(n) >= 4 {
			m.LastFour = n[len(n)-4:]
		}
		m.CardBrand = cc.CardBrand
		m.CardholderName = cc.CardholderName
		m.ExpiryMonth = cc.ExpiryMonth
		m.ExpiryYear = cc.ExpiryYear
	}
	return m
}

func (p *PaymentModel) toDomain() identity.PaymentMethod {
	pm := identity.PaymentMethod{
		ID:          shared.IDFromInt(int64(p.ID)),
		Type:        p.Type,
		DisplayName: p.DisplayName,
		IsDefault:   p.IsDefault,
	}
	if p.LastFour != "" {
		pm.CreditCard = &identity.CreditCard{
			LastFour:       p.LastFour,
			CardBrand:      p.CardBrand,
			CardholderName: p.CardholderName,
			ExpiryMonth:    p.ExpiryMonth,
			ExpiryYear:     p.ExpiryYear,
		}
	}
	return pm
}

// OrderModel is a placed order.
type OrderModel struct {
	ID              uint   `gorm:"primaryKey"`
	OrderNumber     string `gorm:"uniqueIndex"`
	UserID          uint   `gorm:"index"`
	Status          string `gorm:"index"`
	PaymentStatus   string
	PaymentMethod   string
	ShippingMethod  string
	ShippingAddress *order.Address `gorm:"serializer:json"`
	BillingAddress  *order.Address `gorm:"serializer:json"`
	Items           []OrderItemModel `gorm:"foreignKey:OrderID"`
	Subtotal        float64
	TaxAmount       float64
	ShippingCost    float64
	TotalAmount     float64
	TrackingNumber  string
	Notes           string
	IdempotencyKey  string `gorm:"index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ShippedAt       *time.Time
	DeliveredAt     *time.Time
}

func (OrderModel) TableName() string { return "orders" }

// OrderItemModel is an order line.
type OrderItemModel struct {
	ID           uint `gorm:"primaryKey"`
	OrderID      uint `gorm:"index"`
	ProductID    uint
	ProductName  string
	ProductImage string
	Quantity     int
	Price        float64
	Size         string
	Color        string
	Subtotal     float64
}

func (OrderItemModel) TableName() string { return "order_items" }

func (o *OrderModel) toDomain() order.Order {
	out := order.Order{
		ID:              shared.IDFromInt(int64(o.ID)),
		OrderNumber:     o.OrderNumber,
		UserID:          shared.IDFromInt(int64(o.UserID)),
		Status:          order.Status(o.Status),
		PaymentStatus:   order.PaymentStatus(o.PaymentStatus),
		PaymentMethod:   o.PaymentMethod,
		ShippingMethod:  o.ShippingMethod,
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		Items:           make([]order.Item, 0, len(o.Items)),
		Subtotal:        o.Subtotal,
		TaxAmount:       o.TaxAmount,
		ShippingCost:    o.ShippingCost,
		TotalAmount:     o.TotalAmount,
		Currency:        "USD",
		TrackingNumber:  o.TrackingNumber,
		Notes:           o.Notes,
		ShippedAt:       o.ShippedAt,
		DeliveredAt:     o.DeliveredAt,
	}
	created, updated := o.CreatedAt, o.UpdatedAt
	out.CreatedAt, out.UpdatedAt = &created, &updated
	for _, it := range o.Items {
		out.Items = append(out.Items, order.Item{
			ProductID:    shared.IDFromInt(int64(it.ProductID)),
			ProductName:  it.ProductName,
			ProductImage: it.ProductImage,
			Quantity:     it.Quantity,
			Price:        it.Price,
			Size:         it.Size,
			Color:        it.Color,
			Subtotal:     it.Subtotal,
		})
	}
	return out
}

func allModels() []any {
	return []any{
		&UserModel{}, &ProductModel{}, &CartItemModel{}, &AddressModel{},
		&PaymentModel{}, &OrderModel{}, &OrderItemModel{},
	}
}
