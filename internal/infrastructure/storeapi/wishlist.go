package storeapi

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/storefront/client/internal/domain/shared"
)

// WishlistAPI covers /wishlist.
type WishlistAPI struct {
	r Requester
}

// WishlistItem is a saved product variant.
type WishlistItem struct {
	ID           shared.ID  `json:"id,omitempty" yaml:"id,omitempty"`
	ProductID    shared.ID  `json:"product_id" yaml:"product_id"`
	ProductName  string     `json:"product_name,omitempty" yaml:"product_name,omitempty"`
	ProductImage string     `json:"product_image,omitempty" yaml:"-"`
	Price        float64    `json:"price,omitempty" yaml:"price,omitempty"`
	Size         string     `json:"size,omitempty" yaml:"size,omitempty"`
	Color        string     `json:"color,omitempty" yaml:"color,omitempty"`
	Quantity     int        `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	Notes        string     `json:"notes,omitempty" yaml:"notes,omitempty"`
	AddedAt      *time.Time `json:"added_at,omitempty" yaml:"added_at,omitempty"`
}

// Matches reports whether the item is the given product variant.
func (w WishlistItem) Matches(productID shared.ID, size, color string) bool {
	return w.ProductID == productID && w.Size == size && w.Color == color
}

// WishlistCheck is the membership answer for one variant.
type WishlistCheck struct {
	InWishlist bool      `json:"in_wishlist"`
	ItemID     shared.ID `json:"item_id,omitempty"`
}

// List returns the wishlist items.
func (w *WishlistAPI) List(ctx context.Context) ([]WishlistItem, error) {
	var out []WishlistItem
	if err := getList(ctx, w.r, "/wishlist/", nil, "items", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one item.
func (w *WishlistAPI) Get(ctx context.Context, id shared.ID) (*WishlistItem, error) {
	var out WishlistItem
	if err := get(ctx, w.r, resource("/wishlist/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Add saves an item.
func (w *WishlistAPI) Add(ctx context.Context, item WishlistItem) (*WishlistItem, error) {
	if item.Quantity == 0 {
		item.Quantity = 1
	}
	var out WishlistItem
	if err := sendOne(ctx, w.r, http.MethodPost, "/wishlist/", "item", item, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update changes an item.
func (w *WishlistAPI) Update(ctx context.Context, id shared.ID, item WishlistItem) (*WishlistItem, error) {
	var out WishlistItem
	if err := sendOne(ctx, w.r, http.MethodPut, resource("/wishlist/", id), "item", item, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Remove deletes an item.
func (w *WishlistAPI) Remove(ctx context.Context, id shared.ID) error {
	return send(ctx, w.r, http.MethodDelete, resource("/wishlist/", id), nil, nil)
}

// Check reports whether a product variant is saved.
func (w *WishlistAPI) Check(ctx context.Context, productID shared.ID, size, color string) (*WishlistCheck, error) {
	q := url.Values{}
	if size != "" {
		q.Set("size", size)
	}
	if color != "" {
		q.Set("color", color)
	}
	var out WishlistCheck
	if err := get(ctx, w.r, resource("/wishlist/check/", productID), q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Toggle adds the variant when it is not saved and removes it otherwise.
// It returns whether the variant is saved afterwards.
func (w *WishlistAPI) Toggle(ctx context.Context, productID shared.ID, size, color string) (bool, error) {
	check, err := w.Check(ctx, productID, size, color)
	if err != nil {
		return false, err
	}
	if !check.InWishlist {
		_, err := w.Add(ctx, WishlistItem{ProductID: productID, Size: size, Color: color, Quantity: 1})
		return err == nil, err
	}

	items, err := w.List(ctx)
	if err != nil {
		return true, err
	}
	for _, it := range items {
		if it.Matches(productID, size, color) {
			if err := w.Remove(ctx, it.ID); err != nil {
				return true, err
			}
			break
		}
	}
	return false, nil
}

// Stats returns wishlist counters.
func (w *WishlistAPI) Stats(ctx context.Context) (Stats, error) {
	var out Stats
	if err := get(ctx, w.r, "/wishlist/stats/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
