package storeapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/client/internal/domain/catalog"
	"github.com/storefront/client/internal/domain/identity"
	"github.com/storefront/client/internal/domain/order"
	"github.com/storefront/client/internal/domain/shared"
	"github.com/storefront/client/internal/infrastructure/httpclient"
)

func newTestAPI(t *testing.T, h http.HandlerFunc, opts ...Option) *API {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := httpclient.DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.RetryDelay = time.Millisecond
	cfg.OverloadRetryDelay = time.Millisecond
	c, err := httpclient.New(cfg, nil)
	require.NoError(t, err)

	api := New(c, opts...)
	t.Cleanup(api.Close)
	return api
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestCartAPI_Add(t *testing.T) {
	var got *http.Request
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Item added to cart",
			"cart": map[string]any{
				"items":    []map[string]any{{"product_id": 7, "quantity": 2, "price": 19.5, "size": "M"}},
				"subtotal": 39.0,
			},
		})
	})

	res, err := api.Cart.Add(context.Background(), shared.IDFromInt(7), 2, "M", "")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/orders/cart/add/", got.URL.Path)
	assert.Equal(t, "7", got.URL.Query().Get("product_id"))
	assert.Equal(t, "2", got.URL.Query().Get("quantity"))
	assert.Equal(t, "M", got.URL.Query().Get("size"))
	assert.False(t, got.URL.Query().Has("color"))

	require.NotNil(t, res.Cart)
	require.Len(t, res.Cart.Items, 1)
	assert.Equal(t, 39.0, res.Cart.Subtotal)
}

func TestCartAPI_RemoveOmitsQuantity(t *testing.T) {
	var got *http.Request
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		writeJSON(w, http.StatusOK, map[string]any{"cart": map[string]any{"items": []any{}}})
	})

	res, err := api.Cart.Remove(context.Background(), shared.ID("abc"), "", "red")
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, got.Method)
	assert.Equal(t, "/orders/cart/remove/", got.URL.Path)
	assert.False(t, got.URL.Query().Has("quantity"))
	assert.Equal(t, "red", got.URL.Query().Get("color"))
	assert.True(t, res.Cart.IsEmpty())
}

func TestProductAPI_List(t *testing.T) {
	var query map[string][]string
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		writeJSON(w, http.StatusOK, map[string]any{
			"products": []map[string]any{{"id": 1, "name": "Tee", "price": 20}},
			"total":    13,
			"has_next": true,
		})
	})

	f := catalog.Filter{Categories: []string{"men", "women"}, Search: ""}.WithPage(1, catalog.PageSize)
	page, err := api.Products.List(context.Background(), f)
	require.NoError(t, err)

	assert.Equal(t, []string{"men", "women"}, query["category"])
	assert.NotContains(t, query, "search")
	assert.Equal(t, 13, page.Total)
	assert.True(t, page.HasNext)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Tee", page.Products[0].Name)
}

func TestProductAPI_CollectionsAcceptBareArrays(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/featured/", r.URL.Path)
		assert.Equal(t, "4", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, []map[string]any{{"id": 1}, {"id": 2}})
	})

	products, err := api.Products.Featured(context.Background(), 4)
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestAddressAPI_ListUnwraps(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"addresses": []map[string]any{
			{"id": 1, "street_address": "1 Main St", "is_default": false},
			{"id": 2, "street_address": "2 Side St", "is_default": true},
		}})
	})

	list, err := api.Addresses.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	def, ok := identity.DefaultAddress(list)
	require.True(t, ok)
	assert.Equal(t, "2 Side St", def.StreetAddress)
}

func TestAddressAPI_SetDefault(t *testing.T) {
	var method, path string
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		writeJSON(w, http.StatusOK, Message{Message: "ok"})
	})

	require.NoError(t, api.Addresses.SetDefault(context.Background(), shared.IDFromInt(5)))
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/addresses/5/default", path)
}

func TestPaymentAPI_ListWithBillingHistory(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"payments": []map[string]any{{
				"id": 3, "type": "credit_card", "is_default": true,
				"credit_card": map[string]any{"last_four": "4242", "card_brand": "visa"},
			}},
			"billing_history": []map[string]any{{"id": 9, "amount": 54.0, "status": "paid"}},
		})
	})

	list, err := api.Payments.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list.Payments, 1)
	assert.Equal(t, "4242", list.Payments[0].CreditCard.LastFour)
	require.Len(t, list.BillingHistory, 1)
	assert.Equal(t, 54.0, list.BillingHistory[0].Amount)
}

func TestOrderAPI_CreateSendsIdempotencyKey(t *testing.T) {
	var key string
	var body map[string]any
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get("Idempotency-Key")
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusCreated, map[string]any{"id": 11, "order_number": "ORD-0011", "status": "pending"})
	})

	o, err := api.Orders.Create(context.Background(), map[string]any{"shipping_method": "standard"}, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "key-1", key)
	assert.Equal(t, "standard", body["shipping_method"])
	assert.Equal(t, "ORD-0011", o.OrderNumber)
	assert.Equal(t, order.StatusPending, o.Status)
}

func TestOrderAPI_ListUnwraps(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"orders": []map[string]any{{"id": 1}, {"id": 2}}})
	})

	orders, err := api.Orders.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestOrderAPI_NotFound(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Order not found"})
	})

	_, err := api.Orders.GetByNumber(context.Background(), "ORD-404")
	apiErr, ok := httpclient.AsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsNotFound())
	assert.Equal(t, "Order not found", apiErr.Message)
}

func TestAdminAPI_DashboardReadsAreDebounced(t *testing.T) {
	var hits atomic.Int32
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/admin/dashboard/stats", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"total_orders": 42})
	}, WithDebounceWindow(30*time.Millisecond))

	const n = 4
	var wg sync.WaitGroup
	results := make([]Stats, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			results[i], errs[i] = api.Admin.DashboardStats(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, float64(42), results[i]["total_orders"])
	}
}

func TestAdminAPI_ListOrdersFilter(t *testing.T) {
	var query map[string][]string
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		writeJSON(w, http.StatusOK, map[string]any{"orders": []map[string]any{{"id": 1}}, "total": 30})
	})

	from := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	page, err := api.Admin.ListOrders(context.Background(), OrderFilter{
		Statuses:        []string{"pending", "shipped"},
		PaymentStatuses: []string{"paid"},
		DateFrom:        &from,
		Skip:            20,
		Limit:           10,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"pending", "shipped"}, query["status"])
	assert.Equal(t, []string{"paid"}, query["payment_status"])
	assert.Equal(t, []string{"2026-01-02"}, query["date_from"])
	assert.Equal(t, []string{"20"}, query["skip"])
	assert.NotContains(t, query, "search")
	assert.Equal(t, 30, page.Total)
	assert.Equal(t, 20, page.Skip)
}

func TestAdminAPI_UpdateOrderStatusSendsNulls(t *testing.T) {
	var raw map[string]any
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/orders/8", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&raw)
		writeJSON(w, http.StatusOK, map[string]any{"id": 8, "status": "shipped"})
	})

	o, err := api.Admin.UpdateOrderStatus(context.Background(), shared.IDFromInt(8), OrderUpdate{Status: order.StatusShipped})
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, o.Status)

	assert.Equal(t, "shipped", raw["status"])
	assert.Contains(t, raw, "tracking_number")
	assert.Nil(t, raw["tracking_number"])
	assert.Contains(t, raw, "notes")
}

func TestAdminAPI_BulkUpdateOrderStatus(t *testing.T) {
	var raw map[string]any
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		_ = json.NewDecoder(r.Body).Decode(&raw)
		writeJSON(w, http.StatusOK, map[string]any{"updated_count": 2})
	})

	res, err := api.Admin.BulkUpdateOrderStatus(context.Background(),
		[]shared.ID{shared.IDFromInt(1), shared.IDFromInt(2)}, order.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, 2, res.UpdatedCount)
	assert.Equal(t, []any{float64(1), float64(2)}, raw["order_ids"])
	assert.Equal(t, "cancelled", raw["status"])
}

func TestAdminAPI_ExportOrders(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="orders.csv"`)
		_, _ = io.WriteString(w, "order_number,total\nORD-1,10.00\n")
	})

	exp, err := api.Admin.ExportOrders(context.Background(), OrderFilter{})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", exp.ContentType)
	assert.Equal(t, "orders.csv", exp.Filename)
	assert.True(t, strings.HasPrefix(string(exp.Data), "order_number,total"))
}

func TestWishlistAPI_Toggle(t *testing.T) {
	var mu sync.Mutex
	saved := false
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case strings.HasPrefix(r.URL.Path, "/wishlist/check/"):
			writeJSON(w, http.StatusOK, WishlistCheck{InWishlist: saved})
		case r.Method == http.MethodPost:
			saved = true
			writeJSON(w, http.StatusCreated, map[string]any{"id": 5, "product_id": 3, "size": "M"})
		case r.Method == http.MethodGet && r.URL.Path == "/wishlist/":
			writeJSON(w, http.StatusOK, map[string]any{"items": []map[string]any{{"id": 5, "product_id": 3, "size": "M"}}})
		case r.Method == http.MethodDelete:
			assert.Equal(t, "/wishlist/5", r.URL.Path)
			saved = false
			writeJSON(w, http.StatusOK, Message{Message: "removed"})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	ctx := context.Background()
	in, err := api.Wishlist.Toggle(ctx, shared.IDFromInt(3), "M", "")
	require.NoError(t, err)
	assert.True(t, in)

	in, err = api.Wishlist.Toggle(ctx, shared.IDFromInt(3), "M", "")
	require.NoError(t, err)
	assert.False(t, in)
}

func TestTryOnAPI_Submit(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/virtual-try-on/", r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "12", r.FormValue("product_id"))

		person, hdr, err := r.FormFile("vton_image")
		if assert.NoError(t, err) {
			data, _ := io.ReadAll(person)
			assert.Equal(t, "me", string(data))
			assert.Equal(t, "me.png", hdr.Filename)
			assert.Equal(t, "image/png", hdr.Header.Get("Content-Type"))
		}

		_, garment, err := r.FormFile("garment_image")
		if assert.NoError(t, err) {
			assert.Equal(t, "garment.jpg", garment.Filename)
		}
		writeJSON(w, http.StatusOK, TryOnResult{Status: "ok", ImageBase64: "aGk=", ImageID: "img-1"})
	})

	res, err := api.TryOn.Submit(context.Background(), TryOnRequest{
		Person:    Image{Name: "me.png", Data: strings.NewReader("me")},
		Garment:   Image{Data: strings.NewReader("shirt")},
		ProductID: shared.IDFromInt(12),
	})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, "img-1", res.ImageID)
}

func TestTryOnAPI_RequiresImages(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := api.TryOn.Submit(context.Background(), TryOnRequest{})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestQuery(t *testing.T) {
	q := Query(map[string]any{
		"status": []string{"a", "b"},
		"search": "",
		"skip":   0,
		"user":   shared.ID(""),
		"flag":   true,
		"nil":    nil,
	})
	assert.Equal(t, []string{"a", "b"}, q["status"])
	assert.False(t, q.Has("search"))
	assert.Equal(t, "0", q.Get("skip"))
	assert.False(t, q.Has("user"))
	assert.Equal(t, "true", q.Get("flag"))
	assert.False(t, q.Has("nil"))
}
