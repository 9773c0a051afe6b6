// Package storeapi maps the storefront REST resources onto the API client.
// Each resource type is a thin layer: build the path and query, send the
// request, decode the body. Retry, auth and logging live in httpclient.
package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/storefront/client/internal/domain/shared"
	"github.com/storefront/client/internal/infrastructure/httpclient"
	"github.com/storefront/client/internal/infrastructure/metrics"
)

// Requester executes API requests. *httpclient.Client implements it.
type Requester interface {
	Do(ctx context.Context, req httpclient.Request) (*httpclient.Response, error)
}

// Stats is a loosely typed JSON object, used for dashboard style payloads
// whose shape the client only displays.
type Stats map[string]any

// Message is the {"message": ...} acknowledgement many endpoints return.
type Message struct {
	Message string `json:"message"`
}

// API groups every resource client.
type API struct {
	Auth          *AuthAPI
	Users         *UserAPI
	Products      *ProductAPI
	Cart          *CartAPI
	Orders        *OrderAPI
	Addresses     *AddressAPI
	Payments      *PaymentAPI
	Wishlist      *WishlistAPI
	Notifications *NotificationAPI
	Security      *SecurityAPI
	Admin         *AdminAPI
	TryOn         *TryOnAPI
}

// Option configures New.
type Option func(*options)

type options struct {
	logger         *zap.Logger
	metrics        *metrics.Collector
	debounceWindow time.Duration
	tryOnURL       string
	tryOnTimeout   time.Duration
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics counts debounced admin reads.
func WithMetrics(m *metrics.Collector) Option {
	return func(o *options) { o.metrics = m }
}

// WithDebounceWindow sets the window used for dashboard reads.
func WithDebounceWindow(d time.Duration) Option {
	return func(o *options) { o.debounceWindow = d }
}

// WithTryOn sets the virtual try-on endpoint and its timeout.
func WithTryOn(endpoint string, timeout time.Duration) Option {
	return func(o *options) {
		o.tryOnURL = endpoint
		o.tryOnTimeout = timeout
	}
}

// New builds all resource clients on top of r.
func New(r Requester, opts ...Option) *API {
	o := options{
		logger:         zap.NewNop(),
		debounceWindow: DefaultDebounceWindow,
		tryOnURL:       "/api/virtual-try-on/",
		tryOnTimeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &API{
		Auth:          &AuthAPI{r: r},
		Users:         &UserAPI{r: r},
		Products:      &ProductAPI{r: r},
		Cart:          &CartAPI{r: r},
		Orders:        &OrderAPI{r: r},
		Addresses:     &AddressAPI{r: r},
		Payments:      &PaymentAPI{r: r},
		Wishlist:      &WishlistAPI{r: r},
		Notifications: &NotificationAPI{r: r},
		Security:      &SecurityAPI{r: r},
		Admin:         newAdminAPI(r, o),
		TryOn:         &TryOnAPI{r: r, endpoint: o.tryOnURL, timeout: o.tryOnTimeout},
	}
}

// Close stops background work such as pending debounced reads.
func (a *API) Close() {
	a.Admin.close()
}

func call(ctx context.Context, r Requester, req httpclient.Request, out any) error {
	resp, err := r.Do(ctx, req)
	if err != nil {
		return err
	}
	return resp.JSON(out)
}

func get(ctx context.Context, r Requester, path string, query url.Values, out any) error {
	return call(ctx, r, httpclient.Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

func send(ctx context.Context, r Requester, method, path string, body, out any) error {
	return call(ctx, r, httpclient.Request{Method: method, Path: path, Body: body}, out)
}

// getList fetches path and decodes the array found either at the top level
// or under key.
func getList(ctx context.Context, r Requester, path string, query url.Values, key string, out any) error {
	resp, err := r.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return err
	}
	return decodeList(resp.Body, key, out)
}

func decodeList(body []byte, key string, out any) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil
	}
	if body[0] == '[' {
		return json.Unmarshal(body, out)
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return fmt.Errorf("decoding %s list: %w", key, err)
	}
	raw, ok := wrapper[key]
	if !ok || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// decodeOne decodes a single resource that may be wrapped as {key: {...}}.
func decodeOne(body []byte, key string, out any) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapper); err == nil {
		if raw, ok := wrapper[key]; ok && len(raw) > 0 && raw[0] == '{' {
			return json.Unmarshal(raw, out)
		}
	}
	return json.Unmarshal(body, out)
}

func sendOne(ctx context.Context, r Requester, method, path, key string, body, out any) error {
	resp, err := r.Do(ctx, httpclient.Request{Method: method, Path: path, Body: body})
	if err != nil {
		return err
	}
	return decodeOne(resp.Body, key, out)
}

func resource(prefix string, id shared.ID) string {
	return prefix + url.PathEscape(id.String())
}

// Query encodes params the way the storefront backend expects: nil, empty
// strings and empty slices are dropped and slices become repeated keys.
func Query(params map[string]any) url.Values {
	q := url.Values{}
	for k, v := range params {
		switch val := v.(type) {
		case nil:
		case string:
			if val != "" {
				q.Add(k, val)
			}
		case []string:
			for _, s := range val {
				q.Add(k, s)
			}
		case int:
			q.Add(k, strconv.Itoa(val))
		case []int:
			for _, n := range val {
				q.Add(k, strconv.Itoa(n))
			}
		case bool:
			q.Add(k, strconv.FormatBool(val))
		case float64:
			q.Add(k, strconv.FormatFloat(val, 'f', -1, 64))
		case shared.ID:
			if !val.IsZero() {
				q.Add(k, val.String())
			}
		case fmt.Stringer:
			if s := val.String(); s != "" {
				q.Add(k, s)
			}
		default:
			q.Add(k, fmt.Sprint(val))
		}
	}
	return q
}

func pageQuery(skip, limit int) url.Values {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))
	return q
}
