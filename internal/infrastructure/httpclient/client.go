// Package httpclient is the storefront API client: JSON requests with
// bearer authentication, retry on transient failures, 401 handling and
// centralized overload backoff.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/storefront/client/internal/infrastructure/logger"
	"github.com/storefront/client/internal/infrastructure/metrics"
)

// Config configures the client.
type Config struct {
	BaseURL            string
	Timeout            time.Duration
	Headers            map[string]string
	MaxRetries         int
	RetryDelay         time.Duration
	OverloadRetries    int
	OverloadRetryDelay time.Duration
	RateLimit          float64 // requests per second, 0 disables the limiter
	UserAgent          string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:            "http://localhost:8000",
		Timeout:            15 * time.Second,
		MaxRetries:         3,
		RetryDelay:         time.Second,
		OverloadRetries:    1,
		OverloadRetryDelay: 2 * time.Second,
		UserAgent:          "storefront-client/1.0",
	}
}

// TokenSource supplies the bearer token and forgets it when the backend
// rejects it.
type TokenSource interface {
	Token(ctx context.Context) string
	ClearToken(ctx context.Context) error
}

// RequestInterceptor may modify an outgoing request. It runs on every attempt.
type RequestInterceptor func(ctx context.Context, req *http.Request) error

// ResponseInterceptor observes every attempt's outcome. resp is never nil;
// err is the transport error, if any.
type ResponseInterceptor func(ctx context.Context, req *http.Request, resp *Response, err error)

// Request represents an API request.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string
	// Body is marshalled as JSON. Ignored when RawBody is set.
	Body any
	// RawBody is sent as-is with ContentType, e.g. a multipart form.
	RawBody     []byte
	ContentType string
	// IdempotencyKey is sent as Idempotency-Key and kept across retries.
	IdempotencyKey string
	// NoRetry disables the network, 5xx and overload retries.
	NoRetry bool
	// Timeout overrides the per-attempt client timeout when positive.
	Timeout time.Duration
}

// Response represents an API response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	Attempts   int
}

// JSON decodes the body into out.
func (r *Response) JSON(out any) error {
	if out == nil || len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

// Client is the storefront API client.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	cfg        Config
	tokens     TokenSource
	log        *zap.Logger
	metrics    *metrics.Collector
	limiter    *rate.Limiter

	onUnauthorized func(ctx context.Context)
	requestHooks   []RequestInterceptor
	responseHooks  []ResponseInterceptor
	sleep          func(ctx context.Context, d time.Duration) error

	mu      sync.RWMutex
	headers map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics records every attempt in m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// WithHTTPClient replaces the underlying HTTP client. Its transport is used
// as is, without tracing.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithOnUnauthorized registers the hook run after a 401 cleared the token.
func WithOnUnauthorized(fn func(ctx context.Context)) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// WithRequestInterceptor appends a request interceptor.
func WithRequestInterceptor(fn RequestInterceptor) Option {
	return func(c *Client) { c.requestHooks = append(c.requestHooks, fn) }
}

// WithResponseInterceptor appends a response interceptor.
func WithResponseInterceptor(fn ResponseInterceptor) Option {
	return func(c *Client) { c.responseHooks = append(c.responseHooks, fn) }
}

// New creates a client. tokens may be nil for anonymous use.
func New(cfg Config, tokens TokenSource, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.OverloadRetries < 0 {
		cfg.OverloadRetries = 0
	}

	c := &Client{
		baseURL: base,
		cfg:     cfg,
		tokens:  tokens,
		log:     zap.NewNop(),
		sleep:   sleepCtx,
		headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
	}
	if cfg.UserAgent != "" {
		c.headers["User-Agent"] = cfg.UserAgent
	}
	for k, v := range cfg.Headers {
		c.headers[k] = v
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		jar, _ := cookiejar.New(nil)
		c.httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   cfg.Timeout,
			Jar:       jar,
		}
	}
	// Auth runs first so user interceptors can see or override the header.
	c.requestHooks = append([]RequestInterceptor{c.authorize}, c.requestHooks...)

	return c, nil
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SetHeader sets a default header for all requests.
func (c *Client) SetHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers[key] = value
}

// Do executes req. Network failures, status 0 and 5xx are retried up to
// MaxRetries times waiting RetryDelay*n before the n-th retry; 529 is
// retried OverloadRetries times after OverloadRetryDelay. A 401 clears the
// token and is returned immediately. Any non-2xx outcome that is not
// retried away is returned as *APIError together with the response.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	u, err := c.buildURL(req.Path, req.Query)
	if err != nil {
		return nil, fmt.Errorf("building URL: %w", err)
	}
	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}
	requestID := logger.GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	log := logger.WithLogger(ctx, c.log).With(
		zap.String("method", req.Method),
		zap.String("path", req.Path),
	)

	var (
		attempts        int
		serverRetries   int
		overloadRetries int
	)
	for {
		attempts++
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, httpReq, transportErr, err := c.attempt(ctx, req, u, body, contentType, requestID)
		if err != nil {
			return nil, err
		}
		resp.Attempts = attempts
		c.metrics.ObserveRequest(req.Method, resp.StatusCode, resp.Duration)
		for _, hook := range c.responseHooks {
			hook(ctx, httpReq, resp, transportErr)
		}

		if ctx.Err() != nil {
			return resp, ctx.Err()
		}

		switch {
		case transportErr == nil && resp.StatusCode >= 200 && resp.StatusCode < 400:
			return resp, nil

		case transportErr == nil && resp.StatusCode == StatusOverloaded:
			if !req.NoRetry && overloadRetries < c.cfg.OverloadRetries {
				overloadRetries++
				log.Warn("server overloaded, retrying",
					zap.Int("retry", overloadRetries),
					zap.Duration("delay", c.cfg.OverloadRetryDelay))
				c.metrics.IncRetry("overloaded")
				if err := c.sleep(ctx, c.cfg.OverloadRetryDelay); err != nil {
					return resp, err
				}
				continue
			}
			log.Warn("server overloaded, giving up", zap.Int("attempts", attempts))
			return resp, newAPIError(resp.StatusCode, resp.Body)

		case transportErr != nil || resp.StatusCode == 0 || resp.StatusCode >= 500:
			if !req.NoRetry && serverRetries < c.cfg.MaxRetries {
				serverRetries++
				delay := c.cfg.RetryDelay * time.Duration(serverRetries)
				reason := "server_error"
				if transportErr != nil || resp.StatusCode == 0 {
					reason = "network"
				}
				log.Warn("request failed, retrying",
					zap.Int("status", resp.StatusCode),
					zap.Error(transportErr),
					zap.Int("retry", serverRetries),
					zap.Int("max_retries", c.cfg.MaxRetries),
					zap.Duration("delay", delay))
				c.metrics.IncRetry(reason)
				if err := c.sleep(ctx, delay); err != nil {
					return resp, err
				}
				continue
			}
			if transportErr != nil {
				log.Error("request failed", zap.Error(transportErr), zap.Int("attempts", attempts))
				return resp, fmt.Errorf("%w: %s %s: %v", ErrNetwork, req.Method, req.Path, transportErr)
			}
			log.Error("server error", zap.Int("status", resp.StatusCode), zap.Int("attempts", attempts))
			return resp, newAPIError(resp.StatusCode, resp.Body)

		case resp.StatusCode == http.StatusUnauthorized:
			c.handleUnauthorized(ctx, log)
			return resp, newAPIError(resp.StatusCode, resp.Body)

		case resp.StatusCode == http.StatusForbidden:
			log.Warn("access forbidden")
			return resp, newAPIError(resp.StatusCode, resp.Body)

		case resp.StatusCode == http.StatusNotFound:
			log.Debug("resource not found")
			return resp, newAPIError(resp.StatusCode, resp.Body)

		default:
			apiErr := newAPIError(resp.StatusCode, resp.Body)
			log.Info("request rejected", zap.Int("status", resp.StatusCode), zap.String("message", apiErr.Message))
			return resp, apiErr
		}
	}
}

// attempt performs one round trip. The returned Response is never nil when
// err is nil; transportErr reports failures worth retrying.
func (c *Client) attempt(ctx context.Context, req Request, u *url.URL, body []byte, contentType, requestID string) (resp *Response, httpReq *http.Request, transportErr, err error) {
	resp = &Response{}

	attemptCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err = http.NewRequestWithContext(attemptCtx, req.Method, u.String(), reader)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	c.setHeaders(httpReq, req.Headers)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("X-Request-ID", requestID)
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}
	for _, hook := range c.requestHooks {
		if err := hook(ctx, httpReq); err != nil {
			return nil, nil, nil, fmt.Errorf("request interceptor: %w", err)
		}
	}

	start := time.Now()
	httpResp, doErr := c.httpClient.Do(httpReq)
	resp.Duration = time.Since(start)
	if doErr != nil {
		return resp, httpReq, doErr, nil
	}
	defer httpResp.Body.Close()

	resp.StatusCode = httpResp.StatusCode
	resp.Headers = httpResp.Header
	data, readErr := io.ReadAll(httpResp.Body)
	resp.Body = data
	resp.Duration = time.Since(start)
	if readErr != nil {
		return resp, httpReq, fmt.Errorf("reading response body: %w", readErr), nil
	}
	return resp, httpReq, nil, nil
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	if c.tokens == nil {
		return nil
	}
	if token := c.tokens.Token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

func (c *Client) handleUnauthorized(ctx context.Context, log *zap.Logger) {
	log.Warn("unauthorized, clearing session")
	if c.tokens != nil {
		if err := c.tokens.ClearToken(ctx); err != nil {
			log.Error("failed to clear session", zap.Error(err))
		}
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized(ctx)
	}
}

// DoJSON executes req and decodes a successful body into out.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return resp.JSON(out)
}

// Get performs a GET request and decodes the body into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.DoJSON(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post performs a POST request and decodes the body into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.DoJSON(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Put performs a PUT request and decodes the body into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.DoJSON(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Patch performs a PATCH request and decodes the body into out.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.DoJSON(ctx, Request{Method: http.MethodPatch, Path: path, Body: body}, out)
}

// Delete performs a DELETE request and decodes the body into out.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.DoJSON(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}

func (c *Client) buildURL(path string, query url.Values) (*url.URL, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		u, err := url.Parse(path)
		if err != nil {
			return nil, err
		}
		if len(query) > 0 {
			u.RawQuery = query.Encode()
		}
		return u, nil
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	rel, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parsing path: %w", err)
	}
	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + rel.Path
	u.RawQuery = rel.RawQuery
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return &u, nil
}

func (c *Client) setHeaders(req *http.Request, custom map[string]string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range custom {
		req.Header.Set(k, v)
	}
}

func encodeBody(req Request) ([]byte, string, error) {
	if req.RawBody != nil {
		return req.RawBody, req.ContentType, nil
	}
	if req.Body == nil {
		return nil, "", nil
	}
	b, err := json.Marshal(req.Body)
	if err != nil {
		return nil, "", fmt.Errorf("marshaling request body: %w", err)
	}
	return b, "", nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
