// Package realtime is the WebSocket channel client. A channel lives at
// <base>/ws/<name>, authenticates with the session token shortly after
// connecting, answers application-level pings and reconnects with
// exponential backoff after abnormal closures.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"

	"github.com/storefront/client/internal/infrastructure/metrics"
)

var (
	// ErrNotConnected is returned by Send while the channel has no socket.
	ErrNotConnected = errors.New("realtime: channel not connected")

	// ErrReconnectExhausted is reported once all reconnect attempts failed.
	ErrReconnectExhausted = errors.New("realtime: reconnect attempts exhausted")
)

// Config holds channel settings.
type Config struct {
	BaseURL        string
	AuthDelay      time.Duration
	MaxReconnects  int
	ReconnectBase  time.Duration
	ReconnectLimit time.Duration
	DialTimeout    time.Duration
	// MaxMessageSize caps one inbound message, fragments included. Larger
	// messages close the socket with 1009.
	MaxMessageSize int64
}

// DefaultConfig returns the default channel settings.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://localhost:8000",
		AuthDelay:      500 * time.Millisecond,
		MaxReconnects:  5,
		ReconnectBase:  time.Second,
		ReconnectLimit: 30 * time.Second,
		DialTimeout:    10 * time.Second,
		MaxMessageSize: 1 << 20,
	}
}

// TokenSource supplies the bearer token sent in the auth message.
type TokenSource interface {
	Token(ctx context.Context) string
}

// Handler receives every message the channel does not consume itself.
// It runs on the channel's read goroutine.
type Handler func(ctx context.Context, msg Message)

// Client opens channels against one backend.
type Client struct {
	cfg     Config
	tokens  TokenSource
	logger  *zap.Logger
	metrics *metrics.Collector
	dialer  ws.Dialer
	onError func(channel string, err error)
	onClose func(channel string, code ws.StatusCode, reason string)
	now     func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithMetrics records message and reconnect counters.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithErrorHandler is called for read failures, failed reconnects and
// finally with ErrReconnectExhausted.
func WithErrorHandler(fn func(channel string, err error)) Option {
	return func(c *Client) {
		c.onError = fn
	}
}

// WithCloseHandler is called every time a socket of a channel closes.
func WithCloseHandler(fn func(channel string, code ws.StatusCode, reason string)) Option {
	return func(c *Client) {
		c.onClose = fn
	}
}

// New creates a Client. Zero durations in cfg fall back to DefaultConfig.
func New(cfg Config, tokens TokenSource, opts ...Option) *Client {
	def := DefaultConfig()
	if cfg.AuthDelay <= 0 {
		cfg.AuthDelay = def.AuthDelay
	}
	if cfg.ReconnectBase <= 0 {
		cfg.ReconnectBase = def.ReconnectBase
	}
	if cfg.ReconnectLimit <= 0 {
		cfg.ReconnectLimit = def.ReconnectLimit
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = def.DialTimeout
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.MaxReconnects < 0 {
		cfg.MaxReconnects = 0
	}

	c := &Client{
		cfg:     cfg,
		tokens:  tokens,
		logger:  zap.NewNop(),
		onError: func(string, error) {},
		onClose: func(string, ws.StatusCode, string) {},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.dialer = ws.Dialer{Timeout: cfg.DialTimeout}
	return c
}

// ChannelURL maps an http(s) base URL to the ws(s) URL of a channel.
func ChannelURL(baseURL, channel string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/" + channel
	return u.String(), nil
}

// Backoff returns the wait before reconnect attempt n (1-based):
// base * 2^(n-1), capped at limit.
func Backoff(base, limit time.Duration, n int) time.Duration {
	if n < 1 {
		n = 1
	}
	if n > 31 {
		return limit
	}
	d := base << (n - 1)
	if d <= 0 || d > limit {
		return limit
	}
	return d
}

// Connect dials the channel and starts serving it in the background. The
// first dial is synchronous; its failure is returned and nothing is retried.
// ctx bounds the first dial only.
func (c *Client) Connect(ctx context.Context, channel string, h Handler) (*Channel, error) {
	u, err := ChannelURL(c.cfg.BaseURL, channel)
	if err != nil {
		return nil, err
	}
	if h == nil {
		h = func(context.Context, Message) {}
	}

	ch := &Channel{
		client:  c,
		name:    channel,
		url:     u,
		handler: h,
		log:     c.logger.With(zap.String("channel", channel)),
		done:    make(chan struct{}),
	}
	ch.ctx, ch.cancel = context.WithCancel(context.WithoutCancel(ctx))

	conn, r, err := ch.dial(ctx)
	if err != nil {
		ch.cancel()
		return nil, fmt.Errorf("connect %s: %w", channel, err)
	}
	ch.attach(conn)
	go ch.run(conn, r)
	return ch, nil
}

// Channel is one live subscription.
type Channel struct {
	client  *Client
	name    string
	url     string
	handler Handler
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.Mutex
	conn net.Conn
	err  error

	writeMu       sync.Mutex
	authenticated atomic.Bool
	closing       atomic.Bool
}

// Name returns the channel name.
func (ch *Channel) Name() string {
	return ch.name
}

// IsConnected reports whether a socket is currently open.
func (ch *Channel) IsConnected() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.conn != nil
}

// Authenticated reports whether the server acknowledged the auth message
// on the current socket.
func (ch *Channel) Authenticated() bool {
	return ch.authenticated.Load()
}

// Done is closed when the channel stops for good.
func (ch *Channel) Done() <-chan struct{} {
	return ch.done
}

// Err returns the terminal error after Done, if any.
func (ch *Channel) Err() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.err
}

// Send writes msg as a JSON text frame.
func (ch *Channel) Send(msg any) error {
	ch.mu.Lock()
	conn := ch.conn
	ch.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return ch.sendOn(conn, msg)
}

// Close sends a normal closure and stops reconnecting. It blocks until
// the read goroutine exits.
func (ch *Channel) Close() error {
	if !ch.closing.CompareAndSwap(false, true) {
		<-ch.done
		return nil
	}
	ch.cancel()

	ch.mu.Lock()
	conn := ch.conn
	ch.mu.Unlock()
	if conn != nil {
		_ = ch.writeFrame(conn, ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, "Client disconnecting"))
		_ = conn.Close()
	}
	<-ch.done
	ch.log.Info("WebSocket disconnected")
	return nil
}

func (ch *Channel) dial(ctx context.Context) (net.Conn, io.Reader, error) {
	conn, br, _, err := ch.client.dialer.Dial(ctx, ch.url)
	if err != nil {
		return nil, nil, err
	}
	var r io.Reader = conn
	if br != nil {
		r = br
	}
	ch.log.Info("WebSocket connected", zap.String("url", ch.url))
	return conn, r, nil
}

// attach publishes conn to Send and IsConnected. It runs before serve so a
// channel is usable as soon as Connect returns.
func (ch *Channel) attach(conn net.Conn) {
	ch.mu.Lock()
	ch.conn = conn
	ch.mu.Unlock()
	ch.authenticated.Store(false)
}

func (ch *Channel) run(conn net.Conn, r io.Reader) {
	defer close(ch.done)

	for {
		code, reason := ch.serve(conn, r)
		ch.log.Info("WebSocket closed",
			zap.Int("code", int(code)),
			zap.String("reason", reason),
		)
		ch.client.onClose(ch.name, code, reason)

		if ch.closing.Load() || code == ws.StatusNormalClosure || code == ws.StatusPolicyViolation {
			return
		}

		var err error
		conn, r, err = ch.reconnect()
		if err != nil {
			if ch.closing.Load() {
				return
			}
			ch.mu.Lock()
			ch.err = err
			ch.mu.Unlock()
			ch.log.Error("WebSocket reconnect gave up", zap.Error(err))
			ch.client.onError(ch.name, err)
			return
		}
		ch.attach(conn)
	}
}

// reconnect dials until it succeeds or MaxReconnects attempts failed.
func (ch *Channel) reconnect() (net.Conn, io.Reader, error) {
	cfg := ch.client.cfg
	for attempt := 1; attempt <= cfg.MaxReconnects; attempt++ {
		delay := Backoff(cfg.ReconnectBase, cfg.ReconnectLimit, attempt)
		ch.log.Info("reconnecting WebSocket",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.MaxReconnects),
			zap.Duration("delay", delay),
		)

		t := time.NewTimer(delay)
		select {
		case <-ch.ctx.Done():
			t.Stop()
			return nil, nil, ch.ctx.Err()
		case <-t.C:
		}

		ch.client.metrics.IncWSReconnect()
		conn, r, err := ch.dial(ch.ctx)
		if err == nil {
			return conn, r, nil
		}
		ch.log.Warn("WebSocket reconnect failed", zap.Int("attempt", attempt), zap.Error(err))
		ch.client.onError(ch.name, err)
	}
	return nil, nil, fmt.Errorf("%w: %s after %d attempts", ErrReconnectExhausted, ch.name, cfg.MaxReconnects)
}

// serve owns conn until it closes and returns the close code.
func (ch *Channel) serve(conn net.Conn, r io.Reader) (ws.StatusCode, string) {
	authTimer := time.AfterFunc(ch.client.cfg.AuthDelay, func() { ch.sendAuth(conn) })
	defer func() {
		authTimer.Stop()
		ch.mu.Lock()
		if ch.conn == conn {
			ch.conn = nil
		}
		ch.mu.Unlock()
		ch.authenticated.Store(false)
		_ = conn.Close()
	}()
	if ch.closing.Load() {
		return ws.StatusNormalClosure, "Client disconnecting"
	}

	control := ch.controlHandler(conn)
	rd := &wsutil.Reader{
		Source:         r,
		State:          ws.StateClientSide,
		MaxFrameSize:   ch.client.cfg.MaxMessageSize,
		OnIntermediate: control,
	}
	for {
		payload, err := ch.readMessage(rd, control)
		if err != nil {
			var closed wsutil.ClosedError
			switch {
			case ch.closing.Load():
				return ws.StatusNormalClosure, "Client disconnecting"
			case errors.As(err, &closed):
				return closed.Code, closed.Reason
			case errors.Is(err, wsutil.ErrFrameTooLarge):
				ch.log.Warn("WebSocket message too large", zap.Int64("limit", ch.client.cfg.MaxMessageSize))
				_ = ch.writeFrame(conn, ws.OpClose, ws.NewCloseFrameBody(ws.StatusMessageTooBig, "Message too big"))
				ch.client.onError(ch.name, err)
				return ws.StatusMessageTooBig, err.Error()
			default:
				ch.log.Warn("WebSocket read failed", zap.Error(err))
				ch.client.onError(ch.name, err)
				return ws.StatusAbnormalClosure, err.Error()
			}
		}
		if stop := ch.dispatch(conn, payload); stop {
			return ws.StatusPolicyViolation, "Authentication failed"
		}
	}
}

// readMessage returns the next text or binary message. Control frames
// met on the way, including those between fragments, go to control.
func (ch *Channel) readMessage(rd *wsutil.Reader, control wsutil.FrameHandlerFunc) ([]byte, error) {
	limit := ch.client.cfg.MaxMessageSize
	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return nil, err
		}
		if hdr.OpCode.IsControl() {
			if err := control(hdr, rd); err != nil {
				return nil, err
			}
			continue
		}
		if hdr.OpCode != ws.OpText && hdr.OpCode != ws.OpBinary {
			if err := rd.Discard(); err != nil {
				return nil, err
			}
			continue
		}
		payload, err := io.ReadAll(io.LimitReader(rd, limit+1))
		if err != nil {
			return nil, err
		}
		if int64(len(payload)) > limit {
			return nil, wsutil.ErrFrameTooLarge
		}
		return payload, nil
	}
}

// controlHandler answers pings and close frames. Replies go through
// writeFrame so they never interleave with a concurrent Send.
func (ch *Channel) controlHandler(conn net.Conn) wsutil.FrameHandlerFunc {
	return func(h ws.Header, r io.Reader) error {
		payload, err := io.ReadAll(io.LimitReader(r, ws.MaxControlFramePayloadSize))
		if err != nil {
			return err
		}
		switch h.OpCode {
		case ws.OpPing:
			return ch.writeFrame(conn, ws.OpPong, payload)
		case ws.OpClose:
			code, reason := ws.ParseCloseFrameData(payload)
			var body []byte
			if code == 0 {
				code = ws.StatusNoStatusRcvd
			} else {
				body = ws.NewCloseFrameBody(code, "")
			}
			_ = ch.writeFrame(conn, ws.OpClose, body)
			return wsutil.ClosedError{Code: code, Reason: reason}
		}
		return nil
	}
}

// dispatch handles one data message. It returns true when the socket must
// be dropped without reconnecting.
func (ch *Channel) dispatch(conn net.Conn, payload []byte) bool {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		ch.log.Warn("failed to parse WebSocket message", zap.Error(err))
		return false
	}
	ch.client.metrics.IncWSMessage("in", msg.Type)

	switch msg.Type {
	case TypeAuthSuccess:
		ch.authenticated.Store(true)
		ch.log.Info("WebSocket authenticated")
		ch.handler(ch.ctx, msg)
	case TypeAuthFailed:
		ch.log.Error("WebSocket authentication failed", zap.String("message", msg.Message))
		_ = ch.writeFrame(conn, ws.OpClose, ws.NewCloseFrameBody(ws.StatusPolicyViolation, "Authentication failed"))
		ch.handler(ch.ctx, msg)
		return true
	case TypeAuthRequired:
		ch.log.Info("WebSocket authentication required")
		ch.handler(ch.ctx, msg)
	case TypePing:
		if err := ch.sendOn(conn, pongMessage(ch.client.now())); err != nil {
			ch.log.Warn("failed to answer ping", zap.Error(err))
		}
	default:
		ch.handler(ch.ctx, msg)
	}
	return false
}

func (ch *Channel) sendAuth(conn net.Conn) {
	var token string
	if ch.client.tokens != nil {
		token = ch.client.tokens.Token(ch.ctx)
	}
	if token == "" {
		ch.log.Warn("cannot send auth message: no token")
		return
	}
	if err := ch.sendOn(conn, authMessage(token)); err != nil {
		ch.log.Error("failed to send auth message", zap.Error(err))
		return
	}
	ch.log.Debug("auth message sent")
}

func (ch *Channel) sendOn(conn net.Conn, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := ch.writeFrame(conn, ws.OpText, data); err != nil {
		return err
	}
	if m, ok := msg.(Message); ok {
		ch.client.metrics.IncWSMessage("out", m.Type)
	}
	return nil
}

func (ch *Channel) writeFrame(conn net.Conn, op ws.OpCode, payload []byte) error {
	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	if err := wsutil.WriteClientMessage(conn, op, payload); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
