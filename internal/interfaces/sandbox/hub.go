package sandbox

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"

	"github.com/storefront/client/internal/domain/identity"
	"github.com/storefront/client/internal/infrastructure/realtime"
)

// DashboardChannel is the only channel the sandbox serves.
const DashboardChannel = "admin-dashboard"

// Hub fans dashboard events out to authenticated admin sockets. A socket
// must send {"type":"auth","token":...} within the auth timeout; until
// then every other message is answered with auth_required.
type Hub struct {
	tokens      *TokenIssuer
	log         *zap.Logger
	authTimeout time.Duration

	mu      sync.Mutex
	clients map[*hubConn]struct{}
}

type hubConn struct {
	mu   sync.Mutex
	conn interface {
		Write([]byte) (int, error)
		Close() error
	}
}

func (c *hubConn) send(msg realtime.Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return wsutil.WriteServerText(c.conn, b)
}

// NewHub creates a hub verifying tokens with t.
func NewHub(t *TokenIssuer, log *zap.Logger) *Hub {
	return &Hub{
		tokens:      t,
		log:         log.Named("ws"),
		authTimeout: 10 * time.Second,
		clients:     make(map[*hubConn]struct{}),
	}
}

// Clients returns the number of authenticated sockets.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and runs the socket until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	hc := &hubConn{conn: conn}
	defer func() {
		h.remove(hc)
		_ = conn.Close()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(h.authTimeout))
	authed := false
	for {
		data, op, err := wsutil.ReadClientData(conn)
		if err != nil {
			return
		}
		if op != ws.OpText {
			continue
		}
		var msg realtime.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			h.log.Debug("ignoring malformed message", zap.Error(err))
			continue
		}

		switch {
		case msg.Type == realtime.TypeAuth:
			if !h.authenticate(hc, msg.Token) {
				return
			}
			authed = true
			_ = conn.SetReadDeadline(time.Time{})
		case !authed:
			_ = hc.send(realtime.Message{Type: realtime.TypeAuthRequired, Message: "Authentication required"})
		case msg.Type == realtime.TypePing:
			_ = hc.send(realtime.Message{Type: realtime.TypePong, Timestamp: time.Now().UTC().Format(time.RFC3339)})
		}
	}
}

func (h *Hub) authenticate(hc *hubConn, token string) bool {
	claims, err := h.tokens.Verify(token)
	if err != nil || claims.Role != identity.RoleAdmin {
		_ = hc.send(realtime.Message{Type: realtime.TypeAuthFailed, Message: "Admin token required"})
		h.log.Info("WebSocket authentication rejected")
		return false
	}
	if err := hc.send(realtime.Message{Type: realtime.TypeAuthSuccess}); err != nil {
		return false
	}
	h.mu.Lock()
	h.clients[hc] = struct{}{}
	h.mu.Unlock()
	h.log.Info("WebSocket client authenticated", zap.String("user_id", claims.Subject))
	return true
}

func (h *Hub) remove(hc *hubConn) {
	h.mu.Lock()
	delete(h.clients, hc)
	h.mu.Unlock()
}

// Broadcast sends an event to every authenticated socket. Sockets that
// fail the write are dropped.
func (h *Hub) Broadcast(msgType string, data any) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			h.log.Error("cannot encode broadcast", zap.String("type", msgType), zap.Error(err))
			return
		}
		raw = b
	}
	msg := realtime.Message{Type: msgType, Data: raw, Timestamp: time.Now().UTC().Format(time.RFC3339)}

	h.mu.Lock()
	targets := make([]*hubConn, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.send(msg); err != nil {
			h.remove(c)
			_ = c.conn.Close()
		}
	}
}

// Ping sends an application-level ping to every socket.
func (h *Hub) Ping() {
	h.Broadcast(realtime.TypePing, nil)
}

// Run pings clients every interval until ctx is done.
func (h *Hub) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			h.Ping()
		}
	}
}

// Close disconnects every socket.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}
