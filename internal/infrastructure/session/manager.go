package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/storefront/client/internal/domain/identity"
)

// Manager holds the current session in memory and writes through to a
// Store on every change. It is the TokenSource of the API client.
type Manager struct {
	store Store
	log   *zap.Logger
	now   func() time.Time

	// writeMu serializes changes, store I/O included, so a slow Save can
	// not resurrect a session that Logout already cleared.
	writeMu sync.Mutex
	mu      sync.RWMutex
	current Session
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) { m.log = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager backed by store.
func NewManager(store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store: store,
		log:   zap.NewNop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load reads the persisted session. An expired session is discarded.
func (m *Manager) Load(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	s, err := m.store.Load(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s == nil {
		m.current = Session{Role: identity.RoleUser}
		return nil
	}
	if s.Expired(m.now()) {
		m.log.Info("stored session expired, discarding")
		m.current = Session{Role: identity.RoleUser}
		return m.store.Clear(ctx)
	}
	if s.Role == "" {
		s.Role = identity.RoleUser
	}
	m.current = *s
	return nil
}

// Login stores a fresh token. The role comes from the user when known,
// then from the token claims, and defaults to "user".
func (m *Manager) Login(ctx context.Context, token string, user *identity.User, rememberMe bool) error {
	if token == "" {
		return fmt.Errorf("empty token")
	}
	s := Session{
		Token:      token,
		Role:       identity.RoleUser,
		RememberMe: rememberMe,
		User:       user,
		SavedAt:    m.now(),
	}
	if claims, err := DecodeClaims(token); err == nil {
		s.ExpiresAt = claims.ExpiresAt
		if claims.Role != "" {
			s.Role = claims.Role
		}
	} else {
		m.log.Debug("token is not a readable JWT", zap.Error(err))
	}
	if user != nil && user.Role != "" {
		s.Role = user.Role
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.replace(ctx, s)
}

// UpdateUser caches the user and syncs the role.
func (m *Manager) UpdateUser(ctx context.Context, user *identity.User) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.RLock()
	s := m.current
	m.mu.RUnlock()

	if s.Token == "" {
		return nil
	}
	s.User = user
	if user != nil && user.Role != "" {
		s.Role = user.Role
	}
	s.SavedAt = m.now()
	return m.replace(ctx, s)
}

// Logout forgets the session in memory and in the store.
func (m *Manager) Logout(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	m.current = Session{Role: identity.RoleUser}
	m.mu.Unlock()
	return m.store.Clear(ctx)
}

// Current returns a copy of the current session.
func (m *Manager) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// IsAuthenticated reports whether a token is present and not known to be expired.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Token != "" && !m.current.Expired(m.now())
}

// Role returns the current role, "user" when signed out.
func (m *Manager) Role() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current.Role == "" {
		return identity.RoleUser
	}
	return m.current.Role
}

// User returns the cached user, if any.
func (m *Manager) User() *identity.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.User
}

// Token implements httpclient.TokenSource.
func (m *Manager) Token(ctx context.Context) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current.Expired(m.now()) {
		return ""
	}
	return m.current.Token
}

// ClearToken implements httpclient.TokenSource. It is called after the
// backend rejected the token.
func (m *Manager) ClearToken(ctx context.Context) error {
	return m.Logout(ctx)
}

// replace persists s and makes it current. Callers hold writeMu.
func (m *Manager) replace(ctx context.Context, s Session) error {
	if err := m.store.Save(ctx, &s); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
	return nil
}
