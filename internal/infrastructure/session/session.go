// Package session keeps the signed-in state (token, role, remember-me and
// the cached user) behind one explicit load/save boundary.
package session

import (
	"context"
	"time"

	"github.com/storefront/client/internal/domain/identity"
)

// Session is the persisted sign-in state.
type Session struct {
	Token      string         `json:"token"`
	Role       string         `json:"user_role"`
	RememberMe bool           `json:"remember_me"`
	User       *identity.User `json:"user,omitempty"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
	SavedAt    time.Time      `json:"saved_at"`
}

// Expired reports whether the token's expiry, when known, has passed.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// TTL is how long a store should keep the session.
func (s *Session) TTL(now time.Time) time.Duration {
	if s.ExpiresAt != nil {
		if d := s.ExpiresAt.Sub(now); d > 0 {
			return d
		}
		return time.Second
	}
	if s.RememberMe {
		return 30 * 24 * time.Hour
	}
	return 24 * time.Hour
}

// Store persists a single session. Load returns (nil, nil) when nothing
// is stored.
type Store interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
}
