package cache

import (
	"context"
	"sync"
	"time"

	"github.com/storefront/client/internal/domain/shared"
)

// MemoryGuard keeps claims in a map, visible to this process only.
// Expired claims are swept on every Claim.
type MemoryGuard struct {
	mu     sync.Mutex
	claims map[string]time.Time
	now    func() time.Time
}

// NewMemoryGuard creates an empty guard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{claims: make(map[string]time.Time), now: time.Now}
}

// Claim takes key for ttl. It reports false while an unexpired claim exists.
func (g *MemoryGuard) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for k, until := range g.claims {
		if !now.Before(until) {
			delete(g.claims, k)
		}
	}
	if _, held := g.claims[key]; held {
		return false, nil
	}
	g.claims[key] = now.Add(ttl)
	return true, nil
}

// Held reports whether key has an unexpired claim.
func (g *MemoryGuard) Held(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	until, ok := g.claims[key]
	return ok && g.now().Before(until), nil
}

// Release drops the claim on key, if any.
func (g *MemoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	delete(g.claims, key)
	g.mu.Unlock()
	return nil
}

// Len counts stored claims, expired ones included until the next sweep.
func (g *MemoryGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.claims)
}

// Close is a no-op; the map goes with the guard.
func (g *MemoryGuard) Close() error { return nil }

var _ shared.SubmissionGuard = (*MemoryGuard)(nil)
