package shared

import (
	"context"
	"time"
)

// SubmissionGuard holds short-lived claims on operations that must not run
// twice at once, e.g. the same cart placed as an order from two terminals.
type SubmissionGuard interface {
	// Claim takes key for ttl. It returns false when the key is already held.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Held reports whether anyone holds key.
	Held(ctx context.Context, key string) (bool, error)

	// Release drops a claim this guard took so the operation can run again.
	Release(ctx context.Context, key string) error

	Close() error
}
