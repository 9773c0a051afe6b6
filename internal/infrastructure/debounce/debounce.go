// Package debounce coalesces bursts of keyed calls into one execution.
//
// Every caller in a burst waits for the single call that finally fires and
// receives its result, so no caller is left hanging when a later call
// supersedes it.
package debounce

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/storefront/client/internal/infrastructure/metrics"
)

// ErrCanceled is returned to callers whose pending call was canceled.
var ErrCanceled = errors.New("debounce: call canceled")

// Func is the work debounced under a key.
type Func[T any] func(ctx context.Context) (T, error)

type result[T any] struct {
	val T
	err error
}

type call[T any] struct {
	fn      Func[T]
	gen     uint64
	timer   *time.Timer
	waiters []chan result[T]
}

// Option configures a Group.
type Option func(*options)

type options struct {
	metrics *metrics.Collector
}

// WithMetrics counts superseded calls per key.
func WithMetrics(m *metrics.Collector) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// Group debounces calls by key. The zero value is not usable; use New.
type Group[T any] struct {
	mu     sync.Mutex
	calls  map[string]*call[T]
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
	opts   options
}

// New creates a Group. Fired functions receive a context that is canceled
// by Close.
func New[T any](opts ...Option) *Group[T] {
	ctx, cancel := context.WithCancel(context.Background())
	g := &Group[T]{
		calls:  make(map[string]*call[T]),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(&g.opts)
	}
	return g
}

// Do schedules fn under key to run delay after the last Do for that key.
// Calls made while one is pending replace its fn and restart the timer.
// All callers of a burst get the outcome of the fn that finally runs.
func (g *Group[T]) Do(ctx context.Context, key string, delay time.Duration, fn Func[T]) (T, error) {
	ch := make(chan result[T], 1)

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		var zero T
		return zero, ErrCanceled
	}
	c, ok := g.calls[key]
	if ok {
		c.timer.Stop()
		g.opts.metrics.IncDebounceCoalesced(key)
	} else {
		c = &call[T]{}
		g.calls[key] = c
	}
	c.fn = fn
	c.gen++
	gen := c.gen
	c.waiters = append(c.waiters, ch)
	c.timer = time.AfterFunc(delay, func() { g.fire(key, c, gen) })
	g.mu.Unlock()

	select {
	case r := <-ch:
		return r.val, r.err
	case <-ctx.Done():
		g.leave(key, c, ch)
		var zero T
		return zero, ctx.Err()
	}
}

// fire runs the call if gen is still the latest schedule for key.
func (g *Group[T]) fire(key string, c *call[T], gen uint64) {
	g.mu.Lock()
	if g.calls[key] != c || c.gen != gen {
		g.mu.Unlock()
		return
	}
	delete(g.calls, key)
	fn, waiters := c.fn, c.waiters
	g.mu.Unlock()

	val, err := fn(g.ctx)
	for _, w := range waiters {
		w <- result[T]{val: val, err: err}
	}
}

// leave drops a waiter whose context ended. The last waiter out stops the
// timer so abandoned work never runs.
func (g *Group[T]) leave(key string, c *call[T], ch chan result[T]) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.calls[key] != c {
		return
	}
	for i, w := range c.waiters {
		if w == ch {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			break
		}
	}
	if len(c.waiters) == 0 {
		c.timer.Stop()
		delete(g.calls, key)
	}
}

// Cancel rejects every caller pending on key with ErrCanceled.
func (g *Group[T]) Cancel(key string) {
	g.mu.Lock()
	c, ok := g.calls[key]
	if ok {
		c.timer.Stop()
		delete(g.calls, key)
	}
	g.mu.Unlock()

	if ok {
		reject(c)
	}
}

// Close cancels all pending keys. Later calls to Do fail with ErrCanceled.
func (g *Group[T]) Close() {
	g.mu.Lock()
	g.closed = true
	pending := g.calls
	g.calls = make(map[string]*call[T])
	for _, c := range pending {
		c.timer.Stop()
	}
	g.mu.Unlock()

	for _, c := range pending {
		reject(c)
	}
	g.cancel()
}

// Pending reports whether a call is scheduled for key.
func (g *Group[T]) Pending(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.calls[key]
	return ok
}

func reject[T any](c *call[T]) {
	for _, w := range c.waiters {
		w <- result[T]{err: ErrCanceled}
	}
}
