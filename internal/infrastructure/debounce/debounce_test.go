package debounce

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/client/internal/infrastructure/metrics"
)

func TestGroup_CoalescesBurst(t *testing.T) {
	g := New[int]()
	defer g.Close()

	var calls atomic.Int32
	const n = 5

	results := make([]int, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			results[i], errs[i] = g.Do(context.Background(), "stats", 50*time.Millisecond, func(ctx context.Context) (int, error) {
				calls.Add(1)
				return 42, nil
			})
		}()
		time.Sleep(5 * time.Millisecond)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 42, results[i])
	}
	assert.False(t, g.Pending("stats"))
}

func TestGroup_LatestFuncWins(t *testing.T) {
	g := New[string]()
	defer g.Close()

	var wg sync.WaitGroup
	var first string
	wg.Add(1)
	go func() {
		defer wg.Done()
		first, _ = g.Do(context.Background(), "k", 40*time.Millisecond, func(context.Context) (string, error) {
			return "first", nil
		})
	}()

	require.Eventually(t, func() bool { return g.Pending("k") }, time.Second, time.Millisecond)
	second, err := g.Do(context.Background(), "k", 40*time.Millisecond, func(context.Context) (string, error) {
		return "second", nil
	})
	wg.Wait()

	require.NoError(t, err)
	assert.Equal(t, "second", second)
	assert.Equal(t, "second", first)
}

func TestGroup_ErrorSharedByAllCallers(t *testing.T) {
	g := New[int]()
	defer g.Close()

	boom := errors.New("boom")
	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := range errs {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			_, errs[i] = g.Do(context.Background(), "k", 30*time.Millisecond, func(context.Context) (int, error) {
				return 0, boom
			})
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, boom)
	}
}

func TestGroup_KeysAreIndependent(t *testing.T) {
	g := New[string]()
	defer g.Close()

	var wg sync.WaitGroup
	var a, b string
	wg.Add(2)
	go func() {
		defer wg.Done()
		a, _ = g.Do(context.Background(), "a", 20*time.Millisecond, func(context.Context) (string, error) { return "A", nil })
	}()
	go func() {
		defer wg.Done()
		b, _ = g.Do(context.Background(), "b", 20*time.Millisecond, func(context.Context) (string, error) { return "B", nil })
	}()
	wg.Wait()

	assert.Equal(t, "A", a)
	assert.Equal(t, "B", b)
}

func TestGroup_Cancel(t *testing.T) {
	g := New[int]()
	defer g.Close()

	var ran atomic.Bool
	errCh := make(chan error, 1)
	go func() {
		_, err := g.Do(context.Background(), "k", time.Hour, func(context.Context) (int, error) {
			ran.Store(true)
			return 1, nil
		})
		errCh <- err
	}()

	require.Eventually(t, func() bool { return g.Pending("k") }, time.Second, time.Millisecond)
	g.Cancel("k")

	assert.ErrorIs(t, <-errCh, ErrCanceled)
	assert.False(t, ran.Load())
	assert.False(t, g.Pending("k"))
}

func TestGroup_ContextDoneLeavesOthers(t *testing.T) {
	g := New[int]()
	defer g.Close()

	ctx, cancel := context.WithCancel(context.Background())
	leftCh := make(chan error, 1)
	go func() {
		_, err := g.Do(ctx, "k", 60*time.Millisecond, func(context.Context) (int, error) { return 1, nil })
		leftCh <- err
	}()
	require.Eventually(t, func() bool { return g.Pending("k") }, time.Second, time.Millisecond)

	stayCh := make(chan int, 1)
	go func() {
		v, _ := g.Do(context.Background(), "k", 60*time.Millisecond, func(context.Context) (int, error) { return 7, nil })
		stayCh <- v
	}()

	cancel()
	assert.ErrorIs(t, <-leftCh, context.Canceled)
	assert.Equal(t, 7, <-stayCh)
}

func TestGroup_Close(t *testing.T) {
	g := New[int]()

	errCh := make(chan error, 1)
	go func() {
		_, err := g.Do(context.Background(), "k", time.Hour, func(context.Context) (int, error) { return 1, nil })
		errCh <- err
	}()
	require.Eventually(t, func() bool { return g.Pending("k") }, time.Second, time.Millisecond)

	g.Close()
	assert.ErrorIs(t, <-errCh, ErrCanceled)

	_, err := g.Do(context.Background(), "k", time.Millisecond, func(context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, ErrCanceled)
}

func TestGroup_CountsCoalescedCalls(t *testing.T) {
	m := metrics.New(metrics.DefaultConfig())
	g := New[int](WithMetrics(m))
	defer g.Close()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = g.Do(context.Background(), "stats", 50*time.Millisecond, func(context.Context) (int, error) { return 1, nil })
		}()
	}
	wg.Wait()

	families, err := m.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "storefront_debounce_coalesced_total" {
			found = true
			assert.Equal(t, float64(2), f.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found)
}
