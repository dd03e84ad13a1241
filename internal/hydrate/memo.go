package hydrate

import (
	"context"
	"strings"

	"github.com/patrickmn/go-cache"
)

// flight is one memoized resolution. done closes once val is final; every
// caller asking for the same key waits on the same flight.
type flight[T any] struct {
	done chan struct{}
	val  T
}

func (f *flight[T]) wait(ctx context.Context) (T, bool) {
	select {
	case <-f.done:
		return f.val, true
	case <-ctx.Done():
		var zero T
		return zero, false
	}
}

// memo maps cache keys to flights. Entries never expire; they leave only
// through invalidate or clear.
type memo[T any] struct {
	items *cache.Cache
}

func newMemo[T any]() *memo[T] {
	return &memo[T]{items: cache.New(cache.NoExpiration, 0)}
}

// do returns the flight stored under key, starting fn in the background when
// there is none. fn runs detached from ctx's cancellation: a shared fetch is
// never aborted because one waiter went away.
func (m *memo[T]) do(ctx context.Context, key string, fn func(context.Context) T) (f *flight[T], started bool) {
	for {
		if x, ok := m.items.Get(key); ok {
			return x.(*flight[T]), false
		}
		f = &flight[T]{done: make(chan struct{})}
		if err := m.items.Add(key, f, cache.NoExpiration); err != nil {
			// another caller stored a flight between Get and Add
			continue
		}
		go func() {
			defer close(f.done)
			defer func() {
				if r := recover(); r != nil {
					var zero T
					f.val = zero
				}
			}()
			f.val = fn(context.WithoutCancel(ctx))
		}()
		return f, true
	}
}

func (m *memo[T]) invalidateSuffix(suffix string) int {
	removed := 0
	for key := range m.items.Items() {
		if strings.HasSuffix(key, suffix) {
			m.items.Delete(key)
			removed++
		}
	}
	return removed
}

func (m *memo[T]) clear() {
	m.items.Flush()
}

func (m *memo[T]) len() int {
	return m.items.ItemCount()
}
