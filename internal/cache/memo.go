package cache

import (
	"context"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Memo runs a loader at most once per key while its result is cached.
// Concurrent callers for the same key share one call. Errors are returned
// to every waiting caller and never stored.
type Memo[T any] struct {
	cache   Cache[T]
	group   singleflight.Group
	gen     atomic.Uint64
	observe func(hit bool)
}

// NewMemo memoizes into c. A nil cache disables storage, so every Do
// calls fn (still deduplicated).
func NewMemo[T any](c Cache[T]) *Memo[T] {
	return &Memo[T]{cache: c}
}

// OnLookup registers a callback told whether each Do was served from cache.
func (m *Memo[T]) OnLookup(fn func(hit bool)) *Memo[T] {
	m.observe = fn
	return m
}

// Do returns the cached value for key or computes it with fn. The shared
// call ignores the caller's cancellation; fn bounds its own work.
func (m *Memo[T]) Do(ctx context.Context, key string, fn func(context.Context) (T, error)) (T, error) {
	if m.cache != nil {
		if v, ok := m.cache.Get(ctx, key); ok {
			m.report(true)
			return v, nil
		}
	}
	m.report(false)

	gen := m.gen.Load()
	shared := context.WithoutCancel(ctx)
	res := m.group.DoChan(strconv.FormatUint(gen, 10)+":"+key, func() (any, error) {
		data, err := fn(shared)
		if err != nil {
			return data, err
		}
		// A Clear during the load makes this result stale.
		if m.cache != nil && m.gen.Load() == gen {
			m.cache.Set(shared, key, data)
		}
		return data, nil
	})

	select {
	case r := <-res:
		data, _ := r.Val.(T)
		return data, r.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Clear drops every cached value. Loads already running finish for their
// callers but are not stored.
func (m *Memo[T]) Clear(ctx context.Context) {
	m.gen.Add(1)
	if m.cache != nil {
		m.cache.Clear(ctx)
	}
}

func (m *Memo[T]) report(hit bool) {
	if m.observe != nil {
		m.observe(hit)
	}
}
