// Package optimistic keeps cached query results that can be patched ahead of
// a server round trip and restored exactly when the server refuses.
package optimistic

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultSize       = 256
	DefaultStaleAfter = 5 * time.Second
)

// entry is one cached result. fetchedAt survives patches and rollbacks so a
// patched listing still goes stale on the schedule of the fetch behind it.
// gen identifies the last write to the key.
type entry[V any] struct {
	value     V
	fetchedAt time.Time
	gen       uint64
}

// Cache maps a query identity to its last known result.
//
// Entries older than the stale window read as misses, and the least recently
// used entries are evicted beyond the size bound.
//
// Mutate snapshots every entry the mutation touches, applies the local patch,
// then commits. A failed commit puts the snapshot back verbatim when nothing
// else wrote the key in the meantime, and drops the key otherwise. A
// successful commit drops the touched entries so the next read refetches.
type Cache[K comparable, V any] struct {
	mu         sync.Mutex
	entries    *expirable.LRU[K, entry[V]]
	clone      func(V) V
	staleAfter time.Duration
	now        func() time.Time
	gen        uint64
}

type Option func(*settings)

type settings struct {
	size       int
	staleAfter time.Duration
	now        func() time.Time
}

// WithSize bounds the number of cached results.
func WithSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.size = n
		}
	}
}

// WithStaleAfter sets how long a fetched result is served before refetching.
func WithStaleAfter(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a cache. clone must deep-copy V when V holds slices or maps so
// that snapshots are not aliased by apply; nil copies by value.
func New[K comparable, V any](clone func(V) V, opts ...Option) *Cache[K, V] {
	cfg := settings{size: DefaultSize, staleAfter: DefaultStaleAfter, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	if clone == nil {
		clone = func(v V) V { return v }
	}
	return &Cache[K, V]{
		// the LRU's own expiry only reclaims memory; staleness is judged
		// against fetchedAt so tests can drive it with a clock
		entries:    expirable.NewLRU[K, entry[V]](cfg.size, nil, 2*cfg.staleAfter),
		clone:      clone,
		staleAfter: cfg.staleAfter,
		now:        cfg.now,
	}
}

// next must be called with c.mu held.
func (c *Cache[K, V]) next() uint64 {
	c.gen++
	return c.gen
}

func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Add(key, entry[V]{value: c.clone(value), fetchedAt: c.now(), gen: c.next()})
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().Sub(e.fetchedAt) >= c.staleAfter {
		c.entries.Remove(key)
		var zero V
		return zero, false
	}
	return c.clone(e.value), true
}

// Invalidate drops every entry whose key matches.
func (c *Cache[K, V]) Invalidate(match func(K) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.entries.Keys() {
		if match(k) {
			c.entries.Remove(k)
		}
	}
}

// Len reports the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

type snapshot[V any] struct {
	before  entry[V]
	patched uint64
}

// Mutate applies an optimistic patch to every matching entry and runs commit.
// The commit error, if any, is returned after the snapshot is restored.
func (c *Cache[K, V]) Mutate(ctx context.Context, match func(K) bool, apply func(K, V) V, commit func(context.Context) error) error {
	c.mu.Lock()
	snapshots := make(map[K]snapshot[V])
	for _, k := range c.entries.Keys() {
		if !match(k) {
			continue
		}
		e, ok := c.entries.Peek(k)
		if !ok {
			continue
		}
		patched := entry[V]{value: apply(k, c.clone(e.value)), fetchedAt: e.fetchedAt, gen: c.next()}
		c.entries.Add(k, patched)
		snapshots[k] = snapshot[V]{before: e, patched: patched.gen}
	}
	c.mu.Unlock()

	err := commit(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, snap := range snapshots {
		if err == nil {
			c.entries.Remove(k)
			continue
		}
		// another mutation or a refetch wrote the key while we committed; the
		// snapshot no longer describes the server, so let the next read refetch
		if cur, ok := c.entries.Peek(k); !ok || cur.gen != snap.patched {
			c.entries.Remove(k)
			continue
		}
		c.entries.Add(k, snap.before)
	}
	return err
}
