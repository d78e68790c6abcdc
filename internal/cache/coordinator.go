// Package cache routes registry reads through per-category freshness checks
// and invalidates exactly the affected categories after successful writes.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/vietddude/cemetery/internal/indexing/metrics"
	"github.com/vietddude/cemetery/internal/infra/rpc/routing"
)

// DefaultCapacity bounds the number of cached keys.
const DefaultCapacity = 1024

// Key identifies one cached value.
type Key struct {
	Category Category
	ID       string
}

// NewKey creates a key. An empty id addresses the category singleton.
func NewKey(category Category, id string) Key {
	return Key{Category: category, ID: id}
}

func (k Key) String() string {
	if k.ID == "" {
		return string(k.Category)
	}
	return string(k.Category) + "/" + k.ID
}

// Config holds coordinator settings.
type Config struct {
	Capacity int
	// TTLs overrides entries of DefaultTTLs.
	TTLs map[Category]time.Duration
}

type entry struct {
	category Category
	value    any
	storedAt time.Time
	stamp    uint64
}

// loaded is what one load hands to every caller sharing it.
type loaded struct {
	value any
	stamp uint64
}

// Coordinator owns the key to entry store. Reads are deduplicated per key
// while in flight; a load that completes after its category was invalidated
// is returned to its callers but never stored.
type Coordinator struct {
	scheduler *routing.Scheduler
	ttls      map[Category]time.Duration

	mu       sync.Mutex
	entries  *lru.Cache[string, entry]
	versions map[Category]uint64
	loads    uint64
	inflight map[string]Category
	group    singleflight.Group
	now      func() time.Time

	listenersMu sync.RWMutex
	listeners   []func(Mutation, []Category)
}

// New creates a coordinator whose loaders and mutations run through scheduler.
func New(scheduler *routing.Scheduler, cfg Config) (*Coordinator, error) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	entries, err := lru.New[string, entry](cfg.Capacity)
	if err != nil {
		return nil, fmt.Errorf("create cache store: %w", err)
	}

	ttls := make(map[Category]time.Duration, len(DefaultTTLs))
	for c, d := range DefaultTTLs {
		ttls[c] = d
	}
	for c, d := range cfg.TTLs {
		if d > 0 {
			ttls[c] = d
		}
	}

	return &Coordinator{
		scheduler: scheduler,
		ttls:      ttls,
		entries:   entries,
		versions:  make(map[Category]uint64),
		inflight:  make(map[string]Category),
		now:       time.Now,
	}, nil
}

// Get returns the cached value for key when fresh, otherwise loads it
// through the retry scheduler.
func Get[T any](ctx context.Context, c *Coordinator, key Key, loader func(ctx context.Context) (T, error)) (T, error) {
	v, _, err := GetStamped(ctx, c, key, loader)
	return v, err
}

// GetStamped is Get that also returns the stamp of the load that produced the
// value. Every completed load gets a new stamp, so a caller deriving state
// from the value (a search index) can tell a reload from a cache hit.
func GetStamped[T any](ctx context.Context, c *Coordinator, key Key, loader func(ctx context.Context) (T, error)) (T, uint64, error) {
	var zero T
	res, err := c.get(ctx, key, func(ctx context.Context) (any, error) {
		return routing.Do(ctx, c.scheduler, key.String(), loader)
	})
	if err != nil {
		return zero, 0, err
	}
	out, ok := res.value.(T)
	if !ok {
		return zero, 0, fmt.Errorf("cache entry %s holds %T", key, res.value)
	}
	return out, res.stamp, nil
}

// Mutate runs op through the retry scheduler and, only on success,
// invalidates every category mutation affects.
func (c *Coordinator) Mutate(ctx context.Context, mutation Mutation, op func(ctx context.Context) error) error {
	err := c.scheduler.Execute(ctx, routing.Operation{Name: string(mutation), Invoke: op})
	if err != nil {
		return err
	}
	c.Invalidate(mutation)
	return nil
}

// MutateValue is Mutate for operations that return a value.
func MutateValue[T any](ctx context.Context, c *Coordinator, mutation Mutation, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := c.Mutate(ctx, mutation, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Invalidate drops every category mapped to mutation.
func (c *Coordinator) Invalidate(mutation Mutation) {
	categories := Invalidations[mutation]
	for _, cat := range categories {
		c.InvalidateCategory(cat)
		metrics.CacheInvalidationsTotal.WithLabelValues(string(mutation), string(cat)).Inc()
	}
	slog.Debug("Cache invalidated", "mutation", mutation, "categories", categories)

	c.listenersMu.RLock()
	listeners := append([]func(Mutation, []Category){}, c.listeners...)
	c.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(mutation, categories)
	}
}

// InvalidateCategory drops all entries of category and detaches in-flight
// loads so later readers start a fresh call.
func (c *Coordinator) InvalidateCategory(category Category) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.versions[category]++
	for _, k := range c.entries.Keys() {
		if e, ok := c.entries.Peek(k); ok && e.category == category {
			c.entries.Remove(k)
		}
	}
	for k, cat := range c.inflight {
		if cat == category {
			c.group.Forget(k)
			delete(c.inflight, k)
		}
	}
}

// InvalidateKey drops one entry.
func (c *Coordinator) InvalidateKey(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key.String()
	c.entries.Remove(k)
	if _, ok := c.inflight[k]; ok {
		c.group.Forget(k)
		delete(c.inflight, k)
	}
}

// OnInvalidate registers fn to run after each mutation invalidation.
func (c *Coordinator) OnInvalidate(fn func(Mutation, []Category)) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Purge drops everything, e.g. on sign-out.
func (c *Coordinator) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for cat := range c.ttls {
		c.versions[cat]++
	}
	c.entries.Purge()
	for k := range c.inflight {
		c.group.Forget(k)
	}
	c.inflight = make(map[string]Category)
}

// PruneExpired evicts entries past their category TTL and returns how many
// were removed.
func (c *Coordinator) PruneExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for _, k := range c.entries.Keys() {
		e, ok := c.entries.Peek(k)
		if !ok || now.Sub(e.storedAt) < c.TTL(e.category) {
			continue
		}
		c.entries.Remove(k)
		removed++
	}
	return removed
}

// MinTTL returns the shortest staleness budget across categories.
func (c *Coordinator) MinTTL() time.Duration {
	shortest := fallbackTTL
	for _, d := range c.ttls {
		if d < shortest {
			shortest = d
		}
	}
	return shortest
}

// Len returns the number of cached entries, fresh or not.
func (c *Coordinator) Len() int {
	return c.entries.Len()
}

// TTL returns the staleness budget of category.
func (c *Coordinator) TTL(category Category) time.Duration {
	if d, ok := c.ttls[category]; ok {
		return d
	}
	return fallbackTTL
}

func (c *Coordinator) get(ctx context.Context, key Key, load func(ctx context.Context) (any, error)) (loaded, error) {
	k := key.String()
	category := string(key.Category)

	c.mu.Lock()
	if e, ok := c.entries.Get(k); ok {
		if c.now().Sub(e.storedAt) < c.TTL(key.Category) {
			c.mu.Unlock()
			metrics.CacheRequestsTotal.WithLabelValues(category, "hit").Inc()
			return loaded{value: e.value, stamp: e.stamp}, nil
		}
		c.entries.Remove(k)
	}
	version := c.versions[key.Category]
	c.inflight[k] = key.Category
	c.mu.Unlock()

	// The load outlives a cancelled caller so other waiters still get it.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(k, func() (any, error) {
		v, err := load(loadCtx)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.versions[key.Category] == version {
			delete(c.inflight, k)
		}
		if err != nil {
			return nil, err
		}
		c.loads++
		res := loaded{value: v, stamp: c.loads}
		if c.versions[key.Category] != version {
			slog.Debug("Dropping superseded load", "key", k)
			return res, nil
		}
		c.entries.Add(k, entry{category: key.Category, value: v, storedAt: c.now(), stamp: res.stamp})
		return res, nil
	})

	select {
	case <-ctx.Done():
		return loaded{}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			metrics.CacheRequestsTotal.WithLabelValues(category, "shared").Inc()
		} else {
			metrics.CacheRequestsTotal.WithLabelValues(category, "miss").Inc()
		}
		if res.Err != nil {
			return loaded{}, res.Err
		}
		return res.Val.(loaded), nil
	}
}
