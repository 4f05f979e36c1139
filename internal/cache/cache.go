// Package cache provides the in-process, time-expiring caches that hold built catalog trees.
//
// Entries are rebuilt lazily on read: a lookup that finds a missing or expired
// entry calls the supplied BuildFunc synchronously. A failed rebuild never
// surfaces to the caller; the previous value (or the zero value) is served and
// the failure is logged, counted and passed to the OnRefreshError hook.
//
// Rebuilds are coalesced per key with singleflight, so concurrent readers of an
// expired entry wait for one rebuild instead of racing to overwrite it. The
// shared rebuild is detached from the cancellation of the caller that started
// it and is bounded by its own BuildTimeout instead.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a built tree is served before it is rebuilt.
const DefaultTTL = 300 * time.Second

// DefaultBuildTimeout bounds a single rebuild.
const DefaultBuildTimeout = 30 * time.Second

// BuildFunc fetches source rows and builds the value to cache.
type BuildFunc[T any] func(ctx context.Context) (T, error)

// Entry is a cached value and the time of its last successful build.
type Entry[T any] struct {
	Value   T
	BuiltAt time.Time
}

// Options configures a cache.
type Options struct {
	// Name labels log lines and metrics.
	Name string
	// TTL defaults to DefaultTTL when zero.
	TTL time.Duration
	// BuildTimeout defaults to DefaultBuildTimeout when zero.
	BuildTimeout time.Duration
	Clock        clockwork.Clock
	// Logger defaults to the logrus standard logger.
	Logger logrus.FieldLogger
	// OnRefreshError is called after a failed rebuild, before the stale value is returned.
	OnRefreshError func(key string, err error)
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = "default"
	}
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.BuildTimeout <= 0 {
		o.BuildTimeout = DefaultBuildTimeout
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}

// Keyed is a multi-entry cache; every key is timestamped and expires on its own.
type Keyed[T any] struct {
	opts    Options
	mu      sync.RWMutex
	entries map[string]*Entry[T]
	group   singleflight.Group
}

// NewKeyed creates an empty Keyed cache.
func NewKeyed[T any](opts Options) *Keyed[T] {
	return &Keyed[T]{
		opts:    opts.withDefaults(),
		entries: make(map[string]*Entry[T]),
	}
}

// TTL returns the configured time-to-live.
func (c *Keyed[T]) TTL() time.Duration {
	return c.opts.TTL
}

// Get returns the stored entry for key regardless of its age.
func (c *Keyed[T]) Get(key string) (Entry[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return Entry[T]{}, false
	}
	return *entry, true
}

// Len returns the number of keys ever populated.
func (c *Keyed[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Valid reports whether key holds a value younger than the TTL.
func (c *Keyed[T]) Valid(key string) bool {
	_, ok := c.fresh(key)
	return ok
}

func (c *Keyed[T]) fresh(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.opts.Clock.Since(entry.BuiltAt) >= c.opts.TTL {
		var zero T
		return zero, false
	}
	return entry.Value, true
}

// GetOrRefresh returns the cached value for key, rebuilding it first when
// force is set or the entry is missing or expired.
func (c *Keyed[T]) GetOrRefresh(ctx context.Context, key string, force bool, build BuildFunc[T]) T {
	if force {
		lookups.WithLabelValues(c.opts.Name, "forced").Inc()
		return c.Refresh(ctx, key, build)
	}

	if value, ok := c.fresh(key); ok {
		lookups.WithLabelValues(c.opts.Name, "hit").Inc()
		return value
	}

	lookups.WithLabelValues(c.opts.Name, "miss").Inc()
	return c.refresh(ctx, key, build, true)
}

// Refresh rebuilds key and stores the result. On failure the previously stored
// value is kept and returned, or the zero value when key was never built.
// Callers arriving while a rebuild of key is in flight share its result.
func (c *Keyed[T]) Refresh(ctx context.Context, key string, build BuildFunc[T]) T {
	return c.refresh(ctx, key, build, false)
}

// refresh runs at most one rebuild of key at a time. With reuseFresh set, a
// caller that missed the entry but reaches the group after another rebuild
// stored it gets that value instead of starting a second build.
func (c *Keyed[T]) refresh(ctx context.Context, key string, build BuildFunc[T], reuseFresh bool) T {
	v, _, _ := c.group.Do(key, func() (any, error) {
		if reuseFresh {
			if value, ok := c.fresh(key); ok {
				return value, nil
			}
		}
		return c.rebuild(ctx, key, build), nil
	})
	value, _ := v.(T)
	return value
}

// rebuild runs build for every caller waiting on key, so the first caller's
// cancellation must not fail it.
func (c *Keyed[T]) rebuild(ctx context.Context, key string, build BuildFunc[T]) T {
	buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.BuildTimeout)
	defer cancel()

	start := c.opts.Clock.Now()
	value, err := build(buildCtx)
	buildDuration.WithLabelValues(c.opts.Name).Observe(c.opts.Clock.Since(start).Seconds())

	if err != nil {
		refreshes.WithLabelValues(c.opts.Name, "failure").Inc()
		c.opts.Logger.WithFields(logrus.Fields{
			"cache": c.opts.Name,
			"key":   key,
		}).WithError(err).Warn("cache refresh failed, serving previous value")
		if c.opts.OnRefreshError != nil {
			c.opts.OnRefreshError(key, err)
		}

		stale, _ := c.Get(key)
		return stale.Value
	}

	refreshes.WithLabelValues(c.opts.Name, "success").Inc()

	c.mu.Lock()
	c.entries[key] = &Entry[T]{Value: value, BuiltAt: c.opts.Clock.Now()}
	c.mu.Unlock()

	return value
}

// singleKey is the only key used by Single.
const singleKey = ""

// Single is a cache holding one value.
type Single[T any] struct {
	keyed *Keyed[T]
}

// NewSingle creates an empty Single cache.
func NewSingle[T any](opts Options) *Single[T] {
	return &Single[T]{keyed: NewKeyed[T](opts)}
}

// TTL returns the configured time-to-live.
func (c *Single[T]) TTL() time.Duration {
	return c.keyed.TTL()
}

// Get returns the stored entry regardless of its age.
func (c *Single[T]) Get() (Entry[T], bool) {
	return c.keyed.Get(singleKey)
}

// Valid reports whether the value was built and is younger than the TTL.
func (c *Single[T]) Valid() bool {
	return c.keyed.Valid(singleKey)
}

// GetOrRefresh returns the cached value, rebuilding it first when force is set
// or the value is missing or expired.
func (c *Single[T]) GetOrRefresh(ctx context.Context, force bool, build BuildFunc[T]) T {
	return c.keyed.GetOrRefresh(ctx, singleKey, force, build)
}

// Refresh rebuilds the value; see Keyed.Refresh.
func (c *Single[T]) Refresh(ctx context.Context, build BuildFunc[T]) T {
	return c.keyed.Refresh(ctx, singleKey, build)
}
