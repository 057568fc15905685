package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type item struct {
	value    interface{}
	expireAt time.Time
}

// QueryCache memoises read views by key. Keys are "<prefix>" or
// "<prefix>:<params>"; invalidating a prefix drops every key in that family.
type QueryCache struct {
	mu    sync.RWMutex
	items map[string]item
	ttl   time.Duration
	gen   uint64
	group singleflight.Group
	now   func() time.Time
}

func New(ttl time.Duration) *QueryCache {
	return &QueryCache{
		items: make(map[string]item),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Key builds a cache key from a view prefix and its parameters.
func Key(prefix string, params ...string) string {
	if len(params) == 0 {
		return prefix
	}
	return prefix + ":" + strings.Join(params, "|")
}

func (c *QueryCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(it.expireAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return nil, false
	}
	return it.value, true
}

func (c *QueryCache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = item{value: value, expireAt: c.now().Add(c.ttl)}
}

// setIfCurrent stores value only if no invalidation ran since gen was read,
// so a load that raced a mutation never repopulates a stale view.
func (c *QueryCache) setIfCurrent(key string, value interface{}, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.items[key] = item{value: value, expireAt: c.now().Add(c.ttl)}
}

func (c *QueryCache) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// InvalidatePrefix drops key prefix and every "prefix:..." key.
func (c *QueryCache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	removed := 0
	for k := range c.items {
		if k == prefix || strings.HasPrefix(k, prefix+":") {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

// Invalidate drops every view m is declared to affect.
func (c *QueryCache) Invalidate(m Mutation) {
	for _, prefix := range Invalidations[m] {
		n := c.InvalidatePrefix(prefix)
		zap.L().Debug("cache invalidated", zap.String("mutation", string(m)), zap.String("prefix", prefix), zap.Int("keys", n))
	}
}

func (c *QueryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// GetOrLoad returns the cached value for key or runs load once for all
// concurrent callers and caches its result. Errors are never cached.
func GetOrLoad[T any](ctx context.Context, c *QueryCache, key string, load func(ctx context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}

	gen := c.generation()
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		res, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.setIfCurrent(key, res, gen)
		return res, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
