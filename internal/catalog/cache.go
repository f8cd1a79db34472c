package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"catalog-admin/internal/apperror"
	"catalog-admin/internal/domain"

	"golang.org/x/sync/singleflight"
)

// DefaultMaxAge is how long a cached read is served before it is fetched
// again
const DefaultMaxAge = 30 * time.Second

// DefaultLoadTimeout bounds a shared load, refresh and replay included
const DefaultLoadTimeout = 30 * time.Second

const (
	listPrefix   = "list:"
	detailPrefix = "detail:"
)

type cacheEntry struct {
	value    any
	storedAt time.Time
}

// QueryCache holds the reads of one session. Lists are keyed by the whole
// ListQuery tuple and details by product key. Concurrent loads of a key
// share one backend call, and a load that started before an invalidation
// never writes its result back.
type QueryCache struct {
	mu          sync.Mutex
	entries     map[string]cacheEntry
	generation  uint64
	maxAge      time.Duration
	loadTimeout time.Duration
	now         func() time.Time
	loads       singleflight.Group
}

// NewQueryCache creates a cache whose entries expire after maxAge. A zero
// maxAge uses DefaultMaxAge.
func NewQueryCache(maxAge time.Duration) *QueryCache {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &QueryCache{
		entries:     make(map[string]cacheEntry),
		maxAge:      maxAge,
		loadTimeout: DefaultLoadTimeout,
		now:         time.Now,
	}
}

// List returns the cached page for q or loads it
func (c *QueryCache) List(ctx context.Context, q domain.ListQuery, load func(context.Context) (*domain.ListResult, error)) (*domain.ListResult, error) {
	v, err := c.fetch(ctx, listPrefix+q.CacheKey(), func(ctx context.Context) (any, error) {
		return load(ctx)
	})
	if err != nil {
		return nil, err
	}
	result := *v.(*domain.ListResult)
	return &result, nil
}

// Detail returns the cached product for id or loads it
func (c *QueryCache) Detail(ctx context.Context, id string, load func(context.Context) (*domain.Product, error)) (*domain.Product, error) {
	v, err := c.fetch(ctx, detailPrefix+id, func(ctx context.Context) (any, error) {
		return load(ctx)
	})
	if err != nil {
		return nil, err
	}
	product, _ := v.(*domain.Product)
	if product == nil {
		return nil, nil
	}
	cp := *product
	return &cp, nil
}

// InvalidateLists drops every cached page
func (c *QueryCache) InvalidateLists() {
	c.invalidate(func(key string) bool { return strings.HasPrefix(key, listPrefix) })
}

// InvalidateDetail drops the cached product for each id
func (c *QueryCache) InvalidateDetail(ids ...string) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" {
			drop[detailPrefix+id] = true
		}
	}
	c.invalidate(func(key string) bool { return drop[key] })
}

// InvalidateProduct drops every cached detail of the product idOrSlug
// names, whichever of its id or slug the detail was cached under
func (c *QueryCache) InvalidateProduct(idOrSlug string) {
	if idOrSlug == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	for key, entry := range c.entries {
		if !strings.HasPrefix(key, detailPrefix) {
			continue
		}
		product, _ := entry.value.(*domain.Product)
		if key == detailPrefix+idOrSlug || (product != nil && product.Matches(idOrSlug)) {
			delete(c.entries, key)
		}
	}
}

// Reset drops everything, for example on sign-out
func (c *QueryCache) Reset() {
	c.invalidate(func(string) bool { return true })
}

// Len returns the number of cached entries
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *QueryCache) invalidate(match func(string) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	for key := range c.entries {
		if match(key) {
			delete(c.entries, key)
		}
	}
}

func (c *QueryCache) fetch(ctx context.Context, key string, load func(context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	if entry, ok := c.entries[key]; ok && c.now().Sub(entry.storedAt) < c.maxAge {
		c.mu.Unlock()
		return entry.value, nil
	}
	generation := c.generation
	c.mu.Unlock()

	// The generation is part of the flight key so a caller arriving after an
	// invalidation never joins a load that started before it. The load runs
	// detached from the caller that started it; each caller stops waiting
	// when its own context ends.
	flightKey := fmt.Sprintf("%s@%d", key, generation)
	results := c.loads.DoChan(flightKey, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()

		value, err := load(loadCtx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.generation == generation {
			c.entries[key] = cacheEntry{value: value, storedAt: c.now()}
		}
		c.mu.Unlock()

		return value, nil
	})

	select {
	case <-ctx.Done():
		return nil, apperror.Canceled(ctx.Err())
	case res := <-results:
		return res.Val, res.Err
	}
}
