package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Query keys identify cached list requests.
const (
	KeyHierarchy = "GET " + pathHierarchy
	KeyMain      = "GET " + pathMain
)

type cacheEntry struct {
	categories []Category
	expires    time.Time
}

// CachedService wraps a Service with an in-memory cache of list queries keyed
// by request identity. Concurrent identical fetches share one request. The
// cache is dropped wholesale after every successful mutation; results are
// never merged.
type CachedService struct {
	inner Service
	ttl   time.Duration

	mu         sync.RWMutex
	entries    map[string]cacheEntry
	generation uint64
	group      singleflight.Group
}

// NewCachedService creates a cached service. A ttl of zero keeps entries
// until the next invalidation.
func NewCachedService(inner Service, ttl time.Duration) *CachedService {
	return &CachedService{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Invalidate drops every cached query. Fetches already in flight will not
// populate the cache when they finish.
func (c *CachedService) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry)
	c.generation++
	c.group.Forget(KeyHierarchy)
	c.group.Forget(KeyMain)
	log.Debug().Uint64("generation", c.generation).Msg("category cache invalidated")
}

// Cached returns the cached result for key without fetching.
func (c *CachedService) Cached(key string) ([]Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || (!entry.expires.IsZero() && time.Now().After(entry.expires)) {
		return nil, false
	}
	return entry.categories, true
}

func (c *CachedService) Hierarchy(ctx context.Context) ([]Category, error) {
	return c.query(ctx, KeyHierarchy, c.inner.Hierarchy)
}

func (c *CachedService) MainCategories(ctx context.Context) ([]Category, error) {
	return c.query(ctx, KeyMain, c.inner.MainCategories)
}

func (c *CachedService) Create(ctx context.Context, input CategoryInput) (Category, error) {
	category, err := c.inner.Create(ctx, input)
	if err != nil {
		return category, err
	}
	c.Invalidate()
	return category, nil
}

func (c *CachedService) Update(ctx context.Context, id string, input CategoryInput) (Category, error) {
	category, err := c.inner.Update(ctx, id, input)
	if err != nil {
		return category, err
	}
	c.Invalidate()
	return category, nil
}

func (c *CachedService) Delete(ctx context.Context, id string) (string, error) {
	msg, err := c.inner.Delete(ctx, id)
	if err != nil {
		return msg, err
	}
	c.Invalidate()
	return msg, nil
}

func (c *CachedService) query(ctx context.Context, key string, fetch func(context.Context) ([]Category, error)) ([]Category, error) {
	if categories, ok := c.Cached(key); ok {
		log.Debug().Str("key", key).Msg("category cache hit")
		return categories, nil
	}

	c.mu.RLock()
	generation := c.generation
	c.mu.RUnlock()

	// The fetch serves every caller of the flight and outlives the one that
	// started it. The client timeout still bounds it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		categories, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generation == generation {
			entry := cacheEntry{categories: categories}
			if c.ttl > 0 {
				entry.expires = time.Now().Add(c.ttl)
			}
			c.entries[key] = entry
		}
		return categories, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		log.Debug().Str("key", key).Bool("shared", res.Shared).Msg("category query fetched")
		return res.Val.([]Category), nil
	}
}
