package embedder

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ModelCache memoizes model loads process-wide, keyed by model name.
// At most one load per model is ever in flight; concurrent callers
// waiting on the first load all resolve when it completes. A failed
// load is not memoized, so a later call may retry, but loads never
// duplicate concurrently.
//
// The cache is an explicit object passed by reference to whoever needs
// it, with an explicit lifecycle, never implicit global state.
type ModelCache struct {
	group  singleflight.Group
	mu     sync.Mutex
	loaded map[string]bool
}

// NewModelCache creates an empty model cache
func NewModelCache() *ModelCache {
	return &ModelCache{loaded: make(map[string]bool)}
}

// Ensure runs load for name unless a previous load already succeeded.
// Concurrent callers share one in-flight load.
func (c *ModelCache) Ensure(ctx context.Context, name string, load func(ctx context.Context) error) error {
	if c.Loaded(name) {
		return nil
	}
	_, err, _ := c.group.Do(name, func() (interface{}, error) {
		if c.Loaded(name) {
			return nil, nil
		}
		if err := load(ctx); err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.loaded[name] = true
		c.mu.Unlock()
		return nil, nil
	})
	return err
}

// Loaded reports whether a load for name has completed successfully
func (c *ModelCache) Loaded(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded[name]
}

// Forget drops name from the cache so the next Ensure loads again
func (c *ModelCache) Forget(name string) {
	c.mu.Lock()
	delete(c.loaded, name)
	c.mu.Unlock()
}
