package ccfeatures

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache memoizes a [Compiler] by exact source text.
//
// The compiler and environment are invariant within one run, so a cached
// answer is identical to what a fresh compilation would return. Concurrent
// calls for the same source share a single compilation. Errors are never
// cached.
type Cache struct {
	compiler Compiler

	mu      sync.Mutex
	results map[string]bool
	group   singleflight.Group
}

// NewCache returns an empty cache in front of c.
func NewCache(c Compiler) *Cache {
	return &Cache{
		compiler: c,
		results:  make(map[string]bool),
	}
}

// Compile returns the stored result for source, compiling it on first use.
func (c *Cache) Compile(ctx context.Context, source string) (bool, error) {
	if ok, found := c.Lookup(source); found {
		return ok, nil
	}

	v, err, _ := c.group.Do(source, func() (any, error) {
		// A caller that lost the race to a finished flight lands here.
		if ok, found := c.Lookup(source); found {
			return ok, nil
		}
		ok, err := c.compiler.Compile(ctx, source)
		if err != nil {
			return false, err
		}
		c.Seed(source, ok)
		return ok, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// Lookup returns the stored result for source without compiling.
func (c *Cache) Lookup(source string) (ok, found bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ok, found = c.results[source]
	return ok, found
}

// Seed stores a result for source. It is meant for tests and for callers
// that already know the answer; an existing entry is overwritten.
func (c *Cache) Seed(source string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[source] = ok
}

// Len returns the number of distinct sources stored.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}
