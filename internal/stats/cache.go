package stats

import (
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"

	"moneynest/internal/models"
)

// Cache holds computed summaries per ledger for a short TTL. A nil *Cache
// is valid and caches nothing.
//
// Each scope carries a generation that Invalidate bumps. A summary is only
// stored when the generation it was computed under is still current, so a
// computation overlapping a mutation never repopulates the entry.
type Cache struct {
	store *ristretto.Cache
	ttl   time.Duration

	mu          sync.Mutex
	generations map[string]uint64
}

// NewCache creates a summary cache whose entries expire after ttl
func NewCache(ttl time.Duration) (*Cache, error) {
	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000, // keys to track frequency of
		MaxCost:     1000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize stats cache: %w", err)
	}
	return &Cache{store: store, ttl: ttl, generations: make(map[string]uint64)}, nil
}

// Get returns the cached summary for scope
func (c *Cache) Get(scope models.Scope) (Summary, bool) {
	if c == nil {
		return Summary{}, false
	}
	v, ok := c.store.Get(scope.Key())
	if !ok {
		return Summary{}, false
	}
	s, ok := v.(Summary)
	return s, ok
}

// Generation returns the current generation of scope. Read it before
// loading the rows a summary is computed from.
func (c *Cache) Generation(scope models.Scope) uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[scope.Key()]
}

// Set stores s for scope when generation is still current and reports
// whether it did. Writes are applied before Set returns.
func (c *Cache) Set(scope models.Scope, generation uint64, s Summary) bool {
	if c == nil {
		return false
	}
	key := scope.Key()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[key] != generation {
		return false
	}
	c.store.SetWithTTL(key, s, 1, c.ttl)
	c.store.Wait()
	return true
}

// Invalidate drops the summary of scope after a ledger mutation
func (c *Cache) Invalidate(scope models.Scope) {
	if c == nil {
		return
	}
	key := scope.Key()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[key]++
	c.store.Del(key)
}

// Close stops the cache's background goroutines
func (c *Cache) Close() {
	if c == nil {
		return
	}
	c.store.Close()
}
