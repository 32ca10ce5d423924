package attempts

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryCounter keeps counts in process. Counts are lost on restart and not
// shared between replicas; use RedisCounter when running more than one.
type MemoryCounter struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, int64]
}

// NewMemoryCounter holds at most size keys, each expiring ttl after its last
// increment.
func NewMemoryCounter(size int, ttl time.Duration) *MemoryCounter {
	return &MemoryCounter{cache: expirable.NewLRU[string, int64](size, nil, ttl)}
}

func (c *MemoryCounter) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, _ := c.cache.Get(key)
	n++
	c.cache.Add(key, n)
	return n, nil
}

func (c *MemoryCounter) Get(_ context.Context, key string) (int64, error) {
	n, _ := c.cache.Get(key)
	return n, nil
}

func (c *MemoryCounter) Delete(_ context.Context, key string) error {
	c.cache.Remove(key)
	return nil
}
