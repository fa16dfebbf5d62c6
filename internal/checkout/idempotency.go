package checkout

import (
	"sync"
	"time"

	"github.com/vastramart/cartengine/internal/domain"
)

// resultCache is a time-bounded idempotency store keyed by payment intent id.
// A duplicate gateway callback within the ttl gets the order created by the
// first one instead of submitting twice.
type resultCache struct {
	mu    sync.Mutex
	items map[string]resultEntry
	ttl   time.Duration
}

type resultEntry struct {
	order     domain.Order
	expiresAt time.Time
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{
		items: make(map[string]resultEntry),
		ttl:   ttl,
	}
}

func (c *resultCache) get(key string) (domain.Order, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, ok := c.items[key]; ok {
		if time.Now().Before(item.expiresAt) {
			return item.order, true
		}
		delete(c.items, key)
	}
	return domain.Order{}, false
}

func (c *resultCache) set(key string, order domain.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = resultEntry{
		order:     order,
		expiresAt: time.Now().Add(c.ttl),
	}
}
