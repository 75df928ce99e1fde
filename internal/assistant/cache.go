package assistant

import "sync"

// commandCache remembers which messages mapped onto which command so
// repeated phrasings skip the model entirely. Only command results are
// cached; free-form answers depend on per-user context. Eviction is FIFO.
type commandCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]string
	order    []string
}

func newCommandCache(capacity int) *commandCache {
	return &commandCache{
		capacity: capacity,
		entries:  make(map[string]string, capacity),
	}
}

func (c *commandCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cmd, ok := c.entries[key]
	return cmd, ok
}

func (c *commandCache) put(key, command string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.entries[key] = command
		return
	}
	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = command
	c.order = append(c.order, key)
}
