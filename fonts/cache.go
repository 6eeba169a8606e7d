package fonts

import "sync"

// Cache maps absolute URL to its inlined data URI. Failed fetches are
// recorded too (with empty payload) so every URL is fetched at most once.
type Cache struct {
	mu      sync.Mutex
	entries map[string]string
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]string)}
}

// Get returns data URI for the URL.
func (c *Cache) Get(ref string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	uri, ok := c.entries[ref]
	return uri, ok
}

func (c *Cache) put(ref, uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[ref] = uri
}

// Len returns number of cached URLs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
