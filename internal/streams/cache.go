package streams

import "github.com/puzpuzpuz/xsync/v3"

// Cache memoizes resolved stream URLs by track name.
//
// Entries never expire. Implementations must be safe for concurrent use.
type Cache interface {
	Get(key string) (string, bool) // Get returns the cached URL for key
	Put(key, value string)         // Put stores value under key, replacing any previous entry
	Delete(key string) bool        // Delete removes key and reports whether it was present
	Len() int                      // Len returns the number of entries
}

// MemoryCache is a process-lifetime [Cache] backed by a concurrent map.
type MemoryCache struct {
	entries *xsync.MapOf[string, string]
}

// NewMemoryCache creates an empty [MemoryCache].
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: xsync.NewMapOf[string, string]()}
}

func (c *MemoryCache) Get(key string) (string, bool) {
	return c.entries.Load(key)
}

func (c *MemoryCache) Put(key, value string) {
	c.entries.Store(key, value)
}

func (c *MemoryCache) Delete(key string) bool {
	_, ok := c.entries.LoadAndDelete(key)
	return ok
}

func (c *MemoryCache) Len() int {
	return c.entries.Size()
}
