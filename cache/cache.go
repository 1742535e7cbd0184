// backend/cache/cache.go
package cache

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Purposes namespace the cache keys. Data and metadata entries are
// long-lived; listing-page entries only smooth over repeated pagination
// of the same query.
const (
	PurposeData     = "data"
	PurposeMetadata = "metadata"
	PurposeListing  = "listing-page"
)

// Store is the narrow cache surface the services program against.
// Entries are advisory: every caller must behave correctly when Get
// misses, because eviction can happen at any time.
type Store interface {
	Get(purpose, id string) (interface{}, bool)
	Set(purpose, id string, value interface{}, ttl time.Duration)
	Delete(purpose, id string)
}

type memoryStore struct {
	c *gocache.Cache
}

// New returns an in-process TTL store. defaultTTL applies when a caller
// passes a zero TTL to Set.
func New(defaultTTL time.Duration) Store {
	return &memoryStore{
		c: gocache.New(defaultTTL, 10*time.Minute),
	}
}

func key(purpose, id string) string {
	return fmt.Sprintf("%s:%s", purpose, id)
}

func (m *memoryStore) Get(purpose, id string) (interface{}, bool) {
	return m.c.Get(key(purpose, id))
}

func (m *memoryStore) Set(purpose, id string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.c.Set(key(purpose, id), value, ttl)
}

func (m *memoryStore) Delete(purpose, id string) {
	m.c.Delete(key(purpose, id))
}
