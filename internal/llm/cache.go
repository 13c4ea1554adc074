package llm

import (
	"sync"
	"time"

	"github.com/Veraticus/the-glossary-must-flow/internal/config"
)

// clientKey identifies one vendor client instance.
type clientKey struct {
	url     string
	key     string
	vendor  config.Vendor
	timeout time.Duration
}

// clientCache holds SDK clients so repeated requests reuse connections.
// The lock covers lookup and construction only, never a request.
type clientCache struct {
	entries map[clientKey]any
	mu      sync.Mutex
}

func newClientCache() *clientCache {
	return &clientCache{entries: make(map[clientKey]any)}
}

// getOrCreate returns the cached client for k, building it with create on a miss.
func (c *clientCache) getOrCreate(k clientKey, create func() (any, error)) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.entries[k]; ok {
		return client, nil
	}
	client, err := create()
	if err != nil {
		return nil, err
	}
	c.entries[k] = client
	return client, nil
}

func (c *clientCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// clear drops every cached client.
func (c *clientCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[clientKey]any)
}

// noKeyRequired is sent when a platform has no configured keys.
const noKeyRequired = "no_key_required"

// keyRotator hands out a platform's keys round-robin.
type keyRotator struct {
	next int
	mu   sync.Mutex
}

func (r *keyRotator) pick(keys []string) string {
	switch len(keys) {
	case 0:
		return noKeyRequired
	case 1:
		return keys[0]
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	key := keys[r.next%len(keys)]
	r.next = (r.next + 1) % len(keys)
	return key
}

func (r *keyRotator) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next = 0
}
