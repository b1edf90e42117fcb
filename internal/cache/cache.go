// Package cache provides a get-or-compute URL cache with at-most-once
// computation per key under concurrent access.
package cache

import (
	"sync"

	"github.com/coocood/freecache"
	"github.com/gofiber/fiber/v2/log"
)

type computation struct {
	done  chan struct{}
	value string
	err   error
}

// URLCache stores computed URLs in freecache with a fixed TTL. Concurrent
// GetOrCompute calls for the same key share a single computation; failed
// computations are never stored.
type URLCache struct {
	store      *freecache.Cache
	ttlSeconds int

	mu      sync.Mutex
	pending map[string]*computation
}

func New(sizeBytes int, ttlSeconds int) *URLCache {
	return &URLCache{
		store:      freecache.NewCache(sizeBytes),
		ttlSeconds: ttlSeconds,
		pending:    make(map[string]*computation),
	}
}

func (c *URLCache) GetOrCompute(key string, compute func() (string, error)) (string, error) {
	if raw, err := c.store.Get([]byte(key)); err == nil {
		return string(raw), nil
	}

	c.mu.Lock()
	if p, running := c.pending[key]; running {
		c.mu.Unlock()
		<-p.done
		return p.value, p.err
	}
	p := &computation{done: make(chan struct{})}
	c.pending[key] = p
	c.mu.Unlock()

	// A computation may have landed between the first lookup and taking
	// ownership of the key.
	if raw, err := c.store.Get([]byte(key)); err == nil {
		p.value = string(raw)
	} else {
		p.value, p.err = compute()
		if p.err == nil {
			if err := c.store.Set([]byte(key), []byte(p.value), c.ttlSeconds); err != nil {
				log.Warnf("Failed to cache value for %s: %v", key, err)
			}
		}
	}

	c.mu.Lock()
	delete(c.pending, key)
	c.mu.Unlock()
	close(p.done)

	return p.value, p.err
}
