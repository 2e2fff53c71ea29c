package embedding

import (
	"context"
	"slices"
	"sync"
)

// Cache memoizes text-to-vector results. It grows without bound; the
// caller controls its lifecycle and can drop it wholesale when the model
// changes (a cached vector is only meaningful for the model that made it).
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]float32
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string][]float32),
	}
}

// Get returns the cached vector for the text, or false.
func (c *Cache) Get(text string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.entries[text]
	return v, ok
}

// Set stores a copy of the vector for the text.
func (c *Cache) Set(text string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[text] = slices.Clone(vector)
}

// Len returns the number of memoized texts.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Clear drops all memoized vectors.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string][]float32)
}

// Cached wraps a provider with a memoization cache: hits skip the provider
// entirely, misses are stored after a successful inference.
func Cached(p Provider, c *Cache) Provider {
	return &cachedProvider{inner: p, cache: c}
}

type cachedProvider struct {
	inner Provider
	cache *Cache
}

func (p *cachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := p.cache.Get(text); ok {
		return v, nil
	}
	v, err := p.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	p.cache.Set(text, v)
	return v, nil
}

func (p *cachedProvider) Model() string {
	return p.inner.Model()
}
