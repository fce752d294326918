package embedding

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// Cached memoizes another embedder's vectors by exact text.
type Cached struct {
	inner Embedder
	cache *ristretto.Cache
}

// NewCached wraps inner with a cache holding up to size vectors.
func NewCached(inner Embedder, size int64) (*Cached, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: size * 10,
		MaxCost:     size,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &Cached{inner: inner, cache: cache}, nil
}

func (c *Cached) Embed(ctx context.Context, text string) (Vector, error) {
	if v, ok := c.cache.Get(text); ok {
		return v.(Vector), nil
	}
	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(v) > 0 {
		c.cache.Set(text, v, 1)
	}
	return v, nil
}

func (c *Cached) Dims() int { return c.inner.Dims() }

// Wait blocks until pending cache writes are applied.
func (c *Cached) Wait() { c.cache.Wait() }

// Close releases the cache.
func (c *Cached) Close() { c.cache.Close() }
