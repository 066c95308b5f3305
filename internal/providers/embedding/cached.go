package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/couchly/sofa-advisor/internal/cache"
)

// Cached wraps a Provider with a text-embedding cache. Image refs are not
// cached: uploaded images get unique object names, so hits would be rare.
type Cached struct {
	inner Provider
	cache cache.Cache
	ttl   time.Duration
}

func NewCached(inner Provider, c cache.Cache, ttl time.Duration) *Cached {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &Cached{inner: inner, cache: c, ttl: ttl}
}

func (c *Cached) Dimension() int { return c.inner.Dimension() }

func (c *Cached) EmbedText(ctx context.Context, text string) ([]float32, error) {
	key := textKey(text)

	var vec []float32
	if hit, err := c.cache.GetJSON(ctx, key, &vec); err == nil && hit && len(vec) == c.inner.Dimension() {
		return vec, nil
	}

	vec, err := c.inner.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	// cache write failure is not the caller's problem
	_ = c.cache.SetJSON(ctx, key, vec, c.ttl)
	return vec, nil
}

func (c *Cached) EmbedImage(ctx context.Context, imageRef string) ([]float32, error) {
	return c.inner.EmbedImage(ctx, imageRef)
}

func textKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:text:" + hex.EncodeToString(sum[:])
}
