package embed

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the default number of vectors to keep. At 256
// dimensions * 4 bytes * 1000 entries this is about 1MB.
const DefaultCacheSize = 1000

// CachedEncoder wraps an Encoder with LRU caching. It is meant for query
// encoding, where the same text arrives repeatedly: the key covers content
// and model fingerprint but not the path, so all lookups must use the same
// path (queries use ""). A rebuilt model changes the fingerprint, which
// changes every key and retires stale entries through normal eviction.
type CachedEncoder struct {
	inner Encoder
	cache *lru.Cache[string, []float32]
}

var _ Encoder = (*CachedEncoder)(nil)

// NewCachedEncoder wraps an encoder with a cache of the given size.
// A non-positive size falls back to DefaultCacheSize.
func NewCachedEncoder(inner Encoder, cacheSize int) *CachedEncoder {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, _ := lru.New[string, []float32](cacheSize)
	return &CachedEncoder{
		inner: inner,
		cache: cache,
	}
}

// cacheKey hashes content together with the model fingerprint so entries
// from a previous model never serve a new one.
func (c *CachedEncoder) cacheKey(content []byte) string {
	h := sha256.New()
	h.Write(content)
	h.Write([]byte{0})
	h.Write([]byte(c.inner.Fingerprint()))
	return hex.EncodeToString(h.Sum(nil))
}

// Encode returns the cached vector when available, otherwise encodes and
// caches.
func (c *CachedEncoder) Encode(content []byte, path string) ([]float32, error) {
	key := c.cacheKey(content)

	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := c.inner.Encode(content, path)
	if err != nil {
		return nil, err
	}

	c.cache.Add(key, vec)
	return vec, nil
}

// Dimension returns the inner encoder's dimension.
func (c *CachedEncoder) Dimension() int {
	return c.inner.Dimension()
}

// Fingerprint returns the inner encoder's fingerprint.
func (c *CachedEncoder) Fingerprint() string {
	return c.inner.Fingerprint()
}

// Inner returns the wrapped encoder.
func (c *CachedEncoder) Inner() Encoder {
	return c.inner
}

// Len returns the number of cached vectors.
func (c *CachedEncoder) Len() int {
	return c.cache.Len()
}

// Purge drops every cached vector.
func (c *CachedEncoder) Purge() {
	c.cache.Purge()
}
