package embedder

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedClient memoizes embeddings by exact text. Retrieval re-embeds the
// same queries and topics constantly; the cache turns those into map hits.
type CachedClient struct {
	inner Client
	cache *lru.Cache[string, []float32]
}

var _ Client = (*CachedClient)(nil)

// NewCachedClient wraps inner with an LRU cache of the given size.
func NewCachedClient(inner Client, size int) (*CachedClient, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &CachedClient{inner: inner, cache: cache}, nil
}

func (c *CachedClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var misses []string
	var missIdx []int
	for i, t := range texts {
		if vec, ok := c.cache.Get(t); ok {
			out[i] = vec
			continue
		}
		misses = append(misses, t)
		missIdx = append(missIdx, i)
	}
	if len(misses) == 0 {
		return out, nil
	}

	fresh, err := c.inner.Embed(ctx, misses)
	if err != nil {
		return nil, err
	}
	for j, vec := range fresh {
		out[missIdx[j]] = vec
		c.cache.Add(misses[j], vec)
	}
	return out, nil
}

func (c *CachedClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return embedSingle(ctx, c, text)
}

func (c *CachedClient) Dimensions() int { return c.inner.Dimensions() }

func (c *CachedClient) Close() error { return c.inner.Close() }
