package embedder

import (
	"context"
	"hash/fnv"
	"math"
)

// StaticClient produces deterministic pseudo-embeddings from a text hash.
// Identical texts get identical vectors, so similarity math behaves, but
// the vectors carry no semantics. Used by tests and the "none" provider.
type StaticClient struct {
	dims int
}

var _ Client = (*StaticClient)(nil)

// NewStaticClient returns a deterministic embedder with the given
// dimensionality.
func NewStaticClient(dims int) *StaticClient {
	if dims <= 0 {
		dims = 32
	}
	return &StaticClient{dims: dims}
}

func (c *StaticClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = c.vector(t)
	}
	return out, nil
}

func (c *StaticClient) vector(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, c.dims)
	var norm float64
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed>>33)) / float32(1<<31)
		norm += float64(vec[i]) * float64(vec[i])
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func (c *StaticClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return embedSingle(ctx, c, text)
}

func (c *StaticClient) Dimensions() int { return c.dims }

func (c *StaticClient) Close() error { return nil }
