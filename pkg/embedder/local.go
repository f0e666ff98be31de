package embedder

import (
	"context"
	"fmt"

	embedeverything "github.com/soundprediction/go-embedeverything/pkg/embedder"
)

// LocalClient embeds text with an in-process model. No network, no API key;
// the default for offline installs.
type LocalClient struct {
	client *embedeverything.Embedder
	dims   int
}

var _ Client = (*LocalClient)(nil)

// NewLocalClient loads a local embedding model by name.
func NewLocalClient(cfg Config) (*LocalClient, error) {
	client, err := embedeverything.NewEmbedder(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("load local embedding model %q: %w", cfg.Model, err)
	}
	dims := cfg.Dimensions
	if dims == 0 {
		dims = 384
	}
	return &LocalClient{client: client, dims: dims}, nil
}

func (c *LocalClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	// go-embedeverything does not support context yet
	vecs, err := c.client.Embed(texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return vecs, nil
}

func (c *LocalClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return embedSingle(ctx, c, text)
}

func (c *LocalClient) Dimensions() int { return c.dims }

func (c *LocalClient) Close() error {
	c.client.Close()
	return nil
}
