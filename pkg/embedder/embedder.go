// Package embedder provides text embedding clients for similarity search.
//
// Two providers are supported: OpenAI's embedding API and a local model via
// go-embedeverything. Decorators add an LRU cache and a circuit breaker so
// a flapping provider degrades ingestion instead of blocking it.
package embedder

import (
	"context"
	"errors"
)

// ErrUnavailable means the provider cannot produce embeddings right now.
// Callers degrade to storing facts without embeddings.
var ErrUnavailable = errors.New("embedding provider unavailable")

// Client produces embeddings for text.
type Client interface {
	// Embed generates embeddings for the given texts, one vector per text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedSingle generates an embedding for one text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
	// Dimensions returns the vector length this client produces.
	Dimensions() int
	Close() error
}

// Config holds provider-independent embedding settings.
type Config struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
	CacheSize  int    `mapstructure:"cache_size"`
}

func embedSingle(ctx context.Context, c Client, text string) ([]float32, error) {
	vecs, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, ErrUnavailable
	}
	return vecs[0], nil
}
