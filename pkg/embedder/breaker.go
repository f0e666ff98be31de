package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig tunes the embedding circuit breaker.
type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	ReadyToTripRatio float64       `mapstructure:"ready_to_trip_ratio"`
}

// DefaultBreakerConfig trips after a 60% failure ratio over at least three
// requests and retries after 30 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		ReadyToTripRatio: 0.6,
	}
}

// BreakerClient wraps a Client with circuit breaking. While the breaker is
// open every call fails fast with ErrUnavailable, so ingestion keeps moving
// with unembedded facts instead of stalling on a dead provider.
type BreakerClient struct {
	inner Client
	cb    *gobreaker.CircuitBreaker
	log   *slog.Logger
}

var _ Client = (*BreakerClient)(nil)

// NewBreakerClient wraps inner with a circuit breaker.
func NewBreakerClient(inner Client, cfg BreakerConfig, log *slog.Logger) *BreakerClient {
	if log == nil {
		log = slog.Default()
	}
	st := gobreaker.Settings{
		Name:        "embedder",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= cfg.ReadyToTripRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("embedding circuit breaker state change",
				"from", from.String(), "to", to.String())
		},
	}
	return &BreakerClient{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker(st),
		log:   log,
	}
}

func (c *BreakerClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	result, err := c.cb.Execute(func() (any, error) {
		return c.inner.Embed(ctx, texts)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("%w: circuit open", ErrUnavailable)
		}
		return nil, err
	}
	return result.([][]float32), nil
}

func (c *BreakerClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return embedSingle(ctx, c, text)
}

func (c *BreakerClient) Dimensions() int { return c.inner.Dimensions() }

func (c *BreakerClient) Close() error { return c.inner.Close() }
