package ccmemory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickkidd/ccmemory/pkg/config"
	"github.com/patrickkidd/ccmemory/pkg/embedder"
	"github.com/patrickkidd/ccmemory/pkg/extractor"
	"github.com/patrickkidd/ccmemory/pkg/linker"
	"github.com/patrickkidd/ccmemory/pkg/reranker"
	"github.com/patrickkidd/ccmemory/pkg/store"
	"github.com/patrickkidd/ccmemory/pkg/telemetry"
	"github.com/patrickkidd/ccmemory/pkg/vector"
)

var (
	// ErrNoMatch means a relationship assertion could not be anchored to
	// any sufficiently similar fact.
	ErrNoMatch = errors.New("no fact matches the description closely enough")
	// ErrNotDecision is returned when a decision-only operation targets
	// another fact type.
	ErrNotDecision = errors.New("fact is not a decision")
	// ErrNotOwner is returned when a caller tries to promote someone
	// else's decision.
	ErrNotOwner = errors.New("caller does not own this fact")
)

// Memory is the full API surface of the engine. Prefer the focused
// interfaces in interfaces.go when you need less.
type Memory interface {
	FactIngestor
	Retriever
	GraphOperator
	MetricsReporter
	PatternReporter
	Close() error
}

// Options configures a Client. Store and Embedder are required; everything
// else has a working default.
type Options struct {
	Store    store.FactStore
	Embedder embedder.Client
	// Extractor is optional; without it ExtractAndStore returns an error.
	Extractor extractor.Extractor
	// Reranker is optional; without it search keeps similarity order.
	Reranker *reranker.Reranker
	Recorder telemetry.Recorder
	Logger   *slog.Logger

	Thresholds linker.Thresholds
	Metrics    config.MetricsConfig
	// EmbedTimeout bounds how long ingestion waits for an embedding before
	// storing the fact without one.
	EmbedTimeout time.Duration
}

// Client implements Memory over a FactStore plus an in-memory similarity
// index hydrated from the store, eagerly at startup or lazily on the
// first write into a project.
type Client struct {
	store        store.FactStore
	embedder     embedder.Client
	extractor    extractor.Extractor
	reranker     *reranker.Reranker
	recorder     telemetry.Recorder
	index        *vector.Index
	thresholds   linker.Thresholds
	metricsCfg   config.MetricsConfig
	embedTimeout time.Duration
	log          *slog.Logger

	mu       sync.Mutex
	hydrated map[string]bool
}

var _ Memory = (*Client)(nil)

// New creates a Client and warms the similarity index for the listed
// projects. Projects not listed hydrate lazily on their first write, so
// dedup and auto-linking see persisted facts either way; the list is a
// warm-start optimization, not a requirement.
func New(ctx context.Context, opts Options, projects []string) (*Client, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("ccmemory: store is required")
	}
	if opts.Embedder == nil {
		return nil, fmt.Errorf("ccmemory: embedder is required")
	}
	if opts.Recorder == nil {
		opts.Recorder = telemetry.NopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Thresholds == (linker.Thresholds{}) {
		opts.Thresholds = linker.DefaultThresholds()
	}
	if opts.Metrics == (config.MetricsConfig{}) {
		opts.Metrics = config.MetricsConfig{CuratedWeight: 0.02, ReuseWeight: 1.0, CoefficientCap: 4.0}
	}
	if opts.EmbedTimeout <= 0 {
		opts.EmbedTimeout = 10 * time.Second
	}

	c := &Client{
		store:        opts.Store,
		embedder:     opts.Embedder,
		extractor:    opts.Extractor,
		reranker:     opts.Reranker,
		recorder:     opts.Recorder,
		index:        vector.NewIndex(),
		thresholds:   opts.Thresholds,
		metricsCfg:   opts.Metrics,
		embedTimeout: opts.EmbedTimeout,
		log:          opts.Logger,
		hydrated:     make(map[string]bool),
	}

	for _, project := range projects {
		if err := c.hydrateProject(ctx, project); err != nil {
			return nil, fmt.Errorf("hydrate project %s: %w", project, err)
		}
		c.hydrated[project] = true
	}
	return c, nil
}

// ensureHydrated fills the index from the store the first time a project
// is touched. Without it, a restart over a durable store would leave the
// dedup guard blind to everything written before the restart.
func (c *Client) ensureHydrated(ctx context.Context, project string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hydrated[project] {
		return nil
	}
	if err := c.hydrateProject(ctx, project); err != nil {
		return err
	}
	c.hydrated[project] = true
	return nil
}

func (c *Client) hydrateProject(ctx context.Context, project string) error {
	facts, err := c.store.ListFacts(ctx, store.Query{Project: project})
	if err != nil {
		return err
	}
	indexed := 0
	for _, f := range facts {
		if f.HasEmbedding() {
			c.index.Upsert(f)
			indexed++
		}
	}
	c.log.Info("hydrated similarity index", "project", project, "facts", len(facts), "indexed", indexed)
	return nil
}

// Close flushes telemetry and closes the store and embedder.
func (c *Client) Close() error {
	var firstErr error
	if err := c.recorder.Close(); err != nil {
		firstErr = err
	}
	if err := c.embedder.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
