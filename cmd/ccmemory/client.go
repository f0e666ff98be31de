package ccmemory

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	engine "github.com/patrickkidd/ccmemory"
	"github.com/patrickkidd/ccmemory/pkg/config"
	"github.com/patrickkidd/ccmemory/pkg/embedder"
	"github.com/patrickkidd/ccmemory/pkg/extractor"
	"github.com/patrickkidd/ccmemory/pkg/logger"
	"github.com/patrickkidd/ccmemory/pkg/reranker"
	"github.com/patrickkidd/ccmemory/pkg/store"
	"github.com/patrickkidd/ccmemory/pkg/telemetry"
	"github.com/patrickkidd/ccmemory/pkg/types"
)

// requireScope builds the operation scope from the global flags.
func requireScope() (types.Scope, error) {
	if flagProject == "" {
		return types.Scope{}, fmt.Errorf("--project is required")
	}
	return types.Scope{Project: flagProject, Owner: flagOwner}, nil
}

// runScoped builds a client hydrated for the flag project, runs fn, and
// closes everything down.
func runScoped(fn func(ctx context.Context, mem *engine.Client, scope types.Scope) error) error {
	scope, err := requireScope()
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()
	mem, _, err := buildMemory(ctx, cfg, []string{scope.Project})
	if err != nil {
		return err
	}
	defer mem.Close()

	return fn(ctx, mem, scope)
}

// buildMemory wires a full engine client from configuration: store,
// embedder chain, extractor, reranker, and telemetry.
func buildMemory(ctx context.Context, cfg *config.Config, projects []string) (*engine.Client, *slog.Logger, error) {
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	factStore, err := buildStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	embedClient, err := buildEmbedder(cfg, log)
	if err != nil {
		factStore.Close()
		return nil, nil, err
	}

	opts := engine.Options{
		Store:        factStore,
		Embedder:     embedClient,
		Logger:       log,
		Thresholds:   cfg.Linker,
		Metrics:      cfg.Metrics,
		EmbedTimeout: cfg.EmbedTimeout,
	}

	if cfg.Detection.APIKey != "" {
		ext, err := extractor.NewLLMExtractor(cfg.Detection, log)
		if err != nil {
			return nil, nil, fmt.Errorf("create extractor: %w", err)
		}
		opts.Extractor = ext
	}

	if cfg.Rerank.Enabled {
		rr, err := reranker.New(cfg.Rerank, log)
		if err != nil {
			return nil, nil, fmt.Errorf("create reranker: %w", err)
		}
		opts.Reranker = rr
	}

	if cfg.Telemetry.Enabled {
		if err := os.MkdirAll(cfg.Telemetry.ParquetPath, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create telemetry directory: %w", err)
		}
		recorder, err := telemetry.NewParquetRecorder(cfg.Telemetry.ParquetPath, log)
		if err != nil {
			log.Warn("telemetry disabled", "error", err)
		} else {
			opts.Recorder = recorder
		}
	}

	client, err := engine.New(ctx, opts, projects)
	if err != nil {
		return nil, nil, fmt.Errorf("create memory client: %w", err)
	}
	return client, log, nil
}

func buildStore(cfg *config.Config) (store.FactStore, error) {
	switch cfg.Store.Driver {
	case "memory":
		return store.NewMemoryStore(), nil
	case "badger", "":
		return store.NewBadgerStore(cfg.Store.Path)
	case "neo4j":
		return store.NewNeo4jStore(cfg.Store.URI, cfg.Store.Username, cfg.Store.Password, cfg.Store.Database)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func buildEmbedder(cfg *config.Config, log *slog.Logger) (embedder.Client, error) {
	var base embedder.Client
	var err error
	switch cfg.Embedding.Provider {
	case "openai":
		base, err = embedder.NewOpenAIClient(cfg.Embedding)
	case "local", "":
		base, err = embedder.NewLocalClient(cfg.Embedding)
	case "static":
		base = embedder.NewStaticClient(cfg.Embedding.Dimensions)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	if cfg.Embedding.CacheSize > 0 {
		base, err = embedder.NewCachedClient(base, cfg.Embedding.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create embedding cache: %w", err)
		}
	}
	return embedder.NewBreakerClient(base, cfg.Breaker, log), nil
}
