// Package config loads application configuration from file, environment,
// and defaults via viper.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/patrickkidd/ccmemory/pkg/embedder"
	"github.com/patrickkidd/ccmemory/pkg/extractor"
	"github.com/patrickkidd/ccmemory/pkg/linker"
	"github.com/patrickkidd/ccmemory/pkg/reranker"
)

// Config holds all configuration for the application
type Config struct {
	Log       LogConfig              `mapstructure:"log"`
	Server    ServerConfig           `mapstructure:"server"`
	Store     StoreConfig            `mapstructure:"store"`
	Embedding embedder.Config        `mapstructure:"embedding"`
	Breaker   embedder.BreakerConfig `mapstructure:"circuit_breaker"`
	Detection extractor.Config       `mapstructure:"detection"`
	Rerank    reranker.Config        `mapstructure:"rerank"`
	Linker    linker.Thresholds      `mapstructure:"linker"`
	Metrics   MetricsConfig          `mapstructure:"metrics"`
	Telemetry TelemetryConfig        `mapstructure:"telemetry"`

	// Projects lists project names whose similarity indexes are warmed at
	// startup. Unlisted projects hydrate on their first write.
	Projects []string `mapstructure:"projects"`

	// EmbedTimeout bounds how long ingestion waits for an embedding before
	// storing the fact unlinked.
	EmbedTimeout time.Duration `mapstructure:"embed_timeout"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// StoreConfig selects and configures the persistence backend
type StoreConfig struct {
	Driver   string `mapstructure:"driver"` // badger, neo4j, memory
	Path     string `mapstructure:"path"`   // badger directory
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// MetricsConfig holds the cognitive coefficient weights
type MetricsConfig struct {
	CuratedWeight  float64 `mapstructure:"curated_weight"`
	ReuseWeight    float64 `mapstructure:"reuse_weight"`
	CoefficientCap float64 `mapstructure:"coefficient_cap"`
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ParquetPath string `mapstructure:"parquet_path"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8385)
	viper.SetDefault("server.mode", "release")

	viper.SetDefault("store.driver", "badger")
	home, err := os.UserHomeDir()
	if err == nil {
		viper.SetDefault("store.path", fmt.Sprintf("%s/.ccmemory/graph", home))
		viper.SetDefault("telemetry.parquet_path", fmt.Sprintf("%s/.ccmemory/telemetry", home))
	}
	viper.SetDefault("store.uri", "bolt://localhost:7687")
	viper.SetDefault("store.database", "")

	viper.SetDefault("embedding.provider", "local")
	viper.SetDefault("embedding.model", "all-MiniLM-L6-v2")
	viper.SetDefault("embedding.dimensions", 384)
	viper.SetDefault("embedding.cache_size", 2048)

	viper.SetDefault("circuit_breaker.enabled", true)
	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", "60s")
	viper.SetDefault("circuit_breaker.timeout", "30s")
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)

	viper.SetDefault("detection.model", "gpt-4o-mini")
	viper.SetDefault("detection.max_parallel", 4)

	viper.SetDefault("rerank.enabled", false)
	viper.SetDefault("rerank.model", "gpt-4o-mini")

	viper.SetDefault("linker.dedup_decision", 0.95)
	viper.SetDefault("linker.dedup_default", 0.90)
	viper.SetDefault("linker.supersede", 0.85)
	viper.SetDefault("linker.cite", 0.80)
	viper.SetDefault("linker.continues", 0.85)
	viper.SetDefault("linker.assert", 0.70)
	viper.SetDefault("linker.neighbor_k", 5)
	viper.SetDefault("linker.continues_window", "24h")

	viper.SetDefault("metrics.curated_weight", 0.02)
	viper.SetDefault("metrics.reuse_weight", 1.0)
	viper.SetDefault("metrics.coefficient_cap", 4.0)

	viper.SetDefault("telemetry.enabled", true)

	viper.SetDefault("embed_timeout", "10s")
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		if config.Embedding.APIKey == "" {
			config.Embedding.APIKey = apiKey
		}
		if config.Detection.APIKey == "" {
			config.Detection.APIKey = apiKey
		}
		if config.Rerank.APIKey == "" {
			config.Rerank.APIKey = apiKey
		}
	}
	if uri := os.Getenv("CCMEMORY_NEO4J_URI"); uri != "" {
		config.Store.Driver = "neo4j"
		config.Store.URI = uri
	}
	if user := os.Getenv("CCMEMORY_NEO4J_USER"); user != "" {
		config.Store.Username = user
	}
	if pass := os.Getenv("CCMEMORY_NEO4J_PASSWORD"); pass != "" {
		config.Store.Password = pass
	}
	if path := os.Getenv("CCMEMORY_DB_PATH"); path != "" {
		config.Store.Path = path
	}
}
