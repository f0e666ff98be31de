package ccmemory

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/patrickkidd/ccmemory/pkg/config"
	"github.com/patrickkidd/ccmemory/pkg/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the ccmemory HTTP server",
	Long: `Start the ccmemory HTTP server to provide REST API access to the
context graph.

The server provides endpoints for:
- Storing facts and extracting them from conversation text
- Searching and retrieving facts
- Assembling session context
- Asserting relationships, relinking, promoting, purging
- Graph metrics and health checks

Configuration can be provided through config files, environment variables,
or command-line flags.`,
	RunE: runServer,
}

var (
	serverHost string
	serverPort int
	serverMode string
)

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVar(&serverHost, "host", "localhost", "Server host")
	serverCmd.Flags().IntVar(&serverPort, "port", 8385, "Server port")
	serverCmd.Flags().StringVar(&serverMode, "mode", "release", "Server mode (debug, release, test)")

	serverCmd.Flags().String("store-driver", "badger", "Store driver (badger, neo4j, memory)")
	serverCmd.Flags().String("store-path", "", "Badger database directory")
	serverCmd.Flags().String("store-uri", "", "Neo4j URI")
	serverCmd.Flags().String("store-username", "", "Neo4j username")
	serverCmd.Flags().String("store-password", "", "Neo4j password")

	serverCmd.Flags().String("embedding-provider", "", "Embedding provider (local, openai, static)")
	serverCmd.Flags().String("embedding-model", "", "Embedding model")
	serverCmd.Flags().String("embedding-api-key", "", "Embedding API key")

	serverCmd.Flags().String("detection-api-key", "", "LLM API key for fact extraction")
	serverCmd.Flags().String("telemetry-parquet-path", "", "Directory for parquet telemetry")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	overrideConfigWithFlags(cmd, cfg)

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}

	ctx := context.Background()
	memory, log, err := buildMemory(ctx, cfg, cfg.Projects)
	if err != nil {
		return err
	}
	defer memory.Close()

	srv := server.New(cfg, memory, log)
	srv.Setup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	}
}

func overrideConfigWithFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serverHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serverPort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode = serverMode
	}

	if cmd.Flags().Changed("store-driver") {
		cfg.Store.Driver, _ = cmd.Flags().GetString("store-driver")
	}
	if cmd.Flags().Changed("store-path") {
		cfg.Store.Path, _ = cmd.Flags().GetString("store-path")
	}
	if cmd.Flags().Changed("store-uri") {
		cfg.Store.URI, _ = cmd.Flags().GetString("store-uri")
	}
	if cmd.Flags().Changed("store-username") {
		cfg.Store.Username, _ = cmd.Flags().GetString("store-username")
	}
	if cmd.Flags().Changed("store-password") {
		cfg.Store.Password, _ = cmd.Flags().GetString("store-password")
	}

	if cmd.Flags().Changed("embedding-provider") {
		cfg.Embedding.Provider, _ = cmd.Flags().GetString("embedding-provider")
	}
	if cmd.Flags().Changed("embedding-model") {
		cfg.Embedding.Model, _ = cmd.Flags().GetString("embedding-model")
	}
	if cmd.Flags().Changed("embedding-api-key") {
		cfg.Embedding.APIKey, _ = cmd.Flags().GetString("embedding-api-key")
	}

	if cmd.Flags().Changed("detection-api-key") {
		cfg.Detection.APIKey, _ = cmd.Flags().GetString("detection-api-key")
	}
	if cmd.Flags().Changed("telemetry-parquet-path") {
		cfg.Telemetry.ParquetPath, _ = cmd.Flags().GetString("telemetry-parquet-path")
		cfg.Telemetry.Enabled = true
	}
}
