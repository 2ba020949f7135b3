// Package main provides the equipment locator server binary.
// The server exposes the search engine over HTTP and gRPC.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/equipfind/equipfind/internal/config"
	"github.com/equipfind/equipfind/internal/grpcserver"
	"github.com/equipfind/equipfind/internal/pkg/logger"
	"github.com/equipfind/equipfind/internal/search"
	"github.com/equipfind/equipfind/internal/server"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "equipfind-server",
		Short: "Equipment locator server - HTTP + gRPC search over the building catalog",
		Long: `equipfind-server answers natural-language equipment searches against the
building catalog database.

The server exposes:
  - HTTP API on :8080 (configurable): /v1/search, /v1/search/suggest, /v1/search/filters
  - gRPC API on :9090 (configurable, 0 disables) with the standard health service
  - Unix socket (optional, non-Windows) for local gRPC clients

Examples:
  equipfind-server                                  # Start with defaults
  equipfind-server -c equipfind.yaml                # Load a config file
  equipfind-server --http-port 8081 --grpc-port 0   # HTTP only
  equipfind-server --unix-socket /tmp/equipfind.sock`,
		RunE:         runServer,
		SilenceUsage: true,
	}

	rootCmd.Flags().StringP("config", "c", "", "config file path")
	rootCmd.Flags().BoolP("verbose", "v", false, "verbose logging")
	rootCmd.Flags().Int("grpc-port", 9090, "gRPC server port (0 disables gRPC)")
	rootCmd.Flags().Int("http-port", 8080, "HTTP server port")
	rootCmd.Flags().String("host", "0.0.0.0", "server host")
	rootCmd.Flags().String("unix-socket", "", "Unix socket path (disabled on Windows)")
	rootCmd.Flags().String("dsn", "", "catalog DSN (overrides config)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("equipfind-server %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	unixSocket, _ := cmd.Flags().GetString("unix-socket")

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override from flags
	if cmd.Flags().Changed("http-port") {
		appCfg.Port, _ = cmd.Flags().GetInt("http-port")
	}
	if cmd.Flags().Changed("grpc-port") {
		appCfg.GRPCPort, _ = cmd.Flags().GetInt("grpc-port")
	}
	if cmd.Flags().Changed("host") {
		appCfg.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("dsn") {
		appCfg.Catalog.DSN, _ = cmd.Flags().GetString("dsn")
	}
	if verbose {
		appCfg.Log.Level = "debug"
	}
	if err := appCfg.Validate(); err != nil {
		return err
	}

	log := logger.New(appCfg.Log.Level, appCfg.Log.Format)
	log.Info("Starting equipfind server",
		"version", version,
		"http_addr", appCfg.Address(),
		"grpc_addr", appCfg.GRPCAddress(),
		"catalog_driver", appCfg.Catalog.Driver,
		"bus", appCfg.Bus.Type,
	)

	ctx := context.Background()

	backends, err := server.OpenBackends(ctx, appCfg, log)
	if err != nil {
		return fmt.Errorf("failed to open backends: %w", err)
	}
	defer func() {
		if err := backends.Close(); err != nil {
			log.Warn("Error closing backends", "error", err)
		}
	}()

	httpSrv, err := server.New(server.Config{Version: version}, appCfg, backends, log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	if err := httpSrv.Subscribe(ctx); err != nil {
		return err
	}

	var grpcSrv *grpcserver.Server
	if addr := appCfg.GRPCAddress(); addr != "" {
		grpcSrv = grpcserver.New(grpcserver.Config{
			TCPAddr:        addr,
			UnixSocketPath: unixSocket,
			Version:        version,
			Commit:         commit,
			BuildDate:      date,
			HealthInterval: 15 * time.Second,
		}, log, httpSrv.Engine(), search.NewHealthChecker(backends.Checks...))
		if err := grpcSrv.Start(); err != nil {
			return fmt.Errorf("failed to start gRPC server: %w", err)
		}
	} else {
		log.Info("gRPC server disabled")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.Start()
	}()

	// Wait for shutdown signal (platform-specific: Unix includes SIGQUIT, Windows does not)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, shutdownSignals...)

	var serveErr error
	select {
	case sig := <-sigCh:
		log.Info("Shutdown signal received", "signal", sig.String())
	case serveErr = <-errCh:
		if serveErr != nil {
			log.Error("HTTP server error", "error", serveErr)
		}
	}

	if err := httpSrv.Stop(context.Background()); err != nil {
		log.Error("HTTP shutdown error", "error", err)
	}
	if grpcSrv != nil {
		grpcSrv.Stop()
	}

	log.Info("Server stopped")
	return serveErr
}
