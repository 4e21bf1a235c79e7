package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/peerdrive/peerdrive/internal/logger"
	"github.com/peerdrive/peerdrive/pkg/api"
	"github.com/peerdrive/peerdrive/pkg/config"
	"github.com/peerdrive/peerdrive/pkg/daemon"
	"github.com/peerdrive/peerdrive/pkg/metrics"
)

var pidFile string

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the peerdrive daemon",
	Long: `Start the peerdrive daemon with the specified configuration.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/peerdrive/config.yaml.

Examples:
  # Start with default config location
  peerdrived start

  # Start with custom config file
  peerdrived start --config /etc/peerdrive/config.yaml

  # Start with environment variable overrides
  PEERDRIVE_LOGGING_LEVEL=DEBUG peerdrived start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := initLogger(cfg); err != nil {
		return err
	}

	logger.Info("peerdrive daemon starting", "version", Version)
	logger.Info("configuration loaded", "source", getConfigSource(GetConfigFile()))
	logger.Info("log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opener, err := config.CreateOpener(cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to create storage backend: %w", err)
	}
	logger.Info("storage backend ready", "backend", cfg.Store.Backend)

	d := daemon.New(opener)

	// Serve the control API and metrics servers until the context ends.
	serverDone := make(chan error, 2)
	servers := 0

	if cfg.API.IsEnabled() {
		apiServer := api.NewServer(cfg.API, d)
		servers++
		go func() { serverDone <- apiServer.Start(ctx) }()
		logger.Info("control API enabled", "port", cfg.API.Port)
	} else {
		logger.Info("control API disabled")
	}

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Port)
		servers++
		go func() { serverDone <- metricsServer.Start(ctx) }()
		logger.Info("metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("metrics collection disabled")
	}

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("daemon is running. Press Ctrl+C to stop.")

	var runErr error
	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, initiating graceful shutdown")
		cancel()
	case err := <-serverDone:
		signal.Stop(sigChan)
		servers--
		if err != nil {
			logger.Error("server error", "error", err)
			runErr = err
		}
		cancel()
	}

	// Wait for the remaining servers to finish their graceful shutdown.
	for ; servers > 0; servers-- {
		if err := <-serverDone; err != nil && runErr == nil {
			runErr = err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := d.Shutdown(shutdownCtx); err != nil {
		logger.Error("daemon shutdown error", "error", err)
		if runErr == nil {
			runErr = err
		}
	}

	if closer, ok := opener.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Error("storage backend close error", "error", err)
		}
	}

	if runErr != nil {
		return runErr
	}
	logger.Info("daemon stopped gracefully")
	return nil
}

// initLogger initializes the structured logger from configuration.
func initLogger(cfg *config.Config) error {
	return logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// getConfigSource returns a description of where the config was loaded
// from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
