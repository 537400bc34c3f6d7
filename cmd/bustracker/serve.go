package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ghanabus/bustracker"
	"github.com/ghanabus/bustracker/config"
	"github.com/ghanabus/bustracker/internal/history"
)

const (
	shutdownTimeout = 10 * time.Second
	dbOpenTimeout   = 30 * time.Second
)

// newLogger creates a JSON logger for CLI use.
func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// serveCmd starts the tracker.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tracking server",
	Long: `Start the bustracker server.

The server will:
  - Load configuration from the specified YAML file
  - Accept GPS fixes at POST /ingest (and over NATS, if configured)
  - Push live updates to browsers over the /stream WebSocket
  - Serve the map dashboard on the configured port

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  bustracker serve -c config.yaml
  bustracker serve --config /etc/bustracker/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("config loaded",
		"port", cfg.Port,
		"staleness_window", cfg.StalenessWindow.Duration().String(),
		"sweep_interval", cfg.SweepInterval.Duration().String(),
	)

	opts := config.BuildOptions(cfg)
	opts = append(opts, bustracker.WithLogger(logger))

	// database wiring happens here rather than in the builder so the
	// recorder's lifetime is tied to the process
	if cfg.DatabaseURL != "" {
		openCtx, cancel := context.WithTimeout(context.Background(), dbOpenTimeout)
		recorder, err := history.OpenPostgres(openCtx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() {
			if err := recorder.Close(); err != nil {
				logger.Warn("database close failed", "error", err)
			}
		}()
		logger.Info("database connected", "backend", recorder.Name())
		opts = append(opts, bustracker.WithRecorder(recorder))
	}

	tr, err := bustracker.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create tracker: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start server - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- tr.Start(ctx)
	}()

	// wait for server to finish
	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
