package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/imgforge/internal/config"
	"github.com/MeKo-Tech/imgforge/internal/server"
	"github.com/spf13/cobra"
)

func newServeCommand(st *cliState) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP server for the image processing API",
		Long: `Start an HTTP server that exposes the processing pipeline.

The server provides the following endpoints:
  GET  /health   - Health check endpoint
  GET  /formats  - Supported inputs, outputs, presets and defaults
  POST /validate - Pre-decode checks on an uploaded image
  POST /process  - Process one uploaded image
  POST /batch    - Process a JSON batch of base64 images
  GET  /ws       - WebSocket with streamed batch progress
  GET  /metrics  - Prometheus metrics

Examples:
  imgforge serve
  imgforge serve --port 8080
  imgforge serve --host 0.0.0.0 --port 3000 --rate-limit-enabled`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, st)
		},
	}

	f := serveCmd.Flags()
	f.StringP("host", "H", "localhost", "server host")
	f.IntP("port", "p", 8080, "server port")
	f.String("cors-origin", "*", "CORS allowed origins")
	f.Int("max-upload-size", 50, "maximum upload size in MB")
	f.Int("timeout", 60, "request timeout in seconds")
	f.Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	f.Int("max-batch-items", 50, "maximum images per batch request")
	// Rate limiting flags
	f.Bool("rate-limit-enabled", false, "enable rate limiting")
	f.Int("requests-per-minute", 60, "maximum requests per minute per client")
	f.Int("requests-per-hour", 1000, "maximum requests per hour per client")
	f.Int("max-requests-per-day", 0, "maximum requests per day per client (0 = unlimited)")
	f.Int64("max-data-per-day", 0, "maximum data uploaded per day per client in MB (0 = unlimited)")
	return serveCmd
}

// serverConfigFromFlags maps the server section of the configuration to a
// server.Config, with changed flags taking precedence.
func serverConfigFromFlags(cmd *cobra.Command, cfg *config.Config) (server.Config, int, error) {
	f := cmd.Flags()
	sc := cfg.Server

	if f.Changed("host") {
		sc.Host, _ = f.GetString("host")
	}
	if f.Changed("port") {
		sc.Port, _ = f.GetInt("port")
	}
	if f.Changed("cors-origin") {
		sc.CORSOrigin, _ = f.GetString("cors-origin")
	}
	if f.Changed("max-upload-size") {
		sc.MaxUploadMB, _ = f.GetInt("max-upload-size")
	}
	if f.Changed("timeout") {
		sc.TimeoutSec, _ = f.GetInt("timeout")
	}
	if f.Changed("shutdown-timeout") {
		sc.ShutdownTimeout, _ = f.GetInt("shutdown-timeout")
	}
	if f.Changed("max-batch-items") {
		sc.MaxBatchItems, _ = f.GetInt("max-batch-items")
	}
	if f.Changed("rate-limit-enabled") {
		sc.RateLimit.Enabled, _ = f.GetBool("rate-limit-enabled")
	}
	if f.Changed("requests-per-minute") {
		sc.RateLimit.RequestsPerMinute, _ = f.GetInt("requests-per-minute")
	}
	if f.Changed("requests-per-hour") {
		sc.RateLimit.RequestsPerHour, _ = f.GetInt("requests-per-hour")
	}
	if f.Changed("max-requests-per-day") {
		sc.RateLimit.MaxRequestsPerDay, _ = f.GetInt("max-requests-per-day")
	}
	if f.Changed("max-data-per-day") {
		sc.RateLimit.MaxDataPerDayMB, _ = f.GetInt64("max-data-per-day")
	}

	if sc.Port < 1 || sc.Port > 65535 {
		return server.Config{}, 0, fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", sc.Port)
	}

	defaults, err := cfg.Processing.Settings()
	if err != nil {
		return server.Config{}, 0, err
	}

	serverConfig := server.Config{
		Host:          sc.Host,
		Port:          sc.Port,
		CORSOrigin:    sc.CORSOrigin,
		MaxUploadMB:   int64(sc.MaxUploadMB),
		TimeoutSec:    sc.TimeoutSec,
		MaxBatchItems: sc.MaxBatchItems,
		BatchWorkers:  cfg.Batch.Workers,
		MaxInputBytes: cfg.Processing.MaxInputBytes(),
		Defaults:      defaults,
	}
	if sc.RateLimit.Enabled {
		serverConfig.RateLimit = &server.RateLimitConfig{
			RequestsPerMinute: sc.RateLimit.RequestsPerMinute,
			RequestsPerHour:   sc.RateLimit.RequestsPerHour,
			MaxRequestsPerDay: sc.RateLimit.MaxRequestsPerDay,
			MaxDataPerDay:     sc.RateLimit.MaxDataPerDayMB << 20,
		}
	}
	return serverConfig, sc.ShutdownTimeout, nil
}

func runServe(cmd *cobra.Command, st *cliState) error {
	serverConfig, shutdownTimeout, err := serverConfigFromFlags(cmd, st.cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	imgServer, err := server.NewServer(serverConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}
	defer func() { _ = imgServer.Close() }()
	imgServer.StartMaintenance(ctx, 10*time.Minute, 24*time.Hour)

	timeout := time.Duration(serverConfig.TimeoutSec) * time.Second
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", serverConfig.Host, serverConfig.Port),
		Handler:           imgServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout + 5*time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Starting image server", "host", serverConfig.Host, "port", serverConfig.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	}

	slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", shutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(shutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
		return err
	}

	slog.Info("Graceful shutdown completed")
	return nil
}
