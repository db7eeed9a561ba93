package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fyrsmithlabs/vibeguard/internal/config"
	vghttp "github.com/fyrsmithlabs/vibeguard/internal/http"
	"github.com/fyrsmithlabs/vibeguard/internal/logging"
	"github.com/fyrsmithlabs/vibeguard/internal/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scan API",
	Long: `Run the HTTP API until SIGINT or SIGTERM.

Configuration comes from the YAML file given by --config (default
~/.config/vibeguard/config.yaml), overridden by VIBEGUARD_* environment
variables.

Examples:
  # Start with defaults on 0.0.0.0:8080
  vibeguard serve

  # Use a system config file and a different port
  VIBEGUARD_SERVER_PORT=9090 vibeguard serve --config /etc/vibeguard/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "path to the YAML config file")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.Default()
	a, err := newApp(ctx, serveConfigPath, os.Stdout, m)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	a.logger.Info(ctx, "starting vibeguard",
		zap.String("version", version),
		zap.String("addr", a.cfg.Server.Addr()),
		zap.Int("rules", len(a.pipeline.Rules())),
		logging.Secret("github_token", a.cfg.Ingest.GitHubToken),
		zap.Bool("telemetry", a.telemetry.IsEnabled()),
	)

	srv, err := vghttp.NewServer(a.pipeline, a.logger.Underlying().Named("http"), serverConfig(a.cfg),
		vghttp.WithMetrics(m),
		vghttp.WithMeterProvider(a.telemetry.MeterProvider()),
	)
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info(context.Background(), "shutdown signal received",
		zap.Duration("shutdown_timeout", a.cfg.Server.ShutdownTimeout.Duration()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

// serverConfig maps the server, metrics and rate limit sections onto the
// HTTP layer.
func serverConfig(cfg *config.Config) *vghttp.Config {
	c := &vghttp.Config{
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		BodyLimit: cfg.Server.BodyLimit,
		RateLimit: vghttp.RateLimitConfig{
			Enabled: cfg.RateLimit.Enabled,
			RPS:     cfg.RateLimit.RPS,
			Burst:   cfg.RateLimit.Burst,
		},
	}
	if cfg.Metrics.Enabled {
		c.MetricsPath = cfg.Metrics.Path
	}
	return c
}
