package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fyrsmithlabs/vibeguard/internal/config"
	"github.com/fyrsmithlabs/vibeguard/internal/ingest"
	"github.com/fyrsmithlabs/vibeguard/internal/logging"
	"github.com/fyrsmithlabs/vibeguard/internal/metrics"
	"github.com/fyrsmithlabs/vibeguard/internal/pipeline"
	"github.com/fyrsmithlabs/vibeguard/internal/scanner"
	"github.com/fyrsmithlabs/vibeguard/internal/telemetry"
	"go.uber.org/zap"
)

// app holds the services shared by serve and scan.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	pipeline  *pipeline.Service
}

// newApp loads configuration and wires logging, telemetry, the rule
// catalog, the GitHub ingestor and the pipeline. Logs go to logOut. m may
// be nil.
func newApp(ctx context.Context, configPath string, logOut io.Writer, m *metrics.Metrics) (*app, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	tcfg := telemetry.FromSettings(cfg.Telemetry)
	if version != "dev" {
		tcfg.ServiceVersion = version
	}
	tel, err := telemetry.New(ctx, tcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	lcfg, err := logging.FromSettings(cfg.Logging)
	if err != nil {
		_ = tel.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger, err := logging.NewLogger(lcfg, tel.LoggerProvider(), logging.WithWriter(logOut))
	if err != nil {
		_ = tel.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, telemetry: tel}
	for _, reason := range tel.Health().Reasons {
		logger.Warn(ctx, "telemetry degraded", zap.String("reason", reason))
	}

	svc, err := a.newPipeline(m)
	if err != nil {
		a.close(context.Background())
		return nil, err
	}
	a.pipeline = svc
	return a, nil
}

func (a *app) newPipeline(m *metrics.Metrics) (*pipeline.Service, error) {
	catalog, err := scanner.NewCatalog(scanner.DefaultRules(), a.cfg.Scanner.ExtraRules)
	if err != nil {
		return nil, fmt.Errorf("failed to build rule catalog: %w", err)
	}

	client, err := ingest.NewGitHubClient(ingest.GitHubClientConfig{
		BaseURL:   a.cfg.Ingest.GitHubAPIURL,
		Token:     a.cfg.Ingest.GitHubToken.Value(),
		UserAgent: a.cfg.Ingest.UserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create github client: %w", err)
	}

	ingestor, err := ingest.New(
		ingest.NewGitHubSource(client, nil),
		a.cfg.Ingest.Limits(),
		a.logger.Underlying().Named("ingest"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ingestor: %w", err)
	}

	return pipeline.New(ingestor, scanner.NewEngine(catalog, a.cfg.Scanner.Engine()),
		pipeline.WithLogger(a.logger.Named("pipeline")),
		pipeline.WithMetrics(m),
		pipeline.WithTracerProvider(a.telemetry.TracerProvider()),
	)
}

// close flushes telemetry and the logger.
func (a *app) close(ctx context.Context) {
	if err := a.telemetry.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}
