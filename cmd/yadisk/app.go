package main

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	httpadapter "github.com/Samratsinh-git/YandexDownloader/internal/adapters/http"
	"github.com/Samratsinh-git/YandexDownloader/internal/config"
	"github.com/Samratsinh-git/YandexDownloader/internal/domain"
	"github.com/Samratsinh-git/YandexDownloader/internal/observability/logger"
	"github.com/Samratsinh-git/YandexDownloader/internal/observability/metrics"
	"github.com/Samratsinh-git/YandexDownloader/internal/observability/types"
	"github.com/Samratsinh-git/YandexDownloader/internal/service"
	"github.com/Samratsinh-git/YandexDownloader/internal/storage"
	"github.com/Samratsinh-git/YandexDownloader/internal/yandex"
)

// options holds the parsed command line
type options struct {
	link        string
	destination string
	threads     int
	quiet       bool
}

// Dependencies holds all initialized infrastructure components
type Dependencies struct {
	httpClient *httpadapter.Client
	sinks      *storage.Factory
	logger     types.Logger
	metrics    *metrics.PrometheusMetrics
}

// Application holds the complete application stack
type Application struct {
	fetcher *service.FetchService
	logger  types.Logger
	metrics *metrics.PrometheusMetrics
	config  *config.Config
}

func download(ctx context.Context, opts options, stdout, stderr io.Writer) error {
	cfg, err := loadConfiguration()
	if err != nil {
		return err
	}

	deps := initializeDependencies(cfg, stderr)
	app := buildApplication(cfg, deps, opts, stderr)
	defer app.flushMetrics(ctx)

	runID := uuid.NewString()
	ctx = types.WithRunID(ctx, runID)

	logStartup(ctx, app, opts)

	result, err := app.fetcher.Fetch(ctx, domain.DownloadRequest{
		ID:              runID,
		SourceLink:      opts.link,
		DestinationPath: opts.destination,
		Threads:         opts.threads,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, result.Path)
	return nil
}

// loadConfiguration loads and validates the application configuration
func loadConfiguration() (*config.Config, error) {
	provider := config.NewProvider("")
	if err := provider.Load(); err != nil {
		return nil, err
	}
	return provider.Get()
}

// initializeDependencies sets up all infrastructure dependencies
func initializeDependencies(cfg *config.Config, stderr io.Writer) *Dependencies {
	log := logger.New(logger.Options{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		Output:      stderr,
	})
	m := metrics.New(cfg.ServiceName)

	return &Dependencies{
		httpClient: httpadapter.NewClientWithConfig(cfg.HTTP),
		sinks:      storage.NewFactory(cfg.Storage, log, m),
		logger:     log,
		metrics:    m,
	}
}

// buildApplication assembles the application layers
func buildApplication(cfg *config.Config, deps *Dependencies, opts options, stderr io.Writer) *Application {
	resolver := yandex.NewResolver(
		cfg.Yandex.APIURL,
		deps.httpClient,
		deps.logger.WithFields(types.Fields{"component": "resolver"}),
		deps.metrics,
	)

	fetcher := service.NewFetchService(
		resolver,
		deps.httpClient,
		deps.sinks,
		cfg.Download,
		deps.logger.WithFields(types.Fields{"component": "fetch"}),
		deps.metrics,
	)
	if !opts.quiet {
		fetcher.WithProgress(stderr)
	}

	return &Application{
		fetcher: fetcher,
		logger:  deps.logger,
		metrics: deps.metrics,
		config:  cfg,
	}
}

// logStartup logs application startup information
func logStartup(ctx context.Context, app *Application, opts options) {
	threads := opts.threads
	if threads == 0 {
		threads = app.config.Download.Threads
	}
	app.logger.Debug(ctx, "Starting application", types.Fields{
		"service":     app.config.ServiceName,
		"version":     version,
		"environment": app.config.Environment,
		"threads":     threads,
	})
}

func (a *Application) flushMetrics(ctx context.Context) {
	path := a.config.Observability.MetricsTextfile
	if err := a.metrics.Flush(path); err != nil {
		a.logger.Warn(ctx, "Failed to write metrics", types.Fields{
			"path":  path,
			"error": err.Error(),
		})
	}
}
