// Package storage picks the sink implementation for a destination.
package storage

import (
	"context"
	"sync"

	"github.com/Samratsinh-git/YandexDownloader/internal/config"
	"github.com/Samratsinh-git/YandexDownloader/internal/domain"
	"github.com/Samratsinh-git/YandexDownloader/internal/observability/types"
	"github.com/Samratsinh-git/YandexDownloader/internal/storage/fs"
	"github.com/Samratsinh-git/YandexDownloader/internal/storage/s3"
)

// S3ClientBuilder creates the client used by s3:// destinations.
type S3ClientBuilder func(ctx context.Context, cfg config.StorageConfig) (s3.PutObjectAPI, error)

// Factory creates sinks. The S3 client is built on first use so local
// downloads never touch AWS configuration.
type Factory struct {
	config    config.StorageConfig
	logger    types.Logger
	metrics   types.Metrics
	newClient S3ClientBuilder

	mu       sync.Mutex
	s3Client s3.PutObjectAPI
}

// NewFactory creates a sink factory
func NewFactory(cfg config.StorageConfig, logger types.Logger, metrics types.Metrics) *Factory {
	return &Factory{
		config:  cfg,
		logger:  logger,
		metrics: metrics,
		newClient: func(ctx context.Context, cfg config.StorageConfig) (s3.PutObjectAPI, error) {
			return s3.NewClient(ctx, cfg)
		},
	}
}

// WithS3ClientBuilder overrides how the S3 client is created.
func (f *Factory) WithS3ClientBuilder(b S3ClientBuilder) *Factory {
	f.newClient = b
	return f
}

// ForDestination returns the sink for destination: s3:// URIs go to S3,
// everything else to the local filesystem.
func (f *Factory) ForDestination(ctx context.Context, destination string) (domain.Sink, error) {
	if !s3.IsURI(destination) {
		return fs.New(destination, f.logger), nil
	}

	client, err := f.s3(ctx)
	if err != nil {
		return nil, err
	}
	sink, err := s3.New(client, destination, f.logger, f.metrics)
	if err != nil {
		return nil, err
	}
	return sink, nil
}

func (f *Factory) s3(ctx context.Context) (s3.PutObjectAPI, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.s3Client != nil {
		return f.s3Client, nil
	}

	client, err := f.newClient(ctx, f.config)
	if err != nil {
		return nil, domain.StorageError("failed to initialize S3 client", err)
	}
	f.s3Client = client
	return client, nil
}
