package storage

import (
	"context"
	"errors"
	"testing"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Samratsinh-git/YandexDownloader/internal/config"
	"github.com/Samratsinh-git/YandexDownloader/internal/domain"
	"github.com/Samratsinh-git/YandexDownloader/internal/observability/metrics"
	obmocks "github.com/Samratsinh-git/YandexDownloader/internal/observability/mocks"
	"github.com/Samratsinh-git/YandexDownloader/internal/storage/fs"
	"github.com/Samratsinh-git/YandexDownloader/internal/storage/s3"
)

type nopS3 struct{}

func (nopS3) PutObject(context.Context, *awss3.PutObjectInput, ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	return &awss3.PutObjectOutput{}, nil
}

func newFactory() *Factory {
	return NewFactory(config.DefaultStorageConfig(), obmocks.NewPermissiveLogger(), metrics.Noop{})
}

func TestFactory_LocalDestination(t *testing.T) {
	f := newFactory().WithS3ClientBuilder(func(context.Context, config.StorageConfig) (s3.PutObjectAPI, error) {
		t.Error("S3 client must not be built for local destinations")
		return nil, nil
	})

	sink, err := f.ForDestination(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &fs.Sink{}, sink)
}

func TestFactory_S3DestinationBuildsClientOnce(t *testing.T) {
	builds := 0
	f := newFactory().WithS3ClientBuilder(func(context.Context, config.StorageConfig) (s3.PutObjectAPI, error) {
		builds++
		return nopS3{}, nil
	})

	for i := 0; i < 2; i++ {
		sink, err := f.ForDestination(context.Background(), "s3://bucket/dir/")
		require.NoError(t, err)
		assert.IsType(t, &s3.Sink{}, sink)
	}
	assert.Equal(t, 1, builds)
}

func TestFactory_S3ClientFailure(t *testing.T) {
	f := newFactory().WithS3ClientBuilder(func(context.Context, config.StorageConfig) (s3.PutObjectAPI, error) {
		return nil, errors.New("no credentials")
	})

	_, err := f.ForDestination(context.Background(), "s3://bucket")
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestFactory_InvalidS3URI(t *testing.T) {
	f := newFactory().WithS3ClientBuilder(func(context.Context, config.StorageConfig) (s3.PutObjectAPI, error) {
		return nopS3{}, nil
	})

	_, err := f.ForDestination(context.Background(), "s3://")
	assert.ErrorIs(t, err, domain.ErrStorage)
}
