// Package s3 implements the s3://bucket/prefix sink. Bytes are staged in a
// local temp file so ranged workers can write at offsets, then uploaded
// with a single PutObject on commit.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Samratsinh-git/YandexDownloader/internal/config"
	"github.com/Samratsinh-git/YandexDownloader/internal/domain"
	"github.com/Samratsinh-git/YandexDownloader/internal/observability/types"
)

// Scheme is the destination prefix handled by this sink.
const Scheme = "s3://"

// PutObjectAPI is the subset of *s3.Client the sink needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Sink uploads a single object to S3
type Sink struct {
	client  PutObjectAPI
	bucket  string
	prefix  string
	logger  types.Logger
	metrics types.Metrics
}

// IsURI reports whether destination addresses S3.
func IsURI(destination string) bool {
	return strings.HasPrefix(destination, Scheme)
}

// ParseURI splits s3://bucket/key into its parts. The key may be empty.
func ParseURI(uri string) (bucket, key string, err error) {
	if !IsURI(uri) {
		return "", "", fmt.Errorf("not an s3 URI: %q", uri)
	}
	rest := strings.TrimPrefix(uri, Scheme)
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("missing bucket in %q", uri)
	}
	return bucket, key, nil
}

// NewClient builds an S3 client from the storage configuration
func NewClient(ctx context.Context, cfg config.StorageConfig) (*s3.Client, error) {
	awsCfg, err := buildAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	endpoint := cfg.S3.Endpoint
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// buildAWSConfig builds the AWS configuration from the S3 config
func buildAWSConfig(ctx context.Context, cfg config.StorageConfig) (aws.Config, error) {
	var optFns []func(*awsconfig.LoadOptions) error

	if cfg.S3.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.S3.Region))
	}

	// Use static credentials if provided
	if cfg.S3.AccessKeyID != "" && cfg.S3.SecretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.S3.AccessKeyID,
				cfg.S3.SecretAccessKey,
				"",
			),
		))
	}

	optFns = append(optFns, awsconfig.WithHTTPClient(&http.Client{
		Timeout: cfg.Timeout,
	}))

	return awsconfig.LoadDefaultConfig(ctx, optFns...)
}

// New creates a sink for uri using client for uploads
func New(client PutObjectAPI, uri string, logger types.Logger, metrics types.Metrics) (*Sink, error) {
	bucket, prefix, err := ParseURI(uri)
	if err != nil {
		return nil, domain.StorageError("invalid S3 destination", err)
	}

	return &Sink{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		logger:  logger.WithFields(types.Fields{"component": "s3_sink", "bucket": bucket}),
		metrics: metrics,
	}, nil
}

// Key returns the object key used for a file called name.
func (s *Sink) Key(name string) string {
	if s.prefix == "" || strings.HasSuffix(s.prefix, "/") {
		return s.prefix + name
	}
	return s.prefix
}

// Create implements domain.Sink
func (s *Sink) Create(ctx context.Context, name string) (domain.Object, error) {
	tmp, err := os.CreateTemp("", "yadisk-s3-*.part")
	if err != nil {
		return nil, domain.FilesystemError("failed to create staging file", err)
	}

	key := s.Key(name)
	s.logger.Debug(ctx, "Staging object", types.Fields{
		"key":       key,
		"temp_path": tmp.Name(),
	})

	return &Object{sink: s, file: tmp, key: key}, nil
}

// Object is a staged upload.
type Object struct {
	sink *Sink
	file *os.File
	key  string

	mu       sync.Mutex
	location string
	done     bool
}

// ReadAt implements io.ReaderAt
func (o *Object) ReadAt(p []byte, off int64) (int, error) {
	n, err := o.file.ReadAt(p, off)
	if err != nil && err != io.EOF {
		return n, domain.FilesystemError("failed to read staging file", err)
	}
	return n, err
}

// Write implements io.Writer
func (o *Object) Write(p []byte) (int, error) {
	n, err := o.file.Write(p)
	if err != nil {
		return n, domain.FilesystemError("failed to write staging file", err)
	}
	return n, nil
}

// WriteAt implements io.WriterAt
func (o *Object) WriteAt(p []byte, off int64) (int, error) {
	n, err := o.file.WriteAt(p, off)
	if err != nil {
		return n, domain.FilesystemError("failed to write staging file", err)
	}
	return n, nil
}

// Commit uploads the staged bytes and returns the s3:// location.
// The staging file is removed whatever the outcome.
func (o *Object) Commit(ctx context.Context) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.done {
		if o.location == "" {
			return "", domain.StorageError("object already aborted", nil)
		}
		return o.location, nil
	}
	o.done = true
	defer o.cleanup()

	start := time.Now()
	s := o.sink

	size, err := o.file.Seek(0, io.SeekEnd)
	if err == nil {
		_, err = o.file.Seek(0, io.SeekStart)
	}
	if err != nil {
		return "", domain.FilesystemError("failed to rewind staging file", err)
	}

	s.metrics.StartOperation("upload")
	defer s.metrics.EndOperation("upload")

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(o.key),
		Body:          o.file,
		ContentLength: aws.Int64(size),
	})
	s.metrics.RecordDuration("upload", time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordError("upload", "s3")
		s.logger.Error(ctx, "Failed to put object", err, types.Fields{"key": o.key})
		return "", domain.StorageError(fmt.Sprintf("failed to upload s3://%s/%s", s.bucket, o.key), err)
	}

	s.metrics.RecordSuccess("upload")
	s.metrics.RecordFileSize("s3", size)
	s.logger.Info(ctx, "Object stored successfully", types.Fields{
		"key":         o.key,
		"size_bytes":  size,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	o.location = Scheme + s.bucket + "/" + o.key
	return o.location, nil
}

// Abort implements domain.Object
func (o *Object) Abort() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.done {
		return nil
	}
	o.done = true
	return o.cleanup()
}

func (o *Object) cleanup() error {
	o.file.Close()
	if err := os.Remove(o.file.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return domain.FilesystemError("failed to remove staging file", err)
	}
	return nil
}
