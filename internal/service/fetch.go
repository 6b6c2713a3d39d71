package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Samratsinh-git/YandexDownloader/internal/config"
	"github.com/Samratsinh-git/YandexDownloader/internal/domain"
	"github.com/Samratsinh-git/YandexDownloader/internal/observability/types"
	"github.com/Samratsinh-git/YandexDownloader/internal/progress"
)

// SinkFactory returns the sink that handles a destination
type SinkFactory interface {
	ForDestination(ctx context.Context, destination string) (domain.Sink, error)
}

// FetchService resolves a share link and stores the file it points to
type FetchService struct {
	resolver   domain.Resolver
	httpClient domain.HTTPClient
	sinks      SinkFactory
	config     config.DownloadConfig
	logger     types.Logger
	metrics    types.Metrics

	progressOut io.Writer
}

// NewFetchService creates a new fetch service
func NewFetchService(
	resolver domain.Resolver,
	httpClient domain.HTTPClient,
	sinks SinkFactory,
	cfg config.DownloadConfig,
	logger types.Logger,
	metrics types.Metrics,
) *FetchService {
	return &FetchService{
		resolver:   resolver,
		httpClient: httpClient,
		sinks:      sinks,
		config:     cfg,
		logger:     logger,
		metrics:    metrics,
	}
}

// WithProgress draws a progress bar on w while downloading.
func (s *FetchService) WithProgress(w io.Writer) *FetchService {
	s.progressOut = w
	return s
}

// Fetch downloads the file behind req.SourceLink to req.DestinationPath.
// Nothing is left at the destination unless the whole download succeeds.
func (s *FetchService) Fetch(ctx context.Context, req domain.DownloadRequest) (*domain.FetchResult, error) {
	s.metrics.StartOperation("fetch")
	defer s.metrics.EndOperation("fetch")
	startTime := time.Now()
	defer func() {
		s.metrics.RecordDuration("fetch", time.Since(startTime).Seconds())
	}()

	logger := s.logger.WithFields(types.Fields{"id": req.ID})
	logger.Info(ctx, "Starting fetch", types.Fields{
		"link":        req.SourceLink,
		"destination": req.DestinationPath,
	})

	result, err := s.fetch(ctx, logger, req)
	if err != nil {
		s.metrics.RecordError("fetch", errorType(err))
		logger.Error(ctx, "Fetch failed", err, types.Fields{
			"link":        req.SourceLink,
			"destination": req.DestinationPath,
		})
		return nil, err
	}

	result.Duration = time.Since(startTime)
	s.metrics.RecordSuccess("fetch")
	s.metrics.RecordFileSize(fileType(result.Path), result.Size)

	logger.Info(ctx, "Fetch completed", types.Fields{
		"path":        result.Path,
		"size_bytes":  result.Size,
		"sha256":      result.Checksum,
		"ranged":      result.Ranged,
		"duration_ms": result.Duration.Milliseconds(),
	})
	return result, nil
}

func (s *FetchService) fetch(ctx context.Context, logger types.Logger, req domain.DownloadRequest) (*domain.FetchResult, error) {
	if strings.TrimSpace(req.DestinationPath) == "" {
		return nil, domain.FilesystemError("destination is required", nil)
	}

	resource, err := s.resolver.Resolve(ctx, req.SourceLink)
	if err != nil {
		return nil, err
	}

	sink, err := s.sinks.ForDestination(ctx, req.DestinationPath)
	if err != nil {
		return nil, err
	}

	obj, err := sink.Create(ctx, resource.FileName)
	if err != nil {
		return nil, err
	}

	committed := false
	defer func() {
		if !committed {
			if abortErr := obj.Abort(); abortErr != nil {
				logger.Warn(ctx, "Failed to discard partial download", types.Fields{"error": abortErr.Error()})
			}
		}
	}()

	// planning logs to the same stream the bar draws on
	parts := s.planRanges(ctx, logger, resource.Href, s.threads(req))

	bar := s.newBar(ctx, resource.FileName)
	if bar != nil {
		defer bar.Finish()
	}

	var (
		size     int64
		checksum string
		ranged   bool
	)

	if parts != nil {
		ranged = true
		size, checksum, err = s.downloadRanges(ctx, logger, resource.Href, parts, obj, bar)
	} else {
		size, checksum, err = s.downloadStream(ctx, resource.Href, obj, bar)
	}
	if err != nil {
		return nil, err
	}

	location, err := obj.Commit(ctx)
	if err != nil {
		return nil, err
	}
	committed = true

	return &domain.FetchResult{
		ID:           req.ID,
		SourceLink:   req.SourceLink,
		Path:         location,
		Size:         size,
		Checksum:     checksum,
		Ranged:       ranged,
		DownloadedAt: time.Now().UTC(),
	}, nil
}

func (s *FetchService) threads(req domain.DownloadRequest) int {
	n := req.Threads
	if n == 0 {
		n = s.config.Threads
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (s *FetchService) newBar(ctx context.Context, name string) *progress.Bar {
	if s.progressOut == nil {
		return nil
	}
	bar := progress.New(s.progressOut, name, 0, s.config.ProgressInterval)
	bar.Start(ctx)
	return bar
}

// downloadStream copies the whole body sequentially into obj.
func (s *FetchService) downloadStream(ctx context.Context, href string, obj domain.Object, bar *progress.Bar) (int64, string, error) {
	body, headers, err := s.httpClient.Download(ctx, href, nil)
	if err != nil {
		return 0, "", domain.NetworkError("failed to download file", err)
	}
	defer body.Close()

	expected := int64(-1)
	if v, ok := headers["Content-Length"]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			expected = n
		}
	}
	if bar != nil && expected > 0 {
		bar.SetTotal(expected)
	}

	reader := newChecksumReader(body, bar)
	written, err := io.Copy(obj, reader)
	if err != nil {
		return written, "", classifyCopyError("failed to read response body", err)
	}
	if expected >= 0 && written != expected {
		return written, "", domain.NetworkError(
			fmt.Sprintf("response body truncated: got %d bytes, want %d", written, expected), nil)
	}

	return written, reader.Checksum(), nil
}

// byteRange is an inclusive span of the remote file.
type byteRange struct {
	start int64
	end   int64
}

func (r byteRange) length() int64 {
	return r.end - r.start + 1
}

// matches reports whether a Content-Range value covers exactly r.
func (r byteRange) matches(contentRange string) bool {
	span, _, ok := strings.Cut(strings.TrimSpace(contentRange), "/")
	if !ok {
		return false
	}
	return span == fmt.Sprintf("bytes %d-%d", r.start, r.end)
}

// planRanges decides whether the ranged mode can be used and splits the
// file. A nil result means fall back to a single stream.
func (s *FetchService) planRanges(ctx context.Context, logger types.Logger, href string, threads int) []byteRange {
	if threads <= 1 {
		return nil
	}

	info, err := s.httpClient.Probe(ctx, href)
	if err != nil {
		logger.Warn(ctx, "Range probe failed, using a single connection", types.Fields{"error": err.Error()})
		return nil
	}
	if !info.AcceptRanges || info.Size <= 0 {
		logger.Info(ctx, "Server does not support ranges, using a single connection", types.Fields{
			"accept_ranges": info.AcceptRanges,
			"size_bytes":    info.Size,
		})
		return nil
	}

	minPart := s.config.MinPartSize
	if minPart < 1 {
		minPart = 1
	}
	minSize := int64(threads) * minPart
	if info.Size < minSize {
		logger.Info(ctx, "File too small for ranged download, using a single connection", types.Fields{
			"size_bytes": info.Size,
			"threads":    threads,
		})
		return nil
	}

	return splitRanges(info.Size, threads)
}

// splitRanges cuts size bytes into n contiguous ranges. The last range
// takes the remainder.
func splitRanges(size int64, n int) []byteRange {
	part := size / int64(n)
	ranges := make([]byteRange, n)
	for i := range ranges {
		start := int64(i) * part
		end := start + part - 1
		if i == n-1 {
			end = size - 1
		}
		ranges[i] = byteRange{start: start, end: end}
	}
	return ranges
}

// downloadRanges fetches every range concurrently and writes each at its
// offset. The first failure cancels the remaining parts.
func (s *FetchService) downloadRanges(ctx context.Context, logger types.Logger, href string, parts []byteRange, obj domain.Object, bar *progress.Bar) (int64, string, error) {
	total := parts[len(parts)-1].end + 1
	if bar != nil {
		bar.SetTotal(total)
	}

	logger.Debug(ctx, "Starting ranged download", types.Fields{
		"parts":      len(parts),
		"size_bytes": total,
	})

	g, gctx := errgroup.WithContext(ctx)
	for i, part := range parts {
		g.Go(func() error {
			return s.downloadPart(gctx, href, i, part, obj, bar)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, "", err
	}

	hasher := sha256.New()
	if _, err := io.Copy(hasher, io.NewSectionReader(obj, 0, total)); err != nil {
		return 0, "", domain.FilesystemError("failed to checksum file", err)
	}

	return total, hex.EncodeToString(hasher.Sum(nil)), nil
}

func (s *FetchService) downloadPart(ctx context.Context, href string, index int, part byteRange, obj domain.Object, bar *progress.Bar) error {
	headers := map[string]string{
		"Range": fmt.Sprintf("bytes=%d-%d", part.start, part.end),
	}
	body, respHeaders, err := s.httpClient.Download(ctx, href, headers)
	if err != nil {
		return domain.NetworkError(fmt.Sprintf("part %d: range request failed", index), err)
	}
	defer body.Close()

	if got := respHeaders["Content-Range"]; !part.matches(got) {
		return domain.NetworkError(fmt.Sprintf("part %d: server sent range %q, want bytes %d-%d",
			index, got, part.start, part.end), nil)
	}

	var src io.Reader = io.LimitReader(body, part.length()+1)
	if bar != nil {
		src = io.TeeReader(src, bar)
	}

	written, err := io.Copy(io.NewOffsetWriter(obj, part.start), src)
	if err != nil {
		return classifyCopyError(fmt.Sprintf("part %d: failed to read range", index), err)
	}
	if written != part.length() {
		return domain.NetworkError(fmt.Sprintf("part %d: got %d bytes, want %d", index, written, part.length()), nil)
	}
	return nil
}

// classifyCopyError keeps sink failures as they are and treats anything
// else as a failed read from the network.
func classifyCopyError(message string, err error) error {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}
	return domain.NetworkError(message, err)
}

// ChecksumReader hashes everything read through it
type ChecksumReader struct {
	reader io.Reader
	hasher hash.Hash
}

func newChecksumReader(r io.Reader, bar *progress.Bar) *ChecksumReader {
	hasher := sha256.New()
	var w io.Writer = hasher
	if bar != nil {
		w = io.MultiWriter(hasher, bar)
	}
	return &ChecksumReader{reader: io.TeeReader(r, w), hasher: hasher}
}

// Read implements io.Reader
func (r *ChecksumReader) Read(p []byte) (int, error) {
	return r.reader.Read(p)
}

// Checksum returns the hex SHA-256 of the bytes read so far
func (r *ChecksumReader) Checksum() string {
	return hex.EncodeToString(r.hasher.Sum(nil))
}

// errorType categorizes errors for metrics
func errorType(err error) string {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return strings.ToLower(de.Code)
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "unknown"
}

// fileType derives a metrics label from the saved file's extension
func fileType(location string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(location)), ".")
	if ext == "" || len(ext) > 8 {
		return "unknown"
	}
	return ext
}
