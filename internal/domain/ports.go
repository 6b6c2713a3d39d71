package domain

import (
	"context"
	"io"
)

// HTTPClient defines the interface for outbound HTTP operations
type HTTPClient interface {
	// Download issues a GET and returns the body and response headers.
	// A Range header makes 206 the only accepted status.
	Download(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, map[string]string, error)

	// Probe issues a HEAD to learn the size and range support of url.
	Probe(ctx context.Context, url string) (RangeInfo, error)
}

// Resolver turns a public share link into a direct download URL.
type Resolver interface {
	Resolve(ctx context.Context, link string) (*Resource, error)
}

// Sink creates the single object a fetch writes to.
type Sink interface {
	// Create prepares an object for the given file name. Nothing is
	// visible at the final location until Commit succeeds.
	Create(ctx context.Context, name string) (Object, error)
}

// Object receives the downloaded bytes, sequentially or at offsets.
// ReadAt exposes what has been written so far.
type Object interface {
	io.Writer
	io.WriterAt
	io.ReaderAt

	// Commit publishes the object and returns its final location.
	Commit(ctx context.Context) (string, error)

	// Abort discards everything written. Safe to call after Commit.
	Abort() error
}
