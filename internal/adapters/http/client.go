package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Samratsinh-git/YandexDownloader/internal/config"
	"github.com/Samratsinh-git/YandexDownloader/internal/domain"
)

// errorBodyLimit caps how much of a failed response is kept for diagnostics.
const errorBodyLimit = 4096

// Client implements the domain.HTTPClient port
type Client struct {
	client *http.Client
	config config.HTTPConfig
}

// NewClient creates a new HTTP client with default configuration
func NewClient() *Client {
	return NewClientWithConfig(config.DefaultHTTPConfig())
}

// NewClientWithConfig creates a new HTTP client with custom configuration
func NewClientWithConfig(cfg config.HTTPConfig) *Client {
	return &Client{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
	}
}

// WithHTTPClient replaces the underlying *http.Client, keeping the
// configured timeout if the replacement has none.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc.Timeout == 0 {
		hc.Timeout = c.config.Timeout
	}
	c.client = hc
	return c
}

// Download implements domain.HTTPClient
func (c *Client) Download(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, map[string]string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, url, headers)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("GET request failed: %w", err)
	}

	wantPartial := req.Header.Get("Range") != ""
	if !acceptable(resp.StatusCode, wantPartial) {
		return nil, nil, statusError(resp)
	}

	return resp.Body, flattenHeaders(resp), nil
}

// Probe implements domain.HTTPClient. Servers that omit Accept-Ranges are
// asked for a single byte to find out whether they honour ranges anyway.
func (c *Client) Probe(ctx context.Context, url string) (domain.RangeInfo, error) {
	info := domain.RangeInfo{Size: -1}

	resp, err := c.head(ctx, url, nil)
	if err != nil {
		return info, err
	}
	resp.Body.Close()
	if !acceptable(resp.StatusCode, false) {
		return info, &domain.StatusError{StatusCode: resp.StatusCode}
	}

	info.Size = resp.ContentLength

	if ranges := resp.Header.Get("Accept-Ranges"); ranges != "" {
		info.AcceptRanges = strings.EqualFold(strings.TrimSpace(ranges), "bytes")
		return info, nil
	}

	resp, err = c.head(ctx, url, map[string]string{"Range": "bytes=0-0"})
	if err != nil {
		return info, err
	}
	resp.Body.Close()
	info.AcceptRanges = resp.StatusCode == http.StatusPartialContent

	return info, nil
}

func (c *Client) head(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodHead, url, headers)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HEAD request failed: %w", err)
	}
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, method, url string, headers map[string]string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	return req, nil
}

func acceptable(status int, wantPartial bool) bool {
	if wantPartial {
		return status == http.StatusPartialContent
	}
	return status >= 200 && status < 300
}

func statusError(resp *http.Response) error {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	return &domain.StatusError{StatusCode: resp.StatusCode, Body: body}
}

// flattenHeaders keeps the first value of every header under its canonical
// name. Content-Length is taken from the parsed response since the
// transport may strip the header.
func flattenHeaders(resp *http.Response) map[string]string {
	headers := make(map[string]string, len(resp.Header)+1)
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}
	if resp.ContentLength >= 0 {
		headers["Content-Length"] = strconv.FormatInt(resp.ContentLength, 10)
	}
	return headers
}
