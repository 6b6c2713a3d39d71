// Package yandex resolves Yandex Disk public share links into direct
// download URLs using the public resources REST API.
package yandex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/Samratsinh-git/YandexDownloader/internal/domain"
	"github.com/Samratsinh-git/YandexDownloader/internal/observability/types"
)

// maxMetadataSize bounds the metadata response; a real one is a few hundred bytes.
const maxMetadataSize = 1 << 20

// DefaultFileName is used when neither the href nor the link name the file.
const DefaultFileName = "unknown_file"

// linkResponse is the body of GET /v1/disk/public/resources/download
type linkResponse struct {
	Href      string `json:"href"`
	Method    string `json:"method"`
	Templated bool   `json:"templated"`
}

// apiError is the error body returned by the Disk API
type apiError struct {
	Message     string `json:"message"`
	Description string `json:"description"`
	Error       string `json:"error"`
}

// Resolver implements domain.Resolver
type Resolver struct {
	apiURL     string
	httpClient domain.HTTPClient
	logger     types.Logger
	metrics    types.Metrics
}

// NewResolver creates a resolver calling apiURL
func NewResolver(apiURL string, httpClient domain.HTTPClient, logger types.Logger, metrics types.Metrics) *Resolver {
	return &Resolver{
		apiURL:     apiURL,
		httpClient: httpClient,
		logger:     logger,
		metrics:    metrics,
	}
}

// Resolve asks the API for the direct download URL of link.
func (r *Resolver) Resolve(ctx context.Context, link string) (*domain.Resource, error) {
	r.metrics.StartOperation("resolve")
	defer r.metrics.EndOperation("resolve")
	startTime := time.Now()
	defer func() {
		r.metrics.RecordDuration("resolve", time.Since(startTime).Seconds())
	}()

	if err := ValidateLink(link); err != nil {
		r.metrics.RecordError("resolve", "validation_error")
		return nil, err
	}

	endpoint, err := r.endpoint(link)
	if err != nil {
		r.metrics.RecordError("resolve", "validation_error")
		return nil, err
	}

	r.logger.Debug(ctx, "Resolving share link", types.Fields{"link": link})

	body, _, err := r.httpClient.Download(ctx, endpoint, map[string]string{"Accept": "application/json"})
	if err != nil {
		resolveErr := r.classify(err)
		r.metrics.RecordError("resolve", errorType(resolveErr))
		r.logger.Error(ctx, "Failed to resolve share link", err, types.Fields{"link": link})
		return nil, resolveErr
	}
	defer body.Close()

	var resp linkResponse
	if err := json.NewDecoder(io.LimitReader(body, maxMetadataSize)).Decode(&resp); err != nil {
		r.metrics.RecordError("resolve", "invalid_response")
		return nil, domain.InvalidLinkError("metadata response is not valid JSON", err)
	}

	href, err := validateHref(resp.Href)
	if err != nil {
		r.metrics.RecordError("resolve", "invalid_response")
		return nil, err
	}

	resource := &domain.Resource{
		Href:     href.String(),
		FileName: FileName(href, link),
	}

	r.metrics.RecordSuccess("resolve")
	r.logger.Info(ctx, "Share link resolved", types.Fields{
		"link":      link,
		"file_name": resource.FileName,
		"host":      href.Host,
	})

	return resource, nil
}

func (r *Resolver) endpoint(link string) (string, error) {
	u, err := url.Parse(r.apiURL)
	if err != nil {
		return "", fmt.Errorf("invalid API URL %q: %w", r.apiURL, err)
	}
	q := u.Query()
	q.Set("public_key", link)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// classify maps adapter errors onto the domain taxonomy: the API answers
// 4xx for unknown, expired or malformed keys; everything else is the network.
func (r *Resolver) classify(err error) error {
	var statusErr *domain.StatusError
	if errors.As(err, &statusErr) {
		msg := fmt.Sprintf("metadata endpoint returned %d", statusErr.StatusCode)
		if detail := describeAPIError(statusErr.Body); detail != "" {
			msg += ": " + detail
		}
		if statusErr.IsClientError() {
			return domain.InvalidLinkError(msg, statusErr)
		}
		return domain.NetworkError(msg, statusErr)
	}
	return domain.NetworkError("metadata request failed", err)
}

func describeAPIError(body []byte) string {
	var apiErr apiError
	if len(body) == 0 || json.Unmarshal(body, &apiErr) != nil {
		return ""
	}
	switch {
	case apiErr.Error != "" && apiErr.Description != "":
		return apiErr.Error + " (" + apiErr.Description + ")"
	case apiErr.Error != "":
		return apiErr.Error
	default:
		return apiErr.Message
	}
}

func errorType(err error) string {
	if errors.Is(err, domain.ErrInvalidLink) {
		return "invalid_link"
	}
	return "network"
}

// ValidateLink checks that link is an absolute http(s) URL with a host.
func ValidateLink(link string) error {
	if strings.TrimSpace(link) == "" {
		return domain.InvalidLinkError("share link is empty", nil)
	}

	u, err := url.Parse(link)
	if err != nil {
		return domain.InvalidLinkError("failed to parse share link", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return domain.InvalidLinkError("only HTTP and HTTPS share links are supported", nil)
	}
	if u.Host == "" {
		return domain.InvalidLinkError("share link has no host", nil)
	}
	return nil
}

func validateHref(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, domain.InvalidLinkError("metadata response has no download href", nil)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, domain.InvalidLinkError("download href is malformed", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, domain.InvalidLinkError(fmt.Sprintf("download href %q is not an absolute http(s) URL", raw), nil)
	}
	return u, nil
}

// FileName picks the name to save under: the href's filename parameter,
// then the last segment of the share link, then DefaultFileName.
func FileName(href *url.URL, link string) string {
	if name := SanitizeFileName(href.Query().Get("filename")); name != "" {
		return name
	}
	if u, err := url.Parse(link); err == nil {
		if name := SanitizeFileName(path.Base(u.Path)); name != "" {
			return name
		}
	}
	return DefaultFileName
}

// SanitizeFileName reduces name to a single safe path element.
// It returns "" if nothing usable remains.
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	switch name {
	case "", ".", "..", "/":
		return ""
	}
	return name
}
