package yandex

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/Samratsinh-git/YandexDownloader/internal/adapters/http"
	"github.com/Samratsinh-git/YandexDownloader/internal/domain"
	"github.com/Samratsinh-git/YandexDownloader/internal/observability/metrics"
	obmocks "github.com/Samratsinh-git/YandexDownloader/internal/observability/mocks"
	"github.com/Samratsinh-git/YandexDownloader/mocks"
)

const (
	shareLink        = "https://disk.yandex.ru/d/abc123"
	productionAPIURL = "https://cloud-api.yandex.net/v1/disk/public/resources/download"
)

func newAPI(t *testing.T, handler http.HandlerFunc) (*Resolver, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	r := NewResolver(srv.URL+"/v1/disk/public/resources/download", httpadapter.NewClient(),
		obmocks.NewPermissiveLogger(), metrics.Noop{})
	return r, &calls
}

func TestResolver_Resolve(t *testing.T) {
	var gotKey, gotPath string
	r, calls := newAPI(t, func(w http.ResponseWriter, req *http.Request) {
		gotKey = req.URL.Query().Get("public_key")
		gotPath = req.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"href":"https://downloader.disk.yandex.ru/disk/abc?filename=report%202024.zip&disposition=attachment","method":"GET","templated":false}`)
	})

	res, err := r.Resolve(context.Background(), shareLink)
	require.NoError(t, err)

	assert.Equal(t, 1, *calls)
	assert.Equal(t, shareLink, gotKey)
	assert.Equal(t, "/v1/disk/public/resources/download", gotPath)
	assert.Equal(t, "report 2024.zip", res.FileName)
	assert.True(t, strings.HasPrefix(res.Href, "https://downloader.disk.yandex.ru/disk/abc?"))
}

func TestResolver_InvalidLinks(t *testing.T) {
	tests := []struct {
		name string
		link string
	}{
		{name: "empty", link: ""},
		{name: "blank", link: "   "},
		{name: "ftp scheme", link: "ftp://disk.yandex.ru/d/abc"},
		{name: "no scheme", link: "disk.yandex.ru/d/abc"},
		{name: "no host", link: "https:///d/abc"},
		{name: "unparsable", link: "https://disk.yandex.ru/%zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, calls := newAPI(t, func(w http.ResponseWriter, _ *http.Request) {
				t.Error("API must not be called for an invalid link")
			})

			res, err := r.Resolve(context.Background(), tt.link)

			assert.Nil(t, res)
			assert.ErrorIs(t, err, domain.ErrInvalidLink)
			assert.Equal(t, 0, *calls)
		})
	}
}

func TestResolver_APIErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   *domain.DomainError
		wantInMsg string
	}{
		{
			name:      "expired link",
			status:    http.StatusNotFound,
			body:      `{"message":"Не удалось найти запрошенный ресурс.","description":"Resource not found.","error":"DiskNotFoundError"}`,
			wantErr:   domain.ErrInvalidLink,
			wantInMsg: "DiskNotFoundError (Resource not found.)",
		},
		{
			name:      "malformed key",
			status:    http.StatusBadRequest,
			body:      `{"error":"FieldValidationError"}`,
			wantErr:   domain.ErrInvalidLink,
			wantInMsg: "FieldValidationError",
		},
		{
			name:      "server failure",
			status:    http.StatusServiceUnavailable,
			body:      "upstream down",
			wantErr:   domain.ErrNetwork,
			wantInMsg: "returned 503",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newAPI(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			res, err := r.Resolve(context.Background(), shareLink)

			assert.Nil(t, res)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.wantInMsg)
		})
	}
}

func TestResolver_BadMetadata(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "<html>oops</html>"},
		{name: "missing href", body: `{"method":"GET"}`},
		{name: "empty href", body: `{"href":""}`},
		{name: "relative href", body: `{"href":"/disk/abc"}`},
		{name: "non-http href", body: `{"href":"file:///etc/passwd"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newAPI(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})

			res, err := r.Resolve(context.Background(), shareLink)

			assert.Nil(t, res)
			assert.ErrorIs(t, err, domain.ErrInvalidLink)
		})
	}
}

func TestResolver_TransportFailure(t *testing.T) {
	httpClient := &mocks.MockHTTPClient{}
	logger := &obmocks.MockLogger{}
	m := &obmocks.MockMetrics{}

	logger.On("Debug", mock.Anything, "Resolving share link", mock.Anything).Return()
	logger.On("Error", mock.Anything, "Failed to resolve share link", mock.Anything, mock.Anything).Return()

	m.On("StartOperation", "resolve").Return()
	m.On("EndOperation", "resolve").Return()
	m.On("RecordDuration", "resolve", mock.AnythingOfType("float64")).Return()
	m.On("RecordError", "resolve", "network").Return()

	dialErr := errors.New("dial tcp: connection refused")
	httpClient.On("Download", mock.Anything, mock.MatchedBy(func(u string) bool {
		return strings.Contains(u, "public_key="+url.QueryEscape(shareLink))
	}), mock.Anything).Return(nil, nil, dialErr)

	r := NewResolver(productionAPIURL, httpClient, logger, m)
	res, err := r.Resolve(context.Background(), shareLink)

	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.ErrorIs(t, err, dialErr)

	httpClient.AssertExpectations(t)
	logger.AssertExpectations(t)
	m.AssertExpectations(t)
}

func TestFileName(t *testing.T) {
	mustURL := func(s string) *url.URL {
		u, err := url.Parse(s)
		require.NoError(t, err)
		return u
	}

	tests := []struct {
		name string
		href string
		link string
		want string
	}{
		{
			name: "filename parameter",
			href: "https://downloader.disk.yandex.ru/disk/x?filename=photo.jpg",
			link: shareLink,
			want: "photo.jpg",
		},
		{
			name: "filename with directories is reduced",
			href: "https://downloader.disk.yandex.ru/disk/x?filename=..%2F..%2Fetc%2Fpasswd",
			link: shareLink,
			want: "passwd",
		},
		{
			name: "windows separators",
			href: "https://downloader.disk.yandex.ru/disk/x?filename=a%5Cb%5Cc.txt",
			link: shareLink,
			want: "c.txt",
		},
		{
			name: "falls back to link segment",
			href: "https://downloader.disk.yandex.ru/disk/x",
			link: "https://disk.yandex.ru/i/archive.tar",
			want: "archive.tar",
		},
		{
			name: "falls back to default",
			href: "https://downloader.disk.yandex.ru/disk/x?filename=..",
			link: "https://disk.yandex.ru/",
			want: DefaultFileName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(mustURL(tt.href), tt.link))
		})
	}
}
