package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Samratsinh-git/YandexDownloader/internal/observability/types"
)

var _ types.Metrics = (*PrometheusMetrics)(nil)
var _ types.Metrics = Noop{}

func TestPrometheusMetrics_Counters(t *testing.T) {
	m := New("yadisk-test")

	m.RecordSuccess("fetch")
	m.RecordSuccess("fetch")
	m.RecordError("fetch", "invalid_link")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.processedTotal.WithLabelValues("success", "fetch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.processedTotal.WithLabelValues("error", "fetch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorsTotal.WithLabelValues("invalid_link", "fetch")))
}

func TestPrometheusMetrics_InProgress(t *testing.T) {
	m := New("yadisk")

	m.StartOperation("fetch")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inProgress.WithLabelValues("fetch")))
	m.EndOperation("fetch")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inProgress.WithLabelValues("fetch")))
}

func TestPrometheusMetrics_SeparateRegistries(t *testing.T) {
	// Two instances with the same name must not collide.
	assert.NotPanics(t, func() {
		New("yadisk")
		New("yadisk")
	})
}

func TestPrometheusMetrics_Flush(t *testing.T) {
	m := New("yadisk-cli")
	m.RecordDuration("fetch", 1.5)
	m.RecordFileSize("zip", 2048)
	m.RecordSuccess("fetch")

	path := filepath.Join(t.TempDir(), "yadisk.prom")
	require.NoError(t, m.Flush(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.True(t, strings.Contains(text, "yadisk_cli_processed_total"))
	assert.True(t, strings.Contains(text, "yadisk_cli_duration_seconds_count"))
	assert.True(t, strings.Contains(text, `yadisk_cli_file_size_bytes_count{file_type="zip"} 1`))
}

func TestPrometheusMetrics_FlushEmptyPath(t *testing.T) {
	assert.NoError(t, New("yadisk").Flush(""))
}
