package config

import "time"

const (
	// DefaultAPIURL is the public resources download endpoint of Yandex Disk
	DefaultAPIURL = "https://cloud-api.yandex.net/v1/disk/public/resources/download"

	defaultUserAgent   = "yadisk-downloader/1.0"
	defaultMinPartSize = 1024 * 1024 // 1MiB
)

// DefaultHTTPConfig returns defaults for the HTTP client
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Timeout:   0,
		UserAgent: defaultUserAgent,
	}
}

// DefaultDownloadConfig returns defaults for transfers
func DefaultDownloadConfig() DownloadConfig {
	return DownloadConfig{
		Threads:          1,
		MinPartSize:      defaultMinPartSize,
		ProgressInterval: 500 * time.Millisecond,
	}
}

// DefaultStorageConfig returns defaults for the S3 sink
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Timeout: 5 * time.Minute,
		S3: S3Config{
			Region: "us-east-1",
		},
	}
}

// DefaultConfig returns a complete configuration with defaults.
// Tests start from it and override what they need.
func DefaultConfig() *Config {
	return &Config{
		Environment: "local",
		ServiceName: "yadisk",
		Version:     "dev",

		Yandex:   YandexConfig{APIURL: DefaultAPIURL},
		HTTP:     DefaultHTTPConfig(),
		Download: DefaultDownloadConfig(),
		Storage:  DefaultStorageConfig(),
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "text",
		},
	}
}

// applyDefaults fills values that depend on other values
func (c *Config) applyDefaults() {
	if c.IsProduction() && c.Observability.LogFormat == "text" {
		c.Observability.LogFormat = "json"
	}
	if c.Download.Threads < 1 {
		c.Download.Threads = 1
	}
}
