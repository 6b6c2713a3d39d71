package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Core settings
	Environment string
	ServiceName string
	Version     string

	// Component configurations
	Yandex        YandexConfig
	HTTP          HTTPConfig
	Download      DownloadConfig
	Storage       StorageConfig
	Observability ObservabilityConfig
}

// YandexConfig holds the public resources API settings
type YandexConfig struct {
	APIURL string
}

// HTTPConfig holds HTTP client configuration
type HTTPConfig struct {
	Timeout   time.Duration // 0 disables the client timeout
	UserAgent string
}

// DownloadConfig holds transfer settings
type DownloadConfig struct {
	Threads          int
	MinPartSize      int64
	ProgressInterval time.Duration
}

// StorageConfig holds configuration for the s3:// sink
type StorageConfig struct {
	Timeout time.Duration
	S3      S3Config
}

// S3Config holds S3 client settings
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

// ObservabilityConfig holds logging and metrics settings
type ObservabilityConfig struct {
	LogLevel        string
	LogFormat       string
	MetricsTextfile string
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var errors []string

	if c.ServiceName == "" {
		errors = append(errors, "SERVICE_NAME is required")
	}

	if c.Yandex.APIURL == "" {
		errors = append(errors, "YADISK_API_URL is required")
	} else if u, err := url.Parse(c.Yandex.APIURL); err != nil || u.Host == "" ||
		(u.Scheme != "http" && u.Scheme != "https") {
		errors = append(errors, "YADISK_API_URL must be an absolute http(s) URL")
	}

	if c.HTTP.Timeout < 0 {
		errors = append(errors, "HTTP_TIMEOUT cannot be negative")
	}
	if c.Download.Threads < 1 {
		errors = append(errors, "DOWNLOAD_THREADS must be at least 1")
	}
	if c.Download.MinPartSize <= 0 {
		errors = append(errors, "DOWNLOAD_MIN_PART_SIZE must be positive")
	}
	if c.Download.ProgressInterval <= 0 {
		errors = append(errors, "PROGRESS_INTERVAL must be positive")
	}
	if c.Storage.Timeout < 0 {
		errors = append(errors, "STORAGE_TIMEOUT cannot be negative")
	}

	switch c.Observability.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("LOG_LEVEL %q is not one of debug, info, warn, error", c.Observability.LogLevel))
	}
	switch c.Observability.LogFormat {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("LOG_FORMAT %q is not one of text, json", c.Observability.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// IsLocal returns true if running in local/development environment
func (c *Config) IsLocal() bool {
	env := strings.ToLower(c.Environment)
	return env == "local" || env == "development" || env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "production" || env == "prod"
}
