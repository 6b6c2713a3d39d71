package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

// Provider manages configuration lifecycle
type Provider struct {
	dir    string
	config *Config
	mu     sync.RWMutex
	loaded bool
}

// NewProvider returns a provider that looks for .env files in dir.
// An empty dir means the working directory.
func NewProvider(dir string) *Provider {
	if dir == "" {
		dir = "."
	}
	return &Provider{dir: dir}
}

// Load loads configuration from .env files and environment variables.
// Subsequent calls are no-ops.
func (p *Provider) Load() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded {
		return nil
	}

	if err := p.loadEnvFiles(); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}

	cfg := p.parseConfig()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	p.config = cfg
	p.loaded = true
	return nil
}

// Get returns the current configuration
func (p *Provider) Get() (*Config, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.loaded || p.config == nil {
		return nil, errors.New("configuration not loaded; call Load() first")
	}

	return p.config, nil
}

// IsLoaded returns whether configuration has been loaded
func (p *Provider) IsLoaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded
}

// loadEnvFiles loads .env files in order of precedence.
// Variables already present in the process environment win over .env,
// while .env.<ENVIRONMENT> and .env.local override .env.
func (p *Provider) loadEnvFiles() error {
	base := filepath.Join(p.dir, ".env")
	if _, err := os.Stat(base); err == nil {
		if err := godotenv.Load(base); err != nil {
			return fmt.Errorf("failed to load %s: %w", base, err)
		}
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = os.Getenv("ENV")
	}
	if env != "" {
		envFile := filepath.Join(p.dir, ".env."+env)
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Overload(envFile); err != nil {
				return fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}

	local := filepath.Join(p.dir, ".env.local")
	if _, err := os.Stat(local); err == nil {
		if err := godotenv.Overload(local); err != nil {
			return fmt.Errorf("failed to load %s: %w", local, err)
		}
	}

	return nil
}

// parseConfig parses configuration from environment variables
func (p *Provider) parseConfig() *Config {
	def := DefaultConfig()

	return &Config{
		// Core
		Environment: getEnv("ENVIRONMENT", def.Environment),
		ServiceName: getEnv("SERVICE_NAME", def.ServiceName),
		Version:     getEnv("SERVICE_VERSION", def.Version),

		Yandex: YandexConfig{
			APIURL: getEnv("YADISK_API_URL", def.Yandex.APIURL),
		},

		HTTP: HTTPConfig{
			Timeout:   getDuration("HTTP_TIMEOUT", def.HTTP.Timeout),
			UserAgent: getEnv("HTTP_USER_AGENT", def.HTTP.UserAgent),
		},

		Download: DownloadConfig{
			Threads:          getInt("DOWNLOAD_THREADS", def.Download.Threads),
			MinPartSize:      getInt64("DOWNLOAD_MIN_PART_SIZE", def.Download.MinPartSize),
			ProgressInterval: getDuration("PROGRESS_INTERVAL", def.Download.ProgressInterval),
		},

		Storage: StorageConfig{
			Timeout: getDuration("STORAGE_TIMEOUT", def.Storage.Timeout),
			S3: S3Config{
				Region:          getEnv("AWS_REGION", def.Storage.S3.Region),
				AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
				Endpoint:        getEnv("S3_ENDPOINT", ""),
			},
		},

		Observability: ObservabilityConfig{
			LogLevel:        getEnv("LOG_LEVEL", def.Observability.LogLevel),
			LogFormat:       getEnv("LOG_FORMAT", def.Observability.LogFormat),
			MetricsTextfile: getEnv("METRICS_TEXTFILE", ""),
		},
	}
}
