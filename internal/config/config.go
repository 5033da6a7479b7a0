// Package config provides configuration loading from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults
const (
	DefaultPageSizeValue  = 20
	DefaultChunkSizeValue = 32 << 10
)

// Config holds all configuration for the CLI and the MCP server.
type Config struct {
	APIEndpoint  string // XEMWAY_API_ENDPOINT
	AuthEndpoint string // XEMWAY_AUTH_ENDPOINT
	AuthUsername string // XEMWAY_AUTH_USERNAME
	AuthPassword string // XEMWAY_AUTH_PASSWORD

	HTTPClientTimeout time.Duration // HTTP_CLIENT_TIMEOUT_MS, default 30000ms (30s)
	FetchTimeout      time.Duration // FETCH_TIMEOUT_MS, default 15000ms (15s)
	DownloadTimeout   time.Duration // DOWNLOAD_TIMEOUT_MS, default 600000ms (10m)

	PageSize          int // PAGE_SIZE, default 20
	PageCacheMaxItems int // PAGE_CACHE_MAX_ITEMS, default 0 (disabled)
	DownloadChunkSize int // DOWNLOAD_CHUNK_SIZE, default 32768

	// Logging configuration
	LogLevel      string // LOG_LEVEL, default "info"
	LogFormat     string // LOG_FORMAT, default "text"
	LogFile       string // LOG_FILE, default "" (stderr only)
	LogMaxSizeMB  int    // LOG_MAX_SIZE_MB, default 10
	LogMaxBackups int    // LOG_MAX_BACKUPS, default 5
	LogMaxAgeDays int    // LOG_MAX_AGE_DAYS, default 28
	LogCompress   bool   // LOG_COMPRESS, default true
}

// LoadDotEnv loads variables from the given .env files (".env" when none are
// given) into the process environment. Variables already set are kept, and
// missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			var pathErr *os.PathError
			if errors.As(err, &pathErr) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		APIEndpoint:  getEnvString("XEMWAY_API_ENDPOINT", ""),
		AuthEndpoint: getEnvString("XEMWAY_AUTH_ENDPOINT", ""),
		AuthUsername: getEnvString("XEMWAY_AUTH_USERNAME", ""),
		AuthPassword: getEnvString("XEMWAY_AUTH_PASSWORD", ""),

		HTTPClientTimeout: getEnvDurationMs("HTTP_CLIENT_TIMEOUT_MS", 30000),
		FetchTimeout:      getEnvDurationMs("FETCH_TIMEOUT_MS", 15000),
		DownloadTimeout:   getEnvDurationMs("DOWNLOAD_TIMEOUT_MS", 600000),

		PageSize:          getEnvInt("PAGE_SIZE", DefaultPageSizeValue),
		PageCacheMaxItems: getEnvInt("PAGE_CACHE_MAX_ITEMS", 0),
		DownloadChunkSize: getEnvInt("DOWNLOAD_CHUNK_SIZE", DefaultChunkSizeValue),

		LogLevel:      getEnvString("LOG_LEVEL", "info"),
		LogFormat:     getEnvString("LOG_FORMAT", "text"),
		LogFile:       getEnvString("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
		LogCompress:   getEnvBool("LOG_COMPRESS", true),
	}
}

// Validate reports the settings required to reach the service that are
// missing or unusable.
func (c *Config) Validate() error {
	var errs []error
	if c.APIEndpoint == "" {
		errs = append(errs, errors.New("XEMWAY_API_ENDPOINT is not set"))
	}
	if c.AuthEndpoint == "" {
		errs = append(errs, errors.New("XEMWAY_AUTH_ENDPOINT is not set"))
	}
	if c.AuthUsername == "" || c.AuthPassword == "" {
		errs = append(errs, errors.New("XEMWAY_AUTH_USERNAME and XEMWAY_AUTH_PASSWORD must be set"))
	}
	if c.PageSize < 1 {
		errs = append(errs, fmt.Errorf("PAGE_SIZE must be positive, got %d", c.PageSize))
	}
	if c.DownloadChunkSize < 1 {
		errs = append(errs, fmt.Errorf("DOWNLOAD_CHUNK_SIZE must be positive, got %d", c.DownloadChunkSize))
	}
	return errors.Join(errs...)
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		switch v {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultVal
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDurationMs(key string, defaultMs int) time.Duration {
	ms := getEnvInt(key, defaultMs)
	return time.Duration(ms) * time.Millisecond
}
