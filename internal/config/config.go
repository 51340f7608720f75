package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/tandemflow/tandem/internal/store"
)

type (
	// Config holds configuration settings for the orchestrator
	Config struct {
		// API Server
		APIHost  string
		APIPort  int
		LogLevel string

		// Store & Archiving
		Store            store.Options
		ArchiveBucketURL string
		ArchivePrefix    string

		// Execution & Retry
		StepTimeout      int64
		RetryMaxRetries  int
		RetryInitBackoff int64

		// Housekeeping
		CredentialCacheTTL time.Duration
		HistoryLimit       int64
		ShutdownTimeout    time.Duration
	}
)

const (
	DefaultStepTimeout     int64 = 30_000 // ms
	DefaultShutdownTimeout       = 10 * time.Second

	DefaultAPIPort = 8080
	DefaultAPIHost = "0.0.0.0"
	MaxTCPPort     = 65535
	DefaultRedisDB = 0

	DefaultRedisEndpoint = "localhost:6379"
	DefaultRedisPrefix   = "tandem"

	DefaultRetryMaxRetries        = 3
	DefaultRetryInitBackoff int64 = 500 // ms

	DefaultCredentialCacheTTL       = 5 * time.Minute
	DefaultHistoryLimit       int64 = 1000

	MaxRetryMaxRetries        = 100
	MaxStepTimeout      int64 = 365 * 24 * 60 * 60_000 // 1 year in ms
	MaxRetryInitBackoff int64 = 24 * 60 * 60_000       // 1 day in ms
	MaxHistoryLimit     int64 = 1_000_000
	MaxCredentialTTLMs  int64 = 24 * 60 * 60_000
)

var (
	ErrInvalidAPIPort     = errors.New("invalid API port")
	ErrInvalidStepTimeout = errors.New("step timeout must be positive")
	ErrInvalidRetryInitBackoff = errors.New(
		"retry initial backoff must be positive",
	)
	ErrInvalidHistoryLimit = errors.New("history limit must be positive")
)

// NewDefaultConfig creates a configuration with sensible defaults for
// the server, store, and retry behavior
func NewDefaultConfig() *Config {
	return &Config{
		APIPort:  DefaultAPIPort,
		APIHost:  DefaultAPIHost,
		LogLevel: "info",
		Store: store.Options{
			Addr:     DefaultRedisEndpoint,
			Password: "",
			DB:       DefaultRedisDB,
			Prefix:   DefaultRedisPrefix,
		},
		StepTimeout:        DefaultStepTimeout,
		RetryMaxRetries:    DefaultRetryMaxRetries,
		RetryInitBackoff:   DefaultRetryInitBackoff,
		CredentialCacheTTL: DefaultCredentialCacheTTL,
		HistoryLimit:       DefaultHistoryLimit,
		ShutdownTimeout:    DefaultShutdownTimeout,
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed.
func (c *Config) LoadFromEnv() error {
	loadStoreFromEnv(&c.Store)

	if apiHost := os.Getenv("API_HOST"); apiHost != "" {
		c.APIHost = apiHost
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}
	if bucketURL := os.Getenv("ARCHIVE_BUCKET_URL"); bucketURL != "" {
		c.ArchiveBucketURL = bucketURL
	}
	if archivePrefix := os.Getenv("ARCHIVE_PREFIX"); archivePrefix != "" {
		c.ArchivePrefix = archivePrefix
	}

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}

	if err := loadEnvInt(
		"STEP_TIMEOUT", &c.StepTimeout, 0, MaxStepTimeout,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"RETRY_MAX_RETRIES", &c.RetryMaxRetries, -1, MaxRetryMaxRetries,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"RETRY_INITIAL_BACKOFF", &c.RetryInitBackoff, 0, MaxRetryInitBackoff,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"HISTORY_LIMIT", &c.HistoryLimit, 0, MaxHistoryLimit,
	); err != nil {
		return err
	}

	var ttlMs int64
	if err := loadEnvInt(
		"CREDENTIAL_CACHE_TTL", &ttlMs, 0, MaxCredentialTTLMs,
	); err != nil {
		return err
	}
	if ttlMs > 0 {
		c.CredentialCacheTTL = time.Duration(ttlMs) * time.Millisecond
	}

	return nil
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}

	if c.StepTimeout <= 0 {
		return ErrInvalidStepTimeout
	}

	if c.RetryInitBackoff <= 0 {
		return ErrInvalidRetryInitBackoff
	}

	if c.HistoryLimit <= 0 {
		return ErrInvalidHistoryLimit
	}

	return nil
}

func loadStoreFromEnv(s *store.Options) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		s.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		s.Password = password
	}
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			s.DB = db
		}
	}
	if prefix := os.Getenv("REDIS_PREFIX"); prefix != "" {
		s.Prefix = prefix
	}
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max). Returns an error if
// the value cannot be parsed or falls outside the valid range.
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}
