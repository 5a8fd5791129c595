// Package config holds the runtime settings of teetimed.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Store backends.
const (
	StoreDataAPI  = "dataapi"
	StoreDatabase = "database"
)

// Lock backends.
const (
	LockNone     = "none"
	LockRedis    = "redis"
	LockPostgres = "postgres"
)

const (
	defaultListenAddr       = ":8080"
	defaultAllowedOrigin    = "http://localhost:8000"
	defaultStoreBackend     = StoreDataAPI
	defaultLockBackend      = LockNone
	defaultDatabaseURL      = "sqlite:///tmp/teetime.db"
	defaultDataAPIKeyHeader = "X-Api-Key"
	defaultReadTimeout      = 10 * time.Second
	defaultWriteTimeout     = 30 * time.Second
	defaultRatePerSecond    = 20
	defaultBurst            = 10
	defaultLockTTL          = 30 * time.Second
	defaultTimezone         = "Asia/Seoul"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config aggregates runtime settings for the booking server.
type Config struct {
	ListenAddr     string
	AllowedOrigins []string
	Development    bool
	Timezone       string

	StoreBackend         string
	DataAPIURL           string
	DataAPIKey           string
	DataAPIKeyHeader     string
	DataAPIReadTimeout   time.Duration
	DataAPIWriteTimeout  time.Duration
	DataAPIRatePerSecond float64
	DataAPIBurst         int
	DatabaseURL          string
	AutoMigrate          bool

	LockBackend     string
	LockTTL         time.Duration
	LockDatabaseURL string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int

	FirebaseCredentialsFile string
	NotifyTopicPrefix       string

	location *time.Location
}

// Validate fills defaults and rejects incomplete settings.
func (cfg *Config) Validate() error {
	cfg.ListenAddr = defaultIfEmpty(cfg.ListenAddr, defaultListenAddr)
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{defaultAllowedOrigin}
	}
	cfg.Timezone = defaultIfEmpty(cfg.Timezone, defaultTimezone)
	cfg.StoreBackend = strings.ToLower(defaultIfEmpty(cfg.StoreBackend, defaultStoreBackend))
	cfg.LockBackend = strings.ToLower(defaultIfEmpty(cfg.LockBackend, defaultLockBackend))
	cfg.DataAPIKeyHeader = defaultIfEmpty(cfg.DataAPIKeyHeader, defaultDataAPIKeyHeader)
	if cfg.DataAPIReadTimeout <= 0 {
		cfg.DataAPIReadTimeout = defaultReadTimeout
	}
	if cfg.DataAPIWriteTimeout <= 0 {
		cfg.DataAPIWriteTimeout = defaultWriteTimeout
	}
	if cfg.DataAPIRatePerSecond <= 0 {
		cfg.DataAPIRatePerSecond = defaultRatePerSecond
	}
	if cfg.DataAPIBurst <= 0 {
		cfg.DataAPIBurst = defaultBurst
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, cfg.Timezone, err)
	}
	cfg.location = location

	switch cfg.StoreBackend {
	case StoreDataAPI:
		if strings.TrimSpace(cfg.DataAPIURL) == "" {
			return fmt.Errorf("%w: data api url is required", ErrInvalidConfig)
		}
	case StoreDatabase:
		cfg.DatabaseURL = defaultIfEmpty(cfg.DatabaseURL, defaultDatabaseURL)
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, cfg.StoreBackend)
	}

	switch cfg.LockBackend {
	case LockNone:
	case LockRedis:
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return fmt.Errorf("%w: redis addr is required for the redis lock", ErrInvalidConfig)
		}
	case LockPostgres:
		cfg.LockDatabaseURL = defaultIfEmpty(cfg.LockDatabaseURL, cfg.DatabaseURL)
		if !strings.HasPrefix(cfg.LockDatabaseURL, "postgres://") && !strings.HasPrefix(cfg.LockDatabaseURL, "postgresql://") {
			return fmt.Errorf("%w: the postgres lock needs a postgres url", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown lock backend %q", ErrInvalidConfig, cfg.LockBackend)
	}
	return nil
}

// Location is the branch wall clock zone. Valid after Validate.
func (cfg *Config) Location() *time.Location {
	if cfg.location == nil {
		return time.UTC
	}
	return cfg.location
}

// DataAPIHeaders returns the headers sent with every data API call.
func (cfg *Config) DataAPIHeaders() map[string]string {
	if strings.TrimSpace(cfg.DataAPIKey) == "" {
		return map[string]string{}
	}
	return map[string]string{cfg.DataAPIKeyHeader: cfg.DataAPIKey}
}

// NotificationsEnabled reports whether a Firebase service account is configured.
func (cfg *Config) NotificationsEnabled() bool {
	return strings.TrimSpace(cfg.FirebaseCredentialsFile) != ""
}

func defaultIfEmpty(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// ParseAllowedOrigins splits comma-delimited origins into a slice.
func ParseAllowedOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	return normalized
}
