package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Mode controls which features are enabled.
// - panel: dashboard panels only, metrics are fetched from METRICS_SOURCE_URL
// - source: reference metrics source only (ingest + data endpoint + storage)
// - standalone (default): panel + source in one process
type Mode string

const (
	ModePanel      Mode = "panel"
	ModeSource     Mode = "source"
	ModeStandalone Mode = "standalone" // default
)

// StorageType controls the sample storage backend.
type StorageType string

const (
	StorageSQLite StorageType = "sqlite"
	StorageMemory StorageType = "memory"
)

// CacheType controls the snapshot cache used by the metrics source.
type CacheType string

const (
	CacheMemory CacheType = "memory"
	CacheRedis  CacheType = "redis"
	CacheOff    CacheType = "off"
)

// Features derived from MODE - centralized feature gating.
type Features struct {
	Panel   bool
	Source  bool
	Storage bool
	Metrics bool
}

// Config contains all runtime configuration.
type Config struct {
	// Core
	Mode       Mode
	ListenAddr string
	LogLevel   string

	// Panel
	MetricsSourceURL string
	FetchTimeout     time.Duration // 0 means no timeout
	PanelIdleTTL     time.Duration
	PanelMaxSessions int
	EventBuffer      int

	// Storage (source only)
	Storage        StorageType
	StoragePath    string
	StorageMaxRows int

	// Source cache
	SourceCache    CacheType
	SourceCacheTTL time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	// Source health probing
	HealthCheckInterval time.Duration
	HealthCheckTimeout  time.Duration

	// HTTP
	CORSAllowOrigin string
}

// Features returns the feature flags derived from the current MODE.
func (c *Config) Features() Features {
	f := Features{Metrics: true}
	switch c.Mode {
	case ModePanel:
		f.Panel = true
	case ModeSource:
		f.Source = true
		f.Storage = true
	default:
		f.Panel = true
		f.Source = true
		f.Storage = true
	}
	return f
}

// Load parses env vars and returns a validated Config.
func Load() (Config, error) {
	cfg := Config{
		// Core
		Mode:       Mode(getEnvString("MODE", string(ModeStandalone))),
		ListenAddr: getEnvString("LISTEN_ADDR", ":8085"),
		LogLevel:   getEnvString("LOG_LEVEL", "info"),

		// Panel
		MetricsSourceURL: getEnvString("METRICS_SOURCE_URL", "http://127.0.0.1:8085"),
		FetchTimeout:     getEnvDuration("FETCH_TIMEOUT", 0),
		PanelIdleTTL:     getEnvDuration("PANEL_IDLE_TTL", 15*time.Minute),
		PanelMaxSessions: getEnvInt("PANEL_MAX_SESSIONS", 1000),
		EventBuffer:      getEnvInt("EVENT_BUFFER", 256),

		// Storage
		Storage:        StorageType(getEnvString("STORAGE", string(StorageSQLite))),
		StoragePath:    getEnvString("STORAGE_PATH", "/data/proxy-metrics.sqlite"),
		StorageMaxRows: getEnvInt("STORAGE_MAX_ROWS", 200000),

		// Source cache
		SourceCache:    CacheType(getEnvString("SOURCE_CACHE", string(CacheMemory))),
		SourceCacheTTL: getEnvDuration("SOURCE_CACHE_TTL", 2*time.Second),
		RedisAddr:      getEnvString("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:  getEnvString("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),

		// Health
		HealthCheckInterval: getEnvDuration("HEALTH_CHECK_INTERVAL", 30*time.Second),
		HealthCheckTimeout:  getEnvDuration("HEALTH_CHECK_TIMEOUT", 5*time.Second),

		// HTTP
		CORSAllowOrigin: getEnvString("CORS_ALLOW_ORIGIN", ""),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks configuration constraints.
func (c Config) Validate() error {
	switch c.Mode {
	case ModePanel, ModeSource, ModeStandalone:
		// ok
	default:
		return fmt.Errorf("invalid MODE: %q (must be panel|source|standalone)", c.Mode)
	}

	if c.ListenAddr == "" {
		return fmt.Errorf("LISTEN_ADDR must not be empty")
	}

	f := c.Features()

	if f.Panel {
		u, err := url.Parse(c.MetricsSourceURL)
		if err != nil {
			return fmt.Errorf("invalid METRICS_SOURCE_URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("METRICS_SOURCE_URL must be http or https, got %q", c.MetricsSourceURL)
		}
		if c.FetchTimeout < 0 {
			return fmt.Errorf("FETCH_TIMEOUT must be >= 0")
		}
		if c.PanelIdleTTL <= 0 {
			return fmt.Errorf("PANEL_IDLE_TTL must be > 0")
		}
		if c.PanelMaxSessions < 1 {
			return fmt.Errorf("PANEL_MAX_SESSIONS must be >= 1")
		}
		if c.EventBuffer < 1 {
			return fmt.Errorf("EVENT_BUFFER must be >= 1")
		}
	}

	if f.Storage {
		switch c.Storage {
		case StorageSQLite, StorageMemory:
			// ok
		default:
			return fmt.Errorf("invalid STORAGE: %q (must be sqlite|memory)", c.Storage)
		}
		if c.StorageMaxRows < 100 {
			return fmt.Errorf("STORAGE_MAX_ROWS must be >= 100")
		}
	}

	if f.Source {
		switch c.SourceCache {
		case CacheMemory, CacheRedis, CacheOff:
			// ok
		default:
			return fmt.Errorf("invalid SOURCE_CACHE: %q (must be memory|redis|off)", c.SourceCache)
		}
		if c.SourceCache != CacheOff && c.SourceCacheTTL <= 0 {
			return fmt.Errorf("SOURCE_CACHE_TTL must be > 0")
		}
		if c.SourceCache == CacheRedis && c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR must be set when SOURCE_CACHE=redis")
		}
	}

	if c.HealthCheckInterval <= 0 {
		return fmt.Errorf("HEALTH_CHECK_INTERVAL must be > 0")
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("HEALTH_CHECK_TIMEOUT must be > 0")
	}

	return nil
}

// Helper functions for parsing environment variables

func getEnvString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}
