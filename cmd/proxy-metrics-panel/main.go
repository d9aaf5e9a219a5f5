package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"proxy-metrics-panel/internal/config"
	"proxy-metrics-panel/internal/dashboard"
	"proxy-metrics-panel/internal/panel"
	"proxy-metrics-panel/internal/source"
	"proxy-metrics-panel/internal/storage"
	"proxy-metrics-panel/internal/supervisor"
	"proxy-metrics-panel/internal/view"
	"proxy-metrics-panel/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(2)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	logConfig(logger, cfg)

	features := cfg.Features()
	deps := dashboard.Deps{}

	if features.Metrics {
		deps.Metrics = supervisor.NewMetrics()
	}

	var store storage.Store
	if features.Storage {
		store = openStore(cfg, logger)
		defer store.Close()
	}

	var cache source.Cache
	if features.Source {
		cache = openCache(cfg, logger)
		if cache != nil {
			defer cache.Close()
		}
		svc := source.NewService(store, cache, deps.Metrics, logger.With("component", "source"))
		deps.Source = source.NewAPI(svc, cfg.CORSAllowOrigin, logger.With("component", "source"))
	}

	var registry *panel.Registry
	if features.Panel {
		client, err := panel.NewClient(cfg.MetricsSourceURL, cfg.FetchTimeout)
		if err != nil {
			logger.Error("failed to create metrics source client", "err", err)
			os.Exit(2)
		}

		deps.EventBus = supervisor.NewEventBus(cfg.EventBuffer)
		defer deps.EventBus.Shutdown()

		deps.HealthChecker = supervisor.NewHealthChecker(cfg.MetricsSourceURL, cfg.HealthCheckInterval,
			cfg.HealthCheckTimeout, deps.Metrics, logger.With("component", "healthcheck"))
		defer deps.HealthChecker.Shutdown()

		registry = panel.NewRegistry(client, cfg.PanelMaxSessions, cfg.PanelIdleTTL,
			deps.EventBus, deps.Metrics, logger.With("component", "panel"))
		defer registry.Close()

		deps.Registry = registry
		deps.Renderer = view.NewRenderer()

		assets, err := web.Assets()
		if err != nil {
			logger.Warn("panel assets not available", "err", err)
		} else {
			deps.StaticFS = assets
		}
	}

	h := dashboard.NewHandler(cfg, deps, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting proxy-metrics-panel", "listen", cfg.ListenAddr, "mode", cfg.Mode)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")

	// Event streams never end on their own; drop subscribers first.
	if deps.EventBus != nil {
		deps.EventBus.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

// openStore opens the configured sample store, falling back to memory when
// SQLite cannot be used.
func openStore(cfg config.Config, logger *slog.Logger) storage.Store {
	if cfg.Storage == config.StorageSQLite {
		s, err := storage.NewSQLiteStore(cfg.StoragePath, cfg.StorageMaxRows, logger.With("component", "storage"))
		if err == nil {
			logger.Info("sample storage ready", "backend", "sqlite", "path", cfg.StoragePath)
			return s
		}
		logger.Warn("sqlite storage unavailable, using memory", "err", err)
	}
	logger.Info("sample storage ready", "backend", "memory", "max_rows", cfg.StorageMaxRows)
	return storage.NewMemoryStore(cfg.StorageMaxRows)
}

// openCache builds the snapshot cache. A Redis failure at startup falls
// back to the in-process cache.
func openCache(cfg config.Config, logger *slog.Logger) source.Cache {
	switch cfg.SourceCache {
	case config.CacheOff:
		return nil
	case config.CacheRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c, err := source.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SourceCacheTTL,
			logger.With("component", "cache"))
		if err == nil {
			return c
		}
		logger.Warn("redis cache unavailable, using memory", "addr", cfg.RedisAddr, "err", err)
	}
	return source.NewMemoryCache(cfg.SourceCacheTTL)
}

func newLogger(level string) *slog.Logger {
	lvl := new(slog.LevelVar)
	switch level {
	case "debug":
		lvl.Set(slog.LevelDebug)
	case "info":
		lvl.Set(slog.LevelInfo)
	case "warn", "warning":
		lvl.Set(slog.LevelWarn)
	case "error":
		lvl.Set(slog.LevelError)
	default:
		lvl.Set(slog.LevelInfo)
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(h)
}

func logConfig(logger *slog.Logger, cfg config.Config) {
	f := cfg.Features()
	logger.Info("configuration",
		"mode", string(cfg.Mode),
		"listen_addr", cfg.ListenAddr,
		"panel", f.Panel,
		"source", f.Source,
		"metrics_source_url", cfg.MetricsSourceURL,
		"fetch_timeout", cfg.FetchTimeout,
		"panel_idle_ttl", cfg.PanelIdleTTL,
		"panel_max_sessions", cfg.PanelMaxSessions,
		"event_buffer", cfg.EventBuffer,
		"storage", string(cfg.Storage),
		"storage_path", cfg.StoragePath,
		"storage_max_rows", cfg.StorageMaxRows,
		"source_cache", string(cfg.SourceCache),
		"source_cache_ttl", cfg.SourceCacheTTL,
		"redis_addr", cfg.RedisAddr,
		"health_check_interval", cfg.HealthCheckInterval,
		"cors_allow_origin", cfg.CORSAllowOrigin,
		"log_level", cfg.LogLevel,
	)
}
