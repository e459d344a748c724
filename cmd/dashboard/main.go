package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"

	"insight/internal/cache"
	"insight/internal/cli"
	"insight/internal/config"
	"insight/internal/core"
	"insight/internal/dashboard"
	apphttp "insight/internal/http"
	"insight/internal/layout"
	"insight/internal/log"
	"insight/internal/metrics"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig()
	if err := run(cfg, logger); err != nil {
		logger.Error("Dashboard exited", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// run serves until a shutdown signal. Every resource it opens is released
// before it returns.
func run(cfg *config.Config, logger *log.Logger) error {
	pageLayout := layout.Default()
	if cfg.LayoutFile != "" {
		var err error
		pageLayout, err = layout.Load(cfg.LayoutFile)
		if err != nil {
			return fmt.Errorf("load layout %s: %w", cfg.LayoutFile, err)
		}
	}

	// Open every configured source. Nothing is contacted yet.
	sources, err := cli.OpenSources(cfg, logger)
	if err != nil {
		return fmt.Errorf("open sources: %w", err)
	}
	defer cli.CloseSources(sources)
	loaders := make([]dashboard.Loader, 0, len(sources))
	for _, src := range sources {
		loaders = append(loaders, src)
	}

	m := metrics.New()
	memo, stopCache := newMemo(cfg, logger)
	defer stopCache()
	memo.OnLookup(m.ObserveCacheLookup)

	svc := dashboard.NewService(dashboard.Options{
		Layout:  pageLayout,
		Sources: loaders,
		Memo:    memo,
		Metrics: m,
		Logger:  logger,
	})

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{Dashboard: svc, Metrics: m, Logger: logger})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	done := cli.GracefulShutdown(logger, 30*time.Second, srv.Shutdown)

	logger.Info("Starting insight dashboard",
		"port", cfg.Port,
		"sources", len(sources),
		"cache_backend", cfg.CacheBackend,
		"sections", len(pageLayout.Sections))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_ = srv.Shutdown(context.Background())
		return fmt.Errorf("listen on port %s: %w", cfg.Port, err)
	}

	<-done
	return nil
}

// newMemo builds the table memo for the configured backend. A zero CACHE_TTL
// disables memoization. The returned func releases the backend.
func newMemo(cfg *config.Config, logger *log.Logger) (*cache.Memo[core.Table], func()) {
	if cfg.CacheTTL == 0 {
		logger.Info("Table cache disabled", "cache_ttl", cfg.CacheTTL.String())
		return cache.NewMemo[core.Table](nil), func() {}
	}

	switch cfg.CacheBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			// Lookups fall through to the sources until Redis comes back.
			logger.Warn("Redis not reachable, serving uncached until it is", log.FieldError, err, "addr", cfg.RedisAddr)
		}
		rc := cache.NewRedisCache[core.Table](client, "insight:table:", cfg.CacheTTL, logger)
		return cache.NewMemo[core.Table](rc), func() { _ = client.Close() }
	default:
		lru := cache.NewLRUCache[core.Table](cfg.CacheSize, cfg.CacheTTL)
		manager := cache.NewManager(logger)
		manager.Register(lru)
		manager.StartCleanup(cfg.CacheTTL)
		return cache.NewMemo[core.Table](lru), manager.Stop
	}
}
