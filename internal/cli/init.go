// Package cli provides common CLI initialization utilities shared by
// cmd/dashboard and cmd/seed.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"insight/internal/config"
	"insight/internal/log"
	"insight/internal/source"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// sets it as the slog default.
func SetupLogger(cfg *config.Config) *log.Logger {
	logCfg := log.DefaultConfig()
	if cfg != nil {
		logCfg.Level = log.ParseLevel(cfg.LogLevel)
		if cfg.LogFormat != "" {
			logCfg.Format = cfg.LogFormat
		}
	}
	logger := log.New(logCfg)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on failure.
func LoadAndValidateConfig() (*config.Config, *log.Logger) {
	cfg, err := config.Load()
	if err != nil {
		SetupLogger(nil).Error("Failed to load configuration", log.FieldError, err)
		os.Exit(1)
	}
	logger := SetupLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// OpenSources opens every configured source. On error the ones already
// opened are closed again.
func OpenSources(cfg *config.Config, logger *log.Logger) ([]*source.SQLSource, error) {
	opts := cfg.SourceOptions()
	opts.Logger = logger

	var sources []*source.SQLSource
	for _, spec := range cfg.Sources() {
		src, err := source.Open(spec, opts)
		if err != nil {
			CloseSources(sources)
			return nil, err
		}
		logger.Info("Source configured",
			log.FieldSource, spec.Name,
			log.FieldDialect, string(src.Dialect()),
			"dsn", src.Describe())
		sources = append(sources, src)
	}
	return sources, nil
}

// CloseSources closes every source, ignoring errors.
func CloseSources(sources []*source.SQLSource) {
	for _, src := range sources {
		_ = src.Close()
	}
}

// GracefulShutdown runs shutdown on the first SIGINT or SIGTERM with a
// context bounded by timeout. The returned channel closes once shutdown
// has returned.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, shutdown func(context.Context) error) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := shutdown(ctx); err != nil {
			logger.Error("Shutdown error", log.FieldError, err)
		}
	}()

	return done
}
