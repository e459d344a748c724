package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"insight/internal/source"
)

type Config struct {
	// HTTP Server
	Port      string `env:"PORT" envDefault:"8081"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Sources
	CRMDatabaseURL string `env:"CRM_DATABASE_URL"`
	CRMTable       string `env:"CRM_TABLE"`
	CRMTablePrefix string `env:"CRM_TABLE_PREFIX" envDefault:"crm_"`

	ERPDatabaseURL string `env:"ERP_DATABASE_URL"`
	ERPTable       string `env:"ERP_TABLE"`
	ERPTablePrefix string `env:"ERP_TABLE_PREFIX" envDefault:"erp_"`

	WarehouseURL   string `env:"DATA_WAREHOUSE_URL"`
	WarehouseTable string `env:"WAREHOUSE_TABLE" envDefault:"crm_erp"`

	MaxRows      int           `env:"MAX_ROWS" envDefault:"10000"`
	QueryTimeout time.Duration `env:"QUERY_TIMEOUT" envDefault:"7s"`

	// Cache
	CacheBackend string        `env:"CACHE_BACKEND" envDefault:"memory"`
	CacheTTL     time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	CacheSize    int           `env:"CACHE_SIZE" envDefault:"64"`
	RedisAddr    string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`

	// Layout file; empty uses the built-in page
	LayoutFile string `env:"LAYOUT_FILE"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv parses the process environment without touching .env.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	urls := map[string]string{
		"CRM_DATABASE_URL":   c.CRMDatabaseURL,
		"ERP_DATABASE_URL":   c.ERPDatabaseURL,
		"DATA_WAREHOUSE_URL": c.WarehouseURL,
	}
	configured := 0
	for _, key := range []string{"CRM_DATABASE_URL", "ERP_DATABASE_URL", "DATA_WAREHOUSE_URL"} {
		raw := urls[key]
		if raw == "" {
			continue
		}
		configured++
		if _, err := source.ParseDSN(raw); err != nil {
			errors = append(errors, fmt.Sprintf("invalid %s: %v", key, err))
		}
	}
	if configured == 0 {
		errors = append(errors, "at least one of CRM_DATABASE_URL, ERP_DATABASE_URL or DATA_WAREHOUSE_URL must be set")
	}

	if c.MaxRows < 1 {
		errors = append(errors, fmt.Sprintf("invalid max rows %d: must be at least 1", c.MaxRows))
	} else if c.MaxRows > 1_000_000 {
		errors = append(errors, fmt.Sprintf("invalid max rows %d: must be at most 1000000", c.MaxRows))
	}

	if c.QueryTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid query timeout %v: must be at least 1 second", c.QueryTimeout))
	} else if c.QueryTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid query timeout %v: must be at most 5 minutes", c.QueryTimeout))
	}

	switch c.CacheBackend {
	case "memory":
		if c.CacheSize < 1 {
			errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
		}
	case "redis":
		if c.RedisAddr == "" {
			errors = append(errors, "REDIS_ADDR cannot be empty when using redis cache backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid cache backend '%s': must be one of [memory redis]", c.CacheBackend))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache ttl %v: must not be negative", c.CacheTTL))
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of [text json]", c.LogFormat))
	}

	if c.LayoutFile != "" {
		if _, err := os.Stat(c.LayoutFile); err != nil {
			errors = append(errors, fmt.Sprintf("layout file is not readable: %s", c.LayoutFile))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Sources lists the configured sources in page order. Sources without a URL
// are left out.
func (c *Config) Sources() []source.Spec {
	all := []source.Spec{
		{Name: "crm", DSN: c.CRMDatabaseURL, Table: c.CRMTable, Prefix: c.CRMTablePrefix},
		{Name: "erp", DSN: c.ERPDatabaseURL, Table: c.ERPTable, Prefix: c.ERPTablePrefix},
		{Name: "warehouse", DSN: c.WarehouseURL, Table: c.WarehouseTable},
	}
	specs := make([]source.Spec, 0, len(all))
	for _, s := range all {
		if strings.TrimSpace(s.DSN) == "" {
			continue
		}
		specs = append(specs, s)
	}
	return specs
}

// SourceOptions returns the query limits shared by every source.
func (c *Config) SourceOptions() source.Options {
	return source.Options{MaxRows: c.MaxRows, QueryTimeout: c.QueryTimeout}
}
