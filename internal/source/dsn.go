// Package source reads dashboard tables from relational databases.
//
// Connection strings follow the SQLAlchemy URL shapes the environment
// already carries (postgresql+psycopg2://, mysql+pymysql://, sqlite:///...)
// and are mapped onto the matching Go driver.
package source

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrUnsupportedDSN = errors.New("unsupported connection string")
	ErrNoTable        = errors.New("no table found")
)

// Dialect is the SQL flavour of a source.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
	SQLite   Dialect = "sqlite"
)

// DSN is a parsed connection string ready for sql.Open.
type DSN struct {
	Dialect    Dialect
	Driver     string // database/sql driver name
	DataSource string // driver-specific data source name
	Redacted   string // safe to log
}

// ParseDSN maps a URL-style connection string to a driver and data source.
func ParseDSN(raw string) (DSN, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DSN{}, fmt.Errorf("%w: empty", ErrUnsupportedDSN)
	}
	if strings.HasPrefix(raw, "file:") {
		return DSN{Dialect: SQLite, Driver: "sqlite", DataSource: raw, Redacted: raw}, nil
	}

	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return DSN{}, fmt.Errorf("%w: missing scheme", ErrUnsupportedDSN)
	}
	// SQLAlchemy puts the Python driver after a plus sign; only the dialect matters here.
	base, _, _ := strings.Cut(strings.ToLower(scheme), "+")

	switch base {
	case "postgres", "postgresql":
		ds := "postgres://" + rest
		u, err := url.Parse(ds)
		if err != nil {
			return DSN{}, fmt.Errorf("parse postgres url: %w", err)
		}
		return DSN{Dialect: Postgres, Driver: "postgres", DataSource: ds, Redacted: u.Redacted()}, nil
	case "mysql", "mariadb":
		return parseMySQL(rest)
	case "sqlite", "sqlite3":
		// sqlite:///relative.db and sqlite:////absolute.db
		path := strings.TrimPrefix(rest, "/")
		if path == "" {
			return DSN{}, fmt.Errorf("%w: sqlite path is empty", ErrUnsupportedDSN)
		}
		return DSN{Dialect: SQLite, Driver: "sqlite", DataSource: path, Redacted: "sqlite:///" + path}, nil
	default:
		return DSN{}, fmt.Errorf("%w: scheme %q", ErrUnsupportedDSN, scheme)
	}
}

func parseMySQL(rest string) (DSN, error) {
	u, err := url.Parse("mysql://" + rest)
	if err != nil {
		return DSN{}, fmt.Errorf("parse mysql url: %w", err)
	}
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
		cfg.Addr = net.JoinHostPort(u.Hostname(), "3306")
	}
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	cfg.ParseTime = true
	for k, vs := range u.Query() {
		if len(vs) == 0 {
			continue
		}
		if cfg.Params == nil {
			cfg.Params = make(map[string]string)
		}
		cfg.Params[k] = vs[0]
	}
	return DSN{Dialect: MySQL, Driver: "mysql", DataSource: cfg.FormatDSN(), Redacted: u.Redacted()}, nil
}

// Quote quotes an identifier for the dialect, doubling embedded quote characters.
func (d Dialect) Quote(ident string) string {
	q := `"`
	if d == MySQL {
		q = "`"
	}
	return q + strings.ReplaceAll(ident, q, q+q) + q
}

// placeholder returns the first positional bind parameter.
func (d Dialect) placeholder() string {
	if d == Postgres {
		return "$1"
	}
	return "?"
}

// discoverQuery lists base tables matching a LIKE pattern (escape character '!'),
// first by name. Migration bookkeeping tables never count.
func (d Dialect) discoverQuery() string {
	switch d {
	case Postgres, MySQL:
		schema := "current_schema()"
		if d == MySQL {
			schema = "DATABASE()"
		}
		return "SELECT table_name FROM information_schema.tables" +
			" WHERE table_schema = " + schema +
			" AND table_type = 'BASE TABLE'" +
			" AND table_name LIKE " + d.placeholder() + " ESCAPE '!'" +
			" AND table_name NOT IN ('schema_migrations', 'goose_db_version')" +
			" ORDER BY table_name LIMIT 1"
	default:
		return "SELECT name FROM sqlite_master" +
			" WHERE type = 'table'" +
			" AND name NOT LIKE 'sqlite!_%' ESCAPE '!'" +
			" AND name LIKE ? ESCAPE '!'" +
			" AND name NOT IN ('schema_migrations', 'goose_db_version')" +
			" ORDER BY name LIMIT 1"
	}
}

// likePrefix turns prefix into a LIKE pattern that matches it literally.
func likePrefix(prefix string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(prefix) + "%"
}
