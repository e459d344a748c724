package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"insight/internal/core"
	"insight/internal/log"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Spec describes one configured data source.
type Spec struct {
	Name   string // crm, erp, warehouse
	DSN    string
	Table  string // fixed table; empty means discover
	Prefix string // discovery prefix, e.g. "crm_"
}

// Options tune how a source is queried.
type Options struct {
	MaxRows      int
	QueryTimeout time.Duration
	Logger       *log.Logger
}

// SQLSource loads one table from a database/sql connection pool.
type SQLSource struct {
	spec   Spec
	dsn    DSN
	db     *sql.DB
	opts   Options
	logger *log.Logger
}

// Open prepares a pooled connection. The server is not contacted until the
// first Load or Ping, so an unreachable database surfaces at render time.
func Open(spec Spec, opts Options) (*SQLSource, error) {
	dsn, err := ParseDSN(spec.DSN)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", spec.Name, err)
	}
	db, err := sql.Open(dsn.Driver, dsn.DataSource)
	if err != nil {
		return nil, fmt.Errorf("source %s: open %s: %w", spec.Name, dsn.Dialect, err)
	}
	return newSQLSource(spec, dsn, db, opts), nil
}

func newSQLSource(spec Spec, dsn DSN, db *sql.DB, opts Options) *SQLSource {
	if opts.MaxRows <= 0 {
		opts.MaxRows = 10000
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 7 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	return &SQLSource{
		spec:   spec,
		dsn:    dsn,
		db:     db,
		opts:   opts,
		logger: logger.WithComponent(log.ComponentSource).With(log.FieldSource, spec.Name),
	}
}

func (s *SQLSource) Name() string { return s.spec.Name }
func (s *SQLSource) Dialect() Dialect { return s.dsn.Dialect }
func (s *SQLSource) Describe() string { return s.dsn.Redacted }

// Ping checks that the database answers.
func (s *SQLSource) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", s.spec.Name, err)
	}
	return nil
}

// Close releases the pool.
func (s *SQLSource) Close() error {
	return s.db.Close()
}

// Load reads the source table, at most MaxRows rows.
func (s *SQLSource) Load(ctx context.Context) (core.Table, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()

	start := time.Now()
	name, err := s.resolveTable(ctx)
	if err != nil {
		return core.Table{}, err
	}

	query := "SELECT * FROM " + s.dsn.Dialect.Quote(name) + " LIMIT " + strconv.Itoa(s.opts.MaxRows)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return core.Table{}, fmt.Errorf("query %s.%s: %w", s.spec.Name, name, err)
	}
	defer rows.Close()

	table, err := scanTable(rows)
	if err != nil {
		return core.Table{}, fmt.Errorf("read %s.%s: %w", s.spec.Name, name, err)
	}
	table.Name = name

	s.logger.DebugContext(ctx, "Source table loaded",
		log.FieldTable, name,
		log.FieldRows, len(table.Rows),
		log.FieldDuration, time.Since(start).Milliseconds())
	return table, nil
}

func (s *SQLSource) resolveTable(ctx context.Context) (string, error) {
	if s.spec.Table != "" {
		return s.spec.Table, nil
	}
	var name string
	err := s.db.QueryRowContext(ctx, s.dsn.Dialect.discoverQuery(), likePrefix(s.spec.Prefix)).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: source %s has no table with prefix %q", ErrNoTable, s.spec.Name, s.spec.Prefix)
	}
	if err != nil {
		return "", fmt.Errorf("discover table for %s: %w", s.spec.Name, err)
	}
	s.logger.DebugContext(ctx, "Discovered source table", log.FieldTable, name, log.FieldOperation, log.OpDiscover)
	return name, nil
}

func scanTable(rows *sql.Rows) (core.Table, error) {
	cols, err := rows.Columns()
	if err != nil {
		return core.Table{}, fmt.Errorf("columns: %w", err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return core.Table{}, fmt.Errorf("column types: %w", err)
	}
	typeNames := make([]string, len(types))
	for i, ct := range types {
		// DECIMAL(10,2) and friends: only the base type matters.
		base, _, _ := strings.Cut(ct.DatabaseTypeName(), "(")
		typeNames[i] = strings.ToUpper(strings.TrimSpace(base))
	}

	table := core.Table{Columns: cols}
	raw := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range raw {
		dest[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return core.Table{}, fmt.Errorf("scan: %w", err)
		}
		row := make([]core.Value, len(cols))
		for i, v := range raw {
			row[i] = convert(v, typeNames[i])
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return core.Table{}, fmt.Errorf("iterate: %w", err)
	}
	return table, nil
}

var (
	numericTypes = map[string]bool{
		"INT": true, "INTEGER": true, "TINYINT": true, "SMALLINT": true, "MEDIUMINT": true, "BIGINT": true,
		"INT2": true, "INT4": true, "INT8": true,
		"UNSIGNED INT": true, "UNSIGNED TINYINT": true, "UNSIGNED SMALLINT": true,
		"UNSIGNED MEDIUMINT": true, "UNSIGNED BIGINT": true, "UNSIGNED DECIMAL": true,
		"DECIMAL": true, "NUMERIC": true, "FLOAT": true, "FLOAT4": true, "FLOAT8": true,
		"DOUBLE": true, "REAL": true, "MONEY": true,
	}
	timeTypes = map[string]bool{
		"DATE": true, "DATETIME": true, "TIMESTAMP": true, "TIMESTAMPTZ": true,
	}
	boolTypes = map[string]bool{"BOOL": true, "BOOLEAN": true}
)

// convert turns a scanned cell into a core.Value. Drivers hand back text for
// DECIMAL and, over MySQL's text protocol, most other types, so the declared
// column type decides how text is read.
func convert(v any, typeName string) core.Value {
	var text string
	switch x := v.(type) {
	case []byte:
		text = string(x)
	case string:
		text = x
	default:
		return core.FromAny(v)
	}
	switch {
	case numericTypes[typeName]:
		if d, err := decimal.NewFromString(strings.TrimSpace(text)); err == nil {
			return core.NumberValue(d)
		}
	case timeTypes[typeName]:
		if t, ok := core.ParseTime(text); ok {
			return core.TimeValue(t)
		}
	case boolTypes[typeName]:
		if b, err := strconv.ParseBool(text); err == nil {
			return core.BoolValue(b)
		}
	}
	return core.StringValue(text)
}
