package source

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insight/internal/core"
	"insight/internal/log"
	"insight/internal/seed"
)

func seededURL(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warehouse.db")
	require.NoError(t, seed.Run(path))
	return "sqlite:///" + path
}

func openSource(t *testing.T, spec Spec, opts Options) *SQLSource {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	src, err := Open(spec, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	return src
}

func TestLoadFixedTable(t *testing.T) {
	src := openSource(t, Spec{Name: "warehouse", DSN: seededURL(t), Table: "crm_erp"}, Options{})

	tbl, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "crm_erp", tbl.Name)
	assert.Equal(t, []string{"cust_id", "cust_name", "product_name", "quantity", "total_purchases", "total_amount", "order_date"}, tbl.Columns)
	require.Len(t, tbl.Rows, 11)

	total, err := core.Sum(tbl, "total_amount")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("4857.46").Equal(total), "got %s", total)

	day, ok := tbl.Rows[0][tbl.Index("order_date")].Time()
	require.True(t, ok)
	assert.Equal(t, "2024-01-15", day.Format("2006-01-02"))
}

func TestLoadDiscoversTableByPrefix(t *testing.T) {
	url := seededURL(t)

	crm := openSource(t, Spec{Name: "crm", DSN: url, Prefix: "crm_"}, Options{})
	tbl, err := crm.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "crm_cust_info", tbl.Name)
	assert.Len(t, tbl.Rows, 7)

	erp := openSource(t, Spec{Name: "erp", DSN: url, Prefix: "erp_"}, Options{})
	tbl, err = erp.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "erp_sales", tbl.Name)
}

func TestLoadMaxRows(t *testing.T) {
	src := openSource(t, Spec{Name: "warehouse", DSN: seededURL(t), Table: "crm_erp"}, Options{MaxRows: 3})
	tbl, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, tbl.Rows, 3)
}

func TestLoadNoMatchingTable(t *testing.T) {
	src := openSource(t, Spec{Name: "crm", DSN: seededURL(t), Prefix: "hr_"}, Options{})
	_, err := src.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoTable)
}

func TestLoadMissingTable(t *testing.T) {
	src := openSource(t, Spec{Name: "warehouse", DSN: seededURL(t), Table: "does_not_exist"}, Options{})
	_, err := src.Load(context.Background())
	assert.Error(t, err)
}

func TestPingUnreachablePostgres(t *testing.T) {
	src := openSource(t, Spec{Name: "warehouse", DSN: "postgres://u:p@127.0.0.1:1/none?sslmode=disable&connect_timeout=1"},
		Options{QueryTimeout: 2 * time.Second})
	assert.Error(t, src.Ping(context.Background()))
	_, err := src.Load(context.Background())
	assert.Error(t, err)
}

func TestOpenRejectsBadDSN(t *testing.T) {
	_, err := Open(Spec{Name: "crm", DSN: "oracle://x"}, Options{Logger: log.Discard()})
	assert.ErrorIs(t, err, ErrUnsupportedDSN)
}

func TestConvertUsesColumnType(t *testing.T) {
	assert.Equal(t, core.KindNumber, convert([]byte("12.50"), "DECIMAL").Kind())
	assert.Equal(t, core.KindNumber, convert([]byte("7"), "BIGINT").Kind())
	assert.Equal(t, core.KindTime, convert([]byte("2024-02-01"), "DATE").Kind())
	assert.Equal(t, core.KindTime, convert("2024-02-01 10:00:00", "DATETIME").Kind())
	assert.Equal(t, core.KindBool, convert([]byte("true"), "BOOL").Kind())
	assert.Equal(t, core.KindString, convert([]byte("12.50"), "VARCHAR").Kind())
	assert.Equal(t, core.KindString, convert([]byte("n/a"), "DECIMAL").Kind())
	assert.Equal(t, core.KindNumber, convert(int64(3), "INTEGER").Kind())
	assert.Equal(t, core.KindNull, convert(nil, "TEXT").Kind())
}
