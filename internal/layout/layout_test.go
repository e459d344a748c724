package layout

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	l := Default()

	assert.Equal(t, "Cloud Computing Data Dashboard", l.Title)
	assert.Equal(t, "Final Exam Dashboard | Cloud Computing | Canaman, Macalisang, Pabololot, Santos", l.Caption)
	assert.Equal(t, "Select Start Date", l.Filter.Label)
	assert.True(t, l.Filter.Apply)

	wh, ok := l.Section("warehouse")
	require.True(t, ok)
	assert.Equal(t, "CRM & ERP Combined Overview", wh.Title)
	assert.Equal(t, "Cleaned data from crm_erp not available.", wh.EmptyMessage)
	assert.Equal(t, "order_date", wh.DateColumn)
	require.Len(t, wh.Metrics, 3)
	assert.Equal(t, OpSum, wh.Metrics[0].Op)

	bar, ok := wh.Chart("purchases-by-customer")
	require.True(t, ok)
	assert.Equal(t, KindBar, bar.Kind)
	assert.Equal(t, []string{"cust_name", "total_purchases"}, bar.Columns())
	assert.Equal(t, "Customer Name", bar.Label("cust_name"))
	assert.Equal(t, "Total Purchases", bar.Label("total_purchases"))

	pie, ok := wh.Chart("sales-by-product")
	require.True(t, ok)
	assert.Equal(t, KindPie, pie.Kind)
	assert.Equal(t, "product_name", pie.Label("product_name"))

	_, ok = wh.Chart("nope")
	assert.False(t, ok)
	_, ok = l.Section("hr")
	assert.False(t, ok)
}

func TestLoad(t *testing.T) {
	l, err := Load("")
	require.NoError(t, err)
	assert.Len(t, l.Sections, 3)

	path := filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
title: Sales
filter:
  label: Day
sections:
  - name: sales
    source: warehouse
    charts:
      - id: by-product
        kind: pie
        category: product_name
        value: total_amount
`), 0644))
	l, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Sales", l.Title)
	assert.False(t, l.Filter.Apply)
	require.Len(t, l.Sections, 1)
	assert.Equal(t, "warehouse", l.Sections[0].Source)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse(strings.NewReader("title: x\ncolour: red\nsections: []\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", "", "at least one section is required"},
		{"unknown source", `
sections:
  - name: hr
    source: hr`, "unknown source 'hr'"},
		{"duplicate section", `
sections:
  - name: a
    source: crm
  - name: a
    source: erp`, "duplicate section name 'a'"},
		{"duplicate chart", `
sections:
  - name: a
    source: crm
    charts:
      - {id: c, kind: bar, category: x, value: y}
      - {id: c, kind: pie, category: x, value: y}`, "duplicate chart id 'c'"},
		{"chart id with dot", `
sections:
  - name: a
    source: crm
    charts:
      - {id: sales.v2, kind: bar, category: x, value: y}`, "invalid chart id 'sales.v2'"},
		{"chart id uppercase", `
sections:
  - name: a
    source: crm
    charts:
      - {id: Sales, kind: bar, category: x, value: y}`, "invalid chart id 'Sales'"},
		{"section name with dot", `
sections:
  - name: crm.v2
    source: crm`, "invalid section name 'crm.v2'"},
		{"unknown kind", `
sections:
  - name: a
    source: crm
    charts:
      - {id: c, kind: scatter, category: x, value: y}`, "unknown kind 'scatter'"},
		{"missing columns", `
sections:
  - name: a
    source: crm
    charts:
      - {id: c, kind: line, category: x}`, "category and value columns are required"},
		{"unknown op", `
sections:
  - name: a
    source: crm
    metrics:
      - {label: m, op: avg, column: x}`, "unknown op 'avg'"},
		{"metric column", `
sections:
  - name: a
    source: crm
    metrics:
      - {label: m, op: sum}`, "column is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.True(t, strings.HasPrefix(err.Error(), "layout validation failed:\n- "), err.Error())
		})
	}
}
