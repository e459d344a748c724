package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestGroupSum(t *testing.T) {
	groups, err := GroupSum(ordersTable(), "cust_name", "total_amount")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Ana", groups[0].Key)
	assert.True(t, dec("1225.5").Equal(groups[0].Total))
	assert.Equal(t, "Ben", groups[1].Key)
	assert.True(t, dec("25.5").Equal(groups[1].Total))
}

func TestGroupSumSkipsNullCategory(t *testing.T) {
	groups, err := GroupSum(ordersTable(), "product_name", "total_amount")
	require.NoError(t, err)
	keys := make([]string, len(groups))
	for i, g := range groups {
		keys[i] = g.Key
	}
	assert.Equal(t, []string{"Laptop", "Mouse"}, keys)
	assert.True(t, dec("51").Equal(groups[1].Total))
}

func TestGroupSumMissingColumn(t *testing.T) {
	_, err := GroupSum(ordersTable(), "cust_name", "total_purchases")
	assert.ErrorIs(t, err, ErrMissingColumn)
	_, err = GroupSum(ordersTable(), "region", "total_amount")
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestMonthlySumFillsGaps(t *testing.T) {
	buckets, err := MonthlySum(ordersTable(), "order_date", "total_amount")
	require.NoError(t, err)
	require.Len(t, buckets, 3)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), buckets[0].Month)
	assert.True(t, dec("1225.5").Equal(buckets[0].Total))
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), buckets[1].Month)
	assert.True(t, buckets[1].Total.IsZero())
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), buckets[2].Month)
	assert.True(t, dec("25.5").Equal(buckets[2].Total))
}

func TestMonthlySumNoDates(t *testing.T) {
	tbl := Table{
		Columns: []string{"order_date", "total_amount"},
		Rows:    [][]Value{{StringValue("soon"), IntValue(1)}},
	}
	buckets, err := MonthlySum(tbl, "order_date", "total_amount")
	require.NoError(t, err)
	assert.Empty(t, buckets)
}

func TestSumAndCounts(t *testing.T) {
	tbl := ordersTable()

	total, err := Sum(tbl, "total_amount")
	require.NoError(t, err)
	assert.True(t, dec("1251").Equal(total), "got %s", total)

	customers, err := CountDistinct(tbl, "cust_name")
	require.NoError(t, err)
	assert.Equal(t, 3, customers)

	products, err := CountDistinct(tbl, "product_name")
	require.NoError(t, err)
	assert.Equal(t, 2, products)

	n, err := Count(tbl, "product_name")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = Sum(tbl, "missing")
	assert.ErrorIs(t, err, ErrMissingColumn)
}
