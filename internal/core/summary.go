package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Group is the total of a numeric column for one category.
type Group struct {
	Key   string
	Total decimal.Decimal
}

// Bucket is the total of a numeric column for one calendar month.
type Bucket struct {
	Month time.Time // first day of the month, UTC
	Total decimal.Decimal
}

func columnPair(t Table, a, b string) (int, int, error) {
	ia, ib := t.Index(a), t.Index(b)
	if ia < 0 {
		return 0, 0, fmt.Errorf("%w: %s", ErrMissingColumn, a)
	}
	if ib < 0 {
		return 0, 0, fmt.Errorf("%w: %s", ErrMissingColumn, b)
	}
	return ia, ib, nil
}

// GroupSum sums value per distinct category, sorted by category.
// Null categories and non-numeric values are skipped.
func GroupSum(t Table, category, value string) ([]Group, error) {
	ic, iv, err := columnPair(t, category, value)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]decimal.Decimal)
	for _, row := range t.Rows {
		c := cell(row, ic)
		if c.IsNull() {
			continue
		}
		n, ok := cell(row, iv).Number()
		if !ok {
			continue
		}
		key := c.String()
		totals[key] = totals[key].Add(n)
	}
	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Group, len(keys))
	for i, k := range keys {
		out[i] = Group{Key: k, Total: totals[k]}
	}
	return out, nil
}

// MonthlySum buckets value by the month of dateCol. Months between the first
// and last observed month are present even when they hold no rows.
func MonthlySum(t Table, dateCol, value string) ([]Bucket, error) {
	id, iv, err := columnPair(t, dateCol, value)
	if err != nil {
		return nil, err
	}
	totals := make(map[time.Time]decimal.Decimal)
	var first, last time.Time
	for _, row := range t.Rows {
		ts, ok := cell(row, id).Time()
		if !ok {
			continue
		}
		n, ok := cell(row, iv).Number()
		if !ok {
			continue
		}
		m := monthStart(ts)
		totals[m] = totals[m].Add(n)
		if first.IsZero() || m.Before(first) {
			first = m
		}
		if last.IsZero() || m.After(last) {
			last = m
		}
	}
	if len(totals) == 0 {
		return nil, nil
	}
	var out []Bucket
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		out = append(out, Bucket{Month: m, Total: totals[m]})
	}
	return out, nil
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Sum adds every numeric cell of col.
func Sum(t Table, col string) (decimal.Decimal, error) {
	values, err := t.Column(col)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, v := range values {
		if n, ok := v.Number(); ok {
			total = total.Add(n)
		}
	}
	return total, nil
}

// CountDistinct counts the distinct non-null cells of col.
func CountDistinct(t Table, col string) (int, error) {
	values, err := t.Column(col)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		seen[v.String()] = struct{}{}
	}
	return len(seen), nil
}

// Count returns the number of non-null cells of col.
func Count(t Table, col string) (int, error) {
	values, err := t.Column(col)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, v := range values {
		if !v.IsNull() {
			n++
		}
	}
	return n, nil
}
