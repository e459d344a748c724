package dashboard

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Filter narrows rows to a single calendar day. The zero Filter keeps every row.
type Filter struct {
	Day time.Time
	Set bool
}

// ParseFilter reads a YYYY-MM-DD date. An empty string is no filter.
func ParseFilter(raw string) (Filter, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Filter{}, nil
	}
	day, err := time.Parse(dateLayout, raw)
	if err != nil {
		return Filter{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", raw)
	}
	return Filter{Day: day, Set: true}, nil
}

// OnDay is a filter for the given day.
func OnDay(day time.Time) Filter {
	return Filter{Day: day, Set: true}
}

// String returns the date as YYYY-MM-DD, or "" when unset.
func (f Filter) String() string {
	if !f.Set {
		return ""
	}
	return f.Day.Format(dateLayout)
}
