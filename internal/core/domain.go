// Package core holds the tabular data model the dashboard renders: loosely
// typed cells, tables of rows, and the aggregations derived from them.
package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies which field of a Value is populated.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindTime
	KindBool
)

var kindNames = map[Kind]string{
	KindNull:   "null",
	KindString: "string",
	KindNumber: "number",
	KindTime:   "time",
	KindBool:   "bool",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

var (
	ErrMissingColumn = errors.New("missing column")
	ErrUnknownKind   = errors.New("unknown value kind")
)

// timeLayouts are tried in order when a string cell is read as a date.
var timeLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006/01/02",
	"01/02/2006",
}

// Value is a single cell. Sources define their own column types, so a cell
// carries whichever representation the driver produced and coerces on read.
type Value struct {
	kind Kind
	str  string
	num  decimal.Decimal
	t    time.Time
	b    bool
}

func NullValue() Value { return Value{} }
func StringValue(s string) Value { return Value{kind: KindString, str: s} }
func NumberValue(d decimal.Decimal) Value { return Value{kind: KindNumber, num: d} }
func TimeValue(t time.Time) Value { return Value{kind: KindTime, t: t} }
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// IntValue and FloatValue are shorthands used mostly by tests and the seeder.
func IntValue(i int64) Value { return NumberValue(decimal.NewFromInt(i)) }
func FloatValue(f float64) Value { return NumberValue(decimal.NewFromFloat(f)) }

// FromAny converts a database/sql scan destination into a Value.
// []byte is treated as text; callers that know the column type should
// convert before calling.
func FromAny(v any) Value {
	switch x := v.(type) {
	case nil:
		return NullValue()
	case Value:
		return x
	case string:
		return StringValue(x)
	case []byte:
		return StringValue(string(x))
	case int64:
		return IntValue(x)
	case int:
		return IntValue(int64(x))
	case int32:
		return IntValue(int64(x))
	case uint64:
		return NumberValue(decimal.NewFromUint64(x))
	case float64:
		return FloatValue(x)
	case float32:
		return NumberValue(decimal.NewFromFloat32(x))
	case decimal.Decimal:
		return NumberValue(x)
	case bool:
		return BoolValue(x)
	case time.Time:
		return TimeValue(x)
	default:
		return StringValue(fmt.Sprint(x))
	}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Number returns the numeric reading of the cell. Numeric strings coerce.
func (v Value) Number() (decimal.Decimal, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		s := strings.TrimSpace(v.str)
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

// Time returns the date reading of the cell. Strings in common date layouts coerce.
func (v Value) Time() (time.Time, bool) {
	switch v.kind {
	case KindTime:
		return v.t, true
	case KindString:
		return ParseTime(v.str)
	default:
		return time.Time{}, false
	}
}

// ParseTime parses s with the first matching layout in timeLayouts.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// String renders the cell for display. Null renders empty.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num.String()
	case KindTime:
		if v.t.Hour() == 0 && v.t.Minute() == 0 && v.t.Second() == 0 && v.t.Nanosecond() == 0 {
			return v.t.Format("2006-01-02")
		}
		return v.t.Format("2006-01-02 15:04:05")
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Interface returns a plain Go value suitable for JSON or CSV output.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return json.Number(v.num.String())
	case KindTime:
		return v.t.Format(time.RFC3339)
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// Equal reports whether both cells hold the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num.Equal(o.num)
	case KindTime:
		return v.t.Equal(o.t)
	case KindString:
		return v.str == o.str
	case KindBool:
		return v.b == o.b
	default:
		return true
	}
}

type wireValue struct {
	K string `json:"k"`
	V string `json:"v"`
}

// MarshalJSON encodes the cell with its kind so tables survive a cache round trip.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(wireValue{K: "string", V: v.str})
	case KindNumber:
		return json.Marshal(wireValue{K: "number", V: v.num.String()})
	case KindTime:
		return json.Marshal(wireValue{K: "time", V: v.t.Format(time.RFC3339Nano)})
	case KindBool:
		return json.Marshal(wireValue{K: "bool", V: strconv.FormatBool(v.b)})
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, v.kind)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = NullValue()
		return nil
	}
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	switch w.K {
	case "string":
		*v = StringValue(w.V)
	case "number":
		d, err := decimal.NewFromString(w.V)
		if err != nil {
			return fmt.Errorf("decode number %q: %w", w.V, err)
		}
		*v = NumberValue(d)
	case "time":
		t, err := time.Parse(time.RFC3339Nano, w.V)
		if err != nil {
			return fmt.Errorf("decode time %q: %w", w.V, err)
		}
		*v = TimeValue(t)
	case "bool":
		b, err := strconv.ParseBool(w.V)
		if err != nil {
			return fmt.Errorf("decode bool %q: %w", w.V, err)
		}
		*v = BoolValue(b)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, w.K)
	}
	return nil
}
