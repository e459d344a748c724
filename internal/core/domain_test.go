package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueNumberCoercion(t *testing.T) {
	cases := []struct {
		name string
		in   Value
		want string
		ok   bool
	}{
		{"number", IntValue(42), "42", true},
		{"numeric string", StringValue(" 12.50 "), "12.5", true},
		{"text", StringValue("abc"), "0", false},
		{"empty string", StringValue(""), "0", false},
		{"null", NullValue(), "0", false},
		{"bool", BoolValue(true), "0", false},
		{"time", TimeValue(time.Now()), "0", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.in.Number()
			assert.Equal(t, tc.ok, ok)
			assert.True(t, decimal.RequireFromString(tc.want).Equal(got), "got %s", got)
		})
	}
}

func TestValueTimeCoercion(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2024-03-05", "2024-03-05 00:00:00", "2024-03-05T00:00:00Z", "2024/03/05", "03/05/2024"} {
		got, ok := StringValue(s).Time()
		require.True(t, ok, s)
		assert.True(t, day.Equal(got), "%s parsed to %s", s, got)
	}
	_, ok := StringValue("yesterday").Time()
	assert.False(t, ok)
	_, ok = IntValue(20240305).Time()
	assert.False(t, ok)
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "", NullValue().String())
	assert.Equal(t, "hello", StringValue("hello").String())
	assert.Equal(t, "3.25", FloatValue(3.25).String())
	assert.Equal(t, "2024-03-05", TimeValue(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)).String())
	assert.Equal(t, "2024-03-05 10:30:00", TimeValue(time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)).String())
	assert.Equal(t, "false", BoolValue(false).String())
}

func TestFromAny(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, KindNull, FromAny(nil).Kind())
	assert.Equal(t, KindString, FromAny([]byte("raw")).Kind())
	assert.Equal(t, KindNumber, FromAny(int64(7)).Kind())
	assert.Equal(t, KindNumber, FromAny(1.5).Kind())
	assert.Equal(t, KindBool, FromAny(true).Kind())
	assert.True(t, FromAny(ts).Equal(TimeValue(ts)))
}

func TestValueJSONRoundTrip(t *testing.T) {
	in := []Value{
		NullValue(),
		StringValue("Acme"),
		NumberValue(decimal.RequireFromString("1234.5600")),
		TimeValue(time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)),
		BoolValue(true),
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out []Value
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out, len(in))
	for i := range in {
		assert.True(t, in[i].Equal(out[i]), "index %d: %v != %v", i, in[i], out[i])
	}
}

func TestValueUnmarshalUnknownKind(t *testing.T) {
	var v Value
	err := json.Unmarshal([]byte(`{"k":"blob","v":"x"}`), &v)
	assert.ErrorIs(t, err, ErrUnknownKind)
}
