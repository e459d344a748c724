package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestJSONLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf}).WithComponent(ComponentSource)

	logger.Info("Source loaded", FieldSource, "warehouse", FieldRows, 3)
	logger.Debug("dropped below level")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	assert.Equal(t, "Source loaded", rec["msg"])
	assert.Equal(t, ComponentSource, rec[FieldComponent])
	assert.Equal(t, "warehouse", rec[FieldSource])
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: "json", Output: &buf}).With(FieldRequestID, "req_1")

	ctx := NewContext(context.Background(), base)
	got := FromContext(ctx)
	require.Same(t, base, got)

	got.InfoContext(ctx, "inside")
	assert.Contains(t, buf.String(), `"request_id":"req_1"`)
}

func TestFromContextFallback(t *testing.T) {
	logger := FromContext(context.Background())
	require.NotNil(t, logger)
	assert.Equal(t, "unknown", logger.Component())
}
