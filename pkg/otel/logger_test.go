package otel

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	buf.Reset()
	return entry
}

func TestSlogLogger_FieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(NewHandler(&buf, LoggingConfig{Level: "warn", Format: "json"})))

	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.WithFields(map[string]any{"document.id": "doc-1"}).Warn("skipped", "stage", "score")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "skipped", entry["msg"])
	assert.Equal(t, "doc-1", entry["document.id"])
	assert.Equal(t, "score", entry["stage"])
}

func TestSlogLogger_WithContextAddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(NewHandler(&buf, LoggingConfig{Level: "debug", Format: "json"})))
	tracer, _ := newRecordingTracer(t)

	ctx, span := tracer.Start(context.Background(), "selection")
	defer span.End()

	logger.WithContext(ctx).Debug("traced")
	entry := decodeLine(t, &buf)
	assert.Len(t, entry["trace_id"], 32)
	assert.Len(t, entry["span_id"], 16)

	// 无 Span 时不附加字段
	logger.WithContext(context.Background()).Debug("plain")
	entry = decodeLine(t, &buf)
	assert.NotContains(t, entry, "trace_id")
}

func TestNoopLogger(t *testing.T) {
	l := NewNoopLogger()
	assert.Same(t, l, l.WithContext(context.Background()))
	assert.Same(t, l, l.WithFields(map[string]any{"a": 1}))
}
