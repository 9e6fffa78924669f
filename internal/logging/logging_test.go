package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestMultiHandlerFansOutByLevel(t *testing.T) {
	var infoBuf, errBuf bytes.Buffer
	h := NewMultiHandler(
		NewJSONHandler(&infoBuf, "info"),
		NewJSONHandler(&errBuf, "error"),
	)
	logger := slog.New(h).With("report_id", "r-1")

	logger.Info("report created")
	logger.Error("analysis failed")

	assert.Equal(t, 2, bytes.Count(infoBuf.Bytes(), []byte("\n")))
	assert.Equal(t, 1, bytes.Count(errBuf.Bytes(), []byte("\n")))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(errBuf.Bytes(), &rec))
	assert.Equal(t, "analysis failed", rec["msg"])
	assert.Equal(t, "r-1", rec["report_id"])

	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("sink down") }

func TestMultiHandlerKeepsWritingWhenASinkFails(t *testing.T) {
	var buf bytes.Buffer
	h := NewMultiHandler(
		failingHandler{NewJSONHandler(&bytes.Buffer{}, "error")},
		NewJSONHandler(&buf, "info"),
	)

	rec := slog.NewRecord(time.Now(), slog.LevelError, "upload failed", 0)
	err := h.Handle(context.Background(), rec)

	assert.EqualError(t, err, "sink down")
	assert.Contains(t, buf.String(), "upload failed")
	assert.Same(t, h, h.WithGroup(""))
}

func TestToSystemLogLiftsKnownAttrs(t *testing.T) {
	rec := slog.NewRecord(time.Now(), slog.LevelError, "severity inference failed", 0)
	rec.AddAttrs(
		slog.String("request_id", "req-42"),
		slog.String("error", "model not loaded"),
		slog.Float64("latency_ms", 12.6),
		slog.String("model", "pothole"),
	)

	entry := toSystemLog(rec, []slog.Attr{
		slog.String("report_id", "rep-1"),
		slog.String("user_id", "usr-1"),
		slog.String("action", "analyze"),
	})

	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "severity inference failed", entry.Message)
	assert.Equal(t, "req-42", entry.RequestID)
	require.NotNil(t, entry.ReportID)
	assert.Equal(t, "rep-1", *entry.ReportID)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "usr-1", *entry.UserID)
	assert.Equal(t, "analyze", entry.Action)
	assert.Equal(t, "model not loaded", entry.Error)
	assert.Equal(t, 13, entry.LatencyMs)
	assert.JSONEq(t, `{"model":"pothole"}`, string(entry.Extra))
}

func TestPGHandlerEnabledOnlyForErrors(t *testing.T) {
	h := &PGHandler{sink: &pgSink{}}
	assert.False(t, h.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))

	child := h.WithAttrs([]slog.Attr{slog.String("report_id", "x")}).(*PGHandler)
	assert.Len(t, child.attrs, 1)
	assert.Same(t, h.sink, child.sink)
	assert.Empty(t, h.attrs)
}

func TestPGSinkBuffers(t *testing.T) {
	s := &pgSink{}
	h := &PGHandler{sink: s}

	rec := slog.NewRecord(time.Now(), slog.LevelError, "boom", 0)
	require.NoError(t, h.Handle(context.Background(), rec))

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Len(t, s.buffer, 1)
}
