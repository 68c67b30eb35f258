package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, nil)
	return slog.New(&RedactingHandler{base: base}), &buf
}

func TestRedactsKeyLikeAttrs(t *testing.T) {
	logger, buf := captureLogger()
	logger.Info("configured", "api_key", "sk-live-abc123", "provider", "openai")

	out := buf.String()
	if strings.Contains(out, "sk-live-abc123") {
		t.Error("api key value leaked into log output")
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Error("expected redaction marker")
	}
	if !strings.Contains(out, "openai") {
		t.Error("non-sensitive attr must survive")
	}
}

func TestEnvKeyNameIsNotRedacted(t *testing.T) {
	logger, buf := captureLogger()
	logger.Warn("provider not configured", "env_key", "OPENAI_API_KEY")
	if !strings.Contains(buf.String(), "OPENAI_API_KEY") {
		t.Error("env var name must be loggable")
	}
}

func TestRedactsAuthHeaders(t *testing.T) {
	logger, buf := captureLogger()
	logger.Info("request", "Authorization", "Bearer secret", "x-goog-api-key", "g-key")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log output not JSON: %v", err)
	}
	if rec["Authorization"] != "[REDACTED]" {
		t.Errorf("Authorization = %v", rec["Authorization"])
	}
	if rec["x-goog-api-key"] != "[REDACTED]" {
		t.Errorf("x-goog-api-key = %v", rec["x-goog-api-key"])
	}
}

func TestWithAttrsRedacts(t *testing.T) {
	logger, buf := captureLogger()
	logger.With("token", "abc").Info("hello")
	if strings.Contains(buf.String(), "abc") {
		t.Error("With-attached token leaked")
	}
}

func TestSetLevel(t *testing.T) {
	SetLevel("debug")
	var buf bytes.Buffer
	h := &RedactingHandler{base: slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: globalLevel})}
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be enabled")
	}
	SetLevel("error")
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at error level")
	}
	SetLevel("bogus")
	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("unknown level should default to info")
	}
}
