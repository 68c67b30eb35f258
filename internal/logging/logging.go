// Package logging provides the process-wide slog setup: JSON output, a
// runtime-adjustable level, and a redacting handler in front of every
// sink. With eleven provider API keys in the environment, a leaked log
// attribute is the most likely way a credential ends up in log storage,
// so redaction sits in the handler rather than at call sites.
package logging

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Attribute keys whose values never reach a sink. Header names cover the
// auth schemes of all wired providers (Bearer, x-api-key, x-goog-api-key).
var redactedExact = map[string]bool{
	"authorization":       true,
	"x-api-key":           true,
	"x-goog-api-key":      true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"body":                true,
	"request_body":        true,
	"req_body":            true,
}

// Key fragments that mark a value as secret wherever they appear.
var redactedFragments = []string{"key", "token", "secret", "password"}

// globalLevel backs every handler built by Setup so SetLevel takes effect
// without recreating loggers.
var globalLevel = new(slog.LevelVar)

// Setup builds the default logger: JSON to stdout behind the redacting
// handler, at the given level.
func Setup(level string) *slog.Logger {
	SetLevel(level)

	base := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: globalLevel})
	logger := slog.New(&RedactingHandler{base: base})
	slog.SetDefault(logger)
	return logger
}

// SetLevel adjusts the level of every logger built by Setup. Accepts
// "debug", "warn", "error"; anything else means "info".
func SetLevel(level string) {
	switch level {
	case "debug":
		globalLevel.Set(slog.LevelDebug)
	case "warn":
		globalLevel.Set(slog.LevelWarn)
	case "error":
		globalLevel.Set(slog.LevelError)
	default:
		globalLevel.Set(slog.LevelInfo)
	}
}

// RedactingHandler strips secret-looking attribute values before they
// reach the wrapped handler. Attrs attached via With are redacted at
// attach time, so later Handle calls cannot resurface them.
type RedactingHandler struct {
	base slog.Handler
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(redactAttr(a))
		return true
	})
	return h.base.Handle(ctx, out)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, redactAttr(a))
	}
	return &RedactingHandler{base: h.base.WithAttrs(out)}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{base: h.base.WithGroup(name)}
}

// redactAttr decides per attribute. env_key is exempt: it names the
// variable ("OPENAI_API_KEY"), never its value.
func redactAttr(a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)

	if key == "env_key" {
		return a
	}
	if redactedExact[key] {
		return slog.String(a.Key, "[REDACTED]")
	}
	for _, frag := range redactedFragments {
		if strings.Contains(key, frag) {
			return slog.String(a.Key, "[REDACTED]")
		}
	}
	return a
}

// RequestLogger is chi middleware emitting one line per request. Bodies
// and auth headers are never part of the record.
func RequestLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = middleware.GetReqID(r.Context())
			}

			next.ServeHTTP(ww, r)

			logger.Info("http_request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", reqID),
				slog.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}
