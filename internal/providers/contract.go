package providers

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Adapter is one upstream LLM API. Benchmark runs a single streaming
// completion against the given model and always returns an Envelope;
// failures are data, not errors, so the queue runner never has to guess
// whether a Go error meant "retry" or "record".
type Adapter interface {
	ProviderKey() string
	Benchmark(ctx context.Context, model string) Envelope
}

// StatusError captures a non-2xx HTTP status from a provider response.
// Used by adapters to return structured errors that Classify can inspect.
type StatusError struct {
	StatusCode     int
	Body           string
	RetryAfterSecs int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// ParseRetryAfter records a Retry-After header value (delta-seconds or
// HTTP-date) on the error. Unparseable values are ignored.
func (e *StatusError) ParseRetryAfter(v string) {
	if v == "" {
		return
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		e.RetryAfterSecs = secs
		return
	}
	if t, err := time.Parse(time.RFC1123, v); err == nil {
		if d := time.Until(t); d > 0 {
			e.RetryAfterSecs = int(d.Seconds())
		}
	}
}
