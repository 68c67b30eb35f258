package providers

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Error taxonomy. Every failed benchmark carries exactly one of these so
// failures can be aggregated across providers that each spell their errors
// differently.
const (
	ErrConfig              = "CONFIG_ERROR"
	ErrAuth                = "AUTH_ERROR"
	ErrBadRequest          = "BAD_REQUEST"
	ErrNotFound            = "NOT_FOUND"
	ErrRateLimit           = "RATE_LIMIT"
	ErrInsufficientCredits = "INSUFFICIENT_CREDITS"
	ErrTimeout             = "TIMEOUT"
	ErrEmptyResponse       = "EMPTY_RESPONSE"
	ErrDependency          = "DEPENDENCY_ERROR" // reserved: adapter missing a required dependency
	ErrInit                = "INIT_ERROR"
	ErrProviderCrash       = "PROVIDER_CRASH"
	ErrUnknown             = "UNKNOWN_ERROR"
)

// Metrics is what a completed streaming call measured. Times come from the
// monotonic clock; token counts are as reported by the provider (zero when
// unreported, corrected downstream at persistence time).
type Metrics struct {
	TotalLatencyMs  float64
	TTFTMs          *float64
	TPS             *float64
	InputTokens     int
	OutputTokens    int
	ReasoningTokens *int
}

// ErrorInfo describes one classified failure.
type ErrorInfo struct {
	Type       string
	Message    string
	StatusCode *int
}

// Envelope is the single outcome type a benchmark attempt produces.
// Success and Err are mutually exclusive: Err is non-nil exactly when
// Success is false.
type Envelope struct {
	Provider string
	Model    string
	Success  bool
	Metrics  Metrics
	Response string
	Err      *ErrorInfo
}

// Failure builds a failed envelope from a classified error.
func Failure(provider, model string, metrics Metrics, err error) Envelope {
	info := Classify(err)
	return Envelope{
		Provider: provider,
		Model:    model,
		Metrics:  metrics,
		Err:      &info,
	}
}

// Classify maps an arbitrary adapter error onto the taxonomy. Timeouts win
// over everything; then the HTTP status decides, with body sniffing only
// for the out-of-credits shapes providers hide behind 400s. A 429 is always
// a rate limit, even when the body mentions quota: the caller backs off
// either way. Errors without a status get the gateway defaults (504 for
// timeouts, 500 otherwise) so persisted failure rows never carry NULL.
func Classify(err error) ErrorInfo {
	if err == nil {
		return ErrorInfo{Type: ErrUnknown, Message: "unspecified error", StatusCode: intPtr(500)}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorInfo{Type: ErrTimeout, Message: err.Error(), StatusCode: intPtr(504)}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrorInfo{Type: ErrTimeout, Message: err.Error(), StatusCode: intPtr(504)}
	}

	var se *StatusError
	if errors.As(err, &se) {
		code := se.StatusCode
		info := ErrorInfo{Message: err.Error(), StatusCode: &code}
		body := strings.ToLower(se.Body)
		switch {
		case code == 401 || code == 403:
			info.Type = ErrAuth
		case code == 429:
			info.Type = ErrRateLimit
		case code == 402 || strings.Contains(body, "insufficient_quota") ||
			strings.Contains(body, "insufficient credit") || strings.Contains(body, "credit balance"):
			info.Type = ErrInsufficientCredits
		case code == 404:
			info.Type = ErrNotFound
		case code == 400:
			info.Type = ErrBadRequest
		default:
			info.Type = ErrUnknown
		}
		return info
	}

	return ErrorInfo{Type: ErrUnknown, Message: err.Error(), StatusCode: intPtr(500)}
}

func intPtr(n int) *int { return &n }

// transientMarkers are the message fragments that mark a transport-level
// failure worth an immediate retry even when no HTTP status is available.
var transientMarkers = []string{
	"502", "503", "504",
	"timeout",
	"connection reset",
	"connection refused",
	"temporary failure",
}

// Retryable reports whether an error is worth an in-process retry:
// upstream 5xx, or a transport error whose message marks it transient.
// Everything else either will not improve (auth, bad request) or is
// handled by the queue's attempt counter (rate limits).
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
