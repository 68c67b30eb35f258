package providers

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// maxStreamTries bounds in-process retries of one benchmark call. The
// queue's attempt counter handles anything beyond this.
const maxStreamTries = 3

// Collector accumulates the measurements of one streaming attempt. The
// adapters feed it from their wire-format parsers; the harness turns it
// into Metrics. All timestamps come from the monotonic clock.
type Collector struct {
	start time.Time
	first time.Time
	end   time.Time

	buf             strings.Builder
	inputTokens     int
	outputTokens    int
	reasoningTokens *int
}

// OnText appends streamed content. The first non-empty chunk fixes the
// time-to-first-token mark.
func (c *Collector) OnText(s string) {
	if s == "" {
		return
	}
	if c.first.IsZero() {
		c.first = time.Now()
	}
	c.buf.WriteString(s)
}

// MarkFirstToken fixes the time-to-first-token mark without contributing
// content. Reasoning streams emit thinking deltas before any visible text;
// those count as the model's first output.
func (c *Collector) MarkFirstToken() {
	if c.first.IsZero() {
		c.first = time.Now()
	}
}

// SetUsage records provider-reported token counts. Zero values are kept
// as-is; the persistence layer estimates replacements.
func (c *Collector) SetUsage(input, output int) {
	c.inputTokens = input
	c.outputTokens = output
}

// SetReasoningTokens records the hidden reasoning token count, for models
// that report one.
func (c *Collector) SetReasoningTokens(n int) {
	c.reasoningTokens = &n
}

// Text returns the accumulated response content.
func (c *Collector) Text() string { return c.buf.String() }

func (c *Collector) metrics() Metrics {
	m := Metrics{
		TotalLatencyMs:  float64(c.end.Sub(c.start)) / float64(time.Millisecond),
		InputTokens:     c.inputTokens,
		OutputTokens:    c.outputTokens,
		ReasoningTokens: c.reasoningTokens,
	}
	if !c.first.IsZero() {
		ttft := float64(c.first.Sub(c.start)) / float64(time.Millisecond)
		m.TTFTMs = &ttft
		// Throughput over the generation interval only. The first token
		// is the interval's origin, so it is excluded from the numerator.
		if gen := c.end.Sub(c.first); c.outputTokens > 1 && gen > 0 {
			tps := float64(c.outputTokens-1) / gen.Seconds()
			m.TPS = &tps
		}
	}
	return m
}

// ConsumeFunc parses one provider's stream dialect into the collector.
type ConsumeFunc func(r io.Reader, c *Collector) error

// RunStreaming executes one benchmark call: open the stream, consume it,
// measure. Upstream 5xx responses and transient transport failures, on
// open or mid-stream, are retried in-process with exponential backoff
// (1s, 2s, 4s); every other failure is final here and classified into
// the envelope. A stream that completes without content is recorded as
// EMPTY_RESPONSE.
func RunStreaming(ctx context.Context, providerKey, model string, timeout time.Duration,
	open func(ctx context.Context) (io.ReadCloser, error), consume ConsumeFunc) (env Envelope) {

	defer func() {
		if r := recover(); r != nil {
			env = Envelope{
				Provider: providerKey,
				Model:    model,
				Err:      &ErrorInfo{Type: ErrProviderCrash, Message: fmt.Sprintf("adapter panic: %v", r)},
			}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outerStart := time.Now()

	op := func() (*Collector, error) {
		c := &Collector{start: time.Now()}
		body, err := open(ctx)
		if err != nil {
			if Retryable(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		defer func() { _ = body.Close() }()
		if err := consume(body, c); err != nil {
			// A stream can drop mid-read for the same transient reasons
			// the open can fail; both go through the same retry gate.
			if Retryable(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		c.end = time.Now()
		return c, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.MaxInterval = 10 * time.Second
	b.RandomizationFactor = 0

	c, err := backoff.Retry(ctx, op, backoff.WithBackOff(b), backoff.WithMaxTries(maxStreamTries))
	if err != nil {
		elapsed := float64(time.Since(outerStart)) / float64(time.Millisecond)
		return Failure(providerKey, model, Metrics{TotalLatencyMs: elapsed}, err)
	}

	text := c.Text()
	if strings.TrimSpace(text) == "" {
		// The upstream call itself succeeded, so the failure row records
		// the 200 it answered with.
		return Envelope{
			Provider: providerKey,
			Model:    model,
			Metrics:  c.metrics(),
			Err: &ErrorInfo{
				Type:       ErrEmptyResponse,
				Message:    "stream completed with no content",
				StatusCode: intPtr(200),
			},
		}
	}

	return Envelope{
		Provider: providerKey,
		Model:    model,
		Success:  true,
		Metrics:  c.metrics(),
		Response: text,
	}
}
