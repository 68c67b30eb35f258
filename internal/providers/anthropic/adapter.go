// Package anthropic implements the Anthropic Messages streaming dialect.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jordanhubbard/benchhub/internal/catalog"
	"github.com/jordanhubbard/benchhub/internal/providers"
)

const apiVersion = "2023-06-01"

// maxTokens bounds the completion. The prompt asks for three bullet
// points; anything near this limit means the model ran away.
const maxTokens = 1024

// Adapter implements providers.Adapter for Anthropic.
type Adapter struct {
	key     string
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates an Anthropic adapter. A nil client gets the shared default.
func New(key, apiKey, baseURL string, client *http.Client) *Adapter {
	if client == nil {
		client = providers.NewHTTPClient(catalog.ConnectTimeout)
	}
	return &Adapter{key: key, apiKey: apiKey, baseURL: baseURL, client: client}
}

func (a *Adapter) ProviderKey() string { return a.key }

func (a *Adapter) Benchmark(ctx context.Context, model string) providers.Envelope {
	payload := map[string]any{
		"model":      model,
		"max_tokens": maxTokens,
		"system":     catalog.SystemPrompt,
		"messages": []map[string]string{
			{"role": "user", "content": catalog.UserPrompt()},
		},
		"temperature": catalog.Temperature,
		"stream":      true,
	}

	open := func(ctx context.Context) (io.ReadCloser, error) {
		return providers.DoStreamRequest(ctx, a.client, a.baseURL+"/v1/messages", payload, map[string]string{
			"x-api-key":         a.apiKey,
			"anthropic-version": apiVersion,
		})
	}

	return providers.RunStreaming(ctx, a.key, model, catalog.TimeoutFor(model), open, consumeStream)
}

// streamEvent covers the union of the SSE event payloads we care about:
// message_start carries input usage, content_block_delta the text, and
// message_delta the final output token count.
type streamEvent struct {
	Type    string `json:"type"`
	Message *struct {
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	} `json:"message"`
	Delta *struct {
		Type     string `json:"type"`
		Text     string `json:"text"`
		Thinking string `json:"thinking"`
	} `json:"delta"`
	Usage *struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func consumeStream(r io.Reader, c *providers.Collector) error {
	var inputTokens, outputTokens int
	err := providers.ScanSSE(r, func(data string) error {
		var ev streamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return fmt.Errorf("malformed stream event: %w", err)
		}
		switch ev.Type {
		case "message_start":
			if ev.Message != nil {
				inputTokens = ev.Message.Usage.InputTokens
				outputTokens = ev.Message.Usage.OutputTokens
			}
		case "content_block_delta":
			if ev.Delta != nil {
				if ev.Delta.Thinking != "" {
					c.MarkFirstToken()
				}
				c.OnText(ev.Delta.Text)
			}
		case "message_delta":
			if ev.Usage != nil && ev.Usage.OutputTokens > 0 {
				outputTokens = ev.Usage.OutputTokens
			}
		case "error":
			return fmt.Errorf("stream error event: %s", data)
		}
		return nil
	})
	c.SetUsage(inputTokens, outputTokens)
	return err
}
