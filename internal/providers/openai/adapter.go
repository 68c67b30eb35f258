// Package openai implements the OpenAI-compatible chat completions
// dialect. Most of the roster speaks it: OpenAI itself plus Groq,
// Together, OpenRouter, DeepSeek, Cerebras, Mistral, Fireworks and
// SambaNova, so one adapter instance exists per provider key.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jordanhubbard/benchhub/internal/catalog"
	"github.com/jordanhubbard/benchhub/internal/providers"
)

// Adapter implements providers.Adapter for any OpenAI-compatible API.
type Adapter struct {
	key     string
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates an adapter for one OpenAI-compatible provider. A nil client
// gets the shared default with the standard connect timeout.
func New(key, apiKey, baseURL string, client *http.Client) *Adapter {
	if client == nil {
		client = providers.NewHTTPClient(catalog.ConnectTimeout)
	}
	return &Adapter{key: key, apiKey: apiKey, baseURL: baseURL, client: client}
}

func (a *Adapter) ProviderKey() string { return a.key }

func (a *Adapter) Benchmark(ctx context.Context, model string) providers.Envelope {
	payload := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": catalog.SystemPrompt},
			{"role": "user", "content": catalog.UserPrompt()},
		},
		"temperature": catalog.Temperature,
		"stream":      true,
		// Without this the final chunk carries no usage block and every
		// token count would have to be estimated.
		"stream_options": map[string]bool{"include_usage": true},
	}

	open := func(ctx context.Context) (io.ReadCloser, error) {
		return providers.DoStreamRequest(ctx, a.client, a.baseURL+"/chat/completions", payload, map[string]string{
			"Authorization": "Bearer " + a.apiKey,
		})
	}

	return providers.RunStreaming(ctx, a.key, model, catalog.TimeoutFor(model), open, consumeStream)
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens            int `json:"prompt_tokens"`
		CompletionTokens        int `json:"completion_tokens"`
		CompletionTokensDetails *struct {
			ReasoningTokens int `json:"reasoning_tokens"`
		} `json:"completion_tokens_details"`
	} `json:"usage"`
}

func consumeStream(r io.Reader, c *providers.Collector) error {
	return providers.ScanSSE(r, func(data string) error {
		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return fmt.Errorf("malformed stream chunk: %w", err)
		}
		if len(chunk.Choices) > 0 {
			delta := chunk.Choices[0].Delta
			if delta.ReasoningContent != "" {
				c.MarkFirstToken()
			}
			c.OnText(delta.Content)
		}
		if chunk.Usage != nil {
			c.SetUsage(chunk.Usage.PromptTokens, chunk.Usage.CompletionTokens)
			if d := chunk.Usage.CompletionTokensDetails; d != nil && d.ReasoningTokens > 0 {
				c.SetReasoningTokens(d.ReasoningTokens)
			}
		}
		return nil
	})
}
