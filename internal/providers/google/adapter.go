// Package google implements the Gemini streamGenerateContent dialect.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jordanhubbard/benchhub/internal/catalog"
	"github.com/jordanhubbard/benchhub/internal/providers"
)

// Adapter implements providers.Adapter for the Gemini API.
type Adapter struct {
	key     string
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates a Gemini adapter. A nil client gets the shared default.
func New(key, apiKey, baseURL string, client *http.Client) *Adapter {
	if client == nil {
		client = providers.NewHTTPClient(catalog.ConnectTimeout)
	}
	return &Adapter{key: key, apiKey: apiKey, baseURL: baseURL, client: client}
}

func (a *Adapter) ProviderKey() string { return a.key }

func (a *Adapter) Benchmark(ctx context.Context, model string) providers.Envelope {
	payload := map[string]any{
		"systemInstruction": map[string]any{
			"parts": []map[string]string{{"text": catalog.SystemPrompt}},
		},
		"contents": []map[string]any{
			{
				"role":  "user",
				"parts": []map[string]string{{"text": catalog.UserPrompt()}},
			},
		},
		"generationConfig": map[string]any{
			"temperature": catalog.Temperature,
		},
	}

	// Catalog names already carry the models/ prefix the URL scheme wants.
	url := fmt.Sprintf("%s/v1beta/%s:streamGenerateContent?alt=sse", a.baseURL, model)

	open := func(ctx context.Context) (io.ReadCloser, error) {
		return providers.DoStreamRequest(ctx, a.client, url, payload, map[string]string{
			"x-goog-api-key": a.apiKey,
		})
	}

	return providers.RunStreaming(ctx, a.key, model, catalog.TimeoutFor(model), open, consumeStream)
}

type streamChunk struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		ThoughtsTokenCount   int `json:"thoughtsTokenCount"`
	} `json:"usageMetadata"`
}

func consumeStream(r io.Reader, c *providers.Collector) error {
	return providers.ScanSSE(r, func(data string) error {
		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return fmt.Errorf("malformed stream chunk: %w", err)
		}
		for _, cand := range chunk.Candidates {
			for _, part := range cand.Content.Parts {
				c.OnText(part.Text)
			}
		}
		if u := chunk.UsageMetadata; u != nil {
			c.SetUsage(u.PromptTokenCount, u.CandidatesTokenCount)
			if u.ThoughtsTokenCount > 0 {
				c.SetReasoningTokens(u.ThoughtsTokenCount)
			}
		}
		return nil
	})
}
