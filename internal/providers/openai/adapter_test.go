package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanhubbard/benchhub/internal/providers"
)

func sseServer(t *testing.T, check func(r *http.Request), lines ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, l := range lines {
			_, _ = w.Write([]byte("data: " + l + "\n\n"))
		}
	}))
}

func TestBenchmarkStreamsAndCollectsUsage(t *testing.T) {
	var body map[string]any
	srv := sseServer(t, func(r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	},
		`{"choices":[{"delta":{"content":"Hello"}}]}`,
		`{"choices":[{"delta":{"content":" world"}}]}`,
		`{"choices":[],"usage":{"prompt_tokens":450,"completion_tokens":2}}`,
		`[DONE]`,
	)
	defer srv.Close()

	a := New("groq", "sk-test", srv.URL, srv.Client())
	env := a.Benchmark(context.Background(), "llama-3.1-8b-instant")

	require.Nil(t, env.Err)
	assert.True(t, env.Success)
	assert.Equal(t, "groq", env.Provider)
	assert.Equal(t, "Hello world", env.Response)
	assert.Equal(t, 450, env.Metrics.InputTokens)
	assert.Equal(t, 2, env.Metrics.OutputTokens)
	assert.NotNil(t, env.Metrics.TTFTMs)
	assert.Greater(t, env.Metrics.TotalLatencyMs, 0.0)

	assert.Equal(t, "llama-3.1-8b-instant", body["model"])
	assert.Equal(t, true, body["stream"])
	assert.Equal(t, 0.7, body["temperature"])
	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	user := msgs[1].(map[string]any)
	assert.Contains(t, user["content"], "REQUEST ID: ")
	opts, ok := body["stream_options"].(map[string]any)
	require.True(t, ok, "stream_options must be present")
	assert.Equal(t, true, opts["include_usage"])
}

func TestBenchmarkReasoningDeltaStartsTTFT(t *testing.T) {
	srv := sseServer(t, nil,
		`{"choices":[{"delta":{"reasoning_content":"thinking..."}}]}`,
		`{"choices":[{"delta":{"content":"answer"}}]}`,
		`{"choices":[],"usage":{"prompt_tokens":450,"completion_tokens":40,"completion_tokens_details":{"reasoning_tokens":30}}}`,
		`[DONE]`,
	)
	defer srv.Close()

	a := New("deepseek", "sk-test", srv.URL, srv.Client())
	env := a.Benchmark(context.Background(), "deepseek-reasoner")

	require.True(t, env.Success)
	assert.Equal(t, "answer", env.Response)
	assert.NotNil(t, env.Metrics.TTFTMs)
	require.NotNil(t, env.Metrics.ReasoningTokens)
	assert.Equal(t, 30, *env.Metrics.ReasoningTokens)
}

func TestBenchmarkAuthFailureIsNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error":{"message":"invalid api key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	a := New("openai", "sk-bad", srv.URL, srv.Client())
	env := a.Benchmark(context.Background(), "gpt-4o-mini")

	assert.False(t, env.Success)
	require.NotNil(t, env.Err)
	assert.Equal(t, providers.ErrAuth, env.Err.Type)
	require.NotNil(t, env.Err.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, *env.Err.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestBenchmarkEmptyStreamFails(t *testing.T) {
	srv := sseServer(t, nil,
		`{"choices":[],"usage":{"prompt_tokens":450,"completion_tokens":0}}`,
		`[DONE]`,
	)
	defer srv.Close()

	a := New("mistral", "sk-test", srv.URL, srv.Client())
	env := a.Benchmark(context.Background(), "mistral-small-latest")

	assert.False(t, env.Success)
	require.NotNil(t, env.Err)
	assert.Equal(t, providers.ErrEmptyResponse, env.Err.Type)
}
