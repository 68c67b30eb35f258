// Package registry builds the adapter set from the catalog at startup.
// Every catalog provider gets an entry: providers without an API key in
// the environment get a stub that reports CONFIG_ERROR, so their queue
// items fail fast with a classified result instead of being skipped.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/jordanhubbard/benchhub/internal/catalog"
	"github.com/jordanhubbard/benchhub/internal/providers"
	"github.com/jordanhubbard/benchhub/internal/providers/anthropic"
	"github.com/jordanhubbard/benchhub/internal/providers/google"
	"github.com/jordanhubbard/benchhub/internal/providers/openai"
)

// Registry resolves provider keys to adapters.
type Registry struct {
	adapters map[string]providers.Adapter
}

// New builds adapters for every catalog provider. API keys come from
// getenv (os.Getenv in production, a fake in tests). One HTTP client is
// shared across all adapters; nil means the package default.
func New(getenv func(string) string, client *http.Client, log *slog.Logger) *Registry {
	if client == nil {
		client = providers.NewHTTPClient(catalog.ConnectTimeout)
	}
	adapters := make(map[string]providers.Adapter, len(catalog.Providers))
	for key, p := range catalog.Providers {
		apiKey := strings.TrimSpace(getenv(p.EnvKey))
		if apiKey == "" {
			log.Warn("provider not configured", "provider", key, "env_key", p.EnvKey)
			adapters[key] = unconfigured{key: key, envKey: p.EnvKey}
			continue
		}
		switch p.Style {
		case catalog.StyleOpenAI:
			adapters[key] = openai.New(key, apiKey, p.BaseURL, client)
		case catalog.StyleAnthropic:
			adapters[key] = anthropic.New(key, apiKey, p.BaseURL, client)
		case catalog.StyleGoogle:
			adapters[key] = google.New(key, apiKey, p.BaseURL, client)
		default:
			log.Error("unknown provider style", "provider", key, "style", p.Style)
			adapters[key] = broken{key: key, style: p.Style}
		}
	}
	return &Registry{adapters: adapters}
}

// Get returns the adapter for a provider key.
func (r *Registry) Get(key string) (providers.Adapter, bool) {
	a, ok := r.adapters[key]
	return a, ok
}

// Keys returns all registered provider keys, sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.adapters))
	for k := range r.adapters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Configured returns the provider keys backed by a real adapter.
func (r *Registry) Configured() []string {
	var keys []string
	for k, a := range r.adapters {
		if _, stub := a.(unconfigured); stub {
			continue
		}
		if _, stub := a.(broken); stub {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type unconfigured struct {
	key    string
	envKey string
}

func (u unconfigured) ProviderKey() string { return u.key }

func (u unconfigured) Benchmark(_ context.Context, model string) providers.Envelope {
	return providers.Envelope{
		Provider: u.key,
		Model:    model,
		Err: &providers.ErrorInfo{
			Type:    providers.ErrConfig,
			Message: fmt.Sprintf("API key not configured: %s is not set", u.envKey),
		},
	}
}

type broken struct {
	key   string
	style string
}

func (b broken) ProviderKey() string { return b.key }

func (b broken) Benchmark(_ context.Context, model string) providers.Envelope {
	return providers.Envelope{
		Provider: b.key,
		Model:    model,
		Err: &providers.ErrorInfo{
			Type:    providers.ErrInit,
			Message: fmt.Sprintf("no adapter for provider style %q", b.style),
		},
	}
}
