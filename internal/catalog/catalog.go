// Package catalog is the static table of benchmarked providers and models.
// The registry is populated from it at process start; an unknown provider
// key is a startup error, never a runtime one.
package catalog

import (
	"fmt"
	"time"
)

// API styles a provider speaks. OpenAI-compatible providers share one
// adapter; Anthropic and Google carry their own wire formats.
const (
	StyleOpenAI    = "openai"
	StyleAnthropic = "anthropic"
	StyleGoogle    = "google"
)

// Provider describes one upstream API.
type Provider struct {
	Key         string // stable key used in queue rows and env lookups
	DisplayName string // human name persisted in the providers table
	BaseURL     string
	EnvKey      string // environment variable holding the API key
	Style       string

	// Fallback $/1M-token rates used when the prices table has no row.
	DefaultInputPerM  float64
	DefaultOutputPerM float64
}

// Model is one benchmarked (provider, model) pair.
type Model struct {
	ProviderKey string
	Name        string // raw name as the provider API expects it
	Category    string // flagship, budget, reasoning, speed, heavyweight, specialist
	Note        string
}

// Providers lists every supported upstream, keyed by provider key.
var Providers = map[string]Provider{
	"openai": {
		Key: "openai", DisplayName: "OpenAI",
		BaseURL: "https://api.openai.com/v1", EnvKey: "OPENAI_API_KEY",
		Style: StyleOpenAI, DefaultInputPerM: 2.50, DefaultOutputPerM: 10.00,
	},
	"anthropic": {
		Key: "anthropic", DisplayName: "Anthropic",
		BaseURL: "https://api.anthropic.com", EnvKey: "ANTHROPIC_API_KEY",
		Style: StyleAnthropic, DefaultInputPerM: 3.00, DefaultOutputPerM: 15.00,
	},
	"google": {
		Key: "google", DisplayName: "Google",
		BaseURL: "https://generativelanguage.googleapis.com", EnvKey: "GOOGLE_API_KEY",
		Style: StyleGoogle, DefaultInputPerM: 1.25, DefaultOutputPerM: 5.00,
	},
	"groq": {
		Key: "groq", DisplayName: "Groq",
		BaseURL: "https://api.groq.com/openai/v1", EnvKey: "GROQ_API_KEY",
		Style: StyleOpenAI, DefaultInputPerM: 0.59, DefaultOutputPerM: 0.79,
	},
	"together": {
		Key: "together", DisplayName: "Together AI",
		BaseURL: "https://api.together.xyz/v1", EnvKey: "TOGETHER_API_KEY",
		Style: StyleOpenAI, DefaultInputPerM: 0.88, DefaultOutputPerM: 0.88,
	},
	"openrouter": {
		Key: "openrouter", DisplayName: "OpenRouter",
		BaseURL: "https://openrouter.ai/api/v1", EnvKey: "OPENROUTER_API_KEY",
		Style: StyleOpenAI, DefaultInputPerM: 1.00, DefaultOutputPerM: 1.00,
	},
	"deepseek": {
		Key: "deepseek", DisplayName: "DeepSeek",
		BaseURL: "https://api.deepseek.com/v1", EnvKey: "DEEPSEEK_API_KEY",
		Style: StyleOpenAI, DefaultInputPerM: 0.27, DefaultOutputPerM: 1.10,
	},
	"cerebras": {
		Key: "cerebras", DisplayName: "Cerebras",
		BaseURL: "https://api.cerebras.ai/v1", EnvKey: "CEREBRAS_API_KEY",
		Style: StyleOpenAI, DefaultInputPerM: 0.85, DefaultOutputPerM: 1.20,
	},
	"mistral": {
		Key: "mistral", DisplayName: "Mistral AI",
		BaseURL: "https://api.mistral.ai/v1", EnvKey: "MISTRAL_API_KEY",
		Style: StyleOpenAI, DefaultInputPerM: 2.00, DefaultOutputPerM: 6.00,
	},
	"fireworks": {
		Key: "fireworks", DisplayName: "Fireworks AI",
		BaseURL: "https://api.fireworks.ai/inference/v1", EnvKey: "FIREWORKS_API_KEY",
		Style: StyleOpenAI, DefaultInputPerM: 0.90, DefaultOutputPerM: 0.90,
	},
	"sambanova": {
		Key: "sambanova", DisplayName: "SambaNova",
		BaseURL: "https://api.sambanova.ai/v1", EnvKey: "SAMBANOVA_API_KEY",
		Style: StyleOpenAI, DefaultInputPerM: 0.60, DefaultOutputPerM: 1.20,
	},
}

// ActiveModels is the benchmark roster. Discovery inserts models inactive;
// an activation pass flips exactly this set to active.
var ActiveModels = []Model{
	// OpenAI
	{ProviderKey: "openai", Name: "gpt-4o-mini", Category: "budget", Note: "baseline budget model"},
	{ProviderKey: "openai", Name: "gpt-4o", Category: "flagship", Note: "GPT-4 Optimized flagship"},
	{ProviderKey: "openai", Name: "o3", Category: "reasoning", Note: "latest reasoning model"},
	{ProviderKey: "openai", Name: "o4-mini", Category: "reasoning", Note: "budget reasoning model"},

	// Anthropic
	{ProviderKey: "anthropic", Name: "claude-sonnet-4-5-20250929", Category: "flagship", Note: "Sonnet 4.5 flagship"},
	{ProviderKey: "anthropic", Name: "claude-haiku-4-5-20251001", Category: "budget", Note: "Haiku 4.5 fast & cheap"},
	{ProviderKey: "anthropic", Name: "claude-sonnet-4-20250514", Category: "flagship", Note: "celebrity benchmark"},

	// Google
	{ProviderKey: "google", Name: "models/gemini-2.5-pro", Category: "flagship", Note: "best quality"},
	{ProviderKey: "google", Name: "models/gemini-2.5-flash", Category: "speed", Note: "fast & cheap"},

	// DeepSeek
	{ProviderKey: "deepseek", Name: "deepseek-chat", Category: "budget", Note: "V3 ultra budget"},
	{ProviderKey: "deepseek", Name: "deepseek-reasoner", Category: "reasoning", Note: "R1 reasoning"},

	// Groq
	{ProviderKey: "groq", Name: "llama-3.3-70b-versatile", Category: "speed", Note: "Llama 3.3 on LPU"},
	{ProviderKey: "groq", Name: "llama-3.1-8b-instant", Category: "speed", Note: "ultra-fast 8B"},

	// Together AI
	{ProviderKey: "together", Name: "mistralai/Mixtral-8x7B-Instruct-v0.1", Category: "flagship", Note: "Mixtral MoE"},
	{ProviderKey: "together", Name: "meta-llama/Llama-3.3-70B-Instruct-Turbo", Category: "flagship", Note: "Llama 3.3"},
	{ProviderKey: "together", Name: "Qwen/Qwen2.5-72B-Instruct-Turbo", Category: "flagship", Note: "Qwen 2.5"},
	{ProviderKey: "together", Name: "meta-llama/Meta-Llama-3.1-405B-Instruct-Turbo", Category: "heavyweight", Note: "405B giant"},

	// Infrastructure providers
	{ProviderKey: "cerebras", Name: "llama-3.3-70b", Category: "speed", Note: "wafer-scale engine"},
	{ProviderKey: "mistral", Name: "mistral-large-latest", Category: "flagship", Note: "European flagship"},
	{ProviderKey: "mistral", Name: "codestral-latest", Category: "specialist", Note: "code specialist"},
	{ProviderKey: "fireworks", Name: "accounts/fireworks/models/llama-v3p3-70b-instruct", Category: "speed", Note: "low latency"},
	{ProviderKey: "sambanova", Name: "Meta-Llama-3.3-70B-Instruct", Category: "flagship", Note: "RDU chip"},

	// OpenRouter (router-tax analysis)
	{ProviderKey: "openrouter", Name: "openai/gpt-4o-mini", Category: "budget", Note: "compare vs direct"},
	{ProviderKey: "openrouter", Name: "openai/gpt-4o", Category: "flagship", Note: "compare vs direct"},
	{ProviderKey: "openrouter", Name: "meta-llama/llama-3.3-70b-instruct", Category: "flagship", Note: "Llama via router"},
	{ProviderKey: "openrouter", Name: "deepseek/deepseek-chat", Category: "budget", Note: "compare vs direct"},
}

// Per-request timeouts. Reasoning models spend a long time planning before
// the first token, so they get double the budget.
const (
	DefaultTimeout   = 60 * time.Second
	ReasoningTimeout = 120 * time.Second
	ConnectTimeout   = 10 * time.Second
)

// reasoningModels is derived from ActiveModels at init; membership is a
// catalog property, never inferred from the model name.
var reasoningModels = func() map[string]bool {
	set := make(map[string]bool)
	for _, m := range ActiveModels {
		if m.Category == "reasoning" {
			set[m.Name] = true
		}
	}
	return set
}()

// IsReasoningModel reports whether the model is flagged as a reasoning
// model in the catalog.
func IsReasoningModel(name string) bool {
	return reasoningModels[name]
}

// TimeoutFor returns the per-request timeout for a model.
func TimeoutFor(model string) time.Duration {
	if IsReasoningModel(model) {
		return ReasoningTimeout
	}
	return DefaultTimeout
}

// Lookup returns the provider entry for key, or an error naming the key.
func Lookup(key string) (Provider, error) {
	p, ok := Providers[key]
	if !ok {
		return Provider{}, fmt.Errorf("unknown provider key %q", key)
	}
	return p, nil
}

// Pairs returns the active (provider_key, model_name) roster in catalog
// order, the unit the queue is populated from.
func Pairs() [][2]string {
	out := make([][2]string, 0, len(ActiveModels))
	for _, m := range ActiveModels {
		out = append(out, [2]string{m.ProviderKey, m.Name})
	}
	return out
}

// ModelsFor returns the active model names for one provider.
func ModelsFor(providerKey string) []string {
	var names []string
	for _, m := range ActiveModels {
		if m.ProviderKey == providerKey {
			names = append(names, m.Name)
		}
	}
	return names
}
