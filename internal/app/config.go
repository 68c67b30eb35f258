package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jordanhubbard/benchhub/internal/runner"
	"github.com/jordanhubbard/benchhub/internal/scheduler"
)

type Config struct {
	ListenAddr string
	LogLevel   string

	// DBType is kept for deploy configs from the hosted era: "supabase"
	// or "local". Both open the embedded SQLite store.
	DBType string
	DBDSN  string

	// Budget circuit breaker cap, USD over a rolling 24h window.
	BudgetCapUSD float64

	// Batch size for scheduled processing ticks.
	BatchSize int

	// Seconds between dispatches to one provider. Zero disables pacing.
	ProviderPaceSecs int

	DisableScheduler bool

	// Control API hardening.
	CORSOrigins    []string // allowed CORS origins; empty = ["*"]
	RateLimitRPS   int      // requests per second per IP
	RateLimitBurst int      // burst capacity per IP

	// OpenTelemetry tracing.
	OTelEnabled  bool
	OTelEndpoint string
}

func LoadConfig() (Config, error) {
	cfg := Config{
		ListenAddr: getEnv("BENCHHUB_LISTEN_ADDR", ":8080"),
		LogLevel:   getEnv("BENCHHUB_LOG_LEVEL", "info"),

		DBType: strings.ToLower(getEnv("DB_TYPE", "supabase")),
		DBDSN:  getEnv("BENCHHUB_DB_DSN", "file:/data/benchhub.sqlite"),

		BudgetCapUSD: getEnvFloat("BENCHMARK_BUDGET_CAP", 15.0),

		BatchSize:        getEnvInt("BENCHHUB_BATCH_SIZE", 10),
		ProviderPaceSecs: getEnvInt("BENCHHUB_PACE_SECS", 2),

		DisableScheduler: scheduler.Disabled(os.Getenv("DISABLE_SCHEDULER")),

		CORSOrigins:    getEnvStringSlice("BENCHHUB_CORS_ORIGINS", nil),
		RateLimitRPS:   getEnvInt("BENCHHUB_RATE_LIMIT_RPS", 60),
		RateLimitBurst: getEnvInt("BENCHHUB_RATE_LIMIT_BURST", 120),

		OTelEnabled:  getEnvBool("BENCHHUB_OTEL_ENABLED", false),
		OTelEndpoint: getEnv("BENCHHUB_OTEL_ENDPOINT", "localhost:4318"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks config values for obviously invalid settings.
func (c Config) Validate() error {
	if c.DBType != "supabase" && c.DBType != "local" {
		return fmt.Errorf("DB_TYPE must be supabase or local, got %q", c.DBType)
	}
	if c.BudgetCapUSD < 0 {
		return fmt.Errorf("BENCHMARK_BUDGET_CAP must be >= 0, got %f", c.BudgetCapUSD)
	}
	if c.BatchSize < 1 || c.BatchSize > runner.MaxBatchSize {
		return fmt.Errorf("BENCHHUB_BATCH_SIZE must be between 1 and %d, got %d", runner.MaxBatchSize, c.BatchSize)
	}
	if c.ProviderPaceSecs < 0 {
		return fmt.Errorf("BENCHHUB_PACE_SECS must be >= 0, got %d", c.ProviderPaceSecs)
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("BENCHHUB_RATE_LIMIT_RPS must be > 0, got %d", c.RateLimitRPS)
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("BENCHHUB_RATE_LIMIT_BURST must be > 0, got %d", c.RateLimitBurst)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getEnvStringSlice(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		var result []string
		for _, s := range strings.Split(v, ",") {
			s = strings.TrimSpace(s)
			if s != "" {
				result = append(result, s)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return def
}
