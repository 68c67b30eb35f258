package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jordanhubbard/benchhub/internal/budget"
	"github.com/jordanhubbard/benchhub/internal/catalog"
	"github.com/jordanhubbard/benchhub/internal/httpapi"
	"github.com/jordanhubbard/benchhub/internal/logging"
	"github.com/jordanhubbard/benchhub/internal/metrics"
	"github.com/jordanhubbard/benchhub/internal/pricing"
	"github.com/jordanhubbard/benchhub/internal/providers"
	"github.com/jordanhubbard/benchhub/internal/providers/registry"
	"github.com/jordanhubbard/benchhub/internal/ratelimit"
	"github.com/jordanhubbard/benchhub/internal/runner"
	"github.com/jordanhubbard/benchhub/internal/scheduler"
	"github.com/jordanhubbard/benchhub/internal/store"
	"github.com/jordanhubbard/benchhub/internal/tracing"
)

type Server struct {
	cfg Config

	r *chi.Mux

	store   store.Store
	runner  *runner.Runner
	sched   *scheduler.Scheduler
	limiter *ratelimit.Limiter
	logger  *slog.Logger

	traceShutdown func(context.Context) error
}

func NewServer(cfg Config) (*Server, error) {
	logger := logging.Setup(cfg.LogLevel)

	traceShutdown, err := tracing.Setup(tracing.Config{
		Enabled:     cfg.OTelEnabled,
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: "benchhub",
	})
	if err != nil {
		return nil, err
	}

	if cfg.DBType == "supabase" {
		logger.Info("DB_TYPE=supabase served by the embedded sqlite store", "dsn", cfg.DBDSN)
	}
	db, err := store.NewSQLite(cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("database initialized", slog.String("dsn", cfg.DBDSN))

	// One HTTP client for all provider adapters; the OTel transport puts
	// traceparent on every outgoing benchmark call.
	client := providers.NewHTTPClient(catalog.ConnectTimeout)
	client.Transport = tracing.HTTPTransport(client.Transport)
	reg := registry.New(os.Getenv, client, logger)
	logger.Info("providers registered",
		"configured", len(reg.Configured()), "total", len(reg.Keys()))

	m := metrics.New()
	breaker := budget.New(db, cfg.BudgetCapUSD, logger)
	prices := pricing.New(db, logger)
	pacer := ratelimit.NewPacer(time.Duration(cfg.ProviderPaceSecs) * time.Second)
	run := runner.New(db, reg, prices, breaker, pacer, m, logger)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	limiter := ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst, time.Second,
		ratelimit.WithCounter(m.RateLimitedTotal))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(tracing.Middleware())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(limiter.Middleware)

	httpapi.MountRoutes(r, httpapi.Dependencies{
		Store:    db,
		Runner:   run,
		Budget:   breaker,
		Pricing:  prices,
		Registry: reg,
		Metrics:  m,
		Log:      logger,
	})

	s := &Server{
		cfg:           cfg,
		r:             r,
		store:         db,
		runner:        run,
		limiter:       limiter,
		logger:        logger,
		traceShutdown: traceShutdown,
	}

	if cfg.DisableScheduler {
		logger.Info("scheduler disabled, runs are triggered over HTTP only")
	} else {
		s.sched = scheduler.New(run, db, cfg.BatchSize, logger)
		s.sched.Start()
	}

	return s, nil
}

func (s *Server) Router() http.Handler { return s.r }

func (s *Server) Close() error {
	if s.sched != nil {
		s.sched.Stop()
	}
	s.limiter.Stop()
	if s.traceShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.traceShutdown(ctx); err != nil {
			s.logger.Warn("trace shutdown failed", "error", err)
		}
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
