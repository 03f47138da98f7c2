// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olegiv/yoga-i18n/internal/cache"
	"github.com/olegiv/yoga-i18n/internal/cli"
	"github.com/olegiv/yoga-i18n/internal/config"
	"github.com/olegiv/yoga-i18n/internal/handler/api"
	"github.com/olegiv/yoga-i18n/internal/llm"
	"github.com/olegiv/yoga-i18n/internal/logging"
	"github.com/olegiv/yoga-i18n/internal/middleware"
	"github.com/olegiv/yoga-i18n/internal/queue"
	"github.com/olegiv/yoga-i18n/internal/scheduler"
	"github.com/olegiv/yoga-i18n/internal/store"
	"github.com/olegiv/yoga-i18n/internal/translation"
	"github.com/olegiv/yoga-i18n/internal/version"
)

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "yoga-i18n - content translation service\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  YOGA_DB_PATH           SQLite database path (default: ./data/yoga-i18n.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  YOGA_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  YOGA_ENV               Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  YOGA_API_TOKEN         Bearer token for /api/v1 (required in production)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  YOGA_LLM_PROVIDER      gemini|openai|groq|ollama (default: gemini)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  YOGA_LLM_API_KEY       Model provider API key\n")
		_, _ = fmt.Fprintf(os.Stderr, "  YOGA_REDIS_URL         Redis URL for distributed caching (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Printf("yoga-i18n %s\n", version.Get())
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	queries := store.New(db)

	// Mirror WARN and ERROR logs into the event log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, queries))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	var gen llm.Generator
	if cfg.LLMConfigured() {
		client, err := llm.NewClient(llm.Config{
			Provider:      cfg.LLMProvider,
			APIKey:        cfg.LLMAPIKey,
			BaseURL:       cfg.LLMBaseURL,
			Timeout:       cfg.LLMTimeout,
			MaxRetries:    cfg.LLMMaxRetries,
			RatePerSecond: cfg.LLMRatePerSecond,
		}, logger)
		if err != nil {
			return fmt.Errorf("creating llm client: %w", err)
		}
		gen = client
		slog.Info("language model configured", "provider", cfg.LLMProvider, "model", cfg.LLMModel)
	}

	backend := cache.New(cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: cfg.CacheDuration(),
	}, logger)
	defer func() { _ = backend.Close() }()
	cacheStats, _ := backend.(cache.StatsProvider)

	translator := translation.NewService(queries, gen,
		cache.NewLocalizedCache(backend, cfg.CacheDuration()),
		cli.TranslationConfig(cfg), logger)
	processor := queue.NewProcessor(queries, translator, logger)

	var jobs *scheduler.Registry
	if cfg.SchedulerEnabled {
		sched := scheduler.New(logger)
		jobList := []scheduler.Job{
			scheduler.DiscoveryJob(processor, cfg.DiscoverySchedule, cfg.DiscoveryLimit, logger),
			scheduler.EventPruneJob(queries, cfg.EventPruneSchedule, cfg.EventRetention, logger),
		}
		if translator.Configured() {
			jobList = append(jobList, scheduler.QueueJob(processor, cfg.QueueSchedule, cfg.QueueLimit, logger))
		} else {
			slog.Warn("language model is not configured; queue processing job is not scheduled")
		}
		for _, job := range jobList {
			if err := sched.Add(job); err != nil {
				return fmt.Errorf("scheduling %s: %w", job.Name, err)
			}
		}
		sched.Start()
		defer sched.Stop()
		jobs = sched.Registry()
		slog.Info("scheduler started", "queue", cfg.QueueSchedule, "discovery", cfg.DiscoverySchedule)
	}

	apiHandler := api.NewHandler(api.Config{
		DB:         db,
		Translator: translator,
		Queue:      processor,
		Jobs:       jobs,
		CacheStats: cacheStats,
		Logger:     logger,
	})

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.StripTrailingSlash)

	securityCfg := middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())
	securityCfg.ExcludePaths = []string{"/metrics"}
	r.Use(middleware.SecurityHeaders(securityCfg))

	rateLimiter := middleware.NewRateLimiter(cfg.APIRateLimit, cfg.APIRateBurst)
	if cfg.APIToken == "" {
		slog.Warn("YOGA_API_TOKEN is not set; the API accepts unauthenticated requests")
	}

	r.With(middleware.Timeout(cfg.RequestTimeout)).Mount("/api/v1", apiHandler.Routes(
		middleware.BearerAuth(cfg.APIToken),
		rateLimiter.Middleware(),
	))
	r.Get("/health", apiHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 10*time.Second, // translation calls run inside the request
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
