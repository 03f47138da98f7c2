// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/olegiv/yoga-i18n/internal/cache"
	"github.com/olegiv/yoga-i18n/internal/config"
	"github.com/olegiv/yoga-i18n/internal/llm"
	"github.com/olegiv/yoga-i18n/internal/queue"
	"github.com/olegiv/yoga-i18n/internal/store"
	"github.com/olegiv/yoga-i18n/internal/translation"
)

// Env holds the services commands run against.
type Env struct {
	DB         *sql.DB
	Queries    *store.Queries
	Translator *translation.Service
	Queue      *queue.Processor
	Logger     *slog.Logger

	closers []func() error
}

// Close releases the cache and database.
func (e *Env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i]())
	}
	return errors.Join(errs...)
}

// Opener builds an Env. Tests substitute one backed by a temp database.
type Opener func(logger *slog.Logger) (*Env, error)

// OpenFromEnvironment loads .env and YOGA_* variables and wires the same
// services the HTTP server uses.
func OpenFromEnvironment(logger *slog.Logger) (*Env, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

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
			_ = db.Close()
			return nil, fmt.Errorf("creating llm client: %w", err)
		}
		gen = client
	}

	// Redis, when configured, is shared with the server so writes made
	// here invalidate what it serves.
	backend := cache.New(cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: cfg.CacheDuration(),
	}, logger)

	queries := store.New(db)
	svc := translation.NewService(queries, gen,
		cache.NewLocalizedCache(backend, cfg.CacheDuration()),
		TranslationConfig(cfg), logger)

	return &Env{
		DB:         db,
		Queries:    queries,
		Translator: svc,
		Queue:      queue.NewProcessor(queries, svc, logger),
		Logger:     logger,
		closers:    []func() error{db.Close, backend.Close},
	}, nil
}

// TranslationConfig maps application config onto the translation service.
func TranslationConfig(cfg *config.Config) translation.Config {
	return translation.Config{
		Model:              cfg.LLMModel,
		EconomyModel:       cfg.LLMEconomyModel,
		BatchSizeImmediate: cfg.BatchSizeImmediate,
		BatchSizeOnDemand:  cfg.BatchSizeOnDemand,
		BatchSizeBatch:     cfg.BatchSizeBatch,
		CallTimeout:        cfg.LLMCallBudget(),
		RetranslateStale:   cfg.RetranslateStale,
	}
}
