// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the periodic translation jobs: queue processing,
// discovery of untranslated entities and event log pruning.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler owns the cron instance and the job registry.
type Scheduler struct {
	cron     *cron.Cron
	logger   *slog.Logger
	registry *Registry

	// base is the parent context of scheduled runs; Stop cancels it.
	base   context.Context
	cancel context.CancelFunc
}

// New creates a new scheduler instance.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	base, cancel := context.WithCancel(context.Background())
	c := cron.New(
		cron.WithParser(scheduleParser),
		cron.WithLogger(cronLogger{logger}),
	)
	s := &Scheduler{
		cron:   c,
		logger: logger,
		base:   base,
		cancel: cancel,
	}
	s.registry = newRegistry(s)
	return s
}

// Registry returns the job registry.
func (s *Scheduler) Registry() *Registry {
	return s.registry
}

// Add registers a job on its schedule.
func (s *Scheduler) Add(job Job) error {
	return s.registry.register(job)
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
