// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	// ErrJobNotFound is returned for an unknown job name.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobRunning is returned when a run is requested while the job is
	// still busy with the previous one.
	ErrJobRunning = errors.New("job is already running")
)

// Job is a unit of periodic work.
type Job struct {
	Name        string
	Description string
	Schedule    string
	Run         func(ctx context.Context) error
}

// registeredJob holds a job and its runtime state.
type registeredJob struct {
	job      Job
	schedule string // effective schedule
	entryID  cron.EntryID
	running  atomic.Bool

	// guarded by Registry.mu
	lastRun      time.Time
	lastDuration time.Duration
	lastErr      string
	runs         int64
	skipped      int64
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	DefaultSchedule string        `json:"defaultSchedule"`
	Schedule        string        `json:"schedule"`
	Running         bool          `json:"running"`
	LastRun         time.Time     `json:"lastRun"`
	LastDuration    time.Duration `json:"lastDuration"`
	LastError       string        `json:"lastError,omitempty"`
	NextRun         time.Time     `json:"nextRun"`
	Runs            int64         `json:"runs"`
	Skipped         int64         `json:"skipped"`
}

// Registry tracks scheduled jobs. Scheduled and manual runs of one job never
// overlap: a run requested while another is active is skipped.
type Registry struct {
	s    *Scheduler
	mu   sync.RWMutex
	jobs map[string]*registeredJob
}

func newRegistry(s *Scheduler) *Registry {
	return &Registry{s: s, jobs: make(map[string]*registeredJob)}
}

func (r *Registry) register(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("job needs a name and a run function")
	}
	if err := ValidateSchedule(job.Schedule); err != nil {
		return fmt.Errorf("job %s: %w", job.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.Name]; exists {
		return fmt.Errorf("job %s is already registered", job.Name)
	}

	rj := &registeredJob{job: job, schedule: job.Schedule}
	id, err := r.s.cron.AddFunc(job.Schedule, r.scheduled(rj))
	if err != nil {
		return fmt.Errorf("scheduling %s: %w", job.Name, err)
	}
	rj.entryID = id
	r.jobs[job.Name] = rj

	r.s.logger.Debug("registered scheduled job", "name", job.Name, "schedule", job.Schedule)
	return nil
}

// scheduled returns the cron callback for a job.
func (r *Registry) scheduled(rj *registeredJob) func() {
	return func() {
		_ = r.run(r.s.base, rj)
	}
}

// run executes a job unless it is already running.
func (r *Registry) run(ctx context.Context, rj *registeredJob) error {
	if !rj.running.CompareAndSwap(false, true) {
		r.mu.Lock()
		rj.skipped++
		r.mu.Unlock()
		r.s.logger.Warn("skipping job run, previous run still active", "job", rj.job.Name)
		return ErrJobRunning
	}
	defer rj.running.Store(false)

	start := time.Now()
	err := rj.job.Run(ctx)
	elapsed := time.Since(start)

	r.mu.Lock()
	rj.lastRun = start
	rj.lastDuration = elapsed
	rj.runs++
	rj.lastErr = ""
	if err != nil {
		rj.lastErr = err.Error()
	}
	r.mu.Unlock()

	if err != nil {
		r.s.logger.Error("scheduled job failed", "job", rj.job.Name, "duration", elapsed, "error", err)
		return err
	}
	r.s.logger.Debug("scheduled job finished", "job", rj.job.Name, "duration", elapsed)
	return nil
}

// List returns all registered jobs sorted by name.
func (r *Registry) List() []JobInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]JobInfo, 0, len(r.jobs))
	for _, rj := range r.jobs {
		result = append(result, JobInfo{
			Name:            rj.job.Name,
			Description:     rj.job.Description,
			DefaultSchedule: rj.job.Schedule,
			Schedule:        rj.schedule,
			Running:         rj.running.Load(),
			LastRun:         rj.lastRun,
			LastDuration:    rj.lastDuration,
			LastError:       rj.lastErr,
			NextRun:         r.s.cron.Entry(rj.entryID).Next,
			Runs:            rj.runs,
			Skipped:         rj.skipped,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// TriggerNow runs a job synchronously with the caller's context.
func (r *Registry) TriggerNow(ctx context.Context, name string) error {
	r.mu.RLock()
	rj, ok := r.jobs[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	r.s.logger.Info("manually triggering job", "name", name)
	return r.run(ctx, rj)
}

// UpdateSchedule moves a job to a new schedule.
func (r *Registry) UpdateSchedule(name, schedule string) error {
	if err := ValidateSchedule(schedule); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rj, ok := r.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	r.s.cron.Remove(rj.entryID)
	id, err := r.s.cron.AddFunc(schedule, r.scheduled(rj))
	if err != nil {
		// Re-add with old schedule on failure
		fallbackID, fallbackErr := r.s.cron.AddFunc(rj.schedule, r.scheduled(rj))
		if fallbackErr != nil {
			return fmt.Errorf("critical: failed to restore schedule after update failure: %w (original: %w)", fallbackErr, err)
		}
		rj.entryID = fallbackID
		return fmt.Errorf("failed to apply new schedule: %w", err)
	}

	rj.entryID = id
	rj.schedule = schedule
	r.s.logger.Info("updated job schedule", "name", name, "schedule", schedule)
	return nil
}
