// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/olegiv/yoga-i18n/internal/queue"
)

// Job names.
const (
	JobQueueProcess = "queue:process"
	JobDiscovery    = "queue:discover"
	JobEventPrune   = "events:prune"
)

// QueueWorker is the part of the queue processor driven by cron.
// *queue.Processor implements it.
type QueueWorker interface {
	ProcessPending(ctx context.Context, limit int) (*queue.Summary, error)
	EnqueueMissing(ctx context.Context, limit int) (int, error)
}

// EventPruner deletes old event log rows. *store.Queries implements it.
type EventPruner interface {
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// QueueJob processes up to limit pending queue items per run.
func QueueJob(w QueueWorker, schedule string, limit int, logger *slog.Logger) Job {
	return Job{
		Name:        JobQueueProcess,
		Description: "Translate pending queue items with the batch tier",
		Schedule:    schedule,
		Run: func(ctx context.Context) error {
			summary, err := w.ProcessPending(ctx, limit)
			if err != nil {
				return err
			}
			if summary.Claimed > 0 {
				logger.Info("queue job finished", "run_id", summary.RunID,
					"completed", summary.Completed, "failed", summary.Failed)
			}
			return nil
		},
	}
}

// DiscoveryJob queues entities missing supported locales.
func DiscoveryJob(w QueueWorker, schedule string, limit int, logger *slog.Logger) Job {
	return Job{
		Name:        JobDiscovery,
		Description: "Queue entities whose translations do not cover every locale",
		Schedule:    schedule,
		Run: func(ctx context.Context) error {
			n, err := w.EnqueueMissing(ctx, limit)
			if err != nil {
				return err
			}
			logger.Info("discovery job finished", "queued", n)
			return nil
		},
	}
}

// EventPruneJob removes event log rows older than keep.
func EventPruneJob(p EventPruner, schedule string, keep time.Duration, logger *slog.Logger) Job {
	return Job{
		Name:        JobEventPrune,
		Description: "Delete event log entries past the retention period",
		Schedule:    schedule,
		Run: func(ctx context.Context) error {
			n, err := p.DeleteEventsBefore(ctx, time.Now().Add(-keep))
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("pruned event log", "deleted", n)
			}
			return nil
		},
	}
}
