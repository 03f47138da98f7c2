// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package queue implements the background translation queue: producers
// enqueue entities, and a processor claims pending rows, runs the batch-tier
// pipeline for each and records the outcome on the row.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/olegiv/yoga-i18n/internal/locale"
	"github.com/olegiv/yoga-i18n/internal/metrics"
	"github.com/olegiv/yoga-i18n/internal/model"
	"github.com/olegiv/yoga-i18n/internal/store"
	"github.com/olegiv/yoga-i18n/internal/translation"
)

// DefaultLimit is the number of items pulled per processing run.
const DefaultLimit = 5

// maxErrorLength bounds the message stored on a failed row.
const maxErrorLength = 1000

var (
	// ErrItemNotFound is returned when a queue row does not exist.
	ErrItemNotFound = errors.New("queue item not found")
	// ErrNothingToTranslate is returned by Enqueue when the entity has no
	// target locale left.
	ErrNothingToTranslate = errors.New("no target locales to translate")
)

// Translator runs the translation pipeline. *translation.Service implements it.
type Translator interface {
	Configured() bool
	Translate(ctx context.Context, req translation.Request) (*translation.Result, error)
	EntitiesNeedingTranslation(ctx context.Context, limit int) ([]translation.EntityNeed, error)
}

// Processor owns the translation_queue table.
type Processor struct {
	queries    *store.Queries
	translator Translator
	logger     *slog.Logger
}

// NewProcessor creates a queue processor.
func NewProcessor(queries *store.Queries, translator Translator, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		queries:    queries,
		translator: translator,
		logger:     logger.With("category", model.EventCategoryQueue),
	}
}

// EnqueueRequest describes an entity to queue.
type EnqueueRequest struct {
	EntityType    string   `json:"entityType"`
	EntityID      string   `json:"entityId"`
	TargetLocales []string `json:"targetLocales,omitempty"`
	Priority      int64    `json:"priority,omitempty"`
}

// Enqueue inserts a pending row for the entity. When a pending or processing
// row already exists it is returned unchanged with created=false. The queued
// targets are added to the entity's pending locales when metadata exists.
func (p *Processor) Enqueue(ctx context.Context, req EnqueueRequest) (item *model.QueueItem, created bool, err error) {
	entityType, err := model.ParseEntityType(req.EntityType)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", translation.ErrInvalidRequest, err)
	}
	key := model.EntityKey{Type: entityType, ID: strings.TrimSpace(req.EntityID)}
	if key.ID == "" {
		return nil, false, fmt.Errorf("%w: entity id is required", translation.ErrInvalidRequest)
	}

	existing, err := p.queries.FindActiveQueueItem(ctx, key)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	meta, err := p.queries.GetMetadata(ctx, key)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}
	records, err := p.queries.ListTranslations(ctx, key)
	if err != nil {
		return nil, false, err
	}

	explicit, err := normalizeLocales(req.TargetLocales)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", translation.ErrInvalidRequest, err)
	}
	source := translation.ResolveSource("", meta, records)
	targets := translation.ResolveTargets(source, explicit)
	if len(targets) == 0 {
		return nil, false, ErrNothingToTranslate
	}

	item = &model.QueueItem{
		EntityType:    key.Type,
		EntityID:      key.ID,
		SourceLocale:  source,
		TargetLocales: targets,
		Priority:      req.Priority,
	}
	if item.Priority == 0 && meta != nil {
		item.Priority = meta.TranslationPriority
	}
	if err := p.queries.CreateQueueItem(ctx, item); err != nil {
		return nil, false, err
	}

	if meta != nil {
		if err := p.queries.AddPendingLocales(ctx, key, targets); err != nil {
			p.logger.Warn("failed to mark pending locales", "entity", key.String(), "error", err)
		}
	}

	metrics.RecordQueueItem(model.QueueStatusPending)
	p.logger.Info("entity queued for translation", "entity", key.String(), "id", item.ID, "targets", targets)
	return item, true, nil
}

// Summary reports one processing run.
type Summary struct {
	RunID     string       `json:"runId"`
	Claimed   int          `json:"claimed"`
	Completed int          `json:"completed"`
	Failed    int          `json:"failed"`
	Items     []ItemResult `json:"items"`
}

// ItemResult is the outcome of one processed row.
type ItemResult struct {
	ID                int64  `json:"id"`
	Entity            string `json:"entity"`
	Status            string `json:"status"`
	TranslationsCount int    `json:"translationsCount"`
	Error             string `json:"error,omitempty"`
}

// ProcessPending claims up to limit pending rows and runs the batch tier for
// each, in priority order. A failing item is recorded and the run continues.
// Without a configured model nothing is claimed and ErrNotConfigured is
// returned, so the backlog stays pending.
func (p *Processor) ProcessPending(ctx context.Context, limit int) (*Summary, error) {
	if !p.translator.Configured() {
		return nil, translation.ErrNotConfigured
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	summary := &Summary{RunID: uuid.NewString(), Items: []ItemResult{}}

	items, err := p.queries.ClaimQueueItems(ctx, summary.RunID, limit)
	if err != nil {
		return nil, err
	}
	summary.Claimed = len(items)
	if len(items) == 0 {
		return summary, nil
	}

	logger := p.logger.With("run_id", summary.RunID)
	logger.Info("processing queue", "claimed", len(items))

	for _, it := range items {
		res := p.processItem(ctx, logger, it)
		summary.Items = append(summary.Items, res)
		if res.Status == model.QueueStatusCompleted {
			summary.Completed++
		} else {
			summary.Failed++
		}
	}

	logger.Info("queue run finished", "completed", summary.Completed, "failed", summary.Failed)
	return summary, nil
}

func (p *Processor) processItem(ctx context.Context, logger *slog.Logger, it *model.QueueItem) ItemResult {
	res := ItemResult{ID: it.ID, Entity: it.Key().String()}
	metrics.RecordQueueItem(model.QueueStatusProcessing)

	result, err := p.runItem(ctx, it)
	if err == nil && (result == nil || !result.Success) {
		err = errors.New(failureMessage(result))
	}

	// The outcome is recorded even when the run's context was cancelled.
	recordCtx := context.WithoutCancel(ctx)
	if err != nil {
		res.Status = model.QueueStatusFailed
		res.Error = truncate(err.Error(), maxErrorLength)
		if ferr := p.queries.FailQueueItem(recordCtx, it.ID, res.Error); ferr != nil {
			logger.Error("failed to record queue failure", "id", it.ID, "error", ferr)
		}
		metrics.RecordQueueItem(model.QueueStatusFailed)
		logger.Warn("queue item failed", "id", it.ID, "entity", res.Entity, "attempts", it.Attempts, "error", res.Error)
		return res
	}

	res.Status = model.QueueStatusCompleted
	res.TranslationsCount = result.TranslationsCount
	if cerr := p.queries.CompleteQueueItem(recordCtx, it.ID); cerr != nil {
		logger.Error("failed to record queue completion", "id", it.ID, "error", cerr)
	}
	metrics.RecordQueueItem(model.QueueStatusCompleted)
	return res
}

// runItem converts a panic in the pipeline into an item failure.
func (p *Processor) runItem(ctx context.Context, it *model.QueueItem) (result *translation.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.translator.Translate(ctx, translation.Request{
		EntityType:    it.EntityType,
		EntityID:      it.EntityID,
		SourceLocale:  it.SourceLocale,
		TargetLocales: it.TargetLocales,
		Tier:          model.TierBatch,
		Priority:      it.Priority,
	})
}

func failureMessage(r *translation.Result) string {
	switch {
	case r == nil:
		return "translation returned no result"
	case r.Error != "":
		return r.Error
	case r.Message != "":
		return r.Message
	default:
		return "translation did not succeed"
	}
}

// RetryFailed resets failed rows to pending.
func (p *Processor) RetryFailed(ctx context.Context) (int64, error) {
	n, err := p.queries.RetryFailedQueueItems(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		p.logger.Info("failed queue items reset", "count", n)
	}
	return n, nil
}

// Status is the aggregate queue view.
type Status struct {
	Totals map[string]int64   `json:"totals"`
	Counts []model.QueueStat  `json:"counts"`
	Failed []*model.QueueItem `json:"recentFailures"`
}

// Status returns counts per entity type, locale and status, plus totals and
// the most recent failures.
func (p *Processor) Status(ctx context.Context) (*Status, error) {
	totals, err := p.queries.QueueTotals(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := p.queries.QueueStats(ctx)
	if err != nil {
		return nil, err
	}
	failed, err := p.queries.ListQueueItems(ctx, model.QueueStatusFailed, 10)
	if err != nil {
		return nil, err
	}
	if counts == nil {
		counts = []model.QueueStat{}
	}
	if failed == nil {
		failed = []*model.QueueItem{}
	}
	return &Status{Totals: totals, Counts: counts, Failed: failed}, nil
}

// Get returns a queue row.
func (p *Processor) Get(ctx context.Context, id int64) (*model.QueueItem, error) {
	it, err := p.queries.GetQueueItem(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrItemNotFound
	}
	return it, err
}

// EnqueueMissing queues entities whose translations do not cover every
// supported locale. Entities with auto-translation disabled are left out.
// It returns the number of rows created.
func (p *Processor) EnqueueMissing(ctx context.Context, limit int) (int, error) {
	needs, err := p.translator.EntitiesNeedingTranslation(ctx, limit)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, n := range needs {
		if !n.AutoTranslate {
			continue
		}
		_, isNew, err := p.Enqueue(ctx, EnqueueRequest{
			EntityType:    string(n.EntityType),
			EntityID:      n.EntityID,
			TargetLocales: n.MissingLocales,
			Priority:      n.Priority,
		})
		if err != nil {
			if errors.Is(err, ErrNothingToTranslate) {
				continue
			}
			return created, fmt.Errorf("enqueueing %s: %w", n.Key(), err)
		}
		if isNew {
			created++
		}
	}

	if created > 0 {
		p.logger.Info("discovery queued entities", "count", created)
	}
	return created, nil
}

func normalizeLocales(codes []string) ([]string, error) {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		n, err := locale.Normalize(c)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
