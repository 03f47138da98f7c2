// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translation

import (
	"context"
	"log/slog"
	"time"

	"github.com/olegiv/yoga-i18n/internal/llm"
	"github.com/olegiv/yoga-i18n/internal/metrics"
	"github.com/olegiv/yoga-i18n/internal/model"
)

// run carries the per-invocation state through the batch loop.
type run struct {
	id       string
	req      *Request
	version  int64
	glossary []model.GlossaryTerm
	logger   *slog.Logger
}

// translateBatches sends tasks to the model in tier-sized batches, one call
// at a time. A failed batch is logged and counted; the rest still run.
func (s *Service) translateBatches(ctx context.Context, r *run, tasks []Task) ([]*model.TranslationRecord, int) {
	var (
		drafts []*model.TranslationRecord
		failed int
	)

	batches := splitTasks(tasks, s.cfg.batchSize(r.req.Tier))
	for i, batch := range batches {
		if ctx.Err() != nil {
			for _, rest := range batches[i:] {
				failed += len(rest)
			}
			r.logger.Warn("translation run cancelled",
				"category", model.EventCategoryTranslation,
				"remaining_batches", len(batches)-i, "error", ctx.Err())
			break
		}

		got, batchFailed := s.translateBatch(ctx, r, i, batch)
		drafts = append(drafts, got...)
		failed += batchFailed
	}

	return drafts, failed
}

// translateBatch makes one model call and turns its usable output into
// draft records.
func (s *Service) translateBatch(ctx context.Context, r *run, n int, batch []Task) ([]*model.TranslationRecord, int) {
	modelID := s.cfg.modelFor(r.req.Tier)
	provider := s.gen.Provider()
	tier := string(r.req.Tier)
	logger := r.logger.With("batch", n, "batch_size", len(batch), "model", modelID)

	system := buildSystemPrompt(r.req.EntityType, relevantTerms(r.glossary, batch))

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	resp, err := s.gen.Generate(callCtx, llm.Request{
		Model:        modelID,
		SystemPrompt: system,
		UserPrompt:   buildUserPrompt(batch),
		Temperature:  s.cfg.Temperature,
		MaxTokens:    s.cfg.MaxTokens,
	})
	elapsed := time.Since(start).Seconds()

	usage := &model.UsageRecord{
		RunID:       r.id,
		EntityType:  r.req.EntityType,
		EntityID:    r.req.EntityID,
		Provider:    provider,
		Model:       modelID,
		Tier:        r.req.Tier,
		BatchSize:   int64(len(batch)),
		RequestedBy: r.req.UserID,
	}

	if err != nil {
		metrics.RecordBatch(tier, metrics.BatchModelError, provider, modelID, elapsed)
		s.logUsage(ctx, logger, usage)
		logger.Warn("translation batch failed",
			"category", model.EventCategoryLLM, "error", err)
		return nil, len(batch)
	}

	usage.Succeeded = true
	usage.PromptTokens = resp.PromptTokens
	usage.CompletionTokens = resp.CompletionTokens
	usage.CostUSD = llm.CalculateCost(provider, modelID, resp.PromptTokens, resp.CompletionTokens)
	if resp.Model != "" {
		usage.Model = resp.Model
	}
	s.logUsage(ctx, logger, usage)

	parsed, warnings, err := parseResponse(resp.Content, len(batch))
	if err != nil {
		metrics.RecordBatch(tier, metrics.BatchParseError, provider, modelID, elapsed)
		logger.Warn("unparseable translation response",
			"category", model.EventCategoryLLM, "error", err)
		return nil, len(batch)
	}
	for _, w := range warnings {
		logger.Warn("dropped translation entry", "category", model.EventCategoryLLM, "reason", w)
	}

	status := metrics.BatchOK
	if len(parsed) == 0 {
		status = metrics.BatchEmptyResult
	}
	metrics.RecordBatch(tier, status, provider, modelID, elapsed)

	drafts := make([]*model.TranslationRecord, 0, len(parsed))
	for _, p := range parsed {
		t := batch[p.Index]
		drafts = append(drafts, &model.TranslationRecord{
			EntityType:             r.req.EntityType,
			EntityID:               r.req.EntityID,
			FieldName:              t.Field,
			Locale:                 t.TargetLocale,
			Translation:            p.Text,
			IsAutoTranslated:       true,
			AutoTranslationService: provider,
			TranslationConfidence:  p.Confidence,
			NeedsReview:            r.req.Tier == model.TierBatch || p.Confidence < ReviewThreshold,
			TranslationMethod:      r.req.Tier,
			TranslatorType:         model.TranslatorAI,
			ContentVersion:         r.version,
		})
	}

	if missing := len(batch) - len(parsed); missing > 0 {
		logger.Warn("model skipped translation entries",
			"category", model.EventCategoryLLM, "missing", missing)
		return drafts, missing
	}
	return drafts, 0
}

func (s *Service) logUsage(ctx context.Context, logger *slog.Logger, rec *model.UsageRecord) {
	if err := s.repo.LogUsage(context.WithoutCancel(ctx), rec); err != nil {
		logger.Error("failed to record llm usage", "category", model.EventCategoryLLM, "error", err)
	}
}
