// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/olegiv/yoga-i18n/internal/llm"
	"github.com/olegiv/yoga-i18n/internal/locale"
	"github.com/olegiv/yoga-i18n/internal/model"
	"github.com/olegiv/yoga-i18n/internal/store"
)

// Service runs translation requests against a repository and a model.
type Service struct {
	repo   store.Repository
	gen    llm.Generator
	cache  LocalizedCache
	cfg    Config
	logger *slog.Logger
}

// NewService creates a translation service. gen may be nil when no model is
// configured; Translate then fails with ErrNotConfigured while read paths
// keep working. cache may be nil.
func NewService(repo store.Repository, gen llm.Generator, cache LocalizedCache, cfg Config, logger *slog.Logger) *Service {
	if cache == nil {
		cache = noopCache{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		gen:    gen,
		cache:  cache,
		cfg:    cfg.withDefaults(),
		logger: logger,
	}
}

// Configured reports whether a model is available.
func (s *Service) Configured() bool {
	return s.gen != nil
}

// Translate fills in the missing translations of one entity.
// Not-found and gated entities are reported as a non-success Result;
// only invalid input and persistence failures return an error.
func (s *Service) Translate(ctx context.Context, req Request) (*Result, error) {
	if s.gen == nil {
		return nil, ErrNotConfigured
	}
	if err := req.normalize(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	key := req.Key()
	r := &run{
		id:  uuid.NewString(),
		req: &req,
	}
	r.logger = s.logger.With("run_id", r.id, "entity", key.String(), "tier", string(req.Tier))

	res := &Result{
		RunID:         r.id,
		TargetLocales: []string{},
		Translations:  []TranslationSummary{},
	}

	meta, err := s.repo.GetMetadata(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		meta = nil
	} else if err != nil {
		return nil, fmt.Errorf("loading metadata for %s: %w", key, err)
	}

	records, err := s.repo.ListTranslations(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("loading translations for %s: %w", key, err)
	}

	if meta == nil && len(records) == 0 {
		res.Message = "entity not found"
		res.Error = fmt.Sprintf("no content is stored for %s", key)
		return res, nil
	}

	if meta != nil && !meta.AutoTranslate && req.Tier != model.TierImmediate {
		res.Message = "auto-translation is disabled for this entity"
		res.Error = "only immediate requests may translate it"
		return res, nil
	}

	source := ResolveSource(req.SourceLocale, meta, records)
	targets := ResolveTargets(source, req.TargetLocales)
	res.SourceLocale = source
	res.TargetLocales = append(res.TargetLocales, targets...)

	if len(targets) == 0 {
		res.Success = true
		res.Message = "no target locales"
		return res, nil
	}

	if err := s.repo.IncrementRequestCounts(ctx, key, targets); err != nil {
		r.logger.Warn("failed to count translation request",
			"category", model.EventCategoryTranslation, "error", err)
	}

	required, err := s.repo.RequiredFields(ctx, key.Type)
	if err != nil {
		return nil, fmt.Errorf("loading required fields for %s: %w", key.Type, err)
	}
	if len(required) == 0 {
		res.Message = "no translatable fields configured"
		res.Error = fmt.Sprintf("entity type %s has no required fields", key.Type)
		return res, nil
	}

	fields, unknown := selectFields(required, req.Fields)
	if len(unknown) > 0 {
		r.logger.Warn("ignoring fields that are not translatable",
			"category", model.EventCategoryTranslation, "fields", strings.Join(unknown, ","))
	}
	if len(fields) == 0 {
		res.Message = "none of the requested fields are translatable"
		res.Error = fmt.Sprintf("unknown fields: %s", strings.Join(unknown, ", "))
		return res, nil
	}

	idx := indexRecords(records)
	hasSource := false
	for _, f := range fields {
		if _, ok := idx.sourceText(f, source); ok {
			hasSource = true
			break
		}
	}
	if !hasSource {
		res.Message = "no source content"
		res.Error = fmt.Sprintf("no %s text found for fields %s", source, strings.Join(fields, ", "))
		return res, nil
	}

	r.version = 1
	if meta != nil && meta.ContentVersion > 0 {
		r.version = meta.ContentVersion
	}

	tasks := BuildTasks(fields, source, targets, records, r.version, s.cfg.RetranslateStale)
	if len(tasks) == 0 {
		if meta == nil {
			if _, err := s.persist(ctx, r, source, nil); err != nil {
				return nil, err
			}
		}
		res.Success = true
		res.Message = "no translations needed"
		return res, nil
	}

	r.glossary, err = s.repo.ListGlossary(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading glossary: %w", err)
	}

	r.logger.Info("translating entity",
		"category", model.EventCategoryTranslation,
		"source", source, "targets", strings.Join(targets, ","), "tasks", len(tasks))

	drafts, failed := s.translateBatches(ctx, r, tasks)

	out, err := s.persist(ctx, r, source, drafts)
	if err != nil {
		return nil, err
	}

	res.Success = true
	res.TranslationsCount = len(out.written)
	res.FailedTasks = failed
	res.SkippedHuman = out.skippedHuman
	res.Message = fmt.Sprintf("translated %d of %d fields", len(out.written), len(tasks))
	for _, rec := range out.written {
		res.Translations = append(res.Translations, TranslationSummary{
			Field:       rec.FieldName,
			Locale:      rec.Locale,
			Confidence:  rec.TranslationConfidence,
			NeedsReview: rec.NeedsReview,
		})
	}

	r.logger.Info("translation run finished",
		"category", model.EventCategoryTranslation,
		"written", len(out.written), "failed", failed, "skipped_human", out.skippedHuman)

	return res, nil
}

// EntitiesNeedingTranslation lists entities whose available locales do not
// cover every supported locale, highest priority first.
func (s *Service) EntitiesNeedingTranslation(ctx context.Context, limit int) ([]EntityNeed, error) {
	if limit <= 0 {
		limit = 50
	}
	limit = min(limit, 500)

	const pageSize = 100
	needs := make([]EntityNeed, 0)
	for offset := 0; len(needs) < limit; offset += pageSize {
		page, err := s.repo.ListMetadata(ctx, pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("listing metadata: %w", err)
		}
		for _, meta := range page {
			existing := append([]string(nil), meta.AvailableLocales...)
			if meta.SourceLocale != "" {
				existing = addLocale(existing, meta.SourceLocale)
			}
			missing := locale.Missing(existing)
			if len(missing) == 0 {
				continue
			}
			needs = append(needs, EntityNeed{
				EntityType:      meta.EntityType,
				EntityID:        meta.EntityID,
				SourceLocale:    meta.SourceLocale,
				ExistingLocales: existing,
				MissingLocales:  missing,
				Priority:        meta.TranslationPriority,
				AutoTranslate:   meta.AutoTranslate,
			})
			if len(needs) == limit {
				break
			}
		}
		if len(page) < pageSize {
			break
		}
	}
	return needs, nil
}

// SetManualTranslation stores a human translation. It is never replaced by
// the model afterwards.
func (s *Service) SetManualTranslation(ctx context.Context, key model.EntityKey, field, code, text string) (*model.TranslationRecord, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, err
	}
	field = strings.TrimSpace(field)
	if field == "" {
		return nil, fmt.Errorf("%w: field is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: translation text is required", ErrInvalidRequest)
	}
	code, err = locale.Normalize(code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	rec, err := s.repo.SetManualTranslation(ctx, key, field, code, text)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, key)
	s.logger.Info("manual translation saved",
		"category", model.EventCategoryTranslation, "entity", key.String(), "field", field, "locale", code)
	return rec, nil
}

// BumpContentVersion marks the source content of an entity as edited.
func (s *Service) BumpContentVersion(ctx context.Context, key model.EntityKey) (int64, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return 0, err
	}
	version, err := s.repo.BumpContentVersion(ctx, key)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, key)
	return version, nil
}
