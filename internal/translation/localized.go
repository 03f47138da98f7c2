// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/olegiv/yoga-i18n/internal/locale"
	"github.com/olegiv/yoga-i18n/internal/model"
	"github.com/olegiv/yoga-i18n/internal/store"
	"github.com/olegiv/yoga-i18n/internal/util"
)

// Localized returns the display text of an entity for one locale. Each field
// falls back to the source locale, then the default locale, then any
// locale in registry order. It returns store.ErrNotFound when the entity
// has no text at all.
func (s *Service) Localized(ctx context.Context, key model.EntityKey, code string, fields []string) (*model.LocalizedContent, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, err
	}
	code, err = locale.Normalize(code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if cached, ok := s.cache.Get(ctx, key, code, fields); ok {
		return cached, nil
	}

	records, err := s.repo.ListTranslations(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("loading translations for %s: %w", key, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", key, store.ErrNotFound)
	}

	meta, err := s.repo.GetMetadata(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		meta = nil
	} else if err != nil {
		return nil, fmt.Errorf("loading metadata for %s: %w", key, err)
	}
	source := ResolveSource("", meta, records)

	names := fields
	if len(names) == 0 {
		names, err = s.repo.RequiredFields(ctx, key.Type)
		if err != nil {
			return nil, fmt.Errorf("loading required fields for %s: %w", key.Type, err)
		}
	}
	if len(names) == 0 {
		names = recordFields(records)
	}

	idx := indexRecords(records)
	content := &model.LocalizedContent{
		EntityType: key.Type,
		EntityID:   key.ID,
		Locale:     code,
		Fields:     make([]model.LocalizedField, 0, len(names)),
	}
	for _, name := range names {
		rec := pickRecord(idx[name], code, source)
		if rec == nil {
			continue
		}
		content.Fields = append(content.Fields, model.LocalizedField{
			Field:            name,
			Text:             rec.Translation,
			Locale:           rec.Locale,
			Fallback:         rec.Locale != code,
			IsAutoTranslated: rec.IsAutoTranslated,
			NeedsReview:      rec.NeedsReview,
		})
	}

	content.Slug = slugOf(content.Fields)

	if err := s.cache.Set(ctx, content, fields); err != nil {
		s.logger.Warn("failed to cache localized content",
			"category", model.EventCategoryTranslation, "entity", key.String(), "error", err)
	}
	return content, nil
}

// slugFields name the fields a slug is built from, in order of preference.
var slugFields = []string{"title", "name"}

func slugOf(fields []model.LocalizedField) string {
	for _, name := range slugFields {
		for _, f := range fields {
			if f.Field == name {
				return util.Slugify(f.Text)
			}
		}
	}
	return ""
}

// pickRecord chooses the best non-empty record for a field.
func pickRecord(byLocale map[string]*model.TranslationRecord, want, source string) *model.TranslationRecord {
	usable := func(code string) *model.TranslationRecord {
		rec := byLocale[code]
		if rec == nil || strings.TrimSpace(rec.Translation) == "" {
			return nil
		}
		return rec
	}

	for _, code := range []string{want, source, locale.Default} {
		if rec := usable(code); rec != nil {
			return rec
		}
	}

	codes := make([]string, 0, len(byLocale))
	for code := range byLocale {
		codes = append(codes, code)
	}
	slices.SortFunc(codes, func(a, b string) int {
		if ra, rb := locale.Rank(a), locale.Rank(b); ra != rb {
			return ra - rb
		}
		return strings.Compare(a, b)
	})
	for _, code := range codes {
		if rec := usable(code); rec != nil {
			return rec
		}
	}
	return nil
}

func recordFields(records []*model.TranslationRecord) []string {
	var out []string
	for _, r := range records {
		if !slices.Contains(out, r.FieldName) {
			out = append(out, r.FieldName)
		}
	}
	slices.Sort(out)
	return out
}
