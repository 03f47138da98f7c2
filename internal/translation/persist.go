// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/olegiv/yoga-i18n/internal/metrics"
	"github.com/olegiv/yoga-i18n/internal/model"
	"github.com/olegiv/yoga-i18n/internal/store"
)

// persisted is what a run wrote.
type persisted struct {
	written      []*model.TranslationRecord
	skippedHuman int
}

// persist stores drafts and updates the entity metadata in one transaction.
// A human entry that appeared while the model was working is never
// overwritten.
func (s *Service) persist(ctx context.Context, r *run, source string, drafts []*model.TranslationRecord) (*persisted, error) {
	out := &persisted{}
	key := r.req.Key()

	err := s.repo.InTx(ctx, func(tx store.Repository) error {
		out.written = out.written[:0]
		out.skippedHuman = 0

		current, err := tx.ListTranslations(ctx, key)
		if err != nil {
			return err
		}
		idx := indexRecords(current)

		for _, d := range drafts {
			if existing := idx.get(d.FieldName, d.Locale); existing != nil && existing.IsHuman() {
				out.skippedHuman++
				continue
			}
			if _, err := tx.UpsertTranslation(ctx, d); err != nil {
				return err
			}
			out.written = append(out.written, d)
		}

		meta, err := tx.GetMetadata(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			meta = &model.ContentMetadata{
				EntityType:      key.Type,
				EntityID:        key.ID,
				SourceLocale:    source,
				TranslationTier: r.req.Tier,
				AutoTranslate:   true,
				ContentVersion:  1,
			}
		} else if err != nil {
			return err
		}

		if meta.SourceLocale == "" {
			meta.SourceLocale = source
		}
		meta.AvailableLocales = addLocale(meta.AvailableLocales, source)
		for _, rec := range out.written {
			meta.AvailableLocales = addLocale(meta.AvailableLocales, rec.Locale)
			meta.PendingLocales = slices.DeleteFunc(meta.PendingLocales, func(code string) bool {
				return code == rec.Locale
			})
		}
		if len(out.written) > 0 {
			now := time.Now().UTC()
			meta.LastTranslated = &now
		}
		if r.req.Priority > 0 {
			meta.TranslationPriority = r.req.Priority
		}

		return tx.UpsertMetadata(ctx, meta)
	})
	if err != nil {
		return nil, fmt.Errorf("persisting translations for %s: %w", key, err)
	}

	for _, rec := range out.written {
		metrics.RecordTranslation(string(r.req.Tier), rec.Locale)
	}
	if len(out.written) > 0 {
		s.invalidate(ctx, key)
	}
	return out, nil
}

func addLocale(list []string, code string) []string {
	if slices.Contains(list, code) {
		return list
	}
	return append(list, code)
}
