// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/olegiv/yoga-i18n/internal/model"
)

const translationColumns = `id, entity_type, entity_id, field_name, locale, translation,
	is_auto_translated, auto_translation_service, translation_confidence, needs_review,
	translation_method, translator_type, content_version, created_at, updated_at`

func scanTranslation(row rowScanner) (*model.TranslationRecord, error) {
	r := &model.TranslationRecord{}
	err := row.Scan(&r.ID, &r.EntityType, &r.EntityID, &r.FieldName, &r.Locale, &r.Translation,
		&r.IsAutoTranslated, &r.AutoTranslationService, &r.TranslationConfidence, &r.NeedsReview,
		&r.TranslationMethod, &r.TranslatorType, &r.ContentVersion, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListTranslations returns every record of an entity ordered by field and locale.
func (q *Queries) ListTranslations(ctx context.Context, key model.EntityKey) ([]*model.TranslationRecord, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+translationColumns+` FROM translations
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY field_name, locale`, key.Type, key.ID)
	if err != nil {
		return nil, fmt.Errorf("listing translations for %s: %w", key, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*model.TranslationRecord
	for rows.Next() {
		r, err := scanTranslation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning translation: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating translations: %w", err)
	}
	return result, nil
}

// GetTranslation returns one record or ErrNotFound.
func (q *Queries) GetTranslation(ctx context.Context, key model.EntityKey, field, locale string) (*model.TranslationRecord, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+translationColumns+` FROM translations
		WHERE entity_type = ? AND entity_id = ? AND field_name = ? AND locale = ?`,
		key.Type, key.ID, field, locale)
	r, err := scanTranslation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading translation %s/%s/%s: %w", key, field, locale, err)
	}
	return r, nil
}

// UpsertTranslation writes rec keyed on entity, field and locale. A conflicting
// row is fully overwritten. The previous row, if any, is returned.
func (q *Queries) UpsertTranslation(ctx context.Context, rec *model.TranslationRecord) (*model.TranslationRecord, error) {
	prev, err := q.GetTranslation(ctx, rec.Key(), rec.FieldName, rec.Locale)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if errors.Is(err, ErrNotFound) {
		prev = nil
	}

	if rec.ContentVersion <= 0 {
		rec.ContentVersion = 1
	}
	now := time.Now().UTC()

	row := q.db.QueryRowContext(ctx, `
		INSERT INTO translations (entity_type, entity_id, field_name, locale, translation,
			is_auto_translated, auto_translation_service, translation_confidence, needs_review,
			translation_method, translator_type, content_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_type, entity_id, field_name, locale) DO UPDATE SET
			translation = excluded.translation,
			is_auto_translated = excluded.is_auto_translated,
			auto_translation_service = excluded.auto_translation_service,
			translation_confidence = excluded.translation_confidence,
			needs_review = excluded.needs_review,
			translation_method = excluded.translation_method,
			translator_type = excluded.translator_type,
			content_version = excluded.content_version,
			updated_at = excluded.updated_at
		RETURNING id, created_at, updated_at`,
		rec.EntityType, rec.EntityID, rec.FieldName, rec.Locale, rec.Translation,
		rec.IsAutoTranslated, rec.AutoTranslationService, rec.TranslationConfidence, rec.NeedsReview,
		rec.TranslationMethod, rec.TranslatorType, rec.ContentVersion, now, now,
	)
	if err := row.Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upserting translation %s/%s/%s: %w", rec.Key(), rec.FieldName, rec.Locale, err)
	}
	return prev, nil
}

// SetManualTranslation stores human-entered text. Source-locale text is
// authored this way too. The entity metadata is created when missing and the
// locale is marked available.
func (q *Queries) SetManualTranslation(ctx context.Context, key model.EntityKey, field, locale, text string) (*model.TranslationRecord, error) {
	rec := &model.TranslationRecord{
		EntityType:            key.Type,
		EntityID:              key.ID,
		FieldName:             field,
		Locale:                locale,
		Translation:           text,
		IsAutoTranslated:      false,
		TranslationConfidence: 1,
		TranslatorType:        model.TranslatorHuman,
	}

	err := q.Tx(ctx, func(tx *Queries) error {
		meta, err := tx.EnsureMetadata(ctx, key, locale)
		if err != nil {
			return err
		}
		rec.ContentVersion = meta.ContentVersion

		if _, err := tx.UpsertTranslation(ctx, rec); err != nil {
			return err
		}

		if !slices.Contains(meta.AvailableLocales, locale) {
			meta.AvailableLocales = append(meta.AvailableLocales, locale)
		}
		meta.PendingLocales = removeLocale(meta.PendingLocales, locale)
		return tx.UpsertMetadata(ctx, meta)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// CountNeedsReview returns how many auto translations await review.
func (q *Queries) CountNeedsReview(ctx context.Context) (int64, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM translations WHERE needs_review = 1`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting translations needing review: %w", err)
	}
	return n, nil
}

func removeLocale(list []string, loc string) []string {
	out := list[:0:0]
	for _, l := range list {
		if l != loc {
			out = append(out, l)
		}
	}
	return out
}
