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

const metadataColumns = `id, entity_type, entity_id, source_locale, translation_tier, auto_translate,
	available_locales, pending_locales, view_count_by_locale, request_count_by_locale,
	translation_priority, content_version, last_translated, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMetadata(row rowScanner) (*model.ContentMetadata, error) {
	m := &model.ContentMetadata{}
	var available, pending, views, requests string
	var lastTranslated sql.NullTime
	if err := row.Scan(&m.ID, &m.EntityType, &m.EntityID, &m.SourceLocale, &m.TranslationTier, &m.AutoTranslate,
		&available, &pending, &views, &requests,
		&m.TranslationPriority, &m.ContentVersion, &lastTranslated, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}

	var err error
	if m.AvailableLocales, err = decodeLocales(available); err != nil {
		return nil, err
	}
	if m.PendingLocales, err = decodeLocales(pending); err != nil {
		return nil, err
	}
	if m.ViewCountByLocale, err = decodeCounts(views); err != nil {
		return nil, err
	}
	if m.RequestCountByLocale, err = decodeCounts(requests); err != nil {
		return nil, err
	}
	if lastTranslated.Valid {
		t := lastTranslated.Time
		m.LastTranslated = &t
	}
	return m, nil
}

// GetMetadata returns the metadata row of an entity or ErrNotFound.
func (q *Queries) GetMetadata(ctx context.Context, key model.EntityKey) (*model.ContentMetadata, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+metadataColumns+` FROM content_metadata WHERE entity_type = ? AND entity_id = ?`,
		key.Type, key.ID)
	m, err := scanMetadata(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading metadata for %s: %w", key, err)
	}
	return m, nil
}

// UpsertMetadata inserts the row or overwrites every mutable column.
// CreatedAt is preserved on update; ID and timestamps are written back to meta.
func (q *Queries) UpsertMetadata(ctx context.Context, meta *model.ContentMetadata) error {
	available, err := encodeJSON(emptyIfNil(meta.AvailableLocales))
	if err != nil {
		return fmt.Errorf("encoding available locales: %w", err)
	}
	pending, err := encodeJSON(emptyIfNil(meta.PendingLocales))
	if err != nil {
		return fmt.Errorf("encoding pending locales: %w", err)
	}
	views, err := encodeJSON(countsOrEmpty(meta.ViewCountByLocale))
	if err != nil {
		return fmt.Errorf("encoding view counts: %w", err)
	}
	requests, err := encodeJSON(countsOrEmpty(meta.RequestCountByLocale))
	if err != nil {
		return fmt.Errorf("encoding request counts: %w", err)
	}

	if meta.ContentVersion <= 0 {
		meta.ContentVersion = 1
	}
	if meta.TranslationTier == "" {
		meta.TranslationTier = model.TierOnDemand
	}

	now := time.Now().UTC()
	var lastTranslated sql.NullTime
	if meta.LastTranslated != nil {
		lastTranslated = sql.NullTime{Time: *meta.LastTranslated, Valid: true}
	}

	row := q.db.QueryRowContext(ctx, `
		INSERT INTO content_metadata (entity_type, entity_id, source_locale, translation_tier, auto_translate,
			available_locales, pending_locales, view_count_by_locale, request_count_by_locale,
			translation_priority, content_version, last_translated, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_type, entity_id) DO UPDATE SET
			source_locale = excluded.source_locale,
			translation_tier = excluded.translation_tier,
			auto_translate = excluded.auto_translate,
			available_locales = excluded.available_locales,
			pending_locales = excluded.pending_locales,
			view_count_by_locale = excluded.view_count_by_locale,
			request_count_by_locale = excluded.request_count_by_locale,
			translation_priority = excluded.translation_priority,
			content_version = excluded.content_version,
			last_translated = excluded.last_translated,
			updated_at = excluded.updated_at
		RETURNING id, created_at, updated_at`,
		meta.EntityType, meta.EntityID, meta.SourceLocale, meta.TranslationTier, meta.AutoTranslate,
		available, pending, views, requests,
		meta.TranslationPriority, meta.ContentVersion, lastTranslated, now, now,
	)
	if err := row.Scan(&meta.ID, &meta.CreatedAt, &meta.UpdatedAt); err != nil {
		return fmt.Errorf("upserting metadata for %s: %w", meta.Key(), err)
	}
	return nil
}

// EnsureMetadata creates a default metadata row for an entity when none exists
// and returns the stored row.
func (q *Queries) EnsureMetadata(ctx context.Context, key model.EntityKey, sourceLocale string) (*model.ContentMetadata, error) {
	now := time.Now().UTC()
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO content_metadata (entity_type, entity_id, source_locale, available_locales, created_at, updated_at)
		VALUES (?, ?, ?, json_array(?), ?, ?)
		ON CONFLICT(entity_type, entity_id) DO NOTHING`,
		key.Type, key.ID, sourceLocale, sourceLocale, now, now)
	if err != nil {
		return nil, fmt.Errorf("creating metadata for %s: %w", key, err)
	}
	return q.GetMetadata(ctx, key)
}

// BumpContentVersion increments the content version after a source edit and
// returns the new version.
func (q *Queries) BumpContentVersion(ctx context.Context, key model.EntityKey) (int64, error) {
	var version int64
	err := q.db.QueryRowContext(ctx, `
		UPDATE content_metadata SET content_version = content_version + 1, updated_at = ?
		WHERE entity_type = ? AND entity_id = ?
		RETURNING content_version`,
		time.Now().UTC(), key.Type, key.ID).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("bumping content version for %s: %w", key, err)
	}
	return version, nil
}

// AddPendingLocales marks locales as awaiting translation. Locales that are
// already available are left out so the two sets never overlap.
func (q *Queries) AddPendingLocales(ctx context.Context, key model.EntityKey, locales []string) error {
	return q.Tx(ctx, func(tx *Queries) error {
		meta, err := tx.GetMetadata(ctx, key)
		if err != nil {
			return err
		}
		changed := false
		for _, loc := range locales {
			if slices.Contains(meta.AvailableLocales, loc) || slices.Contains(meta.PendingLocales, loc) {
				continue
			}
			meta.PendingLocales = append(meta.PendingLocales, loc)
			changed = true
		}
		if !changed {
			return nil
		}
		return tx.UpsertMetadata(ctx, meta)
	})
}

// IncrementRequestCounts adds one request per locale to the entity counters.
// Missing metadata is not an error.
func (q *Queries) IncrementRequestCounts(ctx context.Context, key model.EntityKey, locales []string) error {
	for _, loc := range locales {
		path := `$."` + loc + `"`
		_, err := q.db.ExecContext(ctx, `
			UPDATE content_metadata
			SET request_count_by_locale = json_set(request_count_by_locale, ?,
				COALESCE(json_extract(request_count_by_locale, ?), 0) + 1)
			WHERE entity_type = ? AND entity_id = ?`,
			path, path, key.Type, key.ID)
		if err != nil {
			return fmt.Errorf("counting requests for %s: %w", key, err)
		}
	}
	return nil
}

// ListMetadata returns metadata rows by descending priority.
func (q *Queries) ListMetadata(ctx context.Context, limit, offset int) ([]*model.ContentMetadata, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+metadataColumns+` FROM content_metadata
		ORDER BY translation_priority DESC, id ASC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*model.ContentMetadata
	for rows.Next() {
		m, err := scanMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning metadata: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating metadata: %w", err)
	}
	return result, nil
}

func countsOrEmpty(m map[string]int64) map[string]int64 {
	if m == nil {
		return map[string]int64{}
	}
	return m
}
