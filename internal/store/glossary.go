// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/olegiv/yoga-i18n/internal/model"
)

// ListGlossary returns all glossary terms grouped by key, sorted by key.
func (q *Queries) ListGlossary(ctx context.Context) ([]model.GlossaryTerm, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT term_key, locale, term FROM glossary_terms ORDER BY term_key, locale`)
	if err != nil {
		return nil, fmt.Errorf("listing glossary: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []model.GlossaryTerm
	for rows.Next() {
		var key, locale, term string
		if err := rows.Scan(&key, &locale, &term); err != nil {
			return nil, fmt.Errorf("scanning glossary term: %w", err)
		}
		if n := len(result); n == 0 || result[n-1].Key != key {
			result = append(result, model.GlossaryTerm{Key: key, Terms: map[string]string{}})
		}
		result[len(result)-1].Terms[locale] = term
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating glossary: %w", err)
	}
	return result, nil
}

// UpsertGlossaryTerm sets the preferred phrase of a term in one locale.
func (q *Queries) UpsertGlossaryTerm(ctx context.Context, key, locale, term string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO glossary_terms (term_key, locale, term, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(term_key, locale) DO UPDATE SET
			term = excluded.term,
			updated_at = excluded.updated_at`,
		key, locale, term, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upserting glossary term %s/%s: %w", key, locale, err)
	}
	return nil
}

// RequiredFields returns the field names that must be translated for an
// entity type, in declaration order.
func (q *Queries) RequiredFields(ctx context.Context, entityType model.EntityType) ([]string, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT field_name FROM required_fields WHERE entity_type = ? ORDER BY position, field_name`,
		entityType)
	if err != nil {
		return nil, fmt.Errorf("listing required fields for %s: %w", entityType, err)
	}
	defer func() { _ = rows.Close() }()

	var fields []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("scanning required field: %w", err)
		}
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating required fields: %w", err)
	}
	return fields, nil
}
