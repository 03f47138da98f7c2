// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/yoga-i18n/internal/model"
)

const queueColumns = `id, entity_type, entity_id, status, source_locale, target_locales, priority,
	attempts, error_message, claimed_by, created_at, updated_at, started_at, completed_at`

func scanQueueItem(row rowScanner) (*model.QueueItem, error) {
	it := &model.QueueItem{}
	var targets string
	var startedAt, completedAt sql.NullTime
	if err := row.Scan(&it.ID, &it.EntityType, &it.EntityID, &it.Status, &it.SourceLocale, &targets, &it.Priority,
		&it.Attempts, &it.ErrorMessage, &it.ClaimedBy, &it.CreatedAt, &it.UpdatedAt, &startedAt, &completedAt); err != nil {
		return nil, err
	}
	var err error
	if it.TargetLocales, err = decodeLocales(targets); err != nil {
		return nil, err
	}
	if startedAt.Valid {
		t := startedAt.Time
		it.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		it.CompletedAt = &t
	}
	return it, nil
}

func (q *Queries) queryQueueItems(ctx context.Context, query string, args ...any) ([]*model.QueueItem, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []*model.QueueItem
	for rows.Next() {
		it, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning queue item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetQueueItem returns a queue row by id or ErrNotFound.
func (q *Queries) GetQueueItem(ctx context.Context, id int64) (*model.QueueItem, error) {
	it, err := scanQueueItem(q.db.QueryRowContext(ctx,
		`SELECT `+queueColumns+` FROM translation_queue WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading queue item %d: %w", id, err)
	}
	return it, nil
}

// FindActiveQueueItem returns the pending or processing row of an entity, or ErrNotFound.
func (q *Queries) FindActiveQueueItem(ctx context.Context, key model.EntityKey) (*model.QueueItem, error) {
	it, err := scanQueueItem(q.db.QueryRowContext(ctx,
		`SELECT `+queueColumns+` FROM translation_queue
		WHERE entity_type = ? AND entity_id = ? AND status IN (?, ?)
		ORDER BY id LIMIT 1`,
		key.Type, key.ID, model.QueueStatusPending, model.QueueStatusProcessing))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding queue item for %s: %w", key, err)
	}
	return it, nil
}

// CreateQueueItem inserts a pending row and fills in its id and timestamps.
func (q *Queries) CreateQueueItem(ctx context.Context, it *model.QueueItem) error {
	targets, err := encodeJSON(emptyIfNil(it.TargetLocales))
	if err != nil {
		return fmt.Errorf("encoding target locales: %w", err)
	}
	now := time.Now().UTC()
	it.Status = model.QueueStatusPending
	err = q.db.QueryRowContext(ctx, `
		INSERT INTO translation_queue (entity_type, entity_id, status, source_locale, target_locales, priority, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, created_at, updated_at`,
		it.EntityType, it.EntityID, it.Status, it.SourceLocale, targets, it.Priority, now, now,
	).Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating queue item for %s: %w", it.Key(), err)
	}
	return nil
}

// ClaimQueueItems moves up to limit pending rows to processing, stamped with
// claimID, in one statement, and returns them highest priority first.
func (q *Queries) ClaimQueueItems(ctx context.Context, claimID string, limit int) ([]*model.QueueItem, error) {
	now := time.Now().UTC()
	_, err := q.db.ExecContext(ctx, `
		UPDATE translation_queue
		SET status = ?, claimed_by = ?, attempts = attempts + 1, started_at = ?, updated_at = ?
		WHERE id IN (
			SELECT id FROM translation_queue
			WHERE status = ?
			ORDER BY priority DESC, created_at ASC, id ASC
			LIMIT ?
		)`,
		model.QueueStatusProcessing, claimID, now, now, model.QueueStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("claiming queue items: %w", err)
	}

	items, err := q.queryQueueItems(ctx,
		`SELECT `+queueColumns+` FROM translation_queue
		WHERE claimed_by = ? AND status = ?
		ORDER BY priority DESC, created_at ASC, id ASC`,
		claimID, model.QueueStatusProcessing)
	if err != nil {
		return nil, fmt.Errorf("loading claimed queue items: %w", err)
	}
	return items, nil
}

// CompleteQueueItem marks a processing row completed.
func (q *Queries) CompleteQueueItem(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	_, err := q.db.ExecContext(ctx, `
		UPDATE translation_queue SET status = ?, error_message = '', completed_at = ?, updated_at = ?
		WHERE id = ?`, model.QueueStatusCompleted, now, now, id)
	if err != nil {
		return fmt.Errorf("completing queue item %d: %w", id, err)
	}
	return nil
}

// FailQueueItem marks a row failed and records the error message.
func (q *Queries) FailQueueItem(ctx context.Context, id int64, message string) error {
	now := time.Now().UTC()
	_, err := q.db.ExecContext(ctx, `
		UPDATE translation_queue SET status = ?, error_message = ?, completed_at = ?, updated_at = ?
		WHERE id = ?`, model.QueueStatusFailed, message, now, now, id)
	if err != nil {
		return fmt.Errorf("failing queue item %d: %w", id, err)
	}
	return nil
}

// RetryFailedQueueItems resets every failed row to pending and clears its
// error. It returns the number of rows reset.
func (q *Queries) RetryFailedQueueItems(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE translation_queue
		SET status = ?, error_message = '', claimed_by = '', started_at = NULL, completed_at = NULL, updated_at = ?
		WHERE status = ?`,
		model.QueueStatusPending, time.Now().UTC(), model.QueueStatusFailed)
	if err != nil {
		return 0, fmt.Errorf("retrying failed queue items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting retried queue items: %w", err)
	}
	return n, nil
}

// ListQueueItems returns rows with the given status, newest first. An empty
// status lists every row.
func (q *Queries) ListQueueItems(ctx context.Context, status string, limit int) ([]*model.QueueItem, error) {
	items, err := q.queryQueueItems(ctx,
		`SELECT `+queueColumns+` FROM translation_queue
		WHERE ? = '' OR status = ?
		ORDER BY id DESC LIMIT ?`, status, status, limit)
	if err != nil {
		return nil, fmt.Errorf("listing queue items: %w", err)
	}
	return items, nil
}

// QueueStats counts queue rows per entity type, target locale and status.
func (q *Queries) QueueStats(ctx context.Context) ([]model.QueueStat, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT q.entity_type, j.value, q.status, COUNT(*)
		FROM translation_queue q, json_each(q.target_locales) j
		GROUP BY q.entity_type, j.value, q.status
		ORDER BY q.entity_type, j.value, q.status`)
	if err != nil {
		return nil, fmt.Errorf("loading queue stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stats []model.QueueStat
	for rows.Next() {
		var s model.QueueStat
		if err := rows.Scan(&s.EntityType, &s.Locale, &s.Status, &s.Count); err != nil {
			return nil, fmt.Errorf("scanning queue stat: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating queue stats: %w", err)
	}
	return stats, nil
}

// QueueTotals counts queue rows per status.
func (q *Queries) QueueTotals(ctx context.Context) (map[string]int64, error) {
	totals := map[string]int64{
		model.QueueStatusPending:    0,
		model.QueueStatusProcessing: 0,
		model.QueueStatusCompleted:  0,
		model.QueueStatusFailed:     0,
	}
	rows, err := q.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM translation_queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("loading queue totals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning queue total: %w", err)
		}
		totals[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating queue totals: %w", err)
	}
	return totals, nil
}
