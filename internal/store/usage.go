// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/olegiv/yoga-i18n/internal/model"
)

// LogUsage records one model call made by the translation pipeline.
func (q *Queries) LogUsage(ctx context.Context, rec *model.UsageRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO translation_usage (run_id, entity_type, entity_id, provider, model, tier, batch_size,
			succeeded, prompt_tokens, completion_tokens, cost_usd, requested_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.EntityType, rec.EntityID, rec.Provider, rec.Model, rec.Tier, rec.BatchSize,
		rec.Succeeded, rec.PromptTokens, rec.CompletionTokens, rec.CostUSD, rec.RequestedBy, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("logging usage: %w", err)
	}
	return nil
}

// UsageStats aggregates the usage table.
func (q *Queries) UsageStats(ctx context.Context) (*model.UsageStats, error) {
	stats := &model.UsageStats{
		ByModel: make(map[string]*model.ModelUsageStats),
	}

	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN succeeded = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(prompt_tokens + completion_tokens), 0),
			COALESCE(SUM(cost_usd), 0)
		FROM translation_usage`,
	).Scan(&stats.TotalRequests, &stats.FailedRequests, &stats.TotalTokens, &stats.TotalCostUSD)
	if err != nil {
		return nil, fmt.Errorf("loading total usage: %w", err)
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT model, COUNT(*), COALESCE(SUM(prompt_tokens + completion_tokens), 0), COALESCE(SUM(cost_usd), 0)
		FROM translation_usage
		GROUP BY model
		ORDER BY model`)
	if err != nil {
		return nil, fmt.Errorf("loading model usage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		ms := &model.ModelUsageStats{}
		if err := rows.Scan(&ms.Model, &ms.Requests, &ms.TotalTokens, &ms.TotalCostUSD); err != nil {
			return nil, fmt.Errorf("scanning model usage: %w", err)
		}
		stats.ByModel[ms.Model] = ms
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating model usage: %w", err)
	}

	return stats, nil
}

// ListUsage returns recent usage records with pagination.
func (q *Queries) ListUsage(ctx context.Context, limit, offset int) ([]*model.UsageRecord, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, run_id, entity_type, entity_id, provider, model, tier, batch_size, succeeded,
			prompt_tokens, completion_tokens, cost_usd, requested_by, created_at
		FROM translation_usage
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing usage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*model.UsageRecord
	for rows.Next() {
		r := &model.UsageRecord{}
		if err := rows.Scan(&r.ID, &r.RunID, &r.EntityType, &r.EntityID, &r.Provider, &r.Model, &r.Tier,
			&r.BatchSize, &r.Succeeded, &r.PromptTokens, &r.CompletionTokens, &r.CostUSD,
			&r.RequestedBy, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning usage record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating usage: %w", err)
	}
	return records, nil
}
