// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Queue item statuses
const (
	QueueStatusPending    = "pending"
	QueueStatusProcessing = "processing"
	QueueStatusCompleted  = "completed"
	QueueStatusFailed     = "failed"
)

// QueueItem is one entity waiting for background translation.
type QueueItem struct {
	ID            int64      `json:"id"`
	EntityType    EntityType `json:"entity_type"`
	EntityID      string     `json:"entity_id"`
	Status        string     `json:"status"`
	SourceLocale  string     `json:"source_locale"`
	TargetLocales []string   `json:"target_locales"`
	Priority      int64      `json:"priority"`
	Attempts      int64      `json:"attempts"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	ClaimedBy     string     `json:"claimed_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Key returns the entity identity.
func (q *QueueItem) Key() EntityKey {
	return EntityKey{Type: q.EntityType, ID: q.EntityID}
}

// QueueStat is an aggregate count of queue rows.
type QueueStat struct {
	EntityType EntityType `json:"entity_type"`
	Locale     string     `json:"locale"`
	Status     string     `json:"status"`
	Count      int64      `json:"count"`
}
