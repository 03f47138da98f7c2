// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryTranslation = "translation"
	EventCategoryQueue       = "queue"
	EventCategoryLLM         = "llm"
	EventCategoryConfig      = "config"
	EventCategorySystem      = "system"
)

// Event represents a system event log entry.
type Event struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Metadata  string    `json:"metadata"` // JSON string
	CreatedAt time.Time `json:"created_at"`
}

// UsageRecord is one LLM call made by the translation pipeline.
type UsageRecord struct {
	ID               int64      `json:"id"`
	RunID            string     `json:"run_id"`
	EntityType       EntityType `json:"entity_type"`
	EntityID         string     `json:"entity_id"`
	Provider         string     `json:"provider"`
	Model            string     `json:"model"`
	Tier             Tier       `json:"tier"`
	BatchSize        int64      `json:"batch_size"`
	Succeeded        bool       `json:"succeeded"`
	PromptTokens     int64      `json:"prompt_tokens"`
	CompletionTokens int64      `json:"completion_tokens"`
	CostUSD          float64    `json:"cost_usd"`
	RequestedBy      string     `json:"requested_by,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// UsageStats contains aggregated usage statistics.
type UsageStats struct {
	TotalRequests  int64                       `json:"total_requests"`
	FailedRequests int64                       `json:"failed_requests"`
	TotalTokens    int64                       `json:"total_tokens"`
	TotalCostUSD   float64                     `json:"total_cost_usd"`
	ByModel        map[string]*ModelUsageStats `json:"by_model"`
}

// ModelUsageStats contains per-model aggregate stats.
type ModelUsageStats struct {
	Model        string  `json:"model"`
	Requests     int64   `json:"requests"`
	TotalTokens  int64   `json:"total_tokens"`
	TotalCostUSD float64 `json:"total_cost_usd"`
}
