// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/olegiv/yoga-i18n/internal/cache"
	"github.com/olegiv/yoga-i18n/internal/model"
	"github.com/olegiv/yoga-i18n/internal/version"
)

// HealthStatus represents the overall health status.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   version.Info     `json:"version"`
	Checks    map[string]Check `json:"checks"`
	Cache     *cache.Stats     `json:"cache,omitempty"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Health handles GET /health. The database is required; a missing model
// key only degrades translation, so it is reported but not failed.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dbCheck := h.checkDatabase(r.Context())

	llmCheck := Check{Status: "healthy"}
	if !h.translator.Configured() {
		llmCheck = Check{Status: "degraded", Message: "language model is not configured"}
	}

	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   version.Get(),
		Checks: map[string]Check{
			"database": dbCheck,
			"llm":      llmCheck,
		},
	}
	if h.cacheStats != nil {
		stats := h.cacheStats.Stats()
		status.Cache = &stats
	}

	code := http.StatusOK
	switch {
	case dbCheck.Status != "healthy":
		status.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	case llmCheck.Status != "healthy":
		status.Status = "degraded"
	}
	WriteJSON(w, code, status)
}

// Liveness handles GET /health/live - simple liveness check.
func (h *Handler) Liveness(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (h *Handler) checkDatabase(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	if err := h.db.PingContext(ctx); err != nil {
		return Check{Status: "unhealthy", Message: "database unreachable"}
	}
	return Check{Status: "healthy", Latency: time.Since(start).String()}
}

// Glossary handles GET /glossary.
func (h *Handler) Glossary(w http.ResponseWriter, r *http.Request) {
	terms, err := h.queries.ListGlossary(r.Context())
	if err != nil {
		h.WriteServiceError(w, r, err, "load glossary")
		return
	}
	if terms == nil {
		terms = []model.GlossaryTerm{}
	}
	WriteSuccess(w, terms, &Meta{Total: int64(len(terms))})
}

// UsageResponse combines aggregate and recent model usage.
type UsageResponse struct {
	Stats       *model.UsageStats    `json:"stats"`
	NeedsReview int64                `json:"needsReview"`
	Recent      []*model.UsageRecord `json:"recent"`
}

// Usage handles GET /usage?limit=N&offset=M.
func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 20, 100)
	if err != nil {
		WriteBadRequest(w, err.Error(), nil)
		return
	}
	offset, err := intQuery(r, "offset", 0, 0)
	if err != nil {
		WriteBadRequest(w, err.Error(), nil)
		return
	}

	ctx := r.Context()
	stats, err := h.queries.UsageStats(ctx)
	if err != nil {
		h.WriteServiceError(w, r, err, "load usage")
		return
	}
	review, err := h.queries.CountNeedsReview(ctx)
	if err != nil {
		h.WriteServiceError(w, r, err, "count translations needing review")
		return
	}
	recent, err := h.queries.ListUsage(ctx, limit, offset)
	if err != nil {
		h.WriteServiceError(w, r, err, "load usage")
		return
	}
	if recent == nil {
		recent = []*model.UsageRecord{}
	}

	WriteSuccess(w, UsageResponse{Stats: stats, NeedsReview: review, Recent: recent},
		&Meta{Total: stats.TotalRequests, Limit: limit, Offset: offset, HasMore: int64(offset+len(recent)) < stats.TotalRequests})
}

// Events handles GET /events?limit=N&offset=M.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 50, 200)
	if err != nil {
		WriteBadRequest(w, err.Error(), nil)
		return
	}
	offset, err := intQuery(r, "offset", 0, 0)
	if err != nil {
		WriteBadRequest(w, err.Error(), nil)
		return
	}

	events, err := h.queries.ListEvents(r.Context(), limit, offset)
	if err != nil {
		h.WriteServiceError(w, r, err, "load events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	WriteSuccess(w, events, &Meta{Limit: limit, Offset: offset})
}
