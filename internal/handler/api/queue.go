// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/yoga-i18n/internal/queue"
	"github.com/olegiv/yoga-i18n/internal/scheduler"
)

// EnqueueResponse reports an enqueue call.
type EnqueueResponse struct {
	Created bool `json:"created"`
	Item    any  `json:"item"`
}

// Enqueue handles POST /queue.
func (h *Handler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req queue.EnqueueRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	item, created, err := h.queue.Enqueue(r.Context(), req)
	if errors.Is(err, queue.ErrNothingToTranslate) {
		WriteError(w, http.StatusUnprocessableEntity, "nothing_to_translate", err.Error(), nil)
		return
	}
	if err != nil {
		h.WriteServiceError(w, r, err, "enqueue entity")
		return
	}

	resp := EnqueueResponse{Created: created, Item: item}
	if created {
		WriteCreated(w, resp)
		return
	}
	WriteSuccess(w, resp, nil)
}

// QueueStatus handles GET /queue/status.
func (h *Handler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.queue.Status(r.Context())
	if err != nil {
		h.WriteServiceError(w, r, err, "load queue status")
		return
	}
	WriteSuccess(w, status, nil)
}

// QueueItem handles GET /queue/items/{id}.
func (h *Handler) QueueItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		WriteBadRequest(w, "Invalid queue item ID", nil)
		return
	}

	item, err := h.queue.Get(r.Context(), id)
	if err != nil {
		h.WriteServiceError(w, r, err, "load queue item")
		return
	}
	WriteSuccess(w, item, nil)
}

// RetryResponse reports how many failed items were reset.
type RetryResponse struct {
	Reset int64 `json:"reset"`
}

// RetryFailed handles POST /queue/retry.
func (h *Handler) RetryFailed(w http.ResponseWriter, r *http.Request) {
	n, err := h.queue.RetryFailed(r.Context())
	if err != nil {
		h.WriteServiceError(w, r, err, "retry failed items")
		return
	}
	WriteSuccess(w, RetryResponse{Reset: n}, nil)
}

// ProcessQueue handles POST /queue/process?limit=N. Rows are claimed
// atomically, so a concurrent scheduled run never picks the same items.
func (h *Handler) ProcessQueue(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", queue.DefaultLimit, 100)
	if err != nil {
		WriteBadRequest(w, err.Error(), nil)
		return
	}

	summary, err := h.queue.ProcessPending(r.Context(), limit)
	if err != nil {
		h.WriteServiceError(w, r, err, "process queue")
		return
	}
	WriteSuccess(w, summary, nil)
}

// DiscoverResponse reports a discovery run.
type DiscoverResponse struct {
	Queued int `json:"queued"`
}

// Discover handles POST /queue/discover?limit=N.
func (h *Handler) Discover(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 50, 500)
	if err != nil {
		WriteBadRequest(w, err.Error(), nil)
		return
	}

	n, err := h.queue.EnqueueMissing(r.Context(), limit)
	if err != nil {
		h.WriteServiceError(w, r, err, "discover entities")
		return
	}
	WriteSuccess(w, DiscoverResponse{Queued: n}, nil)
}

// ListJobs handles GET /jobs.
func (h *Handler) ListJobs(w http.ResponseWriter, _ *http.Request) {
	if h.jobs == nil {
		WriteSuccess(w, []scheduler.JobInfo{}, nil)
		return
	}
	WriteSuccess(w, h.jobs.List(), nil)
}

// RunJob handles POST /jobs/{name}/run.
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		WriteError(w, http.StatusServiceUnavailable, "scheduler_disabled", "Scheduler is disabled", nil)
		return
	}

	name := chi.URLParam(r, "name")
	err := h.jobs.TriggerNow(r.Context(), name)
	if errors.Is(err, scheduler.ErrJobRunning) {
		WriteError(w, http.StatusConflict, "job_running", err.Error(), nil)
		return
	}
	if err != nil {
		h.WriteServiceError(w, r, err, "run job "+name)
		return
	}
	WriteSuccess(w, map[string]string{"job": name, "status": "finished"}, nil)
}
