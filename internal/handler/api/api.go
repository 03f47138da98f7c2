// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the JSON HTTP API of the translation service.
package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/yoga-i18n/internal/cache"
	"github.com/olegiv/yoga-i18n/internal/model"
	"github.com/olegiv/yoga-i18n/internal/queue"
	"github.com/olegiv/yoga-i18n/internal/scheduler"
	"github.com/olegiv/yoga-i18n/internal/store"
	"github.com/olegiv/yoga-i18n/internal/translation"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	db         *sql.DB
	queries    *store.Queries
	translator *translation.Service
	queue      *queue.Processor
	jobs       *scheduler.Registry
	cacheStats cache.StatsProvider
	logger     *slog.Logger
	startTime  time.Time
}

// Config lists the handler dependencies. Jobs and CacheStats are optional.
type Config struct {
	DB         *sql.DB
	Translator *translation.Service
	Queue      *queue.Processor
	Jobs       *scheduler.Registry
	CacheStats cache.StatsProvider
	Logger     *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		db:         cfg.DB,
		queries:    store.New(cfg.DB),
		translator: cfg.Translator,
		queue:      cfg.Queue,
		jobs:       cfg.Jobs,
		cacheStats: cfg.CacheStats,
		logger:     logger,
		startTime:  time.Now(),
	}
}

// Routes returns the /api/v1 router. Health checks are public; every other
// route runs behind the protect middleware (authentication, rate limiting).
func (h *Handler) Routes(protect ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", h.Health)
	r.Get("/health/live", h.Liveness)

	r.Group(func(r chi.Router) {
		r.Use(protect...)

		r.Post("/translate", h.Translate)
		r.Get("/entities/needing-translation", h.EntitiesNeedingTranslation)

		r.Route("/content/{entityType}/{entityID}", func(r chi.Router) {
			r.Get("/localized", h.Localized)
			r.Put("/translations/{field}/{locale}", h.SetManualTranslation)
			r.Post("/version", h.BumpContentVersion)
		})

		r.Route("/queue", func(r chi.Router) {
			r.Post("/", h.Enqueue)
			r.Get("/status", h.QueueStatus)
			r.Get("/items/{id}", h.QueueItem)
			r.Post("/retry", h.RetryFailed)
			r.Post("/process", h.ProcessQueue)
			r.Post("/discover", h.Discover)
		})

		r.Get("/jobs", h.ListJobs)
		r.Post("/jobs/{name}/run", h.RunJob)

		r.Get("/glossary", h.Glossary)
		r.Get("/usage", h.Usage)
		r.Get("/events", h.Events)
	})

	return r
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data,omitempty"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains pagination and other metadata.
type Meta struct {
	Total   int64 `json:"total,omitempty"`
	Limit   int   `json:"limit,omitempty"`
	Offset  int   `json:"offset,omitempty"`
	HasMore bool  `json:"has_more,omitempty"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, details)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message, nil)
}

// WriteServiceError maps service errors onto HTTP statuses.
func (h *Handler) WriteServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	switch {
	case errors.Is(err, translation.ErrInvalidRequest):
		WriteBadRequest(w, err.Error(), nil)
	case errors.Is(err, translation.ErrNotConfigured):
		WriteError(w, http.StatusServiceUnavailable, "not_configured", err.Error(), nil)
	case errors.Is(err, store.ErrNotFound), errors.Is(err, queue.ErrItemNotFound), errors.Is(err, scheduler.ErrJobNotFound):
		WriteNotFound(w, capitalizeFirst(action)+": not found")
	default:
		h.logger.Error("api request failed", "action", action, "path", r.URL.Path, "error", err)
		WriteInternalError(w, "Failed to "+action)
	}
}

// decodeJSON reads a bounded JSON body into dst. An empty body is allowed
// when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		WriteBadRequest(w, fmt.Sprintf("Invalid JSON body: %v", err), nil)
		return false
	}
	return true
}

// entityKeyParam reads {entityType} and {entityID} from the route.
func entityKeyParam(w http.ResponseWriter, r *http.Request) (model.EntityKey, bool) {
	t, err := model.ParseEntityType(chi.URLParam(r, "entityType"))
	if err != nil {
		WriteBadRequest(w, err.Error(), nil)
		return model.EntityKey{}, false
	}
	id := strings.TrimSpace(chi.URLParam(r, "entityID"))
	if id == "" {
		WriteBadRequest(w, "Entity ID is required", nil)
		return model.EntityKey{}, false
	}
	return model.EntityKey{Type: t, ID: id}, true
}

// intQuery parses a non-negative integer query parameter bounded by upper.
func intQuery(r *http.Request, name string, def, upper int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	if upper > 0 && n > upper {
		n = upper
	}
	return n, nil
}

// csvQuery splits a comma-separated query parameter, dropping blanks.
func csvQuery(r *http.Request, name string) []string {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// capitalizeFirst returns s with the first letter capitalized.
func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
