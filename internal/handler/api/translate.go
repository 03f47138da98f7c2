// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/yoga-i18n/internal/locale"
	"github.com/olegiv/yoga-i18n/internal/middleware"
	"github.com/olegiv/yoga-i18n/internal/model"
	"github.com/olegiv/yoga-i18n/internal/render"
	"github.com/olegiv/yoga-i18n/internal/translation"
)

// Translate handles POST /translate. The body is a translation request and
// the response is always a translation result:
//
//	200 translations ran (possibly zero were needed)
//	422 nothing could run (entity not found, no source text, gate closed)
//	400 invalid request, 503 model not configured, 500 storage failure
func (h *Handler) Translate(w http.ResponseWriter, r *http.Request) {
	var req translation.Request
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if req.UserID == "" {
		req.UserID = middleware.GetClient(r)
	}

	result, err := h.translator.Translate(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		msg := "translation failed"
		switch {
		case errors.Is(err, translation.ErrInvalidRequest):
			status, msg = http.StatusBadRequest, err.Error()
		case errors.Is(err, translation.ErrNotConfigured):
			status, msg = http.StatusServiceUnavailable, err.Error()
		default:
			h.logger.Error("translate request failed",
				"category", model.EventCategoryTranslation,
				"entity", req.Key().String(), "error", err)
		}
		WriteJSON(w, status, translation.Result{Success: false, Error: msg})
		return
	}

	if !result.Success {
		WriteJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// EntitiesNeedingTranslation handles GET /entities/needing-translation?limit=N.
func (h *Handler) EntitiesNeedingTranslation(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 50, 500)
	if err != nil {
		WriteBadRequest(w, err.Error(), nil)
		return
	}

	needs, err := h.translator.EntitiesNeedingTranslation(r.Context(), limit)
	if err != nil {
		h.WriteServiceError(w, r, err, "list entities needing translation")
		return
	}
	WriteSuccess(w, needs, &Meta{Total: int64(len(needs)), Limit: limit})
}

// Localized handles GET /content/{entityType}/{entityID}/localized.
// The locale comes from ?locale, else Accept-Language. ?fields=a,b limits
// the fields and ?format=html renders Markdown to sanitized HTML.
func (h *Handler) Localized(w http.ResponseWriter, r *http.Request) {
	key, ok := entityKeyParam(w, r)
	if !ok {
		return
	}

	code := r.URL.Query().Get("locale")
	if code == "" {
		code = locale.Match(r.Header.Get("Accept-Language"))
	}

	content, err := h.translator.Localized(r.Context(), key, code, csvQuery(r, "fields"))
	if err != nil {
		h.WriteServiceError(w, r, err, "load content")
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "html") {
		content = renderHTML(content)
	}
	w.Header().Set("Content-Language", content.Locale)
	WriteSuccess(w, content, nil)
}

// renderHTML returns a copy of content with every text rendered as HTML.
func renderHTML(content *model.LocalizedContent) *model.LocalizedContent {
	texts := make(map[string]string, len(content.Fields))
	for _, f := range content.Fields {
		texts[f.Field] = f.Text
	}
	rendered := render.Fields(texts)

	out := *content
	out.Fields = make([]model.LocalizedField, len(content.Fields))
	for i, f := range content.Fields {
		f.Text = rendered[f.Field]
		out.Fields[i] = f
	}
	return &out
}

// ManualTranslationRequest is the body of a manual translation.
type ManualTranslationRequest struct {
	Text string `json:"text"`
}

// SetManualTranslation handles PUT /content/{entityType}/{entityID}/translations/{field}/{locale}.
// Human text is never overwritten by the model afterwards.
func (h *Handler) SetManualTranslation(w http.ResponseWriter, r *http.Request) {
	key, ok := entityKeyParam(w, r)
	if !ok {
		return
	}
	var req ManualTranslationRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	rec, err := h.translator.SetManualTranslation(r.Context(), key,
		chi.URLParam(r, "field"), chi.URLParam(r, "locale"), req.Text)
	if err != nil {
		h.WriteServiceError(w, r, err, "save translation")
		return
	}
	WriteSuccess(w, rec, nil)
}

// ContentVersionResponse reports a bumped content version.
type ContentVersionResponse struct {
	Entity         string `json:"entity"`
	ContentVersion int64  `json:"contentVersion"`
}

// BumpContentVersion handles POST /content/{entityType}/{entityID}/version,
// called by content producers after the source text changed.
func (h *Handler) BumpContentVersion(w http.ResponseWriter, r *http.Request) {
	key, ok := entityKeyParam(w, r)
	if !ok {
		return
	}

	version, err := h.translator.BumpContentVersion(r.Context(), key)
	if err != nil {
		h.WriteServiceError(w, r, err, "bump content version")
		return
	}
	WriteSuccess(w, ContentVersionResponse{Entity: key.String(), ContentVersion: version}, nil)
}
