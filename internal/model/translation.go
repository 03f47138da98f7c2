// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Translator types
const (
	TranslatorAI    = "ai"
	TranslatorHuman = "human"
)

// HighConfidence is the confidence at or above which an auto translation is
// never regenerated.
const HighConfidence = 0.9

// TranslationRecord is the translated text of one field of one entity in one locale.
type TranslationRecord struct {
	ID                     int64      `json:"id"`
	EntityType             EntityType `json:"entity_type"`
	EntityID               string     `json:"entity_id"`
	FieldName              string     `json:"field_name"`
	Locale                 string     `json:"locale"`
	Translation            string     `json:"translation"`
	IsAutoTranslated       bool       `json:"is_auto_translated"`
	AutoTranslationService string     `json:"auto_translation_service,omitempty"`
	TranslationConfidence  float64    `json:"translation_confidence"`
	NeedsReview            bool       `json:"needs_review"`
	TranslationMethod      Tier       `json:"translation_method,omitempty"`
	TranslatorType         string     `json:"translator_type"` // ai, human
	ContentVersion         int64      `json:"content_version"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// Key returns the entity the record belongs to.
func (r *TranslationRecord) Key() EntityKey {
	return EntityKey{Type: r.EntityType, ID: r.EntityID}
}

// IsHuman reports whether the record was entered by a person.
func (r *TranslationRecord) IsHuman() bool {
	return r.TranslatorType == TranslatorHuman || !r.IsAutoTranslated
}

// ContentMetadata tracks the translation state of one entity.
type ContentMetadata struct {
	ID                   int64            `json:"id"`
	EntityType           EntityType       `json:"entity_type"`
	EntityID             string           `json:"entity_id"`
	SourceLocale         string           `json:"source_locale"`
	TranslationTier      Tier             `json:"translation_tier"`
	AutoTranslate        bool             `json:"auto_translate"`
	AvailableLocales     []string         `json:"available_locales"`
	PendingLocales       []string         `json:"pending_locales"`
	ViewCountByLocale    map[string]int64 `json:"view_count_by_locale"`
	RequestCountByLocale map[string]int64 `json:"request_count_by_locale"`
	TranslationPriority  int64            `json:"translation_priority"`
	ContentVersion       int64            `json:"content_version"`
	LastTranslated       *time.Time       `json:"last_translated,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// Key returns the entity identity.
func (m *ContentMetadata) Key() EntityKey {
	return EntityKey{Type: m.EntityType, ID: m.EntityID}
}

// GlossaryTerm maps a canonical term to its preferred phrase per locale.
type GlossaryTerm struct {
	Key   string            `json:"term_key"`
	Terms map[string]string `json:"terms"`
}

// LocalizedField is the display text chosen for one field.
type LocalizedField struct {
	Field            string `json:"field"`
	Text             string `json:"text"`
	Locale           string `json:"locale"`
	Fallback         bool   `json:"fallback"` // Locale differs from the requested one
	IsAutoTranslated bool   `json:"is_auto_translated"`
	NeedsReview      bool   `json:"needs_review"`
}

// LocalizedContent is an entity's text resolved for one requested locale.
type LocalizedContent struct {
	EntityType EntityType       `json:"entity_type"`
	EntityID   string           `json:"entity_id"`
	Locale     string           `json:"locale"`
	Slug       string           `json:"slug,omitempty"` // from the title or name field
	Fields     []LocalizedField `json:"fields"`
}
