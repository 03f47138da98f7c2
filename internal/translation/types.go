// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package translation fills in missing locale variants of platform content
// by asking a language model for batched translations.
package translation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olegiv/yoga-i18n/internal/locale"
	"github.com/olegiv/yoga-i18n/internal/model"
)

// Errors returned by the service.
var (
	ErrNotConfigured  = errors.New("translation service is not configured")
	ErrInvalidRequest = errors.New("invalid translation request")
)

// Confidence defaults.
const (
	// DefaultConfidence is assumed when the model omits a confidence value.
	DefaultConfidence = 0.8
	// ReviewThreshold flags output below it for human review.
	ReviewThreshold = 0.8
)

// Config tunes the pipeline.
type Config struct {
	Model        string // immediate and on_demand tiers
	EconomyModel string // batch tier

	BatchSizeImmediate int
	BatchSizeOnDemand  int
	BatchSizeBatch     int

	// CallTimeout bounds one batch call, retries included.
	CallTimeout time.Duration

	// RetranslateStale regenerates high-confidence auto translations
	// whose content version is older than the entity's current one.
	RetranslateStale bool

	Temperature float64
	MaxTokens   int64
}

func (c Config) withDefaults() Config {
	if c.BatchSizeImmediate <= 0 {
		c.BatchSizeImmediate = 10
	}
	if c.BatchSizeOnDemand <= 0 {
		c.BatchSizeOnDemand = 8
	}
	if c.BatchSizeBatch <= 0 {
		c.BatchSizeBatch = 5
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 45 * time.Second
	}
	if c.Temperature == 0 {
		c.Temperature = 0.2
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 4096
	}
	if c.EconomyModel == "" {
		c.EconomyModel = c.Model
	}
	return c
}

// batchSize returns the number of tasks sent per model call for tier.
func (c Config) batchSize(tier model.Tier) int {
	switch tier {
	case model.TierImmediate:
		return c.BatchSizeImmediate
	case model.TierBatch:
		return c.BatchSizeBatch
	default:
		return c.BatchSizeOnDemand
	}
}

// modelFor returns the model used for tier.
func (c Config) modelFor(tier model.Tier) string {
	if tier == model.TierBatch {
		return c.EconomyModel
	}
	return c.Model
}

// Request asks for the missing translations of one entity.
type Request struct {
	EntityType    model.EntityType `json:"entityType"`
	EntityID      string           `json:"entityId"`
	SourceLocale  string           `json:"sourceLocale,omitempty"`
	TargetLocales []string         `json:"targetLocales,omitempty"`
	Tier          model.Tier       `json:"tier,omitempty"`
	Fields        []string         `json:"fields,omitempty"`
	UserID        string           `json:"userId,omitempty"`
	Priority      int64            `json:"priority,omitempty"`
}

// Key returns the entity the request is about.
func (r *Request) Key() model.EntityKey {
	return model.EntityKey{Type: r.EntityType, ID: r.EntityID}
}

// normalizeKey canonicalises the entity type and trims the id.
func normalizeKey(key model.EntityKey) (model.EntityKey, error) {
	t, err := model.ParseEntityType(string(key.Type))
	if err != nil {
		return key, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	key.Type = t
	key.ID = strings.TrimSpace(key.ID)
	if key.ID == "" {
		return key, fmt.Errorf("%w: entity id is required", ErrInvalidRequest)
	}
	return key, nil
}

// normalize validates the request in place, canonicalising locales and tier.
func (r *Request) normalize() error {
	t, err := model.ParseEntityType(string(r.EntityType))
	if err != nil {
		return err
	}
	r.EntityType = t

	r.EntityID = strings.TrimSpace(r.EntityID)
	if r.EntityID == "" {
		return errors.New("entity id is required")
	}

	tier, err := model.ParseTier(string(r.Tier))
	if err != nil {
		return err
	}
	r.Tier = tier

	if strings.TrimSpace(r.SourceLocale) != "" {
		src, err := locale.Normalize(r.SourceLocale)
		if err != nil {
			return fmt.Errorf("source locale: %w", err)
		}
		r.SourceLocale = src
	} else {
		r.SourceLocale = ""
	}

	targets := make([]string, 0, len(r.TargetLocales))
	for _, raw := range r.TargetLocales {
		code, err := locale.Normalize(raw)
		if err != nil {
			return fmt.Errorf("target locale: %w", err)
		}
		targets = append(targets, code)
	}
	r.TargetLocales = targets

	fields := make([]string, 0, len(r.Fields))
	for _, f := range r.Fields {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	r.Fields = fields

	if r.Priority < 0 {
		return errors.New("priority must not be negative")
	}
	return nil
}

// TranslationSummary describes one translation written by a run.
type TranslationSummary struct {
	Field       string  `json:"field"`
	Locale      string  `json:"locale"`
	Confidence  float64 `json:"confidence"`
	NeedsReview bool    `json:"needsReview"`
}

// Result reports the outcome of a Translate call.
type Result struct {
	Success           bool                 `json:"success"`
	Message           string               `json:"message"`
	Error             string               `json:"error,omitempty"`
	TranslationsCount int                  `json:"translationsCount"`
	SourceLocale      string               `json:"sourceLocale,omitempty"`
	TargetLocales     []string             `json:"targetLocales"`
	Translations      []TranslationSummary `json:"translations"`
	FailedTasks       int                  `json:"failedTasks"`
	SkippedHuman      int                  `json:"skippedHuman,omitempty"`
	RunID             string               `json:"runId"`
}

// EntityNeed is an entity with supported locales still missing.
type EntityNeed struct {
	EntityType      model.EntityType `json:"entityType"`
	EntityID        string           `json:"entityId"`
	SourceLocale    string           `json:"sourceLocale"`
	ExistingLocales []string         `json:"existingLocales"`
	MissingLocales  []string         `json:"missingLocales"`
	Priority        int64            `json:"priority"`
	AutoTranslate   bool             `json:"autoTranslate"`
}

// Key returns the entity identity.
func (n *EntityNeed) Key() model.EntityKey {
	return model.EntityKey{Type: n.EntityType, ID: n.EntityID}
}
