// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/olegiv/yoga-i18n/internal/model"
)

const localizedPrefix = "localized:"

// LocalizedCache caches resolved localized text per entity, locale and
// field selection.
type LocalizedCache struct {
	typed *TypedCache[model.LocalizedContent]
}

// NewLocalizedCache wraps a backend for localized text.
func NewLocalizedCache(backend Cacher, ttl time.Duration) *LocalizedCache {
	return &LocalizedCache{typed: NewTypedCache[model.LocalizedContent](backend, ttl)}
}

// entityPrefix ends with a separator so "course:1" never matches "course:10".
func entityPrefix(key model.EntityKey) string {
	return localizedPrefix + key.String() + "|"
}

func localizedKey(key model.EntityKey, locale string, fields []string) string {
	sorted := slices.Clone(fields)
	slices.Sort(sorted)
	return entityPrefix(key) + locale + "|" + strings.Join(sorted, ",")
}

// Get returns cached content for the lookup.
func (c *LocalizedCache) Get(ctx context.Context, key model.EntityKey, locale string, fields []string) (*model.LocalizedContent, bool) {
	return c.typed.Get(ctx, localizedKey(key, locale, fields))
}

// Set stores content under its entity and locale.
func (c *LocalizedCache) Set(ctx context.Context, content *model.LocalizedContent, fields []string) error {
	key := model.EntityKey{Type: content.EntityType, ID: content.EntityID}
	return c.typed.Set(ctx, localizedKey(key, content.Locale, fields), content)
}

// InvalidateEntity drops every cached lookup of one entity.
func (c *LocalizedCache) InvalidateEntity(ctx context.Context, key model.EntityKey) error {
	return c.typed.DeletePrefix(ctx, entityPrefix(key))
}
