// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translation

import (
	"context"

	"github.com/olegiv/yoga-i18n/internal/model"
)

// LocalizedCache stores resolved localized text per entity.
type LocalizedCache interface {
	Get(ctx context.Context, key model.EntityKey, locale string, fields []string) (*model.LocalizedContent, bool)
	Set(ctx context.Context, content *model.LocalizedContent, fields []string) error
	InvalidateEntity(ctx context.Context, key model.EntityKey) error
}

type noopCache struct{}

func (noopCache) Get(context.Context, model.EntityKey, string, []string) (*model.LocalizedContent, bool) {
	return nil, false
}

func (noopCache) Set(context.Context, *model.LocalizedContent, []string) error { return nil }

func (noopCache) InvalidateEntity(context.Context, model.EntityKey) error { return nil }

func (s *Service) invalidate(ctx context.Context, key model.EntityKey) {
	if err := s.cache.InvalidateEntity(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("failed to invalidate localized cache",
			"category", model.EventCategoryTranslation, "entity", key.String(), "error", err)
	}
}
