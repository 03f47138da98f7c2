// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translation

import (
	"slices"
	"strings"

	"github.com/olegiv/yoga-i18n/internal/locale"
	"github.com/olegiv/yoga-i18n/internal/model"
)

// ResolveSource picks the locale treated as authoritative for an entity:
// the explicit one, then the recorded source, then the locale holding the
// most non-empty records, then the default locale.
func ResolveSource(explicit string, meta *model.ContentMetadata, records []*model.TranslationRecord) string {
	if explicit != "" {
		return explicit
	}
	if meta != nil && meta.SourceLocale != "" {
		return meta.SourceLocale
	}
	if code := mostCommonLocale(records); code != "" {
		return code
	}
	return locale.Default
}

// mostCommonLocale returns the locale with the most non-empty records.
// Ties go to the default locale, then registry order, then lexical order.
func mostCommonLocale(records []*model.TranslationRecord) string {
	counts := make(map[string]int)
	for _, r := range records {
		if strings.TrimSpace(r.Translation) == "" {
			continue
		}
		counts[r.Locale]++
	}
	if len(counts) == 0 {
		return ""
	}

	codes := make([]string, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	slices.SortFunc(codes, func(a, b string) int {
		if counts[a] != counts[b] {
			return counts[b] - counts[a]
		}
		if ra, rb := locale.Rank(a), locale.Rank(b); ra != rb {
			return ra - rb
		}
		return strings.Compare(a, b)
	})
	return codes[0]
}

// ResolveTargets returns the locales to translate into. An empty explicit
// list means every supported locale. The source is always removed.
func ResolveTargets(source string, explicit []string) []string {
	if len(explicit) == 0 {
		return locale.Targets(source)
	}
	out := make([]string, 0, len(explicit))
	for _, code := range explicit {
		if code == source || slices.Contains(out, code) {
			continue
		}
		out = append(out, code)
	}
	return out
}
