// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package locale is the registry of content locales supported by the platform.
package locale

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/language"
)

// Default is the locale used when nothing else is known about an entity.
const Default = "en"

// Supported lists the content locales in registry order.
var Supported = []string{"en", "ru", "es"}

var names = map[string]string{
	"en": "English",
	"ru": "Russian",
	"es": "Spanish",
}

var matcher = newMatcher()

func newMatcher() language.Matcher {
	tags := make([]language.Tag, 0, len(Supported))
	for _, code := range Supported {
		tags = append(tags, language.MustParse(code))
	}
	return language.NewMatcher(tags)
}

// Name returns the English name of a locale, or the code itself when unknown.
func Name(code string) string {
	if n, ok := names[code]; ok {
		return n
	}
	return code
}

// IsSupported reports whether code is one of the supported locales.
func IsSupported(code string) bool {
	return slices.Contains(Supported, code)
}

// Normalize parses a BCP 47 tag ("es-MX", "RU") down to a supported base locale.
func Normalize(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("empty locale")
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("parsing locale %q: %w", code, err)
	}
	base, _ := tag.Base()
	if !IsSupported(base.String()) {
		return "", fmt.Errorf("unsupported locale %q", code)
	}
	return base.String(), nil
}

// Match picks the best supported locale for an Accept-Language style value.
func Match(accept string) string {
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return Default
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No || idx < 0 || idx >= len(Supported) {
		return Default
	}
	return Supported[idx]
}

// Targets returns every supported locale except source, in registry order.
func Targets(source string) []string {
	out := make([]string, 0, len(Supported))
	for _, code := range Supported {
		if code != source {
			out = append(out, code)
		}
	}
	return out
}

// Missing returns the supported locales absent from available.
func Missing(available []string) []string {
	var out []string
	for _, code := range Supported {
		if !slices.Contains(available, code) {
			out = append(out, code)
		}
	}
	return out
}

// Rank orders locales for deterministic tie-breaking: the default locale
// first, then registry order, then everything unknown.
func Rank(code string) int {
	if code == Default {
		return 0
	}
	if i := slices.Index(Supported, code); i >= 0 {
		return i + 1
	}
	return len(Supported) + 1
}
