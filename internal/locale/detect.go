// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package locale

import (
	"strings"
	"unicode"
)

// spanishMarks are the characters treated as evidence of Spanish text.
const spanishMarks = "áéíóúñ¿¡ÁÉÍÓÚÑ"

// DetectText guesses the locale of a raw string by character set.
// Cyrillic means "ru", Spanish accents or inverted punctuation mean "es",
// anything else is "en". It is a crude approximation for migration
// scripts, not a language identifier.
func DetectText(s string) string {
	for _, r := range s {
		if unicode.Is(unicode.Cyrillic, r) {
			return "ru"
		}
	}
	if strings.ContainsAny(s, spanishMarks) {
		return "es"
	}
	return Default
}
