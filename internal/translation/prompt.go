// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/olegiv/yoga-i18n/internal/locale"
	"github.com/olegiv/yoga-i18n/internal/model"
)

const promptPreamble = `You are a professional translator for a yoga and wellness platform that publishes yoga classes, courses, teacher profiles, chakra guides, articles and playlists.

Translate naturally for native speakers of the target language. Keep the calm, supportive tone of the source. Keep Sanskrit pose and concept names in their commonly used form for the target language. Preserve Markdown, HTML tags, line breaks, URLs and placeholders such as {name} exactly as they appear.`

// buildSystemPrompt creates the instructions shared by every batch of a run.
func buildSystemPrompt(entityType model.EntityType, terms []model.GlossaryTerm) string {
	var sb strings.Builder

	sb.WriteString(promptPreamble)
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("You are translating a %s. %s\n", entityType.Label(), entityType.Context()))

	if len(terms) > 0 {
		sb.WriteString("\nGlossary. Use these preferred terms consistently:\n")
		for _, term := range terms {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", term.Key, formatTerm(term)))
		}
	}

	sb.WriteString(`
You must respond with a valid JSON object (no markdown code fences, no extra text) of exactly this shape:

{"translations": [{"index": 0, "translated_text": "...", "confidence": 0.95}]}

Important rules:
- Return one entry per numbered text, using the same index
- "confidence" is your confidence in the translation, between 0 and 1
- Do not translate the field names
- Respond ONLY with the JSON object, no other text`)

	return sb.String()
}

// buildUserPrompt lists the numbered texts of one batch.
func buildUserPrompt(tasks []Task) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Translate the following %d texts.\n", len(tasks)))
	for i, t := range tasks {
		sb.WriteString(fmt.Sprintf("\n[%d] Field: %s\n", i, t.Field))
		sb.WriteString(fmt.Sprintf("From: %s (%s)\n", locale.Name(t.SourceLocale), t.SourceLocale))
		sb.WriteString(fmt.Sprintf("To: %s (%s)\n", locale.Name(t.TargetLocale), t.TargetLocale))
		sb.WriteString(fmt.Sprintf("Text: %s\n", quoteText(t.SourceText)))
	}

	return sb.String()
}

// quoteText renders s as a JSON string so quotes and newlines survive
// the prompt unambiguously.
func quoteText(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return fmt.Sprintf("%q", s)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// relevantTerms keeps the glossary entries that occur in any task's source
// text, matched case-insensitively by key or by the source-locale phrase.
func relevantTerms(glossary []model.GlossaryTerm, tasks []Task) []model.GlossaryTerm {
	var out []model.GlossaryTerm
	for _, term := range glossary {
		for _, t := range tasks {
			if termOccurs(term, t) {
				out = append(out, term)
				break
			}
		}
	}
	return out
}

func termOccurs(term model.GlossaryTerm, t Task) bool {
	text := strings.ToLower(t.SourceText)
	if term.Key != "" && strings.Contains(text, strings.ToLower(term.Key)) {
		return true
	}
	phrase := term.Terms[t.SourceLocale]
	return phrase != "" && strings.Contains(text, strings.ToLower(phrase))
}

// formatTerm lists a term's phrases in registry order, unknown locales last.
func formatTerm(term model.GlossaryTerm) string {
	codes := make([]string, 0, len(term.Terms))
	for code := range term.Terms {
		codes = append(codes, code)
	}
	slices.SortFunc(codes, func(a, b string) int {
		if ra, rb := locale.Rank(a), locale.Rank(b); ra != rb {
			return ra - rb
		}
		return strings.Compare(a, b)
	})

	parts := make([]string, 0, len(codes))
	for _, code := range codes {
		parts = append(parts, fmt.Sprintf("%s %q", code, term.Terms[code]))
	}
	return strings.Join(parts, ", ")
}
