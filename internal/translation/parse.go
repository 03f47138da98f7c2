// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// errNoJSON is returned when a response holds no decodable JSON object.
var errNoJSON = errors.New("no JSON object found in response")

// parsedTranslation is one usable entry of a model response.
type parsedTranslation struct {
	Index      int
	Text       string
	Confidence float64
}

type rawTranslation struct {
	Index          *int     `json:"index"`
	TranslatedText *string  `json:"translated_text"`
	Confidence     *float64 `json:"confidence"`
}

type rawResponse struct {
	Translations *[]rawTranslation `json:"translations"`
}

// parseResponse decodes a model response for a batch of batchLen tasks.
// Entries with a bad or repeated index or an empty text are dropped and
// reported in warnings. A response without a translations list is an error.
func parseResponse(content string, batchLen int) ([]parsedTranslation, []string, error) {
	resp, err := decodeResponse(content)
	if err != nil {
		return nil, nil, err
	}

	var (
		out      []parsedTranslation
		warnings []string
		seen     = make(map[int]bool)
	)
	for i, raw := range *resp.Translations {
		if raw.Index == nil {
			warnings = append(warnings, fmt.Sprintf("entry %d has no index", i))
			continue
		}
		idx := *raw.Index
		if idx < 0 || idx >= batchLen {
			warnings = append(warnings, fmt.Sprintf("entry %d has out of range index %d", i, idx))
			continue
		}
		if seen[idx] {
			warnings = append(warnings, fmt.Sprintf("entry %d repeats index %d", i, idx))
			continue
		}
		if raw.TranslatedText == nil || strings.TrimSpace(*raw.TranslatedText) == "" {
			warnings = append(warnings, fmt.Sprintf("entry %d for index %d has empty text", i, idx))
			continue
		}
		seen[idx] = true

		conf := DefaultConfidence
		if raw.Confidence != nil {
			conf = clampConfidence(*raw.Confidence)
		}
		out = append(out, parsedTranslation{
			Index:      idx,
			Text:       strings.TrimSpace(*raw.TranslatedText),
			Confidence: conf,
		})
	}

	return out, warnings, nil
}

// decodeResponse finds the first JSON object in content that carries a
// translations list. Code fences and surrounding prose are ignored.
func decodeResponse(content string) (*rawResponse, error) {
	cleaned := stripFences(content)

	var lastErr error
	for start := 0; start < len(cleaned); {
		obj, next, ok := nextObject(cleaned, start)
		if !ok {
			break
		}
		resp := &rawResponse{}
		if err := json.Unmarshal([]byte(obj), resp); err != nil {
			lastErr = err
		} else if resp.Translations != nil {
			return resp, nil
		} else {
			lastErr = errors.New(`object has no "translations" field`)
		}
		start = next
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", errNoJSON, lastErr)
	}
	return nil, errNoJSON
}

// stripFences removes a surrounding markdown code fence.
func stripFences(s string) string {
	cleaned := strings.TrimSpace(s)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	cleaned = strings.TrimPrefix(cleaned, "```")
	if nl := strings.IndexByte(cleaned, '\n'); nl >= 0 && !strings.ContainsAny(cleaned[:nl], "{[") {
		cleaned = cleaned[nl+1:]
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}

// nextObject returns the first balanced {...} block at or after from,
// skipping braces inside JSON strings, and the offset to resume scanning.
func nextObject(s string, from int) (string, int, bool) {
	open := strings.IndexByte(s[from:], '{')
	if open < 0 {
		return "", 0, false
	}
	open += from

	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[open : i+1], open + 1, true
			}
		}
	}
	return "", 0, false
}

func clampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c):
		return DefaultConfidence
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}
