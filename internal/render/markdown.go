// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render turns stored translation text into display HTML.
package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// markdown converts authored and translated descriptions. Raw HTML in the
// source is escaped by goldmark's default (unsafe off) renderer.
var markdown = goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough))

// htmlSanitizer strips anything the UGC policy does not allow, including
// whatever a model may have invented in its output.
var htmlSanitizer = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}()

// HTML renders Markdown text as sanitized HTML.
func HTML(text string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return template.HTML(htmlSanitizer.SanitizeBytes(buf.Bytes())), nil //nolint:gosec // sanitized above
}

// Fields renders every value of a field map. Values that fail to render
// keep their escaped plain text.
func Fields(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for field, text := range values {
		html, err := HTML(text)
		if err != nil {
			out[field] = template.HTMLEscapeString(text)
			continue
		}
		out[field] = string(html)
	}
	return out
}
