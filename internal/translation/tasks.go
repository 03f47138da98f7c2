// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translation

import (
	"slices"
	"strings"

	"github.com/olegiv/yoga-i18n/internal/model"
)

// Task is one field to translate into one locale.
type Task struct {
	Field        string
	SourceText   string
	SourceLocale string
	TargetLocale string
}

// ShouldSkip reports whether an existing record must be left alone.
// Human entries are never touched. High-confidence auto entries are kept
// unless stale regeneration is enabled and the content moved on.
func ShouldSkip(rec *model.TranslationRecord, currentVersion int64, retranslateStale bool) bool {
	if rec == nil {
		return false
	}
	if rec.IsHuman() {
		return true
	}
	if rec.TranslationConfidence >= model.HighConfidence {
		if retranslateStale && rec.ContentVersion < currentVersion {
			return false
		}
		return true
	}
	return false
}

// recordIndex maps field and locale to a record.
type recordIndex map[string]map[string]*model.TranslationRecord

func indexRecords(records []*model.TranslationRecord) recordIndex {
	idx := make(recordIndex)
	for _, r := range records {
		byLocale, ok := idx[r.FieldName]
		if !ok {
			byLocale = make(map[string]*model.TranslationRecord)
			idx[r.FieldName] = byLocale
		}
		byLocale[r.Locale] = r
	}
	return idx
}

func (idx recordIndex) get(field, code string) *model.TranslationRecord {
	return idx[field][code]
}

// sourceText returns the non-blank source text of field, if any.
func (idx recordIndex) sourceText(field, source string) (string, bool) {
	rec := idx.get(field, source)
	if rec == nil || strings.TrimSpace(rec.Translation) == "" {
		return "", false
	}
	return rec.Translation, true
}

// BuildTasks lists the work for one run, field-major in targets order.
// Fields without source text are skipped entirely.
func BuildTasks(fields []string, source string, targets []string, records []*model.TranslationRecord,
	currentVersion int64, retranslateStale bool) []Task {
	idx := indexRecords(records)

	var tasks []Task
	for _, field := range fields {
		text, ok := idx.sourceText(field, source)
		if !ok {
			continue
		}
		for _, target := range targets {
			if ShouldSkip(idx.get(field, target), currentVersion, retranslateStale) {
				continue
			}
			tasks = append(tasks, Task{
				Field:        field,
				SourceText:   text,
				SourceLocale: source,
				TargetLocale: target,
			})
		}
	}
	return tasks
}

// selectFields narrows the required fields to the requested ones,
// preserving configured order. It also returns requested names that are
// not translatable.
func selectFields(required, requested []string) (fields, unknown []string) {
	if len(requested) == 0 {
		return required, nil
	}
	for _, f := range required {
		if slices.Contains(requested, f) {
			fields = append(fields, f)
		}
	}
	for _, f := range requested {
		if !slices.Contains(required, f) && !slices.Contains(unknown, f) {
			unknown = append(unknown, f)
		}
	}
	return fields, unknown
}

// splitTasks breaks tasks into consecutive batches of at most size.
func splitTasks(tasks []Task, size int) [][]Task {
	if size <= 0 {
		size = len(tasks)
	}
	var batches [][]Task
	for i := 0; i < len(tasks); i += size {
		end := min(i+size, len(tasks))
		batches = append(batches, tasks[i:end])
	}
	return batches
}
