package translation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/olegiv/yoga-i18n/internal/llm"
	"github.com/olegiv/yoga-i18n/internal/model"
	"github.com/olegiv/yoga-i18n/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRepo is an in-memory store.Repository.
type fakeRepo struct {
	mu        sync.Mutex
	nextID    int64
	meta      map[model.EntityKey]*model.ContentMetadata
	records   map[string]*model.TranslationRecord
	required  map[model.EntityType][]string
	glossary  []model.GlossaryTerm
	usage     []*model.UsageRecord
	upsertErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		meta:    make(map[model.EntityKey]*model.ContentMetadata),
		records: make(map[string]*model.TranslationRecord),
		required: map[model.EntityType][]string{
			model.EntityCourse:  {"title", "description"},
			model.EntityTeacher: {"name", "bio"},
			model.EntityClass:   {"title", "description"},
		},
		glossary: []model.GlossaryTerm{
			{Key: "asana", Terms: map[string]string{"en": "asana", "ru": "асана", "es": "asana"}},
			{Key: "chakra", Terms: map[string]string{"en": "chakra", "ru": "чакра", "es": "chakra"}},
		},
	}
}

func recordKey(key model.EntityKey, field, code string) string {
	return fmt.Sprintf("%s|%s|%s", key, field, code)
}

func copyMeta(m *model.ContentMetadata) *model.ContentMetadata {
	c := *m
	c.AvailableLocales = slices.Clone(m.AvailableLocales)
	c.PendingLocales = slices.Clone(m.PendingLocales)
	c.RequestCountByLocale = make(map[string]int64, len(m.RequestCountByLocale))
	for k, v := range m.RequestCountByLocale {
		c.RequestCountByLocale[k] = v
	}
	return &c
}

// putRecord stores a record directly, bypassing the pipeline.
func (f *fakeRepo) putRecord(rec model.TranslationRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	rec.ID = f.nextID
	f.records[recordKey(rec.Key(), rec.FieldName, rec.Locale)] = &rec
}

// putSource stores authored text in one locale.
func (f *fakeRepo) putSource(key model.EntityKey, code string, fields map[string]string) {
	for field, text := range fields {
		f.putRecord(model.TranslationRecord{
			EntityType:     key.Type,
			EntityID:       key.ID,
			FieldName:      field,
			Locale:         code,
			Translation:    text,
			TranslatorType: model.TranslatorHuman,
			ContentVersion: 1,
		})
	}
}

func (f *fakeRepo) record(key model.EntityKey, field, code string) *model.TranslationRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[recordKey(key, field, code)]
	if !ok {
		return nil
	}
	c := *rec
	return &c
}

func (f *fakeRepo) GetMetadata(_ context.Context, key model.EntityKey) (*model.ContentMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.meta[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyMeta(m), nil
}

func (f *fakeRepo) UpsertMetadata(_ context.Context, meta *model.ContentMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if meta.ContentVersion <= 0 {
		meta.ContentVersion = 1
	}
	if meta.TranslationTier == "" {
		meta.TranslationTier = model.TierOnDemand
	}
	if meta.ID == 0 {
		f.nextID++
		meta.ID = f.nextID
	}
	f.meta[meta.Key()] = copyMeta(meta)
	return nil
}

func (f *fakeRepo) IncrementRequestCounts(_ context.Context, key model.EntityKey, locales []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.meta[key]
	if !ok {
		return nil
	}
	if m.RequestCountByLocale == nil {
		m.RequestCountByLocale = make(map[string]int64)
	}
	for _, code := range locales {
		m.RequestCountByLocale[code]++
	}
	return nil
}

func (f *fakeRepo) ListMetadata(_ context.Context, limit, offset int) ([]*model.ContentMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]*model.ContentMetadata, 0, len(f.meta))
	for _, m := range f.meta {
		all = append(all, copyMeta(m))
	}
	slices.SortFunc(all, func(a, b *model.ContentMetadata) int {
		if a.TranslationPriority != b.TranslationPriority {
			return int(b.TranslationPriority - a.TranslationPriority)
		}
		return int(a.ID - b.ID)
	})
	if offset >= len(all) {
		return nil, nil
	}
	return all[offset:min(offset+limit, len(all))], nil
}

func (f *fakeRepo) ListTranslations(_ context.Context, key model.EntityKey) ([]*model.TranslationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.TranslationRecord
	for _, r := range f.records {
		if r.Key() == key {
			c := *r
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *model.TranslationRecord) int {
		if c := strings.Compare(a.FieldName, b.FieldName); c != 0 {
			return c
		}
		return strings.Compare(a.Locale, b.Locale)
	})
	return out, nil
}

func (f *fakeRepo) UpsertTranslation(_ context.Context, rec *model.TranslationRecord) (*model.TranslationRecord, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k := recordKey(rec.Key(), rec.FieldName, rec.Locale)
	prev := f.records[k]
	c := *rec
	if prev != nil {
		c.ID = prev.ID
	} else {
		f.nextID++
		c.ID = f.nextID
	}
	c.UpdatedAt = time.Now()
	f.records[k] = &c
	return prev, nil
}

func (f *fakeRepo) SetManualTranslation(ctx context.Context, key model.EntityKey, field, code, text string) (*model.TranslationRecord, error) {
	rec := model.TranslationRecord{
		EntityType:            key.Type,
		EntityID:              key.ID,
		FieldName:             field,
		Locale:                code,
		Translation:           text,
		TranslatorType:        model.TranslatorHuman,
		TranslationConfidence: 1,
		ContentVersion:        1,
	}
	if _, err := f.UpsertTranslation(ctx, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (f *fakeRepo) BumpContentVersion(_ context.Context, key model.EntityKey) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.meta[key]
	if !ok {
		return 0, store.ErrNotFound
	}
	m.ContentVersion++
	return m.ContentVersion, nil
}

func (f *fakeRepo) RequiredFields(_ context.Context, entityType model.EntityType) ([]string, error) {
	return f.required[entityType], nil
}

func (f *fakeRepo) ListGlossary(context.Context) ([]model.GlossaryTerm, error) {
	return f.glossary, nil
}

func (f *fakeRepo) LogUsage(_ context.Context, rec *model.UsageRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usage = append(f.usage, rec)
	return nil
}

func (f *fakeRepo) InTx(_ context.Context, fn func(store.Repository) error) error {
	return fn(f)
}

var _ store.Repository = (*fakeRepo)(nil)

var (
	taskLine   = regexp.MustCompile(`(?m)^\[(\d+)\] Field: `)
	targetLine = regexp.MustCompile(`(?m)^To: .* \((\w+)\)$`)
	textLine   = regexp.MustCompile(`(?m)^Text: (.*)$`)
)

// fakeGenerator answers every numbered task with "[target] source" text.
type fakeGenerator struct {
	mu         sync.Mutex
	calls      []llm.Request
	confidence float64
	// respond overrides the default answer for a call (0-based).
	respond func(call int, req llm.Request) (*llm.Response, error)
}

func (g *fakeGenerator) Provider() string { return "fake" }

func (g *fakeGenerator) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	g.mu.Lock()
	call := len(g.calls)
	g.calls = append(g.calls, req)
	respond := g.respond
	g.mu.Unlock()

	if respond != nil {
		if resp, err := respond(call, req); resp != nil || err != nil {
			return resp, err
		}
	}
	return &llm.Response{
		Content:          echoTranslations(req.UserPrompt, g.confidence),
		Model:            req.Model,
		PromptTokens:     100,
		CompletionTokens: 50,
	}, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func echoTranslations(prompt string, confidence float64) string {
	if confidence == 0 {
		confidence = 0.95
	}
	targets := targetLine.FindAllStringSubmatch(prompt, -1)
	texts := textLine.FindAllStringSubmatch(prompt, -1)

	type entry struct {
		Index          int     `json:"index"`
		TranslatedText string  `json:"translated_text"`
		Confidence     float64 `json:"confidence"`
	}
	var entries []entry
	for i := range taskLine.FindAllStringSubmatch(prompt, -1) {
		var src string
		if err := json.Unmarshal([]byte(texts[i][1]), &src); err != nil {
			src = texts[i][1]
		}
		entries = append(entries, entry{
			Index:          i,
			TranslatedText: fmt.Sprintf("[%s] %s", targets[i][1], src),
			Confidence:     confidence,
		})
	}
	out, _ := json.Marshal(map[string]any{"translations": entries})
	return string(out)
}

// fakeCache records invalidations.
type fakeCache struct {
	mu          sync.Mutex
	entries     map[string]*model.LocalizedContent
	invalidated []model.EntityKey
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*model.LocalizedContent)}
}

func (c *fakeCache) cacheKey(key model.EntityKey, code string, fields []string) string {
	return key.String() + "|" + code + "|" + strings.Join(fields, ",")
}

func (c *fakeCache) Get(_ context.Context, key model.EntityKey, code string, fields []string) (*model.LocalizedContent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[c.cacheKey(key, code, fields)]
	return v, ok
}

func (c *fakeCache) Set(_ context.Context, content *model.LocalizedContent, fields []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := model.EntityKey{Type: content.EntityType, ID: content.EntityID}
	c.entries[c.cacheKey(key, content.Locale, fields)] = content
	return nil
}

func (c *fakeCache) InvalidateEntity(_ context.Context, key model.EntityKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, key)
	for k := range c.entries {
		if strings.HasPrefix(k, key.String()+"|") {
			delete(c.entries, k)
		}
	}
	return nil
}

var errModelDown = errors.New("model unavailable")
