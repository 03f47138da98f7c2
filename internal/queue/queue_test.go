package queue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/yoga-i18n/internal/model"
	"github.com/olegiv/yoga-i18n/internal/store"
	"github.com/olegiv/yoga-i18n/internal/testutil"
	"github.com/olegiv/yoga-i18n/internal/translation"
)

// fakeTranslator records requests and answers from a per-entity script.
type fakeTranslator struct {
	mu       sync.Mutex
	requests []translation.Request
	results  map[string]*translation.Result
	errs     map[string]error
	panics   map[string]bool
	needs    []translation.EntityNeed
	noModel  bool
}

func newFakeTranslator() *fakeTranslator {
	return &fakeTranslator{
		results: map[string]*translation.Result{},
		errs:    map[string]error{},
		panics:  map[string]bool{},
	}
}

func (f *fakeTranslator) Configured() bool { return !f.noModel }

func (f *fakeTranslator) Translate(_ context.Context, req translation.Request) (*translation.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	key := req.Key().String()
	if f.panics[key] {
		panic("boom")
	}
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	if res := f.results[key]; res != nil {
		return res, nil
	}
	return &translation.Result{Success: true, TranslationsCount: 2}, nil
}

func (f *fakeTranslator) EntitiesNeedingTranslation(_ context.Context, limit int) ([]translation.EntityNeed, error) {
	if limit > 0 && len(f.needs) > limit {
		return f.needs[:limit], nil
	}
	return f.needs, nil
}

func setup(t *testing.T) (*Processor, *store.Queries, *fakeTranslator) {
	t.Helper()
	q := store.New(testutil.TestDB(t))
	tr := newFakeTranslator()
	return NewProcessor(q, tr, testutil.TestLoggerSilent()), q, tr
}

func seedMetadata(t *testing.T, q *store.Queries, key model.EntityKey, source string, available ...string) {
	t.Helper()
	meta := &model.ContentMetadata{
		EntityType:       key.Type,
		EntityID:         key.ID,
		SourceLocale:     source,
		TranslationTier:  model.TierOnDemand,
		AutoTranslate:    true,
		AvailableLocales: available,
		ContentVersion:   1,
	}
	require.NoError(t, q.UpsertMetadata(context.Background(), meta))
}

func TestEnqueue(t *testing.T) {
	p, q, _ := setup(t)
	ctx := context.Background()
	key := model.EntityKey{Type: model.EntityCourse, ID: "abc123"}
	seedMetadata(t, q, key, "ru", "ru")

	item, created, err := p.Enqueue(ctx, EnqueueRequest{EntityType: "course", EntityID: "abc123"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.QueueStatusPending, item.Status)
	assert.Equal(t, "ru", item.SourceLocale)
	assert.Equal(t, []string{"en", "es"}, item.TargetLocales)

	meta, err := q.GetMetadata(ctx, key)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"en", "es"}, meta.PendingLocales)

	// A second enqueue returns the active row.
	again, created, err := p.Enqueue(ctx, EnqueueRequest{EntityType: "course", EntityID: "abc123"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, item.ID, again.ID)
}

func TestEnqueueWithoutMetadata(t *testing.T) {
	p, q, _ := setup(t)
	ctx := context.Background()

	item, created, err := p.Enqueue(ctx, EnqueueRequest{EntityType: "class", EntityID: "c1", TargetLocales: []string{"es-MX", "en"}})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "en", item.SourceLocale)
	assert.Equal(t, []string{"es"}, item.TargetLocales)

	_, err = q.GetMetadata(ctx, item.Key())
	assert.ErrorIs(t, err, store.ErrNotFound, "enqueue must not create metadata")
}

func TestEnqueueInvalid(t *testing.T) {
	p, _, _ := setup(t)
	ctx := context.Background()

	_, _, err := p.Enqueue(ctx, EnqueueRequest{EntityType: "spaceship", EntityID: "1"})
	assert.ErrorIs(t, err, translation.ErrInvalidRequest)

	_, _, err = p.Enqueue(ctx, EnqueueRequest{EntityType: "course"})
	assert.ErrorIs(t, err, translation.ErrInvalidRequest)

	_, _, err = p.Enqueue(ctx, EnqueueRequest{EntityType: "course", EntityID: "1", TargetLocales: []string{"de"}})
	assert.ErrorIs(t, err, translation.ErrInvalidRequest)

	_, _, err = p.Enqueue(ctx, EnqueueRequest{EntityType: "course", EntityID: "1", TargetLocales: []string{"en"}})
	assert.ErrorIs(t, err, ErrNothingToTranslate)
}

func TestProcessPendingStateMachine(t *testing.T) {
	p, _, tr := setup(t)
	ctx := context.Background()

	ok, _, err := p.Enqueue(ctx, EnqueueRequest{EntityType: "course", EntityID: "ok"})
	require.NoError(t, err)
	bad, _, err := p.Enqueue(ctx, EnqueueRequest{EntityType: "course", EntityID: "bad"})
	require.NoError(t, err)
	empty, _, err := p.Enqueue(ctx, EnqueueRequest{EntityType: "course", EntityID: "empty"})
	require.NoError(t, err)

	tr.errs["course:bad"] = errors.New("database is locked")
	tr.results["course:empty"] = &translation.Result{Success: false, Message: "no source content"}

	summary, err := p.ProcessPending(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Claimed)
	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 2, summary.Failed)
	assert.NotEmpty(t, summary.RunID)

	got, err := p.Get(ctx, ok.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueStatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
	assert.EqualValues(t, 1, got.Attempts)

	got, err = p.Get(ctx, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueStatusFailed, got.Status)
	assert.Equal(t, "database is locked", got.ErrorMessage)

	got, err = p.Get(ctx, empty.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueStatusFailed, got.Status)
	assert.Equal(t, "no source content", got.ErrorMessage)

	// Every item ran with the batch tier and its queued locales.
	require.Len(t, tr.requests, 3)
	for _, req := range tr.requests {
		assert.Equal(t, model.TierBatch, req.Tier)
		assert.Equal(t, "en", req.SourceLocale)
		assert.Equal(t, []string{"ru", "es"}, req.TargetLocales)
	}

	// Nothing left to claim.
	summary, err = p.ProcessPending(ctx, 5)
	require.NoError(t, err)
	assert.Zero(t, summary.Claimed)

	// Retry resets failures, which then re-enter the normal flow.
	n, err := p.RetryFailed(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	got, err = p.Get(ctx, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueStatusPending, got.Status)
	assert.Empty(t, got.ErrorMessage)

	delete(tr.errs, "course:bad")
	summary, err = p.ProcessPending(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Claimed)
	assert.Equal(t, 1, summary.Completed)

	got, err = p.Get(ctx, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueStatusCompleted, got.Status)
	assert.EqualValues(t, 2, got.Attempts)
}

func TestProcessPendingWithoutModelLeavesItemsPending(t *testing.T) {
	p, q, tr := setup(t)
	ctx := context.Background()
	tr.noModel = true

	item, _, err := p.Enqueue(ctx, EnqueueRequest{EntityType: "course", EntityID: "abc123"})
	require.NoError(t, err)

	summary, err := p.ProcessPending(ctx, 5)
	assert.ErrorIs(t, err, translation.ErrNotConfigured)
	assert.Nil(t, summary)
	assert.Empty(t, tr.requests)

	got, err := p.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueStatusPending, got.Status)
	assert.Zero(t, got.Attempts)

	failed, err := q.ListQueueItems(ctx, model.QueueStatusFailed, 10)
	require.NoError(t, err)
	assert.Empty(t, failed)

	// Once a model is configured the same item is processed normally.
	tr.noModel = false
	summary, err = p.ProcessPending(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Completed)
}

func TestEnqueueTrimsEntityID(t *testing.T) {
	p, _, _ := setup(t)
	ctx := context.Background()

	item, created, err := p.Enqueue(ctx, EnqueueRequest{EntityType: "Course", EntityID: "  abc123 "})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "course:abc123", item.Key().String())

	again, created, err := p.Enqueue(ctx, EnqueueRequest{EntityType: "course", EntityID: "abc123"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, item.ID, again.ID)
}

func TestProcessPendingPanicIsolated(t *testing.T) {
	p, _, tr := setup(t)
	ctx := context.Background()

	first, _, err := p.Enqueue(ctx, EnqueueRequest{EntityType: "teacher", EntityID: "t1"})
	require.NoError(t, err)
	_, _, err = p.Enqueue(ctx, EnqueueRequest{EntityType: "teacher", EntityID: "t2"})
	require.NoError(t, err)
	tr.panics["teacher:t1"] = true

	summary, err := p.ProcessPending(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 1, summary.Failed)

	got, err := p.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueStatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "panic")
}

func TestProcessPendingRespectsLimitAndPriority(t *testing.T) {
	p, _, tr := setup(t)
	ctx := context.Background()

	_, _, err := p.Enqueue(ctx, EnqueueRequest{EntityType: "article", EntityID: "low", Priority: 1})
	require.NoError(t, err)
	_, _, err = p.Enqueue(ctx, EnqueueRequest{EntityType: "article", EntityID: "high", Priority: 9})
	require.NoError(t, err)
	_, _, err = p.Enqueue(ctx, EnqueueRequest{EntityType: "article", EntityID: "mid", Priority: 5})
	require.NoError(t, err)

	summary, err := p.ProcessPending(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Claimed)
	require.Len(t, tr.requests, 2)
	assert.Equal(t, "high", tr.requests[0].EntityID)
	assert.Equal(t, "mid", tr.requests[1].EntityID)
}

func TestStatus(t *testing.T) {
	p, _, tr := setup(t)
	ctx := context.Background()

	_, _, err := p.Enqueue(ctx, EnqueueRequest{EntityType: "course", EntityID: "1"})
	require.NoError(t, err)
	_, _, err = p.Enqueue(ctx, EnqueueRequest{EntityType: "class", EntityID: "2", TargetLocales: []string{"ru"}})
	require.NoError(t, err)
	tr.errs["class:2"] = errors.New("model down")

	_, err = p.ProcessPending(ctx, 5)
	require.NoError(t, err)

	status, err := p.Status(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, status.Totals[model.QueueStatusCompleted])
	assert.EqualValues(t, 1, status.Totals[model.QueueStatusFailed])
	assert.EqualValues(t, 0, status.Totals[model.QueueStatusPending])

	assert.Contains(t, status.Counts, model.QueueStat{EntityType: model.EntityCourse, Locale: "ru", Status: model.QueueStatusCompleted, Count: 1})
	assert.Contains(t, status.Counts, model.QueueStat{EntityType: model.EntityCourse, Locale: "es", Status: model.QueueStatusCompleted, Count: 1})
	assert.Contains(t, status.Counts, model.QueueStat{EntityType: model.EntityClass, Locale: "ru", Status: model.QueueStatusFailed, Count: 1})

	require.Len(t, status.Failed, 1)
	assert.Equal(t, "2", status.Failed[0].EntityID)
}

func TestGetUnknown(t *testing.T) {
	p, _, _ := setup(t)
	_, err := p.Get(context.Background(), 999)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestEnqueueMissing(t *testing.T) {
	p, q, tr := setup(t)
	ctx := context.Background()

	seedMetadata(t, q, model.EntityKey{Type: model.EntityCourse, ID: "a"}, "en", "en")
	seedMetadata(t, q, model.EntityKey{Type: model.EntityTeacher, ID: "b"}, "ru", "ru", "en")

	tr.needs = []translation.EntityNeed{
		{EntityType: model.EntityCourse, EntityID: "a", SourceLocale: "en", MissingLocales: []string{"ru", "es"}, AutoTranslate: true},
		{EntityType: model.EntityTeacher, EntityID: "b", SourceLocale: "ru", MissingLocales: []string{"es"}, AutoTranslate: true, Priority: 3},
		{EntityType: model.EntityChakra, EntityID: "c", SourceLocale: "en", MissingLocales: []string{"ru"}, AutoTranslate: false},
	}

	n, err := p.EnqueueMissing(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	items, err := q.ListQueueItems(ctx, model.QueueStatusPending, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	byEntity := map[string]*model.QueueItem{}
	for _, it := range items {
		byEntity[it.Key().String()] = it
	}
	assert.Equal(t, []string{"ru", "es"}, byEntity["course:a"].TargetLocales)
	assert.Equal(t, []string{"es"}, byEntity["teacher:b"].TargetLocales)
	assert.EqualValues(t, 3, byEntity["teacher:b"].Priority)

	// Discovery is idempotent while items are pending.
	n, err = p.EnqueueMissing(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}
