package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/yoga-i18n/internal/llm"
	"github.com/olegiv/yoga-i18n/internal/middleware"
	"github.com/olegiv/yoga-i18n/internal/model"
	"github.com/olegiv/yoga-i18n/internal/queue"
	"github.com/olegiv/yoga-i18n/internal/store"
	"github.com/olegiv/yoga-i18n/internal/testutil"
	"github.com/olegiv/yoga-i18n/internal/translation"
)

const testToken = "secret-token"

var (
	taskLine   = regexp.MustCompile(`(?m)^\[(\d+)\] Field: `)
	targetLine = regexp.MustCompile(`(?m)^To: .* \((\w+)\)$`)
)

// echoGenerator answers every task with "[locale] translated".
type echoGenerator struct{}

func (echoGenerator) Provider() string { return "echo" }

func (echoGenerator) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	targets := targetLine.FindAllStringSubmatch(req.UserPrompt, -1)
	type entry struct {
		Index          int     `json:"index"`
		TranslatedText string  `json:"translated_text"`
		Confidence     float64 `json:"confidence"`
	}
	var entries []entry
	for i := range taskLine.FindAllStringSubmatch(req.UserPrompt, -1) {
		entries = append(entries, entry{
			Index:          i,
			TranslatedText: fmt.Sprintf("[%s] translated", targets[i][1]),
			Confidence:     0.95,
		})
	}
	out, _ := json.Marshal(map[string]any{"translations": entries})
	return &llm.Response{Content: string(out), Model: req.Model, PromptTokens: 10, CompletionTokens: 5}, nil
}

type testEnv struct {
	server  *httptest.Server
	queries *store.Queries
}

func newTestEnv(t *testing.T, gen llm.Generator) *testEnv {
	t.Helper()
	db := testutil.TestDB(t)
	q := store.New(db)
	logger := testutil.TestLoggerSilent()

	svc := translation.NewService(q, gen, nil, translation.Config{Model: "test-model"}, logger)
	h := NewHandler(Config{
		DB:         db,
		Translator: svc,
		Queue:      queue.NewProcessor(q, svc, logger),
		Logger:     logger,
	})

	srv := httptest.NewServer(h.Routes(middleware.BearerAuth(testToken)))
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, queries: q}
}

var courseKey = model.EntityKey{Type: model.EntityCourse, ID: "abc123"}

func (e *testEnv) seedCourse(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.queries.UpsertMetadata(ctx, &model.ContentMetadata{
		EntityType:       courseKey.Type,
		EntityID:         courseKey.ID,
		SourceLocale:     "ru",
		TranslationTier:  model.TierOnDemand,
		AutoTranslate:    true,
		AvailableLocales: []string{"ru"},
		ContentVersion:   1,
	}))
	for field, text := range map[string]string{
		"title":       "Утренняя практика",
		"description": "**Мягкая** асана для начала дня",
	} {
		_, err := e.queries.UpsertTranslation(ctx, &model.TranslationRecord{
			EntityType:     courseKey.Type,
			EntityID:       courseKey.ID,
			FieldName:      field,
			Locale:         "ru",
			Translation:    text,
			TranslatorType: model.TranslatorHuman,
			ContentVersion: 1,
		})
		require.NoError(t, err)
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body == "" {
		req, err = http.NewRequest(method, e.server.URL+path, nil)
	} else {
		req, err = http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

// dataOf decodes a {"data": ...} envelope into dst.
func dataOf(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	decode(t, resp, &env)
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var env ErrorResponse
	decode(t, resp, &env)
	return env.Error.Code
}

func TestHealthIsPublic(t *testing.T) {
	env := newTestEnv(t, echoGenerator{})

	resp, err := http.Get(env.server.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var status HealthStatus
	decode(t, resp, &status)
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "healthy", status.Checks["database"].Status)
	assert.Equal(t, "healthy", status.Checks["llm"].Status)
}

func TestHealthDegradedWithoutModel(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var status HealthStatus
	decode(t, resp, &status)
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "degraded", status.Checks["llm"].Status)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t, echoGenerator{})

	resp, err := http.Get(env.server.URL + "/queue/status")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTranslate(t *testing.T) {
	env := newTestEnv(t, echoGenerator{})
	env.seedCourse(t)

	resp := env.do(t, http.MethodPost, "/translate", `{"entityType":"course","entityId":"abc123"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res translation.Result
	decode(t, resp, &res)
	assert.True(t, res.Success)
	assert.Equal(t, "ru", res.SourceLocale)
	assert.Equal(t, []string{"en", "es"}, res.TargetLocales)
	assert.Equal(t, 4, res.TranslationsCount)
	assert.NotEmpty(t, res.RunID)

	rec, err := env.queries.GetTranslation(context.Background(), courseKey, "title", "es")
	require.NoError(t, err)
	assert.Equal(t, "[es] translated", rec.Translation)
	assert.True(t, rec.IsAutoTranslated)
}

func TestTranslateFailures(t *testing.T) {
	tests := []struct {
		name   string
		gen    llm.Generator
		body   string
		status int
	}{
		{"unknown entity", echoGenerator{}, `{"entityType":"course","entityId":"missing"}`, http.StatusUnprocessableEntity},
		{"invalid type", echoGenerator{}, `{"entityType":"podcast","entityId":"x"}`, http.StatusBadRequest},
		{"unknown field in body", echoGenerator{}, `{"entityType":"course","entityId":"x","bogus":1}`, http.StatusBadRequest},
		{"no model", nil, `{"entityType":"course","entityId":"abc123"}`, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.gen)
			resp := env.do(t, http.MethodPost, "/translate", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestTranslateResultBodyOnFailure(t *testing.T) {
	env := newTestEnv(t, echoGenerator{})

	resp := env.do(t, http.MethodPost, "/translate", `{"entityType":"course","entityId":"missing"}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var res translation.Result
	decode(t, resp, &res)
	assert.False(t, res.Success)
	assert.Equal(t, "entity not found", res.Message)
}

func TestLocalized(t *testing.T) {
	env := newTestEnv(t, echoGenerator{})
	env.seedCourse(t)

	t.Run("fallback to source", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/content/course/abc123/localized?locale=en", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var content model.LocalizedContent
		dataOf(t, resp, &content)
		require.NotEmpty(t, content.Fields)
		for _, f := range content.Fields {
			assert.Equal(t, "ru", f.Locale, f.Field)
			assert.True(t, f.Fallback, f.Field)
		}
	})

	t.Run("accept-language", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/content/course/abc123/localized", "",
			"Accept-Language", "ru-RU,ru;q=0.9,en;q=0.5")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ru", resp.Header.Get("Content-Language"))
	})

	t.Run("html", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/content/course/abc123/localized?locale=ru&fields=description&format=html", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var content model.LocalizedContent
		dataOf(t, resp, &content)
		require.Len(t, content.Fields, 1)
		assert.Contains(t, content.Fields[0].Text, "<strong>Мягкая</strong>")
	})

	t.Run("unknown entity", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/content/course/nope/localized?locale=en", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("bad locale", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/content/course/abc123/localized?locale=xx", "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("bad entity type", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/content/podcast/abc123/localized", "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestManualTranslationWinsOverModel(t *testing.T) {
	env := newTestEnv(t, echoGenerator{})
	env.seedCourse(t)

	resp := env.do(t, http.MethodPut, "/content/course/abc123/translations/title/en", `{"text":"Morning practice"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/translate", `{"entityType":"course","entityId":"abc123","tier":"immediate"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/content/course/abc123/localized?locale=en&fields=title", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var content model.LocalizedContent
	dataOf(t, resp, &content)
	require.Len(t, content.Fields, 1)
	assert.Equal(t, "Morning practice", content.Fields[0].Text)
	assert.False(t, content.Fields[0].IsAutoTranslated)

	resp = env.do(t, http.MethodPut, "/content/course/abc123/translations/title/en", `{"text":"  "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBumpContentVersion(t *testing.T) {
	env := newTestEnv(t, echoGenerator{})
	env.seedCourse(t)

	resp := env.do(t, http.MethodPost, "/content/course/abc123/version", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out ContentVersionResponse
	dataOf(t, resp, &out)
	assert.Equal(t, int64(2), out.ContentVersion)
	assert.Equal(t, "course:abc123", out.Entity)
}

func TestQueueLifecycle(t *testing.T) {
	env := newTestEnv(t, echoGenerator{})
	env.seedCourse(t)

	body := `{"entityType":"course","entityId":"abc123"}`
	resp := env.do(t, http.MethodPost, "/queue", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var first struct {
		Created bool             `json:"created"`
		Item    *model.QueueItem `json:"item"`
	}
	dataOf(t, resp, &first)
	assert.True(t, first.Created)
	require.NotNil(t, first.Item)
	assert.Equal(t, model.QueueStatusPending, first.Item.Status)

	resp = env.do(t, http.MethodPost, "/queue", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var second struct {
		Created bool             `json:"created"`
		Item    *model.QueueItem `json:"item"`
	}
	dataOf(t, resp, &second)
	assert.False(t, second.Created)
	assert.Equal(t, first.Item.ID, second.Item.ID)

	resp = env.do(t, http.MethodPost, "/queue/process?limit=5", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary queue.Summary
	dataOf(t, resp, &summary)
	assert.Equal(t, 1, summary.Claimed)
	assert.Equal(t, 1, summary.Completed)

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/queue/items/%d", first.Item.ID), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var item model.QueueItem
	dataOf(t, resp, &item)
	assert.Equal(t, model.QueueStatusCompleted, item.Status)

	resp = env.do(t, http.MethodGet, "/queue/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/queue/retry", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var retry RetryResponse
	dataOf(t, resp, &retry)
	assert.Zero(t, retry.Reset)
}

func TestQueueErrors(t *testing.T) {
	env := newTestEnv(t, echoGenerator{})

	resp := env.do(t, http.MethodGet, "/queue/items/999", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", errorCode(t, resp))

	resp = env.do(t, http.MethodGet, "/queue/items/abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/queue", `{"entityType":"course"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/queue/process?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestJobsWithoutScheduler(t *testing.T) {
	env := newTestEnv(t, echoGenerator{})

	resp := env.do(t, http.MethodGet, "/jobs", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/jobs/queue:process/run", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "scheduler_disabled", errorCode(t, resp))
}

func TestGlossaryAndUsage(t *testing.T) {
	env := newTestEnv(t, echoGenerator{})
	env.seedCourse(t)

	resp := env.do(t, http.MethodGet, "/glossary", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var terms []model.GlossaryTerm
	dataOf(t, resp, &terms)
	assert.NotEmpty(t, terms)

	resp = env.do(t, http.MethodPost, "/translate", `{"entityType":"course","entityId":"abc123"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/usage", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var usage UsageResponse
	dataOf(t, resp, &usage)
	require.NotNil(t, usage.Stats)
	assert.Positive(t, usage.Stats.TotalRequests)
	assert.NotEmpty(t, usage.Recent)

	resp = env.do(t, http.MethodGet, "/events", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIntQuery(t *testing.T) {
	tests := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"", 10, false},
		{"limit=3", 3, false},
		{"limit=1000", 50, false},
		{"limit=-2", 0, true},
		{"limit=abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			got, err := intQuery(r, "limit", 10, 50)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
