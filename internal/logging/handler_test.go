package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/olegiv/yoga-i18n/internal/model"
	"github.com/olegiv/yoga-i18n/internal/store"
	"github.com/olegiv/yoga-i18n/internal/testutil"
)

// discardHandler is a slog.Handler that discards all logs.
type discardHandler struct{}

func (h discardHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (h discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h discardHandler) WithGroup(string) slog.Handler             { return h }

func listEvents(t *testing.T, q *store.Queries) []model.Event {
	t.Helper()
	events, err := q.ListEvents(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	return events
}

func TestEventLogHandler_ErrorLevel(t *testing.T) {
	q := store.New(testutil.TestDB(t))
	logger := slog.New(NewEventLogHandler(discardHandler{}, q))

	logger.Error("translation batch failed", "category", model.EventCategoryLLM, "batch", 2)

	events := listEvents(t, q)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	e := events[0]
	if e.Level != model.EventLevelError {
		t.Errorf("Level = %q, want %q", e.Level, model.EventLevelError)
	}
	if e.Category != model.EventCategoryLLM {
		t.Errorf("Category = %q, want %q", e.Category, model.EventCategoryLLM)
	}
	if e.Message != "translation batch failed" {
		t.Errorf("Message = %q", e.Message)
	}

	var meta map[string]string
	if err := json.Unmarshal([]byte(e.Metadata), &meta); err != nil {
		t.Fatalf("metadata %q is not JSON: %v", e.Metadata, err)
	}
	if meta["batch"] != "2" {
		t.Errorf("metadata = %v, want batch=2", meta)
	}
	if _, ok := meta["category"]; ok {
		t.Error("category should not be repeated in metadata")
	}
}

func TestEventLogHandler_InfoNotStored(t *testing.T) {
	q := store.New(testutil.TestDB(t))
	logger := slog.New(NewEventLogHandler(discardHandler{}, q))

	logger.Info("translating entity")
	logger.Debug("details")

	if events := listEvents(t, q); len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}

func TestEventLogHandler_CustomLevel(t *testing.T) {
	q := store.New(testutil.TestDB(t))
	logger := slog.New(NewEventLogHandlerWithLevel(discardHandler{}, q, slog.LevelInfo))

	logger.Info("translation run finished")

	events := listEvents(t, q)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Level != model.EventLevelInfo {
		t.Errorf("Level = %q, want info", events[0].Level)
	}
	if events[0].Category != model.EventCategoryTranslation {
		t.Errorf("Category = %q, want inferred translation", events[0].Category)
	}
}

func TestEventLogHandler_WithAttrsAndGroup(t *testing.T) {
	q := store.New(testutil.TestDB(t))
	logger := slog.New(NewEventLogHandler(discardHandler{}, q)).
		With("run_id", "r-1", "category", model.EventCategoryQueue).
		WithGroup("item").
		With("id", 7)

	logger.Warn("something odd", "attempts", 3)

	events := listEvents(t, q)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Category != model.EventCategoryQueue {
		t.Errorf("Category = %q, want queue from WithAttrs", events[0].Category)
	}

	var meta map[string]string
	if err := json.Unmarshal([]byte(events[0].Metadata), &meta); err != nil {
		t.Fatalf("metadata is not JSON: %v", err)
	}
	want := map[string]string{"run_id": "r-1", "item.id": "7", "item.attempts": "3"}
	for k, v := range want {
		if meta[k] != v {
			t.Errorf("metadata[%q] = %q, want %q", k, meta[k], v)
		}
	}
}

func TestExtractCategory(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"queue item failed", model.EventCategoryQueue},
		{"llm request timed out", model.EventCategoryLLM},
		{"unparseable batch", model.EventCategoryLLM},
		{"failed to count translation request", model.EventCategoryTranslation},
		{"invalid configuration", model.EventCategoryConfig},
		{"shutting down", model.EventCategorySystem},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := extractCategory(tt.msg, nil); got != tt.want {
				t.Errorf("extractCategory(%q) = %q, want %q", tt.msg, got, tt.want)
			}
		})
	}
}
