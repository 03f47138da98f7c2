// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/olegiv/yoga-i18n/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository is the persistence contract of the translation pipeline.
// Queries implements it over SQLite; tests use an in-memory fake.
type Repository interface {
	GetMetadata(ctx context.Context, key model.EntityKey) (*model.ContentMetadata, error)
	UpsertMetadata(ctx context.Context, meta *model.ContentMetadata) error
	IncrementRequestCounts(ctx context.Context, key model.EntityKey, locales []string) error
	ListMetadata(ctx context.Context, limit, offset int) ([]*model.ContentMetadata, error)

	ListTranslations(ctx context.Context, key model.EntityKey) ([]*model.TranslationRecord, error)
	// UpsertTranslation writes rec and returns the row it replaced, or nil.
	UpsertTranslation(ctx context.Context, rec *model.TranslationRecord) (*model.TranslationRecord, error)
	SetManualTranslation(ctx context.Context, key model.EntityKey, field, locale, text string) (*model.TranslationRecord, error)
	BumpContentVersion(ctx context.Context, key model.EntityKey) (int64, error)

	RequiredFields(ctx context.Context, entityType model.EntityType) ([]string, error)
	ListGlossary(ctx context.Context) ([]model.GlossaryTerm, error)
	LogUsage(ctx context.Context, rec *model.UsageRecord) error

	// InTx runs fn against a transactional view of the repository.
	InTx(ctx context.Context, fn func(Repository) error) error
}

// Queries runs the hand-written SQL of the service.
type Queries struct {
	db   DBTX
	conn *sql.DB // nil inside a transaction
}

// New creates Queries bound to a database handle.
func New(db *sql.DB) *Queries {
	return &Queries{db: db, conn: db}
}

// WithTx returns Queries bound to an open transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Tx runs fn in a transaction, committing when it returns nil.
// Nested calls reuse the enclosing transaction.
func (q *Queries) Tx(ctx context.Context, fn func(*Queries) error) error {
	if q.conn == nil {
		return fn(q)
	}

	tx, err := q.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(q.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// InTx implements Repository.
func (q *Queries) InTx(ctx context.Context, fn func(Repository) error) error {
	return q.Tx(ctx, func(tx *Queries) error { return fn(tx) })
}

var _ Repository = (*Queries)(nil)

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeLocales(raw string) ([]string, error) {
	out := []string{}
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decoding locale list: %w", err)
	}
	return out, nil
}

func decodeCounts(raw string) (map[string]int64, error) {
	out := map[string]int64{}
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decoding locale counts: %w", err)
	}
	return out, nil
}

// emptyIfNil keeps JSON array columns from being written as "null".
func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
