// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/olegiv/yoga-i18n/internal/locale"
	"github.com/olegiv/yoga-i18n/internal/store"
)

// GlossaryFile is the YAML layout accepted by "glossary import":
//
//	glossary:
//	  asana: {en: asana, ru: асана, es: asana}
type GlossaryFile struct {
	Glossary map[string]map[string]string `yaml:"glossary"`
}

// ParseGlossary decodes and validates a glossary file. Keys are lowercased
// and locales normalized; blank terms are rejected.
func ParseGlossary(r io.Reader) (*GlossaryFile, error) {
	var f GlossaryFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing glossary: %w", err)
	}
	if len(f.Glossary) == 0 {
		return nil, fmt.Errorf("glossary is empty")
	}

	out := make(map[string]map[string]string, len(f.Glossary))
	for key, terms := range f.Glossary {
		norm := strings.ToLower(strings.TrimSpace(key))
		if norm == "" {
			return nil, fmt.Errorf("glossary key must not be empty")
		}
		if len(terms) == 0 {
			return nil, fmt.Errorf("glossary key %q has no terms", key)
		}
		if out[norm] == nil {
			out[norm] = make(map[string]string, len(terms))
		}
		for code, term := range terms {
			c, err := locale.Normalize(code)
			if err != nil {
				return nil, fmt.Errorf("glossary key %q: %w", key, err)
			}
			if strings.TrimSpace(term) == "" {
				return nil, fmt.Errorf("glossary key %q has an empty %s term", key, c)
			}
			out[norm][c] = strings.TrimSpace(term)
		}
	}
	f.Glossary = out
	return &f, nil
}

// ImportGlossary upserts every term of f in one transaction and returns
// the number of terms written.
func ImportGlossary(ctx context.Context, q *store.Queries, f *GlossaryFile) (int, error) {
	keys := make([]string, 0, len(f.Glossary))
	for k := range f.Glossary {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	n := 0
	err := q.Tx(ctx, func(tx *store.Queries) error {
		for _, key := range keys {
			for code, term := range f.Glossary[key] {
				if err := tx.UpsertGlossaryTerm(ctx, key, code, term); err != nil {
					return fmt.Errorf("saving %s/%s: %w", key, code, err)
				}
				n++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func newGlossaryCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "glossary",
		Short: "Manage yoga terminology used in prompts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import glossary terms from a YAML file",
		Long: `Import glossary terms. Existing terms with the same key and locale
are replaced.

File format:
  glossary:
    asana: {en: asana, ru: асана, es: asana}
    pranayama:
      en: pranayama
      ru: пранаяма`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fh, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = fh.Close() }()

			f, err := ParseGlossary(fh)
			if err != nil {
				return err
			}
			env, err := a.environment(cmd)
			if err != nil {
				return err
			}
			n, err := ImportGlossary(cmd.Context(), env.Queries, f)
			if err != nil {
				return err
			}
			a.printer(cmd).Success("imported %d terms for %d keys", n, len(f.Glossary))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List glossary terms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := a.environment(cmd)
			if err != nil {
				return err
			}
			terms, err := env.Queries.ListGlossary(cmd.Context())
			if err != nil {
				return err
			}

			p := a.printer(cmd)
			if a.asJSON {
				return p.JSON(terms)
			}
			headers := append([]string{"key"}, locale.Supported...)
			rows := make([][]string, 0, len(terms))
			for _, t := range terms {
				row := []string{t.Key}
				for _, code := range locale.Supported {
					row = append(row, t.Terms[code])
				}
				rows = append(rows, row)
			}
			return p.Table(headers, rows)
		},
	})

	return cmd
}
