// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/olegiv/yoga-i18n/internal/locale"
	"github.com/olegiv/yoga-i18n/internal/model"
	"github.com/olegiv/yoga-i18n/internal/translation"
)

func newTranslateCommand(a *app) *cobra.Command {
	var (
		source  string
		targets []string
		fields  []string
		tier    string
	)

	cmd := &cobra.Command{
		Use:   "translate <entity-type> <entity-id>",
		Short: "Translate one entity now",
		Long: `Translate the missing locales of one entity and store the result.

Human translations are never overwritten. Without --targets every
supported locale other than the source is translated.

Examples:
  yoga-i18nctl translate course abc123
  yoga-i18nctl translate article 42 --targets es --fields title,excerpt
  yoga-i18nctl translate teacher t-7 --source ru --tier batch`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.environment(cmd)
			if err != nil {
				return err
			}

			res, err := env.Translator.Translate(cmd.Context(), translation.Request{
				EntityType:    model.EntityType(args[0]),
				EntityID:      args[1],
				SourceLocale:  source,
				TargetLocales: targets,
				Fields:        fields,
				Tier:          model.Tier(tier),
				UserID:        "cli",
			})
			if err != nil {
				return err
			}

			p := a.printer(cmd)
			if a.asJSON {
				return p.JSON(res)
			}
			if !res.Success {
				p.Error("%s: %s", res.Message, res.Error)
				return fmt.Errorf("translation of %s:%s did not run", args[0], args[1])
			}

			p.Success("%s (source %s, run %s)", res.Message, res.SourceLocale, res.RunID)
			if res.FailedTasks > 0 {
				p.Warning("%d tasks failed and will be retried on the next run", res.FailedTasks)
			}
			if len(res.Translations) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(res.Translations))
			for _, t := range res.Translations {
				rows = append(rows, []string{
					t.Field, t.Locale,
					strconv.FormatFloat(t.Confidence, 'f', 2, 64),
					strconv.FormatBool(t.NeedsReview),
				})
			}
			return p.Table([]string{"field", "locale", "confidence", "needs review"}, rows)
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "source locale (default: detected)")
	cmd.Flags().StringSliceVar(&targets, "targets", nil, "target locales (default: all other supported)")
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "fields to translate (default: all required)")
	cmd.Flags().StringVar(&tier, "tier", string(model.TierImmediate), "translation tier: immediate, on_demand or batch")
	return cmd
}

func newDetectCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "detect <text>...",
		Short: "Guess the locale of a text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := locale.DetectText(strings.Join(args, " "))
			p := a.printer(cmd)
			if a.asJSON {
				return p.JSON(map[string]string{"locale": code, "name": locale.Name(code)})
			}
			p.Info("%s (%s)", code, locale.Name(code))
			return nil
		},
	}
}

func newNeedingCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "needing",
		Short: "List entities with supported locales still missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := a.environment(cmd)
			if err != nil {
				return err
			}
			needs, err := env.Translator.EntitiesNeedingTranslation(cmd.Context(), limit)
			if err != nil {
				return err
			}

			p := a.printer(cmd)
			if a.asJSON {
				return p.JSON(needs)
			}
			if len(needs) == 0 {
				p.Success("every entity is fully translated")
				return nil
			}
			rows := make([][]string, 0, len(needs))
			for _, n := range needs {
				rows = append(rows, []string{
					string(n.EntityType), n.EntityID, n.SourceLocale,
					strings.Join(n.MissingLocales, ","),
					strconv.FormatInt(n.Priority, 10),
					strconv.FormatBool(n.AutoTranslate),
				})
			}
			return p.Table([]string{"type", "id", "source", "missing", "priority", "auto"}, rows)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum entities to list")
	return cmd
}

func newContentCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Manage stored content of an entity",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "bump-version <entity-type> <entity-id>",
		Short: "Mark the source text of an entity as edited",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := entityKey(args[0], args[1])
			if err != nil {
				return err
			}
			env, err := a.environment(cmd)
			if err != nil {
				return err
			}
			v, err := env.Translator.BumpContentVersion(cmd.Context(), key)
			if err != nil {
				return fmt.Errorf("bumping version of %s: %w", key, err)
			}
			a.printer(cmd).Success("%s is now at content version %d", key, v)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <entity-type> <entity-id> <field> <locale> <text>",
		Short: "Store a human translation",
		Long: `Store a human translation of one field. Human text is never
replaced by the model afterwards.`,
		Args: cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := entityKey(args[0], args[1])
			if err != nil {
				return err
			}
			env, err := a.environment(cmd)
			if err != nil {
				return err
			}
			rec, err := env.Translator.SetManualTranslation(cmd.Context(), key, args[2], args[3], args[4])
			if err != nil {
				return err
			}
			a.printer(cmd).Success("saved %s %s/%s", key, rec.FieldName, rec.Locale)
			return nil
		},
	})

	return cmd
}

func entityKey(entityType, id string) (model.EntityKey, error) {
	t, err := model.ParseEntityType(entityType)
	if err != nil {
		return model.EntityKey{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return model.EntityKey{}, fmt.Errorf("entity id is required")
	}
	return model.EntityKey{Type: t, ID: id}, nil
}
