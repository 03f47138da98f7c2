// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/olegiv/yoga-i18n/internal/model"
	"github.com/olegiv/yoga-i18n/internal/queue"
)

func newQueueCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and work the translation queue",
	}
	cmd.AddCommand(
		newQueueStatusCommand(a),
		newQueueEnqueueCommand(a),
		newQueueRetryCommand(a),
		newQueueProcessCommand(a),
		newQueueDiscoverCommand(a),
	)
	return cmd
}

func newQueueStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue counts and recent failures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := a.environment(cmd)
			if err != nil {
				return err
			}
			status, err := env.Queue.Status(cmd.Context())
			if err != nil {
				return err
			}

			p := a.printer(cmd)
			if a.asJSON {
				return p.JSON(status)
			}

			statuses := []string{model.QueueStatusPending, model.QueueStatusProcessing,
				model.QueueStatusCompleted, model.QueueStatusFailed}
			totals := make([]string, 0, len(statuses))
			for _, s := range statuses {
				totals = append(totals, fmt.Sprintf("%s=%d", s, status.Totals[s]))
			}
			p.Info("Totals: %s", strings.Join(totals, " "))

			if len(status.Counts) > 0 {
				rows := make([][]string, 0, len(status.Counts))
				for _, c := range status.Counts {
					rows = append(rows, []string{string(c.EntityType), c.Locale, c.Status, strconv.FormatInt(c.Count, 10)})
				}
				if err := p.Table([]string{"type", "locale", "status", "count"}, rows); err != nil {
					return err
				}
			}

			for _, it := range status.Failed {
				p.Warning("#%d %s: %s", it.ID, it.Key(), it.ErrorMessage)
			}
			return nil
		},
	}
}

func newQueueEnqueueCommand(a *app) *cobra.Command {
	var (
		targets  []string
		priority int64
	)

	cmd := &cobra.Command{
		Use:   "enqueue <entity-type> <entity-id>",
		Short: "Queue an entity for batch translation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.environment(cmd)
			if err != nil {
				return err
			}
			item, created, err := env.Queue.Enqueue(cmd.Context(), queue.EnqueueRequest{
				EntityType:    args[0],
				EntityID:      args[1],
				TargetLocales: targets,
				Priority:      priority,
			})
			p := a.printer(cmd)
			if errors.Is(err, queue.ErrNothingToTranslate) {
				p.Success("%s:%s has nothing to translate", args[0], args[1])
				return nil
			}
			if err != nil {
				return err
			}

			if a.asJSON {
				return p.JSON(map[string]any{"created": created, "item": item})
			}
			if created {
				p.Success("queued #%d %s -> %s", item.ID, item.Key(), strings.Join(item.TargetLocales, ","))
			} else {
				p.Info("already queued as #%d (%s)", item.ID, item.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&targets, "targets", nil, "target locales (default: all missing)")
	cmd.Flags().Int64Var(&priority, "priority", 0, "queue priority (default: entity priority)")
	return cmd
}

func newQueueRetryCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Reset failed items to pending",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := a.environment(cmd)
			if err != nil {
				return err
			}
			n, err := env.Queue.RetryFailed(cmd.Context())
			if err != nil {
				return err
			}
			a.printer(cmd).Success("reset %d failed items", n)
			return nil
		},
	}
}

func newQueueProcessCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Translate pending queue items once",
		Long: `Claim up to --limit pending items, highest priority first, and
translate them. A failing item is marked failed and never stops the run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := a.environment(cmd)
			if err != nil {
				return err
			}
			summary, err := env.Queue.ProcessPending(cmd.Context(), limit)
			if err != nil {
				return err
			}

			p := a.printer(cmd)
			if a.asJSON {
				return p.JSON(summary)
			}
			if summary.Claimed == 0 {
				p.Info("no pending items")
				return nil
			}
			p.Success("run %s: %d claimed, %d completed, %d failed",
				summary.RunID, summary.Claimed, summary.Completed, summary.Failed)

			rows := make([][]string, 0, len(summary.Items))
			for _, it := range summary.Items {
				rows = append(rows, []string{
					strconv.FormatInt(it.ID, 10), it.Entity, it.Status,
					strconv.Itoa(it.TranslationsCount), it.Error,
				})
			}
			return p.Table([]string{"id", "entity", "status", "translations", "error"}, rows)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", queue.DefaultLimit, "maximum items to claim")
	return cmd
}

func newQueueDiscoverCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Queue entities with missing locales",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := a.environment(cmd)
			if err != nil {
				return err
			}
			n, err := env.Queue.EnqueueMissing(cmd.Context(), limit)
			if err != nil {
				return err
			}
			a.printer(cmd).Success("queued %d entities", n)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum entities to inspect")
	return cmd
}
