// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cli implements yoga-i18nctl, the operator command line for bulk
// translation work, queue maintenance and glossary management.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/olegiv/yoga-i18n/internal/version"
)

// app carries global flags and the lazily opened Env.
type app struct {
	open    Opener
	env     *Env
	verbose bool
	asJSON  bool
	noColor bool
}

// environment opens the Env on first use.
func (a *app) environment(cmd *cobra.Command) (*Env, error) {
	if a.env != nil {
		return a.env, nil
	}
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	env, err := a.open(logger)
	if err != nil {
		return nil, err
	}
	a.env = env
	return env, nil
}

func (a *app) printer(cmd *cobra.Command) *printer {
	return newPrinter(cmd.OutOrStdout(), a.noColor)
}

// NewRootCommand builds the command tree. open is called at most once, by
// the first command that needs the database.
func NewRootCommand(open Opener) *cobra.Command {
	a := &app{open: open}

	root := &cobra.Command{
		Use:   "yoga-i18nctl",
		Short: "Operator CLI for the yoga content translation service",
		Long: `yoga-i18nctl runs translations, manages the translation queue and
imports glossary terms against the service database.

Configuration is read from YOGA_* environment variables and .env, the
same way the server reads it.

Example usage:
  yoga-i18nctl translate course abc123        # translate a course now
  yoga-i18nctl queue discover --limit 100     # queue entities missing locales
  yoga-i18nctl queue process --limit 10       # work the queue once
  yoga-i18nctl glossary import glossary.yaml  # load glossary terms`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.env == nil {
				return nil
			}
			err := a.env.Close()
			a.env = nil
			return err
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose logging")
	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "print JSON instead of tables")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newTranslateCommand(a),
		newDetectCommand(a),
		newNeedingCommand(a),
		newContentCommand(a),
		newQueueCommand(a),
		newGlossaryCommand(a),
		newMigrateCommand(a),
		newVersionCommand(),
	)
	return root
}

// Execute runs the CLI against the configured environment.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(OpenFromEnvironment)
	if err := root.ExecuteContext(ctx); err != nil {
		newPrinter(os.Stderr, false).Error("%v", err)
		return 1
	}
	return 0
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write([]byte("yoga-i18nctl " + version.Get().String() + "\n"))
			return err
		},
	}
}
