// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"github.com/spf13/cobra"

	"github.com/olegiv/yoga-i18n/internal/store"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := a.environment(cmd)
			if err != nil {
				return err
			}
			// Opening the environment migrates; run again for openers that do not.
			if err := store.Migrate(env.DB); err != nil {
				return err
			}
			v, err := store.SchemaVersion(env.DB)
			if err != nil {
				return err
			}
			a.printer(cmd).Success("database schema at version %d", v)
			return nil
		},
	}
}
