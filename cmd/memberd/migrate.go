// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberd Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/memberd/memberd/internal/store"
)

// NewMigrateCmd creates the migrate subcommand with up/down/version actions.
func NewMigrateCmd() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long:  `Apply, roll back, or inspect schema migrations on the PostgreSQL database.`,
	}

	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", "",
		"PostgreSQL connection URL (defaults to MEMBERD_DATABASE__URL)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, databaseURL, func(m Migrator) error {
					if err := m.Up(); err != nil {
						return oops.Code("MIGRATION_FAILED").Wrap(err)
					}
					cmd.Println("Migrations applied")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, databaseURL, func(m Migrator) error {
					if err := m.Down(); err != nil {
						return oops.Code("MIGRATION_FAILED").Wrap(err)
					}
					cmd.Println("Migrations rolled back")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the current migration version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, databaseURL, func(m Migrator) error {
					version, dirty, err := m.Version()
					if err != nil {
						return oops.Code("MIGRATION_FAILED").Wrap(err)
					}
					if dirty {
						cmd.Printf("Version: %d (dirty)\n", version)
					} else {
						cmd.Printf("Version: %d\n", version)
					}
					return nil
				})
			},
		},
	)

	return cmd
}

// migratorFactory is swapped out in tests.
var migratorFactory = func(databaseURL string) (Migrator, error) {
	return store.NewMigrator(databaseURL)
}

func withMigrator(cmd *cobra.Command, databaseURL string, fn func(Migrator) error) error {
	if databaseURL == "" {
		databaseURL = os.Getenv("MEMBERD_DATABASE__URL")
	}
	if databaseURL == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("database URL is required: set --database-url or MEMBERD_DATABASE__URL")
	}

	migrator, err := migratorFactory(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			cmd.PrintErrf("warning: closing migrator: %v\n", closeErr)
		}
	}()

	return fn(migrator)
}
