// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"fmt"

	"codeberg.org/oliverandrich/portfolio-admin/internal/config"
	"codeberg.org/oliverandrich/portfolio-admin/internal/database"
	"github.com/urfave/cli/v3"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Inspect or roll back the database schema",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Print the applied schema version",
				Action: migrateStatus,
			},
			{
				Name:   "down",
				Usage:  "Roll back the latest migration",
				Action: migrateDown,
			},
		},
	}
}

// Open applies pending migrations, so status always reports the latest version.
func migrateStatus(_ context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	version, err := database.MigrationVersion(db.DB)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "schema version: %d\n", version)
	return nil
}

func migrateDown(_ context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := database.MigrateDown(db.DB); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	version, err := database.MigrationVersion(db.DB)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "rolled back to schema version: %d\n", version)
	return nil
}
