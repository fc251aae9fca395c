package main

import (
	"context"
	"fmt"

	"github.com/article-generation-api/internal/config"
	"github.com/article-generation-api/internal/database"
	"github.com/article-generation-api/pkg/logger"
	cli "github.com/urfave/cli/v3"
)

func migrateUp(ctx context.Context, cmd *cli.Command) error {
	return withDatabase(cmd, func(db *database.DB, path string) error {
		return db.RunMigrations(path)
	})
}

func migrateDown(ctx context.Context, cmd *cli.Command) error {
	return withDatabase(cmd, func(db *database.DB, path string) error {
		return db.MigrateDown(path)
	})
}

// withDatabase connects using the environment configuration regardless
// of STORAGE_DRIVER, since migrations only make sense against postgres.
func withDatabase(cmd *cli.Command, fn func(db *database.DB, path string) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logger.New(cfg.Log)

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	return fn(db, cmd.String("migrations-path"))
}
