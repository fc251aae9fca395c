package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "article-generation-api",
		Usage:                 "Generate, edit and publish articles",
		EnableShellCompletion: true,
		DefaultCommand:        "serve",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "migrations-path",
				Usage:   "Path to the SQL migrations directory",
				Value:   "./migrations",
				Sources: cli.EnvVars("MIGRATIONS_PATH"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API server",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "Apply or roll back database migrations",
				Commands: []*cli.Command{
					{
						Name:   "up",
						Usage:  "Apply all pending migrations",
						Action: migrateUp,
					},
					{
						Name:   "down",
						Usage:  "Roll back the last migration",
						Action: migrateDown,
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
