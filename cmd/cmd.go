// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for the database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run schema migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// seedCommand generates demo garage data into the memory store.
func seedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Populate the memory store with demo garage data and save a bundle",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "vehicles",
				Usage: "Number of parked vehicles to generate",
				Value: 25,
			},
			&cli.StringFlag{
				Name:  "id",
				Usage: "Bundle id for the seeded snapshot",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Seed,
	}
}

// migrateCommand handles migration runs and run inspection.
func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Migrate memory store data into the database",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a full migration",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "from",
						Usage: "Bundle to load the memory store from (default: newest)",
					},
					&cli.StringFlag{
						Name:  "id",
						Usage: "Migration run id (default: generated)",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Records per transaction (default: configured value)",
					},
					&cli.FloatFlag{
						Name:  "rate-limit",
						Usage: "Max batches per second, 0 for unthrottled",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Validate and report without writing",
					},
					&cli.BoolFlag{
						Name:  "validate-only",
						Usage: "Run validation against current state without migrating",
					},
					&cli.BoolFlag{
						Name:  "skip-backup",
						Usage: "Skip the pre-migration backup bundle",
					},
					&cli.BoolFlag{
						Name:  "skip-validation",
						Usage: "Skip post-migration validation",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.MigrateRun,
			},
			{
				Name:  "status",
				Usage: "Show one migration run with its checkpoints",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.MigrateStatus,
			},
			{
				Name:  "list",
				Usage: "List migration runs, newest first",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.MigrateList,
			},
		},
	}
}

// backupCommand handles backup bundle operations.
func backupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Create, list and restore backup bundles",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Serialize the memory store into a new bundle",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "from",
						Usage: "Bundle to load the memory store from first (default: newest)",
					},
					&cli.StringFlag{
						Name:  "id",
						Usage: "Bundle id (default: timestamped)",
					},
					&cli.BoolFlag{
						Name:  "include-database",
						Usage: "Also snapshot relational tables",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.BackupCreate,
			},
			{
				Name:  "list",
				Usage: "List bundles under the backup root, newest first",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.BackupList,
			},
			{
				Name:  "restore",
				Usage: "Restore the memory store from a bundle and save it as the newest snapshot",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Action: r.BackupRestore,
			},
		},
	}
}

// rollbackCommand undoes a migration run.
func rollbackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "rollback",
		Usage: "Undo a migration run from its pre-migration bundle",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Migration run id to roll back",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "confirm",
				Usage: "Confirm the destructive rollback",
			},
			&cli.BoolFlag{
				Name:  "preserve-new",
				Usage: "Delete only rows written by this run",
			},
			&cli.BoolFlag{
				Name:  "validate",
				Usage: "Verify no trace of the run remains afterwards",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Rollback,
	}
}

// validateCommand checks migrated data without writing.
func validateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Compare the memory store against the database and check relationships",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "from",
				Usage: "Bundle to load the memory store from (default: newest)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Validate,
	}
}

// statsCommand summarizes the memory store.
func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show occupancy and record counts for the memory store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "from",
				Usage: "Bundle to load the memory store from (default: newest)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Stats,
	}
}
