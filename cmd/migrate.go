package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/iaminawe/ParkingGarage-sub010/internal/shared"
	"github.com/iaminawe/ParkingGarage-sub010/internal/tasks"
)

// MigrateRun migrates the memory store into the database.
func (r *Runner) MigrateRun(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadStore(ctx, cmd.String("from")); err != nil {
		return err
	}

	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	repos := tasks.NewRepos(db)
	tracker := tasks.NewStatusTracker(repos.Status, r.logger)
	backup := r.backupUtility(repos)
	validator := tasks.NewValidator(r.store, repos, r.logger)
	engine := tasks.NewEngine(r.store, repos, tracker, backup, validator, r.logger)

	batchSize := int(cmd.Int("batch-size"))
	if batchSize <= 0 {
		batchSize = r.config.Migration.BatchSize
	}
	rateLimit := cmd.Float("rate-limit")
	if rateLimit <= 0 {
		rateLimit = r.config.Migration.RateLimit
	}

	opts := tasks.MigrateOptions{
		ID:             cmd.String("id"),
		DryRun:         cmd.Bool("dry-run"),
		ValidateOnly:   cmd.Bool("validate-only"),
		SkipBackup:     cmd.Bool("skip-backup"),
		SkipValidation: cmd.Bool("skip-validation"),
		BatchSize:      batchSize,
		RateLimit:      rateLimit,
	}

	// Progress channel and goroutine to render updates as they arrive
	progressCh := make(chan tasks.ProgressUpdate, 100)
	done := make(chan struct{})
	opts.Progress = progressCh
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.CreateBackup:
				r.writePlain("💾 %s\n", update.Message)
			case tasks.MigrateCollection:
				r.writePlain("\n➡️  %s\n", update.Message)
			case tasks.WriteBatch:
				r.writePlain("%s\n", update.Message)
			case tasks.Validate:
				r.writePlain("\n🔍 %s\n", update.Message)
			}
		}
	}()

	result, err := engine.Migrate(ctx, opts)
	close(progressCh)
	<-done

	if err != nil {
		if result != nil {
			r.writePlain("\n%s\n", r.styles.Err(fmt.Sprintf("Migration %s failed: %v", result.ID, err)))
			r.writePlain("%s\n", r.styles.Help(fmt.Sprintf("Roll back with: garagemig rollback --id %s --confirm", result.ID)))
		}
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	title := "Migration Complete!"
	switch {
	case result.DryRun:
		title = "Dry Run Complete!"
	case opts.ValidateOnly:
		title = "Validation Complete!"
	}
	r.writePlain("\n")
	r.writePlainHeader(title)
	r.writePlain("Run: %s\n", result.ID)
	for _, c := range result.Collections {
		r.writePlain("  %-13s %5d records  (%d batches)\n", c.Collection, c.Records, c.Batches)
	}
	r.writePlain("%s\n", r.styles.OK(fmt.Sprintf("Total: %d records", result.TotalRecords())))
	if result.BackupPath != "" {
		r.writePlain("%s\n", r.styles.Help(fmt.Sprintf("Backup: %s", result.BackupPath)))
	}
	if result.Validation != nil {
		if result.Validation.Valid {
			r.writePlain("%s\n", r.styles.OK(fmt.Sprintf("Validation: %d records checked, all consistent", result.Validation.CheckedRecords)))
		} else {
			r.writePlain("%s\n", r.styles.Err(fmt.Sprintf("Validation: %d mismatches", result.Validation.MismatchCount())))
		}
	}
	return nil
}

// MigrateStatus shows one migration run with its checkpoint history.
func (r *Runner) MigrateStatus(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: migration run id", shared.ErrMissingArgument)
	}

	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	repos := tasks.NewRepos(db)
	tracker := tasks.NewStatusTracker(repos.Status, r.logger)

	status, err := tracker.Get(id)
	if err != nil {
		return err
	}
	progress, err := tracker.GetProgress(id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"status": status, "progress": progress}, true)
	}

	r.writePlainHeader(fmt.Sprintf("Migration %s", status.ID))
	r.writePlain("Status:   %s\n", status.Status)
	r.writePlain("Progress: %.1f%% (%d/%d steps)\n", progress.Percentage, status.CompletedSteps, status.TotalSteps)
	r.writePlain("Started:  %s\n", status.StartedAt.Format("2006-01-02 15:04:05 MST"))
	if status.CompletedAt != nil {
		r.writePlain("Finished: %s\n", status.CompletedAt.Format("2006-01-02 15:04:05 MST"))
	}
	if status.BackupPath != "" {
		r.writePlain("Backup:   %s\n", status.BackupPath)
	}
	if status.ErrorMessage != "" {
		r.writePlain("%s\n", r.styles.Err(fmt.Sprintf("Error: %s", status.ErrorMessage)))
	}

	if len(status.Checkpoints) > 0 {
		r.writePlain("\nCheckpoints:\n")
		for _, cp := range status.Checkpoints {
			r.writePlain("  %3d. %-28s %d/%d %s\n",
				cp.Seq, cp.Step, cp.Data.ProcessedRecords, cp.Data.TotalRecords, cp.Data.CurrentTable)
		}
	}
	return nil
}

// MigrateList lists all migration runs, newest first.
func (r *Runner) MigrateList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	repos := tasks.NewRepos(db)
	tracker := tasks.NewStatusTracker(repos.Status, r.logger)

	runs, err := tracker.List()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(runs, true)
	}

	if len(runs) == 0 {
		r.writePlain("No migration runs recorded.\n")
		return nil
	}

	r.writePlainHeader("Migration Runs")
	for _, run := range runs {
		line := fmt.Sprintf("%-38s %-12s %d/%d steps  %s",
			run.ID, run.Status, run.CompletedSteps, run.TotalSteps,
			run.StartedAt.Format("2006-01-02 15:04:05"))
		switch {
		case run.Status.Terminal() && run.ErrorMessage == "":
			r.writePlain("%s\n", r.styles.OK(line))
		case run.ErrorMessage != "":
			r.writePlain("%s\n", r.styles.Err(line))
		default:
			r.writePlain("%s\n", line)
		}
	}
	return nil
}
