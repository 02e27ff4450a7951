package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/iaminawe/ParkingGarage-sub010/internal/shared"
	"github.com/iaminawe/ParkingGarage-sub010/internal/tasks"
)

// Rollback undoes a migration run from its pre-migration bundle.
func (r *Runner) Rollback(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	repos := tasks.NewRepos(db)
	tracker := tasks.NewStatusTracker(repos.Status, r.logger)
	backup := r.backupUtility(repos)
	rollback := tasks.NewRollbackEngine(r.store, repos, tracker, backup, r.logger)

	progressCh := make(chan tasks.ProgressUpdate, 20)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("↩️  %s\n", update.Message)
		}
	}()

	result, err := rollback.Rollback(ctx, tasks.RollbackOptions{
		ID:              cmd.String("id"),
		Confirm:         cmd.Bool("confirm"),
		PreserveNewData: cmd.Bool("preserve-new"),
		ValidateAfter:   cmd.Bool("validate"),
		Progress:        progressCh,
	})
	close(progressCh)
	<-done

	if err != nil {
		if errors.Is(err, shared.ErrNotConfirmed) {
			r.writePlain("%s\n", r.styles.Warn("Rollback is destructive. Re-run with --confirm to proceed."))
		}
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	r.writePlainHeader("Rollback Complete")
	r.writePlain("Run:          %s\n", result.ID)
	r.writePlain("Rows deleted: %d\n", result.RowsDeleted)
	r.writePlain("%s\n", r.styles.OK("Memory store restored from pre-migration bundle"))
	for _, w := range result.Warnings {
		r.writePlain("%s\n", r.styles.Warn(fmt.Sprintf("⚠ %s", w)))
	}
	return nil
}
