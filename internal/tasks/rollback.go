package tasks

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/iaminawe/ParkingGarage-sub010/internal/memstore"
	"github.com/iaminawe/ParkingGarage-sub010/internal/models"
	"github.com/iaminawe/ParkingGarage-sub010/internal/shared"
)

// RollbackOptions controls undoing one migration run.
type RollbackOptions struct {
	ID              string // Migration run to roll back
	Confirm         bool   // Required; rollback is destructive
	PreserveNewData bool   // Delete only rows stamped with this run's id
	ValidateAfter   bool   // Verify the database holds no trace of the run afterwards

	Progress chan<- ProgressUpdate
}

// RollbackResult is the summary of a rollback.
type RollbackResult struct {
	ID                  string   `json:"id"`
	Success             bool     `json:"success"`
	DatabaseCleared     bool     `json:"database_cleared"`
	MemoryStoreRestored bool     `json:"memory_store_restored"`
	RowsDeleted         int64    `json:"rows_deleted"`
	Warnings            []string `json:"warnings,omitempty"`
}

// RollbackEngine undoes a migration run: it clears the run's rows from the
// database and restores the memory store from the run's pre-migration backup.
//
// The backup bundle is fully decoded before the first destructive step, so an
// unreadable bundle aborts the rollback with both stores untouched.
type RollbackEngine struct {
	store   *memstore.Store
	repos   *Repos
	tracker *StatusTracker
	backup  *BackupUtility
	logger  *log.Logger
}

// NewRollbackEngine creates a RollbackEngine over the given stores.
func NewRollbackEngine(store *memstore.Store, repos *Repos, tracker *StatusTracker, backup *BackupUtility, logger *log.Logger) *RollbackEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &RollbackEngine{store: store, repos: repos, tracker: tracker, backup: backup, logger: logger}
}

// Rollback undoes the migration run named in opts.
//
// Database rows are cleared in reverse dependency order inside one
// transaction. By default every operational table is cleared whole; with
// PreserveNewData only rows stamped with the run's id are deleted and rows
// written by other runs, or by nothing at all, survive with a warning.
// A rollback never transitions the run's status; it appends a checkpoint to
// the run's history instead, so completed and failed runs alike can be
// rolled back.
func (r *RollbackEngine) Rollback(ctx context.Context, opts RollbackOptions) (*RollbackResult, error) {
	if !opts.Confirm {
		return nil, fmt.Errorf("%w: rollback of %s requires confirmation", shared.ErrNotConfirmed, opts.ID)
	}
	logger := shared.WithLogger(r.logger, "migration", opts.ID)

	status, err := r.tracker.Get(opts.ID)
	if err != nil {
		return nil, err
	}
	if status.BackupPath == "" {
		return nil, fmt.Errorf("%w: migration %s has no backup bundle", shared.ErrBackupMissing, opts.ID)
	}

	// Decode the bundle up front; nothing is mutated until it parses whole.
	snap, err := r.backup.LoadSnapshot(ctx, status.BackupPath)
	if err != nil {
		return nil, err
	}

	result := &RollbackResult{ID: opts.ID}
	if opts.PreserveNewData {
		result.Warnings = append(result.Warnings,
			"preserve-new-data: only rows stamped by this migration were deleted; rows from other origins remain")
	}

	deleted, err := r.clearDatabase(ctx, opts, logger)
	if err != nil {
		return result, err
	}
	result.RowsDeleted = deleted
	result.DatabaseCleared = true

	r.sendProgress(opts.Progress, restoreUpdate(status.BackupPath))
	r.store.Restore(*snap)
	result.MemoryStoreRestored = true
	logger.Info("memory store restored from backup", "path", status.BackupPath)

	_, err = r.tracker.CreateCheckpoint(opts.ID, "rollback",
		models.CheckpointData{CurrentTable: "rollback"},
		map[string]string{
			"rows_deleted":      strconv.FormatInt(deleted, 10),
			"preserve_new_data": strconv.FormatBool(opts.PreserveNewData),
		})
	if err != nil {
		return result, err
	}

	if opts.ValidateAfter {
		if err := r.verifyCleared(ctx, opts, result); err != nil {
			return result, err
		}
	}

	result.Success = true
	r.sendProgress(opts.Progress, finishedUpdate(
		fmt.Sprintf("Rollback of %s complete: %d rows deleted", opts.ID, deleted), result))
	logger.Info("rollback complete", "rows_deleted", deleted)
	return result, nil
}

// clearDatabase deletes migrated rows in reverse dependency order, children
// before parents, inside a single transaction.
func (r *RollbackEngine) clearDatabase(ctx context.Context, opts RollbackOptions, logger *log.Logger) (int64, error) {
	filter := ""
	if opts.PreserveNewData {
		filter = opts.ID
	}

	order := models.MigrationOrder()
	tx, err := r.repos.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin rollback transaction: %v", shared.ErrTransientStore, err)
	}

	var total int64
	for i := len(order) - 1; i >= 0; i-- {
		coll := order[i]
		r.sendProgress(opts.Progress, clearUpdate(len(order)-i, len(order), coll.String()))

		var n int64
		switch coll {
		case models.CollectionPayments:
			n, err = r.repos.Payments.Clear(tx, filter)
		case models.CollectionSessions:
			n, err = r.repos.Sessions.Clear(tx, filter)
		case models.CollectionVehicles:
			n, err = r.repos.Vehicles.Clear(tx, filter)
		case models.CollectionSpots:
			n, err = r.repos.Spots.Clear(tx, filter)
		case models.CollectionFloors:
			n, err = r.repos.Floors.Clear(tx, filter)
		case models.CollectionGarage:
			n, err = r.repos.Garages.Clear(tx, filter)
		}
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("clearing %s: %w", coll, err)
		}
		total += n
		logger.Debug("table cleared", "table", coll, "rows", n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit rollback transaction: %v", shared.ErrTransientStore, err)
	}
	return total, nil
}

// verifyCleared confirms no operational row still carries the run's id.
func (r *RollbackEngine) verifyCleared(ctx context.Context, opts RollbackOptions, result *RollbackResult) error {
	for _, coll := range models.MigrationOrder() {
		var leftover int
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE migration_id = ?", coll)
		if err := r.repos.DB.QueryRowContext(ctx, query, opts.ID).Scan(&leftover); err != nil {
			return fmt.Errorf("%w: verifying %s after rollback: %v", shared.ErrTransientStore, coll, err)
		}
		if leftover > 0 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%d rows in %s still reference migration %s", leftover, coll, opts.ID))
		}
	}
	return nil
}

func (r *RollbackEngine) sendProgress(ch chan<- ProgressUpdate, update ProgressUpdate) {
	if ch == nil {
		return
	}
	select {
	case ch <- update:
	default:
	}
}
