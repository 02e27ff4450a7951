package tasks

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/iaminawe/ParkingGarage-sub010/internal/memstore"
	"github.com/iaminawe/ParkingGarage-sub010/internal/models"
	"github.com/iaminawe/ParkingGarage-sub010/internal/repositories"
	"github.com/iaminawe/ParkingGarage-sub010/internal/shared"
)

// DefaultBatchSize is the number of records written per transaction when no
// batch size is configured.
const DefaultBatchSize = 50

// Repos bundles the relational repositories sharing one database handle.
type Repos struct {
	DB       *sql.DB
	Garages  *repositories.GarageRepository
	Floors   *repositories.FloorRepository
	Spots    *repositories.SpotRepository
	Vehicles *repositories.VehicleRepository
	Sessions *repositories.SessionRepository
	Payments *repositories.PaymentRepository
	Status   *repositories.StatusRepository
}

// NewRepos wires every repository onto db.
func NewRepos(db *sql.DB) *Repos {
	return &Repos{
		DB:       db,
		Garages:  repositories.NewGarageRepository(db),
		Floors:   repositories.NewFloorRepository(db),
		Spots:    repositories.NewSpotRepository(db),
		Vehicles: repositories.NewVehicleRepository(db),
		Sessions: repositories.NewSessionRepository(db),
		Payments: repositories.NewPaymentRepository(db),
		Status:   repositories.NewStatusRepository(db),
	}
}

// MigrateOptions controls a single migration run.
type MigrateOptions struct {
	ID             string  // Run id; generated when empty
	DryRun         bool    // Read, transform and validate without writing anything
	SkipBackup     bool    // Skip the pre-migration backup bundle
	ValidateOnly   bool    // Run integrity validation against the current database and stop
	SkipValidation bool    // Skip post-migration validation
	BatchSize      int     // Records per transaction, DefaultBatchSize when <= 0
	RateLimit      float64 // Max batches per second, unlimited when <= 0

	// Progress receives real-time updates when non-nil. Sends never block;
	// a slow consumer drops updates rather than stalling the run.
	Progress chan<- ProgressUpdate
}

// CollectionResult reports one collection's outcome within a run.
type CollectionResult struct {
	Collection models.Collection `json:"collection"`
	Records    int               `json:"records"`
	Batches    int               `json:"batches"`
}

// MigrateResult is the summary of a migration run.
type MigrateResult struct {
	ID          string                `json:"id"`
	Status      models.MigrationState `json:"status"`
	DryRun      bool                  `json:"dry_run,omitempty"`
	BackupPath  string                `json:"backup_path,omitempty"`
	Collections []CollectionResult    `json:"collections"`
	Validation  *ValidationReport     `json:"validation,omitempty"`
}

// TotalRecords sums the records across all collections.
func (r *MigrateResult) TotalRecords() int {
	total := 0
	for _, c := range r.Collections {
		total += c.Records
	}
	return total
}

// Engine migrates the in-memory store into the relational database in
// dependency order, one transaction per batch, with a checkpoint after every
// committed batch. Writes are natural-key upserts so re-running a migration
// over the same data converges instead of duplicating.
type Engine struct {
	store     *memstore.Store
	repos     *Repos
	tracker   *StatusTracker
	backup    *BackupUtility
	validator *Validator
	logger    *log.Logger
}

// NewEngine creates a migration Engine over the given store and repositories.
func NewEngine(store *memstore.Store, repos *Repos, tracker *StatusTracker, backup *BackupUtility, validator *Validator, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{
		store:     store,
		repos:     repos,
		tracker:   tracker,
		backup:    backup,
		validator: validator,
		logger:    logger,
	}
}

// collectionSource adapts one snapshot collection to the generic batch loop.
type collectionSource struct {
	coll   models.Collection
	count  int
	record func(i int) models.Record
	upsert func(q repositories.Execer, i int, migrationID string) error
}

func (e *Engine) sources(snap memstore.Snapshot) []collectionSource {
	return []collectionSource{
		{
			coll:   models.CollectionGarage,
			count:  len(snap.Garages),
			record: func(i int) models.Record { return &snap.Garages[i] },
			upsert: func(q repositories.Execer, i int, id string) error {
				return e.repos.Garages.UpsertOrigin(q, &snap.Garages[i], id)
			},
		},
		{
			coll:   models.CollectionFloors,
			count:  len(snap.Floors),
			record: func(i int) models.Record { return &snap.Floors[i] },
			upsert: func(q repositories.Execer, i int, id string) error {
				return e.repos.Floors.UpsertOrigin(q, &snap.Floors[i], id)
			},
		},
		{
			coll:   models.CollectionSpots,
			count:  len(snap.Spots),
			record: func(i int) models.Record { return &snap.Spots[i] },
			upsert: func(q repositories.Execer, i int, id string) error {
				return e.repos.Spots.UpsertOrigin(q, &snap.Spots[i], id)
			},
		},
		{
			coll:   models.CollectionVehicles,
			count:  len(snap.Vehicles),
			record: func(i int) models.Record { return &snap.Vehicles[i] },
			upsert: func(q repositories.Execer, i int, id string) error {
				return e.repos.Vehicles.UpsertOrigin(q, &snap.Vehicles[i], id)
			},
		},
		{
			coll:   models.CollectionSessions,
			count:  len(snap.Sessions),
			record: func(i int) models.Record { return &snap.Sessions[i] },
			upsert: func(q repositories.Execer, i int, id string) error {
				return e.repos.Sessions.UpsertOrigin(q, &snap.Sessions[i], id)
			},
		},
		{
			coll:   models.CollectionPayments,
			count:  len(snap.Payments),
			record: func(i int) models.Record { return &snap.Payments[i] },
			upsert: func(q repositories.Execer, i int, id string) error {
				return e.repos.Payments.UpsertOrigin(q, &snap.Payments[i], id)
			},
		},
	}
}

// Migrate runs a full migration of the memory store into the database.
//
// The run aborts on the first error: the failure is recorded on the status
// record and already-committed batches are left in place for [RollbackEngine]
// to undo. A dry run reads and validates every record but writes nothing,
// neither rows nor backup nor status bookkeeping.
func (e *Engine) Migrate(ctx context.Context, opts MigrateOptions) (*MigrateResult, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.ID == "" {
		opts.ID = shared.GenerateID()
	}
	logger := shared.WithLogger(e.logger, "migration", opts.ID)

	if opts.ValidateOnly {
		return e.validateOnly(ctx, opts)
	}

	snap := e.store.Snapshot()
	sources := e.sources(snap)

	if opts.DryRun {
		return e.dryRun(ctx, opts, sources)
	}

	result := &MigrateResult{ID: opts.ID, Status: models.MigrationPending}

	if !opts.SkipBackup {
		e.sendProgress(opts.Progress, backupUpdate(opts.ID))
		bundle, err := e.backup.CreateBackup(ctx, fmt.Sprintf("pre-%s", opts.ID), BackupOptions{IncludeMemoryStore: true})
		if err != nil {
			return nil, fmt.Errorf("pre-migration backup failed: %w", err)
		}
		result.BackupPath = bundle.BackupPath
		logger.Info("pre-migration backup written", "path", bundle.BackupPath)
	}

	if _, err := e.tracker.InitializeMigration(opts.ID, len(sources), result.BackupPath); err != nil {
		return nil, err
	}
	if err := e.tracker.Begin(opts.ID); err != nil {
		return nil, err
	}
	result.Status = models.MigrationInProgress

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	for step, src := range sources {
		e.sendProgress(opts.Progress, collectionUpdate(step+1, len(sources), src.coll, src.count))

		batches, err := e.migrateCollection(ctx, opts, limiter, src)
		if err != nil {
			return e.fail(result, logger, fmt.Errorf("migrating %s: %w", src.coll, err))
		}
		result.Collections = append(result.Collections, CollectionResult{
			Collection: src.coll,
			Records:    src.count,
			Batches:    batches,
		})

		completed := step + 1
		if err := e.tracker.UpdateStatus(opts.ID, models.StatusPatch{CompletedSteps: &completed}); err != nil {
			return e.fail(result, logger, err)
		}
		logger.Info("collection migrated", "collection", src.coll, "records", src.count, "batches", batches)
	}

	if !opts.SkipValidation {
		e.sendProgress(opts.Progress, validateUpdate(1, 1, "migrated data"))
		report, err := e.validator.ValidateDataIntegrity(ctx)
		if err != nil {
			return e.fail(result, logger, fmt.Errorf("post-migration validation: %w", err))
		}
		result.Validation = report
		if !report.Valid {
			return e.fail(result, logger, fmt.Errorf("%w: %d mismatches after migration", shared.ErrValidation, report.MismatchCount()))
		}
	}

	if err := e.tracker.Complete(opts.ID); err != nil {
		return e.fail(result, logger, err)
	}
	result.Status = models.MigrationCompleted
	e.sendProgress(opts.Progress, finishedUpdate(fmt.Sprintf("Migration %s completed: %d records", opts.ID, result.TotalRecords()), result))
	logger.Info("migration completed", "records", result.TotalRecords())
	return result, nil
}

// migrateCollection writes one collection in batches, one transaction per
// batch, checkpointing after every commit. A batch that fails is rolled back
// whole, so the checkpoint sequence always describes durable state.
func (e *Engine) migrateCollection(ctx context.Context, opts MigrateOptions, limiter *rate.Limiter, src collectionSource) (int, error) {
	batches := 0
	for start := 0; start < src.count; start += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return batches, err
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return batches, err
			}
		}

		end := min(start+opts.BatchSize, src.count)
		tx, err := e.repos.DB.BeginTx(ctx, nil)
		if err != nil {
			return batches, fmt.Errorf("%w: begin batch transaction: %v", shared.ErrTransientStore, err)
		}
		for i := start; i < end; i++ {
			if err := src.upsert(tx, i, opts.ID); err != nil {
				tx.Rollback()
				return batches, fmt.Errorf("record %s: %w", src.record(i).NaturalKey(), err)
			}
		}
		if err := tx.Commit(); err != nil {
			return batches, fmt.Errorf("%w: commit batch: %v", shared.ErrTransientStore, err)
		}
		batches++

		_, err = e.tracker.CreateCheckpoint(opts.ID,
			fmt.Sprintf("%s:batch_%d", src.coll, batches),
			models.CheckpointData{
				TotalRecords:     src.count,
				ProcessedRecords: end,
				CurrentTable:     src.coll.String(),
			}, nil)
		if err != nil {
			return batches, err
		}
		e.sendProgress(opts.Progress, batchUpdate(src.coll, end, src.count))
	}
	return batches, nil
}

// dryRun validates every record in snapshot order without touching the
// database, the backup directory or the status tables.
func (e *Engine) dryRun(ctx context.Context, opts MigrateOptions, sources []collectionSource) (*MigrateResult, error) {
	result := &MigrateResult{ID: opts.ID, Status: models.MigrationCompleted, DryRun: true}
	for step, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.sendProgress(opts.Progress, collectionUpdate(step+1, len(sources), src.coll, src.count))
		for i := 0; i < src.count; i++ {
			rec := src.record(i)
			if err := rec.Validate(); err != nil {
				result.Status = models.MigrationFailed
				return result, fmt.Errorf("dry run: %s record %s: %w", src.coll, rec.NaturalKey(), err)
			}
		}
		result.Collections = append(result.Collections, CollectionResult{
			Collection: src.coll,
			Records:    src.count,
			Batches:    (src.count + opts.BatchSize - 1) / opts.BatchSize,
		})
	}
	e.sendProgress(opts.Progress, finishedUpdate(fmt.Sprintf("Dry run OK: %d records would migrate", result.TotalRecords()), result))
	return result, nil
}

// validateOnly runs both validators against the current database and reports
// without writing anything.
func (e *Engine) validateOnly(ctx context.Context, opts MigrateOptions) (*MigrateResult, error) {
	e.sendProgress(opts.Progress, validateUpdate(1, 2, "data integrity"))
	report, err := e.validator.ValidateDataIntegrity(ctx)
	if err != nil {
		return nil, err
	}
	e.sendProgress(opts.Progress, validateUpdate(2, 2, "relationships"))
	rels, err := e.validator.ValidateRelationships(ctx)
	if err != nil {
		return nil, err
	}
	report.Relationships = rels

	status := models.MigrationCompleted
	if !report.Valid || !rels.Valid {
		status = models.MigrationFailed
	}
	return &MigrateResult{ID: opts.ID, Status: status, Validation: report}, nil
}

// fail records the failure on the status record and returns the partial
// result alongside the original error.
func (e *Engine) fail(result *MigrateResult, logger *log.Logger, cause error) (*MigrateResult, error) {
	result.Status = models.MigrationFailed
	if err := e.tracker.Fail(result.ID, cause); err != nil {
		logger.Error("could not mark migration failed", "error", err)
	}
	logger.Error("migration failed", "error", cause)
	return result, cause
}

// sendProgress delivers an update without ever blocking the run.
func (e *Engine) sendProgress(ch chan<- ProgressUpdate, update ProgressUpdate) {
	if ch == nil {
		return
	}
	select {
	case ch <- update:
	default:
		e.logger.Debug("progress channel full, dropping update", "phase", update.Phase, "message", update.Message)
	}
}
