package tasks

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/iaminawe/ParkingGarage-sub010/internal/memstore"
	"github.com/iaminawe/ParkingGarage-sub010/internal/models"
	"github.com/iaminawe/ParkingGarage-sub010/internal/shared"
	tu "github.com/iaminawe/ParkingGarage-sub010/internal/testing"
)

// newTestEngine wires an engine over a seeded store and an in-memory
// database, with backup bundles under a per-test temp dir.
func newTestEngine(t *testing.T, floors, bays, spotsPerBay int) (*Engine, *memstore.Store, *Repos, *StatusTracker) {
	t.Helper()
	db := tu.MustOpenDB(t)
	store := tu.SeedStore(t, floors, bays, spotsPerBay)
	repos := NewRepos(db)
	logger := shared.NewLogger(io.Discard)
	tracker := NewStatusTracker(repos.Status, logger)
	backup := NewBackupUtility(store, repos, nil, t.TempDir(), logger)
	validator := NewValidator(store, repos, logger)
	return NewEngine(store, repos, tracker, backup, validator, logger), store, repos, tracker
}

func countAll(t *testing.T, repos *Repos) map[models.Collection]int {
	t.Helper()
	counts := map[models.Collection]int{}
	for coll, fn := range map[models.Collection]func() (int, error){
		models.CollectionGarage:   repos.Garages.Count,
		models.CollectionFloors:   repos.Floors.Count,
		models.CollectionSpots:    repos.Spots.Count,
		models.CollectionVehicles: repos.Vehicles.Count,
		models.CollectionSessions: repos.Sessions.Count,
		models.CollectionPayments: repos.Payments.Count,
	} {
		n, err := fn()
		if err != nil {
			t.Fatalf("counting %s: %v", coll, err)
		}
		counts[coll] = n
	}
	return counts
}

func TestEngine_Migrate(t *testing.T) {
	t.Run("full migration completes and checkpoints every batch", func(t *testing.T) {
		engine, store, repos, tracker := newTestEngine(t, 3, 5, 20)

		result, err := engine.Migrate(context.Background(), MigrateOptions{ID: shared.GenerateID(), BatchSize: 50})
		if err != nil {
			t.Fatalf("Migrate() error: %v", err)
		}
		if result.Status != models.MigrationCompleted {
			t.Errorf("status = %s, want %s", result.Status, models.MigrationCompleted)
		}
		if result.BackupPath == "" {
			t.Error("expected a pre-migration backup path")
		}
		tu.AssertDirExists(t, result.BackupPath)

		counts := countAll(t, repos)
		snap := store.Snapshot()
		want := map[models.Collection]int{
			models.CollectionGarage:   len(snap.Garages),
			models.CollectionFloors:   len(snap.Floors),
			models.CollectionSpots:    len(snap.Spots),
			models.CollectionVehicles: len(snap.Vehicles),
			models.CollectionSessions: len(snap.Sessions),
			models.CollectionPayments: len(snap.Payments),
		}
		for coll, n := range want {
			if counts[coll] != n {
				t.Errorf("%s: %d rows, want %d", coll, counts[coll], n)
			}
		}
		if counts[models.CollectionSpots] != 300 {
			t.Errorf("spots = %d, want 300", counts[models.CollectionSpots])
		}

		// 300 spots at batch 50 is 6 checkpoints; every other collection
		// fits one batch.
		status, err := tracker.Get(result.ID)
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if len(status.Checkpoints) != 11 {
			t.Errorf("checkpoints = %d, want 11", len(status.Checkpoints))
		}
		for i, cp := range status.Checkpoints {
			if cp.Seq != i+1 {
				t.Errorf("checkpoint %d has seq %d, want %d", i, cp.Seq, i+1)
			}
		}
		last := status.Checkpoints[len(status.Checkpoints)-1]
		if last.Data.CurrentTable != models.CollectionPayments.String() {
			t.Errorf("last checkpoint table = %s, want %s", last.Data.CurrentTable, models.CollectionPayments)
		}
		if status.CompletedSteps != status.TotalSteps {
			t.Errorf("completed %d/%d steps", status.CompletedSteps, status.TotalSteps)
		}
		if result.Validation == nil || !result.Validation.Valid {
			t.Errorf("expected a passing validation report, got %+v", result.Validation)
		}
	})

	t.Run("dry run writes nothing", func(t *testing.T) {
		engine, _, repos, tracker := newTestEngine(t, 2, 2, 5)

		result, err := engine.Migrate(context.Background(), MigrateOptions{DryRun: true})
		if err != nil {
			t.Fatalf("Migrate() error: %v", err)
		}
		if !result.DryRun || result.Status != models.MigrationCompleted {
			t.Errorf("unexpected result: %+v", result)
		}
		if result.BackupPath != "" {
			t.Errorf("dry run created a backup at %s", result.BackupPath)
		}
		for coll, n := range countAll(t, repos) {
			if n != 0 {
				t.Errorf("%s: %d rows written during dry run", coll, n)
			}
		}
		runs, err := tracker.List()
		if err != nil {
			t.Fatalf("List() error: %v", err)
		}
		if len(runs) != 0 {
			t.Errorf("dry run recorded %d status rows", len(runs))
		}
	})

	t.Run("invalid record aborts its batch and fails the run", func(t *testing.T) {
		engine, store, repos, tracker := newTestEngine(t, 2, 2, 5)
		store.SetVehicle(models.Vehicle{Plate: "   ", Type: models.SpotStandard})

		id := shared.GenerateID()
		result, err := engine.Migrate(context.Background(), MigrateOptions{ID: id})
		if err == nil {
			t.Fatal("Migrate() succeeded with an invalid vehicle")
		}
		if !strings.Contains(err.Error(), "empty license plate") {
			t.Errorf("error = %v, want empty plate cause", err)
		}
		if result.Status != models.MigrationFailed {
			t.Errorf("status = %s, want %s", result.Status, models.MigrationFailed)
		}

		counts := countAll(t, repos)
		if counts[models.CollectionSpots] != 20 {
			t.Errorf("spots = %d, want 20: collections before the failure stay committed", counts[models.CollectionSpots])
		}
		if counts[models.CollectionVehicles] != 0 {
			t.Errorf("vehicles = %d, want 0: the failing batch must roll back whole", counts[models.CollectionVehicles])
		}

		status, err := tracker.Get(id)
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if status.Status != models.MigrationFailed || status.ErrorMessage == "" {
			t.Errorf("persisted status = %s error=%q", status.Status, status.ErrorMessage)
		}
	})

	t.Run("re-running over migrated data converges", func(t *testing.T) {
		engine, _, repos, _ := newTestEngine(t, 2, 3, 10)

		if _, err := engine.Migrate(context.Background(), MigrateOptions{SkipBackup: true}); err != nil {
			t.Fatalf("first Migrate() error: %v", err)
		}
		first := countAll(t, repos)

		if _, err := engine.Migrate(context.Background(), MigrateOptions{SkipBackup: true}); err != nil {
			t.Fatalf("second Migrate() error: %v", err)
		}
		second := countAll(t, repos)

		for coll, n := range first {
			if second[coll] != n {
				t.Errorf("%s: %d rows after re-run, want %d", coll, second[coll], n)
			}
		}
	})

	t.Run("validate only reports without writing", func(t *testing.T) {
		engine, _, repos, tracker := newTestEngine(t, 2, 2, 5)

		result, err := engine.Migrate(context.Background(), MigrateOptions{ValidateOnly: true})
		if err != nil {
			t.Fatalf("Migrate() error: %v", err)
		}
		if result.Status != models.MigrationFailed {
			t.Errorf("status = %s, want failed against an empty database", result.Status)
		}
		if result.Validation == nil || result.Validation.Valid {
			t.Error("expected a failing validation report against an empty database")
		}
		for coll, n := range countAll(t, repos) {
			if n != 0 {
				t.Errorf("%s: %d rows written during validate-only", coll, n)
			}
		}
		if runs, _ := tracker.List(); len(runs) != 0 {
			t.Errorf("validate-only recorded %d status rows", len(runs))
		}
	})

	t.Run("progress updates arrive in phase order", func(t *testing.T) {
		engine, _, _, _ := newTestEngine(t, 1, 2, 5)

		ch := make(chan ProgressUpdate, 200)
		_, err := engine.Migrate(context.Background(), MigrateOptions{Progress: ch})
		if err != nil {
			t.Fatalf("Migrate() error: %v", err)
		}
		close(ch)

		var phases []Phase
		for u := range ch {
			phases = append(phases, u.Phase)
		}
		if len(phases) == 0 {
			t.Fatal("no progress updates received")
		}
		if phases[0] != CreateBackup {
			t.Errorf("first phase = %s, want %s", phases[0], CreateBackup)
		}
		if phases[len(phases)-1] != Finished {
			t.Errorf("last phase = %s, want %s", phases[len(phases)-1], Finished)
		}
	})

	t.Run("cancelled context stops the run", func(t *testing.T) {
		engine, _, _, _ := newTestEngine(t, 3, 5, 20)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := engine.Migrate(ctx, MigrateOptions{SkipBackup: true})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})
}

func TestValidator(t *testing.T) {
	t.Run("detects a tampered row", func(t *testing.T) {
		engine, _, repos, _ := newTestEngine(t, 2, 2, 5)
		if _, err := engine.Migrate(context.Background(), MigrateOptions{SkipBackup: true}); err != nil {
			t.Fatalf("Migrate() error: %v", err)
		}

		if _, err := repos.DB.Exec("UPDATE vehicles SET color = 'chartreuse' WHERE plate = 'TEST001'"); err != nil {
			t.Fatalf("tampering failed: %v", err)
		}

		report, err := engine.validator.ValidateDataIntegrity(context.Background())
		if err != nil {
			t.Fatalf("ValidateDataIntegrity() error: %v", err)
		}
		if report.Valid {
			t.Fatal("report is valid despite tampered row")
		}
		found := false
		for _, m := range report.Mismatches {
			if m.Collection == models.CollectionVehicles && m.RecordKey == "TEST001" && m.Field == "color" {
				found = true
				if m.Actual != "chartreuse" {
					t.Errorf("actual = %q, want chartreuse", m.Actual)
				}
			}
		}
		if !found {
			t.Errorf("color mismatch not reported: %+v", report.Mismatches)
		}
	})

	t.Run("detects a deleted row", func(t *testing.T) {
		engine, _, repos, _ := newTestEngine(t, 2, 2, 5)
		if _, err := engine.Migrate(context.Background(), MigrateOptions{SkipBackup: true}); err != nil {
			t.Fatalf("Migrate() error: %v", err)
		}

		if _, err := repos.DB.Exec("DELETE FROM payments"); err != nil {
			t.Fatalf("deleting payments failed: %v", err)
		}

		report, err := engine.validator.ValidateDataIntegrity(context.Background())
		if err != nil {
			t.Fatalf("ValidateDataIntegrity() error: %v", err)
		}
		if report.Valid || len(report.Missing) == 0 {
			t.Fatalf("missing payment row not reported: %+v", report)
		}
		if report.Missing[0].MissingIn != "database" {
			t.Errorf("missing in %s, want database", report.Missing[0].MissingIn)
		}
	})

	t.Run("relationship checks pass on migrated data", func(t *testing.T) {
		engine, _, _, _ := newTestEngine(t, 2, 2, 5)
		if _, err := engine.Migrate(context.Background(), MigrateOptions{SkipBackup: true}); err != nil {
			t.Fatalf("Migrate() error: %v", err)
		}

		rels, err := engine.validator.ValidateRelationships(context.Background())
		if err != nil {
			t.Fatalf("ValidateRelationships() error: %v", err)
		}
		if !rels.Valid || len(rels.Violations) != 0 {
			t.Errorf("unexpected violations: %+v", rels.Violations)
		}
	})
}

func TestRollbackEngine(t *testing.T) {
	migrate := func(t *testing.T, engine *Engine) *MigrateResult {
		t.Helper()
		result, err := engine.Migrate(context.Background(), MigrateOptions{ID: shared.GenerateID()})
		if err != nil {
			t.Fatalf("Migrate() error: %v", err)
		}
		return result
	}

	t.Run("requires confirmation", func(t *testing.T) {
		engine, store, repos, tracker := newTestEngine(t, 1, 2, 5)
		result := migrate(t, engine)

		rollback := NewRollbackEngine(store, repos, tracker, engine.backup, engine.logger)
		_, err := rollback.Rollback(context.Background(), RollbackOptions{ID: result.ID})
		if !errors.Is(err, shared.ErrNotConfirmed) {
			t.Errorf("error = %v, want ErrNotConfirmed", err)
		}
		if n, _ := repos.Spots.Count(); n == 0 {
			t.Error("unconfirmed rollback cleared the database")
		}
	})

	t.Run("clears database and restores memory", func(t *testing.T) {
		engine, store, repos, tracker := newTestEngine(t, 2, 2, 5)
		before := store.Stats()
		result := migrate(t, engine)

		// Mutate memory after the backup so the restore is observable.
		store.Clear()

		rollback := NewRollbackEngine(store, repos, tracker, engine.backup, engine.logger)
		rbResult, err := rollback.Rollback(context.Background(), RollbackOptions{
			ID: result.ID, Confirm: true, ValidateAfter: true,
		})
		if err != nil {
			t.Fatalf("Rollback() error: %v", err)
		}
		if !rbResult.Success || !rbResult.DatabaseCleared || !rbResult.MemoryStoreRestored {
			t.Errorf("unexpected result: %+v", rbResult)
		}
		if len(rbResult.Warnings) != 0 {
			t.Errorf("unexpected warnings: %v", rbResult.Warnings)
		}

		for coll, n := range countAll(t, repos) {
			if n != 0 {
				t.Errorf("%s: %d rows remain after rollback", coll, n)
			}
		}
		after := store.Stats()
		if after != before {
			t.Errorf("memory stats after rollback = %+v, want %+v", after, before)
		}

		status, err := tracker.Get(result.ID)
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		last := status.Checkpoints[len(status.Checkpoints)-1]
		if last.Step != "rollback" {
			t.Errorf("last checkpoint step = %s, want rollback", last.Step)
		}
		if status.Status != models.MigrationCompleted {
			t.Errorf("rollback transitioned status to %s", status.Status)
		}
	})

	t.Run("preserve new data keeps unstamped rows", func(t *testing.T) {
		engine, store, repos, tracker := newTestEngine(t, 1, 2, 5)
		result := migrate(t, engine)

		_, err := repos.DB.Exec(`
			INSERT INTO vehicles (plate, type, color, owner_name, registered_at)
			VALUES ('OTHER1', 'standard', 'green', 'Walk-in', CURRENT_TIMESTAMP)
		`)
		if err != nil {
			t.Fatalf("inserting unstamped vehicle: %v", err)
		}

		rollback := NewRollbackEngine(store, repos, tracker, engine.backup, engine.logger)
		rbResult, err := rollback.Rollback(context.Background(), RollbackOptions{
			ID: result.ID, Confirm: true, PreserveNewData: true, ValidateAfter: true,
		})
		if err != nil {
			t.Fatalf("Rollback() error: %v", err)
		}
		if len(rbResult.Warnings) == 0 {
			t.Error("preserve-new-data produced no warning")
		}

		n, err := repos.Vehicles.Count()
		if err != nil {
			t.Fatalf("Count() error: %v", err)
		}
		if n != 1 {
			t.Errorf("vehicles = %d, want 1 surviving unstamped row", n)
		}
		if n, _ := repos.Spots.Count(); n != 0 {
			t.Errorf("spots = %d, want 0", n)
		}
	})

	t.Run("missing backup aborts before any deletion", func(t *testing.T) {
		engine, store, repos, tracker := newTestEngine(t, 1, 2, 5)
		result, err := engine.Migrate(context.Background(), MigrateOptions{ID: shared.GenerateID(), SkipBackup: true})
		if err != nil {
			t.Fatalf("Migrate() error: %v", err)
		}

		rollback := NewRollbackEngine(store, repos, tracker, engine.backup, engine.logger)
		_, err = rollback.Rollback(context.Background(), RollbackOptions{ID: result.ID, Confirm: true})
		if !errors.Is(err, shared.ErrBackupMissing) {
			t.Errorf("error = %v, want ErrBackupMissing", err)
		}
		if n, _ := repos.Spots.Count(); n == 0 {
			t.Error("rollback without a backup still cleared the database")
		}
	})

	t.Run("unknown run id", func(t *testing.T) {
		engine, store, repos, tracker := newTestEngine(t, 1, 1, 2)
		rollback := NewRollbackEngine(store, repos, tracker, engine.backup, engine.logger)
		_, err := rollback.Rollback(context.Background(), RollbackOptions{ID: "nope", Confirm: true})
		if !errors.Is(err, shared.ErrMigrationNotFound) {
			t.Errorf("error = %v, want ErrMigrationNotFound", err)
		}
	})
}
