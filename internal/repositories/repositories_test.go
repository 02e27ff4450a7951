package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iaminawe/ParkingGarage-sub010/internal/models"
	"github.com/iaminawe/ParkingGarage-sub010/internal/shared"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("NewDatabase() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	shared.ConfigureDatabase(db, 1, 1)
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error: %v", err)
	}
	return db
}

func testGarage() *models.GarageConfig {
	return &models.GarageConfig{
		ID: "g1", Name: "Main", Address: "1 Main St",
		TotalFloors: 2, BaysPerFloor: 2, SpotsPerBay: 5,
		HourlyRate: decimal.RequireFromString("2.50"),
		UpdatedAt:  time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestGarageRepository(t *testing.T) {
	db := openDB(t)
	repo := NewGarageRepository(db)

	t.Run("upsert and get", func(t *testing.T) {
		if err := repo.Upsert(testGarage()); err != nil {
			t.Fatalf("Upsert() error: %v", err)
		}

		got, err := repo.Get("g1")
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if got.Name != "Main" || !got.HourlyRate.Equal(decimal.RequireFromString("2.50")) {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("upsert converges instead of duplicating", func(t *testing.T) {
		g := testGarage()
		g.Name = "Renamed"
		if err := repo.UpsertOrigin(db, g, "run-1"); err != nil {
			t.Fatalf("UpsertOrigin() error: %v", err)
		}

		n, err := repo.Count()
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("count = %d, want 1", n)
		}
		got, _ := repo.Get("g1")
		if got.Name != "Renamed" {
			t.Errorf("name = %q, want Renamed", got.Name)
		}
	})

	t.Run("invalid config rejected before the write", func(t *testing.T) {
		g := testGarage()
		g.TotalFloors = 0
		if err := repo.Upsert(g); err == nil {
			t.Error("invalid garage accepted")
		}
	})
}

func TestSpotRepository(t *testing.T) {
	db := openDB(t)
	repo := NewSpotRepository(db)

	plate := "ABC123"
	spot := &models.Spot{
		Floor: 1, Bay: 2, SpotNumber: 3,
		Type: models.SpotCompact, Status: models.SpotOccupied, OccupantPlate: &plate,
		Features: []models.SpotFeature{models.FeatureCovered, models.FeatureEVCharging},
	}
	if err := repo.UpsertOrigin(db, spot, "run-1"); err != nil {
		t.Fatalf("UpsertOrigin() error: %v", err)
	}

	got, err := repo.Get(1, 2, 3)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Status != models.SpotOccupied || got.OccupantPlate == nil || *got.OccupantPlate != plate {
		t.Errorf("got %+v", got)
	}
	if len(got.Features) != 2 {
		t.Errorf("features = %v", got.Features)
	}

	// Re-upsert with changed state, same coordinates.
	spot.Status = models.SpotAvailable
	spot.OccupantPlate = nil
	if err := repo.UpsertOrigin(db, spot, "run-2"); err != nil {
		t.Fatal(err)
	}
	if n, _ := repo.Count(); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	got, _ = repo.Get(1, 2, 3)
	if got.Status != models.SpotAvailable || got.OccupantPlate != nil {
		t.Errorf("after re-upsert: %+v", got)
	}
}

func TestVehicleRepository(t *testing.T) {
	db := openDB(t)
	repo := NewVehicleRepository(db)

	t.Run("plate is normalized on write", func(t *testing.T) {
		v := &models.Vehicle{Plate: "  abc 123 ", Type: models.SpotStandard, RegisteredAt: time.Now().UTC()}
		if err := repo.UpsertOrigin(db, v, ""); err != nil {
			t.Fatalf("UpsertOrigin() error: %v", err)
		}
		got, err := repo.Get("abc 123")
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if got.Plate != "ABC 123" {
			t.Errorf("plate = %q", got.Plate)
		}
	})

	t.Run("soft-deleted vehicles are hidden from List", func(t *testing.T) {
		deleted := time.Now().UTC()
		v := &models.Vehicle{Plate: "GONE1", Type: models.SpotStandard, RegisteredAt: deleted, DeletedAt: &deleted}
		if err := repo.UpsertOrigin(db, v, ""); err != nil {
			t.Fatal(err)
		}

		listed, err := repo.List()
		if err != nil {
			t.Fatal(err)
		}
		for _, got := range listed {
			if got.Plate == "GONE1" {
				t.Error("soft-deleted vehicle listed")
			}
		}

		all, err := repo.ListAll()
		if err != nil {
			t.Fatal(err)
		}
		found := false
		for _, got := range all {
			if got.Plate == "GONE1" && got.DeletedAt != nil {
				found = true
			}
		}
		if !found {
			t.Error("soft-deleted vehicle missing from ListAll")
		}
	})
}

func TestSessionRepository_ConstraintMapping(t *testing.T) {
	db := openDB(t)
	sessions := NewSessionRepository(db)

	// No vehicle row exists, so the plate reference dangles.
	s := &models.Session{
		ID: uuid.New().String(), Plate: "NOBODY",
		Floor: 1, Bay: 1, SpotNumber: 1, GarageID: "g1",
		StartedAt: time.Now().UTC(), Status: models.SessionActive, PaymentStatus: models.PaymentUnpaid,
	}
	err := sessions.UpsertOrigin(db, s, "run-1")
	if !errors.Is(err, shared.ErrConstraint) {
		t.Errorf("error = %v, want ErrConstraint", err)
	}
}

func TestSessionRepository_ActiveUniqueness(t *testing.T) {
	db := openDB(t)
	garages := NewGarageRepository(db)
	floors := NewFloorRepository(db)
	spots := NewSpotRepository(db)
	vehicles := NewVehicleRepository(db)
	sessions := NewSessionRepository(db)

	if err := garages.Upsert(testGarage()); err != nil {
		t.Fatal(err)
	}
	if err := floors.UpsertOrigin(db, &models.Floor{GarageID: "g1", Level: 1, Bays: 2}, ""); err != nil {
		t.Fatal(err)
	}
	for n := 1; n <= 2; n++ {
		sp := &models.Spot{Floor: 1, Bay: 1, SpotNumber: n, Type: models.SpotStandard, Status: models.SpotAvailable}
		if err := spots.UpsertOrigin(db, sp, ""); err != nil {
			t.Fatal(err)
		}
	}
	v := &models.Vehicle{Plate: "ABC123", Type: models.SpotStandard, RegisteredAt: time.Now().UTC()}
	if err := vehicles.UpsertOrigin(db, v, ""); err != nil {
		t.Fatal(err)
	}

	active := func(spotNumber int) *models.Session {
		return &models.Session{
			ID: uuid.New().String(), Plate: "ABC123",
			Floor: 1, Bay: 1, SpotNumber: spotNumber, GarageID: "g1",
			StartedAt: time.Now().UTC(), Status: models.SessionActive, PaymentStatus: models.PaymentUnpaid,
		}
	}

	if err := sessions.UpsertOrigin(db, active(1), ""); err != nil {
		t.Fatalf("first active session: %v", err)
	}

	// Same plate active again, different spot.
	if err := sessions.UpsertOrigin(db, active(2), ""); !errors.Is(err, shared.ErrConstraint) {
		t.Errorf("second active session for plate = %v, want ErrConstraint", err)
	}
}

func TestStatusRepository(t *testing.T) {
	db := openDB(t)
	repo := NewStatusRepository(db)

	t.Run("unknown id", func(t *testing.T) {
		if _, err := repo.Get("missing"); !errors.Is(err, shared.ErrMigrationNotFound) {
			t.Errorf("error = %v, want ErrMigrationNotFound", err)
		}
	})

	t.Run("patch merges only set fields", func(t *testing.T) {
		m := &models.MigrationStatus{
			ID: "run-1", Status: models.MigrationPending, TotalSteps: 6,
			BackupPath: "/tmp/b", StartedAt: time.Now().UTC(),
		}
		if err := repo.Create(m); err != nil {
			t.Fatalf("Create() error: %v", err)
		}

		steps := 2
		if err := repo.Update("run-1", models.StatusPatch{CompletedSteps: &steps}); err != nil {
			t.Fatalf("Update() error: %v", err)
		}

		got, err := repo.Get("run-1")
		if err != nil {
			t.Fatal(err)
		}
		if got.CompletedSteps != 2 {
			t.Errorf("completed steps = %d, want 2", got.CompletedSteps)
		}
		if got.Status != models.MigrationPending || got.BackupPath != "/tmp/b" {
			t.Errorf("unpatched fields changed: %+v", got)
		}
	})

	t.Run("list newest first", func(t *testing.T) {
		older := &models.MigrationStatus{
			ID: "run-0", Status: models.MigrationCompleted, TotalSteps: 6,
			StartedAt: time.Now().UTC().Add(-time.Hour),
		}
		if err := repo.Create(older); err != nil {
			t.Fatal(err)
		}

		runs, err := repo.List()
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) != 2 || runs[0].ID != "run-1" || runs[1].ID != "run-0" {
			t.Errorf("runs = %+v", runs)
		}
	})
}
