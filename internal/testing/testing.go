// package testing contains shared testing utilities
package testing

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iaminawe/ParkingGarage-sub010/internal/memstore"
	"github.com/iaminawe/ParkingGarage-sub010/internal/models"
	"github.com/iaminawe/ParkingGarage-sub010/internal/shared"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MustOpenDB opens an in-memory database with the full schema applied and
// closes it when the test finishes.
func MustOpenDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	// A pooled second connection would see its own empty in-memory database.
	shared.ConfigureDatabase(db, 1, 1)
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}
	return db
}

// MustDecimal parses s as a decimal or fails the test.
func MustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("Failed to parse decimal %q: %v", s, err)
	}
	return d
}

// SeedStore populates a fresh memory store with a garage of the given
// dimensions: every floor and spot, plus one registered vehicle per floor
// parked on that floor's first spot with a completed payment history on the
// first floor.
func SeedStore(t *testing.T, floors, bays, spotsPerBay int) *memstore.Store {
	t.Helper()
	store := memstore.New()

	garage := models.GarageConfig{
		ID:           "garage-main",
		Name:         "Test Garage",
		TotalFloors:  floors,
		BaysPerFloor: bays,
		SpotsPerBay:  spotsPerBay,
		HourlyRate:   MustDecimal(t, "2.50"),
		UpdatedAt:    time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
	}
	store.SetGarage(garage)

	for f := 1; f <= floors; f++ {
		store.SetFloor(models.Floor{GarageID: garage.ID, Level: f, Bays: bays})
		for b := 1; b <= bays; b++ {
			for s := 1; s <= spotsPerBay; s++ {
				store.SetSpot(models.Spot{
					Floor: f, Bay: b, SpotNumber: s,
					Type:   models.SpotStandard,
					Status: models.SpotAvailable,
				})
			}
		}
	}

	for f := 1; f <= floors; f++ {
		plate := fmt.Sprintf("TEST%03d", f)
		store.SetVehicle(models.Vehicle{
			Plate:        plate,
			Type:         models.SpotStandard,
			Color:        "blue",
			OwnerName:    fmt.Sprintf("Driver %d", f),
			RegisteredAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		})
		if err := store.Occupy(models.SpotKey(f, 1, 1), plate); err != nil {
			t.Fatalf("Failed to park %s: %v", plate, err)
		}
		store.SetSession(models.Session{
			ID:            shared.GenerateID(),
			Plate:         plate,
			Floor:         f, Bay: 1, SpotNumber: 1,
			GarageID:      garage.ID,
			StartedAt:     time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC),
			Status:        models.SessionActive,
			PaymentStatus: models.PaymentUnpaid,
		})
	}

	ended := time.Date(2026, 2, 1, 7, 30, 0, 0, time.UTC)
	completed := models.Session{
		ID:            shared.GenerateID(),
		Plate:         "TEST001",
		Floor:         1, Bay: 1, SpotNumber: 2,
		GarageID:      garage.ID,
		StartedAt:     ended.Add(-2 * time.Hour),
		EndedAt:       &ended,
		Status:        models.SessionCompleted,
		TotalAmount:   MustDecimal(t, "5.00"),
		PaymentStatus: models.PaymentPaid,
	}
	store.SetSession(completed)
	store.SetPayment(models.Payment{
		ID:        shared.GenerateID(),
		SessionID: completed.ID,
		Amount:    MustDecimal(t, "5.00"),
		Method:    models.MethodCreditCard,
		Status:    models.PaymentStatusCompleted,
		CreatedAt: ended,
	})

	return store
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
