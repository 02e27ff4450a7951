package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/iaminawe/ParkingGarage-sub010/internal/models"
	"github.com/shopspring/decimal"
)

// GarageRepository persists garage configs and their derived floor rows.
type GarageRepository struct {
	db *sql.DB
}

// NewGarageRepository creates a new GarageRepository with the given database connection
func NewGarageRepository(db *sql.DB) *GarageRepository {
	return &GarageRepository{db: db}
}

const upsertGarageQuery = `
	INSERT INTO garage_config (id, name, address, total_floors, bays_per_floor, spots_per_bay, hourly_rate, updated_at, migration_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		address = excluded.address,
		total_floors = excluded.total_floors,
		bays_per_floor = excluded.bays_per_floor,
		spots_per_bay = excluded.spots_per_bay,
		hourly_rate = excluded.hourly_rate,
		updated_at = excluded.updated_at,
		migration_id = excluded.migration_id
`

// Upsert inserts or overwrites a garage config by id.
func (r *GarageRepository) Upsert(g *models.GarageConfig) error {
	return r.UpsertOrigin(r.db, g, "")
}

// UpsertOrigin writes a garage config through q, stamping the origin
// migration id when non-empty.
func (r *GarageRepository) UpsertOrigin(q Execer, g *models.GarageConfig, migrationID string) error {
	if err := g.Validate(); err != nil {
		return err
	}
	_, err := q.Exec(upsertGarageQuery,
		g.ID, g.Name, g.Address, g.TotalFloors, g.BaysPerFloor, g.SpotsPerBay,
		g.HourlyRate.String(), g.UpdatedAt, nullable(migrationID),
	)
	if err != nil {
		return wrapStoreErr("upsert garage", err)
	}
	return nil
}

// Get retrieves a garage config by id.
func (r *GarageRepository) Get(id string) (*models.GarageConfig, error) {
	row := r.db.QueryRow(`
		SELECT id, name, address, total_floors, bays_per_floor, spots_per_bay, hourly_rate, updated_at
		FROM garage_config WHERE id = ?
	`, id)

	var (
		g       models.GarageConfig
		address sql.NullString
		rate    string
		updated sql.NullTime
	)
	err := row.Scan(&g.ID, &g.Name, &address, &g.TotalFloors, &g.BaysPerFloor, &g.SpotsPerBay, &rate, &updated)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("garage not found: %s", id)
	}
	if err != nil {
		return nil, wrapStoreErr("get garage", err)
	}

	g.Address = address.String
	if updated.Valid {
		g.UpdatedAt = updated.Time
	}
	if g.HourlyRate, err = decimal.NewFromString(rate); err != nil {
		return nil, fmt.Errorf("failed to parse hourly rate for garage %s: %w", id, err)
	}
	return &g, nil
}

// List retrieves all garage configs ordered by id.
func (r *GarageRepository) List() ([]models.GarageConfig, error) {
	rows, err := r.db.Query(`
		SELECT id, name, address, total_floors, bays_per_floor, spots_per_bay, hourly_rate, updated_at
		FROM garage_config ORDER BY id
	`)
	if err != nil {
		return nil, wrapStoreErr("list garages", err)
	}
	defer rows.Close()

	var garages []models.GarageConfig
	for rows.Next() {
		var (
			g       models.GarageConfig
			address sql.NullString
			rate    string
			updated sql.NullTime
		)
		if err := rows.Scan(&g.ID, &g.Name, &address, &g.TotalFloors, &g.BaysPerFloor, &g.SpotsPerBay, &rate, &updated); err != nil {
			return nil, wrapStoreErr("scan garage", err)
		}
		g.Address = address.String
		if updated.Valid {
			g.UpdatedAt = updated.Time
		}
		if g.HourlyRate, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("failed to parse hourly rate for garage %s: %w", g.ID, err)
		}
		garages = append(garages, g)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("list garages", err)
	}
	return garages, nil
}

// Count returns the number of stored garage configs.
func (r *GarageRepository) Count() (int, error) {
	return count(r.db, "garage_config")
}

// Clear removes garage rows through q, restricted to one migration's rows
// when migrationID is non-empty.
func (r *GarageRepository) Clear(q Execer, migrationID string) (int64, error) {
	return deleteRows(q, "garage_config", migrationID)
}

// FloorRepository persists the floor/bay index.
type FloorRepository struct {
	db *sql.DB
}

// NewFloorRepository creates a new FloorRepository with the given database connection
func NewFloorRepository(db *sql.DB) *FloorRepository {
	return &FloorRepository{db: db}
}

const upsertFloorQuery = `
	INSERT INTO floors (garage_id, level, bays, migration_id)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(garage_id, level) DO UPDATE SET
		bays = excluded.bays,
		migration_id = excluded.migration_id
`

// UpsertOrigin writes a floor row through q.
func (r *FloorRepository) UpsertOrigin(q Execer, f *models.Floor, migrationID string) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if _, err := q.Exec(upsertFloorQuery, f.GarageID, f.Level, f.Bays, nullable(migrationID)); err != nil {
		return wrapStoreErr("upsert floor", err)
	}
	return nil
}

// List retrieves all floors ordered by garage then level.
func (r *FloorRepository) List() ([]models.Floor, error) {
	rows, err := r.db.Query("SELECT garage_id, level, bays FROM floors ORDER BY garage_id, level")
	if err != nil {
		return nil, wrapStoreErr("list floors", err)
	}
	defer rows.Close()

	var floors []models.Floor
	for rows.Next() {
		var f models.Floor
		if err := rows.Scan(&f.GarageID, &f.Level, &f.Bays); err != nil {
			return nil, wrapStoreErr("scan floor", err)
		}
		floors = append(floors, f)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("list floors", err)
	}
	return floors, nil
}

// Count returns the number of stored floors.
func (r *FloorRepository) Count() (int, error) {
	return count(r.db, "floors")
}

// Clear removes floor rows through q.
func (r *FloorRepository) Clear(q Execer, migrationID string) (int64, error) {
	return deleteRows(q, "floors", migrationID)
}

// nullable maps an empty string to NULL for optional text columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullableTime maps a nil time to NULL.
func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
