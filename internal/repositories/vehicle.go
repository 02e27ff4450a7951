package repositories

import (
	"database/sql"
	"fmt"

	"github.com/iaminawe/ParkingGarage-sub010/internal/models"
)

// VehicleRepository persists vehicles keyed by normalized license plate.
type VehicleRepository struct {
	db *sql.DB
}

// NewVehicleRepository creates a new VehicleRepository with the given database connection
func NewVehicleRepository(db *sql.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

const upsertVehicleQuery = `
	INSERT INTO vehicles (plate, type, color, owner_name, registered_at, deleted_at, migration_id)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(plate) DO UPDATE SET
		type = excluded.type,
		color = excluded.color,
		owner_name = excluded.owner_name,
		registered_at = excluded.registered_at,
		deleted_at = excluded.deleted_at,
		migration_id = excluded.migration_id
`

// Upsert inserts or overwrites a vehicle by its normalized plate.
func (r *VehicleRepository) Upsert(v *models.Vehicle) error {
	return r.UpsertOrigin(r.db, v, "")
}

// UpsertOrigin writes a vehicle through q, stamping the origin migration id
// when non-empty. The plate is normalized before the write so memory and
// relational stores agree on identity.
func (r *VehicleRepository) UpsertOrigin(q Execer, v *models.Vehicle, migrationID string) error {
	if err := v.Validate(); err != nil {
		return err
	}
	_, err := q.Exec(upsertVehicleQuery,
		v.NaturalKey(), string(v.Type), v.Color, v.OwnerName, v.RegisteredAt,
		nullableTime(v.DeletedAt), nullable(migrationID),
	)
	if err != nil {
		return wrapStoreErr("upsert vehicle "+v.NaturalKey(), err)
	}
	return nil
}

// Get retrieves a vehicle by plate, excluding soft-deleted records.
func (r *VehicleRepository) Get(plate string) (*models.Vehicle, error) {
	row := r.db.QueryRow(`
		SELECT plate, type, color, owner_name, registered_at, deleted_at
		FROM vehicles WHERE plate = ? AND deleted_at IS NULL
	`, models.NormalizePlate(plate))

	v, err := scanVehicle(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("vehicle not found: %s", models.NormalizePlate(plate))
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// List retrieves all non-deleted vehicles ordered by plate.
func (r *VehicleRepository) List() ([]models.Vehicle, error) {
	rows, err := r.db.Query(`
		SELECT plate, type, color, owner_name, registered_at, deleted_at
		FROM vehicles WHERE deleted_at IS NULL ORDER BY plate
	`)
	if err != nil {
		return nil, wrapStoreErr("list vehicles", err)
	}
	defer rows.Close()

	var vehicles []models.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows.Scan)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("list vehicles", err)
	}
	return vehicles, nil
}

// ListAll retrieves every vehicle including soft-deleted rows, ordered by
// plate. Migration verification needs the full set; lookups use [VehicleRepository.List].
func (r *VehicleRepository) ListAll() ([]models.Vehicle, error) {
	rows, err := r.db.Query(`
		SELECT plate, type, color, owner_name, registered_at, deleted_at
		FROM vehicles ORDER BY plate
	`)
	if err != nil {
		return nil, wrapStoreErr("list vehicles", err)
	}
	defer rows.Close()

	var vehicles []models.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows.Scan)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("list vehicles", err)
	}
	return vehicles, nil
}

// Count returns the number of stored vehicles including soft-deleted rows.
func (r *VehicleRepository) Count() (int, error) {
	return count(r.db, "vehicles")
}

// Clear removes vehicle rows through q.
func (r *VehicleRepository) Clear(q Execer, migrationID string) (int64, error) {
	return deleteRows(q, "vehicles", migrationID)
}

func scanVehicle(scan func(...any) error) (*models.Vehicle, error) {
	var (
		v          models.Vehicle
		typ        string
		color      sql.NullString
		owner      sql.NullString
		registered sql.NullTime
		deleted    sql.NullTime
	)
	if err := scan(&v.Plate, &typ, &color, &owner, &registered, &deleted); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, wrapStoreErr("scan vehicle", err)
	}

	v.Type = models.SpotType(typ)
	v.Color = color.String
	v.OwnerName = owner.String
	if registered.Valid {
		v.RegisteredAt = registered.Time
	}
	if deleted.Valid {
		v.DeletedAt = &deleted.Time
	}
	return &v, nil
}
