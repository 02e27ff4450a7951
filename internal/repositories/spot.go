package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/iaminawe/ParkingGarage-sub010/internal/models"
)

// SpotRepository persists spots keyed by (floor, bay, spot_number).
type SpotRepository struct {
	db *sql.DB
}

// NewSpotRepository creates a new SpotRepository with the given database connection
func NewSpotRepository(db *sql.DB) *SpotRepository {
	return &SpotRepository{db: db}
}

const upsertSpotQuery = `
	INSERT INTO spots (floor, bay, spot_number, type, features, status, occupant_plate, migration_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(floor, bay, spot_number) DO UPDATE SET
		type = excluded.type,
		features = excluded.features,
		status = excluded.status,
		occupant_plate = excluded.occupant_plate,
		migration_id = excluded.migration_id
`

// Upsert inserts or overwrites a spot by its natural key.
func (r *SpotRepository) Upsert(sp *models.Spot) error {
	return r.UpsertOrigin(r.db, sp, "")
}

// UpsertOrigin writes a spot through q, stamping the origin migration id
// when non-empty.
func (r *SpotRepository) UpsertOrigin(q Execer, sp *models.Spot, migrationID string) error {
	if err := sp.Validate(); err != nil {
		return err
	}

	features, err := encodeFeatures(sp.SortedFeatures())
	if err != nil {
		return fmt.Errorf("failed to encode features for spot %s: %w", sp.NaturalKey(), err)
	}

	var occupant any
	if sp.OccupantPlate != nil {
		occupant = models.NormalizePlate(*sp.OccupantPlate)
	}

	_, err = q.Exec(upsertSpotQuery,
		sp.Floor, sp.Bay, sp.SpotNumber, string(sp.Type), features, string(sp.Status), occupant, nullable(migrationID),
	)
	if err != nil {
		return wrapStoreErr("upsert spot "+sp.NaturalKey(), err)
	}
	return nil
}

// Get retrieves a spot by coordinates.
func (r *SpotRepository) Get(floor, bay, number int) (*models.Spot, error) {
	row := r.db.QueryRow(`
		SELECT floor, bay, spot_number, type, features, status, occupant_plate
		FROM spots WHERE floor = ? AND bay = ? AND spot_number = ?
	`, floor, bay, number)

	sp, err := scanSpot(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("spot not found: %s", models.SpotKey(floor, bay, number))
	}
	if err != nil {
		return nil, err
	}
	return sp, nil
}

// List retrieves all spots ordered by natural key.
func (r *SpotRepository) List() ([]models.Spot, error) {
	rows, err := r.db.Query(`
		SELECT floor, bay, spot_number, type, features, status, occupant_plate
		FROM spots ORDER BY floor, bay, spot_number
	`)
	if err != nil {
		return nil, wrapStoreErr("list spots", err)
	}
	defer rows.Close()

	var spots []models.Spot
	for rows.Next() {
		sp, err := scanSpot(rows.Scan)
		if err != nil {
			return nil, err
		}
		spots = append(spots, *sp)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("list spots", err)
	}
	return spots, nil
}

// Count returns the number of stored spots.
func (r *SpotRepository) Count() (int, error) {
	return count(r.db, "spots")
}

// Clear removes spot rows through q.
func (r *SpotRepository) Clear(q Execer, migrationID string) (int64, error) {
	return deleteRows(q, "spots", migrationID)
}

func scanSpot(scan func(...any) error) (*models.Spot, error) {
	var (
		sp       models.Spot
		typ      string
		features sql.NullString
		status   string
		occupant sql.NullString
	)
	if err := scan(&sp.Floor, &sp.Bay, &sp.SpotNumber, &typ, &features, &status, &occupant); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, wrapStoreErr("scan spot", err)
	}

	sp.Type = models.SpotType(typ)
	sp.Status = models.SpotStatus(status)
	if occupant.Valid {
		plate := occupant.String
		sp.OccupantPlate = &plate
	}
	if features.Valid && features.String != "" {
		if err := json.Unmarshal([]byte(features.String), &sp.Features); err != nil {
			return nil, fmt.Errorf("failed to decode features for spot %s: %w", sp.NaturalKey(), err)
		}
	}
	return &sp, nil
}

func encodeFeatures(features []models.SpotFeature) (any, error) {
	if len(features) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(features)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
