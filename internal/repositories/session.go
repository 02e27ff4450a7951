package repositories

import (
	"database/sql"
	"fmt"

	"github.com/iaminawe/ParkingGarage-sub010/internal/models"
	"github.com/shopspring/decimal"
)

// SessionRepository persists parking sessions.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const upsertSessionQuery = `
	INSERT INTO sessions (id, plate, floor, bay, spot_number, garage_id, started_at, ended_at, status, total_amount, payment_status, migration_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		plate = excluded.plate,
		floor = excluded.floor,
		bay = excluded.bay,
		spot_number = excluded.spot_number,
		garage_id = excluded.garage_id,
		started_at = excluded.started_at,
		ended_at = excluded.ended_at,
		status = excluded.status,
		total_amount = excluded.total_amount,
		payment_status = excluded.payment_status,
		migration_id = excluded.migration_id
`

// Upsert inserts or overwrites a session by id.
func (r *SessionRepository) Upsert(s *models.Session) error {
	return r.UpsertOrigin(r.db, s, "")
}

// UpsertOrigin writes a session through q, stamping the origin migration id
// when non-empty. Foreign keys surface dangling vehicle/spot/garage
// references as constraint errors.
func (r *SessionRepository) UpsertOrigin(q Execer, s *models.Session, migrationID string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	_, err := q.Exec(upsertSessionQuery,
		s.ID, models.NormalizePlate(s.Plate), s.Floor, s.Bay, s.SpotNumber, s.GarageID,
		s.StartedAt, nullableTime(s.EndedAt), string(s.Status), s.TotalAmount.String(),
		string(s.PaymentStatus), nullable(migrationID),
	)
	if err != nil {
		return wrapStoreErr("upsert session "+s.ID, err)
	}
	return nil
}

// Get retrieves a session by id.
func (r *SessionRepository) Get(id string) (*models.Session, error) {
	row := r.db.QueryRow(`
		SELECT id, plate, floor, bay, spot_number, garage_id, started_at, ended_at, status, total_amount, payment_status
		FROM sessions WHERE id = ?
	`, id)

	s, err := scanSession(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// List retrieves all sessions ordered by id.
func (r *SessionRepository) List() ([]models.Session, error) {
	rows, err := r.db.Query(`
		SELECT id, plate, floor, bay, spot_number, garage_id, started_at, ended_at, status, total_amount, payment_status
		FROM sessions ORDER BY id
	`)
	if err != nil {
		return nil, wrapStoreErr("list sessions", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		s, err := scanSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("list sessions", err)
	}
	return sessions, nil
}

// Count returns the number of stored sessions.
func (r *SessionRepository) Count() (int, error) {
	return count(r.db, "sessions")
}

// Clear removes session rows through q.
func (r *SessionRepository) Clear(q Execer, migrationID string) (int64, error) {
	return deleteRows(q, "sessions", migrationID)
}

func scanSession(scan func(...any) error) (*models.Session, error) {
	var (
		s       models.Session
		ended   sql.NullTime
		status  string
		amount  string
		payment string
	)
	err := scan(&s.ID, &s.Plate, &s.Floor, &s.Bay, &s.SpotNumber, &s.GarageID,
		&s.StartedAt, &ended, &status, &amount, &payment)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, wrapStoreErr("scan session", err)
	}

	if ended.Valid {
		s.EndedAt = &ended.Time
	}
	s.Status = models.SessionStatus(status)
	s.PaymentStatus = models.PaymentState(payment)
	if s.TotalAmount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("failed to parse total amount for session %s: %w", s.ID, err)
	}
	return &s, nil
}
