package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iaminawe/ParkingGarage-sub010/internal/models"
	"github.com/iaminawe/ParkingGarage-sub010/internal/shared"
)

// StatusRepository persists migration run records and their append-only
// checkpoint sequences. One repository instance exclusively owns the
// bookkeeping tables; the operational repositories never touch them.
type StatusRepository struct {
	db *sql.DB
}

// NewStatusRepository creates a new StatusRepository with the given database connection
func NewStatusRepository(db *sql.DB) *StatusRepository {
	return &StatusRepository{db: db}
}

// Create inserts a new migration run record.
func (r *StatusRepository) Create(m *models.MigrationStatus) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	_, err := r.db.Exec(`
		INSERT INTO migration_status (id, status, total_steps, completed_steps, backup_path, error_message, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, string(m.Status), m.TotalSteps, m.CompletedSteps,
		nullable(m.BackupPath), nullable(m.ErrorMessage), m.StartedAt, nullableTime(m.CompletedAt))
	if err != nil {
		return wrapStoreErr("create migration status", err)
	}
	return nil
}

// Get retrieves a migration run with its full checkpoint sequence.
func (r *StatusRepository) Get(id string) (*models.MigrationStatus, error) {
	row := r.db.QueryRow(`
		SELECT id, status, total_steps, completed_steps, backup_path, error_message, started_at, completed_at
		FROM migration_status WHERE id = ?
	`, id)

	var (
		m         models.MigrationStatus
		status    string
		backup    sql.NullString
		errMsg    sql.NullString
		completed sql.NullTime
	)
	err := row.Scan(&m.ID, &status, &m.TotalSteps, &m.CompletedSteps, &backup, &errMsg, &m.StartedAt, &completed)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrMigrationNotFound, id)
	}
	if err != nil {
		return nil, wrapStoreErr("get migration status", err)
	}

	m.Status = models.MigrationState(status)
	m.BackupPath = backup.String
	m.ErrorMessage = errMsg.String
	if completed.Valid {
		m.CompletedAt = &completed.Time
	}

	if m.Checkpoints, err = r.Checkpoints(id); err != nil {
		return nil, err
	}
	return &m, nil
}

// Update merges a patch into an existing run record. Nil patch fields leave
// the stored value untouched.
func (r *StatusRepository) Update(id string, patch models.StatusPatch) error {
	m, err := r.Get(id)
	if err != nil {
		return err
	}

	if patch.Status != nil {
		m.Status = *patch.Status
	}
	if patch.CompletedSteps != nil {
		m.CompletedSteps = *patch.CompletedSteps
	}
	if patch.BackupPath != nil {
		m.BackupPath = *patch.BackupPath
	}
	if patch.ErrorMessage != nil {
		m.ErrorMessage = *patch.ErrorMessage
	}
	if patch.CompletedAt != nil {
		m.CompletedAt = patch.CompletedAt
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	res, err := r.db.Exec(`
		UPDATE migration_status
		SET status = ?, completed_steps = ?, backup_path = ?, error_message = ?, completed_at = ?
		WHERE id = ?
	`, string(m.Status), m.CompletedSteps, nullable(m.BackupPath), nullable(m.ErrorMessage),
		nullableTime(m.CompletedAt), id)
	if err != nil {
		return wrapStoreErr("update migration status", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return wrapStoreErr("update migration status", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrMigrationNotFound, id)
	}
	return nil
}

// AppendCheckpoint persists one checkpoint at the next sequence number.
// Checkpoints are never updated or deleted.
func (r *StatusRepository) AppendCheckpoint(id string, cp models.Checkpoint) (models.Checkpoint, error) {
	var metadata any
	if len(cp.Metadata) > 0 {
		data, err := json.Marshal(cp.Metadata)
		if err != nil {
			return cp, fmt.Errorf("failed to encode checkpoint metadata: %w", err)
		}
		metadata = string(data)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return cp, wrapStoreErr("append checkpoint", err)
	}
	defer tx.Rollback()

	var seq int
	err = tx.QueryRow("SELECT COALESCE(MAX(seq), 0) + 1 FROM migration_checkpoints WHERE migration_id = ?", id).Scan(&seq)
	if err != nil {
		return cp, wrapStoreErr("append checkpoint", err)
	}

	cp.Seq = seq
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}

	_, err = tx.Exec(`
		INSERT INTO migration_checkpoints (migration_id, seq, step, total_records, processed_records, current_table, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, cp.Seq, cp.Step, cp.Data.TotalRecords, cp.Data.ProcessedRecords, cp.Data.CurrentTable, metadata, cp.CreatedAt)
	if err != nil {
		return cp, wrapStoreErr("append checkpoint", err)
	}

	if err := tx.Commit(); err != nil {
		return cp, wrapStoreErr("append checkpoint", err)
	}
	return cp, nil
}

// Checkpoints returns a run's checkpoint sequence in append order.
func (r *StatusRepository) Checkpoints(id string) ([]models.Checkpoint, error) {
	rows, err := r.db.Query(`
		SELECT seq, step, total_records, processed_records, current_table, metadata, created_at
		FROM migration_checkpoints WHERE migration_id = ? ORDER BY seq
	`, id)
	if err != nil {
		return nil, wrapStoreErr("list checkpoints", err)
	}
	defer rows.Close()

	var checkpoints []models.Checkpoint
	for rows.Next() {
		var (
			cp       models.Checkpoint
			metadata sql.NullString
		)
		err := rows.Scan(&cp.Seq, &cp.Step, &cp.Data.TotalRecords, &cp.Data.ProcessedRecords,
			&cp.Data.CurrentTable, &metadata, &cp.CreatedAt)
		if err != nil {
			return nil, wrapStoreErr("scan checkpoint", err)
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &cp.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode checkpoint metadata: %w", err)
			}
		}
		checkpoints = append(checkpoints, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("list checkpoints", err)
	}
	return checkpoints, nil
}

// List retrieves all migration runs ordered newest first, without their
// checkpoint sequences.
func (r *StatusRepository) List() ([]models.MigrationStatus, error) {
	rows, err := r.db.Query(`
		SELECT id, status, total_steps, completed_steps, backup_path, error_message, started_at, completed_at
		FROM migration_status ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, wrapStoreErr("list migration statuses", err)
	}
	defer rows.Close()

	var runs []models.MigrationStatus
	for rows.Next() {
		var (
			m         models.MigrationStatus
			status    string
			backup    sql.NullString
			errMsg    sql.NullString
			completed sql.NullTime
		)
		err := rows.Scan(&m.ID, &status, &m.TotalSteps, &m.CompletedSteps, &backup, &errMsg, &m.StartedAt, &completed)
		if err != nil {
			return nil, wrapStoreErr("scan migration status", err)
		}
		m.Status = models.MigrationState(status)
		m.BackupPath = backup.String
		m.ErrorMessage = errMsg.String
		if completed.Valid {
			m.CompletedAt = &completed.Time
		}
		runs = append(runs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("list migration statuses", err)
	}
	return runs, nil
}
