package models

import (
	"fmt"
	"time"
)

// MigrationState is the lifecycle state of a migration run.
type MigrationState string

// Migration run states. Completed and failed are terminal: a retry requires
// a new migration id.
const (
	MigrationPending    MigrationState = "pending"
	MigrationInProgress MigrationState = "in_progress"
	MigrationCompleted  MigrationState = "completed"
	MigrationFailed     MigrationState = "failed"
)

// Valid reports whether s is a known migration state.
func (s MigrationState) Valid() bool {
	switch s {
	case MigrationPending, MigrationInProgress, MigrationCompleted, MigrationFailed:
		return true
	}
	return false
}

// Terminal reports whether s permits no further transitions.
func (s MigrationState) Terminal() bool {
	return s == MigrationCompleted || s == MigrationFailed
}

// MigrationStatus is the persisted record of one migration run.
type MigrationStatus struct {
	ID             string         `json:"id"`
	Status         MigrationState `json:"status"`
	TotalSteps     int            `json:"total_steps"`
	CompletedSteps int            `json:"completed_steps"`
	BackupPath     string         `json:"backup_path,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	Checkpoints    []Checkpoint   `json:"checkpoints,omitempty"`
}

// Validate checks the run's state and step accounting.
func (m *MigrationStatus) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("invalid migration status: empty id")
	}
	if !m.Status.Valid() {
		return fmt.Errorf("invalid migration status %s: unknown state %q", m.ID, m.Status)
	}
	if m.TotalSteps < 0 || m.CompletedSteps < 0 || m.CompletedSteps > m.TotalSteps {
		return fmt.Errorf("invalid migration status %s: %d/%d steps", m.ID, m.CompletedSteps, m.TotalSteps)
	}
	return nil
}

// CheckpointData carries the progress counters recorded with a checkpoint.
type CheckpointData struct {
	TotalRecords     int    `json:"total_records"`
	ProcessedRecords int    `json:"processed_records"`
	CurrentTable     string `json:"current_table"`
}

// Checkpoint is an immutable progress marker appended during a migration step.
// Checkpoints are append-only and never rewritten after creation.
type Checkpoint struct {
	Seq       int               `json:"seq"`
	Step      string            `json:"step"`
	Data      CheckpointData    `json:"data"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// StatusPatch is a partial update merged into a migration status record.
// Nil fields are left untouched.
type StatusPatch struct {
	Status         *MigrationState
	CompletedSteps *int
	BackupPath     *string
	ErrorMessage   *string
	CompletedAt    *time.Time
}

// Progress is a derived view of a run's advancement. It is computed from the
// stored status and checkpoint sequence, never stored itself.
type Progress struct {
	Percentage  float64 `json:"percentage"`
	CurrentStep string  `json:"current_step"`
	Details     string  `json:"details"`
}
