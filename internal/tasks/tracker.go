package tasks

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/iaminawe/ParkingGarage-sub010/internal/models"
	"github.com/iaminawe/ParkingGarage-sub010/internal/repositories"
	"github.com/iaminawe/ParkingGarage-sub010/internal/shared"
)

// StatusTracker owns migration run records: lifecycle transitions, the
// append-only checkpoint sequence, and derived progress reporting.
//
// The state machine is pending → in_progress → {completed|failed}. Terminal
// states permit no further status transitions; a retry runs under a new id.
// The terminal check doubles as the cooperative guard preventing a rollback
// and a migration from mutating the same run concurrently.
type StatusTracker struct {
	repo   *repositories.StatusRepository
	logger *log.Logger
}

// NewStatusTracker creates a StatusTracker persisting through the given repository.
func NewStatusTracker(repo *repositories.StatusRepository, logger *log.Logger) *StatusTracker {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &StatusTracker{repo: repo, logger: logger}
}

// InitializeMigration creates the pending record for a new run.
func (t *StatusTracker) InitializeMigration(id string, totalSteps int, backupPath string) (*models.MigrationStatus, error) {
	m := &models.MigrationStatus{
		ID:         id,
		Status:     models.MigrationPending,
		TotalSteps: totalSteps,
		BackupPath: backupPath,
		StartedAt:  time.Now().UTC(),
	}
	if err := t.repo.Create(m); err != nil {
		return nil, fmt.Errorf("failed to initialize migration %s: %w", id, err)
	}
	t.logger.Info("migration initialized", "id", id, "total_steps", totalSteps, "backup", backupPath)
	return m, nil
}

// Begin transitions a pending run to in_progress.
func (t *StatusTracker) Begin(id string) error {
	status := models.MigrationInProgress
	return t.UpdateStatus(id, models.StatusPatch{Status: &status})
}

// UpdateStatus merges a patch into the run record. Patching a run already in
// a terminal status fails with [shared.ErrTerminalStatus].
func (t *StatusTracker) UpdateStatus(id string, patch models.StatusPatch) error {
	current, err := t.repo.Get(id)
	if err != nil {
		return err
	}
	if current.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", shared.ErrTerminalStatus, id, current.Status)
	}
	return t.repo.Update(id, patch)
}

// CreateCheckpoint appends an immutable progress marker. Checkpoints append
// regardless of the run's top-level status so failure history survives.
func (t *StatusTracker) CreateCheckpoint(id, step string, data models.CheckpointData, metadata map[string]string) (models.Checkpoint, error) {
	cp := models.Checkpoint{
		Step:     step,
		Data:     data,
		Metadata: metadata,
	}
	appended, err := t.repo.AppendCheckpoint(id, cp)
	if err != nil {
		return appended, fmt.Errorf("failed to checkpoint %s at %s: %w", id, step, err)
	}
	return appended, nil
}

// Complete marks the run completed with every step accounted for.
func (t *StatusTracker) Complete(id string) error {
	current, err := t.repo.Get(id)
	if err != nil {
		return err
	}
	status := models.MigrationCompleted
	now := time.Now().UTC()
	steps := current.TotalSteps
	return t.UpdateStatus(id, models.StatusPatch{
		Status:         &status,
		CompletedSteps: &steps,
		CompletedAt:    &now,
	})
}

// Fail marks the run failed with the captured error message.
func (t *StatusTracker) Fail(id string, cause error) error {
	status := models.MigrationFailed
	now := time.Now().UTC()
	msg := cause.Error()
	if err := t.UpdateStatus(id, models.StatusPatch{
		Status:       &status,
		ErrorMessage: &msg,
		CompletedAt:  &now,
	}); err != nil {
		// Preserve the original failure; the tracker write problem is secondary.
		t.logger.Error("failed to record migration failure", "id", id, "error", err)
		return err
	}
	return nil
}

// Get returns the run record with its checkpoint sequence.
func (t *StatusTracker) Get(id string) (*models.MigrationStatus, error) {
	return t.repo.Get(id)
}

// List returns all runs newest first.
func (t *StatusTracker) List() ([]models.MigrationStatus, error) {
	return t.repo.List()
}

// GetProgress derives a run's progress purely from its stored status and
// checkpoints; nothing here is persisted separately.
func (t *StatusTracker) GetProgress(id string) (*models.Progress, error) {
	m, err := t.repo.Get(id)
	if err != nil {
		return nil, err
	}

	p := &models.Progress{}
	if m.TotalSteps > 0 {
		p.Percentage = float64(m.CompletedSteps) / float64(m.TotalSteps) * 100
	}
	if n := len(m.Checkpoints); n > 0 {
		last := m.Checkpoints[n-1]
		p.CurrentStep = last.Step
		p.Details = fmt.Sprintf("%s: %d/%d collections migrated; last checkpoint %s %d/%d records",
			m.Status, m.CompletedSteps, m.TotalSteps,
			last.Data.CurrentTable, last.Data.ProcessedRecords, last.Data.TotalRecords)
	} else {
		p.Details = fmt.Sprintf("%s: %d/%d collections migrated; no checkpoints yet",
			m.Status, m.CompletedSteps, m.TotalSteps)
	}
	return p, nil
}
