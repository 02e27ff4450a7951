package tasks

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/iaminawe/ParkingGarage-sub010/internal/models"
	"github.com/iaminawe/ParkingGarage-sub010/internal/repositories"
	"github.com/iaminawe/ParkingGarage-sub010/internal/shared"
	tu "github.com/iaminawe/ParkingGarage-sub010/internal/testing"
)

func newTestTracker(t *testing.T) *StatusTracker {
	t.Helper()
	db := tu.MustOpenDB(t)
	return NewStatusTracker(repositories.NewStatusRepository(db), shared.NewLogger(io.Discard))
}

func TestStatusTracker_Lifecycle(t *testing.T) {
	tracker := newTestTracker(t)
	id := shared.GenerateID()

	m, err := tracker.InitializeMigration(id, 6, "/tmp/bundle")
	if err != nil {
		t.Fatalf("InitializeMigration() error: %v", err)
	}
	if m.Status != models.MigrationPending {
		t.Errorf("status = %s, want pending", m.Status)
	}

	if err := tracker.Begin(id); err != nil {
		t.Fatalf("Begin() error: %v", err)
	}

	steps := 3
	if err := tracker.UpdateStatus(id, models.StatusPatch{CompletedSteps: &steps}); err != nil {
		t.Fatalf("UpdateStatus() error: %v", err)
	}

	if err := tracker.Complete(id); err != nil {
		t.Fatalf("Complete() error: %v", err)
	}

	got, err := tracker.Get(id)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Status != models.MigrationCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.CompletedSteps != got.TotalSteps {
		t.Errorf("steps = %d/%d, want full", got.CompletedSteps, got.TotalSteps)
	}
	if got.CompletedAt == nil {
		t.Error("completed run has no completion time")
	}
	if got.BackupPath != "/tmp/bundle" {
		t.Errorf("backup path = %q", got.BackupPath)
	}
}

func TestStatusTracker_TerminalGuard(t *testing.T) {
	tests := []struct {
		name     string
		terminal func(tracker *StatusTracker, id string) error
	}{
		{"completed", func(tr *StatusTracker, id string) error { return tr.Complete(id) }},
		{"failed", func(tr *StatusTracker, id string) error { return tr.Fail(id, errors.New("boom")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := newTestTracker(t)
			id := shared.GenerateID()
			if _, err := tracker.InitializeMigration(id, 2, ""); err != nil {
				t.Fatalf("InitializeMigration() error: %v", err)
			}
			if err := tracker.Begin(id); err != nil {
				t.Fatalf("Begin() error: %v", err)
			}
			if err := tt.terminal(tracker, id); err != nil {
				t.Fatalf("terminal transition error: %v", err)
			}

			if err := tracker.Begin(id); !errors.Is(err, shared.ErrTerminalStatus) {
				t.Errorf("Begin() after %s = %v, want ErrTerminalStatus", tt.name, err)
			}

			// Checkpoints still append so rollback history survives.
			if _, err := tracker.CreateCheckpoint(id, "post-terminal", models.CheckpointData{}, nil); err != nil {
				t.Errorf("CreateCheckpoint() after %s error: %v", tt.name, err)
			}
		})
	}
}

func TestStatusTracker_Fail(t *testing.T) {
	tracker := newTestTracker(t)
	id := shared.GenerateID()
	if _, err := tracker.InitializeMigration(id, 2, ""); err != nil {
		t.Fatal(err)
	}
	if err := tracker.Begin(id); err != nil {
		t.Fatal(err)
	}
	if err := tracker.Fail(id, errors.New("disk full")); err != nil {
		t.Fatalf("Fail() error: %v", err)
	}

	got, err := tracker.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.MigrationFailed || got.ErrorMessage != "disk full" {
		t.Errorf("status = %s, error = %q", got.Status, got.ErrorMessage)
	}
}

func TestStatusTracker_Checkpoints(t *testing.T) {
	tracker := newTestTracker(t)
	id := shared.GenerateID()
	if _, err := tracker.InitializeMigration(id, 6, ""); err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 5; i++ {
		cp, err := tracker.CreateCheckpoint(id, fmt.Sprintf("spots:batch_%d", i),
			models.CheckpointData{TotalRecords: 250, ProcessedRecords: i * 50, CurrentTable: "spots"}, nil)
		if err != nil {
			t.Fatalf("CreateCheckpoint(%d) error: %v", i, err)
		}
		if cp.Seq != i {
			t.Errorf("seq = %d, want %d", cp.Seq, i)
		}
	}

	got, err := tracker.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Checkpoints) != 5 {
		t.Fatalf("checkpoints = %d, want 5", len(got.Checkpoints))
	}
	for i, cp := range got.Checkpoints {
		if cp.Seq != i+1 {
			t.Errorf("checkpoint %d out of order: seq %d", i, cp.Seq)
		}
		if cp.CreatedAt.IsZero() {
			t.Errorf("checkpoint %d has no timestamp", i)
		}
	}
}

func TestStatusTracker_GetProgress(t *testing.T) {
	tracker := newTestTracker(t)
	id := shared.GenerateID()
	if _, err := tracker.InitializeMigration(id, 6, ""); err != nil {
		t.Fatal(err)
	}
	if err := tracker.Begin(id); err != nil {
		t.Fatal(err)
	}

	progress, err := tracker.GetProgress(id)
	if err != nil {
		t.Fatalf("GetProgress() error: %v", err)
	}
	if progress.Percentage != 0 {
		t.Errorf("percentage = %.1f, want 0", progress.Percentage)
	}

	steps := 3
	if err := tracker.UpdateStatus(id, models.StatusPatch{CompletedSteps: &steps}); err != nil {
		t.Fatal(err)
	}
	if _, err := tracker.CreateCheckpoint(id, "spots:batch_2",
		models.CheckpointData{TotalRecords: 100, ProcessedRecords: 100, CurrentTable: "spots"}, nil); err != nil {
		t.Fatal(err)
	}

	progress, err = tracker.GetProgress(id)
	if err != nil {
		t.Fatal(err)
	}
	if progress.Percentage != 50 {
		t.Errorf("percentage = %.1f, want 50", progress.Percentage)
	}
	if progress.CurrentStep != "spots:batch_2" {
		t.Errorf("current step = %q", progress.CurrentStep)
	}
}
