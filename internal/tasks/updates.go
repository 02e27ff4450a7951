package tasks

import (
	"fmt"

	"github.com/iaminawe/ParkingGarage-sub010/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	CreateBackup Phase = iota
	MigrateCollection
	WriteBatch
	Validate
	RestoreState
	ClearDestination
	Finished
)

func (p Phase) String() string {
	switch p {
	case CreateBackup:
		return "create_backup"
	case MigrateCollection:
		return "migrate_collection"
	case WriteBatch:
		return "write_batch"
	case Validate:
		return "validate"
	case RestoreState:
		return "restore_state"
	case ClearDestination:
		return "clear_destination"
	case Finished:
		return "finished"
	default:
		return ""
	}
}

func backupUpdate(id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreateBackup,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Creating backup bundle %s...", id),
	}
}

func collectionUpdate(step, total int, coll models.Collection, records int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MigrateCollection,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Migrating %s (%d records)...", step, total, coll, records),
	}
}

func batchUpdate(coll models.Collection, processed, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteBatch,
		Step:    processed,
		Total:   total,
		Message: fmt.Sprintf("   %s: %d/%d", coll, processed, total),
	}
}

func validateUpdate(step, total int, what string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Validate,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Validating %s...", what),
	}
}

func restoreUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RestoreState,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Restoring memory store from %s...", path),
	}
}

func clearUpdate(step, total int, table string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ClearDestination,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Clearing %s...", step, total, table),
	}
}

func finishedUpdate(message string, data any) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Finished,
		Step:    1,
		Total:   1,
		Message: message,
		Data:    data,
	}
}
