package shared

import "fmt"

var (
	// Migration error taxonomy. Validation and constraint problems are
	// rejected before any destination write; transient store failures abort
	// the run with no automatic retry (re-invoking with the same id is the
	// retry mechanism).
	ErrValidation     = fmt.Errorf("validation failed")
	ErrConstraint     = fmt.Errorf("constraint violated")
	ErrTransientStore = fmt.Errorf("store operation failed")
	ErrBackupMissing  = fmt.Errorf("backup not found")

	// Migration lifecycle errors
	ErrMigrationNotFound = fmt.Errorf("migration not found")
	ErrTerminalStatus    = fmt.Errorf("migration already in terminal status")
	ErrNotConfirmed      = fmt.Errorf("rollback not confirmed")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
