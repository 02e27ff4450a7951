// Package tasks orchestrates the migration of garage state from the in-process
// store into relational storage, with real-time progress reporting.
//
// # Core Operations
//
//  1. [Engine.Migrate] : Full memory → relational migration
//     - Optionally snapshots the memory store into a backup bundle first
//     - Migrates collections in fixed dependency order
//       (garage → floors → spots → vehicles → sessions → payments)
//     - Writes fixed-size batches, each in its own transaction, and appends
//       a checkpoint after every committed batch
//     - Aborts on the first record failure; the run status captures the error
//
//  2. [BackupUtility] : Standalone backup bundle management
//     - CreateBackup serializes each collection to its own artifact plus a manifest
//     - RestoreFromBackup verifies every artifact before mutating live state
//     - ListBackups enumerates bundles newest first
//
//  3. [Validator] : Read-only cross-store checks
//     - ValidateDataIntegrity matches records by natural key and reports field mismatches
//     - ValidateRelationships flags dangling relational references
//
//  4. [RollbackEngine.Rollback] : Reverses a migration
//     - Refuses without explicit confirmation or without a discoverable backup
//     - Clears destination rows attributable to the run, then restores memory state
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and
// optional data for advanced UI rendering. Updates use select with default to
// prevent blocking.
//
// # Status Tracking
//
// The [StatusTracker] owns one run's status record and append-only checkpoint
// sequence (repositories.StatusRepository). Status follows
// pending → in_progress → {completed|failed} and is terminal once reached;
// checkpoints append independently of the top-level status, so the history
// stays inspectable after any failure.
package tasks
