package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/iaminawe/ParkingGarage-sub010/internal/formatter"
	"github.com/iaminawe/ParkingGarage-sub010/internal/memstore"
	"github.com/iaminawe/ParkingGarage-sub010/internal/shared"
)

// Memory-store artifact names, one per collection. Relational snapshots use
// the same names with a "db_" prefix and are informational: restore only
// consumes the memory artifacts.
const (
	artifactGarage   = "garage"
	artifactFloors   = "floors"
	artifactSpots    = "spots"
	artifactVehicles = "vehicles"
	artifactSessions = "sessions"
	artifactPayments = "payments"
)

// BackupOptions selects which stores a bundle captures.
type BackupOptions struct {
	IncludeMemoryStore bool // Serialize the in-process store (default when nothing is selected)
	IncludeDatabase    bool // Also snapshot relational tables for audit
}

// BackupResult reports a created bundle.
type BackupResult struct {
	Success    bool     `json:"success"`
	ID         string   `json:"id"`
	BackupPath string   `json:"backup_path"`
	Files      []string `json:"files"`
}

// BackupInfo pairs a parsed manifest with its directory.
type BackupInfo struct {
	Manifest formatter.Manifest `json:"manifest"`
	Path     string             `json:"path"`
}

// BackupUtility creates, restores and enumerates backup bundles: one
// directory per backup id holding one artifact per collection plus
// backup-metadata.json.
type BackupUtility struct {
	store  *memstore.Store
	repos  *Repos
	codec  formatter.ArtifactCodec
	root   string
	logger *log.Logger
}

// NewBackupUtility creates a BackupUtility writing bundles under root.
// repos may be nil when relational snapshots are never requested.
func NewBackupUtility(store *memstore.Store, repos *Repos, codec formatter.ArtifactCodec, root string, logger *log.Logger) *BackupUtility {
	if codec == nil {
		codec = formatter.NewJSONCodec()
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &BackupUtility{store: store, repos: repos, codec: codec, root: root, logger: logger}
}

// CreateBackup serializes the selected stores into a new bundle directory and
// writes its manifest last, so a bundle with a manifest is always complete.
func (b *BackupUtility) CreateBackup(ctx context.Context, id string, opts BackupOptions) (*BackupResult, error) {
	if id == "" {
		id = fmt.Sprintf("backup-%s", time.Now().UTC().Format("20060102-150405"))
	}
	if !opts.IncludeMemoryStore && !opts.IncludeDatabase {
		opts.IncludeMemoryStore = true
	}

	dir := filepath.Join(b.root, id)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("%w: backup %s already exists", shared.ErrInvalidArgument, id)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create backup directory: %v", shared.ErrTransientStore, err)
	}

	var files []string
	writeOne := func(name string, v any) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		filename, err := formatter.WriteArtifact(b.codec, dir, name, v)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrTransientStore, err)
		}
		files = append(files, filename)
		return nil
	}

	if opts.IncludeMemoryStore {
		snap := b.store.Snapshot()
		for _, artifact := range []struct {
			name string
			data any
		}{
			{artifactGarage, snap.Garages},
			{artifactFloors, snap.Floors},
			{artifactSpots, snap.Spots},
			{artifactVehicles, snap.Vehicles},
			{artifactSessions, snap.Sessions},
			{artifactPayments, snap.Payments},
		} {
			if err := writeOne(artifact.name, artifact.data); err != nil {
				return nil, err
			}
		}
	}

	if opts.IncludeDatabase {
		if b.repos == nil {
			return nil, fmt.Errorf("%w: database snapshot requested without repositories", shared.ErrInvalidArgument)
		}
		if err := b.writeDatabaseArtifacts(writeOne); err != nil {
			return nil, err
		}
	}

	manifest := &formatter.Manifest{
		ID:        id,
		Timestamp: time.Now().UTC(),
		Files:     files,
	}
	if err := formatter.WriteManifest(b.codec, dir, manifest); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTransientStore, err)
	}

	b.logger.Info("backup created", "id", id, "path", dir, "files", len(files))
	return &BackupResult{Success: true, ID: id, BackupPath: dir, Files: files}, nil
}

func (b *BackupUtility) writeDatabaseArtifacts(writeOne func(string, any) error) error {
	garages, err := b.repos.Garages.List()
	if err != nil {
		return err
	}
	floors, err := b.repos.Floors.List()
	if err != nil {
		return err
	}
	spots, err := b.repos.Spots.List()
	if err != nil {
		return err
	}
	vehicles, err := b.repos.Vehicles.ListAll()
	if err != nil {
		return err
	}
	sessions, err := b.repos.Sessions.List()
	if err != nil {
		return err
	}
	payments, err := b.repos.Payments.List()
	if err != nil {
		return err
	}

	for _, artifact := range []struct {
		name string
		data any
	}{
		{"db_" + artifactGarage, garages},
		{"db_" + artifactFloors, floors},
		{"db_" + artifactSpots, spots},
		{"db_" + artifactVehicles, vehicles},
		{"db_" + artifactSessions, sessions},
		{"db_" + artifactPayments, payments},
	} {
		if err := writeOne(artifact.name, artifact.data); err != nil {
			return err
		}
	}
	return nil
}

// RestoreFromBackup repopulates the memory store from a bundle directory.
// Every artifact listed in the manifest is verified readable and the memory
// artifacts are fully decoded before any live state mutates: the restore is
// all-or-nothing.
func (b *BackupUtility) RestoreFromBackup(ctx context.Context, path string) error {
	snap, err := b.LoadSnapshot(ctx, path)
	if err != nil {
		return err
	}
	b.store.Restore(*snap)
	b.logger.Info("memory store restored", "path", path)
	return nil
}

// LoadSnapshot decodes a bundle into a snapshot without touching the live
// store. Callers that must verify a bundle before a destructive step load
// first and apply later.
func (b *BackupUtility) LoadSnapshot(ctx context.Context, path string) (*memstore.Snapshot, error) {
	manifest, err := formatter.ReadManifest(b.codec, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrBackupMissing, err)
	}

	for _, filename := range manifest.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := os.Stat(filepath.Join(path, filename)); err != nil {
			return nil, fmt.Errorf("%w: artifact %s unreadable: %v", shared.ErrBackupMissing, filename, err)
		}
	}

	return b.decodeSnapshot(path, manifest)
}

// decodeSnapshot decodes all memory artifacts without touching the store.
func (b *BackupUtility) decodeSnapshot(dir string, manifest *formatter.Manifest) (*memstore.Snapshot, error) {
	listed := make(map[string]bool, len(manifest.Files))
	for _, f := range manifest.Files {
		listed[f] = true
	}

	var snap memstore.Snapshot
	for _, artifact := range []struct {
		name string
		dest any
	}{
		{artifactGarage, &snap.Garages},
		{artifactFloors, &snap.Floors},
		{artifactSpots, &snap.Spots},
		{artifactVehicles, &snap.Vehicles},
		{artifactSessions, &snap.Sessions},
		{artifactPayments, &snap.Payments},
	} {
		filename := artifact.name + b.codec.Ext()
		if !listed[filename] {
			return nil, fmt.Errorf("%w: bundle %s has no %s artifact; cannot restore memory state",
				shared.ErrBackupMissing, manifest.ID, artifact.name)
		}
		if err := formatter.ReadArtifact(b.codec, dir, filename, artifact.dest); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrBackupMissing, err)
		}
	}
	return &snap, nil
}

// ListBackups enumerates bundle directories under the backup root, newest
// first. Directories without a parseable manifest are skipped.
func (b *BackupUtility) ListBackups() ([]BackupInfo, error) {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to read backup root: %v", shared.ErrTransientStore, err)
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(b.root, entry.Name())
		manifest, err := formatter.ReadManifest(b.codec, dir)
		if err != nil {
			b.logger.Debug("skipping directory without manifest", "dir", dir, "error", err)
			continue
		}
		backups = append(backups, BackupInfo{Manifest: *manifest, Path: dir})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Manifest.Timestamp.After(backups[j].Manifest.Timestamp)
	})
	return backups, nil
}
