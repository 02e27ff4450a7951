package tasks

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iaminawe/ParkingGarage-sub010/internal/formatter"
	"github.com/iaminawe/ParkingGarage-sub010/internal/shared"
	tu "github.com/iaminawe/ParkingGarage-sub010/internal/testing"
)

func newTestBackup(t *testing.T) (*BackupUtility, string) {
	t.Helper()
	root := t.TempDir()
	store := tu.SeedStore(t, 2, 2, 5)
	logger := shared.NewLogger(io.Discard)
	return NewBackupUtility(store, nil, formatter.NewJSONCodec(), root, logger), root
}

func TestBackupUtility_CreateBackup(t *testing.T) {
	t.Run("writes one artifact per collection plus manifest", func(t *testing.T) {
		backup, _ := newTestBackup(t)

		result, err := backup.CreateBackup(context.Background(), "bundle-a", BackupOptions{IncludeMemoryStore: true})
		if err != nil {
			t.Fatalf("CreateBackup() error: %v", err)
		}
		if !result.Success || result.ID != "bundle-a" {
			t.Errorf("unexpected result: %+v", result)
		}
		if len(result.Files) != 6 {
			t.Errorf("files = %d, want 6", len(result.Files))
		}
		for _, name := range []string{"garage.json", "floors.json", "spots.json", "vehicles.json", "sessions.json", "payments.json", formatter.ManifestFilename} {
			tu.AssertFileExists(t, filepath.Join(result.BackupPath, name))
		}
	})

	t.Run("generates a timestamped id when empty", func(t *testing.T) {
		backup, _ := newTestBackup(t)
		result, err := backup.CreateBackup(context.Background(), "", BackupOptions{})
		if err != nil {
			t.Fatalf("CreateBackup() error: %v", err)
		}
		if result.ID == "" {
			t.Error("expected a generated bundle id")
		}
	})

	t.Run("refuses to overwrite an existing bundle", func(t *testing.T) {
		backup, _ := newTestBackup(t)
		if _, err := backup.CreateBackup(context.Background(), "dup", BackupOptions{}); err != nil {
			t.Fatalf("CreateBackup() error: %v", err)
		}
		if _, err := backup.CreateBackup(context.Background(), "dup", BackupOptions{}); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("error = %v, want ErrInvalidArgument", err)
		}
	})
}

func TestBackupUtility_RestoreFromBackup(t *testing.T) {
	t.Run("round trip preserves the store", func(t *testing.T) {
		backup, _ := newTestBackup(t)
		before := backup.store.Stats()

		result, err := backup.CreateBackup(context.Background(), "rt", BackupOptions{})
		if err != nil {
			t.Fatalf("CreateBackup() error: %v", err)
		}

		backup.store.Clear()
		if err := backup.RestoreFromBackup(context.Background(), result.BackupPath); err != nil {
			t.Fatalf("RestoreFromBackup() error: %v", err)
		}
		if after := backup.store.Stats(); after != before {
			t.Errorf("stats after restore = %+v, want %+v", after, before)
		}
	})

	t.Run("missing manifest", func(t *testing.T) {
		backup, root := newTestBackup(t)
		err := backup.RestoreFromBackup(context.Background(), filepath.Join(root, "nothing-here"))
		if !errors.Is(err, shared.ErrBackupMissing) {
			t.Errorf("error = %v, want ErrBackupMissing", err)
		}
	})

	t.Run("corrupt artifact leaves the store untouched", func(t *testing.T) {
		backup, _ := newTestBackup(t)
		result, err := backup.CreateBackup(context.Background(), "corrupt", BackupOptions{})
		if err != nil {
			t.Fatalf("CreateBackup() error: %v", err)
		}
		if err := os.WriteFile(filepath.Join(result.BackupPath, "spots.json"), []byte("{not json"), 0644); err != nil {
			t.Fatalf("corrupting artifact: %v", err)
		}

		before := backup.store.Stats()
		if err := backup.RestoreFromBackup(context.Background(), result.BackupPath); err == nil {
			t.Fatal("restore succeeded from a corrupt bundle")
		}
		if after := backup.store.Stats(); after != before {
			t.Errorf("store mutated by failed restore: %+v != %+v", after, before)
		}
	})
}

func TestBackupUtility_ListBackups(t *testing.T) {
	backup, root := newTestBackup(t)

	if bundles, err := backup.ListBackups(); err != nil || len(bundles) != 0 {
		t.Fatalf("ListBackups() on empty root = %v, %v", bundles, err)
	}

	for _, id := range []string{"first", "second"} {
		if _, err := backup.CreateBackup(context.Background(), id, BackupOptions{}); err != nil {
			t.Fatalf("CreateBackup(%s) error: %v", id, err)
		}
	}

	// Push "first" into the past so ordering is deterministic.
	manifestPath := filepath.Join(root, "first")
	manifest, err := formatter.ReadManifest(backup.codec, manifestPath)
	if err != nil {
		t.Fatalf("ReadManifest() error: %v", err)
	}
	manifest.Timestamp = manifest.Timestamp.Add(-time.Hour)
	if err := formatter.WriteManifest(backup.codec, manifestPath, manifest); err != nil {
		t.Fatalf("WriteManifest() error: %v", err)
	}

	// A stray directory without a manifest is skipped.
	if err := os.MkdirAll(filepath.Join(root, "not-a-bundle"), 0755); err != nil {
		t.Fatal(err)
	}

	bundles, err := backup.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups() error: %v", err)
	}
	if len(bundles) != 2 {
		t.Fatalf("bundles = %d, want 2", len(bundles))
	}
	if bundles[0].Manifest.ID != "second" || bundles[1].Manifest.ID != "first" {
		t.Errorf("order = %s, %s; want second, first", bundles[0].Manifest.ID, bundles[1].Manifest.ID)
	}
}
