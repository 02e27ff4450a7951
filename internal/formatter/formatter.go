// Package formatter implements the backup artifact encoding: one document per
// collection plus a manifest describing the bundle.
//
// The encoding sits behind [ArtifactCodec] so the on-disk format can change
// without touching the backup utility or the migration orchestrator. The
// shipped codec is UTF-8 JSON.
package formatter

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ManifestFilename is the well-known manifest name inside a backup directory.
const ManifestFilename = "backup-metadata.json"

// ArtifactCodec encodes and decodes backup artifacts.
type ArtifactCodec interface {
	Encode(v any) ([]byte, error)      // Encode serializes v into artifact bytes
	Decode(data []byte, v any) error   // Decode deserializes artifact bytes into v
	Ext() string                       // Ext returns the artifact file extension, with leading dot
}

// Manifest describes one backup bundle: its id, creation time and the
// artifact files it contains. The timestamp serializes as RFC 3339.
type Manifest struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Files     []string  `json:"files"`
}

// Validate checks the manifest for the fields restore depends on.
func (m *Manifest) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("manifest missing id")
	}
	if m.Timestamp.IsZero() {
		return fmt.Errorf("manifest %s missing timestamp", m.ID)
	}
	if len(m.Files) == 0 {
		return fmt.Errorf("manifest %s lists no artifact files", m.ID)
	}
	return nil
}

// WriteArtifact encodes v and writes it as <name><ext> inside dir,
// returning the artifact filename.
func WriteArtifact(codec ArtifactCodec, dir, name string, v any) (string, error) {
	data, err := codec.Encode(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s artifact: %w", name, err)
	}

	filename := name + codec.Ext()
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s artifact: %w", name, err)
	}
	return filename, nil
}

// ReadArtifact reads and decodes the named artifact from dir into v.
func ReadArtifact(codec ArtifactCodec, dir, filename string, v any) error {
	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		return fmt.Errorf("failed to read artifact %s: %w", filename, err)
	}
	if err := codec.Decode(data, v); err != nil {
		return fmt.Errorf("failed to decode artifact %s: %w", filename, err)
	}
	return nil
}

// WriteManifest writes the bundle manifest into dir.
func WriteManifest(codec ArtifactCodec, dir string, m *Manifest) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("refusing to write invalid manifest: %w", err)
	}

	data, err := codec.Encode(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFilename), data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// ReadManifest reads and validates the manifest inside dir.
func ReadManifest(codec ArtifactCodec, dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFilename))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest in %s: %w", dir, err)
	}

	var m Manifest
	if err := codec.Decode(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest in %s: %w", dir, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
