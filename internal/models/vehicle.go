package models

import (
	"fmt"
	"strings"
	"time"
)

// NormalizePlate canonicalizes a license plate for identity comparison:
// surrounding whitespace is trimmed and the plate is uppercased.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

// Vehicle is a registered vehicle. Identity is the normalized license plate,
// unique among non-deleted records.
type Vehicle struct {
	Plate        string     `json:"plate"`
	Type         SpotType   `json:"type"`
	Color        string     `json:"color"`
	OwnerName    string     `json:"owner_name"`
	RegisteredAt time.Time  `json:"registered_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// NaturalKey returns the normalized license plate.
func (v *Vehicle) NaturalKey() string { return NormalizePlate(v.Plate) }

// Validate rejects empty plates and unknown vehicle types before any write.
func (v *Vehicle) Validate() error {
	if NormalizePlate(v.Plate) == "" {
		return fmt.Errorf("invalid vehicle: empty license plate")
	}
	if !v.Type.Valid() {
		return fmt.Errorf("invalid vehicle %s: unknown type %q", v.NaturalKey(), v.Type)
	}
	return nil
}
