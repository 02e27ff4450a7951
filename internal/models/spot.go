package models

import (
	"fmt"
	"sort"
)

// SpotType classifies what kind of vehicle a spot accommodates.
type SpotType string

// Spot type enumeration
const (
	SpotStandard   SpotType = "standard"
	SpotCompact    SpotType = "compact"
	SpotOversized  SpotType = "oversized"
	SpotHandicap   SpotType = "handicap"
	SpotMotorcycle SpotType = "motorcycle"
)

// Valid reports whether t is a known spot type.
func (t SpotType) Valid() bool {
	switch t {
	case SpotStandard, SpotCompact, SpotOversized, SpotHandicap, SpotMotorcycle:
		return true
	}
	return false
}

// SpotStatus is the lifecycle state of a spot.
type SpotStatus string

// Spot status enumeration
const (
	SpotAvailable   SpotStatus = "available"
	SpotOccupied    SpotStatus = "occupied"
	SpotMaintenance SpotStatus = "maintenance"
	SpotReserved    SpotStatus = "reserved"
)

// Valid reports whether s is a known spot status.
func (s SpotStatus) Valid() bool {
	switch s {
	case SpotAvailable, SpotOccupied, SpotMaintenance, SpotReserved:
		return true
	}
	return false
}

// SpotFeature is an optional amenity attached to a spot.
type SpotFeature string

// Spot feature enumeration
const (
	FeatureEVCharging   SpotFeature = "ev_charging"
	FeatureCovered      SpotFeature = "covered"
	FeatureWide         SpotFeature = "wide"
	FeatureNearElevator SpotFeature = "near_elevator"
)

// Valid reports whether f is a known spot feature.
func (f SpotFeature) Valid() bool {
	switch f {
	case FeatureEVCharging, FeatureCovered, FeatureWide, FeatureNearElevator:
		return true
	}
	return false
}

// SpotKey formats the natural key for a spot from its coordinates.
func SpotKey(floor, bay, number int) string {
	return fmt.Sprintf("F%d-B%d-S%03d", floor, bay, number)
}

// Spot is a single parking spot. Identity derives from (floor, bay, spot
// number); the surrogate generated elsewhere is never used for matching.
//
// Invariant: Status == SpotOccupied exactly when OccupantPlate is non-nil,
// and a spot holds at most one occupant.
type Spot struct {
	Floor         int           `json:"floor" validate:"gte=0"`
	Bay           int           `json:"bay" validate:"gt=0"`
	SpotNumber    int           `json:"spot_number" validate:"gt=0"`
	Type          SpotType      `json:"type"`
	Features      []SpotFeature `json:"features,omitempty"`
	Status        SpotStatus    `json:"status"`
	OccupantPlate *string       `json:"occupant_plate,omitempty"`
}

// NaturalKey returns F<floor>-B<bay>-S<number>.
func (s *Spot) NaturalKey() string { return SpotKey(s.Floor, s.Bay, s.SpotNumber) }

// Validate checks coordinates, enum values and the occupancy invariant.
func (s *Spot) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid spot %s: %w", s.NaturalKey(), err)
	}
	if !s.Type.Valid() {
		return fmt.Errorf("invalid spot %s: unknown type %q", s.NaturalKey(), s.Type)
	}
	if !s.Status.Valid() {
		return fmt.Errorf("invalid spot %s: unknown status %q", s.NaturalKey(), s.Status)
	}
	for _, f := range s.Features {
		if !f.Valid() {
			return fmt.Errorf("invalid spot %s: unknown feature %q", s.NaturalKey(), f)
		}
	}
	occupied := s.Status == SpotOccupied
	hasOccupant := s.OccupantPlate != nil && *s.OccupantPlate != ""
	if occupied != hasOccupant {
		return fmt.Errorf("invalid spot %s: status %q with occupant=%v violates occupancy invariant",
			s.NaturalKey(), s.Status, hasOccupant)
	}
	return nil
}

// SortedFeatures returns the feature set in stable order for serialization.
func (s *Spot) SortedFeatures() []SpotFeature {
	out := make([]SpotFeature, len(s.Features))
	copy(out, s.Features)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
