package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// GarageConfig describes the structural layout of one garage.
// It is the root of the migration dependency order: floors, spots and
// sessions all reference its id.
type GarageConfig struct {
	ID           string          `json:"id" validate:"required"`
	Name         string          `json:"name" validate:"required"`
	Address      string          `json:"address"`
	TotalFloors  int             `json:"total_floors" validate:"gt=0"`
	BaysPerFloor int             `json:"bays_per_floor" validate:"gt=0"`
	SpotsPerBay  int             `json:"spots_per_bay" validate:"gt=0"`
	HourlyRate   decimal.Decimal `json:"hourly_rate"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NaturalKey returns the garage id.
func (g *GarageConfig) NaturalKey() string { return g.ID }

// Validate checks structural fields and the hourly rate sign.
func (g *GarageConfig) Validate() error {
	if err := validate.Struct(g); err != nil {
		return fmt.Errorf("invalid garage config: %w", err)
	}
	if g.HourlyRate.IsNegative() {
		return fmt.Errorf("invalid garage config: hourly rate %s is negative", g.HourlyRate)
	}
	return nil
}

// Floor is one level of a garage with its bay layout.
// Floor rows are derived from the garage configuration but migrated as their
// own collection so spots can reference them.
type Floor struct {
	GarageID string `json:"garage_id" validate:"required"`
	Level    int    `json:"level" validate:"gte=0"`
	Bays     int    `json:"bays" validate:"gt=0"`
}

// FloorKey formats the natural key for a floor.
func FloorKey(garageID string, level int) string {
	return fmt.Sprintf("%s:F%d", garageID, level)
}

// NaturalKey returns garageID:F<level>.
func (f *Floor) NaturalKey() string { return FloorKey(f.GarageID, f.Level) }

// Validate checks the floor's layout fields.
func (f *Floor) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("invalid floor: %w", err)
	}
	return nil
}
