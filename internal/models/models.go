package models

import (
	"github.com/go-playground/validator/v10"
)

// validate is the shared struct validator applied before any destination write.
var validate = validator.New()

// Record defines the base interface for all operational records mirrored between stores.
// Implementations include GarageConfig, Spot, Vehicle, Session and Payment.
type Record interface {
	NaturalKey() string // NaturalKey returns the business identifier used to match this record across stores
	Validate() error    // Validate checks if the record's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific record types.
type Repository[T Record] interface {
	Upsert(record T) error                     // Upsert inserts or overwrites a record by its natural key
	Get(key string) (T, error)                 // Get retrieves a record by its natural key
	Delete(key string) error                   // Delete removes a record from the database by its natural key
	List(criteria map[string]any) ([]T, error) // List retrieves all records matching the given criteria
	Count() (int, error)                       // Count returns the number of stored records
}

// Collection identifies one migratable group of records.
type Collection string

// Collections in migration dependency order. Later collections reference
// ids established by earlier ones, so the order is fixed.
const (
	CollectionGarage   Collection = "garage_config"
	CollectionFloors   Collection = "floors"
	CollectionSpots    Collection = "spots"
	CollectionVehicles Collection = "vehicles"
	CollectionSessions Collection = "sessions"
	CollectionPayments Collection = "payments"
)

// MigrationOrder returns every collection in the order it must be migrated.
func MigrationOrder() []Collection {
	return []Collection{
		CollectionGarage,
		CollectionFloors,
		CollectionSpots,
		CollectionVehicles,
		CollectionSessions,
		CollectionPayments,
	}
}

func (c Collection) String() string { return string(c) }

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	switch c {
	case CollectionGarage, CollectionFloors, CollectionSpots,
		CollectionVehicles, CollectionSessions, CollectionPayments:
		return true
	}
	return false
}
