// Package memstore implements the volatile in-process store holding live
// garage state before it is migrated to relational storage.
//
// The store is an explicitly constructed instance passed via dependency
// injection; there is no package-level singleton. All containers share one
// mutex so compound occupancy updates are applied atomically: no caller can
// observe a spot marked occupied without its occupied-set entry.
package memstore

import (
	"fmt"
	"sync"

	"github.com/iaminawe/ParkingGarage-sub010/internal/models"
	"github.com/iaminawe/ParkingGarage-sub010/internal/shared"
)

// Store holds keyed containers for every operational collection: garage
// configs, the floor/bay index, spots, vehicles, sessions and payments, plus
// the occupied-spot set mapping spot keys to occupant plates.
//
// Access is O(1) per container. There are no cross-container transactions;
// compound updates run as one synchronous sequence under the store mutex.
type Store struct {
	mu       sync.RWMutex
	garages  map[string]models.GarageConfig
	floors   map[string]models.Floor
	spots    map[string]models.Spot
	vehicles map[string]models.Vehicle
	sessions map[string]models.Session
	payments map[string]models.Payment
	occupied map[string]string // spot key -> occupant plate
	byPlate  map[string]string // occupant plate -> spot key
}

// New creates an empty Store.
func New() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.garages = make(map[string]models.GarageConfig)
	s.floors = make(map[string]models.Floor)
	s.spots = make(map[string]models.Spot)
	s.vehicles = make(map[string]models.Vehicle)
	s.sessions = make(map[string]models.Session)
	s.payments = make(map[string]models.Payment)
	s.occupied = make(map[string]string)
	s.byPlate = make(map[string]string)
}

// Clear empties every container. Callers must ensure no reader holds a
// reference into the store across the call.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// Reset is an alias for Clear used for test isolation.
func (s *Store) Reset() { s.Clear() }

// SetGarage stores or replaces a garage config by id.
func (s *Store) SetGarage(g models.GarageConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.garages[g.ID] = g
}

// Garage returns the garage config for the given id.
func (s *Store) Garage(id string) (models.GarageConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.garages[id]
	return g, ok
}

// SetFloor stores or replaces a floor in the floor/bay index.
func (s *Store) SetFloor(f models.Floor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.floors[f.NaturalKey()] = f
}

// SetSpot stores or replaces a spot, keeping the occupied set consistent
// with the spot's status.
func (s *Store) SetSpot(sp models.Spot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storeSpot(sp)
}

func (s *Store) storeSpot(sp models.Spot) {
	key := sp.NaturalKey()
	if prev, ok := s.spots[key]; ok {
		if plate, occupied := s.occupied[key]; occupied && prev.Status == models.SpotOccupied {
			delete(s.occupied, key)
			delete(s.byPlate, plate)
		}
	}
	s.spots[key] = sp
	if sp.Status == models.SpotOccupied && sp.OccupantPlate != nil {
		plate := models.NormalizePlate(*sp.OccupantPlate)
		s.occupied[key] = plate
		s.byPlate[plate] = key
	}
}

// Spot returns the spot stored under the given natural key.
func (s *Store) Spot(key string) (models.Spot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.spots[key]
	return sp, ok
}

// DeleteSpot removes a spot and any occupied-set entry for it.
func (s *Store) DeleteSpot(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if plate, ok := s.occupied[key]; ok {
		delete(s.byPlate, plate)
		delete(s.occupied, key)
	}
	delete(s.spots, key)
}

// SetVehicle stores or replaces a vehicle under its normalized plate.
func (s *Store) SetVehicle(v models.Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles[v.NaturalKey()] = v
}

// Vehicle returns the vehicle registered under the given plate.
func (s *Store) Vehicle(plate string) (models.Vehicle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vehicles[models.NormalizePlate(plate)]
	return v, ok
}

// DeleteVehicle removes a vehicle by plate.
func (s *Store) DeleteVehicle(plate string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vehicles, models.NormalizePlate(plate))
}

// SetSession stores or replaces a session by id.
func (s *Store) SetSession(sess models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

// Session returns the session stored under the given id.
func (s *Store) Session(id string) (models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// SetPayment stores or replaces a payment by id.
func (s *Store) SetPayment(p models.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.ID] = p
}

// Payment returns the payment stored under the given id.
func (s *Store) Payment(id string) (models.Payment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	return p, ok
}

// Occupy marks a spot occupied by the given vehicle. The spot status change,
// occupied-set entry and plate mapping are applied in one unbroken sequence
// under the store mutex.
func (s *Store) Occupy(spotKey, plate string) error {
	plate = models.NormalizePlate(plate)
	if plate == "" {
		return fmt.Errorf("%w: empty license plate", shared.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sp, ok := s.spots[spotKey]
	if !ok {
		return fmt.Errorf("%w: spot %s does not exist", shared.ErrValidation, spotKey)
	}
	if sp.Status != models.SpotAvailable {
		return fmt.Errorf("%w: spot %s is %s", shared.ErrConstraint, spotKey, sp.Status)
	}
	if _, ok := s.vehicles[plate]; !ok {
		return fmt.Errorf("%w: vehicle %s is not registered", shared.ErrValidation, plate)
	}
	if existing, ok := s.byPlate[plate]; ok {
		return fmt.Errorf("%w: vehicle %s already occupies spot %s", shared.ErrConstraint, plate, existing)
	}

	sp.Status = models.SpotOccupied
	sp.OccupantPlate = &plate
	s.spots[spotKey] = sp
	s.occupied[spotKey] = plate
	s.byPlate[plate] = spotKey
	return nil
}

// Release frees an occupied spot, reversing every mutation Occupy made.
func (s *Store) Release(spotKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, ok := s.spots[spotKey]
	if !ok {
		return fmt.Errorf("%w: spot %s does not exist", shared.ErrValidation, spotKey)
	}
	if sp.Status != models.SpotOccupied {
		return fmt.Errorf("%w: spot %s is not occupied", shared.ErrConstraint, spotKey)
	}

	if plate, ok := s.occupied[spotKey]; ok {
		delete(s.byPlate, plate)
	}
	delete(s.occupied, spotKey)
	sp.Status = models.SpotAvailable
	sp.OccupantPlate = nil
	s.spots[spotKey] = sp
	return nil
}

// SpotFor returns the spot key currently occupied by the given plate.
func (s *Store) SpotFor(plate string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.byPlate[models.NormalizePlate(plate)]
	return key, ok
}
