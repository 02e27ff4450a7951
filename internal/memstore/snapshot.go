package memstore

import (
	"sort"

	"github.com/iaminawe/ParkingGarage-sub010/internal/models"
)

// Snapshot is the serializable copy of every container, used by backup and
// restore. Slices are sorted by natural key so artifact contents and batch
// boundaries are deterministic.
type Snapshot struct {
	Garages  []models.GarageConfig `json:"garages"`
	Floors   []models.Floor        `json:"floors"`
	Spots    []models.Spot         `json:"spots"`
	Vehicles []models.Vehicle      `json:"vehicles"`
	Sessions []models.Session      `json:"sessions"`
	Payments []models.Payment      `json:"payments"`
}

// Garages returns all garage configs sorted by id.
func (s *Store) Garages() []models.GarageConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.GarageConfig, 0, len(s.garages))
	for _, g := range s.garages {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Floors returns the floor/bay index sorted by key.
func (s *Store) Floors() []models.Floor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Floor, 0, len(s.floors))
	for _, f := range s.floors {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NaturalKey() < out[j].NaturalKey() })
	return out
}

// Spots returns all spots sorted by natural key.
func (s *Store) Spots() []models.Spot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Spot, 0, len(s.spots))
	for _, sp := range s.spots {
		out = append(out, sp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NaturalKey() < out[j].NaturalKey() })
	return out
}

// FindAvailable returns spots with status available, sorted by natural key.
func (s *Store) FindAvailable() []models.Spot {
	return s.filterSpots(func(sp models.Spot) bool { return sp.Status == models.SpotAvailable })
}

// FindOccupied returns spots with status occupied, sorted by natural key.
func (s *Store) FindOccupied() []models.Spot {
	return s.filterSpots(func(sp models.Spot) bool { return sp.Status == models.SpotOccupied })
}

func (s *Store) filterSpots(keep func(models.Spot) bool) []models.Spot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Spot
	for _, sp := range s.spots {
		if keep(sp) {
			out = append(out, sp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NaturalKey() < out[j].NaturalKey() })
	return out
}

// Vehicles returns all vehicles sorted by plate.
func (s *Store) Vehicles() []models.Vehicle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Vehicle, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NaturalKey() < out[j].NaturalKey() })
	return out
}

// Sessions returns all sessions sorted by id.
func (s *Store) Sessions() []models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Payments returns all payments sorted by id.
func (s *Store) Payments() []models.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Payment, 0, len(s.payments))
	for _, p := range s.payments {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Snapshot captures every container under a single read lock so the copy is
// internally consistent.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Garages:  make([]models.GarageConfig, 0, len(s.garages)),
		Floors:   make([]models.Floor, 0, len(s.floors)),
		Spots:    make([]models.Spot, 0, len(s.spots)),
		Vehicles: make([]models.Vehicle, 0, len(s.vehicles)),
		Sessions: make([]models.Session, 0, len(s.sessions)),
		Payments: make([]models.Payment, 0, len(s.payments)),
	}
	for _, g := range s.garages {
		snap.Garages = append(snap.Garages, g)
	}
	for _, f := range s.floors {
		snap.Floors = append(snap.Floors, f)
	}
	for _, sp := range s.spots {
		snap.Spots = append(snap.Spots, sp)
	}
	for _, v := range s.vehicles {
		snap.Vehicles = append(snap.Vehicles, v)
	}
	for _, sess := range s.sessions {
		snap.Sessions = append(snap.Sessions, sess)
	}
	for _, p := range s.payments {
		snap.Payments = append(snap.Payments, p)
	}
	sort.Slice(snap.Garages, func(i, j int) bool { return snap.Garages[i].ID < snap.Garages[j].ID })
	sort.Slice(snap.Floors, func(i, j int) bool { return snap.Floors[i].NaturalKey() < snap.Floors[j].NaturalKey() })
	sort.Slice(snap.Spots, func(i, j int) bool { return snap.Spots[i].NaturalKey() < snap.Spots[j].NaturalKey() })
	sort.Slice(snap.Vehicles, func(i, j int) bool { return snap.Vehicles[i].NaturalKey() < snap.Vehicles[j].NaturalKey() })
	sort.Slice(snap.Sessions, func(i, j int) bool { return snap.Sessions[i].ID < snap.Sessions[j].ID })
	sort.Slice(snap.Payments, func(i, j int) bool { return snap.Payments[i].ID < snap.Payments[j].ID })
	return snap
}

// Restore clears the store and repopulates every container from the
// snapshot in one critical section. The occupied set is rebuilt from spot
// statuses, so a restored store satisfies the occupancy invariant whenever
// the snapshot did.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	for _, g := range snap.Garages {
		s.garages[g.ID] = g
	}
	for _, f := range snap.Floors {
		s.floors[f.NaturalKey()] = f
	}
	for _, sp := range snap.Spots {
		s.storeSpot(sp)
	}
	for _, v := range snap.Vehicles {
		s.vehicles[v.NaturalKey()] = v
	}
	for _, sess := range snap.Sessions {
		s.sessions[sess.ID] = sess
	}
	for _, p := range snap.Payments {
		s.payments[p.ID] = p
	}
}

// Stats summarizes the store contents for operators.
type Stats struct {
	TotalSpots     int `json:"total_spots"`
	OccupiedSpots  int `json:"occupied_spots"`
	AvailableSpots int `json:"available_spots"`
	Floors         int `json:"floors"`
	Bays           int `json:"bays"`
	Vehicles       int `json:"vehicles"`
	Sessions       int `json:"sessions"`
	Payments       int `json:"payments"`
}

// Stats returns spot totals plus distinct floor and floor/bay group counts.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	floors := make(map[int]struct{})
	bays := make(map[[2]int]struct{})
	st := Stats{
		TotalSpots: len(s.spots),
		Vehicles:   len(s.vehicles),
		Sessions:   len(s.sessions),
		Payments:   len(s.payments),
	}
	for _, sp := range s.spots {
		floors[sp.Floor] = struct{}{}
		bays[[2]int{sp.Floor, sp.Bay}] = struct{}{}
		switch sp.Status {
		case models.SpotOccupied:
			st.OccupiedSpots++
		case models.SpotAvailable:
			st.AvailableSpots++
		}
	}
	st.Floors = len(floors)
	st.Bays = len(bays)
	return st
}
