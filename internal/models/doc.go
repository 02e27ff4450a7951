// Package models defines domain entities and persistence interfaces for the parking garage migration service.
//
// The package contains two categories of types:
//
// 1. Operational records held in the in-process store and mirrored into relational tables:
//   - [GarageConfig] : Structural garage description, root of the migration dependency order
//   - [Floor] : Per-level bay layout derived from the garage configuration
//   - [Spot] : Parking spot identified by its (floor, bay, spot number) natural key
//   - [Vehicle] : Vehicle identified by its normalized license plate
//   - [Session] : Parking session linking a vehicle to a spot within a garage
//   - [Payment] : Payment against a session
//
// 2. Migration bookkeeping records owned by the status tracker:
//   - [MigrationStatus] : One migration run with its lifecycle state
//   - [Checkpoint] : Immutable, append-only progress marker
//
// All operational records implement the Record interface providing natural-key derivation and validation.
// Enumerations (spot type, spot status, session status, payment method, payment status) are typed
// string constants mapped exhaustively at the memory-to-relational boundary.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
