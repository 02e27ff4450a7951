package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/iaminawe/ParkingGarage-sub010/internal/memstore"
	"github.com/iaminawe/ParkingGarage-sub010/internal/models"
	"github.com/iaminawe/ParkingGarage-sub010/internal/shared"
)

// FieldMismatch is one field whose migrated value differs from the source.
type FieldMismatch struct {
	Collection models.Collection `json:"collection"`
	RecordKey  string            `json:"record_key"`
	Field      string            `json:"field"`
	Expected   string            `json:"expected"` // memory store value
	Actual     string            `json:"actual"`   // database value
}

// PresenceMismatch is a record present on one side only.
type PresenceMismatch struct {
	Collection models.Collection `json:"collection"`
	RecordKey  string            `json:"record_key"`
	MissingIn  string            `json:"missing_in"` // "database" or "memory"
}

// ValidationReport is the outcome of comparing the memory store against the
// database record by record.
type ValidationReport struct {
	Valid          bool                `json:"valid"`
	CheckedRecords int                 `json:"checked_records"`
	Missing        []PresenceMismatch  `json:"missing,omitempty"`
	Mismatches     []FieldMismatch     `json:"mismatches,omitempty"`
	Relationships  *RelationshipReport `json:"relationships,omitempty"`
}

// MismatchCount totals presence and field mismatches, plus relationship
// violations when that check ran.
func (r *ValidationReport) MismatchCount() int {
	n := len(r.Missing) + len(r.Mismatches)
	if r.Relationships != nil {
		n += len(r.Relationships.Violations)
	}
	return n
}

// RelationshipViolation is a row whose reference resolves to nothing.
type RelationshipViolation struct {
	Table     string `json:"table"`
	RecordKey string `json:"record_key"`
	Reference string `json:"reference"`
}

// RelationshipReport is the outcome of checking referential integrity inside
// the database.
type RelationshipReport struct {
	Valid      bool                    `json:"valid"`
	Checks     int                     `json:"checks"`
	Violations []RelationshipViolation `json:"violations,omitempty"`
}

// Validator compares the memory store against the relational database and
// checks referential integrity of the migrated rows. It only reads; a failed
// validation changes nothing except the report.
type Validator struct {
	store  *memstore.Store
	repos  *Repos
	logger *log.Logger
}

// NewValidator creates a Validator over the given store and repositories.
func NewValidator(store *memstore.Store, repos *Repos, logger *log.Logger) *Validator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Validator{store: store, repos: repos, logger: logger}
}

// ValidateDataIntegrity matches every collection by natural key in both
// directions and compares fields on records present in both stores.
func (v *Validator) ValidateDataIntegrity(ctx context.Context) (*ValidationReport, error) {
	snap := v.store.Snapshot()
	report := &ValidationReport{Valid: true}

	garages, err := v.repos.Garages.List()
	if err != nil {
		return nil, err
	}
	diffCollection(report, models.CollectionGarage, snap.Garages, garages,
		func(g *models.GarageConfig) string { return g.NaturalKey() },
		compareGarage)

	floors, err := v.repos.Floors.List()
	if err != nil {
		return nil, err
	}
	diffCollection(report, models.CollectionFloors, snap.Floors, floors,
		func(f *models.Floor) string { return f.NaturalKey() },
		compareFloor)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	spots, err := v.repos.Spots.List()
	if err != nil {
		return nil, err
	}
	diffCollection(report, models.CollectionSpots, snap.Spots, spots,
		func(s *models.Spot) string { return s.NaturalKey() },
		compareSpot)

	vehicles, err := v.repos.Vehicles.ListAll()
	if err != nil {
		return nil, err
	}
	diffCollection(report, models.CollectionVehicles, snap.Vehicles, vehicles,
		func(vh *models.Vehicle) string { return vh.NaturalKey() },
		compareVehicle)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sessions, err := v.repos.Sessions.List()
	if err != nil {
		return nil, err
	}
	diffCollection(report, models.CollectionSessions, snap.Sessions, sessions,
		func(s *models.Session) string { return s.NaturalKey() },
		compareSession)

	payments, err := v.repos.Payments.List()
	if err != nil {
		return nil, err
	}
	diffCollection(report, models.CollectionPayments, snap.Payments, payments,
		func(p *models.Payment) string { return p.NaturalKey() },
		comparePayment)

	report.Valid = len(report.Missing) == 0 && len(report.Mismatches) == 0
	v.logger.Info("data integrity validated",
		"checked", report.CheckedRecords,
		"missing", len(report.Missing),
		"mismatches", len(report.Mismatches),
		"valid", report.Valid)
	return report, nil
}

// diffCollection runs the two-way key comparison for one collection and
// appends field mismatches for records present on both sides.
func diffCollection[T any](report *ValidationReport, coll models.Collection, mem, db []T,
	key func(*T) string, compare func(key string, mem, db *T) []FieldMismatch) {

	dbByKey := make(map[string]*T, len(db))
	for i := range db {
		dbByKey[key(&db[i])] = &db[i]
	}

	memKeys := make(map[string]bool, len(mem))
	for i := range mem {
		k := key(&mem[i])
		memKeys[k] = true
		report.CheckedRecords++

		row, ok := dbByKey[k]
		if !ok {
			report.Missing = append(report.Missing, PresenceMismatch{
				Collection: coll, RecordKey: k, MissingIn: "database",
			})
			continue
		}
		report.Mismatches = append(report.Mismatches, compare(k, &mem[i], row)...)
	}

	for i := range db {
		if k := key(&db[i]); !memKeys[k] {
			report.Missing = append(report.Missing, PresenceMismatch{
				Collection: coll, RecordKey: k, MissingIn: "memory",
			})
		}
	}
}

func mismatch(coll models.Collection, key, field string, expected, actual any) FieldMismatch {
	return FieldMismatch{
		Collection: coll,
		RecordKey:  key,
		Field:      field,
		Expected:   fmt.Sprintf("%v", expected),
		Actual:     fmt.Sprintf("%v", actual),
	}
}

func timesEqual(a, b time.Time) bool { return a.UTC().Equal(b.UTC()) }

func timePtrsEqual(a, b *time.Time) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || timesEqual(*a, *b)
}

func strPtrsEqual(a, b *string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func compareGarage(key string, mem, db *models.GarageConfig) []FieldMismatch {
	var out []FieldMismatch
	if mem.Name != db.Name {
		out = append(out, mismatch(models.CollectionGarage, key, "name", mem.Name, db.Name))
	}
	if mem.Address != db.Address {
		out = append(out, mismatch(models.CollectionGarage, key, "address", mem.Address, db.Address))
	}
	if mem.TotalFloors != db.TotalFloors {
		out = append(out, mismatch(models.CollectionGarage, key, "total_floors", mem.TotalFloors, db.TotalFloors))
	}
	if mem.BaysPerFloor != db.BaysPerFloor {
		out = append(out, mismatch(models.CollectionGarage, key, "bays_per_floor", mem.BaysPerFloor, db.BaysPerFloor))
	}
	if mem.SpotsPerBay != db.SpotsPerBay {
		out = append(out, mismatch(models.CollectionGarage, key, "spots_per_bay", mem.SpotsPerBay, db.SpotsPerBay))
	}
	if !mem.HourlyRate.Equal(db.HourlyRate) {
		out = append(out, mismatch(models.CollectionGarage, key, "hourly_rate", mem.HourlyRate, db.HourlyRate))
	}
	return out
}

func compareFloor(key string, mem, db *models.Floor) []FieldMismatch {
	if mem.Bays != db.Bays {
		return []FieldMismatch{mismatch(models.CollectionFloors, key, "bays", mem.Bays, db.Bays)}
	}
	return nil
}

func compareSpot(key string, mem, db *models.Spot) []FieldMismatch {
	var out []FieldMismatch
	if mem.Type != db.Type {
		out = append(out, mismatch(models.CollectionSpots, key, "type", mem.Type, db.Type))
	}
	if mem.Status != db.Status {
		out = append(out, mismatch(models.CollectionSpots, key, "status", mem.Status, db.Status))
	}
	if !strPtrsEqual(mem.OccupantPlate, db.OccupantPlate) {
		out = append(out, mismatch(models.CollectionSpots, key, "occupant_plate",
			derefOr(mem.OccupantPlate, "<nil>"), derefOr(db.OccupantPlate, "<nil>")))
	}
	memFeatures := fmt.Sprintf("%v", mem.SortedFeatures())
	dbFeatures := fmt.Sprintf("%v", db.SortedFeatures())
	if memFeatures != dbFeatures {
		out = append(out, mismatch(models.CollectionSpots, key, "features", memFeatures, dbFeatures))
	}
	return out
}

func compareVehicle(key string, mem, db *models.Vehicle) []FieldMismatch {
	var out []FieldMismatch
	if mem.Type != db.Type {
		out = append(out, mismatch(models.CollectionVehicles, key, "type", mem.Type, db.Type))
	}
	if mem.Color != db.Color {
		out = append(out, mismatch(models.CollectionVehicles, key, "color", mem.Color, db.Color))
	}
	if mem.OwnerName != db.OwnerName {
		out = append(out, mismatch(models.CollectionVehicles, key, "owner_name", mem.OwnerName, db.OwnerName))
	}
	if !timesEqual(mem.RegisteredAt, db.RegisteredAt) {
		out = append(out, mismatch(models.CollectionVehicles, key, "registered_at", mem.RegisteredAt, db.RegisteredAt))
	}
	if !timePtrsEqual(mem.DeletedAt, db.DeletedAt) {
		out = append(out, mismatch(models.CollectionVehicles, key, "deleted_at", mem.DeletedAt, db.DeletedAt))
	}
	return out
}

func compareSession(key string, mem, db *models.Session) []FieldMismatch {
	var out []FieldMismatch
	if models.NormalizePlate(mem.Plate) != models.NormalizePlate(db.Plate) {
		out = append(out, mismatch(models.CollectionSessions, key, "plate", mem.Plate, db.Plate))
	}
	if mem.SpotKey() != db.SpotKey() {
		out = append(out, mismatch(models.CollectionSessions, key, "spot", mem.SpotKey(), db.SpotKey()))
	}
	if mem.GarageID != db.GarageID {
		out = append(out, mismatch(models.CollectionSessions, key, "garage_id", mem.GarageID, db.GarageID))
	}
	if mem.Status != db.Status {
		out = append(out, mismatch(models.CollectionSessions, key, "status", mem.Status, db.Status))
	}
	if mem.PaymentStatus != db.PaymentStatus {
		out = append(out, mismatch(models.CollectionSessions, key, "payment_status", mem.PaymentStatus, db.PaymentStatus))
	}
	if !mem.TotalAmount.Equal(db.TotalAmount) {
		out = append(out, mismatch(models.CollectionSessions, key, "total_amount", mem.TotalAmount, db.TotalAmount))
	}
	if !timesEqual(mem.StartedAt, db.StartedAt) {
		out = append(out, mismatch(models.CollectionSessions, key, "started_at", mem.StartedAt, db.StartedAt))
	}
	if !timePtrsEqual(mem.EndedAt, db.EndedAt) {
		out = append(out, mismatch(models.CollectionSessions, key, "ended_at", mem.EndedAt, db.EndedAt))
	}
	return out
}

func comparePayment(key string, mem, db *models.Payment) []FieldMismatch {
	var out []FieldMismatch
	if mem.SessionID != db.SessionID {
		out = append(out, mismatch(models.CollectionPayments, key, "session_id", mem.SessionID, db.SessionID))
	}
	if !mem.Amount.Equal(db.Amount) {
		out = append(out, mismatch(models.CollectionPayments, key, "amount", mem.Amount, db.Amount))
	}
	if mem.Method != db.Method {
		out = append(out, mismatch(models.CollectionPayments, key, "method", mem.Method, db.Method))
	}
	if mem.Status != db.Status {
		out = append(out, mismatch(models.CollectionPayments, key, "status", mem.Status, db.Status))
	}
	if !mem.RefundAmount.Equal(db.RefundAmount) {
		out = append(out, mismatch(models.CollectionPayments, key, "refund_amount", mem.RefundAmount, db.RefundAmount))
	}
	if !timesEqual(mem.CreatedAt, db.CreatedAt) {
		out = append(out, mismatch(models.CollectionPayments, key, "created_at", mem.CreatedAt, db.CreatedAt))
	}
	return out
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

// danglingRefQueries resolve every foreign reference in the schema with a
// LEFT JOIN; each returns the keys of rows whose reference matches nothing.
var danglingRefQueries = []struct {
	table     string
	reference string
	query     string
}{
	{
		table:     "sessions",
		reference: "vehicles.plate",
		query: `SELECT s.id FROM sessions s
			LEFT JOIN vehicles v ON s.plate = v.plate
			WHERE v.plate IS NULL`,
	},
	{
		table:     "sessions",
		reference: "spots",
		query: `SELECT s.id FROM sessions s
			LEFT JOIN spots sp ON s.floor = sp.floor AND s.bay = sp.bay AND s.spot_number = sp.spot_number
			WHERE sp.floor IS NULL`,
	},
	{
		table:     "sessions",
		reference: "garage_config.id",
		query: `SELECT s.id FROM sessions s
			LEFT JOIN garage_config g ON s.garage_id = g.id
			WHERE g.id IS NULL`,
	},
	{
		table:     "payments",
		reference: "sessions.id",
		query: `SELECT p.id FROM payments p
			LEFT JOIN sessions s ON p.session_id = s.id
			WHERE s.id IS NULL`,
	},
	{
		table:     "spots",
		reference: "vehicles.plate",
		query: `SELECT 'F' || sp.floor || '-B' || sp.bay || '-S' || printf('%03d', sp.spot_number)
			FROM spots sp
			LEFT JOIN vehicles v ON sp.occupant_plate = v.plate
			WHERE sp.occupant_plate IS NOT NULL AND v.plate IS NULL`,
	},
	{
		table:     "floors",
		reference: "garage_config.id",
		query: `SELECT f.garage_id || ':F' || f.level FROM floors f
			LEFT JOIN garage_config g ON f.garage_id = g.id
			WHERE g.id IS NULL`,
	},
}

// ValidateRelationships checks every foreign reference among the migrated
// rows and reports the ones that resolve to nothing.
func (v *Validator) ValidateRelationships(ctx context.Context) (*RelationshipReport, error) {
	report := &RelationshipReport{Valid: true, Checks: len(danglingRefQueries)}

	for _, check := range danglingRefQueries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := v.repos.DB.QueryContext(ctx, check.query)
		if err != nil {
			return nil, fmt.Errorf("%w: relationship check %s -> %s: %v",
				shared.ErrTransientStore, check.table, check.reference, err)
		}
		for rows.Next() {
			var key string
			if err := rows.Scan(&key); err != nil {
				rows.Close()
				return nil, fmt.Errorf("%w: %v", shared.ErrTransientStore, err)
			}
			report.Violations = append(report.Violations, RelationshipViolation{
				Table:     check.table,
				RecordKey: key,
				Reference: check.reference,
			})
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: %v", shared.ErrTransientStore, err)
		}
		rows.Close()
	}

	report.Valid = len(report.Violations) == 0
	v.logger.Info("relationships validated", "checks", report.Checks, "violations", len(report.Violations), "valid", report.Valid)
	return report, nil
}
