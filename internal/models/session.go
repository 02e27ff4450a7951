package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SessionStatus is the lifecycle state of a parking session.
type SessionStatus string

// Session status enumeration
const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
	SessionExpired   SessionStatus = "expired"
)

// Valid reports whether s is a known session status.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionActive, SessionCompleted, SessionCancelled, SessionExpired:
		return true
	}
	return false
}

// PaymentState tracks how much of a session has been settled.
type PaymentState string

// Session payment state enumeration
const (
	PaymentUnpaid       PaymentState = "unpaid"
	PaymentPending      PaymentState = "pending"
	PaymentPaid         PaymentState = "paid"
	PaymentRefundedFull PaymentState = "refunded"
)

// Valid reports whether p is a known payment state.
func (p PaymentState) Valid() bool {
	switch p {
	case PaymentUnpaid, PaymentPending, PaymentPaid, PaymentRefundedFull:
		return true
	}
	return false
}

// Session links a vehicle to a spot within a garage for a span of time.
//
// Invariants: at most one active session per vehicle and per spot,
// EndedAt >= StartedAt when set, and TotalAmount is defined only once the
// session is no longer active.
type Session struct {
	ID            string          `json:"id" validate:"required,uuid4"`
	Plate         string          `json:"plate" validate:"required"`
	Floor         int             `json:"floor" validate:"gte=0"`
	Bay           int             `json:"bay" validate:"gt=0"`
	SpotNumber    int             `json:"spot_number" validate:"gt=0"`
	GarageID      string          `json:"garage_id" validate:"required"`
	StartedAt     time.Time       `json:"started_at"`
	EndedAt       *time.Time      `json:"ended_at,omitempty"`
	Status        SessionStatus   `json:"status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentStatus PaymentState    `json:"payment_status"`
}

// NaturalKey returns the session id. Sessions carry a generated uuid because
// a vehicle can park on the same spot repeatedly; the uuid stays stable across
// stores so it still functions as the matching key.
func (s *Session) NaturalKey() string { return s.ID }

// SpotKey returns the natural key of the occupied spot.
func (s *Session) SpotKey() string { return SpotKey(s.Floor, s.Bay, s.SpotNumber) }

// Validate checks referential fields, enum values and time ordering.
func (s *Session) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid session %s: %w", s.ID, err)
	}
	if NormalizePlate(s.Plate) == "" {
		return fmt.Errorf("invalid session %s: empty license plate", s.ID)
	}
	if !s.Status.Valid() {
		return fmt.Errorf("invalid session %s: unknown status %q", s.ID, s.Status)
	}
	if !s.PaymentStatus.Valid() {
		return fmt.Errorf("invalid session %s: unknown payment status %q", s.ID, s.PaymentStatus)
	}
	if s.EndedAt != nil && s.EndedAt.Before(s.StartedAt) {
		return fmt.Errorf("invalid session %s: end %s precedes start %s", s.ID, s.EndedAt, s.StartedAt)
	}
	if s.Status == SessionActive {
		if s.EndedAt != nil {
			return fmt.Errorf("invalid session %s: active session has an end time", s.ID)
		}
		if !s.TotalAmount.IsZero() {
			return fmt.Errorf("invalid session %s: total amount set while active", s.ID)
		}
	}
	if s.TotalAmount.IsNegative() {
		return fmt.Errorf("invalid session %s: negative total amount %s", s.ID, s.TotalAmount)
	}
	return nil
}
