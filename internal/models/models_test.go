package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func strPtr(s string) *string { return &s }

func TestSpot_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spot    Spot
		wantErr string
	}{
		{
			name: "valid available spot",
			spot: Spot{Floor: 1, Bay: 1, SpotNumber: 1, Type: SpotStandard, Status: SpotAvailable},
		},
		{
			name: "valid occupied spot",
			spot: Spot{Floor: 1, Bay: 1, SpotNumber: 1, Type: SpotStandard, Status: SpotOccupied, OccupantPlate: strPtr("ABC123")},
		},
		{
			name:    "occupied without occupant",
			spot:    Spot{Floor: 1, Bay: 1, SpotNumber: 1, Type: SpotStandard, Status: SpotOccupied},
			wantErr: "occupancy invariant",
		},
		{
			name:    "available with occupant",
			spot:    Spot{Floor: 1, Bay: 1, SpotNumber: 1, Type: SpotStandard, Status: SpotAvailable, OccupantPlate: strPtr("ABC123")},
			wantErr: "occupancy invariant",
		},
		{
			name:    "unknown type",
			spot:    Spot{Floor: 1, Bay: 1, SpotNumber: 1, Type: "hoverboard", Status: SpotAvailable},
			wantErr: "unknown type",
		},
		{
			name:    "unknown feature",
			spot:    Spot{Floor: 1, Bay: 1, SpotNumber: 1, Type: SpotStandard, Status: SpotAvailable, Features: []SpotFeature{"valet"}},
			wantErr: "unknown feature",
		},
		{
			name:    "zero bay",
			spot:    Spot{Floor: 1, Bay: 0, SpotNumber: 1, Type: SpotStandard, Status: SpotAvailable},
			wantErr: "invalid spot",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spot.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestSpotKey(t *testing.T) {
	if got := SpotKey(2, 3, 7); got != "F2-B3-S007" {
		t.Errorf("SpotKey = %q", got)
	}
	// Zero padding keeps lexicographic and numeric order aligned.
	if SpotKey(1, 1, 9) >= SpotKey(1, 1, 10) {
		t.Error("spot keys do not sort numerically")
	}
}

func TestVehicle_Validate(t *testing.T) {
	v := Vehicle{Plate: "  abc 123  ", Type: SpotCompact}
	if err := v.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
	if got := v.NaturalKey(); got != "ABC 123" {
		t.Errorf("NaturalKey = %q, want normalized plate", got)
	}

	empty := Vehicle{Plate: "   ", Type: SpotCompact}
	if err := empty.Validate(); err == nil {
		t.Error("whitespace plate accepted")
	}
}

func TestSession_Validate(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	base := Session{
		ID: uuid.New().String(), Plate: "ABC123",
		Floor: 1, Bay: 1, SpotNumber: 1, GarageID: "g1",
		StartedAt: started, Status: SessionActive, PaymentStatus: PaymentUnpaid,
	}

	t.Run("valid active session", func(t *testing.T) {
		if err := base.Validate(); err != nil {
			t.Errorf("Validate() error: %v", err)
		}
	})

	t.Run("end before start", func(t *testing.T) {
		s := base
		early := started.Add(-time.Minute)
		s.Status = SessionCompleted
		s.PaymentStatus = PaymentPaid
		s.EndedAt = &early
		if err := s.Validate(); err == nil {
			t.Error("end before start accepted")
		}
	})

	t.Run("active with end time", func(t *testing.T) {
		s := base
		ended := started.Add(time.Hour)
		s.EndedAt = &ended
		if err := s.Validate(); err == nil {
			t.Error("active session with end time accepted")
		}
	})

	t.Run("active with amount", func(t *testing.T) {
		s := base
		s.TotalAmount = decimal.NewFromInt(5)
		if err := s.Validate(); err == nil {
			t.Error("active session with total amount accepted")
		}
	})

	t.Run("non-uuid id", func(t *testing.T) {
		s := base
		s.ID = "session-1"
		if err := s.Validate(); err == nil {
			t.Error("non-uuid session id accepted")
		}
	})
}

func TestPayment_Validate(t *testing.T) {
	base := Payment{
		ID: uuid.New().String(), SessionID: uuid.New().String(),
		Amount: decimal.NewFromFloat(7.5), Method: MethodCash,
		Status: PaymentStatusCompleted, CreatedAt: time.Now().UTC(),
	}

	t.Run("valid payment", func(t *testing.T) {
		if err := base.Validate(); err != nil {
			t.Errorf("Validate() error: %v", err)
		}
	})

	t.Run("refund exceeds amount", func(t *testing.T) {
		p := base
		p.RefundAmount = decimal.NewFromInt(10)
		if err := p.Validate(); err == nil {
			t.Error("oversized refund accepted")
		}
	})

	t.Run("refund from pending payment", func(t *testing.T) {
		p := base
		p.Status = PaymentStatusPending
		p.RefundAmount = decimal.NewFromInt(1)
		if err := p.Validate(); err == nil {
			t.Error("refund from pending payment accepted")
		}
	})

	t.Run("partial refund from completed payment", func(t *testing.T) {
		p := base
		p.RefundAmount = decimal.NewFromInt(2)
		if err := p.Validate(); err != nil {
			t.Errorf("Validate() error: %v", err)
		}
	})
}

func TestMigrationOrder(t *testing.T) {
	order := MigrationOrder()
	want := []Collection{
		CollectionGarage, CollectionFloors, CollectionSpots,
		CollectionVehicles, CollectionSessions, CollectionPayments,
	}
	if len(order) != len(want) {
		t.Fatalf("order length = %d, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestMigrationState_Terminal(t *testing.T) {
	for state, terminal := range map[MigrationState]bool{
		MigrationPending:    false,
		MigrationInProgress: false,
		MigrationCompleted:  true,
		MigrationFailed:     true,
	} {
		if state.Terminal() != terminal {
			t.Errorf("%s.Terminal() = %v, want %v", state, state.Terminal(), terminal)
		}
	}
}

func TestMigrationStatus_Validate(t *testing.T) {
	m := MigrationStatus{ID: "run-1", Status: MigrationInProgress, TotalSteps: 6, CompletedSteps: 7}
	if err := m.Validate(); err == nil {
		t.Error("completed steps beyond total accepted")
	}
	m.CompletedSteps = 6
	if err := m.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}
