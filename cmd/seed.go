package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"

	"github.com/iaminawe/ParkingGarage-sub010/internal/memstore"
	"github.com/iaminawe/ParkingGarage-sub010/internal/models"
	"github.com/iaminawe/ParkingGarage-sub010/internal/shared"
	"github.com/iaminawe/ParkingGarage-sub010/internal/tasks"
)

// Seed populates the memory store with a full demo garage and saves it as a
// bundle so later commands can load it.
func (r *Runner) Seed(ctx context.Context, cmd *cli.Command) error {
	vehicles := cmd.Int("vehicles")

	stats, err := r.seedStore(int(vehicles))
	if err != nil {
		return err
	}

	backup := r.backupUtility(nil)
	bundle, err := backup.CreateBackup(ctx, cmd.String("id"), tasks.BackupOptions{IncludeMemoryStore: true})
	if err != nil {
		return fmt.Errorf("failed to save seeded bundle: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"stats": stats, "bundle": bundle}, true)
	}

	r.writePlainHeader("Seed Complete")
	r.writePlain("%s\n", r.styles.OK(fmt.Sprintf("Garage: %d floors, %d spots", stats.Floors, stats.TotalSpots)))
	r.writePlain("Vehicles: %d (parked: %d)\n", stats.Vehicles, stats.OccupiedSpots)
	r.writePlain("Sessions: %d  Payments: %d\n", stats.Sessions, stats.Payments)
	r.writePlain("%s\n", r.styles.Help(fmt.Sprintf("Bundle saved to %s", bundle.BackupPath)))
	return nil
}

// seedStore fills the store from the configured garage dimensions. Vehicles
// park on the lowest free spots; every third one has already checked out,
// leaving a completed session with a card payment behind.
func (r *Runner) seedStore(vehicles int) (memstore.Stats, error) {
	g := r.config.Garage
	rate, err := decimal.NewFromString(g.HourlyRate)
	if err != nil {
		return memstore.Stats{}, fmt.Errorf("%w: invalid hourly rate %q", shared.ErrInvalidConfig, g.HourlyRate)
	}

	now := time.Now().UTC().Truncate(time.Second)
	r.store.Clear()
	r.store.SetGarage(models.GarageConfig{
		ID:           g.ID,
		Name:         g.Name,
		Address:      g.Address,
		TotalFloors:  g.TotalFloors,
		BaysPerFloor: g.BaysPerFloor,
		SpotsPerBay:  g.SpotsPerBay,
		HourlyRate:   rate,
		UpdatedAt:    now,
	})

	var spotKeys []string
	for f := 1; f <= g.TotalFloors; f++ {
		r.store.SetFloor(models.Floor{GarageID: g.ID, Level: f, Bays: g.BaysPerFloor})
		for b := 1; b <= g.BaysPerFloor; b++ {
			for s := 1; s <= g.SpotsPerBay; s++ {
				spot := models.Spot{
					Floor: f, Bay: b, SpotNumber: s,
					Type:   spotTypeFor(b, s),
					Status: models.SpotAvailable,
				}
				if s == 1 {
					spot.Features = []models.SpotFeature{models.FeatureNearElevator}
				}
				r.store.SetSpot(spot)
				spotKeys = append(spotKeys, spot.NaturalKey())
			}
		}
	}

	if vehicles > len(spotKeys) {
		vehicles = len(spotKeys)
	}

	colors := []string{"black", "white", "silver", "blue", "red"}
	for i := 0; i < vehicles; i++ {
		plate := fmt.Sprintf("DEMO%03d", i+1)
		r.store.SetVehicle(models.Vehicle{
			Plate:        plate,
			Type:         models.SpotStandard,
			Color:        colors[i%len(colors)],
			OwnerName:    fmt.Sprintf("Owner %d", i+1),
			RegisteredAt: now.Add(-time.Duration(i+1) * 24 * time.Hour),
		})

		startedAt := now.Add(-time.Duration(i%8+1) * time.Hour)
		if i%3 == 2 {
			// Already checked out: completed session plus its payment.
			endedAt := startedAt.Add(90 * time.Minute)
			amount := rate.Mul(decimal.NewFromInt(2))
			sess := models.Session{
				ID:            shared.GenerateID(),
				Plate:         plate,
				Floor:         spotFloor(spotKeys[i]),
				Bay:           spotBay(spotKeys[i]),
				SpotNumber:    spotNumber(spotKeys[i]),
				GarageID:      g.ID,
				StartedAt:     startedAt,
				EndedAt:       &endedAt,
				Status:        models.SessionCompleted,
				TotalAmount:   amount,
				PaymentStatus: models.PaymentPaid,
			}
			r.store.SetSession(sess)
			r.store.SetPayment(models.Payment{
				ID:        shared.GenerateID(),
				SessionID: sess.ID,
				Amount:    amount,
				Method:    models.MethodCreditCard,
				Status:    models.PaymentStatusCompleted,
				CreatedAt: endedAt,
			})
			continue
		}

		if err := r.store.Occupy(spotKeys[i], plate); err != nil {
			return memstore.Stats{}, fmt.Errorf("failed to park %s: %w", plate, err)
		}
		r.store.SetSession(models.Session{
			ID:            shared.GenerateID(),
			Plate:         plate,
			Floor:         spotFloor(spotKeys[i]),
			Bay:           spotBay(spotKeys[i]),
			SpotNumber:    spotNumber(spotKeys[i]),
			GarageID:      g.ID,
			StartedAt:     startedAt,
			Status:        models.SessionActive,
			PaymentStatus: models.PaymentUnpaid,
		})
	}

	stats := r.store.Stats()
	r.logger.Info("memory store seeded",
		"spots", stats.TotalSpots, "vehicles", stats.Vehicles, "sessions", stats.Sessions)
	return stats, nil
}

// spotTypeFor spreads a few non-standard spot types through each bay.
func spotTypeFor(bay, number int) models.SpotType {
	switch {
	case number == 1 && bay == 1:
		return models.SpotHandicap
	case number == 2:
		return models.SpotCompact
	default:
		return models.SpotStandard
	}
}

func spotFloor(key string) int {
	var f, b, s int
	fmt.Sscanf(key, "F%d-B%d-S%d", &f, &b, &s)
	return f
}

func spotBay(key string) int {
	var f, b, s int
	fmt.Sscanf(key, "F%d-B%d-S%d", &f, &b, &s)
	return b
}

func spotNumber(key string) int {
	var f, b, s int
	fmt.Sscanf(key, "F%d-B%d-S%d", &f, &b, &s)
	return s
}
