package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// Stats summarizes the memory store contents.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadStore(ctx, cmd.String("from")); err != nil {
		return err
	}

	stats := r.store.Stats()
	if cmd.Bool("json") {
		return r.writeJSON(stats, true)
	}

	occupancy := 0.0
	if stats.TotalSpots > 0 {
		occupancy = float64(stats.OccupiedSpots) / float64(stats.TotalSpots) * 100
	}

	r.writePlainHeader("Garage Statistics")
	r.writePlain("Floors:    %d  (%d bays)\n", stats.Floors, stats.Bays)
	r.writePlain("Spots:     %d total, %d available\n", stats.TotalSpots, stats.AvailableSpots)
	r.writePlain("%s\n", r.styles.OK(fmt.Sprintf("Occupancy: %d/%d (%.1f%%)", stats.OccupiedSpots, stats.TotalSpots, occupancy)))
	r.writePlain("Vehicles:  %d\n", stats.Vehicles)
	r.writePlain("Sessions:  %d\n", stats.Sessions)
	r.writePlain("Payments:  %d\n", stats.Payments)
	return nil
}
