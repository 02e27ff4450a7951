package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/iaminawe/ParkingGarage-sub010/internal/tasks"
)

// Validate compares the memory store against the database and checks
// referential integrity, without writing anything.
func (r *Runner) Validate(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadStore(ctx, cmd.String("from")); err != nil {
		return err
	}

	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	repos := tasks.NewRepos(db)
	validator := tasks.NewValidator(r.store, repos, r.logger)

	report, err := validator.ValidateDataIntegrity(ctx)
	if err != nil {
		return err
	}
	report.Relationships, err = validator.ValidateRelationships(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, true)
	}

	r.writePlainHeader("Validation Report")
	r.writePlain("Records checked: %d\n", report.CheckedRecords)

	if report.Valid && report.Relationships.Valid {
		r.writePlain("%s\n", r.styles.OK("✓ Memory store and database are consistent"))
		r.writePlain("%s\n", r.styles.OK(fmt.Sprintf("✓ %d relationship checks passed", report.Relationships.Checks)))
		return nil
	}

	for _, m := range report.Missing {
		r.writePlain("%s\n", r.styles.Err(fmt.Sprintf("✗ %s %s missing in %s", m.Collection, m.RecordKey, m.MissingIn)))
	}
	for _, m := range report.Mismatches {
		r.writePlain("%s\n", r.styles.Err(fmt.Sprintf("✗ %s %s field %s: memory=%s database=%s",
			m.Collection, m.RecordKey, m.Field, m.Expected, m.Actual)))
	}
	for _, v := range report.Relationships.Violations {
		r.writePlain("%s\n", r.styles.Err(fmt.Sprintf("✗ %s %s references missing %s", v.Table, v.RecordKey, v.Reference)))
	}
	r.writePlain("\n%s\n", r.styles.Err(fmt.Sprintf("%d problems found", report.MismatchCount())))
	return nil
}
