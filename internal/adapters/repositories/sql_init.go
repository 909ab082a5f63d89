package repositories

import (
	"context"
	"delivery-dispatch-sim/internal/platform/db"
	"errors"
	"fmt"
)

// InitSchema creates the tables. The DDL is valid for both sqlite and Postgres.
func InitSchema(ctx context.Context, d *db.DB) error {
	if d == nil || d.DB == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createLocationsQuery := `
	CREATE TABLE IF NOT EXISTS locations (
		location_id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		address TEXT NOT NULL,
		zip TEXT NOT NULL DEFAULT ''
	);
	`

	createDistancesQuery := `
	CREATE TABLE IF NOT EXISTS distances (
		from_id INTEGER NOT NULL,
		to_id INTEGER NOT NULL,
		miles DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (from_id, to_id)
	);
	`

	createParcelsQuery := `
	CREATE TABLE IF NOT EXISTS parcels (
		parcel_id INTEGER PRIMARY KEY,
		location_id INTEGER NOT NULL,
		weight DOUBLE PRECISION NOT NULL DEFAULT 0,
		deadline TEXT NOT NULL DEFAULT '',
		codes TEXT NOT NULL DEFAULT ''
	);
	`

	createCorrectionsQuery := `
	CREATE TABLE IF NOT EXISTS parcel_corrections (
		parcel_id INTEGER PRIMARY KEY,
		correct_at TEXT NOT NULL,
		location_id INTEGER NOT NULL
	);
	`

	createRouteSetsQuery := `
	CREATE TABLE IF NOT EXISTS route_sets (
		run_id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		fitness DOUBLE PRECISION NOT NULL
	);
	`

	createRouteStopsQuery := `
	CREATE TABLE IF NOT EXISTS route_stops (
		run_id TEXT NOT NULL,
		route_index INTEGER NOT NULL,
		position INTEGER NOT NULL,
		location_id INTEGER NOT NULL,
		PRIMARY KEY (run_id, route_index, position)
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_distances_to_from
	ON distances(to_id, from_id);
	`

	statements := []string{
		createLocationsQuery,
		createDistancesQuery,
		createParcelsQuery,
		createCorrectionsQuery,
		createRouteSetsQuery,
		createRouteStopsQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
