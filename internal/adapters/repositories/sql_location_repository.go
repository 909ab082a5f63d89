package repositories

import (
	"context"
	"delivery-dispatch-sim/internal/domain"
	"delivery-dispatch-sim/internal/platform/db"
	"delivery-dispatch-sim/internal/platform/obs"
	"errors"
	"fmt"
	"math"
)

// SQL-backed implementation of the LocationRepository port.
type SQLLocationRepository struct{ DB *db.DB }

func NewSQLLocationRepository(d *db.DB) *SQLLocationRepository {
	return &SQLLocationRepository{DB: d}
}

// LoadGraph reads every location and distance into a Registry.
func (s *SQLLocationRepository) LoadGraph(ctx context.Context) (_ *domain.Registry, err error) {
	defer obs.Time(ctx, "locations.LoadGraph")(&err)

	if s.DB == nil {
		return nil, errors.New("sql location repository: DB is nil")
	}

	locations, err := s.listLocations(ctx)
	if err != nil {
		return nil, err
	}
	g := domain.NewRegistry()
	for _, l := range locations {
		if _, err := g.Add(l); err != nil {
			return nil, fmt.Errorf("load graph: %w", err)
		}
	}

	type link struct {
		from, to domain.LocationID
		miles    float64
	}
	rows, err := s.DB.QueryContext(ctx, `
	SELECT from_id, to_id, miles
	FROM distances
	ORDER BY from_id, to_id;
	`)
	if err != nil {
		return nil, fmt.Errorf("load graph: query distances table: %w", err)
	}
	defer rows.Close()

	var links []link
	for rows.Next() {
		var l link
		if err := rows.Scan(&l.from, &l.to, &l.miles); err != nil {
			return nil, fmt.Errorf("load graph: scan distance row: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load graph: distance row iteration: %w", err)
	}

	for _, l := range links {
		if err := g.Link(l.from, l.to, l.miles); err != nil {
			return nil, fmt.Errorf("load graph: %w", err)
		}
	}
	return g, nil
}

func (s *SQLLocationRepository) listLocations(ctx context.Context) ([]domain.Location, error) {
	rows, err := s.DB.QueryContext(ctx, `
	SELECT location_id, name, address, zip
	FROM locations
	ORDER BY location_id;
	`)
	if err != nil {
		return nil, fmt.Errorf("load graph: query locations table: %w", err)
	}
	defer rows.Close()

	var out []domain.Location
	for rows.Next() {
		var l domain.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Address, &l.Zip); err != nil {
			return nil, fmt.Errorf("load graph: scan location row: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load graph: location row iteration: %w", err)
	}
	return out, nil
}

// SaveGraph upserts every location and every linked pair, stored once with
// the lower id first.
func (s *SQLLocationRepository) SaveGraph(ctx context.Context, g *domain.Registry) (err error) {
	defer obs.Time(ctx, "locations.SaveGraph")(&err)

	if s.DB == nil {
		return errors.New("sql location repository: DB is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save graph: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	locStmt, err := tx.PrepareContext(ctx, s.DB.Rebind(`
	INSERT INTO locations (location_id, name, address, zip)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (location_id) DO UPDATE
	SET name = EXCLUDED.name,
		address = EXCLUDED.address,
		zip = EXCLUDED.zip;
	`))
	if err != nil {
		return fmt.Errorf("save graph: prepare location insert: %w", err)
	}
	defer locStmt.Close()

	locations := g.Locations()
	for _, l := range locations {
		if _, err := locStmt.ExecContext(ctx, int(l.ID), l.Name, l.Address, l.Zip); err != nil {
			return fmt.Errorf("save graph: insert location id=%d: %w", l.ID, err)
		}
	}

	distStmt, err := tx.PrepareContext(ctx, s.DB.Rebind(`
	INSERT INTO distances (from_id, to_id, miles)
	VALUES ($1, $2, $3)
	ON CONFLICT (from_id, to_id) DO UPDATE
	SET miles = EXCLUDED.miles;
	`))
	if err != nil {
		return fmt.Errorf("save graph: prepare distance insert: %w", err)
	}
	defer distStmt.Close()

	for i, a := range locations {
		for _, b := range locations[i+1:] {
			miles := g.Distance(a.ID, b.ID)
			if math.IsInf(miles, 1) {
				continue
			}
			from, to := min(a.ID, b.ID), max(a.ID, b.ID)
			if _, err := distStmt.ExecContext(ctx, int(from), int(to), miles); err != nil {
				return fmt.Errorf("save graph: insert distance %d-%d: %w", from, to, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save graph: commit: %w", err)
	}
	return nil
}
