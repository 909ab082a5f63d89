package repositories

import (
	"context"
	"database/sql"
	"delivery-dispatch-sim/internal/domain"
	"delivery-dispatch-sim/internal/platform/db"
	"delivery-dispatch-sim/internal/platform/obs"
	"delivery-dispatch-sim/internal/ports"
	"errors"
	"fmt"
	"strings"
	"time"
)

// createdLayout is fixed-width so created_at sorts as text.
const createdLayout = "2006-01-02T15:04:05.000000000Z"

// SQL-backed implementation of the RouteRepository port. Each optimizer run
// is one route_sets row plus its ordered route_stops.
type SQLRouteRepository struct{ DB *db.DB }

func NewSQLRouteRepository(d *db.DB) *SQLRouteRepository {
	return &SQLRouteRepository{DB: d}
}

func (s *SQLRouteRepository) SaveRouteSet(ctx context.Context, set ports.SavedRouteSet) (err error) {
	defer obs.Time(ctx, "routes.SaveRouteSet")(&err)

	if s.DB == nil {
		return errors.New("sql route repository: DB is nil")
	}
	if strings.TrimSpace(set.RunID) == "" {
		return errors.New("save route set: run id must not be empty")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save route set: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.DB.Rebind(`
	INSERT INTO route_sets (run_id, created_at, fitness)
	VALUES ($1, $2, $3);
	`), set.RunID, set.CreatedAt.UTC().Format(createdLayout), set.Fitness); err != nil {
		return fmt.Errorf("save route set run_id=%s: %w", set.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, s.DB.Rebind(`
	INSERT INTO route_stops (run_id, route_index, position, location_id)
	VALUES ($1, $2, $3, $4);
	`))
	if err != nil {
		return fmt.Errorf("save route set: prepare stop insert: %w", err)
	}
	defer stmt.Close()

	for ri, r := range set.Routes {
		for pos, id := range r {
			if _, err := stmt.ExecContext(ctx, set.RunID, ri, pos, int(id)); err != nil {
				return fmt.Errorf("save route set run_id=%s route=%d: %w", set.RunID, ri, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save route set: commit tx: %w", err)
	}
	return nil
}

// LatestRouteSet returns the most recently created set.
func (s *SQLRouteRepository) LatestRouteSet(ctx context.Context) (_ ports.SavedRouteSet, ok bool, err error) {
	defer obs.Time(ctx, "routes.LatestRouteSet")(&err)

	if s.DB == nil {
		return ports.SavedRouteSet{}, false, errors.New("sql route repository: DB is nil")
	}

	var (
		set     ports.SavedRouteSet
		created string
	)
	err = s.DB.QueryRowContext(ctx, `
	SELECT run_id, created_at, fitness
	FROM route_sets
	ORDER BY created_at DESC, run_id DESC
	LIMIT 1;
	`).Scan(&set.RunID, &created, &set.Fitness)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.SavedRouteSet{}, false, nil
	}
	if err != nil {
		return ports.SavedRouteSet{}, false, fmt.Errorf("latest route set: query route_sets table: %w", err)
	}
	if set.CreatedAt, err = time.Parse(createdLayout, created); err != nil {
		return ports.SavedRouteSet{}, false, fmt.Errorf("latest route set: created_at %q: %w", created, err)
	}

	rows, err := s.DB.QueryContext(ctx, s.DB.Rebind(`
	SELECT route_index, location_id
	FROM route_stops
	WHERE run_id = $1
	ORDER BY route_index, position;
	`), set.RunID)
	if err != nil {
		return ports.SavedRouteSet{}, false, fmt.Errorf("latest route set: query route_stops table: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ri int
			id domain.LocationID
		)
		if err := rows.Scan(&ri, &id); err != nil {
			return ports.SavedRouteSet{}, false, fmt.Errorf("latest route set: scan row: %w", err)
		}
		for len(set.Routes) <= ri {
			set.Routes = append(set.Routes, domain.Route{})
		}
		set.Routes[ri] = append(set.Routes[ri], id)
	}
	if err := rows.Err(); err != nil {
		return ports.SavedRouteSet{}, false, fmt.Errorf("latest route set: row iteration: %w", err)
	}

	return set, true, nil
}
