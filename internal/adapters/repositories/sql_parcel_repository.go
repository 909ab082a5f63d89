package repositories

import (
	"context"
	"delivery-dispatch-sim/internal/domain"
	"delivery-dispatch-sim/internal/platform/db"
	"delivery-dispatch-sim/internal/platform/obs"
	"errors"
	"fmt"
	"strings"
)

const codeSeparator = ";"

// SQL-backed implementation of the ParcelRepository port.
type SQLParcelRepository struct{ DB *db.DB }

func NewSQLParcelRepository(d *db.DB) *SQLParcelRepository {
	return &SQLParcelRepository{DB: d}
}

// Return all parcels stored in the database.
func (s *SQLParcelRepository) ListParcels(ctx context.Context) (_ []*domain.Parcel, err error) {
	defer obs.Time(ctx, "parcels.ListParcels")(&err)

	if s.DB == nil {
		return nil, errors.New("sql parcel repository: DB is nil")
	}

	query := `
	SELECT
		parcel_id,
		location_id,
		weight,
		deadline,
		codes
	FROM parcels
	ORDER BY parcel_id;
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list parcels: query parcels table: %w", err)
	}
	defer rows.Close()

	parcels := make([]*domain.Parcel, 0, 64)
	for rows.Next() {
		var (
			id       int
			dest     domain.LocationID
			weight   float64
			deadline string
			codes    string
		)
		if err := rows.Scan(&id, &dest, &weight, &deadline, &codes); err != nil {
			return nil, fmt.Errorf("list parcels: scan row: %w", err)
		}

		var due domain.Clock
		if deadline != "" {
			if due, err = domain.ParseClock24(deadline); err != nil {
				return nil, fmt.Errorf("list parcels: parcel_id=%d: %w", id, err)
			}
		}
		parsed, err := domain.ParseSpecialCodes(strings.Split(codes, codeSeparator))
		if err != nil {
			return nil, fmt.Errorf("list parcels: parcel_id=%d: %w", id, err)
		}
		parcels = append(parcels, domain.NewParcel(id, dest, weight, due, parsed))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list parcels: row iteration: %w", err)
	}

	return parcels, nil
}

// SaveParcels upserts parcels with their current destination and codes.
func (s *SQLParcelRepository) SaveParcels(ctx context.Context, parcels []*domain.Parcel) (err error) {
	defer obs.Time(ctx, "parcels.SaveParcels")(&err)

	if s.DB == nil {
		return errors.New("sql parcel repository: DB is nil")
	}
	if len(parcels) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save parcels: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.DB.Rebind(`
	INSERT INTO parcels (parcel_id, location_id, weight, deadline, codes)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (parcel_id) DO UPDATE
	SET location_id = EXCLUDED.location_id,
		weight = EXCLUDED.weight,
		deadline = EXCLUDED.deadline,
		codes = EXCLUDED.codes;
	`))
	if err != nil {
		return fmt.Errorf("save parcels: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range parcels {
		deadline := ""
		if p.HasDeadline() {
			deadline = p.Deadline.HMS()
		}
		codes := strings.Join(domain.FormatSpecialCodes(p.Codes), codeSeparator)
		if _, err := stmt.ExecContext(ctx, p.ID, int(p.Destination), p.Weight, deadline, codes); err != nil {
			return fmt.Errorf("save parcels: insert parcel_id=%d: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save parcels: commit tx: %w", err)
	}
	return nil
}

// ListCorrections returns scheduled address corrections in time order.
func (s *SQLParcelRepository) ListCorrections(ctx context.Context) (_ []domain.AddressCorrection, err error) {
	defer obs.Time(ctx, "parcels.ListCorrections")(&err)

	if s.DB == nil {
		return nil, errors.New("sql parcel repository: DB is nil")
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT parcel_id, correct_at, location_id
	FROM parcel_corrections
	ORDER BY correct_at, parcel_id;
	`)
	if err != nil {
		return nil, fmt.Errorf("list corrections: query parcel_corrections table: %w", err)
	}
	defer rows.Close()

	var out []domain.AddressCorrection
	for rows.Next() {
		var (
			c  domain.AddressCorrection
			at string
		)
		if err := rows.Scan(&c.ParcelID, &at, &c.Destination); err != nil {
			return nil, fmt.Errorf("list corrections: scan row: %w", err)
		}
		if c.At, err = domain.ParseClock24(at); err != nil {
			return nil, fmt.Errorf("list corrections: parcel_id=%d: %w", c.ParcelID, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list corrections: row iteration: %w", err)
	}
	return out, nil
}

func (s *SQLParcelRepository) SaveCorrections(ctx context.Context, corrections []domain.AddressCorrection) (err error) {
	defer obs.Time(ctx, "parcels.SaveCorrections")(&err)

	if s.DB == nil {
		return errors.New("sql parcel repository: DB is nil")
	}
	if len(corrections) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save corrections: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.DB.Rebind(`
	INSERT INTO parcel_corrections (parcel_id, correct_at, location_id)
	VALUES ($1, $2, $3)
	ON CONFLICT (parcel_id) DO UPDATE
	SET correct_at = EXCLUDED.correct_at,
		location_id = EXCLUDED.location_id;
	`))
	if err != nil {
		return fmt.Errorf("save corrections: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range corrections {
		if _, err := stmt.ExecContext(ctx, c.ParcelID, c.At.HMS(), int(c.Destination)); err != nil {
			return fmt.Errorf("save corrections: insert parcel_id=%d: %w", c.ParcelID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save corrections: commit tx: %w", err)
	}
	return nil
}
