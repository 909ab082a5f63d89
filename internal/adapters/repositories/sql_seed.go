package repositories

import (
	"context"
	"delivery-dispatch-sim/internal/adapters/distance"
	"delivery-dispatch-sim/internal/domain"
	"delivery-dispatch-sim/internal/platform/db"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type LocationSeed struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Zip     string `json:"zip"`
}

type CorrectionSeed struct {
	At      string `json:"at"`
	Address string `json:"address"`
	Zip     string `json:"zip"`
}

// ParcelSeed carries either canonical codes or free-text notes, or both.
type ParcelSeed struct {
	ParcelID   int             `json:"parcel_id"`
	Address    string          `json:"address"`
	Zip        string          `json:"zip"`
	Deadline   string          `json:"deadline"`
	Weight     float64         `json:"weight"`
	Codes      []string        `json:"codes"`
	Notes      string          `json:"notes"`
	Correction *CorrectionSeed `json:"correction"`
}

type SeedData struct {
	Locations []LocationSeed  `json:"locations"`
	Distances []distance.Pair `json:"distances"`
	Parcels   []ParcelSeed    `json:"parcels"`
}

// Populate the database from a JSON seed file.
func SeedFromJSON(ctx context.Context, d *db.DB, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed: read %q: %w", jsonPath, err)
	}

	var data SeedData
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed: parse json: %w", err)
	}

	return Seed(ctx, d, data)
}

// Seed validates the whole data set before writing any of it.
func Seed(ctx context.Context, d *db.DB, data SeedData) error {
	g, parcels, corrections, err := data.Build()
	if err != nil {
		return err
	}

	if err := NewSQLLocationRepository(d).SaveGraph(ctx, g); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	parcelRepo := NewSQLParcelRepository(d)
	if err := parcelRepo.SaveParcels(ctx, parcels); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if err := parcelRepo.SaveCorrections(ctx, corrections); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	return nil
}

// Build resolves the seed into a graph, parcels and corrections.
func (data SeedData) Build() (*domain.Registry, []*domain.Parcel, []domain.AddressCorrection, error) {
	locations := make([]domain.Location, 0, len(data.Locations))
	for i, l := range data.Locations {
		if strings.TrimSpace(l.Address) == "" {
			return nil, nil, nil, fmt.Errorf("seed locations: item at index %d: address cannot be empty", i+1)
		}
		locations = append(locations, domain.Location{
			ID:      domain.LocationID(l.ID),
			Name:    l.Name,
			Address: l.Address,
			Zip:     l.Zip,
		})
	}
	g, err := distance.BuildRegistry(locations, data.Distances)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("seed: %w", err)
	}

	seen := make(map[int]bool, len(data.Parcels))
	parcels := make([]*domain.Parcel, 0, len(data.Parcels))
	var corrections []domain.AddressCorrection
	for i, item := range data.Parcels {
		if item.ParcelID <= 0 {
			return nil, nil, nil, fmt.Errorf("seed parcels: invalid parcel_id at index %d: %d", i+1, item.ParcelID)
		}
		if seen[item.ParcelID] {
			return nil, nil, nil, fmt.Errorf("seed parcels: duplicate parcel_id %d", item.ParcelID)
		}
		seen[item.ParcelID] = true

		loc, err := g.ByKey(item.Address, item.Zip)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("seed parcels: parcel_id=%d: %w", item.ParcelID, err)
		}

		var deadline domain.Clock
		if dl := strings.TrimSpace(item.Deadline); dl != "" && !strings.EqualFold(dl, "EOD") {
			if deadline, err = domain.ParseClock(dl); err != nil {
				return nil, nil, nil, fmt.Errorf("seed parcels: parcel_id=%d: %w", item.ParcelID, err)
			}
		}

		codes, err := domain.ParseSpecialCodes(item.Codes)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("seed parcels: parcel_id=%d: %w", item.ParcelID, err)
		}
		noted, err := domain.TranslateNotes(item.Notes)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("seed parcels: parcel_id=%d: %w", item.ParcelID, err)
		}
		codes = append(codes, noted...)

		if c := item.Correction; c != nil {
			at, err := domain.ParseClock(c.At)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("seed parcels: parcel_id=%d correction: %w", item.ParcelID, err)
			}
			to, err := g.ByKey(c.Address, c.Zip)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("seed parcels: parcel_id=%d correction: %w", item.ParcelID, err)
			}
			corrections = append(corrections, domain.AddressCorrection{ParcelID: item.ParcelID, At: at, Destination: to.ID})
		}

		parcels = append(parcels, domain.NewParcel(item.ParcelID, loc.ID, item.Weight, deadline, codes))
	}

	return g, parcels, corrections, nil
}
