// Package routefile reads and writes saved route sets: one CSV record per
// route, each field a location name, hub first and last.
package routefile

import (
	"delivery-dispatch-sim/internal/domain"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Names resolves location ids and names in both directions.
type Names interface {
	Location(id domain.LocationID) (domain.Location, bool)
	ByName(name string) (domain.Location, error)
}

func Write(w io.Writer, routes []domain.Route, names Names) error {
	cw := csv.NewWriter(w)
	for i, r := range routes {
		record := make([]string, 0, len(r))
		for _, id := range r {
			loc, ok := names.Location(id)
			if !ok {
				return fmt.Errorf("write routes: route %d: location %d: %w", i, id, domain.ErrUnknownLocation)
			}
			record = append(record, loc.Name)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write routes: route %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write routes: flush: %w", err)
	}
	return nil
}

// Read parses routes and checks that each starts and ends at hub. Blank lines
// are skipped.
func Read(r io.Reader, names Names, hub domain.LocationID) ([]domain.Route, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var routes []domain.Route
	for line := 1; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read routes: %w", err)
		}

		route := make(domain.Route, 0, len(record))
		for _, name := range record {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			loc, err := names.ByName(name)
			if err != nil {
				return nil, fmt.Errorf("read routes: line %d: %w", line, err)
			}
			route = append(route, loc.ID)
		}
		if len(route) == 0 {
			continue
		}
		if !route.HubBounded(hub) {
			return nil, fmt.Errorf("read routes: line %d: route must start and end at the hub", line)
		}
		routes = append(routes, route)
	}
	return routes, nil
}

func Save(path string, routes []domain.Route, names Names) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save routes: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("save routes: close: %w", cerr)
		}
	}()
	return Write(f, routes, names)
}

// Load reads a route file. A missing file yields no routes and ok=false.
func Load(path string, names Names, hub domain.LocationID) (_ []domain.Route, ok bool, err error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load routes: %w", err)
	}
	defer f.Close()

	routes, err := Read(f, names, hub)
	if err != nil {
		return nil, false, err
	}
	return routes, true, nil
}
