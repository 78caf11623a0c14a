// Package region maps location-level SPI values onto administrative regions
// and aggregates them into regional monthly means.
package region

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/hydroclim/drought-index-etl/internal/domain"
)

// Mapping assigns each location id to exactly one region id. It is an
// external input (derived upstream from administrative boundaries); this
// service only consumes it.
type Mapping map[string]string

// LoadMapping reads a two-column CSV (location_id,region_id) with a header
// row.
func LoadMapping(path string) (Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open region mapping: %w", err)
	}
	defer f.Close()
	return ReadMapping(f)
}

// ReadMapping parses a location→region CSV from r.
func ReadMapping(r io.Reader) (Mapping, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read region mapping: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("region mapping has no data rows")
	}

	m := make(Mapping, len(rows)-1)
	for _, row := range rows[1:] {
		loc, reg := row[0], row[1]
		if loc == "" || reg == "" {
			return nil, fmt.Errorf("region mapping row with empty field: %q", row)
		}
		if existing, dup := m[loc]; dup && existing != reg {
			return nil, fmt.Errorf("location %s mapped to both %s and %s", loc, existing, reg)
		}
		m[loc] = reg
	}
	return m, nil
}

// Validate checks the mapping against the set of locations present in the
// snapshot. A mapping entry for an unknown location is a structural error:
// it means the boundary data and the precipitation archive disagree, which
// must halt the run rather than silently produce a hollow region.
func (m Mapping) Validate(series []domain.LocationSeries) error {
	known := make(map[string]struct{}, len(series))
	for _, s := range series {
		known[s.LocationID] = struct{}{}
	}
	for loc := range m {
		if _, ok := known[loc]; !ok {
			return fmt.Errorf("location %s: %w", loc, domain.ErrUnknownLocation)
		}
	}
	covered := 0
	for _, s := range series {
		if _, ok := m[s.LocationID]; ok {
			covered++
		}
	}
	if covered == 0 {
		return domain.ErrUnmappedLocations
	}
	return nil
}

// Aggregate averages SPI across all locations mapped to the same region for
// the same month and scale. Locations without a defined SPI for a month
// simply do not contribute; a region-month where nothing contributes is
// absent from the output. Pure aggregation, deterministic output order
// (region, scale, month).
func Aggregate(values []domain.SPIValue, m Mapping) []domain.RegionalValue {
	type key struct {
		region string
		scale  domain.Scale
		month  domain.MonthIndex
	}
	type acc struct {
		sum   float64
		count int
	}

	// Fix the summation order so re-runs are bit-identical even when the
	// caller produced values concurrently.
	sorted := make([]domain.SPIValue, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.LocationID != b.LocationID {
			return a.LocationID < b.LocationID
		}
		if a.Scale != b.Scale {
			return a.Scale < b.Scale
		}
		return a.Month < b.Month
	})

	groups := make(map[key]*acc)
	for _, v := range sorted {
		region, ok := m[v.LocationID]
		if !ok {
			// Locations outside every administrative boundary (offshore
			// cells) are expected and skipped.
			continue
		}
		k := key{region: region, scale: v.Scale, month: v.Month}
		g := groups[k]
		if g == nil {
			g = &acc{}
			groups[k] = g
		}
		g.sum += v.Value
		g.count++
	}

	now := domain.Now()
	out := make([]domain.RegionalValue, 0, len(groups))
	for k, g := range groups {
		mean := g.sum / float64(g.count)
		out = append(out, domain.RegionalValue{
			RegionID:   k.region,
			Month:      k.month,
			Scale:      k.scale,
			Mean:       mean,
			Locations:  g.count,
			Class:      domain.Classify(mean),
			ComputedAt: now,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.RegionID != b.RegionID {
			return a.RegionID < b.RegionID
		}
		if a.Scale != b.Scale {
			return a.Scale < b.Scale
		}
		return a.Month < b.Month
	})
	return out
}
