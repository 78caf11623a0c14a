package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
)

// Structural input violations. These are the only fatal conditions in the
// pipeline; everything else (missing history, thin samples) is expressed as
// absence of output.
var (
	ErrEmptyLocationID   = errors.New("empty location id")
	ErrEmptySeries       = errors.New("series has no observations")
	ErrDuplicateMonth    = errors.New("duplicate month index")
	ErrNonContiguous     = errors.New("gap in monthly series")
	ErrNonMonotonic      = errors.New("month indices not strictly increasing")
	ErrInvalidAmount     = errors.New("precipitation amount negative or not finite")
	ErrUnknownLocation   = errors.New("region mapping references unknown location id")
	ErrUnmappedLocations = errors.New("no locations covered by region mapping")
)

// RawSeriesRecord is the flat JSON structure published by the ingestion
// service: one message per grid cell, the full monthly series, contiguous
// from StartMonth.
type RawSeriesRecord struct {
	LocationID string    `json:"location_id"`
	StartMonth string    `json:"start_month"` // "YYYY-MM"
	Values     []float64 `json:"values"`      // mm per month
}

// Observation is a single (month, amount) point used when series arrive as
// explicit rows (CSV input) rather than as a packed array.
type Observation struct {
	Month  MonthIndex
	Amount float64
}

// LocationSeries is a validated, contiguous monthly precipitation series for
// one location. Contiguity is structural: Values[i] belongs to Start+i.
type LocationSeries struct {
	LocationID string
	Start      MonthIndex
	Values     []float64
}

// ParseRawSeries deserializes and validates an ingestion message.
func ParseRawSeries(value []byte) (LocationSeries, error) {
	var rec RawSeriesRecord
	if err := json.Unmarshal(value, &rec); err != nil {
		return LocationSeries{}, fmt.Errorf("parse raw series: %w", err)
	}
	start, err := ParseMonth(rec.StartMonth)
	if err != nil {
		return LocationSeries{}, fmt.Errorf("parse raw series: %w", err)
	}
	s := LocationSeries{LocationID: rec.LocationID, Start: start, Values: rec.Values}
	if err := s.Validate(); err != nil {
		return LocationSeries{}, err
	}
	return s, nil
}

// NewLocationSeries builds a series from explicit observations, enforcing
// the input contract: strictly increasing month indices with no gaps.
func NewLocationSeries(locationID string, obs []Observation) (LocationSeries, error) {
	if locationID == "" {
		return LocationSeries{}, ErrEmptyLocationID
	}
	if len(obs) == 0 {
		return LocationSeries{}, fmt.Errorf("location %s: %w", locationID, ErrEmptySeries)
	}
	values := make([]float64, len(obs))
	for i, o := range obs {
		if i > 0 {
			switch d := o.Month - obs[i-1].Month; {
			case d == 0:
				return LocationSeries{}, fmt.Errorf("location %s at %s: %w", locationID, o.Month, ErrDuplicateMonth)
			case d < 0:
				return LocationSeries{}, fmt.Errorf("location %s at %s: %w", locationID, o.Month, ErrNonMonotonic)
			case d > 1:
				return LocationSeries{}, fmt.Errorf("location %s between %s and %s: %w",
					locationID, obs[i-1].Month, o.Month, ErrNonContiguous)
			}
		}
		values[i] = o.Amount
	}
	s := LocationSeries{LocationID: locationID, Start: obs[0].Month, Values: values}
	if err := s.Validate(); err != nil {
		return LocationSeries{}, err
	}
	return s, nil
}

// Validate checks the series against the input contract.
func (s LocationSeries) Validate() error {
	if s.LocationID == "" {
		return ErrEmptyLocationID
	}
	if len(s.Values) == 0 {
		return fmt.Errorf("location %s: %w", s.LocationID, ErrEmptySeries)
	}
	for i, v := range s.Values {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("location %s at %s (value %v): %w", s.LocationID, s.Start+MonthIndex(i), v, ErrInvalidAmount)
		}
	}
	return nil
}

// Month returns the calendar month of Values[i].
func (s LocationSeries) Month(i int) MonthIndex {
	return s.Start + MonthIndex(i)
}

// End returns the last month of the series.
func (s LocationSeries) End() MonthIndex {
	return s.Start + MonthIndex(len(s.Values)-1)
}

// AccumulatedSeries is the trailing-sum series at a fixed accumulation
// scale. Start is the first month with a full window of history, so an
// input of n months yields n-k+1 sums (and none at all when n < k).
type AccumulatedSeries struct {
	LocationID string
	Scale      Scale
	Start      MonthIndex
	Sums       []float64
}

// Month returns the calendar month of Sums[i].
func (a AccumulatedSeries) Month(i int) MonthIndex {
	return a.Start + MonthIndex(i)
}

// Empty reports whether the location had too little history for even one
// full accumulation window.
func (a AccumulatedSeries) Empty() bool {
	return len(a.Sums) == 0
}

// SortSeries orders location series by id for deterministic processing.
func SortSeries(series []LocationSeries) {
	sort.Slice(series, func(i, j int) bool {
		return series[i].LocationID < series[j].LocationID
	})
}
