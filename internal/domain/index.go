package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Scale is an accumulation window length in months.
type Scale int

// DefaultScales are the accumulation windows computed when none are
// configured, matching the standard SPI products (monthly, seasonal,
// half-year, annual).
var DefaultScales = []Scale{1, 3, 6, 12}

// ParseScales parses a comma-free list of scale strings, e.g. ["1","3"].
func ParseScales(fields []string) ([]Scale, error) {
	scales := make([]Scale, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid accumulation scale %q", f)
		}
		scales = append(scales, Scale(n))
	}
	return scales, nil
}

// Class is a WMO-style SPI severity class.
type Class string

const (
	ClassExtremelyDry  Class = "extremely_dry"
	ClassSeverelyDry   Class = "severely_dry"
	ClassModeratelyDry Class = "moderately_dry"
	ClassNearNormal    Class = "near_normal"
	ClassModeratelyWet Class = "moderately_wet"
	ClassVeryWet       Class = "very_wet"
	ClassExtremelyWet  Class = "extremely_wet"
)

// Classes lists all severity classes from driest to wettest.
var Classes = []Class{
	ClassExtremelyDry,
	ClassSeverelyDry,
	ClassModeratelyDry,
	ClassNearNormal,
	ClassModeratelyWet,
	ClassVeryWet,
	ClassExtremelyWet,
}

// ModerateDroughtThreshold is the class boundary that also defines drought
// spells: a month belongs to a spell when its SPI is at or below it.
const ModerateDroughtThreshold = -1.0

// Classify maps an SPI value to its severity class using the fixed WMO-style
// thresholds documented in the package comment. Thresholds are a
// methodology constant, not a tunable.
func Classify(spi float64) Class {
	switch {
	case spi <= -2.0:
		return ClassExtremelyDry
	case spi <= -1.5:
		return ClassSeverelyDry
	case spi <= -1.0:
		return ClassModeratelyDry
	case spi < 1.0:
		return ClassNearNormal
	case spi < 1.5:
		return ClassModeratelyWet
	case spi < 2.0:
		return ClassVeryWet
	default:
		return ClassExtremelyWet
	}
}

// SPIValue is one defined standardized index value. Undefined values are
// never represented; they are simply absent from any collection.
type SPIValue struct {
	LocationID string     `json:"location_id"`
	Month      MonthIndex `json:"month"`
	Scale      Scale      `json:"scale"`
	Value      float64    `json:"value"`
}

// RegionalValue is the unweighted mean SPI over the region's contributing
// locations for one month and scale. Locations equals the number of
// locations with a defined SPI that month; a region-month with zero
// contributors is absent, never emitted as zero.
type RegionalValue struct {
	RegionID   string     `json:"region_id"`
	Month      MonthIndex `json:"month"`
	Scale      Scale      `json:"scale"`
	Mean       float64    `json:"mean"`
	Locations  int        `json:"locations"`
	Class      Class      `json:"class"`
	ComputedAt time.Time  `json:"computed_at"`
}

// Key returns the natural record key for upserts and Kafka message keys.
func (r RegionalValue) Key() string {
	return fmt.Sprintf("%s|%d|%s", r.RegionID, r.Scale, r.Month)
}

// YearlyStats summarizes one region-year at one scale.
//
// TrendSlope is the OLS slope of SPI against month index over the region's
// full series at this scale, not just this year: a single long-term signal
// repeated on each yearly record for downstream convenience.
type YearlyStats struct {
	RegionID    string        `json:"region_id"`
	Year        int           `json:"year"`
	Scale       Scale         `json:"scale"`
	ClassMonths map[Class]int `json:"class_months"`
	MeanSPI     float64       `json:"mean_spi"`
	MaxSpell    int           `json:"max_spell"`
	TrendSlope  float64       `json:"trend_slope"`
	Months      int           `json:"months"`
	Partial     bool          `json:"partial"` // fewer than 12 monthly values available
	ComputedAt  time.Time     `json:"computed_at"`
}

// Key returns the natural record key for upserts and Kafka message keys.
func (y YearlyStats) Key() string {
	return fmt.Sprintf("%s|%d|%d", y.RegionID, y.Scale, y.Year)
}
