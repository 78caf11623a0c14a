package domain

import (
	"fmt"
	"time"
)

// MonthIndex is a month counted continuously from January of year 0, so
// consecutive calendar months differ by exactly 1 regardless of year
// boundaries. It is the ordering key for every series in the pipeline.
type MonthIndex int

// NewMonthIndex builds a MonthIndex from a calendar year and month.
func NewMonthIndex(year int, month time.Month) MonthIndex {
	return MonthIndex(year*12 + int(month) - 1)
}

// ParseMonth parses a "YYYY-MM" string.
func ParseMonth(s string) (MonthIndex, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, fmt.Errorf("parse month %q: %w", s, err)
	}
	return NewMonthIndex(t.Year(), t.Month()), nil
}

// Year returns the calendar year of the month.
func (m MonthIndex) Year() int {
	return int(m) / 12
}

// Month returns the calendar month (January = 1).
func (m MonthIndex) Month() time.Month {
	return time.Month(int(m)%12 + 1)
}

// String formats the month as "YYYY-MM".
func (m MonthIndex) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year(), int(m.Month()))
}

// MarshalText implements encoding.TextMarshaler so MonthIndex serializes as
// "YYYY-MM" in JSON payloads and CSV cells.
func (m MonthIndex) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *MonthIndex) UnmarshalText(b []byte) error {
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
