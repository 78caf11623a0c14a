package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRawSeries(t *testing.T) {
	t.Run("valid message", func(t *testing.T) {
		data := []byte(`{"location_id":"cell-001","start_month":"1981-01","values":[12.5,0,3.25]}`)
		s, err := ParseRawSeries(data)

		require.NoError(t, err)
		assert.Equal(t, "cell-001", s.LocationID)
		assert.Equal(t, NewMonthIndex(1981, time.January), s.Start)
		assert.Equal(t, []float64{12.5, 0, 3.25}, s.Values)
		assert.Equal(t, NewMonthIndex(1981, time.March), s.End())
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParseRawSeries([]byte("{not json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse raw series")
	})

	t.Run("bad start month", func(t *testing.T) {
		_, err := ParseRawSeries([]byte(`{"location_id":"c","start_month":"jan 1981","values":[1]}`))
		require.Error(t, err)
	})

	t.Run("negative amount", func(t *testing.T) {
		_, err := ParseRawSeries([]byte(`{"location_id":"c","start_month":"1981-01","values":[1,-2]}`))
		require.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestNewLocationSeries(t *testing.T) {
	start := NewMonthIndex(1990, time.January)

	t.Run("contiguous observations", func(t *testing.T) {
		s, err := NewLocationSeries("cell-a", []Observation{
			{Month: start, Amount: 1},
			{Month: start + 1, Amount: 2},
			{Month: start + 2, Amount: 0},
		})
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2, 0}, s.Values)
		assert.Equal(t, start+1, s.Month(1))
	})

	t.Run("gap is a structural error", func(t *testing.T) {
		_, err := NewLocationSeries("cell-a", []Observation{
			{Month: start, Amount: 1},
			{Month: start + 2, Amount: 2},
		})
		require.ErrorIs(t, err, ErrNonContiguous)
	})

	t.Run("duplicate month is a structural error", func(t *testing.T) {
		_, err := NewLocationSeries("cell-a", []Observation{
			{Month: start, Amount: 1},
			{Month: start, Amount: 2},
		})
		require.ErrorIs(t, err, ErrDuplicateMonth)
	})

	t.Run("out of order months are a structural error", func(t *testing.T) {
		_, err := NewLocationSeries("cell-a", []Observation{
			{Month: start + 1, Amount: 1},
			{Month: start, Amount: 2},
		})
		require.ErrorIs(t, err, ErrNonMonotonic)
	})

	t.Run("empty id", func(t *testing.T) {
		_, err := NewLocationSeries("", []Observation{{Month: start, Amount: 1}})
		require.ErrorIs(t, err, ErrEmptyLocationID)
	})

	t.Run("no observations", func(t *testing.T) {
		_, err := NewLocationSeries("cell-a", nil)
		require.ErrorIs(t, err, ErrEmptySeries)
	})
}

func TestLocationSeriesValidate(t *testing.T) {
	start := NewMonthIndex(1990, time.January)

	cases := []struct {
		name   string
		values []float64
		want   error
	}{
		{"zero is valid", []float64{0, 0, 0}, nil},
		{"negative", []float64{1, -0.5}, ErrInvalidAmount},
		{"NaN", []float64{math.NaN()}, ErrInvalidAmount},
		{"Inf", []float64{math.Inf(1)}, ErrInvalidAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := LocationSeries{LocationID: "cell-a", Start: start, Values: tc.values}
			err := s.Validate()
			if tc.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.want)
			}
		})
	}
}
