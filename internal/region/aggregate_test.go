package region

import (
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydroclim/drought-index-etl/internal/domain"
)

func TestReadMapping(t *testing.T) {
	t.Run("valid csv", func(t *testing.T) {
		m, err := ReadMapping(strings.NewReader("location_id,region_id\ncell-1,north\ncell-2,north\ncell-3,south\n"))
		require.NoError(t, err)
		assert.Equal(t, Mapping{"cell-1": "north", "cell-2": "north", "cell-3": "south"}, m)
	})

	t.Run("repeated identical row is tolerated", func(t *testing.T) {
		m, err := ReadMapping(strings.NewReader("location_id,region_id\ncell-1,north\ncell-1,north\n"))
		require.NoError(t, err)
		assert.Len(t, m, 1)
	})

	t.Run("conflicting duplicate is rejected", func(t *testing.T) {
		_, err := ReadMapping(strings.NewReader("location_id,region_id\ncell-1,north\ncell-1,south\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mapped to both")
	})

	t.Run("empty field is rejected", func(t *testing.T) {
		_, err := ReadMapping(strings.NewReader("location_id,region_id\ncell-1,\n"))
		require.Error(t, err)
	})

	t.Run("header only", func(t *testing.T) {
		_, err := ReadMapping(strings.NewReader("location_id,region_id\n"))
		require.Error(t, err)
	})

	t.Run("wrong column count", func(t *testing.T) {
		_, err := ReadMapping(strings.NewReader("location_id,region_id\ncell-1,north,extra\n"))
		require.Error(t, err)
	})
}

func TestMappingValidate(t *testing.T) {
	series := []domain.LocationSeries{
		{LocationID: "cell-1", Values: []float64{1}},
		{LocationID: "cell-2", Values: []float64{1}},
	}

	t.Run("all mapping entries known", func(t *testing.T) {
		m := Mapping{"cell-1": "north", "cell-2": "south"}
		assert.NoError(t, m.Validate(series))
	})

	t.Run("unknown location is fatal", func(t *testing.T) {
		m := Mapping{"cell-1": "north", "cell-9": "south"}
		err := m.Validate(series)
		require.ErrorIs(t, err, domain.ErrUnknownLocation)
		assert.Contains(t, err.Error(), "cell-9")
	})

	t.Run("mapping covering nothing is fatal", func(t *testing.T) {
		m := Mapping{}
		require.ErrorIs(t, m.Validate(series), domain.ErrUnmappedLocations)
	})
}

func TestAggregate(t *testing.T) {
	frozen := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(frozen))
	t.Cleanup(func() { domain.SetClock(nil) })

	june := domain.NewMonthIndex(2001, time.June)
	mapping := Mapping{"cell-1": "north", "cell-2": "north", "cell-3": "south"}

	t.Run("unweighted mean with contributor count", func(t *testing.T) {
		values := []domain.SPIValue{
			{LocationID: "cell-1", Month: june, Scale: 3, Value: -1.0},
			{LocationID: "cell-2", Month: june, Scale: 3, Value: -2.0},
			{LocationID: "cell-3", Month: june, Scale: 3, Value: 0.5},
		}

		out := Aggregate(values, mapping)
		require.Len(t, out, 2)

		north := out[0]
		assert.Equal(t, "north", north.RegionID)
		assert.Equal(t, -1.5, north.Mean)
		assert.Equal(t, 2, north.Locations)
		assert.Equal(t, domain.ClassSeverelyDry, north.Class)
		assert.Equal(t, frozen, north.ComputedAt)

		south := out[1]
		assert.Equal(t, "south", south.RegionID)
		assert.Equal(t, 0.5, south.Mean)
		assert.Equal(t, 1, south.Locations)
		assert.Equal(t, domain.ClassNearNormal, south.Class)
	})

	t.Run("undefined locations do not drag the mean", func(t *testing.T) {
		// cell-2 has no SPI for June: mean is cell-1's value alone.
		values := []domain.SPIValue{
			{LocationID: "cell-1", Month: june, Scale: 3, Value: -1.0},
		}

		out := Aggregate(values, mapping)
		require.Len(t, out, 1)
		assert.Equal(t, -1.0, out[0].Mean)
		assert.Equal(t, 1, out[0].Locations)
	})

	t.Run("region with no contributors is absent", func(t *testing.T) {
		values := []domain.SPIValue{
			{LocationID: "cell-3", Month: june, Scale: 3, Value: 0.1},
		}

		out := Aggregate(values, mapping)
		require.Len(t, out, 1)
		assert.Equal(t, "south", out[0].RegionID)
	})

	t.Run("unmapped locations are skipped", func(t *testing.T) {
		values := []domain.SPIValue{
			{LocationID: "offshore-1", Month: june, Scale: 3, Value: 2.0},
		}
		assert.Empty(t, Aggregate(values, mapping))
	})

	t.Run("output is sorted by region, scale, month", func(t *testing.T) {
		values := []domain.SPIValue{
			{LocationID: "cell-3", Month: june + 1, Scale: 3, Value: 0},
			{LocationID: "cell-3", Month: june, Scale: 3, Value: 0},
			{LocationID: "cell-3", Month: june, Scale: 1, Value: 0},
			{LocationID: "cell-1", Month: june, Scale: 12, Value: 0},
		}

		out := Aggregate(values, mapping)
		require.Len(t, out, 4)
		assert.Equal(t, "north", out[0].RegionID)
		assert.Equal(t, domain.Scale(1), out[1].Scale)
		assert.Equal(t, june, out[2].Month)
		assert.Equal(t, june+1, out[3].Month)
	})
}
