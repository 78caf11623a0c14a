package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		spi  float64
		want Class
	}{
		{-2.5, ClassExtremelyDry},
		{-2.0, ClassExtremelyDry}, // boundary belongs to the drier class
		{-1.9, ClassSeverelyDry},
		{-1.5, ClassSeverelyDry},
		{-1.2, ClassModeratelyDry},
		{-1.0, ClassModeratelyDry},
		{-0.99, ClassNearNormal},
		{0, ClassNearNormal},
		{0.99, ClassNearNormal},
		{1.0, ClassModeratelyWet},
		{1.49, ClassModeratelyWet},
		{1.5, ClassVeryWet},
		{1.99, ClassVeryWet},
		{2.0, ClassExtremelyWet},
		{3.1, ClassExtremelyWet},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.spi), "Classify(%v)", tc.spi)
	}
}

func TestParseScales(t *testing.T) {
	scales, err := ParseScales([]string{"1", "3", "12"})
	require.NoError(t, err)
	assert.Equal(t, []Scale{1, 3, 12}, scales)

	_, err = ParseScales([]string{"3", "0"})
	require.Error(t, err)

	_, err = ParseScales([]string{"six"})
	require.Error(t, err)
}

func TestRecordKeys(t *testing.T) {
	r := RegionalValue{RegionID: "reg-1", Month: NewMonthIndex(2001, 6), Scale: 3}
	assert.Equal(t, "reg-1|3|2001-06", r.Key())

	y := YearlyStats{RegionID: "reg-1", Year: 2001, Scale: 12}
	assert.Equal(t, "reg-1|12|2001", y.Key())
}
