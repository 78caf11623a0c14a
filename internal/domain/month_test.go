package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthIndex(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		m := NewMonthIndex(1981, time.June)
		assert.Equal(t, 1981, m.Year())
		assert.Equal(t, time.June, m.Month())
		assert.Equal(t, "1981-06", m.String())
	})

	t.Run("consecutive months differ by one across year boundary", func(t *testing.T) {
		dec := NewMonthIndex(1999, time.December)
		jan := NewMonthIndex(2000, time.January)
		assert.Equal(t, MonthIndex(1), jan-dec)
	})

	t.Run("parse", func(t *testing.T) {
		m, err := ParseMonth("2003-11")
		require.NoError(t, err)
		assert.Equal(t, NewMonthIndex(2003, time.November), m)
	})

	t.Run("parse rejects malformed input", func(t *testing.T) {
		_, err := ParseMonth("2003/11")
		require.Error(t, err)
		_, err = ParseMonth("2003-13")
		require.Error(t, err)
	})
}

func TestMonthIndexJSON(t *testing.T) {
	type rec struct {
		Month MonthIndex `json:"month"`
	}

	data, err := json.Marshal(rec{Month: NewMonthIndex(1995, time.March)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"month":"1995-03"}`, string(data))

	var decoded rec
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, NewMonthIndex(1995, time.March), decoded.Month)
}
