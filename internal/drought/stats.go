// Package drought derives yearly drought statistics from regional monthly
// SPI series: severity-class frequencies, maximum drought-spell lengths,
// and long-term trend slopes.
package drought

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/hydroclim/drought-index-etl/internal/domain"
)

// Config controls the spell computation.
type Config struct {
	// SpellThreshold marks a month as in-drought when its SPI is at or
	// below it. Zero means domain.ModerateDroughtThreshold.
	SpellThreshold float64

	// SpellCarryOver lets a drought run continue across the year boundary:
	// a spell alive at the end of December extends the run counted in the
	// following January. When false (the default), spells restart each
	// January.
	SpellCarryOver bool
}

func (c Config) threshold() float64 {
	if c.SpellThreshold == 0 {
		return domain.ModerateDroughtThreshold
	}
	return c.SpellThreshold
}

// Yearly summarizes regional monthly series into per-year statistics, one
// record per (region, year, scale) that has at least one monthly value.
// Years with fewer than twelve values still get statistics but carry the
// Partial flag so consumers never mistake a thin year for a full one.
func Yearly(series []domain.RegionalValue, cfg Config) []domain.YearlyStats {
	groups := groupByRegionScale(series)

	now := domain.Now()
	var out []domain.YearlyStats
	for _, g := range groups {
		slope := TrendSlope(g)
		spells := MaxSpellByYear(g, cfg)

		byYear := make(map[int][]domain.RegionalValue)
		for _, v := range g {
			byYear[v.Month.Year()] = append(byYear[v.Month.Year()], v)
		}

		for year, months := range byYear {
			freq := make(map[domain.Class]int, len(domain.Classes))
			var sum float64
			for _, v := range months {
				freq[v.Class]++
				sum += v.Mean
			}
			out = append(out, domain.YearlyStats{
				RegionID:    g[0].RegionID,
				Year:        year,
				Scale:       g[0].Scale,
				ClassMonths: freq,
				MeanSPI:     sum / float64(len(months)),
				MaxSpell:    spells[year],
				TrendSlope:  slope,
				Months:      len(months),
				Partial:     len(months) < 12,
				ComputedAt:  now,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.RegionID != b.RegionID {
			return a.RegionID < b.RegionID
		}
		if a.Scale != b.Scale {
			return a.Scale < b.Scale
		}
		return a.Year < b.Year
	})
	return out
}

// TrendSlope is the ordinary-least-squares slope of the regional mean SPI
// against month index over the full series, in index units per month. One
// long-term signal per (region, scale), attached to each yearly record.
// Returns 0 when fewer than two points exist.
func TrendSlope(series []domain.RegionalValue) float64 {
	if len(series) < 2 {
		return 0
	}
	xs := make([]float64, len(series))
	ys := make([]float64, len(series))
	for i, v := range series {
		xs[i] = float64(v.Month)
		ys[i] = v.Mean
	}
	_, slope := stat.LinearRegression(xs, ys, nil, false)
	return slope
}

// MaxSpellByYear computes, per year, the longest run of consecutive months
// with SPI at or below the spell threshold. Missing months break a run,
// since absence of an index says nothing about drought. Ties report the
// first run's length, which falls out of the strict comparison below. The
// input must be sorted by month (as Aggregate produces).
func MaxSpellByYear(series []domain.RegionalValue, cfg Config) map[int]int {
	threshold := cfg.threshold()
	longest := make(map[int]int)

	run := 0
	var prev domain.MonthIndex
	for i, v := range series {
		contiguous := i > 0 && v.Month == prev+1
		inDrought := v.Mean <= threshold

		switch {
		case !inDrought:
			run = 0
		case !contiguous:
			run = 1
		case !cfg.SpellCarryOver && v.Month.Month() == time.January:
			// Spell restarts at January unless carry-over is enabled.
			run = 1
		default:
			run++
		}

		if inDrought {
			year := v.Month.Year()
			if run > longest[year] {
				longest[year] = run
			}
		}
		prev = v.Month
	}
	return longest
}

// groupByRegionScale splits a mixed slice into per-(region, scale) series,
// each sorted by month, in deterministic order.
func groupByRegionScale(series []domain.RegionalValue) [][]domain.RegionalValue {
	type key struct {
		region string
		scale  domain.Scale
	}
	groups := make(map[key][]domain.RegionalValue)
	order := make([]key, 0)
	for _, v := range series {
		k := key{region: v.RegionID, scale: v.Scale}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], v)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].region != order[j].region {
			return order[i].region < order[j].region
		}
		return order[i].scale < order[j].scale
	})

	out := make([][]domain.RegionalValue, 0, len(order))
	for _, k := range order {
		g := groups[k]
		sort.Slice(g, func(i, j int) bool { return g[i].Month < g[j].Month })
		out = append(out, g)
	}
	return out
}
