package pipeline

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hydroclim/drought-index-etl/internal/domain"
	"github.com/hydroclim/drought-index-etl/internal/drought"
	"github.com/hydroclim/drought-index-etl/internal/region"
	"github.com/hydroclim/drought-index-etl/internal/spi"
)

// ComputeConfig parameterizes one full recompute.
type ComputeConfig struct {
	Scales       []domain.Scale // nil means domain.DefaultScales
	MinFitSample int            // zero means spi.DefaultMinFitSample
	Spell        drought.Config
}

func (c ComputeConfig) scales() []domain.Scale {
	if len(c.Scales) == 0 {
		return domain.DefaultScales
	}
	return c.Scales
}

// Result is the output of one full recompute plus bookkeeping counters for
// observability.
type Result struct {
	Regional []domain.RegionalValue
	Yearly   []domain.YearlyStats

	Locations int // location series processed
	SPIValues int // defined index values across all locations and scales
	Undefined int // accumulated months left without an index
}

// Compute runs the whole core on a snapshot: accumulate and estimate per
// location and scale, aggregate per region, then derive yearly statistics.
// Pure function of its inputs: identical snapshots produce identical
// results, so the surrounding pipeline can re-run it idempotently.
//
// Locations are independent, as are regions, so both phases fan out across
// a bounded worker group.
func Compute(ctx context.Context, series []domain.LocationSeries, mapping region.Mapping, cfg ComputeConfig) (Result, error) {
	for _, s := range series {
		if err := s.Validate(); err != nil {
			return Result{}, err
		}
	}
	if err := mapping.Validate(series); err != nil {
		return Result{}, err
	}

	// Deterministic processing order regardless of snapshot arrival order.
	sorted := make([]domain.LocationSeries, len(series))
	copy(sorted, series)
	domain.SortSeries(sorted)

	estimator := spi.Estimator{MinFitSample: cfg.MinFitSample}
	scales := cfg.scales()

	var (
		mu        sync.Mutex
		values    []domain.SPIValue
		undefined int
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, s := range sorted {
		s := s
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			local := make([]domain.SPIValue, 0, len(s.Values)*len(scales))
			possible := 0
			for _, scale := range scales {
				acc, err := spi.Accumulate(s, scale)
				if err != nil {
					return err
				}
				possible += len(acc.Sums)
				local = append(local, estimator.Estimate(acc)...)
			}
			mu.Lock()
			values = append(values, local...)
			undefined += possible - len(local)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	regional := region.Aggregate(values, mapping)
	yearly, err := yearlyByRegion(ctx, regional, cfg.Spell)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Regional:  regional,
		Yearly:    yearly,
		Locations: len(sorted),
		SPIValues: len(values),
		Undefined: undefined,
	}, nil
}

// yearlyByRegion fans the yearly statistics out across regions. Aggregate
// output is sorted, so slicing it into per-region runs is a single scan;
// drought.Yearly keeps scales apart itself.
func yearlyByRegion(ctx context.Context, regional []domain.RegionalValue, spell drought.Config) ([]domain.YearlyStats, error) {
	var runs [][]domain.RegionalValue
	start := 0
	for i := 1; i <= len(regional); i++ {
		if i == len(regional) || regional[i].RegionID != regional[start].RegionID {
			runs = append(runs, regional[start:i])
			start = i
		}
	}

	results := make([][]domain.YearlyStats, len(runs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, run := range runs {
		i, run := i, run
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = drought.Yearly(run, spell)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []domain.YearlyStats
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}
