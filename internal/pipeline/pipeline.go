// Package pipeline orchestrates the drought-index ETL: snapshot extraction,
// the pure compute core, and result loading.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hydroclim/drought-index-etl/internal/domain"
	"github.com/hydroclim/drought-index-etl/internal/observability"
	"github.com/hydroclim/drought-index-etl/internal/region"
)

// SnapshotExtractor reads the current full set of location series from the
// source. An empty slice means no data is available yet.
type SnapshotExtractor interface {
	ExtractSnapshot(ctx context.Context) ([]domain.LocationSeries, error)
}

// ResultLoader writes computed records to a destination.
type ResultLoader interface {
	LoadRegional(ctx context.Context, values []domain.RegionalValue) error
	LoadYearly(ctx context.Context, stats []domain.YearlyStats) error
}

// MultiLoader fans results out to several destinations (Kafka sink plus an
// optional database), failing on the first error.
type MultiLoader []ResultLoader

func (m MultiLoader) LoadRegional(ctx context.Context, values []domain.RegionalValue) error {
	for _, l := range m {
		if err := l.LoadRegional(ctx, values); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiLoader) LoadYearly(ctx context.Context, stats []domain.YearlyStats) error {
	for _, l := range m {
		if err := l.LoadYearly(ctx, stats); err != nil {
			return err
		}
	}
	return nil
}

// Pipeline runs the extract-compute-load cycle on an interval. Every cycle
// is a full recompute: the core is a pure function of the snapshot, so a
// failed cycle can simply be retried.
type Pipeline struct {
	extractor SnapshotExtractor
	loader    ResultLoader
	mapping   region.Mapping
	compute   ComputeConfig
	interval  time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	lastRun   atomic.Pointer[RunStatus]
}

// RunStatus summarizes the most recent successful cycle.
type RunStatus struct {
	CompletedAt     time.Time `json:"completed_at"`
	Locations       int       `json:"locations"`
	RegionalRecords int       `json:"regional_records"`
	YearlyRecords   int       `json:"yearly_records"`
}

// New creates a Pipeline. interval is the idle time between successful
// cycles.
func New(e SnapshotExtractor, l ResultLoader, mapping region.Mapping, compute ComputeConfig, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		extractor: e,
		loader:    l,
		mapping:   mapping,
		compute:   compute,
		interval:  interval,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once at least one snapshot has been computed
// and loaded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no snapshot computed yet")
	}
	return nil
}

// Status reports the most recent successful cycle, or false when none has
// completed yet.
func (p *Pipeline) Status() (RunStatus, bool) {
	s := p.lastRun.Load()
	if s == nil {
		return RunStatus{}, false
	}
	return *s, true
}

// Run executes recompute cycles until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started",
		"scales", p.compute.scales(),
		"interval", p.interval,
		"regions_mapped", len(p.mapping),
	)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	// Keeps retry storms short without tight-looping through outages.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		ok, err := p.runCycle(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Error("cycle failed", "error", err)
			p.metrics.CycleErrors.Inc()
			if !sleepWithContext(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, maxBackoff)
		case !ok:
			// Nothing to compute yet; poll again after the idle interval.
			if !sleepWithContext(ctx, p.interval) {
				return nil
			}
		default:
			backoff = 200 * time.Millisecond
			if !sleepWithContext(ctx, p.interval) {
				return nil
			}
		}
	}
}

// runCycle performs one extract-compute-load pass. Returns (false, nil)
// when the source held no data.
func (p *Pipeline) runCycle(ctx context.Context) (bool, error) {
	start := time.Now()

	series, err := p.extractor.ExtractSnapshot(ctx)
	if err != nil {
		return false, err
	}
	if len(series) == 0 {
		return false, nil
	}
	p.metrics.SnapshotLocations.Set(float64(len(series)))

	result, err := Compute(ctx, series, p.mapping, p.compute)
	if err != nil {
		return false, err
	}
	p.metrics.ComputeDuration.Observe(time.Since(start).Seconds())
	p.metrics.SPIValuesComputed.Add(float64(result.SPIValues))
	p.metrics.SPIValuesUndefined.Add(float64(result.Undefined))

	if err := p.loader.LoadRegional(ctx, result.Regional); err != nil {
		return false, err
	}
	if err := p.loader.LoadYearly(ctx, result.Yearly); err != nil {
		return false, err
	}
	p.metrics.RecordsLoaded.Add(float64(len(result.Regional) + len(result.Yearly)))
	p.metrics.SnapshotsProcessed.Inc()

	p.logger.Info("cycle complete",
		"locations", result.Locations,
		"spi_values", result.SPIValues,
		"regional_records", len(result.Regional),
		"yearly_records", len(result.Yearly),
		"duration", time.Since(start),
	)
	p.lastRun.Store(&RunStatus{
		CompletedAt:     domain.Now().UTC(),
		Locations:       result.Locations,
		RegionalRecords: len(result.Regional),
		YearlyRecords:   len(result.Yearly),
	})
	p.ready.Store(true)
	return true, nil
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
