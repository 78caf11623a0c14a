package spi

import (
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/hydroclim/drought-index-etl/internal/domain"
)

// ProbabilityEpsilon bounds cumulative probabilities away from 0 and 1
// before the normal-quantile inversion. 1e-6 keeps every index finite
// (|SPI| < 4.8) without visibly truncating real tails.
const ProbabilityEpsilon = 1e-6

// CumulativeProbability evaluates the zero-inflated CDF
// H(x) = q + (1-q)*G(x; shape, theta). For x <= 0 it returns exactly q:
// the whole dry mass sits at zero.
func (f Fit) CumulativeProbability(x float64) float64 {
	if x <= 0 {
		return f.ZeroProb
	}
	g := distuv.Gamma{Alpha: f.Shape, Beta: 1 / f.ScaleP}
	return f.ZeroProb + (1-f.ZeroProb)*g.CDF(x)
}

// Index maps an accumulated sum to its standardized index: the standard-
// normal quantile of the clipped cumulative probability.
func (f Fit) Index(x float64) float64 {
	h := f.CumulativeProbability(x)
	if h < ProbabilityEpsilon {
		h = ProbabilityEpsilon
	} else if h > 1-ProbabilityEpsilon {
		h = 1 - ProbabilityEpsilon
	}
	return distuv.UnitNormal.Quantile(h)
}

// Estimator converts accumulated series into SPI values, fitting each
// calendar-month partition independently. Deterministic: the same series
// and scale always produce the same fits and the same values.
type Estimator struct {
	// MinFitSample is the minimum positive observations per partition;
	// zero means DefaultMinFitSample.
	MinFitSample int
}

// Estimate returns the defined SPI values for one accumulated series, in
// month order. Partitions that cannot be fitted (thin or degenerate
// samples, including the all-zero case) contribute nothing: their months
// are absent from the result, not reported as an extreme finite value.
func (e Estimator) Estimate(acc domain.AccumulatedSeries) []domain.SPIValue {
	if acc.Empty() {
		return nil
	}

	fits := e.FitMonths(acc)

	values := make([]domain.SPIValue, 0, len(acc.Sums))
	for i, sum := range acc.Sums {
		fit, ok := fits[acc.Month(i).Month()]
		if !ok {
			continue
		}
		values = append(values, domain.SPIValue{
			LocationID: acc.LocationID,
			Month:      acc.Month(i),
			Scale:      acc.Scale,
			Value:      fit.Index(sum),
		})
	}
	return values
}

// FitMonths fits every calendar-month partition of the accumulated series,
// returning only the partitions with a defined fit.
func (e Estimator) FitMonths(acc domain.AccumulatedSeries) map[time.Month]Fit {
	partitions := make(map[time.Month][]float64, 12)
	for i, sum := range acc.Sums {
		m := acc.Month(i).Month()
		partitions[m] = append(partitions[m], sum)
	}

	fits := make(map[time.Month]Fit, len(partitions))
	for m, sums := range partitions {
		if fit, ok := FitPartition(sums, e.MinFitSample); ok {
			fits[m] = fit
		}
	}
	return fits
}
