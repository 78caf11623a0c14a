package spi

import (
	"math"

	"github.com/montanaflynn/stats"
)

// DefaultMinFitSample is the minimum number of strictly positive sums a
// calendar-month partition needs before its Gamma fit is trusted. Below
// this the partition produces no index values at all. Long archives may
// raise it (the reference climatology used 24, one per year of record).
const DefaultMinFitSample = 10

// Fit holds the zero-inflated Gamma parameters for one calendar-month
// partition of one (location, scale). A plain immutable value: the same
// shape applies to every partition, so there is no need for anything richer.
type Fit struct {
	ZeroProb float64 // probability mass at exactly zero, in [0,1]
	Shape    float64 // Gamma shape k, > 0
	ScaleP   float64 // Gamma scale theta, > 0
}

// FitPartition estimates the zero-inflation probability and Method-of-
// Moments Gamma parameters from one calendar-month partition of accumulated
// sums. It returns ok=false when fewer than minSample positive values exist
// or the moments are degenerate. An undefined fit leaves every observation
// in the partition unindexed.
func FitPartition(sums []float64, minSample int) (Fit, bool) {
	if minSample < 1 {
		minSample = DefaultMinFitSample
	}
	if len(sums) == 0 {
		return Fit{}, false
	}

	positive := make([]float64, 0, len(sums))
	zeros := 0
	for _, v := range sums {
		if v > 0 {
			positive = append(positive, v)
		} else {
			zeros++
		}
	}
	if len(positive) < minSample {
		return Fit{}, false
	}

	mean, err := stats.Mean(positive)
	if err != nil {
		return Fit{}, false
	}
	variance, err := stats.SampleVariance(positive)
	if err != nil {
		return Fit{}, false
	}
	if mean <= 0 || variance <= 0 {
		// Constant positive sample: no spread to fit a distribution to.
		return Fit{}, false
	}

	shape := mean * mean / variance
	theta := variance / mean
	if !isPositiveFinite(shape) || !isPositiveFinite(theta) {
		return Fit{}, false
	}

	return Fit{
		ZeroProb: float64(zeros) / float64(len(sums)),
		Shape:    shape,
		ScaleP:   theta,
	}, true
}

func isPositiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
