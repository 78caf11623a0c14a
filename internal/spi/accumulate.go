// Package spi implements the Standardized Precipitation Index engine:
// trailing-window accumulation, zero-inflated Gamma fitting per calendar
// month, and the probit transform to standardized index values.
package spi

import (
	"fmt"

	"github.com/hydroclim/drought-index-etl/internal/domain"
)

// Accumulate produces the trailing sum series at the given scale. A series
// of n months yields n-k+1 sums starting at Start+k-1; when n < k the
// result is empty. Missing history is absence, never a zero-filled sum.
//
// Pure transform: the input series is already validated as contiguous, so
// one cumulative pass suffices.
func Accumulate(s domain.LocationSeries, scale domain.Scale) (domain.AccumulatedSeries, error) {
	if scale < 1 {
		return domain.AccumulatedSeries{}, fmt.Errorf("accumulation scale must be >= 1, got %d", scale)
	}
	if err := s.Validate(); err != nil {
		return domain.AccumulatedSeries{}, err
	}

	k := int(scale)
	out := domain.AccumulatedSeries{
		LocationID: s.LocationID,
		Scale:      scale,
		Start:      s.Start + domain.MonthIndex(k-1),
	}
	if len(s.Values) < k {
		return out, nil
	}

	// Each window is summed directly rather than by sliding subtraction:
	// subtraction leaves float residue in all-zero windows, and the fit
	// needs exact zeros to count the dry-month mass.
	out.Sums = make([]float64, len(s.Values)-k+1)
	for i := range out.Sums {
		var sum float64
		for _, v := range s.Values[i : i+k] {
			sum += v
		}
		out.Sums[i] = sum
	}
	return out, nil
}
