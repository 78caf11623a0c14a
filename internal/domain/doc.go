// Package domain models the Standardized Precipitation Index (SPI) pipeline:
// monthly precipitation series per grid cell, accumulated sums, standardized
// index values, regional means, and yearly drought statistics.
//
// # Data Source
//
// Precipitation series originate from a gridded monthly archive (CHIRPS or
// equivalent). The upstream ingestion service subsets the archive, flattens
// each grid cell to a monthly series, and publishes one JSON message per
// cell to the Kafka source topic:
//
//	{"location_id": "cell-31.02--98.44", "start_month": "1981-01", "values": [12.4, 0, ...]}
//
// Values are millimetres per month, contiguous from start_month. Gaps are an
// upstream data-quality defect and are rejected here, never bridged.
//
// # SPI Methodology
//
// SPI measures how anomalous an accumulated-precipitation value is relative
// to its own long-term climatology for the same calendar month:
//
//  1. Sum precipitation over a trailing window of k months (the accumulation
//     scale, k in {1,3,6,12}). The first k-1 months of a series have no
//     defined sum.
//  2. Partition the accumulated series by calendar month, so each partition
//     holds e.g. every June 3-month sum across the archive years. This
//     removes the seasonal cycle from the fit.
//  3. Within a partition, let q be the fraction of sums that are exactly
//     zero. Fit a two-parameter Gamma distribution to the strictly positive
//     sums by the Method of Moments. The Gamma distribution has no mass at
//     zero, so the dry-month probability q is modelled separately
//     (zero-inflation).
//  4. Map each sum x through the zero-inflated cumulative probability
//     H(x) = q + (1-q)*G(x; shape, scale), with H(0) = q exactly, then
//     through the standard-normal quantile function. The result is the SPI:
//     a z-score, typically within +/-3.
//
// Partitions with fewer than a minimum number of positive sums produce no
// index at all. A missing SPI is always absence, never zero: zero is a valid
// index value meaning "exactly median".
//
// # Severity Classes
//
// Monthly SPI values map to WMO-style classes used for reporting:
//
//	        SPI <= -2.0   extremely dry
//	-2.0 <  SPI <= -1.5   severely dry
//	-1.5 <  SPI <= -1.0   moderately dry
//	-1.0 <  SPI <   1.0   near normal
//	 1.0 <= SPI <   1.5   moderately wet
//	 1.5 <= SPI <   2.0   very wet
//	        SPI >=  2.0   extremely wet
//
// The moderate-drought threshold (-1.0) also defines drought spells: a spell
// is a maximal run of consecutive months with SPI at or below it.
//
// # Record Keys
//
// Output records carry natural composite keys: (region_id, month, scale)
// for regional means and (region_id, year, scale) for yearly statistics.
// Downstream writers upsert on these keys, so any stage can be re-run on the
// same inputs without duplicating data.
package domain
