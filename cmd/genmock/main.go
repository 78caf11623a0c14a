// Command genmock generates deterministic mock precipitation fixtures for
// local runs and test seeding. It draws monthly totals from seasonal Gamma
// distributions with a dry-season zero mass, the same distribution family
// the pipeline fits, so the computed indices are well behaved.
//
// Usage:
//
//	go run ./cmd/genmock -out-dir data -locations 12 -regions 3 -years 30
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/hydroclim/drought-index-etl/internal/domain"
)

// monthShape describes the precipitation regime for one calendar month:
// probability of a fully dry month plus Gamma parameters for wet months.
type monthShape struct {
	zeroProb float64
	shape    float64
	scale    float64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "data", "output directory for fixture files")
	locations := flag.Int("locations", 12, "number of locations to generate")
	regions := flag.Int("regions", 3, "number of regions to spread locations across")
	years := flag.Int("years", 30, "number of full years per location")
	startYear := flag.Int("start-year", 1991, "first year of the series")
	flag.Parse()

	if *locations < 1 || *regions < 1 || *years < 1 {
		flag.Usage()
		return fmt.Errorf("locations, regions, and years must be positive")
	}

	series := make([]domain.LocationSeries, 0, *locations)
	for i := 0; i < *locations; i++ {
		id := fmt.Sprintf("loc-%03d", i+1)
		s, err := generateSeries(id, i, *startYear, *years)
		if err != nil {
			return fmt.Errorf("generate %s: %w", id, err)
		}
		series = append(series, s)
	}

	if err := writePrecipCSV(filepath.Join(*outDir, "precipitation.csv"), series); err != nil {
		return fmt.Errorf("writing precipitation CSV: %w", err)
	}
	if err := writeMappingCSV(filepath.Join(*outDir, "region_mapping.csv"), series, *regions); err != nil {
		return fmt.Errorf("writing mapping CSV: %w", err)
	}
	if err := writeSeriesJSON(filepath.Join(*outDir, "series.json"), series); err != nil {
		return fmt.Errorf("writing series JSON: %w", err)
	}

	log.Printf("wrote %d locations x %d years to %s", *locations, *years, *outDir)
	return nil
}

// generateSeries draws one location's monthly totals. Draws come from a
// Weyl sequence mapped through the Gamma quantile function, so output is
// fully reproducible without an RNG seed convention.
func generateSeries(id string, locIndex, startYear, years int) (domain.LocationSeries, error) {
	const golden = 0.6180339887498949

	obs := make([]domain.Observation, 0, years*12)
	for y := 0; y < years; y++ {
		for m := time.January; m <= time.December; m++ {
			ms := shapeFor(m, locIndex)

			i := locIndex*years*12 + y*12 + int(m) - 1
			u := math.Mod(float64(i+1)*golden, 1)

			amount := 0.0
			if u >= ms.zeroProb {
				// Rescale u onto the wet part of the mixture.
				g := distuv.Gamma{Alpha: ms.shape, Beta: 1 / ms.scale}
				amount = g.Quantile((u - ms.zeroProb) / (1 - ms.zeroProb))
			}
			obs = append(obs, domain.Observation{
				Month:  domain.NewMonthIndex(startYear+y, m),
				Amount: amount,
			})
		}
	}
	return domain.NewLocationSeries(id, obs)
}

// shapeFor gives a Mediterranean-style regime: wet winters, dry summers
// with a large zero mass, slightly perturbed per location.
func shapeFor(m time.Month, locIndex int) monthShape {
	// Peak wetness in January, driest in July.
	seasonal := math.Cos(2 * math.Pi * float64(m-time.January) / 12)
	wetness := (seasonal + 1) / 2 // 1 in January, 0 in July

	locFactor := 1 + 0.1*float64(locIndex%5)
	return monthShape{
		zeroProb: 0.6 * (1 - wetness),
		shape:    1.2 + 2*wetness,
		scale:    (8 + 25*wetness) * locFactor,
	}
}

func writePrecipCSV(path string, series []domain.LocationSeries) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"location_id", "month", "amount_mm"}); err != nil {
		return err
	}
	for _, s := range series {
		for i, v := range s.Values {
			row := []string{s.LocationID, s.Month(i).String(), fmt.Sprintf("%.2f", v)}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

func writeMappingCSV(path string, series []domain.LocationSeries, regions int) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"location_id", "region_id"}); err != nil {
		return err
	}
	for i, s := range series {
		region := fmt.Sprintf("region-%02d", i%regions+1)
		if err := w.Write([]string{s.LocationID, region}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// writeSeriesJSON emits the raw message payloads the ingestion service
// would publish, one per location, for seeding a local source topic.
func writeSeriesJSON(path string, series []domain.LocationSeries) error {
	records := make([]domain.RawSeriesRecord, len(series))
	for i, s := range series {
		records[i] = domain.RawSeriesRecord{
			LocationID: s.LocationID,
			StartMonth: s.Start.String(),
			Values:     s.Values,
		}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func createFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.Create(path)
}
