// Command validate runs the full SPI computation offline against CSV
// fixtures, without Kafka, and writes the results as CSVs. It is the
// harness for checking methodology changes against reference output.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -precip data/precipitation.csv \
//	  -mapping data/region_mapping.csv \
//	  -out-dir out
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hydroclim/drought-index-etl/internal/domain"
	"github.com/hydroclim/drought-index-etl/internal/drought"
	"github.com/hydroclim/drought-index-etl/internal/pipeline"
	"github.com/hydroclim/drought-index-etl/internal/region"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	precipPath := flag.String("precip", "", "path to precipitation CSV (location_id, month, amount_mm)")
	mappingPath := flag.String("mapping", "", "path to region mapping CSV (location_id, region_id)")
	outDir := flag.String("out-dir", "out", "output directory for result CSVs")
	scalesFlag := flag.String("scales", "1,3,6,12", "comma-separated accumulation scales in months")
	minFitSample := flag.Int("min-fit-sample", 0, "minimum positive observations per calendar-month fit (0 for default)")
	carryOver := flag.Bool("spell-carry-over", false, "let drought spells carry across year boundaries")
	flag.Parse()

	if *precipPath == "" || *mappingPath == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -precip, -mapping")
	}

	scales, err := domain.ParseScales(strings.Split(*scalesFlag, ","))
	if err != nil {
		return fmt.Errorf("parse -scales: %w", err)
	}

	// Fixed clock so reruns against reference output diff cleanly.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(clockwork.NewRealClock())

	series, err := loadPrecipCSV(*precipPath)
	if err != nil {
		return fmt.Errorf("load precipitation: %w", err)
	}
	mapping, err := region.LoadMapping(*mappingPath)
	if err != nil {
		return fmt.Errorf("load mapping: %w", err)
	}

	cfg := pipeline.ComputeConfig{
		Scales:       scales,
		MinFitSample: *minFitSample,
		Spell:        drought.Config{SpellCarryOver: *carryOver},
	}
	result, err := pipeline.Compute(context.Background(), series, mapping, cfg)
	if err != nil {
		return fmt.Errorf("compute: %w", err)
	}

	log.Printf("computed: %d locations, %d index values, %d regional records, %d yearly records",
		result.Locations, result.SPIValues, len(result.Regional), len(result.Yearly))

	if err := writeRegionalCSV(filepath.Join(*outDir, "regional_spi.csv"), result.Regional); err != nil {
		return fmt.Errorf("write regional CSV: %w", err)
	}
	if err := writeYearlyCSV(filepath.Join(*outDir, "drought_stats.csv"), result.Yearly); err != nil {
		return fmt.Errorf("write yearly CSV: %w", err)
	}
	log.Printf("results written to %s", *outDir)
	return nil
}

// loadPrecipCSV reads long-format monthly precipitation and assembles one
// validated series per location. Rows may arrive in any order; each
// location's months must be contiguous once sorted.
func loadPrecipCSV(path string) ([]domain.LocationSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 3
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("no data rows in %s", path)
	}

	byLocation := make(map[string][]domain.Observation)
	for i, row := range rows[1:] {
		line := i + 2
		id := strings.TrimSpace(row[0])
		month, err := domain.ParseMonth(strings.TrimSpace(row[1]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: amount: %w", line, err)
		}
		byLocation[id] = append(byLocation[id], domain.Observation{Month: month, Amount: amount})
	}

	series := make([]domain.LocationSeries, 0, len(byLocation))
	for id, obs := range byLocation {
		sort.Slice(obs, func(i, j int) bool { return obs[i].Month < obs[j].Month })
		s, err := domain.NewLocationSeries(id, obs)
		if err != nil {
			return nil, fmt.Errorf("location %s: %w", id, err)
		}
		series = append(series, s)
	}
	domain.SortSeries(series)
	return series, nil
}

func writeRegionalCSV(path string, values []domain.RegionalValue) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"region_id", "scale", "month", "mean_spi", "locations", "class"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, v := range values {
		row := []string{
			v.RegionID,
			strconv.Itoa(int(v.Scale)),
			v.Month.String(),
			strconv.FormatFloat(v.Mean, 'f', 4, 64),
			strconv.Itoa(v.Locations),
			string(v.Class),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeYearlyCSV(path string, stats []domain.YearlyStats) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"region_id", "scale", "year", "mean_spi", "max_spell", "trend_slope", "months", "partial"}
	for _, c := range domain.Classes {
		header = append(header, string(c))
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, s := range stats {
		row := []string{
			s.RegionID,
			strconv.Itoa(int(s.Scale)),
			strconv.Itoa(s.Year),
			strconv.FormatFloat(s.MeanSPI, 'f', 4, 64),
			strconv.Itoa(s.MaxSpell),
			strconv.FormatFloat(s.TrendSlope, 'e', 6, 64),
			strconv.Itoa(s.Months),
			strconv.FormatBool(s.Partial),
		}
		for _, c := range domain.Classes {
			row = append(row, strconv.Itoa(s.ClassMonths[c]))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func createFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.Create(path)
}
