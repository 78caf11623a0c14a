// Package postgres persists computed records to Postgres for ad-hoc query
// access. It is an optional second sink alongside Kafka.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/hydroclim/drought-index-etl/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS regional_spi (
	region_id   TEXT             NOT NULL,
	scale       INTEGER          NOT NULL,
	month       TEXT             NOT NULL,
	mean        DOUBLE PRECISION NOT NULL,
	locations   INTEGER          NOT NULL,
	class       TEXT             NOT NULL,
	computed_at TIMESTAMPTZ      NOT NULL,
	PRIMARY KEY (region_id, scale, month)
);

CREATE TABLE IF NOT EXISTS drought_stats (
	region_id    TEXT             NOT NULL,
	year         INTEGER          NOT NULL,
	scale        INTEGER          NOT NULL,
	class_months JSONB            NOT NULL,
	mean_spi     DOUBLE PRECISION NOT NULL,
	max_spell    INTEGER          NOT NULL,
	trend_slope  DOUBLE PRECISION NOT NULL,
	months       INTEGER          NOT NULL,
	partial      BOOLEAN          NOT NULL,
	computed_at  TIMESTAMPTZ      NOT NULL,
	PRIMARY KEY (region_id, scale, year)
);
`

const upsertRegional = `
INSERT INTO regional_spi (region_id, scale, month, mean, locations, class, computed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (region_id, scale, month) DO UPDATE SET
	mean = EXCLUDED.mean,
	locations = EXCLUDED.locations,
	class = EXCLUDED.class,
	computed_at = EXCLUDED.computed_at
`

const upsertYearly = `
INSERT INTO drought_stats (region_id, year, scale, class_months, mean_spi, max_spell, trend_slope, months, partial, computed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (region_id, scale, year) DO UPDATE SET
	class_months = EXCLUDED.class_months,
	mean_spi = EXCLUDED.mean_spi,
	max_spell = EXCLUDED.max_spell,
	trend_slope = EXCLUDED.trend_slope,
	months = EXCLUDED.months,
	partial = EXCLUDED.partial,
	computed_at = EXCLUDED.computed_at
`

// Writer implements pipeline.ResultLoader against a Postgres database.
// Records are keyed the same way as on the Kafka sink, so re-running a
// snapshot overwrites rather than duplicates.
type Writer struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWriter opens the database, verifies connectivity, and ensures the
// schema exists.
func NewWriter(ctx context.Context, databaseURL string, logger *slog.Logger) (*Writer, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &Writer{db: db, logger: logger}, nil
}

// LoadRegional upserts regional monthly SPI records in one transaction.
func (w *Writer) LoadRegional(ctx context.Context, values []domain.RegionalValue) error {
	if len(values) == 0 {
		return nil
	}
	return w.inTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertRegional)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, v := range values {
			month, err := v.Month.MarshalText()
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx,
				v.RegionID, int(v.Scale), string(month),
				v.Mean, v.Locations, string(v.Class), v.ComputedAt,
			); err != nil {
				return fmt.Errorf("upsert regional %s: %w", v.Key(), err)
			}
		}
		return nil
	})
}

// LoadYearly upserts yearly drought statistics in one transaction.
func (w *Writer) LoadYearly(ctx context.Context, stats []domain.YearlyStats) error {
	if len(stats) == 0 {
		return nil
	}
	return w.inTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertYearly)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, s := range stats {
			classMonths, err := json.Marshal(s.ClassMonths)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx,
				s.RegionID, s.Year, int(s.Scale), classMonths,
				s.MeanSPI, s.MaxSpell, s.TrendSlope, s.Months, s.Partial, s.ComputedAt,
			); err != nil {
				return fmt.Errorf("upsert yearly %s: %w", s.Key(), err)
			}
		}
		return nil
	})
}

func (w *Writer) Close() error {
	return w.db.Close()
}

func (w *Writer) inTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			w.logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}
	return tx.Commit()
}
