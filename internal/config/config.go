package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hydroclim/drought-index-etl/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaRegionalTopic string
	KafkaStatsTopic    string
	KafkaGroupID       string
	HTTPAddr           string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration

	// PollInterval is the idle time between recompute cycles;
	// SnapshotIdleTimeout is how long the reader waits for further source
	// messages before declaring the snapshot complete.
	PollInterval        time.Duration
	SnapshotIdleTimeout time.Duration

	// Methodology settings.
	Scales         []domain.Scale
	MinFitSample   int
	SpellCarryOver bool

	RegionMappingPath string

	// DatabaseURL enables the Postgres sink when set.
	DatabaseURL string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	pollInterval, err := parseDuration("POLL_INTERVAL", "15m")
	if err != nil {
		return nil, err
	}
	idleTimeout, err := parseDuration("SNAPSHOT_IDLE_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	scales, err := parseScales(envOrDefault("SPI_SCALES", "1,3,6,12"))
	if err != nil {
		return nil, err
	}

	minFitSample, err := parsePositiveInt("MIN_FIT_SAMPLE", 10)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       splitAndTrim(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   envOrDefault("KAFKA_SOURCE_TOPIC", "precipitation-series"),
		KafkaRegionalTopic: envOrDefault("KAFKA_REGIONAL_TOPIC", "regional-spi"),
		KafkaStatsTopic:    envOrDefault("KAFKA_STATS_TOPIC", "drought-stats"),
		KafkaGroupID:       envOrDefault("KAFKA_GROUP_ID", "drought-index-etl"),
		HTTPAddr:           envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFormat:          envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,

		PollInterval:        pollInterval,
		SnapshotIdleTimeout: idleTimeout,

		Scales:         scales,
		MinFitSample:   minFitSample,
		SpellCarryOver: os.Getenv("SPELL_CARRY_OVER") == "true",

		RegionMappingPath: envOrDefault("REGION_MAPPING_PATH", "data/region_mapping.csv"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaRegionalTopic == "" || cfg.KafkaStatsTopic == "" {
		return nil, errors.New("KAFKA_REGIONAL_TOPIC and KAFKA_STATS_TOPIC are required")
	}
	if cfg.RegionMappingPath == "" {
		return nil, errors.New("REGION_MAPPING_PATH is required")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseScales(s string) ([]domain.Scale, error) {
	scales, err := domain.ParseScales(splitAndTrim(s))
	if err != nil {
		return nil, fmt.Errorf("SPI_SCALES: %w", err)
	}
	if len(scales) == 0 {
		return nil, errors.New("SPI_SCALES is required")
	}
	return scales, nil
}
