package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	Port int
	Env  string

	// CORS
	AllowedOrigins []string

	// Backend URLs
	RedisURL      string
	PostgresURL   string
	ClickHouseURL string

	// Logical table names in the KV store
	EventsTable      string
	PlayerStateTable string
	DetectionsTable  string

	// Retention horizon for event and detection records
	EventTTLDays int

	// Detection thresholds
	ZScoreThreshold        float64
	MinSamplesForDetection int

	// Interesting-event thresholds
	AccuracyInterestingThreshold float64
	HeadshotInterestingThreshold float64
	MinShotsForInteresting       int
	HighDamageThreshold          float64

	// Risk score contribution bars
	AccuracyRiskThreshold float64
	HeadshotRiskThreshold float64

	// Per-request player fan-out (1 = sequential)
	PlayerConcurrency int

	// Archive worker pool
	WorkerCount   int
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
}

// Load loads configuration from environment variables.
// It returns an error if critical configuration is missing.
// Configuration is read once at process start; changes require restart.
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnvInt("PORT", 8080),
		Env:  getEnv("ENV", "development"),

		EventsTable:      getEnv("EVENTS_TABLE", "behavior-analyzer-events-dev"),
		PlayerStateTable: getEnv("PLAYER_STATE_TABLE", "behavior-analyzer-players-dev"),
		DetectionsTable:  getEnv("DETECTIONS_TABLE", "behavior-analyzer-detections-dev"),

		EventTTLDays: getEnvInt("EVENT_TTL_DAYS", 90),

		ZScoreThreshold:        getEnvFloat("ZSCORE_THRESHOLD", 3.0),
		MinSamplesForDetection: getEnvInt("MIN_SAMPLES_FOR_DETECTION", 100),

		AccuracyInterestingThreshold: getEnvFloat("ACCURACY_INTERESTING_THRESHOLD", 0.7),
		HeadshotInterestingThreshold: getEnvFloat("HEADSHOT_INTERESTING_THRESHOLD", 0.5),
		MinShotsForInteresting:       getEnvInt("MIN_SHOTS_FOR_INTERESTING", 5),
		HighDamageThreshold:          getEnvFloat("HIGH_DAMAGE_THRESHOLD", 100),

		AccuracyRiskThreshold: getEnvFloat("ACCURACY_RISK_THRESHOLD", 0.5),
		HeadshotRiskThreshold: getEnvFloat("HEADSHOT_RISK_THRESHOLD", 0.3),

		PlayerConcurrency: getEnvInt("PLAYER_CONCURRENCY", 8),

		WorkerCount:   getEnvInt("WORKER_COUNT", 4),
		QueueSize:     getEnvInt("QUEUE_SIZE", 10000),
		BatchSize:     getEnvInt("BATCH_SIZE", 500),
		FlushInterval: getEnvDuration("FLUSH_INTERVAL", 1*time.Second),
	}

	cfg.AllowedOrigins = []string{getEnv("ALLOWED_ORIGINS", "*")}

	// Critical configuration - fail if missing
	var err error
	if cfg.RedisURL, err = getEnvRequired("REDIS_URL"); err != nil {
		return nil, err
	}
	if cfg.PostgresURL, err = getEnvRequired("POSTGRES_URL"); err != nil {
		return nil, err
	}
	if cfg.ClickHouseURL, err = getEnvRequired("CLICKHOUSE_URL"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvRequired(key string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("missing required environment variable: %s", key)
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
