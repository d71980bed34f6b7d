package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath               string
	LogLevel             string
	BatchMaxRecords      int
	BatchMaxMemoryMB     int
	CommitRetries        int
	CommitBackoff        time.Duration
	ProgressEveryBatches int
	QueryTimeout         time.Duration
	RatingMin            int
	RatingMax            int
	MaxPlies             int
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the tool still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		DBPath:               envOr("DB_PATH", "file:chessmetrics.db"),
		LogLevel:             envOr("LOG_LEVEL", "INFO"),
		BatchMaxRecords:      envIntOr("BATCH_MAX_RECORDS", 1000),
		BatchMaxMemoryMB:     envIntOr("BATCH_MAX_MEMORY_MB", 64),
		CommitRetries:        envIntOr("COMMIT_RETRIES", 3),
		CommitBackoff:        time.Duration(envIntOr("COMMIT_BACKOFF_MS", 250)) * time.Millisecond,
		ProgressEveryBatches: envIntOr("PROGRESS_EVERY_BATCHES", 10),
		QueryTimeout:         time.Duration(envIntOr("QUERY_TIMEOUT_MS", 30000)) * time.Millisecond,
		RatingMin:            envIntOr("RATING_MIN", 1),
		RatingMax:            envIntOr("RATING_MAX", 3500),
		MaxPlies:             envIntOr("MAX_PLIES", 500),
	}
}

// Validate checks that the configuration values are usable.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.BatchMaxRecords <= 0 {
		return fmt.Errorf("BATCH_MAX_RECORDS must be positive, got %d", c.BatchMaxRecords)
	}
	if c.BatchMaxMemoryMB <= 0 {
		return fmt.Errorf("BATCH_MAX_MEMORY_MB must be positive, got %d", c.BatchMaxMemoryMB)
	}
	if c.CommitRetries < 0 {
		return fmt.Errorf("COMMIT_RETRIES cannot be negative, got %d", c.CommitRetries)
	}
	if c.CommitBackoff <= 0 {
		return fmt.Errorf("COMMIT_BACKOFF_MS must be positive, got %v", c.CommitBackoff)
	}
	if c.ProgressEveryBatches <= 0 {
		return fmt.Errorf("PROGRESS_EVERY_BATCHES must be positive, got %d", c.ProgressEveryBatches)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("QUERY_TIMEOUT_MS must be positive, got %v", c.QueryTimeout)
	}
	if c.RatingMin <= 0 || c.RatingMax < c.RatingMin {
		return fmt.Errorf("rating bounds must satisfy 0 < RATING_MIN <= RATING_MAX, got [%d, %d]", c.RatingMin, c.RatingMax)
	}
	if c.MaxPlies < 2 {
		return fmt.Errorf("MAX_PLIES must be at least 2, got %d", c.MaxPlies)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}
