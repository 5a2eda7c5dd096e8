package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds runtime configuration for the outcome derivation worker.
type Config struct {
	DBURL         string
	RedisURL      string
	RedisQueue    string
	WorkerCount   int
	JobBufferSize int
}

// Load builds a Config from environment variables, reading a local .env
// file first when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBURL:         os.Getenv("DB_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		RedisQueue:    os.Getenv("REDIS_QUEUE"),
		WorkerCount:   intEnv("WORKER_COUNT", 1),
		JobBufferSize: intEnv("JOB_BUFFER_SIZE", 100),
	}

	if cfg.DBURL == "" {
		return nil, fmt.Errorf("DB_URL is required")
	}

	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	if cfg.RedisQueue == "" {
		cfg.RedisQueue = "derive_outcomes"
	}

	return cfg, nil
}

func intEnv(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
