package main

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config contains process-wide settings sourced from the environment. The
// extraction strategy itself (queries, source selection, pacing, schedule)
// lives in the YAML file named by SourcesPath.
type Config struct {
	DatabaseURL    string
	SourcesPath    string
	GenAIKey       string
	LogLevel       string
	LogFormat      string
	RetentionSweep bool
}

func loadConfig() (Config, error) {
	_ = godotenv.Load("config/local.env")

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return Config{}, errors.New("DATABASE_URL env var is required")
	}

	sweep, _ := strconv.ParseBool(envOrDefault("RETENTION_SWEEP", "false"))

	return Config{
		DatabaseURL:    dsn,
		SourcesPath:    envOrDefault("SOURCES_PATH", "config/sources.yaml"),
		GenAIKey:       os.Getenv("GENAI_API_KEY"),
		LogLevel:       envOrDefault("LOG_LEVEL", "info"),
		LogFormat:      envOrDefault("LOG_FORMAT", "json"),
		RetentionSweep: sweep,
	}, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
