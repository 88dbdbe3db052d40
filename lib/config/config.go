package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/icco/kodflex/lib/db"
	"github.com/icco/kodflex/lib/tmdb"
	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	TMDBAPIKey      string
	TMDBBaseURL     string
	TMDBImageHost   string
	DBPath          string
	LogLevel        slog.Level
	CatalogPartial  bool
	SearchRateLimit float64
	SearchRateBurst int
	ShutdownTimeout time.Duration
}

// Load reads the configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, so tests can pass a map.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Port:            getString(getenv("PORT"), "8080"),
		TMDBAPIKey:      getenv("TMDB_API_KEY"),
		TMDBBaseURL:     getString(getenv("TMDB_BASE_URL"), tmdb.DefaultBaseURL),
		TMDBImageHost:   getString(getenv("TMDB_IMAGE_HOST"), tmdb.DefaultImageHost),
		DBPath:          getString(getenv("DB_PATH"), db.DefaultPath),
		LogLevel:        getLevel(getenv("LOG_LEVEL"), slog.LevelInfo),
		CatalogPartial:  getBool(getenv("CATALOG_PARTIAL"), false),
		SearchRateLimit: getFloat(getenv("SEARCH_RATE_LIMIT"), 5),
		SearchRateBurst: getInt(getenv("SEARCH_RATE_BURST"), 10),
		ShutdownTimeout: getDuration(getenv("SHUTDOWN_TIMEOUT"), 5*time.Second),
	}

	if cfg.TMDBAPIKey == "" {
		return nil, fmt.Errorf("TMDB_API_KEY environment variable is required")
	}
	// PORT from some hosts comes with a leading colon.
	cfg.Port = strings.TrimPrefix(cfg.Port, ":")

	return cfg, nil
}

func getString(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func getDuration(value string, defaultValue time.Duration) time.Duration {
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("Invalid duration, using default", slog.String("value", value), slog.Duration("default", defaultValue))
		return defaultValue
	}
	return d
}

func getInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("Invalid integer, using default", slog.String("value", value), slog.Int("default", defaultValue))
		return defaultValue
	}
	return i
}

func getFloat(value string, defaultValue float64) float64 {
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		slog.Warn("Invalid number, using default", slog.String("value", value), slog.Float64("default", defaultValue))
		return defaultValue
	}
	return f
}

func getBool(value string, defaultValue bool) bool {
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		slog.Warn("Invalid boolean, using default", slog.String("value", value), slog.Bool("default", defaultValue))
		return defaultValue
	}
	return b
}

func getLevel(value string, defaultValue slog.Level) slog.Level {
	if value == "" {
		return defaultValue
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		slog.Warn("Invalid log level, using default", slog.String("value", value))
		return defaultValue
	}
	return level
}
