package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultNPSTrailsAPIURL   = "https://services2.arcgis.com/FiaPA4ga0iQKduv3/arcgis/rest/services/National_Park_Service_Trails/FeatureServer/0/query"
	DefaultOpenBreweryAPIURL = "https://api.openbrewerydb.org/v1/breweries"
)

// Config is the process configuration, read once at boot from the environment
type Config struct {
	AppEnv string
	Port   string

	DatabaseURL string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	NPSTrailsAPIURL   string
	OpenBreweryAPIURL string
	UpstreamTimeout   time.Duration
	UpstreamRPS       float64

	SyncEnabled bool
	SyncDailyAt DailyTime
	SyncLockTTL time.Duration

	AdminAPIKey string
}

// DailyTime is a wall-clock time of day in the local zone
type DailyTime struct {
	Hour   int
	Minute int
}

func (d DailyTime) String() string {
	return fmt.Sprintf("%02d:%02d", d.Hour, d.Minute)
}

// ParseDailyTime parses "HH:MM" (24h)
func ParseDailyTime(s string) (DailyTime, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return DailyTime{}, fmt.Errorf("invalid daily time %q, expected HH:MM: %w", s, err)
	}
	return DailyTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// LoadDotEnv loads .env.local then .env if present. Existing env vars win.
func LoadDotEnv() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()
}

// Load reads Config from the environment
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisHost:         os.Getenv("REDIS_HOST"),
		RedisPort:         getEnv("REDIS_PORT", "6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		NPSTrailsAPIURL:   getEnv("NPS_TRAILS_API_URL", DefaultNPSTrailsAPIURL),
		OpenBreweryAPIURL: getEnv("OPEN_BREWERY_API_URL", DefaultOpenBreweryAPIURL),
		AdminAPIKey:       os.Getenv("ADMIN_API_KEY"),
	}

	if cfg.DatabaseURL == "" {
		host := os.Getenv("PG_HOST")
		if host == "" {
			return nil, fmt.Errorf("DATABASE_URL or PG_HOST must be set")
		}
		cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			os.Getenv("PG_USER"),
			os.Getenv("PG_PASSWORD"),
			host,
			getEnv("PG_PORT", "5432"),
			os.Getenv("PG_DB"),
		)
	}

	var err error
	if cfg.SyncEnabled, err = strconv.ParseBool(getEnv("SYNC_ENABLED", "true")); err != nil {
		return nil, fmt.Errorf("invalid SYNC_ENABLED: %w", err)
	}
	if cfg.SyncDailyAt, err = ParseDailyTime(getEnv("SYNC_DAILY_AT", "02:00")); err != nil {
		return nil, err
	}
	if cfg.SyncLockTTL, err = time.ParseDuration(getEnv("SYNC_LOCK_TTL", "6h")); err != nil {
		return nil, fmt.Errorf("invalid SYNC_LOCK_TTL: %w", err)
	}
	if cfg.UpstreamTimeout, err = time.ParseDuration(getEnv("UPSTREAM_TIMEOUT", "30s")); err != nil {
		return nil, fmt.Errorf("invalid UPSTREAM_TIMEOUT: %w", err)
	}
	if cfg.UpstreamRPS, err = strconv.ParseFloat(getEnv("UPSTREAM_RPS", "5"), 64); err != nil {
		return nil, fmt.Errorf("invalid UPSTREAM_RPS: %w", err)
	}
	if cfg.UpstreamRPS < 0 {
		return nil, fmt.Errorf("UPSTREAM_RPS must be >= 0, got %v", cfg.UpstreamRPS)
	}

	return cfg, nil
}

// RedisEnabled reports whether a Redis host was configured
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
