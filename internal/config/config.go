package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Meteocat episode source.
	MeteocatBaseURL string
	MeteocatAPIKey  string
	MeteocatTimeout time.Duration
	CacheTTL        time.Duration
	CacheSize       int

	// Day selection.
	Location        *time.Location
	MaxDayOffset    int
	RefreshInterval time.Duration

	// Region catalogue: a file path, or a Postgres DSN with a comarcas table.
	CatalogPath string
	DatabaseURL string

	// Optional snapshot publishing.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	meteocatTimeout, err := parsePositiveDuration("METEOCAT_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parsePositiveDuration("EPISODE_CACHE_TTL", "5m")
	if err != nil {
		return nil, err
	}

	refreshInterval, err := parsePositiveDuration("REFRESH_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(sharedcfg.EnvOrDefault("TIMEZONE", "Europe/Madrid"))
	if err != nil {
		return nil, errors.New("invalid TIMEZONE")
	}

	maxDayOffset, err := strconv.Atoi(sharedcfg.EnvOrDefault("MAX_DAY_OFFSET", "1"))
	if err != nil || maxDayOffset < 0 || maxDayOffset > 7 {
		return nil, errors.New("invalid MAX_DAY_OFFSET: must be between 0 and 7")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		MeteocatBaseURL: sharedcfg.EnvOrDefault("METEOCAT_BASE_URL", "https://api.meteo.cat"),
		MeteocatAPIKey:  os.Getenv("METEOCAT_API_KEY"),
		MeteocatTimeout: meteocatTimeout,
		CacheTTL:        cacheTTL,
		CacheSize:       parseCacheSize(),

		Location:        loc,
		MaxDayOffset:    maxDayOffset,
		RefreshInterval: refreshInterval,

		CatalogPath: os.Getenv("CATALOG_PATH"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "episode-region-levels"),
	}

	if cfg.MeteocatBaseURL == "" {
		return nil, errors.New("METEOCAT_BASE_URL is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is empty")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parseCacheSize() int {
	if s := os.Getenv("EPISODE_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 16
}
