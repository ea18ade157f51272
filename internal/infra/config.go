package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Processor backends selectable through PROCESSOR.
const (
	ProcessorSynthetic = "synthetic"
	ProcessorRemote    = "remote"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	LogLevel         string
	Port             string
	DatabaseURL      string
	StoragePath      string
	StyleCatalogPath string

	Processor         string
	ProcessorBaseURL  string
	ProcessorAPIKey   string
	ProcessingDelay   time.Duration
	ProcessingTimeout time.Duration

	AdSaveProbability  float64
	AdShareProbability float64
	AdMinGap           int

	HistoryLoadLimit int

	SessionIdleTTL       time.Duration
	SessionSweepInterval time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:               getEnv("APP_ENV", "development"),
		Port:                 getEnv("PORT", "8080"),
		DatabaseURL:          strings.TrimSpace(os.Getenv("DATABASE_URL")),
		StoragePath:          getEnv("STORAGE_PATH", "./storage"),
		StyleCatalogPath:     strings.TrimSpace(os.Getenv("STYLE_CATALOG_PATH")),
		Processor:            strings.ToLower(getEnv("PROCESSOR", ProcessorSynthetic)),
		ProcessorBaseURL:     os.Getenv("PROCESSOR_BASE_URL"),
		ProcessorAPIKey:      os.Getenv("PROCESSOR_API_KEY"),
		ProcessingDelay:      time.Millisecond * time.Duration(getEnvInt("PROCESSING_DELAY_MS", 1500)),
		ProcessingTimeout:    time.Second * time.Duration(getEnvInt("PROCESSING_TIMEOUT_SECONDS", 30)),
		AdSaveProbability:    getEnvProbability("AD_SAVE_PROBABILITY", 0.5),
		AdShareProbability:   getEnvProbability("AD_SHARE_PROBABILITY", 0.3),
		AdMinGap:             getEnvInt("AD_MIN_GAP", 0),
		HistoryLoadLimit:     getEnvInt("HISTORY_LOAD_LIMIT", 200),
		SessionIdleTTL:       time.Second * time.Duration(getEnvInt("SESSION_IDLE_TTL_SECONDS", 1800)),
		SessionSweepInterval: time.Second * time.Duration(getEnvInt("SESSION_SWEEP_INTERVAL_SECONDS", 60)),
		HTTPReadTimeout:      time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:     time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:      time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:      getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
	}

	defaultLevel := "info"
	if cfg.AppEnv == "development" {
		defaultLevel = "debug"
	}
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", defaultLevel))

	switch cfg.Processor {
	case ProcessorSynthetic:
	case ProcessorRemote:
		if strings.TrimSpace(cfg.ProcessorBaseURL) == "" {
			return nil, fmt.Errorf("PROCESSOR_BASE_URL is required when PROCESSOR=%s", ProcessorRemote)
		}
	default:
		return nil, fmt.Errorf("unsupported PROCESSOR %q", cfg.Processor)
	}

	if cfg.AdMinGap < 0 {
		cfg.AdMinGap = 0
	}
	if cfg.SessionIdleTTL < 0 {
		cfg.SessionIdleTTL = 0
	}

	return cfg, nil
}

// PersistenceEnabled reports whether history and entitlements go to PostgreSQL.
func (c *Config) PersistenceEnabled() bool {
	return c != nil && c.DatabaseURL != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvProbability parses a float and clamps it to [0,1].
func getEnvProbability(key string, fallback float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fallback
	}
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
