package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	RatesStatic      = "static"
	RatesFrankfurter = "frankfurter"
)

type Config struct {
	Port                string
	MetricsAddr         string
	LogLevel            slog.Level
	SigningSecret       string
	WebhookURL          string
	NotificationWorkers int
	RatesSource         string
	FrankfurterURL      string
	RequestTimeout      time.Duration
}

// Load reads the optional .env file and then the process environment.
// Variables already set in the environment take precedence over .env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		MetricsAddr:    getEnv("METRICS_ADDR", ":9090"),
		SigningSecret:  getEnv("SIGNING_SECRET", ""),
		WebhookURL:     getEnv("WEBHOOK_URL", ""),
		RatesSource:    strings.ToLower(getEnv("RATES_SOURCE", RatesStatic)),
		FrankfurterURL: getEnv("FRANKFURTER_URL", "https://api.frankfurter.dev"),
	}

	var err error
	if cfg.LogLevel, err = parseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}
	if cfg.NotificationWorkers, err = getEnvInt("NOTIFICATION_WORKERS", 3); err != nil {
		return nil, err
	}
	if cfg.NotificationWorkers < 1 {
		return nil, fmt.Errorf("NOTIFICATION_WORKERS must be at least 1, got %d", cfg.NotificationWorkers)
	}
	if cfg.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	switch cfg.RatesSource {
	case RatesStatic, RatesFrankfurter:
	default:
		return nil, fmt.Errorf("RATES_SOURCE must be %q or %q, got %q", RatesStatic, RatesFrankfurter, cfg.RatesSource)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	return v, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	return v, nil
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: invalid level %q", raw)
	}
	return level, nil
}
