package config

import (
	"errors"
	"os"
	"strconv"
)

// Config is loaded once at startup and injected into the handlers. No other
// code reads the environment.
type Config struct {
	Port        string
	DatabaseURL string

	// AdminToken is the single shared secret gating every admin operation.
	AdminToken string

	SentryDSN string

	// ValidateRateLimit is the per-address request budget per minute on the
	// public validate endpoint. 0 disables rate limiting.
	ValidateRateLimit int
}

func New() (*Config, error) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "./keys.db"
	}

	adminToken := os.Getenv("ADMIN_TOKEN")
	if adminToken == "" {
		return nil, errors.New("ADMIN_TOKEN environment variable is required")
	}

	rateLimit := 60
	if raw := os.Getenv("VALIDATE_RATE_LIMIT"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return nil, errors.New("VALIDATE_RATE_LIMIT must be a non-negative integer")
		}
		rateLimit = parsed
	}

	return &Config{
		Port:              port,
		DatabaseURL:       dbURL,
		AdminToken:        adminToken,
		SentryDSN:         os.Getenv("SENTRY_DSN"),
		ValidateRateLimit: rateLimit,
	}, nil
}
