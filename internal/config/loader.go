package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for the booking service.
type Config struct {
	HTTPPort  int
	SQLiteDSN string

	JWTSecret  string
	SessionTTL time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	AllowedDomain      string

	AvailabilityConcurrency int
	ProviderTimeout         time.Duration

	// SessionSweepSchedule is a cron expression controlling expired session
	// cleanup.
	SessionSweepSchedule string

	// Timezone is the IANA location slots are generated in.
	Timezone string
}

// Load parses configuration values from the current process environment.
// A .env file in the working directory is read first when present.
//
// The loader applies sensible defaults for optional fields while validating
// required values and accumulating every problem into a single error.
func Load() (Config, error) {
	// Missing .env is fine; real deployments configure the environment directly.
	_ = godotenv.Load()

	cfg := Config{
		HTTPPort:                8080,
		SQLiteDSN:               "scheduler.db",
		SessionTTL:              7 * 24 * time.Hour,
		AvailabilityConcurrency: 10,
		ProviderTimeout:         5 * time.Second,
		SessionSweepSchedule:    "@hourly",
		Timezone:                "UTC",
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("SCHEDULER_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "SCHEDULER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("SCHEDULER_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if secret := strings.TrimSpace(os.Getenv("SCHEDULER_JWT_SECRET")); secret == "" {
		missing = append(missing, "SCHEDULER_JWT_SECRET")
	} else {
		cfg.JWTSecret = secret
	}

	if ttlValue := strings.TrimSpace(os.Getenv("SCHEDULER_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "SCHEDULER_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	cfg.GoogleClientID = strings.TrimSpace(os.Getenv("SCHEDULER_GOOGLE_CLIENT_ID"))
	cfg.GoogleClientSecret = strings.TrimSpace(os.Getenv("SCHEDULER_GOOGLE_CLIENT_SECRET"))
	cfg.GoogleRedirectURI = strings.TrimSpace(os.Getenv("SCHEDULER_GOOGLE_REDIRECT_URI"))
	cfg.AllowedDomain = strings.TrimSpace(os.Getenv("SCHEDULER_ALLOWED_DOMAIN"))

	if value := strings.TrimSpace(os.Getenv("SCHEDULER_AVAILABILITY_CONCURRENCY")); value != "" {
		concurrency, err := strconv.Atoi(value)
		if err != nil || concurrency <= 0 {
			invalid = append(invalid, "SCHEDULER_AVAILABILITY_CONCURRENCY")
		} else {
			cfg.AvailabilityConcurrency = concurrency
		}
	}

	if value := strings.TrimSpace(os.Getenv("SCHEDULER_PROVIDER_TIMEOUT")); value != "" {
		timeout, err := time.ParseDuration(value)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "SCHEDULER_PROVIDER_TIMEOUT")
		} else {
			cfg.ProviderTimeout = timeout
		}
	}

	if schedule := strings.TrimSpace(os.Getenv("SCHEDULER_SESSION_SWEEP_SCHEDULE")); schedule != "" {
		cfg.SessionSweepSchedule = schedule
	}

	if tz := strings.TrimSpace(os.Getenv("SCHEDULER_TIMEZONE")); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			invalid = append(invalid, "SCHEDULER_TIMEZONE")
		} else {
			cfg.Timezone = tz
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Location resolves the configured timezone. Load already validated it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
