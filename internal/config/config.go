// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the server and worker.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// LogFormat is "json" (default) or "text".
	LogFormat string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64

	// RedisURL selects the Redis event queue and in-flight guard. Empty means
	// an in-process queue and a local guard, which only work for a single
	// server running its own worker.
	RedisURL string

	AvailabilityURL    string
	AvailabilityAPIKey string

	RoutingURL    string
	RoutingAPIKey string
	OptimizerURL  string

	PushURL    string
	PushAPIKey string

	SMTP SMTP

	// TourTimezone is the IANA zone used for calendar days and for times in
	// notification text.
	TourTimezone *time.Location

	// EnableTracing turns on X-Ray segments; XRayDaemonAddr says where to send them.
	EnableTracing  bool
	XRayDaemonAddr string

	// ShutdownTimeout bounds graceful shutdown. Defaults to 15s.
	ShutdownTimeout time.Duration
}

// SMTP configures outbound email. An empty Host disables email.
type SMTP struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// Load reads configuration from environment variables and returns a Config.
// A .env file in the working directory is loaded first when present; real
// environment variables win over it. Returns an error listing any required
// variables that are not set or any values that do not parse.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config.Load: .env: %w", err)
	}

	cfg := Config{
		Port:               getEnv("PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		CORSOrigins:        splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		RedisURL:           os.Getenv("REDIS_URL"),
		AvailabilityURL:    os.Getenv("AVAILABILITY_URL"),
		AvailabilityAPIKey: os.Getenv("AVAILABILITY_API_KEY"),
		RoutingURL:         os.Getenv("ROUTING_URL"),
		RoutingAPIKey:      os.Getenv("ROUTING_API_KEY"),
		OptimizerURL:       os.Getenv("OPTIMIZER_URL"),
		PushURL:            os.Getenv("PUSH_URL"),
		PushAPIKey:         os.Getenv("PUSH_API_KEY"),
		SMTP: SMTP{
			Host: os.Getenv("SMTP_HOST"),
			User: os.Getenv("SMTP_USER"),
			Pass: os.Getenv("SMTP_PASS"),
			From: getEnv("SMTP_FROM", "tours@localhost"),
		},
		XRayDaemonAddr: getEnv("XRAY_DAEMON_ADDR", "127.0.0.1:2000"),
	}

	var missing, invalid []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	var err error
	if cfg.MaxBodyBytes, err = strconv.ParseInt(getEnv("MAX_BODY_BYTES", "1048576"), 10, 64); err != nil || cfg.MaxBodyBytes <= 0 {
		invalid = append(invalid, "MAX_BODY_BYTES")
	}
	if cfg.SMTP.Port, err = strconv.Atoi(getEnv("SMTP_PORT", "587")); err != nil {
		invalid = append(invalid, "SMTP_PORT")
	}
	if cfg.TourTimezone, err = time.LoadLocation(getEnv("TOUR_TIMEZONE", "America/New_York")); err != nil {
		invalid = append(invalid, "TOUR_TIMEZONE")
	}
	if cfg.EnableTracing, err = strconv.ParseBool(getEnv("ENABLE_TRACING", "false")); err != nil {
		invalid = append(invalid, "ENABLE_TRACING")
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "15s")); err != nil {
		invalid = append(invalid, "SHUTDOWN_TIMEOUT")
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		invalid = append(invalid, "LOG_FORMAT")
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", ")))
	}
	if len(invalid) > 0 {
		errs = append(errs, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", ")))
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
