// Package config loads application settings from the environment. A .env
// file in the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds all application configuration
type Config struct {
	Database      DatabaseConfig
	Log           LogConfig
	Import        ImportConfig
	Observability ObservabilityConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxConns        int
	ConnectAttempts int
}

type LogConfig struct {
	Level  string
	Format string // text or json
}

type ImportConfig struct {
	// Timezone is the IANA zone PayPay export timestamps are read in.
	Timezone string
}

type ObservabilityConfig struct {
	// MetricsFile, when set, receives the Prometheus registry in text
	// exposition format after each command.
	MetricsFile string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	ints := &intReader{k: k}
	cfg := &Config{
		Database: DatabaseConfig{
			Host:            getString(k, "POSTGRES_HOST", "localhost"),
			Port:            ints.get("POSTGRES_PORT", 5432),
			User:            getString(k, "POSTGRES_USER", "postgres"),
			Password:        getString(k, "POSTGRES_PASSWORD", "postgres"),
			Database:        getString(k, "POSTGRES_DB", "paypay"),
			SSLMode:         getString(k, "POSTGRES_SSLMODE", "disable"),
			MaxConns:        ints.get("POSTGRES_MAX_CONNS", 10),
			ConnectAttempts: ints.get("POSTGRES_CONNECT_ATTEMPTS", 5),
		},
		Log: LogConfig{
			Level:  getString(k, "LOG_LEVEL", "info"),
			Format: getString(k, "LOG_FORMAT", "text"),
		},
		Import: ImportConfig{
			Timezone: getString(k, "IMPORT_TIMEZONE", "Asia/Tokyo"),
		},
		Observability: ObservabilityConfig{
			MetricsFile: getString(k, "METRICS_FILE", ""),
		},
	}

	if err := errors.Join(ints.errs...); err != nil {
		return nil, err
	}
	if _, err := cfg.Import.Location(); err != nil {
		return nil, err
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.Log.Format)
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Location resolves Timezone
func (c *ImportConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid IMPORT_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// loadDotEnv applies path without overriding variables already set.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

func getString(k *koanf.Koanf, key, defaultValue string) string {
	if value := k.String(key); value != "" {
		return value
	}
	return defaultValue
}

// intReader reads positive integer settings and collects every value that
// does not parse.
type intReader struct {
	k    *koanf.Koanf
	errs []error
}

func (r *intReader) get(key string, defaultValue int) int {
	raw := strings.TrimSpace(r.k.String(key))
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		r.errs = append(r.errs, fmt.Errorf("%s must be a positive integer, got %q", key, raw))
		return defaultValue
	}
	return value
}
