// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New() builds a Config with defaults; Load layers file and env on top.
//   - Every field carries a koanf key and, where it matters, a validate tag.
//   - Errors returned by Load wrap ErrLoadConfig or ErrInvalidConfig.
package config

import "time"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// RatingK scales every Elo update.
	RatingK float64 `koanf:"rating_k" validate:"gt=0"`

	// RatingFloor is the lowest score an update may produce.
	RatingFloor float64 `koanf:"rating_floor" validate:"ltefield=InitialScore"`

	// InitialScore is assigned to imported items that have none.
	InitialScore float64 `koanf:"initial_score"`

	// HistoryHalfLife is the default smoothing half-life for score series.
	HistoryHalfLife time.Duration `koanf:"history_half_life" validate:"gte=0"`

	// StoreDriver selects the list store: memory or sqlite.
	StoreDriver string `koanf:"store_driver" validate:"oneof=memory sqlite"`

	// StorePath is the sqlite database file; required for the sqlite driver.
	StorePath string `koanf:"store_path" validate:"required_if=StoreDriver sqlite"`

	// DedupeSize bounds the ids remembered per import; 0 disables the bound.
	DedupeSize int `koanf:"dedupe_size" validate:"gte=0"`

	// MaxSaveRetries bounds load-mutate-save retries after a version conflict.
	MaxSaveRetries int `koanf:"max_save_retries" validate:"gte=0,lte=100"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		RatingK:         32,
		RatingFloor:     0,
		InitialScore:    1500,
		HistoryHalfLife: 24 * time.Hour,
		StoreDriver:     "memory",
		StorePath:       "zeroflops.db",
		DedupeSize:      50_000,
		MaxSaveRetries:  3,
	}
}
