// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load(ctx) layers defaults, optional YAML file, and environment.
// - External errors must be wrapped via this package's error helpers.
package config

import "path/filepath"

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DataDir roots all persisted state: result cache tiers, adjustment
	// assignments and the dynamic slots document.
	DataDir string `koanf:"data_dir"`

	// RacesFile points at the race catalog document.
	RacesFile string `koanf:"races_file"`

	// ManifestFile points at the adjustments manifest; factor tables are
	// resolved relative to its directory.
	ManifestFile string `koanf:"manifest_file"`

	// FeedAppID and FeedToken authenticate against the upstream timing API.
	FeedAppID string `koanf:"feed_app_id"`
	FeedToken string `koanf:"feed_token"`

	// FeedTimeoutSeconds bounds each upstream round trip.
	FeedTimeoutSeconds int `koanf:"feed_timeout_seconds"`

	// FreshnessSeconds is the in-progress cache trust window.
	FreshnessSeconds int `koanf:"freshness_seconds"`

	// FinalDelayHours is how long after the earliest start time a race's
	// results become final and immutable.
	FinalDelayHours int `koanf:"final_delay_hours"`

	// StabilizationMinutes is how long after the earliest start time
	// starter counts are trusted for the dynamic slot split.
	StabilizationMinutes int `koanf:"stabilization_minutes"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9090",
		DataDir:              "data",
		RacesFile:            "races.json",
		ManifestFile:         filepath.Join("adjustments", "manifest.json"),
		FeedTimeoutSeconds:   15,
		FreshnessSeconds:     60,
		FinalDelayHours:      24,
		StabilizationMinutes: 60,
	}
}

// AssignmentsFile is the adjustments-assignment document under DataDir.
func (c *Config) AssignmentsFile() string {
	return filepath.Join(c.DataDir, "ag_assignments.json")
}

// DynamicSlotsFile is the dynamic-slots persistence document under DataDir.
func (c *Config) DynamicSlotsFile() string {
	return filepath.Join(c.DataDir, "dynamic_slots.json")
}
