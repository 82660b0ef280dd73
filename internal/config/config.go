// Package config defines process configuration and its loading hooks.
//
// Values are layered: defaults from New, then an optional YAML file named by
// FAKEMEH_CONFIG, then FAKEMEH_ prefixed environment variables.
package config

import (
	"context"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the progress store: sqlite, redis or memory.
	StoreDriver string `koanf:"store_driver"`
	SQLitePath  string `koanf:"sqlite_path"`
	RedisURL    string `koanf:"redis_url"`
	KeyPrefix   string `koanf:"key_prefix"`

	// BackendURL is the analysis service base; the specific URLs override it.
	BackendURL   string `koanf:"backend_url"`
	AnalysisURL  string `koanf:"analysis_url"`
	FactCheckURL string `koanf:"fact_check_url"`
	AuthURL      string `koanf:"auth_url"`

	// BackendTimeoutMS bounds every backend round trip.
	BackendTimeoutMS int `koanf:"backend_timeout_ms"`

	// MailboxCapacity bounds pending session commands before ErrBusy.
	MailboxCapacity int `koanf:"mailbox_capacity"`

	// RevealDelayMS holds a verdict back before it is shown.
	RevealDelayMS int `koanf:"reveal_delay_ms"`

	HeatmapRadius  float64 `koanf:"heatmap_radius"`
	OverlayOpacity float64 `koanf:"overlay_opacity"`
	// HeatmapMaxPixels caps width*height of an upload decoded for the overlay.
	HeatmapMaxPixels int `koanf:"heatmap_max_pixels"`

	// DisplayWidth scales the annotated image; 0 keeps the original size.
	DisplayWidth int `koanf:"display_width"`

	DedupeSize      int `koanf:"dedupe_size"`
	LeaderboardSize int `koanf:"leaderboard_size"`

	// Metric naming. Buckets apply to the store and HTTP latency histograms.
	MetricsNamespace string            `koanf:"metrics_namespace"`
	MetricsSubsystem string            `koanf:"metrics_subsystem"`
	MetricsLabels    map[string]string `koanf:"metrics_labels"`
	MetricsBuckets   []float64         `koanf:"metrics_buckets"`
}

// New creates a Config holding the defaults. The context is accepted to keep
// the constructor signature uniform with Load.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":8080",
		StoreDriver:      "sqlite",
		SQLitePath:       "fakemeh.db",
		RedisURL:         "redis://localhost:6379/0",
		KeyPrefix:        "",
		BackendURL:       "http://localhost:5000",
		BackendTimeoutMS: 30_000,
		MailboxCapacity:  64,
		RevealDelayMS:    0,
		HeatmapRadius:    30,
		OverlayOpacity:   0.7,
		HeatmapMaxPixels: 40_000_000,
		DisplayWidth:     0,
		DedupeSize:       1024,
		LeaderboardSize:  5,
		MetricsNamespace: "fakemeh",
		MetricsSubsystem: "session",
	}
}

// BackendTimeout returns BackendTimeoutMS as a duration.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.BackendTimeoutMS) * time.Millisecond
}

// RevealDelay returns RevealDelayMS as a duration.
func (c *Config) RevealDelay() time.Duration {
	return time.Duration(c.RevealDelayMS) * time.Millisecond
}
