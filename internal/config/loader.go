package config

import (
	"context"
	"os"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rotisserie/eris"
)

const (
	envPrefix = "FAKEMEH_"
	envConfig = envPrefix + "CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if FAKEMEH_CONFIG is set
//  3. env (prefix FAKEMEH_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, eris.Wrapf(ErrLoadConfig, "read %s: %v", path, err)
		}
	}

	// FAKEMEH_STORE_DRIVER -> store_driver (flat keys, underscores kept).
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, eris.Wrapf(ErrLoadConfig, "read env: %v", err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, eris.Wrapf(ErrLoadConfig, "decode: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first setting that cannot produce a working process.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return eris.Wrap(ErrInvalidConfig, "addr must not be empty")
	case c.StoreDriver != "sqlite" && c.StoreDriver != "redis" && c.StoreDriver != "memory":
		return eris.Wrapf(ErrInvalidConfig, "store_driver %q is not one of sqlite, redis, memory", c.StoreDriver)
	case c.StoreDriver == "sqlite" && c.SQLitePath == "":
		return eris.Wrap(ErrInvalidConfig, "sqlite_path must not be empty")
	case c.StoreDriver == "redis" && c.RedisURL == "":
		return eris.Wrap(ErrInvalidConfig, "redis_url must not be empty")
	case c.BackendURL == "" && (c.AnalysisURL == "" || c.FactCheckURL == "" || c.AuthURL == ""):
		return eris.Wrap(ErrInvalidConfig, "backend_url must be set unless every endpoint url is")
	case c.BackendTimeoutMS <= 0:
		return eris.Wrap(ErrInvalidConfig, "backend_timeout_ms must be positive")
	case c.MailboxCapacity <= 0:
		return eris.Wrap(ErrInvalidConfig, "mailbox_capacity must be positive")
	case c.RevealDelayMS < 0:
		return eris.Wrap(ErrInvalidConfig, "reveal_delay_ms must not be negative")
	case c.HeatmapRadius <= 0:
		return eris.Wrap(ErrInvalidConfig, "heatmap_radius must be positive")
	case c.OverlayOpacity <= 0 || c.OverlayOpacity > 1:
		return eris.Wrap(ErrInvalidConfig, "overlay_opacity must be within (0, 1]")
	case c.HeatmapMaxPixels <= 0:
		return eris.Wrap(ErrInvalidConfig, "heatmap_max_pixels must be positive")
	case c.DisplayWidth < 0:
		return eris.Wrap(ErrInvalidConfig, "display_width must not be negative")
	case c.DedupeSize <= 0:
		return eris.Wrap(ErrInvalidConfig, "dedupe_size must be positive")
	case c.LeaderboardSize <= 0:
		return eris.Wrap(ErrInvalidConfig, "leaderboard_size must be positive")
	case c.MetricsNamespace == "":
		return eris.Wrap(ErrInvalidConfig, "metrics_namespace must not be empty")
	case !slices.IsSorted(c.MetricsBuckets):
		return eris.Wrap(ErrInvalidConfig, "metrics_buckets must be ascending")
	}
	return nil
}
