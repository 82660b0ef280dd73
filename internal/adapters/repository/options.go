package repository

import "github.com/okian/fakemeh/pkg/logger"

// config collects what Open needs for every driver.
type config struct {
	sqlitePath string
	redisURL   string
	keyPrefix  string
	logger     logger.Logger
}

// Option applies a configuration option to Open.
type Option func(*config)

// WithSQLitePath sets the database file used by the sqlite driver.
func WithSQLitePath(path string) Option {
	return func(c *config) {
		if path != "" {
			c.sqlitePath = path
		}
	}
}

// WithRedisURL sets the redis:// URL used by the redis driver.
func WithRedisURL(url string) Option {
	return func(c *config) {
		if url != "" {
			c.redisURL = url
		}
	}
}

// WithKeyPrefix namespaces every key, letting several devices share one
// redis instance.
func WithKeyPrefix(prefix string) Option {
	return func(c *config) {
		c.keyPrefix = prefix
	}
}

// WithLogger sets the logger used to report unreadable values.
func WithLogger(l logger.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
