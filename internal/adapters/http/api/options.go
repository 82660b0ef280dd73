package api

import (
	"time"

	"github.com/okian/fakemeh/pkg/logger"
)

const (
	defaultMaxUploadBytes = 16 << 20
	defaultWaitTimeout    = 2 * time.Minute
)

type config struct {
	maxUploadBytes int64
	waitTimeout    time.Duration
	logger         logger.Logger
}

func defaultConfig() config {
	return config{
		maxUploadBytes: defaultMaxUploadBytes,
		waitTimeout:    defaultWaitTimeout,
		logger:         logger.Named("api"),
	}
}

// Option configures the API server.
type Option func(*config)

// WithMaxUploadBytes caps the request body of upload endpoints.
func WithMaxUploadBytes(n int64) Option {
	return func(c *config) {
		if n > 0 {
			c.maxUploadBytes = n
		}
	}
}

// WithWaitTimeout bounds how long /analyze and /check hold the request open
// for a verdict. The submission itself keeps running past it.
func WithWaitTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.waitTimeout = d
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
