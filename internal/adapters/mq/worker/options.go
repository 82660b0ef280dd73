package worker

import (
	"github.com/okian/fakemeh/pkg/logger"
)

type settings struct {
	name   string
	logger logger.Logger
}

// Option applies a configuration option to the Loop.
type Option func(*settings)

// WithName sets the loop name for identification and logging.
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithLogger sets a custom logger for the loop.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}
