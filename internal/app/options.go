package service

import (
	"time"

	"github.com/okian/fakemeh/internal/domain/heatmap"
	"github.com/okian/fakemeh/pkg/logger"
)

// Option applies a configuration option to the Session.
type Option func(*Session)

// WithMailboxCapacity sets how many commands may wait for the loop.
func WithMailboxCapacity(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.mailboxCapacity = n
		}
	}
}

// WithRevealDelay holds a verdict back for d after it arrives.
func WithRevealDelay(d time.Duration) Option {
	return func(s *Session) {
		if d >= 0 {
			s.revealDelay = d
		}
	}
}

// WithRenderer sets the heatmap renderer.
func WithRenderer(r *heatmap.Renderer) Option {
	return func(s *Session) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithOverlayOpacity sets the opacity used to composite the overlay.
func WithOverlayOpacity(opacity float64) Option {
	return func(s *Session) {
		if opacity > 0 && opacity <= 1 {
			s.overlayOpacity = opacity
		}
	}
}

// WithDisplayWidth scales the displayed frame down to width pixels. Zero
// keeps the native size.
func WithDisplayWidth(width int) Option {
	return func(s *Session) {
		if width >= 0 {
			s.displayWidth = width
		}
	}
}

// WithMaxImagePixels bounds the width times height of an uploaded image
// that will be decoded for the overlay.
func WithMaxImagePixels(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxImagePixels = n
		}
	}
}

// WithClock overrides time.Now for leaderboard timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the session.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}
