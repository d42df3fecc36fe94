package internal

import (
	"log/slog"
	"time"
)

// Option configures the application before Run starts it.
type Option func(*application)

type application struct {
	config *Config
	logger *slog.Logger
	now    func() time.Time
}

// WithConfig sets the application configuration. Required.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger replaces the default JSON logger, for embedding the server
// in tests or a larger process.
func WithLogger(l *slog.Logger) Option {
	return func(a *application) {
		a.logger = l
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(a *application) {
		a.now = now
	}
}
