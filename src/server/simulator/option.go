package simulator

import (
	"log/slog"

	"github.com/google/uuid"
)

type Option func(s *Simulator)

// WithRunID overrides the generated run identifier.
func WithRunID(id uuid.UUID) Option {
	return func(s *Simulator) {
		s.id = id
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) {
		s.logger = logger
	}
}

// WithObserver registers observers notified after every tick, after the
// metrics collector.
func WithObserver(observers ...Observer) Option {
	return func(s *Simulator) {
		s.observers = append(s.observers, observers...)
	}
}
