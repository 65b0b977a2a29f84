// Package api provides factory implementations for dependency injection
package api

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultServerFactory is the default implementation of ServerFactory
type DefaultServerFactory struct {
	logger *slog.Logger
}

// NewServerFactory creates a new server factory
func NewServerFactory(logger *slog.Logger) ServerFactory {
	return &DefaultServerFactory{logger: logger}
}

// CreateServerStarter creates a server starter
func (f *DefaultServerFactory) CreateServerStarter() ServerStarter {
	return &DefaultServerStarter{logger: f.logger}
}

// DefaultServerStarter is the default implementation of ServerStarter
type DefaultServerStarter struct {
	logger *slog.Logger
}

// StartServer starts the API server with metrics registered on the default
// prometheus registry.
func (s *DefaultServerStarter) StartServer(ctx context.Context, store RecordStore, config ServerConfig) error {
	metrics := NewMetrics(prometheus.DefaultRegisterer)
	return NewServer(store, config, metrics, s.logger).ListenAndServe(ctx)
}
