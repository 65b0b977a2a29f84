// Package di provides dependency injection container
package di

import (
	"log/slog"

	"github.com/ssargent/mnistidx/pkg/api"
	"github.com/ssargent/mnistidx/pkg/config"
	"github.com/ssargent/mnistidx/pkg/dataset"
	"github.com/ssargent/mnistidx/pkg/fetch"
	"github.com/ssargent/mnistidx/pkg/storage"
)

// StoreOpener opens the record store in a directory.
type StoreOpener func(dir string) (*storage.RecordStore, error)

// Container holds all the dependencies for the application
type Container struct {
	config        *config.Config
	logger        *slog.Logger
	serverFactory api.ServerFactory
	storeOpener   StoreOpener
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config, logger *slog.Logger) *Container {
	return &Container{
		config:        cfg,
		logger:        logger,
		serverFactory: api.NewServerFactory(logger),
		storeOpener: func(dir string) (*storage.RecordStore, error) {
			return storage.Open(dir, storage.WithLogger(logger))
		},
	}
}

// Config returns the loaded configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the application logger
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Loader returns a dataset loader that logs through the application logger
func (c *Container) Loader() *dataset.Loader {
	return dataset.NewLoader(dataset.WithLogger(c.logger))
}

// Fetcher returns a fetcher for the configured mirror
func (c *Container) Fetcher() *fetch.Fetcher {
	opts := []fetch.Option{fetch.WithLogger(c.logger)}
	if c.config.BaseURL != "" {
		opts = append(opts, fetch.WithBaseURL(c.config.BaseURL))
	}
	return fetch.New(opts...)
}

// OpenStore opens the record store in dir
func (c *Container) OpenStore(dir string) (*storage.RecordStore, error) {
	return c.storeOpener(dir)
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

// SetStoreOpener allows overriding how the record store is opened (for testing)
func (c *Container) SetStoreOpener(opener StoreOpener) {
	c.storeOpener = opener
}
