// Package api provides the coalesce reference server: a gin HTTP server that
// hosts a small document API and the batch endpoint combined requests are
// sent to.
//
// This file defines the server configuration. Paths and limits default to
// the values in internal/config so the server and the batch coordinator
// agree out of the box.
package api

import (
	"fmt"

	defaults "github.com/concave-dev/coalesce/internal/config"
	"github.com/concave-dev/coalesce/internal/store"
	"github.com/concave-dev/coalesce/internal/validate"
)

// Config holds all configuration parameters for the reference server.
type Config struct {
	BindAddr         string       // HTTP server bind address (e.g., "0.0.0.0")
	BindPort         int          // HTTP server bind port
	BatchPath        string       // Path of the batch endpoint
	DocumentsPath    string       // Collection path of the document API
	MaxBatchRequests int          // Maximum sub-requests per batch
	Store            *store.Store // Document storage
}

// DefaultConfig creates a Config with defaults for local development. The
// store must still be set by the caller.
func DefaultConfig() *Config {
	return &Config{
		// Default to loopback for safer local development. Daemon can override.
		BindAddr:         "127.0.0.1",
		BindPort:         defaults.DefaultAPIPort,
		BatchPath:        defaults.DefaultBatchPath,
		DocumentsPath:    defaults.DefaultDocumentsPath,
		MaxBatchRequests: defaults.DefaultMaxBatchRequests,
		Store:            nil, // Must be set by caller
	}
}

// Validate checks that the server can start with this configuration.
func (c *Config) Validate() error {
	if err := validate.ValidateRequiredString(c.BindAddr, "bind address"); err != nil {
		return err
	}
	if err := validate.ValidatePortRange(c.BindPort); err != nil {
		return fmt.Errorf("bind port validation failed: %w", err)
	}
	if err := validate.RequestPath(c.BatchPath); err != nil {
		return fmt.Errorf("batch path validation failed: %w", err)
	}
	if err := validate.RequestPath(c.DocumentsPath); err != nil {
		return fmt.Errorf("documents path validation failed: %w", err)
	}
	if c.BatchPath == c.DocumentsPath {
		return fmt.Errorf("batch path and documents path must differ")
	}
	if err := validate.ValidateField(c.MaxBatchRequests, "min=1,max=1000"); err != nil {
		return fmt.Errorf("max batch requests must be between 1 and 1000, got %d", c.MaxBatchRequests)
	}
	if c.Store == nil {
		return fmt.Errorf("document store cannot be nil")
	}

	return nil
}
