// Package config holds the coalesced configuration.
//
// Values come from cobra flags, with defaults taken from internal/config so
// the server and the batch coordinator agree on paths and limits. The
// configuration tracks which values were set explicitly by the user: an
// explicit --api port must be bound exactly, while the default port falls
// back to the next free one.
package config

import (
	"fmt"

	configDefaults "github.com/concave-dev/coalesce/internal/config"
)

// ConfigField represents a configuration field that can be explicitly set
type ConfigField int

const (
	// Configuration field identifiers
	APIAddrField ConfigField = iota
	LogFileField
)

var (
	// DefaultAPI binds every interface on the standard port
	DefaultAPI = fmt.Sprintf("%s:%d", configDefaults.DefaultBindAddr, configDefaults.DefaultAPIPort)
)

const (
	DefaultLogLevel         = configDefaults.DefaultLogLevel
	DefaultBatchPath        = configDefaults.DefaultBatchPath
	DefaultDocumentsPath    = configDefaults.DefaultDocumentsPath
	DefaultMaxBatchRequests = configDefaults.DefaultMaxBatchRequests
)

// Config holds all daemon configuration values
type Config struct {
	APIAddr          string // HTTP API bind address; host only after validation
	APIPort          int    // HTTP API port (derived from APIAddr)
	BatchPath        string // Path of the batch endpoint
	DocumentsPath    string // Collection path of the document API
	MaxBatchRequests int    // Maximum sub-requests accepted per batch
	LogLevel         string // Log level: DEBUG, INFO, WARN, ERROR
	LogFile          string // Optional log file; stdout/stderr when empty

	// Flags to track if values were explicitly set by user
	apiAddrExplicitlySet bool
	logFileExplicitlySet bool
}

// Global configuration instance
var Global Config

// SetExplicitlySet marks a configuration field as explicitly set by the user.
func (c *Config) SetExplicitlySet(field ConfigField, value bool) {
	switch field {
	case APIAddrField:
		c.apiAddrExplicitlySet = value
	case LogFileField:
		c.logFileExplicitlySet = value
	}
}

// IsExplicitlySet returns whether a configuration field was explicitly set by
// the user.
func (c *Config) IsExplicitlySet(field ConfigField) bool {
	switch field {
	case APIAddrField:
		return c.apiAddrExplicitlySet
	case LogFileField:
		return c.logFileExplicitlySet
	}
	return false
}
