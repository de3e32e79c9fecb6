// Package config provides configuration management for the coalescectl CLI.
package config

import (
	"time"

	configDefaults "github.com/concave-dev/coalesce/internal/config"
	"github.com/concave-dev/coalesce/internal/version"
)

const (
	DefaultAPIAddr = "127.0.0.1:8008" // Default API server address (routable)
)

// Version returns the current coalescectl CLI version from the centralized version package
var Version = version.CoalescectlVersion

// Global holds the global CLI configuration
var Global struct {
	APIAddr  string // Address of the coalesce server to connect to
	LogLevel string // Log level for CLI operations
	Timeout  int    // Request timeout in seconds
	Verbose  bool   // Show verbose output
	Output   string // Output format: table, json
}

// Submit holds the submit command configuration
var Submit struct {
	MaxBatchSize int           // Coordinator size threshold
	Window       time.Duration // Coordinator coalescing window
	FlushAfter   time.Duration // Force pending batches out after this long, 0 disables
	Group        string        // Grouping tag for requests that do not set one
	Concurrency  int           // Maximum requests in flight, 0 means all at once
}

// Doc holds the doc command configuration
var Doc struct {
	StatusFilter string // Filter documents by status
}

// Defaults for the submit command, matching the library defaults
var (
	DefaultMaxBatchSize = configDefaults.DefaultMaxBatchSize
	DefaultWindow       = time.Duration(configDefaults.DefaultBatchWindowMs) * time.Millisecond
)
