// Package config provides default configuration values shared across coalesce
// components (batching coordinator, transport, reference batch server and the
// CLI tools) so that client and server agree on paths and limits.
package config

const (
	// DefaultBindAddr is the default bind address for the reference server.
	// Using 0.0.0.0 allows binding to all available network interfaces.
	DefaultBindAddr = "0.0.0.0"

	// DefaultAPIPort is the default HTTP port of the reference server
	DefaultAPIPort = 8008

	// DefaultLogLevel is the default log level for all components
	DefaultLogLevel = "INFO"

	// DefaultBatchPath is the path of the combined batch endpoint
	DefaultBatchPath = "/batch/v1"

	// DefaultDocumentsPath is the collection path of the document API and the
	// default batchable path prefix
	DefaultDocumentsPath = "/api/v1/documents"

	// DefaultMaxBatchSize is the client-side size at which a batch flushes
	// immediately
	DefaultMaxBatchSize = 20

	// DefaultBatchWindowMs is the client-side coalescing window
	DefaultBatchWindowMs = 1000

	// DefaultMaxBatchRequests is the server-side cap on sub-requests per
	// combined request; must stay >= DefaultMaxBatchSize
	DefaultMaxBatchRequests = 25
)
