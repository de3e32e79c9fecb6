package batching

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	defaults "github.com/concave-dev/coalesce/internal/config"
	"github.com/concave-dev/coalesce/internal/validate"
)

// Config holds all configuration parameters for the batch coordinator:
// eligibility rules, flush thresholds and the batch endpoint the combined
// requests are sent to.
type Config struct {
	// Core batching control
	Enabled bool `json:"enabled" mapstructure:"enabled"` // When false every request passes through

	// Flush policy
	MaxBatchSize   int `json:"max_batch_size" mapstructure:"max_batch_size" validate:"min=1,max=1000"`       // Flush immediately at this size
	WindowMs       int `json:"window_ms" mapstructure:"window_ms" validate:"min=1,max=60000"`                // Eventual flush delay after the first request (ms)
	FlushTimeoutMs int `json:"flush_timeout_ms" mapstructure:"flush_timeout_ms" validate:"min=0,max=300000"` // Deadline for one combined request, 0 disables (ms)

	// Eligibility
	Methods           []string `json:"methods" mapstructure:"methods" validate:"required,min=1"`                        // Mutating verbs that may be batched
	BatchablePrefixes []string `json:"batchable_prefixes" mapstructure:"batchable_prefixes" validate:"dive,startswith=/"` // Path prefixes the server accepts in a batch

	// Combined request target
	BatchPath string `json:"batch_path" mapstructure:"batch_path" validate:"required,startswith=/"`

	// Registry sharding
	Shards int `json:"shards" mapstructure:"shards" validate:"min=1,max=256"`
}

// DefaultConfig returns a Config with the standard content-editing defaults:
// batches of up to 20 writes coalesced over one second.
func DefaultConfig() *Config {
	return &Config{
		Enabled:        true,
		MaxBatchSize:   defaults.DefaultMaxBatchSize,
		WindowMs:       defaults.DefaultBatchWindowMs,
		FlushTimeoutMs: 30000,
		Methods: []string{
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		BatchablePrefixes: []string{defaults.DefaultDocumentsPath},
		BatchPath:         defaults.DefaultBatchPath,
		Shards:            16,
	}
}

// Validate checks all parameters. A disabled config is always valid since
// none of the batching parameters are used.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if err := validate.ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid batching config: %w", err)
	}

	for _, m := range c.Methods {
		if err := validate.ValidateField(strings.ToUpper(m), "oneof=POST PUT PATCH DELETE"); err != nil {
			return fmt.Errorf("method %q cannot be batched (must be POST, PUT, PATCH or DELETE)", m)
		}
	}

	if err := validate.RequestPath(c.BatchPath); err != nil {
		return fmt.Errorf("invalid batch path: %w", err)
	}

	// A batchable batch endpoint would let combined requests nest
	if NewPrefixMatcher(c.BatchablePrefixes...).Batchable(c.BatchPath) {
		return fmt.Errorf("batch path %s must not match a batchable prefix", c.BatchPath)
	}

	return nil
}

// GetWindow converts the coalescing window to a time.Duration.
func (c *Config) GetWindow() time.Duration {
	return time.Duration(c.WindowMs) * time.Millisecond
}

// GetFlushTimeout converts the flush timeout to a time.Duration. Zero means
// combined requests rely on the transport's own timeout.
func (c *Config) GetFlushTimeout() time.Duration {
	return time.Duration(c.FlushTimeoutMs) * time.Millisecond
}
