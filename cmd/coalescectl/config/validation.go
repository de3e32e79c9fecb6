package config

import (
	"fmt"
	"strings"

	"github.com/concave-dev/coalesce/internal/logging"
	"github.com/concave-dev/coalesce/internal/store"
	"github.com/concave-dev/coalesce/internal/validate"
	"github.com/spf13/cobra"
)

// ValidateGlobalFlags validates all global flags before running any command
func ValidateGlobalFlags(cmd *cobra.Command, args []string) error {
	if err := ValidateAPIAddress(); err != nil {
		return err
	}

	if err := ValidateOutputFormat(); err != nil {
		return err
	}

	Global.LogLevel = strings.ToUpper(Global.LogLevel)
	if err := validate.ValidateLogLevel(Global.LogLevel); err != nil {
		return err
	}

	if err := validate.ValidateField(Global.Timeout, "min=1,max=600"); err != nil {
		return fmt.Errorf("timeout must be between 1 and 600 seconds, got %d", Global.Timeout)
	}

	return nil
}

// ValidateAPIAddress validates the --api flag
func ValidateAPIAddress() error {
	netAddr, err := validate.ParseBindAddress(Global.APIAddr)
	if err != nil {
		logging.Error("Invalid API address '%s': %v", Global.APIAddr, err)
		return fmt.Errorf("invalid API address - expected format: host:port (e.g., 127.0.0.1:8008)")
	}

	// Reject unroutable 0.0.0.0 target for client connections
	if netAddr.Host == "0.0.0.0" {
		logging.Error("Unroutable API address '0.0.0.0:%d' - cannot connect to 0.0.0.0", netAddr.Port)
		return fmt.Errorf("unroutable API address - use 127.0.0.1 or a specific IP address")
	}

	return nil
}

// ValidateOutputFormat validates the --output flag
func ValidateOutputFormat() error {
	if err := validate.ValidateField(Global.Output, "oneof=table json"); err != nil {
		logging.Error("Invalid output format '%s' - valid formats are: table, json", Global.Output)
		return fmt.Errorf("invalid output format - valid: table, json")
	}
	return nil
}

// ValidateSubmitFlags validates the submit command flags
func ValidateSubmitFlags() error {
	if err := validate.ValidateField(Submit.MaxBatchSize, "min=1,max=1000"); err != nil {
		return fmt.Errorf("--max-batch-size must be between 1 and 1000, got %d", Submit.MaxBatchSize)
	}
	if err := validate.ValidatePositiveTimeout(Submit.Window, "--window"); err != nil {
		return err
	}
	if Submit.FlushAfter < 0 {
		return fmt.Errorf("--flush-after cannot be negative")
	}
	if Submit.Concurrency < 0 {
		return fmt.Errorf("--concurrency cannot be negative")
	}
	return nil
}

// ValidateDocFlags validates the doc command flags
func ValidateDocFlags() error {
	if Doc.StatusFilter == "" {
		return nil
	}
	if err := validate.ValidateField(Doc.StatusFilter, "oneof="+store.StatusDraft+" "+store.StatusPublish+" "+store.StatusPrivate); err != nil {
		return fmt.Errorf("invalid status filter %q - valid: %s, %s, %s",
			Doc.StatusFilter, store.StatusDraft, store.StatusPublish, store.StatusPrivate)
	}
	return nil
}
