package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/concave-dev/coalesce/internal/logging"
	"github.com/concave-dev/coalesce/internal/validate"
)

// InitializeConfig applies environment variable overrides before validation.
func InitializeConfig() {
	if os.Getenv("DEBUG") == "true" {
		Global.LogLevel = "DEBUG"
		logging.Info("DEBUG environment variable detected, setting log level to DEBUG")
	}
}

// ValidateConfig validates and normalizes the daemon configuration before
// startup. After it succeeds APIAddr holds only the host and APIPort the
// port to bind.
func ValidateConfig() error {
	Global.LogLevel = strings.ToUpper(Global.LogLevel)
	if err := validate.ValidateLogLevel(Global.LogLevel); err != nil {
		return err
	}

	apiNetAddr, err := validate.ParseBindAddress(Global.APIAddr)
	if err != nil {
		logging.Error("Invalid API address '%s': %v", Global.APIAddr, err)
		return fmt.Errorf("invalid API address: %w", err)
	}

	Global.APIAddr = apiNetAddr.Host
	Global.APIPort = apiNetAddr.Port

	if err := validate.RequestPath(Global.BatchPath); err != nil {
		return fmt.Errorf("invalid batch path: %w", err)
	}
	if err := validate.RequestPath(Global.DocumentsPath); err != nil {
		return fmt.Errorf("invalid documents path: %w", err)
	}
	if Global.BatchPath == Global.DocumentsPath {
		return fmt.Errorf("--batch-path and --documents-path must differ")
	}

	if err := validate.ValidateField(Global.MaxBatchRequests, "min=1,max=1000"); err != nil {
		logging.Error("Invalid max-batch-requests value: %d", Global.MaxBatchRequests)
		return fmt.Errorf("max-batch-requests must be between 1 and 1000, got: %d", Global.MaxBatchRequests)
	}

	if Global.logFileExplicitlySet && strings.TrimSpace(Global.LogFile) == "" {
		return fmt.Errorf("--log-file cannot be empty")
	}

	return nil
}
