// Package utils provides utility functions for the coalescectl CLI.
package utils

import (
	"os"

	"github.com/concave-dev/coalesce/cmd/coalescectl/config"
	"github.com/concave-dev/coalesce/internal/logging"
)

// SetupLogging configures CLI logging. DEBUG=true shows everything; otherwise
// only errors are printed unless --log-level asks for more.
func SetupLogging() {
	if os.Getenv("DEBUG") == "true" {
		logging.RestoreOutput()
		logging.SetLevel("DEBUG")
		return
	}

	logging.SuppressOutput()
	if config.Global.LogLevel != "" && config.Global.LogLevel != "ERROR" {
		logging.SetLevel(config.Global.LogLevel)
	}
}
