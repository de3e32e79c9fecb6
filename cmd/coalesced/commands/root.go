// Package commands provides the CLI command structure for the coalesce
// reference server.
//
// The daemon is a single root command: flags are parsed, checked by the
// config package in PreRunE, and the daemon package runs the server until a
// shutdown signal arrives.
package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/concave-dev/coalesce/cmd/coalesced/config"
	"github.com/concave-dev/coalesce/cmd/coalesced/daemon"
	"github.com/concave-dev/coalesce/cmd/coalesced/utils"
	"github.com/concave-dev/coalesce/internal/logging"
	"github.com/concave-dev/coalesce/internal/version"
	"github.com/spf13/cobra"
)

// Global variable to track log file handle for cleanup
var logFileHandle *os.File

// CleanupLogFile closes the log file handle if it exists
func CleanupLogFile() {
	if logFileHandle != nil {
		if err := logFileHandle.Close(); err != nil {
			// Log to stderr since we're cleaning up the log file
			fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
		}
		logFileHandle = nil
	}
}

// Root command for the coalesce daemon
var RootCmd = &cobra.Command{
	Use:   "coalesced",
	Short: "Reference server for the coalesce request batching coordinator",
	Long: `coalesce daemon (coalesced) serves a small document API and the batch
endpoint that the coalesce coordinator sends combined requests to.

A batch is a single POST carrying many document writes. The server validates
and replays each write through its own routes and answers with one response
per write, in order.`,
	Version:      version.CoalescedVersion,
	SilenceUsage: true, // Don't show usage on errors
	Example: `  # Start on the default address, moving to the next free port if 8008 is taken
  coalesced

  # Bind an exact address and accept larger batches
  coalesced --api=127.0.0.1:9000 --max-batch-requests=100

  # Debug logging to a file
  coalesced --log-level=DEBUG --log-file=/var/log/coalesced.log`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		utils.DisplayLogo(version.CoalescedVersion)
	},
	PreRunE: func(cmd *cobra.Command, args []string) error {
		CheckExplicitFlags(cmd)

		if config.Global.IsExplicitlySet(config.LogFileField) && config.Global.LogFile != "" {
			logDir := filepath.Dir(config.Global.LogFile)
			if err := os.MkdirAll(logDir, 0755); err != nil {
				return fmt.Errorf("failed to create log directory %s: %w", logDir, err)
			}

			var err error
			logFileHandle, err = os.OpenFile(config.Global.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return fmt.Errorf("failed to open log file %s: %w", config.Global.LogFile, err)
			}

			logging.SetOutput(logFileHandle)
		}

		// Set the level before InitializeConfig logs anything, then again to
		// pick up environment overrides
		logging.SetLevel(config.Global.LogLevel)
		config.InitializeConfig()
		logging.SetLevel(config.Global.LogLevel)

		if err := config.ValidateConfig(); err != nil {
			CleanupLogFile()
			return err
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		defer CleanupLogFile()
		return daemon.Run()
	},
}

// SetupCommands initializes all commands and their relationships
func SetupCommands() {
	SetupFlags(RootCmd)
}
