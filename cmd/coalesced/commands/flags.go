// Package commands contains Cobra CLI command definitions for coalesced.
package commands

import (
	"github.com/concave-dev/coalesce/cmd/coalesced/config"
	"github.com/spf13/cobra"
)

// SetupFlags configures all command line flags for the daemon
func SetupFlags(cmd *cobra.Command) {
	// API flags
	cmd.Flags().StringVar(&config.Global.APIAddr, "api", config.DefaultAPI,
		"Address and port for the HTTP API (e.g., "+config.DefaultAPI+")\n"+
			"When not specified the next free port is used if the default is taken")

	// Batch endpoint flags
	cmd.Flags().IntVar(&config.Global.MaxBatchRequests, "max-batch-requests", config.DefaultMaxBatchRequests,
		"Maximum number of sub-requests accepted in one batch")
	cmd.Flags().StringVar(&config.Global.BatchPath, "batch-path", config.DefaultBatchPath,
		"Path of the batch endpoint")
	cmd.Flags().StringVar(&config.Global.DocumentsPath, "documents-path", config.DefaultDocumentsPath,
		"Collection path of the document API")

	// Operational flags
	cmd.Flags().StringVar(&config.Global.LogLevel, "log-level", config.DefaultLogLevel,
		"Log level: DEBUG, INFO, WARN, ERROR")
	cmd.Flags().StringVar(&config.Global.LogFile, "log-file", "",
		"Write logs to this file instead of stdout/stderr")
}

// CheckExplicitFlags checks if flags were explicitly set by the user
func CheckExplicitFlags(cmd *cobra.Command) {
	config.Global.SetExplicitlySet(config.APIAddrField, cmd.Flags().Changed("api"))
	config.Global.SetExplicitlySet(config.LogFileField, cmd.Flags().Changed("log-file"))
}
