// Package commands provides the command tree for coalescectl.
//
// COMMAND STRUCTURE:
//   - submit: send a file of requests through a batch coordinator
//   - health: check a coalesce server
//   - doc: inspect the server's documents (ls)
//
// RunE functions are assigned by the main package so this package stays free
// of handler dependencies.
package commands

import (
	"time"

	"github.com/spf13/cobra"
)

// Root command
var RootCmd = &cobra.Command{
	Use:   "coalescectl",
	Short: "CLI tool for the coalesce request batching coordinator",
	Long: `coalesce CLI (coalescectl) sends requests through a batch coordinator and
inspects a coalesce reference server.

Writes that share a batch group and method are coalesced into one call to the
server's batch endpoint; everything else is sent as-is.`,
	SilenceUsage: true,
	Example: `  # Check the server
  coalescectl health

  # Submit a file of document writes, batching them per group
  coalescectl submit requests.yaml

  # Use smaller batches and show coordinator metrics
  coalescectl --verbose submit --max-batch-size=5 --window=250ms requests.yaml

  # List documents as JSON from a remote server
  coalescectl --api=192.168.1.100:8008 -o json doc ls`,
}

// SetupCommands initializes all commands and their relationships
func SetupCommands() {
	RootCmd.AddCommand(submitCmd)
	RootCmd.AddCommand(healthCmd)
	RootCmd.AddCommand(docCmd)
	docCmd.AddCommand(docLsCmd)
}

// SetupGlobalFlags configures all global persistent flags
func SetupGlobalFlags(rootCmd *cobra.Command, apiAddrPtr *string, logLevelPtr *string,
	timeoutPtr *int, verbosePtr *bool, outputPtr *string, defaultAPIAddr string) {
	rootCmd.PersistentFlags().StringVar(apiAddrPtr, "api", defaultAPIAddr,
		"API server address")
	rootCmd.PersistentFlags().StringVar(logLevelPtr, "log-level", "ERROR",
		"Log level: DEBUG, INFO, WARN, ERROR")
	rootCmd.PersistentFlags().IntVar(timeoutPtr, "timeout", 8,
		"Request timeout in seconds")
	rootCmd.PersistentFlags().BoolVarP(verbosePtr, "verbose", "v", false,
		"Show verbose output")
	rootCmd.PersistentFlags().StringVarP(outputPtr, "output", "o", "table",
		"Output format: table, json")
}

// Submit command
var submitCmd = &cobra.Command{
	Use:   "submit FILE",
	Short: "Submit a file of requests through a batch coordinator",
	Long: `Submit every request in FILE concurrently through a batch coordinator.

FILE is YAML (or JSON): either a list of requests or a mapping with a
"requests" list. Each request has a method (default POST), a path, an
optional body and headers, and an optional batch_as group. Requests with a
group are coalesced per group and method; requests without one are sent
directly. Results are printed in file order.`,
	Example: `  # requests.yaml
  - method: POST
    path: /api/v1/documents
    batch_as: editor-save
    body: {title: "Draft one", status: draft}
  - method: DELETE
    path: /api/v1/documents/a1b2c3d4e5f6
    batch_as: cleanup

  # Submit with the default window (1s) and batch size (20)
  coalescectl submit requests.yaml

  # Put untagged requests in one group and force everything out after 200ms
  coalescectl submit --group=bulk --flush-after=200ms requests.yaml`,
	Args: cobra.ExactArgs(1),
}

// SetupSubmitFlags configures flags for the submit command
func SetupSubmitFlags(maxBatchSizePtr *int, windowPtr, flushAfterPtr *time.Duration,
	groupPtr *string, concurrencyPtr *int, defaultMaxBatchSize int, defaultWindow time.Duration) {
	submitCmd.Flags().IntVar(maxBatchSizePtr, "max-batch-size", defaultMaxBatchSize,
		"Flush a batch as soon as it holds this many requests")
	submitCmd.Flags().DurationVar(windowPtr, "window", defaultWindow,
		"Coalescing window, measured from the first request of a batch")
	submitCmd.Flags().DurationVar(flushAfterPtr, "flush-after", 0,
		"Force every pending batch out this long after submitting (0 disables)")
	submitCmd.Flags().StringVar(groupPtr, "group", "",
		"Batch group for requests without batch_as (empty leaves them unbatched)")
	submitCmd.Flags().IntVar(concurrencyPtr, "concurrency", 0,
		"Maximum requests in flight (0 submits all at once)")
}

// GetSubmitCommand returns the submit command for handler assignment
func GetSubmitCommand() *cobra.Command {
	return submitCmd
}
