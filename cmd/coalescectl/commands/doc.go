package commands

import "github.com/spf13/cobra"

// Doc command (parent command for document operations)
var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Inspect documents on the server",
	Long: `Commands for inspecting the documents held by a coalesce reference server.

Use them to check the effect of a submit run.`,
}

// Doc list command
var docLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List documents",
	Long:  `List all documents on the server, newest first.`,
	Example: `  # List documents
  coalescectl doc ls

  # Only drafts, with content size and creation time
  coalescectl --verbose doc ls --status=draft`,
	Args: cobra.NoArgs,
}

// SetupDocFlags configures flags for doc commands
func SetupDocFlags(statusFilterPtr *string) {
	docLsCmd.Flags().StringVar(statusFilterPtr, "status", "",
		"Filter by status: draft, publish, private")
}

// GetDocCommands returns doc subcommands for handler assignment
func GetDocCommands() *cobra.Command {
	return docLsCmd
}
