package commands

import "github.com/spf13/cobra"

// Health command
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of a coalesce server",
	Long: `Ping the server's health endpoint and show its version, uptime and the
batch limits clients should respect.`,
	Example: `  # Check the local server
  coalescectl health

  # Check a remote server
  coalescectl --api=192.168.1.100:8008 health`,
	Args: cobra.NoArgs,
}

// GetHealthCommand returns the health command for handler assignment
func GetHealthCommand() *cobra.Command {
	return healthCmd
}
