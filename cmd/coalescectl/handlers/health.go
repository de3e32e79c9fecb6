package handlers

import (
	"fmt"

	"github.com/concave-dev/coalesce/cmd/coalescectl/client"
	"github.com/concave-dev/coalesce/cmd/coalescectl/config"
	"github.com/concave-dev/coalesce/cmd/coalescectl/display"
	"github.com/concave-dev/coalesce/cmd/coalescectl/utils"
	"github.com/concave-dev/coalesce/internal/logging"
	"github.com/spf13/cobra"
)

// HandleHealth handles the health command.
func HandleHealth(cmd *cobra.Command, args []string) error {
	utils.SetupLogging()

	logging.Info("Checking server health: %s", config.Global.APIAddr)

	apiClient, err := client.CreateAPIClient()
	if err != nil {
		return err
	}

	health, err := apiClient.GetHealth(cmd.Context())
	if err != nil {
		connectionTip(err)
		return fmt.Errorf("health check failed: %w", err)
	}

	display.DisplayHealth(*health)
	logging.Success("Server %s is %s", config.Global.APIAddr, health.Status)
	return nil
}
