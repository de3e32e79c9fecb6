package handlers

import (
	"fmt"

	"github.com/concave-dev/coalesce/cmd/coalescectl/client"
	"github.com/concave-dev/coalesce/cmd/coalescectl/config"
	"github.com/concave-dev/coalesce/cmd/coalescectl/display"
	"github.com/concave-dev/coalesce/cmd/coalescectl/utils"
	"github.com/concave-dev/coalesce/internal/logging"
	"github.com/concave-dev/coalesce/internal/store"
	"github.com/spf13/cobra"
)

// HandleDocList handles the doc ls subcommand.
func HandleDocList(cmd *cobra.Command, args []string) error {
	utils.SetupLogging()

	if err := config.ValidateDocFlags(); err != nil {
		return err
	}

	logging.Info("Fetching documents from API server: %s", config.Global.APIAddr)

	apiClient, err := client.CreateAPIClient()
	if err != nil {
		return err
	}

	docs, err := apiClient.ListDocuments(cmd.Context())
	if err != nil {
		connectionTip(err)
		return fmt.Errorf("failed to list documents: %w", err)
	}

	filtered := filterDocuments(docs, config.Doc.StatusFilter)
	display.DisplayDocuments(filtered)
	logging.Success("Successfully retrieved %d documents (%d after filtering)", len(docs), len(filtered))
	return nil
}

// filterDocuments keeps documents with the given status; an empty status
// keeps everything.
func filterDocuments(docs []store.Document, status string) []store.Document {
	if status == "" {
		return docs
	}
	var filtered []store.Document
	for _, doc := range docs {
		if doc.Status == status {
			filtered = append(filtered, doc)
		}
	}
	return filtered
}
