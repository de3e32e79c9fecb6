// Package main provides the entry point for the coalesce CLI tool
// (coalescectl).
package main

import (
	"os"

	"github.com/concave-dev/coalesce/cmd/coalescectl/commands"
	"github.com/concave-dev/coalesce/cmd/coalescectl/config"
	"github.com/concave-dev/coalesce/cmd/coalescectl/handlers"
)

func init() {
	rootCmd := commands.RootCmd

	// Set version and validation
	rootCmd.Version = config.Version
	rootCmd.PersistentPreRunE = config.ValidateGlobalFlags

	commands.SetupCommands()

	commands.SetupGlobalFlags(rootCmd, &config.Global.APIAddr, &config.Global.LogLevel,
		&config.Global.Timeout, &config.Global.Verbose, &config.Global.Output, config.DefaultAPIAddr)
	commands.SetupSubmitFlags(&config.Submit.MaxBatchSize, &config.Submit.Window, &config.Submit.FlushAfter,
		&config.Submit.Group, &config.Submit.Concurrency, config.DefaultMaxBatchSize, config.DefaultWindow)
	commands.SetupDocFlags(&config.Doc.StatusFilter)

	setupCommandHandlers()
}

// setupCommandHandlers assigns RunE functions to commands
func setupCommandHandlers() {
	commands.GetSubmitCommand().RunE = handlers.HandleSubmit
	commands.GetHealthCommand().RunE = handlers.HandleHealth
	commands.GetDocCommands().RunE = handlers.HandleDocList
}

// main is the main entry point
func main() {
	if err := commands.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
