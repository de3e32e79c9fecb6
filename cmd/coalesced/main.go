// Package main implements the coalesce reference server (coalesced).
// coalesced hosts a small document API together with the batch endpoint that
// the batch coordinator sends its combined requests to.
package main

import (
	"os"

	"github.com/concave-dev/coalesce/cmd/coalesced/commands"
)

func main() {
	commands.SetupCommands()

	if err := commands.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
