// Package handlers provides command handler functions for coalescectl.
//
// The package is organized as follows:
//   - submit.go: sends a request file through a batch coordinator
//   - health.go: server health check
//   - doc.go: document listing
//
// Handlers use the cobra RunE signature, log through internal/logging and
// leave all output formatting to the display package.
package handlers

import (
	"github.com/concave-dev/coalesce/cmd/coalescectl/config"
	"github.com/concave-dev/coalesce/internal/logging"
	"github.com/concave-dev/coalesce/internal/netutil"
)

// connectionTip logs a hint when err means nothing is listening.
func connectionTip(err error) {
	if netutil.IsConnectionRefusedError(err) {
		logging.Error("TIP: Check that coalesced is running on %s", config.Global.APIAddr)
		logging.Error("     You can start one with: coalesced --api=%s", config.Global.APIAddr)
	}
}
