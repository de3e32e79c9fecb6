// Package logging provides ID formatting utilities for consistent ID display
// across coalesce logs.
//
// ID FORMATTING STRATEGY:
//   - Debug logs: full IDs so a flush can be matched against server logs
//   - Info/Warn/Error/Success logs: truncated 12-character IDs for readability
package logging

import (
	"github.com/charmbracelet/log"
	"github.com/concave-dev/coalesce/internal/utils"
)

// FormatID formats an ID for logging based on the current log level. Debug
// level keeps the full ID; every other level gets the 12-character short form.
func FormatID(id string) string {
	// Debug messages go to stderr, so its level decides
	if stderr().GetLevel() <= log.DebugLevel {
		return id
	}
	return utils.ShortID(id)
}

// FormatFlushID formats the ID of a combined batch request.
//
// Usage: logging.Info("Flushed batch %s", logging.FormatFlushID(flushID))
func FormatFlushID(flushID string) string {
	return FormatID(flushID)
}

// FormatDocumentID formats a document ID.
func FormatDocumentID(docID string) string {
	return FormatID(docID)
}
