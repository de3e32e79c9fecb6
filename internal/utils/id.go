// Package utils provides common utility functions for coalesce components.
//
// ID GENERATION STRATEGY:
// Flush IDs and document IDs are UUIDv4 values from google/uuid. Document IDs
// use the first 12 hex characters (similar to Docker short IDs) so they stay
// readable in paths and logs; flush IDs keep the full UUID for correlation
// between client and server logs.
package utils

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GenerateID creates a unique 12-character hex identifier for resources.
//
// Returns format: "a1b2c3d4e5f6"
func GenerateID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate random id: %w", err)
	}
	return strings.ReplaceAll(id.String(), "-", "")[:12], nil
}

// GenerateFlushID creates a full UUID string identifying one combined batch
// request.
func GenerateFlushID() string {
	return uuid.NewString()
}

// ShortID truncates an identifier to 12 characters for display.
func ShortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12]
}
