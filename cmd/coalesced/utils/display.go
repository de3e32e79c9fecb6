// Package utils contains utility functions for the coalesce daemon.
package utils

import (
	"fmt"
)

// DisplayLogo prints the coalesce banner with version information
func DisplayLogo(version string) {
	fmt.Println()
	fmt.Println(` ░░░░░░░░░░░░░░░░░░░░░░░░░░░░░░░░░░░░░
 ░█▀▀░█▀█░█▀█░█░░░█▀▀░█▀▀░█▀▀░█▀▀░█▀▄░
 ░█░░░█░█░█▀█░█░░░█▀▀░▀▀█░█░░░█▀▀░█░█░
 ░▀▀▀░▀▀▀░▀░▀░▀▀▀░▀▀▀░▀▀▀░▀▀▀░▀▀▀░▀▀░░
 ░░░░░░░░░░░░░░░░░░░░░░░░░░░░░░░░░░░░░`)
	fmt.Printf("\n coalesced v%s - Batch endpoint reference server\n", version)
	fmt.Println()
}
