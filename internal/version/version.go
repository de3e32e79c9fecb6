// Package version provides centralized version information for the coalesce
// binaries. The daemon and the CLI are versioned independently.
// All versions follow semantic versioning (semver) conventions.
package version

// CoalescedVersion holds the current coalesced (reference server) version.
const CoalescedVersion = "0.1.0-dev"

// CoalescectlVersion holds the current coalescectl CLI version.
const CoalescectlVersion = "0.1.0-dev"
