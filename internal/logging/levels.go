package logging

import "strings"

// ValidLogLevels is the set of level names accepted by SetLevel and by the
// --log-level flags of both binaries.
var ValidLogLevels = map[string]bool{
	"DEBUG": true,
	"INFO":  true,
	"WARN":  true,
	"ERROR": true,
}

// IsValidLogLevel reports whether level names a supported log level. Case is
// ignored.
func IsValidLogLevel(level string) bool {
	return ValidLogLevels[strings.ToUpper(level)]
}
