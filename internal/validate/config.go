package validate

import (
	"fmt"
	"strings"
	"time"
)

// ValidatePortRange validates that a port number is within 1-65535. Port 0
// (OS-assigned) is rejected.
func ValidatePortRange(port int) error {
	return ValidateField(port, "required,min=1,max=65535")
}

// ValidateRequiredString validates that a string field is not empty.
func ValidateRequiredString(value, fieldName string) error {
	if err := ValidateField(value, "required"); err != nil {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	return nil
}

// ValidatePositiveTimeout validates that a timeout duration is positive (> 0).
func ValidatePositiveTimeout(timeout time.Duration, name string) error {
	if timeout <= 0 {
		return fmt.Errorf("%s must be positive", name)
	}
	return nil
}

// ValidateLogLevel checks a log level flag value.
func ValidateLogLevel(level string) error {
	if err := ValidateField(level, "oneof=DEBUG INFO WARN ERROR"); err != nil {
		return fmt.Errorf("invalid log level: %s (must be DEBUG, INFO, WARN or ERROR)", level)
	}
	return nil
}

// RequestPath validates a request path such as "/api/v1/documents/42". The
// path must be absolute, free of whitespace and must not contain ".."
// segments. A query string is allowed.
func RequestPath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("path %q must start with '/'", path)
	}
	if strings.ContainsAny(path, " \t\r\n") {
		return fmt.Errorf("path %q must not contain whitespace", path)
	}

	p := path
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return fmt.Errorf("path %q must not contain '..' segments", path)
		}
	}
	return nil
}
