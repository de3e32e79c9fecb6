// Package validate provides validation utilities for coalesce components,
// wrapping the go-playground/validator library so configuration, network
// addresses and request payloads share one set of rules and error messages.
//
// VALIDATION FEATURES:
//   - Network: "host:port" parsing with IP and port range checks
//   - Fields: single-value validation against validator tags
//   - Structs: tag-driven validation with readable, field-keyed messages
//   - Paths: request path and path prefix format checks
package validate

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// Global validator instance using built-in validations
	validate *validator.Validate
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
}

// NetworkAddress represents a validated network address with host and port
// components. Uses struct tags for validation via go-playground/validator.
type NetworkAddress struct {
	Host string `validate:"required,ip"`              // Built-in IP validator
	Port int    `validate:"required,min=0,max=65535"` // Built-in range validator
}

// String returns the network address in "host:port" format.
func (na NetworkAddress) String() string {
	return fmt.Sprintf("%s:%d", na.Host, na.Port)
}

// ParseBindAddress parses and validates a "host:port" address string used for
// server binding and client connections.
func ParseBindAddress(addr string) (*NetworkAddress, error) {
	if addr == "" {
		return nil, fmt.Errorf("address cannot be empty")
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address format '%s': %w", addr, err)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port '%s': %w", portStr, err)
	}

	netAddr := &NetworkAddress{
		Host: host,
		Port: port,
	}

	if err := validate.Struct(netAddr); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return netAddr, nil
}

// ValidateField validates a single value against validator tags.
//
// Example: ValidateField("192.168.1.1", "required,ip")
func ValidateField(value any, tag string) error {
	return validate.Var(value, tag)
}

// ValidateStruct validates a struct using its `validate` tags and returns an
// error listing every failing field, e.g.
// "title: failed 'required'; status: failed 'oneof=draft publish private'".
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, fmt.Sprintf("%s: failed '%s'", strings.ToLower(fe.Field()), rule))
	}
	return errors.New(strings.Join(parts, "; "))
}
