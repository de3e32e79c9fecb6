package netutil

import (
	"errors"
	"net"
	"syscall"
)

// IsAddressInUseError reports whether err is an EADDRINUSE from a bind.
func IsAddressInUseError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, syscall.EADDRINUSE)
	}
	return false
}

// IsConnectionRefusedError reports whether err is an ECONNREFUSED, i.e. no
// server is listening at the target address. The CLI uses it to tell an
// unreachable server apart from a failing one.
func IsConnectionRefusedError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, syscall.ECONNREFUSED)
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
