// Package netutil binds the reference server's listener. The port is
// reserved by binding it up front and the listener is handed to the HTTP
// server, so there is no window between checking a port and using it.
package netutil

import (
	"errors"
	"fmt"
	"net"
)

// maxFallbackPorts bounds the search for a free port.
const maxFallbackPorts = 100

// AddressInUseError reports that a port is taken. The underlying error is
// kept for errors.Is checks.
type AddressInUseError struct {
	Port    int
	Address string
	Err     error
}

func (e *AddressInUseError) Error() string {
	return fmt.Sprintf("port %d is already in use on %s", e.Port, e.Address)
}

func (e *AddressInUseError) Unwrap() error {
	return e.Err
}

// BindTCP binds an IPv4 TCP listener on address:port. Port 0 asks the OS
// for a free port.
func BindTCP(address string, port int) (net.Listener, error) {
	addr := net.JoinHostPort(address, fmt.Sprint(port))

	listener, err := net.Listen("tcp4", addr)
	if err != nil {
		if IsAddressInUseError(err) {
			return nil, &AddressInUseError{Port: port, Address: address, Err: err}
		}
		return nil, fmt.Errorf("failed to bind TCP to %s: %w", addr, err)
	}

	return listener, nil
}

// BindTCPWithFallback binds preferredPort, moving on to the next port while
// ports are in use. It returns the listener and the port actually bound.
func BindTCPWithFallback(address string, preferredPort int) (net.Listener, int, error) {
	for port := preferredPort; port < preferredPort+maxFallbackPorts && port <= 65535; port++ {
		listener, err := BindTCP(address, port)
		if err != nil {
			var inUse *AddressInUseError
			if errors.As(err, &inUse) {
				continue
			}
			return nil, 0, fmt.Errorf("failed to bind TCP starting from port %d: %w", preferredPort, err)
		}
		return listener, port, nil
	}

	return nil, 0, fmt.Errorf("no available TCP port found in range %d-%d on %s",
		preferredPort, preferredPort+maxFallbackPorts-1, address)
}

// ListenerPort returns the port a TCP listener is bound to.
func ListenerPort(listener net.Listener) (int, error) {
	tcpAddr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("listener is not a TCP listener: %T", listener.Addr())
	}
	return tcpAddr.Port, nil
}
