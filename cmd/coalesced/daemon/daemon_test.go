package daemon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/concave-dev/coalesce/cmd/coalesced/config"
	"github.com/concave-dev/coalesce/internal/netutil"
)

// occupyPort binds a free loopback port and keeps it bound for the test.
func occupyPort(t *testing.T) int {
	t.Helper()
	l, err := netutil.BindTCP("127.0.0.1", 0)
	if err != nil {
		t.Fatalf("failed to bind: %v", err)
	}
	t.Cleanup(func() { l.Close() })

	port, err := netutil.ListenerPort(l)
	if err != nil {
		t.Fatalf("ListenerPort() error = %v", err)
	}
	return port
}

func withConfig(t *testing.T, port int, explicit bool) {
	t.Helper()
	saved := config.Global
	config.Global = config.Config{
		APIAddr:          "127.0.0.1",
		APIPort:          port,
		BatchPath:        config.DefaultBatchPath,
		DocumentsPath:    config.DefaultDocumentsPath,
		MaxBatchRequests: config.DefaultMaxBatchRequests,
		LogLevel:         "ERROR",
	}
	config.Global.SetExplicitlySet(config.APIAddrField, explicit)
	t.Cleanup(func() { config.Global = saved })
}

func TestBindAPIListener_Fallback(t *testing.T) {
	taken := occupyPort(t)
	withConfig(t, taken, false)

	listener, port, err := bindAPIListener()
	if err != nil {
		t.Fatalf("bindAPIListener() error = %v", err)
	}
	defer listener.Close()

	if port == taken {
		t.Errorf("expected fallback away from occupied port %d", taken)
	}
	if port <= taken {
		t.Errorf("fallback port %d should be above %d", port, taken)
	}
}

func TestBindAPIListener_ExplicitPortInUse(t *testing.T) {
	taken := occupyPort(t)
	withConfig(t, taken, true)

	_, _, err := bindAPIListener()
	var inUse *netutil.AddressInUseError
	if !errors.As(err, &inUse) {
		t.Fatalf("expected AddressInUseError, got %v", err)
	}
	if inUse.Port != taken {
		t.Errorf("AddressInUseError.Port = %d, want %d", inUse.Port, taken)
	}
}

func TestBuildAPIConfig(t *testing.T) {
	withConfig(t, 9100, true)
	config.Global.MaxBatchRequests = 7

	c := buildAPIConfig(nil)
	if c.BindAddr != "127.0.0.1" || c.BindPort != 9100 {
		t.Errorf("bind = %s:%d, want 127.0.0.1:9100", c.BindAddr, c.BindPort)
	}
	if c.MaxBatchRequests != 7 {
		t.Errorf("MaxBatchRequests = %d, want 7", c.MaxBatchRequests)
	}
	if c.BatchPath != config.DefaultBatchPath || c.DocumentsPath != config.DefaultDocumentsPath {
		t.Errorf("paths = %s, %s", c.BatchPath, c.DocumentsPath)
	}
}

func TestRunWithContext_Shutdown(t *testing.T) {
	withConfig(t, occupyPort(t), false)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- RunWithContext(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("RunWithContext() error = %v", err)
		}
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("RunWithContext did not return after cancel")
	}
}
