// Package daemon runs the coalesce reference server from startup to graceful
// shutdown.
//
// STARTUP:
//   - Bind the API listener first. An explicit --api port must be free; the
//     default port falls back to the next free one
//   - Create the in-memory document store and the API server on the
//     pre-bound listener
//   - Serve until SIGINT/SIGTERM, then shut the HTTP server down with a
//     timeout so in-flight batches can finish
package daemon

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/concave-dev/coalesce/cmd/coalesced/config"
	"github.com/concave-dev/coalesce/internal/api"
	"github.com/concave-dev/coalesce/internal/logging"
	"github.com/concave-dev/coalesce/internal/netutil"
	"github.com/concave-dev/coalesce/internal/store"
	"github.com/concave-dev/coalesce/internal/version"
)

// shutdownTimeout bounds how long in-flight requests get after a signal.
const shutdownTimeout = 5 * time.Second

// buildAPIConfig converts daemon config to API config
func buildAPIConfig(docs *store.Store) *api.Config {
	apiConfig := api.DefaultConfig()

	apiConfig.BindAddr = config.Global.APIAddr
	apiConfig.BindPort = config.Global.APIPort
	apiConfig.BatchPath = config.Global.BatchPath
	apiConfig.DocumentsPath = config.Global.DocumentsPath
	apiConfig.MaxBatchRequests = config.Global.MaxBatchRequests
	apiConfig.Store = docs

	return apiConfig
}

// bindAPIListener reserves the API port. The returned port may differ from
// the configured one only when --api was not given explicitly.
func bindAPIListener() (net.Listener, int, error) {
	addr, port := config.Global.APIAddr, config.Global.APIPort

	if config.Global.IsExplicitlySet(config.APIAddrField) {
		listener, err := netutil.BindTCP(addr, port)
		if err != nil {
			return nil, 0, err
		}
		return listener, port, nil
	}

	listener, bound, err := netutil.BindTCPWithFallback(addr, port)
	if err != nil {
		return nil, 0, err
	}
	if bound != port {
		logging.Warn("API port %d is in use, using %d instead", port, bound)
	}
	return listener, bound, nil
}

// Run starts the server and blocks until SIGINT or SIGTERM.
func Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			logging.Info("Received signal: %v", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return RunWithContext(ctx)
}

// RunWithContext starts the server and blocks until ctx is cancelled, then
// shuts it down gracefully.
func RunWithContext(ctx context.Context) error {
	logging.SetLevel(config.Global.LogLevel)
	logging.Info("Starting coalesce daemon v%s", version.CoalescedVersion)

	// net/http reports connection errors through the standard logger
	logging.RedirectStandardLog(logging.NewLevelWriter("WARN", "http"))

	listener, port, err := bindAPIListener()
	if err != nil {
		logging.Error("Failed to bind API listener: %v", err)
		return fmt.Errorf("failed to bind API listener: %w", err)
	}
	config.Global.APIPort = port

	docs := store.New()
	apiServer, err := api.NewServerWithListener(buildAPIConfig(docs), listener)
	if err != nil {
		logging.Error("Failed to create API server: %v", err)
		listener.Close() // Clean up pre-bound listener on error
		return fmt.Errorf("failed to create API server: %w", err)
	}
	if err := apiServer.Start(); err != nil {
		logging.Error("Failed to start API server: %v", err)
		return fmt.Errorf("failed to start API server: %w", err)
	}

	logging.Success("coalesce daemon started successfully")
	logging.Info("Daemon running... Press Ctrl+C to shutdown")
	logging.Info("  - HTTP API: %s:%d", config.Global.APIAddr, port)
	logging.Info("  - Documents: %s", config.Global.DocumentsPath)
	logging.Info("  - Batch endpoint: %s (max %d requests)", config.Global.BatchPath, config.Global.MaxBatchRequests)

	<-ctx.Done()

	logging.Info("Initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logging.Error("Error shutting down API server: %v", err)
	}

	logging.Success("coalesce daemon shutdown completed (%d documents in memory discarded)", docs.Count())
	return nil
}
