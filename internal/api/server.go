package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/concave-dev/coalesce/internal/api/handlers"
	"github.com/concave-dev/coalesce/internal/logging"
	"github.com/concave-dev/coalesce/internal/netutil"
	"github.com/concave-dev/coalesce/internal/store"
	"github.com/concave-dev/coalesce/internal/version"
	"github.com/gin-gonic/gin"
)

// Represents the coalesce reference server
type Server struct {
	store            *store.Store
	router           *gin.Engine
	httpServer       *http.Server
	listener         net.Listener // Pre-bound listener, nil until bound
	bindAddr         string
	bindPort         int
	batchPath        string
	documentsPath    string
	maxBatchRequests int
}

var (
	startTime = time.Now() // Track server start time for uptime calculation
)

// NewServer creates a new server instance with its routes registered. The
// config is not validated; use NewServerWithListener for that.
func NewServer(config *Config) *Server {
	// Set Gin to release mode for production
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		store:            config.Store,
		bindAddr:         config.BindAddr,
		bindPort:         config.BindPort,
		batchPath:        config.BatchPath,
		documentsPath:    config.DocumentsPath,
		maxBatchRequests: config.MaxBatchRequests,
	}
	s.router = s.buildRouter()
	return s
}

// NewServerWithListener validates config and creates a server that will
// serve on an already bound listener. The bind port is taken from the
// listener, which allows port 0 and fallback binding.
func NewServerWithListener(config *Config, listener net.Listener) (*Server, error) {
	if listener == nil {
		return nil, fmt.Errorf("listener cannot be nil")
	}

	port, err := netutil.ListenerPort(listener)
	if err != nil {
		return nil, err
	}

	cfg := *config
	cfg.BindPort = port
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid API config: %w", err)
	}

	s := NewServer(&cfg)
	s.listener = listener
	return s, nil
}

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()

	// Configure Gin logging only if not already configured by CLI tools
	if !logging.IsConfiguredByCLI() {
		gin.DefaultWriter = logging.NewLevelWriter("INFO", "gin")
		gin.DefaultErrorWriter = logging.NewLevelWriter("ERROR", "gin")
	}

	router.Use(s.loggingMiddleware())
	router.Use(s.corsMiddleware())
	router.Use(s.batchIDMiddleware())
	router.Use(gin.Recovery())

	s.setupRoutes(router)
	return router
}

// Handler returns the server's router, for in-process use and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the address the server is (or will be) bound to.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return net.JoinHostPort(s.bindAddr, fmt.Sprint(s.bindPort))
}

// Start binds the listener if needed and serves in the background.
func (s *Server) Start() error {
	if s.listener == nil {
		listener, err := netutil.BindTCP(s.bindAddr, s.bindPort)
		if err != nil {
			return err
		}
		s.listener = listener
	}

	logging.Info("Starting HTTP API server on %s", s.Addr())

	s.httpServer = &http.Server{
		Handler: s.router,
		// Timeouts for production
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("HTTP server failed: %v", err)
		}
	}()

	logging.Success("HTTP API server started successfully (batch endpoint: %s, max %d requests)",
		s.batchPath, s.maxBatchRequests)
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down HTTP API server...")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	if s.listener != nil {
		return s.listener.Close()
	}

	return nil
}

// getHandlerHealth is a health endpoint handler factory
func (s *Server) getHandlerHealth() gin.HandlerFunc {
	return handlers.HandleHealth(handlers.HealthInfo{
		Version:          version.CoalescedVersion,
		StartTime:        startTime,
		BatchPath:        s.batchPath,
		MaxBatchRequests: s.maxBatchRequests,
		Documents:        s.store.Count,
	})
}

// getHandlerBatch is a batch endpoint handler factory. Sub-requests are
// replayed through the server's own router.
func (s *Server) getHandlerBatch() gin.HandlerFunc {
	dispatch := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.router.ServeHTTP(w, r)
	})
	return handlers.HandleBatch(dispatch, handlers.DocumentBatchRoutes(s.documentsPath), s.maxBatchRequests)
}
