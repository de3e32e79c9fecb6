// Package client provides the API client the coalescectl commands use.
//
// The client wraps the shared resty transport from internal/transport, so the
// CLI talks to the server with the same retry policy and logging hooks the
// batch coordinator uses. Reads decode into the server's own response types.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/concave-dev/coalesce/cmd/coalescectl/config"
	"github.com/concave-dev/coalesce/internal/api/handlers"
	defaults "github.com/concave-dev/coalesce/internal/config"
	"github.com/concave-dev/coalesce/internal/store"
	"github.com/concave-dev/coalesce/internal/transport"
)

// Health is the server health report.
type Health = handlers.HealthResponse

// APIClient talks to one coalesce server.
type APIClient struct {
	*transport.Client
	documentsPath string
}

// NewAPIClient creates a client for apiAddr ("host:port") with a per-request
// timeout in seconds.
func NewAPIClient(apiAddr string, timeout int) (*APIClient, error) {
	tc, err := transport.New(&transport.Config{
		BaseURL:    "http://" + apiAddr,
		Timeout:    time.Duration(timeout) * time.Second,
		RetryCount: 3,
		UserAgent:  fmt.Sprintf("coalescectl/%s", config.Version),
	})
	if err != nil {
		return nil, err
	}

	return &APIClient{
		Client:        tc,
		documentsPath: defaults.DefaultDocumentsPath,
	}, nil
}

// CreateAPIClient creates a client from the global CLI configuration.
func CreateAPIClient() (*APIClient, error) {
	return NewAPIClient(config.Global.APIAddr, config.Global.Timeout)
}

// GetHealth fetches the server health report.
func (c *APIClient) GetHealth(ctx context.Context) (*Health, error) {
	var health Health
	if err := c.GetJSON(ctx, "/api/v1/health", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// ListDocuments fetches every document on the server.
func (c *APIClient) ListDocuments(ctx context.Context) ([]store.Document, error) {
	var list handlers.DocumentListResponse
	if err := c.GetJSON(ctx, c.documentsPath, &list); err != nil {
		return nil, err
	}
	return list.Documents, nil
}
