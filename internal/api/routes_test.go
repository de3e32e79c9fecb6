package api

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

// TestSetupRoutes tests that routes are properly registered by checking the route tree
func TestSetupRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	server := NewServer(validConfig())
	router := gin.New()
	server.setupRoutes(router)

	expectedRoutes := map[string]string{
		"GET /api/v1/health":           "health endpoint",
		"GET /api/v1/documents":        "list documents endpoint",
		"POST /api/v1/documents":       "create document endpoint",
		"GET /api/v1/documents/:id":    "get document endpoint",
		"PUT /api/v1/documents/:id":    "replace document endpoint",
		"PATCH /api/v1/documents/:id":  "patch document endpoint",
		"DELETE /api/v1/documents/:id": "delete document endpoint",
		"POST /batch/v1":               "batch endpoint",
	}

	registeredRoutes := make(map[string]bool)
	for _, route := range router.Routes() {
		registeredRoutes[route.Method+" "+route.Path] = true
	}

	for expectedRoute, description := range expectedRoutes {
		t.Run(description, func(t *testing.T) {
			if !registeredRoutes[expectedRoute] {
				t.Errorf("Route %s not registered", expectedRoute)
			}
		})
	}

	if len(registeredRoutes) != len(expectedRoutes) {
		t.Errorf("Expected %d routes, got %d", len(expectedRoutes), len(registeredRoutes))
	}
}

// TestSetupRoutes_CustomPaths tests that configured paths are honoured
func TestSetupRoutes_CustomPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)

	config := validConfig()
	config.BatchPath = "/wp-json/batch/v1"
	config.DocumentsPath = "/wp-json/wp/v2/posts"
	server := NewServer(config)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/wp-json/wp/v2/posts", 200},
		{"GET", "/api/v1/documents", 404},
		{"POST", "/batch/v1", 404},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			server.Handler().ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
