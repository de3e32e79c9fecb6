package api

import (
	"github.com/concave-dev/coalesce/internal/api/handlers"
	"github.com/gin-gonic/gin"
)

// Configures all API routes
func (s *Server) setupRoutes(router *gin.Engine) {
	// API version prefix
	v1 := router.Group("/api/v1")

	// Health check endpoint
	v1.GET("/health", s.getHandlerHealth())

	// Document endpoints, also reachable from inside a batch
	docs := router.Group(s.documentsPath)
	{
		docs.GET("", handlers.HandleListDocuments(s.store))
		docs.POST("", handlers.HandleCreateDocument(s.store))
		docs.GET("/:id", handlers.HandleGetDocument(s.store))
		docs.PUT("/:id", handlers.HandleReplaceDocument(s.store))
		docs.PATCH("/:id", handlers.HandlePatchDocument(s.store))
		docs.DELETE("/:id", handlers.HandleDeleteDocument(s.store))
	}

	// Combined requests from the batch coordinator
	router.POST(s.batchPath, s.getHandlerBatch())
}
