package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthInfo describes the server for health responses.
type HealthInfo struct {
	Version          string
	StartTime        time.Time
	BatchPath        string
	MaxBatchRequests int
	Documents        func() int // current document count
}

// Represents the health check response
type HealthResponse struct {
	Status           string    `json:"status"`
	Timestamp        time.Time `json:"timestamp"`
	Version          string    `json:"version"`
	Uptime           string    `json:"uptime"`
	BatchPath        string    `json:"batch_path"`
	MaxBatchRequests int       `json:"max_batch_requests"`
	Documents        int       `json:"documents"`
}

// HandleHealth returns the health status of the server along with the batch
// limits clients need to size their batches.
func HandleHealth(info HealthInfo) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := HealthResponse{
			Status:           "healthy",
			Timestamp:        time.Now(),
			Version:          info.Version,
			Uptime:           time.Since(info.StartTime).Round(time.Second).String(),
			BatchPath:        info.BatchPath,
			MaxBatchRequests: info.MaxBatchRequests,
		}
		if info.Documents != nil {
			response.Documents = info.Documents()
		}

		c.JSON(http.StatusOK, response)
	}
}
