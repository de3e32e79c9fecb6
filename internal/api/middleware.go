package api

import (
	"time"

	"github.com/concave-dev/coalesce/internal/api/handlers"
	"github.com/concave-dev/coalesce/internal/batching"
	"github.com/concave-dev/coalesce/internal/logging"
	"github.com/gin-gonic/gin"
)

// loggingMiddleware provides request logging. Sub-requests replayed from a
// batch are tagged with their index.
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		tag := ""
		if item := param.Request.Header.Get(handlers.BatchItemHeader); item != "" {
			tag = " [batch item " + item + "]"
		}

		logging.Info("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"%s",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
			tag,
		)
		return ""
	})
}

// corsMiddleware provides CORS headers
func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, "+batching.BatchIDHeader)
		c.Header("Access-Control-Expose-Headers", "Location, "+batching.BatchIDHeader)
		c.Header("Access-Control-Max-Age", "300")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// batchIDMiddleware echoes the batch ID of a combined request on the
// response so clients can match replies to flushes.
func (s *Server) batchIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetHeader(batching.BatchIDHeader); id != "" {
			c.Header(batching.BatchIDHeader, id)
		}
		c.Next()
	}
}
