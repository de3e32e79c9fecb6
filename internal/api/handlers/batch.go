// Package handlers provides HTTP request handlers for the coalesce reference
// server.
//
// This file implements the batch endpoint that combined requests from the
// batch coordinator are sent to. It follows the batch v1 contract of the
// content API the coordinator was designed against:
//
//   - POST /batch/v1 with {"validation": ..., "requests": [{method, path, body, headers}]}
//   - Always answers 207 Multi-Status with one response per sub-request, in
//     submission order
//   - Malformed bodies, empty request lists and oversized batches are
//     rejected as a whole with 400
//
// VALIDATION POLICIES:
//   - require-all-validate: every sub-request is validated before any runs.
//     If one fails nothing is executed and the reply is
//     {"failed": "validation", "responses": [...]} with an error for each
//     failing item and null for the rest
//   - normal (default): each sub-request is validated and run on its own;
//     failures only affect their own slot
//
// EXECUTION:
// Sub-requests are replayed through the server's own router one at a time,
// so they pass through the same middleware and handlers as direct calls.
// Only routes registered as batchable can be targeted, which also keeps the
// batch endpoint from being nested inside itself.
package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"

	"github.com/concave-dev/coalesce/internal/batching"
	"github.com/concave-dev/coalesce/internal/logging"
	"github.com/concave-dev/coalesce/internal/validate"
	"github.com/gin-gonic/gin"
)

// BatchItemHeader carries a sub-request's index when it is replayed, so
// handler logs can be tied back to the batch.
const BatchItemHeader = "X-Coalesce-Batch-Item"

// BatchRoute is a route that may appear inside a batch. Pattern segments
// starting with ':' match any single non-empty segment. Validate checks a
// sub-request body without side effects; nil accepts any body.
type BatchRoute struct {
	Method   string
	Pattern  string
	Validate func(body json.RawMessage) error
}

// Match reports whether method and path (without query) hit this route.
func (r BatchRoute) Match(method, path string) bool {
	if r.Method != method {
		return false
	}

	want := strings.Split(strings.Trim(r.Pattern, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(want) != len(got) {
		return false
	}
	for i, seg := range want {
		if strings.HasPrefix(seg, ":") {
			if got[i] == "" {
				return false
			}
			continue
		}
		if seg != got[i] {
			return false
		}
	}
	return true
}

// BatchItem is one sub-request. Method defaults to POST.
type BatchItem struct {
	Method  string            `json:"method" validate:"oneof=POST PUT PATCH DELETE"`
	Path    string            `json:"path" validate:"required,startswith=/"`
	Body    json.RawMessage   `json:"body,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// BatchRequest is the body of a batch call.
type BatchRequest struct {
	Validation string      `json:"validation" validate:"omitempty,oneof=require-all-validate normal"`
	Requests   []BatchItem `json:"requests" validate:"required,min=1,dive"`
}

// BatchItemResponse is the result of one sub-request.
type BatchItemResponse struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    json.RawMessage   `json:"body,omitempty"`
}

// BatchResponse is the 207 reply. Nil entries are sub-requests that were not
// executed.
type BatchResponse struct {
	Failed    string               `json:"failed,omitempty"`
	Responses []*BatchItemResponse `json:"responses"`
}

// HandleBatch executes combined requests. dispatch is the router sub-requests
// are replayed through; routes lists what a batch may target.
func HandleBatch(dispatch http.Handler, routes []BatchRoute, maxRequests int) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			logging.Warn("Batch: Invalid request body: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request body",
				"details": err.Error(),
			})
			return
		}

		if len(req.Requests) > maxRequests {
			logging.Warn("Batch: Rejected %d requests (max %d)", len(req.Requests), maxRequests)
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Too many requests in batch",
				"details": fmt.Sprintf("batch contains %d requests, maximum is %d", len(req.Requests), maxRequests),
			})
			return
		}

		for i := range req.Requests {
			req.Requests[i].Method = strings.ToUpper(req.Requests[i].Method)
			if req.Requests[i].Method == "" {
				req.Requests[i].Method = http.MethodPost
			}
		}

		if err := validate.ValidateStruct(&req); err != nil {
			logging.Warn("Batch: Invalid batch request: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid batch request",
				"details": err.Error(),
			})
			return
		}

		batchID := c.GetHeader(batching.BatchIDHeader)
		policy := req.Validation
		if policy == "" {
			policy = batching.ValidationNormal
		}

		checks := make([]*BatchItemResponse, len(req.Requests))
		failed := 0
		for i, item := range req.Requests {
			checks[i] = validateItem(routes, item)
			if checks[i] != nil {
				failed++
			}
		}

		if policy == batching.ValidationRequireAll && failed > 0 {
			logging.Warn("Batch %s: %d of %d requests failed validation, nothing executed",
				logging.FormatFlushID(batchID), failed, len(req.Requests))
			c.JSON(http.StatusMultiStatus, BatchResponse{Failed: "validation", Responses: checks})
			return
		}

		responses := make([]*BatchItemResponse, len(req.Requests))
		for i, item := range req.Requests {
			if checks[i] != nil {
				responses[i] = checks[i]
				continue
			}
			responses[i] = executeItem(c, dispatch, item, batchID, i)
		}

		logging.Info("Batch %s: Executed %d requests (validation: %s, rejected: %d)",
			logging.FormatFlushID(batchID), len(req.Requests)-failed, policy, failed)
		c.JSON(http.StatusMultiStatus, BatchResponse{Responses: responses})
	}
}

// validateItem returns an error response for a sub-request that cannot run,
// or nil if it may be executed.
func validateItem(routes []BatchRoute, item BatchItem) *BatchItemResponse {
	if err := validate.RequestPath(item.Path); err != nil {
		return errorItem(http.StatusBadRequest, "Invalid path", err.Error())
	}

	path := item.Path
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	for _, route := range routes {
		if !route.Match(item.Method, path) {
			continue
		}
		if route.Validate == nil {
			return nil
		}
		if err := route.Validate(item.Body); err != nil {
			return errorItem(http.StatusBadRequest, "Invalid parameter(s)", err.Error())
		}
		return nil
	}

	return errorItem(http.StatusNotFound, "No route was found matching the URL and request method",
		item.Method+" "+path)
}

// executeItem replays one sub-request through dispatch and records its reply.
func executeItem(c *gin.Context, dispatch http.Handler, item BatchItem, batchID string, idx int) *BatchItemResponse {
	r, err := http.NewRequestWithContext(c.Request.Context(), item.Method, item.Path, bytes.NewReader(item.Body))
	if err != nil {
		return errorItem(http.StatusBadRequest, "Invalid request", err.Error())
	}

	r.Header.Set("Content-Type", "application/json")
	for k, v := range item.Headers {
		r.Header.Set(k, v)
	}
	if batchID != "" {
		r.Header.Set(batching.BatchIDHeader, batchID)
	}
	r.Header.Set(BatchItemHeader, strconv.Itoa(idx))
	r.RemoteAddr = c.Request.RemoteAddr

	rec := httptest.NewRecorder()
	dispatch.ServeHTTP(rec, r)

	return &BatchItemResponse{
		Status:  rec.Code,
		Headers: itemHeaders(rec.Header()),
		Body:    batching.RawBody(rec.Body.Bytes()),
	}
}

func errorItem(status int, message, details string) *BatchItemResponse {
	body, _ := json.Marshal(gin.H{"error": message, "details": details})
	return &BatchItemResponse{Status: status, Body: body}
}

// itemHeaders flattens a sub-response's headers, dropping CORS headers that
// only matter on the outer response.
func itemHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) == 0 || strings.HasPrefix(k, "Access-Control-") {
			continue
		}
		out[k] = v[0]
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// batchSuffix describes the batch a replayed request belongs to, for logs.
func batchSuffix(c *gin.Context) string {
	item := c.GetHeader(BatchItemHeader)
	if item == "" {
		return ""
	}
	return fmt.Sprintf(" (batch %s item %s)", logging.FormatFlushID(c.GetHeader(batching.BatchIDHeader)), item)
}
