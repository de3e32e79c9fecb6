package batching

import (
	"bytes"
	"encoding/json"
	"errors"
	"maps"
	"strings"
)

const (
	// ValidationRequireAll asks the server to validate every sub-request
	// before executing any of them.
	ValidationRequireAll = "require-all-validate"

	// ValidationNormal lets the server validate and execute each sub-request
	// independently.
	ValidationNormal = "normal"

	// BatchIDHeader carries the flush ID of a combined request so client and
	// server logs can be correlated.
	BatchIDHeader = "X-Coalesce-Batch-ID"
)

var (
	// ErrClosed is returned for batchable requests submitted after Shutdown.
	ErrClosed = errors.New("batching: coordinator is shut down")

	// ErrMissingResponse is returned when the combined response has no element
	// at the caller's index.
	ErrMissingResponse = errors.New("batching: no response for request")
)

// Request is an outbound operation. BatchAs opts the request into batching;
// requests without it are never batched. The coordinator does not modify
// requests after they are submitted.
type Request struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Body    json.RawMessage   `json:"body,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	BatchAs string            `json:"batch_as,omitempty"`
}

// Response is the result of a single request, or one element of a combined
// response. A zero Status means the server did not execute the sub-request,
// which happens when another request in the same batch failed validation.
//
// Body is always valid JSON. A body that was not JSON on the wire, such as a
// plain-text error page, is carried as a JSON string (see RawBody).
type Response struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    json.RawMessage   `json:"body,omitempty"`
}

// Executed reports whether the server ran the request.
func (r *Response) Executed() bool {
	return r != nil && r.Status != 0
}

// OK reports whether the request ran and returned a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// Key identifies a batch: requests share a batch only when both the grouping
// tag and the method are equal. Key is comparable and used directly as a map
// key.
type Key struct {
	Group  string
	Method string
}

// KeyFor derives the batch key of a request. Methods compare
// case-insensitively.
func KeyFor(req *Request) Key {
	return Key{Group: req.BatchAs, Method: strings.ToUpper(req.Method)}
}

// String renders the key for logs, e.g. "editor-save/POST".
func (k Key) String() string {
	return k.Group + "/" + k.Method
}

// SubRequest is the wire form of one request inside a combined request. The
// method is sent with every sub-request because the server routes each one
// on its own, and a batch may hold PUT, PATCH or DELETE as well as POST. The
// grouping tag is internal bookkeeping and is not sent.
type SubRequest struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Body    json.RawMessage   `json:"body,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// BatchRequest is the combined request handed to the Transport. Path, Method
// and FlushID describe the outer call; only Validation and Requests form the
// JSON body.
type BatchRequest struct {
	Path       string       `json:"-"`
	Method     string       `json:"-"`
	FlushID    string       `json:"-"`
	Validation string       `json:"validation"`
	Requests   []SubRequest `json:"requests"`
}

// RawBody converts an HTTP response body to a Response body. JSON is copied
// as-is; anything else is quoted as a JSON string, so the original bytes are
// not preserved for non-JSON bodies. An empty body yields nil.
func RawBody(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	if json.Valid(b) {
		return json.RawMessage(bytes.Clone(b))
	}
	quoted, _ := json.Marshal(string(b))
	return quoted
}

// project converts a request to its wire form. Headers are copied so the
// caller's map is never shared with the transport.
func project(req *Request) SubRequest {
	return SubRequest{
		Method:  strings.ToUpper(req.Method),
		Path:    req.Path,
		Body:    req.Body,
		Headers: maps.Clone(req.Headers),
	}
}
