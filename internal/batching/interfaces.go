// Package batching coalesces outgoing write requests into combined batch
// calls. Requests that opt in with a grouping tag are collected per
// (group, method) key and sent as one request to the batch endpoint, either
// when the coalescing window closes or as soon as the batch is full.
//
// This package only defines the collaborators it consumes. The concrete
// resty-backed implementation of both Handler and Transport lives in
// internal/transport, which keeps the coordinator testable with in-memory
// fakes.
package batching

import "context"

// Handler performs a single request. The Coordinator is itself a Handler and
// delegates requests it does not batch to the next Handler in the chain.
type Handler interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(ctx context.Context, req *Request) (*Response, error)

// Do calls f(ctx, req).
func (f HandlerFunc) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Transport sends one combined request and returns one response per
// sub-request, in submission order. An error means the combined call failed
// as a whole; per-item failures are carried inside the responses.
type Transport interface {
	SendBatch(ctx context.Context, req *BatchRequest) ([]Response, error)
}

// Matcher decides whether a request path may be batched by the server.
type Matcher interface {
	Batchable(path string) bool
}
