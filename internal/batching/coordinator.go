package batching

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/concave-dev/coalesce/internal/logging"
)

// Flush triggers, used in logs and metrics
const (
	triggerSize     = "size"
	triggerTimer    = "timer"
	triggerShutdown = "shutdown"
)

// Coordinator intercepts write requests and coalesces the batchable ones.
//
// FLUSH POLICY:
//   - The first request into an empty batch schedules one eventual flush after
//     the window; later requests reuse it
//   - The request that fills the batch to MaxBatchSize flushes it immediately
//     and cancels the pending timer
//   - Committing a flush removes the batch from the registry under the shard
//     lock, so nothing can join a batch that is being sent and a late timer
//     finds nothing to flush
//
// Each caller receives the element of the combined response at the index its
// request was appended at, or the transport error shared by the whole batch.
// Combined requests are never retried.
type Coordinator struct {
	next      Handler
	transport Transport
	matcher   Matcher
	config    *Config
	methods   map[string]bool
	window    time.Duration

	registry *registry
	closed   atomic.Bool
	inflight sync.WaitGroup

	// Metrics for monitoring and observability
	inflightFlushes  atomic.Int64
	flushesTotal     atomic.Int64
	flushesSize      atomic.Int64
	flushesTimer     atomic.Int64
	flushesFailed    atomic.Int64
	requestsBatched  atomic.Int64
	requestsBypassed atomic.Int64
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithMatcher replaces the prefix matcher built from Config.BatchablePrefixes.
func WithMatcher(m Matcher) Option {
	return func(c *Coordinator) {
		c.matcher = m
	}
}

// NewCoordinator creates a coordinator in front of next. Batchable requests
// are combined and sent through transport; everything else goes to next.
func NewCoordinator(next Handler, transport Transport, config *Config, opts ...Option) (*Coordinator, error) {
	if next == nil {
		return nil, fmt.Errorf("next handler cannot be nil")
	}
	if transport == nil {
		return nil, fmt.Errorf("transport cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Coordinator{
		next:      next,
		transport: transport,
		matcher:   NewPrefixMatcher(config.BatchablePrefixes...),
		config:    config,
		methods:   make(map[string]bool, len(config.Methods)),
		window:    config.GetWindow(),
		registry:  newRegistry(config.Shards),
	}
	for _, m := range config.Methods {
		c.methods[strings.ToUpper(m)] = true
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.matcher == nil {
		return nil, fmt.Errorf("matcher cannot be nil")
	}

	return c, nil
}

// Eligible reports whether req would be batched: batching is enabled, the
// method is a configured mutating verb, the caller supplied a grouping tag and
// the path is batchable.
func (c *Coordinator) Eligible(req *Request) bool {
	return c.config.Enabled &&
		c.methods[strings.ToUpper(req.Method)] &&
		req.BatchAs != "" &&
		c.matcher.Batchable(req.Path)
}

// Do implements Handler. Ineligible requests are forwarded to the next
// handler exactly once and its result is returned unchanged. Eligible
// requests join their batch and Do blocks until that batch is flushed.
//
// If ctx ends while waiting, Do returns ctx.Err() but the request stays in
// its batch and is still sent.
func (c *Coordinator) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}

	if !c.Eligible(req) {
		c.requestsBypassed.Add(1)
		return c.next.Do(ctx, req)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b, idx, full, err := c.enqueue(KeyFor(req), req)
	if err != nil {
		return nil, err
	}
	c.requestsBatched.Add(1)

	if full {
		go c.flush(b, triggerSize)
	}

	select {
	case <-b.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return b.result(idx)
}

// enqueue appends req to the batch for key and returns the batch, the
// request's index and whether the append filled the batch. A full batch is
// committed before the shard lock is released.
func (c *Coordinator) enqueue(key Key, req *Request) (*batch, int, bool, error) {
	s := c.registry.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	// Checked under the shard lock so Shutdown's drain sees every batch
	if c.closed.Load() {
		return nil, 0, false, ErrClosed
	}

	b, ok := s.batches[key]
	if !ok {
		b = newBatch(key)
		s.batches[key] = b
	}

	idx := len(b.requests)
	b.requests = append(b.requests, req)

	if idx+1 >= c.config.MaxBatchSize {
		c.commitLocked(s, b)
		logging.Debug("Coordinator: Batch %s full at %d requests, flushing now", key, idx+1)
		return b, idx, true, nil
	}

	if idx == 0 {
		b.timer = time.AfterFunc(c.window, func() { c.flushEventual(key, b) })
		logging.Debug("Coordinator: Started batch %s (flush in %v)", key, c.window)
	}

	return b, idx, false, nil
}

// commitLocked removes b from the registry and cancels its timer. Must be
// called with s.mu held and only while s.batches still maps b's key to b.
func (c *Coordinator) commitLocked(s *shard, b *batch) {
	delete(s.batches, b.key)
	b.stopTimer()
	c.inflight.Add(1)
}

// flushEventual is the timer callback. It commits b only if the registry
// still holds it; a batch already flushed by size or shutdown is left alone.
func (c *Coordinator) flushEventual(key Key, b *batch) {
	s := c.registry.shardFor(key)
	s.mu.Lock()
	if s.batches[key] != b {
		s.mu.Unlock()
		logging.Debug("Coordinator: Timer for batch %s fired after commit, ignoring", key)
		return
	}
	c.commitLocked(s, b)
	s.mu.Unlock()

	c.flush(b, triggerTimer)
}

// flush sends a committed batch as one combined request and releases every
// waiter. Must be called exactly once per committed batch.
func (c *Coordinator) flush(b *batch, trigger string) {
	defer c.inflight.Done()
	defer close(b.done)

	c.inflightFlushes.Add(1)
	defer c.inflightFlushes.Add(-1)

	c.flushesTotal.Add(1)
	switch trigger {
	case triggerSize:
		c.flushesSize.Add(1)
	case triggerTimer:
		c.flushesTimer.Add(1)
	}

	combined := &BatchRequest{
		Path:       c.config.BatchPath,
		Method:     http.MethodPost,
		FlushID:    b.id,
		Validation: ValidationRequireAll,
		Requests:   make([]SubRequest, len(b.requests)),
	}
	for i, req := range b.requests {
		combined.Requests[i] = project(req)
	}

	ctx := context.Background()
	if timeout := c.config.GetFlushTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logging.Debug("Coordinator: Flushing batch %s with %d requests (trigger: %s, id: %s)",
		b.key, len(b.requests), trigger, logging.FormatFlushID(b.id))

	start := time.Now()
	responses, err := c.transport.SendBatch(ctx, combined)
	if err != nil {
		c.flushesFailed.Add(1)
		b.err = err
		logging.Error("Coordinator: Batch %s (%d requests, id: %s) failed: %v",
			b.key, len(b.requests), logging.FormatFlushID(b.id), err)
		return
	}

	if len(responses) != len(b.requests) {
		logging.Warn("Coordinator: Batch %s (id: %s) got %d responses for %d requests",
			b.key, logging.FormatFlushID(b.id), len(responses), len(b.requests))
	}
	b.responses = responses

	logging.Debug("Coordinator: Batch %s flushed %d requests in %v (waited %v)",
		b.key, len(b.requests), time.Since(start), start.Sub(b.created))
}

// FlushPending commits and sends every pending batch without waiting for its
// window. It returns the number of batches flushed.
func (c *Coordinator) FlushPending() int {
	flushed := 0
	for _, s := range c.registry.shards {
		s.mu.Lock()
		pending := make([]*batch, 0, len(s.batches))
		for _, b := range s.batches {
			pending = append(pending, b)
		}
		for _, b := range pending {
			c.commitLocked(s, b)
		}
		s.mu.Unlock()

		for _, b := range pending {
			go c.flush(b, triggerShutdown)
		}
		flushed += len(pending)
	}
	return flushed
}

// Shutdown stops accepting batchable requests, flushes everything pending and
// waits for in-flight combined requests to finish or ctx to end. Requests
// that are not batchable keep passing through after Shutdown.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.closed.Store(true)

	if n := c.FlushPending(); n > 0 {
		logging.Info("Coordinator: Flushing %d pending batches before shutdown", n)
	}

	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("Coordinator: Stopped batch coordinator")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown interrupted with %d flushes in flight: %w",
			c.inflightFlushes.Load(), ctx.Err())
	}
}

// GetMetrics returns current counters for monitoring and observability.
func (c *Coordinator) GetMetrics() map[string]int64 {
	batches, requests := c.registry.stats()
	return map[string]int64{
		"pending_batches":         batches,
		"pending_requests":        requests,
		"inflight_flushes":        c.inflightFlushes.Load(),
		"flushes_total":           c.flushesTotal.Load(),
		"flushes_size_triggered":  c.flushesSize.Load(),
		"flushes_timer_triggered": c.flushesTimer.Load(),
		"flushes_failed":          c.flushesFailed.Load(),
		"requests_batched":        c.requestsBatched.Load(),
		"requests_bypassed":       c.requestsBypassed.Load(),
	}
}

// IsClosed reports whether Shutdown has been called.
func (c *Coordinator) IsClosed() bool {
	return c.closed.Load()
}
