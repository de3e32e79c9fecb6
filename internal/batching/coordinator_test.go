package batching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"
)

// fakeTransport records combined requests and echoes each sub-request body
// back as a 200 response unless configured otherwise.
type fakeTransport struct {
	mu    sync.Mutex
	calls []*BatchRequest

	err   error
	short int           // when > 0, return only this many responses
	gate  chan struct{} // when set, SendBatch blocks until it is closed
}

func (f *fakeTransport) SendBatch(ctx context.Context, req *BatchRequest) ([]Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if f.err != nil {
		return nil, f.err
	}

	n := len(req.Requests)
	if f.short > 0 && f.short < n {
		n = f.short
	}
	responses := make([]Response, n)
	for i := 0; i < n; i++ {
		responses[i] = Response{Status: http.StatusOK, Body: req.Requests[i].Body}
	}
	return responses, nil
}

func (f *fakeTransport) Calls() []*BatchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*BatchRequest(nil), f.calls...)
}

// countingHandler is the next handler; it counts pass-through calls.
type countingHandler struct {
	mu    sync.Mutex
	count int
	resp  *Response
}

func (h *countingHandler) Do(ctx context.Context, req *Request) (*Response, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	return h.resp, nil
}

func (h *countingHandler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func testConfig(maxSize, windowMs int) *Config {
	cfg := DefaultConfig()
	cfg.MaxBatchSize = maxSize
	cfg.WindowMs = windowMs
	cfg.FlushTimeoutMs = 5000
	return cfg
}

func newTestCoordinator(t *testing.T, cfg *Config, tr *fakeTransport) (*Coordinator, *countingHandler) {
	t.Helper()
	next := &countingHandler{resp: &Response{Status: http.StatusCreated}}
	c, err := NewCoordinator(next, tr, cfg)
	if err != nil {
		t.Fatalf("NewCoordinator() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		c.Shutdown(ctx)
	})
	return c, next
}

func docRequest(group, method string, n int) *Request {
	return &Request{
		Method:  method,
		Path:    fmt.Sprintf("/api/v1/documents/%d", n),
		Body:    json.RawMessage(fmt.Sprintf(`{"n":%d}`, n)),
		Headers: map[string]string{"X-Seq": fmt.Sprint(n)},
		BatchAs: group,
	}
}

// waitForMetric polls GetMetrics until key reaches want.
func waitForMetric(t *testing.T, c *Coordinator, key string, want int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.GetMetrics()[key] == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("metric %s = %d, want %d", key, c.GetMetrics()[key], want)
}

type result struct {
	resp *Response
	err  error
}

// submitAsync starts Do in a goroutine and returns a channel with its result.
func submitAsync(ctx context.Context, c *Coordinator, req *Request) <-chan result {
	ch := make(chan result, 1)
	go func() {
		resp, err := c.Do(ctx, req)
		ch <- result{resp, err}
	}()
	return ch
}

func await(t *testing.T, ch <-chan result) result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for Do to return")
		return result{}
	}
}

// TestNewCoordinator_Invalid tests constructor argument checks
func TestNewCoordinator_Invalid(t *testing.T) {
	next := &countingHandler{}
	tr := &fakeTransport{}

	badConfig := DefaultConfig()
	badConfig.MaxBatchSize = 0

	tests := []struct {
		name      string
		next      Handler
		transport Transport
		config    *Config
	}{
		{"nil next", nil, tr, DefaultConfig()},
		{"nil transport", next, nil, DefaultConfig()},
		{"invalid config", next, tr, badConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCoordinator(tt.next, tt.transport, tt.config); err == nil {
				t.Errorf("NewCoordinator() error = nil, want error")
			}
		})
	}

	// nil config falls back to defaults
	if _, err := NewCoordinator(next, tr, nil); err != nil {
		t.Errorf("NewCoordinator(nil config) error = %v", err)
	}
}

// TestCoordinator_BypassIneligible tests that ineligible requests reach the
// next handler exactly once and never the transport
func TestCoordinator_BypassIneligible(t *testing.T) {
	disabled := testConfig(20, 50)
	disabled.Enabled = false

	tests := []struct {
		name   string
		config *Config
		req    *Request
	}{
		{"read method", testConfig(20, 50), &Request{Method: http.MethodGet, Path: "/api/v1/documents/1", BatchAs: "g1"}},
		{"no grouping tag", testConfig(20, 50), &Request{Method: http.MethodPost, Path: "/api/v1/documents"}},
		{"path not batchable", testConfig(20, 50), &Request{Method: http.MethodPost, Path: "/api/v1/users", BatchAs: "g1"}},
		{"prefix without segment boundary", testConfig(20, 50), &Request{Method: http.MethodPost, Path: "/api/v1/documents-archive", BatchAs: "g1"}},
		{"batching disabled", disabled, &Request{Method: http.MethodPost, Path: "/api/v1/documents", BatchAs: "g1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTransport{}
			c, next := newTestCoordinator(t, tt.config, tr)

			resp, err := c.Do(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("Do() error = %v", err)
			}
			if resp != next.resp {
				t.Errorf("Do() response = %+v, want next handler's response unchanged", resp)
			}
			if next.Count() != 1 {
				t.Errorf("next handler called %d times, want 1", next.Count())
			}
			if len(tr.Calls()) != 0 {
				t.Errorf("transport called %d times, want 0", len(tr.Calls()))
			}
			if got := c.GetMetrics()["requests_bypassed"]; got != 1 {
				t.Errorf("requests_bypassed = %d, want 1", got)
			}
		})
	}
}

// TestCoordinator_CoalescesWithinWindow tests that requests sharing a key are
// sent as one combined request in submission order and demultiplexed by index
func TestCoordinator_CoalescesWithinWindow(t *testing.T) {
	tr := &fakeTransport{}
	c, next := newTestCoordinator(t, testConfig(20, 500), tr)

	const n = 5
	results := make([]<-chan result, n)
	for i := 0; i < n; i++ {
		results[i] = submitAsync(context.Background(), c, docRequest("editor-save", http.MethodPost, i))
		waitForMetric(t, c, "pending_requests", int64(i+1))
	}

	for i := 0; i < n; i++ {
		r := await(t, results[i])
		if r.err != nil {
			t.Fatalf("request %d: error = %v", i, r.err)
		}
		want := fmt.Sprintf(`{"n":%d}`, i)
		if string(r.resp.Body) != want {
			t.Errorf("request %d: body = %s, want %s", i, r.resp.Body, want)
		}
	}

	calls := tr.Calls()
	if len(calls) != 1 {
		t.Fatalf("transport called %d times, want 1", len(calls))
	}

	combined := calls[0]
	if combined.Path != "/batch/v1" || combined.Method != http.MethodPost {
		t.Errorf("combined request = %s %s, want POST /batch/v1", combined.Method, combined.Path)
	}
	if combined.Validation != ValidationRequireAll {
		t.Errorf("validation = %q, want %q", combined.Validation, ValidationRequireAll)
	}
	if combined.FlushID == "" {
		t.Error("combined request has no flush ID")
	}
	if len(combined.Requests) != n {
		t.Fatalf("combined request has %d sub-requests, want %d", len(combined.Requests), n)
	}
	for i, sub := range combined.Requests {
		if want := fmt.Sprintf("/api/v1/documents/%d", i); sub.Path != want {
			t.Errorf("sub-request %d path = %s, want %s", i, sub.Path, want)
		}
		if sub.Headers["X-Seq"] != fmt.Sprint(i) {
			t.Errorf("sub-request %d headers = %v", i, sub.Headers)
		}
	}

	if next.Count() != 0 {
		t.Errorf("next handler called %d times, want 0", next.Count())
	}

	metrics := c.GetMetrics()
	if metrics["flushes_timer_triggered"] != 1 || metrics["flushes_size_triggered"] != 0 {
		t.Errorf("flush triggers = %v, want one timer flush", metrics)
	}
	if metrics["requests_batched"] != n {
		t.Errorf("requests_batched = %d, want %d", metrics["requests_batched"], n)
	}
	if metrics["pending_batches"] != 0 {
		t.Errorf("pending_batches = %d, want 0", metrics["pending_batches"])
	}
}

// TestCoordinator_SizeTriggeredFlush tests that the request reaching the
// maximum size flushes immediately and the next request starts a new batch
func TestCoordinator_SizeTriggeredFlush(t *testing.T) {
	tr := &fakeTransport{}
	c, _ := newTestCoordinator(t, testConfig(20, 60000), tr)

	results := make([]<-chan result, 20)
	for i := 0; i < 20; i++ {
		results[i] = submitAsync(context.Background(), c, docRequest("g1", http.MethodPost, i))
	}
	for i, ch := range results {
		if r := await(t, ch); r.err != nil {
			t.Fatalf("request %d: error = %v", i, r.err)
		}
	}

	calls := tr.Calls()
	if len(calls) != 1 || len(calls[0].Requests) != 20 {
		t.Fatalf("want one combined request of 20, got %d calls", len(calls))
	}
	if got := c.GetMetrics()["flushes_size_triggered"]; got != 1 {
		t.Errorf("flushes_size_triggered = %d, want 1", got)
	}

	// 21st request opens a fresh batch that waits for its window
	ch := submitAsync(context.Background(), c, docRequest("g1", http.MethodPost, 20))
	waitForMetric(t, c, "pending_requests", 1)
	if got := c.GetMetrics()["pending_batches"]; got != 1 {
		t.Errorf("pending_batches = %d, want 1", got)
	}

	if n := c.FlushPending(); n != 1 {
		t.Errorf("FlushPending() = %d, want 1", n)
	}
	if r := await(t, ch); r.err != nil || string(r.resp.Body) != `{"n":20}` {
		t.Errorf("21st request = %+v, %v", r.resp, r.err)
	}
	if len(tr.Calls()) != 2 {
		t.Errorf("transport called %d times, want 2", len(tr.Calls()))
	}
}

// TestCoordinator_KeysAreIsolated tests that different tags or methods never
// share a batch while method case does not matter
func TestCoordinator_KeysAreIsolated(t *testing.T) {
	tr := &fakeTransport{}
	c, _ := newTestCoordinator(t, testConfig(20, 50), tr)

	reqs := []*Request{
		docRequest("g1", http.MethodPost, 0),
		docRequest("g2", http.MethodPost, 1),
		docRequest("g1", http.MethodPut, 2),
		docRequest("g1", "post", 3),
	}

	var chans []<-chan result
	for _, req := range reqs {
		chans = append(chans, submitAsync(context.Background(), c, req))
	}
	for i, ch := range chans {
		if r := await(t, ch); r.err != nil {
			t.Fatalf("request %d: error = %v", i, r.err)
		}
	}

	calls := tr.Calls()
	if len(calls) != 3 {
		t.Fatalf("transport called %d times, want 3", len(calls))
	}

	sizes := map[int]int{}
	for _, call := range calls {
		sizes[len(call.Requests)]++
		method := call.Requests[0].Method
		for _, sub := range call.Requests {
			if sub.Method != method {
				t.Errorf("batch mixes methods: %+v", call.Requests)
			}
		}
	}
	if sizes[2] != 1 || sizes[1] != 2 {
		t.Errorf("batch sizes = %v, want one batch of 2 and two of 1", sizes)
	}
}

// TestCoordinator_OrphanedTimer tests that a timer firing after a size flush
// is a no-op
func TestCoordinator_OrphanedTimer(t *testing.T) {
	tr := &fakeTransport{}
	c, _ := newTestCoordinator(t, testConfig(2, 200), tr)

	a := submitAsync(context.Background(), c, docRequest("g1", http.MethodPost, 0))
	waitForMetric(t, c, "pending_requests", 1)
	b := submitAsync(context.Background(), c, docRequest("g1", http.MethodPost, 1))

	await(t, a)
	await(t, b)

	// Outlast the window the first request scheduled
	time.Sleep(300 * time.Millisecond)

	if got := len(tr.Calls()); got != 1 {
		t.Errorf("transport called %d times, want 1", got)
	}
	metrics := c.GetMetrics()
	if metrics["flushes_total"] != 1 || metrics["flushes_timer_triggered"] != 0 {
		t.Errorf("metrics = %v, want a single size flush", metrics)
	}
}

// TestCoordinator_FlushEventualAfterCommit tests the timer callback directly
// against batches the registry no longer holds
func TestCoordinator_FlushEventualAfterCommit(t *testing.T) {
	tr := &fakeTransport{}
	c, _ := newTestCoordinator(t, testConfig(20, 60000), tr)

	key := Key{Group: "g1", Method: http.MethodPost}

	// Never registered
	c.flushEventual(key, newBatch(key))

	// Registered, then replaced by a newer batch for the same key
	ch := submitAsync(context.Background(), c, docRequest("g1", http.MethodPost, 0))
	waitForMetric(t, c, "pending_requests", 1)
	s := c.registry.shardFor(key)
	s.mu.Lock()
	old := s.batches[key]
	s.mu.Unlock()

	c.FlushPending()
	await(t, ch)

	c.flushEventual(key, old)
	c.flushEventual(key, old)

	if got := len(tr.Calls()); got != 1 {
		t.Errorf("transport called %d times, want 1", got)
	}
}

// TestCoordinator_TransportError tests that a failed combined request fails
// every caller in the batch with the same error
func TestCoordinator_TransportError(t *testing.T) {
	errBoom := errors.New("connection refused")
	tr := &fakeTransport{err: errBoom}
	c, _ := newTestCoordinator(t, testConfig(20, 20), tr)

	a := submitAsync(context.Background(), c, docRequest("g1", http.MethodPost, 0))
	b := submitAsync(context.Background(), c, docRequest("g1", http.MethodPost, 1))

	for _, ch := range []<-chan result{a, b} {
		r := await(t, ch)
		if !errors.Is(r.err, errBoom) {
			t.Errorf("Do() error = %v, want %v", r.err, errBoom)
		}
		if r.resp != nil {
			t.Errorf("Do() response = %+v, want nil", r.resp)
		}
	}

	if got := c.GetMetrics()["flushes_failed"]; got != 1 {
		t.Errorf("flushes_failed = %d, want 1", got)
	}
	if got := len(tr.Calls()); got != 1 {
		t.Errorf("transport called %d times, want 1 (no retry)", got)
	}
}

// TestCoordinator_MissingResponse tests callers past the end of a short
// response list
func TestCoordinator_MissingResponse(t *testing.T) {
	tr := &fakeTransport{short: 1}
	c, _ := newTestCoordinator(t, testConfig(2, 60000), tr)

	a := submitAsync(context.Background(), c, docRequest("g1", http.MethodPost, 0))
	waitForMetric(t, c, "pending_requests", 1)
	b := submitAsync(context.Background(), c, docRequest("g1", http.MethodPost, 1))

	if r := await(t, a); r.err != nil || string(r.resp.Body) != `{"n":0}` {
		t.Errorf("first request = %+v, %v", r.resp, r.err)
	}
	if r := await(t, b); !errors.Is(r.err, ErrMissingResponse) {
		t.Errorf("second request error = %v, want ErrMissingResponse", r.err)
	}
}

// TestCoordinator_ContextCancellation tests caller contexts before and while
// waiting
func TestCoordinator_ContextCancellation(t *testing.T) {
	tr := &fakeTransport{}
	c, _ := newTestCoordinator(t, testConfig(20, 60000), tr)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Do(cancelled, docRequest("g1", http.MethodPost, 0)); !errors.Is(err, context.Canceled) {
		t.Errorf("Do(cancelled) error = %v, want context.Canceled", err)
	}
	if got := c.GetMetrics()["pending_requests"]; got != 0 {
		t.Errorf("pending_requests = %d, want 0", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Do(ctx, docRequest("g1", http.MethodPost, 1)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do() error = %v, want context.DeadlineExceeded", err)
	}

	// Abandoned request is still sent
	if got := c.GetMetrics()["pending_requests"]; got != 1 {
		t.Errorf("pending_requests = %d, want 1", got)
	}
	c.FlushPending()
	waitForMetric(t, c, "flushes_total", 1)
	waitForMetric(t, c, "inflight_flushes", 0)
	if calls := tr.Calls(); len(calls) != 1 || len(calls[0].Requests) != 1 {
		t.Errorf("transport calls = %d, want 1 with the abandoned request", len(calls))
	}
}

// TestCoordinator_Shutdown tests draining and the closed state
func TestCoordinator_Shutdown(t *testing.T) {
	tr := &fakeTransport{}
	c, next := newTestCoordinator(t, testConfig(20, 60000), tr)

	pending := submitAsync(context.Background(), c, docRequest("g1", http.MethodPost, 0))
	waitForMetric(t, c, "pending_requests", 1)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if r := await(t, pending); r.err != nil {
		t.Errorf("pending request error = %v, want flushed on shutdown", r.err)
	}
	if !c.IsClosed() {
		t.Error("IsClosed() = false after Shutdown")
	}

	if _, err := c.Do(context.Background(), docRequest("g1", http.MethodPost, 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("Do() after shutdown error = %v, want ErrClosed", err)
	}

	read := &Request{Method: http.MethodGet, Path: "/api/v1/documents"}
	if _, err := c.Do(context.Background(), read); err != nil {
		t.Errorf("pass-through after shutdown error = %v", err)
	}
	if next.Count() != 1 {
		t.Errorf("next handler called %d times, want 1", next.Count())
	}
}

// TestCoordinator_ShutdownTimeout tests that Shutdown gives up when its
// context ends before in-flight flushes finish
func TestCoordinator_ShutdownTimeout(t *testing.T) {
	tr := &fakeTransport{gate: make(chan struct{})}
	c, _ := newTestCoordinator(t, testConfig(1, 60000), tr)

	ch := submitAsync(context.Background(), c, docRequest("g1", http.MethodPost, 0))
	waitForMetric(t, c, "inflight_flushes", 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Shutdown() error = %v, want context.DeadlineExceeded", err)
	}

	close(tr.gate)
	if r := await(t, ch); r.err != nil {
		t.Errorf("request error = %v", r.err)
	}
}

// TestCoordinator_ConcurrentThresholdCrossing tests that concurrent appends
// around the size threshold never lose, duplicate or misroute a request
func TestCoordinator_ConcurrentThresholdCrossing(t *testing.T) {
	tr := &fakeTransport{}
	c, _ := newTestCoordinator(t, testConfig(5, 60000), tr)

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := docRequest("g1", http.MethodPost, i)
			resp, err := c.Do(context.Background(), req)
			if err != nil {
				errs <- err
				return
			}
			if string(resp.Body) != string(req.Body) {
				errs <- fmt.Errorf("request %d got response %s", i, resp.Body)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	calls := tr.Calls()
	if len(calls) != n/5 {
		t.Errorf("transport called %d times, want %d", len(calls), n/5)
	}
	seen := map[string]bool{}
	for _, call := range calls {
		if len(call.Requests) != 5 {
			t.Errorf("combined request has %d sub-requests, want 5", len(call.Requests))
		}
		for _, sub := range call.Requests {
			if seen[sub.Path] {
				t.Errorf("request %s sent twice", sub.Path)
			}
			seen[sub.Path] = true
		}
	}
	if len(seen) != n {
		t.Errorf("%d distinct requests sent, want %d", len(seen), n)
	}
}

// TestCoordinator_WithMatcher tests replacing the eligibility predicate
func TestCoordinator_WithMatcher(t *testing.T) {
	tr := &fakeTransport{}
	next := &countingHandler{resp: &Response{Status: http.StatusOK}}
	onlyDrafts := MatcherFunc(func(path string) bool { return path == "/drafts" })

	c, err := NewCoordinator(next, tr, testConfig(1, 50), WithMatcher(onlyDrafts))
	if err != nil {
		t.Fatalf("NewCoordinator() error = %v", err)
	}
	defer c.Shutdown(context.Background())

	if _, err := c.Do(context.Background(), &Request{Method: http.MethodPost, Path: "/api/v1/documents", BatchAs: "g"}); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if _, err := c.Do(context.Background(), &Request{Method: http.MethodPost, Path: "/drafts", BatchAs: "g"}); err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	if next.Count() != 1 {
		t.Errorf("next handler called %d times, want 1", next.Count())
	}
	if got := len(tr.Calls()); got != 1 {
		t.Errorf("transport called %d times, want 1", got)
	}
}
