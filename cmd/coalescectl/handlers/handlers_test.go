package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/concave-dev/coalesce/cmd/coalescectl/client"
	"github.com/concave-dev/coalesce/cmd/coalescectl/config"
	"github.com/concave-dev/coalesce/internal/api"
	"github.com/concave-dev/coalesce/internal/batching"
	"github.com/concave-dev/coalesce/internal/store"
)

// startServer runs a reference server over httptest and points the CLI
// configuration at it.
func startServer(t *testing.T) (*client.APIClient, *store.Store) {
	t.Helper()

	st := store.New()
	cfg := api.DefaultConfig()
	cfg.Store = st
	server := api.NewServer(cfg)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	useSubmitConfig(t, strings.TrimPrefix(ts.URL, "http://"))

	apiClient, err := client.CreateAPIClient()
	if err != nil {
		t.Fatalf("CreateAPIClient() error = %v", err)
	}
	return apiClient, st
}

// useSubmitConfig sets CLI configuration for a test and restores it after.
func useSubmitConfig(t *testing.T, apiAddr string) {
	t.Helper()
	savedGlobal, savedSubmit := config.Global, config.Submit
	t.Cleanup(func() {
		config.Global = savedGlobal
		config.Submit = savedSubmit
	})

	config.Global.APIAddr = apiAddr
	config.Global.Timeout = 5
	config.Global.Output = "table"
	config.Submit.MaxBatchSize = 20
	config.Submit.Window = 100 * time.Millisecond
	config.Submit.FlushAfter = 0
	config.Submit.Concurrency = 0
}

func docRequest(group, title string) *batching.Request {
	body, _ := json.Marshal(map[string]string{"title": title})
	return &batching.Request{
		Method:  http.MethodPost,
		Path:    "/api/v1/documents",
		Body:    body,
		BatchAs: group,
	}
}

func TestSubmitRequests_CoalescesGroups(t *testing.T) {
	apiClient, st := startServer(t)

	requests := []*batching.Request{
		docRequest("editor-save", "one"),
		docRequest("editor-save", "two"),
		docRequest("editor-save", "three"),
		docRequest("", "direct"),
	}

	results, metrics, err := submitRequests(context.Background(), apiClient, requests)
	if err != nil {
		t.Fatalf("submitRequests() error = %v", err)
	}

	if len(results) != len(requests) {
		t.Fatalf("got %d results, want %d", len(results), len(requests))
	}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("result %d has index %d, want submission order", i, r.Index)
		}
		if r.Error != "" || r.Status != http.StatusCreated {
			t.Errorf("result %d = status %d error %q, want 201", i, r.Status, r.Error)
		}
	}
	if results[1].Group != "editor-save" || results[3].Group != "" {
		t.Errorf("groups = %q, %q", results[1].Group, results[3].Group)
	}

	if metrics["flushes_total"] != 1 {
		t.Errorf("flushes_total = %d, want 1", metrics["flushes_total"])
	}
	if metrics["requests_batched"] != 3 || metrics["requests_bypassed"] != 1 {
		t.Errorf("batched/bypassed = %d/%d, want 3/1",
			metrics["requests_batched"], metrics["requests_bypassed"])
	}
	if st.Count() != 4 {
		t.Errorf("store has %d documents, want 4", st.Count())
	}
}

func TestSubmitRequests_ValidationFailureSkipsBatch(t *testing.T) {
	apiClient, st := startServer(t)

	requests := []*batching.Request{
		docRequest("g", "valid"),
		docRequest("g", ""), // title is required
	}

	results, _, err := submitRequests(context.Background(), apiClient, requests)
	if err != nil {
		t.Fatalf("submitRequests() error = %v", err)
	}

	if results[0].Status != 0 {
		t.Errorf("valid request status = %d, want 0 (not executed)", results[0].Status)
	}
	if results[1].Status != http.StatusBadRequest {
		t.Errorf("invalid request status = %d, want 400", results[1].Status)
	}
	if st.Count() != 0 {
		t.Errorf("store has %d documents, want none", st.Count())
	}
}

func TestSubmitRequests_FlushAfter(t *testing.T) {
	apiClient, _ := startServer(t)
	config.Submit.Window = 10 * time.Second
	config.Submit.FlushAfter = 100 * time.Millisecond

	start := time.Now()
	results, metrics, err := submitRequests(context.Background(), apiClient,
		[]*batching.Request{docRequest("slow", "a"), docRequest("slow", "b")})
	if err != nil {
		t.Fatalf("submitRequests() error = %v", err)
	}

	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("submit took %v, want the forced flush well before the window", elapsed)
	}
	for i, r := range results {
		if r.Status != http.StatusCreated {
			t.Errorf("result %d status = %d, want 201", i, r.Status)
		}
	}
	if metrics["flushes_timer_triggered"] != 0 {
		t.Errorf("flushes_timer_triggered = %d, want 0", metrics["flushes_timer_triggered"])
	}
}

func TestSubmitRequests_ServerDown(t *testing.T) {
	// Nothing listens on port 1, so connections are refused
	useSubmitConfig(t, "127.0.0.1:1")
	dead, err := client.CreateAPIClient()
	if err != nil {
		t.Fatalf("CreateAPIClient() error = %v", err)
	}

	results, metrics, err := submitRequests(context.Background(), dead,
		[]*batching.Request{docRequest("g", "a"), docRequest("g", "b")})
	if err != nil {
		t.Fatalf("submitRequests() error = %v", err)
	}
	for i, r := range results {
		if r.Error == "" {
			t.Errorf("result %d has no error", i)
		}
	}
	if metrics["flushes_failed"] != 1 {
		t.Errorf("flushes_failed = %d, want 1", metrics["flushes_failed"])
	}
}

func TestAPIClient_HealthAndDocuments(t *testing.T) {
	apiClient, st := startServer(t)

	if _, err := st.Create(store.DocumentInput{Title: "Hello", Status: store.StatusPublish}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	health, err := apiClient.GetHealth(context.Background())
	if err != nil {
		t.Fatalf("GetHealth() error = %v", err)
	}
	if health.Status != "healthy" || health.Documents != 1 {
		t.Errorf("health = %+v", health)
	}

	docs, err := apiClient.ListDocuments(context.Background())
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(docs) != 1 || docs[0].Title != "Hello" {
		t.Errorf("ListDocuments() = %+v", docs)
	}
}

func TestFilterDocuments(t *testing.T) {
	docs := []store.Document{
		{ID: "1", Status: store.StatusDraft},
		{ID: "2", Status: store.StatusPublish},
		{ID: "3", Status: store.StatusDraft},
	}

	if got := filterDocuments(docs, ""); len(got) != 3 {
		t.Errorf("no filter kept %d, want 3", len(got))
	}
	got := filterDocuments(docs, store.StatusDraft)
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "3" {
		t.Errorf("draft filter = %+v", got)
	}
	if got := filterDocuments(docs, store.StatusPrivate); len(got) != 0 {
		t.Errorf("private filter kept %d, want 0", len(got))
	}
}
