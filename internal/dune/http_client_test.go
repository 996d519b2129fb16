package dune

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(serverURL string) *HTTPClient {
	return NewHTTPClient("test-key",
		WithBaseURL(serverURL),
		WithMaxRetries(2),
		WithRetryDelay(time.Millisecond),
	)
}

func TestHTTPClient_Submit(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Dune-API-Key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"execution_id": "01HXEXEC",
			"state":        "QUERY_STATE_PENDING",
		})
	}))
	defer server.Close()

	c := testClient(server.URL)
	execID, err := c.Submit(context.Background(), 6022401, []Parameter{
		{Name: "wallet", Value: "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"},
		{Name: "after_time", Value: "2024-01-01 00:00:00"},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if execID != "01HXEXEC" {
		t.Errorf("execution id = %s", execID)
	}
	if gotPath != "/query/6022401/execute" {
		t.Errorf("path = %s", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if gotBody["query_parameters"]["wallet"] != "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM" {
		t.Errorf("query_parameters = %v", gotBody["query_parameters"])
	}
}

func TestHTTPClient_PollStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/execution/01HXEXEC/status" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"execution_id": "01HXEXEC",
			"state":        "QUERY_STATE_EXECUTING",
		})
	}))
	defer server.Close()

	c := testClient(server.URL)
	state, err := c.PollStatus(context.Background(), "01HXEXEC")
	if err != nil {
		t.Fatalf("PollStatus failed: %v", err)
	}
	if state != StateExecuting {
		t.Errorf("state = %s", state)
	}
	if state.Terminal() {
		t.Error("executing must not be terminal")
	}
}

func TestHTTPClient_PollStatusUnknownState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"state": "QUERY_STATE_WEIRD"})
	}))
	defer server.Close()

	c := testClient(server.URL)
	_, err := c.PollStatus(context.Background(), "01HXEXEC")
	if err == nil {
		t.Fatal("Expected error for unknown state")
	}
}

func TestHTTPClient_FetchResultCSV(t *testing.T) {
	csv := "wallet,amount\nabc,100\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/execution/01HXEXEC/results/csv" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(csv))
	}))
	defer server.Close()

	c := testClient(server.URL)
	data, err := c.FetchResultCSV(context.Background(), "01HXEXEC")
	if err != nil {
		t.Fatalf("FetchResultCSV failed: %v", err)
	}
	if string(data) != csv {
		t.Errorf("csv = %q", string(data))
	}
}

func TestHTTPClient_RetriesOn429(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"state": "QUERY_STATE_COMPLETED"})
	}))
	defer server.Close()

	c := testClient(server.URL)
	state, err := c.PollStatus(context.Background(), "01HXEXEC")
	if err != nil {
		t.Fatalf("PollStatus failed after retries: %v", err)
	}
	if state != StateCompleted {
		t.Errorf("state = %s", state)
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls.Load())
	}
}

func TestHTTPClient_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid API Key"}`))
	}))
	defer server.Close()

	c := testClient(server.URL)
	_, err := c.PollStatus(context.Background(), "01HXEXEC")
	if err == nil {
		t.Fatal("Expected error for 401")
	}
	if calls.Load() != 1 {
		t.Errorf("Client errors must not retry, got %d attempts", calls.Load())
	}
}

func TestHTTPClient_RetriesExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := testClient(server.URL)
	_, err := c.PollStatus(context.Background(), "01HXEXEC")
	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
}

func TestState_Terminal(t *testing.T) {
	terminal := []State{StateCompleted, StateFailed, StateCancelled, StateExpired}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []State{StatePending, StateExecuting} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
