package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestLLMClient(t *testing.T, handler http.HandlerFunc) *LLMClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewLLMClient(srv.URL, "test-key", "test-model", 1024, 10*time.Second)
	if err != nil {
		t.Fatalf("NewLLMClient: %v", err)
	}
	return client
}

func TestNewLLMClientRequiresKey(t *testing.T) {
	if _, err := NewLLMClient("http://localhost", "", "m", 0, time.Second); err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestComplete(t *testing.T) {
	var gotReq llmRequest
	client := newTestLLMClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(w, `{"content":[{"type":"text","text":"Hello "},{"type":"text","text":"there"}]}`)
	})

	text, err := client.Complete(context.Background(), "be kind", []LLMMessage{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "Hello there" {
		t.Errorf("text = %q", text)
	}
	if gotReq.System != "be kind" || gotReq.Stream {
		t.Errorf("request = %+v", gotReq)
	}
}

func TestCompleteRetriesOn429(t *testing.T) {
	var calls int32
	client := newTestLLMClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"content":[{"type":"text","text":"ok"}]}`)
	})

	text, err := client.Complete(context.Background(), "", []LLMMessage{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "ok" {
		t.Errorf("text = %q", text)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestCompleteDoesNotRetryClientError(t *testing.T) {
	var calls int32
	client := newTestLLMClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"type":"invalid_request_error","message":"bad prompt"}}`)
	})

	_, err := client.Complete(context.Background(), "", []LLMMessage{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "bad prompt") {
		t.Errorf("error should carry the gateway message, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 400)", n)
	}
}

func TestCompleteGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	client := newTestLLMClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Complete(context.Background(), "", []LLMMessage{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !strings.Contains(err.Error(), "max retries") {
		t.Errorf("err = %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != int32(llmDefaultRetries)+1 {
		t.Errorf("calls = %d, want %d", n, llmDefaultRetries+1)
	}
}

func TestStream(t *testing.T) {
	client := newTestLLMClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req llmRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Stream {
			t.Errorf("expected streaming request, got %+v (err %v)", req, err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: message_start\n")
		fmt.Fprint(w, "data: {\"type\":\"message_start\"}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"Take a \"}}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"breath.\"}}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"message_stop\"}\n\n")
	})

	var deltas []string
	err := client.Stream(context.Background(), "", []LLMMessage{{Role: "user", Content: "hi"}}, func(text string) error {
		deltas = append(deltas, text)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if got := strings.Join(deltas, ""); got != "Take a breath." {
		t.Errorf("deltas = %q", got)
	}
	if len(deltas) != 2 {
		t.Errorf("len(deltas) = %d, want 2", len(deltas))
	}
}

func TestStreamRetriesBeforeFirstDelta(t *testing.T) {
	var calls int32
	client := newTestLLMClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "data: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"ok\"}}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"message_stop\"}\n\n")
	})

	var got string
	err := client.Stream(context.Background(), "", []LLMMessage{{Role: "user", Content: "hi"}}, func(text string) error {
		got += text
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if got != "ok" {
		t.Errorf("got %q", got)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestStreamCallbackErrorStops(t *testing.T) {
	var calls int32
	client := newTestLLMClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, "data: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"a\"}}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"b\"}}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"message_stop\"}\n\n")
	})

	wantErr := fmt.Errorf("client went away")
	seen := 0
	err := client.Stream(context.Background(), "", []LLMMessage{{Role: "user", Content: "hi"}}, func(text string) error {
		seen++
		return wantErr
	})
	if err == nil || !strings.Contains(err.Error(), "client went away") {
		t.Fatalf("err = %v", err)
	}
	if seen != 1 {
		t.Errorf("callback called %d times, want 1", seen)
	}
	// A callback error is not a transient gateway failure, so no retry.
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}
