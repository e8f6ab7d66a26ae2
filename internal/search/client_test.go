package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// newTestClient builds a client against a test server with the sleep
// calls recorded instead of executed.
func newTestClient(baseURL string, maxHits int, slept *[]time.Duration) *Client {
	c := NewClient(Config{BaseURL: baseURL, MaxHits: maxHits})
	c.sleep = func(ctx context.Context, d time.Duration) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		*slept = append(*slept, d)
		return nil
	}
	return c
}

func TestSearch_QuotedPhraseAndIndexes(t *testing.T) {
	var gotQuery, gotIndexes string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotIndexes = r.URL.Query().Get("indexes")
		_, _ = w.Write([]byte(`{"success":true,"data":{"totalHits":3,"hits":[]}}`))
	}))
	defer ts.Close()

	var slept []time.Duration
	c := newTestClient(ts.URL, 100, &slept)

	total, hits, next, err := c.Search(context.Background(), "Ada Lovelace", 250*time.Millisecond)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if gotQuery != `"Ada Lovelace"` {
		t.Errorf("Expected quoted phrase query, got %q", gotQuery)
	}
	if gotIndexes != DefaultIndexes {
		t.Errorf("Expected indexes %q, got %q", DefaultIndexes, gotIndexes)
	}
	if total != 3 {
		t.Errorf("Expected 3 mentions, got %d", total)
	}
	if len(hits) != 0 {
		t.Errorf("Expected no hits, got %d", len(hits))
	}
	if next != 250*time.Millisecond {
		t.Errorf("Expected delay unchanged at 250ms, got %v", next)
	}
}

func TestSearch_RetryAfterHeaderSetsDelay(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "5")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"totalHits":1,"hits":[]}}`))
	}))
	defer ts.Close()

	var slept []time.Duration
	c := newTestClient(ts.URL, 100, &slept)

	total, _, next, err := c.Search(context.Background(), "Ada Lovelace", 250*time.Millisecond)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if total != 1 {
		t.Errorf("Expected 1 mention, got %d", total)
	}
	if next != 5*time.Second {
		t.Errorf("Expected delay ratcheted to 5s, got %v", next)
	}
	if len(slept) != 1 || slept[0] != 5*time.Second {
		t.Errorf("Expected one 5s wait, got %v", slept)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 2 upstream calls, got %d", calls.Load())
	}
}

func TestSearch_NoRetryAfterDoublesDelay(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"totalHits":0,"hits":[]}}`))
	}))
	defer ts.Close()

	var slept []time.Duration
	c := newTestClient(ts.URL, 100, &slept)

	_, _, next, err := c.Search(context.Background(), "Ada Lovelace", 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if next != 400*time.Millisecond {
		t.Errorf("Expected delay doubled twice to 400ms, got %v", next)
	}
	if len(slept) != 2 || slept[0] != 200*time.Millisecond || slept[1] != 400*time.Millisecond {
		t.Errorf("Expected waits of 200ms then 400ms, got %v", slept)
	}
}

func TestSearch_NonIntegerRetryAfterDoubles(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "Wed, 21 Oct 2026 07:28:00 GMT")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"totalHits":0,"hits":[]}}`))
	}))
	defer ts.Close()

	var slept []time.Duration
	c := newTestClient(ts.URL, 100, &slept)

	_, _, next, err := c.Search(context.Background(), "Ada Lovelace", 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if next != 200*time.Millisecond {
		t.Errorf("Expected delay doubled to 200ms, got %v", next)
	}
}

func TestSearch_CancelledDuringBackoff(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := NewClient(Config{BaseURL: ts.URL})
	c.sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}

	_, _, _, err := c.Search(context.Background(), "Ada Lovelace", 100*time.Millisecond)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got: %v", err)
	}
}

func TestSearch_ServerErrorIsTerminal(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	var slept []time.Duration
	c := newTestClient(ts.URL, 100, &slept)

	_, _, next, err := c.Search(context.Background(), "Ada Lovelace", 250*time.Millisecond)
	if err == nil {
		t.Fatal("Expected error for HTTP 500")
	}
	if !strings.Contains(err.Error(), "HTTP 500") {
		t.Errorf("Expected status code in error, got: %v", err)
	}
	if next != 250*time.Millisecond {
		t.Errorf("Expected delay unchanged on terminal error, got %v", next)
	}
	if len(slept) != 0 {
		t.Errorf("Expected no waits, got %v", slept)
	}
}

func TestSearch_TransportErrorIsTerminal(t *testing.T) {
	var slept []time.Duration
	c := newTestClient("http://127.0.0.1:1", 100, &slept)

	_, _, _, err := c.Search(context.Background(), "Ada Lovelace", 250*time.Millisecond)
	if err == nil {
		t.Fatal("Expected error for unreachable upstream")
	}
}

func TestSearch_MalformedJSONTreatedAsNoMentions(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`this is not json`))
	}))
	defer ts.Close()

	var slept []time.Duration
	c := newTestClient(ts.URL, 100, &slept)

	total, hits, _, err := c.Search(context.Background(), "Ada Lovelace", 250*time.Millisecond)
	if err != nil {
		t.Fatalf("Expected malformed response to succeed with no mentions, got: %v", err)
	}
	if total != 0 || len(hits) != 0 {
		t.Errorf("Expected zero mentions and no hits, got %d/%d", total, len(hits))
	}
}

func TestSearch_UnsuccessfulResponseTreatedAsNoMentions(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"data":{"totalHits":99,"hits":[]}}`))
	}))
	defer ts.Close()

	var slept []time.Duration
	c := newTestClient(ts.URL, 100, &slept)

	total, _, _, err := c.Search(context.Background(), "Ada Lovelace", 250*time.Millisecond)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if total != 0 {
		t.Errorf("Expected zero mentions for success=false, got %d", total)
	}
}

func TestSearch_NonNumericTotalHits(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"totalHits":"lots","hits":[{"content_preview":"p","file_path":"f.pdf"}]}}`))
	}))
	defer ts.Close()

	var slept []time.Duration
	c := newTestClient(ts.URL, 100, &slept)

	total, hits, _, err := c.Search(context.Background(), "Ada Lovelace", 250*time.Millisecond)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if total != 0 {
		t.Errorf("Expected zero mentions for non-numeric totalHits, got %d", total)
	}
	if len(hits) != 1 {
		t.Errorf("Expected hits still parsed, got %d", len(hits))
	}
}

func TestSearch_HitCapAndPreviewFallback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"totalHits":3,"hits":[
			{"content_preview":"preview one","file_path":"a.pdf"},
			{"content":"full content two","file_path":"b.pdf"},
			{"content_preview":"preview three","file_path":"c.pdf"}
		]}}`))
	}))
	defer ts.Close()

	var slept []time.Duration
	c := newTestClient(ts.URL, 2, &slept)

	total, hits, _, err := c.Search(context.Background(), "Ada Lovelace", 250*time.Millisecond)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if total != 3 {
		t.Errorf("Expected total 3 despite cap, got %d", total)
	}
	if len(hits) != 2 {
		t.Fatalf("Expected hits capped at 2, got %d", len(hits))
	}
	if hits[0].Preview != "preview one" {
		t.Errorf("Expected content_preview used, got %q", hits[0].Preview)
	}
	if hits[1].Preview != "full content two" {
		t.Errorf("Expected content fallback used, got %q", hits[1].Preview)
	}
	if hits[1].FilePath != "b.pdf" {
		t.Errorf("Expected file path 'b.pdf', got %q", hits[1].FilePath)
	}
}
