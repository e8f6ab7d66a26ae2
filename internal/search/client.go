// Package search queries the upstream Epstein files full-text index,
// one contact at a time, honoring the service's rate limit.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/epstein-scan/epstein-scan/internal/domain"
)

const (
	// DefaultBaseURL is the upstream search endpoint.
	DefaultBaseURL = "https://analytics.dugganusa.com/api/v1/search"

	// DefaultIndexes is the index namespace queried for every contact.
	DefaultIndexes = "epstein_files"

	// DefaultMaxHits caps the number of hit excerpts retained per
	// contact, regardless of how many the upstream index reports.
	DefaultMaxHits = 100

	// DefaultTimeout bounds a single upstream request.
	DefaultTimeout = 30 * time.Second

	// maxResponseBody bounds how much of a response body is read.
	maxResponseBody = 8 << 20
)

// Config holds the upstream client configuration.
type Config struct {
	BaseURL string
	Indexes string
	MaxHits int
	Timeout time.Duration
}

// Client queries the upstream index for exact phrase matches.
type Client struct {
	cfg        Config
	httpClient *http.Client

	// sleep is the backoff wait, injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates an upstream search client. Zero-valued config
// fields fall back to the package defaults.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Indexes == "" {
		cfg.Indexes = DefaultIndexes
	}
	if cfg.MaxHits <= 0 {
		cfg.MaxHits = DefaultMaxHits
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		sleep:      sleepContext,
	}
}

// searchResponse mirrors the upstream JSON envelope.
type searchResponse struct {
	Success bool       `json:"success"`
	Data    searchData `json:"data"`
}

type searchData struct {
	// TotalHits is kept raw so a non-numeric value degrades to zero
	// instead of failing the whole document.
	TotalHits json.RawMessage `json:"totalHits"`
	Hits      []searchHit     `json:"hits"`
}

type searchHit struct {
	ContentPreview string `json:"content_preview"`
	Content        string `json:"content"`
	FilePath       string `json:"file_path"`
}

// Search looks up the exact phrase "<fullName>" in the configured
// index namespace and returns the total mention count and the retained
// hit excerpts.
//
// delay is the running backoff ratchet carried across contacts; the
// returned delay is the value the caller must use for the next
// contact. A 429 response retries the same request after waiting the
// ratchet (or a positive integer Retry-After, which replaces it) until
// a non-429 status arrives or ctx is cancelled. Any other failure is
// terminal for this contact only.
func (c *Client) Search(ctx context.Context, fullName string, delay time.Duration) (total int, hits []domain.Hit, next time.Duration, err error) {
	reqURL := c.cfg.BaseURL + "?q=" + url.QueryEscape(`"`+fullName+`"`) + "&indexes=" + url.QueryEscape(c.cfg.Indexes)

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return 0, nil, delay, fmt.Errorf("failed to build request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return 0, nil, delay, fmt.Errorf("request failed: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := parseRetryAfter(resp.Header)
			drainAndClose(resp.Body)

			if retryAfter > 0 {
				delay = time.Duration(retryAfter) * time.Second
			} else {
				delay *= 2
			}

			slog.Warn("Rate limited by upstream, retrying", "name", fullName, "wait", delay)
			if err := c.sleep(ctx, delay); err != nil {
				return 0, nil, delay, err
			}
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		drainAndClose(resp.Body)

		if resp.StatusCode != http.StatusOK {
			return 0, nil, delay, fmt.Errorf("upstream returned HTTP %d", resp.StatusCode)
		}
		if readErr != nil {
			return 0, nil, delay, fmt.Errorf("failed to read response: %w", readErr)
		}

		total, hits := c.interpret(fullName, body)
		return total, hits, delay, nil
	}
}

// interpret decodes a 200 response body. Malformed JSON degrades to a
// zero-mention success rather than failing the contact.
func (c *Client) interpret(fullName string, body []byte) (int, []domain.Hit) {
	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		slog.Warn("Unparseable upstream response treated as no mentions", "name", fullName, "error", err)
		return 0, nil
	}
	if !parsed.Success {
		return 0, nil
	}

	total := decodeTotalHits(parsed.Data.TotalHits)

	raw := parsed.Data.Hits
	if len(raw) > c.cfg.MaxHits {
		raw = raw[:c.cfg.MaxHits]
	}

	var hits []domain.Hit
	for _, h := range raw {
		preview := h.ContentPreview
		if preview == "" {
			preview = h.Content
		}
		hits = append(hits, domain.Hit{Preview: preview, FilePath: h.FilePath})
	}
	return total, hits
}

// decodeTotalHits reads the totalHits value, defaulting to 0 when
// absent or non-numeric.
func decodeTotalHits(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil || n < 0 {
		return 0
	}
	return int(n)
}

// parseRetryAfter returns the Retry-After header as whole seconds, or
// 0 when absent or not a positive integer.
func parseRetryAfter(h http.Header) int {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds <= 0 {
		return 0
	}
	return seconds
}

// sleepContext blocks for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// drainAndClose releases a response body on every exit path.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
