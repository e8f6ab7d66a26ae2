// Package scan drives the search pipeline: it walks the parsed
// contacts sequentially, queries the upstream index for each one, and
// collects the per-contact results.
package scan

import (
	"context"
	"log/slog"
	"time"

	"github.com/epstein-scan/epstein-scan/internal/domain"
	"github.com/epstein-scan/epstein-scan/internal/search"
)

// DefaultInitialDelay is the starting inter-request delay.
const DefaultInitialDelay = 250 * time.Millisecond

// Options configures one pipeline run.
type Options struct {
	// InitialDelay seeds the backoff ratchet and the inter-request
	// pacing.
	InitialDelay time.Duration

	// MaxContacts caps how many contacts are searched; 0 means all.
	MaxContacts int

	// IncludeHits controls whether hit excerpts are retained on the
	// results. Mention counts are kept either way.
	IncludeHits bool
}

// Runner executes the sequential search pipeline.
//
// Contacts are processed strictly one at a time: correctness depends
// on respecting the upstream rate limit, so no parallelism is used.
type Runner struct {
	client *search.Client
	opts   Options
}

// NewRunner creates a pipeline runner.
func NewRunner(client *search.Client, opts Options) *Runner {
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = DefaultInitialDelay
	}
	return &Runner{client: client, opts: opts}
}

// Run searches the upstream index for every contact and returns one
// result per completed lookup, in input order.
//
// Cancellation is cooperative: ctx is checked before each contact, and
// a cancelled run returns the results accumulated so far. A partial
// result set is a valid outcome, not an error.
func (r *Runner) Run(ctx context.Context, contacts []domain.Contact) []domain.Result {
	if r.opts.MaxContacts > 0 && len(contacts) > r.opts.MaxContacts {
		contacts = contacts[:r.opts.MaxContacts]
	}

	results := make([]domain.Result, 0, len(contacts))
	delay := r.opts.InitialDelay
	pacer := search.NewPacer(delay)

	for i, c := range contacts {
		if ctx.Err() != nil {
			slog.Info("Scan cancelled", "processed", len(results), "total", len(contacts))
			break
		}

		if err := pacer.Wait(ctx); err != nil {
			slog.Info("Scan cancelled while pacing", "processed", len(results), "total", len(contacts))
			break
		}

		total, hits, next, err := r.client.Search(ctx, c.FullName, delay)
		if ctx.Err() != nil {
			// The in-flight lookup was cut short; the summary must
			// reflect only fully processed contacts.
			slog.Info("Scan cancelled", "processed", len(results), "total", len(contacts))
			break
		}

		delay = next
		pacer.SetDelay(delay)

		result := domain.Result{
			Name:          c.FullName,
			FirstName:     c.FirstName,
			LastName:      c.LastName,
			Company:       c.Company,
			Position:      c.Position,
			TotalMentions: total,
		}
		if r.opts.IncludeHits {
			result.Hits = hits
		}

		if err != nil {
			result.Err = err.Error()
			slog.Warn("Search failed for contact", "index", i+1, "total", len(contacts), "name", c.FullName, "error", err)
		} else {
			slog.Info("Searched contact", "index", i+1, "total", len(contacts), "name", c.FullName, "mentions", total)
		}

		results = append(results, result)
	}

	return results
}
