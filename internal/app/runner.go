// Package app wires configuration, the scan pipeline, and the report
// renderers behind the CLI and the REST API server.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/epstein-scan/epstein-scan/internal/config"
	"github.com/epstein-scan/epstein-scan/internal/contacts"
	"github.com/epstein-scan/epstein-scan/internal/domain"
	"github.com/epstein-scan/epstein-scan/internal/report"
	"github.com/epstein-scan/epstein-scan/internal/scan"
	"github.com/epstein-scan/epstein-scan/internal/search"
	"github.com/spf13/pflag"
)

// connectionsHelp explains where to get the input file when none was
// given.
const connectionsHelp = `No connections file given. Export yours from LinkedIn:

  Settings & Privacy > Data privacy > Get a copy of your data
  > select "Connections" > Request archive

then pass the downloaded Connections.csv with --connections.`

// consoleTopN caps the per-contact lines in the console summary.
const consoleTopN = 20

// RunParams contains dependencies for the run function
type RunParams struct {
	LoadSettings  func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings func(*config.Settings) error
	NewSearcher   func(*config.Settings) Searcher

	// Stdout and Stderr default to the process streams; tests override
	// them.
	Stdout io.Writer
	Stderr io.Writer
}

// Searcher runs the per-contact lookups. It is satisfied by
// scan.Runner.
type Searcher interface {
	Run(ctx context.Context, cs []domain.Contact) []domain.Result
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:  config.LoadSettingsWithFlags,
		ValidSettings: config.ValidateSettings,
		NewSearcher:   newSearcher,
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
	}
}

func newSearcher(settings *config.Settings) Searcher {
	client := search.NewClient(search.Config{
		BaseURL: settings.Upstream.BaseURL,
		Indexes: settings.Upstream.Indexes,
		MaxHits: settings.Scan.MaxHits,
		Timeout: settings.Upstream.Timeout,
	})
	return scan.NewRunner(client, scan.Options{
		InitialDelay: time.Duration(settings.Scan.DelayMS) * time.Millisecond,
		MaxContacts:  settings.Scan.MaxContacts,
		IncludeHits:  settings.Scan.IncludeHits,
	})
}

// RunScanWithDeps executes the scan pipeline with the provided
// dependencies.
//
// An interrupted run still renders the report from the results
// gathered so far; interruption with nothing processed produces no
// report and no error.
func RunScanWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if err := params.ValidSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Configure logging - always use stderr to avoid clobbering a
	// report written to stdout
	handler := slog.NewTextHandler(params.Stderr, nil)
	slog.SetDefault(slog.New(handler))

	if settings.Scan.Connections == "" {
		fmt.Fprintln(params.Stderr, connectionsHelp)
		return fmt.Errorf("missing connections file")
	}

	slog.Info("Starting scan", "version", version)
	config.Log(settings)

	f, err := os.Open(settings.Scan.Connections)
	if err != nil {
		return fmt.Errorf("failed to open connections file: %w", err)
	}
	cs, err := contacts.Parse(f, settings.Scan.MaxFieldLen)
	closeErr := f.Close()
	if err != nil {
		return fmt.Errorf("failed to parse connections file: %w", err)
	}
	if closeErr != nil {
		slog.Warn("Failed to close connections file", "error", closeErr)
	}
	slog.Info("Parsed connections", "count", len(cs))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := params.NewSearcher(settings).Run(ctx, cs)

	interrupted := ctx.Err() != nil && len(results) < effectiveTotal(len(cs), settings.Scan.MaxContacts)
	if len(results) == 0 {
		if interrupted {
			slog.Info("Interrupted before any contact was processed; no report written")
			return nil
		}
		slog.Info("No contacts to search; no report written")
		return nil
	}

	search.SortResults(results)
	summary := search.Summarize(results)

	if err := writeReport(results, summary, interrupted, settings, params.Stdout); err != nil {
		return err
	}

	printConsoleSummary(params.Stderr, results, summary, interrupted)
	return nil
}

func effectiveTotal(contactCount, maxContacts int) int {
	if maxContacts > 0 && contactCount > maxContacts {
		return maxContacts
	}
	return contactCount
}

// writeReport renders the selected format to the configured output
// path, or stdout when none is set. A write failure is fatal: results
// that cannot be persisted are lost.
func writeReport(results []domain.Result, summary domain.Summary, interrupted bool, settings *config.Settings, stdout io.Writer) error {
	var out io.Writer = stdout
	if settings.Scan.Output != "" {
		f, err := os.Create(settings.Scan.Output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				slog.Warn("Failed to close output file", "error", err)
			}
		}()
		out = f
	}

	switch settings.Scan.Format {
	case config.FormatJSON:
		doc := report.BuildDocument(results, summary, settings.Report.PDFBaseURL)
		if err := doc.WriteJSON(out); err != nil {
			return err
		}
	default:
		opts := report.HTMLOptions{
			PDFBaseURL: settings.Report.PDFBaseURL,
			LogoPath:   settings.Report.LogoPath,
		}
		if interrupted {
			opts.PartialNotice = fmt.Sprintf("Partial report: the scan was interrupted after %d of its contacts were searched.", summary.TotalConnections)
		}
		if err := report.WriteHTML(out, results, summary, opts); err != nil {
			return err
		}
	}

	if settings.Scan.Output != "" {
		slog.Info("Report written", "path", settings.Scan.Output, "format", settings.Scan.Format)
	}
	return nil
}

// printConsoleSummary writes a short human-readable digest to stderr
// alongside the report.
func printConsoleSummary(w io.Writer, results []domain.Result, summary domain.Summary, interrupted bool) {
	fmt.Fprintln(w)
	if interrupted {
		fmt.Fprintln(w, "=== Scan interrupted; partial results below ===")
	} else {
		fmt.Fprintln(w, "=== Scan complete ===")
	}
	fmt.Fprintf(w, "Connections searched:      %d\n", summary.TotalConnections)
	fmt.Fprintf(w, "Connections with mentions: %d\n", summary.ConnectionsWithMentions)

	shown := 0
	for _, r := range results {
		if r.TotalMentions == 0 || shown >= consoleTopN {
			break
		}
		fmt.Fprintf(w, "  %4d  %s\n", r.TotalMentions, r.Name)
		shown++
	}
	if summary.ConnectionsWithMentions > shown {
		fmt.Fprintf(w, "  ... and %d more\n", summary.ConnectionsWithMentions-shown)
	}
}
