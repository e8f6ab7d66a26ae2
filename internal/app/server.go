package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/epstein-scan/epstein-scan/internal/auth"
	"github.com/epstein-scan/epstein-scan/internal/config"
	"github.com/epstein-scan/epstein-scan/internal/contacts"
	"github.com/epstein-scan/epstein-scan/internal/domain"
	"github.com/epstein-scan/epstein-scan/internal/report"
	"github.com/epstein-scan/epstein-scan/internal/scan"
	"github.com/epstein-scan/epstein-scan/internal/search"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

// maxUploadBytes caps the size of an uploaded connections file.
const maxUploadBytes = 16 << 20

// RunServeWithDeps starts the REST API server with the provided
// dependencies.
func RunServeWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if err := config.ValidateServeSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	handler := slog.NewTextHandler(params.Stderr, nil)
	slog.SetDefault(slog.New(handler))

	slog.Info("Starting API server", "version", version)
	config.LogServeWithLogger(settings, slog.Default())

	srv, err := NewAPIServer(settings)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Server listening (HTTP)", "addr", srv.Addr, "auth_type", settings.Auth.Type)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// NewAPIServer creates the REST API server with auth, CORS, and
// request-ID middleware applied.
func NewAPIServer(settings *config.Settings) (*http.Server, error) {
	api := &apiHandler{settings: settings}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /search", api.handleSearch)
	mux.HandleFunc("POST /report", api.handleReport)

	authMiddleware, err := auth.NewMiddleware(settings.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth middleware: %w", err)
	}

	handler := requestIDMiddleware(corsMiddleware(settings.Server.CORSOrigins)(authMiddleware(mux)))
	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)

	return &http.Server{
		Addr:    addr,
		Handler: handler,
	}, nil
}

type apiHandler struct {
	settings *config.Settings
}

// handleSearch runs the pipeline on an uploaded connections file and
// responds with the structured JSON document.
func (h *apiHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	results, summary, ok := h.runScan(w, r)
	if !ok {
		return
	}

	doc := report.BuildDocument(results, summary, h.settings.Report.PDFBaseURL)
	w.Header().Set("Content-Type", "application/json")
	if err := doc.WriteJSON(w); err != nil {
		slog.Error("Failed to write search response", "error", err)
	}
}

// handleReport runs the pipeline on an uploaded connections file and
// responds with the rendered HTML report.
func (h *apiHandler) handleReport(w http.ResponseWriter, r *http.Request) {
	results, summary, ok := h.runScan(w, r)
	if !ok {
		return
	}

	opts := report.HTMLOptions{
		PDFBaseURL: h.settings.Report.PDFBaseURL,
		LogoPath:   h.settings.Report.LogoPath,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.WriteHTML(w, results, summary, opts); err != nil {
		slog.Error("Failed to write report response", "error", err)
	}
}

// runScan parses the multipart upload, applies per-request query
// overrides, and runs the sequential pipeline under the request
// context. On failure it writes the error response and returns
// ok=false.
func (h *apiHandler) runScan(w http.ResponseWriter, r *http.Request) (results []domain.Result, summary domain.Summary, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, _, err := r.FormFile("connections")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "multipart field 'connections' with a CSV file is required")
		return nil, domain.Summary{}, false
	}
	defer func() { _ = file.Close() }()

	cs, err := contacts.Parse(file, h.settings.Scan.MaxFieldLen)
	if err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return nil, domain.Summary{}, false
	}

	opts, err := h.scanOptions(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return nil, domain.Summary{}, false
	}

	client := search.NewClient(search.Config{
		BaseURL: h.settings.Upstream.BaseURL,
		Indexes: h.settings.Upstream.Indexes,
		MaxHits: maxHitsParam(r, h.settings.Scan.MaxHits),
		Timeout: h.settings.Upstream.Timeout,
	})

	results = scan.NewRunner(client, opts).Run(r.Context(), cs)
	search.SortResults(results)
	return results, search.Summarize(results), true
}

// scanOptions resolves per-request query parameter overrides on top of
// the configured defaults.
func (h *apiHandler) scanOptions(r *http.Request) (scan.Options, error) {
	opts := scan.Options{
		InitialDelay: time.Duration(h.settings.Scan.DelayMS) * time.Millisecond,
		MaxContacts:  h.settings.Scan.MaxContacts,
		IncludeHits:  h.settings.Scan.IncludeHits,
	}

	q := r.URL.Query()
	if v := q.Get("delay_ms"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms < 0 {
			return opts, fmt.Errorf("delay_ms must be a non-negative integer")
		}
		opts.InitialDelay = time.Duration(ms) * time.Millisecond
	}
	if v := q.Get("max_contacts"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("max_contacts must be a non-negative integer")
		}
		opts.MaxContacts = n
	}
	if v := q.Get("include_hits"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("include_hits must be a boolean")
		}
		opts.IncludeHits = b
	}
	return opts, nil
}

func maxHitsParam(r *http.Request, fallback int) int {
	v := r.URL.Query().Get("max_hits")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// corsMiddleware allows the configured explicit origins and answers
// preflight requests.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && allowed[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, X-API-Key, Content-Type")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestIDMiddleware tags every request with an ID for log
// correlation.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		slog.Info("Request", "id", id, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func writeJSONError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, "{\"detail\": %q}\n", detail)
}
