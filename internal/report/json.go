package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/epstein-scan/epstein-scan/internal/domain"
)

// Document is the structured (machine-readable) report form.
type Document struct {
	Summary domain.Summary `json:"summary"`
	Results []ResultEntry  `json:"results"`
}

// ResultEntry is one contact's outcome in the structured form.
type ResultEntry struct {
	Name          string     `json:"name"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Company       string     `json:"company"`
	Position      string     `json:"position"`
	TotalMentions int        `json:"total_mentions"`
	Hits          []HitEntry `json:"hits"`

	// Error is null for successful lookups, including zero-mention
	// ones.
	Error *string `json:"error"`
}

// HitEntry is one matched excerpt in the structured form.
type HitEntry struct {
	Preview  string `json:"preview"`
	FilePath string `json:"file_path"`
	PDFURL   string `json:"pdf_url"`
}

// BuildDocument assembles the structured form from sorted results.
// pdfBaseURL is the document hosting prefix for per-hit links.
func BuildDocument(results []domain.Result, summary domain.Summary, pdfBaseURL string) *Document {
	doc := &Document{
		Summary: summary,
		Results: make([]ResultEntry, 0, len(results)),
	}

	for _, r := range results {
		entry := ResultEntry{
			Name:          r.Name,
			FirstName:     r.FirstName,
			LastName:      r.LastName,
			Company:       r.Company,
			Position:      r.Position,
			TotalMentions: r.TotalMentions,
			Hits:          make([]HitEntry, 0, len(r.Hits)),
		}
		if r.Err != "" {
			errText := r.Err
			entry.Error = &errText
		}
		for _, h := range r.Hits {
			entry.Hits = append(entry.Hits, HitEntry{
				Preview:  h.Preview,
				FilePath: h.FilePath,
				PDFURL:   BuildPDFURL(pdfBaseURL, h.FilePath),
			})
		}
		doc.Results = append(doc.Results, entry)
	}

	return doc
}

// WriteJSON writes the structured form as indented JSON.
func (d *Document) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}
	return nil
}
