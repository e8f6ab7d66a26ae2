package report

import (
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"os"

	"github.com/epstein-scan/epstein-scan/internal/domain"
)

// previewDisplayLen caps hit preview length in the HTML report, in
// runes. Display-only; mention counts are unaffected.
const previewDisplayLen = 500

// HTMLOptions configures the HTML report renderer.
type HTMLOptions struct {
	// PDFBaseURL is the document hosting prefix for hit links.
	PDFBaseURL string

	// LogoPath points at an optional PNG masthead, inlined base64.
	// When missing or unreadable, a text heading is used instead.
	LogoPath string

	// PartialNotice, when non-empty, is shown above the summary for
	// reports generated from an interrupted scan.
	PartialNotice string
}

type htmlData struct {
	LogoURI       template.URL
	PartialNotice string
	Summary       domain.Summary
	Contacts      []contactView
}

type contactView struct {
	Name     string
	Info     string
	Mentions int
	Hits     []hitView
}

type hitView struct {
	Preview     string
	PDFURL      string
	DisplayPath string
}

// WriteHTML renders the self-contained HTML report. Contacts with zero
// mentions are omitted from the itemized list but counted in the
// summary. All free-text fields pass through html/template escaping.
func WriteHTML(w io.Writer, results []domain.Result, summary domain.Summary, opts HTMLOptions) error {
	if opts.PDFBaseURL == "" {
		opts.PDFBaseURL = DefaultPDFBaseURL
	}

	data := htmlData{
		LogoURI:       logoDataURI(opts.LogoPath),
		PartialNotice: opts.PartialNotice,
		Summary:       summary,
	}

	for _, r := range results {
		if r.TotalMentions == 0 {
			continue
		}
		data.Contacts = append(data.Contacts, contactView{
			Name:     r.Name,
			Info:     contactInfo(r),
			Mentions: r.TotalMentions,
			Hits:     hitViews(r.Hits, opts.PDFBaseURL),
		})
	}

	if err := reportTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to write HTML report: %w", err)
	}
	return nil
}

// contactInfo joins position and company as "Position at Company",
// falling back to whichever is present.
func contactInfo(r domain.Result) string {
	switch {
	case r.Position != "" && r.Company != "":
		return r.Position + " at " + r.Company
	case r.Position != "":
		return r.Position
	default:
		return r.Company
	}
}

func hitViews(hits []domain.Hit, pdfBaseURL string) []hitView {
	var views []hitView
	for _, h := range hits {
		views = append(views, hitView{
			Preview:     truncateRunes(h.Preview, previewDisplayLen),
			PDFURL:      BuildPDFURL(pdfBaseURL, h.FilePath),
			DisplayPath: NormalizeFilePath(h.FilePath),
		})
	}
	return views
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// logoDataURI reads the logo file and returns it as an inline data
// URI, or "" when the asset is unavailable.
func logoDataURI(path string) template.URL {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(data))
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>EpsteIn: Which LinkedIn Connections Appear in the Epstein Files?</title>
    <style>
        * { box-sizing: border-box; }
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, sans-serif; line-height: 1.6; max-width: 1200px; margin: 0 auto; padding: 20px; background-color: #f5f5f5; }
        .logo { display: block; max-width: 300px; margin: 0 auto 20px auto; }
        .summary { background: #fff; padding: 20px; border-radius: 8px; margin-bottom: 30px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .partial-notice { background: #fff3cd; border: 1px solid #ffe69c; color: #664d03; padding: 14px 16px; border-radius: 8px; margin-bottom: 20px; }
        .contact { background: #fff; padding: 20px; margin-bottom: 20px; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .contact-header { display: flex; justify-content: space-between; align-items: center; border-bottom: 1px solid #eee; padding-bottom: 10px; margin-bottom: 15px; }
        .contact-name { font-size: 1.4em; font-weight: bold; color: #333; }
        .contact-info { color: #666; font-size: 0.9em; }
        .hit-count { background: #e74c3c; color: white; padding: 5px 15px; border-radius: 20px; font-weight: bold; }
        .hit { background: #f9f9f9; padding: 15px; margin-bottom: 10px; border-radius: 4px; border-left: 3px solid #3498db; }
        .hit-preview { color: #444; margin-bottom: 10px; font-size: 0.95em; }
        .hit-link { display: inline-block; color: #3498db; text-decoration: none; font-size: 0.85em; }
        .hit-link:hover { text-decoration: underline; }
        .no-results { color: #999; font-style: italic; }
        .footer { margin-top: 40px; padding-top: 20px; border-top: 1px solid #ddd; text-align: center; color: #666; font-size: 0.9em; }
        .footer a { color: #3498db; text-decoration: none; }
        .footer a:hover { text-decoration: underline; }
    </style>
</head>
<body>
{{if .LogoURI}}    <img src="{{.LogoURI}}" alt="EpsteIn" class="logo">
{{else}}    <h1 class="logo" style="text-align: center;">EpsteIn</h1>
{{end}}{{if .PartialNotice}}    <div class="partial-notice">{{.PartialNotice}}</div>
{{end}}    <div class="summary">
        <strong>Total connections searched:</strong> {{.Summary.TotalConnections}}<br>
        <strong>Connections with mentions:</strong> {{.Summary.ConnectionsWithMentions}}
    </div>
{{range .Contacts}}    <div class="contact">
        <div class="contact-header">
            <div>
                <div class="contact-name">{{.Name}}</div>
                <div class="contact-info">{{.Info}}</div>
            </div>
            <div class="hit-count">{{.Mentions}} mentions</div>
        </div>
{{if .Hits}}{{range .Hits}}        <div class="hit">
            <div class="hit-preview">{{.Preview}}</div>
{{if .PDFURL}}            <a class="hit-link" href="{{.PDFURL}}" target="_blank">View PDF: {{.DisplayPath}}</a>
{{end}}        </div>
{{end}}{{else}}        <div class="no-results">Hit details not available</div>
{{end}}    </div>
{{end}}    <div class="footer">
        Epstein files indexed by <a href="https://dugganusa.com" target="_blank">DugganUSA.com</a>
    </div>
</body>
</html>
`))
