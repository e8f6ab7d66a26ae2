// Package report renders scan results as a structured JSON document or
// a self-contained HTML report.
package report

import (
	"net/url"
	"strings"
)

// DefaultPDFBaseURL is the public document hosting prefix that index
// file paths are appended to.
const DefaultPDFBaseURL = "https://www.justice.gov/epstein/files/"

// NormalizeFilePath rewrites the lowercase "dataset" index segment to
// its canonical "DataSet" casing, as used by the hosting site.
func NormalizeFilePath(filePath string) string {
	return strings.ReplaceAll(filePath, "dataset", "DataSet")
}

// BuildPDFURL combines the hosting base URL with a normalized,
// percent-encoded index file path. Path separators are preserved, and
// the base's trailing slash is not duplicated when the path is rooted.
// An empty path yields an empty URL.
func BuildPDFURL(baseURL, filePath string) string {
	if filePath == "" {
		return ""
	}

	fixed := NormalizeFilePath(filePath)
	encoded := encodePath(fixed)

	if strings.HasPrefix(fixed, "/") {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	return baseURL + encoded
}

// encodePath percent-encodes each path segment, leaving separators
// intact.
func encodePath(p string) string {
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
