// Package contacts parses LinkedIn connections CSV exports into
// normalized contact records.
package contacts

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/epstein-scan/epstein-scan/internal/domain"
)

// Column labels as they appear in LinkedIn exports. Matching is
// case-sensitive and exact.
const (
	ColumnFirstName = "First Name"
	ColumnLastName  = "Last Name"
	ColumnCompany   = "Company"
	ColumnPosition  = "Position"
)

// DefaultMaxFieldLen is the default cap on stored field length, in runes.
const DefaultMaxFieldLen = 512

// ErrMalformedInput indicates that no header row containing both the
// "First Name" and "Last Name" columns could be located.
var ErrMalformedInput = errors.New("no header row with First Name and Last Name columns")

// Parse reads a LinkedIn connections export and returns the contacts in
// input row order.
//
// LinkedIn places a free-text "Notes" preamble above the real header
// row, so lines are skipped until one containing both required column
// labels is found. Rows whose first or last name is empty after
// trimming are silently dropped. A credential suffix after a comma in
// the last-name field (e.g. "Doe, MBA") is discarded.
//
// maxFieldLen caps the stored length of every field in runes; 0 means
// no cap.
func Parse(r io.Reader, maxFieldLen int) ([]domain.Contact, error) {
	br := bufio.NewReader(r)

	headerLine, err := findHeaderLine(br)
	if err != nil {
		return nil, err
	}

	columns, err := resolveColumns(headerLine)
	if err != nil {
		return nil, err
	}

	// Re-join the header with the remaining stream so a single CSV
	// reader handles all quoting.
	reader := csv.NewReader(io.MultiReader(strings.NewReader(headerLine+"\n"), br))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	// Consume the header record.
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("failed to parse header row: %w", err)
	}

	var contacts []domain.Contact
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse contact row: %w", err)
		}

		if c, ok := contactFromRecord(record, columns, maxFieldLen); ok {
			contacts = append(contacts, c)
		}
	}

	return contacts, nil
}

// columnIndexes holds the resolved positions of the known columns.
// Optional columns are -1 when absent.
type columnIndexes struct {
	first    int
	last     int
	company  int
	position int
}

// findHeaderLine scans raw lines until one containing both required
// column labels is found. The first line may carry a UTF-8 BOM.
func findHeaderLine(br *bufio.Reader) (string, error) {
	firstLine := true
	for {
		line, err := br.ReadString('\n')
		if firstLine {
			line = strings.TrimPrefix(line, "\ufeff")
			firstLine = false
		}
		if strings.Contains(line, ColumnFirstName) && strings.Contains(line, ColumnLastName) {
			return strings.TrimRight(line, "\r\n"), nil
		}
		if err == io.EOF {
			return "", ErrMalformedInput
		}
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
	}
}

// resolveColumns parses the header line as CSV and locates the known
// columns by exact field match.
func resolveColumns(headerLine string) (columnIndexes, error) {
	reader := csv.NewReader(strings.NewReader(headerLine))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	fields, err := reader.Read()
	if err != nil {
		return columnIndexes{}, fmt.Errorf("failed to parse header row: %w", err)
	}

	columns := columnIndexes{first: -1, last: -1, company: -1, position: -1}
	for i, field := range fields {
		switch field {
		case ColumnFirstName:
			columns.first = i
		case ColumnLastName:
			columns.last = i
		case ColumnCompany:
			columns.company = i
		case ColumnPosition:
			columns.position = i
		}
	}

	if columns.first < 0 || columns.last < 0 {
		return columnIndexes{}, ErrMalformedInput
	}
	return columns, nil
}

// contactFromRecord builds a contact from one CSV record. Returns
// ok=false for rows that must be skipped.
func contactFromRecord(record []string, columns columnIndexes, maxFieldLen int) (domain.Contact, bool) {
	first := strings.TrimSpace(fieldAt(record, columns.first))
	last := fieldAt(record, columns.last)

	// Drop credentials/certifications after the first comma.
	if comma := strings.Index(last, ","); comma >= 0 {
		last = last[:comma]
	}
	last = strings.TrimSpace(last)

	if first == "" || last == "" {
		return domain.Contact{}, false
	}

	first = capField(first, maxFieldLen)
	last = capField(last, maxFieldLen)

	return domain.Contact{
		FirstName: first,
		LastName:  last,
		FullName:  first + " " + last,
		Company:   capField(strings.TrimSpace(fieldAt(record, columns.company)), maxFieldLen),
		Position:  capField(strings.TrimSpace(fieldAt(record, columns.position)), maxFieldLen),
	}, true
}

// fieldAt returns the field at index i, or "" when the record is too
// short or the column is absent.
func fieldAt(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

// capField truncates s to max runes. max <= 0 disables the cap.
func capField(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
