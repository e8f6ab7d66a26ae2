package domain

// Contact represents one normalized person record from a LinkedIn
// connections export. FirstName and LastName are non-empty after
// trimming; FullName is always "FirstName LastName".
type Contact struct {
	FirstName string
	LastName  string
	FullName  string
	Company   string
	Position  string
}

// Hit is one matched document excerpt returned by the upstream index.
type Hit struct {
	// Preview is the excerpt text. It may contain markup-unsafe
	// characters and must be escaped before rendering.
	Preview string `json:"preview"`

	// FilePath is the document path relative to the index root.
	// Example: "dataset 9/VOL00001/IMAGES/001/doc.pdf"
	FilePath string `json:"file_path"`
}

// Result is the aggregated search outcome for one contact. It is
// created once per contact after the search resolves and never
// mutated afterwards.
type Result struct {
	Name          string
	FirstName     string
	LastName      string
	Company       string
	Position      string
	TotalMentions int

	// Hits holds at most the configured cap of excerpts, in the order
	// the upstream index returned them. len(Hits) may be smaller than
	// TotalMentions.
	Hits []Hit

	// Err is the terminal failure for this contact's lookup, empty on
	// success. A zero-mention success and a failed lookup are distinct
	// outcomes.
	Err string
}

// Summary holds the derived report counts, recomputed from the final
// result set at render time.
type Summary struct {
	TotalConnections        int `json:"total_connections"`
	ConnectionsWithMentions int `json:"connections_with_mentions"`
}
