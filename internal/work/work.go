// Package work defines the canonical record persisted for one OpenAlex work.
package work

// Work is the normalized representation of one source work, as stored in
// the works table and served by the retrieval API.
type Work struct {
	// Identity
	ID  string  `json:"id"`  // Final path segment of the OpenAlex URI (e.g. W2100837269)
	DOI *string `json:"doi"` // Passed through from the source, nil when absent

	// Metadata
	Title           string  `json:"title"` // Lower-cased, restricted to [a-z0-9 ]
	PublicationYear *int    `json:"publication_year"`
	PublicationDate Date    `json:"publication_date"`
	Language        *string `json:"language"` // Two-letter code
	CitedByCount    *int64  `json:"cited_by_count"`

	// Relationships
	ReferencedWorks IDList `json:"referenced_works"`
}

// Filter selects works by simple equality and substring predicates.
// Zero-valued fields are ignored; all set fields must match.
type Filter struct {
	Keyword  string // Case-insensitive substring of the title
	Year     *int   // Exact publication year
	Language string // Exact language code
	Limit    int    // 0 = no limit
}

// IsEmpty reports whether no predicate is set.
func (f Filter) IsEmpty() bool {
	return f.Keyword == "" && f.Year == nil && f.Language == ""
}
