// Package openalex fetches works from the OpenAlex API and maps them to
// canonical records.
package openalex

// Work is a raw OpenAlex work as returned by the /works endpoint.
// Only the fields the canonical record needs are decoded.
type Work struct {
	ID              string   `json:"id"` // URI, e.g. https://openalex.org/W2100837269
	DOI             *string  `json:"doi"`
	Title           *string  `json:"title"`
	DisplayName     *string  `json:"display_name"`
	PublicationYear *int     `json:"publication_year"`
	PublicationDate *string  `json:"publication_date"`
	Language        *string  `json:"language"`
	CitedByCount    *int64   `json:"cited_by_count"`
	ReferencedWorks []string `json:"referenced_works"`
}

// WorksResponse is one page of the /works listing.
type WorksResponse struct {
	Meta    Meta   `json:"meta"`
	Results []Work `json:"results"`
}

// Meta is the paging metadata of a listing.
type Meta struct {
	Count   int `json:"count"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// Page identifies a single page of the listing.
type Page struct {
	PerPage int
	Page    int
}
