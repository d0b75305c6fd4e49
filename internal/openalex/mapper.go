package openalex

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/matsen/works/internal/work"
)

var (
	// titleStrip matches everything a canonical title may not contain.
	titleStrip = regexp.MustCompile(`[^a-z0-9 ]`)

	// isoDate is the strict shape of a publication date.
	isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Normalizer maps raw OpenAlex works to canonical records.
// The zero value keeps works with an empty identifier.
type Normalizer struct {
	// RequireID rejects works whose identifier is missing, instead of
	// storing them under the empty key.
	RequireID bool
}

// Normalize converts a raw work to a canonical record. It has no side
// effects and returns the same result for the same input.
func (n Normalizer) Normalize(raw Work) (work.Work, error) {
	id := ExtractID(raw.ID)
	if id == "" && n.RequireID {
		return work.Work{}, &MalformedError{ID: raw.ID, Field: "id", Reason: "missing identifier"}
	}

	if raw.PublicationDate == nil {
		return work.Work{}, &MalformedError{ID: raw.ID, Field: "publication_date", Reason: "missing date"}
	}
	date, err := ParseDate(*raw.PublicationDate)
	if err != nil {
		return work.Work{}, &MalformedError{ID: raw.ID, Field: "publication_date", Reason: err.Error()}
	}

	refs := work.IDList{}
	if len(raw.ReferencedWorks) > 0 {
		refs = append(refs, raw.ReferencedWorks...)
	}

	return work.Work{
		ID:              id,
		DOI:             raw.DOI,
		Title:           NormalizeTitle(rawTitle(raw)),
		PublicationYear: raw.PublicationYear,
		PublicationDate: date,
		Language:        raw.Language,
		CitedByCount:    raw.CitedByCount,
		ReferencedWorks: refs,
	}, nil
}

// rawTitle prefers the title, then the display name. Empty strings count as absent.
func rawTitle(raw Work) string {
	if raw.Title != nil && *raw.Title != "" {
		return *raw.Title
	}
	if raw.DisplayName != nil {
		return *raw.DisplayName
	}
	return ""
}

// ExtractID returns the final path segment of an OpenAlex URI.
// "https://openalex.org/W2100837269" yields "W2100837269".
func ExtractID(uri string) string {
	return uri[strings.LastIndex(uri, "/")+1:]
}

// NormalizeTitle lower-cases a title and drops every character outside
// [a-z0-9 ]. Accented letters are dropped, not transliterated.
func NormalizeTitle(title string) string {
	return titleStrip.ReplaceAllString(strings.ToLower(title), "")
}

// ParseDate parses a strict YYYY-MM-DD date.
func ParseDate(s string) (work.Date, error) {
	if !isoDate.MatchString(s) {
		return work.Date{}, fmt.Errorf("expected YYYY-MM-DD, got %q", s)
	}
	t, err := time.Parse(work.DateLayout, s)
	if err != nil {
		return work.Date{}, fmt.Errorf("invalid date %q", s)
	}
	return work.Date{Time: t}, nil
}
