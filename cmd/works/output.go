package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/matsen/works/internal/work"
)

// Constants for output formatting.
const (
	ListTitleMaxLen   = 60 // Used in list and search output
	DetailTitleMaxLen = 70 // Used in get command detail view
)

// ErrorResponse is the JSON body written for failed commands.
type ErrorResponse struct {
	Error    string `json:"error"`
	Category string `json:"category,omitempty"`
}

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// printWorkList prints one line per work.
func printWorkList(works []work.Work) {
	for _, w := range works {
		year := "    "
		if w.PublicationYear != nil {
			year = fmt.Sprint(*w.PublicationYear)
		}
		fmt.Printf("  %-12s %s  %s\n", w.ID, year, truncateString(w.Title, ListTitleMaxLen))
	}
}

func printWorkDetail(w work.Work) {
	fmt.Println(w.ID)
	fmt.Println(strings.Repeat("=", DetailTitleMaxLen))
	fmt.Println()
	fmt.Printf("Title:     %s\n", truncateString(w.Title, DetailTitleMaxLen))
	if w.DOI != nil {
		fmt.Printf("DOI:       %s\n", *w.DOI)
	}
	if w.PublicationYear != nil {
		fmt.Printf("Year:      %d\n", *w.PublicationYear)
	}
	if !w.PublicationDate.IsZero() {
		fmt.Printf("Published: %s\n", w.PublicationDate)
	}
	if w.Language != nil {
		fmt.Printf("Language:  %s\n", *w.Language)
	}
	if w.CitedByCount != nil {
		fmt.Printf("Cited by:  %d\n", *w.CitedByCount)
	}
	fmt.Printf("References: %d\n", len(w.ReferencedWorks))
}
