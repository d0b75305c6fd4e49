package openalex

import (
	"errors"
	"fmt"
)

// Common errors returned by the OpenAlex client and normalizer.
var (
	// ErrSourceUnavailable indicates the works endpoint did not answer successfully.
	ErrSourceUnavailable = errors.New("OpenAlex source unavailable")

	// ErrRateLimited indicates the polite-pool rate limit has been exceeded.
	ErrRateLimited = errors.New("OpenAlex rate limit exceeded")

	// ErrInvalidResponse indicates a response body that is not a works page.
	ErrInvalidResponse = errors.New("invalid response from OpenAlex")

	// ErrInvalidPage indicates a page request outside the accepted bounds.
	ErrInvalidPage = errors.New("invalid page request")

	// ErrRecordMalformed indicates a raw work that cannot be normalized.
	ErrRecordMalformed = errors.New("malformed OpenAlex record")
)

// APIError represents a non-success response from the works endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("OpenAlex API error (status %d): %s", e.StatusCode, e.Body)
}

// Is lets errors.Is match every API error against ErrSourceUnavailable,
// and 429 responses against ErrRateLimited.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrSourceUnavailable:
		return true
	case ErrRateLimited:
		return e.StatusCode == 429
	}
	return false
}

// MalformedError describes why a single raw work could not be normalized.
type MalformedError struct {
	ID     string // Source identifier as received, may be empty
	Field  string
	Reason string
}

func (e *MalformedError) Error() string {
	id := e.ID
	if id == "" {
		id = "<no id>"
	}
	return fmt.Sprintf("malformed record %s: %s: %s", id, e.Field, e.Reason)
}

// Is matches ErrRecordMalformed.
func (e *MalformedError) Is(target error) bool {
	return target == ErrRecordMalformed
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsMalformed returns true if the error came from normalizing a bad record.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrRecordMalformed)
}
