package main

import "github.com/matsen/works/internal/pipeline"

// Exit codes
const (
	ExitSuccess           = 0 // Success
	ExitError             = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError       = 2 // Configuration error (bad config file, missing credentials)
	ExitDataError         = 3 // A source record could not be normalized
	ExitSourceUnavailable = 4 // OpenAlex unreachable or returned an error
	ExitStoreError        = 5 // Schema or load failure in the destination store
)

// exitCodeFor maps a sync error to an exit code.
func exitCodeFor(err error) int {
	switch pipeline.KindOf(err) {
	case pipeline.KindRecordMalformed:
		return ExitDataError
	case pipeline.KindSourceUnavailable:
		return ExitSourceUnavailable
	case pipeline.KindSchema, pipeline.KindLoad:
		return ExitStoreError
	default:
		return ExitError
	}
}
