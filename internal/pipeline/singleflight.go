package pipeline

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// SingleFlight serializes sync triggers: callers that arrive while a run is
// in progress wait for it and receive its result instead of starting a
// second run against the same table.
type SingleFlight struct {
	runner SyncRunner
	group  singleflight.Group
}

// NewSingleFlight wraps runner.
func NewSingleFlight(runner SyncRunner) *SingleFlight {
	return &SingleFlight{runner: runner}
}

// Run starts a run, or joins the one already in progress.
func (s *SingleFlight) Run(ctx context.Context) (*Result, error) {
	v, err, _ := s.group.Do("sync", func() (any, error) {
		return s.runner.Run(ctx)
	})
	res, _ := v.(*Result)
	return res, err
}
