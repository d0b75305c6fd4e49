// Package pipeline runs the clear, extract, normalize and load sequence that
// keeps the works table in step with OpenAlex.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matsen/works/internal/openalex"
	"github.com/matsen/works/internal/storage"
	"github.com/matsen/works/internal/work"
)

// State is a step of a sync run.
type State string

const (
	StateIdle     State = "idle"
	StateClearing State = "clearing"
	StateLoading  State = "loading"
	StateDone     State = "done"
	StateFailed   State = "failed"
)

// Extractor fetches one page of raw works.
type Extractor interface {
	FetchWorks(ctx context.Context, page openalex.Page) ([]openalex.Work, error)
}

// Normalizer maps one raw work to a canonical record.
type Normalizer interface {
	Normalize(raw openalex.Work) (work.Work, error)
}

// Store is the destination of a sync run.
type Store interface {
	storage.Writer
	EnsureSchema(ctx context.Context) error
	InTx(ctx context.Context, fn func(w storage.Writer) error) error
}

// SyncRunner performs one complete sync run.
type SyncRunner interface {
	Run(ctx context.Context) (*Result, error)
}

// Options controls a Syncer.
type Options struct {
	Page openalex.Page

	// Atomic runs clear and load in one transaction so a failed run leaves
	// the previous contents in place. The page is fetched before the
	// transaction opens. When false the clear is committed on its own and a
	// later failure leaves the table empty.
	Atomic bool

	// SkipMalformed skips records that fail normalization and reports them
	// in the result, instead of aborting the run on the first one.
	SkipMalformed bool

	// Timeout bounds a whole run. Zero means no bound.
	Timeout time.Duration
}

// RecordFailure is a skipped record and the reason it was skipped.
type RecordFailure struct {
	SourceID string `json:"source_id"`
	Reason   string `json:"reason"`
}

// Result summarizes one sync run.
type Result struct {
	RunID      string          `json:"run_id"`
	State      State           `json:"state"`
	Atomic     bool            `json:"atomic"`
	Fetched    int             `json:"fetched"`
	Affected   int64           `json:"affected"`
	Skipped    []RecordFailure `json:"skipped"`
	RolledBack bool            `json:"rolled_back"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Syncer runs sync jobs. It keeps no state between runs and provides no
// mutual exclusion; wrap it in a SingleFlight when triggers can overlap.
type Syncer struct {
	extractor  Extractor
	normalizer Normalizer
	store      Store
	opts       Options
	log        *zap.Logger
}

// NewSyncer creates a Syncer. A nil logger discards output.
func NewSyncer(extractor Extractor, normalizer Normalizer, store Store, opts Options, log *zap.Logger) *Syncer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Syncer{
		extractor:  extractor,
		normalizer: normalizer,
		store:      store,
		opts:       opts,
		log:        log.Named("sync"),
	}
}

// Run executes one sync. Cancellation of ctx does not interrupt a started
// run; only Options.Timeout bounds it. On failure the returned error is an
// *Error and the result reports StateFailed.
func (s *Syncer) Run(ctx context.Context) (*Result, error) {
	ctx = context.WithoutCancel(ctx)
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	res := &Result{
		RunID:     uuid.NewString(),
		State:     StateIdle,
		Atomic:    s.opts.Atomic,
		Skipped:   []RecordFailure{},
		StartedAt: time.Now().UTC(),
	}
	log := s.log.With(zap.String("run_id", res.RunID), zap.Bool("atomic", s.opts.Atomic))
	log.Info("sync started",
		zap.Int("per_page", s.opts.Page.PerPage),
		zap.Int("page", s.opts.Page.Page))

	if err := s.store.EnsureSchema(ctx); err != nil {
		return s.fail(res, log, NewError(KindSchema, StateIdle, err))
	}

	var err error
	if s.opts.Atomic {
		err = s.reloadAtomic(ctx, res, log)
	} else {
		err = s.reload(ctx, res, log)
	}
	if err != nil {
		var perr *Error
		if !errors.As(err, &perr) {
			perr = NewError(KindLoad, res.State, err)
		}
		return s.fail(res, log, perr)
	}

	res.State = StateDone
	res.FinishedAt = time.Now().UTC()
	log.Info("sync finished",
		zap.Int("fetched", res.Fetched),
		zap.Int64("affected", res.Affected),
		zap.Int("skipped", len(res.Skipped)),
		zap.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)))
	return res, nil
}

// reload is the non-atomic run: the clear is committed on its own before
// the page is fetched.
func (s *Syncer) reload(ctx context.Context, res *Result, log *zap.Logger) error {
	res.State = StateClearing
	if err := s.store.Clear(ctx); err != nil {
		return NewError(KindLoad, StateClearing, err)
	}

	works, err := s.extract(ctx, res, log)
	if err != nil {
		return err
	}
	return s.load(ctx, s.store, works, res)
}

// reloadAtomic fetches and normalizes the page before opening the write
// transaction, so readers are only blocked for the clear and the upsert.
func (s *Syncer) reloadAtomic(ctx context.Context, res *Result, log *zap.Logger) error {
	works, err := s.extract(ctx, res, log)
	if err != nil {
		return err
	}

	var began bool
	err = s.store.InTx(ctx, func(w storage.Writer) error {
		began = true
		res.State = StateClearing
		if err := w.Clear(ctx); err != nil {
			return NewError(KindLoad, StateClearing, err)
		}
		return s.load(ctx, w, works, res)
	})
	if err != nil {
		res.RolledBack = began
		res.Affected = 0
	}
	return err
}

// extract fetches one page and normalizes it. Nothing is written.
func (s *Syncer) extract(ctx context.Context, res *Result, log *zap.Logger) ([]work.Work, error) {
	res.State = StateLoading
	raw, err := s.extractor.FetchWorks(ctx, s.opts.Page)
	if err != nil {
		log.Warn("extraction failed", zap.Bool("rate_limited", openalex.IsRateLimited(err)), zap.Error(err))
		return nil, NewError(KindSourceUnavailable, StateLoading, err)
	}
	res.Fetched = len(raw)
	log.Debug("extracted works", zap.Int("count", len(raw)))

	works := make([]work.Work, 0, len(raw))
	for _, r := range raw {
		wk, err := s.normalizer.Normalize(r)
		if err != nil {
			if !s.opts.SkipMalformed || !openalex.IsMalformed(err) {
				return nil, NewError(KindRecordMalformed, StateLoading, err)
			}
			log.Warn("skipping malformed record", zap.String("source_id", r.ID), zap.Error(err))
			res.Skipped = append(res.Skipped, RecordFailure{SourceID: r.ID, Reason: err.Error()})
			continue
		}
		works = append(works, wk)
	}
	return works, nil
}

func (s *Syncer) load(ctx context.Context, w storage.Writer, works []work.Work, res *Result) error {
	res.State = StateLoading
	n, err := w.Upsert(ctx, works)
	if err != nil {
		return NewError(KindLoad, StateLoading, err)
	}
	res.Affected = n
	return nil
}

func (s *Syncer) fail(res *Result, log *zap.Logger, err *Error) (*Result, error) {
	res.State = StateFailed
	res.FinishedAt = time.Now().UTC()
	log.Error("sync failed",
		zap.String("kind", string(err.Kind)),
		zap.String("during", string(err.State)),
		zap.Bool("rolled_back", res.RolledBack),
		zap.Error(err.Err))
	return res, err
}
