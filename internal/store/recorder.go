package store

import (
	"context"
	"io"
	"log/slog"

	"github.com/roach88/linkcheck/internal/harness"
)

// Recorder is a harness.Reporter that writes each verdict to the store as
// it arrives, so an interrupted run still leaves its completed cases.
//
// Reporter methods cannot fail; write errors are logged and the first one
// is kept for Err.
type Recorder struct {
	ctx    context.Context
	store  *Store
	run    Run
	seq    int
	err    error
	logger *slog.Logger
}

var _ harness.Reporter = (*Recorder)(nil)

// NewRecorder begins a run for suite and returns a recorder for it.
func (s *Store) NewRecorder(ctx context.Context, suite, tool string, logger *slog.Logger) (*Recorder, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	run, err := s.BeginRun(ctx, suite, tool)
	if err != nil {
		return nil, err
	}
	return &Recorder{ctx: ctx, store: s, run: run, logger: logger.With("run", run.ID)}, nil
}

// Run returns the run being recorded.
func (r *Recorder) Run() Run {
	return r.run
}

// Err returns the first write error, if any.
func (r *Recorder) Err() error {
	return r.err
}

// Verdict stores v at the next position.
func (r *Recorder) Verdict(v harness.Verdict) {
	seq := r.seq
	r.seq++
	// A cancelled run context must not lose the verdicts that did finish.
	if err := r.store.RecordVerdict(context.WithoutCancel(r.ctx), r.run.ID, seq, v); err != nil {
		r.fail("failed to record verdict", err)
	}
}

// Summary marks the run finished.
func (r *Recorder) Summary(s harness.Summary) {
	if err := r.store.FinishRun(context.WithoutCancel(r.ctx), r.run.ID, s); err != nil {
		r.fail("failed to finish run", err)
		return
	}
	r.run.Total, r.run.Run, r.run.Failed = s.Total, s.Run, s.Failed
}

func (r *Recorder) fail(msg string, err error) {
	r.logger.Warn(msg, "error", err)
	if r.err == nil {
		r.err = err
	}
}
