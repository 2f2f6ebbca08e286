package harness

import (
	"context"
	"io"
	"log/slog"
)

// Runner executes a suite case by case, strictly in order.
type Runner struct {
	Engine   *Engine
	Reporter Reporter
	Logger   *slog.Logger
}

// NewRunner creates a runner. A nil reporter discards verdicts.
func NewRunner(engine *Engine, reporter Reporter, logger *slog.Logger) *Runner {
	if reporter == nil {
		reporter = Discard
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{Engine: engine, Reporter: reporter, Logger: logger}
}

// Run executes every case of s and returns the aggregate. A failing case
// never stops the suite; once ctx is cancelled the cases not yet started
// are skipped without running any of their hooks.
func (r *Runner) Run(ctx context.Context, s Suite) Summary {
	reporter := r.Reporter
	if reporter == nil {
		reporter = Discard
	}

	sum := Summary{Suite: s.Name, Total: len(s.Cases)}
	for _, c := range s.Cases {
		var v Verdict
		if err := ctx.Err(); err != nil {
			// Interrupted: the remaining cases are reported but never set up.
			v = Verdict{Name: c.Name, Status: StatusSkip, Reason: ReasonCancelled}
		} else {
			v = r.runCase(ctx, c)
		}
		sum = sum.add(v)
		reporter.Verdict(v)
	}
	reporter.Summary(sum)

	if r.Logger != nil {
		r.Logger.Info("suite finished",
			"suite", s.Name,
			"total", sum.Total,
			"run", sum.Run,
			"failed", sum.Failed,
		)
	}
	return sum
}

// runCase evaluates the precondition and hands attempted cases to the
// engine. A skipped case never reaches setup, invocation or teardown.
func (r *Runner) runCase(ctx context.Context, c Case) Verdict {
	env := r.Engine.NewEnv()
	if err := callHook(c.Precondition, env); err != nil {
		if r.Logger != nil {
			r.Logger.Debug("precondition not met", "test", c.Name, "reason", err)
		}
		return Verdict{Name: c.Name, Status: StatusSkip, Reason: err.Error()}
	}
	return r.Engine.Run(ctx, c, env)
}
