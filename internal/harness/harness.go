package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/linkcheck/internal/process"
)

// Verdict reasons shared with the reporter and tests.
const (
	ReasonTimeout       = "Terminated, possibly due to timeout"
	ReasonSetup         = "setup failed"
	ReasonPostcondition = "postcondition failed"
	ReasonStart         = "could not start tool"
	ReasonCancelled     = "cancelled"
)

// Detail labels.
const (
	LabelStdout = "StdOut"
	LabelStderr = "StdErr"
	LabelError  = "Error"
)

// Engine runs a single case against the tool under test.
//
// The zero value is not usable; Tool must be set. All other fields have
// defaults: Invoker is process.Exec, Timeout is process.DefaultTimeout,
// ScratchRoot is os.TempDir(), Target is the directory of Tool, Logger
// discards.
type Engine struct {
	Tool        string
	Target      string
	ScratchRoot string
	Timeout     time.Duration
	Env         []string // extra environment for the tool process
	Isolate     bool     // run the tool inside the test's scratch directory
	Invoker     process.Invoker
	Logger      *slog.Logger

	// NewID names scratch directories. Defaults to UUIDv7 strings.
	NewID func() string
}

func (e *Engine) invoker() process.Invoker {
	if e.Invoker == nil {
		return process.Exec{}
	}
	return e.Invoker
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e.Logger
}

func (e *Engine) target() string {
	if e.Target != "" {
		return e.Target
	}
	return filepath.Dir(e.Tool)
}

func (e *Engine) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.Must(uuid.NewV7()).String()
}

// NewEnv prepares the environment for one case. The scratch directory is
// named here but only created, and made the working directory of isolated
// cases, once the case is attempted.
func (e *Engine) NewEnv() *Env {
	root := e.ScratchRoot
	if root == "" {
		root = os.TempDir()
	}
	env := &Env{
		Scratch: filepath.Join(root, "linkcheck-"+e.newID()),
		Target:  e.target(),
		Tool:    e.Tool,
	}
	return env
}

// Run attempts c: setup, invoke, postcondition, teardown. The precondition
// is the caller's job (see Runner); Run assumes it passed.
//
// Every failure is converted into the returned verdict. Teardown runs
// exactly once whatever the outcome, and its error never changes the
// verdict.
func (e *Engine) Run(ctx context.Context, c Case, env *Env) Verdict {
	start := time.Now()
	log := e.logger().With("test", c.Name)

	v := e.attempt(ctx, c, env, log)

	if err := callHook(c.Teardown, env); err != nil {
		v.TeardownErr = err.Error()
		log.Warn("teardown failed", "error", err)
	}
	if err := os.RemoveAll(env.Scratch); err != nil {
		log.Warn("failed to remove scratch directory", "path", env.Scratch, "error", err)
	}

	v.Duration = time.Since(start)
	log.Debug("test finished", "status", v.Status, "duration", v.Duration)
	return v
}

func (e *Engine) attempt(ctx context.Context, c Case, env *Env, log *slog.Logger) Verdict {
	v := Verdict{Name: c.Name}

	if err := os.MkdirAll(env.Scratch, 0o755); err != nil {
		return failed(v, ReasonSetup, LabelError, fmt.Sprintf("create scratch directory: %v", err))
	}
	if e.Isolate {
		env.WorkDir = env.Scratch
	}

	if err := callHook(c.Setup, env); err != nil {
		log.Debug("setup failed", "error", err)
		return failed(v, ReasonSetup, LabelError, err.Error())
	}

	if err := ctx.Err(); err != nil {
		return failed(v, ReasonCancelled, LabelError, err.Error())
	}

	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = env.Expand(a)
	}

	log.Debug("invoking tool", "tool", e.Tool, "args", args, "dir", env.WorkDir)
	out, err := e.invoker().Invoke(ctx, process.Invocation{
		Path:    e.Tool,
		Args:    args,
		Dir:     env.WorkDir,
		Env:     e.Env,
		Timeout: e.Timeout,
	})
	if err != nil {
		return failed(v, ReasonStart, LabelError, err.Error())
	}

	if !out.Exited() {
		if !out.TimedOut && ctx.Err() != nil {
			return failed(v, ReasonCancelled, LabelError, ctx.Err().Error())
		}
		log.Debug("tool did not exit", "timed_out", out.TimedOut)
		v.Status = StatusTimeout
		v.Reason = ReasonTimeout
		if len(out.Stderr) > 0 {
			v.Label = LabelStderr
			v.Detail = Excerpt(out.Stderr)
		}
		return v
	}

	code := *out.ExitCode
	v.ExitCode = &code

	if code != c.Expect {
		label, stream := LabelStderr, out.Stderr
		if code == 0 {
			label, stream = LabelStdout, out.Stdout
		}
		return failed(v, fmt.Sprintf("Returned exit code %d, expected %d", code, c.Expect), label, Excerpt(stream))
	}

	if err := callHook(c.Postcondition, env); err != nil {
		return failed(v, ReasonPostcondition, LabelError, err.Error())
	}

	v.Status = StatusPass
	return v
}

func failed(v Verdict, reason, label, detail string) Verdict {
	v.Status = StatusFail
	v.Reason = reason
	v.Label = label
	v.Detail = detail
	return v
}
