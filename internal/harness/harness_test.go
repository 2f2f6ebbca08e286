package harness

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/linkcheck/internal/probe"
	"github.com/roach88/linkcheck/internal/process"
	"github.com/roach88/linkcheck/internal/testutil"
)

func TestMain(m *testing.M) {
	testutil.MaybeRunFakeTool()
	os.Exit(m.Run())
}

// stubInvoker returns a fixed outcome and records what it was asked to run.
type stubInvoker struct {
	out   process.Outcome
	err   error
	calls []process.Invocation
}

func (s *stubInvoker) Invoke(_ context.Context, inv process.Invocation) (process.Outcome, error) {
	s.calls = append(s.calls, inv)
	return s.out, s.err
}

func exited(code int, stdout, stderr string) process.Outcome {
	return process.Outcome{ExitCode: &code, Stdout: []byte(stdout), Stderr: []byte(stderr)}
}

// recorder builds hooks that log their invocation order.
type recorder struct {
	calls []string
}

func (r *recorder) hook(name string, err error) Hook {
	return func(*Env) error {
		r.calls = append(r.calls, name)
		return err
	}
}

func stubEngine(t *testing.T, inv process.Invoker) *Engine {
	t.Helper()
	return &Engine{
		Tool:        "/opt/linkgen/linkgen",
		ScratchRoot: t.TempDir(),
		Invoker:     inv,
		NewID:       testutil.NewSequentialIDs("case").Generate,
	}
}

func runOne(t *testing.T, e *Engine, c Case) Verdict {
	t.Helper()
	sum := NewRunner(e, nil, nil).Run(context.Background(), NewSuite("one", c))
	require.Len(t, sum.Verdicts, 1)
	return sum.Verdicts[0]
}

func TestEngine_Pass(t *testing.T) {
	inv := &stubInvoker{out: exited(0, "ok\n", "")}
	rec := &recorder{}

	v := runOne(t, stubEngine(t, inv), Case{
		Name:          "pass",
		Precondition:  rec.hook("pre", nil),
		Setup:         rec.hook("setup", nil),
		Args:          []string{"--version"},
		Postcondition: rec.hook("post", nil),
		Teardown:      rec.hook("teardown", nil),
	})

	assert.Equal(t, StatusPass, v.Status)
	assert.True(t, v.Passed())
	require.NotNil(t, v.ExitCode)
	assert.Equal(t, 0, *v.ExitCode)
	assert.Equal(t, []string{"pre", "setup", "post", "teardown"}, rec.calls)
	require.Len(t, inv.calls, 1)
	assert.Equal(t, []string{"--version"}, inv.calls[0].Args)
	assert.Zero(t, inv.calls[0].Timeout, "zero leaves the default to the invoker")
}

func TestEngine_PreconditionSkipsEverything(t *testing.T) {
	inv := &stubInvoker{out: exited(0, "", "")}
	rec := &recorder{}

	v := runOne(t, stubEngine(t, inv), Case{
		Name:          "skipped",
		Precondition:  rec.hook("pre", errors.New("requires platform windows, running on linux")),
		Setup:         rec.hook("setup", nil),
		Postcondition: rec.hook("post", nil),
		Teardown:      rec.hook("teardown", nil),
	})

	assert.Equal(t, StatusSkip, v.Status)
	assert.Equal(t, "SKIP", v.Tag())
	assert.Equal(t, "requires platform windows, running on linux", v.Reason)
	assert.False(t, v.Attempted())
	assert.Equal(t, []string{"pre"}, rec.calls)
	assert.Empty(t, inv.calls)
}

func TestEngine_ExitMismatchUsesStderr(t *testing.T) {
	inv := &stubInvoker{out: exited(1, "", "error: missing\n\targ\nmore\n")}
	rec := &recorder{}

	v := runOne(t, stubEngine(t, inv), Case{
		Name:          "mismatch",
		Postcondition: rec.hook("post", nil),
		Teardown:      rec.hook("teardown", nil),
	})

	assert.Equal(t, StatusFail, v.Status)
	assert.Equal(t, "Returned exit code 1, expected 0", v.Reason)
	assert.Equal(t, LabelStderr, v.Label)
	assert.Equal(t, `error: missing\n\targ`, v.Detail)
	assert.Equal(t, []string{"teardown"}, rec.calls, "postcondition must not run on mismatch")
}

func TestEngine_ExitMismatchOnZeroUsesStdout(t *testing.T) {
	inv := &stubInvoker{out: exited(0, "linked\nsecond\nthird\n", "ignored\n")}

	v := runOne(t, stubEngine(t, inv), Case{Name: "zero", Expect: 2})

	assert.Equal(t, StatusFail, v.Status)
	assert.Equal(t, "Returned exit code 0, expected 2", v.Reason)
	assert.Equal(t, LabelStdout, v.Label)
	assert.Equal(t, `linked\nsecond`, v.Detail)
}

func TestEngine_PostconditionFailure(t *testing.T) {
	inv := &stubInvoker{out: exited(2, "", "")}
	rec := &recorder{}

	v := runOne(t, stubEngine(t, inv), Case{
		Name:          "post",
		Expect:        2,
		Postcondition: rec.hook("post", errors.New("/opt/linkgen/tests.js does not exist")),
		Teardown:      rec.hook("teardown", nil),
	})

	assert.Equal(t, StatusFail, v.Status)
	assert.Equal(t, ReasonPostcondition, v.Reason)
	assert.Equal(t, LabelError, v.Label)
	assert.Equal(t, "/opt/linkgen/tests.js does not exist", v.Detail)
	assert.Equal(t, []string{"post", "teardown"}, rec.calls)
}

func TestEngine_Timeout(t *testing.T) {
	inv := &stubInvoker{out: process.Outcome{TimedOut: true, Stderr: []byte("partial\n")}}
	rec := &recorder{}

	v := runOne(t, stubEngine(t, inv), Case{
		Name:          "slow",
		Postcondition: rec.hook("post", nil),
		Teardown:      rec.hook("teardown", nil),
	})

	assert.Equal(t, StatusTimeout, v.Status)
	assert.Equal(t, "FAIL", v.Tag())
	assert.Equal(t, ReasonTimeout, v.Reason)
	assert.Equal(t, "partial", v.Detail)
	assert.Nil(t, v.ExitCode)
	assert.NotEqual(t, StatusFail, v.Status, "timeout is distinct from exit mismatch")
	assert.Equal(t, []string{"teardown"}, rec.calls)
}

func TestEngine_SignalledProcessIsTimeout(t *testing.T) {
	inv := &stubInvoker{out: process.Outcome{}}

	v := runOne(t, stubEngine(t, inv), Case{Name: "killed"})

	assert.Equal(t, StatusTimeout, v.Status)
	assert.Empty(t, v.Label)
}

func TestEngine_SetupFailure(t *testing.T) {
	inv := &stubInvoker{out: exited(0, "", "")}
	rec := &recorder{}

	v := runOne(t, stubEngine(t, inv), Case{
		Name:          "setup",
		Setup:         rec.hook("setup", errors.New("copy tests.js: no such file")),
		Postcondition: rec.hook("post", nil),
		Teardown:      rec.hook("teardown", nil),
	})

	assert.Equal(t, StatusFail, v.Status)
	assert.Equal(t, ReasonSetup, v.Reason)
	assert.Equal(t, "copy tests.js: no such file", v.Detail)
	assert.Empty(t, inv.calls, "tool must not run after failed setup")
	assert.Equal(t, []string{"setup", "teardown"}, rec.calls)
}

func TestEngine_HookPanics(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string", "plain message", "plain message"},
		{"error", errors.New("error object"), "error object"},
		{"other", 42, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &stubInvoker{out: exited(0, "", "")}
			v := runOne(t, stubEngine(t, inv), Case{
				Name:          "panics",
				Postcondition: func(*Env) error { panic(tt.value) },
			})

			assert.Equal(t, StatusFail, v.Status)
			assert.Equal(t, ReasonPostcondition, v.Reason)
			assert.Equal(t, tt.want, v.Detail)
		})
	}
}

func TestEngine_PanickingPreconditionSkips(t *testing.T) {
	inv := &stubInvoker{out: exited(0, "", "")}

	v := runOne(t, stubEngine(t, inv), Case{
		Name:         "pre panic",
		Precondition: func(*Env) error { panic("not on this box") },
	})

	assert.Equal(t, StatusSkip, v.Status)
	assert.Equal(t, "not on this box", v.Reason)
	assert.Empty(t, inv.calls)
}

func TestEngine_TeardownErrorKeepsVerdict(t *testing.T) {
	tests := []struct {
		name   string
		out    process.Outcome
		expect int
		want   Status
	}{
		{"pass", exited(0, "", ""), 0, StatusPass},
		{"fail", exited(1, "", ""), 0, StatusFail},
		{"timeout", process.Outcome{TimedOut: true}, 0, StatusTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count := 0
			v := runOne(t, stubEngine(t, &stubInvoker{out: tt.out}), Case{
				Name:   tt.name,
				Expect: tt.expect,
				Teardown: func(*Env) error {
					count++
					return errors.New("remove: permission denied")
				},
			})

			assert.Equal(t, tt.want, v.Status)
			assert.Equal(t, 1, count, "teardown runs exactly once")
			assert.Equal(t, "remove: permission denied", v.TeardownErr)
		})
	}
}

func TestEngine_StartFailure(t *testing.T) {
	inv := &stubInvoker{err: errors.New("start /nope: no such file or directory")}
	rec := &recorder{}

	v := runOne(t, stubEngine(t, inv), Case{Name: "missing", Teardown: rec.hook("teardown", nil)})

	assert.Equal(t, StatusFail, v.Status)
	assert.Equal(t, ReasonStart, v.Reason)
	assert.Contains(t, v.Detail, "no such file")
	assert.Equal(t, []string{"teardown"}, rec.calls)
}

func TestEngine_CancelledContext(t *testing.T) {
	inv := &stubInvoker{out: exited(0, "", "")}
	e := stubEngine(t, inv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum := NewRunner(e, nil, nil).Run(ctx, NewSuite("cancelled", Case{Name: "a"}))
	require.Len(t, sum.Verdicts, 1)
	assert.Equal(t, StatusSkip, sum.Verdicts[0].Status)
	assert.Equal(t, ReasonCancelled, sum.Verdicts[0].Reason)
	assert.Empty(t, inv.calls)
}

// cancellingInvoker cancels the run while the tool is running, as SIGINT
// does, and reports a process that never exited.
type cancellingInvoker struct {
	cancel context.CancelFunc
	calls  int
}

func (c *cancellingInvoker) Invoke(context.Context, process.Invocation) (process.Outcome, error) {
	c.calls++
	c.cancel()
	return process.Outcome{}, nil
}

func TestRunner_InterruptStopsRemainingCases(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	inv := &cancellingInvoker{cancel: cancel}
	rec := &recorder{}

	sum := NewRunner(stubEngine(t, inv), nil, nil).Run(ctx, NewSuite("interrupted",
		Case{Name: "running", Teardown: rec.hook("teardown running", nil)},
		Case{
			Name:         "later",
			Precondition: rec.hook("pre later", nil),
			Setup:        rec.hook("setup later", nil),
			Teardown:     rec.hook("teardown later", nil),
		},
	))

	require.Len(t, sum.Verdicts, 2)
	assert.Equal(t, StatusFail, sum.Verdicts[0].Status)
	assert.Equal(t, ReasonCancelled, sum.Verdicts[0].Reason, "a killed tool is not reported as a timeout")
	assert.Equal(t, StatusSkip, sum.Verdicts[1].Status)
	assert.Equal(t, ReasonCancelled, sum.Verdicts[1].Reason)
	assert.Equal(t, 1, inv.calls)
	assert.Equal(t, []string{"teardown running"}, rec.calls)
	assert.Equal(t, 1, sum.Run)
	assert.Equal(t, 1, sum.Failed)
}

func TestEngine_ScratchLifecycle(t *testing.T) {
	inv := &stubInvoker{out: exited(0, "", "")}
	e := stubEngine(t, inv)
	e.Isolate = true

	var seen *Env
	v := runOne(t, e, Case{
		Name: "scratch",
		Setup: func(env *Env) error {
			seen = env
			return os.WriteFile(env.Path("file.txt"), []byte("x"), 0o644)
		},
		Args: []string{"${SCRATCH}/file.txt"},
	})

	require.Equal(t, StatusPass, v.Status)
	require.NotNil(t, seen)
	assert.Contains(t, seen.Scratch, "linkcheck-case-0001")
	assert.Equal(t, seen.Scratch, seen.WorkDir)
	assert.Equal(t, "/opt/linkgen", seen.Target)

	require.Len(t, inv.calls, 1)
	assert.Equal(t, seen.Scratch, inv.calls[0].Dir)
	assert.Equal(t, []string{seen.Scratch + "/file.txt"}, inv.calls[0].Args)

	_, err := os.Stat(seen.Scratch)
	assert.True(t, os.IsNotExist(err), "scratch directory should be removed")
}

func TestEngine_ArgsVerbatimExceptPlaceholders(t *testing.T) {
	inv := &stubInvoker{out: exited(0, "", "")}
	e := stubEngine(t, inv)
	e.Target = "/opt/links"

	runOne(t, e, Case{
		Name: "dollars",
		Args: []string{"price$5.txt", "$HOME", "a$$b", "${HOME}", "${TARGET}/x"},
	})

	require.Len(t, inv.calls, 1)
	assert.Equal(t, []string{"price$5.txt", "$HOME", "a$$b", "${HOME}", "/opt/links/x"}, inv.calls[0].Args)
}

func TestEngine_IsolatedPreconditionUsesHarnessWorkDir(t *testing.T) {
	cwd := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(cwd, "fixture.txt"), []byte("x"), 0o644))
	t.Chdir(cwd)

	inv := &stubInvoker{out: exited(0, "", "")}
	e := stubEngine(t, inv)
	e.Isolate = true

	var preWorkDir string
	v := runOne(t, e, Case{
		Name: "relative precondition",
		Precondition: Steps(
			func(env *Env) error { preWorkDir = env.WorkDir; return nil },
			Check(probe.Exists, "fixture.txt"),
		),
	})

	assert.Equal(t, StatusPass, v.Status, "%+v", v)
	assert.Empty(t, preWorkDir)
	require.Len(t, inv.calls, 1)
	assert.Contains(t, inv.calls[0].Dir, "linkcheck-case-0001", "the tool still runs in the scratch directory")
}

func TestEngine_NoIsolationInheritsWorkDir(t *testing.T) {
	inv := &stubInvoker{out: exited(0, "", "")}
	e := stubEngine(t, inv)
	e.Isolate = false

	runOne(t, e, Case{Name: "shared"})

	require.Len(t, inv.calls, 1)
	assert.Empty(t, inv.calls[0].Dir)
}

func TestEngine_PassesTimeoutAndEnv(t *testing.T) {
	inv := &stubInvoker{out: exited(0, "", "")}
	e := stubEngine(t, inv)
	e.Timeout = 250 * time.Millisecond
	e.Env = []string{"RUST_BACKTRACE=0"}

	runOne(t, e, Case{Name: "settings"})

	require.Len(t, inv.calls, 1)
	assert.Equal(t, 250*time.Millisecond, inv.calls[0].Timeout)
	assert.Equal(t, []string{"RUST_BACKTRACE=0"}, inv.calls[0].Env)
	assert.Equal(t, "/opt/linkgen/linkgen", inv.calls[0].Path)
}
