// Package process runs the tool under test as a subprocess.
//
// The only contract is: run with args, enforce a timeout, capture the exit
// status and both output streams. An absent exit status (nil ExitCode) means
// the process did not exit on its own, either because the timeout fired or
// because it was killed by a signal.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a single invocation. The tool under test is local and
// expected to answer quickly.
const DefaultTimeout = 100 * time.Millisecond

// waitDelay is how long Wait keeps draining output after the process was
// killed, so a grandchild holding the pipes cannot hang the harness.
const waitDelay = 50 * time.Millisecond

// Invocation describes one run of the tool.
type Invocation struct {
	Path    string
	Args    []string
	Dir     string        // working directory; empty inherits the harness's
	Env     []string      // appended to os.Environ()
	Timeout time.Duration // zero uses DefaultTimeout
}

// Outcome is what was observed at the process boundary.
type Outcome struct {
	ExitCode *int
	Stdout   []byte
	Stderr   []byte
	TimedOut bool // killed because the timeout expired
	Duration time.Duration
}

// Exited reports whether the process terminated with an exit status.
func (o Outcome) Exited() bool {
	return o.ExitCode != nil
}

// Invoker runs the tool under test.
type Invoker interface {
	Invoke(ctx context.Context, inv Invocation) (Outcome, error)
}

// Exec is the os/exec backed Invoker.
type Exec struct{}

// Invoke runs inv and waits for it to finish or time out. The returned error
// is non-nil only when the process could not be started; a non-zero exit,
// a timeout or a signal are all reported through Outcome.
func (Exec) Invoke(ctx context.Context, inv Invocation) (Outcome, error) {
	timeout := inv.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, inv.Path, inv.Args...)
	cmd.Dir = inv.Dir
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	out := Outcome{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}
	return classify(out, inv.Path, err, cmd.ProcessState, ctx.Err())
}

// classify fills in how the process ended. An exit status wins over an
// expired deadline: a tool that exited just inside the bound is not a
// timeout. Without an exit status the process was killed, by the deadline
// (TimedOut), by a signal, or because the caller cancelled.
func classify(out Outcome, path string, err error, state *os.ProcessState, ctxErr error) (Outcome, error) {
	if state != nil && state.Exited() {
		// Also covers exec.ErrWaitDelay: the process exited but something
		// it spawned kept the pipes open.
		code := state.ExitCode()
		out.ExitCode = &code
		return out, nil
	}
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		out.TimedOut = true
		return out, nil
	}
	if state != nil || ctxErr != nil {
		return out, nil
	}
	return out, fmt.Errorf("start %s: %w", path, err)
}
