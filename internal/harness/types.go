package harness

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Status is the terminal classification of a single test.
type Status int

const (
	StatusSkip Status = iota
	StatusPass
	StatusFail
	StatusTimeout
)

// String returns the status name used in logs and stored history.
func (s Status) String() string {
	switch s {
	case StatusSkip:
		return "SKIP"
	case StatusPass:
		return "PASS"
	case StatusFail:
		return "FAIL"
	case StatusTimeout:
		return "TIMEOUT"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "SKIP":
		return StatusSkip, nil
	case "PASS":
		return StatusPass, nil
	case "FAIL":
		return StatusFail, nil
	case "TIMEOUT":
		return StatusTimeout, nil
	}
	return 0, fmt.Errorf("unknown status %q", s)
}

// Hook is a user-supplied check or action attached to a Case.
//
// A nil return is success. A non-nil error, or a panic, is failure; the
// message is surfaced verbatim in the report.
type Hook func(env *Env) error

// Case describes one scenario: lifecycle hooks, tool arguments and the
// expected exit status. Every hook is optional.
type Case struct {
	Name string

	// Precondition failing means the environment cannot run this test.
	// The test is skipped and nothing else runs.
	Precondition Hook

	// Setup runs before the tool is invoked. Failure fails the test.
	Setup Hook

	// Args are passed verbatim to the tool except for the ${SCRATCH},
	// ${TARGET} and ${TOOL_DIR} placeholders.
	Args []string

	// Expect is the expected exit status.
	Expect int

	// Postcondition runs only if the exit status matched Expect.
	Postcondition Hook

	// Teardown runs after every attempted test, whatever its verdict.
	Teardown Hook
}

// Env is the per-test environment handed to every hook.
type Env struct {
	// Scratch is a directory unique to this test. It is created just before
	// setup and removed after teardown.
	Scratch string

	// Target is the directory the tool under test creates links in.
	Target string

	// Tool is the path of the tool under test.
	Tool string

	// WorkDir is the working directory of the tool process. It is Scratch
	// once an isolated test is attempted and empty otherwise, so
	// preconditions resolve relative paths against the harness's own
	// working directory.
	WorkDir string
}

// Expand substitutes ${SCRATCH}, ${TARGET} and ${TOOL_DIR} in s. Every
// other '$' is left as written.
func (e *Env) Expand(s string) string {
	return strings.NewReplacer(
		"${SCRATCH}", e.Scratch,
		"${TARGET}", e.Target,
		"${TOOL_DIR}", filepath.Dir(e.Tool),
	).Replace(s)
}

// Path expands p and resolves it against WorkDir when it is relative, so
// hooks and the tool agree on what a relative path means.
func (e *Env) Path(p string) string {
	p = e.Expand(p)
	if filepath.IsAbs(p) || e.WorkDir == "" {
		return p
	}
	return filepath.Join(e.WorkDir, p)
}

// Verdict is the outcome of one test.
type Verdict struct {
	Name   string
	Status Status

	// Reason is a one-line explanation for SKIP, FAIL and TIMEOUT.
	Reason string

	// Label names where Detail came from: "StdOut", "StdErr" or "Error".
	Label  string
	Detail string

	// ExitCode is the observed exit status, nil if the tool did not exit
	// on its own or never ran.
	ExitCode *int

	Duration time.Duration

	// TeardownErr records a failing teardown. It never changes Status.
	TeardownErr string
}

// Passed reports whether the verdict is PASS.
func (v Verdict) Passed() bool {
	return v.Status == StatusPass
}

// Attempted reports whether the test got past its precondition.
func (v Verdict) Attempted() bool {
	return v.Status != StatusSkip
}

// Tag is the report tag. TIMEOUT is reported under FAIL with its own reason.
func (v Verdict) Tag() string {
	switch v.Status {
	case StatusPass:
		return "PASS"
	case StatusSkip:
		return "SKIP"
	default:
		return "FAIL"
	}
}

// Summary aggregates the verdicts of a suite run.
type Summary struct {
	Suite    string
	Total    int // cases defined
	Run      int // cases attempted
	Failed   int // attempted cases that did not pass
	Verdicts []Verdict
}

// Passed reports whether no attempted test failed.
func (s Summary) Passed() bool {
	return s.Failed == 0
}

// add folds v into the summary and returns the result.
func (s Summary) add(v Verdict) Summary {
	if v.Attempted() {
		s.Run++
		if !v.Passed() {
			s.Failed++
		}
	}
	s.Verdicts = append(s.Verdicts, v)
	return s
}

// Reporter observes a suite run.
type Reporter interface {
	// Verdict is called once per case, in suite order.
	Verdict(v Verdict)
	// Summary is called once after the last case.
	Summary(s Summary)
}

// Discard is a Reporter that ignores everything.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Verdict(Verdict) {}
func (discard) Summary(Summary) {}

// Multi returns a Reporter that forwards to each of rs in order. Nil
// reporters are dropped.
func Multi(rs ...Reporter) Reporter {
	var out multi
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

type multi []Reporter

func (m multi) Verdict(v Verdict) {
	for _, r := range m {
		r.Verdict(v)
	}
}

func (m multi) Summary(s Summary) {
	for _, r := range m {
		r.Summary(s)
	}
}
