// Package report renders verdicts and suite summaries as human-readable
// lines and maps a summary to a process exit code.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/roach88/linkcheck/internal/harness"
)

// maxExitCode is the largest status a process can report.
const maxExitCode = 255

// Options controls rendering.
type Options struct {
	// Verbose adds durations and teardown warnings.
	Verbose bool

	// NoColor disables styling even when the writer is a terminal.
	NoColor bool
}

// Text is a harness.Reporter writing one line per verdict.
//
//	[PASS] Print version
//	[SKIP] Open directory: requires platform windows|darwin, running on linux
//	[FAIL] No Args: Returned exit code 1, expected 0
//		StdErr: error: The following required arguments were not provided:\n    <PATH_TO_EXECUTABLE>
//	1 tests failed (9/10 run)
type Text struct {
	w    io.Writer
	opts Options

	pass lipgloss.Style
	fail lipgloss.Style
	skip lipgloss.Style
	dim  lipgloss.Style
}

var _ harness.Reporter = (*Text)(nil)

// New returns a Text reporter writing to w. Colour is only emitted when w
// is a terminal that supports it.
func New(w io.Writer, opts Options) *Text {
	r := lipgloss.NewRenderer(w)
	if opts.NoColor {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Text{
		w:    w,
		opts: opts,
		pass: r.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		fail: r.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		skip: r.NewStyle().Foreground(lipgloss.Color("3")),
		dim:  r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (t *Text) tag(v harness.Verdict) string {
	tag := "[" + v.Tag() + "]"
	switch v.Status {
	case harness.StatusPass:
		return t.pass.Render(tag)
	case harness.StatusSkip:
		return t.skip.Render(tag)
	default:
		return t.fail.Render(tag)
	}
}

// Verdict writes the verdict line and, for failures with a detail, an
// indented diagnostic line.
func (t *Text) Verdict(v harness.Verdict) {
	line := t.tag(v) + " " + v.Name
	if t.opts.Verbose && v.Attempted() {
		line += t.dim.Render(fmt.Sprintf(" (%s)", v.Duration.Round(time.Millisecond)))
	}
	if v.Reason != "" {
		line += ": " + v.Reason
	}
	fmt.Fprintln(t.w, line)

	if !v.Passed() && v.Attempted() && v.Detail != "" {
		fmt.Fprintf(t.w, "\t%s: %s\n", v.Label, v.Detail)
	}
	if t.opts.Verbose && v.TeardownErr != "" {
		fmt.Fprintf(t.w, "\t%s\n", t.dim.Render("Teardown: "+v.TeardownErr))
	}
}

// Summary writes the final line.
func (t *Text) Summary(s harness.Summary) {
	fmt.Fprintln(t.w, SummaryLine(s))
}

// SummaryLine returns the summary text without styling.
func SummaryLine(s harness.Summary) string {
	if s.Passed() {
		return fmt.Sprintf("All tests passed (%d/%d run)", s.Run, s.Total)
	}
	return fmt.Sprintf("%d tests failed (%d/%d run)", s.Failed, s.Run, s.Total)
}

// ExitCode is the process status for a summary: the failure count,
// clamped to 255.
func ExitCode(s harness.Summary) int {
	if s.Failed > maxExitCode {
		return maxExitCode
	}
	return s.Failed
}
