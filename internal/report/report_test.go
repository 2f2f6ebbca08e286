package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/linkcheck/internal/harness"
)

func code(c int) *int { return &c }

func sampleSummary() harness.Summary {
	verdicts := []harness.Verdict{
		{Name: "No Args", Status: harness.StatusPass, ExitCode: code(1), Duration: 12 * time.Millisecond},
		{
			Name:     "Print help",
			Status:   harness.StatusFail,
			Reason:   "Returned exit code 0, expected 1",
			Label:    harness.LabelStdout,
			Detail:   `linkgen 0.2.0\nCreates soft links to executables.`,
			ExitCode: code(0),
			Duration: 3 * time.Millisecond,
		},
		{
			Name:     "Hang",
			Status:   harness.StatusTimeout,
			Reason:   harness.ReasonTimeout,
			Duration: 100 * time.Millisecond,
		},
		{Name: "Open directory", Status: harness.StatusSkip, Reason: "requires platform windows|darwin, running on linux"},
		{
			Name:        "Link a File",
			Status:      harness.StatusPass,
			ExitCode:    code(0),
			Duration:    7 * time.Millisecond,
			TeardownErr: "remove /tmp/target/tool.sh: permission denied",
		},
	}
	return harness.Summary{Suite: "sample", Total: 5, Run: 4, Failed: 2, Verdicts: verdicts}
}

func render(opts Options, sum harness.Summary) []byte {
	var buf bytes.Buffer
	r := New(&buf, opts)
	for _, v := range sum.Verdicts {
		r.Verdict(v)
	}
	r.Summary(sum)
	return buf.Bytes()
}

func TestText_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	t.Run("plain", func(t *testing.T) {
		g.Assert(t, "plain", render(Options{NoColor: true}, sampleSummary()))
	})
	t.Run("verbose", func(t *testing.T) {
		g.Assert(t, "verbose", render(Options{NoColor: true, Verbose: true}, sampleSummary()))
	})
}

func TestText_NonTerminalHasNoEscapes(t *testing.T) {
	out := render(Options{}, sampleSummary())
	assert.NotContains(t, string(out), "\x1b[")
}

func TestText_PassLineHasNoDetail(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, Options{}).Verdict(harness.Verdict{
		Name:   "Print version",
		Status: harness.StatusPass,
		Label:  harness.LabelStdout,
		Detail: "ignored",
	})
	assert.Equal(t, "[PASS] Print version\n", buf.String())
}

func TestSummaryLine(t *testing.T) {
	assert.Equal(t, "All tests passed (9/10 run)",
		SummaryLine(harness.Summary{Total: 10, Run: 9}))
	assert.Equal(t, "3 tests failed (9/10 run)",
		SummaryLine(harness.Summary{Total: 10, Run: 9, Failed: 3}))
	assert.Equal(t, "All tests passed (0/0 run)", SummaryLine(harness.Summary{}))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		failed int
		want   int
	}{
		{0, 0},
		{1, 1},
		{255, 255},
		{300, 255},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExitCode(harness.Summary{Failed: tt.failed}), "failed=%d", tt.failed)
	}
}
