package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// VerdictSnapshot is the stable, timing-free view of a verdict used for
// golden comparison.
type VerdictSnapshot struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
	Label    string `json:"label,omitempty"`
	Detail   string `json:"detail,omitempty"`
	ExitCode *int   `json:"exit_code,omitempty"`
}

// SuiteSnapshot captures a whole run for golden comparison.
type SuiteSnapshot struct {
	Suite    string            `json:"suite"`
	Total    int               `json:"total"`
	Run      int               `json:"run"`
	Failed   int               `json:"failed"`
	Verdicts []VerdictSnapshot `json:"verdicts"`
}

// Snapshot converts a summary into indented JSON. Durations and teardown
// errors are left out so the output is identical across runs.
func Snapshot(sum Summary) ([]byte, error) {
	snap := SuiteSnapshot{
		Suite:    sum.Suite,
		Total:    sum.Total,
		Run:      sum.Run,
		Failed:   sum.Failed,
		Verdicts: make([]VerdictSnapshot, len(sum.Verdicts)),
	}
	for i, v := range sum.Verdicts {
		snap.Verdicts[i] = VerdictSnapshot{
			Name:     v.Name,
			Status:   v.Status.String(),
			Reason:   v.Reason,
			Label:    v.Label,
			Detail:   v.Detail,
			ExitCode: v.ExitCode,
		}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunWithGolden runs suite with engine and compares the snapshot against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, name string, engine *Engine, suite Suite) Summary {
	t.Helper()

	sum := NewRunner(engine, nil, nil).Run(context.Background(), suite)
	AssertGolden(t, name, sum)
	return sum
}

// AssertGolden compares an existing summary against a golden file without
// re-running the suite.
func AssertGolden(t *testing.T, name string, sum Summary) {
	t.Helper()

	data, err := Snapshot(sum)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
