package suites

import (
	"context"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/linkcheck/internal/harness"
	"github.com/roach88/linkcheck/internal/testutil"
)

func TestMain(m *testing.M) {
	testutil.MaybeRunFakeTool()
	os.Exit(m.Run())
}

func TestLinkgen_Declaration(t *testing.T) {
	suite := Linkgen()

	assert.Equal(t, LinkgenName, suite.Name)
	assert.Equal(t, []string{
		"No Args",
		"Link a File",
		"Print version",
		"Print help",
		"List Files",
		"List Files (alias)",
		"Nonsense Path",
		"Refuse overwrite",
		"Force overwrite",
		"Open directory",
	}, suite.Names())

	assert.Equal(t, 1, suite.Cases[0].Expect)
	assert.Empty(t, suite.Cases[0].Args)
	assert.Equal(t, 2, suite.Cases[6].Expect)
	assert.NotNil(t, suite.Cases[9].Precondition)
}

func TestBuiltin(t *testing.T) {
	s, ok := Builtin("linkgen")
	require.True(t, ok)
	assert.Len(t, s.Cases, 10)

	_, ok = Builtin("nope")
	assert.False(t, ok)
}

func TestLinkgen_AgainstFakeTool(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("expected counts assume the open case is skipped")
	}
	tool, env, err := testutil.FakeToolPath()
	require.NoError(t, err)
	target := t.TempDir()

	engine := &harness.Engine{
		Tool:        tool,
		Target:      target,
		ScratchRoot: t.TempDir(),
		Timeout:     10 * time.Second,
		Env:         append(env, testutil.FakeHomeEnv+"="+target),
		Isolate:     true,
		NewID:       testutil.NewSequentialIDs("case").Generate,
	}

	sum := harness.NewRunner(engine, nil, nil).Run(context.Background(), Linkgen())

	for _, v := range sum.Verdicts {
		if v.Status == harness.StatusSkip {
			continue
		}
		assert.Equal(t, harness.StatusPass, v.Status, "%s: %s %s", v.Name, v.Reason, v.Detail)
	}
	assert.Equal(t, 10, sum.Total)
	assert.Equal(t, 9, sum.Run)
	assert.Equal(t, 0, sum.Failed)
	assert.Equal(t, harness.StatusSkip, sum.Verdicts[9].Status)

	entries, err := os.ReadDir(target)
	require.NoError(t, err)
	assert.Empty(t, entries, "every case cleans up the target directory")
}
