package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/linkcheck/internal/suites"
)

func TestList_Builtin(t *testing.T) {
	out, _, err := executeCommand(t, "list")
	require.NoError(t, err)

	assert.Contains(t, out, "linkgen (10 tests): built-in primitive I/O tests")
	assert.Contains(t, out, "  1. No Args\n")
	assert.Contains(t, out, " 10. Open directory")
}

func TestList_Filter(t *testing.T) {
	out, _, err := executeCommand(t, "list", "--filter", "List*")
	require.NoError(t, err)

	assert.Contains(t, out, "linkgen (2 tests)")
	assert.Contains(t, out, "  1. List Files\n")
	assert.Contains(t, out, "  2. List Files (alias)")
}

func TestList_JSON(t *testing.T) {
	out, _, err := executeCommand(t, "list", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   ListResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, suites.LinkgenName, resp.Data.Suite)
	assert.Equal(t, suites.Linkgen().Names(), resp.Data.Tests)
}

func TestList_EmptyFilterResultIsArray(t *testing.T) {
	out, _, err := executeCommand(t, "list", "--filter", "nothing matches", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"tests": []`)
}

func TestList_SuiteFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "suite.yaml", validSuite)

	out, _, err := executeCommand(t, "list", path)
	require.NoError(t, err)
	assert.Equal(t, "linkgen (2 tests): Primitive I/O tests\n  1. No Args\n  2. Print version\n", out)
}

func TestList_MissingSuite(t *testing.T) {
	_, _, err := executeCommand(t, "list", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
