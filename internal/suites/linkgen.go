// Package suites holds the built-in suites shipped with linkcheck.
package suites

import (
	"os"

	"github.com/roach88/linkcheck/internal/harness"
	"github.com/roach88/linkcheck/internal/probe"
)

// LinkgenName is the name of the built-in linkgen suite.
const LinkgenName = "linkgen"

// fixture is the file the link cases ask linkgen to link.
const fixture = "tests.js"

// Linkgen returns the primitive I/O suite for linkgen, the tool that
// creates soft links to executables in its own directory.
//
// Link cases run in the scratch directory and create fixture there; the
// link lands in ${TARGET}. Each case removes what it put in ${TARGET}.
func Linkgen() harness.Suite {
	linked := "${TARGET}/" + fixture

	return harness.NewSuite(LinkgenName,
		harness.Case{
			Name:   "No Args",
			Expect: 1,
		},
		harness.Case{
			Name:          "Link a File",
			Setup:         writeFixture(fixture),
			Args:          []string{fixture},
			Postcondition: harness.Check(probe.IsSymlink, linked),
			Teardown:      harness.Check(probe.Remove, linked),
		},
		harness.Case{
			Name: "Print version",
			Args: []string{"--version"},
		},
		harness.Case{
			Name: "Print help",
			Args: []string{"--help"},
		},
		harness.Case{
			Name: "List Files",
			Args: []string{"ls"},
		},
		harness.Case{
			Name: "List Files (alias)",
			Args: []string{"dir"},
		},
		harness.Case{
			Name:   "Nonsense Path",
			Args:   []string{"ThisFileDoesNotExist"},
			Expect: 2,
		},
		harness.Case{
			Name: "Refuse overwrite",
			Setup: harness.Steps(
				writeFixture(fixture),
				func(env *harness.Env) error {
					return probe.Copy(env.Path(fixture), env.Path(linked))
				},
			),
			Args:          []string{fixture},
			Expect:        2,
			Postcondition: harness.Check(probe.IsFile, linked),
			Teardown:      harness.Check(probe.Remove, linked),
		},
		harness.Case{
			Name: "Force overwrite",
			Setup: harness.Steps(
				writeFixture(fixture),
				func(env *harness.Env) error {
					return probe.Copy(env.Path(fixture), env.Path(linked))
				},
			),
			Args:          []string{"--force", fixture},
			Postcondition: harness.Check(probe.IsSymlink, linked),
			Teardown:      harness.Check(probe.Remove, linked),
		},
		harness.Case{
			Name:         "Open directory",
			Precondition: func(*harness.Env) error { return probe.Platform("windows", "darwin") },
			Args:         []string{"open"},
		},
	)
}

// writeFixture creates name in the test's working directory.
func writeFixture(name string) harness.Hook {
	return func(env *harness.Env) error {
		return os.WriteFile(env.Path(name), []byte("// linkcheck fixture\n"), 0o644)
	}
}

// Builtin returns the built-in suite called name.
func Builtin(name string) (harness.Suite, bool) {
	switch name {
	case LinkgenName:
		return Linkgen(), true
	}
	return harness.Suite{}, false
}
