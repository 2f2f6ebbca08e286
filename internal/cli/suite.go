package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/roach88/linkcheck/internal/harness"
	"github.com/roach88/linkcheck/internal/suites"
)

// loadedSuite is a suite plus the settings block of its file, if any.
type loadedSuite struct {
	Suite       harness.Suite
	Description string
	Settings    harness.Settings
	Path        string // empty for the built-in suite
}

// loadSuite loads the suite file at path, or the built-in linkgen suite
// when path is empty.
func loadSuite(path string) (*loadedSuite, error) {
	if path == "" {
		return &loadedSuite{
			Suite:       suites.Linkgen(),
			Description: "built-in primitive I/O tests",
		}, nil
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("suite file not found: %s", path))
	}
	sf, err := harness.LoadSuiteFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load suite", err)
	}
	return &loadedSuite{
		Suite:       sf.Suite(),
		Description: sf.Description,
		Settings:    sf.Settings,
		Path:        path,
	}, nil
}

func optionalArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
