package testutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FakeToolEnv switches a test binary into fake linkgen mode.
//
// Packages that need a tool under test re-execute their own test binary with
// this variable set. TestMain calls MaybeRunFakeTool first thing:
//
//	func TestMain(m *testing.M) {
//	    testutil.MaybeRunFakeTool()
//	    os.Exit(m.Run())
//	}
const FakeToolEnv = "LINKCHECK_FAKE_TOOL"

// FakeHomeEnv overrides the directory the fake tool links into. Without it
// the fake, like the real tool, uses the directory of its own executable.
const FakeHomeEnv = "LINKGEN_HOME"

// FakeVersion is printed for --version.
const FakeVersion = "linkgen 0.2.0"

// MaybeRunFakeTool runs the fake tool and exits if FakeToolEnv is set.
func MaybeRunFakeTool() {
	if os.Getenv(FakeToolEnv) != "1" {
		return
	}
	os.Exit(RunFakeTool(os.Args[1:], os.Stdout, os.Stderr))
}

// FakeToolPath returns the executable to use as the tool under test, along
// with the environment it needs.
func FakeToolPath() (string, []string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", nil, err
	}
	return exe, []string{FakeToolEnv + "=1"}, nil
}

// RunFakeTool behaves like linkgen, the file-linking utility the harness was
// written for, and returns its exit status:
//
//	0  success (--help, --version, ls/dir, link created)
//	1  usage error (no arguments, unknown flag)
//	2  I/O error (path not found, name already linked without --force)
//	3  other errors (open on an unsupported platform)
//
// Two hidden sub-commands exist for harness tests: "__sleep <duration>"
// sleeps and exits 0, "__exit <code>" writes three lines to each stream and
// exits with code.
func RunFakeTool(args []string, stdout, stderr io.Writer) int {
	var (
		force      bool
		verbose    bool
		positional []string
	)
	for _, arg := range args {
		switch arg {
		case "-h", "--help":
			fmt.Fprintln(stdout, "linkgen 0.2.0")
			fmt.Fprintln(stdout, "Creates soft links to executables.")
			fmt.Fprintln(stdout)
			fmt.Fprintln(stdout, "USAGE:")
			fmt.Fprintln(stdout, "    linkgen [FLAGS] <PATH_TO_EXECUTABLE>")
			fmt.Fprintln(stdout, "    linkgen <SUBCOMMAND>")
			return 0
		case "-V", "--version":
			fmt.Fprintln(stdout, FakeVersion)
			return 0
		case "-f", "--force":
			force = true
		case "-v", "--verbose":
			verbose = true
		default:
			if strings.HasPrefix(arg, "-") {
				fmt.Fprintf(stderr, "error: Found argument '%s' which wasn't expected\n", arg)
				return 1
			}
			positional = append(positional, arg)
		}
	}

	if len(positional) == 0 {
		fmt.Fprintln(stderr, "error: The following required arguments were not provided:")
		fmt.Fprintln(stderr, "    <PATH_TO_EXECUTABLE>")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "USAGE:")
		fmt.Fprintln(stderr, "    linkgen [FLAGS] <PATH_TO_EXECUTABLE>")
		return 1
	}

	home, err := fakeHome()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	switch positional[0] {
	case "ls", "dir":
		return fakeList(home, stdout, stderr)
	case "open", "start", "explorer", "nautilus":
		fmt.Fprintln(stderr, "Error: open command not implemented for your operating system")
		return 3
	case "__sleep":
		d := time.Second
		if len(positional) > 1 {
			if parsed, err := time.ParseDuration(positional[1]); err == nil {
				d = parsed
			}
		}
		time.Sleep(d)
		return 0
	case "__exit":
		code := 0
		if len(positional) > 1 {
			code, _ = strconv.Atoi(positional[1])
		}
		fmt.Fprint(stdout, "out line 1\nout line 2\nout line 3\n")
		fmt.Fprint(stderr, "err line 1\n\terr line 2\nerr line 3\n")
		return code
	}

	return fakeLink(home, positional[0], force, verbose, stdout, stderr)
}

func fakeHome() (string, error) {
	if home := os.Getenv(FakeHomeEnv); home != "" {
		return home, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

func fakeList(home string, stdout, stderr io.Writer) int {
	entries, err := os.ReadDir(home)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, e := range entries {
		kind := "file"
		switch {
		case e.Type()&fs.ModeSymlink != 0:
			kind = "symlink"
		case e.IsDir():
			kind = "directory"
		}
		fmt.Fprintf(stdout, "%-20.20s %10.10s\n", e.Name(), kind)
	}
	return 0
}

func fakeLink(home, path string, force, verbose bool, stdout, stderr io.Writer) int {
	src, err := filepath.Abs(path)
	if err == nil {
		_, err = os.Stat(src)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s: No such file or directory (os error 2)\n", path)
		return 2
	}

	dst := filepath.Join(home, filepath.Base(src))
	if verbose {
		fmt.Fprintf(stdout, "Info: Linking %s\n", src)
	}

	if _, err := os.Lstat(dst); err == nil {
		if !force {
			fmt.Fprintf(stderr, "Error: %s: File exists (os error 17)\n", dst)
			return 2
		}
		if err := os.Remove(dst); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if err := os.Symlink(src, dst); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	fmt.Fprintf(stdout, "Added symlink to %q\n", filepath.Base(src))
	return 0
}
