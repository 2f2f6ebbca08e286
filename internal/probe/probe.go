// Package probe provides stateless filesystem and platform checks used by
// test case hooks.
//
// Every predicate returns nil when it holds and an error describing the
// mismatch otherwise. The error text is shown verbatim in reports, so it
// names the path or value that was checked.
package probe

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"slices"
	"strings"
)

// Exists reports whether path exists. Symlinks are not followed, so a
// dangling link still counts as existing.
func Exists(path string) error {
	if _, err := os.Lstat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s does not exist", path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return nil
}

// Absent is the inverse of Exists.
func Absent(path string) error {
	_, err := os.Lstat(path)
	if err == nil {
		return fmt.Errorf("%s exists", path)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("stat %s: %w", path, err)
}

// IsSymlink reports whether path is a symbolic link.
func IsSymlink(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s does not exist", path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Mode()&fs.ModeSymlink == 0 {
		return fmt.Errorf("%s is not a symlink (mode %s)", path, info.Mode().Type())
	}
	return nil
}

// IsDir reports whether path is a directory.
func IsDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s does not exist", path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}

// IsFile reports whether path is a regular file. Symlinks are not
// followed, so a link to a file fails.
func IsFile(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s does not exist", path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file (mode %s)", path, info.Mode().Type())
	}
	return nil
}

// Platform reports whether the running OS is one of goos.
func Platform(goos ...string) error {
	return platform(runtime.GOOS, goos)
}

func platform(current string, allowed []string) error {
	if slices.Contains(allowed, current) {
		return nil
	}
	return fmt.Errorf("requires platform %s, running on %s", strings.Join(allowed, "|"), current)
}

// EnvSet reports whether the environment variable name is set and non-empty.
func EnvSet(name string) error {
	if os.Getenv(name) == "" {
		return fmt.Errorf("environment variable %s is not set", name)
	}
	return nil
}
