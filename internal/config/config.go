// Package config layers linkcheck settings: built-in defaults, then a .env
// file, then LINKCHECK_* environment variables, then the suite file's
// settings block. Command-line flags are applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/roach88/linkcheck/internal/harness"
	"github.com/roach88/linkcheck/internal/process"
)

// Environment variables read by Load.
const (
	EnvTool    = "LINKCHECK_TOOL"
	EnvTimeout = "LINKCHECK_TIMEOUT"
	EnvTarget  = "LINKCHECK_TARGET"
	EnvScratch = "LINKCHECK_SCRATCH"
	EnvHistory = "LINKCHECK_HISTORY"
	EnvIsolate = "LINKCHECK_ISOLATE"
	EnvNoColor = "NO_COLOR"
)

// DefaultTool is where a debug build of linkgen lands.
const DefaultTool = "./target/debug/linkgen"

// DefaultDotEnv is the .env file read from the working directory.
const DefaultDotEnv = ".env"

// Config is the resolved configuration for one run.
type Config struct {
	Tool        string
	Target      string // empty means the directory of Tool
	ScratchRoot string // empty means os.TempDir()
	Timeout     time.Duration
	Isolate     bool
	Env         []string // extra KEY=VALUE pairs for the tool process
	History     string   // SQLite path; empty disables history
	NoColor     bool
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Tool:    DefaultTool,
		Timeout: process.DefaultTimeout,
		Isolate: true,
	}
}

// LookupFunc reports the value of an environment variable.
type LookupFunc func(key string) (string, bool)

// Load returns the defaults overlaid with dotenv (if it exists) and the
// process environment. Variables already set in the process win over the
// file, matching godotenv.Load.
func Load(dotenv string) (Config, error) {
	return LoadFrom(dotenv, os.LookupEnv)
}

// LoadFrom is Load with an explicit environment lookup.
func LoadFrom(dotenv string, lookup LookupFunc) (Config, error) {
	file := map[string]string{}
	if dotenv != "" {
		m, err := godotenv.Read(dotenv)
		switch {
		case err == nil:
			file = m
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("failed to read %s: %w", dotenv, err)
		}
	}

	get := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := file[key]
		return v, ok
	}

	cfg := Default()
	if v, ok := get(EnvTool); ok && v != "" {
		cfg.Tool = v
	}
	if v, ok := get(EnvTarget); ok {
		cfg.Target = v
	}
	if v, ok := get(EnvScratch); ok {
		cfg.ScratchRoot = v
	}
	if v, ok := get(EnvHistory); ok {
		cfg.History = v
	}
	if v, ok := get(EnvTimeout); ok && v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		cfg.Timeout = d
	}
	if v, ok := get(EnvIsolate); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvIsolate, err)
		}
		cfg.Isolate = b
	}
	if v, ok := get(EnvNoColor); ok && v != "" {
		cfg.NoColor = true
	}
	return cfg, nil
}

// ApplySettings overlays a suite file's settings block.
func (c *Config) ApplySettings(s harness.Settings) error {
	if s.Tool != "" {
		c.Tool = s.Tool
	}
	if s.Target != "" {
		c.Target = s.Target
	}
	if s.Timeout != "" {
		d, err := parseTimeout(s.Timeout)
		if err != nil {
			return fmt.Errorf("settings.timeout: %w", err)
		}
		c.Timeout = d
	}
	if s.Isolate != nil {
		c.Isolate = *s.Isolate
	}
	for _, kv := range s.Env {
		if !strings.Contains(kv, "=") {
			return fmt.Errorf("settings.env: %q is not KEY=VALUE", kv)
		}
	}
	c.Env = append(c.Env, s.Env...)
	return nil
}

// ResolveTool makes Tool absolute so it still works when the tool runs in
// a scratch directory. A bare name is looked up in PATH.
func (c *Config) ResolveTool() error {
	if !strings.ContainsRune(c.Tool, filepath.Separator) && !strings.Contains(c.Tool, "/") {
		p, err := exec.LookPath(c.Tool)
		if err != nil {
			return fmt.Errorf("tool %q not found: %w", c.Tool, err)
		}
		c.Tool = p
	}
	abs, err := filepath.Abs(c.Tool)
	if err != nil {
		return fmt.Errorf("failed to resolve tool path: %w", err)
	}
	c.Tool = abs
	if c.Target != "" {
		if c.Target, err = filepath.Abs(c.Target); err != nil {
			return fmt.Errorf("failed to resolve target directory: %w", err)
		}
	}
	return nil
}

// Engine builds a harness engine from the configuration.
func (c Config) Engine(logger *slog.Logger) *harness.Engine {
	return &harness.Engine{
		Tool:        c.Tool,
		Target:      c.Target,
		ScratchRoot: c.ScratchRoot,
		Timeout:     c.Timeout,
		Env:         c.Env,
		Isolate:     c.Isolate,
		Logger:      logger,
	}
}

func parseTimeout(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", d)
	}
	return d, nil
}
