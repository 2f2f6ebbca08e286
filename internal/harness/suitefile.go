package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/linkcheck/internal/probe"
)

// SuiteFile is the YAML form of a suite.
//
//	name: linkgen
//	settings:
//	  tool: ./target/debug/linkgen
//	  timeout: 100ms
//	tests:
//	  - name: Refuse overwrite
//	    setup:
//	      - copy: { from: fixtures/tool.sh, to: "${SCRATCH}/tool.sh" }
//	      - copy: { from: fixtures/tool.sh, to: "${TARGET}/tool.sh" }
//	    args: [ tool.sh ]
//	    expect: 2
//	    postcondition:
//	      - exists: "${TARGET}/tool.sh"
//	    teardown:
//	      - remove: "${TARGET}/tool.sh"
type SuiteFile struct {
	// Name identifies the suite in reports and history.
	Name string `yaml:"name"`

	// Description is free text shown by `linkcheck list`.
	Description string `yaml:"description,omitempty"`

	// Settings override configuration defaults; CLI flags override these.
	Settings Settings `yaml:"settings,omitempty"`

	// Tests are the cases, in execution order.
	Tests []CaseSpec `yaml:"tests"`

	// dir is the directory of the file, used to resolve copy sources.
	dir string
}

// Settings are suite-level configuration values.
type Settings struct {
	Tool    string   `yaml:"tool,omitempty"`
	Timeout string   `yaml:"timeout,omitempty"`
	Target  string   `yaml:"target,omitempty"`
	Isolate *bool    `yaml:"isolate,omitempty"`
	Env     []string `yaml:"env,omitempty"`
}

// CaseSpec is the YAML form of a Case. Each hook is a list of steps run in
// order.
type CaseSpec struct {
	Name          string   `yaml:"name"`
	Precondition  []Step   `yaml:"precondition,omitempty"`
	Setup         []Step   `yaml:"setup,omitempty"`
	Args          []string `yaml:"args,omitempty"`
	Expect        int      `yaml:"expect,omitempty"`
	Postcondition []Step   `yaml:"postcondition,omitempty"`
	Teardown      []Step   `yaml:"teardown,omitempty"`
}

// Step is a single check or action. Exactly one field must be set.
//
// Checks (precondition, postcondition): platform, exists, absent, symlink,
// dir, file, env. Actions (setup, teardown): copy, touch, mkdir, remove, link.
type Step struct {
	Platform []string `yaml:"platform,omitempty"`
	Exists   string   `yaml:"exists,omitempty"`
	Absent   string   `yaml:"absent,omitempty"`
	Symlink  string   `yaml:"symlink,omitempty"`
	Dir      string   `yaml:"dir,omitempty"`
	File     string   `yaml:"file,omitempty"`
	Env      string   `yaml:"env,omitempty"`

	Copy   *CopyStep `yaml:"copy,omitempty"`
	Touch  string    `yaml:"touch,omitempty"`
	Mkdir  string    `yaml:"mkdir,omitempty"`
	Remove string    `yaml:"remove,omitempty"`
	Link   *LinkStep `yaml:"link,omitempty"`
}

// CopyStep copies From (relative to the suite file) to To.
type CopyStep struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// LinkStep creates a symlink at Link pointing to Target.
type LinkStep struct {
	Target string `yaml:"target"`
	Link   string `yaml:"link"`
}

// Step kinds.
const (
	StepPlatform = "platform"
	StepExists   = "exists"
	StepAbsent   = "absent"
	StepSymlink  = "symlink"
	StepDir      = "dir"
	StepFile     = "file"
	StepEnv      = "env"
	StepCopy     = "copy"
	StepTouch    = "touch"
	StepMkdir    = "mkdir"
	StepRemove   = "remove"
	StepLink     = "link"
)

var checkKinds = map[string]bool{
	StepPlatform: true, StepExists: true, StepAbsent: true,
	StepSymlink: true, StepDir: true, StepFile: true, StepEnv: true,
}

// kinds returns the names of every field set on the step.
func (s Step) kinds() []string {
	var k []string
	if len(s.Platform) > 0 {
		k = append(k, StepPlatform)
	}
	if s.Exists != "" {
		k = append(k, StepExists)
	}
	if s.Absent != "" {
		k = append(k, StepAbsent)
	}
	if s.Symlink != "" {
		k = append(k, StepSymlink)
	}
	if s.Dir != "" {
		k = append(k, StepDir)
	}
	if s.File != "" {
		k = append(k, StepFile)
	}
	if s.Env != "" {
		k = append(k, StepEnv)
	}
	if s.Copy != nil {
		k = append(k, StepCopy)
	}
	if s.Touch != "" {
		k = append(k, StepTouch)
	}
	if s.Mkdir != "" {
		k = append(k, StepMkdir)
	}
	if s.Remove != "" {
		k = append(k, StepRemove)
	}
	if s.Link != nil {
		k = append(k, StepLink)
	}
	return k
}

// Kind returns the single kind of the step, or "" if the step is malformed.
func (s Step) Kind() string {
	if k := s.kinds(); len(k) == 1 {
		return k[0]
	}
	return ""
}

// LoadSuiteFile reads and parses a suite YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadSuiteFile(path string) (*SuiteFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve suite directory: %w", err)
	}
	return ParseSuiteFile(data, dir)
}

// ParseSuiteFile parses suite YAML. dir is used to resolve relative copy
// sources.
func ParseSuiteFile(data []byte, dir string) (*SuiteFile, error) {
	var sf SuiteFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&sf); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	sf.dir = dir

	if err := validateSuiteFile(&sf); err != nil {
		return nil, fmt.Errorf("invalid suite: %w", err)
	}
	return &sf, nil
}

// validateSuiteFile checks that required fields are present and valid.
func validateSuiteFile(sf *SuiteFile) error {
	if sf.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(sf.Tests) == 0 {
		return fmt.Errorf("tests list is required and must be non-empty")
	}
	for i, tc := range sf.Tests {
		if tc.Name == "" {
			return fmt.Errorf("tests[%d]: name is required", i)
		}
		if tc.Expect < 0 || tc.Expect > 255 {
			return fmt.Errorf("tests[%d]: expect must be between 0 and 255", i)
		}
		hooks := []struct {
			field  string
			steps  []Step
			checks bool
		}{
			{"precondition", tc.Precondition, true},
			{"setup", tc.Setup, false},
			{"postcondition", tc.Postcondition, true},
			{"teardown", tc.Teardown, false},
		}
		for _, h := range hooks {
			for j, step := range h.steps {
				if err := validateStep(step, h.checks); err != nil {
					return fmt.Errorf("tests[%d].%s[%d]: %w", i, h.field, j, err)
				}
			}
		}
	}
	return nil
}

func validateStep(s Step, checks bool) error {
	kinds := s.kinds()
	switch len(kinds) {
	case 0:
		return fmt.Errorf("step is empty")
	case 1:
	default:
		return fmt.Errorf("step sets more than one of %s", strings.Join(kinds, ", "))
	}
	kind := kinds[0]
	if checks && !checkKinds[kind] {
		return fmt.Errorf("%s is an action, only checks are allowed here", kind)
	}
	if !checks && checkKinds[kind] {
		return fmt.Errorf("%s is a check, only actions are allowed here", kind)
	}
	if s.Copy != nil && (s.Copy.From == "" || s.Copy.To == "") {
		return fmt.Errorf("copy needs both from and to")
	}
	if s.Link != nil && (s.Link.Target == "" || s.Link.Link == "") {
		return fmt.Errorf("link needs both target and link")
	}
	return nil
}

// Suite compiles the file into a runnable Suite.
func (sf *SuiteFile) Suite() Suite {
	cases := make([]Case, len(sf.Tests))
	for i, tc := range sf.Tests {
		cases[i] = Case{
			Name:          tc.Name,
			Precondition:  sf.hook(tc.Precondition),
			Setup:         sf.hook(tc.Setup),
			Args:          tc.Args,
			Expect:        tc.Expect,
			Postcondition: sf.hook(tc.Postcondition),
			Teardown:      sf.hook(tc.Teardown),
		}
	}
	return NewSuite(sf.Name, cases...)
}

func (sf *SuiteFile) hook(steps []Step) Hook {
	hooks := make([]Hook, len(steps))
	for i, s := range steps {
		hooks[i] = sf.stepHook(s)
	}
	return Steps(hooks...)
}

func (sf *SuiteFile) stepHook(s Step) Hook {
	switch s.Kind() {
	case StepPlatform:
		return func(*Env) error { return probe.Platform(s.Platform...) }
	case StepExists:
		return Check(probe.Exists, s.Exists)
	case StepAbsent:
		return Check(probe.Absent, s.Absent)
	case StepSymlink:
		return Check(probe.IsSymlink, s.Symlink)
	case StepDir:
		return Check(probe.IsDir, s.Dir)
	case StepFile:
		return Check(probe.IsFile, s.File)
	case StepEnv:
		return func(*Env) error { return probe.EnvSet(s.Env) }
	case StepCopy:
		return func(env *Env) error {
			from := env.Expand(s.Copy.From)
			if !filepath.IsAbs(from) {
				from = filepath.Join(sf.dir, from)
			}
			return probe.Copy(from, env.Path(s.Copy.To))
		}
	case StepTouch:
		return Check(probe.Touch, s.Touch)
	case StepMkdir:
		return Check(probe.Mkdir, s.Mkdir)
	case StepRemove:
		return Check(probe.Remove, s.Remove)
	case StepLink:
		return func(env *Env) error {
			return probe.Symlink(env.Expand(s.Link.Target), env.Path(s.Link.Link))
		}
	}
	return Fail(fmt.Sprintf("malformed step %v", s.kinds()))
}
