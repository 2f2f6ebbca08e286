package harness

import (
	"fmt"
	"path/filepath"

	"golang.org/x/text/unicode/norm"
)

// Suite is an ordered, normalised sequence of cases. Cases run strictly in
// this order.
type Suite struct {
	Name  string
	Cases []Case
}

// NewSuite builds a suite from declared cases.
//
// Each case is copied: its name is NFC-normalised and Args gets a fresh,
// non-nil backing array. The declarations passed in are never modified, so
// the same definitions can back several runs.
func NewSuite(name string, cases ...Case) Suite {
	s := Suite{
		Name:  norm.NFC.String(name),
		Cases: make([]Case, len(cases)),
	}
	for i, c := range cases {
		s.Cases[i] = normalize(c)
	}
	return s
}

func normalize(c Case) Case {
	c.Name = norm.NFC.String(c.Name)
	args := make([]string, len(c.Args))
	copy(args, c.Args)
	c.Args = args
	return c
}

// Names returns the case names in order.
func (s Suite) Names() []string {
	names := make([]string, len(s.Cases))
	for i, c := range s.Cases {
		names[i] = c.Name
	}
	return names
}

// Filter returns the cases whose name matches the glob pattern. An empty
// pattern returns s unchanged.
func (s Suite) Filter(pattern string) (Suite, error) {
	if pattern == "" {
		return s, nil
	}
	out := Suite{Name: s.Name}
	for _, c := range s.Cases {
		matched, err := filepath.Match(pattern, c.Name)
		if err != nil {
			return Suite{}, fmt.Errorf("invalid filter pattern: %w", err)
		}
		if matched {
			out.Cases = append(out.Cases, c)
		}
	}
	return out, nil
}
