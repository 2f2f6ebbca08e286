// Package schema checks suite files against an embedded CUE schema before
// they are decoded, so errors carry field paths and line numbers.
package schema

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed suite.cue
var suiteSchema string

// Validation error codes.
const (
	ErrInvalidYAML   = "E201" // file is not valid YAML
	ErrSchemaFailure = "E202" // file does not satisfy #Suite
)

// ValidationError is a single schema violation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Schema is the compiled suite schema.
type Schema struct {
	ctx   *cue.Context
	suite cue.Value
}

// Load compiles the embedded schema.
func Load() (*Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(suiteSchema, cue.Filename("suite.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile suite schema: %w", err)
	}
	suite := v.LookupPath(cue.ParsePath("#Suite"))
	if !suite.Exists() {
		return nil, fmt.Errorf("suite schema has no #Suite definition")
	}
	return &Schema{ctx: ctx, suite: suite}, nil
}

// Validate checks the YAML document in data. filename is only used in
// positions. It returns every violation found; nil means valid.
func (s *Schema) Validate(filename string, data []byte) []ValidationError {
	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return []ValidationError{{Field: "yaml", Message: err.Error(), Code: ErrInvalidYAML}}
	}
	doc := s.ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return convert(err, filename, ErrInvalidYAML)
	}

	if err := s.suite.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return convert(err, filename, ErrSchemaFailure)
	}
	return nil
}

// Validate checks data against the embedded schema.
func Validate(filename string, data []byte) ([]ValidationError, error) {
	s, err := Load()
	if err != nil {
		return nil, err
	}
	return s.Validate(filename, data), nil
}

// convert flattens a CUE error list. The reported line is the first
// position inside filename, so schema-side positions are ignored.
func convert(err error, filename, code string) []ValidationError {
	var out []ValidationError
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		ve := ValidationError{
			Field:   strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
			Code:    code,
		}
		for _, pos := range cueerrors.Positions(e) {
			if pos.IsValid() && pos.Filename() == filename {
				ve.Line = pos.Line()
				break
			}
		}
		out = append(out, ve)
	}
	if len(out) == 0 {
		out = append(out, ValidationError{Field: "suite", Message: err.Error(), Code: code})
	}
	return out
}
