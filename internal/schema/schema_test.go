package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSuite = `
name: linkgen
description: Primitive I/O tests
settings:
  tool: ./target/debug/linkgen
  timeout: 100ms
  isolate: true
  env: [ "RUST_BACKTRACE=0" ]
tests:
  - name: No Args
    expect: 1
  - name: Refuse overwrite
    precondition:
      - platform: [ linux, darwin ]
    setup:
      - copy: { from: tests.js, to: "${TARGET}/tests.js" }
    args: [ tests.js ]
    expect: 2
    postcondition:
      - exists: "${TARGET}/tests.js"
    teardown:
      - remove: "${TARGET}/tests.js"
`

func mustLoad(t *testing.T) *Schema {
	t.Helper()
	s, err := Load()
	require.NoError(t, err)
	return s
}

func messages(errs []ValidationError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "\n")
}

func TestValidate_Valid(t *testing.T) {
	errs := mustLoad(t).Validate("suite.yaml", []byte(validSuite))
	assert.Empty(t, errs, messages(errs))
}

func TestValidate_PackageHelper(t *testing.T) {
	errs, err := Validate("suite.yaml", []byte(validSuite))
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestValidate_InvalidYAML(t *testing.T) {
	errs := mustLoad(t).Validate("suite.yaml", []byte("name: [unclosed\n"))
	require.NotEmpty(t, errs)
	assert.Equal(t, ErrInvalidYAML, errs[0].Code)
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "expect out of range",
			doc:  "name: s\ntests:\n  - name: a\n    expect: 300\n",
			want: "300",
		},
		{
			name: "unknown top-level field",
			doc:  "name: s\nsuite_name: x\ntests:\n  - name: a\n",
			want: "not allowed",
		},
		{
			name: "args must be strings",
			doc:  "name: s\ntests:\n  - name: a\n    args: [ { x: 1 } ]\n",
			want: "tests",
		},
		{
			name: "empty tests",
			doc:  "name: s\ntests: []\n",
			want: "tests",
		},
		{
			name: "bad timeout",
			doc:  "name: s\nsettings:\n  timeout: soon\ntests:\n  - name: a\n",
			want: "timeout",
		},
	}

	s := mustLoad(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := s.Validate("suite.yaml", []byte(tt.doc))
			require.NotEmpty(t, errs)
			assert.Equal(t, ErrSchemaFailure, errs[0].Code)
			assert.Contains(t, messages(errs), tt.want)
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	assert.Equal(t, "[E202] line 4: tests.0.expect: out of bound",
		ValidationError{Field: "tests.0.expect", Message: "out of bound", Code: ErrSchemaFailure, Line: 4}.Error())
	assert.Equal(t, "[E201] yaml: bad",
		ValidationError{Field: "yaml", Message: "bad", Code: ErrInvalidYAML}.Error())
}
