// Package harness is a declarative end-to-end test engine for a command-line
// tool.
//
// A Case declares hooks, arguments and an expected exit status. The Runner
// walks a Suite in order and, for each case:
//
//  1. evaluates Precondition; failure yields SKIP and nothing else runs
//  2. creates a fresh scratch directory and runs Setup; failure yields FAIL
//  3. invokes the tool with Args under a timeout
//  4. no exit status yields TIMEOUT; a status other than Expect yields FAIL
//     with the first two lines of stdout (status 0) or stderr (otherwise)
//  5. otherwise runs Postcondition; failure yields FAIL, success PASS
//  6. runs Teardown and removes the scratch directory, whatever happened
//
// Hooks signal failure by returning an error or by panicking with a string
// or error value. Either way the message becomes part of the verdict; no
// hook failure ever escapes the engine.
//
// # Suite Files
//
// Suites can be declared in YAML (see SuiteFile). Hooks are lists of steps:
//
//	tests:
//	  - name: Nonsense Path
//	    args: [ ThisFileDoesNotExist ]
//	    expect: 2
//	  - name: Open directory
//	    precondition:
//	      - platform: [ windows, darwin ]
//	    args: [ open ]
//
// Paths in steps and args may use ${SCRATCH}, ${TARGET} and ${TOOL_DIR}.
// Relative paths resolve against the tool's working directory.
//
// # Isolation
//
// Every attempted case gets its own scratch directory named
// linkcheck-<uuid>. With Engine.Isolate the tool runs inside it, so cases do
// not share filesystem state unless they write to the target directory.
package harness
