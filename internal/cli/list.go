package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ListResult is the JSON payload of the list command.
type ListResult struct {
	Suite       string   `json:"suite"`
	Description string   `json:"description,omitempty"`
	Tests       []string `json:"tests"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "list [suite.yaml]",
		Short: "List the tests of a suite in execution order",
		Long: `List the tests of a suite in execution order.

Without a suite file the built-in linkgen suite is listed.

Examples:
  linkcheck list
  linkcheck list suites/linkgen.yaml --filter "List*"`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, optionalArg(args), filter, cmd)
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "only list tests whose name matches this glob")

	return cmd
}

func runList(opts *RootOptions, path, filter string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, err := loadSuite(path)
	if err != nil {
		return formatter.Fail(GetExitCode(err), ErrCodeNotFound, "failed to load suite", err)
	}
	suite, err := loaded.Suite.Filter(filter)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadPattern, "invalid --filter", err)
	}

	names := suite.Names()
	if names == nil {
		names = []string{}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d tests)", suite.Name, len(names))
	if loaded.Description != "" {
		fmt.Fprintf(&b, ": %s", loaded.Description)
	}
	for i, name := range names {
		fmt.Fprintf(&b, "\n%3d. %s", i+1, name)
	}

	return formatter.Success(ListResult{
		Suite:       suite.Name,
		Description: loaded.Description,
		Tests:       names,
	}, b.String())
}
