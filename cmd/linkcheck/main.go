// Command linkcheck runs declarative end-to-end tests against linkgen.
package main

import (
	"context"
	"os"

	"github.com/roach88/linkcheck/internal/cli"
)

func main() {
	err := cli.NewRootCommand().ExecuteContext(context.Background())
	cli.PrintError(os.Stderr, err)
	os.Exit(cli.GetExitCode(err))
}
