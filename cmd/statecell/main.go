// Command statecell runs scenarios, dispatches journaled actions and
// verifies replay determinism.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/statecell/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
