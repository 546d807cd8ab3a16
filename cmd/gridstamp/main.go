// Command gridstamp builds grid worlds, stamps falloff kernels onto their
// layers and runs scenario files against them.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/gridstamp/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
