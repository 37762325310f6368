package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/check-spelling/mozsearch/internal/debug"
)

func main() {
	app := newApp()
	err := app.Run(os.Args)
	_ = debug.CloseDebugLog()
	if err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintf(os.Stderr, "searchfox-tool: %s\n", msg)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status: input errors 2,
// sticky errors 3, unsupported operations 4, anything else 1.
func exitCode(err error) int {
	if coder, ok := err.(cli.ExitCoder); ok {
		return coder.ExitCode()
	}
	return 1
}
