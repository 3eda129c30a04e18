// Package main provides the autotiny CLI entrypoint.
//
// Only `run` modifies files; every other command is read-only.
//
// Usage:
//
//	autotiny <command> [options]
//
// Exit codes for `run`:
//   - 0: worklist drained
//   - 1: run halted on a fatal error
//   - 2: invalid or missing configuration
//   - 3: every credential exhausted with files left
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/autotiny/cli/cmd"
	"github.com/justapithecus/autotiny/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	// Keys usually live in .env next to the config; a missing file is fine.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: .env: %v\n", err)
	}

	app := &cli.App{
		Name:           "autotiny",
		Usage:          "Compress images once through the Tinify API",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.InitCommand(),
			cmd.RunCommand(),
			cmd.ScanCommand(),
			cmd.HistoryCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already exited for cli.ExitCoder errors.
		os.Exit(1)
	}
}

// exitErrHandler prints the error message, if any, and exits with the
// code carried by cli.Exit (1 for anything else).
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	os.Exit(reportExit(os.Stderr, err))
}

// reportExit writes err's message to w and returns the process exit code.
// cli.Exit("", N) prints nothing.
func reportExit(w io.Writer, err error) int {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(w, msg)
		}
		return code
	}

	fmt.Fprintf(w, "Error: %v\n", err)
	return 1
}
