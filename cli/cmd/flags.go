// Package cmd provides CLI commands for the autotiny binary.
package cmd

import (
	"errors"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/autotiny/cli/config"
)

// Exit codes shared by all commands. The run command additionally maps
// its stop reason through runtime.ExitCodeFor.
const (
	exitSuccess     = 0
	exitFailure     = 1
	exitConfigError = 2
)

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// ConfigFlag points at the YAML config file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config file",
		Value:   config.DefaultPath,
	}
)

// ReadOnlyFlags returns the shared flags for all read-only commands.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
	}
}

// loadConfig loads and validates the file named by --config.
// Any failure is a cli.Exit with exitConfigError.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, cli.Exit(err.Error()+" (run `autotiny init` to create one)", exitConfigError)
		}
		return nil, cli.Exit(err.Error(), exitConfigError)
	}
	return cfg, nil
}

// resolveString returns the CLI flag value if explicitly set,
// otherwise the config value if non-empty, otherwise the flag default.
func resolveString(c *cli.Context, flag, configVal string) string {
	if c.IsSet(flag) || configVal == "" {
		return c.String(flag)
	}
	return configVal
}

// isStderrTTY returns true if stderr is a TTY.
func isStderrTTY() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
