package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/autotiny/cli/config"
)

// InitCommand returns the init command, which writes a starter config.
// An existing file is left untouched.
func InitCommand() *cli.Command {
	return &cli.Command{
		Name:    "init",
		Aliases: []string{"i"},
		Usage:   "Create a starter config file",
		Flags:   []cli.Flag{ConfigFlag},
		Action: func(c *cli.Context) error {
			path := c.String("config")
			created, err := config.WriteDefault(path)
			if err != nil {
				return cli.Exit(err.Error(), exitFailure)
			}
			if created {
				fmt.Fprintf(c.App.Writer, "created %s\n", path)
			} else {
				fmt.Fprintf(c.App.Writer, "%s already exists, left unchanged\n", path)
			}
			return nil
		},
	}
}
