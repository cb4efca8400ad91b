// Package commands implements the extci command line.
package commands

import "github.com/urfave/cli/v3"

func Root() *cli.Command {
	return &cli.Command{
		Name:  "extci",
		Usage: "push-triggered CI for Ruby native extensions",
		Commands: []*cli.Command{
			RunCommand(),
			CheckCommand(),
			CacheKeyCommand(),
			VersionCommand(),
		},
	}
}
