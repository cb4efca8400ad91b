package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"extci/internal/shell"
	"extci/internal/toolchain"
	"extci/internal/workflow"

	"github.com/urfave/cli/v3"
)

func CacheKeyCommand() *cli.Command {
	return &cli.Command{
		Name:   "cache-key",
		Usage:  "print the dependency cache key for a checkout",
		Action: CacheKey,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Aliases: []string{"C"}, Usage: "checkout to inspect", Value: "."},
			&cli.StringFlag{Name: "workflow", Usage: "workflow file relative to --dir", Value: ".extci.yml"},
			&cli.StringFlag{Name: "identity", Usage: "toolchain identity; probed from the host when empty"},
		},
	}
}

func CacheKey(ctx context.Context, cmd *cli.Command) error {
	dir, err := filepath.Abs(cmd.String("dir"))
	if err != nil {
		return err
	}

	wf, err := workflow.Load(dir, cmd.String("workflow"))
	if err != nil {
		return err
	}

	identity := cmd.String("identity")
	if identity == "" {
		id, err := toolchain.NewProvisioner(shell.Local{}).Provision(ctx, dir, toolchain.Pins{Ruby: wf.Ruby, Rust: wf.Rust})
		if err != nil {
			return err
		}
		identity = id.String()
	}

	key, err := wf.CacheKey(dir, identity)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.Root().Writer, key)
	return nil
}
