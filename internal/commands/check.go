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

func CheckCommand() *cli.Command {
	return &cli.Command{
		Name:   "check",
		Usage:  "validate the workflow file and the host toolchain",
		Action: Check,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Aliases: []string{"C"}, Usage: "checkout to inspect", Value: "."},
			&cli.StringFlag{Name: "workflow", Usage: "workflow file relative to --dir", Value: ".extci.yml"},
		},
	}
}

func Check(ctx context.Context, cmd *cli.Command) error {
	dir, err := filepath.Abs(cmd.String("dir"))
	if err != nil {
		return err
	}

	wf, err := workflow.Load(dir, cmd.String("workflow"))
	if err != nil {
		return cli.Exit(err.Error(), ExitProvisioning)
	}

	out := cmd.Root().Writer
	fmt.Fprintf(out, "workflow %s\n", wf.Name)
	fmt.Fprintf(out, "  ruby %s, rust %s, cache %t\n", wf.Ruby, wf.Rust, wf.CacheEnabled())
	fmt.Fprintf(out, "  compile: %s\n  test: %s\n", wf.Compile, wf.Test)

	p := toolchain.NewProvisioner(shell.Local{})
	id, err := p.Provision(ctx, dir, toolchain.Pins{Ruby: wf.Ruby, Rust: wf.Rust})
	if err != nil {
		return cli.Exit(err.Error(), ExitProvisioning)
	}

	fmt.Fprintf(out, "toolchain %s\n", id)
	return nil
}
