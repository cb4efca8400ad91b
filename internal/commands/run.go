package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"extci/internal/cache"
	"extci/internal/githubhooks"
	"extci/internal/jobs"
	"extci/internal/models"
	"extci/internal/runner"
	"extci/internal/shell"
	"extci/internal/toolchain"
	"extci/internal/trigger"
	"extci/internal/workspace"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
)

// Exit codes of `extci run`, one per failure category.
const (
	ExitProvisioning = 2
	ExitCompile      = 3
	ExitTest         = 4
	// ExitCanceled follows the shell convention for SIGINT.
	ExitCanceled = 130
)

func RunCommand() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "run the CI job for a push against a local checkout",
		Action: Run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"C"},
				Usage:   "checkout to build",
				Value:   ".",
			},
			&cli.StringFlag{
				Name:    "event",
				Usage:   "path to a GitHub push payload",
				Sources: cli.EnvVars("GITHUB_EVENT_PATH"),
			},
			&cli.StringFlag{
				Name:  "message",
				Usage: "commit message to evaluate instead of the event or HEAD",
			},
			&cli.StringFlag{
				Name:    "workflow",
				Usage:   "workflow file relative to --dir",
				Value:   ".extci.yml",
				Sources: cli.EnvVars("EXTCI_WORKFLOW_FILE"),
			},
			&cli.StringFlag{
				Name:    "cache-dir",
				Usage:   "dependency cache directory",
				Value:   defaultCacheDir(),
				Sources: cli.EnvVars("EXTCI_CACHE_DIR"),
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "neither restore nor save the dependency cache",
			},
			&cli.StringFlag{
				Name:    "log-dir",
				Usage:   "also write the job log under this directory",
				Sources: cli.EnvVars("EXTCI_LOG_DIR"),
			},
		},
	}
}

func Run(ctx context.Context, cmd *cli.Command) error {
	dir, err := filepath.Abs(cmd.String("dir"))
	if err != nil {
		return err
	}

	evt, err := loadPush(cmd, dir)
	if err != nil {
		return err
	}

	switch trigger.Decide(evt) {
	case trigger.Skip:
		fmt.Fprintf(cmd.Root().Writer, "skipping: commit message contains %q\n", trigger.SkipMarker)
		return nil
	case trigger.Ignore:
		fmt.Fprintln(cmd.Root().Writer, "skipping: push deletes the ref")
		return nil
	}

	exec := shell.Local{}
	provisioner := toolchain.NewProvisioner(exec)
	provisioner.Log = cmd.Root().ErrWriter

	r := &runner.Runner{
		Exec:         exec,
		Provisioner:  provisioner,
		WorkflowFile: cmd.String("workflow"),
		LogDir:       cmd.String("log-dir"),
		Mirror:       cmd.Root().Writer,
		Store:        jobs.NewMemoryStore(),
	}
	if !cmd.Bool("no-cache") {
		r.Cache = cache.New(cmd.String("cache-dir"), nil)
	}

	job, err := r.Run(ctx, models.NewJob(uuid.NewString(), evt), dir)
	if err == nil {
		return nil
	}

	code := 1
	switch {
	case errors.Is(err, runner.ErrProvisioning):
		code = ExitProvisioning
	case errors.Is(err, runner.ErrCompile):
		code = ExitCompile
	case errors.Is(err, runner.ErrTest):
		code = ExitTest
	case errors.Is(err, context.Canceled):
		code = ExitCanceled
	}
	return cli.Exit(fmt.Sprintf("job %s: %v", job.Status, err), code)
}

func loadPush(cmd *cli.Command, dir string) (models.PushEvent, error) {
	var evt models.PushEvent

	if path := cmd.String("event"); path != "" {
		payload, err := os.ReadFile(path)
		if err != nil {
			return evt, err
		}
		evt, err = githubhooks.ParsePush("local", payload)
		if err != nil {
			return evt, fmt.Errorf("parsing %s: %w", path, err)
		}
	} else if head, err := workspace.Head(dir); err == nil {
		evt = head
	} else if !cmd.IsSet("message") {
		return evt, err
	}

	if cmd.IsSet("message") {
		evt.HeadCommit.Message = cmd.String("message")
	}
	if evt.Ref == "" {
		evt.Ref = "local"
	}
	return evt, nil
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "extci")
	}
	return filepath.Join(dir, "extci")
}
