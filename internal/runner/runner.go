// Package runner executes a CI job: workspace preparation, toolchain
// provisioning and dependency caching, then the compile and test steps,
// stopping at the first failure.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"extci/internal/cache"
	"extci/internal/events"
	"extci/internal/fs"
	"extci/internal/logging"
	"extci/internal/metrics"
	"extci/internal/models"
	"extci/internal/shell"
	"extci/internal/toolchain"
	"extci/internal/workflow"

	"github.com/sirupsen/logrus"
)

// Step names, in execution order.
const (
	StepPrepare   = "prepare workspace"
	StepProvision = "provision toolchain"
	StepRestore   = "restore cache"
	StepInstall   = "install dependencies"
	StepSave      = "save cache"
	StepCompile   = "compile"
	StepSaveBuild = "save build cache"
	StepTest      = "test"
)

// Store receives job snapshots as the run progresses.
type Store interface {
	Update(ctx context.Context, job models.Job) error
}

// Provisioner resolves the toolchain for a workspace.
type Provisioner interface {
	Provision(ctx context.Context, dir string, pins toolchain.Pins) (toolchain.Identity, error)
}

// CheckoutFunc places the job's commit into workdir.
type CheckoutFunc func(ctx context.Context, job models.Job, workdir string) error

type Runner struct {
	Exec        shell.Executor
	Provisioner Provisioner
	// Cache is optional; nil disables dependency caching.
	Cache *cache.Cache
	// Store is optional; nil keeps results in memory only.
	Store Store
	// Checkout is optional; nil builds workdir as it is.
	Checkout CheckoutFunc

	WorkflowFile string
	LogDir       string
	// Mirror receives a copy of the job log, e.g. the terminal.
	Mirror io.Writer
}

type run struct {
	*Runner

	job     models.Job
	workdir string
	wf      workflow.Definition
	env     []string
	out     io.Writer
	log     *logrus.Entry

	identity toolchain.Identity
	cacheHit bool
	buildHit bool
}

type stepFunc func(ctx context.Context, r *run) error

type step struct {
	name string
	kind models.StepKind
	fn   stepFunc
}

var pipeline = []step{
	{StepPrepare, models.StepKindSetup, prepare},
	{StepProvision, models.StepKindSetup, provision},
	{StepRestore, models.StepKindSetup, restore},
	{StepInstall, models.StepKindSetup, install},
	{StepSave, models.StepKindSetup, save},
	{StepCompile, models.StepKindCompile, compile},
	{StepSaveBuild, models.StepKindCompile, saveBuild},
	{StepTest, models.StepKindTest, test},
}

// errSkipped marks a step that did not apply to this run.
var errSkipped = errors.New("step skipped")

// Run executes job in workdir and returns the finished job. The returned
// error is nil iff the job succeeded.
func (r *Runner) Run(ctx context.Context, job models.Job, workdir string) (models.Job, error) {
	rn := &run{
		Runner:  r,
		job:     job,
		workdir: workdir,
		log: logging.Component("runner").WithFields(logrus.Fields{
			"job": job.ID,
			"sha": job.SHA,
			"ref": job.Ref,
		}),
	}

	rn.job.Steps = make([]models.StepResult, len(pipeline))
	for i, s := range pipeline {
		rn.job.Steps[i] = models.StepResult{Name: s.name, Kind: s.kind, Status: models.StepStatusPending}
	}

	out, closeLog, err := rn.openLog()
	if err != nil {
		rn.log.WithError(err).Warn("job log unavailable, output is discarded")
		out = io.Discard
	}
	defer closeLog()
	rn.out = out

	started := time.Now().UTC()
	rn.job.Status = models.JobStatusRunning
	rn.job.StartedAt = &started
	rn.persist(ctx)
	events.Em.JobStarted(rn.job)
	rn.log.Info("job started")

	runErr := rn.execute(ctx)
	rn.finish(runErr)
	rn.persist(context.Background())

	return rn.job, runErr
}

func (rn *run) execute(ctx context.Context) error {
	for i, s := range pipeline {
		res := &rn.job.Steps[i]

		if err := ctx.Err(); err != nil {
			if isCanceled(err) {
				rn.skipFrom(i)
				return err
			}
			res.Status = models.StepStatusFailed
			res.Error = err.Error()
			rn.skipFrom(i + 1)
			return &StepError{Kind: failureKind(s.kind), Step: s.name, ExitCode: -1, Err: err}
		}

		began := time.Now().UTC()
		res.Status = models.StepStatusRunning
		res.StartedAt = &began
		rn.persist(ctx)
		fmt.Fprintf(rn.out, "========== %s ==========\n", strings.ToUpper(s.name))

		err := s.fn(ctx, rn)
		ended := time.Now().UTC()
		res.FinishedAt = &ended

		var stepErr *StepError
		switch {
		case err == nil:
			res.Status = models.StepStatusPassed
		case errors.Is(err, errSkipped):
			res.Status = models.StepStatusSkipped
			res.StartedAt, res.FinishedAt = nil, nil
		case errors.As(err, &stepErr):
			res.Status = models.StepStatusFailed
			res.Error = err.Error()
			if stepErr.Err == nil {
				code := stepErr.ExitCode
				res.ExitCode = &code
			}
		default:
			res.Status = models.StepStatusFailed
			res.Error = err.Error()
			if !isCanceled(err) {
				err = &StepError{Kind: failureKind(s.kind), Step: s.name, ExitCode: -1, Err: err}
			}
		}

		if res.Status != models.StepStatusSkipped {
			metrics.StepFinished(string(s.kind), string(res.Status), ended.Sub(began))
		}
		events.Em.JobStepFinished(rn.job, *res)

		if res.Status == models.StepStatusFailed {
			fmt.Fprintf(rn.out, "========== %s FAILED ==========\n", strings.ToUpper(s.name))
			rn.skipFrom(i + 1)
			return err
		}
	}
	return nil
}

func (rn *run) skipFrom(i int) {
	for ; i < len(rn.job.Steps); i++ {
		rn.job.Steps[i].Status = models.StepStatusSkipped
	}
}

func (rn *run) finish(err error) {
	finished := time.Now().UTC()
	rn.job.FinishedAt = &finished

	var stepErr *StepError
	switch {
	case err == nil:
		rn.job.Status = models.JobStatusSuccess
	case errors.Is(err, context.Canceled):
		rn.job.Status = models.JobStatusCanceled
		rn.job.Error = "canceled"
	case errors.As(err, &stepErr):
		rn.job.Status = models.JobStatusFailure
		rn.job.Failure = stepErr.Kind
		rn.job.Error = err.Error()
	default:
		rn.job.Status = models.JobStatusFailure
		rn.job.Failure = models.FailureProvisioning
		rn.job.Error = err.Error()
	}

	fmt.Fprintf(rn.out, "========== JOB %s ==========\n", strings.ToUpper(string(rn.job.Status)))

	duration := finished.Sub(*rn.job.StartedAt)
	metrics.JobFinished(string(rn.job.Status), string(rn.job.Failure), duration)
	events.Em.JobFinished(rn.job)

	entry := rn.log.WithFields(logrus.Fields{"status": rn.job.Status, "duration": duration.Round(time.Millisecond)})
	if err != nil {
		entry.WithError(err).Warn("job finished")
	} else {
		entry.Info("job finished")
	}
}

func (rn *run) persist(ctx context.Context) {
	if rn.Store == nil {
		return
	}
	if err := rn.Store.Update(ctx, rn.job); err != nil {
		rn.log.WithError(err).Warn("failed to persist job")
	}
}

func (rn *run) openLog() (io.Writer, func(), error) {
	noop := func() {}
	if rn.LogDir == "" {
		if rn.Mirror != nil {
			return rn.Mirror, noop, nil
		}
		return io.Discard, noop, nil
	}

	if err := fs.EnsureDir(rn.LogDir, 0o755); err != nil {
		return nil, noop, err
	}

	path := filepath.Join(rn.LogDir, rn.job.ID+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return nil, noop, err
	}
	rn.job.LogPath = path

	var w io.Writer = f
	if rn.Mirror != nil {
		w = io.MultiWriter(f, rn.Mirror)
	}
	return w, func() { f.Close() }, nil
}

// command runs one workflow command line with the job environment.
func (rn *run) command(ctx context.Context, kind models.StepKind, name, line string, extra map[string]string) error {
	shellName, args := shell.Script(rn.wf.Shell, line)
	fmt.Fprintf(rn.out, "$ %s\n", line)

	env := rn.env
	if len(extra) > 0 {
		env = shell.WithEnvOverrides(env, extra)
	}

	code, err := rn.Exec.Run(ctx, shell.Command{
		Name:   shellName,
		Args:   args,
		Dir:    rn.workdir,
		Env:    env,
		Stdout: rn.out,
		Stderr: rn.out,
	})
	if err != nil {
		if isCanceled(err) {
			return err
		}
		return &StepError{Kind: failureKind(kind), Step: name, ExitCode: -1, Err: err}
	}
	if code != 0 {
		return &StepError{Kind: failureKind(kind), Step: name, ExitCode: code}
	}
	return nil
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
